package auction

import "errors"

// Sentinel errors returned by the engine.  Every operation reports its
// failure as one of these kinds (possibly wrapped with context via
// fmt.Errorf and %w); handlers translate them to HTTP statuses with
// errors.Is.  No operation partially applies its effect when it errors.
var (
	// ErrNotFound covers an absent item, user, token or receipt code.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateToken is returned when a bidding token already exists
	// for the (item, user) pair.
	ErrDuplicateToken = errors.New("bidding token already exists for this item")

	// ErrTokenExpired is returned when a token is used after the item's
	// bid end time.
	ErrTokenExpired = errors.New("bidding token has expired")

	// ErrTokenMismatch is returned when a token is presented by a user
	// other than the one it was issued to.  Tokens are non-transferable.
	ErrTokenMismatch = errors.New("token does not belong to this user")

	// ErrBidTooLow is returned when a bid does not strictly exceed the
	// item's current price.
	ErrBidTooLow = errors.New("bid amount must be higher than the current price")

	// ErrNotWinner is returned when settlement is initiated by anyone
	// but the highest bidder.
	ErrNotWinner = errors.New("caller is not the winning bidder")

	// ErrAlreadySettled is returned for settlement operations on a
	// transaction that has already completed.  Completed is terminal.
	ErrAlreadySettled = errors.New("settlement already completed")

	// ErrNoBidders is returned when an operation requires at least one
	// bidder and the item has none.
	ErrNoBidders = errors.New("no bidders found for this item")

	// ErrNoRefundTargets is returned by the refund distributor when the
	// item has a winner but no losing bidders to refund.
	ErrNoRefundTargets = errors.New("no losing bidders to refund")

	// ErrExternalPayment is returned when a processor call fails or the
	// retrieved intent did not succeed (wrong status, amount or
	// metadata).  The engine never retries these; the caller decides.
	ErrExternalPayment = errors.New("external payment failed")

	// ErrConcurrencyConflict is returned when an atomic conditional
	// update lost its race even after the engine's bounded internal
	// retries.  The caller may re-submit.
	ErrConcurrencyConflict = errors.New("conflicting concurrent update, please retry")
)
