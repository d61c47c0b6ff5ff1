// Package auction implements the bidding and staged settlement engine:
// participation-token issuance, monotonic bidding, the bounded-step
// settlement of the winner's balance, and the refund fan-out to losing
// bidders.  The engine is transport-free; HTTP handlers sit on top of
// it and persistence sits below it behind the store interfaces.
package auction

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratyushn/auction-house/internal/model"
	"github.com/pratyushn/auction-house/internal/payment"
	"github.com/pratyushn/auction-house/internal/queue"
	"github.com/pratyushn/auction-house/internal/utils"
)

// ItemStore is the persistence seam for the item ledger.  It has a
// production MySQL implementation and an in-memory implementation used
// by the test suite (both in internal/repository).  Conditional methods
// report lost races as repository.ErrConflict and violated uniqueness
// as repository.ErrDuplicate; absent rows are repository.ErrNotFound
// except where noted.
type ItemStore interface {
	// FindItem returns the item or repository.ErrNotFound.
	FindItem(ctx context.Context, itemID uint64) (*model.Item, error)
	// FindToken returns the token entry for the exact token string on
	// this item, or repository.ErrNotFound.
	FindToken(ctx context.Context, itemID uint64, token string) (*model.BiddingToken, error)
	// HasToken reports whether a token exists for the (item, user) pair.
	HasToken(ctx context.Context, itemID, userID uint64) (bool, error)
	// AddToken inserts a token; repository.ErrDuplicate when the pair
	// already has one.  The check and insert are atomic.
	AddToken(ctx context.Context, itemID uint64, tok model.BiddingToken) error
	// ApplyBid atomically sets the item's current price to b.BidAmount
	// conditional on the price still being prevPrice, and upserts the
	// bidder's entry in the same transaction.  repository.ErrConflict
	// when the price moved underneath the caller.
	ApplyBid(ctx context.Context, itemID uint64, prevPrice decimal.Decimal, b model.Bidder) error
	// Bidders returns bidder entries in arrival order.
	Bidders(ctx context.Context, itemID uint64) ([]model.Bidder, error)
	// InitTransaction creates the settlement record; repository.
	// ErrConflict when one already exists.
	InitTransaction(ctx context.Context, itemID uint64, tx model.Transaction) error
	// Transaction returns the settlement record with its payment
	// history, or (nil, nil) when none has been initiated.
	Transaction(ctx context.Context, itemID uint64) (*model.Transaction, error)
	// ApplyPayment atomically increments paid_amount by entry.Amount
	// and appends the history row.  repository.ErrDuplicate when the
	// payment reference was already recorded.
	ApplyPayment(ctx context.Context, itemID uint64, entry model.PaymentEntry) error
	// CompleteTransaction flips pending -> completed and stamps
	// CompletedAt.  Returns whether this call performed the flip, so
	// exactly one caller observes true.
	CompleteTransaction(ctx context.Context, itemID uint64, at time.Time) (bool, error)
	// MarkRefunded flips the bidder's refunded flag false -> true.
	// Returns whether this call performed the flip.
	MarkRefunded(ctx context.Context, itemID, userID uint64) (bool, error)
	// SetItemStatus updates the item's operator-visible status.
	SetItemStatus(ctx context.Context, itemID uint64, status string) error
}

// UserStore is the user/wallet collaborator.  Wallet adjustments are
// signed deltas applied atomically at the storage layer.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByID(ctx context.Context, id uint64) (*model.User, error)
	AdjustWallet(ctx context.Context, userID uint64, delta decimal.Decimal) error
	// AdjustOperatorWallet adjusts the auction operator's (ADMIN)
	// wallet balance.
	AdjustOperatorWallet(ctx context.Context, delta decimal.Decimal) error
}

// SlipStore persists settlement receipts.  Find methods return
// (nil, nil) when no slip exists.
type SlipStore interface {
	CreateSlip(ctx context.Context, s *model.Slip) error
	FindSlipByCode(ctx context.Context, code string) (*model.Slip, error)
	FindSlipByItem(ctx context.Context, itemID uint64) (*model.Slip, error)
}

// Notifier is the fire-and-forget notification collaborator.  Failures
// inside a Notifier must never roll back the ledger mutation that
// triggered the event, so the methods return nothing.
type Notifier interface {
	ReceiptIssued(ctx context.Context, ev queue.ReceiptIssuedEvent)
	RefundProcessed(ctx context.Context, ev queue.RefundProcessedEvent)
}

// Config carries the engine's numeric knobs.
type Config struct {
	// DepositRate is the fraction of an item's base price paid to
	// obtain a bidding token.  Fixed at 10% in production.
	DepositRate decimal.Decimal
	// MinStep / MaxStep bound every settlement charge: the processor
	// rejects charges below its minimum viable amount and above its
	// single-charge ceiling.  MinStep <= MaxStep must hold.
	MinStep decimal.Decimal
	MaxStep decimal.Decimal
	// Currency is the ISO code sent to the processor.
	Currency string
	// BidRetries bounds the engine's internal retries when a bid's
	// compare-and-set loses to a concurrent bid.
	BidRetries int
}

// DefaultConfig mirrors the production processor bounds: charges of at
// least 0.50 and at most 1,999,999 currency units, INR, 10% deposits.
func DefaultConfig() Config {
	return Config{
		DepositRate: decimal.NewFromFloat(0.1),
		MinStep:     decimal.NewFromFloat(0.5),
		MaxStep:     decimal.NewFromInt(1999999),
		Currency:    "inr",
		BidRetries:  3,
	}
}

// Engine coordinates the stores, payment gateway and notifier.  All
// dependencies are injected at construction; the engine owns no
// lifecycle and keeps no mutable state of its own.
type Engine struct {
	items   ItemStore
	users   UserStore
	slips   SlipStore
	gateway payment.Gateway
	notify  Notifier
	cfg     Config
	now     func() time.Time

	newSlipCode func() (string, error)
}

// New constructs an Engine.  notify may be nil when no notification
// collaborator is configured.
func New(items ItemStore, users UserStore, slips SlipStore, gw payment.Gateway, notify Notifier, cfg Config) *Engine {
	if items == nil || users == nil || slips == nil || gw == nil {
		panic("nil dependency passed to auction.New")
	}
	return &Engine{
		items:       items,
		users:       users,
		slips:       slips,
		gateway:     gw,
		notify:      notify,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
		newSlipCode: utils.NewSlipCode,
	}
}

// minorUnits converts a decimal currency amount to the processor's
// integer minor-unit representation, rounding to the nearest unit.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// fromMinorUnits converts back from the processor's representation.
func fromMinorUnits(n int64) decimal.Decimal {
	return decimal.NewFromInt(n).Div(decimal.NewFromInt(100))
}

// depositFor returns the token deposit for an item.
func (e *Engine) depositFor(item *model.Item) decimal.Decimal {
	return item.BasePrice.Mul(e.cfg.DepositRate)
}

// winningBidder returns the entry with the maximum bid amount, keeping
// the earliest entry on equal amounts (bidders are in arrival order).
// Distinct users tying on the exact amount is possible in principle;
// the earliest-wins rule here is deterministic but has not been
// ratified by the business, so don't lean on it.
func winningBidder(bidders []model.Bidder) *model.Bidder {
	if len(bidders) == 0 {
		return nil
	}
	win := &bidders[0]
	for i := 1; i < len(bidders); i++ {
		if bidders[i].BidAmount.GreaterThan(win.BidAmount) {
			win = &bidders[i]
		}
	}
	return win
}
