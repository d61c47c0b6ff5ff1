package auction

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/pratyushn/auction-house/internal/model"
	"github.com/pratyushn/auction-house/internal/payment"
	"github.com/pratyushn/auction-house/internal/repository"
	"github.com/pratyushn/auction-house/internal/utils"
)

// Intent metadata values distinguishing what a payment pays for.  A
// deposit intent must never be confirmable as a settlement step and
// vice versa.
const (
	purposeDeposit    = "deposit"
	purposeSettlement = "settlement"
)

// TokenQuote is the response to a token request: the deposit owed and
// the processor handle the client completes the payment with.
type TokenQuote struct {
	DepositAmount decimal.Decimal
	PaymentRef    string
	ClientSecret  string
}

// RequestToken starts token issuance for (itemID, email): it verifies
// that no token exists for the pair yet and creates a payment intent
// for the 10% deposit, tagged with the user and item ids so the
// confirmation callback can recover them.  The token itself is only
// issued by ConfirmDeposit once the processor reports success.
func (e *Engine) RequestToken(ctx context.Context, itemID uint64, email string) (*TokenQuote, error) {
	user, err := e.findUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	item, err := e.findItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	exists, err := e.items.HasToken(ctx, itemID, user.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateToken
	}

	deposit := e.depositFor(item)
	intent, err := e.gateway.CreateIntent(ctx, minorUnits(deposit), e.cfg.Currency,
		map[string]string{
			"userId":  strconv.FormatUint(user.ID, 10),
			"itemId":  strconv.FormatUint(item.ID, 10),
			"purpose": purposeDeposit,
		},
		fmt.Sprintf("Bidding token deposit for item %s (%d)", item.Title, item.ID))
	if err != nil {
		return nil, fmt.Errorf("create deposit intent: %w (%v)", ErrExternalPayment, err)
	}

	return &TokenQuote{
		DepositAmount: deposit,
		PaymentRef:    intent.Ref,
		ClientSecret:  intent.ClientSecret,
	}, nil
}

// ConfirmDeposit completes token issuance after the client has paid.
// It retrieves the intent, requires a succeeded status with the exact
// deposit amount for the item named in the metadata, then atomically
// inserts the token (one per user per item) and credits the deposit to
// the operator wallet.  The token string is 8 hex characters of
// cryptographic randomness; its expiry is the item's bid end time,
// checked at use time rather than here.
func (e *Engine) ConfirmDeposit(ctx context.Context, paymentRef string) (string, error) {
	intent, err := e.gateway.RetrieveIntent(ctx, paymentRef)
	if err != nil {
		return "", fmt.Errorf("retrieve deposit intent: %w (%v)", ErrExternalPayment, err)
	}
	if intent.Status != payment.StatusSucceeded {
		return "", fmt.Errorf("deposit payment not successful: %w", ErrExternalPayment)
	}
	if intent.Metadata["purpose"] != purposeDeposit {
		return "", fmt.Errorf("intent %s is not a deposit payment: %w", paymentRef, ErrExternalPayment)
	}

	userID, err1 := strconv.ParseUint(intent.Metadata["userId"], 10, 64)
	itemID, err2 := strconv.ParseUint(intent.Metadata["itemId"], 10, 64)
	if err1 != nil || err2 != nil {
		return "", fmt.Errorf("deposit intent metadata missing user/item: %w", ErrExternalPayment)
	}

	user, err := e.findUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	item, err := e.findItem(ctx, itemID)
	if err != nil {
		return "", err
	}

	deposit := e.depositFor(item)
	if intent.AmountMinor != minorUnits(deposit) {
		return "", fmt.Errorf("deposit amount mismatch: %w", ErrExternalPayment)
	}

	token, err := utils.NewBiddingToken()
	if err != nil {
		return "", err
	}
	err = e.items.AddToken(ctx, item.ID, model.BiddingToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: item.BidEndTime,
		CreatedAt: e.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", ErrDuplicateToken
		}
		return "", err
	}

	// The insert above is the idempotency gate: the wallet credit runs
	// only for the confirmation that actually created the token.
	if err := e.users.AdjustOperatorWallet(ctx, deposit); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateToken runs the full token check ladder for (itemID, token,
// email): item exists, token exists by exact string match, the token
// belongs to the caller, and it has not expired.
func (e *Engine) ValidateToken(ctx context.Context, itemID uint64, token, email string) error {
	item, err := e.findItem(ctx, itemID)
	if err != nil {
		return err
	}
	_, err = e.checkToken(ctx, item, token, email)
	return err
}

// checkToken validates token existence, ownership and expiry against
// an already-loaded item and returns the owning user.
func (e *Engine) checkToken(ctx context.Context, item *model.Item, token, email string) (*model.User, error) {
	entry, err := e.items.FindToken(ctx, item.ID, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("bidding token: %w", ErrNotFound)
		}
		return nil, err
	}
	user, err := e.findUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.ID != entry.UserID {
		return nil, ErrTokenMismatch
	}
	if e.now().After(entry.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return user, nil
}

// findItem / findUserByEmail / findUserByID translate the storage
// layer's not-found into the engine's taxonomy with a subject prefix.

func (e *Engine) findItem(ctx context.Context, itemID uint64) (*model.Item, error) {
	item, err := e.items.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
		}
		return nil, err
	}
	return item, nil
}

func (e *Engine) findUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := e.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (e *Engine) findUserByID(ctx context.Context, id uint64) (*model.User, error) {
	user, err := e.users.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}
