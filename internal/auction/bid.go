package auction

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/pratyushn/auction-house/internal/model"
	"github.com/pratyushn/auction-house/internal/repository"
)

// PlaceBid records a bid of amount on itemID for the token holder
// identified by email.  The bid must strictly exceed the item's current
// price; equal bids are rejected.  The price advance is a compare-and-set
// against the price the caller was shown, so two racing bids can never
// both land on the same baseline: the loser re-reads and re-validates
// against the new price, up to a bounded number of attempts.  Returns
// the new current price.
func (e *Engine) PlaceBid(ctx context.Context, itemID uint64, token, email string, amount decimal.Decimal) (decimal.Decimal, error) {
	item, err := e.findItem(ctx, itemID)
	if err != nil {
		return decimal.Zero, err
	}
	user, err := e.checkToken(ctx, item, token, email)
	if err != nil {
		return decimal.Zero, err
	}

	for attempt := 0; ; attempt++ {
		if amount.LessThanOrEqual(item.CurrentPrice) {
			return decimal.Zero, ErrBidTooLow
		}
		err = e.items.ApplyBid(ctx, item.ID, item.CurrentPrice, model.Bidder{
			UserID:    user.ID,
			Name:      user.Name,
			Email:     user.Email,
			BidAmount: amount,
			BidTime:   e.now(),
		})
		if err == nil {
			return amount, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return decimal.Zero, err
		}
		if attempt+1 >= e.cfg.BidRetries {
			return decimal.Zero, ErrConcurrencyConflict
		}
		// Lost the CAS race; reload and re-validate against the price
		// that beat us.
		if item, err = e.findItem(ctx, itemID); err != nil {
			return decimal.Zero, err
		}
	}
}
