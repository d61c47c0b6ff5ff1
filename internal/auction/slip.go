package auction

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/pratyushn/auction-house/internal/model"
	"github.com/pratyushn/auction-house/internal/queue"
	"github.com/pratyushn/auction-house/internal/repository"
)

// slipCodeRetries bounds the redraws when a freshly minted slip code
// collides with another item's slip.
const slipCodeRetries = 10

// Checkout is everything the winner sees on the checkout page: the
// item, what the deposit covered, and what remains to be settled.
type Checkout struct {
	Item          *model.Item
	DepositPaid   decimal.Decimal
	FinalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	Remaining     decimal.Decimal
	Settled       bool
	StepAmounts   []decimal.Decimal
	WinningAmount decimal.Decimal
}

// GenerateSlip issues the 4-digit receipt slip for a settled item.
// Exactly one slip exists per item: a repeat call returns the existing
// slip with existed=true instead of minting a new code.  The caller
// must be the winning bidder and the settlement must be complete.
func (e *Engine) GenerateSlip(ctx context.Context, itemID uint64, email string) (*model.Slip, bool, error) {
	item, err := e.findItem(ctx, itemID)
	if err != nil {
		return nil, false, err
	}
	user, err := e.findUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}

	bidders, err := e.items.Bidders(ctx, itemID)
	if err != nil {
		return nil, false, err
	}
	winner := winningBidder(bidders)
	if winner == nil {
		return nil, false, ErrNoBidders
	}
	if winner.UserID != user.ID {
		return nil, false, ErrNotWinner
	}

	tx, err := e.items.Transaction(ctx, itemID)
	if err != nil {
		return nil, false, err
	}
	if tx == nil || tx.Status != model.TxStatusCompleted {
		return nil, false, ErrNotFound
	}

	if existing, err := e.slips.FindSlipByItem(ctx, itemID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, true, nil
	}

	// The 4-digit code space is small, so collisions with other items'
	// slips are expected at scale; redraw the code until the insert
	// lands.  A duplicate explained by this item's own slip means a
	// racing call won; return that one instead.
	var slip *model.Slip
	for attempt := 0; ; attempt++ {
		code, err := e.newSlipCode()
		if err != nil {
			return nil, false, err
		}
		slip = &model.Slip{
			ItemID:    itemID,
			UserID:    user.ID,
			Code:      code,
			CreatedAt: e.now(),
		}
		err = e.slips.CreateSlip(ctx, slip)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, false, err
		}
		existing, ferr := e.slips.FindSlipByItem(ctx, itemID)
		if ferr != nil {
			return nil, false, ferr
		}
		if existing != nil {
			return existing, true, nil
		}
		if attempt+1 >= slipCodeRetries {
			return nil, false, err
		}
	}

	if e.notify != nil {
		e.notify.ReceiptIssued(ctx, queue.ReceiptIssuedEvent{
			SlipCode:   slip.Code,
			ItemID:     item.ID,
			ItemTitle:  item.Title,
			UserID:     user.ID,
			UserName:   user.Name,
			UserEmail:  user.Email,
			FinalPrice: item.CurrentPrice.StringFixed(2),
			IssuedAt:   e.now().Format("2006-01-02 15:04:05"),
		})
	}
	return slip, false, nil
}

// CheckoutData assembles the winner's checkout view for itemID.
func (e *Engine) CheckoutData(ctx context.Context, itemID uint64, email string) (*Checkout, error) {
	item, err := e.findItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	user, err := e.findUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	bidders, err := e.items.Bidders(ctx, itemID)
	if err != nil {
		return nil, err
	}
	winner := winningBidder(bidders)
	if winner == nil {
		return nil, ErrNoBidders
	}
	if winner.UserID != user.ID {
		return nil, ErrNotWinner
	}

	out := &Checkout{
		Item:          item,
		DepositPaid:   e.depositFor(item),
		WinningAmount: winner.BidAmount,
	}

	tx, err := e.items.Transaction(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		out.FinalAmount = item.CurrentPrice.Sub(out.DepositPaid)
		if out.FinalAmount.LessThan(decimal.Zero) {
			out.FinalAmount = decimal.Zero
		}
		out.Remaining = out.FinalAmount
	} else {
		out.FinalAmount = tx.FinalAmount
		out.PaidAmount = tx.PaidAmount
		out.Remaining = tx.FinalAmount.Sub(tx.PaidAmount)
		out.Settled = tx.Status == model.TxStatusCompleted
		if out.Remaining.LessThan(decimal.Zero) {
			out.Remaining = decimal.Zero
		}
	}
	out.StepAmounts = PlanSteps(out.Remaining, e.cfg.MinStep, e.cfg.MaxStep)
	return out, nil
}
