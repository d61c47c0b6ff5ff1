package auction

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/pratyushn/auction-house/internal/model"
	"github.com/pratyushn/auction-house/internal/queue"
)

// RefundSummary reports one refund run: how much was returned in total,
// to how many bidders, and the per-bidder deposit amount.
type RefundSummary struct {
	TotalRefunded decimal.Decimal
	RefundedCount int
	PerBidder     decimal.Decimal
}

// ProcessRefund fans the deposit back out to every losing bidder of the
// item named by the slip code.  Each loser's refunded flag is flipped
// first and the wallet credit runs only when this call performed the
// flip, so re-running the same slip never pays anyone twice; a rerun
// where everyone is already refunded returns a zero summary.  The
// operator wallet is debited once for the aggregate and the item is
// marked refunded.
func (e *Engine) ProcessRefund(ctx context.Context, slipCode string) (*RefundSummary, error) {
	slip, err := e.slips.FindSlipByCode(ctx, slipCode)
	if err != nil {
		return nil, err
	}
	if slip == nil {
		return nil, ErrNotFound
	}

	item, err := e.findItem(ctx, slip.ItemID)
	if err != nil {
		return nil, err
	}
	bidders, err := e.items.Bidders(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	winner := winningBidder(bidders)
	if winner == nil {
		return nil, ErrNoBidders
	}

	losers := 0
	for i := range bidders {
		if bidders[i].UserID != winner.UserID {
			losers++
		}
	}
	if losers == 0 {
		return nil, ErrNoRefundTargets
	}

	perBidder := e.depositFor(item)
	summary := &RefundSummary{PerBidder: perBidder, TotalRefunded: decimal.Zero}
	for i := range bidders {
		b := &bidders[i]
		if b.UserID == winner.UserID || b.Refunded {
			continue
		}
		flipped, err := e.items.MarkRefunded(ctx, item.ID, b.UserID)
		if err != nil {
			return nil, err
		}
		if !flipped {
			continue
		}
		if err := e.users.AdjustWallet(ctx, b.UserID, perBidder); err != nil {
			return nil, err
		}
		summary.TotalRefunded = summary.TotalRefunded.Add(perBidder)
		summary.RefundedCount++
	}

	if summary.RefundedCount > 0 {
		if err := e.users.AdjustOperatorWallet(ctx, summary.TotalRefunded.Neg()); err != nil {
			return nil, err
		}
		if err := e.items.SetItemStatus(ctx, item.ID, model.ItemStatusRefunded); err != nil {
			return nil, err
		}
		if e.notify != nil {
			e.notify.RefundProcessed(ctx, queue.RefundProcessedEvent{
				SlipCode:      slip.Code,
				ItemID:        item.ID,
				TotalRefunded: summary.TotalRefunded.StringFixed(2),
				RefundedCount: summary.RefundedCount,
				PerBidder:     perBidder.StringFixed(2),
				ProcessedAt:   e.now().Format("2006-01-02 15:04:05"),
			})
		}
	}
	return summary, nil
}
