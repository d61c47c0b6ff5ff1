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
)

// SettlementStep is one charge in a staged settlement.  Only the step
// currently due carries a live payment handle; the remaining amounts
// are display-only until their turn comes.
type SettlementStep struct {
	Amount       decimal.Decimal
	PaymentRef   string
	ClientSecret string
}

// SettlementPlan is returned by InitiateSettlement: the total owed, the
// full amount schedule for display, and the live handle for the first
// step.
type SettlementPlan struct {
	FinalAmount decimal.Decimal
	Amounts     []decimal.Decimal
	FirstStep   *SettlementStep
	Completed   bool
}

// StepResult is returned by ConfirmSettlementStep.
type StepResult struct {
	Completed bool
	Paid      decimal.Decimal
	NextStep  *SettlementStep
	History   []model.PaymentEntry
}

// PlanSteps splits total into sequential charge amounts.  Every step is
// the remaining balance clamped into [min, max], so all steps except
// the last equal max, and the last carries whatever is left (never
// below min unless the total itself is smaller).
func PlanSteps(total, min, max decimal.Decimal) []decimal.Decimal {
	var steps []decimal.Decimal
	remaining := total
	for remaining.GreaterThan(decimal.Zero) {
		step := remaining
		if step.GreaterThan(max) {
			step = max
		}
		if step.LessThan(min) {
			step = min
		}
		if step.GreaterThan(remaining) {
			step = remaining
		}
		steps = append(steps, step)
		remaining = remaining.Sub(step)
	}
	return steps
}

// InitiateSettlement begins (or resumes) settlement of itemID for the
// caller, who must be the winning bidder.  The amount owed is the
// final hammer price minus the 10% deposit already paid for the
// bidding token.  Calling again while a settlement is pending re-plans
// from the remaining balance without touching the payment history;
// calling after completion fails with ErrAlreadySettled.
func (e *Engine) InitiateSettlement(ctx context.Context, itemID uint64, email string) (*SettlementPlan, error) {
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

	tx, err := e.items.Transaction(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var final, remaining decimal.Decimal
	switch {
	case tx == nil:
		final = item.CurrentPrice.Sub(e.depositFor(item))
		if final.LessThan(decimal.Zero) {
			final = decimal.Zero
		}
		remaining = final
		err = e.items.InitTransaction(ctx, itemID, model.Transaction{
			Status:      model.TxStatusPending,
			FinalAmount: final,
		})
		if err != nil {
			return nil, err
		}
	case tx.Status == model.TxStatusCompleted:
		return nil, ErrAlreadySettled
	default:
		final = tx.FinalAmount
		remaining = final.Sub(tx.PaidAmount)
	}

	amounts := PlanSteps(remaining, e.cfg.MinStep, e.cfg.MaxStep)
	if len(amounts) == 0 {
		// Deposit already covers the hammer price.
		if _, err := e.completeSettlement(ctx, itemID, final); err != nil {
			return nil, err
		}
		return &SettlementPlan{FinalAmount: final, Completed: true}, nil
	}

	first, err := e.createStepIntent(ctx, item, user.ID, amounts[0])
	if err != nil {
		return nil, err
	}
	return &SettlementPlan{
		FinalAmount: final,
		Amounts:     amounts,
		FirstStep:   first,
	}, nil
}

// ConfirmSettlementStep records a completed step payment and either
// finishes the settlement or hands back the next step.  The payment
// reference is recorded exactly once; confirming the same intent twice
// fails rather than double-counting.
func (e *Engine) ConfirmSettlementStep(ctx context.Context, itemID uint64, email, paymentRef string) (*StepResult, error) {
	item, err := e.findItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	user, err := e.findUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	tx, err := e.items.Transaction(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("settlement for item %d: %w", itemID, ErrNotFound)
	}
	if tx.Status == model.TxStatusCompleted {
		return nil, ErrAlreadySettled
	}

	intent, err := e.gateway.RetrieveIntent(ctx, paymentRef)
	if err != nil {
		return nil, fmt.Errorf("retrieve step intent: %w (%v)", ErrExternalPayment, err)
	}
	if intent.Status != payment.StatusSucceeded {
		return nil, fmt.Errorf("step payment not successful: %w", ErrExternalPayment)
	}
	// Only intents minted for this item's settlement count toward it.
	// Without the pin a succeeded deposit intent (or another item's
	// step) could be replayed here to shrink the balance.
	if intent.Metadata["purpose"] != purposeSettlement ||
		intent.Metadata["itemId"] != strconv.FormatUint(itemID, 10) {
		return nil, fmt.Errorf("intent %s is not a settlement step for this item: %w", paymentRef, ErrExternalPayment)
	}

	paid := fromMinorUnits(intent.AmountMinor)
	err = e.items.ApplyPayment(ctx, itemID, model.PaymentEntry{
		Amount:     paid,
		PaymentRef: paymentRef,
		PaidAt:     e.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("payment %s already recorded: %w", paymentRef, ErrExternalPayment)
		}
		if errors.Is(err, repository.ErrConflict) {
			// Lost the race against the completion flip.
			return nil, ErrAlreadySettled
		}
		return nil, err
	}

	tx, err = e.items.Transaction(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if tx.PaidAmount.GreaterThanOrEqual(tx.FinalAmount) {
		if _, err := e.completeSettlement(ctx, itemID, tx.FinalAmount); err != nil {
			return nil, err
		}
		return &StepResult{
			Completed: true,
			Paid:      tx.PaidAmount,
			History:   tx.PaymentHistory,
		}, nil
	}

	remaining := tx.FinalAmount.Sub(tx.PaidAmount)
	amounts := PlanSteps(remaining, e.cfg.MinStep, e.cfg.MaxStep)
	next, err := e.createStepIntent(ctx, item, user.ID, amounts[0])
	if err != nil {
		return nil, err
	}
	return &StepResult{
		Paid:     tx.PaidAmount,
		NextStep: next,
		History:  tx.PaymentHistory,
	}, nil
}

// completeSettlement flips the transaction to completed and, only when
// this call performed the flip, credits the hammer total to the
// operator wallet.  The conditional flip makes the credit exactly-once
// under concurrent confirmations.
func (e *Engine) completeSettlement(ctx context.Context, itemID uint64, final decimal.Decimal) (bool, error) {
	flipped, err := e.items.CompleteTransaction(ctx, itemID, e.now())
	if err != nil {
		return false, err
	}
	if !flipped {
		return false, nil
	}
	if err := e.users.AdjustOperatorWallet(ctx, final); err != nil {
		return true, err
	}
	return true, nil
}

func (e *Engine) createStepIntent(ctx context.Context, item *model.Item, userID uint64, amount decimal.Decimal) (*SettlementStep, error) {
	intent, err := e.gateway.CreateIntent(ctx, minorUnits(amount), e.cfg.Currency,
		map[string]string{
			"userId":  strconv.FormatUint(userID, 10),
			"itemId":  strconv.FormatUint(item.ID, 10),
			"purpose": purposeSettlement,
		},
		fmt.Sprintf("Settlement step for item %s (%d)", item.Title, item.ID))
	if err != nil {
		return nil, fmt.Errorf("create step intent: %w (%v)", ErrExternalPayment, err)
	}
	return &SettlementStep{
		Amount:       amount,
		PaymentRef:   intent.Ref,
		ClientSecret: intent.ClientSecret,
	}, nil
}
