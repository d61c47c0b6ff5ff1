package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pratyushn/auction-house/internal/model"
)

func memItem(t *testing.T) (*MemoryStore, uint64) {
	t.Helper()
	store := NewMemoryStore()
	store.SeedItem(model.Item{
		ID:           7,
		Title:        "Brass Astrolabe",
		BasePrice:    decimal.NewFromInt(100),
		CurrentPrice: decimal.NewFromInt(100),
	})
	return store, 7
}

func TestApplyBidStaleBaseline(t *testing.T) {
	store, itemID := memItem(t)
	ctx := context.Background()

	first := model.Bidder{UserID: 1, BidAmount: decimal.NewFromInt(120), BidTime: time.Now()}
	require.NoError(t, store.ApplyBid(ctx, itemID, decimal.NewFromInt(100), first))

	// Second writer still holds the old price baseline.
	second := model.Bidder{UserID: 2, BidAmount: decimal.NewFromInt(130), BidTime: time.Now()}
	err := store.ApplyBid(ctx, itemID, decimal.NewFromInt(100), second)
	require.ErrorIs(t, err, ErrConflict)

	item, err := store.FindItem(ctx, itemID)
	require.NoError(t, err)
	require.True(t, item.CurrentPrice.Equal(decimal.NewFromInt(120)))

	require.NoError(t, store.ApplyBid(ctx, itemID, decimal.NewFromInt(120), second))
	bidders, err := store.Bidders(ctx, itemID)
	require.NoError(t, err)
	require.Len(t, bidders, 2)
}

func TestApplyBidUpsertsBidder(t *testing.T) {
	store, itemID := memItem(t)
	ctx := context.Background()

	b := model.Bidder{UserID: 1, BidAmount: decimal.NewFromInt(110), BidTime: time.Now()}
	require.NoError(t, store.ApplyBid(ctx, itemID, decimal.NewFromInt(100), b))
	b.BidAmount = decimal.NewFromInt(125)
	require.NoError(t, store.ApplyBid(ctx, itemID, decimal.NewFromInt(110), b))

	bidders, err := store.Bidders(ctx, itemID)
	require.NoError(t, err)
	require.Len(t, bidders, 1)
	require.True(t, bidders[0].BidAmount.Equal(decimal.NewFromInt(125)))
}

func TestApplyPaymentDuplicateRef(t *testing.T) {
	store, itemID := memItem(t)
	ctx := context.Background()

	require.NoError(t, store.InitTransaction(ctx, itemID, model.Transaction{
		Status:      model.TxStatusPending,
		FinalAmount: decimal.NewFromInt(90),
	}))

	entry := model.PaymentEntry{PaymentRef: "pi_abc", Amount: decimal.NewFromInt(40), PaidAt: time.Now()}
	require.NoError(t, store.ApplyPayment(ctx, itemID, entry))
	require.ErrorIs(t, store.ApplyPayment(ctx, itemID, entry), ErrDuplicate)

	tx, err := store.Transaction(ctx, itemID)
	require.NoError(t, err)
	require.True(t, tx.PaidAmount.Equal(decimal.NewFromInt(40)))
	require.Len(t, tx.PaymentHistory, 1)
}

func TestApplyPaymentAfterCompletion(t *testing.T) {
	store, itemID := memItem(t)
	ctx := context.Background()

	require.NoError(t, store.InitTransaction(ctx, itemID, model.Transaction{
		Status:      model.TxStatusPending,
		FinalAmount: decimal.NewFromInt(90),
	}))
	require.NoError(t, store.ApplyPayment(ctx, itemID,
		model.PaymentEntry{PaymentRef: "pi_one", Amount: decimal.NewFromInt(90), PaidAt: time.Now()}))

	flipped, err := store.CompleteTransaction(ctx, itemID, time.Now())
	require.NoError(t, err)
	require.True(t, flipped)

	// A confirmation losing the race against the completion flip must
	// not touch the completed transaction.
	err = store.ApplyPayment(ctx, itemID,
		model.PaymentEntry{PaymentRef: "pi_two", Amount: decimal.NewFromInt(10), PaidAt: time.Now()})
	require.ErrorIs(t, err, ErrConflict)

	tx, err := store.Transaction(ctx, itemID)
	require.NoError(t, err)
	require.True(t, tx.PaidAmount.Equal(decimal.NewFromInt(90)))
	require.Len(t, tx.PaymentHistory, 1)
}

func TestCompleteTransactionFlipsOnce(t *testing.T) {
	store, itemID := memItem(t)
	ctx := context.Background()

	require.NoError(t, store.InitTransaction(ctx, itemID, model.Transaction{
		Status: model.TxStatusPending,
	}))

	flipped, err := store.CompleteTransaction(ctx, itemID, time.Now())
	require.NoError(t, err)
	require.True(t, flipped)

	flipped, err = store.CompleteTransaction(ctx, itemID, time.Now())
	require.NoError(t, err)
	require.False(t, flipped)
}

func TestMarkRefundedFlipsOnce(t *testing.T) {
	store, itemID := memItem(t)
	ctx := context.Background()

	b := model.Bidder{UserID: 3, BidAmount: decimal.NewFromInt(150), BidTime: time.Now()}
	require.NoError(t, store.ApplyBid(ctx, itemID, decimal.NewFromInt(100), b))

	flipped, err := store.MarkRefunded(ctx, itemID, 3)
	require.NoError(t, err)
	require.True(t, flipped)

	flipped, err = store.MarkRefunded(ctx, itemID, 3)
	require.NoError(t, err)
	require.False(t, flipped)

	_, err = store.MarkRefunded(ctx, itemID, 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSlipUniquePerItemAndCode(t *testing.T) {
	store, itemID := memItem(t)
	ctx := context.Background()

	s := &model.Slip{ItemID: itemID, UserID: 1, Code: "4821", CreatedAt: time.Now()}
	require.NoError(t, store.CreateSlip(ctx, s))
	require.NotZero(t, s.ID)

	dupCode := &model.Slip{ItemID: 99, UserID: 2, Code: "4821"}
	require.ErrorIs(t, store.CreateSlip(ctx, dupCode), ErrDuplicate)

	dupItem := &model.Slip{ItemID: itemID, UserID: 1, Code: "9042"}
	require.ErrorIs(t, store.CreateSlip(ctx, dupItem), ErrDuplicate)

	found, err := store.FindSlipByCode(ctx, "4821")
	require.NoError(t, err)
	require.Equal(t, s.ID, found.ID)

	missing, err := store.FindSlipByCode(ctx, "1111")
	require.NoError(t, err)
	require.Nil(t, missing)
}
