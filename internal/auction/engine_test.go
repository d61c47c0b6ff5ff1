package auction

import (
	"context"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pratyushn/auction-house/internal/model"
	"github.com/pratyushn/auction-house/internal/payment"
	"github.com/pratyushn/auction-house/internal/repository"
)

type testEnv struct {
	engine  *Engine
	store   *repository.MemoryStore
	gateway *payment.Fake
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	gw := payment.NewFake()
	gw.AutoSucceed = true
	eng := New(store, store, store, gw, nil, DefaultConfig())
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return now }
	return &testEnv{engine: eng, store: store, gateway: gw, now: now}
}

func (env *testEnv) seedItem(t *testing.T, id uint64, base, current float64) {
	t.Helper()
	env.store.SeedItem(model.Item{
		ID:           id,
		Title:        "Vintage Clock",
		BasePrice:    decimal.NewFromFloat(base),
		CurrentPrice: decimal.NewFromFloat(current),
		BidStartTime: env.now.Add(-time.Hour),
		BidEndTime:   env.now.Add(time.Hour),
		BidStatus:    model.BidStatusActive,
	})
}

func (env *testEnv) seedUser(t *testing.T, name, email, role string) uint64 {
	t.Helper()
	return env.store.SeedUser(model.User{
		Name:          name,
		Email:         email,
		Role:          role,
		WalletBalance: decimal.Zero,
		IsActive:      true,
	})
}

func (env *testEnv) issueToken(t *testing.T, itemID uint64, email string) string {
	t.Helper()
	quote, err := env.engine.RequestToken(context.Background(), itemID, email)
	require.NoError(t, err)
	token, err := env.engine.ConfirmDeposit(context.Background(), quote.PaymentRef)
	require.NoError(t, err)
	return token
}

func TestTokenIssuance(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Operator", "op@auction.test", model.RoleAdmin)
	env.seedItem(t, 1, 1000, 1000)
	env.seedUser(t, "Alice", "alice@test.dev", model.RoleBidder)

	quote, err := env.engine.RequestToken(context.Background(), 1, "alice@test.dev")
	require.NoError(t, err)
	require.True(t, quote.DepositAmount.Equal(decimal.NewFromInt(100)), "deposit is one tenth of the base price")
	require.NotEmpty(t, quote.PaymentRef)
	require.NotEmpty(t, quote.ClientSecret)

	token, err := env.engine.ConfirmDeposit(context.Background(), quote.PaymentRef)
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^[0-9A-F]{8}$`), token)

	require.NoError(t, env.engine.ValidateToken(context.Background(), 1, token, "alice@test.dev"))

	// Deposit lands in the operator wallet.
	op, err := env.store.FindUserByEmail(context.Background(), "op@auction.test")
	require.NoError(t, err)
	require.True(t, op.WalletBalance.Equal(decimal.NewFromInt(100)))
}

func TestTokenDuplicateRequest(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Operator", "op@auction.test", model.RoleAdmin)
	env.seedItem(t, 1, 1000, 1000)
	env.seedUser(t, "Alice", "alice@test.dev", model.RoleBidder)

	env.issueToken(t, 1, "alice@test.dev")

	_, err := env.engine.RequestToken(context.Background(), 1, "alice@test.dev")
	require.ErrorIs(t, err, ErrDuplicateToken)
}

func TestTokenOwnershipAndExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Operator", "op@auction.test", model.RoleAdmin)
	env.seedItem(t, 1, 1000, 1000)
	env.seedUser(t, "Alice", "alice@test.dev", model.RoleBidder)
	env.seedUser(t, "Bob", "bob@test.dev", model.RoleBidder)

	token := env.issueToken(t, 1, "alice@test.dev")

	err := env.engine.ValidateToken(context.Background(), 1, token, "bob@test.dev")
	require.ErrorIs(t, err, ErrTokenMismatch)

	err = env.engine.ValidateToken(context.Background(), 1, "DEADBEEF", "alice@test.dev")
	require.ErrorIs(t, err, ErrNotFound)

	// Advance past the item's bid end time; the token is checked at use.
	env.engine.now = func() time.Time { return env.now.Add(2 * time.Hour) }
	err = env.engine.ValidateToken(context.Background(), 1, token, "alice@test.dev")
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestConfirmDepositAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Operator", "op@auction.test", model.RoleAdmin)
	env.seedItem(t, 1, 1000, 1000)
	id := env.seedUser(t, "Alice", "alice@test.dev", model.RoleBidder)

	// An intent for the wrong amount must not mint a token.
	intent, err := env.gateway.CreateIntent(context.Background(), 5000, "inr",
		map[string]string{"userId": strconv.FormatUint(id, 10), "itemId": "1", "purpose": purposeDeposit},
		"short deposit")
	require.NoError(t, err)

	_, err = env.engine.ConfirmDeposit(context.Background(), intent.Ref)
	require.ErrorIs(t, err, ErrExternalPayment)
}

func TestPlaceBidMonotonic(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Operator", "op@auction.test", model.RoleAdmin)
	env.seedItem(t, 1, 1000, 1000)
	env.seedUser(t, "Alice", "alice@test.dev", model.RoleBidder)
	token := env.issueToken(t, 1, "alice@test.dev")

	price, err := env.engine.PlaceBid(context.Background(), 1, token, "alice@test.dev", decimal.NewFromInt(1100))
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(1100)))

	// Equal to current price is rejected, and the price stays put.
	_, err = env.engine.PlaceBid(context.Background(), 1, token, "alice@test.dev", decimal.NewFromInt(1100))
	require.ErrorIs(t, err, ErrBidTooLow)

	_, err = env.engine.PlaceBid(context.Background(), 1, token, "alice@test.dev", decimal.NewFromInt(900))
	require.ErrorIs(t, err, ErrBidTooLow)

	item, err := env.store.FindItem(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, item.CurrentPrice.Equal(decimal.NewFromInt(1100)))

	bidders, err := env.store.Bidders(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, bidders, 1)
}

func TestPlaceBidRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Operator", "op@auction.test", model.RoleAdmin)
	env.seedItem(t, 1, 1000, 1000)
	env.seedUser(t, "Alice", "alice@test.dev", model.RoleBidder)

	_, err := env.engine.PlaceBid(context.Background(), 1, "CAFEBABE", "alice@test.dev", decimal.NewFromInt(1100))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentBidsSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "Operator", "op@auction.test", model.RoleAdmin)
	env.seedItem(t, 1, 1000, 1000)

	const n = 8
	tokens := make([]string, n)
	emails := make([]string, n)
	for i := 0; i < n; i++ {
		emails[i] = string(rune('a'+i)) + "@test.dev"
		env.seedUser(t, "Bidder", emails[i], model.RoleBidder)
		tokens[i] = env.issueToken(t, 1, emails[i])
	}

	// Everyone bids the same amount at once; exactly one can land on the
	// old baseline, the rest re-read and fail the strict-increase check.
	var wg sync.WaitGroup
	errs := make([]error, n)
	amount := decimal.NewFromInt(1500)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.engine.PlaceBid(context.Background(), 1, tokens[i], emails[i], amount)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrBidTooLow)
		}
	}
	require.Equal(t, 1, wins)

	item, err := env.store.FindItem(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, item.CurrentPrice.Equal(amount))
}

func TestPlanSteps(t *testing.T) {
	min := decimal.NewFromFloat(0.5)
	max := decimal.NewFromInt(1000)

	steps := PlanSteps(decimal.NewFromInt(1400), min, max)
	require.Len(t, steps, 2)
	require.True(t, steps[0].Equal(decimal.NewFromInt(1000)))
	require.True(t, steps[1].Equal(decimal.NewFromInt(400)))

	require.Empty(t, PlanSteps(decimal.Zero, min, max))

	// A sub-minimum total still settles in one step.
	steps = PlanSteps(decimal.NewFromFloat(0.25), min, max)
	require.Len(t, steps, 1)
	require.True(t, steps[0].Equal(decimal.NewFromFloat(0.25)))

	// Step amounts always sum to the total.
	total := decimal.NewFromFloat(2500.75)
	sum := decimal.Zero
	for _, s := range PlanSteps(total, min, max) {
		sum = sum.Add(s)
	}
	require.True(t, sum.Equal(total))
}

func settleTestEnv(t *testing.T) (*testEnv, string) {
	t.Helper()
	env := newTestEnv(t)
	env.engine.cfg.MaxStep = decimal.NewFromInt(1000)
	env.seedUser(t, "Operator", "op@auction.test", model.RoleAdmin)
	env.seedItem(t, 1, 1000, 1000)
	env.seedUser(t, "Alice", "alice@test.dev", model.RoleBidder)
	token := env.issueToken(t, 1, "alice@test.dev")
	_, err := env.engine.PlaceBid(context.Background(), 1, token, "alice@test.dev", decimal.NewFromInt(1500))
	require.NoError(t, err)
	return env, token
}

func TestSettlementStaged(t *testing.T) {
	env, _ := settleTestEnv(t)
	ctx := context.Background()

	// Final amount is the hammer price minus the 10% deposit.
	plan, err := env.engine.InitiateSettlement(ctx, 1, "alice@test.dev")
	require.NoError(t, err)
	require.True(t, plan.FinalAmount.Equal(decimal.NewFromInt(1400)))
	require.Len(t, plan.Amounts, 2)
	require.True(t, plan.Amounts[0].Equal(decimal.NewFromInt(1000)))
	require.True(t, plan.Amounts[1].Equal(decimal.NewFromInt(400)))
	require.NotNil(t, plan.FirstStep)
	require.False(t, plan.Completed)

	res, err := env.engine.ConfirmSettlementStep(ctx, 1, "alice@test.dev", plan.FirstStep.PaymentRef)
	require.NoError(t, err)
	require.False(t, res.Completed)
	require.True(t, res.Paid.Equal(decimal.NewFromInt(1000)))
	require.NotNil(t, res.NextStep)
	require.True(t, res.NextStep.Amount.Equal(decimal.NewFromInt(400)))

	res, err = env.engine.ConfirmSettlementStep(ctx, 1, "alice@test.dev", res.NextStep.PaymentRef)
	require.NoError(t, err)
	require.True(t, res.Completed)
	require.True(t, res.Paid.Equal(decimal.NewFromInt(1400)))
	require.Nil(t, res.NextStep)

	// Paid total always equals the sum of history entries.
	tx, err := env.store.Transaction(ctx, 1)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, entry := range tx.PaymentHistory {
		sum = sum.Add(entry.Amount)
	}
	require.True(t, tx.PaidAmount.Equal(sum))
	require.Equal(t, model.TxStatusCompleted, tx.Status)
	require.NotNil(t, tx.CompletedAt)

	// Operator got the deposit at token time plus the settled balance.
	op, err := env.store.FindUserByEmail(ctx, "op@auction.test")
	require.NoError(t, err)
	require.True(t, op.WalletBalance.Equal(decimal.NewFromInt(1500)))

	_, err = env.engine.InitiateSettlement(ctx, 1, "alice@test.dev")
	require.ErrorIs(t, err, ErrAlreadySettled)
}

func TestSettlementResumesPending(t *testing.T) {
	env, _ := settleTestEnv(t)
	ctx := context.Background()

	plan, err := env.engine.InitiateSettlement(ctx, 1, "alice@test.dev")
	require.NoError(t, err)
	_, err = env.engine.ConfirmSettlementStep(ctx, 1, "alice@test.dev", plan.FirstStep.PaymentRef)
	require.NoError(t, err)

	// Re-initiating re-plans from the remaining balance and keeps the
	// history intact.
	plan, err = env.engine.InitiateSettlement(ctx, 1, "alice@test.dev")
	require.NoError(t, err)
	require.True(t, plan.FinalAmount.Equal(decimal.NewFromInt(1400)))
	require.Len(t, plan.Amounts, 1)
	require.True(t, plan.Amounts[0].Equal(decimal.NewFromInt(400)))

	tx, err := env.store.Transaction(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tx.PaymentHistory, 1)
	require.True(t, tx.PaidAmount.Equal(decimal.NewFromInt(1000)))
}

func TestSettlementDuplicatePaymentRef(t *testing.T) {
	env, _ := settleTestEnv(t)
	ctx := context.Background()

	plan, err := env.engine.InitiateSettlement(ctx, 1, "alice@test.dev")
	require.NoError(t, err)
	_, err = env.engine.ConfirmSettlementStep(ctx, 1, "alice@test.dev", plan.FirstStep.PaymentRef)
	require.NoError(t, err)

	_, err = env.engine.ConfirmSettlementStep(ctx, 1, "alice@test.dev", plan.FirstStep.PaymentRef)
	require.ErrorIs(t, err, ErrExternalPayment)

	tx, err := env.store.Transaction(ctx, 1)
	require.NoError(t, err)
	require.True(t, tx.PaidAmount.Equal(decimal.NewFromInt(1000)), "replayed confirmation must not double-count")
}

func TestSettlementOnlyWinner(t *testing.T) {
	env, _ := settleTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "Bob", "bob@test.dev", model.RoleBidder)
	token := env.issueToken(t, 1, "bob@test.dev")
	_, err := env.engine.PlaceBid(ctx, 1, token, "bob@test.dev", decimal.NewFromInt(1200))
	require.ErrorIs(t, err, ErrBidTooLow)

	_, err = env.engine.InitiateSettlement(ctx, 1, "bob@test.dev")
	require.ErrorIs(t, err, ErrNotWinner)
}

func settleFully(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	plan, err := env.engine.InitiateSettlement(ctx, 1, "alice@test.dev")
	require.NoError(t, err)
	step := plan.FirstStep
	for step != nil {
		res, err := env.engine.ConfirmSettlementStep(ctx, 1, "alice@test.dev", step.PaymentRef)
		require.NoError(t, err)
		step = res.NextStep
	}
}

func TestSlipGeneration(t *testing.T) {
	env, _ := settleTestEnv(t)
	ctx := context.Background()

	// No slip before the settlement completes.
	_, _, err := env.engine.GenerateSlip(ctx, 1, "alice@test.dev")
	require.ErrorIs(t, err, ErrNotFound)

	settleFully(t, env)

	slip, existed, err := env.engine.GenerateSlip(ctx, 1, "alice@test.dev")
	require.NoError(t, err)
	require.False(t, existed)
	require.Regexp(t, regexp.MustCompile(`^[1-9][0-9]{3}$`), slip.Code)

	again, existed, err := env.engine.GenerateSlip(ctx, 1, "alice@test.dev")
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, slip.Code, again.Code)
}

func TestSlipCodeCollisionRedraws(t *testing.T) {
	env, _ := settleTestEnv(t)
	ctx := context.Background()
	settleFully(t, env)

	// Another item already holds this code; the first draws collide and
	// the engine must redraw until the insert lands.
	require.NoError(t, env.store.CreateSlip(ctx, &model.Slip{ItemID: 99, UserID: 2, Code: "4821"}))
	codes := []string{"4821", "4821", "7351"}
	env.engine.newSlipCode = func() (string, error) {
		code := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return code, nil
	}

	slip, existed, err := env.engine.GenerateSlip(ctx, 1, "alice@test.dev")
	require.NoError(t, err)
	require.False(t, existed)
	require.Equal(t, "7351", slip.Code)
}

func TestSlipCodeCollisionBounded(t *testing.T) {
	env, _ := settleTestEnv(t)
	ctx := context.Background()
	settleFully(t, env)

	require.NoError(t, env.store.CreateSlip(ctx, &model.Slip{ItemID: 99, UserID: 2, Code: "4821"}))
	draws := 0
	env.engine.newSlipCode = func() (string, error) {
		draws++
		return "4821", nil
	}

	_, _, err := env.engine.GenerateSlip(ctx, 1, "alice@test.dev")
	require.ErrorIs(t, err, repository.ErrDuplicate)
	require.Equal(t, slipCodeRetries, draws)
}

func TestSettlementRejectsForeignIntent(t *testing.T) {
	env := newTestEnv(t)
	env.engine.cfg.MaxStep = decimal.NewFromInt(1000)
	env.seedUser(t, "Operator", "op@auction.test", model.RoleAdmin)
	env.seedItem(t, 1, 1000, 1000)
	env.seedUser(t, "Alice", "alice@test.dev", model.RoleBidder)
	ctx := context.Background()

	quote, err := env.engine.RequestToken(ctx, 1, "alice@test.dev")
	require.NoError(t, err)
	token, err := env.engine.ConfirmDeposit(ctx, quote.PaymentRef)
	require.NoError(t, err)
	_, err = env.engine.PlaceBid(ctx, 1, token, "alice@test.dev", decimal.NewFromInt(1500))
	require.NoError(t, err)

	plan, err := env.engine.InitiateSettlement(ctx, 1, "alice@test.dev")
	require.NoError(t, err)

	// The succeeded deposit intent must not count toward the balance.
	_, err = env.engine.ConfirmSettlementStep(ctx, 1, "alice@test.dev", quote.PaymentRef)
	require.ErrorIs(t, err, ErrExternalPayment)

	// Nor may a step intent minted for another item's settlement.
	env.seedItem(t, 2, 1000, 1000)
	env.seedUser(t, "Bob", "bob@test.dev", model.RoleBidder)
	other := env.issueToken(t, 2, "bob@test.dev")
	_, err = env.engine.PlaceBid(ctx, 2, other, "bob@test.dev", decimal.NewFromInt(1200))
	require.NoError(t, err)
	otherPlan, err := env.engine.InitiateSettlement(ctx, 2, "bob@test.dev")
	require.NoError(t, err)
	_, err = env.engine.ConfirmSettlementStep(ctx, 1, "alice@test.dev", otherPlan.FirstStep.PaymentRef)
	require.ErrorIs(t, err, ErrExternalPayment)

	// And the converse: a settlement step intent cannot mint a token.
	_, err = env.engine.ConfirmDeposit(ctx, plan.FirstStep.PaymentRef)
	require.ErrorIs(t, err, ErrExternalPayment)

	tx, err := env.store.Transaction(ctx, 1)
	require.NoError(t, err)
	require.True(t, tx.PaidAmount.IsZero(), "foreign intents must not shrink the balance")
}

func refundTestEnv(t *testing.T) (*testEnv, string) {
	t.Helper()
	env := newTestEnv(t)
	env.seedUser(t, "Operator", "op@auction.test", model.RoleAdmin)
	env.store.SeedItem(model.Item{
		ID:           1,
		Title:        "Painting",
		BasePrice:    decimal.NewFromInt(500),
		CurrentPrice: decimal.NewFromInt(500),
		BidStartTime: env.now.Add(-time.Hour),
		BidEndTime:   env.now.Add(time.Hour),
		BidStatus:    model.BidStatusActive,
	})
	ctx := context.Background()
	for _, tc := range []struct {
		email  string
		amount int64
	}{
		{"carol@test.dev", 560}, {"bob@test.dev", 580}, {"alice@test.dev", 600},
	} {
		env.seedUser(t, "Bidder", tc.email, model.RoleBidder)
		token := env.issueToken(t, 1, tc.email)
		_, err := env.engine.PlaceBid(ctx, 1, token, tc.email, decimal.NewFromInt(tc.amount))
		require.NoError(t, err)
	}
	settleFully(t, env)
	slip, _, err := env.engine.GenerateSlip(ctx, 1, "alice@test.dev")
	require.NoError(t, err)
	return env, slip.Code
}

func TestRefundFanOut(t *testing.T) {
	env, code := refundTestEnv(t)
	ctx := context.Background()

	summary, err := env.engine.ProcessRefund(ctx, code)
	require.NoError(t, err)
	require.Equal(t, 2, summary.RefundedCount)
	require.True(t, summary.PerBidder.Equal(decimal.NewFromInt(50)))
	require.True(t, summary.TotalRefunded.Equal(decimal.NewFromInt(100)))

	// Losers got their deposit back, the winner did not.
	for _, tc := range []struct {
		email   string
		balance int64
	}{
		{"bob@test.dev", 50}, {"carol@test.dev", 50}, {"alice@test.dev", 0},
	} {
		u, err := env.store.FindUserByEmail(ctx, tc.email)
		require.NoError(t, err)
		require.True(t, u.WalletBalance.Equal(decimal.NewFromInt(tc.balance)), "wallet of %s", tc.email)
	}

	item, err := env.store.FindItem(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, model.ItemStatusRefunded, item.CurrentStatus)
}

func TestRefundIdempotent(t *testing.T) {
	env, code := refundTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.ProcessRefund(ctx, code)
	require.NoError(t, err)

	opBefore, err := env.store.FindUserByEmail(ctx, "op@auction.test")
	require.NoError(t, err)

	// A rerun finds nothing left to refund and pays nobody twice.
	summary, err := env.engine.ProcessRefund(ctx, code)
	require.NoError(t, err)
	require.Equal(t, 0, summary.RefundedCount)
	require.True(t, summary.TotalRefunded.IsZero())

	opAfter, err := env.store.FindUserByEmail(ctx, "op@auction.test")
	require.NoError(t, err)
	require.True(t, opAfter.WalletBalance.Equal(opBefore.WalletBalance))

	bob, err := env.store.FindUserByEmail(ctx, "bob@test.dev")
	require.NoError(t, err)
	require.True(t, bob.WalletBalance.Equal(decimal.NewFromInt(50)))
}

func TestRefundUnknownSlip(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.ProcessRefund(context.Background(), "0000")
	require.ErrorIs(t, err, ErrNotFound)
}
