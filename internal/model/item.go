package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid lifecycle states for an item.  An item moves from none ->
// upcoming -> active -> ended as its bidding window is scheduled,
// opened and closed by the operator.
const (
	BidStatusNone     = "none"
	BidStatusUpcoming = "upcoming"
	BidStatusActive   = "active"
	BidStatusEnded    = "ended"
)

// Settlement transaction states.  A transaction is created in the
// pending state when the winner initiates settlement and flips to
// completed exactly once, when the paid amount covers the final amount.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
)

// ItemStatusRefunded is the terminal item status set by the refund
// distributor after losing bidders' deposits have been returned.  It is
// distinct from a completed transaction: a completed transaction records
// that the winner has paid, while a refunded item records that the
// losers have been made whole.
const ItemStatusRefunded = "refunded"

// Item represents one auction lot as stored in the `items` table.
// The embedded collections (tokens, bidders, transaction) are owned
// exclusively by the item; no other entity mutates them directly.
//
// Fields:
//  ID            – primary key identifier of the item.
//  Category      – catalog category name (free-form, schema out of scope).
//  Title         – display title of the lot.
//  Description   – longer description text.
//  BasePrice     – starting price; the bidding-token deposit is 10% of it.
//  CurrentPrice  – highest accepted bid so far; non-decreasing for the
//                  lifetime of the item and equal to the last accepted bid.
//  BidStartTime  – when the bidding window opens.
//  BidEndTime    – when the bidding window closes; also the expiry of
//                  every bidding token issued for this item.
//  BidStatus     – none | upcoming | active | ended.
//  CurrentStatus – operator-visible status; becomes "refunded" after the
//                  refund distributor has run.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type Item struct {
	ID            uint64          // items.id
	Category      string          // items.category
	Title         string          // items.title
	Description   string          // items.description
	BasePrice     decimal.Decimal // items.base_price
	CurrentPrice  decimal.Decimal // items.current_price
	BidStartTime  time.Time       // items.bid_start_time
	BidEndTime    time.Time       // items.bid_end_time
	BidStatus     string          // items.bid_status
	CurrentStatus string          // items.current_status
	CreatedAt     time.Time       // items.created_at
	UpdatedAt     time.Time       // items.updated_at
}

// BiddingToken is a participation credential for one (item, user) pair.
// At most one token exists per user per item; tokens are never mutated
// after insertion and never deleted (kept for audit).  Expiry is checked
// at use time, not at issuance.
type BiddingToken struct {
	UserID    uint64    // bidding_tokens.user_id
	Token     string    // bidding_tokens.token (8 uppercase hex chars)
	ExpiresAt time.Time // bidding_tokens.expires_at (= item.bid_end_time at issuance)
	CreatedAt time.Time // bidding_tokens.created_at
}

// Bidder is one user's standing bid on an item.  A user has at most one
// row per item: placing a new bid overwrites BidAmount and BidTime in
// place rather than appending a second entry.  Rows are kept in arrival
// order of the first bid.
type Bidder struct {
	UserID    uint64          // bidders.user_id
	Name      string          // users.name (joined at read time)
	Email     string          // users.email
	BidAmount decimal.Decimal // bidders.bid_amount
	BidTime   time.Time       // bidders.bid_time
	Refunded  bool            // bidders.refunded (flips false->true at most once)
}

// PaymentEntry is one confirmed settlement charge.  The history is
// append-only and the sum of its amounts always equals the transaction's
// PaidAmount.
type PaymentEntry struct {
	Amount     decimal.Decimal // payment_history.amount
	PaymentRef string          // payment_history.payment_ref (processor-side id, unique)
	PaidAt     time.Time       // payment_history.paid_at
}

// Transaction is the staged settlement record embedded 1:1 in an item.
// FinalAmount is the winning bid minus the deposit already paid.
// PaidAmount is monotonically increasing and stays <= FinalAmount until
// completion, at which point PaidAmount >= FinalAmount (the processor
// rounds to minor units, which can leave a small surplus).
type Transaction struct {
	Status         string          // transactions.status (pending | completed)
	FinalAmount    decimal.Decimal // transactions.final_amount
	PaidAmount     decimal.Decimal // transactions.paid_amount
	CompletedAt    *time.Time      // transactions.completed_at (nullable, set once)
	PaymentHistory []PaymentEntry  // payment_history rows, ordered by insertion
}
