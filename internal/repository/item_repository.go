package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratyushn/auction-house/internal/model"
)

// ItemRepo provides access to auction items and everything hanging off
// them: bidding tokens, the bidder roster, and the settlement
// transaction with its payment history.  Price advances and status
// flips use conditional updates and report lost races through
// ErrConflict or an affected-rows result, so the engine on top never
// needs row locks.
type ItemRepo struct{ DB *sql.DB }

func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{DB: db} }

const itemColumns = "id,category,title,description,base_price,current_price,bid_start_time,bid_end_time,bid_status,current_status,created_at,updated_at"

// CreateItem inserts an auction item.  The current price starts at the
// base price.
func (r *ItemRepo) CreateItem(ctx context.Context, item *model.Item) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO items (category, title, description, base_price, current_price,
		        bid_start_time, bid_end_time, bid_status, current_status)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		item.Category, item.Title, item.Description,
		item.BasePrice.String(), item.BasePrice.String(),
		item.BidStartTime, item.BidEndTime, item.BidStatus, item.CurrentStatus)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	item.ID = uint64(id)
	item.CurrentPrice = item.BasePrice
	return nil
}

// ListItems returns all items, newest first.
func (r *ItemRepo) ListItems(ctx context.Context) ([]model.Item, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM items ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// FindItem fetches one item by id.
func (r *ItemRepo) FindItem(ctx context.Context, itemID uint64) (*model.Item, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id=? LIMIT 1", itemID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

// FindToken fetches a bidding token by exact string match.
func (r *ItemRepo) FindToken(ctx context.Context, itemID uint64, token string) (*model.BiddingToken, error) {
	var t model.BiddingToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, token, expires_at, created_at FROM bidding_tokens WHERE item_id=? AND token=? LIMIT 1",
		itemID, token).Scan(&t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// HasToken reports whether the user already holds a token for the item.
func (r *ItemRepo) HasToken(ctx context.Context, itemID, userID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM bidding_tokens WHERE item_id=? AND user_id=? LIMIT 1",
		itemID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddToken inserts a bidding token.  One token per user per item; a
// second insert fails with ErrDuplicate.
func (r *ItemRepo) AddToken(ctx context.Context, itemID uint64, tok model.BiddingToken) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO bidding_tokens (item_id, user_id, token, expires_at, created_at) VALUES (?,?,?,?,?)",
		itemID, tok.UserID, tok.Token, tok.ExpiresAt, tok.CreatedAt)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrDuplicate
	}
	return err
}

// ApplyBid advances the item price and upserts the bidder row in one
// transaction.  The price update is conditional on the price the caller
// last saw; when another bid got there first no row matches, the
// transaction rolls back and ErrConflict tells the caller to re-read.
func (r *ItemRepo) ApplyBid(ctx context.Context, itemID uint64, prevPrice decimal.Decimal, b model.Bidder) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE items SET current_price=?, updated_at=NOW() WHERE id=? AND current_price=?",
		b.BidAmount.String(), itemID, prevPrice.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bidders (item_id, user_id, bid_amount, bid_time)
		 VALUES (?,?,?,?)
		 ON DUPLICATE KEY UPDATE bid_amount=VALUES(bid_amount), bid_time=VALUES(bid_time)`,
		itemID, b.UserID, b.BidAmount.String(), b.BidTime)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Bidders returns the item's bidder roster in first-bid order, with the
// name and email joined in from users.
func (r *ItemRepo) Bidders(ctx context.Context, itemID uint64) ([]model.Bidder, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT b.user_id, u.name, u.email, b.bid_amount, b.bid_time, b.refunded
		 FROM bidders b JOIN users u ON u.id = b.user_id
		 WHERE b.item_id=? ORDER BY b.id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bidders []model.Bidder
	for rows.Next() {
		var (
			b      model.Bidder
			amount string
		)
		if err := rows.Scan(&b.UserID, &b.Name, &b.Email, &amount, &b.BidTime, &b.Refunded); err != nil {
			return nil, err
		}
		if b.BidAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		bidders = append(bidders, b)
	}
	return bidders, rows.Err()
}

// InitTransaction creates the settlement row for an item.  Items have
// at most one; a second insert fails with ErrConflict.
func (r *ItemRepo) InitTransaction(ctx context.Context, itemID uint64, t model.Transaction) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO transactions (item_id, status, final_amount, paid_amount) VALUES (?,?,?,0)",
		itemID, t.Status, t.FinalAmount.String())
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrConflict
	}
	return err
}

// Transaction fetches the settlement row and its payment history.
// Returns (nil, nil) when the item has no settlement yet.
func (r *ItemRepo) Transaction(ctx context.Context, itemID uint64) (*model.Transaction, error) {
	var (
		t           model.Transaction
		finalAmount string
		paidAmount  string
		completedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT status, final_amount, paid_amount, completed_at FROM transactions WHERE item_id=? LIMIT 1",
		itemID).Scan(&t.Status, &finalAmount, &paidAmount, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.FinalAmount, err = decimal.NewFromString(finalAmount); err != nil {
		return nil, err
	}
	if t.PaidAmount, err = decimal.NewFromString(paidAmount); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		at := completedAt.Time
		t.CompletedAt = &at
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT amount, payment_ref, paid_at FROM payment_history WHERE item_id=? ORDER BY id", itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			entry  model.PaymentEntry
			amount string
		)
		if err := rows.Scan(&amount, &entry.PaymentRef, &entry.PaidAt); err != nil {
			return nil, err
		}
		if entry.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		t.PaymentHistory = append(t.PaymentHistory, entry)
	}
	return &t, rows.Err()
}

// ApplyPayment appends one history entry and bumps the paid total in
// the same transaction.  The payment reference column is unique, so a
// replayed confirmation fails with ErrDuplicate before any totals move.
// A completed settlement takes no further payments; a confirmation that
// loses the race against the completion flip fails with ErrConflict and
// nothing is recorded.
func (r *ItemRepo) ApplyPayment(ctx context.Context, itemID uint64, entry model.PaymentEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO payment_history (item_id, amount, payment_ref, paid_at) VALUES (?,?,?,?)",
		itemID, entry.Amount.String(), entry.PaymentRef, entry.PaidAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicate
		}
		return err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE transactions SET paid_amount = paid_amount + ? WHERE item_id=? AND status=?",
		entry.Amount.String(), itemID, model.TxStatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return tx.Commit()
}

// CompleteTransaction flips a pending settlement to completed and
// reports whether this call performed the flip.
func (r *ItemRepo) CompleteTransaction(ctx context.Context, itemID uint64, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE transactions SET status=?, completed_at=? WHERE item_id=? AND status=?",
		model.TxStatusCompleted, at, itemID, model.TxStatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkRefunded flips a bidder's refunded flag and reports whether this
// call performed the flip.
func (r *ItemRepo) MarkRefunded(ctx context.Context, itemID, userID uint64) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bidders SET refunded=1 WHERE item_id=? AND user_id=? AND refunded=0",
		itemID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetItemStatus updates the item's lifecycle status.
func (r *ItemRepo) SetItemStatus(ctx context.Context, itemID uint64, status string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE items SET current_status=?, updated_at=NOW() WHERE id=?", status, itemID)
	return err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanItem(row rowScanner) (*model.Item, error) {
	var (
		item         model.Item
		basePrice    string
		currentPrice string
	)
	err := row.Scan(&item.ID, &item.Category, &item.Title, &item.Description,
		&basePrice, &currentPrice, &item.BidStartTime, &item.BidEndTime,
		&item.BidStatus, &item.CurrentStatus, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if item.BasePrice, err = decimal.NewFromString(basePrice); err != nil {
		return nil, err
	}
	if item.CurrentPrice, err = decimal.NewFromString(currentPrice); err != nil {
		return nil, err
	}
	return &item, nil
}
