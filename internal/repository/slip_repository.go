package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/pratyushn/auction-house/internal/model"
)

// SlipRepo provides access to receipt slips.  Both the slip code and
// the item are unique columns, so at most one slip ever exists per item
// and codes never collide.
type SlipRepo struct{ DB *sql.DB }

func NewSlipRepo(db *sql.DB) *SlipRepo { return &SlipRepo{DB: db} }

// CreateSlip inserts a slip and populates its generated ID.
func (r *SlipRepo) CreateSlip(ctx context.Context, s *model.Slip) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO slips (item_id, user_id, code, created_at) VALUES (?,?,?,?)",
		s.ItemID, s.UserID, s.Code, s.CreatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// FindSlipByCode fetches a slip by its 4-digit code.  Returns (nil, nil)
// when no slip has that code.
func (r *SlipRepo) FindSlipByCode(ctx context.Context, code string) (*model.Slip, error) {
	return r.findSlip(ctx, "code=?", code)
}

// FindSlipByItem fetches the item's slip.  Returns (nil, nil) when the
// item has none.
func (r *SlipRepo) FindSlipByItem(ctx context.Context, itemID uint64) (*model.Slip, error) {
	return r.findSlip(ctx, "item_id=?", itemID)
}

func (r *SlipRepo) findSlip(ctx context.Context, where string, arg any) (*model.Slip, error) {
	var s model.Slip
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, item_id, user_id, code, created_at FROM slips WHERE "+where+" LIMIT 1",
		arg).Scan(&s.ID, &s.ItemID, &s.UserID, &s.Code, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
