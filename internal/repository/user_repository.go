package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pratyushn/auction-house/internal/model"
	"github.com/pratyushn/auction-house/internal/utils"
)

// UserRepo provides access to the 'users' table.  Wallet balances are
// stored as DECIMAL and always adjusted in place with relative updates
// so concurrent settlements and refunds never clobber each other.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,role,auct_code,wallet_balance,is_active,created_at,updated_at"

// Create inserts a user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, name, email, password, role, auctCode string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, auct_code, wallet_balance) VALUES (?,?,?,?,?,0)",
		name, email, hash, role, auctCode)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FindUserByEmail fetches a user by normalized email.
func (r *UserRepo) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// FindUserByID fetches a user by id.
func (r *UserRepo) FindUserByID(ctx context.Context, id uint64) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// AdjustWallet applies a relative balance change to one user.
func (r *UserRepo) AdjustWallet(ctx context.Context, userID uint64, delta decimal.Decimal) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET wallet_balance = wallet_balance + ? WHERE id=?",
		delta.String(), userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustOperatorWallet applies a relative balance change to the house
// account.  The lowest-ID admin user is the operator.
func (r *UserRepo) AdjustOperatorWallet(ctx context.Context, delta decimal.Decimal) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET wallet_balance = wallet_balance + ? WHERE role=? ORDER BY id LIMIT 1",
		delta.String(), model.RoleAdmin)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u       model.User
		balance string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.AuctCode, &balance, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if u.WalletBalance, err = decimal.NewFromString(balance); err != nil {
		return nil, err
	}
	return &u, nil
}
