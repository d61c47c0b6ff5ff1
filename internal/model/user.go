package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Application roles.  ADMIN is the auction operator: deposits and final
// settlements credit the admin's wallet and refunds debit it.  BIDDER is
// a regular participant.
const (
	RoleAdmin  = "ADMIN"
	RoleBidder = "BIDDER"
)

// User represents an application user record as stored in the `users`
// table.  The wallet balance is a ledger-visible decimal amount:
// bidders accumulate refunded deposits there and the operator
// accumulates deposits and settled final amounts.
//
// Fields:
//  ID            – primary key identifier of the user.
//  Name          – display name, shown on the bidder roster.
//  Email         – unique email address.
//  PasswordHash  – bcrypt hashed password.
//  Role          – ADMIN or BIDDER.
//  AuctCode      – short auction-house member code printed on receipts.
//  WalletBalance – current wallet balance.
//  IsActive      – whether the account is active.
//  CreatedAt     – timestamp of creation.
//  UpdatedAt     – timestamp of last update.
type User struct {
	ID            uint64          // users.id
	Name          string          // users.name
	Email         string          // users.email
	PasswordHash  string          // users.password_hash
	Role          string          // users.role
	AuctCode      string          // users.auct_code
	WalletBalance decimal.Decimal // users.wallet_balance
	IsActive      bool            // users.is_active
	CreatedAt     time.Time       // users.created_at
	UpdatedAt     time.Time       // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user; only the SHA-256 hash of the raw
// token value is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
