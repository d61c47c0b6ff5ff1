package repository

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pratyushn/auction-house/internal/model"
)

// MemoryStore is an in-process implementation of the auction storage
// interfaces.  It backs the engine tests and can run the server without
// a database; every mutation takes the store lock, and the conditional
// updates (price advance, completion flip, refunded flip) behave the
// same way the SQL repositories do.
type MemoryStore struct {
	mu sync.Mutex

	items  map[uint64]*itemRecord
	users  map[uint64]*model.User
	emails map[string]uint64

	slips       map[uint64]*model.Slip
	slipByCode  map[string]uint64
	slipByItem  map[uint64]uint64
	nextSlipID  uint64
	nextUserID  uint64
}

type itemRecord struct {
	item    model.Item
	tokens  []model.BiddingToken
	bidders []model.Bidder
	tx      *model.Transaction
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:      make(map[uint64]*itemRecord),
		users:      make(map[uint64]*model.User),
		emails:     make(map[string]uint64),
		slips:      make(map[uint64]*model.Slip),
		slipByCode: make(map[string]uint64),
		slipByItem: make(map[uint64]uint64),
		nextSlipID: 1,
		nextUserID: 1,
	}
}

// SeedItem inserts or replaces an item.
func (m *MemoryStore) SeedItem(item model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = &itemRecord{item: item}
}

// SeedUser inserts a user, assigning an ID when none is set, and
// returns the stored ID.
func (m *MemoryStore) SeedUser(u model.User) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.nextUserID
	}
	if u.ID >= m.nextUserID {
		m.nextUserID = u.ID + 1
	}
	stored := u
	m.users[u.ID] = &stored
	m.emails[u.Email] = u.ID
	return u.ID
}

func (m *MemoryStore) FindItem(ctx context.Context, itemID uint64) (*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	item := rec.item
	return &item, nil
}

func (m *MemoryStore) FindToken(ctx context.Context, itemID uint64, token string) (*model.BiddingToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range rec.tokens {
		if rec.tokens[i].Token == token {
			t := rec.tokens[i]
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) HasToken(ctx context.Context, itemID, userID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok {
		return false, ErrNotFound
	}
	for i := range rec.tokens {
		if rec.tokens[i].UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) AddToken(ctx context.Context, itemID uint64, tok model.BiddingToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok {
		return ErrNotFound
	}
	for i := range rec.tokens {
		if rec.tokens[i].UserID == tok.UserID {
			return ErrDuplicate
		}
	}
	rec.tokens = append(rec.tokens, tok)
	return nil
}

// ApplyBid advances the price only when it still equals prevPrice and
// upserts the bidder row in the same critical section.  A stale
// baseline fails with ErrConflict so the caller can re-read and retry.
func (m *MemoryStore) ApplyBid(ctx context.Context, itemID uint64, prevPrice decimal.Decimal, b model.Bidder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok {
		return ErrNotFound
	}
	if !rec.item.CurrentPrice.Equal(prevPrice) {
		return ErrConflict
	}
	rec.item.CurrentPrice = b.BidAmount
	rec.item.UpdatedAt = b.BidTime
	for i := range rec.bidders {
		if rec.bidders[i].UserID == b.UserID {
			rec.bidders[i].BidAmount = b.BidAmount
			rec.bidders[i].BidTime = b.BidTime
			return nil
		}
	}
	rec.bidders = append(rec.bidders, b)
	return nil
}

func (m *MemoryStore) Bidders(ctx context.Context, itemID uint64) ([]model.Bidder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]model.Bidder, len(rec.bidders))
	copy(out, rec.bidders)
	return out, nil
}

func (m *MemoryStore) InitTransaction(ctx context.Context, itemID uint64, tx model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok {
		return ErrNotFound
	}
	if rec.tx != nil {
		return ErrConflict
	}
	stored := tx
	rec.tx = &stored
	return nil
}

func (m *MemoryStore) Transaction(ctx context.Context, itemID uint64) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.tx == nil {
		return nil, nil
	}
	tx := *rec.tx
	tx.PaymentHistory = make([]model.PaymentEntry, len(rec.tx.PaymentHistory))
	copy(tx.PaymentHistory, rec.tx.PaymentHistory)
	return &tx, nil
}

// ApplyPayment appends a history entry and bumps the paid total.  The
// payment reference is unique per item; replays fail with ErrDuplicate.
// A transaction that already completed takes no further payments and
// fails with ErrConflict.
func (m *MemoryStore) ApplyPayment(ctx context.Context, itemID uint64, entry model.PaymentEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok || rec.tx == nil {
		return ErrNotFound
	}
	for i := range rec.tx.PaymentHistory {
		if rec.tx.PaymentHistory[i].PaymentRef == entry.PaymentRef {
			return ErrDuplicate
		}
	}
	if rec.tx.Status != model.TxStatusPending {
		return ErrConflict
	}
	rec.tx.PaymentHistory = append(rec.tx.PaymentHistory, entry)
	rec.tx.PaidAmount = rec.tx.PaidAmount.Add(entry.Amount)
	return nil
}

// CompleteTransaction flips a pending transaction to completed and
// reports whether this call performed the flip.
func (m *MemoryStore) CompleteTransaction(ctx context.Context, itemID uint64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok || rec.tx == nil {
		return false, ErrNotFound
	}
	if rec.tx.Status == model.TxStatusCompleted {
		return false, nil
	}
	rec.tx.Status = model.TxStatusCompleted
	completed := at
	rec.tx.CompletedAt = &completed
	return true, nil
}

// MarkRefunded flips a bidder's refunded flag and reports whether this
// call performed the flip.
func (m *MemoryStore) MarkRefunded(ctx context.Context, itemID, userID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok {
		return false, ErrNotFound
	}
	for i := range rec.bidders {
		if rec.bidders[i].UserID == userID {
			if rec.bidders[i].Refunded {
				return false, nil
			}
			rec.bidders[i].Refunded = true
			return true, nil
		}
	}
	return false, ErrNotFound
}

func (m *MemoryStore) SetItemStatus(ctx context.Context, itemID uint64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.items[itemID]
	if !ok {
		return ErrNotFound
	}
	rec.item.CurrentStatus = status
	return nil
}

func (m *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	u := *m.users[id]
	return &u, nil
}

func (m *MemoryStore) FindUserByID(ctx context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *MemoryStore) AdjustWallet(ctx context.Context, userID uint64, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.WalletBalance = u.WalletBalance.Add(delta)
	return nil
}

// AdjustOperatorWallet credits or debits the admin account.  The store
// treats the lowest-ID admin as the operator.
func (m *MemoryStore) AdjustOperatorWallet(ctx context.Context, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var op *model.User
	for _, u := range m.users {
		if u.Role != model.RoleAdmin {
			continue
		}
		if op == nil || u.ID < op.ID {
			op = u
		}
	}
	if op == nil {
		return ErrNotFound
	}
	op.WalletBalance = op.WalletBalance.Add(delta)
	return nil
}

func (m *MemoryStore) CreateSlip(ctx context.Context, s *model.Slip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slipByCode[s.Code]; ok {
		return ErrDuplicate
	}
	if _, ok := m.slipByItem[s.ItemID]; ok {
		return ErrDuplicate
	}
	s.ID = m.nextSlipID
	m.nextSlipID++
	stored := *s
	m.slips[s.ID] = &stored
	m.slipByCode[s.Code] = s.ID
	m.slipByItem[s.ItemID] = s.ID
	return nil
}

func (m *MemoryStore) FindSlipByCode(ctx context.Context, code string) (*model.Slip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.slipByCode[code]
	if !ok {
		return nil, nil
	}
	s := *m.slips[id]
	return &s, nil
}

func (m *MemoryStore) FindSlipByItem(ctx context.Context, itemID uint64) (*model.Slip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.slipByItem[itemID]
	if !ok {
		return nil, nil
	}
	s := *m.slips[id]
	return &s, nil
}
