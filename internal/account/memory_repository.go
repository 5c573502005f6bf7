package account

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Account
	byIC   map[string]int64
	email  map[string]int64
	phone  map[string]int64
}

// NewMemoryRepository builds an in-memory account store for tests and
// local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:  make(map[int64]Account),
		byIC:  make(map[string]int64),
		email: make(map[string]int64),
		phone: make(map[string]int64),
	}
}

func (r *memoryRepository) ICNumberExists(_ context.Context, icNumber string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byIC[icNumber]
	return ok, nil
}

func (r *memoryRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.email[email]
	return ok, nil
}

func (r *memoryRepository) PhoneExists(_ context.Context, phone string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.phone[phone]
	return ok, nil
}

func (r *memoryRepository) Add(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byIC[account.ICNumber]; taken {
		return ErrDuplicate
	}
	if _, taken := r.email[account.Email]; taken {
		return ErrDuplicate
	}
	if _, taken := r.phone[account.PhoneNumber]; taken {
		return ErrDuplicate
	}

	r.nextID++
	now := time.Now().UTC()
	account.ID = r.nextID
	account.CreatedAt = now
	account.UpdatedAt = now

	r.byID[account.ID] = *account
	r.byIC[account.ICNumber] = account.ID
	r.email[account.Email] = account.ID
	r.phone[account.PhoneNumber] = account.ID
	return nil
}

func (r *memoryRepository) GetByICNumber(_ context.Context, icNumber string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byIC[icNumber]
	if !ok {
		return Account{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *memoryRepository) Update(_ context.Context, account Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[account.ID]
	if !ok {
		return ErrNotFound
	}
	account.ICNumber = stored.ICNumber
	account.Email = stored.Email
	account.PhoneNumber = stored.PhoneNumber
	account.CreatedAt = stored.CreatedAt
	account.UpdatedAt = time.Now().UTC()
	r.byID[account.ID] = account
	return nil
}
