package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
)

// MemoryAccounts is an in-process AccountStore. RunInTx serializes callers,
// which gives Register the check-and-insert critical section a database would
// get from its unique constraint.
type MemoryAccounts struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	byID map[uuid.UUID]*accounts.UserAccount
}

var _ accounts.AccountStore = (*MemoryAccounts)(nil)

// NewMemoryAccounts returns an empty store
func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{
		byID: map[uuid.UUID]*accounts.UserAccount{},
	}
}

// memoryTx is the store handed to RunInTx callbacks, it already holds txMu
type memoryTx struct {
	*MemoryAccounts
}

func (t memoryTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store accounts.AccountStore) error) error {
	return fn(ctx, t)
}

func (m *MemoryAccounts) RunInTx(ctx context.Context, fn func(ctx context.Context, store accounts.AccountStore) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	return fn(ctx, memoryTx{m})
}

func (m *MemoryAccounts) LoadByEmailWithExternal(_ context.Context, email string) (*accounts.UserAccount, error) {
	email = accounts.NormalizeEmail(email)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, account := range m.byID {
		if account.Email == email {
			return cloneAccount(account), nil
		}
	}
	return nil, fmt.Errorf("load account by email: %w", accounts.ErrAccountNotFound)
}

func (m *MemoryAccounts) LoadByVerificationKey(_ context.Context, key string) (*accounts.UserAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if key != "" {
		for _, account := range m.byID {
			if account.Verification.Key == key {
				return cloneAccount(account), nil
			}
		}
	}
	return nil, fmt.Errorf("load account by verification key: %w", accounts.ErrAccountNotFound)
}

func (m *MemoryAccounts) Create(_ context.Context, account *accounts.UserAccount) (*accounts.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	if _, ok := m.byID[account.ID]; ok {
		return nil, fmt.Errorf("create account %s: %w", account.ID, accounts.ErrAccountConflict)
	}
	for _, existing := range m.byID {
		if existing.Email == account.Email {
			return nil, fmt.Errorf("create account %s: %w", account.Email, accounts.ErrAccountConflict)
		}
	}

	stored := cloneAccount(account)
	for _, ext := range stored.Accounts {
		ext.UserAccountID = stored.ID
	}
	for _, claim := range stored.Claims {
		claim.UserAccountID = stored.ID
	}
	m.byID[stored.ID] = stored

	return cloneAccount(stored), nil
}

func (m *MemoryAccounts) Update(_ context.Context, account *accounts.UserAccount) (*accounts.UserAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byID[account.ID]
	if !ok {
		return nil, fmt.Errorf("update account %s: %w", account.ID, accounts.ErrAccountNotFound)
	}

	for id, existing := range m.byID {
		if id != account.ID && existing.Email == account.Email {
			return nil, fmt.Errorf("update account %s: %w", account.ID, accounts.ErrAccountConflict)
		}
	}

	stored := cloneAccount(account)
	// links and claims are not written through Update
	stored.Accounts = current.Accounts
	stored.Claims = current.Claims
	stored.CreatedAt = current.CreatedAt
	m.byID[account.ID] = stored

	return cloneAccount(stored), nil
}

func (m *MemoryAccounts) DeleteByID(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[id]; !ok {
		return fmt.Errorf("delete account %s: %w", id, accounts.ErrAccountNotFound)
	}
	delete(m.byID, id)
	return nil
}

// LinkExternalAccount attaches a provider identity to an existing account
func (m *MemoryAccounts) LinkExternalAccount(_ context.Context, ext *accounts.ExternalAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.byID[ext.UserAccountID]
	if !ok {
		return fmt.Errorf("link external account: %w", accounts.ErrAccountNotFound)
	}

	for _, other := range m.byID {
		for _, link := range other.Accounts {
			if link.Provider == ext.Provider && link.Subject == ext.Subject && other.ID != account.ID {
				return fmt.Errorf("link external account %s: %w", ext.Provider, accounts.ErrAccountConflict)
			}
		}
	}

	copied := *ext
	account.Accounts = append(account.Accounts, &copied)
	return nil
}

// LoadByID returns the stored account with id
func (m *MemoryAccounts) LoadByID(_ context.Context, id uuid.UUID) (*accounts.UserAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("load account %s: %w", id, accounts.ErrAccountNotFound)
	}
	return cloneAccount(account), nil
}

// Len returns the number of stored accounts
func (m *MemoryAccounts) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func cloneAccount(src *accounts.UserAccount) *accounts.UserAccount {
	if src == nil {
		return nil
	}

	dst := *src
	dst.EmailVerifiedAt = cloneTime(src.EmailVerifiedAt)
	dst.LastLoginAt = cloneTime(src.LastLoginAt)
	dst.LastFailedLoginAt = cloneTime(src.LastFailedLoginAt)
	dst.PasswordChangedAt = cloneTime(src.PasswordChangedAt)
	dst.Verification.SentAt = cloneTime(src.Verification.SentAt)

	if src.Accounts != nil {
		dst.Accounts = make([]*accounts.ExternalAccount, 0, len(src.Accounts))
		for _, ext := range src.Accounts {
			if ext == nil {
				continue
			}
			copied := *ext
			copied.LastLoginAt = cloneTime(ext.LastLoginAt)
			dst.Accounts = append(dst.Accounts, &copied)
		}
	}

	if src.Claims != nil {
		dst.Claims = make([]*accounts.UserClaim, 0, len(src.Claims))
		for _, claim := range src.Claims {
			if claim == nil {
				continue
			}
			copied := *claim
			dst.Claims = append(dst.Claims, &copied)
		}
	}

	return &dst
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
