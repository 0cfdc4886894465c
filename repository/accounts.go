package repository

import (
	"context"
	"fmt"
	"strings"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the bun backed AccountStore
type Accounts struct {
	db        *bun.DB
	idb       bun.IDB
	records   repository.Repository[*accounts.UserAccount]
	externals *ExternalAccounts
}

var _ accounts.AccountStore = (*Accounts)(nil)

// NewAccountsRepository returns an AccountStore persisting to db
func NewAccountsRepository(db *bun.DB) *Accounts {
	records := repository.NewRepository[*accounts.UserAccount](db, repository.ModelHandlers[*accounts.UserAccount]{
		NewRecord: func() *accounts.UserAccount {
			return &accounts.UserAccount{}
		},
		GetID: func(record *accounts.UserAccount) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *accounts.UserAccount, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &Accounts{
		db:        db,
		idb:       db,
		records:   records,
		externals: NewExternalAccountsRepository(db),
	}
}

// withIDB returns a copy of the store bound to idb
func (a *Accounts) withIDB(idb bun.IDB) *Accounts {
	return &Accounts{
		db:        a.db,
		idb:       idb,
		records:   a.records,
		externals: a.externals,
	}
}

// RunInTx implements accounts.AccountStore. Nested calls reuse the open transaction.
func (a *Accounts) RunInTx(ctx context.Context, fn func(ctx context.Context, store accounts.AccountStore) error) error {
	if _, ok := a.idb.(bun.Tx); ok {
		return fn(ctx, a)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return fn(ctx, a.withIDB(tx))
		})
	}
}

func (a *Accounts) LoadByEmailWithExternal(ctx context.Context, email string) (*accounts.UserAccount, error) {
	record := &accounts.UserAccount{}
	err := a.idb.NewSelect().
		Model(record).
		Relation("Accounts").
		Relation("Claims").
		Where("?TableAlias.email = ?", accounts.NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, fmt.Errorf("load account by email: %w", accounts.ErrAccountNotFound)
		}
		return nil, err
	}

	return record, nil
}

func (a *Accounts) LoadByVerificationKey(ctx context.Context, key string) (*accounts.UserAccount, error) {
	if key == "" {
		return nil, fmt.Errorf("load account by verification key: %w", accounts.ErrAccountNotFound)
	}

	record := &accounts.UserAccount{}
	err := a.idb.NewSelect().
		Model(record).
		Where("?TableAlias.verification_key = ?", key).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, fmt.Errorf("load account by verification key: %w", accounts.ErrAccountNotFound)
		}
		return nil, err
	}

	return record, nil
}

// Create inserts account together with its external accounts and claims
func (a *Accounts) Create(ctx context.Context, account *accounts.UserAccount) (*accounts.UserAccount, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	created, err := a.records.CreateTx(ctx, a.idb, account)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("create account %s: %w", account.Email, accounts.ErrAccountConflict)
		}
		return nil, err
	}

	for _, ext := range account.Accounts {
		ext.UserAccountID = created.ID
		if err := a.externals.LinkTx(ctx, a.idb, ext); err != nil {
			return nil, err
		}
	}
	created.Accounts = account.Accounts

	if len(account.Claims) > 0 {
		for _, claim := range account.Claims {
			claim.UserAccountID = created.ID
			if claim.ID == uuid.Nil {
				claim.ID = uuid.New()
			}
		}
		if _, err := a.idb.NewInsert().Model(&account.Claims).Exec(ctx); err != nil {
			return nil, err
		}
	}
	created.Claims = account.Claims

	return created, nil
}

// Update writes every column of account, so cleared fields are stored as NULL
func (a *Accounts) Update(ctx context.Context, account *accounts.UserAccount) (*accounts.UserAccount, error) {
	// NOTE: the generic repository update skips zero values, it would never
	// clear the verification columns.
	res, err := a.idb.NewUpdate().
		Model(account).
		ExcludeColumn("id", "created_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("update account %s: %w", account.ID, accounts.ErrAccountConflict)
		}
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("update account %s: %w", account.ID, accounts.ErrAccountNotFound)
	}

	return account, nil
}

// DeleteByID removes the account and everything it owns
func (a *Accounts) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := a.externals.DeleteByUserAccountTx(ctx, a.idb, id); err != nil {
		return err
	}

	if _, err := a.idb.NewDelete().
		Model((*accounts.UserClaim)(nil)).
		Where("user_account_id = ?", id).
		Exec(ctx); err != nil {
		return err
	}

	res, err := a.idb.NewDelete().
		Model((*accounts.UserAccount)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete account %s: %w", id, accounts.ErrAccountNotFound)
	}

	return nil
}

// IsUniqueViolation reports whether err comes from a unique constraint
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505") ||
		strings.Contains(msg, "#23505")
}
