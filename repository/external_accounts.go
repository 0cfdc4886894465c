package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ExternalAccounts persists the third party identities linked to accounts.
type ExternalAccounts struct {
	db *bun.DB
}

// NewExternalAccountsRepository creates a new repository.
func NewExternalAccountsRepository(db *bun.DB) *ExternalAccounts {
	return &ExternalAccounts{db: db}
}

// Link stores ext, refreshing the row if the provider subject is already linked.
func (r *ExternalAccounts) Link(ctx context.Context, ext *accounts.ExternalAccount) error {
	return r.LinkTx(ctx, r.db, ext)
}

func (r *ExternalAccounts) LinkTx(ctx context.Context, tx bun.IDB, ext *accounts.ExternalAccount) error {
	if ext == nil {
		return errors.New("external account is nil")
	}
	if ext.CreatedAt.IsZero() {
		ext.CreatedAt = time.Now().UTC()
	}

	_, err := tx.NewInsert().
		Model(ext).
		On("CONFLICT (provider, subject) DO UPDATE").
		Set("user_account_id = EXCLUDED.user_account_id").
		Set("email = EXCLUDED.email").
		Set("last_login_at = EXCLUDED.last_login_at").
		Exec(ctx)

	return err
}

// FindByProviderSubject returns the link for a provider identity
func (r *ExternalAccounts) FindByProviderSubject(ctx context.Context, provider, subject string) (*accounts.ExternalAccount, error) {
	ext := &accounts.ExternalAccount{}
	err := r.db.NewSelect().
		Model(ext).
		Where("?TableAlias.provider = ? AND ?TableAlias.subject = ?", provider, subject).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return ext, nil
}

// FindByUserAccountID lists the links owned by an account
func (r *ExternalAccounts) FindByUserAccountID(ctx context.Context, id uuid.UUID) ([]*accounts.ExternalAccount, error) {
	var links []*accounts.ExternalAccount
	err := r.db.NewSelect().
		Model(&links).
		Where("?TableAlias.user_account_id = ?", id).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*accounts.ExternalAccount{}, nil
		}
		return nil, err
	}
	return links, nil
}

// Unlink removes the provider link of an account
func (r *ExternalAccounts) Unlink(ctx context.Context, id uuid.UUID, provider string) error {
	_, err := r.db.NewDelete().
		Model((*accounts.ExternalAccount)(nil)).
		Where("user_account_id = ? AND provider = ?", id, provider).
		Exec(ctx)
	return err
}

func (r *ExternalAccounts) DeleteByUserAccountTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*accounts.ExternalAccount)(nil)).
		Where("user_account_id = ?", id).
		Exec(ctx)
	return err
}
