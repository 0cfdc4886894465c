package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Manager exposes all repositories
type Manager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() *Accounts
	ExternalAccounts() *ExternalAccounts
}

type mngr struct {
	db               *bun.DB
	accounts         *Accounts
	externalAccounts *ExternalAccounts
}

// NewRepositoryManager wires the account repositories around db
func NewRepositoryManager(db *bun.DB) Manager {
	accountsRepo := NewAccountsRepository(db)
	return &mngr{
		db:               db,
		accounts:         accountsRepo,
		externalAccounts: accountsRepo.externals,
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.externalAccounts == nil {
		return errors.New("repository externalAccounts should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() *Accounts {
	return m.accounts
}

func (m mngr) ExternalAccounts() *ExternalAccounts {
	return m.externalAccounts
}
