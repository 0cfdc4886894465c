package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAccountsReturnsCopies(t *testing.T) {
	store := NewMemoryAccounts()
	ctx := context.Background()

	created, err := store.Create(ctx, newPendingAccount("copy@example.com", "key-copy"))
	require.NoError(t, err)

	created.Email = "mutated@example.com"
	created.Verification.Key = "mutated"

	loaded, err := store.LoadByVerificationKey(ctx, "key-copy")
	require.NoError(t, err)
	assert.Equal(t, "copy@example.com", loaded.Email)

	*loaded.Verification.SentAt = time.Time{}
	again, err := store.LoadByID(ctx, loaded.ID)
	require.NoError(t, err)
	assert.False(t, again.Verification.SentAt.IsZero())
}

func TestMemoryAccountsConflictsAndMissing(t *testing.T) {
	store := NewMemoryAccounts()
	ctx := context.Background()

	_, err := store.Create(ctx, newPendingAccount("one@example.com", "key-1"))
	require.NoError(t, err)

	_, err = store.Create(ctx, newPendingAccount("one@example.com", "key-2"))
	require.ErrorIs(t, err, accounts.ErrAccountConflict)

	_, err = store.LoadByEmailWithExternal(ctx, "two@example.com")
	require.ErrorIs(t, err, accounts.ErrAccountNotFound)

	_, err = store.Update(ctx, newPendingAccount("two@example.com", "key-3"))
	require.ErrorIs(t, err, accounts.ErrAccountNotFound)

	require.ErrorIs(t, store.DeleteByID(ctx, uuid.New()), accounts.ErrAccountNotFound)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryAccountsLinkExternalAccount(t *testing.T) {
	store := NewMemoryAccounts()
	ctx := context.Background()

	created, err := store.Create(ctx, newPendingAccount("linked@example.com", "key-linked"))
	require.NoError(t, err)

	require.NoError(t, store.LinkExternalAccount(ctx, &accounts.ExternalAccount{
		UserAccountID: created.ID,
		Provider:      "google",
		Subject:       "g-9",
	}))

	loaded, err := store.LoadByEmailWithExternal(ctx, "LINKED@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"google"}, loaded.ProviderNames())

	// links survive an update that does not carry them
	loaded.Accounts = nil
	_, err = store.Update(ctx, loaded)
	require.NoError(t, err)

	loaded, err = store.LoadByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Accounts, 1)

	err = store.LinkExternalAccount(ctx, &accounts.ExternalAccount{UserAccountID: uuid.New(), Provider: "google"})
	require.ErrorIs(t, err, accounts.ErrAccountNotFound)
}

func TestMemoryAccountsRunInTxSerializesCheckAndInsert(t *testing.T) {
	store := NewMemoryAccounts()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.RunInTx(ctx, func(ctx context.Context, tx accounts.AccountStore) error {
				if _, err := tx.LoadByEmailWithExternal(ctx, "race@example.com"); err == nil {
					return accounts.ErrAccountConflict
				}
				_, err := tx.Create(ctx, newPendingAccount("race@example.com", uuid.NewString()))
				return err
			})
		}()
	}

	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, accounts.ErrAccountConflict))
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryAccountsRunInTxHonorsCancelledContext(t *testing.T) {
	store := NewMemoryAccounts()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.RunInTx(ctx, func(context.Context, accounts.AccountStore) error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
