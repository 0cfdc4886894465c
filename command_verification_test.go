package accounts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmVerificationIsSingleUse(t *testing.T) {
	f := newFixture(accounts.DefaultOptions())
	ctx := context.Background()

	register(t, f, "jane@example.com", "")
	key := f.dispatcher.LastKey()

	_, err := f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: key})
	require.NoError(t, err)

	_, err = f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: key})
	assert.ErrorIs(t, err, accounts.ErrInvalidToken)

	_, err = f.service.CancelVerification(ctx, accounts.CancelVerificationMessage{Key: key})
	assert.ErrorIs(t, err, accounts.ErrInvalidToken)

	assert.Equal(t, 1, f.store.Len())
}

func TestConfirmVerificationRejectsUnknownKeys(t *testing.T) {
	f := newFixture(accounts.DefaultOptions())
	ctx := context.Background()

	for _, key := range []string{"", "   ", "does-not-exist"} {
		_, err := f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: key})
		assert.True(t, accounts.IsInvalidToken(err), "key %q", key)
	}

	last := f.sink.Last()
	assert.Equal(t, accounts.ActivityEventVerificationFailed, last.EventType)
	assert.Equal(t, accounts.ActivityKindFailure, last.Kind)
	assert.Equal(t, "confirm", last.Metadata["operation"])
}

func TestVerificationRejectsWrongPurpose(t *testing.T) {
	opts := accounts.DefaultOptions()
	opts.VerificationKeyMaxAge = time.Hour
	opts.RevealExpiredTokens = true
	f := newFixture(opts)
	ctx := context.Background()

	sentAt := f.clock.Now()
	created, err := f.store.Create(ctx, &accounts.UserAccount{
		Email:        "jane@example.com",
		PasswordHash: "x",
		Verification: accounts.Verification{
			Key:     "reset-key",
			Purpose: accounts.PurposeResetPassword,
			SentAt:  &sentAt,
		},
	})
	require.NoError(t, err)

	for _, advance := range []time.Duration{0, 2 * time.Hour} {
		f.clock.Advance(advance)

		_, err = f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: "reset-key"})
		assert.ErrorIs(t, err, accounts.ErrInvalidToken)

		_, err = f.service.CancelVerification(ctx, accounts.CancelVerificationMessage{Key: "reset-key"})
		assert.ErrorIs(t, err, accounts.ErrInvalidToken)
	}

	stored, err := f.store.LoadByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsEmailVerified)
	assert.Equal(t, accounts.PurposeResetPassword, stored.Verification.Purpose)
}

func TestConfirmVerificationExpiry(t *testing.T) {
	ctx := context.Background()

	t.Run("expired keys look invalid", func(t *testing.T) {
		opts := accounts.DefaultOptions()
		opts.VerificationKeyMaxAge = time.Hour
		f := newFixture(opts)

		res := register(t, f, "jane@example.com", "")
		f.clock.Advance(2 * time.Hour)

		_, err := f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: f.dispatcher.LastKey()})
		assert.ErrorIs(t, err, accounts.ErrInvalidToken)
		assert.False(t, accounts.IsExpiredToken(err))

		stored, err := f.store.LoadByID(ctx, res.Account.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsEmailVerified)
		assert.True(t, stored.HasVerification())
	})

	t.Run("reveal expired keys", func(t *testing.T) {
		opts := accounts.DefaultOptions()
		opts.VerificationKeyMaxAge = time.Hour
		opts.RevealExpiredTokens = true
		f := newFixture(opts)

		register(t, f, "jane@example.com", "")
		f.clock.Advance(2 * time.Hour)

		_, err := f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: f.dispatcher.LastKey()})
		assert.True(t, accounts.IsExpiredToken(err))
		assert.Equal(t, accounts.TextCodeExpiredToken, f.sink.Last().Metadata["reason"])
	})

	t.Run("boundary is inclusive", func(t *testing.T) {
		opts := accounts.DefaultOptions()
		opts.VerificationKeyMaxAge = time.Hour
		f := newFixture(opts)

		register(t, f, "jane@example.com", "")
		f.clock.Advance(time.Hour)

		_, err := f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: f.dispatcher.LastKey()})
		assert.NoError(t, err)
	})

	t.Run("expiry and verified time share one clock read", func(t *testing.T) {
		opts := accounts.DefaultOptions()
		opts.VerificationKeyMaxAge = time.Hour
		f := newFixture(opts)

		res := register(t, f, "jane@example.com", "")
		f.clock.Advance(time.Hour)
		deadline := f.clock.Now()
		f.clock.Tick(time.Second)

		_, err := f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: f.dispatcher.LastKey()})
		require.NoError(t, err)

		stored, err := f.store.LoadByID(ctx, res.Account.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsEmailVerified)
		require.NotNil(t, stored.EmailVerifiedAt)
		assert.Equal(t, deadline, stored.EmailVerifiedAt.UTC())
	})

	t.Run("zero max age never expires", func(t *testing.T) {
		f := newFixture(accounts.DefaultOptions())

		register(t, f, "jane@example.com", "")
		f.clock.Advance(365 * 24 * time.Hour)

		_, err := f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: f.dispatcher.LastKey()})
		assert.NoError(t, err)
	})
}

func TestConfirmVerificationUpdateFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryAccounts: repository.NewMemoryAccounts()}
	dispatcher := &captureDispatcher{}
	service := accounts.NewRegistrationService(store,
		accounts.WithNotificationDispatcher(dispatcher),
		accounts.WithLogger(quietLogger{}),
		accounts.WithConfig(accounts.Options{PasswordHashingIterationCount: testIterations}),
	)

	_, err := service.Register(ctx, accounts.RegisterAccountMessage{Email: "jane@example.com", Password: "Secret1!"})
	require.NoError(t, err)

	store.failUpdate = errors.New("db down")
	_, err = service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: dispatcher.LastKey()})
	assert.True(t, accounts.IsDependencyUnavailable(err))

	store.failUpdate = nil
	_, err = service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: dispatcher.LastKey()})
	assert.NoError(t, err)
}

func TestCancelVerificationDeletesAccount(t *testing.T) {
	f := newFixture(accounts.DefaultOptions())
	ctx := context.Background()

	registered := register(t, f, "jane@example.com", "/dashboard")

	res, err := f.service.CancelVerification(ctx, accounts.CancelVerificationMessage{Key: f.dispatcher.LastKey()})
	require.NoError(t, err)
	assert.Equal(t, "/login?returnUrl=%2Fdashboard", res.RedirectTo)
	assert.Equal(t, registered.Account.ID, res.Account.ID)

	_, err = f.store.LoadByID(ctx, registered.Account.ID)
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)

	_, err = f.store.LoadByEmailWithExternal(ctx, "jane@example.com")
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)

	assert.Equal(t, accounts.ActivityEventRegistrationCancelled, f.sink.Last().EventType)

	// the email is free again
	register(t, f, "jane@example.com", "")
}

func TestCancelVerificationAfterLogin(t *testing.T) {
	f := newFixture(accounts.DefaultOptions())
	ctx := context.Background()

	registered := register(t, f, "jane@example.com", "")
	key := f.dispatcher.LastKey()

	account, err := f.store.LoadByID(ctx, registered.Account.ID)
	require.NoError(t, err)
	lastLogin := f.clock.Now()
	account.LastLoginAt = &lastLogin
	_, err = f.store.Update(ctx, account)
	require.NoError(t, err)

	_, err = f.service.CancelVerification(ctx, accounts.CancelVerificationMessage{Key: key})
	require.Error(t, err)
	assert.True(t, accounts.IsCannotCancel(err))

	stored, err := f.store.LoadByID(ctx, registered.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Verification.Key, stored.Verification.Key)
	assert.NotNil(t, stored.LastLoginAt)
	assert.Equal(t, accounts.TextCodeCannotCancel, f.sink.Last().Metadata["reason"])
}

func TestCancelVerificationDeleteFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryAccounts: repository.NewMemoryAccounts()}
	dispatcher := &captureDispatcher{}
	service := accounts.NewRegistrationService(store,
		accounts.WithNotificationDispatcher(dispatcher),
		accounts.WithLogger(quietLogger{}),
		accounts.WithConfig(accounts.Options{PasswordHashingIterationCount: testIterations}),
	)

	_, err := service.Register(ctx, accounts.RegisterAccountMessage{Email: "jane@example.com", Password: "Secret1!"})
	require.NoError(t, err)

	store.failDelete = errors.New("db down")
	_, err = service.CancelVerification(ctx, accounts.CancelVerificationMessage{Key: dispatcher.LastKey()})
	assert.True(t, accounts.IsDependencyUnavailable(err))
	assert.Equal(t, 1, store.Len())
}

func TestResendVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("pending account gets a new key", func(t *testing.T) {
		f := newFixture(accounts.DefaultOptions())
		register(t, f, "jane@example.com", "/dashboard")
		oldKey := f.dispatcher.LastKey()

		f.clock.Advance(time.Minute)

		res, err := f.service.ResendVerification(ctx, accounts.ResendVerificationMessage{Email: " Jane@Example.com "})
		require.NoError(t, err)
		assert.NoError(t, res.DeliveryErr)
		assert.Equal(t, "/register/success?provider=example.com", res.RedirectTo)

		require.Len(t, f.dispatcher.Sent(), 2)
		newKey := f.dispatcher.LastKey()
		assert.NotEqual(t, oldKey, newKey)
		assert.Equal(t, accounts.ActivityEventVerificationResent, f.sink.Last().EventType)

		_, err = f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: oldKey})
		assert.ErrorIs(t, err, accounts.ErrInvalidToken)

		confirmed, err := f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: newKey})
		require.NoError(t, err)
		assert.Equal(t, "/dashboard", confirmed.RedirectTo)
	})

	t.Run("unknown email looks the same", func(t *testing.T) {
		f := newFixture(accounts.DefaultOptions())

		res, err := f.service.ResendVerification(ctx, accounts.ResendVerificationMessage{Email: "ghost@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "/register/success?provider=example.com", res.RedirectTo)
		assert.Nil(t, res.Account)
		assert.Empty(t, f.dispatcher.Sent())
	})

	t.Run("verified account is skipped", func(t *testing.T) {
		f := newFixture(accounts.DefaultOptions())
		register(t, f, "jane@example.com", "")
		_, err := f.service.ConfirmVerification(ctx, accounts.ConfirmVerificationMessage{Key: f.dispatcher.LastKey()})
		require.NoError(t, err)

		res, err := f.service.ResendVerification(ctx, accounts.ResendVerificationMessage{Email: "jane@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "/register/success?provider=example.com", res.RedirectTo)
		assert.Len(t, f.dispatcher.Sent(), 1)
	})
}
