package accounts_test

import (
	"context"
	"errors"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilteredActivitySink(t *testing.T) {
	sink := &captureSink{}
	filtered := accounts.NewFilteredActivitySink(sink, accounts.EventOptions{
		RaiseSuccessEvents: true,
		RaiseErrorEvents:   true,
	})

	ctx := context.Background()
	for _, kind := range []accounts.ActivityKind{
		accounts.ActivityKindSuccess,
		accounts.ActivityKindFailure,
		accounts.ActivityKindInformation,
		accounts.ActivityKindError,
		accounts.ActivityKind("unknown"),
	} {
		require.NoError(t, filtered.Record(ctx, accounts.ActivityEvent{EventType: "test", Kind: kind}))
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 2)
	assert.Equal(t, accounts.ActivityKindSuccess, sink.events[0].Kind)
	assert.Equal(t, accounts.ActivityKindError, sink.events[1].Kind)
}

func TestAllEventsAllowsEveryKind(t *testing.T) {
	opts := accounts.AllEvents()
	assert.True(t, opts.Allows(accounts.ActivityKindSuccess))
	assert.True(t, opts.Allows(accounts.ActivityKindFailure))
	assert.True(t, opts.Allows(accounts.ActivityKindInformation))
	assert.True(t, opts.Allows(accounts.ActivityKindError))
	assert.False(t, accounts.EventOptions{}.Allows(accounts.ActivityKindSuccess))
}

func TestServiceFiltersFailureEvents(t *testing.T) {
	sink := &captureSink{}
	opts := accounts.AllEvents()
	opts.RaiseFailureEvents = false

	f := newFixture(accounts.DefaultOptions(),
		accounts.WithActivitySink(accounts.NewFilteredActivitySink(sink, opts)),
	)

	register(t, f, "jane@example.com", "")
	_, err := f.service.ConfirmVerification(context.Background(), accounts.ConfirmVerificationMessage{Key: "nope"})
	require.Error(t, err)

	assert.Equal(t, []accounts.ActivityEventType{accounts.ActivityEventAccountRegistered}, sink.Types())
}

func TestActivitySinkErrorsDoNotFailOperations(t *testing.T) {
	failing := accounts.ActivitySinkFunc(func(context.Context, accounts.ActivityEvent) error {
		return errors.New("audit store down")
	})

	f := newFixture(accounts.DefaultOptions(), accounts.WithActivitySink(failing))

	res := register(t, f, "jane@example.com", "")
	assert.NotNil(t, res.Account)

	_, err := f.service.ConfirmVerification(context.Background(), accounts.ConfirmVerificationMessage{Key: f.dispatcher.LastKey()})
	assert.NoError(t, err)
}

func TestNilSinkAndDispatcherFuncs(t *testing.T) {
	var sink accounts.ActivitySinkFunc
	assert.NoError(t, sink.Record(context.Background(), accounts.ActivityEvent{}))

	var dispatcher accounts.NotificationDispatcherFunc
	assert.NoError(t, dispatcher.Send(context.Background(), "t", "r", nil))

	f := newFixture(accounts.DefaultOptions(), accounts.WithActivitySink(nil))
	register(t, f, "jane@example.com", "")
}
