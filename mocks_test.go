package accounts_test

import (
	"context"
	"sync"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockDispatcher implements accounts.NotificationDispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, templateName, recipient string, data map[string]any) error {
	args := m.Called(ctx, templateName, recipient, data)
	return args.Error(0)
}

// failingStore wraps a memory store so single calls can be made to fail
type failingStore struct {
	*repository.MemoryAccounts
	failCreate error
	failUpdate error
	failDelete error
	failLoad   error
}

func (m *failingStore) LoadByEmailWithExternal(ctx context.Context, email string) (*accounts.UserAccount, error) {
	if m.failLoad != nil {
		return nil, m.failLoad
	}
	return m.MemoryAccounts.LoadByEmailWithExternal(ctx, email)
}

func (m *failingStore) Create(ctx context.Context, account *accounts.UserAccount) (*accounts.UserAccount, error) {
	if m.failCreate != nil {
		return nil, m.failCreate
	}
	return m.MemoryAccounts.Create(ctx, account)
}

func (m *failingStore) Update(ctx context.Context, account *accounts.UserAccount) (*accounts.UserAccount, error) {
	if m.failUpdate != nil {
		return nil, m.failUpdate
	}
	return m.MemoryAccounts.Update(ctx, account)
}

func (m *failingStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if m.failDelete != nil {
		return m.failDelete
	}
	return m.MemoryAccounts.DeleteByID(ctx, id)
}

func (m *failingStore) RunInTx(ctx context.Context, fn func(ctx context.Context, store accounts.AccountStore) error) error {
	return m.MemoryAccounts.RunInTx(ctx, func(ctx context.Context, _ accounts.AccountStore) error {
		return fn(ctx, m)
	})
}

// sentNotification is a captured dispatcher call
type sentNotification struct {
	Template  string
	Recipient string
	Data      map[string]any
}

// captureDispatcher records every notification it is asked to send
type captureDispatcher struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (c *captureDispatcher) Send(_ context.Context, templateName, recipient string, data map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentNotification{Template: templateName, Recipient: recipient, Data: data})
	return c.err
}

func (c *captureDispatcher) Sent() []sentNotification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentNotification, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *captureDispatcher) LastKey() string {
	sent := c.Sent()
	if len(sent) == 0 {
		return ""
	}
	key, _ := sent[len(sent)-1].Data["Token"].(string)
	return key
}

// captureSink records activity events
type captureSink struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
}

func (c *captureSink) Record(_ context.Context, event accounts.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) Types() []accounts.ActivityEventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]accounts.ActivityEventType, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.EventType)
	}
	return out
}

func (c *captureSink) Last() accounts.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return accounts.ActivityEvent{}
	}
	return c.events[len(c.events)-1]
}

// fakeClock is a settable clock. With a step set every read moves it forward.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func (c *fakeClock) Tick(step time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = step
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// quietLogger drops every line
type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

const testIterations = 1_000

type fixture struct {
	store      *repository.MemoryAccounts
	dispatcher *captureDispatcher
	sink       *captureSink
	clock      *fakeClock
	service    *accounts.RegistrationService
}

func newFixture(opts accounts.Options, extra ...accounts.ServiceOption) *fixture {
	f := &fixture{
		store:      repository.NewMemoryAccounts(),
		dispatcher: &captureDispatcher{},
		sink:       &captureSink{},
		clock:      newFakeClock(),
	}

	// production iteration counts make every register call slow
	opts.PasswordHashingIterationCount = testIterations
	if opts.BaseURL == "" {
		opts.BaseURL = "https://accounts.example.com"
	}

	serviceOpts := []accounts.ServiceOption{
		accounts.WithConfig(opts),
		accounts.WithNotificationDispatcher(f.dispatcher),
		accounts.WithActivitySink(f.sink),
		accounts.WithClock(f.clock.Now),
		accounts.WithLogger(quietLogger{}),
	}
	serviceOpts = append(serviceOpts, extra...)

	f.service = accounts.NewRegistrationService(f.store, serviceOpts...)
	return f
}
