package broadcast_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/internal/repository/memstore"
	"github.com/localboost/localboost/internal/service/broadcast"
	"github.com/localboost/localboost/pkg/logger"
)

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

// recordingSender captures every message and fails for addresses in failFor
type recordingSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]bool
	failAll bool
}

func (s *recordingSender) record(to, subject, body string) domain.SendResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll || s.failFor[to] {
		return domain.SendResult{Success: false, Error: "provider rejected " + to}
	}
	s.sent = append(s.sent, sentMessage{To: to, Subject: subject, Body: body})
	return domain.SendResult{Success: true, ProviderID: fmt.Sprintf("msg-%d", len(s.sent))}
}

func (s *recordingSender) SendEmail(_ context.Context, to, subject, html string) domain.SendResult {
	return s.record(to, subject, html)
}

func (s *recordingSender) SendSMS(_ context.Context, to, body string) domain.SendResult {
	return s.record(to, "", body)
}

func (s *recordingSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

// staticAudience resolves against a fixed contact list
type staticAudience struct {
	mu       sync.Mutex
	contacts []*domain.Contact
	err      error
}

func (a *staticAudience) ResolveAudience(_ context.Context, tenantID string, channel domain.Channel, tags []string) ([]*domain.Contact, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	out := make([]*domain.Contact, 0, len(a.contacts))
	for _, c := range a.contacts {
		if c.TenantID == tenantID && c.MatchesAudience(channel, tags) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (a *staticAudience) CountAudience(ctx context.Context, tenantID string, channel domain.Channel, tags []string) (int, error) {
	contacts, err := a.ResolveAudience(ctx, tenantID, channel, tags)
	return len(contacts), err
}

func (a *staticAudience) add(contacts ...*domain.Contact) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.contacts = append(a.contacts, contacts...)
}

var errAudienceDown = errors.New("contacts table unavailable")

func makeContacts(tenantID string, n int, tags ...string) []*domain.Contact {
	out := make([]*domain.Contact, n)
	for i := range out {
		out[i] = &domain.Contact{
			ID:       fmt.Sprintf("c%03d", i),
			TenantID: tenantID,
			Name:     fmt.Sprintf("Guest %d", i),
			Email:    fmt.Sprintf("guest%03d@example.com", i),
			Phone:    fmt.Sprintf("+1555%07d", i),
			Tags:     tags,
		}
	}
	return out
}

type fixture struct {
	store     *memstore.BroadcastStore
	audience  *staticAudience
	sender    *recordingSender
	clock     *broadcast.FixedTimeProvider
	config    *broadcast.Config
	fanout    *broadcast.FanOutSender
	abTest    *broadcast.ABTestController
	scheduler *broadcast.Scheduler
	service   *broadcast.Service
}

var fixtureStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	log := logger.NewTestLogger(t)
	f := &fixture{
		store:    memstore.NewBroadcastStore(),
		audience: &staticAudience{},
		sender:   &recordingSender{failFor: map[string]bool{}},
		clock:    broadcast.NewFixedTimeProvider(fixtureStart),
		config:   broadcast.DefaultConfig(),
	}
	f.fanout = broadcast.NewFanOutSender(f.sender, f.store, f.config, log)
	f.abTest = broadcast.NewABTestController(f.store, f.audience, f.fanout, f.config, f.clock, log)
	f.abTest.SetShuffle(nil)
	f.scheduler = broadcast.NewScheduler(f.store, f.audience, f.fanout, f.abTest, f.config, f.clock, log)
	f.service = broadcast.NewService(f.store, f.config, f.clock, log)
	return f
}

// scheduled stores b as a broadcast due now
func (f *fixture) scheduled(t *testing.T, b *domain.Broadcast) *domain.Broadcast {
	if b.TenantID == "" {
		b.TenantID = "T"
	}
	if b.Name == "" {
		b.Name = "Spring menu"
	}
	if b.Channel == "" {
		b.Channel = domain.ChannelEmail
	}
	if len(b.Content) == 0 {
		b.Content = domain.BroadcastContents{{Subject: "Hi {{ contact.first_name }}", Body: "<p>New menu</p>"}}
	}
	at := f.clock.Now()
	b.ScheduledAt = &at
	b.Status = domain.BroadcastStatusScheduled
	require.NoError(t, f.store.CreateBroadcast(context.Background(), b))
	return b
}

func (f *fixture) get(t *testing.T, b *domain.Broadcast) *domain.Broadcast {
	stored, err := f.store.GetBroadcast(context.Background(), b.TenantID, b.ID)
	require.NoError(t, err)
	return stored
}

func abContent() domain.BroadcastContents {
	return domain.BroadcastContents{
		{Subject: "Subject A", Body: "<p>Spring menu</p>"},
		{Subject: "Subject B"},
	}
}
