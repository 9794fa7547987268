package service

import (
	"context"
	"sync"
	"time"

	"github.com/localboost/localboost/internal/domain"
)

type sentMessage struct {
	Channel domain.Channel
	To      string
	Subject string
	Body    string
}

// recordingSender keeps every message. Addresses in failFor fail
// transiently and addresses in refuse are rejected permanently.
type recordingSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]bool
	refuse  map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{failFor: make(map[string]bool), refuse: make(map[string]bool)}
}

func (s *recordingSender) SendEmail(_ context.Context, to, subject, html string) domain.SendResult {
	return s.record(sentMessage{Channel: domain.ChannelEmail, To: to, Subject: subject, Body: html})
}

func (s *recordingSender) SendSMS(_ context.Context, to, body string) domain.SendResult {
	return s.record(sentMessage{Channel: domain.ChannelSMS, To: to, Body: body})
}

func (s *recordingSender) record(m sentMessage) domain.SendResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refuse[m.To] {
		return domain.SendResult{Success: false, Error: "550 5.1.1 user unknown", Permanent: true}
	}
	if s.failFor[m.To] {
		return domain.SendResult{Success: false, Error: "421 try again later"}
	}
	s.sent = append(s.sent, m)
	return domain.SendResult{Success: true, ProviderID: "msg-" + m.To}
}

func (s *recordingSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

// testClock is a settable time source
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
