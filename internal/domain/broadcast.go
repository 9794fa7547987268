package domain

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

//go:generate mockgen -destination mocks/mock_broadcast_repository.go -package mocks github.com/localboost/localboost/internal/domain BroadcastRepository

// BroadcastStatus is the lifecycle state of a one-time campaign
type BroadcastStatus string

const (
	BroadcastStatusDraft     BroadcastStatus = "draft"
	BroadcastStatusScheduled BroadcastStatus = "scheduled"
	BroadcastStatusTesting   BroadcastStatus = "testing"
	BroadcastStatusSending   BroadcastStatus = "sending"
	BroadcastStatusSent      BroadcastStatus = "sent"
	BroadcastStatusFailed    BroadcastStatus = "failed"
)

var broadcastTransitions = map[BroadcastStatus][]BroadcastStatus{
	BroadcastStatusDraft:     {BroadcastStatusScheduled},
	BroadcastStatusScheduled: {BroadcastStatusDraft, BroadcastStatusTesting, BroadcastStatusSending, BroadcastStatusFailed},
	BroadcastStatusTesting:   {BroadcastStatusSending, BroadcastStatusFailed},
	BroadcastStatusSending:   {BroadcastStatusSent, BroadcastStatusFailed},
}

// CanTransitionTo reports whether next is reachable from s in one step
func (s BroadcastStatus) CanTransitionTo(next BroadcastStatus) bool {
	for _, allowed := range broadcastTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal is true for sent and failed
func (s BroadcastStatus) IsTerminal() bool {
	return s == BroadcastStatusSent || s == BroadcastStatusFailed
}

// BroadcastContent is one content variant. Subject is only used by email.
type BroadcastContent struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// BroadcastContents is persisted as a JSON array
type BroadcastContents []BroadcastContent

func (c BroadcastContents) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

func (c *BroadcastContents) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	v, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes.Clone(v), c)
}

// Variant identifies an A/B arm
type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

const (
	// ABTestSizePercent of the audience receives the test variants
	ABTestSizePercent = 20
	// ABTestSplitPercent of the test sample receives variant A
	ABTestSplitPercent = 50
)

// AbTestConfig is embedded in a broadcast when it carries two variants
type AbTestConfig struct {
	TestSizePercent   int        `json:"test_size_percent"`
	SplitRatio        int        `json:"split_ratio"`
	TestDurationHours int        `json:"test_duration_hours"`
	WinnerCheckAt     *time.Time `json:"winner_check_at,omitempty"`
	WinnerVariant     *Variant   `json:"winner_variant,omitempty"`
	DecidedAt         *time.Time `json:"decided_at,omitempty"`
}

// NewAbTestConfig returns the fixed 20% / 50-50 configuration
func NewAbTestConfig(testDurationHours int) *AbTestConfig {
	return &AbTestConfig{
		TestSizePercent:   ABTestSizePercent,
		SplitRatio:        ABTestSplitPercent,
		TestDurationHours: testDurationHours,
	}
}

func (c AbTestConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *AbTestConfig) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	v, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes.Clone(v), c)
}

func (c *AbTestConfig) Validate() error {
	if c.TestSizePercent != ABTestSizePercent {
		return fmt.Errorf("test_size_percent must be %d", ABTestSizePercent)
	}
	if c.SplitRatio != ABTestSplitPercent {
		return fmt.Errorf("split_ratio must be %d", ABTestSplitPercent)
	}
	if c.TestDurationHours < 0 {
		return fmt.Errorf("test_duration_hours cannot be negative")
	}
	if c.WinnerVariant != nil && *c.WinnerVariant != VariantA && *c.WinnerVariant != VariantB {
		return fmt.Errorf("invalid winner_variant: %q", string(*c.WinnerVariant))
	}
	return nil
}

// SampleSizes splits an audience into the two test arms. The sample is the
// floored percentage of the audience; an odd sample gives the extra contact
// to variant B.
func (c *AbTestConfig) SampleSizes(audience int) (variantA, variantB int) {
	sample := audience * c.TestSizePercent / 100
	variantA = sample * c.SplitRatio / 100
	return variantA, sample - variantA
}

// HasWinner reports whether the winner was decided
func (c *AbTestConfig) HasWinner() bool {
	return c.WinnerVariant != nil
}

// SetWinner records the winning arm once
func (c *AbTestConfig) SetWinner(v Variant, at time.Time) error {
	if c.WinnerVariant != nil {
		return ErrWinnerAlreadySet
	}
	if v != VariantA && v != VariantB {
		return fmt.Errorf("invalid variant: %q", string(v))
	}
	c.WinnerVariant = &v
	c.DecidedAt = &at
	return nil
}

// Broadcast is a one-time campaign
type Broadcast struct {
	ID              string            `json:"id"`
	TenantID        string            `json:"tenant_id"`
	Name            string            `json:"name"`
	Channel         Channel           `json:"channel"`
	AudienceTags    []string          `json:"audience_tags"`
	Content         BroadcastContents `json:"content"`
	AbTest          *AbTestConfig     `json:"ab_test,omitempty"`
	Status          BroadcastStatus   `json:"status"`
	ScheduledAt     *time.Time        `json:"scheduled_at,omitempty"`
	SentAt          *time.Time        `json:"sent_at,omitempty"`
	TotalRecipients int               `json:"total_recipients"`
	SentCount       int               `json:"sent_count"`
	FailedCount     int               `json:"failed_count"`
	OpenCount       int               `json:"open_count"`
	ClickCount      int               `json:"click_count"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (b *Broadcast) Validate() error {
	if b.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := b.Channel.Validate(); err != nil {
		return err
	}
	if len(b.Content) == 0 {
		return fmt.Errorf("at least one content variant is required")
	}
	for i, content := range b.Content {
		if strings.TrimSpace(content.Body) == "" && !(i > 0 && b.AbTest != nil) {
			return fmt.Errorf("content[%d]: body is required", i)
		}
		if b.Channel == ChannelEmail && strings.TrimSpace(content.Subject) == "" {
			return fmt.Errorf("content[%d]: subject is required for email", i)
		}
	}
	if b.AbTest != nil {
		if len(b.Content) != 2 {
			return fmt.Errorf("an A/B test requires exactly two content variants")
		}
		if err := b.AbTest.Validate(); err != nil {
			return fmt.Errorf("ab_test: %w", err)
		}
	} else if len(b.Content) > 1 {
		return fmt.Errorf("multiple content variants require an A/B test")
	}
	return nil
}

// ContentFor returns the content sent to an arm. Variant B falls back to the
// body of variant A when it only overrides the subject.
func (b *Broadcast) ContentFor(v Variant) BroadcastContent {
	if v != VariantB || len(b.Content) < 2 {
		return b.Content[0]
	}
	content := b.Content[1]
	if strings.TrimSpace(content.Body) == "" {
		content.Body = b.Content[0].Body
	}
	return content
}

// RecipientPhase tells which send pass delivered to a recipient
type RecipientPhase string

const (
	RecipientPhaseFull   RecipientPhase = "full"
	RecipientPhaseTest   RecipientPhase = "test"
	RecipientPhaseWinner RecipientPhase = "winner"
)

type RecipientStatus string

const (
	RecipientStatusSent   RecipientStatus = "sent"
	RecipientStatusFailed RecipientStatus = "failed"
)

// BroadcastRecipient is one delivery attempt of a broadcast to a contact.
// (broadcast_id, contact_id) is unique, so a contact never gets two variants.
type BroadcastRecipient struct {
	ID          string          `json:"id"`
	BroadcastID string          `json:"broadcast_id"`
	TenantID    string          `json:"tenant_id"`
	ContactID   string          `json:"contact_id"`
	Variant     Variant         `json:"variant,omitempty"`
	Phase       RecipientPhase  `json:"phase"`
	Status      RecipientStatus `json:"status"`
	ProviderID  string          `json:"provider_id,omitempty"`
	Error       string          `json:"error,omitempty"`
	OpenedAt    *time.Time      `json:"opened_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// VariantStats aggregates the recipients of one arm
type VariantStats struct {
	Variant Variant `json:"variant"`
	Sent    int     `json:"sent"`
	Opened  int     `json:"opened"`
}

// OpenRate is opened/sent, zero when nothing was sent
func (s VariantStats) OpenRate() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Opened) / float64(s.Sent)
}

// ListBroadcastsFilter pages through a tenant's broadcasts
type ListBroadcastsFilter struct {
	TenantID string
	Status   BroadcastStatus
	Limit    int
	Offset   int
}

type BroadcastRepository interface {
	CreateBroadcast(ctx context.Context, broadcast *Broadcast) error
	GetBroadcast(ctx context.Context, tenantID, id string) (*Broadcast, error)
	ListBroadcasts(ctx context.Context, filter ListBroadcastsFilter) ([]*Broadcast, int, error)
	// UpdateBroadcast saves composer edits and only applies while the stored
	// status still equals broadcast.Status.
	UpdateBroadcast(ctx context.Context, broadcast *Broadcast) error

	// ListDueBroadcasts returns scheduled broadcasts with scheduled_at <= now
	ListDueBroadcasts(ctx context.Context, now time.Time, limit int) ([]*Broadcast, error)
	// ListDueWinnerChecks returns testing broadcasts whose winner check elapsed
	ListDueWinnerChecks(ctx context.Context, now time.Time, limit int) ([]*Broadcast, error)
	// TransitionStatus moves a broadcast from one status to another only if it
	// is still in from. It reports whether the row changed.
	TransitionStatus(ctx context.Context, tenantID, id string, from, to BroadcastStatus) (bool, error)
	// SaveDeliveryState persists status, counters, A/B config and sent_at when
	// the stored status equals expected.
	SaveDeliveryState(ctx context.Context, broadcast *Broadcast, expected BroadcastStatus) (bool, error)

	RecordRecipients(ctx context.Context, recipients []*BroadcastRecipient) error
	ListRecipientContactIDs(ctx context.Context, broadcastID string) ([]string, error)
	GetVariantStats(ctx context.Context, broadcastID string) (map[Variant]VariantStats, error)
	// RecordOpen stamps opened_at once and bumps the broadcast open_count.
	// It reports false for unknown or already opened recipients.
	RecordOpen(ctx context.Context, recipientID string, at time.Time) (bool, error)
}

// CreateBroadcastRequest is the composer payload
type CreateBroadcastRequest struct {
	TenantID     string             `json:"-"`
	Name         string             `json:"name" valid:"required,stringlength(1|255)"`
	Channel      Channel            `json:"channel" valid:"required"`
	AudienceTags []string           `json:"audience_tags,omitempty"`
	Content      []BroadcastContent `json:"content"`
	// ABTest enables the subject-line test. TestDurationHours of 0 uses the
	// server default.
	ABTest            bool `json:"ab_test"`
	TestDurationHours int  `json:"test_duration_hours,omitempty"`
}

// ScheduleBroadcastRequest moves a draft to scheduled
type ScheduleBroadcastRequest struct {
	TenantID    string     `json:"-"`
	ID          string     `json:"id"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

func (r *ScheduleBroadcastRequest) Validate() error {
	if r.TenantID == "" || r.ID == "" {
		return NewValidationError("tenant_id and id are required")
	}
	return nil
}
