package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

//go:generate mockgen -destination mocks/mock_automation_repository.go -package mocks github.com/localboost/localboost/internal/domain AutomationRepository

// TriggerType names the event that enrolls contacts into a sequence
type TriggerType string

const (
	TriggerNewLeadAdded TriggerType = "new_lead_added"
)

func (t TriggerType) Validate() error {
	if t != TriggerNewLeadAdded {
		return fmt.Errorf("invalid trigger type: %q", string(t))
	}
	return nil
}

// StepAction is what a step does when it runs
type StepAction string

const (
	StepActionSendEmail StepAction = "send_email"
	StepActionSendSMS   StepAction = "send_sms"
	StepActionWait      StepAction = "wait"
)

// Channel returns the delivery channel of a send step
func (a StepAction) Channel() (Channel, bool) {
	switch a {
	case StepActionSendEmail:
		return ChannelEmail, true
	case StepActionSendSMS:
		return ChannelSMS, true
	}
	return "", false
}

// AutomationStep is one entry of a drip sequence
type AutomationStep struct {
	ID         string     `json:"id"`
	SequenceID string     `json:"sequence_id"`
	Order      int        `json:"order"`
	Action     StepAction `json:"action"`
	Subject    string     `json:"subject,omitempty"`
	Body       string     `json:"body,omitempty"`
	WaitDays   int        `json:"wait_days,omitempty"`
}

func (s *AutomationStep) Validate() error {
	hasSubject := strings.TrimSpace(s.Subject) != ""
	hasBody := strings.TrimSpace(s.Body) != ""

	switch s.Action {
	case StepActionSendEmail:
		if !hasSubject {
			return fmt.Errorf("subject is required for send_email")
		}
		if !hasBody {
			return fmt.Errorf("body is required for send_email")
		}
	case StepActionSendSMS:
		if hasSubject {
			return fmt.Errorf("subject is only allowed for send_email")
		}
		if !hasBody {
			return fmt.Errorf("body is required for send_sms")
		}
	case StepActionWait:
		if s.WaitDays < 1 {
			return fmt.Errorf("wait_days must be at least 1")
		}
		if hasSubject {
			return fmt.Errorf("subject is only allowed for send_email")
		}
		return nil
	default:
		return fmt.Errorf("invalid action: %q", string(s.Action))
	}

	if s.WaitDays != 0 {
		return fmt.Errorf("wait_days is only allowed for wait steps")
	}
	return nil
}

// WaitDuration is the delay of a wait step
func (s *AutomationStep) WaitDuration() time.Duration {
	return time.Duration(s.WaitDays) * 24 * time.Hour
}

// AutomationSequence is a reusable drip definition
type AutomationSequence struct {
	ID             string           `json:"id"`
	TenantID       string           `json:"tenant_id"`
	Name           string           `json:"name"`
	Trigger        TriggerType      `json:"trigger"`
	Steps          []AutomationStep `json:"steps"`
	Active         bool             `json:"active"`
	ExecutionCount int              `json:"execution_count"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Validate rejects empty sequences, back-to-back waits and bad steps. Step
// orders must be 0..n-1 in slice order.
func (s *AutomationSequence) Validate() error {
	if s.TenantID == "" {
		return NewValidationError("tenant_id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("name is required")
	}
	if err := s.Trigger.Validate(); err != nil {
		return NewValidationError(err.Error())
	}
	if len(s.Steps) == 0 {
		return NewValidationError("a sequence needs at least one step")
	}
	for i := range s.Steps {
		step := &s.Steps[i]
		if step.Order != i {
			return NewValidationError(fmt.Sprintf("step %d: order must be %d", i, i))
		}
		if err := step.Validate(); err != nil {
			return NewValidationError(fmt.Sprintf("step %d: %s", i, err.Error()))
		}
		if i > 0 && step.Action == StepActionWait && s.Steps[i-1].Action == StepActionWait {
			return NewValidationError(fmt.Sprintf("steps %d and %d are consecutive waits", i-1, i))
		}
	}
	return nil
}

// StepIndex returns the position of a step id, or -1
func (s *AutomationSequence) StepIndex(stepID string) int {
	for i := range s.Steps {
		if s.Steps[i].ID == stepID {
			return i
		}
	}
	return -1
}

// StepAt returns the step at index i, or nil past the end
func (s *AutomationSequence) StepAt(i int) *AutomationStep {
	if i < 0 || i >= len(s.Steps) {
		return nil
	}
	return &s.Steps[i]
}

// Start positions a fresh enrollment. A leading wait becomes the current
// step with its delay applied, otherwise the first step is due at now.
func (s *AutomationSequence) Start(progress *AutomationContactProgress, now time.Time) {
	progress.NextStepAt = now
	if first := s.StepAt(0); first != nil && first.Action == StepActionWait {
		id := first.ID
		progress.CurrentStepID = &id
		progress.NextStepAt = now.Add(first.WaitDuration())
	}
}

// AutomationContactProgress tracks one contact through one sequence. A nil
// CurrentStepID means the contact has not started yet.
type AutomationContactProgress struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenant_id"`
	ContactID        string     `json:"contact_id"`
	SequenceID       string     `json:"sequence_id"`
	CurrentStepID    *string    `json:"current_step_id,omitempty"`
	NextStepAt       time.Time  `json:"next_step_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CompletionReason string     `json:"completion_reason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (p *AutomationContactProgress) IsActive() bool {
	return p.CompletedAt == nil
}

// Completion reasons
const (
	CompletionFinished        = "finished"
	CompletionUnsubscribed    = "unsubscribed"
	CompletionContactMissing  = "contact_missing"
	CompletionSequenceChanged = "sequence_changed"
)

// Complete marks the enrollment finished
func (p *AutomationContactProgress) Complete(at time.Time, reason string) {
	p.CompletedAt = &at
	p.CompletionReason = reason
	p.NextStepAt = at
}

type AutomationRepository interface {
	CreateSequence(ctx context.Context, sequence *AutomationSequence) error
	// ReplaceSequence overwrites the sequence row and all of its steps
	ReplaceSequence(ctx context.Context, sequence *AutomationSequence) error
	GetSequence(ctx context.Context, tenantID, id string) (*AutomationSequence, error)
	ListSequences(ctx context.Context, tenantID string) ([]*AutomationSequence, error)
	ListActiveSequencesByTrigger(ctx context.Context, tenantID string, trigger TriggerType) ([]*AutomationSequence, error)
	SetSequenceActive(ctx context.Context, tenantID, id string, active bool) error
	IncrementExecutionCount(ctx context.Context, tenantID, id string) error

	// EnrollContact inserts an active progress row unless one already exists
	// for the (contact, sequence) pair. It reports whether a row was created.
	EnrollContact(ctx context.Context, progress *AutomationContactProgress) (bool, error)
	// ClaimDueProgress returns active rows with next_step_at <= now and pushes
	// their next_step_at to now+lease so overlapping runs skip them.
	ClaimDueProgress(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*AutomationContactProgress, error)
	UpdateProgress(ctx context.Context, progress *AutomationContactProgress) error
	ListContactProgress(ctx context.Context, tenantID, contactID string) ([]*AutomationContactProgress, error)
}

// UpsertSequenceRequest is the payload for creating or replacing a sequence
type UpsertSequenceRequest struct {
	TenantID string           `json:"-"`
	ID       string           `json:"id,omitempty"`
	Name     string           `json:"name"`
	Trigger  TriggerType      `json:"trigger"`
	Active   *bool            `json:"active,omitempty"`
	Steps    []AutomationStep `json:"steps"`
}
