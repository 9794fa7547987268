package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination mocks/mock_activity_repository.go -package mocks github.com/localboost/localboost/internal/domain ActivityRepository

type ActivityType string

const (
	ActivityBillingStatusChanged ActivityType = "billing_status_changed"
	ActivityLeadCreated          ActivityType = "lead_created"
	ActivityAutomationEnrolled   ActivityType = "automation_enrolled"
	ActivityAutomationCompleted  ActivityType = "automation_completed"
)

// ActivityEvent is an entry of a contact's activity log
type ActivityEvent struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenant_id"`
	ContactID   string       `json:"contact_id"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	Metadata    MapOfAny     `json:"metadata,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type ActivityRepository interface {
	CreateActivity(ctx context.Context, event *ActivityEvent) error
	ListContactActivity(ctx context.Context, tenantID, contactID string, limit int) ([]*ActivityEvent, error)
}
