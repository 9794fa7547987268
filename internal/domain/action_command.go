package domain

import (
	"context"
	"fmt"
	"time"
)

//go:generate mockgen -destination mocks/mock_action_command_repository.go -package mocks github.com/localboost/localboost/internal/domain ActionCommandRepository,ActionCommandDispatcher

// CommandType names an asynchronous side effect
type CommandType string

const (
	CommandNewLeadAdded CommandType = "NEW_LEAD_ADDED"
)

func (t CommandType) Validate() error {
	if t != CommandNewLeadAdded {
		return fmt.Errorf("invalid command type: %q", string(t))
	}
	return nil
}

type ActionCommandStatus string

const (
	ActionCommandPending    ActionCommandStatus = "pending"
	ActionCommandProcessing ActionCommandStatus = "processing"
	ActionCommandCompleted  ActionCommandStatus = "completed"
	ActionCommandFailed     ActionCommandStatus = "failed"
)

// ActionCommand is an outbox row
type ActionCommand struct {
	ID           string              `json:"id"`
	TenantID     string              `json:"tenant_id"`
	Type         CommandType         `json:"type"`
	Payload      MapOfAny            `json:"payload"`
	Status       ActionCommandStatus `json:"status"`
	Attempts     int                 `json:"attempts"`
	ErrorMessage string              `json:"error_message,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	ProcessedAt  *time.Time          `json:"processed_at,omitempty"`
}

// Payload keys
const (
	PayloadContactID = "contactId"
)

type ActionCommandRepository interface {
	CreateCommand(ctx context.Context, command *ActionCommand) error
	// ClaimPending flips up to limit pending rows to processing and returns them
	ClaimPending(ctx context.Context, limit int) ([]*ActionCommand, error)
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	// MarkFailed records the error; retry puts the row back to pending
	MarkFailed(ctx context.Context, id string, message string, retry bool, at time.Time) error
}

// ActionCommandDispatcher enqueues a command and returns its id
type ActionCommandDispatcher interface {
	DispatchActionCommand(ctx context.Context, tenantID string, commandType CommandType, payload MapOfAny) (string, error)
}
