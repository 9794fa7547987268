package service

import (
	"context"
	"fmt"
	"time"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/tracing"
)

// ActionCommandHandler performs the side effect of one command
type ActionCommandHandler func(ctx context.Context, command *domain.ActionCommand) error

// Enroller starts contacts on automation sequences
type Enroller interface {
	Enroll(ctx context.Context, tenantID, contactID string, trigger domain.TriggerType) (int, error)
}

// ActionCommandSummary counts what one ProcessPending pass did
type ActionCommandSummary struct {
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
}

// ActionCommandService writes outbox rows and consumes them
type ActionCommandService struct {
	repo        domain.ActionCommandRepository
	handlers    map[domain.CommandType]ActionCommandHandler
	batchSize   int
	maxAttempts int
	logger      logger.Logger
}

func NewActionCommandService(repo domain.ActionCommandRepository, batchSize, maxAttempts int, logger logger.Logger) *ActionCommandService {
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &ActionCommandService{
		repo:        repo,
		handlers:    make(map[domain.CommandType]ActionCommandHandler),
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// RegisterHandler sets the handler of a command type
func (s *ActionCommandService) RegisterHandler(commandType domain.CommandType, handler ActionCommandHandler) {
	s.handlers[commandType] = handler
}

// RegisterAutomationHandlers routes lead events to automation enrollment
func (s *ActionCommandService) RegisterAutomationHandlers(enroller Enroller) {
	s.RegisterHandler(domain.CommandNewLeadAdded, func(ctx context.Context, command *domain.ActionCommand) error {
		contactID, ok := command.Payload.GetString(domain.PayloadContactID)
		if !ok || contactID == "" {
			return fmt.Errorf("payload is missing %s", domain.PayloadContactID)
		}
		_, err := enroller.Enroll(ctx, command.TenantID, contactID, domain.TriggerNewLeadAdded)
		return err
	})
}

// DispatchActionCommand stores a pending command and returns its id
func (s *ActionCommandService) DispatchActionCommand(ctx context.Context, tenantID string, commandType domain.CommandType, payload domain.MapOfAny) (string, error) {
	if tenantID == "" {
		return "", domain.NewValidationError("tenant_id is required")
	}
	if err := commandType.Validate(); err != nil {
		return "", domain.NewValidationError(err.Error())
	}
	if payload == nil {
		payload = domain.MapOfAny{}
	}

	now := time.Now().UTC()
	command := &domain.ActionCommand{
		TenantID:  tenantID,
		Type:      commandType,
		Payload:   payload,
		Status:    domain.ActionCommandPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateCommand(ctx, command); err != nil {
		return "", fmt.Errorf("failed to create action command: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"command_id": command.ID,
		"tenant_id":  tenantID,
		"type":       commandType,
	}).Debug("Action command dispatched")
	return command.ID, nil
}

// ProcessPending claims a batch of pending commands and runs their handlers
func (s *ActionCommandService) ProcessPending(ctx context.Context) (*ActionCommandSummary, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "ActionCommandService", "ProcessPending")
	defer span.End()

	commands, err := s.repo.ClaimPending(ctx, s.batchSize)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to claim action commands: %w", err)
	}

	summary := &ActionCommandSummary{Claimed: len(commands)}
	for _, command := range commands {
		log := s.logger.WithFields(map[string]interface{}{
			"command_id": command.ID,
			"type":       command.Type,
			"attempts":   command.Attempts,
		})

		handleErr := s.handle(ctx, command)
		now := time.Now().UTC()

		if handleErr == nil {
			if err := s.repo.MarkCompleted(ctx, command.ID, now); err != nil {
				log.WithField("error", err.Error()).Error("Failed to mark action command completed")
			}
			summary.Completed++
			continue
		}

		retry := command.Attempts < s.maxAttempts && !domain.IsValidationError(handleErr)
		if err := s.repo.MarkFailed(ctx, command.ID, handleErr.Error(), retry, now); err != nil {
			log.WithField("error", err.Error()).Error("Failed to mark action command failed")
		}
		if retry {
			summary.Retried++
			log.WithField("error", handleErr.Error()).Warn("Action command failed, will retry")
		} else {
			summary.Failed++
			log.WithField("error", handleErr.Error()).Error("Action command failed permanently")
		}
	}

	return summary, nil
}

func (s *ActionCommandService) handle(ctx context.Context, command *domain.ActionCommand) error {
	handler, ok := s.handlers[command.Type]
	if !ok {
		return domain.NewValidationError(fmt.Sprintf("no handler for command type %s", command.Type))
	}
	return handler(ctx, command)
}
