package service

import (
	"context"
	"fmt"
	"time"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/liquid"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/tracing"
)

// AutomationService manages drip sequences and enrollments
type AutomationService struct {
	repo         domain.AutomationRepository
	contactRepo  domain.ContactRepository
	activityRepo domain.ActivityRepository
	logger       logger.Logger
}

// NewAutomationService creates a new AutomationService
func NewAutomationService(
	repo domain.AutomationRepository,
	contactRepo domain.ContactRepository,
	activityRepo domain.ActivityRepository,
	logger logger.Logger,
) *AutomationService {
	return &AutomationService{
		repo:         repo,
		contactRepo:  contactRepo,
		activityRepo: activityRepo,
		logger:       logger,
	}
}

func buildSequence(req *domain.UpsertSequenceRequest) (*domain.AutomationSequence, error) {
	steps := make([]domain.AutomationStep, len(req.Steps))
	for i, step := range req.Steps {
		step.Order = i
		step.SequenceID = req.ID
		if err := liquid.Validate(step.Subject); err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("step %d subject: %s", i, err.Error()))
		}
		if err := liquid.Validate(step.Body); err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("step %d body: %s", i, err.Error()))
		}
		steps[i] = step
	}

	sequence := &domain.AutomationSequence{
		ID:       req.ID,
		TenantID: req.TenantID,
		Name:     req.Name,
		Trigger:  req.Trigger,
		Steps:    steps,
		Active:   true,
	}
	if req.Active != nil {
		sequence.Active = *req.Active
	}
	if err := sequence.Validate(); err != nil {
		return nil, err
	}
	return sequence, nil
}

// CreateSequence validates and stores a new sequence
func (s *AutomationService) CreateSequence(ctx context.Context, req *domain.UpsertSequenceRequest) (*domain.AutomationSequence, error) {
	req.ID = ""
	sequence, err := buildSequence(req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sequence.CreatedAt = now
	sequence.UpdatedAt = now

	if err := s.repo.CreateSequence(ctx, sequence); err != nil {
		s.logger.WithField("tenant_id", req.TenantID).Error(fmt.Sprintf("Failed to create sequence: %v", err))
		return nil, fmt.Errorf("failed to create sequence: %w", err)
	}
	return sequence, nil
}

// ReplaceSequence overwrites a sequence and all of its steps. Steps submitted
// with their existing id keep in-flight enrollments on track; enrollments
// sitting on a removed step are completed by the engine.
func (s *AutomationService) ReplaceSequence(ctx context.Context, req *domain.UpsertSequenceRequest) (*domain.AutomationSequence, error) {
	if req.ID == "" {
		return nil, domain.NewValidationError("id is required")
	}

	existing, err := s.repo.GetSequence(ctx, req.TenantID, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Active == nil {
		active := existing.Active
		req.Active = &active
	}
	sequence, err := buildSequence(req)
	if err != nil {
		return nil, err
	}
	sequence.CreatedAt = existing.CreatedAt
	sequence.ExecutionCount = existing.ExecutionCount
	sequence.UpdatedAt = time.Now().UTC()

	if err := s.repo.ReplaceSequence(ctx, sequence); err != nil {
		s.logger.WithField("sequence_id", req.ID).Error(fmt.Sprintf("Failed to replace sequence: %v", err))
		return nil, fmt.Errorf("failed to replace sequence: %w", err)
	}
	return sequence, nil
}

// GetSequence returns a sequence with its steps
func (s *AutomationService) GetSequence(ctx context.Context, tenantID, id string) (*domain.AutomationSequence, error) {
	sequence, err := s.repo.GetSequence(ctx, tenantID, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}
	return sequence, nil
}

// ListSequences returns the tenant's sequences
func (s *AutomationService) ListSequences(ctx context.Context, tenantID string) ([]*domain.AutomationSequence, error) {
	sequences, err := s.repo.ListSequences(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	return sequences, nil
}

// SetActive toggles a sequence. Inactive sequences enroll nobody new but
// existing enrollments run to completion.
func (s *AutomationService) SetActive(ctx context.Context, tenantID, id string, active bool) error {
	if err := s.repo.SetSequenceActive(ctx, tenantID, id, active); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to update sequence: %w", err)
	}
	return nil
}

// Enroll starts the contact on every active sequence listening to trigger.
// A contact already active on a sequence is left alone. It returns the
// number of new enrollments.
func (s *AutomationService) Enroll(ctx context.Context, tenantID, contactID string, trigger domain.TriggerType) (int, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "AutomationService", "Enroll")
	defer span.End()

	contact, err := s.contactRepo.FindContact(ctx, tenantID, contactID)
	if err != nil {
		return 0, fmt.Errorf("failed to find contact: %w", err)
	}
	if contact == nil {
		return 0, &domain.ErrNotFound{Entity: "contact", ID: contactID}
	}

	sequences, err := s.repo.ListActiveSequencesByTrigger(ctx, tenantID, trigger)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return 0, fmt.Errorf("failed to list sequences: %w", err)
	}

	enrolled := 0
	now := time.Now().UTC()
	for _, sequence := range sequences {
		progress := &domain.AutomationContactProgress{
			TenantID:   tenantID,
			ContactID:  contactID,
			SequenceID: sequence.ID,
		}
		sequence.Start(progress, now)

		created, err := s.repo.EnrollContact(ctx, progress)
		if err != nil {
			tracing.MarkSpanError(ctx, err)
			return enrolled, fmt.Errorf("failed to enroll contact in sequence %s: %w", sequence.ID, err)
		}
		if !created {
			continue
		}
		enrolled++

		if err := s.repo.IncrementExecutionCount(ctx, tenantID, sequence.ID); err != nil {
			s.logger.WithField("sequence_id", sequence.ID).Warn(fmt.Sprintf("Failed to increment execution count: %v", err))
		}
		s.recordActivity(ctx, &domain.ActivityEvent{
			TenantID:    tenantID,
			ContactID:   contactID,
			Type:        domain.ActivityAutomationEnrolled,
			Description: fmt.Sprintf("Enrolled in automation %q", sequence.Name),
			Metadata:    domain.MapOfAny{"sequence_id": sequence.ID},
		})
	}

	s.logger.WithFields(map[string]interface{}{
		"tenant_id":  tenantID,
		"contact_id": contactID,
		"trigger":    trigger,
		"enrolled":   enrolled,
	}).Info("Contact enrollment processed")

	return enrolled, nil
}

// ListContactProgress returns the contact's enrollments
func (s *AutomationService) ListContactProgress(ctx context.Context, tenantID, contactID string) ([]*domain.AutomationContactProgress, error) {
	progress, err := s.repo.ListContactProgress(ctx, tenantID, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact progress: %w", err)
	}
	return progress, nil
}

func (s *AutomationService) recordActivity(ctx context.Context, event *domain.ActivityEvent) {
	if s.activityRepo == nil {
		return
	}
	if err := s.activityRepo.CreateActivity(ctx, event); err != nil {
		s.logger.WithField("contact_id", event.ContactID).Warn(fmt.Sprintf("Failed to record activity: %v", err))
	}
}
