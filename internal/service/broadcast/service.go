package broadcast

import (
	"context"
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/liquid"
	"github.com/localboost/localboost/pkg/logger"
)

// Service is the broadcast composer: drafts, scheduling and open tracking
type Service struct {
	repo         domain.BroadcastRepository
	config       *Config
	timeProvider TimeProvider
	logger       logger.Logger
}

// NewService creates a new broadcast composer service
func NewService(repo domain.BroadcastRepository, config *Config, timeProvider TimeProvider, logger logger.Logger) *Service {
	if timeProvider == nil {
		timeProvider = NewRealTimeProvider()
	}
	return &Service{
		repo:         repo,
		config:       config.withDefaults(),
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// CreateBroadcast validates a composer payload and stores it as a draft
func (s *Service) CreateBroadcast(ctx context.Context, req *domain.CreateBroadcastRequest) (*domain.Broadcast, error) {
	if req.TenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	if _, err := govalidator.ValidateStruct(req); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	b := &domain.Broadcast{
		TenantID:     req.TenantID,
		Name:         strings.TrimSpace(req.Name),
		Channel:      req.Channel,
		AudienceTags: domain.NormalizeTags(req.AudienceTags),
		Content:      domain.BroadcastContents(req.Content),
		Status:       domain.BroadcastStatusDraft,
	}
	if req.ABTest {
		hours := req.TestDurationHours
		if hours <= 0 {
			hours = s.config.DefaultTestDurationHours
		}
		b.AbTest = domain.NewAbTestConfig(hours)
	}

	if err := b.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	for i, content := range b.Content {
		if err := liquid.Validate(content.Subject); err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("content[%d] subject: %s", i, err.Error()))
		}
		if err := liquid.Validate(content.Body); err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("content[%d] body: %s", i, err.Error()))
		}
	}

	if err := s.repo.CreateBroadcast(ctx, b); err != nil {
		s.logger.WithField("tenant_id", req.TenantID).Error(fmt.Sprintf("Failed to create broadcast: %v", err))
		return nil, fmt.Errorf("failed to create broadcast: %w", err)
	}
	return b, nil
}

// GetBroadcast returns a broadcast or ErrNotFound
func (s *Service) GetBroadcast(ctx context.Context, tenantID, id string) (*domain.Broadcast, error) {
	b, err := s.repo.GetBroadcast(ctx, tenantID, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get broadcast: %w", err)
	}
	return b, nil
}

// ListBroadcasts pages through a tenant's broadcasts, newest first
func (s *Service) ListBroadcasts(ctx context.Context, filter domain.ListBroadcastsFilter) ([]*domain.Broadcast, int, error) {
	if filter.TenantID == "" {
		return nil, 0, domain.NewValidationError("tenant_id is required")
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	list, total, err := s.repo.ListBroadcasts(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list broadcasts: %w", err)
	}
	return list, total, nil
}

// ScheduleBroadcast moves a draft to scheduled. A missing time means now;
// the next scheduler pass then sends it.
func (s *Service) ScheduleBroadcast(ctx context.Context, req *domain.ScheduleBroadcastRequest) (*domain.Broadcast, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	b, err := s.GetBroadcast(ctx, req.TenantID, req.ID)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransitionTo(domain.BroadcastStatusScheduled) {
		return nil, &domain.ErrInvalidTransition{Entity: "broadcast", ID: b.ID, From: string(b.Status), To: string(domain.BroadcastStatusScheduled)}
	}

	at := s.timeProvider.Now()
	if req.ScheduledAt != nil {
		at = req.ScheduledAt.UTC()
	}
	b.ScheduledAt = &at
	if err := s.repo.UpdateBroadcast(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to set schedule: %w", err)
	}

	moved, err := s.repo.TransitionStatus(ctx, b.TenantID, b.ID, domain.BroadcastStatusDraft, domain.BroadcastStatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule broadcast: %w", err)
	}
	if !moved {
		return nil, &domain.ErrInvalidTransition{Entity: "broadcast", ID: b.ID, From: string(b.Status), To: string(domain.BroadcastStatusScheduled)}
	}
	b.Status = domain.BroadcastStatusScheduled

	s.logger.WithFields(map[string]interface{}{
		"broadcast_id": b.ID,
		"scheduled_at": at,
	}).Info("Broadcast scheduled")
	return b, nil
}

// CancelBroadcast returns a scheduled broadcast to draft. Broadcasts that
// already started cannot be cancelled.
func (s *Service) CancelBroadcast(ctx context.Context, tenantID, id string) (*domain.Broadcast, error) {
	moved, err := s.repo.TransitionStatus(ctx, tenantID, id, domain.BroadcastStatusScheduled, domain.BroadcastStatusDraft)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel broadcast: %w", err)
	}

	b, err := s.GetBroadcast(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, &domain.ErrInvalidTransition{Entity: "broadcast", ID: id, From: string(b.Status), To: string(domain.BroadcastStatusDraft)}
	}
	return b, nil
}

// RecordOpen stamps the first open of a recipient. Unknown ids are ignored.
func (s *Service) RecordOpen(ctx context.Context, recipientID string) (bool, error) {
	if recipientID == "" {
		return false, nil
	}
	opened, err := s.repo.RecordOpen(ctx, recipientID, s.timeProvider.Now())
	if err != nil {
		return false, fmt.Errorf("failed to record open: %w", err)
	}
	return opened, nil
}
