package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/tracing"
)

// SchedulerSummary counts what one scheduler pass did
type SchedulerSummary struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Testing int `json:"testing"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Scheduler picks up due broadcasts and sends them, or hands A/B broadcasts
// to the test controller
type Scheduler struct {
	repo         domain.BroadcastRepository
	audience     domain.AudienceResolver
	fanout       *FanOutSender
	abTest       *ABTestController
	config       *Config
	timeProvider TimeProvider
	logger       logger.Logger
}

// NewScheduler creates a new broadcast scheduler
func NewScheduler(
	repo domain.BroadcastRepository,
	audience domain.AudienceResolver,
	fanout *FanOutSender,
	abTest *ABTestController,
	config *Config,
	timeProvider TimeProvider,
	logger logger.Logger,
) *Scheduler {
	if timeProvider == nil {
		timeProvider = NewRealTimeProvider()
	}
	return &Scheduler{
		repo:         repo,
		audience:     audience,
		fanout:       fanout,
		abTest:       abTest,
		config:       config.withDefaults(),
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Run processes every broadcast whose schedule elapsed. A broadcast that
// errors is logged and left for the next pass; the others still run.
func (s *Scheduler) Run(ctx context.Context) (*SchedulerSummary, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "BroadcastScheduler", "Run")
	defer span.End()

	startTime := s.timeProvider.Now()
	due, err := s.repo.ListDueBroadcasts(ctx, startTime, s.config.BatchSize)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to list due broadcasts: %w", err)
	}

	summary := &SchedulerSummary{Due: len(due)}
	for _, b := range due {
		status, err := s.ProcessBroadcast(ctx, b)
		if err != nil {
			summary.Errors++
			s.logger.WithFields(map[string]interface{}{
				"broadcast_id": b.ID,
				"tenant_id":    b.TenantID,
				"error":        err.Error(),
			}).Error("Failed to process broadcast")
			continue
		}
		countStatus(status, &summary.Sent, &summary.Failed, &summary.Skipped, &summary.Testing)
	}

	tracing.AddAttribute(ctx, "due", summary.Due)
	s.logger.WithFields(map[string]interface{}{
		"due":     summary.Due,
		"sent":    summary.Sent,
		"testing": summary.Testing,
		"failed":  summary.Failed,
		"skipped": summary.Skipped,
		"errors":  summary.Errors,
		"elapsed": s.timeProvider.Since(startTime).String(),
	}).Info("Broadcast scheduler pass finished")

	return summary, nil
}

// ProcessBroadcast sends one due broadcast and returns the status it ended
// in. An empty status means another pass already claimed it.
func (s *Scheduler) ProcessBroadcast(ctx context.Context, b *domain.Broadcast) (domain.BroadcastStatus, error) {
	if b.AbTest != nil {
		return s.abTest.StartTest(ctx, b)
	}

	claimed, err := s.repo.TransitionStatus(ctx, b.TenantID, b.ID, domain.BroadcastStatusScheduled, domain.BroadcastStatusSending)
	if err != nil {
		return "", fmt.Errorf("failed to claim broadcast: %w", err)
	}
	if !claimed {
		s.logger.WithField("broadcast_id", b.ID).Debug("Broadcast already claimed, skipping")
		return "", nil
	}
	b.Status = domain.BroadcastStatusSending

	audience, err := s.audience.ResolveAudience(ctx, b.TenantID, b.Channel, b.AudienceTags)
	if err != nil {
		return markFailed(ctx, s.repo, s.logger, b, domain.BroadcastStatusSending,
			NewBroadcastErrorFor(ErrCodeAudienceResolve, "failed to resolve audience", b.ID, false, err))
	}

	report, err := s.fanout.Send(ctx, b, domain.RecipientPhaseFull, deliveriesFor(audience, "", b.ContentFor(domain.VariantA)))
	if err != nil {
		// the messages went out; counters below stay accurate
		s.logger.WithField("broadcast_id", b.ID).Error(err.Error())
	}

	now := s.timeProvider.Now()
	b.SentAt = &now
	b.TotalRecipients = len(audience)
	b.SentCount = report.Sent
	b.FailedCount = report.Failed

	return finishDelivery(ctx, s.repo, b, domain.BroadcastStatusSending)
}

// finishDelivery moves a broadcast out of expected into sent, or failed when
// every attempted send failed
func finishDelivery(ctx context.Context, repo domain.BroadcastRepository, b *domain.Broadcast, expected domain.BroadcastStatus) (domain.BroadcastStatus, error) {
	b.Status = domain.BroadcastStatusSent
	if b.SentCount == 0 && b.FailedCount > 0 {
		b.Status = domain.BroadcastStatusFailed
		b.ErrorMessage = fmt.Sprintf("all %d sends failed", b.FailedCount)
	}

	saved, err := repo.SaveDeliveryState(ctx, b, expected)
	if err != nil {
		return "", fmt.Errorf("failed to save delivery state: %w", err)
	}
	if !saved {
		return "", NewBroadcastErrorFor(ErrCodeStateConflict, fmt.Sprintf("broadcast left %s during delivery", expected), b.ID, false, nil)
	}
	return b.Status, nil
}

// markFailed records cause on the broadcast and moves it to failed
func markFailed(ctx context.Context, repo domain.BroadcastRepository, log logger.Logger, b *domain.Broadcast, expected domain.BroadcastStatus, cause error) (domain.BroadcastStatus, error) {
	log.WithFields(map[string]interface{}{
		"broadcast_id": b.ID,
		"error":        cause.Error(),
	}).Error("Broadcast failed")

	b.Status = domain.BroadcastStatusFailed
	b.ErrorMessage = cause.Error()
	saved, err := repo.SaveDeliveryState(ctx, b, expected)
	if err != nil {
		return "", fmt.Errorf("failed to mark broadcast failed: %w", err)
	}
	if !saved {
		return "", NewBroadcastErrorFor(ErrCodeStateConflict, "broadcast changed before it could be failed", b.ID, false, cause)
	}
	return domain.BroadcastStatusFailed, nil
}

func countStatus(status domain.BroadcastStatus, sent, failed, skipped, other *int) {
	switch status {
	case domain.BroadcastStatusSent:
		*sent++
	case domain.BroadcastStatusFailed:
		*failed++
	case "":
		*skipped++
	default:
		*other++
	}
}

// addHours returns t shifted by whole hours
func addHours(t time.Time, hours int) time.Time {
	return t.Add(time.Duration(hours) * time.Hour)
}
