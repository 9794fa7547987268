package broadcast

import (
	"context"
	"errors"
	"fmt"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/tracing"
)

// WinnerCheckSummary counts what one winner-check pass did
type WinnerCheckSummary struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// ABTestController runs the two-phase subject-line test: a sample send to
// both variants, then the winner to everyone else
type ABTestController struct {
	repo         domain.BroadcastRepository
	audience     domain.AudienceResolver
	fanout       *FanOutSender
	config       *Config
	timeProvider TimeProvider
	shuffle      ShuffleFunc
	logger       logger.Logger
}

// NewABTestController creates a new A/B test controller
func NewABTestController(
	repo domain.BroadcastRepository,
	audience domain.AudienceResolver,
	fanout *FanOutSender,
	config *Config,
	timeProvider TimeProvider,
	logger logger.Logger,
) *ABTestController {
	if timeProvider == nil {
		timeProvider = NewRealTimeProvider()
	}
	return &ABTestController{
		repo:         repo,
		audience:     audience,
		fanout:       fanout,
		config:       config.withDefaults(),
		timeProvider: timeProvider,
		shuffle:      RandomShuffle,
		logger:       logger,
	}
}

// SetShuffle replaces the sampling order, nil keeps the resolver order
func (c *ABTestController) SetShuffle(shuffle ShuffleFunc) {
	c.shuffle = shuffle
}

// StartTest claims a scheduled A/B broadcast, sends each variant to its half
// of the test sample and schedules the winner check
func (c *ABTestController) StartTest(ctx context.Context, b *domain.Broadcast) (domain.BroadcastStatus, error) {
	if b.AbTest == nil {
		return "", NewBroadcastErrorFor(ErrCodeBroadcastInvalid, "broadcast has no A/B test", b.ID, false, nil)
	}

	if b.AbTest.TestDurationHours <= 0 {
		b.AbTest.TestDurationHours = c.config.DefaultTestDurationHours
	}
	now := c.timeProvider.Now()
	checkAt := addHours(now, b.AbTest.TestDurationHours)

	// the claim carries winner_check_at so a crash mid-sample still ends the test
	b.Status = domain.BroadcastStatusTesting
	b.SentAt = &now
	b.AbTest.WinnerCheckAt = &checkAt
	claimed, err := c.repo.SaveDeliveryState(ctx, b, domain.BroadcastStatusScheduled)
	if err != nil {
		return "", fmt.Errorf("failed to claim broadcast: %w", err)
	}
	if !claimed {
		c.logger.WithField("broadcast_id", b.ID).Debug("Broadcast already claimed, skipping")
		return "", nil
	}

	audience, err := c.audience.ResolveAudience(ctx, b.TenantID, b.Channel, b.AudienceTags)
	if err != nil {
		return markFailed(ctx, c.repo, c.logger, b, domain.BroadcastStatusTesting,
			NewBroadcastErrorFor(ErrCodeAudienceResolve, "failed to resolve audience", b.ID, false, err))
	}
	b.TotalRecipients = len(audience)

	if len(audience) == 0 {
		// nothing to test; close it out instead of waiting for a winner
		return finishDelivery(ctx, c.repo, b, domain.BroadcastStatusTesting)
	}

	sample := SplitAudience(audience, b.AbTest, c.shuffle)
	deliveries := append(
		deliveriesFor(sample.VariantA, domain.VariantA, b.ContentFor(domain.VariantA)),
		deliveriesFor(sample.VariantB, domain.VariantB, b.ContentFor(domain.VariantB))...,
	)

	report, err := c.fanout.Send(ctx, b, domain.RecipientPhaseTest, deliveries)
	b.SentCount = report.Sent
	b.FailedCount = report.Failed
	if err != nil {
		// the winner phase excludes contacts by the ledger; without it the
		// sample would get a second variant
		return markFailed(ctx, c.repo, c.logger, b, domain.BroadcastStatusTesting, err)
	}

	saved, err := c.repo.SaveDeliveryState(ctx, b, domain.BroadcastStatusTesting)
	if err != nil {
		return "", fmt.Errorf("failed to save test state: %w", err)
	}
	if !saved {
		return "", NewBroadcastErrorFor(ErrCodeStateConflict, "broadcast left testing during the sample send", b.ID, false, nil)
	}

	c.logger.WithFields(map[string]interface{}{
		"broadcast_id":    b.ID,
		"variant_a":       len(sample.VariantA),
		"variant_b":       len(sample.VariantB),
		"holdout":         len(sample.Holdout),
		"winner_check_at": checkAt,
	}).Info("A/B test sample sent")

	return domain.BroadcastStatusTesting, nil
}

// DecideWinner compares open rates. Variant A wins ties, including a test
// where neither variant was opened.
func DecideWinner(stats map[domain.Variant]domain.VariantStats) domain.Variant {
	if stats[domain.VariantB].OpenRate() > stats[domain.VariantA].OpenRate() {
		return domain.VariantB
	}
	return domain.VariantA
}

// RunWinnerCheck decides every test whose window elapsed and sends the
// winning content to the rest of the audience
func (c *ABTestController) RunWinnerCheck(ctx context.Context) (*WinnerCheckSummary, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "ABTestController", "RunWinnerCheck")
	defer span.End()

	startTime := c.timeProvider.Now()
	due, err := c.repo.ListDueWinnerChecks(ctx, startTime, c.config.BatchSize)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to list due winner checks: %w", err)
	}

	summary := &WinnerCheckSummary{Due: len(due)}
	for _, b := range due {
		status, err := c.CheckWinner(ctx, b)
		if err != nil {
			summary.Errors++
			c.logger.WithFields(map[string]interface{}{
				"broadcast_id": b.ID,
				"tenant_id":    b.TenantID,
				"error":        err.Error(),
			}).Error("Failed to complete A/B test")
			continue
		}
		var other int
		countStatus(status, &summary.Sent, &summary.Failed, &summary.Skipped, &other)
	}

	c.logger.WithFields(map[string]interface{}{
		"due":     summary.Due,
		"sent":    summary.Sent,
		"failed":  summary.Failed,
		"skipped": summary.Skipped,
		"errors":  summary.Errors,
		"elapsed": c.timeProvider.Since(startTime).String(),
	}).Info("A/B winner check pass finished")

	return summary, nil
}

// CheckWinner completes one test. The winner is written together with the
// testing→sending claim, so a second pass cannot decide again.
func (c *ABTestController) CheckWinner(ctx context.Context, b *domain.Broadcast) (domain.BroadcastStatus, error) {
	if b.AbTest == nil {
		return "", NewBroadcastErrorFor(ErrCodeBroadcastInvalid, "broadcast has no A/B test", b.ID, false, nil)
	}

	stats, err := c.repo.GetVariantStats(ctx, b.ID)
	if err != nil {
		return "", NewBroadcastErrorFor(ErrCodeWinnerMissing, "failed to load variant stats", b.ID, true, err)
	}

	now := c.timeProvider.Now()
	winner := DecideWinner(stats)
	if err := b.AbTest.SetWinner(winner, now); err != nil {
		if !errors.Is(err, domain.ErrWinnerAlreadySet) {
			return "", NewBroadcastErrorFor(ErrCodeWinnerMissing, "failed to set winner", b.ID, false, err)
		}
		winner = *b.AbTest.WinnerVariant
	}

	b.Status = domain.BroadcastStatusSending
	claimed, err := c.repo.SaveDeliveryState(ctx, b, domain.BroadcastStatusTesting)
	if err != nil {
		return "", fmt.Errorf("failed to claim broadcast: %w", err)
	}
	if !claimed {
		c.logger.WithField("broadcast_id", b.ID).Debug("Winner already decided by another pass, skipping")
		return "", nil
	}

	c.logger.WithFields(map[string]interface{}{
		"broadcast_id": b.ID,
		"winner":       winner,
		"open_rate_a":  stats[domain.VariantA].OpenRate(),
		"open_rate_b":  stats[domain.VariantB].OpenRate(),
	}).Info("A/B test winner decided")

	audience, err := c.audience.ResolveAudience(ctx, b.TenantID, b.Channel, b.AudienceTags)
	if err != nil {
		return markFailed(ctx, c.repo, c.logger, b, domain.BroadcastStatusSending,
			NewBroadcastErrorFor(ErrCodeAudienceResolve, "failed to resolve audience", b.ID, false, err))
	}
	already, err := c.repo.ListRecipientContactIDs(ctx, b.ID)
	if err != nil {
		return markFailed(ctx, c.repo, c.logger, b, domain.BroadcastStatusSending,
			NewBroadcastErrorFor(ErrCodeLedgerFailed, "failed to load test recipients", b.ID, false, err))
	}

	remaining := ExcludeContacts(audience, already)
	report, err := c.fanout.Send(ctx, b, domain.RecipientPhaseWinner, deliveriesFor(remaining, winner, b.ContentFor(winner)))
	if err != nil {
		c.logger.WithField("broadcast_id", b.ID).Error(err.Error())
	}

	b.TotalRecipients = len(already) + len(remaining)
	b.SentCount += report.Sent
	b.FailedCount += report.Failed

	return finishDelivery(ctx, c.repo, b, domain.BroadcastStatusSending)
}
