package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/liquid"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/tracing"
)

// AutomationEngineConfig tunes one engine pass
type AutomationEngineConfig struct {
	BatchSize   int
	Parallelism int
	// ClaimLease hides claimed rows from overlapping passes
	ClaimLease time.Duration
	// RetryDelay postpones a row whose send failed
	RetryDelay time.Duration
	Now        func() time.Time
}

func (c *AutomationEngineConfig) setDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 1
	}
	if c.ClaimLease <= 0 {
		c.ClaimLease = 5 * time.Minute
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 15 * time.Minute
	}
	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}
}

// AutomationRunSummary counts what one pass did
type AutomationRunSummary struct {
	Claimed   int `json:"claimed"`
	Sent      int `json:"sent"`
	Advanced  int `json:"advanced"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

type stepOutcome int

const (
	outcomeAdvanced stepOutcome = iota
	outcomeSent
	outcomeCompleted
	outcomeFailed
)

// AutomationEngine advances enrolled contacts through their sequences
type AutomationEngine struct {
	repo         domain.AutomationRepository
	contactRepo  domain.ContactRepository
	activityRepo domain.ActivityRepository
	sender       domain.MessageSender
	config       AutomationEngineConfig
	logger       logger.Logger
}

func NewAutomationEngine(
	repo domain.AutomationRepository,
	contactRepo domain.ContactRepository,
	activityRepo domain.ActivityRepository,
	sender domain.MessageSender,
	config AutomationEngineConfig,
	logger logger.Logger,
) *AutomationEngine {
	config.setDefaults()
	return &AutomationEngine{
		repo:         repo,
		contactRepo:  contactRepo,
		activityRepo: activityRepo,
		sender:       sender,
		config:       config,
		logger:       logger,
	}
}

// sequenceCache loads each sequence once per pass
type sequenceCache struct {
	mu    sync.Mutex
	repo  domain.AutomationRepository
	items map[string]*domain.AutomationSequence
}

// get returns nil when the sequence no longer exists
func (c *sequenceCache) get(ctx context.Context, tenantID, id string) (*domain.AutomationSequence, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq, ok := c.items[id]; ok {
		return seq, nil
	}
	seq, err := c.repo.GetSequence(ctx, tenantID, id)
	if err != nil {
		if domain.IsNotFound(err) {
			c.items[id] = nil
			return nil, nil
		}
		return nil, err
	}
	c.items[id] = seq
	return seq, nil
}

// Run processes every due progress row once. Rows are independent: a failure
// on one is logged and the pass continues.
func (e *AutomationEngine) Run(ctx context.Context) (*AutomationRunSummary, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "AutomationEngine", "Run")
	defer span.End()

	now := e.config.Now()
	rows, err := e.repo.ClaimDueProgress(ctx, now, e.config.ClaimLease, e.config.BatchSize)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to claim due progress: %w", err)
	}

	summary := &AutomationRunSummary{Claimed: len(rows)}
	cache := &sequenceCache{repo: e.repo, items: make(map[string]*domain.AutomationSequence)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Parallelism)

	for _, row := range rows {
		row := row
		g.Go(func() error {
			outcome, err := e.processProgress(gctx, cache, row)
			if err != nil {
				e.logger.WithFields(map[string]interface{}{
					"progress_id": row.ID,
					"contact_id":  row.ContactID,
					"sequence_id": row.SequenceID,
					"error":       err.Error(),
				}).Error("Failed to process automation progress")
				outcome = outcomeFailed
			}

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case outcomeSent:
				summary.Sent++
			case outcomeAdvanced:
				summary.Advanced++
			case outcomeCompleted:
				summary.Completed++
			case outcomeFailed:
				summary.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	tracing.AddAttribute(ctx, "claimed", summary.Claimed)
	e.logger.WithFields(map[string]interface{}{
		"claimed":   summary.Claimed,
		"sent":      summary.Sent,
		"advanced":  summary.Advanced,
		"completed": summary.Completed,
		"failed":    summary.Failed,
		"elapsed":   time.Since(now).String(),
	}).Info("Automation engine pass finished")

	return summary, nil
}

func (e *AutomationEngine) processProgress(ctx context.Context, cache *sequenceCache, progress *domain.AutomationContactProgress) (stepOutcome, error) {
	now := e.config.Now()

	sequence, err := cache.get(ctx, progress.TenantID, progress.SequenceID)
	if err != nil {
		return outcomeFailed, fmt.Errorf("failed to load sequence: %w", err)
	}
	if sequence == nil {
		return e.complete(ctx, progress, now, domain.CompletionSequenceChanged)
	}

	contact, err := e.contactRepo.FindContact(ctx, progress.TenantID, progress.ContactID)
	if err != nil {
		return outcomeFailed, fmt.Errorf("failed to load contact: %w", err)
	}
	if contact == nil {
		return e.complete(ctx, progress, now, domain.CompletionContactMissing)
	}
	if contact.Unsubscribed {
		return e.complete(ctx, progress, now, domain.CompletionUnsubscribed)
	}

	if progress.CurrentStepID == nil {
		if first := sequence.StepAt(0); first != nil && first.Action == domain.StepActionWait {
			sequence.Start(progress, now)
			if err := e.repo.UpdateProgress(ctx, progress); err != nil {
				return outcomeFailed, fmt.Errorf("failed to update progress: %w", err)
			}
			return outcomeAdvanced, nil
		}
	}

	index := 0
	if progress.CurrentStepID != nil {
		index = sequence.StepIndex(*progress.CurrentStepID)
		if index < 0 {
			return e.complete(ctx, progress, now, domain.CompletionSequenceChanged)
		}
	}
	step := sequence.StepAt(index)
	if step == nil {
		return e.complete(ctx, progress, now, domain.CompletionFinished)
	}

	if step.Action == domain.StepActionWait {
		// the delay was applied when the step became current
		next := sequence.StepAt(index + 1)
		if next == nil {
			return e.complete(ctx, progress, now, domain.CompletionFinished)
		}
		progress.CurrentStepID = &next.ID
		progress.NextStepAt = now
		if err := e.repo.UpdateProgress(ctx, progress); err != nil {
			return outcomeFailed, fmt.Errorf("failed to update progress: %w", err)
		}
		return outcomeAdvanced, nil
	}

	channel, _ := step.Action.Channel()
	if contact.Address(channel) == "" {
		e.logger.WithFields(map[string]interface{}{
			"progress_id": progress.ID,
			"contact_id":  contact.ID,
			"channel":     channel,
		}).Warn("Contact has no address for step channel, skipping step")
		return e.advanceAfterSend(ctx, sequence, progress, index, now, outcomeAdvanced)
	}

	result := e.send(ctx, channel, step, contact)
	if !result.Success && result.Permanent {
		e.logger.WithFields(map[string]interface{}{
			"progress_id": progress.ID,
			"step_id":     step.ID,
			"error":       result.Error,
		}).Warn("Recipient refused by provider, skipping step")
		return e.advanceAfterSend(ctx, sequence, progress, index, now, outcomeFailed)
	}
	if !result.Success {
		e.logger.WithFields(map[string]interface{}{
			"progress_id": progress.ID,
			"step_id":     step.ID,
			"error":       result.Error,
		}).Warn("Automation step send failed, retrying later")
		progress.NextStepAt = now.Add(e.config.RetryDelay)
		if err := e.repo.UpdateProgress(ctx, progress); err != nil {
			return outcomeFailed, fmt.Errorf("failed to update progress: %w", err)
		}
		return outcomeFailed, nil
	}

	return e.advanceAfterSend(ctx, sequence, progress, index, now, outcomeSent)
}

// advanceAfterSend moves to the following step. A following wait step becomes
// current with its delay applied; anything else is due immediately.
func (e *AutomationEngine) advanceAfterSend(ctx context.Context, sequence *domain.AutomationSequence, progress *domain.AutomationContactProgress, index int, now time.Time, outcome stepOutcome) (stepOutcome, error) {
	next := sequence.StepAt(index + 1)
	if next == nil {
		if _, err := e.complete(ctx, progress, now, domain.CompletionFinished); err != nil {
			return outcomeFailed, err
		}
		return outcome, nil
	}

	progress.CurrentStepID = &next.ID
	if next.Action == domain.StepActionWait {
		progress.NextStepAt = now.Add(next.WaitDuration())
	} else {
		progress.NextStepAt = now
	}

	if err := e.repo.UpdateProgress(ctx, progress); err != nil {
		return outcomeFailed, fmt.Errorf("failed to update progress: %w", err)
	}
	return outcome, nil
}

func (e *AutomationEngine) send(ctx context.Context, channel domain.Channel, step *domain.AutomationStep, contact *domain.Contact) domain.SendResult {
	data := contact.TemplateData()

	body, err := liquid.Render(step.Body, data)
	if err != nil {
		return domain.SendResult{Success: false, Error: err.Error()}
	}

	if channel == domain.ChannelSMS {
		return e.sender.SendSMS(ctx, contact.Address(channel), body)
	}

	subject, err := liquid.Render(step.Subject, data)
	if err != nil {
		return domain.SendResult{Success: false, Error: err.Error()}
	}
	return e.sender.SendEmail(ctx, contact.Address(channel), subject, body)
}

func (e *AutomationEngine) complete(ctx context.Context, progress *domain.AutomationContactProgress, now time.Time, reason string) (stepOutcome, error) {
	progress.Complete(now, reason)
	if err := e.repo.UpdateProgress(ctx, progress); err != nil {
		return outcomeFailed, fmt.Errorf("failed to complete progress: %w", err)
	}

	if e.activityRepo != nil && reason != domain.CompletionContactMissing {
		err := e.activityRepo.CreateActivity(ctx, &domain.ActivityEvent{
			TenantID:    progress.TenantID,
			ContactID:   progress.ContactID,
			Type:        domain.ActivityAutomationCompleted,
			Description: fmt.Sprintf("Automation finished (%s)", reason),
			Metadata:    domain.MapOfAny{"sequence_id": progress.SequenceID, "reason": reason},
			CreatedAt:   now,
		})
		if err != nil {
			e.logger.WithField("progress_id", progress.ID).Warn(fmt.Sprintf("Failed to record activity: %v", err))
		}
	}
	return outcomeCompleted, nil
}
