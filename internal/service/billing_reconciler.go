package service

import (
	"context"
	"fmt"
	"time"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/mailer"
	"github.com/localboost/localboost/pkg/tracing"
)

// BillingReconciler mirrors billing provider events into subscriptions and
// the billing tags of each tenant's self-contact
type BillingReconciler struct {
	subscriptionRepo domain.SubscriptionRepository
	tenantRepo       domain.TenantRepository
	contactRepo      domain.ContactRepository
	activityRepo     domain.ActivityRepository
	fetcher          domain.SubscriptionFetcher
	mailer           mailer.Mailer
	logger           logger.Logger
}

func NewBillingReconciler(
	subscriptionRepo domain.SubscriptionRepository,
	tenantRepo domain.TenantRepository,
	contactRepo domain.ContactRepository,
	activityRepo domain.ActivityRepository,
	fetcher domain.SubscriptionFetcher,
	m mailer.Mailer,
	logger logger.Logger,
) *BillingReconciler {
	return &BillingReconciler{
		subscriptionRepo: subscriptionRepo,
		tenantRepo:       tenantRepo,
		contactRepo:      contactRepo,
		activityRepo:     activityRepo,
		fetcher:          fetcher,
		mailer:           m,
		logger:           logger,
	}
}

// HandleEvent applies one verified event. Unsupported event types are
// ignored. Notification failures are logged and never returned.
func (r *BillingReconciler) HandleEvent(ctx context.Context, event *domain.BillingEvent) error {
	ctx, span := tracing.StartServiceSpan(ctx, "BillingReconciler", "HandleEvent")
	defer span.End()
	tracing.AddAttribute(ctx, "event_type", string(event.Type))

	log := r.logger.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	if !event.Type.IsSupported() {
		log.Debug("Ignoring unsupported billing event")
		return nil
	}

	var err error
	switch event.Type {
	case domain.BillingEventCheckoutCompleted:
		err = r.handleCheckoutCompleted(ctx, event)
	case domain.BillingEventSubscriptionCreated, domain.BillingEventSubscriptionUpdated:
		err = r.handleSubscriptionChange(ctx, event, "")
	case domain.BillingEventSubscriptionDeleted:
		err = r.handleSubscriptionChange(ctx, event, domain.SubscriptionStatusCanceled)
	case domain.BillingEventPaymentSucceeded, domain.BillingEventPaymentFailed:
		err = r.handleInvoice(ctx, event)
	case domain.BillingEventSubscriptionTrialEnds:
		err = r.handleTrialWillEnd(ctx, event)
	}

	if err != nil {
		tracing.MarkSpanError(ctx, err)
		log.WithField("error", err.Error()).Error("Failed to reconcile billing event")
		return err
	}
	log.Info("Billing event reconciled")
	return nil
}

func (r *BillingReconciler) handleCheckoutCompleted(ctx context.Context, event *domain.BillingEvent) error {
	if event.TenantID == "" {
		return fmt.Errorf("checkout session %s carries no tenant id", event.ID)
	}
	tenant, err := r.tenantRepo.FindTenant(ctx, event.TenantID)
	if err != nil {
		return fmt.Errorf("failed to find tenant: %w", err)
	}
	if tenant == nil {
		return fmt.Errorf("tenant %s not found", event.TenantID)
	}

	if event.CustomerID != "" && tenant.BillingCustomerID != event.CustomerID {
		if err := r.tenantRepo.SetBillingCustomerID(ctx, tenant.ID, event.CustomerID); err != nil {
			return fmt.Errorf("failed to link billing customer: %w", err)
		}
	}

	if event.SubscriptionID == "" {
		return nil
	}
	sub, err := r.fetchSubscription(ctx, event)
	if err != nil {
		return err
	}
	return r.apply(ctx, tenant.ID, sub, "")
}

func (r *BillingReconciler) handleSubscriptionChange(ctx context.Context, event *domain.BillingEvent, override domain.SubscriptionStatus) error {
	tenantID, err := r.resolveTenant(ctx, event)
	if err != nil {
		return err
	}
	sub, err := r.fetchSubscription(ctx, event)
	if err != nil {
		return err
	}
	return r.apply(ctx, tenantID, sub, override)
}

func (r *BillingReconciler) handleInvoice(ctx context.Context, event *domain.BillingEvent) error {
	tenantID, err := r.resolveTenant(ctx, event)
	if err != nil {
		return err
	}

	if event.SubscriptionID != "" {
		sub, err := r.fetchSubscription(ctx, event)
		if err != nil {
			return err
		}
		if err := r.apply(ctx, tenantID, sub, ""); err != nil {
			return err
		}
	}

	if event.Type == domain.BillingEventPaymentFailed {
		r.notify(ctx, tenantID, func(tenant *domain.Tenant) error {
			return r.mailer.SendPaymentFailedNotice(ctx, tenant.Email, tenant.Name, event.InvoiceURL)
		})
	}
	return nil
}

func (r *BillingReconciler) handleTrialWillEnd(ctx context.Context, event *domain.BillingEvent) error {
	tenantID, err := r.resolveTenant(ctx, event)
	if err != nil {
		return err
	}
	sub, err := r.fetchSubscription(ctx, event)
	if err != nil {
		return err
	}
	if err := r.apply(ctx, tenantID, sub, ""); err != nil {
		return err
	}

	if sub.TrialEnd != nil {
		r.notify(ctx, tenantID, func(tenant *domain.Tenant) error {
			return r.mailer.SendTrialEndingNotice(ctx, tenant.Email, tenant.Name, *sub.TrialEnd)
		})
	}
	return nil
}

// resolveTenant maps the event's customer id to a tenant, falling back to the
// tenant id carried in subscription metadata
func (r *BillingReconciler) resolveTenant(ctx context.Context, event *domain.BillingEvent) (string, error) {
	if event.CustomerID != "" {
		tenant, err := r.tenantRepo.FindTenantByCustomerID(ctx, event.CustomerID)
		if err != nil {
			return "", fmt.Errorf("failed to find tenant by customer: %w", err)
		}
		if tenant != nil {
			return tenant.ID, nil
		}
	}
	if event.TenantID != "" {
		if event.CustomerID != "" {
			if err := r.tenantRepo.SetBillingCustomerID(ctx, event.TenantID, event.CustomerID); err != nil {
				return "", fmt.Errorf("failed to link billing customer: %w", err)
			}
		}
		return event.TenantID, nil
	}
	return "", fmt.Errorf("no tenant for billing customer %q", event.CustomerID)
}

func (r *BillingReconciler) fetchSubscription(ctx context.Context, event *domain.BillingEvent) (*domain.ProviderSubscription, error) {
	if event.Subscription != nil {
		return event.Subscription, nil
	}
	if event.SubscriptionID == "" {
		return nil, fmt.Errorf("event %s references no subscription", event.ID)
	}
	if r.fetcher == nil {
		return nil, fmt.Errorf("no subscription fetcher configured")
	}
	sub, err := r.fetcher.FetchSubscription(ctx, event.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *BillingReconciler) apply(ctx context.Context, tenantID string, sub *domain.ProviderSubscription, override domain.SubscriptionStatus) error {
	status := domain.MapProviderStatus(sub.Status)
	if override != "" {
		status = override
	}
	if err := r.SaveSubscription(ctx, tenantID, sub, status); err != nil {
		return err
	}
	if _, err := r.UpdateContactTags(ctx, tenantID, status, sub.CustomerID); err != nil {
		return err
	}
	return nil
}

// SaveSubscription upserts the tenant's subscription row. A subscription
// without a price id is rejected.
func (r *BillingReconciler) SaveSubscription(ctx context.Context, tenantID string, sub *domain.ProviderSubscription, status domain.SubscriptionStatus) error {
	if sub.PriceID == "" {
		return fmt.Errorf("subscription %s has no price id", sub.ID)
	}

	now := time.Now().UTC()
	record := &domain.Subscription{
		TenantID:         tenantID,
		CustomerID:       sub.CustomerID,
		SubscriptionID:   sub.ID,
		PriceID:          sub.PriceID,
		Status:           status,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
		TrialEndsAt:      sub.TrialEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := r.subscriptionRepo.UpsertSubscription(ctx, record); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// UpdateContactTags swaps the billing tag on the tenant's self-contact and
// logs an activity entry when the tag set changed. It reports whether the
// tags changed.
func (r *BillingReconciler) UpdateContactTags(ctx context.Context, tenantID string, status domain.SubscriptionStatus, customerID string) (bool, error) {
	tenant, err := r.tenantRepo.FindTenant(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to find tenant: %w", err)
	}
	if tenant == nil {
		return false, fmt.Errorf("tenant %s not found", tenantID)
	}
	if tenant.Email == "" {
		return false, fmt.Errorf("tenant %s has no email", tenantID)
	}

	contact, err := r.contactRepo.FindContactByEmail(ctx, tenantID, tenant.Email)
	if err != nil {
		return false, fmt.Errorf("failed to find tenant contact: %w", err)
	}
	if contact == nil {
		contact = &domain.Contact{
			TenantID: tenantID,
			Name:     tenant.Name,
			Email:    tenant.Email,
			Tags:     []string{},
		}
		if err := r.contactRepo.CreateContact(ctx, contact); err != nil {
			return false, fmt.Errorf("failed to create tenant contact: %w", err)
		}
	}

	previous := contact.Tags
	tags, changed := domain.ApplyBillingTag(previous, status)
	if !changed {
		return false, nil
	}

	metadata := domain.MapOfAny{
		"status":        string(status),
		"previous_tags": previous,
		"tags":          tags,
	}
	if customerID != "" {
		metadata["customer_id"] = customerID
	}
	// the entry is written before the tags: a failed event is retried only
	// while the tags still differ
	err = r.activityRepo.CreateActivity(ctx, &domain.ActivityEvent{
		TenantID:    tenantID,
		ContactID:   contact.ID,
		Type:        domain.ActivityBillingStatusChanged,
		Description: fmt.Sprintf("Billing status changed to %s", status),
		Metadata:    metadata,
	})
	if err != nil {
		return false, fmt.Errorf("failed to record billing activity: %w", err)
	}

	if err := r.contactRepo.UpdateContactTags(ctx, tenantID, contact.ID, tags); err != nil {
		return false, fmt.Errorf("failed to update contact tags: %w", err)
	}
	return true, nil
}

// notify sends a best-effort notice to the tenant owner
func (r *BillingReconciler) notify(ctx context.Context, tenantID string, send func(*domain.Tenant) error) {
	if r.mailer == nil {
		return
	}
	tenant, err := r.tenantRepo.FindTenant(ctx, tenantID)
	if err != nil || tenant == nil || tenant.Email == "" {
		r.logger.WithField("tenant_id", tenantID).Warn("Cannot resolve tenant email for billing notice")
		return
	}
	if err := send(tenant); err != nil {
		r.logger.WithFields(map[string]interface{}{
			"tenant_id": tenantID,
			"error":     err.Error(),
		}).Warn("Failed to send billing notice")
	}
}
