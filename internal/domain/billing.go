package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination mocks/mock_subscription_fetcher.go -package mocks github.com/localboost/localboost/internal/domain SubscriptionFetcher

// BillingEventType lists the provider events the reconciler handles
type BillingEventType string

const (
	BillingEventCheckoutCompleted     BillingEventType = "checkout.session.completed"
	BillingEventSubscriptionCreated   BillingEventType = "customer.subscription.created"
	BillingEventSubscriptionUpdated   BillingEventType = "customer.subscription.updated"
	BillingEventSubscriptionDeleted   BillingEventType = "customer.subscription.deleted"
	BillingEventPaymentSucceeded      BillingEventType = "invoice.payment_succeeded"
	BillingEventPaymentFailed         BillingEventType = "invoice.payment_failed"
	BillingEventSubscriptionTrialEnds BillingEventType = "customer.subscription.trial_will_end"
)

// IsSupported reports whether the reconciler acts on this event type
func (t BillingEventType) IsSupported() bool {
	switch t {
	case BillingEventCheckoutCompleted,
		BillingEventSubscriptionCreated,
		BillingEventSubscriptionUpdated,
		BillingEventSubscriptionDeleted,
		BillingEventPaymentSucceeded,
		BillingEventPaymentFailed,
		BillingEventSubscriptionTrialEnds:
		return true
	}
	return false
}

// ProviderSubscription is the provider-side view of a subscription
type ProviderSubscription struct {
	ID               string
	CustomerID       string
	Status           string
	PriceID          string
	CurrentPeriodEnd *time.Time
	TrialEnd         *time.Time
}

// BillingEvent is a verified provider event reduced to what the reconciler
// reads. TenantID is only set when the event carries it (checkout metadata).
type BillingEvent struct {
	ID             string
	Type           BillingEventType
	CustomerID     string
	TenantID       string
	SubscriptionID string
	Subscription   *ProviderSubscription
	AmountDue      int64
	Currency       string
	InvoiceURL     string
}

// SubscriptionFetcher loads a subscription from the billing provider
type SubscriptionFetcher interface {
	FetchSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
}
