package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/tidwall/gjson"

	"github.com/localboost/localboost/internal/domain"
)

// ErrInvalidSignature is returned when a webhook payload fails verification
var ErrInvalidSignature = errors.New("invalid webhook signature")

// StripeEventParser verifies Stripe webhook deliveries and reduces them to
// billing events
type StripeEventParser struct {
	secret    string
	tolerance time.Duration
}

func NewStripeEventParser(secret string, tolerance time.Duration) *StripeEventParser {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeEventParser{secret: secret, tolerance: tolerance}
}

// Parse verifies the Stripe-Signature header and decodes the event
func (p *StripeEventParser) Parse(payload []byte, signature string) (*domain.BillingEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
		Tolerance:                p.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data", event.ID)
	}
	return NormalizeStripeEvent(event.ID, string(event.Type), event.Data.Raw), nil
}

// NormalizeStripeEvent maps the data.object of a Stripe event onto a
// BillingEvent. Fields absent from the object stay empty.
func NormalizeStripeEvent(id, eventType string, object []byte) *domain.BillingEvent {
	obj := gjson.ParseBytes(object)
	ev := &domain.BillingEvent{
		ID:         id,
		Type:       domain.BillingEventType(eventType),
		CustomerID: obj.Get("customer").String(),
	}

	switch ev.Type {
	case domain.BillingEventCheckoutCompleted:
		ev.SubscriptionID = obj.Get("subscription").String()
		ev.TenantID = obj.Get("client_reference_id").String()
		if ev.TenantID == "" {
			ev.TenantID = obj.Get("metadata.tenant_id").String()
		}

	case domain.BillingEventSubscriptionCreated,
		domain.BillingEventSubscriptionUpdated,
		domain.BillingEventSubscriptionDeleted,
		domain.BillingEventSubscriptionTrialEnds:
		ev.SubscriptionID = obj.Get("id").String()
		ev.TenantID = obj.Get("metadata.tenant_id").String()
		ev.Subscription = &domain.ProviderSubscription{
			ID:               ev.SubscriptionID,
			CustomerID:       ev.CustomerID,
			Status:           obj.Get("status").String(),
			PriceID:          obj.Get("items.data.0.price.id").String(),
			CurrentPeriodEnd: unixTime(obj.Get("current_period_end")),
			TrialEnd:         unixTime(obj.Get("trial_end")),
		}

	case domain.BillingEventPaymentSucceeded, domain.BillingEventPaymentFailed:
		ev.SubscriptionID = obj.Get("subscription").String()
		ev.AmountDue = obj.Get("amount_due").Int()
		ev.Currency = obj.Get("currency").String()
		ev.InvoiceURL = obj.Get("hosted_invoice_url").String()
	}

	return ev
}

func unixTime(v gjson.Result) *time.Time {
	if !v.Exists() || v.Int() == 0 {
		return nil
	}
	t := time.Unix(v.Int(), 0).UTC()
	return &t
}

// StripeSubscriptionFetcher loads subscriptions through the Stripe API
type StripeSubscriptionFetcher struct {
	api *client.API
}

func NewStripeSubscriptionFetcher(secretKey string) *StripeSubscriptionFetcher {
	return &StripeSubscriptionFetcher{api: client.New(secretKey, nil)}
}

func (f *StripeSubscriptionFetcher) FetchSubscription(ctx context.Context, subscriptionID string) (*domain.ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := f.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription %s: %w", subscriptionID, err)
	}
	return subscriptionFromStripe(sub), nil
}

func subscriptionFromStripe(sub *stripe.Subscription) *domain.ProviderSubscription {
	out := &domain.ProviderSubscription{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		out.CurrentPeriodEnd = &t
	}
	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0).UTC()
		out.TrialEnd = &t
	}
	return out
}
