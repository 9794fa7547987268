package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination mocks/mock_subscription_repository.go -package mocks github.com/localboost/localboost/internal/domain SubscriptionRepository,TenantRepository

// SubscriptionStatus is the canonical billing state of a tenant
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

// MapProviderStatus converts a billing provider status. Unknown values map to
// active.
func MapProviderStatus(providerStatus string) SubscriptionStatus {
	switch providerStatus {
	case "active":
		return SubscriptionStatusActive
	case "trialing":
		return SubscriptionStatusTrialing
	case "past_due":
		return SubscriptionStatusPastDue
	case "canceled", "unpaid":
		return SubscriptionStatusCanceled
	case "incomplete":
		return SubscriptionStatusIncomplete
	case "incomplete_expired":
		return SubscriptionStatusIncompleteExpired
	default:
		return SubscriptionStatusActive
	}
}

// Billing tags are mutually exclusive on a tenant's self-contact
const (
	TagTrialUser        = "trial_user"
	TagActiveCustomer   = "active_customer"
	TagCanceledCustomer = "canceled_customer"
)

var BillingTags = []string{TagTrialUser, TagActiveCustomer, TagCanceledCustomer}

// BillingTagFor returns the tag carried in a status, if any
func BillingTagFor(status SubscriptionStatus) (string, bool) {
	switch status {
	case SubscriptionStatusTrialing:
		return TagTrialUser, true
	case SubscriptionStatusActive:
		return TagActiveCustomer, true
	case SubscriptionStatusCanceled:
		return TagCanceledCustomer, true
	}
	return "", false
}

// ApplyBillingTag drops every billing tag then adds the one for status. The
// returned bool is false when the resulting set equals the input.
func ApplyBillingTag(tags []string, status SubscriptionStatus) ([]string, bool) {
	out := make([]string, 0, len(tags)+1)
	for _, t := range NormalizeTags(tags) {
		isBilling := false
		for _, bt := range BillingTags {
			if t == bt {
				isBilling = true
				break
			}
		}
		if !isBilling {
			out = append(out, t)
		}
	}
	if tag, ok := BillingTagFor(status); ok {
		out = append(out, tag)
	}
	return out, !SameTags(tags, out)
}

// Subscription is one row per tenant
type Subscription struct {
	TenantID         string             `json:"tenant_id"`
	CustomerID       string             `json:"customer_id"`
	SubscriptionID   string             `json:"subscription_id"`
	PriceID          string             `json:"price_id"`
	Status           SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end,omitempty"`
	TrialEndsAt      *time.Time         `json:"trial_ends_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

type SubscriptionRepository interface {
	// UpsertSubscription inserts or overwrites the row keyed by tenant id
	UpsertSubscription(ctx context.Context, subscription *Subscription) error
	FindSubscriptionByTenant(ctx context.Context, tenantID string) (*Subscription, error)
}

// Tenant is an account of the platform
type Tenant struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	BillingCustomerID string    `json:"billing_customer_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type TenantRepository interface {
	FindTenant(ctx context.Context, id string) (*Tenant, error)
	FindTenantByCustomerID(ctx context.Context, customerID string) (*Tenant, error)
	SetBillingCustomerID(ctx context.Context, tenantID, customerID string) error
}
