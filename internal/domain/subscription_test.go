package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapProviderStatus(t *testing.T) {
	tests := map[string]SubscriptionStatus{
		"active":             SubscriptionStatusActive,
		"trialing":           SubscriptionStatusTrialing,
		"past_due":           SubscriptionStatusPastDue,
		"canceled":           SubscriptionStatusCanceled,
		"unpaid":             SubscriptionStatusCanceled,
		"incomplete":         SubscriptionStatusIncomplete,
		"incomplete_expired": SubscriptionStatusIncompleteExpired,
		"paused":             SubscriptionStatusActive,
		"":                   SubscriptionStatusActive,
	}

	for provider, want := range tests {
		t.Run(provider, func(t *testing.T) {
			assert.Equal(t, want, MapProviderStatus(provider))
		})
	}
}

func TestBillingTagFor(t *testing.T) {
	tag, ok := BillingTagFor(SubscriptionStatusTrialing)
	assert.True(t, ok)
	assert.Equal(t, TagTrialUser, tag)

	tag, ok = BillingTagFor(SubscriptionStatusActive)
	assert.True(t, ok)
	assert.Equal(t, TagActiveCustomer, tag)

	tag, ok = BillingTagFor(SubscriptionStatusCanceled)
	assert.True(t, ok)
	assert.Equal(t, TagCanceledCustomer, tag)

	for _, s := range []SubscriptionStatus{SubscriptionStatusPastDue, SubscriptionStatusIncomplete, SubscriptionStatusIncompleteExpired} {
		_, ok := BillingTagFor(s)
		assert.False(t, ok, string(s))
	}
}

func TestApplyBillingTag(t *testing.T) {
	t.Run("adds tag", func(t *testing.T) {
		tags, changed := ApplyBillingTag([]string{"lead"}, SubscriptionStatusTrialing)
		assert.True(t, changed)
		assert.Equal(t, []string{"lead", TagTrialUser}, tags)
	})

	t.Run("swaps mutually exclusive tag", func(t *testing.T) {
		tags, changed := ApplyBillingTag([]string{TagTrialUser, "lead"}, SubscriptionStatusActive)
		assert.True(t, changed)
		assert.Equal(t, []string{"lead", TagActiveCustomer}, tags)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		tags, changed := ApplyBillingTag([]string{TagActiveCustomer, "lead"}, SubscriptionStatusActive)
		assert.False(t, changed)
		assert.ElementsMatch(t, []string{"lead", TagActiveCustomer}, tags)
	})

	t.Run("past_due removes billing tags", func(t *testing.T) {
		tags, changed := ApplyBillingTag([]string{TagActiveCustomer}, SubscriptionStatusPastDue)
		assert.True(t, changed)
		assert.Empty(t, tags)
	})

	t.Run("incomplete with no billing tag", func(t *testing.T) {
		_, changed := ApplyBillingTag([]string{"lead"}, SubscriptionStatusIncomplete)
		assert.False(t, changed)
	})
}

func TestBillingEventType_IsSupported(t *testing.T) {
	assert.True(t, BillingEventCheckoutCompleted.IsSupported())
	assert.True(t, BillingEventSubscriptionTrialEnds.IsSupported())
	assert.False(t, BillingEventType("charge.refunded").IsSupported())
}
