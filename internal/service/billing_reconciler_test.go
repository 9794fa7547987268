package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/internal/domain/mocks"
	"github.com/localboost/localboost/internal/repository/memstore"
	"github.com/localboost/localboost/pkg/logger"
	pkgmocks "github.com/localboost/localboost/pkg/mocks"
)

type billingFixture struct {
	subscriptions *memstore.SubscriptionStore
	tenants       *memstore.TenantStore
	contacts      *memstore.ContactStore
	activity      *memstore.ActivityStore
	fetcher       *mocks.MockSubscriptionFetcher
	mailer        *pkgmocks.MockMailer
	reconciler    *BillingReconciler
}

func newBillingFixture(t *testing.T, ctrl *gomock.Controller) *billingFixture {
	f := &billingFixture{
		subscriptions: memstore.NewSubscriptionStore(),
		tenants: memstore.NewTenantStore(
			&domain.Tenant{ID: "t1", Email: "owner@bakery.example", Name: "Corner Bakery", BillingCustomerID: "cus_1"},
			&domain.Tenant{ID: "t2", Email: "owner@florist.example", Name: "Florist"},
		),
		contacts: memstore.NewContactStore(),
		activity: memstore.NewActivityStore(),
		fetcher:  mocks.NewMockSubscriptionFetcher(ctrl),
		mailer:   pkgmocks.NewMockMailer(ctrl),
	}
	f.reconciler = NewBillingReconciler(f.subscriptions, f.tenants, f.contacts, f.activity, f.fetcher, f.mailer, logger.NewTestLogger(t))
	return f
}

func (f *billingFixture) selfContact(t *testing.T, tenantID, email string) *domain.Contact {
	t.Helper()
	contact, err := f.contacts.FindContactByEmail(context.Background(), tenantID, email)
	require.NoError(t, err)
	require.NotNil(t, contact)
	return contact
}

func (f *billingFixture) billingActivity(t *testing.T, tenantID, contactID string) []*domain.ActivityEvent {
	t.Helper()
	events, err := f.activity.ListContactActivity(context.Background(), tenantID, contactID, 0)
	require.NoError(t, err)
	return events
}

// flakyActivityStore fails the next failures activity writes
type flakyActivityStore struct {
	*memstore.ActivityStore
	failures int
}

func (s *flakyActivityStore) CreateActivity(ctx context.Context, event *domain.ActivityEvent) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("activity table locked")
	}
	return s.ActivityStore.CreateActivity(ctx, event)
}

func subscriptionEvent(eventType domain.BillingEventType, status string) *domain.BillingEvent {
	return &domain.BillingEvent{
		ID:             "evt_1",
		Type:           eventType,
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		Subscription: &domain.ProviderSubscription{
			ID:         "sub_1",
			CustomerID: "cus_1",
			Status:     status,
			PriceID:    "price_pro",
		},
	}
}

func TestBillingReconciler_UpdateContactTags(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()

	t.Run("replaces the billing tag and keeps the rest", func(t *testing.T) {
		f := newBillingFixture(t, ctrl)
		seedContacts(t, f.contacts, &domain.Contact{
			ID: "self", TenantID: "t1", Email: "owner@bakery.example", Tags: []string{"trial_user", "vip"},
		})

		changed, err := f.reconciler.UpdateContactTags(ctx, "t1", domain.SubscriptionStatusActive, "cus_1")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.ElementsMatch(t, []string{"vip", "active_customer"}, f.selfContact(t, "t1", "owner@bakery.example").Tags)

		events := f.billingActivity(t, "t1", "self")
		require.Len(t, events, 1)
		assert.Equal(t, domain.ActivityBillingStatusChanged, events[0].Type)
		assert.Equal(t, "active", events[0].Metadata["status"])
		assert.Equal(t, "cus_1", events[0].Metadata["customer_id"])
	})

	t.Run("repeating a status writes one activity entry", func(t *testing.T) {
		f := newBillingFixture(t, ctrl)
		seedContacts(t, f.contacts, &domain.Contact{ID: "self", TenantID: "t1", Email: "owner@bakery.example"})

		for i := 0; i < 3; i++ {
			_, err := f.reconciler.UpdateContactTags(ctx, "t1", domain.SubscriptionStatusTrialing, "")
			require.NoError(t, err)
		}
		assert.Len(t, f.billingActivity(t, "t1", "self"), 1)
		assert.Equal(t, []string{"trial_user"}, f.selfContact(t, "t1", "owner@bakery.example").Tags)
	})

	t.Run("creates the self-contact when missing", func(t *testing.T) {
		f := newBillingFixture(t, ctrl)

		changed, err := f.reconciler.UpdateContactTags(ctx, "t2", domain.SubscriptionStatusCanceled, "")
		require.NoError(t, err)
		assert.True(t, changed)

		contact := f.selfContact(t, "t2", "owner@florist.example")
		assert.Equal(t, "Florist", contact.Name)
		assert.Equal(t, []string{"canceled_customer"}, contact.Tags)
	})

	t.Run("statuses without a tag only strip billing tags", func(t *testing.T) {
		f := newBillingFixture(t, ctrl)
		seedContacts(t, f.contacts, &domain.Contact{
			ID: "self", TenantID: "t1", Email: "owner@bakery.example", Tags: []string{"active_customer"},
		})

		changed, err := f.reconciler.UpdateContactTags(ctx, "t1", domain.SubscriptionStatusPastDue, "")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Empty(t, f.selfContact(t, "t1", "owner@bakery.example").Tags)
	})

	t.Run("activity failure leaves tags for the retry", func(t *testing.T) {
		f := newBillingFixture(t, ctrl)
		seedContacts(t, f.contacts, &domain.Contact{ID: "self", TenantID: "t1", Email: "owner@bakery.example"})
		activity := &flakyActivityStore{ActivityStore: f.activity, failures: 1}
		reconciler := NewBillingReconciler(f.subscriptions, f.tenants, f.contacts, activity, f.fetcher, f.mailer, logger.NewTestLogger(t))

		changed, err := reconciler.UpdateContactTags(ctx, "t1", domain.SubscriptionStatusActive, "cus_1")
		require.Error(t, err)
		assert.False(t, changed)
		assert.Empty(t, f.selfContact(t, "t1", "owner@bakery.example").Tags)

		changed, err = reconciler.UpdateContactTags(ctx, "t1", domain.SubscriptionStatusActive, "cus_1")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"active_customer"}, f.selfContact(t, "t1", "owner@bakery.example").Tags)
		assert.Len(t, f.billingActivity(t, "t1", "self"), 1)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		f := newBillingFixture(t, ctrl)
		_, err := f.reconciler.UpdateContactTags(ctx, "nope", domain.SubscriptionStatusActive, "")
		assert.Error(t, err)
	})
}

func TestBillingReconciler_SaveSubscription(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	ctx := context.Background()
	f := newBillingFixture(t, ctrl)

	periodEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	err := f.reconciler.SaveSubscription(ctx, "t1", &domain.ProviderSubscription{
		ID: "sub_1", CustomerID: "cus_1", PriceID: "price_pro", CurrentPeriodEnd: &periodEnd,
	}, domain.SubscriptionStatusActive)
	require.NoError(t, err)

	stored, err := f.subscriptions.FindSubscriptionByTenant(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "sub_1", stored.SubscriptionID)
	assert.Equal(t, domain.SubscriptionStatusActive, stored.Status)
	assert.Equal(t, periodEnd, *stored.CurrentPeriodEnd)

	err = f.reconciler.SaveSubscription(ctx, "t1", &domain.ProviderSubscription{ID: "sub_2"}, domain.SubscriptionStatusActive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no price id")
}

func TestBillingReconciler_HandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("subscription update syncs row and tags", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		require.NoError(t, f.reconciler.HandleEvent(ctx, subscriptionEvent(domain.BillingEventSubscriptionUpdated, "trialing")))

		sub, err := f.subscriptions.FindSubscriptionByTenant(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusTrialing, sub.Status)
		assert.Equal(t, []string{"trial_user"}, f.selfContact(t, "t1", "owner@bakery.example").Tags)
	})

	t.Run("deletion forces canceled", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		require.NoError(t, f.reconciler.HandleEvent(ctx, subscriptionEvent(domain.BillingEventSubscriptionDeleted, "active")))

		sub, err := f.subscriptions.FindSubscriptionByTenant(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusCanceled, sub.Status)
		assert.Equal(t, []string{"canceled_customer"}, f.selfContact(t, "t1", "owner@bakery.example").Tags)
	})

	t.Run("unknown provider status maps to active", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		require.NoError(t, f.reconciler.HandleEvent(ctx, subscriptionEvent(domain.BillingEventSubscriptionCreated, "paused_by_magic")))
		sub, err := f.subscriptions.FindSubscriptionByTenant(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
	})

	t.Run("unknown customer without tenant metadata fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		event := subscriptionEvent(domain.BillingEventSubscriptionUpdated, "active")
		event.CustomerID = "cus_unknown"
		assert.Error(t, f.reconciler.HandleEvent(ctx, event))
	})

	t.Run("tenant metadata links an unknown customer", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		event := subscriptionEvent(domain.BillingEventSubscriptionCreated, "active")
		event.CustomerID = "cus_2"
		event.TenantID = "t2"
		require.NoError(t, f.reconciler.HandleEvent(ctx, event))

		tenant, err := f.tenants.FindTenantByCustomerID(ctx, "cus_2")
		require.NoError(t, err)
		require.NotNil(t, tenant)
		assert.Equal(t, "t2", tenant.ID)
	})

	t.Run("missing price id is an error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		event := subscriptionEvent(domain.BillingEventSubscriptionUpdated, "active")
		event.Subscription.PriceID = ""
		assert.Error(t, f.reconciler.HandleEvent(ctx, event))

		sub, err := f.subscriptions.FindSubscriptionByTenant(ctx, "t1")
		require.NoError(t, err)
		assert.Nil(t, sub)
	})

	t.Run("checkout links the customer and fetches the subscription", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		f.fetcher.EXPECT().FetchSubscription(gomock.Any(), "sub_9").Return(&domain.ProviderSubscription{
			ID: "sub_9", CustomerID: "cus_9", Status: "active", PriceID: "price_basic",
		}, nil)

		err := f.reconciler.HandleEvent(ctx, &domain.BillingEvent{
			ID:             "evt_checkout",
			Type:           domain.BillingEventCheckoutCompleted,
			CustomerID:     "cus_9",
			TenantID:       "t2",
			SubscriptionID: "sub_9",
		})
		require.NoError(t, err)

		tenant, err := f.tenants.FindTenant(ctx, "t2")
		require.NoError(t, err)
		assert.Equal(t, "cus_9", tenant.BillingCustomerID)

		sub, err := f.subscriptions.FindSubscriptionByTenant(ctx, "t2")
		require.NoError(t, err)
		assert.Equal(t, "price_basic", sub.PriceID)
		assert.Equal(t, []string{"active_customer"}, f.selfContact(t, "t2", "owner@florist.example").Tags)
	})

	t.Run("checkout without tenant reference fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		err := f.reconciler.HandleEvent(ctx, &domain.BillingEvent{ID: "evt", Type: domain.BillingEventCheckoutCompleted, CustomerID: "cus_9"})
		assert.Error(t, err)
	})

	t.Run("payment failure notice errors are swallowed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		f.fetcher.EXPECT().FetchSubscription(gomock.Any(), "sub_1").Return(&domain.ProviderSubscription{
			ID: "sub_1", CustomerID: "cus_1", Status: "past_due", PriceID: "price_pro",
		}, nil)
		f.mailer.EXPECT().
			SendPaymentFailedNotice(gomock.Any(), "owner@bakery.example", "Corner Bakery", "https://invoice.example/1").
			Return(errors.New("smtp down"))

		err := f.reconciler.HandleEvent(ctx, &domain.BillingEvent{
			ID:             "evt_inv",
			Type:           domain.BillingEventPaymentFailed,
			CustomerID:     "cus_1",
			SubscriptionID: "sub_1",
			InvoiceURL:     "https://invoice.example/1",
		})
		require.NoError(t, err)

		sub, err := f.subscriptions.FindSubscriptionByTenant(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusPastDue, sub.Status)
	})

	t.Run("trial ending sends a notice", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		trialEnd := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		event := subscriptionEvent(domain.BillingEventSubscriptionTrialEnds, "trialing")
		event.Subscription.TrialEnd = &trialEnd

		f.mailer.EXPECT().SendTrialEndingNotice(gomock.Any(), "owner@bakery.example", "Corner Bakery", trialEnd).Return(nil)
		require.NoError(t, f.reconciler.HandleEvent(ctx, event))
	})

	t.Run("unsupported event types are ignored", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		require.NoError(t, f.reconciler.HandleEvent(ctx, &domain.BillingEvent{ID: "evt", Type: "charge.refunded"}))
	})

	t.Run("fetch failure is returned", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := newBillingFixture(t, ctrl)

		f.fetcher.EXPECT().FetchSubscription(gomock.Any(), "sub_1").Return(nil, errors.New("stripe unavailable"))
		err := f.reconciler.HandleEvent(ctx, &domain.BillingEvent{
			ID: "evt", Type: domain.BillingEventPaymentSucceeded, CustomerID: "cus_1", SubscriptionID: "sub_1",
		})
		assert.Error(t, err)
	})
}
