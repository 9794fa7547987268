package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/localboost/localboost/internal/domain"
)

// SubscriptionStore implements domain.SubscriptionRepository
type SubscriptionStore struct {
	mu            sync.RWMutex
	subscriptions map[string]*domain.Subscription
}

func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{subscriptions: make(map[string]*domain.Subscription)}
}

func (s *SubscriptionStore) UpsertSubscription(_ context.Context, sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.subscriptions[sub.TenantID]; ok {
		sub.CreatedAt = existing.CreatedAt
	} else if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	stored := *sub
	s.subscriptions[sub.TenantID] = &stored
	return nil
}

func (s *SubscriptionStore) FindSubscriptionByTenant(_ context.Context, tenantID string) (*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[tenantID]
	if !ok {
		return nil, nil
	}
	out := *sub
	return &out, nil
}

// TenantStore implements domain.TenantRepository
type TenantStore struct {
	mu      sync.RWMutex
	tenants map[string]*domain.Tenant
}

func NewTenantStore(tenants ...*domain.Tenant) *TenantStore {
	s := &TenantStore{tenants: make(map[string]*domain.Tenant)}
	for _, t := range tenants {
		stored := *t
		s.tenants[t.ID] = &stored
	}
	return s
}

func (s *TenantStore) FindTenant(_ context.Context, id string) (*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, nil
	}
	out := *t
	return &out, nil
}

func (s *TenantStore) FindTenantByCustomerID(_ context.Context, customerID string) (*domain.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if customerID != "" && t.BillingCustomerID == customerID {
			out := *t
			return &out, nil
		}
	}
	return nil, nil
}

func (s *TenantStore) SetBillingCustomerID(_ context.Context, tenantID, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return &domain.ErrNotFound{Entity: "tenant", ID: tenantID}
	}
	t.BillingCustomerID = customerID
	return nil
}

// ActivityStore implements domain.ActivityRepository
type ActivityStore struct {
	mu     sync.RWMutex
	events []*domain.ActivityEvent
}

func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

func (s *ActivityStore) CreateActivity(_ context.Context, event *domain.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	stored := *event
	s.events = append(s.events, &stored)
	return nil
}

func (s *ActivityStore) ListContactActivity(_ context.Context, tenantID, contactID string, limit int) ([]*domain.ActivityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ActivityEvent, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if e.TenantID == tenantID && e.ContactID == contactID {
			copied := *e
			out = append(out, &copied)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
