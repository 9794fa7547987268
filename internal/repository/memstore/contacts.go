// Package memstore holds in-memory implementations of the domain repositories.
// They back service tests and local runs without Postgres.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/localboost/localboost/internal/domain"
)

// ContactStore implements domain.ContactRepository
type ContactStore struct {
	mu       sync.RWMutex
	contacts map[string]*domain.Contact
	seq      int
	order    map[string]int
}

func NewContactStore() *ContactStore {
	return &ContactStore{
		contacts: make(map[string]*domain.Contact),
		order:    make(map[string]int),
	}
}

func copyContact(c *domain.Contact) *domain.Contact {
	out := *c
	out.Tags = append([]string{}, c.Tags...)
	return &out
}

func (s *ContactStore) CreateContact(_ context.Context, contact *domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now
	contact.Tags = domain.NormalizeTags(contact.Tags)

	s.contacts[contact.ID] = copyContact(contact)
	s.order[contact.ID] = s.seq
	s.seq++
	return nil
}

func (s *ContactStore) UpdateContact(_ context.Context, contact *domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contacts[contact.ID]
	if !ok || existing.TenantID != contact.TenantID {
		return &domain.ErrNotFound{Entity: "contact", ID: contact.ID}
	}
	contact.UpdatedAt = time.Now().UTC()
	contact.Tags = domain.NormalizeTags(contact.Tags)
	s.contacts[contact.ID] = copyContact(contact)
	return nil
}

func (s *ContactStore) UpdateContactTags(_ context.Context, tenantID, contactID string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contacts[contactID]
	if !ok || existing.TenantID != tenantID {
		return &domain.ErrNotFound{Entity: "contact", ID: contactID}
	}
	existing.Tags = domain.NormalizeTags(tags)
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *ContactStore) FindContact(_ context.Context, tenantID, contactID string) (*domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contacts[contactID]
	if !ok || c.TenantID != tenantID {
		return nil, nil
	}
	return copyContact(c), nil
}

func (s *ContactStore) FindContactByEmail(_ context.Context, tenantID, email string) (*domain.Contact, error) {
	return s.findFirst(tenantID, func(c *domain.Contact) bool {
		return email != "" && strings.EqualFold(c.Email, email)
	}), nil
}

func (s *ContactStore) FindContactByPhone(_ context.Context, tenantID, phone string) (*domain.Contact, error) {
	return s.findFirst(tenantID, func(c *domain.Contact) bool {
		return phone != "" && c.Phone == phone
	}), nil
}

func (s *ContactStore) findFirst(tenantID string, match func(*domain.Contact) bool) *domain.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.sorted() {
		if c.TenantID == tenantID && match(c) {
			return copyContact(c)
		}
	}
	return nil
}

func (s *ContactStore) ListContacts(_ context.Context, filter domain.ContactFilter) ([]*domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Contact, 0)
	for _, c := range s.sorted() {
		if !matchesFilter(c, filter) {
			continue
		}
		out = append(out, copyContact(c))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *ContactStore) CountContacts(ctx context.Context, filter domain.ContactFilter) (int, error) {
	filter.Limit = 0
	list, err := s.ListContacts(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// sorted returns contacts in insertion order; callers hold the lock
func (s *ContactStore) sorted() []*domain.Contact {
	list := make([]*domain.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return s.order[list[i].ID] < s.order[list[j].ID]
	})
	return list
}

func matchesFilter(c *domain.Contact, filter domain.ContactFilter) bool {
	if c.TenantID != filter.TenantID {
		return false
	}
	if filter.ExcludeUnsubscribed && c.Unsubscribed {
		return false
	}
	if filter.Channel != "" && c.Address(filter.Channel) == "" {
		return false
	}
	return c.HasAnyTag(filter.Tags)
}
