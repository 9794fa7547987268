package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/localboost/localboost/internal/domain"
)

// BroadcastStore implements domain.BroadcastRepository
type BroadcastStore struct {
	mu         sync.RWMutex
	broadcasts map[string]*domain.Broadcast
	recipients map[string][]*domain.BroadcastRecipient
	byID       map[string]*domain.BroadcastRecipient
}

func NewBroadcastStore() *BroadcastStore {
	return &BroadcastStore{
		broadcasts: make(map[string]*domain.Broadcast),
		recipients: make(map[string][]*domain.BroadcastRecipient),
		byID:       make(map[string]*domain.BroadcastRecipient),
	}
}

func copyBroadcast(b *domain.Broadcast) *domain.Broadcast {
	out := *b
	out.AudienceTags = append([]string{}, b.AudienceTags...)
	out.Content = append(domain.BroadcastContents{}, b.Content...)
	if b.AbTest != nil {
		ab := *b.AbTest
		if b.AbTest.WinnerVariant != nil {
			v := *b.AbTest.WinnerVariant
			ab.WinnerVariant = &v
		}
		out.AbTest = &ab
	}
	return &out
}

func (s *BroadcastStore) CreateBroadcast(_ context.Context, b *domain.Broadcast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = domain.BroadcastStatusDraft
	}
	s.broadcasts[b.ID] = copyBroadcast(b)
	return nil
}

func (s *BroadcastStore) GetBroadcast(_ context.Context, tenantID, id string) (*domain.Broadcast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.broadcasts[id]
	if !ok || b.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Entity: "broadcast", ID: id}
	}
	return copyBroadcast(b), nil
}

func (s *BroadcastStore) ListBroadcasts(_ context.Context, filter domain.ListBroadcastsFilter) ([]*domain.Broadcast, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Broadcast, 0)
	for _, b := range s.broadcasts {
		if b.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		matched = append(matched, copyBroadcast(b))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*domain.Broadcast{}, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *BroadcastStore) UpdateBroadcast(_ context.Context, b *domain.Broadcast) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.broadcasts[b.ID]
	if !ok || existing.TenantID != b.TenantID || existing.Status != b.Status {
		return &domain.ErrNotFound{Entity: "broadcast", ID: b.ID}
	}
	b.UpdatedAt = time.Now().UTC()
	updated := copyBroadcast(existing)
	updated.Name = b.Name
	updated.Channel = b.Channel
	updated.AudienceTags = append([]string{}, b.AudienceTags...)
	updated.Content = append(domain.BroadcastContents{}, b.Content...)
	updated.AbTest = copyBroadcast(b).AbTest
	updated.ScheduledAt = b.ScheduledAt
	updated.UpdatedAt = b.UpdatedAt
	s.broadcasts[b.ID] = updated
	return nil
}

func (s *BroadcastStore) ListDueBroadcasts(_ context.Context, now time.Time, limit int) ([]*domain.Broadcast, error) {
	return s.list(limit, func(b *domain.Broadcast) bool {
		return b.Status == domain.BroadcastStatusScheduled && b.ScheduledAt != nil && !b.ScheduledAt.After(now)
	}), nil
}

func (s *BroadcastStore) ListDueWinnerChecks(_ context.Context, now time.Time, limit int) ([]*domain.Broadcast, error) {
	return s.list(limit, func(b *domain.Broadcast) bool {
		return b.Status == domain.BroadcastStatusTesting && b.AbTest != nil &&
			b.AbTest.WinnerCheckAt != nil && !b.AbTest.WinnerCheckAt.After(now)
	}), nil
}

func (s *BroadcastStore) list(limit int, match func(*domain.Broadcast) bool) []*domain.Broadcast {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Broadcast, 0)
	for _, b := range s.broadcasts {
		if match(b) {
			out = append(out, copyBroadcast(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *BroadcastStore) TransitionStatus(_ context.Context, tenantID, id string, from, to domain.BroadcastStatus) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, &domain.ErrInvalidTransition{Entity: "broadcast", ID: id, From: string(from), To: string(to)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.broadcasts[id]
	if !ok || b.TenantID != tenantID || b.Status != from {
		return false, nil
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *BroadcastStore) SaveDeliveryState(_ context.Context, b *domain.Broadcast, expected domain.BroadcastStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.broadcasts[b.ID]
	if !ok || existing.TenantID != b.TenantID || existing.Status != expected {
		return false, nil
	}
	b.UpdatedAt = time.Now().UTC()
	saved := copyBroadcast(b)
	// opens are counted independently of delivery state
	saved.OpenCount = existing.OpenCount
	s.broadcasts[b.ID] = saved
	return true, nil
}

func (s *BroadcastStore) RecordRecipients(_ context.Context, recipients []*domain.BroadcastRecipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, r := range recipients {
		if s.hasRecipient(r.BroadcastID, r.ContactID) {
			continue
		}
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		stored := *r
		s.recipients[r.BroadcastID] = append(s.recipients[r.BroadcastID], &stored)
		s.byID[r.ID] = &stored
	}
	return nil
}

func (s *BroadcastStore) hasRecipient(broadcastID, contactID string) bool {
	for _, r := range s.recipients[broadcastID] {
		if r.ContactID == contactID {
			return true
		}
	}
	return false
}

func (s *BroadcastStore) ListRecipientContactIDs(_ context.Context, broadcastID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.recipients[broadcastID]))
	for _, r := range s.recipients[broadcastID] {
		ids = append(ids, r.ContactID)
	}
	return ids, nil
}

// Recipients returns a copy of the ledger of a broadcast
func (s *BroadcastStore) Recipients(broadcastID string) []domain.BroadcastRecipient {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.BroadcastRecipient, 0, len(s.recipients[broadcastID]))
	for _, r := range s.recipients[broadcastID] {
		out = append(out, *r)
	}
	return out
}

func (s *BroadcastStore) GetVariantStats(_ context.Context, broadcastID string) (map[domain.Variant]domain.VariantStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[domain.Variant]domain.VariantStats)
	for _, r := range s.recipients[broadcastID] {
		if r.Phase != domain.RecipientPhaseTest {
			continue
		}
		st := stats[r.Variant]
		st.Variant = r.Variant
		if r.Status == domain.RecipientStatusSent {
			st.Sent++
		}
		if r.OpenedAt != nil {
			st.Opened++
		}
		stats[r.Variant] = st
	}
	return stats, nil
}

func (s *BroadcastStore) RecordOpen(_ context.Context, recipientID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[recipientID]
	if !ok || r.OpenedAt != nil || r.Status != domain.RecipientStatusSent {
		return false, nil
	}
	t := at.UTC()
	r.OpenedAt = &t
	if b, ok := s.broadcasts[r.BroadcastID]; ok {
		b.OpenCount++
	}
	return true, nil
}
