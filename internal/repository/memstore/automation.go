package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/localboost/localboost/internal/domain"
)

// AutomationStore implements domain.AutomationRepository
type AutomationStore struct {
	mu        sync.RWMutex
	sequences map[string]*domain.AutomationSequence
	progress  map[string]*domain.AutomationContactProgress
}

func NewAutomationStore() *AutomationStore {
	return &AutomationStore{
		sequences: make(map[string]*domain.AutomationSequence),
		progress:  make(map[string]*domain.AutomationContactProgress),
	}
}

func copySequence(s *domain.AutomationSequence) *domain.AutomationSequence {
	out := *s
	out.Steps = append([]domain.AutomationStep{}, s.Steps...)
	return &out
}

func copyProgress(p *domain.AutomationContactProgress) *domain.AutomationContactProgress {
	out := *p
	if p.CurrentStepID != nil {
		id := *p.CurrentStepID
		out.CurrentStepID = &id
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func assignStepIDs(sequence *domain.AutomationSequence) {
	for i := range sequence.Steps {
		if sequence.Steps[i].ID == "" {
			sequence.Steps[i].ID = uuid.New().String()
		}
		sequence.Steps[i].SequenceID = sequence.ID
		sequence.Steps[i].Order = i
	}
}

func (s *AutomationStore) CreateSequence(_ context.Context, sequence *domain.AutomationSequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sequence.ID == "" {
		sequence.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	sequence.CreatedAt = now
	sequence.UpdatedAt = now
	assignStepIDs(sequence)
	s.sequences[sequence.ID] = copySequence(sequence)
	return nil
}

func (s *AutomationStore) ReplaceSequence(_ context.Context, sequence *domain.AutomationSequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sequences[sequence.ID]
	if !ok || existing.TenantID != sequence.TenantID {
		return &domain.ErrNotFound{Entity: "automation sequence", ID: sequence.ID}
	}
	sequence.CreatedAt = existing.CreatedAt
	sequence.ExecutionCount = existing.ExecutionCount
	sequence.UpdatedAt = time.Now().UTC()
	assignStepIDs(sequence)
	s.sequences[sequence.ID] = copySequence(sequence)
	return nil
}

func (s *AutomationStore) GetSequence(_ context.Context, tenantID, id string) (*domain.AutomationSequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, ok := s.sequences[id]
	if !ok || seq.TenantID != tenantID {
		return nil, &domain.ErrNotFound{Entity: "automation sequence", ID: id}
	}
	return copySequence(seq), nil
}

func (s *AutomationStore) ListSequences(_ context.Context, tenantID string) ([]*domain.AutomationSequence, error) {
	return s.listSequences(func(seq *domain.AutomationSequence) bool {
		return seq.TenantID == tenantID
	}), nil
}

func (s *AutomationStore) ListActiveSequencesByTrigger(_ context.Context, tenantID string, trigger domain.TriggerType) ([]*domain.AutomationSequence, error) {
	return s.listSequences(func(seq *domain.AutomationSequence) bool {
		return seq.TenantID == tenantID && seq.Active && seq.Trigger == trigger
	}), nil
}

func (s *AutomationStore) listSequences(match func(*domain.AutomationSequence) bool) []*domain.AutomationSequence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.AutomationSequence, 0)
	for _, seq := range s.sequences {
		if match(seq) {
			out = append(out, copySequence(seq))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *AutomationStore) SetSequenceActive(_ context.Context, tenantID, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.sequences[id]
	if !ok || seq.TenantID != tenantID {
		return &domain.ErrNotFound{Entity: "automation sequence", ID: id}
	}
	seq.Active = active
	seq.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *AutomationStore) IncrementExecutionCount(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.sequences[id]
	if !ok || seq.TenantID != tenantID {
		return &domain.ErrNotFound{Entity: "automation sequence", ID: id}
	}
	seq.ExecutionCount++
	return nil
}

func (s *AutomationStore) EnrollContact(_ context.Context, progress *domain.AutomationContactProgress) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.progress {
		if p.ContactID == progress.ContactID && p.SequenceID == progress.SequenceID && p.IsActive() {
			return false, nil
		}
	}
	if progress.ID == "" {
		progress.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	progress.CreatedAt = now
	progress.UpdatedAt = now
	s.progress[progress.ID] = copyProgress(progress)
	return true, nil
}

func (s *AutomationStore) ClaimDueProgress(_ context.Context, now time.Time, lease time.Duration, limit int) ([]*domain.AutomationContactProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*domain.AutomationContactProgress, 0)
	for _, p := range s.progress {
		if p.IsActive() && !p.NextStepAt.After(now) {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextStepAt.Before(due[j].NextStepAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*domain.AutomationContactProgress, 0, len(due))
	for _, p := range due {
		p.NextStepAt = now.Add(lease)
		p.UpdatedAt = now
		claimed = append(claimed, copyProgress(p))
	}
	return claimed, nil
}

func (s *AutomationStore) UpdateProgress(_ context.Context, progress *domain.AutomationContactProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.progress[progress.ID]; !ok {
		return &domain.ErrNotFound{Entity: "automation progress", ID: progress.ID}
	}
	progress.UpdatedAt = time.Now().UTC()
	s.progress[progress.ID] = copyProgress(progress)
	return nil
}

func (s *AutomationStore) ListContactProgress(_ context.Context, tenantID, contactID string) ([]*domain.AutomationContactProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.AutomationContactProgress, 0)
	for _, p := range s.progress {
		if p.TenantID == tenantID && p.ContactID == contactID {
			out = append(out, copyProgress(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SetNextStepAt moves a progress row in time
func (s *AutomationStore) SetNextStepAt(progressID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.progress[progressID]; ok {
		p.NextStepAt = at
	}
}
