package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/localboost/localboost/internal/domain"
)

// ActionCommandStore implements domain.ActionCommandRepository
type ActionCommandStore struct {
	mu       sync.RWMutex
	commands map[string]*domain.ActionCommand
}

func NewActionCommandStore() *ActionCommandStore {
	return &ActionCommandStore{commands: make(map[string]*domain.ActionCommand)}
}

func (s *ActionCommandStore) CreateCommand(_ context.Context, cmd *domain.ActionCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cmd.ID == "" {
		cmd.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	cmd.CreatedAt = now
	cmd.UpdatedAt = now
	if cmd.Status == "" {
		cmd.Status = domain.ActionCommandPending
	}
	stored := *cmd
	s.commands[cmd.ID] = &stored
	return nil
}

func (s *ActionCommandStore) ClaimPending(_ context.Context, limit int) ([]*domain.ActionCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]*domain.ActionCommand, 0)
	for _, c := range s.commands {
		if c.Status == domain.ActionCommandPending {
			pending = append(pending, c)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	claimed := make([]*domain.ActionCommand, 0, len(pending))
	now := time.Now().UTC()
	for _, c := range pending {
		c.Status = domain.ActionCommandProcessing
		c.Attempts++
		c.UpdatedAt = now
		out := *c
		claimed = append(claimed, &out)
	}
	return claimed, nil
}

func (s *ActionCommandStore) MarkCompleted(_ context.Context, id string, at time.Time) error {
	return s.finish(id, domain.ActionCommandCompleted, "", at)
}

func (s *ActionCommandStore) MarkFailed(_ context.Context, id string, message string, retry bool, at time.Time) error {
	status := domain.ActionCommandFailed
	if retry {
		status = domain.ActionCommandPending
	}
	return s.finish(id, status, message, at)
}

func (s *ActionCommandStore) finish(id string, status domain.ActionCommandStatus, message string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.commands[id]
	if !ok {
		return &domain.ErrNotFound{Entity: "action command", ID: id}
	}
	t := at.UTC()
	c.Status = status
	c.ErrorMessage = message
	c.ProcessedAt = &t
	c.UpdatedAt = t
	return nil
}

// Get returns a copy of a stored command, or nil
func (s *ActionCommandStore) Get(id string) *domain.ActionCommand {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.commands[id]
	if !ok {
		return nil
	}
	out := *c
	return &out
}
