package service

import (
	"context"
	"fmt"
	"time"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/logger"
)

type ContactService struct {
	repo         domain.ContactRepository
	activityRepo domain.ActivityRepository
	audience     domain.AudienceResolver
	dispatcher   domain.ActionCommandDispatcher
	logger       logger.Logger
}

func NewContactService(
	repo domain.ContactRepository,
	activityRepo domain.ActivityRepository,
	audience domain.AudienceResolver,
	dispatcher domain.ActionCommandDispatcher,
	logger logger.Logger,
) *ContactService {
	return &ContactService{
		repo:         repo,
		activityRepo: activityRepo,
		audience:     audience,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// CreateLead upserts a contact by email, then phone. New contacts are
// announced with a NEW_LEAD_ADDED command. Existing contacts gain the
// request's tags and any missing fields.
func (s *ContactService) CreateLead(ctx context.Context, req *domain.CreateLeadRequest) (*domain.Contact, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	existing, err := s.findExisting(ctx, req)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		changed := false
		if existing.Name == "" && req.Name != "" {
			existing.Name = req.Name
			changed = true
		}
		if existing.Email == "" && req.Email != "" {
			existing.Email = req.Email
			changed = true
		}
		if existing.Phone == "" && req.Phone != "" {
			existing.Phone = req.Phone
			changed = true
		}
		merged := domain.NormalizeTags(append(append([]string{}, existing.Tags...), req.Tags...))
		if !domain.SameTags(existing.Tags, merged) {
			existing.Tags = merged
			changed = true
		}
		if changed {
			if err := s.repo.UpdateContact(ctx, existing); err != nil {
				return nil, false, fmt.Errorf("failed to update contact: %w", err)
			}
		}
		return existing, false, nil
	}

	now := time.Now().UTC()
	contact := &domain.Contact{
		TenantID:  req.TenantID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Tags:      req.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := contact.Validate(); err != nil {
		return nil, false, domain.NewValidationError(err.Error())
	}
	if err := s.repo.CreateContact(ctx, contact); err != nil {
		s.logger.WithField("tenant_id", req.TenantID).Error(fmt.Sprintf("Failed to create contact: %v", err))
		return nil, false, fmt.Errorf("failed to create contact: %w", err)
	}

	if s.activityRepo != nil {
		metadata := domain.MapOfAny{}
		if req.Source != "" {
			metadata["source"] = req.Source
		}
		err := s.activityRepo.CreateActivity(ctx, &domain.ActivityEvent{
			TenantID:    contact.TenantID,
			ContactID:   contact.ID,
			Type:        domain.ActivityLeadCreated,
			Description: "Lead captured",
			Metadata:    metadata,
		})
		if err != nil {
			s.logger.WithField("contact_id", contact.ID).Warn(fmt.Sprintf("Failed to record lead activity: %v", err))
		}
	}

	// the contact exists either way; a lost command only skips enrollment
	if _, err := s.dispatcher.DispatchActionCommand(ctx, contact.TenantID, domain.CommandNewLeadAdded, domain.MapOfAny{
		domain.PayloadContactID: contact.ID,
	}); err != nil {
		s.logger.WithField("contact_id", contact.ID).Error(fmt.Sprintf("Failed to dispatch new lead command: %v", err))
	}

	return contact, true, nil
}

func (s *ContactService) findExisting(ctx context.Context, req *domain.CreateLeadRequest) (*domain.Contact, error) {
	if req.Email != "" {
		contact, err := s.repo.FindContactByEmail(ctx, req.TenantID, req.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to find contact by email: %w", err)
		}
		if contact != nil {
			return contact, nil
		}
	}
	if req.Phone != "" {
		contact, err := s.repo.FindContactByPhone(ctx, req.TenantID, req.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to find contact by phone: %w", err)
		}
		return contact, nil
	}
	return nil, nil
}

// GetContact returns a contact or ErrNotFound
func (s *ContactService) GetContact(ctx context.Context, tenantID, id string) (*domain.Contact, error) {
	contact, err := s.repo.FindContact(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if contact == nil {
		return nil, &domain.ErrNotFound{Entity: "contact", ID: id}
	}
	return contact, nil
}

// PreviewAudience counts the contacts an audience currently reaches
func (s *ContactService) PreviewAudience(ctx context.Context, req *domain.AudiencePreviewRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	return s.audience.CountAudience(ctx, req.TenantID, req.Channel, req.Tags)
}

// ListActivity returns the newest activity entries of a contact
func (s *ContactService) ListActivity(ctx context.Context, tenantID, contactID string, limit int) ([]*domain.ActivityEvent, error) {
	events, err := s.activityRepo.ListContactActivity(ctx, tenantID, contactID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return events, nil
}
