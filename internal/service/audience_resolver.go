package service

import (
	"context"
	"fmt"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/tracing"
)

// AudienceResolver selects the contacts a message may be sent to
type AudienceResolver struct {
	contactRepo domain.ContactRepository
	logger      logger.Logger
}

func NewAudienceResolver(contactRepo domain.ContactRepository, logger logger.Logger) *AudienceResolver {
	return &AudienceResolver{
		contactRepo: contactRepo,
		logger:      logger,
	}
}

func audienceFilter(tenantID string, channel domain.Channel, tags []string) domain.ContactFilter {
	return domain.ContactFilter{
		TenantID:            tenantID,
		Channel:             channel,
		Tags:                domain.NormalizeTags(tags),
		ExcludeUnsubscribed: true,
	}
}

// ResolveAudience returns opted-in contacts that have an address for channel
// and carry at least one of tags
func (r *AudienceResolver) ResolveAudience(ctx context.Context, tenantID string, channel domain.Channel, tags []string) ([]*domain.Contact, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "AudienceResolver", "ResolveAudience")
	defer span.End()
	tracing.AddAttribute(ctx, "tenant_id", tenantID)
	tracing.AddAttribute(ctx, "channel", string(channel))

	if err := channel.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	filter := audienceFilter(tenantID, channel, tags)
	contacts, err := r.contactRepo.ListContacts(ctx, filter)
	if err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	// the repository filters in SQL; re-apply the rules so every store agrees
	audience := make([]*domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		if c.MatchesAudience(channel, filter.Tags) {
			audience = append(audience, c)
		}
	}

	tracing.AddAttribute(ctx, "audience_size", len(audience))
	r.logger.WithFields(map[string]interface{}{
		"tenant_id": tenantID,
		"channel":   channel,
		"tags":      filter.Tags,
		"size":      len(audience),
	}).Debug("Resolved audience")

	return audience, nil
}

// CountAudience returns the size ResolveAudience would return
func (r *AudienceResolver) CountAudience(ctx context.Context, tenantID string, channel domain.Channel, tags []string) (int, error) {
	if err := channel.Validate(); err != nil {
		return 0, domain.NewValidationError(err.Error())
	}

	count, err := r.contactRepo.CountContacts(ctx, audienceFilter(tenantID, channel, tags))
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}
