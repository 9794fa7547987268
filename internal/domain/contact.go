package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

//go:generate mockgen -destination mocks/mock_contact_repository.go -package mocks github.com/localboost/localboost/internal/domain ContactRepository
//go:generate mockgen -destination mocks/mock_audience_resolver.go -package mocks github.com/localboost/localboost/internal/domain AudienceResolver

// Channel is the delivery channel of a message
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

func (c Channel) Validate() error {
	switch c {
	case ChannelEmail, ChannelSMS:
		return nil
	}
	return fmt.Errorf("invalid channel: %q", string(c))
}

// Contact is one customer of a tenant
type Contact struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Tags         []string  `json:"tags"`
	Unsubscribed bool      `json:"unsubscribed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (c *Contact) Validate() error {
	if c.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if c.Email == "" && c.Phone == "" {
		return fmt.Errorf("email or phone is required")
	}
	if c.Email != "" && !govalidator.IsEmail(c.Email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// Address returns the contact method used for the channel
func (c *Contact) Address(channel Channel) string {
	switch channel {
	case ChannelEmail:
		return strings.TrimSpace(c.Email)
	case ChannelSMS:
		return strings.TrimSpace(c.Phone)
	}
	return ""
}

// HasAnyTag is true when tags is empty or the contact carries at least one of them.
func (c *Contact) HasAnyTag(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range c.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}

// HasTag reports whether the contact carries tag
func (c *Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MatchesAudience applies the opt-in, channel and tag rules of an audience.
func (c *Contact) MatchesAudience(channel Channel, tags []string) bool {
	if c.Unsubscribed {
		return false
	}
	if c.Address(channel) == "" {
		return false
	}
	return c.HasAnyTag(tags)
}

// TemplateData exposes the contact to message templates as {{ contact.* }}
func (c *Contact) TemplateData() map[string]interface{} {
	firstName := strings.TrimSpace(c.Name)
	if i := strings.IndexByte(firstName, ' '); i > 0 {
		firstName = firstName[:i]
	}
	return map[string]interface{}{
		"contact": map[string]interface{}{
			"id":         c.ID,
			"name":       c.Name,
			"first_name": firstName,
			"email":      c.Email,
			"phone":      c.Phone,
			"tags":       c.Tags,
		},
	}
}

// ContactFilter narrows a contact listing. A zero Channel applies no channel
// rule; empty Tags applies no tag rule.
type ContactFilter struct {
	TenantID            string
	Channel             Channel
	Tags                []string
	ExcludeUnsubscribed bool
	Limit               int
}

// ContactRepository persists contacts. Find* methods return (nil, nil) when
// nothing matches.
type ContactRepository interface {
	CreateContact(ctx context.Context, contact *Contact) error
	UpdateContact(ctx context.Context, contact *Contact) error
	UpdateContactTags(ctx context.Context, tenantID, contactID string, tags []string) error
	FindContact(ctx context.Context, tenantID, contactID string) (*Contact, error)
	FindContactByEmail(ctx context.Context, tenantID, email string) (*Contact, error)
	FindContactByPhone(ctx context.Context, tenantID, phone string) (*Contact, error)
	ListContacts(ctx context.Context, filter ContactFilter) ([]*Contact, error)
	CountContacts(ctx context.Context, filter ContactFilter) (int, error)
}

// AudienceResolver returns the opted-in contacts reachable on a channel that
// carry at least one of tags. Empty tags match every contact.
type AudienceResolver interface {
	ResolveAudience(ctx context.Context, tenantID string, channel Channel, tags []string) ([]*Contact, error)
	CountAudience(ctx context.Context, tenantID string, channel Channel, tags []string) (int, error)
}

// CreateLeadRequest is the payload of lead ingestion
type CreateLeadRequest struct {
	TenantID string   `json:"-"`
	Name     string   `json:"name" valid:"optional,stringlength(0|255)"`
	Email    string   `json:"email" valid:"optional,email"`
	Phone    string   `json:"phone" valid:"optional,stringlength(4|32)"`
	Tags     []string `json:"tags,omitempty"`
	Source   string   `json:"source,omitempty" valid:"optional,stringlength(0|64)"`
}

func (r *CreateLeadRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Tags = NormalizeTags(r.Tags)

	if r.TenantID == "" {
		return NewValidationError("tenant_id is required")
	}
	if _, err := govalidator.ValidateStruct(r); err != nil {
		return NewValidationError(err.Error())
	}
	if r.Email == "" && r.Phone == "" {
		return NewValidationError("email or phone is required")
	}
	return nil
}

// AudiencePreviewRequest asks how many contacts an audience would reach
type AudiencePreviewRequest struct {
	TenantID string   `json:"-"`
	Channel  Channel  `json:"channel"`
	Tags     []string `json:"tags,omitempty"`
}

func (r *AudiencePreviewRequest) Validate() error {
	if r.TenantID == "" {
		return NewValidationError("tenant_id is required")
	}
	if err := r.Channel.Validate(); err != nil {
		return NewValidationError(err.Error())
	}
	r.Tags = NormalizeTags(r.Tags)
	return nil
}
