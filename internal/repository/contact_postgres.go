package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/localboost/localboost/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var contactColumns = []string{
	"id", "tenant_id", "name", "email", "phone", "tags", "unsubscribed", "created_at", "updated_at",
}

// ContactRepository implements domain.ContactRepository using PostgreSQL
type ContactRepository struct {
	db *sql.DB
}

// NewContactRepository creates a new ContactRepository
func NewContactRepository(db *sql.DB) domain.ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) CreateContact(ctx context.Context, contact *domain.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	contact.Tags = domain.NormalizeTags(contact.Tags)

	query := `
		INSERT INTO contacts (id, tenant_id, name, email, phone, tags, unsubscribed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		contact.ID,
		contact.TenantID,
		contact.Name,
		contact.Email,
		contact.Phone,
		pq.Array(contact.Tags),
		contact.Unsubscribed,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}
	return nil
}

func (r *ContactRepository) UpdateContact(ctx context.Context, contact *domain.Contact) error {
	contact.UpdatedAt = time.Now().UTC()
	contact.Tags = domain.NormalizeTags(contact.Tags)

	query := `
		UPDATE contacts
		SET name = $3, email = $4, phone = $5, tags = $6, unsubscribed = $7, updated_at = $8
		WHERE tenant_id = $1 AND id = $2
	`
	result, err := r.db.ExecContext(ctx, query,
		contact.TenantID,
		contact.ID,
		contact.Name,
		contact.Email,
		contact.Phone,
		pq.Array(contact.Tags),
		contact.Unsubscribed,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	return requireOneRow(result, "contact", contact.ID)
}

func (r *ContactRepository) UpdateContactTags(ctx context.Context, tenantID, contactID string, tags []string) error {
	query := `UPDATE contacts SET tags = $3, updated_at = $4 WHERE tenant_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, tenantID, contactID, pq.Array(domain.NormalizeTags(tags)), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update contact tags: %w", err)
	}
	return requireOneRow(result, "contact", contactID)
}

func (r *ContactRepository) FindContact(ctx context.Context, tenantID, contactID string) (*domain.Contact, error) {
	return r.findOne(ctx, sq.Eq{"tenant_id": tenantID, "id": contactID})
}

func (r *ContactRepository) FindContactByEmail(ctx context.Context, tenantID, email string) (*domain.Contact, error) {
	return r.findOne(ctx, sq.And{
		sq.Eq{"tenant_id": tenantID},
		sq.Expr("lower(email) = lower(?)", email),
	})
}

func (r *ContactRepository) FindContactByPhone(ctx context.Context, tenantID, phone string) (*domain.Contact, error) {
	return r.findOne(ctx, sq.Eq{"tenant_id": tenantID, "phone": phone})
}

func (r *ContactRepository) findOne(ctx context.Context, where sq.Sqlizer) (*domain.Contact, error) {
	query, args, err := psql.Select(contactColumns...).
		From("contacts").
		Where(where).
		OrderBy("created_at ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	contact, err := scanContact(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return contact, nil
}

func (r *ContactRepository) ListContacts(ctx context.Context, filter domain.ContactFilter) ([]*domain.Contact, error) {
	builder := applyContactFilter(psql.Select(contactColumns...).From("contacts"), filter).
		OrderBy("created_at ASC", "id ASC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]*domain.Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return contacts, nil
}

func (r *ContactRepository) CountContacts(ctx context.Context, filter domain.ContactFilter) (int, error) {
	query, args, err := applyContactFilter(psql.Select("COUNT(*)").From("contacts"), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

func applyContactFilter(builder sq.SelectBuilder, filter domain.ContactFilter) sq.SelectBuilder {
	builder = builder.Where(sq.Eq{"tenant_id": filter.TenantID})
	if filter.ExcludeUnsubscribed {
		builder = builder.Where(sq.Eq{"unsubscribed": false})
	}
	switch filter.Channel {
	case domain.ChannelEmail:
		builder = builder.Where("btrim(email) <> ''")
	case domain.ChannelSMS:
		builder = builder.Where("btrim(phone) <> ''")
	}
	if len(filter.Tags) > 0 {
		// && is array overlap: at least one tag in common
		builder = builder.Where("tags && ?", pq.Array(filter.Tags))
	}
	return builder
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	var c domain.Contact
	var tags []string
	if err := row.Scan(
		&c.ID,
		&c.TenantID,
		&c.Name,
		&c.Email,
		&c.Phone,
		pq.Array(&tags),
		&c.Unsubscribed,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Tags = tags
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c, nil
}

func requireOneRow(result sql.Result, entity, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return &domain.ErrNotFound{Entity: entity, ID: id}
	}
	return nil
}
