package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/localboost/localboost/internal/domain"
)

// SubscriptionRepository implements domain.SubscriptionRepository using PostgreSQL
type SubscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(db *sql.DB) domain.SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) UpsertSubscription(ctx context.Context, s *domain.Subscription) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	query := `
		INSERT INTO subscriptions (
			tenant_id, customer_id, subscription_id, price_id, status,
			current_period_end, trial_ends_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			subscription_id = EXCLUDED.subscription_id,
			price_id = EXCLUDED.price_id,
			status = EXCLUDED.status,
			current_period_end = EXCLUDED.current_period_end,
			trial_ends_at = EXCLUDED.trial_ends_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		s.TenantID, s.CustomerID, s.SubscriptionID, s.PriceID, s.Status,
		s.CurrentPeriodEnd, s.TrialEndsAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) FindSubscriptionByTenant(ctx context.Context, tenantID string) (*domain.Subscription, error) {
	query := `
		SELECT tenant_id, customer_id, subscription_id, price_id, status,
			current_period_end, trial_ends_at, created_at, updated_at
		FROM subscriptions
		WHERE tenant_id = $1
	`
	var s domain.Subscription
	var periodEnd, trialEnd sql.NullTime
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(
		&s.TenantID, &s.CustomerID, &s.SubscriptionID, &s.PriceID, &s.Status,
		&periodEnd, &trialEnd, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	if periodEnd.Valid {
		t := periodEnd.Time.UTC()
		s.CurrentPeriodEnd = &t
	}
	if trialEnd.Valid {
		t := trialEnd.Time.UTC()
		s.TrialEndsAt = &t
	}
	return &s, nil
}

// TenantRepository implements domain.TenantRepository using PostgreSQL
type TenantRepository struct {
	db *sql.DB
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(db *sql.DB) domain.TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) FindTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.findOne(ctx, "id", id)
}

func (r *TenantRepository) FindTenantByCustomerID(ctx context.Context, customerID string) (*domain.Tenant, error) {
	return r.findOne(ctx, "billing_customer_id", customerID)
}

func (r *TenantRepository) findOne(ctx context.Context, column, value string) (*domain.Tenant, error) {
	query, args, err := psql.Select("id", "email", "COALESCE(name, '')", "COALESCE(billing_customer_id, '')", "created_at").
		From("tenants").
		Where(column+" = ?", value).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var t domain.Tenant
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.Email, &t.Name, &t.BillingCustomerID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

func (r *TenantRepository) SetBillingCustomerID(ctx context.Context, tenantID, customerID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET billing_customer_id = $2 WHERE id = $1`,
		tenantID, customerID,
	)
	if err != nil {
		return fmt.Errorf("failed to set billing customer id: %w", err)
	}
	return requireOneRow(result, "tenant", tenantID)
}
