// Package schema holds the table definitions applied at boot.
package schema

// TableDefinitions contains all the SQL statements to create the database tables
// Don't put REFERENCES and don't put CHECK constraints in the CREATE TABLE statements
var TableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id VARCHAR(64) PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		name VARCHAR(255),
		billing_customer_id VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tenants_billing_customer ON tenants (billing_customer_id) WHERE billing_customer_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id UUID PRIMARY KEY,
		tenant_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(32) NOT NULL DEFAULT '',
		tags TEXT[] NOT NULL DEFAULT '{}',
		unsubscribed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_tenant ON contacts (tenant_id, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_tenant_email ON contacts (tenant_id, lower(email)) WHERE email <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_tags ON contacts USING GIN (tags)`,
	`CREATE TABLE IF NOT EXISTS broadcasts (
		id UUID PRIMARY KEY,
		tenant_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		channel VARCHAR(10) NOT NULL,
		audience_tags TEXT[] NOT NULL DEFAULT '{}',
		content JSONB NOT NULL,
		ab_test JSONB,
		status VARCHAR(20) NOT NULL,
		scheduled_at TIMESTAMPTZ,
		sent_at TIMESTAMPTZ,
		total_recipients INTEGER NOT NULL DEFAULT 0,
		sent_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		open_count INTEGER NOT NULL DEFAULT 0,
		click_count INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_broadcasts_due ON broadcasts (scheduled_at) WHERE status = 'scheduled'`,
	`CREATE INDEX IF NOT EXISTS idx_broadcasts_testing ON broadcasts (((ab_test->>'winner_check_at')::timestamptz)) WHERE status = 'testing'`,
	`CREATE TABLE IF NOT EXISTS broadcast_recipients (
		id UUID PRIMARY KEY,
		broadcast_id UUID NOT NULL,
		tenant_id VARCHAR(64) NOT NULL,
		contact_id UUID NOT NULL,
		variant VARCHAR(1) NOT NULL DEFAULT '',
		phase VARCHAR(10) NOT NULL,
		status VARCHAR(10) NOT NULL,
		provider_id VARCHAR(255) NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		opened_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (broadcast_id, contact_id)
	)`,
	`CREATE TABLE IF NOT EXISTS automation_sequences (
		id UUID PRIMARY KEY,
		tenant_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		trigger_type VARCHAR(50) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		execution_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_automation_sequences_trigger ON automation_sequences (tenant_id, trigger_type) WHERE active`,
	`CREATE TABLE IF NOT EXISTS automation_steps (
		id UUID PRIMARY KEY,
		sequence_id UUID NOT NULL,
		step_order INTEGER NOT NULL,
		action VARCHAR(20) NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		wait_days INTEGER NOT NULL DEFAULT 0,
		UNIQUE (sequence_id, step_order)
	)`,
	`CREATE TABLE IF NOT EXISTS automation_contact_progress (
		id UUID PRIMARY KEY,
		tenant_id VARCHAR(64) NOT NULL,
		contact_id UUID NOT NULL,
		sequence_id UUID NOT NULL,
		current_step_id UUID,
		next_step_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		completion_reason VARCHAR(32) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_automation_progress_active ON automation_contact_progress (contact_id, sequence_id) WHERE completed_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_automation_progress_due ON automation_contact_progress (next_step_at) WHERE completed_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		tenant_id VARCHAR(64) PRIMARY KEY,
		customer_id VARCHAR(255) NOT NULL,
		subscription_id VARCHAR(255) NOT NULL,
		price_id VARCHAR(255) NOT NULL,
		status VARCHAR(32) NOT NULL,
		current_period_end TIMESTAMPTZ,
		trial_ends_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS activity_events (
		id UUID PRIMARY KEY,
		tenant_id VARCHAR(64) NOT NULL,
		contact_id UUID NOT NULL,
		type VARCHAR(50) NOT NULL,
		description TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_events_contact ON activity_events (tenant_id, contact_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS action_commands (
		id UUID PRIMARY KEY,
		tenant_id VARCHAR(64) NOT NULL,
		command_type VARCHAR(50) NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}',
		status VARCHAR(20) NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		processed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_action_commands_pending ON action_commands (created_at) WHERE status = 'pending'`,
}
