package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations applies the schema idempotently at startup.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			full_name TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			last_login_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			address_line TEXT,
			city TEXT,
			state TEXT,
			postal_code TEXT,
			tags TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_customers_company ON customers (company_id)`,
		`CREATE TABLE IF NOT EXISTS agreement_plans (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL,
			code TEXT NOT NULL,
			name TEXT NOT NULL,
			trade TEXT NOT NULL,
			description TEXT,
			monthly_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			annual_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			discount_pct NUMERIC(5,2) NOT NULL DEFAULT 0,
			visits_included INT NOT NULL DEFAULT 0 CHECK (visits_included >= 0),
			priority_service BOOLEAN NOT NULL DEFAULT false,
			no_diagnostic_fee BOOLEAN NOT NULL DEFAULT false,
			included_services TEXT[] NOT NULL DEFAULT '{}',
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (company_id, code)
		)`,
		`CREATE TABLE IF NOT EXISTS service_agreements (
			id BIGSERIAL PRIMARY KEY,
			agreement_number TEXT NOT NULL UNIQUE,
			company_id BIGINT NOT NULL,
			customer_id BIGINT NOT NULL REFERENCES customers(id),
			plan_id BIGINT NOT NULL REFERENCES agreement_plans(id),
			status TEXT NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			renewal_date TIMESTAMPTZ NOT NULL,
			billing_frequency TEXT NOT NULL,
			payment_method TEXT,
			auto_renew BOOLEAN NOT NULL DEFAULT false,
			visits_used INT NOT NULL DEFAULT 0 CHECK (visits_used >= 0),
			last_visit_date TIMESTAMPTZ,
			next_visit_due TIMESTAMPTZ,
			notes TEXT,
			version BIGINT NOT NULL DEFAULT 1,
			cancelled_at TIMESTAMPTZ,
			expiring_notified_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_agreements_company_status ON service_agreements (company_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_agreements_end_date ON service_agreements (end_date)`,
		`CREATE TABLE IF NOT EXISTS agreement_visits (
			id BIGSERIAL PRIMARY KEY,
			agreement_id BIGINT NOT NULL REFERENCES service_agreements(id),
			job_reference TEXT,
			technician TEXT,
			visited_at TIMESTAMPTZ NOT NULL,
			notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_agreement ON agreement_visits (agreement_id)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id BIGSERIAL PRIMARY KEY,
			company_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL REFERENCES users(id),
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			agreement_id BIGINT,
			read BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, read)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
