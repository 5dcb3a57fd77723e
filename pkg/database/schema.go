package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema for the scheduling service
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	tables := []string{
		createPatientsTable,
		createProvidersTable,
		createRecurringSeriesTable,
		createAppointmentsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createAppointmentsIndexes,
		createPatientsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

const createPatientsTable = `
CREATE TABLE IF NOT EXISTS patients (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	first_name VARCHAR(100) NOT NULL,
	last_name VARCHAR(100) NOT NULL,
	birth_date DATE,
	active BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const createProvidersTable = `
CREATE TABLE IF NOT EXISTS providers (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	display_name VARCHAR(255) NOT NULL,
	discipline VARCHAR(100) NOT NULL,
	display_color VARCHAR(16) NOT NULL DEFAULT '#4A90D9',
	active BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const createRecurringSeriesTable = `
CREATE TABLE IF NOT EXISTS recurring_series (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	total_sessions INTEGER NOT NULL,
	frequency VARCHAR(20) NOT NULL,
	patient_id UUID NOT NULL REFERENCES patients(id),
	provider_id UUID NOT NULL REFERENCES providers(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Deleting a series must not cascade to its appointments, so series_id has
// ON DELETE SET NULL here. A storage-level exclusion constraint on
// (provider_id, time range) would close the check-then-act window for
// multi-process deployments; single-process serialization is handled in the
// service layer.
const createAppointmentsTable = `
CREATE TABLE IF NOT EXISTS appointments (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	provider_id UUID NOT NULL REFERENCES providers(id),
	patient_id UUID REFERENCES patients(id),
	start_time TIMESTAMPTZ NOT NULL,
	duration_minutes INTEGER NOT NULL,
	appointment_type VARCHAR(20) NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'TE_BEVESTIGEN',
	notes TEXT,
	series_id UUID REFERENCES recurring_series(id) ON DELETE SET NULL,
	session_index INTEGER,
	total_sessions INTEGER,
	is_alert BOOLEAN NOT NULL DEFAULT false,
	admin_title VARCHAR(255),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// The (provider_id, start_time) index bounds the conflict scan to one
// provider's day instead of the whole table.
const createAppointmentsIndexes = `
CREATE INDEX IF NOT EXISTS idx_appointments_provider_start ON appointments(provider_id, start_time);
CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments(patient_id);
CREATE INDEX IF NOT EXISTS idx_appointments_series ON appointments(series_id);`

const createPatientsIndexes = `
CREATE INDEX IF NOT EXISTS idx_patients_last_name ON patients(last_name);`
