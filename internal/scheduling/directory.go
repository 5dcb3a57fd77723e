package scheduling

import (
	"database/sql"
	"fmt"

	"github.com/maralydev/revabrain-sub000/pkg/database"
	"github.com/maralydev/revabrain-sub000/pkg/interfaces"
	"github.com/maralydev/revabrain-sub000/pkg/logger"
	"github.com/maralydev/revabrain-sub000/pkg/types"
)

// PostgresPatientDirectory resolves patients from the practice database
type PostgresPatientDirectory struct {
	db     *database.DB
	logger *logger.Logger
}

// NewPatientDirectory creates a patient directory backed by postgres
func NewPatientDirectory(db *database.DB, log *logger.Logger) interfaces.PatientDirectory {
	return &PostgresPatientDirectory{db: db, logger: log}
}

// SearchPatients searches patients by name prefix, case-insensitively.
// Results are capped so the booking form's typeahead stays responsive.
func (d *PostgresPatientDirectory) SearchPatients(query string) ([]*types.PatientSummary, error) {
	rows, err := d.db.Query(`
		SELECT id, last_name || ' ' || first_name, birth_date
		FROM patients
		WHERE (last_name ILIKE $1 OR first_name ILIKE $1) AND active = true
		ORDER BY last_name, first_name
		LIMIT 25`, query+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	defer rows.Close()

	patients := []*types.PatientSummary{}
	for rows.Next() {
		p := &types.PatientSummary{}
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.BirthDate); err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patients: %w", err)
	}

	return patients, nil
}

// DisplayName resolves a patient's display name for conflict presentation
func (d *PostgresPatientDirectory) DisplayName(patientID string) (string, error) {
	var name string
	err := d.db.QueryRow(`
		SELECT last_name || ' ' || first_name FROM patients WHERE id = $1`, patientID).
		Scan(&name)
	if err == sql.ErrNoRows {
		return "", types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("patient %s not found", patientID))
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve patient name: %w", err)
	}

	return name, nil
}

// PostgresProviderDirectory lists providers from the practice database
type PostgresProviderDirectory struct {
	db     *database.DB
	logger *logger.Logger
}

// NewProviderDirectory creates a provider directory backed by postgres
func NewProviderDirectory(db *database.DB, log *logger.Logger) interfaces.ProviderDirectory {
	return &PostgresProviderDirectory{db: db, logger: log}
}

// ListActiveProviders returns the providers shown as agenda columns
func (d *PostgresProviderDirectory) ListActiveProviders() ([]*types.ProviderSummary, error) {
	rows, err := d.db.Query(`
		SELECT id, display_name, discipline, display_color
		FROM providers
		WHERE active = true
		ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	providers := []*types.ProviderSummary{}
	for rows.Next() {
		p := &types.ProviderSummary{}
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Discipline, &p.DisplayColor); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate providers: %w", err)
	}

	return providers, nil
}
