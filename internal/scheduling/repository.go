package scheduling

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/maralydev/revabrain-sub000/pkg/database"
	"github.com/maralydev/revabrain-sub000/pkg/interfaces"
	"github.com/maralydev/revabrain-sub000/pkg/logger"
	"github.com/maralydev/revabrain-sub000/pkg/types"
)

const appointmentColumns = `id, provider_id, patient_id, start_time, duration_minutes,
	appointment_type, status, notes, series_id, session_index, total_sessions,
	is_alert, admin_title, created_at, updated_at`

// Repository implements scheduling persistence on PostgreSQL
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new scheduling repository
func NewRepository(db *database.DB, log *logger.Logger) interfaces.SchedulingRepository {
	return &Repository{db: db, logger: log}
}

// CreateAppointment inserts a new appointment
func (r *Repository) CreateAppointment(apt *types.Appointment) error {
	query := `
		INSERT INTO appointments (id, provider_id, patient_id, start_time,
			duration_minutes, appointment_type, status, notes, series_id,
			session_index, total_sessions, is_alert, admin_title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.db.Exec(query,
		apt.ID, apt.ProviderID, apt.PatientID, apt.StartTime,
		apt.DurationMinutes, apt.Type, apt.Status, apt.Notes, apt.SeriesID,
		apt.SessionIndex, apt.TotalSessions, apt.IsAlert, apt.AdminTitle,
		apt.CreatedAt, apt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

// GetAppointmentByID retrieves an appointment by its ID
func (r *Repository) GetAppointmentByID(id string) (*types.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)

	apt, err := r.scanAppointment(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("appointment %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return apt, nil
}

// UpdateAppointment applies the non-nil fields of updates to an appointment.
// The SET clause is built dynamically so untouched columns keep their values.
func (r *Repository) UpdateAppointment(id string, updates *types.AppointmentUpdates) error {
	setClauses := []string{}
	args := []interface{}{}
	argIndex := 1

	addClause := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if updates.ProviderID != nil {
		addClause("provider_id", *updates.ProviderID)
	}
	if updates.StartTime != nil {
		addClause("start_time", *updates.StartTime)
	}
	if updates.DurationMinutes != nil {
		addClause("duration_minutes", *updates.DurationMinutes)
	}
	if updates.Type != nil {
		addClause("appointment_type", *updates.Type)
	}
	if updates.Status != nil {
		addClause("status", *updates.Status)
	}
	if updates.Notes != nil {
		addClause("notes", *updates.Notes)
	}
	if updates.IsAlert != nil {
		addClause("is_alert", *updates.IsAlert)
	}
	if updates.AdminTitle != nil {
		addClause("admin_title", *updates.AdminTitle)
	}

	if len(setClauses) == 0 {
		return nil
	}

	addClause("updated_at", time.Now())

	query := fmt.Sprintf("UPDATE appointments SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "), argIndex)
	args = append(args, id)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("appointment %s not found", id))
	}

	return nil
}

// DeleteAppointment permanently removes an appointment row
func (r *Repository) DeleteAppointment(id string) error {
	result, err := r.db.Exec(`DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("appointment %s not found", id))
	}

	return nil
}

// AppointmentsForProvider returns a provider's appointments with a start
// time in [dayStart, dayEnd), ordered by start time.
func (r *Repository) AppointmentsForProvider(providerID string, dayStart, dayEnd time.Time, excludeCancelled bool) ([]*types.Appointment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM appointments
		WHERE provider_id = $1 AND start_time >= $2 AND start_time < $3`, appointmentColumns)
	if excludeCancelled {
		query += ` AND status <> 'GEANNULEERD'`
	}
	query += ` ORDER BY start_time ASC`

	rows, err := r.db.Query(query, providerID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	return r.scanAppointments(rows)
}

// ConflictCandidates returns the provider's non-cancelled appointments whose
// time range overlaps [start, end). Both boundaries are exclusive: a booking
// ending exactly at start, or starting exactly at end, does not match.
func (r *Repository) ConflictCandidates(providerID string, start, end time.Time, excludeID string) ([]*types.Appointment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM appointments
		WHERE provider_id = $1
		  AND status <> 'GEANNULEERD'
		  AND start_time < $2
		  AND start_time + (duration_minutes * interval '1 minute') > $3`, appointmentColumns)

	args := []interface{}{providerID, end, start}
	if excludeID != "" {
		query += ` AND id <> $4`
		args = append(args, excludeID)
	}
	query += ` ORDER BY start_time ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conflict candidates: %w", err)
	}
	defer rows.Close()

	return r.scanAppointments(rows)
}

// CreateSeries persists the series record and all of its appointments in a
// single transaction. Either everything commits or nothing does.
func (r *Repository) CreateSeries(series *types.RecurringSeries, appointments []*types.Appointment) error {
	ctx := context.Background()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO recurring_series (id, total_sessions, frequency, patient_id, provider_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		series.ID, series.TotalSessions, series.Frequency, series.PatientID, series.ProviderID, series.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create series: %w", err)
	}

	insertQuery := `
		INSERT INTO appointments (id, provider_id, patient_id, start_time,
			duration_minutes, appointment_type, status, notes, series_id,
			session_index, total_sessions, is_alert, admin_title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	for _, apt := range appointments {
		_, err = tx.Exec(insertQuery,
			apt.ID, apt.ProviderID, apt.PatientID, apt.StartTime,
			apt.DurationMinutes, apt.Type, apt.Status, apt.Notes, apt.SeriesID,
			apt.SessionIndex, apt.TotalSessions, apt.IsAlert, apt.AdminTitle,
			apt.CreatedAt, apt.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create series appointment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit series: %w", err)
	}

	return nil
}

// GetSeriesByID retrieves a recurring series by its ID
func (r *Repository) GetSeriesByID(id string) (*types.RecurringSeries, error) {
	series := &types.RecurringSeries{}
	err := r.db.QueryRow(`
		SELECT id, total_sessions, frequency, patient_id, provider_id, created_at
		FROM recurring_series WHERE id = $1`, id).
		Scan(&series.ID, &series.TotalSessions, &series.Frequency,
			&series.PatientID, &series.ProviderID, &series.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("series %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get series: %w", err)
	}

	return series, nil
}

// DeleteSeries removes the series grouping record. Member appointments keep
// existing with series_id set to NULL by the schema's ON DELETE SET NULL.
func (r *Repository) DeleteSeries(id string) error {
	result, err := r.db.Exec(`DELETE FROM recurring_series WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete series: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, fmt.Sprintf("series %s not found", id))
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanAppointment(row rowScanner) (*types.Appointment, error) {
	apt := &types.Appointment{}
	err := row.Scan(
		&apt.ID, &apt.ProviderID, &apt.PatientID, &apt.StartTime,
		&apt.DurationMinutes, &apt.Type, &apt.Status, &apt.Notes, &apt.SeriesID,
		&apt.SessionIndex, &apt.TotalSessions, &apt.IsAlert, &apt.AdminTitle,
		&apt.CreatedAt, &apt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return apt, nil
}

func (r *Repository) scanAppointments(rows *sql.Rows) ([]*types.Appointment, error) {
	appointments := []*types.Appointment{}
	for rows.Next() {
		apt, err := r.scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, apt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}
	return appointments, nil
}
