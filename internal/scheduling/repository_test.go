package scheduling

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maralydev/revabrain-sub000/pkg/database"
	"github.com/maralydev/revabrain-sub000/pkg/logger"
	"github.com/maralydev/revabrain-sub000/pkg/types"
)

func setupTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := &Repository{
		db:     &database.DB{DB: sqlDB},
		logger: logger.New("debug"),
	}

	cleanup := func() {
		sqlDB.Close()
	}

	return repo, mock, cleanup
}

func appointmentRows(apts ...*types.Appointment) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "provider_id", "patient_id", "start_time", "duration_minutes",
		"appointment_type", "status", "notes", "series_id", "session_index",
		"total_sessions", "is_alert", "admin_title", "created_at", "updated_at",
	})
	for _, apt := range apts {
		rows.AddRow(apt.ID, apt.ProviderID, apt.PatientID, apt.StartTime,
			apt.DurationMinutes, apt.Type, apt.Status, apt.Notes, apt.SeriesID,
			apt.SessionIndex, apt.TotalSessions, apt.IsAlert, apt.AdminTitle,
			apt.CreatedAt, apt.UpdatedAt)
	}
	return rows
}

func TestRepository_CreateAppointment(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	now := time.Now()
	apt := &types.Appointment{
		ID:              "apt-1",
		ProviderID:      "provider-1",
		PatientID:       strPtr("patient-1"),
		StartTime:       at(9, 0),
		DurationMinutes: 60,
		Type:            types.TypeConsultation,
		Status:          types.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(apt.ID, apt.ProviderID, apt.PatientID, apt.StartTime,
			apt.DurationMinutes, apt.Type, apt.Status, nil, nil,
			nil, nil, false, nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CreateAppointment(apt)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetAppointmentByID_NotFound(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE id").
		WithArgs("missing").
		WillReturnRows(appointmentRows())

	_, err := repo.GetAppointmentByID("missing")

	require.Error(t, err)
	var revaErr *types.RevaError
	require.ErrorAs(t, err, &revaErr)
	assert.Equal(t, types.ErrorTypeNotFound, revaErr.Type)
}

func TestRepository_ConflictCandidates_ExcludesCancelledAndSelf(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	existing := &types.Appointment{
		ID:              "apt-2",
		ProviderID:      "provider-1",
		PatientID:       strPtr("patient-2"),
		StartTime:       at(9, 0),
		DurationMinutes: 60,
		Type:            types.TypeConsultation,
		Status:          types.StatusConfirmed,
	}

	mock.ExpectQuery(`SELECT (.+) FROM appointments\s+WHERE provider_id = \$1\s+AND status <> 'GEANNULEERD'`).
		WithArgs("provider-1", at(10, 30), at(9, 30), "apt-1").
		WillReturnRows(appointmentRows(existing))

	candidates, err := repo.ConflictCandidates("provider-1", at(9, 30), at(10, 30), "apt-1")

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "apt-2", candidates[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ConflictCandidates_NoExcludeID(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs("provider-1", at(10, 0), at(9, 0)).
		WillReturnRows(appointmentRows())

	candidates, err := repo.ConflictCandidates("provider-1", at(9, 0), at(10, 0), "")

	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestRepository_UpdateAppointment_OnlyTouchedColumns(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	newStart := at(10, 0)
	duration := 45
	updates := &types.AppointmentUpdates{
		StartTime:       &newStart,
		DurationMinutes: &duration,
	}

	mock.ExpectExec(`UPDATE appointments SET start_time = \$1, duration_minutes = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs(newStart, duration, sqlmock.AnyArg(), "apt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateAppointment("apt-1", updates)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateAppointment_NoFieldsIsNoOp(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	err := repo.UpdateAppointment("apt-1", &types.AppointmentUpdates{})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateAppointment_NotFound(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	status := types.StatusCancelled
	mock.ExpectExec("UPDATE appointments SET").
		WithArgs(status, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateAppointment("missing", &types.AppointmentUpdates{Status: &status})

	var revaErr *types.RevaError
	require.ErrorAs(t, err, &revaErr)
	assert.Equal(t, types.ErrorTypeNotFound, revaErr.Type)
}

func TestRepository_DeleteAppointment_NotFound(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM appointments WHERE id").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteAppointment("missing")

	var revaErr *types.RevaError
	require.ErrorAs(t, err, &revaErr)
	assert.Equal(t, types.ErrorTypeNotFound, revaErr.Type)
}

func TestRepository_CreateSeries_SingleTransaction(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	now := time.Now()
	series := &types.RecurringSeries{
		ID:            "series-1",
		TotalSessions: 2,
		Frequency:     types.FrequencyWeekly,
		PatientID:     "patient-1",
		ProviderID:    "provider-1",
		CreatedAt:     now,
	}

	one, two := 1, 2
	total := 2
	seriesID := "series-1"
	appointments := []*types.Appointment{
		{ID: "apt-1", ProviderID: "provider-1", PatientID: strPtr("patient-1"),
			StartTime: at(9, 0), DurationMinutes: 60, Type: types.TypeConsultation,
			Status: types.StatusPending, SeriesID: &seriesID, SessionIndex: &one,
			TotalSessions: &total, CreatedAt: now, UpdatedAt: now},
		{ID: "apt-2", ProviderID: "provider-1", PatientID: strPtr("patient-1"),
			StartTime: at(9, 0).AddDate(0, 0, 7), DurationMinutes: 60, Type: types.TypeConsultation,
			Status: types.StatusPending, SeriesID: &seriesID, SessionIndex: &two,
			TotalSessions: &total, CreatedAt: now, UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO recurring_series").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateSeries(series, appointments)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_CreateSeries_RollsBackOnFailure(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	series := &types.RecurringSeries{ID: "series-1", TotalSessions: 2,
		Frequency: types.FrequencyWeekly, PatientID: "patient-1", ProviderID: "provider-1"}
	appointments := []*types.Appointment{
		{ID: "apt-1", ProviderID: "provider-1", StartTime: at(9, 0), DurationMinutes: 60},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO recurring_series").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.CreateSeries(series, appointments)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_AppointmentsForProvider_ExcludesCancelled(t *testing.T) {
	repo, mock, cleanup := setupTestRepository(t)
	defer cleanup()

	dayStart := time.Date(2026, time.March, 9, 0, 0, 0, 0, time.Local)
	dayEnd := dayStart.Add(24 * time.Hour)

	mock.ExpectQuery(`SELECT (.+) FROM appointments\s+WHERE provider_id = \$1 AND start_time >= \$2 AND start_time < \$3 AND status <> 'GEANNULEERD'`).
		WithArgs("provider-1", dayStart, dayEnd).
		WillReturnRows(appointmentRows())

	appointments, err := repo.AppointmentsForProvider("provider-1", dayStart, dayEnd, true)

	require.NoError(t, err)
	assert.Empty(t, appointments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
