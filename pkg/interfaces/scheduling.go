package interfaces

import (
	"time"

	"github.com/maralydev/revabrain-sub000/pkg/types"
)

// SchedulingService defines the interface for appointment scheduling.
// Mutating operations return structured results and never leak raw errors
// to the caller.
type SchedulingService interface {
	// Appointment lifecycle
	CreateAppointment(input *types.CreateAppointmentInput, actor *types.AuthContext) *types.ScheduleResult
	CreateSeries(input *types.CreateSeriesInput, actor *types.AuthContext) *types.SeriesResult
	UpdateAppointment(input *types.UpdateAppointmentInput, actor *types.AuthContext) *types.ScheduleResult
	CancelAppointment(appointmentID string, actor *types.AuthContext) *types.ScheduleResult
	DeleteAppointment(appointmentID string, actor *types.AuthContext) *types.ScheduleResult
	SetAppointmentStatus(appointmentID string, status types.AppointmentStatus, actor *types.AuthContext) *types.ScheduleResult

	// Queries
	GetAppointment(appointmentID string) (*types.Appointment, error)
	GetDaySchedule(providerID string, day time.Time) ([]*types.Appointment, error)
	FindConflicts(providerID string, start time.Time, durationMinutes int, excludeID string) ([]types.ConflictInfo, error)

	// Service management
	Start(addr string) error
	Stop() error
}

// SchedulingRepository defines the interface for scheduling data persistence
type SchedulingRepository interface {
	// Appointments
	CreateAppointment(apt *types.Appointment) error
	GetAppointmentByID(id string) (*types.Appointment, error)
	UpdateAppointment(id string, updates *types.AppointmentUpdates) error
	DeleteAppointment(id string) error
	AppointmentsForProvider(providerID string, dayStart, dayEnd time.Time, excludeCancelled bool) ([]*types.Appointment, error)

	// Conflict candidates: active appointments of the provider whose range
	// overlaps [start, end), excluding excludeID when non-empty.
	ConflictCandidates(providerID string, start, end time.Time, excludeID string) ([]*types.Appointment, error)

	// Series
	CreateSeries(series *types.RecurringSeries, appointments []*types.Appointment) error
	GetSeriesByID(id string) (*types.RecurringSeries, error)
	DeleteSeries(id string) error
}

// PatientDirectory resolves patients before scheduling calls. Implemented
// by the patient-records subsystem; the engine only consumes it.
type PatientDirectory interface {
	SearchPatients(query string) ([]*types.PatientSummary, error)
	DisplayName(patientID string) (string, error)
}

// ProviderDirectory feeds the agenda's provider columns
type ProviderDirectory interface {
	ListActiveProviders() ([]*types.ProviderSummary, error)
}

// AuditSink records scheduling activity. Calls are fire-and-forget: a sink
// failure must never fail the primary operation.
type AuditSink interface {
	Record(actorID, actionType, entityType, entityID, description string)
}
