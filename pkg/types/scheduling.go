package types

import "time"

// Appointment represents a scheduled time block in a provider's agenda.
// PatientID is nil for internal admin blocks (type ADMIN).
type Appointment struct {
	ID              string            `json:"id" db:"id"`
	ProviderID      string            `json:"provider_id" db:"provider_id"`
	PatientID       *string           `json:"patient_id,omitempty" db:"patient_id"`
	StartTime       time.Time         `json:"start_time" db:"start_time"`
	DurationMinutes int               `json:"duration_minutes" db:"duration_minutes"`
	Type            AppointmentType   `json:"type" db:"appointment_type"`
	Status          AppointmentStatus `json:"status" db:"status"`
	Notes           *string           `json:"notes,omitempty" db:"notes"`
	SeriesID        *string           `json:"series_id,omitempty" db:"series_id"`
	SessionIndex    *int              `json:"session_index,omitempty" db:"session_index"`
	TotalSessions   *int              `json:"total_sessions,omitempty" db:"total_sessions"`
	IsAlert         bool              `json:"is_alert" db:"is_alert"`
	AdminTitle      *string           `json:"admin_title,omitempty" db:"admin_title"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// EndTime returns the exclusive end of the appointment's time range.
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// RecurringSeries groups appointments generated by one recurring-booking
// request. It is a grouping record only: deleting a series does not cascade
// to its appointments.
type RecurringSeries struct {
	ID            string          `json:"id" db:"id"`
	TotalSessions int             `json:"total_sessions" db:"total_sessions"`
	Frequency     SeriesFrequency `json:"frequency" db:"frequency"`
	PatientID     string          `json:"patient_id" db:"patient_id"`
	ProviderID    string          `json:"provider_id" db:"provider_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// AppointmentStatus represents appointment status values. The enumeration is
// deliberately open: any status may be written from any other, so staff can
// correct mistakes without a transition table getting in the way.
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "TE_BEVESTIGEN"
	StatusConfirmed   AppointmentStatus = "BEVESTIGD"
	StatusWaitingRoom AppointmentStatus = "IN_WACHTZAAL"
	StatusInSession   AppointmentStatus = "BINNEN"
	StatusCompleted   AppointmentStatus = "AFGEWERKT"
	StatusNoShow      AppointmentStatus = "NO_SHOW"
	StatusCancelled   AppointmentStatus = "GEANNULEERD"
)

// AppointmentType represents appointment type values
type AppointmentType string

const (
	TypeIntake       AppointmentType = "INTAKE"
	TypeConsultation AppointmentType = "CONSULTATION"
	TypeHomeVisit    AppointmentType = "HOME_VISIT"
	TypeAdmin        AppointmentType = "ADMIN"
)

// SeriesFrequency represents recurring series frequency values
type SeriesFrequency string

const (
	FrequencyWeekly      SeriesFrequency = "WEEKLY"
	FrequencyTwiceWeekly SeriesFrequency = "TWICE_WEEKLY"
	FrequencyMonthly     SeriesFrequency = "MONTHLY"
)

// ConflictInfo describes one overlapping active appointment, shaped for UI
// presentation alongside a rejection.
type ConflictInfo struct {
	AppointmentID   string    `json:"appointment_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	PatientName     string    `json:"patient_name"`
}

// CreateAppointmentInput carries the fields for a single-appointment create.
type CreateAppointmentInput struct {
	ProviderID      string          `json:"provider_id"`
	PatientID       *string         `json:"patient_id,omitempty"`
	StartTime       time.Time       `json:"start_time"`
	DurationMinutes int             `json:"duration_minutes"`
	Type            AppointmentType `json:"type"`
	Notes           *string         `json:"notes,omitempty"`
	IsAlert         bool            `json:"is_alert"`
	AdminTitle      *string         `json:"admin_title,omitempty"`
}

// CreateSeriesInput carries the fields for a recurring-series create.
type CreateSeriesInput struct {
	ProviderID      string          `json:"provider_id"`
	PatientID       string          `json:"patient_id"`
	StartTime       time.Time       `json:"start_time"`
	DurationMinutes int             `json:"duration_minutes"`
	Type            AppointmentType `json:"type"`
	TotalSessions   int             `json:"total_sessions"`
	Frequency       SeriesFrequency `json:"frequency"`
	Notes           *string         `json:"notes,omitempty"`
}

// UpdateAppointmentInput carries partial updates to an appointment. Nil
// fields are left untouched. SeriesID is intentionally absent: series
// membership is immutable after creation.
type UpdateAppointmentInput struct {
	ID              string           `json:"id"`
	ProviderID      *string          `json:"provider_id,omitempty"`
	StartTime       *time.Time       `json:"start_time,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
	Type            *AppointmentType `json:"type,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	IsAlert         *bool            `json:"is_alert,omitempty"`
	AdminTitle      *string          `json:"admin_title,omitempty"`
}

// ScheduleResult is the structured outcome of a mutating scheduling
// operation. Errors never cross the service boundary as raw values.
type ScheduleResult struct {
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	ErrorType     ErrorType      `json:"error_type,omitempty"`
	AppointmentID string         `json:"appointment_id,omitempty"`
	Conflicts     []ConflictInfo `json:"conflicts,omitempty"`
}

// SeriesResult is the structured outcome of a series create. On conflict
// rejection it carries both the full conflict list and the full planned-date
// list so the UI can show which sessions collided.
type SeriesResult struct {
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	ErrorType    ErrorType      `json:"error_type,omitempty"`
	SeriesID     string         `json:"series_id,omitempty"`
	CreatedIDs   []string       `json:"created_ids,omitempty"`
	PlannedDates []time.Time    `json:"planned_dates,omitempty"`
	Conflicts    []ConflictInfo `json:"conflicts,omitempty"`
}

// AppointmentUpdates represents the persisted field changes of an update.
// Only non-nil fields are written.
type AppointmentUpdates struct {
	ProviderID      *string
	StartTime       *time.Time
	DurationMinutes *int
	Type            *AppointmentType
	Status          *AppointmentStatus
	Notes           *string
	IsAlert         *bool
	AdminTitle      *string
}

// PatientSummary is the patient directory's search result shape.
type PatientSummary struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	BirthDate   time.Time `json:"birth_date"`
}

// ProviderSummary feeds the agenda's provider columns.
type ProviderSummary struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	Discipline   string `json:"discipline"`
	DisplayColor string `json:"display_color"`
}
