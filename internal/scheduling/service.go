package scheduling

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/maralydev/revabrain-sub000/pkg/config"
	"github.com/maralydev/revabrain-sub000/pkg/database"
	"github.com/maralydev/revabrain-sub000/pkg/interfaces"
	"github.com/maralydev/revabrain-sub000/pkg/logger"
	"github.com/maralydev/revabrain-sub000/pkg/monitoring"
	"github.com/maralydev/revabrain-sub000/pkg/types"
)

// acceptedDurations is the set of durations offered by the booking form.
// Interactive resize may later produce any multiple of the slot granularity,
// so updates are validated against the grid instead.
var acceptedDurations = map[int]bool{
	30: true,
	45: true,
	60: true,
	90: true,
}

// Service orchestrates appointment scheduling: every mutating operation runs
// authorize, validate, conflict-check and persist as one synchronous
// sequence and returns a structured result.
type Service struct {
	config     *config.Config
	logger     *logger.Logger
	repository interfaces.SchedulingRepository
	patients   interfaces.PatientDirectory
	providers  interfaces.ProviderDirectory
	audit      interfaces.AuditSink
	detector   *ConflictDetector
	planner    *SeriesPlanner
	tokens     *TokenValidator
	db         *database.DB
	server     *http.Server
	health     *monitoring.HealthManager

	// Serializes the conflict-check-then-persist window per provider so
	// two concurrent writes cannot both pass the scan.
	lockMu        sync.Mutex
	providerLocks map[string]*sync.Mutex
}

// New creates a new scheduling service wired to postgres
func New(cfg *config.Config, log *logger.Logger) interfaces.SchedulingService {
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Errorf("Failed to connect to database: %v", err)
		panic(err)
	}

	if err := db.CreateSchema(context.Background()); err != nil {
		log.Errorf("Failed to create database schema: %v", err)
		panic(err)
	}

	repository := NewRepository(db, log)
	patients := NewPatientDirectory(db, log)
	providers := NewProviderDirectory(db, log)
	audit := NewLogAuditSink(log)

	detector := NewConflictDetector(repository, patients, log)
	planner := NewSeriesPlanner(detector, repository, log)

	health := monitoring.NewHealthManager("scheduling")
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))

	return &Service{
		config:        cfg,
		logger:        log,
		repository:    repository,
		patients:      patients,
		providers:     providers,
		audit:         audit,
		detector:      detector,
		planner:       planner,
		tokens:        NewTokenValidator(cfg.JWT.SecretKey, cfg.JWT.Issuer),
		db:            db,
		health:        health,
		providerLocks: make(map[string]*sync.Mutex),
	}
}

// lockProvider serializes scheduling writes for one provider.
func (s *Service) lockProvider(providerID string) func() {
	s.lockMu.Lock()
	lock, ok := s.providerLocks[providerID]
	if !ok {
		lock = &sync.Mutex{}
		s.providerLocks[providerID] = lock
	}
	s.lockMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// CreateAppointment creates a single appointment after conflict validation
func (s *Service) CreateAppointment(input *types.CreateAppointmentInput, actor *types.AuthContext) *types.ScheduleResult {
	if res := s.authorize(actor, input.ProviderID); res != nil {
		return res
	}

	if err := s.validateCreate(input); err != nil {
		return &types.ScheduleResult{Success: false, Error: err.Error(), ErrorType: types.ErrorTypeValidation}
	}

	unlock := s.lockProvider(input.ProviderID)
	defer unlock()

	conflicts, err := s.detector.FindConflicts(input.ProviderID, input.StartTime, input.DurationMinutes, "")
	if err != nil {
		return s.internalResult("create", err)
	}

	if len(conflicts) > 0 {
		monitoring.RecordConflictRejection("create")
		return &types.ScheduleResult{
			Success:   false,
			Error:     fmt.Sprintf("time slot overlaps %d existing booking(s)", len(conflicts)),
			ErrorType: types.ErrorTypeConflict,
			Conflicts: conflicts,
		}
	}

	now := time.Now()
	apt := &types.Appointment{
		ID:              uuid.New().String(),
		ProviderID:      input.ProviderID,
		PatientID:       input.PatientID,
		StartTime:       input.StartTime,
		DurationMinutes: input.DurationMinutes,
		Type:            input.Type,
		Status:          types.StatusPending,
		Notes:           input.Notes,
		IsAlert:         input.IsAlert,
		AdminTitle:      input.AdminTitle,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repository.CreateAppointment(apt); err != nil {
		return s.internalResult("create", err)
	}

	monitoring.RecordAppointmentCreated(string(apt.Type), false)
	s.audit.Record(actor.ActorID, "CREATE", "appointment", apt.ID,
		fmt.Sprintf("appointment for provider %s at %s (%d min, %s)", apt.ProviderID, apt.StartTime.Format(time.RFC3339), apt.DurationMinutes, apt.Type))

	s.logger.Infof("Created appointment %s for provider %s", apt.ID, apt.ProviderID)
	return &types.ScheduleResult{Success: true, AppointmentID: apt.ID}
}

// CreateSeries creates a recurring series with all-or-nothing validation
func (s *Service) CreateSeries(input *types.CreateSeriesInput, actor *types.AuthContext) *types.SeriesResult {
	if res := s.authorize(actor, input.ProviderID); res != nil {
		return &types.SeriesResult{Success: false, Error: res.Error, ErrorType: res.ErrorType}
	}

	unlock := s.lockProvider(input.ProviderID)
	defer unlock()

	result := s.planner.CreateSeries(input)
	if result.Success {
		s.audit.Record(actor.ActorID, "CREATE", "series", result.SeriesID,
			fmt.Sprintf("recurring series of %d sessions (%s) for provider %s", input.TotalSessions, input.Frequency, input.ProviderID))
	}
	return result
}

// UpdateAppointment applies partial changes, re-running conflict detection
// only when the time, duration or provider actually differ from the stored
// values.
func (s *Service) UpdateAppointment(input *types.UpdateAppointmentInput, actor *types.AuthContext) *types.ScheduleResult {
	existing, err := s.repository.GetAppointmentByID(input.ID)
	if err != nil {
		return s.notFoundOrInternal("update", err)
	}

	if res := s.authorize(actor, existing.ProviderID); res != nil {
		return res
	}

	targetProvider := existing.ProviderID
	if input.ProviderID != nil {
		targetProvider = *input.ProviderID
	}
	targetStart := existing.StartTime
	if input.StartTime != nil {
		targetStart = *input.StartTime
	}
	targetDuration := existing.DurationMinutes
	if input.DurationMinutes != nil {
		targetDuration = *input.DurationMinutes
	}

	// Resize can produce durations outside the booking form's accepted
	// set, but never off the slot raster.
	if targetDuration <= 0 || targetDuration%s.config.Agenda.SlotMinutes != 0 {
		return &types.ScheduleResult{
			Success:   false,
			Error:     fmt.Sprintf("duration must be a positive multiple of %d minutes", s.config.Agenda.SlotMinutes),
			ErrorType: types.ErrorTypeValidation,
		}
	}

	timingChanged := !targetStart.Equal(existing.StartTime) ||
		targetDuration != existing.DurationMinutes ||
		targetProvider != existing.ProviderID

	if timingChanged {
		unlock := s.lockProvider(targetProvider)
		defer unlock()

		conflicts, err := s.detector.FindConflicts(targetProvider, targetStart, targetDuration, existing.ID)
		if err != nil {
			return s.internalResult("update", err)
		}

		if len(conflicts) > 0 {
			monitoring.RecordConflictRejection("update")
			return &types.ScheduleResult{
				Success:   false,
				Error:     fmt.Sprintf("time slot overlaps %d existing booking(s)", len(conflicts)),
				ErrorType: types.ErrorTypeConflict,
				Conflicts: conflicts,
			}
		}
	}

	updates := s.changedFields(existing, input)
	if updates == nil {
		return &types.ScheduleResult{Success: true, AppointmentID: existing.ID}
	}

	if err := s.repository.UpdateAppointment(existing.ID, updates); err != nil {
		return s.notFoundOrInternal("update", err)
	}

	s.audit.Record(actor.ActorID, "UPDATE", "appointment", existing.ID,
		fmt.Sprintf("appointment moved to %s (%d min) for provider %s", targetStart.Format(time.RFC3339), targetDuration, targetProvider))

	s.logger.Infof("Updated appointment %s", existing.ID)
	return &types.ScheduleResult{Success: true, AppointmentID: existing.ID}
}

// CancelAppointment sets the status to GEANNULEERD. The row is retained and
// excluded from future conflict checks.
func (s *Service) CancelAppointment(appointmentID string, actor *types.AuthContext) *types.ScheduleResult {
	existing, err := s.repository.GetAppointmentByID(appointmentID)
	if err != nil {
		return s.notFoundOrInternal("cancel", err)
	}

	if res := s.authorize(actor, existing.ProviderID); res != nil {
		return res
	}

	status := types.StatusCancelled
	if err := s.repository.UpdateAppointment(appointmentID, &types.AppointmentUpdates{Status: &status}); err != nil {
		return s.notFoundOrInternal("cancel", err)
	}

	monitoring.RecordStatusChange(string(status))
	s.audit.Record(actor.ActorID, "CANCEL", "appointment", appointmentID,
		fmt.Sprintf("appointment for provider %s at %s cancelled", existing.ProviderID, existing.StartTime.Format(time.RFC3339)))

	s.logger.Infof("Cancelled appointment %s", appointmentID)
	return &types.ScheduleResult{Success: true, AppointmentID: appointmentID}
}

// DeleteAppointment permanently removes the row. The audit description is
// composed and recorded first, so identifying details survive the delete.
func (s *Service) DeleteAppointment(appointmentID string, actor *types.AuthContext) *types.ScheduleResult {
	existing, err := s.repository.GetAppointmentByID(appointmentID)
	if err != nil {
		return s.notFoundOrInternal("delete", err)
	}

	if res := s.authorize(actor, existing.ProviderID); res != nil {
		return res
	}

	description := fmt.Sprintf("appointment for provider %s at %s (%d min, %s) permanently deleted",
		existing.ProviderID, existing.StartTime.Format(time.RFC3339), existing.DurationMinutes, existing.Type)
	s.audit.Record(actor.ActorID, "DELETE", "appointment", appointmentID, description)

	if err := s.repository.DeleteAppointment(appointmentID); err != nil {
		return s.notFoundOrInternal("delete", err)
	}

	s.logger.Infof("Deleted appointment %s", appointmentID)
	return &types.ScheduleResult{Success: true, AppointmentID: appointmentID}
}

// SetAppointmentStatus writes the new status unconditionally. Only
// membership in the status enumeration is checked; there is no transition
// table.
func (s *Service) SetAppointmentStatus(appointmentID string, status types.AppointmentStatus, actor *types.AuthContext) *types.ScheduleResult {
	if !ValidStatus(status) {
		return &types.ScheduleResult{
			Success:   false,
			Error:     fmt.Sprintf("unknown status: %s", status),
			ErrorType: types.ErrorTypeValidation,
		}
	}

	existing, err := s.repository.GetAppointmentByID(appointmentID)
	if err != nil {
		return s.notFoundOrInternal("status", err)
	}

	if res := s.authorize(actor, existing.ProviderID); res != nil {
		return res
	}

	if err := s.repository.UpdateAppointment(appointmentID, &types.AppointmentUpdates{Status: &status}); err != nil {
		return s.notFoundOrInternal("status", err)
	}

	monitoring.RecordStatusChange(string(status))
	s.audit.Record(actor.ActorID, "STATUS", "appointment", appointmentID,
		fmt.Sprintf("status changed from %s to %s", existing.Status, status))

	return &types.ScheduleResult{Success: true, AppointmentID: appointmentID}
}

// GetAppointment retrieves an appointment by ID
func (s *Service) GetAppointment(appointmentID string) (*types.Appointment, error) {
	return s.repository.GetAppointmentByID(appointmentID)
}

// GetDaySchedule returns a provider's active appointments for one day.
func (s *Service) GetDaySchedule(providerID string, day time.Time) ([]*types.Appointment, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	return s.repository.AppointmentsForProvider(providerID, dayStart, dayEnd, true)
}

// FindConflicts exposes the detector for the UI's pre-flight checks
func (s *Service) FindConflicts(providerID string, start time.Time, durationMinutes int, excludeID string) ([]types.ConflictInfo, error) {
	return s.detector.FindConflicts(providerID, start, durationMinutes, excludeID)
}

// Start starts the scheduling service HTTP server
func (s *Service) Start(addr string) error {
	router := mux.NewRouter()
	s.setupRoutes(router)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeout) * time.Second,
	}

	s.logger.Infof("Starting Scheduling Service on %s", addr)
	return s.server.ListenAndServe()
}

// Stop stops the scheduling service
func (s *Service) Stop() error {
	if s.server != nil {
		s.logger.Info("Stopping Scheduling Service")
		if err := s.server.Close(); err != nil {
			return err
		}
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// authorize enforces the scheduling authorization rule: the actor must be
// the appointment's own provider or hold an administrative role. A missing
// authorization context is a hard failure.
func (s *Service) authorize(actor *types.AuthContext, providerID string) *types.ScheduleResult {
	if actor == nil || actor.ActorID == "" {
		return &types.ScheduleResult{
			Success:   false,
			Error:     "authorization context is required",
			ErrorType: types.ErrorTypeAuthorization,
		}
	}

	if actor.IsAdmin || actor.ActorID == providerID {
		return nil
	}

	s.logger.Warnf("Actor %s denied scheduling access for provider %s", actor.ActorID, providerID)
	return &types.ScheduleResult{
		Success:   false,
		Error:     "not allowed to manage this provider's agenda",
		ErrorType: types.ErrorTypeAuthorization,
	}
}

// validateCreate validates a single-appointment create input
func (s *Service) validateCreate(input *types.CreateAppointmentInput) error {
	if input.ProviderID == "" {
		return fmt.Errorf("provider is required")
	}

	if input.Type == "" {
		return fmt.Errorf("appointment type is required")
	}

	switch input.Type {
	case types.TypeIntake, types.TypeConsultation, types.TypeHomeVisit, types.TypeAdmin:
	default:
		return fmt.Errorf("unknown appointment type: %s", input.Type)
	}

	if input.Type != types.TypeAdmin && (input.PatientID == nil || *input.PatientID == "") {
		return fmt.Errorf("patient is required")
	}

	if input.StartTime.IsZero() {
		return fmt.Errorf("start time is required")
	}

	if !acceptedDurations[input.DurationMinutes] {
		return fmt.Errorf("duration of %d minutes is not accepted", input.DurationMinutes)
	}

	return nil
}

// changedFields builds the persisted update set from the fields that
// actually differ from the stored appointment. Returns nil when nothing
// changed.
func (s *Service) changedFields(existing *types.Appointment, input *types.UpdateAppointmentInput) *types.AppointmentUpdates {
	updates := &types.AppointmentUpdates{}
	changed := false

	if input.ProviderID != nil && *input.ProviderID != existing.ProviderID {
		updates.ProviderID = input.ProviderID
		changed = true
	}
	if input.StartTime != nil && !input.StartTime.Equal(existing.StartTime) {
		updates.StartTime = input.StartTime
		changed = true
	}
	if input.DurationMinutes != nil && *input.DurationMinutes != existing.DurationMinutes {
		updates.DurationMinutes = input.DurationMinutes
		changed = true
	}
	if input.Type != nil && *input.Type != existing.Type {
		updates.Type = input.Type
		changed = true
	}
	if input.Notes != nil && (existing.Notes == nil || *input.Notes != *existing.Notes) {
		updates.Notes = input.Notes
		changed = true
	}
	if input.IsAlert != nil && *input.IsAlert != existing.IsAlert {
		updates.IsAlert = input.IsAlert
		changed = true
	}
	if input.AdminTitle != nil && (existing.AdminTitle == nil || *input.AdminTitle != *existing.AdminTitle) {
		updates.AdminTitle = input.AdminTitle
		changed = true
	}

	if !changed {
		return nil
	}
	return updates
}

// internalResult logs the full failure and returns a generic message, so
// internal state never leaks to the UI.
func (s *Service) internalResult(operation string, err error) *types.ScheduleResult {
	s.logger.Errorf("Scheduling %s failed: %v", operation, err)
	return &types.ScheduleResult{
		Success:   false,
		Error:     "an internal error occurred, please try again",
		ErrorType: types.ErrorTypeInternal,
	}
}

// notFoundOrInternal distinguishes missing appointments from storage
// failures.
func (s *Service) notFoundOrInternal(operation string, err error) *types.ScheduleResult {
	var revaErr *types.RevaError
	if errors.As(err, &revaErr) && revaErr.Type == types.ErrorTypeNotFound {
		return &types.ScheduleResult{
			Success:   false,
			Error:     "appointment not found",
			ErrorType: types.ErrorTypeNotFound,
		}
	}
	return s.internalResult(operation, err)
}
