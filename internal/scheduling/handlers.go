package scheduling

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/maralydev/revabrain-sub000/pkg/monitoring"
	"github.com/maralydev/revabrain-sub000/pkg/types"
)

// setupRoutes configures HTTP routes for the scheduling service
func (s *Service) setupRoutes(router *mux.Router) {
	router.Use(s.metricsMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Appointment routes
	api.HandleFunc("/appointments", s.createAppointmentHandler).Methods("POST")
	api.HandleFunc("/appointments/series", s.createSeriesHandler).Methods("POST")
	api.HandleFunc("/appointments/series/{id}", s.getSeriesHandler).Methods("GET")
	api.HandleFunc("/appointments/series/{id}", s.deleteSeriesHandler).Methods("DELETE")
	api.HandleFunc("/appointments/{id}", s.getAppointmentHandler).Methods("GET")
	api.HandleFunc("/appointments/{id}", s.updateAppointmentHandler).Methods("PUT")
	api.HandleFunc("/appointments/{id}", s.deleteAppointmentHandler).Methods("DELETE")
	api.HandleFunc("/appointments/{id}/cancel", s.cancelAppointmentHandler).Methods("POST")
	api.HandleFunc("/appointments/{id}/status", s.setStatusHandler).Methods("PUT")

	// Agenda routes
	api.HandleFunc("/providers", s.listProvidersHandler).Methods("GET")
	api.HandleFunc("/providers/{providerId}/agenda", s.getDayScheduleHandler).Methods("GET")
	api.HandleFunc("/providers/{providerId}/conflicts", s.findConflictsHandler).Methods("GET")

	// Patient typeahead for the booking form
	api.HandleFunc("/patients", s.searchPatientsHandler).Methods("GET")

	// Operational endpoints
	router.Handle("/health", s.health.Handler()).Methods("GET")
	router.Handle("/metrics", monitoring.Handler()).Methods("GET")

	s.logger.Info("Scheduling service routes configured")
}

// metricsMiddleware records request counts per route template
func (s *Service) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				endpoint = template
			}
		}
		monitoring.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(recorder.status))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// createAppointmentHandler handles single-appointment creation
func (s *Service) createAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.resolveActor(w, r)
	if !ok {
		return
	}

	var input types.CreateAppointmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result := s.CreateAppointment(&input, actor)
	s.writeScheduleResult(w, result, http.StatusCreated)
}

// createSeriesHandler handles recurring-series creation
func (s *Service) createSeriesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.resolveActor(w, r)
	if !ok {
		return
	}

	var input types.CreateSeriesInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result := s.CreateSeries(&input, actor)
	status := http.StatusCreated
	if !result.Success {
		status = statusForErrorType(result.ErrorType)
	}
	s.writeJSONResponse(w, status, result)
}

// getSeriesHandler retrieves a recurring series grouping record
func (s *Service) getSeriesHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resolveActor(w, r); !ok {
		return
	}

	series, err := s.repository.GetSeriesByID(mux.Vars(r)["id"])
	if err != nil {
		s.writeErrorResponse(w, http.StatusNotFound, "Series not found", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, series)
}

// deleteSeriesHandler removes the series grouping only. Member appointments
// keep existing; storage detaches them by nulling their series reference.
func (s *Service) deleteSeriesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.resolveActor(w, r)
	if !ok {
		return
	}

	series, err := s.repository.GetSeriesByID(mux.Vars(r)["id"])
	if err != nil {
		s.writeErrorResponse(w, http.StatusNotFound, "Series not found", err)
		return
	}

	if res := s.authorize(actor, series.ProviderID); res != nil {
		s.writeJSONResponse(w, http.StatusForbidden, res)
		return
	}

	if err := s.repository.DeleteSeries(series.ID); err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to delete series", err)
		return
	}

	s.audit.Record(actor.ActorID, "DELETE", "series", series.ID,
		"recurring series grouping removed, member appointments detached")
	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Series deleted"})
}

// getAppointmentHandler handles appointment retrieval
func (s *Service) getAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resolveActor(w, r); !ok {
		return
	}

	vars := mux.Vars(r)
	apt, err := s.GetAppointment(vars["id"])
	if err != nil {
		s.writeErrorResponse(w, http.StatusNotFound, "Appointment not found", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, apt)
}

// updateAppointmentHandler handles partial appointment updates
func (s *Service) updateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.resolveActor(w, r)
	if !ok {
		return
	}

	var input types.UpdateAppointmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	input.ID = mux.Vars(r)["id"]

	result := s.UpdateAppointment(&input, actor)
	s.writeScheduleResult(w, result, http.StatusOK)
}

// cancelAppointmentHandler marks an appointment as cancelled
func (s *Service) cancelAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.resolveActor(w, r)
	if !ok {
		return
	}

	result := s.CancelAppointment(mux.Vars(r)["id"], actor)
	s.writeScheduleResult(w, result, http.StatusOK)
}

// deleteAppointmentHandler permanently deletes an appointment
func (s *Service) deleteAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.resolveActor(w, r)
	if !ok {
		return
	}

	result := s.DeleteAppointment(mux.Vars(r)["id"], actor)
	s.writeScheduleResult(w, result, http.StatusOK)
}

// setStatusHandler writes a new appointment status
func (s *Service) setStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.resolveActor(w, r)
	if !ok {
		return
	}

	var body struct {
		Status types.AppointmentStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result := s.SetAppointmentStatus(mux.Vars(r)["id"], body.Status, actor)
	s.writeScheduleResult(w, result, http.StatusOK)
}

// listProvidersHandler returns the agenda's provider columns
func (s *Service) listProvidersHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resolveActor(w, r); !ok {
		return
	}

	providers, err := s.providers.ListActiveProviders()
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to list providers", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, providers)
}

// getDayScheduleHandler returns a provider's appointments for one day. The
// response carries the effective status of each appointment so stale open
// statuses show as NO_SHOW without a database write.
func (s *Service) getDayScheduleHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resolveActor(w, r); !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "Date parameter is required", nil)
		return
	}

	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD", err)
		return
	}

	providerID := mux.Vars(r)["providerId"]
	appointments, err := s.GetDaySchedule(providerID, day)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to get day schedule", err)
		return
	}

	now := time.Now()
	entries := make([]agendaEntry, 0, len(appointments))
	for _, apt := range appointments {
		entries = append(entries, agendaEntry{
			Appointment:     apt,
			EffectiveStatus: EffectiveStatus(apt, now),
		})
	}

	s.writeJSONResponse(w, http.StatusOK, entries)
}

// agendaEntry pairs an appointment with its read-time effective status
type agendaEntry struct {
	*types.Appointment
	EffectiveStatus types.AppointmentStatus `json:"effective_status"`
}

// findConflictsHandler runs a pre-flight conflict check for the UI
func (s *Service) findConflictsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resolveActor(w, r); !ok {
		return
	}

	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid start parameter, expected RFC 3339", err)
		return
	}

	duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil || duration <= 0 {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid duration parameter", err)
		return
	}

	providerID := mux.Vars(r)["providerId"]
	excludeID := r.URL.Query().Get("exclude")

	conflicts, err := s.FindConflicts(providerID, start, duration, excludeID)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to check conflicts", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"conflicts": conflicts,
		"count":     len(conflicts),
	})
}

// searchPatientsHandler serves the booking form's patient typeahead
func (s *Service) searchPatientsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resolveActor(w, r); !ok {
		return
	}

	query := r.URL.Query().Get("q")
	if len(query) < 2 {
		s.writeJSONResponse(w, http.StatusOK, []*types.PatientSummary{})
		return
	}

	patients, err := s.patients.SearchPatients(query)
	if err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "Failed to search patients", err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, patients)
}

// Helper methods

// resolveActor validates the Authorization header and returns the actor. On
// failure it writes a 401 and returns ok=false.
func (s *Service) resolveActor(w http.ResponseWriter, r *http.Request) (*types.AuthContext, bool) {
	actor, err := s.tokens.ActorFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", err)
		return nil, false
	}
	return actor, true
}

// writeScheduleResult maps a structured result to an HTTP response
func (s *Service) writeScheduleResult(w http.ResponseWriter, result *types.ScheduleResult, successStatus int) {
	status := successStatus
	if !result.Success {
		status = statusForErrorType(result.ErrorType)
	}
	s.writeJSONResponse(w, status, result)
}

// statusForErrorType maps result error categories to HTTP status codes
func statusForErrorType(errorType types.ErrorType) int {
	switch errorType {
	case types.ErrorTypeValidation:
		return http.StatusBadRequest
	case types.ErrorTypeAuthorization:
		return http.StatusForbidden
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONResponse writes a JSON response
func (s *Service) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes an error response
func (s *Service) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		s.logger.WithError(err).Warn(message)
	}

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}

	s.writeJSONResponse(w, statusCode, response)
}
