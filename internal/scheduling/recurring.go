package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maralydev/revabrain-sub000/pkg/interfaces"
	"github.com/maralydev/revabrain-sub000/pkg/logger"
	"github.com/maralydev/revabrain-sub000/pkg/monitoring"
	"github.com/maralydev/revabrain-sub000/pkg/types"
)

// Session count bounds for a recurring series.
const (
	MinSessions = 2
	MaxSessions = 52
)

// SeriesPlanner computes future appointment dates from a frequency rule and
// creates recurring series with all-or-nothing conflict validation.
type SeriesPlanner struct {
	detector   *ConflictDetector
	repository interfaces.SchedulingRepository
	logger     *logger.Logger
}

// NewSeriesPlanner creates a new series planner
func NewSeriesPlanner(detector *ConflictDetector, repo interfaces.SchedulingRepository, log *logger.Logger) *SeriesPlanner {
	return &SeriesPlanner{
		detector:   detector,
		repository: repo,
		logger:     log,
	}
}

// PlanDates computes totalSessions dates starting at start. WEEKLY advances
// 7 days, TWICE_WEEKLY 3 days (an approximation of twice a week, not a true
// calendar pattern), MONTHLY advances the calendar month keeping the day
// number. MONTHLY relies on Go's native AddDate rollover: planning from
// Jan 31 rolls into early March when February is short.
func (p *SeriesPlanner) PlanDates(start time.Time, totalSessions int, frequency types.SeriesFrequency) ([]time.Time, error) {
	if totalSessions < MinSessions || totalSessions > MaxSessions {
		return nil, fmt.Errorf("session count must be between %d and %d, got %d", MinSessions, MaxSessions, totalSessions)
	}

	dates := make([]time.Time, 0, totalSessions)
	current := start

	for i := 0; i < totalSessions; i++ {
		dates = append(dates, current)

		switch frequency {
		case types.FrequencyWeekly:
			current = current.AddDate(0, 0, 7)
		case types.FrequencyTwiceWeekly:
			current = current.AddDate(0, 0, 3)
		case types.FrequencyMonthly:
			current = current.AddDate(0, 1, 0)
		default:
			return nil, fmt.Errorf("unknown frequency: %s", frequency)
		}
	}

	return dates, nil
}

// CreateSeries validates every planned date against the conflict detector
// before committing anything. If any date conflicts the whole request is
// aborted: the result carries the full conflict list and the full planned
// date list, and nothing is persisted. On success the series record and all
// N appointments are created in one repository transaction, with session
// indexes 1..N.
func (p *SeriesPlanner) CreateSeries(input *types.CreateSeriesInput) *types.SeriesResult {
	if err := p.validateInput(input); err != nil {
		return &types.SeriesResult{
			Success:   false,
			Error:     err.Error(),
			ErrorType: types.ErrorTypeValidation,
		}
	}

	dates, err := p.PlanDates(input.StartTime, input.TotalSessions, input.Frequency)
	if err != nil {
		return &types.SeriesResult{
			Success:   false,
			Error:     err.Error(),
			ErrorType: types.ErrorTypeValidation,
		}
	}

	var allConflicts []types.ConflictInfo
	for _, date := range dates {
		conflicts, err := p.detector.FindConflicts(input.ProviderID, date, input.DurationMinutes, "")
		if err != nil {
			p.logger.Errorf("Conflict check failed while planning series: %v", err)
			return &types.SeriesResult{
				Success:   false,
				Error:     "failed to validate planned sessions",
				ErrorType: types.ErrorTypeInternal,
			}
		}
		allConflicts = append(allConflicts, conflicts...)
	}

	if len(allConflicts) > 0 {
		monitoring.RecordConflictRejection("create_series")
		return &types.SeriesResult{
			Success:      false,
			Error:        fmt.Sprintf("%d of %d planned sessions overlap existing bookings", len(allConflicts), len(dates)),
			ErrorType:    types.ErrorTypeConflict,
			PlannedDates: dates,
			Conflicts:    allConflicts,
		}
	}

	now := time.Now()
	series := &types.RecurringSeries{
		ID:            uuid.New().String(),
		TotalSessions: input.TotalSessions,
		Frequency:     input.Frequency,
		PatientID:     input.PatientID,
		ProviderID:    input.ProviderID,
		CreatedAt:     now,
	}

	appointments := make([]*types.Appointment, 0, len(dates))
	createdIDs := make([]string, 0, len(dates))
	for i, date := range dates {
		sessionIndex := i + 1
		totalSessions := input.TotalSessions
		patientID := input.PatientID
		seriesID := series.ID

		apt := &types.Appointment{
			ID:              uuid.New().String(),
			ProviderID:      input.ProviderID,
			PatientID:       &patientID,
			StartTime:       date,
			DurationMinutes: input.DurationMinutes,
			Type:            input.Type,
			Status:          types.StatusPending,
			Notes:           input.Notes,
			SeriesID:        &seriesID,
			SessionIndex:    &sessionIndex,
			TotalSessions:   &totalSessions,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		appointments = append(appointments, apt)
		createdIDs = append(createdIDs, apt.ID)
	}

	if err := p.repository.CreateSeries(series, appointments); err != nil {
		p.logger.Errorf("Failed to persist series: %v", err)
		return &types.SeriesResult{
			Success:   false,
			Error:     "failed to create recurring series",
			ErrorType: types.ErrorTypeInternal,
		}
	}

	monitoring.RecordAppointmentCreated(string(input.Type), true)
	p.logger.Infof("Created series %s with %d sessions for provider %s", series.ID, len(appointments), input.ProviderID)

	return &types.SeriesResult{
		Success:      true,
		SeriesID:     series.ID,
		CreatedIDs:   createdIDs,
		PlannedDates: dates,
	}
}

// validateInput validates the series create input
func (p *SeriesPlanner) validateInput(input *types.CreateSeriesInput) error {
	if input.PatientID == "" {
		return fmt.Errorf("patient is required for a recurring series")
	}

	if input.ProviderID == "" {
		return fmt.Errorf("provider is required")
	}

	if input.StartTime.IsZero() {
		return fmt.Errorf("start time is required")
	}

	if !acceptedDurations[input.DurationMinutes] {
		return fmt.Errorf("duration of %d minutes is not accepted", input.DurationMinutes)
	}

	if input.Type == "" || input.Type == types.TypeAdmin {
		return fmt.Errorf("recurring series require a patient appointment type")
	}

	return nil
}
