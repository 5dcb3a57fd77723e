package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/maralydev/revabrain-sub000/pkg/logger"
	"github.com/maralydev/revabrain-sub000/pkg/types"
)

func setupPlanner() (*SeriesPlanner, *MockSchedulingRepository, *MockPatientDirectory) {
	log := logger.New("debug")
	mockRepo := &MockSchedulingRepository{}
	mockPatients := &MockPatientDirectory{}
	detector := NewConflictDetector(mockRepo, mockPatients, log)
	return NewSeriesPlanner(detector, mockRepo, log), mockRepo, mockPatients
}

func seriesInput(sessions int, frequency types.SeriesFrequency) *types.CreateSeriesInput {
	return &types.CreateSeriesInput{
		ProviderID:      "provider-1",
		PatientID:       "patient-1",
		StartTime:       at(9, 0),
		DurationMinutes: 60,
		Type:            types.TypeConsultation,
		TotalSessions:   sessions,
		Frequency:       frequency,
	}
}

func TestPlanDates_Weekly(t *testing.T) {
	planner, _, _ := setupPlanner()

	start := time.Date(2026, time.March, 9, 9, 0, 0, 0, time.Local)
	dates, err := planner.PlanDates(start, 4, types.FrequencyWeekly)

	assert.NoError(t, err)
	assert.Len(t, dates, 4)
	assert.Equal(t, start, dates[0])
	for i := 1; i < len(dates); i++ {
		assert.Equal(t, dates[i-1].AddDate(0, 0, 7), dates[i])
		assert.Equal(t, 9, dates[i].Hour())
	}
}

func TestPlanDates_TwiceWeekly(t *testing.T) {
	planner, _, _ := setupPlanner()

	start := time.Date(2026, time.March, 9, 9, 0, 0, 0, time.Local)
	dates, err := planner.PlanDates(start, 3, types.FrequencyTwiceWeekly)

	assert.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 3), dates[1])
	assert.Equal(t, start.AddDate(0, 0, 6), dates[2])
}

func TestPlanDates_MonthlyRollsOverShortMonths(t *testing.T) {
	planner, _, _ := setupPlanner()

	// Jan 31 + one month lands in March when February is short.
	start := time.Date(2026, time.January, 31, 9, 0, 0, 0, time.Local)
	dates, err := planner.PlanDates(start, 3, types.FrequencyMonthly)

	assert.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 3, 9, 0, 0, 0, time.Local), dates[1])
	assert.Equal(t, time.Date(2026, time.April, 3, 9, 0, 0, 0, time.Local), dates[2])
}

func TestPlanDates_SessionCountBounds(t *testing.T) {
	planner, _, _ := setupPlanner()

	_, err := planner.PlanDates(at(9, 0), 1, types.FrequencyWeekly)
	assert.Error(t, err)

	_, err = planner.PlanDates(at(9, 0), 53, types.FrequencyWeekly)
	assert.Error(t, err)

	dates, err := planner.PlanDates(at(9, 0), 52, types.FrequencyWeekly)
	assert.NoError(t, err)
	assert.Len(t, dates, 52)
}

func TestPlanDates_UnknownFrequency(t *testing.T) {
	planner, _, _ := setupPlanner()

	_, err := planner.PlanDates(at(9, 0), 4, "DAILY")
	assert.Error(t, err)
}

func TestCreateSeries_Success(t *testing.T) {
	planner, mockRepo, _ := setupPlanner()

	mockRepo.On("ConflictCandidates", "provider-1", mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time"), "").
		Return([]*types.Appointment{}, nil)
	mockRepo.On("CreateSeries", mock.AnythingOfType("*types.RecurringSeries"), mock.AnythingOfType("[]*types.Appointment")).
		Return(nil)

	result := planner.CreateSeries(seriesInput(5, types.FrequencyWeekly))

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.SeriesID)
	assert.Len(t, result.CreatedIDs, 5)
	assert.Len(t, result.PlannedDates, 5)

	var persisted []*types.Appointment
	for _, call := range mockRepo.Calls {
		if call.Method == "CreateSeries" {
			persisted = call.Arguments.Get(1).([]*types.Appointment)
		}
	}
	assert.Len(t, persisted, 5)
	for i, apt := range persisted {
		assert.Equal(t, types.StatusPending, apt.Status)
		assert.Equal(t, result.SeriesID, *apt.SeriesID)
		assert.Equal(t, i+1, *apt.SessionIndex)
		assert.Equal(t, 5, *apt.TotalSessions)
	}
}

func TestCreateSeries_AbortsOnAnyConflict(t *testing.T) {
	planner, mockRepo, mockPatients := setupPlanner()

	// Third planned session collides with an existing booking. Nothing may
	// be persisted, and the result must name both the collision and every
	// planned date.
	thirdDate := at(9, 0).AddDate(0, 0, 14)
	existing := &types.Appointment{
		ID:              "apt-blocking",
		ProviderID:      "provider-1",
		PatientID:       strPtr("patient-9"),
		StartTime:       thirdDate,
		DurationMinutes: 60,
		Status:          types.StatusConfirmed,
	}

	mockRepo.On("ConflictCandidates", "provider-1", thirdDate, thirdDate.Add(time.Hour), "").
		Return([]*types.Appointment{existing}, nil)
	mockRepo.On("ConflictCandidates", "provider-1", mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time"), "").
		Return([]*types.Appointment{}, nil)
	mockPatients.On("DisplayName", "patient-9").Return("Maes Lotte", nil)

	result := planner.CreateSeries(seriesInput(5, types.FrequencyWeekly))

	assert.False(t, result.Success)
	assert.Equal(t, types.ErrorTypeConflict, result.ErrorType)
	assert.Len(t, result.Conflicts, 1)
	assert.Equal(t, "apt-blocking", result.Conflicts[0].AppointmentID)
	assert.Len(t, result.PlannedDates, 5)
	assert.Empty(t, result.CreatedIDs)
	mockRepo.AssertNotCalled(t, "CreateSeries", mock.Anything, mock.Anything)
}

func TestCreateSeries_ValidatesInput(t *testing.T) {
	planner, mockRepo, _ := setupPlanner()

	cases := []struct {
		name   string
		mutate func(*types.CreateSeriesInput)
	}{
		{"missing patient", func(i *types.CreateSeriesInput) { i.PatientID = "" }},
		{"missing provider", func(i *types.CreateSeriesInput) { i.ProviderID = "" }},
		{"zero start", func(i *types.CreateSeriesInput) { i.StartTime = time.Time{} }},
		{"unlisted duration", func(i *types.CreateSeriesInput) { i.DurationMinutes = 75 }},
		{"admin type", func(i *types.CreateSeriesInput) { i.Type = types.TypeAdmin }},
		{"too few sessions", func(i *types.CreateSeriesInput) { i.TotalSessions = 1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := seriesInput(5, types.FrequencyWeekly)
			tc.mutate(input)

			result := planner.CreateSeries(input)

			assert.False(t, result.Success)
			assert.Equal(t, types.ErrorTypeValidation, result.ErrorType)
		})
	}

	mockRepo.AssertNotCalled(t, "CreateSeries", mock.Anything, mock.Anything)
}
