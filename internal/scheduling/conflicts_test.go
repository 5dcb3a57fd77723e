package scheduling

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maralydev/revabrain-sub000/pkg/logger"
	"github.com/maralydev/revabrain-sub000/pkg/types"
)

func setupDetector() (*ConflictDetector, *MockSchedulingRepository, *MockPatientDirectory) {
	log := logger.New("debug")
	mockRepo := &MockSchedulingRepository{}
	mockPatients := &MockPatientDirectory{}
	return NewConflictDetector(mockRepo, mockPatients, log), mockRepo, mockPatients
}

func TestFindConflicts_ExclusiveBoundaries(t *testing.T) {
	detector, mockRepo, mockPatients := setupDetector()

	// Existing booking 09:00-10:00. A candidate touching only a boundary
	// must pass even if the storage query over-returns it.
	existing := &types.Appointment{
		ID:              "apt-1",
		ProviderID:      "provider-1",
		PatientID:       strPtr("patient-1"),
		StartTime:       at(9, 0),
		DurationMinutes: 60,
		Status:          types.StatusConfirmed,
	}
	mockPatients.On("DisplayName", "patient-1").Return("Janssens Emma", nil)

	cases := []struct {
		name     string
		start    time.Time
		duration int
		conflict bool
	}{
		{"ends at existing start", at(8, 0), 60, false},
		{"starts at existing end", at(10, 0), 60, false},
		{"overlaps the first half", at(8, 30), 60, true},
		{"contained within", at(9, 15), 30, true},
		{"contains the existing", at(8, 30), 120, true},
		{"identical range", at(9, 0), 60, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			end := tc.start.Add(time.Duration(tc.duration) * time.Minute)
			mockRepo.On("ConflictCandidates", "provider-1", tc.start, end, "").
				Return([]*types.Appointment{existing}, nil).Once()

			conflicts, err := detector.FindConflicts("provider-1", tc.start, tc.duration, "")

			assert.NoError(t, err)
			if tc.conflict {
				assert.Len(t, conflicts, 1)
			} else {
				assert.Empty(t, conflicts)
			}
		})
	}
}

func TestFindConflicts_RejectsNonPositiveDuration(t *testing.T) {
	detector, _, _ := setupDetector()

	_, err := detector.FindConflicts("provider-1", at(9, 0), 0, "")
	assert.Error(t, err)

	_, err = detector.FindConflicts("provider-1", at(9, 0), -15, "")
	assert.Error(t, err)
}

func TestFindConflicts_AdminBlockUsesTitle(t *testing.T) {
	detector, mockRepo, _ := setupDetector()

	block := &types.Appointment{
		ID:              "apt-1",
		ProviderID:      "provider-1",
		StartTime:       at(12, 0),
		DurationMinutes: 60,
		Type:            types.TypeAdmin,
		Status:          types.StatusConfirmed,
		AdminTitle:      strPtr("Teamoverleg"),
	}
	mockRepo.On("ConflictCandidates", "provider-1", at(12, 0), at(12, 30), "").
		Return([]*types.Appointment{block}, nil)

	conflicts, err := detector.FindConflicts("provider-1", at(12, 0), 30, "")

	assert.NoError(t, err)
	assert.Len(t, conflicts, 1)
	assert.Equal(t, "Teamoverleg", conflicts[0].PatientName)
}

func TestFindConflicts_AdminBlockWithoutTitle(t *testing.T) {
	detector, mockRepo, _ := setupDetector()

	block := &types.Appointment{
		ID:              "apt-1",
		ProviderID:      "provider-1",
		StartTime:       at(12, 0),
		DurationMinutes: 60,
		Type:            types.TypeAdmin,
		Status:          types.StatusConfirmed,
	}
	mockRepo.On("ConflictCandidates", "provider-1", at(12, 0), at(12, 30), "").
		Return([]*types.Appointment{block}, nil)

	conflicts, err := detector.FindConflicts("provider-1", at(12, 0), 30, "")

	assert.NoError(t, err)
	assert.Len(t, conflicts, 1)
	assert.Equal(t, "Geblokkeerd", conflicts[0].PatientName)
}

func TestFindConflicts_NameLookupFailureDoesNotHideConflict(t *testing.T) {
	detector, mockRepo, mockPatients := setupDetector()

	existing := &types.Appointment{
		ID:              "apt-1",
		ProviderID:      "provider-1",
		PatientID:       strPtr("patient-1"),
		StartTime:       at(9, 0),
		DurationMinutes: 60,
		Status:          types.StatusConfirmed,
	}
	mockRepo.On("ConflictCandidates", "provider-1", at(9, 0), at(9, 30), "").
		Return([]*types.Appointment{existing}, nil)
	mockPatients.On("DisplayName", "patient-1").Return("", errors.New("directory unavailable"))

	conflicts, err := detector.FindConflicts("provider-1", at(9, 0), 30, "")

	assert.NoError(t, err)
	assert.Len(t, conflicts, 1)
	assert.Equal(t, "Onbekende patiënt", conflicts[0].PatientName)
}

func TestFindConflicts_RepositoryError(t *testing.T) {
	detector, mockRepo, _ := setupDetector()

	mockRepo.On("ConflictCandidates", "provider-1", at(9, 0), at(9, 30), "").
		Return([]*types.Appointment(nil), errors.New("connection lost"))

	_, err := detector.FindConflicts("provider-1", at(9, 0), 30, "")

	assert.Error(t, err)
}
