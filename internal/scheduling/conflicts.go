package scheduling

import (
	"fmt"
	"time"

	"github.com/maralydev/revabrain-sub000/pkg/interfaces"
	"github.com/maralydev/revabrain-sub000/pkg/logger"
	"github.com/maralydev/revabrain-sub000/pkg/monitoring"
	"github.com/maralydev/revabrain-sub000/pkg/types"
)

// ConflictDetector finds overlapping active bookings for a provider. It is
// read-only and must run before any create or update that changes time or
// duration.
type ConflictDetector struct {
	repository interfaces.SchedulingRepository
	patients   interfaces.PatientDirectory
	logger     *logger.Logger
}

// NewConflictDetector creates a new conflict detector
func NewConflictDetector(repo interfaces.SchedulingRepository, patients interfaces.PatientDirectory, log *logger.Logger) *ConflictDetector {
	return &ConflictDetector{
		repository: repo,
		patients:   patients,
		logger:     log,
	}
}

// FindConflicts returns every active appointment of the provider whose time
// range overlaps [start, start+duration), excluding excludeID when given.
// The boundary test is exclusive: an appointment ending exactly when another
// starts is not a conflict.
func (d *ConflictDetector) FindConflicts(providerID string, start time.Time, durationMinutes int, excludeID string) ([]types.ConflictInfo, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", durationMinutes)
	}

	scanStart := time.Now()
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	candidates, err := d.repository.ConflictCandidates(providerID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conflict candidates: %w", err)
	}

	var conflicts []types.ConflictInfo
	for _, apt := range candidates {
		// The repository query already filters on the range; the strict
		// test is re-applied here so the overlap semantics do not depend
		// on the storage backend.
		if !(start.Before(apt.EndTime()) && end.After(apt.StartTime)) {
			continue
		}

		conflicts = append(conflicts, types.ConflictInfo{
			AppointmentID:   apt.ID,
			StartTime:       apt.StartTime,
			DurationMinutes: apt.DurationMinutes,
			PatientName:     d.displayName(apt),
		})
	}

	monitoring.ObserveConflictScan(time.Since(scanStart))

	if len(conflicts) > 0 {
		d.logger.Infof("Found %d conflicts for provider %s between %v and %v", len(conflicts), providerID, start, end)
	}

	return conflicts, nil
}

// displayName resolves the label shown next to a conflict. Admin blocks
// carry no patient, so their admin title is used instead.
func (d *ConflictDetector) displayName(apt *types.Appointment) string {
	if apt.PatientID == nil {
		if apt.AdminTitle != nil && *apt.AdminTitle != "" {
			return *apt.AdminTitle
		}
		return "Geblokkeerd"
	}

	name, err := d.patients.DisplayName(*apt.PatientID)
	if err != nil {
		d.logger.Warnf("Failed to resolve patient name for %s: %v", *apt.PatientID, err)
		return "Onbekende patiënt"
	}
	return name
}
