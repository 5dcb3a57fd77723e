package scheduling

import (
	"time"

	"github.com/maralydev/revabrain-sub000/pkg/types"
)

// validStatuses lists every writable status value. There is deliberately no
// transition table: staff correct mistakes by jumping between statuses, and
// the system must not get in the way. AFGEWERKT and GEANNULEERD are
// conventionally terminal but reverting them is allowed.
var validStatuses = map[types.AppointmentStatus]bool{
	types.StatusPending:     true,
	types.StatusConfirmed:   true,
	types.StatusWaitingRoom: true,
	types.StatusInSession:   true,
	types.StatusCompleted:   true,
	types.StatusNoShow:      true,
	types.StatusCancelled:   true,
}

// ValidStatus reports whether s is a member of the status enumeration.
func ValidStatus(s types.AppointmentStatus) bool {
	return validStatuses[s]
}

// IsTerminal reports whether s conventionally ends the appointment
// lifecycle. This is informational only; no transition is blocked by it.
func IsTerminal(s types.AppointmentStatus) bool {
	switch s {
	case types.StatusCompleted, types.StatusCancelled, types.StatusNoShow:
		return true
	}
	return false
}

// EffectiveStatus derives the display status of an appointment at a given
// moment. An appointment still in an open status after its end time has
// passed is shown as missed. The stored status is never rewritten by this
// derivation; it is a pure read-time presentation concern.
func EffectiveStatus(apt *types.Appointment, now time.Time) types.AppointmentStatus {
	if IsTerminal(apt.Status) {
		return apt.Status
	}
	if now.After(apt.EndTime()) {
		return types.StatusNoShow
	}
	return apt.Status
}
