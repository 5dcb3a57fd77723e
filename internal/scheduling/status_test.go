package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maralydev/revabrain-sub000/pkg/types"
)

func TestValidStatus(t *testing.T) {
	for _, s := range []types.AppointmentStatus{
		types.StatusPending, types.StatusConfirmed, types.StatusWaitingRoom,
		types.StatusInSession, types.StatusCompleted, types.StatusNoShow,
		types.StatusCancelled,
	} {
		assert.True(t, ValidStatus(s), string(s))
	}

	assert.False(t, ValidStatus("VERDWENEN"))
	assert.False(t, ValidStatus(""))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(types.StatusCompleted))
	assert.True(t, IsTerminal(types.StatusCancelled))
	assert.True(t, IsTerminal(types.StatusNoShow))

	assert.False(t, IsTerminal(types.StatusPending))
	assert.False(t, IsTerminal(types.StatusConfirmed))
	assert.False(t, IsTerminal(types.StatusWaitingRoom))
	assert.False(t, IsTerminal(types.StatusInSession))
}

func TestEffectiveStatus_OpenStatusPastEndShowsNoShow(t *testing.T) {
	apt := &types.Appointment{
		StartTime:       at(9, 0),
		DurationMinutes: 60,
		Status:          types.StatusConfirmed,
	}

	assert.Equal(t, types.StatusNoShow, EffectiveStatus(apt, at(10, 1)))
}

func TestEffectiveStatus_OngoingAppointmentKeepsStatus(t *testing.T) {
	apt := &types.Appointment{
		StartTime:       at(9, 0),
		DurationMinutes: 60,
		Status:          types.StatusInSession,
	}

	assert.Equal(t, types.StatusInSession, EffectiveStatus(apt, at(9, 30)))
	// Exactly at the end time the appointment is not yet missed.
	assert.Equal(t, types.StatusInSession, EffectiveStatus(apt, at(10, 0)))
}

func TestEffectiveStatus_TerminalStatusNeverOverridden(t *testing.T) {
	apt := &types.Appointment{
		StartTime:       at(9, 0),
		DurationMinutes: 60,
		Status:          types.StatusCompleted,
	}

	assert.Equal(t, types.StatusCompleted, EffectiveStatus(apt, at(15, 0)))

	apt.Status = types.StatusCancelled
	assert.Equal(t, types.StatusCancelled, EffectiveStatus(apt, at(15, 0)))
}

func TestEffectiveStatus_DoesNotMutateAppointment(t *testing.T) {
	apt := &types.Appointment{
		StartTime:       at(9, 0),
		DurationMinutes: 60,
		Status:          types.StatusPending,
	}

	_ = EffectiveStatus(apt, apt.EndTime().Add(time.Hour))
	assert.Equal(t, types.StatusPending, apt.Status)
}
