package scheduling

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/maralydev/revabrain-sub000/pkg/config"
	"github.com/maralydev/revabrain-sub000/pkg/interfaces"
	"github.com/maralydev/revabrain-sub000/pkg/logger"
	"github.com/maralydev/revabrain-sub000/pkg/types"
)

// Grid errors.
var (
	ErrGestureInProgress = errors.New("a drag gesture is already in progress")
	ErrUpdateInFlight    = errors.New("previous gesture is still being committed")
	ErrNoActiveGesture   = errors.New("no drag gesture in progress")
)

// GridConfig maps the agenda's day window onto fixed-width slots. DayStart
// and DayEnd are minutes from midnight.
type GridConfig struct {
	DayStart         int
	DayEnd           int
	SlotMinutes      int
	MinDurationSlots int
}

// NewGridConfig builds a GridConfig from the loaded agenda configuration.
func NewGridConfig(cfg *config.AgendaConfig) GridConfig {
	return GridConfig{
		DayStart:         cfg.DayStart,
		DayEnd:           cfg.DayEnd,
		SlotMinutes:      cfg.SlotMinutes,
		MinDurationSlots: cfg.MinDurationSlots,
	}
}

// DefaultGridConfig returns the 08:00-19:00 window in 15-minute slots with
// a 30-minute minimum duration.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		DayStart:         8 * 60,
		DayEnd:           19 * 60,
		SlotMinutes:      15,
		MinDurationSlots: 2,
	}
}

// TotalSlots returns the number of slots in the day window.
func (c GridConfig) TotalSlots() int {
	return (c.DayEnd - c.DayStart) / c.SlotMinutes
}

// TimeToSlot converts a wall-clock time to its slot index within the day
// window. Times outside the window map to out-of-range indexes; callers
// clamp where clamping is wanted.
func (c GridConfig) TimeToSlot(t time.Time) int {
	mins := t.Hour()*60 + t.Minute()
	return (mins - c.DayStart) / c.SlotMinutes
}

// SlotToTime converts a slot index back to wall-clock time on the given day.
func (c GridConfig) SlotToTime(day time.Time, slot int) time.Time {
	mins := c.DayStart + slot*c.SlotMinutes
	return time.Date(day.Year(), day.Month(), day.Day(), mins/60, mins%60, 0, 0, day.Location())
}

// DurationSlots converts a duration in minutes to whole slots.
func (c GridConfig) DurationSlots(minutes int) int {
	return minutes / c.SlotMinutes
}

// ProviderColumn is the live horizontal extent of one provider's agenda
// column, in the same pixel space as the pointer coordinates.
type ProviderColumn struct {
	ProviderID string
	Left       float64
	Right      float64
}

// DragMode distinguishes the two agenda gestures.
type DragMode int

const (
	DragMove DragMode = iota
	DragResize
)

// AppointmentBox is an appointment's placement on the grid.
type AppointmentBox struct {
	AppointmentID string
	ProviderID    string
	StartSlot     int
	DurationSlots int
}

// DragSession tracks a single continuous pointer drag. The agenda is either
// idle (no session) or dragging (a session with its pre-gesture snapshot and
// a live preview); no other state exists.
type DragSession struct {
	mode       DragMode
	config     GridConfig
	columns    []ProviderColumn
	slotHeight float64
	originY    float64
	original   AppointmentBox
	preview    AppointmentBox
}

// newDragSession starts a drag at the given pointer position.
func newDragSession(mode DragMode, box AppointmentBox, pointerY float64, cfg GridConfig, columns []ProviderColumn, slotHeight float64) *DragSession {
	return &DragSession{
		mode:       mode,
		config:     cfg,
		columns:    columns,
		slotHeight: slotHeight,
		originY:    pointerY,
		original:   box,
		preview:    box,
	}
}

// Update recomputes the preview from the current pointer position.
func (s *DragSession) Update(pointerX, pointerY float64) {
	slotDelta := int(math.Round((pointerY - s.originY) / s.slotHeight))
	total := s.config.TotalSlots()

	switch s.mode {
	case DragMove:
		start := s.original.StartSlot + slotDelta
		maxStart := total - s.original.DurationSlots
		s.preview.StartSlot = clamp(start, 0, maxStart)
		s.preview.DurationSlots = s.original.DurationSlots
		// A horizontal move can land the appointment in another
		// provider's column.
		if providerID, ok := s.columnAt(pointerX); ok {
			s.preview.ProviderID = providerID
		}
	case DragResize:
		dur := s.original.DurationSlots + slotDelta
		maxDur := total - s.original.StartSlot
		s.preview.DurationSlots = clamp(dur, s.config.MinDurationSlots, maxDur)
		s.preview.StartSlot = s.original.StartSlot
		s.preview.ProviderID = s.original.ProviderID
	}
}

// Original returns the pre-gesture snapshot.
func (s *DragSession) Original() AppointmentBox {
	return s.original
}

// Preview returns the current candidate placement.
func (s *DragSession) Preview() AppointmentBox {
	return s.preview
}

// Changed reports whether the preview differs from the snapshot.
func (s *DragSession) Changed() bool {
	return s.preview != s.original
}

// columnAt resolves the provider column under the pointer.
func (s *DragSession) columnAt(x float64) (string, bool) {
	for _, col := range s.columns {
		if x >= col.Left && x < col.Right {
			return col.ProviderID, true
		}
	}
	return "", false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GestureOutcome is what the agenda renders after a gesture ends: the final
// placement, whether an update was committed, and the conflicts when the
// update was rejected and the box reverted.
type GestureOutcome struct {
	Box       AppointmentBox
	Committed bool
	Reverted  bool
	Conflicts []types.ConflictInfo
}

// AgendaController owns the interactive agenda state. Pointer moves only
// touch the in-memory preview; the single round-trip to the scheduling
// service happens at gesture end, and a new gesture cannot start until that
// round-trip resolves.
type AgendaController struct {
	config     GridConfig
	slotHeight float64
	service    interfaces.SchedulingService
	logger     *logger.Logger

	mu       sync.Mutex
	session  *DragSession
	inFlight bool
}

// NewAgendaController creates a new agenda controller
func NewAgendaController(cfg GridConfig, slotHeight float64, svc interfaces.SchedulingService, log *logger.Logger) *AgendaController {
	return &AgendaController{
		config:     cfg,
		slotHeight: slotHeight,
		service:    svc,
		logger:     log,
	}
}

// BeginGesture starts a move or resize drag on the given appointment box.
func (a *AgendaController) BeginGesture(mode DragMode, box AppointmentBox, pointerY float64, columns []ProviderColumn) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.inFlight {
		return ErrUpdateInFlight
	}
	if a.session != nil {
		return ErrGestureInProgress
	}

	a.session = newDragSession(mode, box, pointerY, a.config, columns, a.slotHeight)
	return nil
}

// MoveGesture feeds a pointer-move event into the active session. No
// network traffic happens here.
func (a *AgendaController) MoveGesture(pointerX, pointerY float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return ErrNoActiveGesture
	}
	a.session.Update(pointerX, pointerY)
	return nil
}

// Preview returns the active session's candidate placement for rendering.
func (a *AgendaController) Preview() (AppointmentBox, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session == nil {
		return AppointmentBox{}, ErrNoActiveGesture
	}
	return a.session.Preview(), nil
}

// EndGesture finishes the drag. An unchanged preview makes no service call.
// A changed preview is committed through one update; a rejected update
// reverts the box to the pre-gesture snapshot.
func (a *AgendaController) EndGesture(day time.Time, actor *types.AuthContext) (*GestureOutcome, error) {
	a.mu.Lock()
	session := a.session
	if session == nil {
		a.mu.Unlock()
		return nil, ErrNoActiveGesture
	}
	a.session = nil

	if !session.Changed() {
		a.mu.Unlock()
		return &GestureOutcome{Box: session.Original()}, nil
	}

	a.inFlight = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.inFlight = false
		a.mu.Unlock()
	}()

	preview := session.Preview()
	original := session.Original()

	startTime := a.config.SlotToTime(day, preview.StartSlot)
	durationMinutes := preview.DurationSlots * a.config.SlotMinutes

	input := &types.UpdateAppointmentInput{
		ID:              preview.AppointmentID,
		StartTime:       &startTime,
		DurationMinutes: &durationMinutes,
	}
	if preview.ProviderID != original.ProviderID {
		providerID := preview.ProviderID
		input.ProviderID = &providerID
	}

	result := a.service.UpdateAppointment(input, actor)
	if !result.Success {
		a.logger.Infof("Gesture update rejected for appointment %s, reverting: %s", preview.AppointmentID, result.Error)
		return &GestureOutcome{
			Box:       original,
			Reverted:  true,
			Conflicts: result.Conflicts,
		}, nil
	}

	return &GestureOutcome{Box: preview, Committed: true}, nil
}
