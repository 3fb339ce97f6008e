package scanner

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/samithreddychinni/anokha-2025-attendex/internal/hospitality"
)

// Step is the registration sequence position. Progression is linear:
// PROFILE_QR -> HOSP_ID -> ACCOMMODATION -> CONFIRM -> COMPLETE.
type Step string

const (
	StepProfileQR     Step = "PROFILE_QR"
	StepHospID        Step = "HOSP_ID"
	StepAccommodation Step = "ACCOMMODATION"
	StepConfirm       Step = "CONFIRM"
	StepComplete      Step = "COMPLETE"
)

// ScanStatus tells the camera layer what happened to a frame.
type ScanStatus int

const (
	// ScanIgnored: blocked by cooldown, overlay, or an in-flight call.
	// No toast, no state change.
	ScanIgnored ScanStatus = iota
	// ScanRejected: processed and failed; error feedback was emitted.
	ScanRejected
	// ScanAccepted: processed successfully; a step advance is pending.
	ScanAccepted
)

// Session is the published scanner state the UI renders from. It is a
// value snapshot; mutating it has no effect on the coordinator.
type Session struct {
	Step              Step                          `json:"step"`
	StudentID         string                        `json:"scanned_student_id,omitempty"`
	Profile           *hospitality.StudentProfile   `json:"student_profile,omitempty"`
	HospitalityID     string                        `json:"scanned_hosp_id,omitempty"`
	AccommodationType hospitality.AccommodationType `json:"accommodation_type,omitempty"`
	SelectedHostel    *hospitality.Hostel           `json:"selected_hostel,omitempty"`
	Processing        bool                          `json:"is_processing"`
	ScanResult        Outcome                       `json:"scan_result,omitempty"`
}

// Workflow is the slice of the accommodation service the scanner needs.
type Workflow interface {
	LookupProfile(ctx context.Context, studentID string) (*hospitality.StudentProfile, error)
	CheckAvailability(ctx context.Context, hospID string) (bool, error)
	Bind(ctx context.Context, req hospitality.BindRequest) (*hospitality.StudentRecord, error)
}

// Coordinator sequences camera scans into workflow calls. All timers
// run on the injected clock; a generation counter invalidates pending
// timers and in-flight results when the session is reset, so a stale
// callback can never touch a newer session.
type Coordinator struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	api     Workflow
	haptics Haptics

	sess Session
	gen  int

	lastScan      string
	hasLastScan   bool
	overlay       bool
	overlayTimer  clockwork.Timer
	cooldownTimer clockwork.Timer
}

// New creates a coordinator at the PROFILE_QR step.
func New(api Workflow, haptics Haptics, clock clockwork.Clock) *Coordinator {
	if haptics == nil {
		haptics = NopHaptics{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Coordinator{
		clock:   clock,
		api:     api,
		haptics: haptics,
		sess:    Session{Step: StepProfileQR},
	}
}

// Session returns a snapshot of the current state.
func (c *Coordinator) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

type profileQR struct {
	StudentID string `json:"student_id"`
}

func parseProfileQR(raw string) (profileQR, bool) {
	var data profileQR
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return profileQR{}, false
	}
	if data.StudentID == "" {
		return profileQR{}, false
	}
	return data, true
}

// Scan feeds one decoded camera payload through the admission rules:
// drop while the overlay is showing, drop while a call is in flight,
// drop duplicates of the last accepted text for the cooldown window.
// Anything admitted is dispatched to the current step's handler.
func (c *Coordinator) Scan(ctx context.Context, raw string) ScanStatus {
	c.mu.Lock()
	step := c.sess.Step
	if step != StepProfileQR && step != StepHospID {
		c.mu.Unlock()
		return ScanIgnored
	}

	// Duplicate detection keys on the normalized id at the HOSP_ID step
	// so "A123" and "a123" collapse; QR payloads are case-sensitive JSON
	// and compare raw.
	key := raw
	if step == StepHospID {
		key = hospitality.NormalizeHospitalityID(raw)
	}
	// hasLastScan keeps an empty payload, or whitespace that normalizes
	// to "", from matching the zero value and skipping error feedback.
	if c.overlay || c.sess.Processing || (c.hasLastScan && key == c.lastScan) {
		c.mu.Unlock()
		return ScanIgnored
	}

	c.lastScan = key
	c.hasLastScan = true
	c.armCooldownLocked()
	c.sess.Processing = true
	gen := c.gen
	c.mu.Unlock()

	if step == StepProfileQR {
		return c.handleProfileQR(ctx, gen, raw)
	}
	return c.handleHospID(ctx, gen, key)
}

func (c *Coordinator) handleProfileQR(ctx context.Context, gen int, raw string) ScanStatus {
	data, ok := parseProfileQR(raw)
	if !ok {
		return c.finishError(gen)
	}

	profile, err := c.api.LookupProfile(ctx, data.StudentID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// Session was reset while the lookup was in flight; the result
		// belongs to a dead session.
		return ScanIgnored
	}
	if err != nil {
		c.failLocked()
		return ScanRejected
	}
	c.showLocked(OutcomeSuccess)
	c.scheduleAdvanceLocked(gen, func() {
		c.sess.Step = StepHospID
		c.sess.StudentID = data.StudentID
		c.sess.Profile = profile
		c.sess.Processing = false
	})
	return ScanAccepted
}

func (c *Coordinator) handleHospID(ctx context.Context, gen int, hospID string) ScanStatus {
	if !hospitality.ValidHospitalityID(hospID) {
		return c.finishError(gen)
	}

	available, err := c.api.CheckAvailability(ctx, hospID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ScanIgnored
	}
	if err != nil || !available {
		c.failLocked()
		return ScanRejected
	}
	c.showLocked(OutcomeSuccess)
	c.scheduleAdvanceLocked(gen, func() {
		c.sess.Step = StepAccommodation
		c.sess.HospitalityID = hospID
		c.sess.Processing = false
	})
	return ScanAccepted
}

// SetAccommodationType records the operator's selection.
func (c *Coordinator) SetAccommodationType(t hospitality.AccommodationType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.AccommodationType = t
	if t != hospitality.AccommodationHostel {
		c.sess.SelectedHostel = nil
	}
}

// SetHostel records the chosen hostel, or clears it with nil.
func (c *Coordinator) SetHostel(h *hospitality.Hostel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess.SelectedHostel = h
}

// ProceedToConfirm advances from the accommodation selection.
func (c *Coordinator) ProceedToConfirm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.Step == StepAccommodation {
		c.sess.Step = StepConfirm
	}
}

// Confirm binds the collected session to a record and completes the
// flow. The returned message routes the student to the next desk.
func (c *Coordinator) Confirm(ctx context.Context) (*hospitality.StudentRecord, string, error) {
	c.mu.Lock()
	if c.sess.Step != StepConfirm || c.sess.Processing {
		c.mu.Unlock()
		return nil, "", newConfirmStateError(c.sess.Step)
	}
	req := hospitality.BindRequest{
		StudentID:         c.sess.StudentID,
		HospitalityID:     c.sess.HospitalityID,
		AccommodationType: c.sess.AccommodationType,
	}
	if c.sess.SelectedHostel != nil {
		req.HostelName = c.sess.SelectedHostel.Name
	}
	c.sess.Processing = true
	gen := c.gen
	c.mu.Unlock()

	rec, err := c.api.Bind(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil, "", errStaleSession
	}
	c.sess.Processing = false
	if err != nil {
		return nil, "", err
	}
	c.sess.Step = StepComplete
	return rec, hospitality.RegistrationMessage(rec.AccommodationStatus), nil
}

// GoBack steps backwards: HOSP_ID restarts the whole session,
// ACCOMMODATION returns to HOSP_ID and forgets the scanned id. Later
// steps only leave via Reset.
func (c *Coordinator) GoBack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.sess.Step {
	case StepHospID:
		c.resetLocked()
	case StepAccommodation:
		c.sess.Step = StepHospID
		c.sess.HospitalityID = ""
	}
}

// Reset discards the session, cancels timers, and invalidates any
// in-flight call's result.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Coordinator) resetLocked() {
	c.gen++
	if c.overlayTimer != nil {
		c.overlayTimer.Stop()
		c.overlayTimer = nil
	}
	if c.cooldownTimer != nil {
		c.cooldownTimer.Stop()
		c.cooldownTimer = nil
	}
	c.lastScan = ""
	c.hasLastScan = false
	c.overlay = false
	c.sess = Session{Step: StepProfileQR}
}

// finishError handles failures detected before any workflow call.
func (c *Coordinator) finishError(gen int) ScanStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return ScanIgnored
	}
	c.failLocked()
	return ScanRejected
}

func (c *Coordinator) failLocked() {
	c.showLocked(OutcomeError)
	c.sess.Processing = false
}

// showLocked emits haptic feedback and raises the result overlay for
// OverlayDuration. While the overlay is up, Scan drops every payload.
func (c *Coordinator) showLocked(o Outcome) {
	c.haptics.Pulse(pulseFor(o))
	c.overlay = true
	c.sess.ScanResult = o
	if c.overlayTimer != nil {
		c.overlayTimer.Stop()
	}
	gen := c.gen
	c.overlayTimer = c.clock.AfterFunc(OverlayDuration, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			return
		}
		c.overlay = false
		c.sess.ScanResult = ""
	})
}

// armCooldownLocked clears the duplicate-scan marker after the cooldown
// so the same badge can be re-presented to retry.
func (c *Coordinator) armCooldownLocked() {
	if c.cooldownTimer != nil {
		c.cooldownTimer.Stop()
	}
	gen := c.gen
	c.cooldownTimer = c.clock.AfterFunc(ScanCooldown, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			return
		}
		c.lastScan = ""
		c.hasLastScan = false
	})
}

// scheduleAdvanceLocked runs the step transition after the success
// overlay has had time to display. Processing stays true until the
// transition lands, so interim scans are dropped.
func (c *Coordinator) scheduleAdvanceLocked(gen int, advance func()) {
	c.clock.AfterFunc(StepAdvanceDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			return
		}
		advance()
	})
}
