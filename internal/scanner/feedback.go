package scanner

import "time"

// Outcome tags a finished scan attempt for the feedback overlay.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Feedback timing. The overlay duration doubles as the scan-block
// window: while the result is on screen the camera feed is ignored.
const (
	OverlayDuration  = 2 * time.Second
	StepAdvanceDelay = 1500 * time.Millisecond
	ScanCooldown     = 3 * time.Second

	successPulse = 200 * time.Millisecond
	errorPulse   = 500 * time.Millisecond
)

// Haptics is the device vibration sink. The kiosk UI provides a real
// one; headless deployments use NopHaptics.
type Haptics interface {
	Pulse(d time.Duration)
}

// NopHaptics discards pulses.
type NopHaptics struct{}

func (NopHaptics) Pulse(time.Duration) {}

func pulseFor(o Outcome) time.Duration {
	if o == OutcomeSuccess {
		return successPulse
	}
	return errorPulse
}
