package scanner_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/samithreddychinni/anokha-2025-attendex/internal/hospitality"
	"github.com/samithreddychinni/anokha-2025-attendex/internal/scanner"
)

// syncClock wraps the fake clock so Advance returns only after every
// callback scheduled to fire within the advanced window has finished.
// The underlying clock runs AfterFunc callbacks on their own goroutine,
// so asserting right after a bare Advance would race.
type syncClock struct {
	clockwork.FakeClock

	mu      sync.Mutex
	pending []*syncTimer
}

func newSyncClock() *syncClock {
	return &syncClock{FakeClock: clockwork.NewFakeClock()}
}

type syncTimer struct {
	clockwork.Timer
	deadline time.Time
	done     chan struct{}
	once     sync.Once
}

func (t *syncTimer) finish() { t.once.Do(func() { close(t.done) }) }

func (t *syncTimer) Stop() bool {
	stopped := t.Timer.Stop()
	if stopped {
		// The callback will never run; nothing left to wait for.
		t.finish()
	}
	return stopped
}

func (c *syncClock) AfterFunc(d time.Duration, f func()) clockwork.Timer {
	t := &syncTimer{deadline: c.FakeClock.Now().Add(d), done: make(chan struct{})}
	t.Timer = c.FakeClock.AfterFunc(d, func() {
		f()
		t.finish()
	})
	c.mu.Lock()
	c.pending = append(c.pending, t)
	c.mu.Unlock()
	return t
}

func (c *syncClock) Advance(d time.Duration) {
	target := c.FakeClock.Now().Add(d)
	c.mu.Lock()
	var due, rest []*syncTimer
	for _, t := range c.pending {
		if t.deadline.After(target) {
			rest = append(rest, t)
		} else {
			due = append(due, t)
		}
	}
	c.pending = rest
	c.mu.Unlock()

	c.FakeClock.Advance(d)
	for _, t := range due {
		<-t.done
	}
}

type apiStub struct {
	lookupFn func(ctx context.Context, studentID string) (*hospitality.StudentProfile, error)
	availFn  func(ctx context.Context, hospID string) (bool, error)
	bindFn   func(ctx context.Context, req hospitality.BindRequest) (*hospitality.StudentRecord, error)

	lookupCalls int
	availCalls  int
	bindCalls   int
}

func (a *apiStub) LookupProfile(ctx context.Context, studentID string) (*hospitality.StudentProfile, error) {
	a.lookupCalls++
	return a.lookupFn(ctx, studentID)
}

func (a *apiStub) CheckAvailability(ctx context.Context, hospID string) (bool, error) {
	a.availCalls++
	return a.availFn(ctx, hospID)
}

func (a *apiStub) Bind(ctx context.Context, req hospitality.BindRequest) (*hospitality.StudentRecord, error) {
	a.bindCalls++
	return a.bindFn(ctx, req)
}

type pulseRecorder struct {
	pulses []time.Duration
}

func (p *pulseRecorder) Pulse(d time.Duration) { p.pulses = append(p.pulses, d) }

var testProfile = &hospitality.StudentProfile{
	StudentID:   "STU001",
	Name:        "Rahul Sharma",
	StudentType: hospitality.StudentTypeExternal,
}

func okAPI() *apiStub {
	return &apiStub{
		lookupFn: func(_ context.Context, studentID string) (*hospitality.StudentProfile, error) {
			return testProfile, nil
		},
		availFn: func(_ context.Context, _ string) (bool, error) { return true, nil },
		bindFn: func(_ context.Context, req hospitality.BindRequest) (*hospitality.StudentRecord, error) {
			return &hospitality.StudentRecord{
				HospitalityID:       req.HospitalityID,
				StudentID:           req.StudentID,
				AccommodationType:   req.AccommodationType,
				AccommodationStatus: hospitality.StatusRequested,
				HostelName:          req.HostelName,
			}, nil
		},
	}
}

func newCoordinator(api *apiStub) (*scanner.Coordinator, *pulseRecorder, *syncClock) {
	haptics := &pulseRecorder{}
	clock := newSyncClock()
	return scanner.New(api, haptics, clock), haptics, clock
}

// toHospID drives a fresh coordinator through a successful profile
// scan, past the advance delay and the overlay.
func toHospID(t *testing.T, c *scanner.Coordinator, clock *syncClock) {
	t.Helper()
	require.Equal(t, scanner.ScanAccepted, c.Scan(context.Background(), `{"student_id":"STU001"}`))
	clock.Advance(2 * time.Second)
	sess := c.Session()
	require.Equal(t, scanner.StepHospID, sess.Step)
	require.False(t, sess.Processing)
	require.Empty(t, sess.ScanResult)
	// Let the dedup cooldown lapse so the next scan is fresh.
	clock.Advance(scanner.ScanCooldown)
}

func TestProfileScanAdvancesAfterDelay(t *testing.T) {
	api := okAPI()
	c, haptics, clock := newCoordinator(api)

	status := c.Scan(context.Background(), `{"student_id":"STU001"}`)
	require.Equal(t, scanner.ScanAccepted, status)

	sess := c.Session()
	require.Equal(t, scanner.StepProfileQR, sess.Step)
	require.True(t, sess.Processing)
	require.Equal(t, scanner.OutcomeSuccess, sess.ScanResult)
	require.Equal(t, []time.Duration{200 * time.Millisecond}, haptics.pulses)

	// The step flips only after the advance delay.
	clock.Advance(scanner.StepAdvanceDelay)
	sess = c.Session()
	require.Equal(t, scanner.StepHospID, sess.Step)
	require.Equal(t, "STU001", sess.StudentID)
	require.Equal(t, testProfile, sess.Profile)
	require.False(t, sess.Processing)

	// The overlay stays up for the full two seconds.
	require.Equal(t, scanner.OutcomeSuccess, sess.ScanResult)
	clock.Advance(scanner.OverlayDuration - scanner.StepAdvanceDelay)
	require.Empty(t, c.Session().ScanResult)
}

func TestMalformedQRRejected(t *testing.T) {
	api := okAPI()
	c, haptics, clock := newCoordinator(api)

	require.Equal(t, scanner.ScanRejected, c.Scan(context.Background(), "not json"))
	sess := c.Session()
	require.Equal(t, scanner.OutcomeError, sess.ScanResult)
	require.False(t, sess.Processing)
	require.Equal(t, []time.Duration{500 * time.Millisecond}, haptics.pulses)
	require.Zero(t, api.lookupCalls)

	// Valid JSON without a student id is just as dead.
	clock.Advance(scanner.OverlayDuration)
	require.Equal(t, scanner.ScanRejected, c.Scan(context.Background(), `{"student_id":""}`))
	require.Zero(t, api.lookupCalls)
}

func TestEmptyScanRejectedNotIgnored(t *testing.T) {
	api := okAPI()
	c, _, clock := newCoordinator(api)

	// The very first scan being empty must surface the malformed-QR
	// error, not disappear as a duplicate of "no scan yet".
	require.Equal(t, scanner.ScanRejected, c.Scan(context.Background(), ""))
	require.Equal(t, scanner.OutcomeError, c.Session().ScanResult)
	require.Zero(t, api.lookupCalls)

	// Repeating it inside the cooldown is the usual dedup.
	clock.Advance(scanner.OverlayDuration)
	require.Equal(t, scanner.ScanIgnored, c.Scan(context.Background(), ""))
}

func TestWhitespaceHospIDScanRejected(t *testing.T) {
	api := okAPI()
	c, _, clock := newCoordinator(api)
	toHospID(t, c, clock)

	// Whitespace normalizes to "" and must fail the format check
	// rather than match an unset last-scan marker.
	require.Equal(t, scanner.ScanRejected, c.Scan(context.Background(), "   "))
	require.Equal(t, scanner.OutcomeError, c.Session().ScanResult)
	require.Zero(t, api.availCalls)
}

func TestScansBlockedDuringOverlay(t *testing.T) {
	api := okAPI()
	c, _, clock := newCoordinator(api)

	require.Equal(t, scanner.ScanRejected, c.Scan(context.Background(), "bad"))

	// Different payload, but the error overlay is still showing.
	require.Equal(t, scanner.ScanIgnored, c.Scan(context.Background(), `{"student_id":"STU001"}`))
	require.Zero(t, api.lookupCalls)

	clock.Advance(scanner.OverlayDuration)
	require.Equal(t, scanner.ScanAccepted, c.Scan(context.Background(), `{"student_id":"STU001"}`))
	require.Equal(t, 1, api.lookupCalls)
}

func TestDuplicateScanSuppressedForCooldown(t *testing.T) {
	api := okAPI()
	api.lookupFn = func(_ context.Context, _ string) (*hospitality.StudentProfile, error) {
		return nil, &hospitality.Error{Code: hospitality.CodeProfileNotFound, Message: "Student not found in database"}
	}
	c, _, clock := newCoordinator(api)
	payload := `{"student_id":"STU999"}`

	require.Equal(t, scanner.ScanRejected, c.Scan(context.Background(), payload))
	require.Equal(t, 1, api.lookupCalls)

	// Past the overlay but inside the cooldown: still suppressed.
	clock.Advance(scanner.OverlayDuration)
	require.Equal(t, scanner.ScanIgnored, c.Scan(context.Background(), payload))
	require.Equal(t, 1, api.lookupCalls)

	// Past the cooldown the identical text is a fresh retry.
	clock.Advance(scanner.ScanCooldown - scanner.OverlayDuration)
	require.Equal(t, scanner.ScanRejected, c.Scan(context.Background(), payload))
	require.Equal(t, 2, api.lookupCalls)
}

func TestHospIDScanNormalizedForDedup(t *testing.T) {
	api := okAPI()
	api.availFn = func(_ context.Context, _ string) (bool, error) { return false, nil }
	c, _, clock := newCoordinator(api)
	toHospID(t, c, clock)

	require.Equal(t, scanner.ScanRejected, c.Scan(context.Background(), "A123"))
	require.Equal(t, 1, api.availCalls)

	// "a123" normalizes to the same id, so it is a duplicate even after
	// the overlay clears.
	clock.Advance(scanner.OverlayDuration)
	require.Equal(t, scanner.ScanIgnored, c.Scan(context.Background(), "a123"))
	require.Equal(t, 1, api.availCalls)
}

func TestHospIDScanInvalidFormat(t *testing.T) {
	api := okAPI()
	c, _, clock := newCoordinator(api)
	toHospID(t, c, clock)

	require.Equal(t, scanner.ScanRejected, c.Scan(context.Background(), "12AB"))
	require.Zero(t, api.availCalls)
	require.Equal(t, scanner.OutcomeError, c.Session().ScanResult)
}

func TestHospIDScanStoresNormalizedID(t *testing.T) {
	api := okAPI()
	c, _, clock := newCoordinator(api)
	toHospID(t, c, clock)

	require.Equal(t, scanner.ScanAccepted, c.Scan(context.Background(), "  b204 "))
	clock.Advance(scanner.StepAdvanceDelay)

	sess := c.Session()
	require.Equal(t, scanner.StepAccommodation, sess.Step)
	require.Equal(t, "B204", sess.HospitalityID)
}

func TestConfirmBindsSession(t *testing.T) {
	api := okAPI()
	c, _, clock := newCoordinator(api)
	toHospID(t, c, clock)

	require.Equal(t, scanner.ScanAccepted, c.Scan(context.Background(), "B204"))
	clock.Advance(scanner.StepAdvanceDelay)

	c.SetAccommodationType(hospitality.AccommodationHostel)
	c.SetHostel(&hospitality.Hostel{ID: "H004", Name: "Yamuna"})
	c.ProceedToConfirm()
	require.Equal(t, scanner.StepConfirm, c.Session().Step)

	rec, message, err := c.Confirm(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, api.bindCalls)
	require.Equal(t, "B204", rec.HospitalityID)
	require.Equal(t, "STU001", rec.StudentID)
	require.Equal(t, "Yamuna", rec.HostelName)
	require.Contains(t, message, "Finance")
	require.Equal(t, scanner.StepComplete, c.Session().Step)

	// Scans are dead once the flow completed.
	require.Equal(t, scanner.ScanIgnored, c.Scan(context.Background(), "C305"))
}

func TestConfirmOnlyFromConfirmStep(t *testing.T) {
	api := okAPI()
	c, _, _ := newCoordinator(api)

	_, _, err := c.Confirm(context.Background())
	require.Error(t, err)
	require.Zero(t, api.bindCalls)
}

func TestGoBack(t *testing.T) {
	api := okAPI()
	c, _, clock := newCoordinator(api)
	toHospID(t, c, clock)

	require.Equal(t, scanner.ScanAccepted, c.Scan(context.Background(), "B204"))
	clock.Advance(scanner.StepAdvanceDelay)
	require.Equal(t, scanner.StepAccommodation, c.Session().Step)

	// ACCOMMODATION -> HOSP_ID forgets the scanned id but keeps the
	// student context.
	c.GoBack()
	sess := c.Session()
	require.Equal(t, scanner.StepHospID, sess.Step)
	require.Empty(t, sess.HospitalityID)
	require.Equal(t, "STU001", sess.StudentID)

	// HOSP_ID -> full restart.
	c.GoBack()
	sess = c.Session()
	require.Equal(t, scanner.StepProfileQR, sess.Step)
	require.Empty(t, sess.StudentID)
	require.Nil(t, sess.Profile)
}

func TestResetInvalidatesPendingAdvance(t *testing.T) {
	api := okAPI()
	c, _, clock := newCoordinator(api)

	require.Equal(t, scanner.ScanAccepted, c.Scan(context.Background(), `{"student_id":"STU001"}`))
	c.Reset()

	// The scheduled advance belongs to the old session and must not
	// resurrect it.
	clock.Advance(scanner.StepAdvanceDelay)
	sess := c.Session()
	require.Equal(t, scanner.StepProfileQR, sess.Step)
	require.Empty(t, sess.StudentID)
	require.False(t, sess.Processing)
	require.Empty(t, sess.ScanResult)

	// And the cooldown marker is gone: the same payload is accepted at once.
	require.Equal(t, scanner.ScanAccepted, c.Scan(context.Background(), `{"student_id":"STU001"}`))
	require.Equal(t, 2, api.lookupCalls)
}
