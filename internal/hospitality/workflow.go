package hospitality

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Service runs the accommodation workflow on top of a Store. A single
// mutex serializes mutating operations: every precondition here is a
// read-then-write, and the desk model is one operator per record, so
// operations must not interleave.
type Service struct {
	mu    sync.Mutex
	store Store
	clock clockwork.Clock
}

// NewService creates the workflow service. A nil clock falls back to
// wall time; tests inject a fake clock.
func NewService(store Store, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: store, clock: clock}
}

// BindRequest maps a student to a hospitality id at the HOSP_1 desk.
type BindRequest struct {
	StudentID         string            `json:"student_id"`
	HospitalityID     string            `json:"hospitality_id"`
	AccommodationType AccommodationType `json:"accommodation_type"`
	HostelName        string            `json:"hostel_name,omitempty"`
	CheckInDate       *time.Time        `json:"check_in_date,omitempty"`
}

// LookupProfile fetches a profile for the PROFILE_QR step. A student
// who already holds a hospitality id is reported as a conflict carrying
// the existing id, since re-binding is never allowed.
func (s *Service) LookupProfile(ctx context.Context, studentID string) (*StudentProfile, error) {
	profile, err := s.store.Profile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, newError(CodeProfileNotFound, "Student not found in database")
	}
	existing, err := s.store.RecordByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(CodeConflict, "Student already mapped to Hospitality ID: %s", existing.HospitalityID)
	}
	return profile, nil
}

// GetRecord returns the record bound to a hospitality id.
func (s *Service) GetRecord(ctx context.Context, hospID string) (*StudentRecord, error) {
	if !ValidHospitalityID(hospID) {
		return nil, newError(CodeInvalidFormat, "Invalid Hospitality ID format (expected: A123)")
	}
	rec, err := s.store.Record(ctx, hospID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, newError(CodeNotFound, "No student mapped to this Hospitality ID")
	}
	return rec, nil
}

// GetRecordByStudentID returns the record bound to a student id.
func (s *Service) GetRecordByStudentID(ctx context.Context, studentID string) (*StudentRecord, error) {
	rec, err := s.store.RecordByStudentID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, newError(CodeNotFound, "Student not found")
	}
	return rec, nil
}

// CheckAvailability reports whether a hospitality id is still free.
func (s *Service) CheckAvailability(ctx context.Context, hospID string) (bool, error) {
	if !ValidHospitalityID(hospID) {
		return false, newError(CodeInvalidFormat, "Invalid format")
	}
	used, err := s.store.HospitalityIDUsed(ctx, hospID)
	if err != nil {
		return false, err
	}
	return !used, nil
}

// Bind creates the student record. The initial status encodes the
// payment policy: affiliated students skip Finance for hostel stays,
// external students must pay first. Hostel occupancy is untouched here;
// beds are claimed only at hostel check-in.
func (s *Service) Bind(ctx context.Context, req BindRequest) (*StudentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ValidHospitalityID(req.HospitalityID) {
		return nil, newError(CodeInvalidFormat, "Invalid Hospitality ID format (expected: A123)")
	}
	switch req.AccommodationType {
	case AccommodationNone, AccommodationHostel:
	default:
		return nil, newError(CodeInvalidFormat, "Invalid accommodation type: %s", req.AccommodationType)
	}
	used, err := s.store.HospitalityIDUsed(ctx, req.HospitalityID)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, newError(CodeConflict, "Hospitality ID already in use")
	}
	existing, err := s.store.RecordByStudentID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(CodeConflict, "Student already mapped to: %s", existing.HospitalityID)
	}
	profile, err := s.store.Profile(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, newError(CodeProfileNotFound, "Student profile not found")
	}
	if req.AccommodationType == AccommodationHostel && req.HostelName == "" {
		return nil, newError(CodeMissingHostel, "Hostel name required for hostel accommodation")
	}

	status := StatusNone
	if req.AccommodationType == AccommodationHostel {
		if profile.StudentType == StudentTypeAffiliated {
			status = StatusPaid
		} else {
			status = StatusRequested
		}
	}

	now := s.clock.Now().UTC()
	checkIn := now
	if req.CheckInDate != nil {
		checkIn = *req.CheckInDate
	}
	rec := StudentRecord{
		HospitalityID:       req.HospitalityID,
		StudentID:           req.StudentID,
		Name:                profile.Name,
		Email:               profile.Email,
		Phone:               profile.Phone,
		College:             profile.College,
		StudentType:         profile.StudentType,
		AccommodationType:   req.AccommodationType,
		AccommodationStatus: status,
		CheckInDate:         checkIn,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if req.AccommodationType == AccommodationHostel {
		rec.HostelName = req.HostelName
	} else {
		rec.DailyCheckIns = []DailyCheckIn{}
	}

	if err := s.store.InsertRecord(ctx, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ProcessPayment moves REQUESTED to PAID at the Finance desk.
func (s *Service) ProcessPayment(ctx context.Context, hospID string) (*StudentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Record(ctx, hospID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, newError(CodeNotFound, "Student not found")
	}
	if rec.AccommodationStatus != StatusRequested {
		return nil, newError(CodeInvalidTransition, "Cannot process payment. Current status: %s", rec.AccommodationStatus)
	}

	now := s.clock.Now().UTC()
	rec.AccommodationStatus = StatusPaid
	rec.PaymentTimestamp = &now
	rec.UpdatedAt = now
	if err := s.store.UpdateRecord(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// HostelCheckIn moves PAID to CHECKED_IN and claims a bed. A REQUESTED
// record gets a distinguished error so the desk can route the student
// to Finance instead of showing a generic failure.
func (s *Service) HostelCheckIn(ctx context.Context, hospID string) (*StudentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Record(ctx, hospID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, newError(CodeNotFound, "Student not found")
	}
	if rec.AccommodationStatus != StatusPaid {
		if rec.AccommodationStatus == StatusRequested {
			return nil, newError(CodePaymentNotVerified, "Payment not verified. Redirect to Finance first.")
		}
		return nil, newError(CodeInvalidTransition, "Cannot check in. Current status: %s", rec.AccommodationStatus)
	}
	if rec.HostelName == "" {
		return nil, newError(CodeNoHostelAssigned, "No hostel assigned to this student")
	}
	hostel, err := s.store.HostelByName(ctx, rec.HostelName)
	if err != nil {
		return nil, err
	}
	if hostel == nil || hostel.AvailableBeds <= 0 {
		return nil, newError(CodeHostelFull, "No beds available in assigned hostel")
	}

	now := s.clock.Now().UTC()
	rec.AccommodationStatus = StatusCheckedIn
	rec.HostelCheckInDate = &now
	rec.UpdatedAt = now
	// Bed claim and record write commit together or not at all.
	err = s.store.Transact(ctx, func(st Store) error {
		if err := st.AdjustHostelOccupancy(ctx, hostel.ID, +1); err != nil {
			return err
		}
		return st.UpdateRecord(ctx, *rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FinalCheckOut moves CHECKED_IN to CHECKED_OUT and releases the bed.
// Terminal: there is no way back out of CHECKED_OUT.
func (s *Service) FinalCheckOut(ctx context.Context, hospID string) (*StudentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Record(ctx, hospID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, newError(CodeNotFound, "Student not found")
	}
	if rec.AccommodationStatus != StatusCheckedIn {
		return nil, newError(CodeInvalidTransition, "Cannot checkout. Current status: %s", rec.AccommodationStatus)
	}

	now := s.clock.Now().UTC()
	rec.AccommodationStatus = StatusCheckedOut
	rec.CheckOutDate = &now
	rec.UpdatedAt = now
	// Record write and bed release commit together or not at all.
	err = s.store.Transact(ctx, func(st Store) error {
		if err := st.UpdateRecord(ctx, *rec); err != nil {
			return err
		}
		if rec.HostelName == "" {
			return nil
		}
		hostel, err := st.HostelByName(ctx, rec.HostelName)
		if err != nil {
			return err
		}
		if hostel == nil {
			return nil
		}
		return st.AdjustHostelOccupancy(ctx, hostel.ID, -1)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DailyCheckInOut records a gate pass for students without hostel
// accommodation. At most one open entry may exist per calendar date.
func (s *Service) DailyCheckInOut(ctx context.Context, hospID string, checkingOut bool) (*StudentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Record(ctx, hospID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, newError(CodeNotFound, "Student not found")
	}
	if rec.AccommodationStatus != StatusNone {
		return nil, newError(CodeWrongAccommodation, "Daily check-in/out only available for students without hostel accommodation")
	}

	now := s.clock.Now().UTC()
	today := now.Format("2006-01-02")
	open := -1
	for i := range rec.DailyCheckIns {
		d := &rec.DailyCheckIns[i]
		if d.Date == today && d.CheckOutTime == nil {
			open = i
			break
		}
	}

	if checkingOut {
		if open < 0 {
			return nil, newError(CodeNoActiveCheckIn, "No active check-in to close for today")
		}
		t := now
		rec.DailyCheckIns[open].CheckOutTime = &t
	} else {
		if open >= 0 {
			return nil, newError(CodeAlreadyCheckedIn, "Already checked in today")
		}
		rec.DailyCheckIns = append(rec.DailyCheckIns, DailyCheckIn{Date: today, CheckInTime: now})
	}

	rec.UpdatedAt = now
	if err := s.store.UpdateRecord(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateCheckInDate is the only record field HOSP_1 may edit after bind.
func (s *Service) UpdateCheckInDate(ctx context.Context, hospID string, checkIn time.Time) (*StudentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Record(ctx, hospID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, newError(CodeNotFound, "Student not found")
	}
	rec.CheckInDate = checkIn
	rec.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.UpdateRecord(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRecords returns every bound record.
func (s *Service) ListRecords(ctx context.Context) ([]StudentRecord, error) {
	return s.store.ListRecords(ctx)
}

// Hostels returns the hostel registry with live occupancy.
func (s *Service) Hostels(ctx context.Context) ([]Hostel, error) {
	return s.store.Hostels(ctx)
}

// Stats returns dashboard counters.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

// RegistrationMessage tells the operator where to send the student after
// a successful bind, based on the initial status.
func RegistrationMessage(status AccommodationStatus) string {
	switch status {
	case StatusRequested:
		return "Student registered. Redirect to Finance for payment."
	case StatusPaid:
		return "Student registered. Redirect to hostel desk for check-in."
	default:
		return "Student registered successfully"
	}
}
