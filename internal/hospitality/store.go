package hospitality

import (
	"context"
	"sync"
)

// Store is the persistence boundary for the accommodation workflow.
// Lookups return (nil, nil) when the key is absent; the workflow layer
// turns that into its own not-found errors.
type Store interface {
	Profile(ctx context.Context, studentID string) (*StudentProfile, error)
	Record(ctx context.Context, hospID string) (*StudentRecord, error)
	RecordByStudentID(ctx context.Context, studentID string) (*StudentRecord, error)
	HospitalityIDUsed(ctx context.Context, hospID string) (bool, error)
	InsertRecord(ctx context.Context, rec StudentRecord) error
	UpdateRecord(ctx context.Context, rec StudentRecord) error
	ListRecords(ctx context.Context) ([]StudentRecord, error)
	Hostels(ctx context.Context) ([]Hostel, error)
	HostelByName(ctx context.Context, name string) (*Hostel, error)
	AdjustHostelOccupancy(ctx context.Context, hostelID string, delta int) error
	Stats(ctx context.Context) (Stats, error)

	// Transact runs fn so that either all of its writes land or none
	// do. Workflow operations that pair a record write with an
	// occupancy change go through here.
	Transact(ctx context.Context, fn func(Store) error) error
}

// MemoryStore keeps everything in maps guarded by a RWMutex. It is the
// production store for the single-kiosk deployment and the backing for
// tests; Postgres replaces it when durability matters.
type MemoryStore struct {
	mu           sync.RWMutex
	profiles     map[string]StudentProfile
	records      map[string]StudentRecord // keyed by hospitality id
	studentIndex map[string]string        // student id -> hospitality id
	hostels      []Hostel

	seedProfiles []StudentProfile
	seedHostels  []Hostel
}

// NewMemoryStore returns an empty store. Call Seed to load demo data.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:     make(map[string]StudentProfile),
		records:      make(map[string]StudentRecord),
		studentIndex: make(map[string]string),
	}
}

// Seed loads profiles and hostels and remembers them for Reset.
func (s *MemoryStore) Seed(profiles []StudentProfile, hostels []Hostel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seedProfiles = append([]StudentProfile(nil), profiles...)
	s.seedHostels = append([]Hostel(nil), hostels...)
	s.load()
}

func (s *MemoryStore) load() {
	for _, p := range s.seedProfiles {
		s.profiles[p.StudentID] = p
	}
	s.hostels = make([]Hostel, len(s.seedHostels))
	copy(s.hostels, s.seedHostels)
	for i := range s.hostels {
		h := &s.hostels[i]
		h.AvailableBeds = h.TotalBeds - h.OccupiedBeds
	}
}

// Reset drops all records and restores seed data. Test harness only.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]StudentRecord)
	s.studentIndex = make(map[string]string)
	s.load()
}

func (s *MemoryStore) Profile(_ context.Context, studentID string) (*StudentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[studentID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) Record(_ context.Context, hospID string) (*StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[hospID]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) RecordByStudentID(_ context.Context, studentID string) (*StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hospID, ok := s.studentIndex[studentID]
	if !ok {
		return nil, nil
	}
	rec, ok := s.records[hospID]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) HospitalityIDUsed(_ context.Context, hospID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[hospID]
	return ok, nil
}

func (s *MemoryStore) InsertRecord(_ context.Context, rec StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.HospitalityID]; ok {
		return newError(CodeConflict, "Hospitality ID already in use")
	}
	if existing, ok := s.studentIndex[rec.StudentID]; ok {
		return newError(CodeConflict, "Student already mapped to: %s", existing)
	}
	s.records[rec.HospitalityID] = *copyRecord(rec)
	s.studentIndex[rec.StudentID] = rec.HospitalityID
	return nil
}

func (s *MemoryStore) UpdateRecord(_ context.Context, rec StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.HospitalityID]; !ok {
		return newError(CodeNotFound, "Student not found")
	}
	s.records[rec.HospitalityID] = *copyRecord(rec)
	return nil
}

func (s *MemoryStore) ListRecords(_ context.Context) ([]StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StudentRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *copyRecord(rec))
	}
	return out, nil
}

func (s *MemoryStore) Hostels(_ context.Context) ([]Hostel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Hostel, len(s.hostels))
	copy(out, s.hostels)
	return out, nil
}

func (s *MemoryStore) HostelByName(_ context.Context, name string) (*Hostel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.hostels {
		if h.Name == name {
			out := h
			return &out, nil
		}
	}
	return nil, nil
}

// AdjustHostelOccupancy applies a bed delta, rejecting anything that
// would leave occupied outside [0, total]. Available is recomputed, not
// tracked, so the two counters cannot drift.
func (s *MemoryStore) AdjustHostelOccupancy(_ context.Context, hostelID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.hostels {
		h := &s.hostels[i]
		if h.ID != hostelID {
			continue
		}
		next := h.OccupiedBeds + delta
		if next < 0 || next > h.TotalBeds {
			return newError(CodeHostelFull, "No beds available in assigned hostel")
		}
		h.OccupiedBeds = next
		h.AvailableBeds = h.TotalBeds - h.OccupiedBeds
		return nil
	}
	return newError(CodeNotFound, "hostel %s not found", hostelID)
}

// Transact runs fn against the store directly. The workflow mutex
// already serializes mutating operations, and the in-memory writes the
// workflow pairs up cannot fail after their preconditions were read
// under that mutex, so there is nothing to roll back.
func (s *MemoryStore) Transact(_ context.Context, fn func(Store) error) error {
	return fn(s)
}

func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	st.TotalStudents = len(s.records)
	for _, rec := range s.records {
		switch rec.AccommodationStatus {
		case StatusCheckedIn:
			st.CheckedIn++
		case StatusRequested:
			st.AwaitingPayment++
		case StatusPaid:
			st.AwaitingHostelCheckIn++
		case StatusCheckedOut:
			st.CheckedOut++
		case StatusNone:
			st.DailyCheckIns++
		}
	}
	return st, nil
}

// copyRecord deep-copies the daily check-in slice so callers cannot
// mutate stored state through a returned record.
func copyRecord(rec StudentRecord) *StudentRecord {
	out := rec
	if rec.DailyCheckIns != nil {
		out.DailyCheckIns = make([]DailyCheckIn, len(rec.DailyCheckIns))
		copy(out.DailyCheckIns, rec.DailyCheckIns)
	}
	return &out
}
