package hospitality

import "time"

// StudentType classifies a guest for the payment policy: affiliated
// students get hostel payment waived, external students pay first.
type StudentType string

const (
	StudentTypeExternal   StudentType = "EXTERNAL"
	StudentTypeAffiliated StudentType = "AFFILIATED"
)

// AccommodationType selects between hostel stay and daily check-in only.
type AccommodationType string

const (
	AccommodationNone   AccommodationType = "NONE"
	AccommodationHostel AccommodationType = "HOSTEL"
)

// AccommodationStatus is the lifecycle state of a student record.
type AccommodationStatus string

const (
	StatusNone       AccommodationStatus = "NONE"
	StatusRequested  AccommodationStatus = "REQUESTED"
	StatusPaid       AccommodationStatus = "PAID"
	StatusCheckedIn  AccommodationStatus = "CHECKED_IN"
	StatusCheckedOut AccommodationStatus = "CHECKED_OUT"
)

// StudentProfile holds identity facts looked up by student id. Profiles
// come from the registration registry and are never modified here.
type StudentProfile struct {
	StudentID   string      `json:"student_id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	College     string      `json:"college"`
	StudentType StudentType `json:"student_type"`
}

// DailyCheckIn is one calendar day's check-in for students without
// hostel accommodation. An entry is open while CheckOutTime is nil.
type DailyCheckIn struct {
	Date         string     `json:"date"` // YYYY-MM-DD
	CheckInTime  time.Time  `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
}

// StudentRecord is the binding of a student to a hospitality id plus the
// accommodation state that evolves over the event. Records are created
// once by Bind and only mutated through workflow operations.
type StudentRecord struct {
	HospitalityID string `json:"hospitality_id"`
	StudentID     string `json:"student_id"`

	// Copied from the profile at bind time.
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	College     string      `json:"college"`
	StudentType StudentType `json:"student_type"`

	AccommodationType   AccommodationType   `json:"accommodation_type"`
	AccommodationStatus AccommodationStatus `json:"accommodation_status"`
	HostelName          string              `json:"hostel_name,omitempty"`

	CheckInDate       time.Time  `json:"check_in_date"`
	HostelCheckInDate *time.Time `json:"hostel_check_in_date,omitempty"`
	CheckOutDate      *time.Time `json:"check_out_date,omitempty"`
	PaymentTimestamp  *time.Time `json:"payment_timestamp,omitempty"`

	// Populated only for AccommodationNone records.
	DailyCheckIns []DailyCheckIn `json:"daily_check_ins,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Hostel carries capacity counters. AvailableBeds is always recomputed
// from TotalBeds and OccupiedBeds, never adjusted independently.
type Hostel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Sharing       string `json:"sharing"`
	Price         int    `json:"price"`
	TotalBeds     int    `json:"total_beds"`
	OccupiedBeds  int    `json:"occupied_beds"`
	AvailableBeds int    `json:"available_beds"`
}

// Stats summarizes records for the dashboard.
type Stats struct {
	TotalStudents         int `json:"total_students"`
	CheckedIn             int `json:"checked_in"`
	AwaitingPayment       int `json:"awaiting_payment"`
	AwaitingHostelCheckIn int `json:"awaiting_hostel_checkin"`
	CheckedOut            int `json:"checked_out"`
	DailyCheckIns         int `json:"daily_checkins"`
}
