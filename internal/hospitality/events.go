package hospitality

import "time"

// TransitionEvent is published after every successful workflow mutation
// and consumed by the audit worker.
type TransitionEvent struct {
	ID            string              `json:"id"`
	HospitalityID string              `json:"hospitality_id"`
	Operation     string              `json:"operation"`
	Status        AccommodationStatus `json:"status"`
	At            time.Time           `json:"at"`
}

// Operation names carried on transition events.
const (
	OpBind          = "bind"
	OpPayment       = "payment"
	OpHostelCheckIn = "hostel_check_in"
	OpFinalCheckOut = "final_check_out"
	OpDailyCheckIn  = "daily_check_in"
	OpDailyCheckOut = "daily_check_out"
)
