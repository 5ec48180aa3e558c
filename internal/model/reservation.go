package model

import "time"

// ReservationState is derived from ConfirmedAt; it is not stored.
type ReservationState string

const (
    StatePending   ReservationState = "PENDING"
    StateConfirmed ReservationState = "CONFIRMED"
)

// Reservation is one member's seat for one exam.  (MemberIdx, ExamIdx) is
// the identity of the row.  ConfirmedAt is nil while the reservation is
// pending and is only ever set by an administrator.
//
// Fields:
//  ExamIdx      – exam being reserved.
//  MemberIdx    – member who reserved.
//  Memo         – optional free text (nil when absent).
//  ConfirmedAt  – confirmation time, nil while pending.
//  RegisteredAt – creation timestamp.
type Reservation struct {
    ExamIdx      uint64     `json:"exam_idx"`
    MemberIdx    uint64     `json:"member_idx"`
    Memo         *string    `json:"memo"`
    ConfirmedAt  *time.Time `json:"confirmed_at"`
    RegisteredAt time.Time  `json:"registered_at"`
}

// State reports whether the reservation is pending or confirmed.
func (r Reservation) State() ReservationState {
    if r.ConfirmedAt != nil {
        return StateConfirmed
    }
    return StatePending
}

// ExamReservation joins an exam with one of its reservations.  It backs
// both the member's own listing and the administrator's full listing.
type ExamReservation struct {
    ExamIdx      uint64           `json:"exam_idx"`
    Title        string           `json:"title"`
    ScheduledAt  time.Time        `json:"scheduled_at"`
    Capacity     uint32           `json:"capacity"`
    MemberIdx    uint64           `json:"member_idx"`
    Memo         *string          `json:"memo"`
    ConfirmedAt  *time.Time       `json:"confirmed_at"`
    RegisteredAt time.Time        `json:"registered_at"`
    State        ReservationState `json:"state"`
}
