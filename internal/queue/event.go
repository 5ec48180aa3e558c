// Package queue defines the reservation events exchanged over the message
// broker together with their publisher and the log-writing consumer.
package queue

import (
    "time"

    "github.com/iliyamo/exam-reservation/internal/model"
)

// DefaultQueue is the durable queue reservation events are routed to.
const DefaultQueue = "exam.reservation.events"

// Event types.
const (
    EventCreated   = "reservation.created"
    EventModified  = "reservation.modified"
    EventCancelled = "reservation.cancelled"
    EventConfirmed = "reservation.confirmed"
    EventDeleted   = "reservation.deleted"
)

// ReservationEvent is published after a reservation change commits.  It
// carries enough information for downstream consumers to log or notify
// without querying the primary database.
type ReservationEvent struct {
    EventID     string     `json:"event_id"`
    Type        string     `json:"type"`
    ExamIdx     uint64     `json:"exam_idx"`
    MemberIdx   uint64     `json:"member_idx"`
    Actor       model.Role `json:"actor"`
    Memo        *string    `json:"memo,omitempty"`
    ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
    OccurredAt  time.Time  `json:"occurred_at"`
}

// NewReservationEvent builds an event of the given type from the state of
// res after the change.
func NewReservationEvent(eventType string, actor model.Role, res model.Reservation, at time.Time) ReservationEvent {
    return ReservationEvent{
        Type:        eventType,
        ExamIdx:     res.ExamIdx,
        MemberIdx:   res.MemberIdx,
        Actor:       actor,
        Memo:        res.Memo,
        ConfirmedAt: res.ConfirmedAt,
        OccurredAt:  at.UTC(),
    }
}
