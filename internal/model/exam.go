package model

import "time"

// DefaultCapacity is applied when an exam is created without a capacity.
const DefaultCapacity = 50000

// Exam is a scheduled exam session.  No two exams share the same
// (Title, ScheduledAt) pair.
type Exam struct {
    ExamIdx      uint64    `json:"exam_idx"`
    Title        string    `json:"title"`
    ScheduledAt  time.Time `json:"scheduled_at"`
    Capacity     uint32    `json:"capacity"`
    RegisteredAt time.Time `json:"registered_at"`
}

// ExamSummary is an exam search row: the exam with the number of its
// reservations that are still pending.
type ExamSummary struct {
    ExamIdx      uint64    `json:"exam_idx"`
    Title        string    `json:"title"`
    ScheduledAt  time.Time `json:"scheduled_at"`
    Capacity     uint32    `json:"capacity"`
    PendingCount int64     `json:"pending_count"`
}

// ExamSearch carries the public search filters.  Zero times mean "no bound".
// Page is 1-based.
type ExamSearch struct {
    Title     string
    Start     time.Time
    End       time.Time
    NotBefore time.Time
    Page      int
    PageSize  int
}

// Offset returns the row offset for the requested page.
func (s ExamSearch) Offset() int {
    if s.Page < 1 {
        return 0
    }
    return (s.Page - 1) * s.PageSize
}
