// Package repository contains data access logic for the exam catalog, the
// identity tables and the reservation ledger.  Queries are plain SQL with `?`
// placeholders so the same statements run on MySQL and SQLite.
package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/iliyamo/exam-reservation/internal/model"
)

// ExamRepo manages persistence for exams.
type ExamRepo struct {
    db      *sql.DB
    dialect Dialect
}

// NewExamRepo returns an ExamRepo bound to db.
func NewExamRepo(db *sql.DB, dialect Dialect) *ExamRepo {
    return &ExamRepo{db: db, dialect: dialect}
}

const examColumns = `exam_idx, title, scheduled_at, capacity, registered_at`

// Create inserts a new exam and populates its generated index.  An exam
// with the same title and scheduled time yields ErrDuplicate.
func (r *ExamRepo) Create(ctx context.Context, e *model.Exam) error {
    e.ScheduledAt = dbTime(e.ScheduledAt)
    e.RegisteredAt = dbTime(e.RegisteredAt)
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO exams (title, scheduled_at, capacity, registered_at) VALUES (?, ?, ?, ?)`,
        e.Title, e.ScheduledAt, e.Capacity, e.RegisteredAt)
    if err != nil {
        if IsDuplicate(err) {
            return ErrDuplicate
        }
        return fmt.Errorf("insert exam: %w", err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    e.ExamIdx = uint64(id)
    return nil
}

// GetByID fetches an exam outside of any transaction.
func (r *ExamRepo) GetByID(ctx context.Context, id uint64) (model.Exam, error) {
    return r.GetByIDTx(ctx, r.db, id, false)
}

// GetByIDTx fetches an exam using q.  With lock set the exam row stays
// locked until the surrounding transaction ends, which serialises admissions
// for the same exam.
func (r *ExamRepo) GetByIDTx(ctx context.Context, q DBTX, id uint64, lock bool) (model.Exam, error) {
    row := q.QueryRowContext(ctx,
        `SELECT `+examColumns+` FROM exams WHERE exam_idx = ?`+r.dialect.lockSuffix(lock), id)
    var e model.Exam
    err := row.Scan(&e.ExamIdx, &e.Title, &e.ScheduledAt, &e.Capacity, &e.RegisteredAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Exam{}, ErrNotFound
    }
    if err != nil {
        return model.Exam{}, fmt.Errorf("select exam: %w", err)
    }
    e.ScheduledAt = e.ScheduledAt.UTC()
    e.RegisteredAt = e.RegisteredAt.UTC()
    return e, nil
}

// ExistsByTitleAndTime reports whether an exam with this exact title and
// schedule already exists.
func (r *ExamRepo) ExistsByTitleAndTime(ctx context.Context, title string, at time.Time) (bool, error) {
    var n int
    err := r.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM exams WHERE title = ? AND scheduled_at = ?`, title, dbTime(at)).Scan(&n)
    if err != nil {
        return false, fmt.Errorf("check exam: %w", err)
    }
    return n > 0, nil
}

// Search returns one page of exams matching q with the number of pending
// reservations for each, plus the total number of matching exams.
func (r *ExamRepo) Search(ctx context.Context, q model.ExamSearch) ([]model.ExamSummary, int64, error) {
    where := []string{}
    args := []any{}

    if !q.NotBefore.IsZero() {
        where = append(where, "e.scheduled_at >= ?")
        args = append(args, dbTime(q.NotBefore))
    }
    if q.Title != "" {
        where = append(where, "LOWER(e.title) LIKE ? ESCAPE '!'")
        args = append(args, likePattern(q.Title))
    }
    if !q.Start.IsZero() {
        where = append(where, "e.scheduled_at >= ?")
        args = append(args, dbTime(q.Start))
    }
    if !q.End.IsZero() {
        where = append(where, "e.scheduled_at <= ?")
        args = append(args, dbTime(q.End))
    }

    cond := "1=1"
    if len(where) > 0 {
        cond = strings.Join(where, " AND ")
    }

    var total int64
    if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exams e WHERE `+cond, args...).Scan(&total); err != nil {
        return nil, 0, fmt.Errorf("count exams: %w", err)
    }

    dataSQL := `SELECT
            e.exam_idx,
            e.title,
            e.scheduled_at,
            e.capacity,
            COUNT(r.member_idx) AS pending_count
        FROM exams e
        LEFT JOIN exam_reservations r
            ON r.exam_idx = e.exam_idx AND r.confirmed_at IS NULL
        WHERE ` + cond + `
        GROUP BY e.exam_idx, e.title, e.scheduled_at, e.capacity
        ORDER BY e.scheduled_at ASC, e.exam_idx ASC
        LIMIT ? OFFSET ?`

    argsData := append(append([]any{}, args...), q.PageSize, q.Offset())

    rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
    if err != nil {
        return nil, 0, fmt.Errorf("search exams: %w", err)
    }
    defer rows.Close()

    out := make([]model.ExamSummary, 0, q.PageSize)
    for rows.Next() {
        var s model.ExamSummary
        if err := rows.Scan(&s.ExamIdx, &s.Title, &s.ScheduledAt, &s.Capacity, &s.PendingCount); err != nil {
            return nil, 0, fmt.Errorf("scan exam summary: %w", err)
        }
        s.ScheduledAt = s.ScheduledAt.UTC()
        out = append(out, s)
    }
    if err := rows.Err(); err != nil {
        return nil, 0, err
    }
    return out, total, nil
}
