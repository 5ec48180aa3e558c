package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/iliyamo/exam-reservation/internal/model"
)

// ReservationRepo manages the exam_reservations table.  A row is keyed by
// (member_idx, exam_idx); confirmed_at is NULL while the reservation is
// pending.  Mutating methods take the caller's transaction so that the
// precondition read and the write happen atomically.  All timestamps are
// stored in UTC.
type ReservationRepo struct {
    db      *sql.DB
    dialect Dialect
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB, dialect Dialect) *ReservationRepo {
    return &ReservationRepo{db: db, dialect: dialect}
}

// pendingClause narrows a statement on exam_reservations to pending rows.
func pendingClause(pendingOnly bool) string {
    if pendingOnly {
        return " AND confirmed_at IS NULL"
    }
    return ""
}

// GetTx loads the reservation for (examIdx, memberIdx).  lock takes a row
// lock on MySQL; pendingOnly hides confirmed rows so that they read as
// ErrNotFound.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sql.Tx, examIdx, memberIdx uint64, lock, pendingOnly bool) (model.Reservation, error) {
    q := `SELECT exam_idx, member_idx, memo, confirmed_at, registered_at
          FROM exam_reservations
          WHERE exam_idx = ? AND member_idx = ?` + pendingClause(pendingOnly) + r.dialect.lockSuffix(lock)
    var (
        res       model.Reservation
        memo      sql.NullString
        confirmed sql.NullTime
    )
    err := tx.QueryRowContext(ctx, q, examIdx, memberIdx).Scan(
        &res.ExamIdx, &res.MemberIdx, &memo, &confirmed, &res.RegisteredAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Reservation{}, ErrNotFound
    }
    if err != nil {
        return model.Reservation{}, fmt.Errorf("select reservation: %w", err)
    }
    res.Memo = stringPtr(memo)
    res.ConfirmedAt = timePtr(confirmed)
    res.RegisteredAt = res.RegisteredAt.UTC()
    return res, nil
}

// CountConfirmedTx returns the number of confirmed reservations for examIdx.
func (r *ReservationRepo) CountConfirmedTx(ctx context.Context, tx *sql.Tx, examIdx uint64) (int64, error) {
    var n int64
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM exam_reservations WHERE exam_idx = ? AND confirmed_at IS NOT NULL`,
        examIdx).Scan(&n)
    if err != nil {
        return 0, fmt.Errorf("count confirmed: %w", err)
    }
    return n, nil
}

// CreateTx inserts res as a pending reservation.  ConfirmedAt on res is
// ignored and reset to nil.  A second row for the same pair yields
// ErrDuplicate.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
    res.ConfirmedAt = nil
    res.RegisteredAt = dbTime(res.RegisteredAt)
    _, err := tx.ExecContext(ctx,
        `INSERT INTO exam_reservations (member_idx, exam_idx, memo, confirmed_at, registered_at) VALUES (?, ?, ?, NULL, ?)`,
        res.MemberIdx, res.ExamIdx, nullString(res.Memo), res.RegisteredAt)
    if err != nil {
        if IsDuplicate(err) {
            return ErrDuplicate
        }
        return fmt.Errorf("insert reservation: %w", err)
    }
    return nil
}

// DeleteTx removes the reservation.  With pendingOnly set a confirmed row is
// left untouched.  When nothing was deleted ErrStale is returned.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, examIdx, memberIdx uint64, pendingOnly bool) error {
    result, err := tx.ExecContext(ctx,
        `DELETE FROM exam_reservations WHERE exam_idx = ? AND member_idx = ?`+pendingClause(pendingOnly),
        examIdx, memberIdx)
    if err != nil {
        return fmt.Errorf("delete reservation: %w", err)
    }
    return expectOne(result)
}

// UpdateMemoTx overwrites the memo.  A nil memo clears it.
func (r *ReservationRepo) UpdateMemoTx(ctx context.Context, tx *sql.Tx, examIdx, memberIdx uint64, memo *string, pendingOnly bool) error {
    result, err := tx.ExecContext(ctx,
        `UPDATE exam_reservations SET memo = ? WHERE exam_idx = ? AND member_idx = ?`+pendingClause(pendingOnly),
        nullString(memo), examIdx, memberIdx)
    if err != nil {
        return fmt.Errorf("update reservation memo: %w", err)
    }
    return expectOne(result)
}

// UpdateTx applies an administrative change.  Nil arguments leave the
// corresponding column unchanged; with both nil it only checks the row
// still exists.
func (r *ReservationRepo) UpdateTx(ctx context.Context, tx *sql.Tx, examIdx, memberIdx uint64, memo *string, confirmAt *time.Time) error {
    set := "memo = memo"
    args := []any{}
    if memo != nil {
        set = "memo = ?"
        args = append(args, *memo)
    }
    if confirmAt != nil {
        set += ", confirmed_at = ?"
        args = append(args, dbTime(*confirmAt))
    }
    args = append(args, examIdx, memberIdx)
    result, err := tx.ExecContext(ctx,
        `UPDATE exam_reservations SET `+set+` WHERE exam_idx = ? AND member_idx = ?`, args...)
    if err != nil {
        return fmt.Errorf("update reservation: %w", err)
    }
    return expectOne(result)
}

const examReservationSelect = `SELECT
        e.exam_idx, e.title, e.scheduled_at, e.capacity,
        r.member_idx, r.memo, r.confirmed_at, r.registered_at
    FROM exam_reservations r
    JOIN exams e ON e.exam_idx = r.exam_idx`

// ListByMember returns every reservation of memberIdx joined with its exam,
// in exam schedule order.
func (r *ReservationRepo) ListByMember(ctx context.Context, memberIdx uint64) ([]model.ExamReservation, error) {
    return r.list(ctx, examReservationSelect+`
    WHERE r.member_idx = ?
    ORDER BY e.scheduled_at ASC, e.exam_idx ASC`, memberIdx)
}

// ListAll returns every reservation joined with its exam.  Exams without
// reservations do not appear.
func (r *ReservationRepo) ListAll(ctx context.Context) ([]model.ExamReservation, error) {
    return r.list(ctx, examReservationSelect+`
    ORDER BY e.scheduled_at ASC, e.exam_idx ASC, r.member_idx ASC`)
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.ExamReservation, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, fmt.Errorf("list reservations: %w", err)
    }
    defer rows.Close()

    out := make([]model.ExamReservation, 0)
    for rows.Next() {
        var (
            er        model.ExamReservation
            memo      sql.NullString
            confirmed sql.NullTime
        )
        if err := rows.Scan(&er.ExamIdx, &er.Title, &er.ScheduledAt, &er.Capacity,
            &er.MemberIdx, &memo, &confirmed, &er.RegisteredAt); err != nil {
            return nil, fmt.Errorf("scan reservation: %w", err)
        }
        er.ScheduledAt = er.ScheduledAt.UTC()
        er.RegisteredAt = er.RegisteredAt.UTC()
        er.Memo = stringPtr(memo)
        er.ConfirmedAt = timePtr(confirmed)
        er.State = model.StatePending
        if er.ConfirmedAt != nil {
            er.State = model.StateConfirmed
        }
        out = append(out, er)
    }
    return out, rows.Err()
}

// expectOne turns a zero-row conditional write into ErrStale.
func expectOne(result sql.Result) error {
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return ErrStale
    }
    return nil
}
