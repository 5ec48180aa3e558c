package service

import (
    "context"
    "database/sql"
    "log/slog"
    "time"

    "github.com/iliyamo/exam-reservation/internal/model"
    "github.com/iliyamo/exam-reservation/internal/repository"
)

// TxBeginner starts database transactions.  *sql.DB satisfies it.
type TxBeginner interface {
    BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// IdentityRepository stores members or admins.
type IdentityRepository interface {
    Create(ctx context.Context, s *model.Subject) error
    GetByLoginID(ctx context.Context, id string) (model.Subject, error)
    GetByIdx(ctx context.Context, idx uint64) (model.Subject, error)
}

// ExamRepository stores exams.
type ExamRepository interface {
    Create(ctx context.Context, e *model.Exam) error
    GetByID(ctx context.Context, id uint64) (model.Exam, error)
    GetByIDTx(ctx context.Context, q repository.DBTX, id uint64, lock bool) (model.Exam, error)
    ExistsByTitleAndTime(ctx context.Context, title string, at time.Time) (bool, error)
    Search(ctx context.Context, q model.ExamSearch) ([]model.ExamSummary, int64, error)
}

// ReservationRepository stores the reservation ledger.
type ReservationRepository interface {
    GetTx(ctx context.Context, tx *sql.Tx, examIdx, memberIdx uint64, lock, pendingOnly bool) (model.Reservation, error)
    CountConfirmedTx(ctx context.Context, tx *sql.Tx, examIdx uint64) (int64, error)
    CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error
    DeleteTx(ctx context.Context, tx *sql.Tx, examIdx, memberIdx uint64, pendingOnly bool) error
    UpdateMemoTx(ctx context.Context, tx *sql.Tx, examIdx, memberIdx uint64, memo *string, pendingOnly bool) error
    UpdateTx(ctx context.Context, tx *sql.Tx, examIdx, memberIdx uint64, memo *string, confirmAt *time.Time) error
    ListByMember(ctx context.Context, memberIdx uint64) ([]model.ExamReservation, error)
    ListAll(ctx context.Context) ([]model.ExamReservation, error)
}

// SearchInvalidator drops cached exam search results.  It is called after
// every committed change to the catalog or to pending counts.
type SearchInvalidator interface {
    Invalidate(ctx context.Context) error
}

// invalidateSearch runs after commit; a failure only leaves cached
// results in place until they expire.
func invalidateSearch(ctx context.Context, cache SearchInvalidator, logger *slog.Logger) {
    if cache == nil {
        return
    }
    if err := cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
        logger.Warn("search cache invalidation failed", "err", err)
    }
}

var (
    _ IdentityRepository    = (*repository.IdentityRepo)(nil)
    _ ExamRepository        = (*repository.ExamRepo)(nil)
    _ ReservationRepository = (*repository.ReservationRepo)(nil)
    _ TxBeginner            = (*sql.DB)(nil)
)

// runTx executes fn inside a transaction.  fn's error is returned as is and
// rolls the transaction back.
func runTx(ctx context.Context, db TxBeginner, fn func(tx *sql.Tx) error) error {
    tx, err := db.BeginTx(ctx, nil)
    if err != nil {
        return Internal(err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(tx); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return Internal(err)
    }
    committed = true
    return nil
}

// requireSubject checks that idx resolves in repo.
func requireSubject(ctx context.Context, repo IdentityRepository, idx uint64, notFound error) error {
    if _, err := repo.GetByIdx(ctx, idx); err != nil {
        return mapNotFound(err, notFound)
    }
    return nil
}
