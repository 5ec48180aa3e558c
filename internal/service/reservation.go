package service

import (
    "context"
    "database/sql"
    "errors"
    "log/slog"
    "time"

    "github.com/iliyamo/exam-reservation/internal/metrics"
    "github.com/iliyamo/exam-reservation/internal/model"
    "github.com/iliyamo/exam-reservation/internal/queue"
    "github.com/iliyamo/exam-reservation/internal/repository"
)

// DefaultPublishTimeout bounds the post-commit event publish.
const DefaultPublishTimeout = 2 * time.Second

// ReservationDeps wires a ReservationService.  Publisher, SearchCache,
// Metrics and Logger are optional; a zero PublishTimeout selects
// DefaultPublishTimeout.
type ReservationDeps struct {
    DB             TxBeginner
    Exams          ExamRepository
    Reservations   ReservationRepository
    Members        IdentityRepository
    Admins         IdentityRepository
    Policy         CapacityPolicy
    Publisher      queue.Publisher
    PublishTimeout time.Duration
    SearchCache    SearchInvalidator
    Metrics        *metrics.Metrics
    Logger         *slog.Logger
}

// ReservationService enforces the reservation lifecycle.  A reservation is
// created pending by its member, may be changed or withdrawn by the member
// while pending, and is confirmed only by an admin.  Each mutation runs in
// one transaction that re-reads the rows it depends on before writing.
type ReservationService struct {
    db           TxBeginner
    exams        ExamRepository
    reservations ReservationRepository
    members      IdentityRepository
    admins       IdentityRepository
    policy       CapacityPolicy
    publisher    queue.Publisher
    pubTimeout   time.Duration
    cache        SearchInvalidator
    metrics      *metrics.Metrics
    logger       *slog.Logger
    now          func() time.Time
}

// NewReservationService returns a ReservationService built from deps.
func NewReservationService(deps ReservationDeps) *ReservationService {
    s := &ReservationService{
        db:           deps.DB,
        exams:        deps.Exams,
        reservations: deps.Reservations,
        members:      deps.Members,
        admins:       deps.Admins,
        policy:       deps.Policy,
        publisher:    deps.Publisher,
        pubTimeout:   deps.PublishTimeout,
        cache:        deps.SearchCache,
        metrics:      deps.Metrics,
        logger:       deps.Logger,
        now:          time.Now,
    }
    if s.policy == "" {
        s.policy = CapacityStrict
    }
    if s.publisher == nil {
        s.publisher = queue.NopPublisher{}
    }
    if s.pubTimeout <= 0 {
        s.pubTimeout = DefaultPublishTimeout
    }
    if s.logger == nil {
        s.logger = slog.Default()
    }
    return s
}

// Create reserves examIdx for memberIdx.  The exam row is locked for the
// duration of the capacity check and insert.  Only confirmed reservations
// count against capacity.
func (s *ReservationService) Create(ctx context.Context, memberIdx, examIdx uint64, memo *string) (res model.Reservation, err error) {
    defer func() { s.metrics.ObserveOp("create", outcome(err)) }()

    if err := requireSubject(ctx, s.members, memberIdx, ErrMemberNotFound); err != nil {
        return model.Reservation{}, err
    }
    err = runTx(ctx, s.db, func(tx *sql.Tx) error {
        exam, err := s.exams.GetByIDTx(ctx, tx, examIdx, true)
        if err != nil {
            return mapNotFound(err, ErrExamNotFound)
        }
        if _, err := s.reservations.GetTx(ctx, tx, examIdx, memberIdx, false, false); err == nil {
            return ErrAlreadyReserved
        } else if !errors.Is(err, repository.ErrNotFound) {
            return Internal(err)
        }
        confirmed, err := s.reservations.CountConfirmedTx(ctx, tx, examIdx)
        if err != nil {
            return Internal(err)
        }
        if !s.policy.Admits(confirmed, exam.Capacity) {
            return ErrCapacityExceeded
        }
        res = model.Reservation{ExamIdx: examIdx, MemberIdx: memberIdx, Memo: memo, RegisteredAt: s.now()}
        if err := s.reservations.CreateTx(ctx, tx, &res); err != nil {
            if errors.Is(err, repository.ErrDuplicate) {
                return ErrAlreadyReserved
            }
            return Internal(err)
        }
        return nil
    })
    if err != nil {
        return model.Reservation{}, err
    }
    invalidateSearch(ctx, s.cache, s.logger)
    s.publish(ctx, queue.EventCreated, model.RoleMember, res)
    return res, nil
}

// Cancel withdraws the member's pending reservation.  Confirmed
// reservations read as ErrReservationNotFound.
func (s *ReservationService) Cancel(ctx context.Context, memberIdx, examIdx uint64) (err error) {
    defer func() { s.metrics.ObserveOp("cancel", outcome(err)) }()

    if err := requireSubject(ctx, s.members, memberIdx, ErrMemberNotFound); err != nil {
        return err
    }
    var res model.Reservation
    err = runTx(ctx, s.db, func(tx *sql.Tx) error {
        var err error
        if res, err = s.lockReservation(ctx, tx, examIdx, memberIdx, true); err != nil {
            return err
        }
        return mapStale(s.reservations.DeleteTx(ctx, tx, examIdx, memberIdx, true))
    })
    if err != nil {
        return err
    }
    invalidateSearch(ctx, s.cache, s.logger)
    s.publish(ctx, queue.EventCancelled, model.RoleMember, res)
    return nil
}

// Modify overwrites the memo of the member's pending reservation.
func (s *ReservationService) Modify(ctx context.Context, memberIdx, examIdx uint64, memo *string) (res model.Reservation, err error) {
    defer func() { s.metrics.ObserveOp("modify", outcome(err)) }()

    if err := requireSubject(ctx, s.members, memberIdx, ErrMemberNotFound); err != nil {
        return model.Reservation{}, err
    }
    err = runTx(ctx, s.db, func(tx *sql.Tx) error {
        var err error
        if res, err = s.lockReservation(ctx, tx, examIdx, memberIdx, true); err != nil {
            return err
        }
        if err := s.reservations.UpdateMemoTx(ctx, tx, examIdx, memberIdx, memo, true); err != nil {
            return mapStale(err)
        }
        res.Memo = memo
        return nil
    })
    if err != nil {
        return model.Reservation{}, err
    }
    s.publish(ctx, queue.EventModified, model.RoleMember, res)
    return res, nil
}

// ListMine returns every reservation of memberIdx in any state.
func (s *ReservationService) ListMine(ctx context.Context, memberIdx uint64) ([]model.ExamReservation, error) {
    if err := requireSubject(ctx, s.members, memberIdx, ErrMemberNotFound); err != nil {
        return nil, err
    }
    out, err := s.reservations.ListByMember(ctx, memberIdx)
    if err != nil {
        return nil, Internal(err)
    }
    return out, nil
}

// AdminList returns all reservations joined with their exams.
func (s *ReservationService) AdminList(ctx context.Context, adminIdx uint64) ([]model.ExamReservation, error) {
    if err := requireSubject(ctx, s.admins, adminIdx, ErrAdminNotFound); err != nil {
        return nil, err
    }
    out, err := s.reservations.ListAll(ctx)
    if err != nil {
        return nil, Internal(err)
    }
    return out, nil
}

// AdminCancel deletes the reservation of memberIdx for examIdx in any state.
func (s *ReservationService) AdminCancel(ctx context.Context, adminIdx, examIdx, memberIdx uint64) (err error) {
    defer func() { s.metrics.ObserveOp("admin_cancel", outcome(err)) }()

    if err := requireSubject(ctx, s.admins, adminIdx, ErrAdminNotFound); err != nil {
        return err
    }
    var res model.Reservation
    err = runTx(ctx, s.db, func(tx *sql.Tx) error {
        var err error
        if res, err = s.lockReservation(ctx, tx, examIdx, memberIdx, false); err != nil {
            return err
        }
        return mapStale(s.reservations.DeleteTx(ctx, tx, examIdx, memberIdx, false))
    })
    if err != nil {
        return err
    }
    if res.ConfirmedAt == nil {
        invalidateSearch(ctx, s.cache, s.logger)
    }
    s.publish(ctx, queue.EventDeleted, model.RoleAdmin, res)
    return nil
}

// AdminModify sets the memo and/or the confirmation time of a reservation
// in any state.  Nil arguments, and an empty memo, leave the field
// unchanged.  This is the only path from pending to confirmed; it is not
// capacity-checked.
func (s *ReservationService) AdminModify(ctx context.Context, adminIdx, examIdx, memberIdx uint64, memo *string, confirmAt *time.Time) (res model.Reservation, err error) {
    defer func() { s.metrics.ObserveOp("admin_modify", outcome(err)) }()

    if err := requireSubject(ctx, s.admins, adminIdx, ErrAdminNotFound); err != nil {
        return model.Reservation{}, err
    }
    if memo != nil && *memo == "" {
        memo = nil
    }
    var wasConfirmed bool
    err = runTx(ctx, s.db, func(tx *sql.Tx) error {
        var err error
        if res, err = s.lockReservation(ctx, tx, examIdx, memberIdx, false); err != nil {
            return err
        }
        wasConfirmed = res.ConfirmedAt != nil
        if err := s.reservations.UpdateTx(ctx, tx, examIdx, memberIdx, memo, confirmAt); err != nil {
            return mapStale(err)
        }
        if memo != nil {
            res.Memo = memo
        }
        if confirmAt != nil {
            at := confirmAt.UTC().Truncate(time.Second)
            res.ConfirmedAt = &at
        }
        return nil
    })
    if err != nil {
        return model.Reservation{}, err
    }
    eventType := queue.EventModified
    if confirmAt != nil {
        eventType = queue.EventConfirmed
        if !wasConfirmed {
            invalidateSearch(ctx, s.cache, s.logger)
        }
    }
    s.publish(ctx, eventType, model.RoleAdmin, res)
    return res, nil
}

// lockReservation checks the exam exists and loads the reservation with a
// row lock.  With pendingOnly a confirmed row reads as missing.
func (s *ReservationService) lockReservation(ctx context.Context, tx *sql.Tx, examIdx, memberIdx uint64, pendingOnly bool) (model.Reservation, error) {
    if _, err := s.exams.GetByIDTx(ctx, tx, examIdx, false); err != nil {
        return model.Reservation{}, mapNotFound(err, ErrExamNotFound)
    }
    res, err := s.reservations.GetTx(ctx, tx, examIdx, memberIdx, true, pendingOnly)
    if err != nil {
        return model.Reservation{}, mapNotFound(err, ErrReservationNotFound)
    }
    return res, nil
}

// mapStale treats a conditional write that matched nothing as a missing
// reservation.
func mapStale(err error) error {
    if err == nil {
        return nil
    }
    if errors.Is(err, repository.ErrStale) {
        return ErrReservationNotFound
    }
    return Internal(err)
}

// publish hands the event to the broker within pubTimeout.  Failures are
// logged and counted but never reach the caller: the change is already
// committed.
func (s *ReservationService) publish(ctx context.Context, eventType string, actor model.Role, res model.Reservation) {
    ev := queue.NewReservationEvent(eventType, actor, res, s.now())
    pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pubTimeout)
    defer cancel()
    err := s.publisher.Publish(pctx, ev)
    s.metrics.ObserveEvent(eventType, err)
    if err != nil {
        s.logger.Warn("publish reservation event failed",
            "type", eventType, "exam_idx", res.ExamIdx, "member_idx", res.MemberIdx, "err", err)
    }
}
