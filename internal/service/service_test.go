package service

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/prometheus/client_golang/prometheus/testutil"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/exam-reservation/internal/auth"
    "github.com/iliyamo/exam-reservation/internal/database"
    "github.com/iliyamo/exam-reservation/internal/metrics"
    "github.com/iliyamo/exam-reservation/internal/model"
    "github.com/iliyamo/exam-reservation/internal/queue"
    "github.com/iliyamo/exam-reservation/internal/repository"
)

var now = time.Date(2029, 6, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
    mu     sync.Mutex
    events []queue.ReservationEvent
    err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.events = append(p.events, ev)
    return p.err
}

func (p *recordingPublisher) types() []string {
    p.mu.Lock()
    defer p.mu.Unlock()
    out := make([]string, 0, len(p.events))
    for _, ev := range p.events {
        out = append(out, ev.Type)
    }
    return out
}

// blockingPublisher never succeeds; it waits for its context to end.
type blockingPublisher struct {
    hadDeadline atomic.Bool
}

func (p *blockingPublisher) Publish(ctx context.Context, _ queue.ReservationEvent) error {
    _, ok := ctx.Deadline()
    p.hadDeadline.Store(ok)
    <-ctx.Done()
    return ctx.Err()
}

type countingCache struct {
    n atomic.Int64
}

func (c *countingCache) Invalidate(context.Context) error {
    c.n.Add(1)
    return nil
}

type env struct {
    db           *sql.DB
    members      *IdentityService
    admins       *IdentityService
    exams        *ExamService
    reservations *ReservationService
    publisher    *recordingPublisher
    cache        *countingCache
    metrics      *metrics.Metrics
    adminIdx     uint64
}

func newEnv(t *testing.T, policy CapacityPolicy) *env {
    t.Helper()
    db, err := database.Open(database.Options{Driver: database.DriverSQLite, Path: ":memory:"})
    require.NoError(t, err)
    t.Cleanup(func() { _ = db.Close() })
    require.NoError(t, database.Migrate(context.Background(), db, database.DriverSQLite))

    logger := slog.New(slog.NewTextHandler(io.Discard, nil))
    tokens := auth.NewTokenService("test-secret", time.Hour)
    memberRepo := repository.NewMemberRepo(db)
    adminRepo := repository.NewAdminRepo(db)
    examRepo := repository.NewExamRepo(db, repository.SQLite)
    m := metrics.New()
    pub := &recordingPublisher{}
    cache := &countingCache{}

    e := &env{
        db:        db,
        members:   NewIdentityService(model.RoleMember, memberRepo, tokens, 4, logger),
        admins:    NewIdentityService(model.RoleAdmin, adminRepo, tokens, 4, logger),
        exams:     NewExamService(examRepo, adminRepo, 3*time.Hour, cache, m, logger),
        publisher: pub,
        cache:     cache,
        metrics:   m,
        reservations: NewReservationService(ReservationDeps{
            DB:           db,
            Exams:        examRepo,
            Reservations: repository.NewReservationRepo(db, repository.SQLite),
            Members:      memberRepo,
            Admins:       adminRepo,
            Policy:       policy,
            Publisher:    pub,
            SearchCache:  cache,
            Metrics:      m,
            Logger:       logger,
        }),
    }
    clock := func() time.Time { return now }
    e.members.now, e.admins.now, e.exams.now, e.reservations.now = clock, clock, clock, clock

    admin, err := e.admins.Register(context.Background(), "root", "Root", "rootpw")
    require.NoError(t, err)
    e.adminIdx = admin.Idx
    return e
}

func (e *env) member(t *testing.T, id string) uint64 {
    t.Helper()
    m, err := e.members.Register(context.Background(), id, id, "pw-"+id)
    require.NoError(t, err)
    return m.Idx
}

func (e *env) exam(t *testing.T, title string, at time.Time, capacity int64) uint64 {
    t.Helper()
    ex, err := e.exams.CreateExam(context.Background(), e.adminIdx, CreateExamInput{Title: title, ScheduledAt: at, Capacity: &capacity})
    require.NoError(t, err)
    return ex.ExamIdx
}

func (e *env) confirm(t *testing.T, examIdx, memberIdx uint64) {
    t.Helper()
    at := now
    res, err := e.reservations.AdminModify(context.Background(), e.adminIdx, examIdx, memberIdx, nil, &at)
    require.NoError(t, err)
    require.Equal(t, model.StateConfirmed, res.State())
}

func memo(s string) *string { return &s }

func TestRegisterTwiceConflicts(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()

    alice, err := e.members.Register(ctx, "alice", "Alice", "secret1")
    require.NoError(t, err)
    assert.NotZero(t, alice.Idx)
    assert.Empty(t, alice.PasswordHash)

    _, err = e.members.Register(ctx, "alice", "Alice again", "other")
    assert.ErrorIs(t, err, ErrIDTaken)
    assert.Equal(t, KindConflict, KindOf(err))

    // the admin namespace is separate
    _, err = e.admins.Register(ctx, "alice", "Admin Alice", "x")
    assert.NoError(t, err)

    _, err = e.members.Register(ctx, " ", "n", "p")
    assert.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestLogin(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    alice, err := e.members.Register(ctx, "alice", "Alice", "secret1")
    require.NoError(t, err)

    _, err = e.members.Login(ctx, "alice", "wrong")
    assert.ErrorIs(t, err, ErrInvalidCredentials)
    _, err = e.members.Login(ctx, "bob", "secret1")
    assert.ErrorIs(t, err, ErrInvalidCredentials)

    tok, err := e.members.Login(ctx, "alice", "secret1")
    require.NoError(t, err)
    assert.Equal(t, "bearer", tok.Type)

    idx, err := auth.NewTokenService("test-secret", time.Hour).Verify(tok.Token, model.RoleMember)
    require.NoError(t, err)
    assert.Equal(t, alice.Idx, idx)

    // a member cannot log in as admin
    _, err = e.admins.Login(ctx, "alice", "secret1")
    assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfile(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    idx := e.member(t, "alice")

    p, err := e.members.Profile(ctx, idx)
    require.NoError(t, err)
    assert.Equal(t, "alice", p.ID)
    assert.Empty(t, p.PasswordHash)

    _, err = e.members.Profile(ctx, idx+100)
    assert.ErrorIs(t, err, ErrMemberNotFound)
    _, err = e.admins.Profile(ctx, e.adminIdx+100)
    assert.ErrorIs(t, err, ErrAdminNotFound)
}

func TestCapacityStrict(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    math := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 2)
    m1, m2, m3 := e.member(t, "m1"), e.member(t, "m2"), e.member(t, "m3")

    for _, m := range []uint64{m1, m2} {
        res, err := e.reservations.Create(ctx, m, math, nil)
        require.NoError(t, err)
        assert.Equal(t, model.StatePending, res.State())
    }
    e.confirm(t, math, m1)
    e.confirm(t, math, m2)

    _, err := e.reservations.Create(ctx, m3, math, nil)
    assert.ErrorIs(t, err, ErrCapacityExceeded)
    assert.Equal(t, KindCapacityExceeded, KindOf(err))
    assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.ReservationOps.WithLabelValues("create", "capacity_exceeded")))
    assert.Equal(t, 2.0, testutil.ToFloat64(e.metrics.ReservationOps.WithLabelValues("create", "ok")))
}

func TestCapacityLegacy(t *testing.T) {
    e := newEnv(t, CapacityLegacy)
    ctx := context.Background()
    math := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 2)
    m1, m2, m3, m4 := e.member(t, "m1"), e.member(t, "m2"), e.member(t, "m3"), e.member(t, "m4")

    for _, m := range []uint64{m1, m2} {
        _, err := e.reservations.Create(ctx, m, math, nil)
        require.NoError(t, err)
        e.confirm(t, math, m)
    }

    // confirmed(2) is not greater than capacity(2)
    _, err := e.reservations.Create(ctx, m3, math, nil)
    require.NoError(t, err)
    e.confirm(t, math, m3)

    _, err = e.reservations.Create(ctx, m4, math, nil)
    assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestPendingReservationsDoNotCountAgainstCapacity(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    exam := e.exam(t, "Tiny", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 1)
    for i := 0; i < 3; i++ {
        _, err := e.reservations.Create(ctx, e.member(t, fmt.Sprintf("m%d", i)), exam, nil)
        require.NoError(t, err)
    }
}

func TestCreateErrors(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    exam := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 10)
    alice := e.member(t, "alice")

    _, err := e.reservations.Create(ctx, alice, exam+99, nil)
    assert.ErrorIs(t, err, ErrExamNotFound)

    _, err = e.reservations.Create(ctx, alice+99, exam, nil)
    assert.ErrorIs(t, err, ErrMemberNotFound)

    _, err = e.reservations.Create(ctx, alice, exam, memo("first"))
    require.NoError(t, err)
    _, err = e.reservations.Create(ctx, alice, exam, memo("second"))
    assert.ErrorIs(t, err, ErrAlreadyReserved)
    assert.Equal(t, KindConflict, KindOf(err))
}

func TestConcurrentCreateAdmitsOnce(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    exam := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 10)
    alice := e.member(t, "alice")

    const workers = 8
    errs := make([]error, workers)
    var wg sync.WaitGroup
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, errs[i] = e.reservations.Create(context.Background(), alice, exam, nil)
        }(i)
    }
    wg.Wait()

    ok := 0
    for _, err := range errs {
        if err == nil {
            ok++
            continue
        }
        assert.ErrorIs(t, err, ErrAlreadyReserved)
    }
    assert.Equal(t, 1, ok)

    list, err := e.reservations.ListMine(context.Background(), alice)
    require.NoError(t, err)
    assert.Len(t, list, 1)
}

func TestMemberCancel(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    exam := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 10)
    alice := e.member(t, "alice")

    _, err := e.reservations.Create(ctx, alice, exam, nil)
    require.NoError(t, err)
    require.NoError(t, e.reservations.Cancel(ctx, alice, exam))

    list, err := e.reservations.ListMine(ctx, alice)
    require.NoError(t, err)
    assert.Empty(t, list)

    assert.ErrorIs(t, e.reservations.Cancel(ctx, alice, exam), ErrReservationNotFound)
    assert.ErrorIs(t, e.reservations.Cancel(ctx, alice, exam+5), ErrExamNotFound)

    // once confirmed the member can no longer withdraw or edit
    _, err = e.reservations.Create(ctx, alice, exam, memo("again"))
    require.NoError(t, err)
    e.confirm(t, exam, alice)

    err = e.reservations.Cancel(ctx, alice, exam)
    assert.ErrorIs(t, err, ErrReservationNotFound)
    assert.Equal(t, KindNotFound, KindOf(err))
    _, err = e.reservations.Modify(ctx, alice, exam, memo("changed"))
    assert.ErrorIs(t, err, ErrReservationNotFound)

    list, err = e.reservations.ListMine(ctx, alice)
    require.NoError(t, err)
    require.Len(t, list, 1)
    assert.Equal(t, model.StateConfirmed, list[0].State)
    require.NotNil(t, list[0].Memo)
    assert.Equal(t, "again", *list[0].Memo)
}

func TestMemberModifyNeverConfirms(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    exam := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 10)
    alice := e.member(t, "alice")

    _, err := e.reservations.Create(ctx, alice, exam, memo("a"))
    require.NoError(t, err)
    res, err := e.reservations.Modify(ctx, alice, exam, memo("b"))
    require.NoError(t, err)
    assert.Equal(t, model.StatePending, res.State())
    require.NotNil(t, res.Memo)
    assert.Equal(t, "b", *res.Memo)

    res, err = e.reservations.Modify(ctx, alice, exam, nil)
    require.NoError(t, err)
    assert.Nil(t, res.Memo)

    list, err := e.reservations.ListMine(ctx, alice)
    require.NoError(t, err)
    require.Len(t, list, 1)
    assert.Nil(t, list[0].ConfirmedAt)
    assert.Nil(t, list[0].Memo)
}

func TestAdminOperations(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    exam := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 10)
    alice, bob := e.member(t, "alice"), e.member(t, "bob")
    for _, m := range []uint64{alice, bob} {
        _, err := e.reservations.Create(ctx, m, exam, nil)
        require.NoError(t, err)
    }

    res, err := e.reservations.AdminModify(ctx, e.adminIdx, exam, alice, memo("seat 12"), nil)
    require.NoError(t, err)
    assert.Equal(t, model.StatePending, res.State())
    require.NotNil(t, res.Memo)
    assert.Equal(t, "seat 12", *res.Memo)

    e.confirm(t, exam, alice)

    all, err := e.reservations.AdminList(ctx, e.adminIdx)
    require.NoError(t, err)
    require.Len(t, all, 2)
    assert.Equal(t, alice, all[0].MemberIdx)
    assert.Equal(t, model.StateConfirmed, all[0].State)
    require.NotNil(t, all[0].Memo)
    assert.Equal(t, "seat 12", *all[0].Memo)
    assert.Equal(t, model.StatePending, all[1].State)

    // admins may remove confirmed reservations
    require.NoError(t, e.reservations.AdminCancel(ctx, e.adminIdx, exam, alice))
    assert.ErrorIs(t, e.reservations.AdminCancel(ctx, e.adminIdx, exam, alice), ErrReservationNotFound)
    assert.ErrorIs(t, e.reservations.AdminCancel(ctx, e.adminIdx, exam+1, bob), ErrExamNotFound)
    _, err = e.reservations.AdminModify(ctx, e.adminIdx, exam, alice, memo("x"), nil)
    assert.ErrorIs(t, err, ErrReservationNotFound)

    // a member index is not an admin
    _, err = e.reservations.AdminList(ctx, e.adminIdx+50)
    assert.ErrorIs(t, err, ErrAdminNotFound)

    assert.Equal(t, []string{
        queue.EventCreated, queue.EventCreated,
        queue.EventModified, queue.EventConfirmed, queue.EventDeleted,
    }, e.publisher.types())
}

func TestConfirmedCountIsMonotonic(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    exam := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 10)
    alice := e.member(t, "alice")
    _, err := e.reservations.Create(ctx, alice, exam, nil)
    require.NoError(t, err)

    count := func() int64 {
        var n int64
        require.NoError(t, e.db.QueryRow(`SELECT COUNT(*) FROM exam_reservations WHERE confirmed_at IS NOT NULL`).Scan(&n))
        return n
    }
    assert.Zero(t, count())
    e.confirm(t, exam, alice)
    assert.EqualValues(t, 1, count())
    // confirming again keeps the count
    e.confirm(t, exam, alice)
    assert.EqualValues(t, 1, count())
    _, err = e.reservations.AdminModify(ctx, e.adminIdx, exam, alice, memo("note"), nil)
    require.NoError(t, err)
    assert.EqualValues(t, 1, count())
    require.NoError(t, e.reservations.AdminCancel(ctx, e.adminIdx, exam, alice))
    assert.Zero(t, count())
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    e.publisher.err = errors.New("broker down")
    exam := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 10)
    alice := e.member(t, "alice")

    _, err := e.reservations.Create(context.Background(), alice, exam, nil)
    require.NoError(t, err)
    assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.EventsPublished.WithLabelValues(queue.EventCreated, "error")))
}

func TestPublishIsBoundedByTimeout(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    pub := &blockingPublisher{}
    e.reservations.publisher = pub
    e.reservations.pubTimeout = 50 * time.Millisecond
    exam := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 10)
    alice := e.member(t, "alice")

    start := time.Now()
    res, err := e.reservations.Create(context.Background(), alice, exam, nil)
    require.NoError(t, err)
    assert.Equal(t, model.StatePending, res.State())
    assert.Less(t, time.Since(start), 2*time.Second)
    assert.True(t, pub.hadDeadline.Load())
    assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.EventsPublished.WithLabelValues(queue.EventCreated, "error")))
}

func TestSearchCacheInvalidatedOnCountChanges(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    exam := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 10)
    require.EqualValues(t, 1, e.cache.n.Load(), "exam creation")
    alice := e.member(t, "alice")
    bob := e.member(t, "bob")

    steps := []struct {
        name string
        run  func() error
        want int64
    }{
        {"create", func() error { _, err := e.reservations.Create(ctx, alice, exam, nil); return err }, 2},
        {"member memo edit", func() error { _, err := e.reservations.Modify(ctx, alice, exam, memo("x")); return err }, 2},
        {"admin memo edit", func() error {
            _, err := e.reservations.AdminModify(ctx, e.adminIdx, exam, alice, memo("y"), nil)
            return err
        }, 2},
        {"confirm", func() error {
            at := now
            _, err := e.reservations.AdminModify(ctx, e.adminIdx, exam, alice, nil, &at)
            return err
        }, 3},
        {"reconfirm", func() error {
            at := now.Add(time.Hour)
            _, err := e.reservations.AdminModify(ctx, e.adminIdx, exam, alice, nil, &at)
            return err
        }, 3},
        {"admin cancel confirmed", func() error { return e.reservations.AdminCancel(ctx, e.adminIdx, exam, alice) }, 3},
        {"create second", func() error { _, err := e.reservations.Create(ctx, bob, exam, nil); return err }, 4},
        {"member cancel", func() error { return e.reservations.Cancel(ctx, bob, exam) }, 5},
        {"failed cancel", func() error {
            if err := e.reservations.Cancel(ctx, bob, exam); !errors.Is(err, ErrReservationNotFound) {
                return fmt.Errorf("unexpected: %v", err)
            }
            return nil
        }, 5},
    }
    for _, st := range steps {
        require.NoError(t, st.run(), st.name)
        assert.Equal(t, st.want, e.cache.n.Load(), st.name)
    }
}

func TestAdminModifyIgnoresEmptyMemo(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    exam := e.exam(t, "Math", time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), 10)
    alice := e.member(t, "alice")
    _, err := e.reservations.Create(ctx, alice, exam, memo("bring id"))
    require.NoError(t, err)

    res, err := e.reservations.AdminModify(ctx, e.adminIdx, exam, alice, memo(""), nil)
    require.NoError(t, err)
    require.NotNil(t, res.Memo)
    assert.Equal(t, "bring id", *res.Memo)

    mine, err := e.reservations.ListMine(ctx, alice)
    require.NoError(t, err)
    require.Len(t, mine, 1)
    require.NotNil(t, mine[0].Memo)
    assert.Equal(t, "bring id", *mine[0].Memo)
    assert.Equal(t, model.StatePending, mine[0].State)
}

func TestCreateExam(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()
    at := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

    ex, err := e.exams.CreateExam(ctx, e.adminIdx, CreateExamInput{Title: " Math ", ScheduledAt: at})
    require.NoError(t, err)
    assert.Equal(t, "Math", ex.Title)
    assert.EqualValues(t, model.DefaultCapacity, ex.Capacity)

    _, err = e.exams.CreateExam(ctx, e.adminIdx, CreateExamInput{Title: "Math", ScheduledAt: at})
    assert.ErrorIs(t, err, ErrExamExists)

    zero := int64(0)
    _, err = e.exams.CreateExam(ctx, e.adminIdx, CreateExamInput{Title: "Physics", ScheduledAt: at, Capacity: &zero})
    assert.Equal(t, KindInvalidArgument, KindOf(err))
    _, err = e.exams.CreateExam(ctx, e.adminIdx, CreateExamInput{Title: "", ScheduledAt: at})
    assert.Equal(t, KindInvalidArgument, KindOf(err))
    _, err = e.exams.CreateExam(ctx, e.adminIdx, CreateExamInput{Title: "Physics"})
    assert.Equal(t, KindInvalidArgument, KindOf(err))
    _, err = e.exams.CreateExam(ctx, e.adminIdx+9, CreateExamInput{Title: "Physics", ScheduledAt: at})
    assert.ErrorIs(t, err, ErrAdminNotFound)
}

func TestSearchExams(t *testing.T) {
    e := newEnv(t, CapacityStrict)
    ctx := context.Background()

    e.exam(t, "Math soon", now.Add(time.Hour), 10)
    later := e.exam(t, "Math later", now.Add(24*time.Hour), 10)
    e.exam(t, "Biology", now.Add(24*time.Hour), 10)

    alice := e.member(t, "alice")
    _, err := e.reservations.Create(ctx, alice, later, nil)
    require.NoError(t, err)

    out, err := e.exams.Search(ctx, SearchInput{Title: "Math", Page: 1, PageSize: 10})
    require.NoError(t, err)
    require.Len(t, out.Items, 1)
    assert.EqualValues(t, 1, out.Total)
    assert.Equal(t, later, out.Items[0].ExamIdx)
    assert.EqualValues(t, 1, out.Items[0].PendingCount)

    out, err = e.exams.Search(ctx, SearchInput{})
    require.NoError(t, err)
    assert.Equal(t, 1, out.Page)
    assert.Equal(t, DefaultPageSize, out.PageSize)
    assert.EqualValues(t, 2, out.Total)

    e.exams.leadTime = 0
    out, err = e.exams.Search(ctx, SearchInput{Title: "math"})
    require.NoError(t, err)
    assert.EqualValues(t, 2, out.Total)

    start, end := now.Add(2*time.Hour), now.Add(48*time.Hour)
    out, err = e.exams.Search(ctx, SearchInput{Start: &start, End: &end})
    require.NoError(t, err)
    assert.EqualValues(t, 2, out.Total)

    for _, in := range []SearchInput{
        {Page: -1},
        {PageSize: 101},
        {PageSize: -3},
        {Start: &end, End: &start},
    } {
        _, err := e.exams.Search(ctx, in)
        assert.Equal(t, KindInvalidArgument, KindOf(err), "%+v", in)
    }
}

func TestParseCapacityPolicy(t *testing.T) {
    p, err := ParseCapacityPolicy(" Legacy")
    require.NoError(t, err)
    assert.Equal(t, CapacityLegacy, p)
    p, err = ParseCapacityPolicy("")
    require.NoError(t, err)
    assert.Equal(t, CapacityStrict, p)
    _, err = ParseCapacityPolicy("loose")
    assert.Error(t, err)

    assert.True(t, CapacityStrict.Admits(1, 2))
    assert.False(t, CapacityStrict.Admits(2, 2))
    assert.True(t, CapacityLegacy.Admits(2, 2))
    assert.False(t, CapacityLegacy.Admits(3, 2))
}

func TestKindOf(t *testing.T) {
    assert.Equal(t, Kind(""), KindOf(nil))
    assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
    assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("wrapped: %w", ErrExamNotFound)))

    internal := AsError(errors.New("boom"))
    assert.Equal(t, "internal", internal.Code)
    assert.Equal(t, "internal server error", internal.Message)
    assert.Same(t, ErrCapacityExceeded, AsError(ErrCapacityExceeded))
}
