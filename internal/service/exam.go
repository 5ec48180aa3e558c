package service

import (
    "context"
    "errors"
    "log/slog"
    "math"
    "strings"
    "time"

    "github.com/iliyamo/exam-reservation/internal/metrics"
    "github.com/iliyamo/exam-reservation/internal/model"
    "github.com/iliyamo/exam-reservation/internal/repository"
)

// Search paging limits.
const (
    DefaultPageSize = 10
    MaxPageSize     = 100
)

// ExamService manages the exam catalog and its public search.
type ExamService struct {
    exams    ExamRepository
    admins   IdentityRepository
    leadTime time.Duration
    cache    SearchInvalidator
    metrics  *metrics.Metrics
    logger   *slog.Logger
    now      func() time.Time
}

// NewExamService returns an ExamService.  Exams scheduled sooner than
// now+leadTime are hidden from Search; zero disables the filter.  cache may
// be nil.
func NewExamService(exams ExamRepository, admins IdentityRepository, leadTime time.Duration, cache SearchInvalidator, m *metrics.Metrics, logger *slog.Logger) *ExamService {
    if logger == nil {
        logger = slog.Default()
    }
    return &ExamService{
        exams:    exams,
        admins:   admins,
        leadTime: leadTime,
        cache:    cache,
        metrics:  m,
        logger:   logger,
        now:      time.Now,
    }
}

// CreateExamInput is the admin's request.  A nil Capacity selects
// model.DefaultCapacity.
type CreateExamInput struct {
    Title       string
    ScheduledAt time.Time
    Capacity    *int64
}

// CreateExam adds an exam on behalf of adminIdx.
func (s *ExamService) CreateExam(ctx context.Context, adminIdx uint64, in CreateExamInput) (exam model.Exam, err error) {
    defer func() { s.metrics.ObserveOp("exam.create", outcome(err)) }()

    if err := requireSubject(ctx, s.admins, adminIdx, ErrAdminNotFound); err != nil {
        return model.Exam{}, err
    }
    title := strings.TrimSpace(in.Title)
    if title == "" {
        return model.Exam{}, InvalidArgument("title is required")
    }
    if in.ScheduledAt.IsZero() {
        return model.Exam{}, InvalidArgument("scheduled_at is required")
    }
    capacity := int64(model.DefaultCapacity)
    if in.Capacity != nil {
        capacity = *in.Capacity
    }
    if capacity <= 0 || capacity > math.MaxUint32 {
        return model.Exam{}, InvalidArgument("capacity must be a positive integer")
    }

    exists, err := s.exams.ExistsByTitleAndTime(ctx, title, in.ScheduledAt)
    if err != nil {
        return model.Exam{}, Internal(err)
    }
    if exists {
        return model.Exam{}, ErrExamExists
    }
    exam = model.Exam{
        Title:        title,
        ScheduledAt:  in.ScheduledAt,
        Capacity:     uint32(capacity),
        RegisteredAt: s.now(),
    }
    if err := s.exams.Create(ctx, &exam); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return model.Exam{}, ErrExamExists
        }
        return model.Exam{}, Internal(err)
    }
    invalidateSearch(ctx, s.cache, s.logger)
    s.logger.Info("exam created", "exam_idx", exam.ExamIdx, "admin_idx", adminIdx)
    return exam, nil
}

// SearchInput holds the public search filters.  Zero Page and PageSize
// select the defaults; nil bounds are open.
type SearchInput struct {
    Title    string
    Start    *time.Time
    End      *time.Time
    Page     int
    PageSize int
}

// SearchResult is one page of exam summaries.
type SearchResult struct {
    Items    []model.ExamSummary `json:"items"`
    Total    int64               `json:"total"`
    Page     int                 `json:"page"`
    PageSize int                 `json:"page_size"`
}

// Search lists upcoming exams with their pending reservation counts.
func (s *ExamService) Search(ctx context.Context, in SearchInput) (SearchResult, error) {
    if in.Page == 0 {
        in.Page = 1
    }
    if in.PageSize == 0 {
        in.PageSize = DefaultPageSize
    }
    if in.Page < 1 {
        return SearchResult{}, InvalidArgument("page must be >= 1")
    }
    if in.PageSize < 1 || in.PageSize > MaxPageSize {
        return SearchResult{}, InvalidArgument("limit must be between 1 and 100")
    }
    if in.Start != nil && in.End != nil && in.End.Before(*in.Start) {
        return SearchResult{}, InvalidArgument("end must not be before start")
    }

    q := model.ExamSearch{
        Title:    strings.TrimSpace(in.Title),
        Page:     in.Page,
        PageSize: in.PageSize,
    }
    if in.Start != nil {
        q.Start = *in.Start
    }
    if in.End != nil {
        q.End = *in.End
    }
    if s.leadTime > 0 {
        q.NotBefore = s.now().Add(s.leadTime)
    }

    items, total, err := s.exams.Search(ctx, q)
    if err != nil {
        return SearchResult{}, Internal(err)
    }
    return SearchResult{Items: items, Total: total, Page: in.Page, PageSize: in.PageSize}, nil
}
