package service

import (
    "context"
    "errors"
    "log/slog"
    "strings"
    "time"

    "github.com/iliyamo/exam-reservation/internal/auth"
    "github.com/iliyamo/exam-reservation/internal/model"
    "github.com/iliyamo/exam-reservation/internal/repository"
)

// IdentityService registers and authenticates one kind of subject.  The
// member and admin instances differ only in their repository and role.
type IdentityService struct {
    role       model.Role
    repo       IdentityRepository
    tokens     *auth.TokenService
    bcryptCost int
    logger     *slog.Logger
    now        func() time.Time
}

// NewIdentityService returns an IdentityService for role.
func NewIdentityService(role model.Role, repo IdentityRepository, tokens *auth.TokenService, bcryptCost int, logger *slog.Logger) *IdentityService {
    if logger == nil {
        logger = slog.Default()
    }
    return &IdentityService{
        role:       role,
        repo:       repo,
        tokens:     tokens,
        bcryptCost: bcryptCost,
        logger:     logger.With("role", string(role)),
        now:        time.Now,
    }
}

// Role returns the subject kind this service manages.
func (s *IdentityService) Role() model.Role { return s.role }

func (s *IdentityService) notFound() error {
    if s.role == model.RoleAdmin {
        return ErrAdminNotFound
    }
    return ErrMemberNotFound
}

// Register creates a subject.  A taken id fails with ErrIDTaken.  The
// returned record never exposes the password hash.
func (s *IdentityService) Register(ctx context.Context, id, name, secret string) (model.Subject, error) {
    id = strings.TrimSpace(id)
    name = strings.TrimSpace(name)
    if id == "" || name == "" || secret == "" {
        return model.Subject{}, InvalidArgument("id, name and password are required")
    }
    hash, err := auth.HashPassword(secret, s.bcryptCost)
    if err != nil {
        return model.Subject{}, Internal(err)
    }
    subject := model.Subject{ID: id, Name: name, PasswordHash: hash, RegisteredAt: s.now()}
    if err := s.repo.Create(ctx, &subject); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return model.Subject{}, ErrIDTaken
        }
        return model.Subject{}, Internal(err)
    }
    s.logger.Info("subject registered", "idx", subject.Idx)
    subject.PasswordHash = ""
    return subject, nil
}

// Login checks the credentials and issues an access token.  Unknown ids
// and wrong passwords fail alike with ErrInvalidCredentials.
func (s *IdentityService) Login(ctx context.Context, id, secret string) (auth.AccessToken, error) {
    subject, err := s.repo.GetByLoginID(ctx, id)
    if err != nil {
        return auth.AccessToken{}, mapNotFound(err, ErrInvalidCredentials)
    }
    if !auth.VerifyPassword(subject.PasswordHash, secret) {
        return auth.AccessToken{}, ErrInvalidCredentials
    }
    tok, err := s.tokens.Issue(subject.Idx, s.role)
    if err != nil {
        return auth.AccessToken{}, Internal(err)
    }
    return tok, nil
}

// Profile returns the subject behind idx.
func (s *IdentityService) Profile(ctx context.Context, idx uint64) (model.Subject, error) {
    subject, err := s.repo.GetByIdx(ctx, idx)
    if err != nil {
        return model.Subject{}, mapNotFound(err, s.notFound())
    }
    subject.PasswordHash = ""
    return subject, nil
}
