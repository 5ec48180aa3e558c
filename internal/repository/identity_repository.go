package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"

    "github.com/iliyamo/exam-reservation/internal/model"
)

// IdentityRepo persists subjects in either the `members` or the `admins`
// table.  Both tables have the same columns apart from the key name.
type IdentityRepo struct {
    db     *sql.DB
    table  string
    idxCol string
}

// NewMemberRepo returns an IdentityRepo bound to the members table.
func NewMemberRepo(db *sql.DB) *IdentityRepo {
    return &IdentityRepo{db: db, table: "members", idxCol: "member_idx"}
}

// NewAdminRepo returns an IdentityRepo bound to the admins table.
func NewAdminRepo(db *sql.DB) *IdentityRepo {
    return &IdentityRepo{db: db, table: "admins", idxCol: "admin_idx"}
}

// Create inserts s and populates its generated index.  The login ID is
// trimmed; a taken ID yields ErrDuplicate.
func (r *IdentityRepo) Create(ctx context.Context, s *model.Subject) error {
    s.ID = strings.TrimSpace(s.ID)
    s.RegisteredAt = dbTime(s.RegisteredAt)
    res, err := r.db.ExecContext(ctx,
        "INSERT INTO "+r.table+" (id, name, password_hash, registered_at) VALUES (?,?,?,?)",
        s.ID, s.Name, s.PasswordHash, s.RegisteredAt)
    if err != nil {
        if IsDuplicate(err) {
            return ErrDuplicate
        }
        return fmt.Errorf("insert %s: %w", r.table, err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    s.Idx = uint64(id)
    return nil
}

// GetByLoginID fetches a subject by its login name.
func (r *IdentityRepo) GetByLoginID(ctx context.Context, id string) (model.Subject, error) {
    return r.scanOne(r.db.QueryRowContext(ctx,
        "SELECT "+r.idxCol+", id, name, password_hash, registered_at FROM "+r.table+" WHERE id=? LIMIT 1",
        strings.TrimSpace(id)))
}

// GetByIdx fetches a subject by its generated index.
func (r *IdentityRepo) GetByIdx(ctx context.Context, idx uint64) (model.Subject, error) {
    return r.scanOne(r.db.QueryRowContext(ctx,
        "SELECT "+r.idxCol+", id, name, password_hash, registered_at FROM "+r.table+" WHERE "+r.idxCol+"=? LIMIT 1",
        idx))
}

func (r *IdentityRepo) scanOne(row *sql.Row) (model.Subject, error) {
    var s model.Subject
    err := row.Scan(&s.Idx, &s.ID, &s.Name, &s.PasswordHash, &s.RegisteredAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Subject{}, ErrNotFound
    }
    if err != nil {
        return model.Subject{}, fmt.Errorf("select %s: %w", r.table, err)
    }
    s.RegisteredAt = s.RegisteredAt.UTC()
    return s, nil
}
