package model

import "time"

// Role distinguishes the two subject namespaces.  A token's subject index is
// resolved against the members table or the admins table depending on it.
type Role string

const (
    RoleMember Role = "member"
    RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleMember || r == RoleAdmin }

// Subject is an identity record as stored in either the `members` or the
// `admins` table.  Both tables share this shape.  The password hash never
// leaves the process: it is excluded from JSON encoding.
//
// Fields:
//  Idx          – generated primary key (member_idx / admin_idx).
//  ID           – unique login name.
//  Name         – display name.
//  PasswordHash – bcrypt hash of the secret.
//  RegisteredAt – registration timestamp (UTC).
type Subject struct {
    Idx          uint64    `json:"idx"`
    ID           string    `json:"id"`
    Name         string    `json:"name"`
    PasswordHash string    `json:"-"`
    RegisteredAt time.Time `json:"registered_at"`
}

// Member is a subject that can reserve exams.
type Member = Subject

// Admin is a subject that manages exams and reservations.
type Admin = Subject
