package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/go-sql-driver/mysql"
    "modernc.org/sqlite"
    sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the few places where MySQL and SQLite differ.
type Dialect string

const (
    MySQL  Dialect = "mysql"
    SQLite Dialect = "sqlite"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// lockSuffix returns the row-lock clause appended to SELECTs that precede a
// conditional write.  SQLite has no row locks; its write transactions are
// opened with BEGIN IMMEDIATE instead.
func (d Dialect) lockSuffix(lock bool) string {
    if lock && d == MySQL {
        return " FOR UPDATE"
    }
    return ""
}

// IsDuplicate reports whether err is a unique or primary key violation.
func IsDuplicate(err error) bool {
    if err == nil {
        return false
    }
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        return me.Number == 1062
    }
    var se *sqlite.Error
    if errors.As(err, &se) {
        switch se.Code() {
        case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
            return true
        }
    }
    msg := strings.ToLower(err.Error())
    return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint failed")
}

// dbTime normalises timestamps before they are written or compared.
// DATETIME columns keep second precision in UTC.
func dbTime(t time.Time) time.Time {
    return t.UTC().Truncate(time.Second)
}

func nullString(s *string) any {
    if s == nil {
        return nil
    }
    return *s
}

func timePtr(nt sql.NullTime) *time.Time {
    if !nt.Valid {
        return nil
    }
    t := nt.Time.UTC()
    return &t
}

func stringPtr(ns sql.NullString) *string {
    if !ns.Valid {
        return nil
    }
    s := ns.String
    return &s
}

// likePattern builds a case-insensitive substring pattern for use with
// `LIKE ? ESCAPE '!'`.
func likePattern(s string) string {
    r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
    return "%" + r.Replace(strings.ToLower(s)) + "%"
}
