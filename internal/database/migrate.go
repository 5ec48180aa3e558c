package database

import (
	"context"
	"database/sql"
	"fmt"
)

// The composite primary key on exam_reservations makes a double booking fail
// at the storage layer even if two admissions race past the existence check.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		member_idx BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		id VARCHAR(64) NOT NULL,
		name VARCHAR(128) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		registered_at DATETIME NOT NULL,
		UNIQUE KEY uq_members_id (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS admins (
		admin_idx BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		id VARCHAR(64) NOT NULL,
		name VARCHAR(128) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		registered_at DATETIME NOT NULL,
		UNIQUE KEY uq_admins_id (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS exams (
		exam_idx BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		scheduled_at DATETIME NOT NULL,
		capacity INT UNSIGNED NOT NULL DEFAULT 50000,
		registered_at DATETIME NOT NULL,
		UNIQUE KEY uq_exams_title_time (title, scheduled_at),
		KEY idx_exams_scheduled_at (scheduled_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS exam_reservations (
		member_idx BIGINT UNSIGNED NOT NULL,
		exam_idx BIGINT UNSIGNED NOT NULL,
		memo TEXT NULL,
		confirmed_at DATETIME NULL,
		registered_at DATETIME NOT NULL,
		PRIMARY KEY (member_idx, exam_idx),
		KEY idx_reservations_exam (exam_idx, confirmed_at),
		CONSTRAINT fk_reservations_member FOREIGN KEY (member_idx) REFERENCES members (member_idx) ON DELETE RESTRICT,
		CONSTRAINT fk_reservations_exam FOREIGN KEY (exam_idx) REFERENCES exams (exam_idx) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		member_idx INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		registered_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS admins (
		admin_idx INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		registered_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS exams (
		exam_idx INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		scheduled_at DATETIME NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 50000,
		registered_at DATETIME NOT NULL,
		UNIQUE (title, scheduled_at)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_exams_scheduled_at ON exams(scheduled_at);`,
	`CREATE TABLE IF NOT EXISTS exam_reservations (
		member_idx INTEGER NOT NULL REFERENCES members(member_idx) ON DELETE RESTRICT,
		exam_idx INTEGER NOT NULL REFERENCES exams(exam_idx) ON DELETE RESTRICT,
		memo TEXT NULL,
		confirmed_at DATETIME NULL,
		registered_at DATETIME NOT NULL,
		PRIMARY KEY (member_idx, exam_idx)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_exam ON exam_reservations(exam_idx, confirmed_at);`,
}

// Migrate creates the schema for driver if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var stmts []string
	switch driver {
	case DriverMySQL:
		stmts = mysqlSchema
	case DriverSQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
