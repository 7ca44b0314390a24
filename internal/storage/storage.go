// Package storage is the SQLite data plane for students, course structure,
// scores and the admin reference tables.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// Store wraps the SQLite handle. IC numbers are encrypted at rest, so the
// store also carries the server secret key.
type Store struct {
	logger zerolog.Logger
	db     *sql.DB
	secret []byte
}

// Open opens (or creates) the database at dbPath and bootstraps the schema.
func Open(logger zerolog.Logger, dbPath string, secret []byte) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{
		logger: logger.With().Str("component", "storage").Logger(),
		db:     db,
		secret: secret,
	}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS students (
			student_id TEXT PRIMARY KEY,
			student_name TEXT NOT NULL,
			cohort TEXT NOT NULL,
			sem TEXT NOT NULL,
			cu_id INTEGER NOT NULL,
			ic_no TEXT NOT NULL,
			mobile_no TEXT NOT NULL DEFAULT '-',
			email TEXT NOT NULL DEFAULT '-',
			bm TEXT NOT NULL DEFAULT '-',
			english TEXT NOT NULL DEFAULT '-',
			entry_q TEXT NOT NULL DEFAULT '-',
			matric_no TEXT NOT NULL UNIQUE,
			student_status TEXT NOT NULL DEFAULT 'Active',
			graduated_on TEXT NOT NULL DEFAULT '-'
		)`,

		`CREATE TABLE IF NOT EXISTS course_structure (
			course_id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_code TEXT NOT NULL,
			module TEXT NOT NULL,
			course_classification TEXT NOT NULL,
			pre_co_req TEXT NOT NULL DEFAULT '-',
			credit_hour REAL NOT NULL DEFAULT 0,
			lect_hr_wk REAL NOT NULL DEFAULT 0,
			tut_hr_wk REAL NOT NULL DEFAULT 0,
			lab_hr_wk REAL NOT NULL DEFAULT 0,
			bl_hr_wk REAL NOT NULL DEFAULT 0,
			cu_cw_credits REAL NOT NULL DEFAULT 0,
			cu_ex_credits REAL NOT NULL DEFAULT 0,
			course_level TEXT NOT NULL DEFAULT '-',
			lecturer TEXT NOT NULL DEFAULT '-',
			course_status TEXT NOT NULL DEFAULT 'Active',
			course_year TEXT NOT NULL DEFAULT '-',
			course_priority INTEGER NOT NULL DEFAULT 0,
			course_version TEXT NOT NULL,
			UNIQUE(course_code, course_version)
		)`,

		`CREATE TABLE IF NOT EXISTS student_score (
			score_id INTEGER PRIMARY KEY AUTOINCREMENT,
			matric_no TEXT NOT NULL,
			course_code TEXT NOT NULL,
			attempt_1 TEXT NOT NULL DEFAULT '-',
			attempt_2 TEXT NOT NULL DEFAULT '-',
			attempt_3 TEXT NOT NULL DEFAULT '-',
			a1_updated_at TEXT,
			a2_updated_at TEXT,
			a3_updated_at TEXT,
			UNIQUE(matric_no, course_code)
		)`,

		`CREATE TABLE IF NOT EXISTS soc_programs (
			program_code TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS soc_lecturers (
			lecturer_name TEXT PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS soc_student_status (
			student_status TEXT PRIMARY KEY
		)`,
	}
	for _, schema := range schemas {
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_score_matric ON student_score(matric_no)",
		"CREATE INDEX IF NOT EXISTS idx_score_course ON student_score(course_code)",
		"CREATE INDEX IF NOT EXISTS idx_course_version ON course_structure(course_version)",
	}
	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
