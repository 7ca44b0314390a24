package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrRefValueExists   = errors.New("value already exists")
	ErrRefValueNotFound = errors.New("value not found")
)

// refTable describes one of the single-column admin reference tables.
type refTable struct {
	table  string
	column string
}

var (
	refPrograms  = refTable{"soc_programs", "program_code"}
	refLecturers = refTable{"soc_lecturers", "lecturer_name"}
	refStatuses  = refTable{"soc_student_status", "student_status"}
)

func (s *Store) refList(ctx context.Context, t refTable) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s ORDER BY %s", t.column, t.table, t.column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *Store) refAdd(ctx context.Context, t refTable, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("value is required")
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (?)", t.table, t.column), value)
	if isUniqueViolation(err) {
		return ErrRefValueExists
	}
	return err
}

func (s *Store) refRename(ctx context.Context, t refTable, oldValue, newValue string) error {
	newValue = strings.TrimSpace(newValue)
	if newValue == "" {
		return errors.New("value is required")
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET %s = ? WHERE %s = ?", t.table, t.column, t.column),
		newValue, oldValue)
	if isUniqueViolation(err) {
		return ErrRefValueExists
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRefValueNotFound
	}
	return nil
}

func (s *Store) refDelete(ctx context.Context, t refTable, value string) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE %s = ?", t.table, t.column), value)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRefValueNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// Programs lists the program codes.
func (s *Store) Programs(ctx context.Context) ([]string, error) {
	return s.refList(ctx, refPrograms)
}

func (s *Store) AddProgram(ctx context.Context, code string) error {
	return s.refAdd(ctx, refPrograms, code)
}

func (s *Store) RenameProgram(ctx context.Context, oldCode, newCode string) error {
	return s.refRename(ctx, refPrograms, oldCode, newCode)
}

func (s *Store) DeleteProgram(ctx context.Context, code string) error {
	return s.refDelete(ctx, refPrograms, code)
}

// Lecturers lists the lecturer names.
func (s *Store) Lecturers(ctx context.Context) ([]string, error) {
	return s.refList(ctx, refLecturers)
}

func (s *Store) AddLecturer(ctx context.Context, name string) error {
	return s.refAdd(ctx, refLecturers, name)
}

func (s *Store) RenameLecturer(ctx context.Context, oldName, newName string) error {
	return s.refRename(ctx, refLecturers, oldName, newName)
}

func (s *Store) DeleteLecturer(ctx context.Context, name string) error {
	return s.refDelete(ctx, refLecturers, name)
}

// StudentStatuses lists the selectable student statuses.
func (s *Store) StudentStatuses(ctx context.Context) ([]string, error) {
	return s.refList(ctx, refStatuses)
}

func (s *Store) AddStudentStatus(ctx context.Context, status string) error {
	return s.refAdd(ctx, refStatuses, status)
}

func (s *Store) RenameStudentStatus(ctx context.Context, oldStatus, newStatus string) error {
	return s.refRename(ctx, refStatuses, oldStatus, newStatus)
}

func (s *Store) DeleteStudentStatus(ctx context.Context, status string) error {
	return s.refDelete(ctx, refStatuses, status)
}
