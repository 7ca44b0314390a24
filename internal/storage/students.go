package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JustynLim/SoC-SMS/internal/crypto"
)

var (
	ErrMatricExists        = errors.New("matric number already exists")
	ErrStudentNotFound     = errors.New("student not found")
	ErrNoCoursesForVersion = errors.New("no courses found for version")
)

// Student mirrors the wire contract of the students endpoints. IC_NO is
// plaintext on the wire and encrypted in the table.
type Student struct {
	StudentID     string `json:"STUDENT_ID"`
	StudentName   string `json:"STUDENT_NAME"`
	Cohort        string `json:"COHORT"`
	Sem           string `json:"SEM"`
	CUID          int    `json:"CU_ID"`
	ICNo          string `json:"IC_NO"`
	MobileNo      string `json:"MOBILE_NO"`
	Email         string `json:"EMAIL"`
	BM            string `json:"BM"`
	English       string `json:"ENGLISH"`
	EntryQ        string `json:"ENTRY_Q"`
	MatricNo      string `json:"MATRIC_NO"`
	StudentStatus string `json:"STUDENT_STATUS"`
}

const studentCols = `student_id, student_name, cohort, sem, cu_id, ic_no,
	mobile_no, email, bm, english, entry_q, matric_no, student_status`

// ListStudents returns all students ordered by name. IC numbers that fail to
// decrypt come back empty rather than failing the whole listing.
func (s *Store) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+studentCols+`
		FROM students
		ORDER BY student_name, student_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		var st Student
		var icEnc string
		if err := rows.Scan(&st.StudentID, &st.StudentName, &st.Cohort, &st.Sem,
			&st.CUID, &icEnc, &st.MobileNo, &st.Email, &st.BM, &st.English,
			&st.EntryQ, &st.MatricNo, &st.StudentStatus); err != nil {
			return nil, err
		}
		if ic, err := crypto.Open(s.secret, icEnc); err == nil {
			st.ICNo = ic
		} else {
			s.logger.Warn().Str("matric_no", st.MatricNo).Msg("undecryptable ic number")
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// AddStudent inserts the student and seeds one score row per course of the
// given course version, all in one transaction. MPU courses are seeded with
// attempt 3 marked N/A since they allow only two attempts. Returns the number
// of seeded courses.
func (s *Store) AddStudent(ctx context.Context, st Student, courseVersion string) (int, error) {
	version, err := NormalizeVersion(courseVersion)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM students WHERE matric_no = ?`, st.MatricNo).Scan(&exists)
	if err == nil {
		return 0, ErrMatricExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	icEnc, err := crypto.Seal(s.secret, st.ICNo)
	if err != nil {
		return 0, err
	}

	if st.StudentStatus == "" {
		st.StudentStatus = "Active"
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO students (`+studentCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), st.StudentName, st.Cohort, st.Sem, st.CUID, icEnc,
		orDash(st.MobileNo), orDash(st.Email), orDash(st.BM), orDash(st.English),
		orDash(st.EntryQ), st.MatricNo, st.StudentStatus)
	if err != nil {
		return 0, err
	}

	seeded, err := seedScoresTx(ctx, tx, st.MatricNo, version)
	if err != nil {
		return 0, err
	}
	return seeded, tx.Commit()
}

// seedScoresTx inserts one blank score row per course of the version. Rows
// already present for the student are left alone.
func seedScoresTx(ctx context.Context, tx *sql.Tx, matricNo, version string) (int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT course_code, course_classification
		FROM course_structure
		WHERE course_version = ?`, version)
	if err != nil {
		return 0, err
	}
	type course struct{ code, classification string }
	var courses []course
	for rows.Next() {
		var c course
		if err := rows.Scan(&c.code, &c.classification); err != nil {
			rows.Close()
			return 0, err
		}
		courses = append(courses, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(courses) == 0 {
		return 0, ErrNoCoursesForVersion
	}

	today := time.Now().Format("2006-01-02")
	inserted := 0
	for _, c := range courses {
		attempt3, a3At := "-", sql.NullString{}
		if strings.HasPrefix(strings.ToUpper(c.classification), "MPU") {
			attempt3 = "N/A"
			a3At = sql.NullString{String: today, Valid: true}
		}
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO student_score
				(matric_no, course_code, attempt_1, attempt_2, attempt_3, a3_updated_at)
			VALUES (?, ?, '-', '-', ?, ?)`,
			matricNo, c.code, attempt3, a3At)
		if err != nil {
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// studentColumns maps wire field names to updatable columns.
var studentColumns = map[string]string{
	"STUDENT_NAME":   "student_name",
	"COHORT":         "cohort",
	"SEM":            "sem",
	"CU_ID":          "cu_id",
	"IC_NO":          "ic_no",
	"MOBILE_NO":      "mobile_no",
	"EMAIL":          "email",
	"BM":             "bm",
	"ENGLISH":        "english",
	"ENTRY_Q":        "entry_q",
	"MATRIC_NO":      "matric_no",
	"STUDENT_STATUS": "student_status",
	"GRADUATED_ON":   "graduated_on",
}

// UpdateStudent applies a partial update keyed by wire field names. Unknown
// fields are rejected. IC numbers are re-encrypted before storage.
func (s *Store) UpdateStudent(ctx context.Context, studentID string, fields map[string]any) error {
	if len(fields) == 0 {
		return errors.New("no fields to update")
	}
	var sets []string
	var args []any
	for key, value := range fields {
		col, ok := studentColumns[strings.ToUpper(key)]
		if !ok {
			return fmt.Errorf("unknown field %q", key)
		}
		if col == "ic_no" {
			enc, err := crypto.Seal(s.secret, fmt.Sprint(value))
			if err != nil {
				return err
			}
			value = enc
		}
		sets = append(sets, col+" = ?")
		args = append(args, value)
	}
	args = append(args, studentID)

	res, err := s.db.ExecContext(ctx,
		`UPDATE students SET `+strings.Join(sets, ", ")+` WHERE student_id = ?`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// DeleteStudent removes the student and every score row, scores first.
func (s *Store) DeleteStudent(ctx context.Context, studentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM student_score
		WHERE matric_no = (SELECT matric_no FROM students WHERE student_id = ?)`,
		studentID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM students WHERE student_id = ?`, studentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStudentNotFound
	}
	return tx.Commit()
}

// Cohorts returns the distinct cohort years, newest first.
func (s *Store) Cohorts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT strftime('%Y', cohort) AS year
		FROM students
		WHERE cohort IS NOT NULL AND cohort != ''
		ORDER BY year DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	years := []string{}
	for rows.Next() {
		var y sql.NullString
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		if y.Valid && y.String != "" {
			years = append(years, y.String)
		}
	}
	return years, rows.Err()
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return strings.TrimSpace(v)
}
