package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JustynLim/SoC-SMS/internal/crypto"
)

// ErrNoOpenAttempt means every attempt slot of a score row is already filled.
var ErrNoOpenAttempt = errors.New("no open attempt slot")

// ResolveCourseCode maps a marksheet short code like "120CT" to the canonical
// course code ("INT120CT"). Exact matches win over suffix matches.
func (s *Store) ResolveCourseCode(ctx context.Context, short string) (string, error) {
	short = strings.ToUpper(strings.TrimSpace(short))
	var code string
	err := s.db.QueryRowContext(ctx, `
		SELECT DISTINCT course_code FROM course_structure
		WHERE UPPER(course_code) = ?`, short).Scan(&code)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT DISTINCT course_code FROM course_structure
		WHERE UPPER(course_code) LIKE '%' || ?
		ORDER BY course_code LIMIT 1`, short).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return code, err
}

// MatricByCUID resolves a marksheet CU-ID to the student's matric number.
func (s *Store) MatricByCUID(ctx context.Context, cuID int) (string, bool, error) {
	var matric string
	err := s.db.QueryRowContext(ctx,
		`SELECT matric_no FROM students WHERE cu_id = ?`, cuID).Scan(&matric)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return matric, err == nil, err
}

// ApplyMarksheetScore writes one marksheet score into the first open attempt
// slot. MPU courses only carry two attempts; once both are filled the oldest
// one is overwritten, which is how resit marks cycle for those courses.
func (s *Store) ApplyMarksheetScore(ctx context.Context, matricNo, courseCode, score string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var scoreID int64
	var a1, a2, a3 string
	var s1, s2 sql.NullString
	var classification sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT sc.score_id, sc.attempt_1, sc.attempt_2, sc.attempt_3,
		       sc.a1_updated_at, sc.a2_updated_at,
		       (SELECT course_classification FROM course_structure cs
		         WHERE cs.course_code = sc.course_code LIMIT 1)
		FROM student_score sc
		WHERE sc.matric_no = ? AND sc.course_code = ?`,
		matricNo, courseCode).Scan(&scoreID, &a1, &a2, &a3, &s1, &s2, &classification)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrScoreNotFound
	}
	if err != nil {
		return err
	}

	isDash := func(v string) bool { return strings.TrimSpace(v) == "-" || v == "" }

	target := 0
	if strings.HasPrefix(strings.ToUpper(classification.String), "MPU") {
		switch {
		case isDash(a1):
			target = 1
		case isDash(a2):
			target = 2
		case !s1.Valid || (s2.Valid && s1.String <= s2.String):
			target = 1
		default:
			target = 2
		}
	} else {
		switch {
		case isDash(a1):
			target = 1
		case isDash(a2):
			target = 2
		case isDash(a3):
			target = 3
		default:
			return ErrNoOpenAttempt
		}
	}

	today := time.Now().Format("2006-01-02")
	var stmt string
	switch target {
	case 1:
		stmt = `UPDATE student_score SET attempt_1 = ?, a1_updated_at = ? WHERE score_id = ?`
	case 2:
		stmt = `UPDATE student_score SET attempt_2 = ?, a2_updated_at = ? WHERE score_id = ?`
	case 3:
		stmt = `UPDATE student_score SET attempt_3 = ?, a3_updated_at = ? WHERE score_id = ?`
	}
	if _, err := tx.ExecContext(ctx, stmt, score, today, scoreID); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertStudent inserts or refreshes a student keyed by matric number, used
// by the datasheet import. Returns true when a new row was inserted.
func (s *Store) UpsertStudent(ctx context.Context, st Student, graduatedOn string) (bool, error) {
	icEnc, err := crypto.Seal(s.secret, st.ICNo)
	if err != nil {
		return false, err
	}
	if graduatedOn == "" {
		graduatedOn = "-"
	}

	var studentID string
	err = s.db.QueryRowContext(ctx,
		`SELECT student_id FROM students WHERE matric_no = ?`, st.MatricNo).Scan(&studentID)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO students (`+studentCols+`, graduated_on)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), st.StudentName, st.Cohort, st.Sem, st.CUID, icEnc,
			orDash(st.MobileNo), orDash(st.Email), orDash(st.BM), orDash(st.English),
			orDash(st.EntryQ), st.MatricNo, st.StudentStatus, graduatedOn)
		return err == nil, err
	}
	if err != nil {
		return false, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE students SET
			student_name = ?, cohort = ?, sem = ?, cu_id = ?, ic_no = ?,
			mobile_no = ?, email = ?, bm = ?, english = ?, entry_q = ?,
			student_status = ?, graduated_on = ?
		WHERE student_id = ?`,
		st.StudentName, st.Cohort, st.Sem, st.CUID, icEnc,
		orDash(st.MobileNo), orDash(st.Email), orDash(st.BM), orDash(st.English),
		orDash(st.EntryQ), st.StudentStatus, graduatedOn, studentID)
	return false, err
}

// UpsertCourse inserts or refreshes a course keyed by code and version, used
// by the course structure import. Returns true when a new row was inserted.
func (s *Store) UpsertCourse(ctx context.Context, c Course) (bool, error) {
	version, err := NormalizeVersion(c.CourseVersion)
	if err != nil {
		return false, err
	}
	var courseID int64
	err = s.db.QueryRowContext(ctx, `
		SELECT course_id FROM course_structure
		WHERE course_code = ? AND course_version = ?`,
		c.CourseCode, version).Scan(&courseID)
	if errors.Is(err, sql.ErrNoRows) {
		c.CourseVersion = version
		_, err := s.CreateCourse(ctx, c)
		return err == nil, err
	}
	if err != nil {
		return false, err
	}
	c.CourseID = courseID
	c.CourseVersion = version
	return false, s.UpdateCourse(ctx, c)
}
