package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrCourseNotFound = errors.New("course not found")

// Course mirrors the wire contract of the course-structure endpoints.
type Course struct {
	CourseID             int64   `json:"COURSE_ID"`
	CourseCode           string  `json:"COURSE_CODE"`
	Module               string  `json:"MODULE"`
	CourseClassification string  `json:"COURSE_CLASSIFICATION"`
	PreCoReq             string  `json:"PRE_CO_REQ"`
	CreditHour           float64 `json:"CREDIT_HOUR"`
	LectHrWk             float64 `json:"LECT_HR_WK"`
	TutHrWk              float64 `json:"TUT_HR_WK"`
	LabHrWk              float64 `json:"LAB_HR_WK"`
	BLHrWk               float64 `json:"BL_HR_WK"`
	CUCWCredits          float64 `json:"CU_CW_CREDITS"`
	CUEXCredits          float64 `json:"CU_EX_CREDITS"`
	CourseLevel          string  `json:"COURSE_LEVEL"`
	Lecturer             string  `json:"LECTURER"`
	CourseStatus         string  `json:"COURSE_STATUS"`
	CourseYear           string  `json:"COURSE_YEAR"`
	CoursePriority       int     `json:"COURSE_PRIORITY"`
	CourseVersion        string  `json:"COURSE_VERSION"`
}

// CourseOption is the trimmed shape used by selection dropdowns.
type CourseOption struct {
	Code   string `json:"code"`
	Module string `json:"module"`
	Status string `json:"status"`
}

// NormalizeVersion parses a course version into canonical YYYY-MM-DD form.
// Accepts ISO dates and the RFC1123 form older exports carry.
func NormalizeVersion(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", time.RFC1123} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("course version must be a date, got %q", raw)
}

const courseCols = `course_id, course_code, module, course_classification,
	pre_co_req, credit_hour, lect_hr_wk, tut_hr_wk, lab_hr_wk, bl_hr_wk,
	cu_cw_credits, cu_ex_credits, course_level, lecturer, course_status,
	course_year, course_priority, course_version`

func scanCourse(rows *sql.Rows) (Course, error) {
	var c Course
	err := rows.Scan(&c.CourseID, &c.CourseCode, &c.Module, &c.CourseClassification,
		&c.PreCoReq, &c.CreditHour, &c.LectHrWk, &c.TutHrWk, &c.LabHrWk, &c.BLHrWk,
		&c.CUCWCredits, &c.CUEXCredits, &c.CourseLevel, &c.Lecturer, &c.CourseStatus,
		&c.CourseYear, &c.CoursePriority, &c.CourseVersion)
	return c, err
}

// ListCourses returns the full course structure ordered by year then code.
func (s *Store) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+courseCols+`
		FROM course_structure
		ORDER BY course_year, course_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CourseVersions returns the distinct versions, newest first.
func (s *Store) CourseVersions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT course_version
		FROM course_structure
		ORDER BY course_version DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// CourseOptions lists compulsory non-MPU courses for dropdowns.
func (s *Store) CourseOptions(ctx context.Context) ([]CourseOption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT course_code, module, course_status
		FROM course_structure
		WHERE course_classification = 'Compulsory'
		  AND course_code NOT LIKE 'MPU%'
		ORDER BY course_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	opts := []CourseOption{}
	for rows.Next() {
		var o CourseOption
		if err := rows.Scan(&o.Code, &o.Module, &o.Status); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// CreateCourse inserts a course row for the given version.
func (s *Store) CreateCourse(ctx context.Context, c Course) (int64, error) {
	version, err := NormalizeVersion(c.CourseVersion)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO course_structure
			(course_code, module, course_classification, pre_co_req, credit_hour,
			 lect_hr_wk, tut_hr_wk, lab_hr_wk, bl_hr_wk, cu_cw_credits,
			 cu_ex_credits, course_level, lecturer, course_status, course_year,
			 course_priority, course_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.CourseCode, c.Module, c.CourseClassification, orDash(c.PreCoReq),
		c.CreditHour, c.LectHrWk, c.TutHrWk, c.LabHrWk, c.BLHrWk,
		c.CUCWCredits, c.CUEXCredits, orDash(c.CourseLevel), orDash(c.Lecturer),
		orDash(c.CourseStatus), orDash(c.CourseYear), c.CoursePriority, version)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateCourse replaces the mutable columns of an existing course row.
func (s *Store) UpdateCourse(ctx context.Context, c Course) error {
	version, err := NormalizeVersion(c.CourseVersion)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE course_structure SET
			course_code = ?, module = ?, course_classification = ?, pre_co_req = ?,
			credit_hour = ?, lect_hr_wk = ?, tut_hr_wk = ?, lab_hr_wk = ?,
			bl_hr_wk = ?, cu_cw_credits = ?, cu_ex_credits = ?, course_level = ?,
			lecturer = ?, course_status = ?, course_year = ?, course_priority = ?,
			course_version = ?
		WHERE course_id = ?`,
		c.CourseCode, c.Module, c.CourseClassification, orDash(c.PreCoReq),
		c.CreditHour, c.LectHrWk, c.TutHrWk, c.LabHrWk, c.BLHrWk,
		c.CUCWCredits, c.CUEXCredits, orDash(c.CourseLevel), orDash(c.Lecturer),
		orDash(c.CourseStatus), orDash(c.CourseYear), c.CoursePriority, version,
		c.CourseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCourseNotFound
	}
	return nil
}

// DeleteCourse removes one course row by id.
func (s *Store) DeleteCourse(ctx context.Context, courseID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM course_structure WHERE course_id = ?`, courseID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCourseNotFound
	}
	return nil
}
