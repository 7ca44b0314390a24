package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrScoreNotFound = errors.New("score not found")

// ScoreRow is one row of the students-scores listings. Score columns are
// pointers since students without seeded scores still appear (left join).
type ScoreRow struct {
	StudentName string  `json:"STUDENT_NAME"`
	Cohort      string  `json:"COHORT"`
	Sem         string  `json:"SEM"`
	CUID        int     `json:"CU_ID"`
	ScoreID     *int64  `json:"SCORE_ID"`
	MatricNo    string  `json:"MATRIC_NO"`
	CourseCode  *string `json:"COURSE_CODE"`
	Attempt1    *string `json:"ATTEMPT_1"`
	Attempt2    *string `json:"ATTEMPT_2"`
	Attempt3    *string `json:"ATTEMPT_3"`
}

// ListScores joins every student with their score rows, ordered by student
// name then course code.
func (s *Store) ListScores(ctx context.Context) ([]ScoreRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			st.student_name, st.cohort, st.sem, st.cu_id,
			sc.score_id, st.matric_no, sc.course_code,
			sc.attempt_1, sc.attempt_2, sc.attempt_3
		FROM students AS st
		LEFT JOIN student_score AS sc ON sc.matric_no = st.matric_no
		ORDER BY TRIM(st.student_name), sc.course_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScoreRow
	for rows.Next() {
		var r ScoreRow
		if err := rows.Scan(&r.StudentName, &r.Cohort, &r.Sem, &r.CUID,
			&r.ScoreID, &r.MatricNo, &r.CourseCode,
			&r.Attempt1, &r.Attempt2, &r.Attempt3); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CohortScoreRow is a students-scores-by-cohort row: every applicable course
// of the cohort's course version appears, scored or not.
type CohortScoreRow struct {
	StudentName string  `json:"STUDENT_NAME"`
	RequestYear int     `json:"REQUEST_YEAR"`
	Cohort      int     `json:"COHORT"`
	Sem         string  `json:"SEM"`
	CUID        int     `json:"CU_ID"`
	CourseCode  string  `json:"COURSE_CODE"`
	ScoreID     *int64  `json:"SCORE_ID"`
	MatricNo    string  `json:"MATRIC_NO"`
	Attempt1    *string `json:"ATTEMPT_1"`
	Attempt2    *string `json:"ATTEMPT_2"`
	Attempt3    *string `json:"ATTEMPT_3"`
}

// ScoresByCohort cross-joins the cohort's students with the course set whose
// version window covers the cohort date. A course version applies from its
// start date until the next version of the same course begins.
func (s *Store) ScoresByCohort(ctx context.Context, year int) ([]CohortScoreRow, error) {
	cohortDate := fmt.Sprintf("%04d-01-01", year)
	rows, err := s.db.QueryContext(ctx, `
		WITH version_windows AS (
			SELECT
				course_code,
				course_version AS version_start,
				LEAD(course_version) OVER (
					PARTITION BY course_code
					ORDER BY course_version
				) AS next_version_start
			FROM course_structure
			WHERE course_version IS NOT NULL
		),
		applicable_courses AS (
			SELECT DISTINCT course_code
			FROM version_windows
			WHERE ? >= version_start
			  AND ? < COALESCE(next_version_start, '9999-12-31')
		),
		cohort_students AS (
			SELECT matric_no, student_name, sem, cu_id,
			       CAST(strftime('%Y', cohort) AS INTEGER) AS cohort_year
			FROM students
			WHERE cohort IS NOT NULL
			  AND strftime('%Y', cohort) = ?
		)
		SELECT
			st.student_name, st.cohort_year, st.sem, st.cu_id,
			ac.course_code, sc.score_id, st.matric_no,
			sc.attempt_1, sc.attempt_2, sc.attempt_3
		FROM cohort_students st
		CROSS JOIN applicable_courses ac
		LEFT JOIN student_score sc
			ON sc.matric_no = st.matric_no
		   AND TRIM(sc.course_code) = TRIM(ac.course_code)
		ORDER BY st.student_name, ac.course_code`,
		cohortDate, cohortDate, fmt.Sprintf("%04d", year))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CohortScoreRow{}
	for rows.Next() {
		r := CohortScoreRow{RequestYear: year}
		if err := rows.Scan(&r.StudentName, &r.Cohort, &r.Sem, &r.CUID,
			&r.CourseCode, &r.ScoreID, &r.MatricNo,
			&r.Attempt1, &r.Attempt2, &r.Attempt3); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateScoreAttempts overwrites the given attempts of a score row and stamps
// the matching updated-at columns.
func (s *Store) UpdateScoreAttempts(ctx context.Context, scoreID int64, attempts map[int]string) error {
	if len(attempts) == 0 {
		return errors.New("no attempts to update")
	}
	today := time.Now().Format("2006-01-02")
	query := "UPDATE student_score SET "
	var args []any
	first := true
	for _, n := range []int{1, 2, 3} {
		value, ok := attempts[n]
		if !ok {
			continue
		}
		if !first {
			query += ", "
		}
		query += fmt.Sprintf("attempt_%d = ?, a%d_updated_at = ?", n, n)
		args = append(args, value, today)
		first = false
	}
	if first {
		return errors.New("attempt number must be 1, 2 or 3")
	}
	query += " WHERE score_id = ?"
	args = append(args, scoreID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScoreNotFound
	}
	return nil
}

// InternshipSessions lists the distinct session markers recorded for a course:
// semester placements in attempt 1 (S prefixed) and resits in attempts 2 and 3
// (R prefixed).
func (s *Store) InternshipSessions(ctx context.Context, courseCode string) ([]string, error) {
	return s.sessionValues(ctx, `
		SELECT DISTINCT attempt_1 AS v FROM student_score
		 WHERE course_code = ? AND attempt_1 LIKE 'S%'
		UNION
		SELECT DISTINCT attempt_2 AS v FROM student_score
		 WHERE course_code = ? AND attempt_2 LIKE 'R%'
		UNION
		SELECT DISTINCT attempt_3 AS v FROM student_score
		 WHERE course_code = ? AND attempt_3 LIKE 'R%'`,
		courseCode, courseCode, courseCode)
}

// MentorshipSessions lists every distinct resit session marker across all
// courses and attempts.
func (s *Store) MentorshipSessions(ctx context.Context) ([]string, error) {
	return s.sessionValues(ctx, `
		SELECT DISTINCT UPPER(TRIM(attempt_1)) AS v FROM student_score
		 WHERE UPPER(TRIM(attempt_1)) LIKE 'R%'
		UNION
		SELECT DISTINCT UPPER(TRIM(attempt_2)) AS v FROM student_score
		 WHERE UPPER(TRIM(attempt_2)) LIKE 'R%'
		UNION
		SELECT DISTINCT UPPER(TRIM(attempt_3)) AS v FROM student_score
		 WHERE UPPER(TRIM(attempt_3)) LIKE 'R%'`)
}

func (s *Store) sessionValues(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
		if v != "" {
			values = append(values, v)
		}
	}
	return values, rows.Err()
}

// ReportCourse is one course line of a student's scores report.
type ReportCourse struct {
	CourseCode string  `json:"COURSE_CODE"`
	Module     string  `json:"MODULE"`
	CourseYear string  `json:"COURSE_YEAR,omitempty"`
	Result     *string `json:"RESULT,omitempty"`
	Attempt1   *string `json:"ATTEMPT_1,omitempty"`
	Attempt2   *string `json:"ATTEMPT_2,omitempty"`
	Attempt3   *string `json:"ATTEMPT_3,omitempty"`
}

// ScoresReport is the per-student report: courses grouped by year with the
// latest result, plus the full attempt history.
type ScoresReport struct {
	CoursesByYear []ReportCourse `json:"coursesByYear"`
	AllAttempts   []ReportCourse `json:"allAttempts"`
}

// ScoresReportFor builds the report for one student. The RESULT column is the
// latest recorded attempt.
func (s *Store) ScoresReportFor(ctx context.Context, matricNo string) (*ScoresReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sc.course_code, COALESCE(cs.module, ''), COALESCE(cs.course_year, ''),
		       sc.attempt_1, sc.attempt_2, sc.attempt_3
		FROM student_score sc
		LEFT JOIN (
			SELECT course_code, MAX(course_version), module, course_year
			FROM course_structure GROUP BY course_code
		) cs ON TRIM(cs.course_code) = TRIM(sc.course_code)
		WHERE sc.matric_no = ?
		ORDER BY sc.course_code`, matricNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	report := &ScoresReport{CoursesByYear: []ReportCourse{}, AllAttempts: []ReportCourse{}}
	for rows.Next() {
		var code, module, year, a1, a2, a3 string
		if err := rows.Scan(&code, &module, &year, &a1, &a2, &a3); err != nil {
			return nil, err
		}
		result := latestAttempt(a1, a2, a3)
		report.CoursesByYear = append(report.CoursesByYear, ReportCourse{
			CourseCode: code, Module: module, CourseYear: year, Result: &result,
		})
		report.AllAttempts = append(report.AllAttempts, ReportCourse{
			CourseCode: code, Module: module,
			Attempt1: &a1, Attempt2: &a2, Attempt3: &a3,
		})
	}
	return report, rows.Err()
}

func latestAttempt(a1, a2, a3 string) string {
	for _, a := range []string{a3, a2, a1} {
		if a != "" && a != "-" && a != "N/A" {
			return a
		}
	}
	return "-"
}
