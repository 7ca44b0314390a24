package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/JustynLim/SoC-SMS/internal/crypto"
)

// ListEntry is one student row of a generated internship or mentorship list.
// FailedCourses is populated for mentorship lists only.
type ListEntry struct {
	StudentName   string `json:"STUDENT_NAME"`
	MatricNo      string `json:"MATRIC_NO"`
	ICNo          string `json:"IC_NO"`
	MobileNo      string `json:"MOBILE_NO"`
	Email         string `json:"EMAIL"`
	FailedCourses string `json:"FAILED_COURSES,omitempty"`
}

// InternshipList returns the students who took the course in the given
// session, on any attempt.
func (s *Store) InternshipList(ctx context.Context, courseCode, session string) ([]ListEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT st.student_name, st.matric_no, st.ic_no, st.mobile_no, st.email
		FROM student_score AS sc
		JOIN students AS st ON st.matric_no = sc.matric_no
		WHERE sc.course_code = ?
		  AND (? = sc.attempt_1 OR ? = sc.attempt_2 OR ? = sc.attempt_3)
		ORDER BY st.student_name ASC, st.matric_no ASC`,
		courseCode, session, session, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanListEntries(rows)
}

// MentorshipList returns the students still failing after attempting in the
// given resit session: every numeric attempt below 40, not exempted, not on
// placement, and attempted at least once.
func (s *Store) MentorshipList(ctx context.Context, session string) ([]ListEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT st.student_name, st.matric_no, st.ic_no, st.mobile_no, st.email,
		       sc.course_code
		FROM student_score AS sc
		JOIN students AS st ON st.matric_no = sc.matric_no
		WHERE ? IN (
			UPPER(TRIM(sc.attempt_1)),
			UPPER(TRIM(sc.attempt_2)),
			UPPER(TRIM(sc.attempt_3))
		)
		  AND COALESCE(CAST(sc.attempt_1 AS REAL), 0) < 40
		  AND COALESCE(CAST(sc.attempt_2 AS REAL), 0) < 40
		  AND COALESCE(CAST(sc.attempt_3 AS REAL), 0) < 40
		  AND sc.attempt_1 != 'Exempted'
		  AND UPPER(TRIM(sc.attempt_1)) NOT LIKE 'S%'
		  AND sc.attempt_1 != '-'
		ORDER BY st.student_name ASC, st.matric_no ASC, sc.course_code ASC`,
		strings.ToUpper(strings.TrimSpace(session)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// One row per failing course; fold into one entry per student.
	var out []ListEntry
	index := map[string]int{}
	for rows.Next() {
		var e ListEntry
		var icEnc, courseCode string
		if err := rows.Scan(&e.StudentName, &e.MatricNo, &icEnc,
			&e.MobileNo, &e.Email, &courseCode); err != nil {
			return nil, err
		}
		if i, ok := index[e.MatricNo]; ok {
			out[i].FailedCourses += ", " + courseCode
			continue
		}
		if ic, err := crypto.Open(s.secret, icEnc); err == nil {
			e.ICNo = ic
		}
		e.FailedCourses = courseCode
		index[e.MatricNo] = len(out)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) scanListEntries(rows *sql.Rows) ([]ListEntry, error) {
	var out []ListEntry
	for rows.Next() {
		var e ListEntry
		var icEnc string
		if err := rows.Scan(&e.StudentName, &e.MatricNo, &icEnc,
			&e.MobileNo, &e.Email); err != nil {
			return nil, err
		}
		if ic, err := crypto.Open(s.secret, icEnc); err == nil {
			e.ICNo = ic
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
