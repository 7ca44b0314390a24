package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/JustynLim/SoC-SMS/internal/crypto"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	s, err := Open(zerolog.Nop(), filepath.Join(t.TempDir(), "sms.db"), key)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCourses(t *testing.T, s *Store, version string, codes ...string) {
	t.Helper()
	for _, code := range codes {
		classification := "Compulsory"
		if len(code) >= 3 && code[:3] == "MPU" {
			classification = "MPU Compulsory"
		}
		_, err := s.CreateCourse(context.Background(), Course{
			CourseCode:           code,
			Module:               "Module " + code,
			CourseClassification: classification,
			CourseYear:           "Year 1",
			CourseVersion:        version,
		})
		if err != nil {
			t.Fatalf("seed course %s: %v", code, err)
		}
	}
}

func TestAddStudentSeedsScores(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2021-04-01", "CS101", "CS102", "MPU3113")

	seeded, err := s.AddStudent(ctx, Student{
		StudentName: "Alice Tan",
		Cohort:      "2021-09-01",
		Sem:         "1",
		CUID:        1001,
		ICNo:        "990101-14-5678",
		MatricNo:    "A21SC0001",
	}, "2021-04-01")
	if err != nil {
		t.Fatal(err)
	}
	if seeded != 3 {
		t.Fatalf("seeded = %d, want 3", seeded)
	}

	scores, err := s.ListScores(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 3 {
		t.Fatalf("score rows = %d, want 3", len(scores))
	}
	for _, row := range scores {
		if *row.CourseCode == "MPU3113" {
			if *row.Attempt3 != "N/A" {
				t.Fatalf("MPU attempt 3 = %q, want N/A", *row.Attempt3)
			}
		} else if *row.Attempt3 != "-" {
			t.Fatalf("attempt 3 = %q, want -", *row.Attempt3)
		}
	}
}

func TestAddStudentDuplicateMatric(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2021-04-01", "CS101")

	st := Student{StudentName: "A", Cohort: "2021-09-01", Sem: "1", CUID: 1, ICNo: "x", MatricNo: "A21SC0001"}
	if _, err := s.AddStudent(ctx, st, "2021-04-01"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddStudent(ctx, st, "2021-04-01"); err != ErrMatricExists {
		t.Fatalf("expected ErrMatricExists, got %v", err)
	}
}

func TestAddStudentUnknownVersionRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st := Student{StudentName: "A", Cohort: "2021-09-01", Sem: "1", CUID: 1, ICNo: "x", MatricNo: "A21SC0002"}
	if _, err := s.AddStudent(ctx, st, "2030-01-01"); err != ErrNoCoursesForVersion {
		t.Fatalf("expected ErrNoCoursesForVersion, got %v", err)
	}
	students, err := s.ListStudents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 0 {
		t.Fatal("student insert should have rolled back")
	}
}

func TestICNumberEncryptedAtRest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2021-04-01", "CS101")
	if _, err := s.AddStudent(ctx, Student{
		StudentName: "Alice", Cohort: "2021-09-01", Sem: "1", CUID: 1,
		ICNo: "990101-14-5678", MatricNo: "A21SC0001",
	}, "2021-04-01"); err != nil {
		t.Fatal(err)
	}

	var raw string
	if err := s.db.QueryRow(`SELECT ic_no FROM students`).Scan(&raw); err != nil {
		t.Fatal(err)
	}
	if raw == "990101-14-5678" {
		t.Fatal("ic number stored in plaintext")
	}
	if pt, err := crypto.Open(s.secret, raw); err != nil || pt != "990101-14-5678" {
		t.Fatalf("stored value not decryptable: %v", err)
	}

	students, err := s.ListStudents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if students[0].ICNo != "990101-14-5678" {
		t.Fatalf("listing should decrypt, got %q", students[0].ICNo)
	}
}

func TestUpdateStudentReencryptsIC(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2021-04-01", "CS101")
	if _, err := s.AddStudent(ctx, Student{
		StudentName: "Alice", Cohort: "2021-09-01", Sem: "1", CUID: 1,
		ICNo: "old", MatricNo: "A21SC0001",
	}, "2021-04-01"); err != nil {
		t.Fatal(err)
	}
	students, _ := s.ListStudents(ctx)

	err := s.UpdateStudent(ctx, students[0].StudentID, map[string]any{
		"IC_NO":        "000202-10-1234",
		"MOBILE_NO":    "0123456789",
		"STUDENT_NAME": "Alice Tan",
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, _ := s.ListStudents(ctx)
	if updated[0].ICNo != "000202-10-1234" || updated[0].MobileNo != "0123456789" {
		t.Fatalf("update not applied: %+v", updated[0])
	}

	if err := s.UpdateStudent(ctx, students[0].StudentID, map[string]any{"EVIL": 1}); err == nil {
		t.Fatal("unknown field should be rejected")
	}
	if err := s.UpdateStudent(ctx, "no-such-id", map[string]any{"SEM": "2"}); err != ErrStudentNotFound {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestDeleteStudentRemovesScores(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2021-04-01", "CS101", "CS102")
	if _, err := s.AddStudent(ctx, Student{
		StudentName: "Alice", Cohort: "2021-09-01", Sem: "1", CUID: 1,
		ICNo: "x", MatricNo: "A21SC0001",
	}, "2021-04-01"); err != nil {
		t.Fatal(err)
	}
	students, _ := s.ListStudents(ctx)

	if err := s.DeleteStudent(ctx, students[0].StudentID); err != nil {
		t.Fatal(err)
	}
	scores, _ := s.ListScores(ctx)
	if len(scores) != 0 {
		t.Fatalf("score rows should be gone, got %d", len(scores))
	}
	if err := s.DeleteStudent(ctx, students[0].StudentID); err != ErrStudentNotFound {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestCohortsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2020-01-01", "CS101")
	for _, c := range []struct{ matric, cohort string }{
		{"A20SC0001", "2020-09-01"},
		{"A22SC0001", "2022-09-01"},
		{"A22SC0002", "2022-09-01"},
	} {
		if _, err := s.AddStudent(ctx, Student{
			StudentName: c.matric, Cohort: c.cohort, Sem: "1", CUID: 1,
			ICNo: "x", MatricNo: c.matric,
		}, "2020-01-01"); err != nil {
			t.Fatal(err)
		}
	}
	years, err := s.Cohorts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(years) != 2 || years[0] != "2022" || years[1] != "2020" {
		t.Fatalf("cohorts = %v", years)
	}
}

func TestCourseVersionsAndOptions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2020-01-01", "CS101", "MPU3113")
	seedCourses(t, s, "2023-01-01", "CS101")

	versions, err := s.CourseVersions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 || versions[0] != "2023-01-01" {
		t.Fatalf("versions = %v", versions)
	}

	opts, err := s.CourseOptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 1 || opts[0].Code != "CS101" {
		t.Fatalf("options should exclude MPU courses: %+v", opts)
	}
}

func TestNormalizeVersion(t *testing.T) {
	for raw, want := range map[string]string{
		"2021-04-01":                    "2021-04-01",
		" 2021-04-01 ":                  "2021-04-01",
		"Thu, 01 Apr 2021 00:00:00 GMT": "2021-04-01",
	} {
		got, err := NormalizeVersion(raw)
		if err != nil || got != want {
			t.Fatalf("NormalizeVersion(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := NormalizeVersion("not-a-date"); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpdateScoreAttemptsStampsDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2021-04-01", "CS101")
	if _, err := s.AddStudent(ctx, Student{
		StudentName: "Alice", Cohort: "2021-09-01", Sem: "1", CUID: 1,
		ICNo: "x", MatricNo: "A21SC0001",
	}, "2021-04-01"); err != nil {
		t.Fatal(err)
	}
	scores, _ := s.ListScores(ctx)

	if err := s.UpdateScoreAttempts(ctx, *scores[0].ScoreID, map[int]string{1: "78"}); err != nil {
		t.Fatal(err)
	}
	var a1 string
	var a1At, a2At *string
	if err := s.db.QueryRow(
		`SELECT attempt_1, a1_updated_at, a2_updated_at FROM student_score WHERE score_id = ?`,
		*scores[0].ScoreID).Scan(&a1, &a1At, &a2At); err != nil {
		t.Fatal(err)
	}
	if a1 != "78" || a1At == nil || *a1At == "" {
		t.Fatalf("attempt 1 not stamped: %q %v", a1, a1At)
	}
	if a2At != nil {
		t.Fatal("attempt 2 stamp should be untouched")
	}

	if err := s.UpdateScoreAttempts(ctx, 9999, map[int]string{1: "50"}); err != ErrScoreNotFound {
		t.Fatalf("expected ErrScoreNotFound, got %v", err)
	}
}

func TestSessionListings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2021-04-01", "CS301")
	if _, err := s.AddStudent(ctx, Student{
		StudentName: "Alice", Cohort: "2021-09-01", Sem: "1", CUID: 1,
		ICNo: "x", MatricNo: "A21SC0001",
	}, "2021-04-01"); err != nil {
		t.Fatal(err)
	}
	scores, _ := s.ListScores(ctx)
	if err := s.UpdateScoreAttempts(ctx, *scores[0].ScoreID, map[int]string{
		1: "S2024/01", 2: "R2024/02",
	}); err != nil {
		t.Fatal(err)
	}

	internship, err := s.InternshipSessions(ctx, "CS301")
	if err != nil {
		t.Fatal(err)
	}
	if len(internship) != 2 {
		t.Fatalf("internship sessions = %v", internship)
	}

	mentorship, err := s.MentorshipSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(mentorship) != 1 || mentorship[0] != "R2024/02" {
		t.Fatalf("mentorship sessions = %v", mentorship)
	}
}

func TestInternshipList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2021-04-01", "CS301")
	for _, m := range []string{"A21SC0001", "A21SC0002"} {
		if _, err := s.AddStudent(ctx, Student{
			StudentName: "Student " + m, Cohort: "2021-09-01", Sem: "1", CUID: 1,
			ICNo: "ic-" + m, MatricNo: m,
		}, "2021-04-01"); err != nil {
			t.Fatal(err)
		}
	}
	scores, _ := s.ListScores(ctx)
	if err := s.UpdateScoreAttempts(ctx, *scores[0].ScoreID, map[int]string{1: "S2024/01"}); err != nil {
		t.Fatal(err)
	}

	rows, err := s.InternshipList(ctx, "CS301", "S2024/01")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].ICNo != "ic-"+rows[0].MatricNo {
		t.Fatalf("ic not decrypted: %+v", rows[0])
	}
}

func TestMentorshipListAggregatesFailedCourses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2021-04-01", "CS101", "CS102", "CS103")
	if _, err := s.AddStudent(ctx, Student{
		StudentName: "Alice", Cohort: "2021-09-01", Sem: "1", CUID: 1,
		ICNo: "990101-14-5678", MatricNo: "A21SC0001",
	}, "2021-04-01"); err != nil {
		t.Fatal(err)
	}
	scores, _ := s.ListScores(ctx)
	for _, row := range scores {
		switch *row.CourseCode {
		case "CS101":
			s.UpdateScoreAttempts(ctx, *row.ScoreID, map[int]string{1: "R2024/02", 2: "35"})
		case "CS102":
			s.UpdateScoreAttempts(ctx, *row.ScoreID, map[int]string{1: "R2024/02"})
		case "CS103":
			// Passed on resit, must not appear.
			s.UpdateScoreAttempts(ctx, *row.ScoreID, map[int]string{1: "R2024/02", 2: "65"})
		}
	}

	rows, err := s.MentorshipList(ctx, "r2024/02")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].FailedCourses != "CS101, CS102" {
		t.Fatalf("failed courses = %q", rows[0].FailedCourses)
	}
	if rows[0].ICNo != "990101-14-5678" {
		t.Fatalf("ic not decrypted: %+v", rows[0])
	}
}

func TestScoresByCohortVersionWindows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	// CS101 has two versions; the 2021 cohort falls in the first window.
	seedCourses(t, s, "2020-01-01", "CS101", "CS102")
	seedCourses(t, s, "2022-01-01", "CS101")

	if _, err := s.AddStudent(ctx, Student{
		StudentName: "Alice", Cohort: "2021-09-01", Sem: "1", CUID: 1,
		ICNo: "x", MatricNo: "A21SC0001",
	}, "2020-01-01"); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ScoresByCohort(ctx, 2021)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (CS101 + CS102)", len(rows))
	}
	for _, r := range rows {
		if r.RequestYear != 2021 || r.Cohort != 2021 {
			t.Fatalf("unexpected row: %+v", r)
		}
		if r.ScoreID == nil {
			t.Fatalf("seeded score should join: %+v", r)
		}
	}

	empty, err := s.ScoresByCohort(ctx, 1999)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("1999 cohort should be empty, got %d", len(empty))
	}
}

func TestScoresReport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2021-04-01", "CS101", "CS102")
	if _, err := s.AddStudent(ctx, Student{
		StudentName: "Alice", Cohort: "2021-09-01", Sem: "1", CUID: 1,
		ICNo: "x", MatricNo: "A21SC0001",
	}, "2021-04-01"); err != nil {
		t.Fatal(err)
	}
	scores, _ := s.ListScores(ctx)
	for _, row := range scores {
		if *row.CourseCode == "CS101" {
			s.UpdateScoreAttempts(ctx, *row.ScoreID, map[int]string{1: "42", 2: "68"})
		}
	}

	report, err := s.ScoresReportFor(ctx, "A21SC0001")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.CoursesByYear) != 2 || len(report.AllAttempts) != 2 {
		t.Fatalf("report sizes: %d/%d", len(report.CoursesByYear), len(report.AllAttempts))
	}
	for _, c := range report.CoursesByYear {
		if c.CourseCode == "CS101" && *c.Result != "68" {
			t.Fatalf("latest attempt should win, got %q", *c.Result)
		}
		if c.CourseYear != "Year 1" {
			t.Fatalf("course year missing: %+v", c)
		}
	}
}

func TestRefDataCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddProgram(ctx, "BCS"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddProgram(ctx, "BCS"); err != ErrRefValueExists {
		t.Fatalf("expected ErrRefValueExists, got %v", err)
	}
	if err := s.RenameProgram(ctx, "BCS", "BCSCU"); err != nil {
		t.Fatal(err)
	}
	if err := s.RenameProgram(ctx, "ghost", "x"); err != ErrRefValueNotFound {
		t.Fatalf("expected ErrRefValueNotFound, got %v", err)
	}
	programs, err := s.Programs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(programs) != 1 || programs[0] != "BCSCU" {
		t.Fatalf("programs = %v", programs)
	}
	if err := s.DeleteProgram(ctx, "BCSCU"); err != nil {
		t.Fatal(err)
	}

	if err := s.AddLecturer(ctx, "Dr. Lim"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddStudentStatus(ctx, "Deferred"); err != nil {
		t.Fatal(err)
	}
	statuses, _ := s.StudentStatuses(ctx)
	if len(statuses) != 1 || statuses[0] != "Deferred" {
		t.Fatalf("statuses = %v", statuses)
	}
}

func TestDashboardSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedCourses(t, s, "2021-04-01", "CS101")
	for i, m := range []string{"A21SC0001", "A21SC0002", "A21SC0003"} {
		st := Student{
			StudentName: m, Cohort: "2021-09-01", Sem: "1", CUID: i,
			ICNo: "x", MatricNo: m,
		}
		if i == 2 {
			st.StudentStatus = "Graduate"
		}
		if _, err := s.AddStudent(ctx, st, "2021-04-01"); err != nil {
			t.Fatal(err)
		}
	}
	students, _ := s.ListStudents(ctx)
	for _, st := range students {
		if st.StudentStatus == "Graduate" {
			if err := s.UpdateStudent(ctx, st.StudentID, map[string]any{"GRADUATED_ON": "2024-08-01"}); err != nil {
				t.Fatal(err)
			}
		}
	}

	sum, err := s.DashboardSummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalStudents != 3 || sum.StatusBreakdown["Active"] != 2 ||
		sum.StatusBreakdown["Graduate"] != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.GraduatedCount != 1 || sum.UngraduatedCount != 2 {
		t.Fatalf("graduation split = %+v", sum)
	}
}
