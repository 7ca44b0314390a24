package importer

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/JustynLim/SoC-SMS/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	s, err := storage.Open(zerolog.Nop(), filepath.Join(t.TempDir(), "sms.db"), key)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func workbook(t *testing.T, build func(f *excelize.File)) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	build(f)
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(buf.Bytes())
}

func TestMarksheetImport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateCourse(ctx, storage.Course{
		CourseCode:           "INT120CT",
		Module:               "Computing Project",
		CourseClassification: "Compulsory",
		CourseVersion:        "2021-04-01",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddStudent(ctx, storage.Student{
		StudentName: "Alice", Cohort: "2021-09-01", Sem: "1", CUID: 7001,
		ICNo: "x", MatricNo: "A21SC0001",
	}, "2021-04-01"); err != nil {
		t.Fatal(err)
	}

	// Sheet name uses the short code; resolution maps it to INT120CT.
	book := workbook(t, func(f *excelize.File) {
		sheet := "120CT - BCSCU"
		f.NewSheet(sheet)
		f.SetCellValue(sheet, "A1", "No")
		f.SetCellValue(sheet, "F1", "CU-ID")
		f.SetCellValue(sheet, "J1", "Mark")
		f.SetCellValue(sheet, "K1", "Note")
		// Valid row.
		f.SetCellValue(sheet, "F2", 7001)
		f.SetCellValue(sheet, "J2", 72)
		f.SetCellValue(sheet, "K2", "Mark copied to SIS")
		// Missing the note, must be skipped.
		f.SetCellValue(sheet, "F3", 7001)
		f.SetCellValue(sheet, "J3", 99)
		// Unknown CU-ID, must be skipped.
		f.SetCellValue(sheet, "F4", 9999)
		f.SetCellValue(sheet, "J4", 50)
		f.SetCellValue(sheet, "K4", "Mark copied")
	})

	result, err := Marksheet(ctx, zerolog.Nop(), s, book)
	if err != nil {
		t.Fatal(err)
	}
	if result.Updated != 1 || result.Skipped != 2 || result.Sheets != 1 {
		t.Fatalf("result = %+v", result)
	}

	scores, _ := s.ListScores(ctx)
	if *scores[0].Attempt1 != "72" {
		t.Fatalf("attempt 1 = %q, want 72", *scores[0].Attempt1)
	}
}

func TestMarksheetIgnoresUnrelatedSheets(t *testing.T) {
	s := newTestStore(t)
	book := workbook(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "nothing here")
	})
	result, err := Marksheet(context.Background(), zerolog.Nop(), s, book)
	if err != nil {
		t.Fatal(err)
	}
	if result.Sheets != 0 || result.Updated != 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestStudentSheetImport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := workbook(t, func(f *excelize.File) {
		sheet := "Active"
		f.NewSheet(sheet)
		headers := []string{"Name", "Cohort", "Sem", "CU ID", "IC No",
			"Mobile No.", "Email", "BM", "English", "Entry-Q", "Matric No", "Grad"}
		for i, h := range headers {
			cellRef, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cellRef, h)
		}
		// Row 2 is a sub-header in real sheets; data starts at row 3.
		values := []string{"Alice Tan", "01/09/2021", "1", "7001", "990101-14-5678",
			"0123456789", "alice@example.com", "A", "B", "STPM", "A21SC0001", ""}
		for i, v := range values {
			cellRef, _ := excelize.CoordinatesToCellName(i+1, 3)
			f.SetCellValue(sheet, cellRef, v)
		}
	})

	result, err := StudentSheet(ctx, zerolog.Nop(), s, book, "Active")
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 1 || result.Errors != 0 {
		t.Fatalf("result = %+v", result)
	}

	students, _ := s.ListStudents(ctx)
	if len(students) != 1 {
		t.Fatalf("students = %d", len(students))
	}
	st := students[0]
	if st.Cohort != "2021-09-01" {
		t.Fatalf("cohort not normalized: %q", st.Cohort)
	}
	if st.ICNo != "990101-14-5678" || st.StudentStatus != "Active" {
		t.Fatalf("student = %+v", st)
	}
}

func TestStudentSheetRejectsUnknownTab(t *testing.T) {
	s := newTestStore(t)
	book := workbook(t, func(f *excelize.File) {})
	if _, err := StudentSheet(context.Background(), zerolog.Nop(), s, book, "Mystery"); err == nil {
		t.Fatal("unknown tab should fail")
	}
}

func TestCourseStructureImport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := workbook(t, func(f *excelize.File) {
		sheet := "Course-Str"
		f.NewSheet(sheet)
		f.SetCellValue(sheet, "A1", "Course Code")
		f.SetCellValue(sheet, "A2", "Year 1")
		f.SetCellValue(sheet, "A3", "CS101")
		f.SetCellValue(sheet, "B3", "Programming Basics")
		f.SetCellValue(sheet, "C3", "Compulsory")
		f.SetCellValue(sheet, "E3", 4)
		f.SetCellValue(sheet, "K3", 0.4) // fraction, must become 40
		f.SetCellValue(sheet, "L3", 60)
		f.SetCellValue(sheet, "M3", 4)
		f.SetCellValue(sheet, "N3", "Dr. Lim")
		// Heading only, no module: skipped.
		f.SetCellValue(sheet, "A4", "CSX")
	})

	result, err := CourseStructure(ctx, zerolog.Nop(), s, book, "2021-04-01", false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 1 || result.Errors != 0 {
		t.Fatalf("result = %+v", result)
	}

	courses, _ := s.ListCourses(ctx)
	if len(courses) != 1 {
		t.Fatalf("courses = %d", len(courses))
	}
	c := courses[0]
	if c.CourseYear != "Year 1" || c.CoursePriority != 4 || c.CourseStatus != "Active" {
		t.Fatalf("course = %+v", c)
	}
	if c.CUCWCredits != 40 || c.CUEXCredits != 60 {
		t.Fatalf("credit split = %v/%v", c.CUCWCredits, c.CUEXCredits)
	}

	// Re-import refreshes in place.
	book2 := workbook(t, func(f *excelize.File) {
		sheet := "Course-Str"
		f.NewSheet(sheet)
		f.SetCellValue(sheet, "A2", "Year 1")
		f.SetCellValue(sheet, "A3", "CS101")
		f.SetCellValue(sheet, "B3", "Programming Fundamentals")
		f.SetCellValue(sheet, "C3", "Compulsory")
		f.SetCellValue(sheet, "E3", 4)
	})
	result2, err := CourseStructure(ctx, zerolog.Nop(), s, book2, "2021-04-01", false)
	if err != nil {
		t.Fatal(err)
	}
	if result2.Updated != 1 || result2.Inserted != 0 {
		t.Fatalf("result2 = %+v", result2)
	}
}
