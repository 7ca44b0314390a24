// Package pdf renders the generated student lists as A4 documents.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/JustynLim/SoC-SMS/internal/storage"
)

type column struct {
	header string
	width  float64
	value  func(storage.ListEntry) string
}

var baseColumns = []column{
	{"Student Name", 52, func(e storage.ListEntry) string { return e.StudentName }},
	{"Matric No", 28, func(e storage.ListEntry) string { return e.MatricNo }},
	{"IC No", 32, func(e storage.ListEntry) string { return e.ICNo }},
	{"Mobile No", 28, func(e storage.ListEntry) string { return e.MobileNo }},
	{"Email", 46, func(e storage.ListEntry) string { return e.Email }},
}

// InternshipList renders the internship list for one course and session.
func InternshipList(courseCode, session string, rows []storage.ListEntry) ([]byte, error) {
	title := fmt.Sprintf("Internship List - %s (%s)", courseCode, session)
	return render(title, baseColumns, rows)
}

// MentorshipList renders the mentorship list for one resit session, with the
// failed courses appended as an extra column.
func MentorshipList(session string, rows []storage.ListEntry) ([]byte, error) {
	cols := make([]column, len(baseColumns), len(baseColumns)+1)
	copy(cols, baseColumns)
	cols[0].width = 40
	cols[4].width = 40
	cols = append(cols, column{"Failed Courses", 38,
		func(e storage.ListEntry) string { return e.FailedCourses }})
	title := fmt.Sprintf("Mentorship List - %s", session)
	return render(title, cols, rows)
}

func render(title string, cols []column, rows []storage.ListEntry) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(12, 12, 12)
	doc.SetAutoPageBreak(true, 14)
	doc.SetHeaderFunc(func() {
		doc.SetFont("Helvetica", "B", 13)
		doc.CellFormat(0, 8, title, "", 1, "C", false, 0, "")
		doc.Ln(2)
		writeHeaderRow(doc, cols)
	})
	doc.SetFooterFunc(func() {
		doc.SetY(-12)
		doc.SetFont("Helvetica", "", 8)
		doc.CellFormat(0, 6, fmt.Sprintf("Page %d", doc.PageNo()), "", 0, "C", false, 0, "")
	})
	doc.AddPage()

	doc.SetFont("Helvetica", "", 9)
	for i, row := range rows {
		fill := i%2 == 1
		for _, col := range cols {
			doc.CellFormat(col.width, 7, col.value(row), "1", 0, "L", fill, 0, "")
		}
		doc.Ln(-1)
	}
	if len(rows) == 0 {
		doc.CellFormat(0, 7, "No matching students.", "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeHeaderRow(doc *fpdf.Fpdf, cols []column) {
	doc.SetFont("Helvetica", "B", 9)
	doc.SetFillColor(230, 230, 230)
	for _, col := range cols {
		doc.CellFormat(col.width, 7, col.header, "1", 0, "L", true, 0, "")
	}
	doc.Ln(-1)
	doc.SetFont("Helvetica", "", 9)
	doc.SetFillColor(245, 245, 245)
}
