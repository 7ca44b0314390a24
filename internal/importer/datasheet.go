package importer

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/JustynLim/SoC-SMS/internal/storage"
)

// DatasheetResult tallies a student datasheet import run.
type DatasheetResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Errors   int `json:"errors"`
}

// studentHeaders maps the datasheet header row to student fields.
var studentHeaders = map[string]string{
	"name":       "name",
	"cohort":     "cohort",
	"sem":        "sem",
	"cu id":      "cu_id",
	"ic no":      "ic_no",
	"mobile no.": "mobile",
	"mobile no":  "mobile",
	"email":      "email",
	"bm":         "bm",
	"english":    "english",
	"entry-q":    "entry_q",
	"matric no":  "matric",
	"grad":       "grad",
}

// StudentSheet imports one of the Active/Graduate/Withdraw tabs. The tab name
// doubles as the student status. Rows are keyed by matric number: existing
// students are refreshed, new ones inserted.
func StudentSheet(ctx context.Context, logger zerolog.Logger, store *storage.Store, r io.Reader, sheetName string) (*DatasheetResult, error) {
	status, err := statusForSheet(sheetName)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	// Row 1 carries the headers, row 2 a sub-header, data starts at row 3.
	if len(rows) < 3 {
		return &DatasheetResult{}, nil
	}

	fields := map[string]int{}
	for i, header := range rows[0] {
		if field, ok := studentHeaders[strings.ToLower(strings.TrimSpace(header))]; ok {
			if _, seen := fields[field]; !seen {
				fields[field] = i
			}
		}
	}
	for _, required := range []string{"name", "matric"} {
		if _, ok := fields[required]; !ok {
			return nil, fmt.Errorf("sheet %s: missing %q column", sheetName, required)
		}
	}

	at := func(row []string, field string) string {
		idx, ok := fields[field]
		if !ok {
			return ""
		}
		return strings.TrimSpace(cell(row, idx))
	}

	result := &DatasheetResult{}
	for _, row := range rows[2:] {
		matric := at(row, "matric")
		name := at(row, "name")
		if matric == "" || name == "" {
			continue
		}
		cuID, err := strconv.Atoi(at(row, "cu_id"))
		if err != nil {
			result.Errors++
			continue
		}
		st := storage.Student{
			StudentName:   name,
			Cohort:        normalizeCohort(at(row, "cohort")),
			Sem:           at(row, "sem"),
			CUID:          cuID,
			ICNo:          at(row, "ic_no"),
			MobileNo:      at(row, "mobile"),
			Email:         at(row, "email"),
			BM:            at(row, "bm"),
			English:       at(row, "english"),
			EntryQ:        at(row, "entry_q"),
			MatricNo:      matric,
			StudentStatus: status,
		}
		inserted, err := store.UpsertStudent(ctx, st, at(row, "grad"))
		if err != nil {
			logger.Warn().Err(err).Str("matric_no", matric).Msg("student row failed")
			result.Errors++
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

func statusForSheet(sheetName string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(sheetName)) {
	case "active":
		return "Active", nil
	case "graduate":
		return "Graduate", nil
	case "withdraw":
		return "Withdraw", nil
	}
	return "", fmt.Errorf("unknown datasheet tab %q", sheetName)
}

// normalizeCohort converts the day-first sheet dates to YYYY-MM-DD.
func normalizeCohort(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2/1/2006", "02-01-2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

// Course structure sheet layout: columns A through N, J unused.
const (
	colCourseCode = iota
	colModule
	colClassification
	colPreCoReq
	colCreditHour
	colLectHr
	colTutHr
	colLabHr
	colBLHr
	_ // J
	colCWCredits
	colEXCredits
	colLevel
	colLecturer
)

var yearHeadingRe = regexp.MustCompile(`(?i)^(Year\s*\d+|Compulsory)`)

// CourseStructure imports the Course-Str tab as a new course version. Year
// heading rows partition the sheet; legacy imports land as Inactive.
func CourseStructure(ctx context.Context, logger zerolog.Logger, store *storage.Store, r io.Reader, version string, isLegacy bool) (*DatasheetResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows("Course-Str")
	if err != nil {
		return nil, err
	}

	result := &DatasheetResult{}
	currentYear := ""
	for i, row := range rows {
		if i == 0 {
			continue
		}
		code := strings.TrimSpace(cell(row, colCourseCode))
		if m := yearHeadingRe.FindString(code); m != "" {
			currentYear = titleCase(m)
			continue
		}
		module := strings.TrimSpace(cell(row, colModule))
		classification := strings.TrimSpace(cell(row, colClassification))
		if code == "" || module == "" || classification == "" || currentYear == "" {
			continue
		}

		creditHour := numeric(cell(row, colCreditHour))
		course := storage.Course{
			CourseCode:           code,
			Module:               module,
			CourseClassification: classification,
			PreCoReq:             strings.TrimSpace(cell(row, colPreCoReq)),
			CreditHour:           creditHour,
			LectHrWk:             numeric(cell(row, colLectHr)),
			TutHrWk:              numeric(cell(row, colTutHr)),
			LabHrWk:              numeric(cell(row, colLabHr)),
			BLHrWk:               numeric(cell(row, colBLHr)),
			CUCWCredits:          percentage(cell(row, colCWCredits)),
			CUEXCredits:          percentage(cell(row, colEXCredits)),
			CourseLevel:          strings.TrimSpace(cell(row, colLevel)),
			Lecturer:             strings.TrimSpace(cell(row, colLecturer)),
			CourseStatus:         courseStatus(classification, creditHour, isLegacy),
			CourseYear:           currentYear,
			CoursePriority:       coursePriority(currentYear, cell(row, colLevel)),
			CourseVersion:        version,
		}
		inserted, err := store.UpsertCourse(ctx, course)
		if err != nil {
			logger.Warn().Err(err).Str("course_code", code).Msg("course row failed")
			result.Errors++
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

func courseStatus(classification string, creditHour float64, isLegacy bool) string {
	if isLegacy {
		return "Inactive"
	}
	if strings.EqualFold(strings.TrimSpace(classification), "inactive") || creditHour == 0 {
		return "Inactive"
	}
	return "Active"
}

func coursePriority(year, level string) int {
	if strings.EqualFold(year, "Compulsory") {
		return 0
	}
	if n, err := strconv.Atoi(strings.TrimSpace(level)); err == nil {
		return n
	}
	return 0
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func numeric(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

// percentage repairs sheet cells stored as fractions of 1.
func percentage(raw string) float64 {
	v := numeric(raw)
	if v > 0 && v <= 1 {
		return v * 100
	}
	return v
}
