// Package importer ingests the faculty Excel workbooks: per-course marksheets
// and the student/course-structure datasheets.
package importer

import (
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/JustynLim/SoC-SMS/internal/storage"
)

// Marksheet tabs are named "<short code> - BCSCU".
var courseSheetRe = regexp.MustCompile(`(?i)^([A-Za-z0-9][A-Za-z0-9\-_]{2,})\s*-\s*BCSCU$`)

// Fixed marksheet layout: CU-ID in column F, score in J, the "Mark copied"
// note in K.
const (
	colCUID  = 5
	colScore = 9
	colNote  = 10
)

// MarksheetResult tallies one marksheet import run.
type MarksheetResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Sheets  int `json:"sheets"`
}

// Marksheet imports scores from an .xlsm marksheet workbook. Course sheets
// are processed concurrently; rows only count as updated once the score
// landed in an attempt slot.
func Marksheet(ctx context.Context, logger zerolog.Logger, store *storage.Store, r io.Reader) (*MarksheetResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var matching []string
	for _, name := range f.GetSheetList() {
		if courseSheetRe.MatchString(name) {
			matching = append(matching, name)
		}
	}
	result := &MarksheetResult{}
	if len(matching) == 0 {
		logger.Info().Msg("no marksheet tabs found")
		return result, nil
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, sheet := range matching {
		g.Go(func() error {
			updated, skipped, err := importSheet(ctx, logger, store, f, sheet)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Updated += updated
			result.Skipped += skipped
			result.Sheets++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info().
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("sheets", result.Sheets).
		Msg("marksheet import complete")
	return result, nil
}

func importSheet(ctx context.Context, logger zerolog.Logger, store *storage.Store, f *excelize.File, sheet string) (updated, skipped int, err error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, 0, err
	}
	if len(rows) < 2 {
		return 0, 0, nil
	}
	data := rows[1:]

	shortCode := courseSheetRe.FindStringSubmatch(sheet)[1]
	courseCode, err := store.ResolveCourseCode(ctx, shortCode)
	if err != nil {
		return 0, 0, err
	}
	if courseCode == "" {
		logger.Warn().Str("sheet", sheet).Str("short_code", shortCode).
			Msg("cannot resolve course code, skipping sheet")
		return 0, len(data), nil
	}

	for _, row := range data {
		cuID, err := strconv.Atoi(strings.TrimSpace(cell(row, colCUID)))
		if err != nil {
			skipped++
			continue
		}
		if !strings.Contains(strings.ToLower(cell(row, colNote)), "mark copied") {
			skipped++
			continue
		}
		score := strings.TrimSpace(cell(row, colScore))
		if score == "" {
			score = "-"
		}

		matricNo, ok, err := store.MatricByCUID(ctx, cuID)
		if err != nil {
			return updated, skipped, err
		}
		if !ok {
			skipped++
			continue
		}

		switch err := store.ApplyMarksheetScore(ctx, matricNo, courseCode, score); err {
		case nil:
			updated++
		case storage.ErrScoreNotFound, storage.ErrNoOpenAttempt:
			skipped++
		default:
			return updated, skipped, err
		}
	}
	return updated, skipped, nil
}

// cell reads a column that may be absent when excelize trims trailing blanks.
func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
