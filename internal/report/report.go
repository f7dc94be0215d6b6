// Package report exports a learner's progress as an Excel workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/lenslove/academy/internal/curriculum"
	"github.com/lenslove/academy/internal/progress"
)

const (
	SummarySheet = "Progress"
	LessonsSheet = "Lessons"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	numFmtPercent = 9 // built-in "0%"
)

// WriteProgress writes a workbook with a summary sheet and one row per lesson.
func WriteProgress(w io.Writer, reg *curriculum.Registry, userID string, rec progress.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeSummary(f, reg, userID, rec); err != nil {
		return err
	}

	if _, err := f.NewSheet(LessonsSheet); err != nil {
		return fmt.Errorf("create lessons sheet: %w", err)
	}
	if err := writeLessons(f, reg, rec); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, reg *curriculum.Registry, userID string, rec progress.Record) error {
	rows := [][]any{
		{"User", userID},
		{"Level", progress.Level(rec.XP)},
		{"XP", rec.XP},
		{"Progress", progress.Fraction(rec.XP)},
		{"Lessons completed", fmt.Sprintf("%d of %d", len(rec.CompletedLessons), reg.Count())},
	}
	if err := setRows(f, SummarySheet, rows); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: numFmtPercent})
	if err != nil {
		return fmt.Errorf("create percent style: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "B4", "B4", style); err != nil {
		return fmt.Errorf("style progress cell: %w", err)
	}
	return f.SetColWidth(SummarySheet, "A", "A", 20)
}

func writeLessons(f *excelize.File, reg *curriculum.Registry, rec progress.Record) error {
	rows := [][]any{{"Module", "Lesson", "Completed"}}
	for _, module := range reg.Modules() {
		lessons, err := reg.Lessons(module)
		if err != nil {
			return err
		}
		for _, lesson := range lessons {
			done := "no"
			if rec.Completed(lesson) {
				done = "yes"
			}
			rows = append(rows, []any{module, lesson, done})
		}
	}
	if err := setRows(f, LessonsSheet, rows); err != nil {
		return err
	}
	return f.SetColWidth(LessonsSheet, "A", "B", 32)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
