// Package report writes and edits the classification spreadsheets.
package report

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/regrule/internal/model"
)

// SheetName is the name of the single worksheet of a generated report.
const SheetName = "Sheet1"

// Sheet is a report worksheet under construction. It is owned by a single
// goroutine and is not safe for concurrent use.
type Sheet struct {
	file  *xlsx.File
	sheet *xlsx.Sheet
	rows  int
}

// NewSheet creates a workbook with one sheet holding the report header.
func NewSheet() (*Sheet, error) {
	f := xlsx.NewFile()
	sh, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "report: add sheet")
	}
	header := sh.AddRow()
	for _, name := range model.ReportHeader {
		header.AddCell().SetString(name)
	}
	return &Sheet{file: f, sheet: sh}, nil
}

// Len returns the number of data rows written so far.
func (s *Sheet) Len() int {
	return s.rows
}

// AppendGroup appends the rows of one clause. When the group spans more
// than one row, the leading group columns of its first row are merged down
// across the group and centered.
func (s *Sheet) AppendGroup(rows []model.ReportRow) {
	if len(rows) == 0 {
		return
	}

	first := s.sheet.AddRow()
	writeRow(first, rows[0])
	for _, r := range rows[1:] {
		writeRow(s.sheet.AddRow(), r)
	}
	s.rows += len(rows)

	if len(rows) > 1 {
		for col := 0; col < model.GroupColumns; col++ {
			cell := first.Cells[col]
			cell.Merge(0, len(rows)-1)
			center(cell)
		}
	}
}

// Save writes the workbook to dir as <base name of sourceName>.xlsx,
// creating dir when needed and overwriting an existing file.
func (s *Sheet) Save(dir, sourceName string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create folder %s", dir)
	}
	path := filepath.Join(dir, OutputName(sourceName))
	if err := s.file.Save(path); err != nil {
		return "", eris.Wrapf(err, "report: save %s", path)
	}
	return path, nil
}

// OutputName derives the spreadsheet file name from a source document name.
func OutputName(sourceName string) string {
	base := filepath.Base(sourceName)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
}

func writeRow(row *xlsx.Row, r model.ReportRow) {
	row.AddCell().SetString(r.Order)
	row.AddCell().SetString(r.ClauseText)
	setFlag(row.AddCell(), r.Atomicity)
	row.AddCell().SetString(r.AtomText)
	setFlag(row.AddCell(), model.SupervisionVerdict{Automatable: r.Automatable}.Cell())
	row.AddCell().SetString(r.Category)
	row.AddCell().SetString(r.Type)
}

// setFlag writes 0/1 flags as numbers so downstream readers can compare
// them numerically. Blank flags stay blank.
func setFlag(cell *xlsx.Cell, v string) {
	switch v {
	case "":
		cell.SetString("")
	case "0":
		cell.SetInt(0)
	case "1":
		cell.SetInt(1)
	default:
		cell.SetString(v)
	}
}

func center(cell *xlsx.Cell) {
	style := cell.GetStyle()
	style.Alignment.Horizontal = "center"
	style.Alignment.Vertical = "center"
	style.ApplyAlignment = true
}
