package report

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/regrule/internal/model"
)

// ErrMissingColumn is returned when a spreadsheet lacks a required column.
var ErrMissingColumn = errors.New("report: missing column")

// Workbook is an existing report spreadsheet opened for editing. Only the
// first sheet is read and written.
type Workbook struct {
	path    string
	file    *xlsx.File
	sheet   *xlsx.Sheet
	columns map[string]int
}

// Open reads the spreadsheet at path.
func Open(path string) (*Workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("report: %s has no sheets", path)
	}

	w := &Workbook{path: path, file: f, sheet: f.Sheets[0], columns: make(map[string]int)}
	if len(w.sheet.Rows) > 0 && w.sheet.Rows[0] != nil {
		for i, cell := range w.sheet.Rows[0].Cells {
			name := strings.TrimSpace(cell.String())
			if _, dup := w.columns[name]; name != "" && !dup {
				w.columns[name] = i
			}
		}
	}
	return w, nil
}

// Column returns the 0-based index of the named header column.
func (w *Workbook) Column(name string) (int, bool) {
	i, ok := w.columns[name]
	return i, ok
}

// Width returns the number of columns of the widest row.
func (w *Workbook) Width() int {
	n := 0
	for _, row := range w.sheet.Rows {
		if row != nil {
			n = max(n, len(row.Cells))
		}
	}
	return n
}

func (w *Workbook) require(names ...string) error {
	for _, name := range names {
		if _, ok := w.columns[name]; !ok {
			return eris.Wrapf(ErrMissingColumn, "%s: %s", w.path, name)
		}
	}
	return nil
}

// Rows returns the data rows below the header.
func (w *Workbook) Rows() ([]*model.ReportRow, error) {
	if err := w.require(model.ColAtomRule, model.ColAutomatable, model.ColCategory); err != nil {
		return nil, err
	}

	var rows []*model.ReportRow
	for i := 1; i < len(w.sheet.Rows); i++ {
		row := w.sheet.Rows[i]
		r := &model.ReportRow{
			Index:       i - 1,
			Order:       w.text(row, model.ColRuleOrder),
			ClauseText:  w.text(row, model.ColRuleContent),
			Atomicity:   w.text(row, model.ColAtom),
			AtomText:    w.text(row, model.ColAtomRule),
			Automatable: isSet(w.text(row, model.ColAutomatable)),
			Category:    w.text(row, model.ColCategory),
			Type:        w.text(row, model.ColType),
		}
		if v := w.text(row, model.ColCommonElement); v != "" {
			r.CommonElement = &v
		}
		if v := w.text(row, model.ColCDSRLResult); v != "" {
			r.CDSRLResult = &v
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// CountAutomatable returns the number of data rows flagged automatable.
func (w *Workbook) CountAutomatable() (int, error) {
	if err := w.require(model.ColAutomatable); err != nil {
		return 0, err
	}
	n := 0
	for i := 1; i < len(w.sheet.Rows); i++ {
		if isSet(w.text(w.sheet.Rows[i], model.ColAutomatable)) {
			n++
		}
	}
	return n, nil
}

// EnsureEnrichmentColumns appends the enrichment header cells that are
// not present yet.
func (w *Workbook) EnsureEnrichmentColumns() {
	if len(w.sheet.Rows) == 0 {
		w.sheet.AddRow()
	}
	header := w.sheet.Rows[0]
	for _, name := range model.EnrichmentHeader {
		if _, ok := w.columns[name]; ok {
			continue
		}
		idx := max(w.Width(), len(header.Cells))
		cellAt(header, idx).SetString(name)
		w.columns[name] = idx
	}
}

// WriteEnrichment stores the enrichment fields of rows. Rows whose fields
// are nil are left untouched.
func (w *Workbook) WriteEnrichment(rows []*model.ReportRow) error {
	w.EnsureEnrichmentColumns()
	ceCol := w.columns[model.ColCommonElement]
	cdCol := w.columns[model.ColCDSRLResult]

	for _, r := range rows {
		if r == nil || (r.CommonElement == nil && r.CDSRLResult == nil) {
			continue
		}
		idx := r.Index + 1
		if idx <= 0 || idx >= len(w.sheet.Rows) || w.sheet.Rows[idx] == nil {
			return eris.Errorf("report: row %d out of range in %s", r.Index, w.path)
		}
		row := w.sheet.Rows[idx]
		if r.CommonElement != nil {
			cellAt(row, ceCol).SetString(*r.CommonElement)
		}
		if r.CDSRLResult != nil {
			cellAt(row, cdCol).SetString(*r.CDSRLResult)
		}
	}
	return nil
}

// SetColumnWidth sets the width of the 0-based columns start through end.
func (w *Workbook) SetColumnWidth(start, end int, width float64) {
	w.sheet.SetColWidth(start+1, end+1, width)
}

// Save writes the workbook back to the file it was opened from.
func (w *Workbook) Save() error {
	if err := w.file.Save(w.path); err != nil {
		return eris.Wrapf(err, "report: save %s", w.path)
	}
	return nil
}

func (w *Workbook) text(row *xlsx.Row, column string) string {
	i, ok := w.columns[column]
	if !ok || row == nil || i >= len(row.Cells) {
		return ""
	}
	return row.Cells[i].String()
}

// cellAt returns the cell at index i, padding the row with empty cells.
func cellAt(row *xlsx.Row, i int) *xlsx.Cell {
	for len(row.Cells) <= i {
		row.AddCell()
	}
	return row.Cells[i]
}

// isSet reports whether a 0/1 flag cell holds 1. Numeric cells written by
// other tools may read back as "1.0".
func isSet(v string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return err == nil && f == 1
}
