package report

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regrule/internal/model"
)

// CountFileName is the summary written by WriteCountSummary.
const CountFileName = "count.txt"

// DefaultTrailingWidth is the default width of SetTrailingColumnWidth.
const DefaultTrailingWidth = 30

// ErrNoEnrichmentColumns is returned by Beautify for spreadsheets that have
// not been enriched.
var ErrNoEnrichmentColumns = errors.New("report: no enrichment columns")

// FileCount is the automatable row count of one spreadsheet.
type FileCount struct {
	File  string
	Count int
}

// CountAutomatable opens path and counts its automatable rows.
func CountAutomatable(path string) (int, error) {
	w, err := Open(path)
	if err != nil {
		return 0, err
	}
	return w.CountAutomatable()
}

// WriteCountSummary writes count.txt into folder, replacing any previous
// summary. The first line holds the total; one line per file follows,
// sorted by file name.
func WriteCountSummary(folder string, counts []FileCount) (string, int, error) {
	sorted := append([]FileCount(nil), counts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].File < sorted[j].File })

	total := 0
	var body strings.Builder
	for _, c := range sorted {
		total += c.Count
		body.WriteString(c.File)
		body.WriteString(": ")
		body.WriteString(strconv.Itoa(c.Count))
		body.WriteString("\n")
	}

	path := filepath.Join(folder, CountFileName)
	content := "Total Count: " + strconv.Itoa(total) + "\n" + body.String()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", 0, eris.Wrapf(err, "report: write %s", path)
	}
	return path, total, nil
}

// Beautify widens the enrichment columns of the spreadsheet at path to fit
// their content and aligns their cells to the bottom with wrapping.
func Beautify(path string) error {
	w, err := Open(path)
	if err != nil {
		return err
	}

	var cols []int
	for _, name := range model.EnrichmentHeader {
		i, ok := w.Column(name)
		if !ok {
			return eris.Wrapf(ErrNoEnrichmentColumns, "%s", path)
		}
		cols = append(cols, i)
	}

	for _, col := range cols {
		longest := 0
		for _, row := range w.sheet.Rows {
			if row == nil || col >= len(row.Cells) {
				continue
			}
			cell := row.Cells[col]
			longest = max(longest, utf8.RuneCountInString(cell.String()))
			style := cell.GetStyle()
			style.Alignment.Vertical = "bottom"
			style.Alignment.WrapText = true
			style.ApplyAlignment = true
		}
		w.SetColumnWidth(col, col, float64(longest+2)*1.2)
	}
	return w.Save()
}

// SetTrailingColumnWidth sets the width of the last two columns of the
// spreadsheet at path.
func SetTrailingColumnWidth(path string, width float64) error {
	if width <= 0 {
		return eris.Errorf("report: invalid column width %v", width)
	}
	w, err := Open(path)
	if err != nil {
		return err
	}
	n := w.Width()
	if n == 0 {
		return w.Save()
	}
	w.SetColumnWidth(max(n-2, 0), n-1, width)
	return w.Save()
}
