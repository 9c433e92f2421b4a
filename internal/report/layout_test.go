package report

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/regrule/internal/model"
)

func TestDisplayWidth(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"监管", 4},
		{"a监b", 4},
		{"short\nmuch longer", 11},
		{"ＡＢ", 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayWidth(tt.in), tt.in)
	}
}

func TestLayout_ColumnWidth(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, 5.0, l.ColumnWidth(0))
	assert.Equal(t, 15.0, l.ColumnWidth(10))
	assert.Equal(t, 45.0, l.ColumnWidth(40))
	assert.Equal(t, 45.0, l.ColumnWidth(400))
}

func TestLayout_RowHeight(t *testing.T) {
	l := DefaultLayout()
	assert.Equal(t, 15.0, l.RowHeight(0))
	assert.Equal(t, 30.0, l.RowHeight(1))
	assert.Equal(t, 60.0, l.RowHeight(3))
	assert.Equal(t, 60.0, l.RowHeight(20))

	l.MinRowHeight = 20
	assert.Equal(t, 20.0, l.RowHeight(0))
}

func TestLayout_Apply(t *testing.T) {
	f := xlsx.NewFile()
	sh, err := f.AddSheet("s")
	require.NoError(t, err)
	r1 := sh.AddRow()
	r1.AddCell().SetString("ab")
	r1.AddCell().SetString("line1\nline2")
	r2 := sh.AddRow()
	r2.AddCell().SetString("监管规则")
	r2.AddCell().SetString("x")

	DefaultLayout().Apply(sh)

	assert.Equal(t, 30.0, sh.Rows[0].Height)
	assert.Equal(t, 15.0, sh.Rows[1].Height)
	assert.Equal(t, 13.0, colWidth(sh, 0))
	assert.Equal(t, 10.0, colWidth(sh, 1))
	assert.Nil(t, sh.Cols.FindColByIndex(0))
	for _, row := range sh.Rows {
		for _, c := range row.Cells {
			assert.True(t, c.GetStyle().Alignment.WrapText)
		}
	}
}

// colWidth returns the width set for the 0-based column i, or 0 when the
// column has no definition.
func colWidth(sh *xlsx.Sheet, i int) float64 {
	if c := sh.Cols.FindColByIndex(i + 1); c != nil {
		return c.Width
	}
	return 0
}

// savedCols returns the <col> elements of the first worksheet of the
// spreadsheet at path.
func savedCols(t *testing.T, path string) []savedCol {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "xl/worksheets/sheet1.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		var ws struct {
			Cols []savedCol `xml:"cols>col"`
		}
		require.NoError(t, xml.NewDecoder(rc).Decode(&ws))
		return ws.Cols
	}
	t.Fatalf("no worksheet in %s", path)
	return nil
}

type savedCol struct {
	Min   int     `xml:"min,attr"`
	Max   int     `xml:"max,attr"`
	Width float64 `xml:"width,attr"`
}

func TestLayout_SavedColumnsAreOneBased(t *testing.T) {
	b := NewBuilder(&stubClassifier{}, DefaultLayout())
	rep, err := b.Build(context.Background(), []model.Clause{{Order: "1", Content: "条款"}})
	require.NoError(t, err)
	path, err := rep.Sheet.Save(t.TempDir(), "doc.docx")
	require.NoError(t, err)

	cols := savedCols(t, path)
	covered := make(map[int]float64)
	for _, c := range cols {
		assert.GreaterOrEqual(t, c.Min, 1, "col min")
		assert.GreaterOrEqual(t, c.Max, c.Min, "col max")
		for i := c.Min; i <= c.Max; i++ {
			covered[i] = c.Width
		}
	}
	for i := 1; i <= len(model.ReportHeader); i++ {
		assert.Positive(t, covered[i], "column %d has no width", i)
	}
	assert.NotContains(t, covered, len(model.ReportHeader)+1)
	// The first column holds only its header and "1".
	assert.Equal(t, DefaultLayout().ColumnWidth(DisplayWidth(model.ReportHeader[0])), covered[1])
}
