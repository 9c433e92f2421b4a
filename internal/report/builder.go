package report

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regrule/internal/model"
)

// Classifier runs the rule pipeline for one clause.
type Classifier interface {
	Classify(ctx context.Context, clause model.Clause) model.ClauseResult
}

// Report is a fully assembled spreadsheet plus the rows written to it.
type Report struct {
	Sheet       *Sheet
	Rows        []model.ReportRow
	Clauses     int
	Automatable int
	// Degraded counts clauses written with at least one stage error.
	Degraded int
}

// Builder assembles a report from clauses in input order.
type Builder struct {
	classifier Classifier
	layout     Layout
	queueSize  int
}

// NewBuilder creates a Builder.
func NewBuilder(classifier Classifier, layout Layout) *Builder {
	return &Builder{classifier: classifier, layout: layout, queueSize: 16}
}

// Build feeds clauses through a queue with exactly one consumer. The
// consumer classifies a clause to completion and appends its rows before
// taking the next one, so row order always equals clause order and each
// group occupies a contiguous row range.
func (b *Builder) Build(ctx context.Context, clauses []model.Clause) (*Report, error) {
	sheet, err := NewSheet()
	if err != nil {
		return nil, err
	}

	queue := make(chan model.Clause, b.queueSize)
	go func() {
		defer close(queue)
		for _, c := range clauses {
			select {
			case queue <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	rep := &Report{Sheet: sheet}
	for clause := range queue {
		if ctx.Err() != nil {
			continue
		}
		res := b.classifier.Classify(ctx, clause)
		rows := res.Rows()
		for i := range rows {
			rows[i].Index = len(rep.Rows) + i
			if rows[i].Automatable {
				rep.Automatable++
			}
		}
		sheet.AppendGroup(rows)
		rep.Rows = append(rep.Rows, rows...)
		rep.Clauses++
		if len(res.Errs) > 0 {
			rep.Degraded++
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "report: build cancelled")
	}

	b.layout.Apply(sheet.sheet)

	zap.L().Debug("report assembled",
		zap.Int("clauses", rep.Clauses),
		zap.Int("rows", sheet.Len()),
		zap.Int("automatable", rep.Automatable),
	)
	return rep, nil
}
