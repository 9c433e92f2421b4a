package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/regrule/internal/model"
	"github.com/sells-group/regrule/internal/report"
)

// CountFolder counts the automatable rows of every .xlsx file directly
// inside folder and writes the tally to count.txt. Unreadable files are
// reported as failed and left out of the total.
func (s *Service) CountFolder(ctx context.Context, folder string) (*model.BatchResult, error) {
	if err := checkFolder(folder); err != nil {
		return nil, err
	}
	paths, err := listFiles(folder, isXLSX)
	if err != nil {
		return nil, err
	}

	results := fanOut(ctx, paths, s.opts.MaxConcurrentFiles, func(_ context.Context, path string) model.DocumentResult {
		res := model.DocumentResult{File: filepath.Base(path)}
		n, err := report.CountAutomatable(path)
		if err != nil {
			zap.L().Warn("count spreadsheet failed", zap.String("file", path), zap.Error(err))
			res.Status = model.DocumentFailedRead
			res.Error = err.Error()
			return res
		}
		res.Status = model.DocumentCounted
		res.Automatable = n
		return res
	})

	var counts []report.FileCount
	for _, r := range results {
		if r.Status == model.DocumentCounted {
			counts = append(counts, report.FileCount{File: r.File, Count: r.Automatable})
		}
	}
	out, total, err := report.WriteCountSummary(folder, counts)
	if err != nil {
		return nil, err
	}

	batch := &model.BatchResult{Kind: model.RunKindCount, Total: total, Results: results}
	s.record(ctx, model.RunKindCount, folder, batch)
	zap.L().Info("count complete", zap.String("summary", out), zap.Int("total", total))
	return batch, nil
}

// BeautifyFolder sizes the enrichment columns of every spreadsheet directly
// inside folder. Spreadsheets without enrichment columns and legacy .xls
// files are skipped.
func (s *Service) BeautifyFolder(ctx context.Context, folder string) (*model.BatchResult, error) {
	return s.formatFolder(ctx, model.RunKindBeautify, folder, report.Beautify)
}

// SetColumnWidthFolder sets the width of the last two columns of every
// spreadsheet directly inside folder.
func (s *Service) SetColumnWidthFolder(ctx context.Context, folder string, width float64) (*model.BatchResult, error) {
	return s.formatFolder(ctx, model.RunKindSetWidth, folder, func(path string) error {
		return report.SetTrailingColumnWidth(path, width)
	})
}

func (s *Service) formatFolder(ctx context.Context, kind model.RunKind, folder string, apply func(path string) error) (*model.BatchResult, error) {
	if err := checkFolder(folder); err != nil {
		return nil, err
	}
	paths, err := listFiles(folder, isSpreadsheet)
	if err != nil {
		return nil, err
	}

	results := fanOut(ctx, paths, s.opts.MaxConcurrentFiles, func(_ context.Context, path string) model.DocumentResult {
		res := model.DocumentResult{File: filepath.Base(path)}
		if strings.EqualFold(filepath.Ext(path), ".xls") {
			res.Status = model.DocumentSkipped
			res.Error = "legacy .xls format is not supported"
			return res
		}
		if err := apply(path); err != nil {
			if errors.Is(err, report.ErrNoEnrichmentColumns) {
				res.Status = model.DocumentSkipped
			} else {
				zap.L().Warn("format spreadsheet failed", zap.String("file", path), zap.Error(err))
				res.Status = model.DocumentFailed
			}
			res.Error = err.Error()
			return res
		}
		res.Status = model.DocumentModified
		return res
	})

	batch := &model.BatchResult{Kind: kind, Results: results}
	s.record(ctx, kind, folder, batch)
	logBatch(batch)
	return batch, nil
}
