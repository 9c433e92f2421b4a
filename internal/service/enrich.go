package service

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/sells-group/regrule/internal/model"
	"github.com/sells-group/regrule/internal/report"
)

// EnrichFolder re-opens every .xlsx file under folder, recursively, and
// fills the enrichment columns of its automatable rows.
func (s *Service) EnrichFolder(ctx context.Context, folder string) (*model.BatchResult, error) {
	if err := checkFolder(folder); err != nil {
		return nil, err
	}
	paths, err := walkFiles(folder, isXLSX)
	if err != nil {
		return nil, err
	}

	zap.L().Info("enriching spreadsheets",
		zap.String("folder", folder),
		zap.Int("files", len(paths)),
	)

	batch := &model.BatchResult{
		Kind:    model.RunKindEnrich,
		Results: fanOut(ctx, paths, s.opts.MaxConcurrentFiles, s.EnrichFile),
	}
	s.record(ctx, model.RunKindEnrich, folder, batch)
	logBatch(batch)
	return batch, nil
}

// EnrichFile enriches one spreadsheet in place.
func (s *Service) EnrichFile(ctx context.Context, path string) model.DocumentResult {
	res := model.DocumentResult{File: path}
	log := zap.L().With(zap.String("file", path))

	failRead := func(err error) model.DocumentResult {
		log.Error("read spreadsheet failed", zap.Error(err))
		res.Status = model.DocumentFailedRead
		res.Error = err.Error()
		return res
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			res.Status = model.DocumentFailedRead
			res.Error = "File does not exist"
			return res
		}
		return failRead(err)
	}
	if err := os.Chmod(path, 0o666); err != nil {
		return failRead(err)
	}

	wb, err := report.Open(path)
	if err != nil {
		return failRead(err)
	}
	rows, err := wb.Rows()
	if err != nil {
		return failRead(err)
	}

	stats := s.enricher.Enrich(ctx, rows)
	res.Rows = len(rows)
	res.Automatable = stats.Attempted
	res.Degraded = stats.Failed

	if err := wb.WriteEnrichment(rows); err != nil {
		res.Status = model.DocumentFailedSave
		res.Error = err.Error()
		return res
	}
	if err := wb.Save(); err != nil {
		log.Error("save spreadsheet failed", zap.Error(err))
		res.Status = model.DocumentFailedSave
		res.Error = err.Error()
		return res
	}

	res.Status = model.DocumentModified
	log.Info("spreadsheet enriched",
		zap.Int("attempted", stats.Attempted),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
	)
	return res
}
