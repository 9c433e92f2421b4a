package service

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/sells-group/regrule/internal/model"
)

// ProcessFolder uploads every file directly inside source, classifies its
// clauses and writes one report per document into target. Documents run
// independently; a failed document never aborts the batch.
func (s *Service) ProcessFolder(ctx context.Context, source, target string) (*model.BatchResult, error) {
	if err := checkFolder(source); err != nil {
		return nil, err
	}
	paths, err := listFiles(source, anyFile)
	if err != nil {
		return nil, err
	}

	zap.L().Info("processing documents",
		zap.String("source", source),
		zap.String("target", target),
		zap.Int("documents", len(paths)),
		zap.Int("concurrency", s.opts.MaxConcurrentDocuments),
	)

	batch := &model.BatchResult{
		Kind: model.RunKindProcess,
		Results: fanOut(ctx, paths, s.opts.MaxConcurrentDocuments, func(ctx context.Context, path string) model.DocumentResult {
			return s.ProcessDocument(ctx, path, target)
		}),
	}
	s.record(ctx, model.RunKindProcess, source, batch)
	logBatch(batch)
	return batch, nil
}

// ProcessDocument turns one source document into a report spreadsheet.
func (s *Service) ProcessDocument(ctx context.Context, path, target string) model.DocumentResult {
	name := filepath.Base(path)
	res := model.DocumentResult{File: name}
	log := zap.L().With(zap.String("file", name))

	fail := func(msg string, err error) model.DocumentResult {
		log.Error(msg, zap.Error(err))
		res.Status = model.DocumentFailed
		res.Error = err.Error()
		return res
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fail("read document failed", err)
	}

	clauses, err := s.client.Upload(ctx, name, content)
	if err != nil {
		return fail("upload failed", err)
	}

	rep, err := s.builder.Build(ctx, clauses)
	if err != nil {
		return fail("build report failed", err)
	}

	out, err := rep.Sheet.Save(target, name)
	if err != nil {
		res.Clauses = rep.Clauses
		return fail("save report failed", err)
	}

	res.Status = model.DocumentProcessed
	res.Output = out
	res.Clauses = rep.Clauses
	res.Rows = len(rep.Rows)
	res.Automatable = rep.Automatable
	res.Degraded = rep.Degraded
	log.Info("document processed",
		zap.String("output", out),
		zap.Int("clauses", res.Clauses),
		zap.Int("rows", res.Rows),
		zap.Int("automatable", res.Automatable),
	)
	return res
}
