// Package service runs the folder-level batch operations: document
// processing, spreadsheet enrichment, counting and column formatting.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/regrule/internal/model"
	"github.com/sells-group/regrule/internal/pipeline"
	"github.com/sells-group/regrule/internal/report"
	"github.com/sells-group/regrule/internal/store"
	"github.com/sells-group/regrule/pkg/ruleapi"
)

// ErrInvalidFolder is returned when a batch operation is given a path that
// is not a readable directory.
var ErrInvalidFolder = errors.New("service: invalid folder path")

// Options tunes a Service.
type Options struct {
	Layout report.Layout
	// MaxConcurrentDocuments bounds documents processed at once.
	MaxConcurrentDocuments int
	// MaxConcurrentFiles bounds spreadsheets enriched at once.
	MaxConcurrentFiles int
	// MaxConcurrentRows bounds row goroutines per spreadsheet. Zero means
	// unbounded; the client gate still limits outstanding calls.
	MaxConcurrentRows int
	// Store records runs when non-nil.
	Store store.Store
}

// Service wires the rule service client to the report builder and the
// enrichment pipeline.
type Service struct {
	client   ruleapi.Client
	builder  *report.Builder
	enricher *pipeline.Enricher
	store    store.Store
	opts     Options
}

// New creates a Service.
func New(client ruleapi.Client, opts Options) *Service {
	if opts.MaxConcurrentDocuments <= 0 {
		opts.MaxConcurrentDocuments = 5
	}
	if opts.MaxConcurrentFiles <= 0 {
		opts.MaxConcurrentFiles = 5
	}
	if opts.Layout == (report.Layout{}) {
		opts.Layout = report.DefaultLayout()
	}
	return &Service{
		client:   client,
		builder:  report.NewBuilder(pipeline.NewRuleClassifier(client), opts.Layout),
		enricher: pipeline.NewEnricher(client, opts.MaxConcurrentRows),
		store:    opts.Store,
		opts:     opts,
	}
}

// task handles one file of a batch.
type task func(ctx context.Context, path string) model.DocumentResult

// fanOut runs fn for every path with at most limit in flight. Results keep
// the order of paths. A panicking task is recovered into a failed result.
func fanOut(ctx context.Context, paths []string, limit int, fn task) []model.DocumentResult {
	results := make([]model.DocumentResult, len(paths))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = runTask(ctx, path, fn)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runTask(ctx context.Context, path string, fn task) (res model.DocumentResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("document task panicked",
				zap.String("file", path),
				zap.Any("panic", r),
			)
			res = model.DocumentResult{
				File:   path,
				Status: model.DocumentFailed,
				Error:  fmt.Sprintf("panic: %v", r),
			}
		}
		res.Duration = time.Since(start)
	}()
	return fn(ctx, path)
}

// checkFolder verifies that path is an existing directory.
func checkFolder(path string) error {
	if strings.TrimSpace(path) == "" {
		return eris.Wrap(ErrInvalidFolder, "empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return eris.Wrapf(ErrInvalidFolder, "%s: %v", path, err)
	}
	if !info.IsDir() {
		return eris.Wrapf(ErrInvalidFolder, "%s: not a directory", path)
	}
	return nil
}

// listFiles returns the regular files directly inside dir accepted by
// keep, sorted by name.
func listFiles(dir string, keep func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "service: read folder %s", dir)
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !keep(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// walkFiles returns every regular file under root accepted by keep.
func walkFiles(root string, keep func(name string) bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && keep(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "service: walk folder %s", root)
	}
	sort.Strings(paths)
	return paths, nil
}

func anyFile(string) bool { return true }

func isXLSX(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx") && !strings.HasPrefix(name, "~$")
}

func isSpreadsheet(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return (ext == ".xlsx" || ext == ".xls") && !strings.HasPrefix(name, "~$")
}

// record stores a finished batch in the run ledger. Ledger failures are
// logged and never fail the batch.
func (s *Service) record(ctx context.Context, kind model.RunKind, source string, batch *model.BatchResult) {
	if s.store == nil {
		return
	}
	log := zap.L().With(zap.String("kind", string(kind)), zap.String("source", source))

	ctx = context.WithoutCancel(ctx)
	run, err := s.store.CreateRun(ctx, kind, source)
	if err != nil {
		log.Warn("record run failed", zap.Error(err))
		return
	}
	batch.RunID = run.ID

	status := model.RunStatusComplete
	if err := s.store.RecordDocuments(ctx, run.ID, batch.Results); err != nil {
		log.Warn("record run documents failed", zap.String("run_id", run.ID), zap.Error(err))
		status = model.RunStatusFailed
	}
	if len(batch.Results) > 0 && batch.Succeeded() == 0 {
		status = model.RunStatusFailed
	}
	if err := s.store.CompleteRun(ctx, run.ID, status, model.Summarize(*batch)); err != nil {
		log.Warn("complete run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func logBatch(batch *model.BatchResult) {
	zap.L().Info("batch complete",
		zap.String("kind", string(batch.Kind)),
		zap.Int("documents", len(batch.Results)),
		zap.Int("succeeded", batch.Succeeded()),
		zap.Int("failed", batch.Failed()),
	)
}
