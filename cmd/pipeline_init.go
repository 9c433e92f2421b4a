package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/regrule/internal/config"
	"github.com/sells-group/regrule/internal/governor"
	"github.com/sells-group/regrule/internal/report"
	"github.com/sells-group/regrule/internal/resilience"
	"github.com/sells-group/regrule/internal/service"
	"github.com/sells-group/regrule/internal/store"
	"github.com/sells-group/regrule/pkg/ruleapi"
)

// pipelineEnv holds the initialized client, run ledger, and batch service
// needed by the batch and serve commands.
type pipelineEnv struct {
	Store    store.Store // nil when the ledger is disabled
	Governor *governor.Governor
	Client   ruleapi.Client
	Service  *service.Service
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the configuration, opens the run ledger and
// builds the Service. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st != nil {
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	gov := governor.New(cfg.Governor.MaxConcurrent, cfg.Governor.CallsPerSecond)
	client := ruleapi.NewClient(clientOptions(cfg, gov)...)

	svc := service.New(client, service.Options{
		Layout:                 layoutFromConfig(cfg.Report),
		MaxConcurrentDocuments: cfg.Batch.MaxConcurrentDocuments,
		MaxConcurrentFiles:     cfg.Batch.MaxConcurrentFiles,
		MaxConcurrentRows:      cfg.Batch.MaxConcurrentRows,
		Store:                  st,
	})

	zap.L().Debug("pipeline initialized",
		zap.String("base_url", cfg.Service.BaseURL),
		zap.String("store", cfg.Store.Driver),
		zap.Int("max_concurrent", gov.MaxConcurrent()),
		zap.Duration("interval", gov.Interval()),
	)

	return &pipelineEnv{
		Store:    st,
		Governor: gov,
		Client:   client,
		Service:  svc,
	}, nil
}

// clientOptions maps the service, retry and governor settings onto
// ruleapi options. Enrichment calls pass through gov on every attempt.
func clientOptions(c *config.Config, gov ruleapi.Gate) []ruleapi.Option {
	paths := make(map[ruleapi.Endpoint]string)
	for name, p := range c.Service.Paths() {
		paths[ruleapi.Endpoint(name)] = p
	}

	opts := []ruleapi.Option{
		ruleapi.WithBaseURL(c.Service.BaseURL),
		ruleapi.WithPaths(paths),
		ruleapi.WithGate(gov, ruleapi.EndpointExtract, ruleapi.EndpointGenerate),
	}
	for _, e := range ruleapi.Endpoints {
		policy := c.Retry.Policy(string(e)).Resilience()
		policy.OnRetry = resilience.RetryLogger("ruleapi", string(e))
		opts = append(opts, ruleapi.WithRetry(e, policy))
	}
	if c.Service.TimeoutSecs > 0 {
		opts = append(opts, ruleapi.WithAttemptTimeout(time.Duration(c.Service.TimeoutSecs)*time.Second))
	}
	return opts
}

func layoutFromConfig(rc config.ReportConfig) report.Layout {
	l := report.DefaultLayout()
	if rc.MaxColumnWidth > 0 {
		l.MaxColumnWidth = rc.MaxColumnWidth
	}
	if rc.ColumnPadding >= 0 {
		l.ColumnPadding = rc.ColumnPadding
	}
	if rc.MinRowHeight > 0 {
		l.MinRowHeight = rc.MinRowHeight
	}
	if rc.MaxRowHeight > 0 {
		l.MaxRowHeight = rc.MaxRowHeight
	}
	if rc.LineHeight > 0 {
		l.LineHeight = rc.LineHeight
	}
	return l
}

// initStore opens the configured run ledger. The "none" driver disables it.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "regrule.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "none", "":
		return nil, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
