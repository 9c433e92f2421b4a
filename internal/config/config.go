package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/regrule/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Service  ServiceConfig  `yaml:"service" mapstructure:"service"`
	Retry    RetryConfig    `yaml:"retry" mapstructure:"retry"`
	Governor GovernorConfig `yaml:"governor" mapstructure:"governor"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServiceConfig locates the remote rule service.
type ServiceConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	UploadPath   string `yaml:"upload_path" mapstructure:"upload_path"`
	CheckPath    string `yaml:"check_path" mapstructure:"check_path"`
	SplitPath    string `yaml:"split_path" mapstructure:"split_path"`
	IdentifyPath string `yaml:"identify_path" mapstructure:"identify_path"`
	ClassifyPath string `yaml:"classify_path" mapstructure:"classify_path"`
	ExtractPath  string `yaml:"extract_path" mapstructure:"extract_path"`
	GeneratePath string `yaml:"generate_path" mapstructure:"generate_path"`
	// TimeoutSecs bounds a single attempt. Zero leaves attempts unbounded.
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	// EndpointsFile optionally points at a YAML file of per-endpoint
	// path and retry overrides.
	EndpointsFile string `yaml:"endpoints_file" mapstructure:"endpoints_file"`
}

// Paths returns the configured path of each endpoint, keyed by endpoint name.
func (s ServiceConfig) Paths() map[string]string {
	return map[string]string{
		"upload":   s.UploadPath,
		"check":    s.CheckPath,
		"split":    s.SplitPath,
		"identify": s.IdentifyPath,
		"classify": s.ClassifyPath,
		"extract":  s.ExtractPath,
		"generate": s.GeneratePath,
	}
}

// RetryPolicy configures retry for one endpoint.
type RetryPolicy struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// Resilience converts the policy into a resilience.RetryConfig.
func (p RetryPolicy) Resilience() resilience.RetryConfig {
	return resilience.FromRetryConfig(p.MaxAttempts, p.InitialBackoffMs, p.MaxBackoffMs, p.Multiplier, p.JitterFraction)
}

// RetryConfig holds the per-endpoint retry policies. Endpoints without
// their own section use Default.
type RetryConfig struct {
	Default  RetryPolicy `yaml:"default" mapstructure:"default"`
	Identify RetryPolicy `yaml:"identify" mapstructure:"identify"`
	Extract  RetryPolicy `yaml:"extract" mapstructure:"extract"`
	Generate RetryPolicy `yaml:"generate" mapstructure:"generate"`
	// Overrides holds policies loaded from the endpoints file.
	Overrides map[string]RetryPolicy `yaml:"-" mapstructure:"-"`
}

// Policy returns the retry policy of the named endpoint.
func (r RetryConfig) Policy(endpoint string) RetryPolicy {
	if p, ok := r.Overrides[endpoint]; ok {
		return p
	}
	switch endpoint {
	case "identify":
		return r.Identify
	case "extract":
		return r.Extract
	case "generate":
		return r.Generate
	}
	return r.Default
}

// GovernorConfig bounds the enrichment calls.
type GovernorConfig struct {
	MaxConcurrent  int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	CallsPerSecond float64 `yaml:"calls_per_second" mapstructure:"calls_per_second"`
}

// ReportConfig sizes the generated spreadsheets.
type ReportConfig struct {
	MaxColumnWidth float64 `yaml:"max_column_width" mapstructure:"max_column_width"`
	ColumnPadding  float64 `yaml:"column_padding" mapstructure:"column_padding"`
	MaxRowHeight   float64 `yaml:"max_row_height" mapstructure:"max_row_height"`
	MinRowHeight   float64 `yaml:"min_row_height" mapstructure:"min_row_height"`
	LineHeight     float64 `yaml:"line_height" mapstructure:"line_height"`
	TrailingWidth  float64 `yaml:"trailing_width" mapstructure:"trailing_width"`
}

// BatchConfig configures folder-level fan-out.
type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
	MaxConcurrentFiles     int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
	MaxConcurrentRows      int `yaml:"max_concurrent_rows" mapstructure:"max_concurrent_rows"`
}

// StoreConfig configures the run ledger.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP command surface.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REGRULE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("service.base_url", "http://120.26.59.7:23262")
	v.SetDefault("service.upload_path", "/docxFile2rule")
	v.SetDefault("service.check_path", "/checkAtomRule")
	v.SetDefault("service.split_path", "/splitAtomRule")
	v.SetDefault("service.identify_path", "/identifyRule")
	v.SetDefault("service.classify_path", "/classifyRule")
	v.SetDefault("service.extract_path", "/extractCommonElement")
	v.SetDefault("service.generate_path", "/generateCDSRL")
	v.SetDefault("service.timeout_secs", 0)
	v.SetDefault("service.endpoints_file", "")
	for name, attempts := range map[string]int{"default": 5, "identify": 3, "extract": 5, "generate": 3} {
		v.SetDefault("retry."+name+".max_attempts", attempts)
		v.SetDefault("retry."+name+".initial_backoff_ms", 1000)
		v.SetDefault("retry."+name+".max_backoff_ms", 10000)
		v.SetDefault("retry."+name+".multiplier", 2.0)
		v.SetDefault("retry."+name+".jitter_fraction", 0.0)
	}
	v.SetDefault("governor.max_concurrent", 5)
	v.SetDefault("governor.calls_per_second", 1.0)
	v.SetDefault("report.max_column_width", 40)
	v.SetDefault("report.column_padding", 5)
	v.SetDefault("report.max_row_height", 60)
	v.SetDefault("report.min_row_height", 15)
	v.SetDefault("report.line_height", 15)
	v.SetDefault("report.trailing_width", 30)
	v.SetDefault("batch.max_concurrent_documents", 5)
	v.SetDefault("batch.max_concurrent_files", 5)
	v.SetDefault("batch.max_concurrent_rows", 0)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "regrule.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Service.EndpointsFile != "" {
		ep, err := LoadEndpoints(cfg.Service.EndpointsFile)
		if err != nil {
			return nil, err
		}
		ep.Apply(&cfg)
	}

	return &cfg, nil
}

// Validate reports configuration values the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Service.BaseURL) == "" {
		return eris.New("config: service.base_url is required")
	}
	if c.Service.TimeoutSecs < 0 {
		return eris.New("config: service.timeout_secs must not be negative")
	}
	if c.Governor.MaxConcurrent <= 0 {
		return eris.New("config: governor.max_concurrent must be positive")
	}
	if c.Governor.CallsPerSecond <= 0 {
		return eris.New("config: governor.calls_per_second must be positive")
	}
	if c.Batch.MaxConcurrentDocuments <= 0 || c.Batch.MaxConcurrentFiles <= 0 {
		return eris.New("config: batch concurrency must be positive")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.Errorf("config: store.database_url is required for %s", c.Store.Driver)
		}
	case "none", "":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
