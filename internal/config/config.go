package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"stocklens/internal/dataprocessing"
	apperrors "stocklens/internal/errors"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "STOCKLENS"

// Analysis variants
const (
	VariantBatch       = "batch"
	VariantInteractive = "interactive"
)

// Config represents the complete application configuration
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// AnalysisConfig controls ingestion, cleaning and feature derivation
type AnalysisConfig struct {
	InputPath           string     `yaml:"input_path" envconfig:"INPUT_PATH"`
	Variant             string     `yaml:"variant" envconfig:"VARIANT" validate:"oneof=batch interactive"`
	DateLayouts         LayoutList `yaml:"date_layouts" envconfig:"DATE_LAYOUTS" validate:"min=1,dive,required"`
	Thousands           string     `yaml:"thousands" envconfig:"THOUSANDS" validate:"max=1"`
	MovingAverageWindow int        `yaml:"moving_average_window" envconfig:"MOVING_AVERAGE_WINDOW" validate:"min=1"`
	TopN                int        `yaml:"top_n" envconfig:"TOP_N" validate:"min=1"`
	HistogramBins       int        `yaml:"histogram_bins" envconfig:"HISTOGRAM_BINS" validate:"min=1"`
	PreviewRows         int        `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" validate:"min=1"`
}

// OutputConfig controls where the batch run writes its artifacts
type OutputConfig struct {
	ChartsDir    string  `yaml:"charts_dir" envconfig:"CHARTS_DIR"`
	WorkbookPath string  `yaml:"workbook_path" envconfig:"WORKBOOK_PATH"`
	CSVDir       string  `yaml:"csv_dir" envconfig:"CSV_DIR"`
	ChartWidth   float64 `yaml:"chart_width" envconfig:"CHART_WIDTH" validate:"gt=0"`
	ChartHeight  float64 `yaml:"chart_height" envconfig:"CHART_HEIGHT" validate:"gt=0"`
	NoColor      bool    `yaml:"no_color" envconfig:"NO_COLOR"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	MaxUploadBytes int64           `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console stderr file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// TelemetryConfig contains OpenTelemetry configuration
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	ServiceVersion string `yaml:"service_version" envconfig:"SERVICE_VERSION"`
	Environment    string `yaml:"environment" envconfig:"ENVIRONMENT"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// LayoutList is a list of time layouts. In the environment the entries are
// separated by "|" since layouts such as "Jan 2, 2006" contain commas.
type LayoutList []string

// Decode implements envconfig.Decoder
func (l *LayoutList) Decode(value string) error {
	var layouts LayoutList
	for _, part := range strings.Split(value, "|") {
		if part = strings.TrimSpace(part); part != "" {
			layouts = append(layouts, part)
		}
	}
	*l = layouts
	return nil
}

// DefaultDateLayouts are tried in order when parsing the Date column.
var DefaultDateLayouts = LayoutList(dataprocessing.DefaultDateLayouts)

var validate = validator.New()

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. An empty path searches the
// usual locations and falls back to defaults when none exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("path", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg; keys absent from the file keep their current value
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks struct constraints and normalizes derived fields
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}

	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		return apperrors.NewConfigError(
			fmt.Sprintf("logging output %q requires a file path", c.Logging.Output), nil)
	}

	return nil
}

// SortByDate reports whether cleaning should order rows chronologically
func (a AnalysisConfig) SortByDate() bool {
	return a.Variant == VariantBatch
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"stocklens.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			InputPath:           "stock_data.csv",
			Variant:             VariantBatch,
			DateLayouts:         append(LayoutList(nil), DefaultDateLayouts...),
			MovingAverageWindow: dataprocessing.DefaultMovingAverageWindow,
			TopN:                dataprocessing.DefaultTopN,
			HistogramBins:       dataprocessing.DefaultHistogramBins,
			PreviewRows:         5,
		},
		Output: OutputConfig{
			ChartWidth:  10,
			ChartHeight: 6,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     false,
			MaxUploadBytes: 32 << 20,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     5,
				Burst:   10,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stderr",
			FilePath: "logs/stocklens.log",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "stocklens",
			ServiceVersion: "dev",
			Environment:    "development",
			TracingEnabled: false,
			TraceExporter:  "none",
			MetricsEnabled: true,
		},
	}
}
