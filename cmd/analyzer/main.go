// Command analyzer runs the batch analysis over a stock-price CSV and prints
// the console report. Charts, CSV exports and the workbook are written when
// their output paths are configured.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"stocklens/internal/charts"
	"stocklens/internal/config"
	"stocklens/internal/infrastructure"
	"stocklens/internal/pipeline"
	"stocklens/internal/report"
	"stocklens/internal/services"
	"stocklens/internal/validation"
	"stocklens/pkg/contracts"
)

// options holds the command-line flags. Zero values leave the loaded
// configuration untouched.
type options struct {
	configPath  string
	envPath     string
	input       string
	variant     string
	chartsDir   string
	xlsxPath    string
	csvDir      string
	printJSON   bool
	noColor     bool
	top         int
	window      int
	showVersion bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "analyzer: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("analyzer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.envPath, "env", "", "dotenv file loaded before the environment is read (default .env when present)")
	fs.StringVar(&opts.input, "input", "", "CSV file to analyze")
	fs.StringVar(&opts.variant, "variant", "", "pipeline variant: batch or interactive")
	fs.StringVar(&opts.chartsDir, "charts-dir", "", "directory for PNG charts")
	fs.StringVar(&opts.xlsxPath, "xlsx", "", "path of the XLSX workbook")
	fs.StringVar(&opts.csvDir, "csv-dir", "", "directory for CSV exports")
	fs.BoolVar(&opts.printJSON, "json", false, "print the JSON summary document")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable colored console output")
	fs.IntVar(&opts.top, "top", 0, "number of symbols per ranking")
	fs.IntVar(&opts.window, "window", 0, "moving average window in rows")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// apply overlays the flags onto cfg
func (o *options) apply(cfg *config.Config) {
	if o.input != "" {
		cfg.Analysis.InputPath = o.input
	}
	if o.variant != "" {
		cfg.Analysis.Variant = o.variant
	}
	if o.chartsDir != "" {
		cfg.Output.ChartsDir = o.chartsDir
	}
	if o.xlsxPath != "" {
		cfg.Output.WorkbookPath = o.xlsxPath
	}
	if o.csvDir != "" {
		cfg.Output.CSVDir = o.csvDir
	}
	if o.noColor {
		cfg.Output.NoColor = true
	}
	if o.top > 0 {
		cfg.Analysis.TopN = o.top
	}
	if o.window > 0 {
		cfg.Analysis.MovingAverageWindow = o.window
	}
}

// loadEnv loads the dotenv file named by -env, or .env when it exists
func loadEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load()
	}
	return nil
}

// loadConfig resolves defaults, YAML, environment and flags, in that order
func loadConfig(opts *options) (*config.Config, error) {
	if err := loadEnv(opts.envPath); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()
	logger = infrastructure.WithComponent(logger, "analyzer")

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Error("Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}()

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}
	paths := cfg.Output.ResolveOutputPaths(wd)

	// fail before the analysis when the input or an output location is unusable
	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateInputFile(cfg.Analysis.InputPath); err != nil {
		return err
	}
	if err := validator.ValidateOutputs(paths); err != nil {
		return err
	}

	p, err := pipeline.New(cfg.Analysis, providers, logger)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, pipeline.Source{Path: cfg.Analysis.InputPath})
	if err != nil {
		logger.ErrorContext(ctx, "analysis failed",
			slog.String("input", cfg.Analysis.InputPath),
			slog.String("error", err.Error()))
		return err
	}
	for _, w := range res.Warnings {
		logger.WarnContext(ctx, w)
	}

	if err := printReport(report.NewConsole(stdout, cfg.Output.NoColor), cfg, res, opts.printJSON); err != nil {
		return err
	}

	return writeArtifacts(ctx, cfg, paths, res, logger)
}

// printReport renders the console sections the run produced
func printReport(console *report.Console, cfg *config.Config, res *pipeline.Result, printJSON bool) error {
	console.Preview(res.Table, cfg.Analysis.PreviewRows)
	console.Cleaning(res.Metadata.Cleaning)
	if len(res.Summaries) > 0 {
		console.Describe(res.Summaries)
	}
	if res.Rankings != nil {
		console.Rankings(*res.Rankings, res.ReturnColumn)
	}
	if len(res.Monthly) > 0 {
		console.Monthly(res.Monthly, cfg.Analysis.PreviewRows)
	}
	if len(res.Correlation.Columns) > 0 {
		console.Correlation(res.Correlation)
	}

	if printJSON || cfg.Analysis.Variant == config.VariantInteractive {
		return console.JSON(res.Results)
	}
	return nil
}

func writeArtifacts(ctx context.Context, cfg *config.Config, paths config.OutputPaths, res *pipeline.Result, logger *slog.Logger) error {
	if !paths.Any() {
		return nil
	}

	svc := services.NewArtifactService(paths,
		charts.OptionsInches(cfg.Output.ChartWidth, cfg.Output.ChartHeight), logger)
	written, err := svc.Write(ctx, res)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "artifacts written", slog.Int("count", written.Count()))
	return nil
}
