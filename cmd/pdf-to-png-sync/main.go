// Command pdf-to-png-sync re-renders every PDF in ./pdf whose PNG in ./png is
// missing or older than the PDF.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"

	"github.com/book-expert/pdf-to-png-sync/internal/notify"
	"github.com/book-expert/pdf-to-png-sync/internal/pdfrender"
)

const (
	defaultInputDir   = "pdf"
	defaultOutputDir  = "png"
	defaultConfigPath = "project.toml"
	configURLEnv      = "PDF_TO_PNG_CONFIG_URL"
)

// Define named types for each section of the configuration.
type configPaths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
}

type configLogsDir struct {
	PDFToPNG string `toml:"pdf_to_png"`
}

type configSettings struct {
	Tool       string `toml:"tool"`
	ToolBinary string `toml:"tool_binary"`
	DPI        int    `toml:"dpi"`
	Workers    int    `toml:"workers"`
}

type configBlankDetection struct {
	Enabled           bool    `toml:"enabled"`
	FuzzPercent       int     `toml:"fast_fuzz_percent"`
	NonWhiteThreshold float64 `toml:"fast_non_white_threshold"`
}

// config represents the structure of the project.toml file.
type config struct {
	Paths          configPaths          `toml:"paths"`
	LogsDir        configLogsDir        `toml:"logs_dir"`
	NATS           notify.Config        `toml:"nats"`
	Settings       configSettings       `toml:"settings"`
	BlankDetection configBlankDetection `toml:"blank_detection"`
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main logic function, separated from main to allow for easier testing and
// clean exit handling.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flgs, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := safeLoadConfig(flgs.configPath)
	if err != nil {
		return err
	}

	options, err := mergeConfigAndFlags(&cfg, flgs)
	if err != nil {
		return err
	}

	options.MessageOutput = stdout
	if flgs.progress {
		options.ProgressBarOutput = stderr
	}

	log, err := setupLogger(cfg.LogsDir.PDFToPNG)
	if err != nil {
		return fmt.Errorf("could not set up logger: %w", err)
	}

	defer func() {
		cerr := log.Close()
		if cerr != nil {
			_, _ = fmt.Fprintf(stderr, "failed to close logger: %v\n", cerr)
		}
	}()

	remoteErr := loadRemoteConfig(os.Getenv(configURLEnv), &cfg, log, flgs.verbose)
	if remoteErr != nil {
		return remoteErr
	}

	if cfg.NATS.Enabled() {
		notifier, notifyErr := notify.Connect(ctx, &cfg.NATS, log)
		if notifyErr != nil {
			return fmt.Errorf("could not set up notifications: %w", notifyErr)
		}
		defer notifier.Close()

		options.Notifier = notifier
	}

	return processWithLogger(ctx, &options, log)
}

// processWithLogger runs the processor and turns item failures into an error.
func processWithLogger(
	ctx context.Context,
	options *pdfrender.Options,
	log *logger.Logger,
) error {
	processor := pdfrender.NewProcessor(options, log)

	report, procErr := processor.Process(ctx)
	if procErr != nil {
		return fmt.Errorf("PDF processing failed: %w", procErr)
	}

	if report.HasFailures() {
		return fmt.Errorf(
			"%d of %d PDF(s) failed to convert: %w",
			len(report.Failures),
			report.Total(),
			report.Err(),
		)
	}

	return nil
}

// safeLoadConfig loads the TOML config, allowing missing file without error.
func safeLoadConfig(path string) (config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			var emptyCfg config

			return emptyCfg, nil
		}

		return config{}, fmt.Errorf("error loading config file: %w", err)
	}

	return cfg, nil
}

// loadConfig reads and parses the project.toml file.
func loadConfig(path string) (config, error) {
	var cfg config

	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		var zero config

		return zero, fmt.Errorf("failed to decode config file: %w", err)
	}

	return cfg, nil
}

// loadRemoteConfig overlays the NATS section with the one served at url.
// Paths and settings stay local so that the tool keeps working from its
// directory.
func loadRemoteConfig(url string, cfg *config, log *logger.Logger, verbose bool) error {
	if url == "" {
		return nil
	}

	var remote config

	loadErr := configurator.LoadFromURL(url, &remote, log)
	if loadErr != nil {
		return fmt.Errorf("failed to load configuration from URL %s: %w", url, loadErr)
	}

	if verbose {
		log.Info("Configuration loaded from %s", url)
	}

	cfg.NATS = remote.NATS

	return nil
}

// flags represents the command-line arguments.
type flags struct {
	inputPath  string
	outputPath string
	configPath string
	tool       string
	dpi        int
	workers    int
	checkBlank bool
	progress   bool
	verbose    bool
}

// parseFlags defines and parses command-line flags.
func parseFlags(args []string, output io.Writer) (flags, error) {
	var flagsVar flags

	flagSet := flag.NewFlagSet("pdf-to-png-sync", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.StringVar(&flagsVar.inputPath, "input", "", "Input directory for PDF files (default \"pdf\").")
	flagSet.StringVar(&flagsVar.outputPath, "output", "", "Output directory for PNG files (default \"png\").")
	flagSet.StringVar(&flagsVar.configPath, "config", defaultConfigPath, "Path to an optional TOML config file.")
	flagSet.StringVar(&flagsVar.tool, "tool", "", "Rasterizer: magick or ghostscript.")
	flagSet.IntVar(&flagsVar.dpi, "dpi", 0, "Resolution in DPI for the output images (default 600).")
	flagSet.IntVar(&flagsVar.workers, "workers", 0, "Number of PDFs converted at once (default 1).")
	flagSet.BoolVar(&flagsVar.checkBlank, "check-blank", false, "Warn about renderings that come out blank.")
	flagSet.BoolVar(&flagsVar.progress, "progress", false, "Show a progress bar on stderr.")
	flagSet.BoolVar(&flagsVar.verbose, "verbose", false, "Also log progress messages to stdout and the log file.")

	err := flagSet.Parse(args)
	if err != nil {
		return flags{}, fmt.Errorf("invalid arguments: %w", err)
	}

	return flagsVar, nil
}

// mergeConfigAndFlags combines settings from the config file and command-line flags.
// Flags take precedence over the config file settings.
func mergeConfigAndFlags(cfg *config, flgs flags) (pdfrender.Options, error) {
	opts := pdfrender.Options{
		ProgressBarOutput:      nil,
		MessageOutput:          nil,
		Notifier:               nil,
		InputPath:              firstNonEmpty(flgs.inputPath, cfg.Paths.InputDir, defaultInputDir),
		OutputPath:             firstNonEmpty(flgs.outputPath, cfg.Paths.OutputDir, defaultOutputDir),
		Tool:                   "",
		ToolBinary:             cfg.Settings.ToolBinary,
		DPI:                    cfg.Settings.DPI,
		Workers:                cfg.Settings.Workers,
		Verbose:                flgs.verbose,
		CheckBlank:             cfg.BlankDetection.Enabled || flgs.checkBlank,
		BlankFuzzPercent:       cfg.BlankDetection.FuzzPercent,
		BlankNonWhiteThreshold: cfg.BlankDetection.NonWhiteThreshold,
	}

	tool, toolErr := pdfrender.ParseTool(firstNonEmpty(flgs.tool, cfg.Settings.Tool))
	if toolErr != nil {
		return pdfrender.Options{}, toolErr
	}

	opts.Tool = tool

	// Command-line flags override config file values.
	if flgs.dpi > 0 {
		opts.DPI = flgs.dpi
	}

	if flgs.workers > 0 {
		opts.Workers = flgs.workers
	}

	return opts, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}

// setupLogger initializes the logger, creating the log directory if needed.
func setupLogger(logDirConfig string) (*logger.Logger, error) {
	logDir := logDirConfig
	if logDir == "" {
		logDir = filepath.Join(os.TempDir(), "pdf-to-png-sync")
	}

	logFileName := fmt.Sprintf("log_%s.log", time.Now().Format("20060102_150405"))

	log, err := logger.New(logDir, logFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}
