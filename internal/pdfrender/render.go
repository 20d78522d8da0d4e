package pdfrender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/book-expert/logger"

	"github.com/book-expert/pdf-to-png-sync/internal/pngcheck"
)

// Notifier is told about every rendering that was written.
type Notifier interface {
	Notify(ctx context.Context, base, pngPath string) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string) error { return nil }

// Options holds all configurable parameters for a Processor.
// This struct is used to initialize a new Processor with user-defined settings.
type Options struct {
	// ProgressBarOutput receives the progress bar. Defaults to io.Discard so
	// that stdout carries only the per-item lines.
	ProgressBarOutput io.Writer
	// MessageOutput receives one line per source item. Defaults to os.Stdout.
	MessageOutput io.Writer
	// Notifier is called after each successful conversion. Defaults to a no-op.
	Notifier Notifier
	// InputPath is the directory holding <base>.pdf files.
	InputPath string
	// OutputPath is the directory holding <base>.png files. Created if missing.
	OutputPath string
	// Tool picks the rasterizer. Defaults to ImageMagick.
	Tool Tool
	// ToolBinary overrides the executable name for Tool.
	ToolBinary string
	// DPI is the rasterization resolution. Defaults to 600.
	DPI int
	// Workers is the number of items converted at once. Defaults to 1.
	Workers int
	// Verbose sends progress chatter through the logger. The logger also
	// echoes to stdout, so this is off by default.
	Verbose bool
	// CheckBlank warns about renderings that come out blank.
	CheckBlank bool
	// BlankFuzzPercent is how far from pure white a pixel may be and still
	// count as white. Defaults to 5.
	BlankFuzzPercent int
	// BlankNonWhiteThreshold is the ratio of non-white pixels below which a
	// rendering is blank. Defaults to 0.005.
	BlankNonWhiteThreshold float64
}

// Processor brings a directory of PNG renderings up to date with its PDFs.
type Processor struct {
	executor CommandExecutor
	log      *logger.Logger
	config   Options
	msgMu    sync.Mutex
}

// NewProcessor creates and initializes a new Processor with the given options and logger.
// It sets defaults for any zero-value fields in the Options struct.
func NewProcessor(opts *Options, log *logger.Logger) *Processor {
	applyDefaultOptions(opts)

	return &Processor{
		config:   *opts,
		log:      log,
		executor: &defaultExecutor{}, // Use the real command executor by default.
		msgMu:    sync.Mutex{},
	}
}

const (
	defaultDPI                    = 600
	defaultWorkers                = 1
	defaultBlankFuzzPercent       = 5
	defaultBlankNonWhiteThreshold = 0.005
)

// applyDefaultOptions fills zero-value fields in Options.
func applyDefaultOptions(opts *Options) {
	if opts.DPI == 0 {
		opts.DPI = defaultDPI
	}

	opts.Workers = defaultIntNonPositive(opts.Workers, defaultWorkers)
	opts.BlankFuzzPercent = defaultIntNonPositive(
		opts.BlankFuzzPercent,
		defaultBlankFuzzPercent,
	)
	opts.BlankNonWhiteThreshold = defaultFloatNonPositive(
		opts.BlankNonWhiteThreshold,
		defaultBlankNonWhiteThreshold,
	)

	if opts.Tool == "" {
		opts.Tool = ToolImageMagick
	}

	if opts.ToolBinary == "" {
		opts.ToolBinary = defaultBinaryFor(opts.Tool)
	}

	opts.ProgressBarOutput = defaultWriterNil(opts.ProgressBarOutput, io.Discard)
	opts.MessageOutput = defaultWriterNil(opts.MessageOutput, os.Stdout)

	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
}

func defaultIntNonPositive(v, def int) int {
	if v <= 0 {
		return def
	}

	return v
}

func defaultFloatNonPositive(v, def float64) float64 {
	if v <= 0 {
		return def
	}

	return v
}

func defaultWriterNil(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}

	return w
}

// Process scans the input directory and converts every stale PDF.
// The returned error covers only conditions that stop the whole run; per-item
// failures are collected in the Report.
func (processor *Processor) Process(ctx context.Context) (Report, error) {
	// Step 1: Validate the configuration before starting any work.
	err := processor.validateConfig()
	if err != nil {
		return Report{}, err
	}

	// Step 2: Without an input directory there is nothing to do.
	err = requireDirectory(processor.config.InputPath)
	if err != nil {
		return Report{}, err
	}

	// Step 3: An output directory that cannot be created fails every item.
	err = setupOutputDirectory(processor.config.OutputPath)
	if err != nil {
		return Report{}, err
	}

	// Step 4: Discover and process.
	items, err := DiscoverPDFs(processor.config.InputPath)
	if err != nil {
		return Report{}, fmt.Errorf("failed to discover PDFs: %w", err)
	}

	processor.infof(
		"Found %d PDF(s) in %s.",
		len(items),
		processor.config.InputPath,
	)

	report := processor.processAllPDFs(ctx, items)

	processor.infof(
		"Run finished: %d created, %d updated, %d unchanged, %d failed.",
		report.Created,
		report.Updated,
		report.Unchanged,
		len(report.Failures),
	)

	return report, nil
}

// validateConfig checks if the essential configuration options have been provided.
func (processor *Processor) validateConfig() error {
	if processor.config.InputPath == "" {
		return ErrInputPathRequired
	}

	if processor.config.OutputPath == "" {
		return ErrOutputPathRequired
	}

	if processor.config.DPI < 0 {
		return ErrPositiveDPIRequired
	}

	_, toolErr := ParseTool(string(processor.config.Tool))

	return toolErr
}

// processOnePDF decides whether item is stale and, if so, renders it.
func (processor *Processor) processOnePDF(ctx context.Context, item SourceItem) (Decision, error) {
	output, statErr := StatOutput(processor.config.OutputPath, item.BaseName)
	if statErr != nil {
		processor.say(failureMessage(item.BaseName, statErr))

		return DecisionUnchanged, statErr
	}

	decision := Decide(item, output)
	processor.say(decision.Message(item.BaseName))

	if !decision.NeedsConversion() {
		return decision, nil
	}

	renderErr := processor.rasterize(ctx, item.Path, output.Path)
	if renderErr != nil {
		return decision, renderErr
	}

	verifyErr := processor.verifyOutput(output.Path)
	if verifyErr != nil {
		return decision, verifyErr
	}

	notifyErr := processor.config.Notifier.Notify(ctx, item.BaseName, output.Path)
	if notifyErr != nil {
		// The rendering is on disk; a failed announcement does not undo it.
		processor.log.Warn("Notification for %s failed: %v", item.BaseName, notifyErr)
	}

	return decision, nil
}

// verifyOutput confirms the rasterizer left a file behind and, if requested,
// warns when it is blank. Blank renderings are kept.
func (processor *Processor) verifyOutput(pngPath string) error {
	_, statErr := os.Stat(pngPath)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", pngPath, ErrOutputNotProduced)
		}

		return fmt.Errorf("could not stat %s: %w", pngPath, statErr)
	}

	if !processor.config.CheckBlank {
		return nil
	}

	result, analyzeErr := pngcheck.Analyze(
		pngPath,
		processor.config.BlankFuzzPercent,
		processor.config.BlankNonWhiteThreshold,
	)
	if analyzeErr != nil {
		return fmt.Errorf("rendering is not a readable image: %w", analyzeErr)
	}

	if result.Blank {
		processor.log.Warn(
			"%s looks blank (%.4f%% non-white pixels)",
			pngPath,
			result.NonWhiteRatio*100,
		)
	}

	return nil
}

// failureMessage is the line printed for base when it fails before a
// decision line could be printed.
func failureMessage(base string, err error) string {
	return fmt.Sprintf("%s%s failed: %v", base, sourceExt, err)
}

// infof logs at info level only in verbose mode.
func (processor *Processor) infof(format string, args ...any) {
	if processor.config.Verbose {
		processor.log.Info(format, args...)
	}
}

// say writes one whole line to the message output.
func (processor *Processor) say(line string) {
	processor.msgMu.Lock()
	defer processor.msgMu.Unlock()

	_, writeErr := fmt.Fprintln(processor.config.MessageOutput, line)
	if writeErr != nil {
		processor.log.Warn("Failed to write message %q: %v", line, writeErr)
	}
}
