package pdfrender

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
)

// Tool selects the external rasterizer.
type Tool string

const (
	// ToolImageMagick renders with ImageMagick's convert (or magick for IM7).
	ToolImageMagick Tool = "magick"
	// ToolGhostscript renders with Ghostscript's png16m device.
	ToolGhostscript Tool = "ghostscript"
)

const (
	defaultImageMagickBinary = "convert"
	defaultGhostscriptBinary = "gs"
)

// CommandExecutor defines an interface for running external commands.
// This abstraction is crucial for enabling unit tests to mock command execution.
type CommandExecutor interface {
	// RunCombined executes a command and returns its combined standard output and
	// standard error.
	RunCombined(ctx context.Context, name string, args ...string) ([]byte, error)
}

// defaultExecutor implements the CommandExecutor interface using the standard os/exec
// package.
type defaultExecutor struct{}

// RunCombined is the production implementation for executing a command and capturing all
// output.
func (executor *defaultExecutor) RunCombined(
	ctx context.Context,
	name string,
	args ...string,
) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// rasterize runs the configured tool once, turning pdfPath into outPath.
func (processor *Processor) rasterize(ctx context.Context, pdfPath, outPath string) error {
	if pdfPath == "" || outPath == "" {
		return errors.New("pdf path and output path cannot be empty")
	}

	binary, args := processor.rasterizerCommand(pdfPath, outPath)

	outputBytes, execErr := processor.executor.RunCombined(ctx, binary, args...)
	if execErr != nil {
		// Include the command's output in the error for better debugging.
		return fmt.Errorf(
			"%s execution failed: %w. Output: %s",
			binary,
			execErr,
			string(outputBytes),
		)
	}

	return nil
}

// rasterizerCommand returns the binary and arguments for the configured tool.
func (processor *Processor) rasterizerCommand(pdfPath, outPath string) (string, []string) {
	cfg := processor.config

	switch cfg.Tool {
	case ToolGhostscript:
		return cfg.ToolBinary, buildGhostscriptArgs(cfg.DPI, outPath, pdfPath)
	case ToolImageMagick:
		return cfg.ToolBinary, buildImageMagickArgs(cfg.DPI, outPath, pdfPath)
	}

	return cfg.ToolBinary, buildImageMagickArgs(cfg.DPI, outPath, pdfPath)
}

// buildImageMagickArgs renders on a white background and flattens away the alpha
// channel so the PNG is opaque.
func buildImageMagickArgs(dpi int, outPath, pdfPath string) []string {
	return []string{
		"-density", strconv.Itoa(dpi), // Rasterization resolution, set before reading.
		pdfPath + "[0]", // First page only; more pages would become out-N.png.
		"-background", "white",
		"-alpha", "remove", // Composite onto the background.
		"-alpha", "off", // Drop the channel entirely.
		outPath,
	}
}

// buildGhostscriptArgs constructs the list of command-line arguments for the Ghostscript
// process. png16m is 24-bit without alpha and paints on a white page.
func buildGhostscriptArgs(dpi int, outPath, pdfPath string) []string {
	return []string{
		"-q", "-dNOPAUSE", "-dBATCH", // Quiet mode, non-interactive batch processing.
		"-sDEVICE=png16m",
		fmt.Sprintf("-r%d", dpi),
		// A single output file can hold only one page.
		"-dFirstPage=1",
		"-dLastPage=1",
		"-dTextAlphaBits=4",     // Enable anti-aliasing for text.
		"-dGraphicsAlphaBits=4", // Enable anti-aliasing for graphics.
		"-o", outPath,
		pdfPath,
	}
}

// defaultBinaryFor returns the executable name used when none is configured.
func defaultBinaryFor(tool Tool) string {
	if tool == ToolGhostscript {
		return defaultGhostscriptBinary
	}

	return defaultImageMagickBinary
}

// ParseTool maps a configured tool name onto a Tool.
func ParseTool(name string) (Tool, error) {
	switch Tool(name) {
	case "", ToolImageMagick, "imagemagick", "convert":
		return ToolImageMagick, nil
	case ToolGhostscript, "gs":
		return ToolGhostscript, nil
	}

	return "", fmt.Errorf("%q: %w", name, ErrUnknownTool)
}
