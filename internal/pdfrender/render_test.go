package pdfrender_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/pdf-to-png-sync/internal/pdfrender"
)

func TestNewProcessor_Defaults(t *testing.T) {
	t.Parallel()

	log, loggerErr := logger.New(t.TempDir(), "test.log")
	require.NoError(t, loggerErr)

	t.Run("Zero values should default correctly", func(t *testing.T) {
		t.Parallel()

		processor := pdfrender.NewProcessor(&pdfrender.Options{}, log)
		cfg := processor.ConfigForTest()
		assert.Equal(t, 600, cfg.DPI)
		assert.Equal(t, 1, cfg.Workers)
		assert.Equal(t, pdfrender.ToolImageMagick, cfg.Tool)
		assert.Equal(t, "convert", cfg.ToolBinary)
		assert.Equal(t, 5, cfg.BlankFuzzPercent)
		assert.InDelta(t, 0.005, cfg.BlankNonWhiteThreshold, 1e-9)
		assert.Equal(t, io.Discard, cfg.ProgressBarOutput)
		assert.Equal(t, os.Stdout, cfg.MessageOutput)
		assert.NotNil(t, cfg.Notifier)
	})

	t.Run("Custom values should be preserved", func(t *testing.T) {
		t.Parallel()

		processor := pdfrender.NewProcessor(&pdfrender.Options{
			DPI:     300,
			Workers: 4,
			Tool:    pdfrender.ToolGhostscript,
		}, log)
		cfg := processor.ConfigForTest()
		assert.Equal(t, 300, cfg.DPI)
		assert.Equal(t, 4, cfg.Workers)
		assert.Equal(t, "gs", cfg.ToolBinary)
	})
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	proc := pdfrender.NewProcessor(&pdfrender.Options{}, log)
	require.ErrorIs(t, proc.ValidateConfigForTest(), pdfrender.ErrInputPathRequired)

	proc = pdfrender.NewProcessor(&pdfrender.Options{InputPath: "pdf"}, log)
	require.ErrorIs(t, proc.ValidateConfigForTest(), pdfrender.ErrOutputPathRequired)

	proc = pdfrender.NewProcessor(&pdfrender.Options{InputPath: "pdf", OutputPath: "png", DPI: -1}, log)
	require.ErrorIs(t, proc.ValidateConfigForTest(), pdfrender.ErrPositiveDPIRequired)

	proc = pdfrender.NewProcessor(&pdfrender.Options{InputPath: "pdf", OutputPath: "png", Tool: "inkscape"}, log)
	require.ErrorIs(t, proc.ValidateConfigForTest(), pdfrender.ErrUnknownTool)

	proc = pdfrender.NewProcessor(&pdfrender.Options{InputPath: "pdf", OutputPath: "png"}, log)
	require.NoError(t, proc.ValidateConfigForTest())
}

func TestParseTool(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]pdfrender.Tool{
		"":            pdfrender.ToolImageMagick,
		"magick":      pdfrender.ToolImageMagick,
		"imagemagick": pdfrender.ToolImageMagick,
		"convert":     pdfrender.ToolImageMagick,
		"ghostscript": pdfrender.ToolGhostscript,
		"gs":          pdfrender.ToolGhostscript,
	} {
		got, err := pdfrender.ParseTool(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := pdfrender.ParseTool("pdftoppm")
	require.ErrorIs(t, err, pdfrender.ErrUnknownTool)
}

func TestRasterizerArgs(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{
			"-density", "600", "in/a.pdf[0]",
			"-background", "white", "-alpha", "remove", "-alpha", "off",
			"out/a.png",
		},
		pdfrender.BuildImageMagickArgsForTest(600, "out/a.png", "in/a.pdf"),
	)

	gsArgs := pdfrender.BuildGhostscriptArgsForTest(600, "out/a.png", "in/a.pdf")
	assert.Contains(t, gsArgs, "-sDEVICE=png16m")
	assert.Contains(t, gsArgs, "-r600")
	assert.Contains(t, gsArgs, "-dLastPage=1")
	assert.Equal(t, "in/a.pdf", gsArgs[len(gsArgs)-1])
	assert.Equal(t, "out/a.png", findOutputPath(gsArgs))
}

func TestDecide(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	source := pdfrender.SourceItem{BaseName: "a", Path: "pdf/a.pdf", ModTime: t2}

	missing := pdfrender.OutputItem{BaseName: "a", State: pdfrender.OutputMissing}
	assert.Equal(t, pdfrender.DecisionCreate, pdfrender.Decide(source, missing))

	older := pdfrender.OutputItem{BaseName: "a", State: pdfrender.OutputPresent, ModTime: t1}
	assert.Equal(t, pdfrender.DecisionUpdate, pdfrender.Decide(source, older))

	same := pdfrender.OutputItem{BaseName: "a", State: pdfrender.OutputPresent, ModTime: t2}
	assert.Equal(t, pdfrender.DecisionUnchanged, pdfrender.Decide(source, same))

	newer := pdfrender.OutputItem{BaseName: "a", State: pdfrender.OutputPresent, ModTime: t2.Add(time.Second)}
	assert.Equal(t, pdfrender.DecisionUnchanged, pdfrender.Decide(source, newer))

	assert.True(t, pdfrender.DecisionCreate.NeedsConversion())
	assert.True(t, pdfrender.DecisionUpdate.NeedsConversion())
	assert.False(t, pdfrender.DecisionUnchanged.NeedsConversion())
}

func TestDecisionMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a.png does not exist, creating", pdfrender.DecisionCreate.Message("a"))
	assert.Equal(t, "* a.pdf changed, updating a.png", pdfrender.DecisionUpdate.Message("a"))
	assert.Equal(t, "a.pdf unchanged", pdfrender.DecisionUnchanged.Message("a"))
}

func TestDiscoverPDFs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte(""), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.PDF"), []byte(""), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte(""), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.pdf"), 0o750))

	items, err := pdfrender.DiscoverPDFs(dir)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].BaseName)
	assert.Equal(t, filepath.Join(dir, "a.pdf"), items[0].Path)

	for _, item := range items {
		assert.False(t, item.ModTime.IsZero())
	}

	_, err = pdfrender.DiscoverPDFs(filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestStatOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	item, err := pdfrender.StatOutput(dir, "a")
	require.NoError(t, err)
	assert.Equal(t, pdfrender.OutputMissing, item.State)
	assert.Equal(t, filepath.Join(dir, "a.png"), item.Path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("png"), 0o600))
	item, err = pdfrender.StatOutput(dir, "a")
	require.NoError(t, err)
	assert.Equal(t, pdfrender.OutputPresent, item.State)
	assert.False(t, item.ModTime.IsZero())

	require.NoError(t, os.Mkdir(filepath.Join(dir, "b.png"), 0o750))
	_, err = pdfrender.StatOutput(dir, "b")
	require.ErrorIs(t, err, pdfrender.ErrOutputIsDirectory)
}
