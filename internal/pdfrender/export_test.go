package pdfrender

// Exported test-only accessors for unexported functions and fields.
// This file is compiled only during tests and does not affect the public API.

// BuildImageMagickArgsForTest exposes buildImageMagickArgs.
func BuildImageMagickArgsForTest(dpi int, outPath, pdfPath string) []string {
	return buildImageMagickArgs(dpi, outPath, pdfPath)
}

// BuildGhostscriptArgsForTest exposes buildGhostscriptArgs.
func BuildGhostscriptArgsForTest(dpi int, outPath, pdfPath string) []string {
	return buildGhostscriptArgs(dpi, outPath, pdfPath)
}

// ConfigForTest returns a copy of the processor configuration for assertions in tests.
func (processor *Processor) ConfigForTest() Options { return processor.config }

// ValidateConfigForTest exposes validateConfig.
func (processor *Processor) ValidateConfigForTest() error { return processor.validateConfig() }

// SetExecutorForTest lets tests inject a fake executor.
func (processor *Processor) SetExecutorForTest(exec CommandExecutor) {
	processor.executor = exec
}
