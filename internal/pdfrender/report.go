package pdfrender

import (
	"errors"
	"fmt"
	"sync"
)

// ItemFailure records why one source item could not be brought up to date.
type ItemFailure struct {
	Err      error
	BaseName string
}

// Error implements error.
func (failure ItemFailure) Error() string {
	return fmt.Sprintf("%s: %v", failure.BaseName, failure.Err)
}

// Unwrap exposes the underlying cause.
func (failure ItemFailure) Unwrap() error { return failure.Err }

// Report holds the outcome of a run.
type Report struct {
	Failures  []ItemFailure
	Created   int
	Updated   int
	Unchanged int
}

// Total returns the number of source items seen.
func (report *Report) Total() int {
	return report.Created + report.Updated + report.Unchanged + len(report.Failures)
}

// Converted returns the number of renderings written.
func (report *Report) Converted() int {
	return report.Created + report.Updated
}

// HasFailures reports whether any item failed.
func (report *Report) HasFailures() bool {
	return len(report.Failures) > 0
}

// Err joins every item failure, or returns nil.
func (report *Report) Err() error {
	if !report.HasFailures() {
		return nil
	}

	errs := make([]error, 0, len(report.Failures))
	for _, failure := range report.Failures {
		errs = append(errs, failure)
	}

	return errors.Join(errs...)
}

// reportRecorder lets workers add outcomes concurrently.
type reportRecorder struct {
	report Report
	mu     sync.Mutex
}

func (recorder *reportRecorder) record(base string, decision Decision, err error) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	if err != nil {
		recorder.report.Failures = append(
			recorder.report.Failures,
			ItemFailure{BaseName: base, Err: err},
		)

		return
	}

	switch decision {
	case DecisionCreate:
		recorder.report.Created++
	case DecisionUpdate:
		recorder.report.Updated++
	case DecisionUnchanged:
		recorder.report.Unchanged++
	}
}

func (recorder *reportRecorder) snapshot() Report {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	return recorder.report
}
