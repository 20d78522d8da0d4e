package pdfrender

import "fmt"

// Decision is the outcome of the staleness check for one source item.
type Decision int

const (
	// DecisionCreate means the rendering does not exist yet.
	DecisionCreate Decision = iota
	// DecisionUpdate means the source is strictly newer than its rendering.
	DecisionUpdate
	// DecisionUnchanged means the rendering is at least as new as the source.
	DecisionUnchanged
)

// Decide compares modification times only. Touching a source forces a
// reconversion, and a content change that preserves the timestamp goes unseen.
func Decide(source SourceItem, output OutputItem) Decision {
	switch output.State {
	case OutputMissing:
		return DecisionCreate
	case OutputPresent:
		if source.ModTime.After(output.ModTime) {
			return DecisionUpdate
		}

		return DecisionUnchanged
	}

	panic(fmt.Sprintf("pdfrender: unknown output state %d", output.State))
}

// NeedsConversion reports whether the rasterizer has to run.
func (decision Decision) NeedsConversion() bool {
	return decision == DecisionCreate || decision == DecisionUpdate
}

// Message is the line printed for base when this decision is made.
func (decision Decision) Message(base string) string {
	switch decision {
	case DecisionCreate:
		return fmt.Sprintf("%s%s does not exist, creating", base, outputExt)
	case DecisionUpdate:
		return fmt.Sprintf("* %s%s changed, updating %s%s", base, sourceExt, base, outputExt)
	case DecisionUnchanged:
		return fmt.Sprintf("%s%s unchanged", base, sourceExt)
	}

	return fmt.Sprintf("%s: unknown decision %d", base, decision)
}

// String names the decision for logs.
func (decision Decision) String() string {
	switch decision {
	case DecisionCreate:
		return "create"
	case DecisionUpdate:
		return "update"
	case DecisionUnchanged:
		return "unchanged"
	}

	return fmt.Sprintf("Decision(%d)", int(decision))
}
