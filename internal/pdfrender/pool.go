package pdfrender

import (
	"context"
	"fmt"
	"sync"

	"github.com/cheggaaa/pb/v3"
)

// processAllPDFs runs every item through a fixed pool of workers. With one
// worker the items are handled strictly in listing order.
func (processor *Processor) processAllPDFs(ctx context.Context, items []SourceItem) Report {
	jobs := make(chan SourceItem, len(items))
	recorder := &reportRecorder{report: Report{}, mu: sync.Mutex{}}

	progressBar := pb.New(len(items)).
		SetTemplateString(`{{ bar . " " "━" "━" " " " "}} {{counters .}} {{rtime .}}`).
		SetWriter(processor.config.ProgressBarOutput).
		Start()
	defer progressBar.Finish()

	var waitGroup sync.WaitGroup

	for range processor.config.Workers {
		waitGroup.Add(1)

		go processor.itemWorker(ctx, &waitGroup, jobs, recorder, progressBar)
	}

	for _, item := range items {
		jobs <- item
	}

	close(jobs) // No more jobs will be sent.

	waitGroup.Wait()

	return recorder.snapshot()
}

// itemWorker pulls items until the channel is drained. Once the context is
// canceled the remaining items are recorded as failures without being touched.
func (processor *Processor) itemWorker(
	ctx context.Context,
	waitGroup *sync.WaitGroup,
	jobs <-chan SourceItem,
	recorder *reportRecorder,
	progressBar *pb.ProgressBar,
) {
	defer waitGroup.Done()

	for item := range jobs {
		progressBar.Increment()

		if ctxErr := ctx.Err(); ctxErr != nil {
			skipErr := fmt.Errorf("skipped: %w", ctxErr)
			processor.say(failureMessage(item.BaseName, skipErr))
			recorder.record(item.BaseName, DecisionUnchanged, skipErr)

			continue
		}

		decision, processErr := processor.processOnePDF(ctx, item)
		if processErr != nil {
			processor.log.Error("Failed to convert %s: %v", item.BaseName, processErr)
		} else if decision.NeedsConversion() && processor.config.Verbose {
			processor.log.Success("Rendered %s (%s)", item.BaseName, decision)
		}

		recorder.record(item.BaseName, decision, processErr)
	}
}
