package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/lromero/facturabot/internal/domain"
	"github.com/lromero/facturabot/internal/logger"
	"github.com/lromero/facturabot/internal/portal"
)

// ItemProcessor downloads one work item with bounded retries. Terminal
// errors (bad credentials, missing document) stop immediately; transient
// ones are retried with a fixed delay between attempts.
type ItemProcessor struct {
	maxRetries int
	retryDelay time.Duration
	sleep      func(time.Duration)
	now        func() time.Time
}

// NewItemProcessor builds a processor with the given attempt budget.
// maxRetries is the total number of attempts made per item.
func NewItemProcessor(maxRetries int, retryDelay time.Duration) *ItemProcessor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &ItemProcessor{
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// Process runs the retry loop for a single item and records the outcome on
// the execution context. RetriesUsed counts only the failed attempts that
// preceded the final one, so a first-try success reports zero.
func (p *ItemProcessor) Process(ctx context.Context, client portal.Client, item domain.WorkItem, ec *ExecContext) domain.ItemResult {
	var lastErr error

	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		path, err := client.DownloadOne(ctx, item.Identifier)
		if err == nil {
			result := domain.ItemResult{
				Identifier:  item.Identifier,
				Success:     true,
				FilePath:    path,
				RetriesUsed: attempt - 1,
				Timestamp:   p.now(),
			}
			ec.Record(result)
			logger.CtxInfo(ctx, "Downloaded %s on attempt %d", item.Identifier, attempt)
			return result
		}

		lastErr = err
		kind := domain.ClassifyError(err)
		if !kind.Retryable() {
			logger.CtxWarn(ctx, "Giving up on %s: %s error: %v", item.Identifier, kind, err)
			ec.CaptureDiagnostic(ctx, client, fmt.Sprintf("error_%s_%s", kind, item.Identifier))
			result := p.failure(item, kind, err, attempt-1)
			ec.Record(result)
			return result
		}

		logger.CtxWarn(ctx, "Attempt %d/%d for %s failed: %v", attempt, p.maxRetries, item.Identifier, err)
		if attempt < p.maxRetries {
			p.sleep(p.retryDelay)
		}
	}

	ec.CaptureDiagnostic(ctx, client, fmt.Sprintf("final_error_%s", item.Identifier))
	result := p.failure(item, domain.ClassifyError(lastErr), lastErr, p.maxRetries)
	ec.Record(result)
	return result
}

func (p *ItemProcessor) failure(item domain.WorkItem, kind domain.ErrorKind, err error, retriesUsed int) domain.ItemResult {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return domain.ItemResult{
		Identifier:  item.Identifier,
		Success:     false,
		ErrorKind:   kind,
		ErrorDetail: detail,
		RetriesUsed: retriesUsed,
		Timestamp:   p.now(),
	}
}
