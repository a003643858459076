// Package processor implements the queue processor: one tick claims and
// analyzes at most one queue item, resolves it against existing orders,
// and fires notifications (§4.4).
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"ordertracker/internal/database"
	"ordertracker/internal/notify"
	"ordertracker/internal/orders"
)

// AnalyzeOutcome is what an Analyzer returns for one queue item.
// Malformed distinguishes "analyzer ran but produced unusable output"
// (§7 item 2: one retry already spent, item is completed with no order)
// from a returned error, which is a transient transport failure (§7
// item 1: item is failed).
type AnalyzeOutcome struct {
	Result      *orders.AnalysisResult
	RawResponse string
	Malformed   bool
}

// Analyzer is the capability a currently-enabled analyzer module
// provides to the processor.
type Analyzer interface {
	Analyze(ctx context.Context, rawData string) (AnalyzeOutcome, error)
}

// AnalyzerProvider resolves the currently enabled analyzer, mirroring
// §4.4 step 1's "is an analyzer currently enabled" check.
type AnalyzerProvider interface {
	CurrentAnalyzer() (Analyzer, bool)
}

// Processor runs processor ticks against the shared job queue.
type Processor struct {
	db       *database.DB
	analyzer AnalyzerProvider
	registry notify.Registry
	logger   *slog.Logger

	warnedOnce sync.Once
}

func New(db *database.DB, analyzer AnalyzerProvider, registry notify.Registry, logger *slog.Logger) *Processor {
	return &Processor{db: db, analyzer: analyzer, registry: registry, logger: logger}
}

// Tick processes at most one queued item (§4.4).
func (p *Processor) Tick(ctx context.Context) error {
	analyzer, ok := p.analyzer.CurrentAnalyzer()
	if !ok {
		p.warnedOnce.Do(func() {
			p.logger.Warn("no analyzer module enabled and configured; queue items remain queued")
		})
		return nil
	}

	item, err := p.db.QueueItems.ClaimNext()
	if err != nil {
		return fmt.Errorf("failed to claim queue item: %w", err)
	}
	if item == nil {
		return nil
	}

	if err := p.process(ctx, analyzer, item); err != nil {
		p.logger.Error("queue item processing failed", "queue_item_id", item.ID, "error", err)
		if markErr := p.db.QueueItems.MarkFailed(item.ID, err.Error()); markErr != nil {
			return fmt.Errorf("failed to mark queue item failed after error %q: %w", err, markErr)
		}
	}
	return nil
}

func (p *Processor) process(ctx context.Context, analyzer Analyzer, item *database.QueueItem) error {
	outcome, err := analyzer.Analyze(ctx, item.RawData)
	if err != nil {
		return fmt.Errorf("analyzer failed: %w", err)
	}

	if outcome.Malformed {
		extracted, _ := json.Marshal(map[string]string{
			"error": "analyzer produced output that did not match the expected schema",
			"raw":   outcome.RawResponse,
		})
		return p.db.QueueItems.MarkCompleted(item.ID, string(extracted), nil)
	}

	if outcome.Result == nil || !outcome.Result.Relevant() {
		return p.db.QueueItems.MarkCompleted(item.ID, outcome.RawResponse, nil)
	}

	existing, err := orders.Match(p.db, item.UserID, *outcome.Result)
	if err != nil {
		return fmt.Errorf("order matcher failed: %w", err)
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin order transaction: %w", err)
	}

	result, err := orders.CreateOrUpdate(p.db, tx, item.UserID, existing, *outcome.Result, item.SourceType, item.SourceInfo.String)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create or update order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order transaction: %w", err)
	}

	event := classifyEvent(result)
	notify.Fanout(ctx, p.db, p.registry, p.logger, item.UserID, event, notify.Data{Order: result.Order})

	orderID := result.Order.ID
	return p.db.QueueItems.MarkCompleted(item.ID, outcome.RawResponse, &orderID)
}

// classifyEvent determines the notification event per §4.4 step 6.
func classifyEvent(result orders.Outcome) notify.Event {
	switch {
	case result.IsNewOrder:
		return notify.EventNewOrder
	case result.Order.Status == database.OrderStatusDelivered:
		return notify.EventPackageDelivered
	default:
		return notify.EventTrackingUpdate
	}
}
