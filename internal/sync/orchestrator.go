package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilrc-dev/ct-vertex-sync/internal/logger"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/commercetools"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/services/vertex"
	"github.com/nikhilrc-dev/ct-vertex-sync/internal/transform"
)

// ProductSource reads products from the source catalog.
type ProductSource interface {
	FetchAll(ctx context.Context) ([]*commercetools.Product, error)
	FetchByID(ctx context.Context, id string) (*commercetools.Product, error)
}

// CatalogWriter writes items to the destination catalog.
type CatalogWriter interface {
	Import(ctx context.Context, product *vertex.Product) (*vertex.ImportResult, error)
	ImportBatch(ctx context.Context, products []*vertex.Product) (*vertex.ImportResult, error)
	Delete(ctx context.Context, productID string) error
}

// RunRecorder persists full sync outcomes. A nil recorder disables history.
type RunRecorder interface {
	RecordRun(summary *Summary) error
}

// BatchError names every product of a failed batch so a caller can retry the
// subset by hand.
type BatchError struct {
	ProductIDs []string `json:"productIds"`
	Error      string   `json:"error"`
}

// Summary is the final report of one full sync run. It is returned whole;
// progress is observable only through logs.
type Summary struct {
	RunID          string        `json:"runId"`
	TotalProducts  int           `json:"totalProducts"`
	ProcessedCount int           `json:"processedCount"`
	ErrorCount     int           `json:"errorCount"`
	Duration       int64         `json:"duration"` // milliseconds
	Errors         []BatchError  `json:"errors,omitempty"`
	StartedAt      time.Time     `json:"-"`
	Elapsed        time.Duration `json:"-"`
}

// Orchestrator drives reader → chunk → writer across the whole catalog.
// Batches run strictly sequentially with a fixed inter-batch delay to stay
// under the destination's rate limits.
type Orchestrator struct {
	source      ProductSource
	writer      CatalogWriter
	transformer *transform.Transformer
	recorder    RunRecorder
	chunkSize   int
	delay       time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *logger.Logger
}

func NewOrchestrator(source ProductSource, writer CatalogWriter, transformer *transform.Transformer, recorder RunRecorder, chunkSize int, delay time.Duration, logger *logger.Logger) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	return &Orchestrator{
		source:      source,
		writer:      writer,
		transformer: transformer,
		recorder:    recorder,
		chunkSize:   chunkSize,
		delay:       delay,
		sleep:       sleepContext,
		logger:      logger,
	}
}

// RunFullSync synchronizes the entire catalog. A batch failure is recorded
// against the whole batch and the run continues; only a failed fetch aborts,
// since a partial page list is useless.
func (o *Orchestrator) RunFullSync(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	o.logger.Info("Full sync %s: fetching source catalog", summary.RunID)
	products, err := o.source.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	summary.TotalProducts = len(products)

	batches := Chunk(products, o.chunkSize)
	o.logger.Info("Full sync %s: %d products in %d batches", summary.RunID, len(products), len(batches))

	for i, batch := range batches {
		items := make([]*vertex.Product, 0, len(batch))
		for _, product := range batch {
			items = append(items, o.transformer.Transform(product))
		}

		if _, err := o.writer.ImportBatch(ctx, items); err != nil {
			ids := make([]string, 0, len(batch))
			for _, product := range batch {
				ids = append(ids, product.ID)
			}
			summary.ErrorCount += len(batch)
			summary.Errors = append(summary.Errors, BatchError{
				ProductIDs: ids,
				Error:      err.Error(),
			})
			o.logger.Error("Full sync %s: batch %d/%d failed: %v", summary.RunID, i+1, len(batches), err)
		} else {
			summary.ProcessedCount += len(batch)
			o.logger.Info("Full sync %s: batch %d/%d imported (%d items)", summary.RunID, i+1, len(batches), len(batch))
		}

		if i < len(batches)-1 && o.delay > 0 {
			if err := o.sleep(ctx, o.delay); err != nil {
				return nil, err
			}
		}
	}

	summary.Elapsed = time.Since(summary.StartedAt)
	summary.Duration = summary.Elapsed.Milliseconds()

	if o.recorder != nil {
		if err := o.recorder.RecordRun(summary); err != nil {
			o.logger.Error("Full sync %s: failed to record run: %v", summary.RunID, err)
		}
	}

	return summary, nil
}

// Chunk splits products into batches of at most size items, preserving order.
// Concatenating the result reproduces the input.
func Chunk(products []*commercetools.Product, size int) [][]*commercetools.Product {
	if size <= 0 {
		size = 1
	}
	var batches [][]*commercetools.Product
	for start := 0; start < len(products); start += size {
		end := start + size
		if end > len(products) {
			end = len(products)
		}
		batches = append(batches, products[start:end])
	}
	return batches
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
