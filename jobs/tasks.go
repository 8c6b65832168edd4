package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/medicao-erp/medicao-erp/internal/measurement"
	"github.com/medicao-erp/medicao-erp/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAggregateWarmup pre-computes previous-approved sums for open sheets.
	TaskAggregateWarmup = "measurement:aggregate_warmup"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// AggregateWarmupPayload selects which company's open sheets to warm.
type AggregateWarmupPayload struct {
	CompanyID int64 `json:"company_id"`
}

// NewAggregateWarmupTask constructs an Asynq task.
func NewAggregateWarmupTask(payload AggregateWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAggregateWarmup, data), nil
}

// IdempotencyCleanupPayload carries the retention window in hours.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs an Asynq task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// AggregateWarmer walks open sheets and primes the previous-approved
// cache so interactive lookups hit redis instead of the database.
type AggregateWarmer struct {
	repo   measurement.Repository
	agg    *measurement.Aggregator
	logger *slog.Logger
}

// NewAggregateWarmer constructs the warmup handler.
func NewAggregateWarmer(repo measurement.Repository, agg *measurement.Aggregator, logger *slog.Logger) *AggregateWarmer {
	return &AggregateWarmer{repo: repo, agg: agg, logger: logger}
}

// Handle processes TaskAggregateWarmup tasks.
func (w *AggregateWarmer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AggregateWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	warmed := 0
	for _, status := range []measurement.SheetStatus{measurement.SheetStatusDraft, measurement.SheetStatusSubmitted} {
		st := status
		sheets, _, err := w.repo.ListSheets(ctx, measurement.ListSheetsRequest{
			CompanyID: payload.CompanyID,
			Status:    &st,
			PerPage:   200,
		})
		if err != nil {
			return err
		}
		for i := range sheets {
			lines, err := w.repo.ListLines(ctx, sheets[i].ID)
			if err != nil {
				return err
			}
			for j := range lines {
				l := &lines[j]
				if !l.HasReference() {
					continue
				}
				if _, err := w.agg.PreviousApproved(ctx, sheets[i].PartnerID, l.SaleOrderLineID, l.ContractLineID, sheets[i].ID); err != nil {
					return err
				}
				warmed++
			}
		}
	}
	w.logger.Info("aggregate cache warmed",
		slog.Int64("company_id", payload.CompanyID),
		slog.Int("lines", warmed))
	return nil
}

// IdempotencyCleaner prunes processed idempotency keys past retention.
type IdempotencyCleaner struct {
	store  *shared.IdempotencyStore
	logger *slog.Logger
}

// NewIdempotencyCleaner constructs the cleanup handler.
func NewIdempotencyCleaner(store *shared.IdempotencyStore, logger *slog.Logger) *IdempotencyCleaner {
	return &IdempotencyCleaner{store: store, logger: logger}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (c *IdempotencyCleaner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := time.Duration(payload.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = 72 * time.Hour
	}
	if err := c.store.Cleanup(ctx, retention); err != nil {
		return err
	}
	c.logger.Info("idempotency keys pruned", slog.Duration("retention", retention))
	return nil
}
