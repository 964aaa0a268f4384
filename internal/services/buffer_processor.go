package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/internal/infrastructure/buffer"
	"github.com/fastygo/catalog/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// MaxAge drops items that have waited longer than this. Zero keeps them forever.
	MaxAge time.Duration
}

// BufferProcessor replays buffered product writes once Postgres is reachable.
type BufferProcessor struct {
	store    *buffer.Store
	monitor  ConnectionHealth
	products repository.ProductRepository
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      ProcessorConfig
}

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	products repository.ProductRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:    store,
		monitor:  monitor,
		products: products,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = bp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := bp.Drain(ctx); err != nil {
			bp.logger.Error("buffer drain failed", zap.Error(err))
		}
	})

	return bp
}

// Start launches the cron scheduler.
func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started")
}

// Stop gracefully stops the scheduler.
func (bp *BufferProcessor) Stop(ctx context.Context) error {
	if bp == nil || bp.cron == nil {
		return nil
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	bp.logger.Info("buffer processor stopped")
	return nil
}

// Drain processes buffered items synchronously.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	if bp.cfg.MaxAge > 0 {
		dropped, err := bp.store.Cleanup(time.Now().UTC().Add(-bp.cfg.MaxAge))
		if err != nil {
			bp.logger.Warn("buffer cleanup failed", zap.Error(err))
		} else if dropped > 0 {
			bp.logger.Warn("dropped expired buffer items", zap.Int("count", dropped))
		}
	}

	items, err := bp.store.GetBatch(bp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		err := bp.processItem(ctx, item)
		if err == nil || isFinal(err) {
			if err != nil {
				bp.logger.Warn("discarding buffer item", zap.String("item_id", item.ID), zap.Error(err))
			}
			if err := bp.store.Remove(item); err != nil {
				bp.logger.Warn("failed to purge processed buffer item", zap.Error(err))
			}
			continue
		}

		bp.logger.Error("failed to process buffer item",
			zap.String("item_id", item.ID),
			zap.String("entity", item.Entity),
			zap.Error(err))

		item.Retries++
		if item.Retries >= bp.cfg.MaxRetries {
			bp.logger.Warn("dropping buffer item (max retries reached)", zap.String("item_id", item.ID))
			_ = bp.store.Remove(item)
			continue
		}
		if err := bp.store.Requeue(item); err != nil {
			bp.logger.Error("failed to requeue buffer item", zap.Error(err))
		}
	}
	return nil
}

// BufferOperation attempts to run the operation immediately and falls back to persisting it.
func (bp *BufferProcessor) BufferOperation(ctx context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return fmt.Errorf("buffer processor not configured")
	}

	if bp.monitor == nil || bp.monitor.IsOnline() {
		err := bp.processItem(ctx, item)
		if err == nil || isFinal(err) {
			return err
		}
		bp.logger.Warn("immediate processing failed, buffering", zap.Error(err))
	}
	return bp.store.Enqueue(item)
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() (int, error) {
	if bp == nil || bp.store == nil {
		return 0, nil
	}
	return bp.store.Size()
}

func (bp *BufferProcessor) processItem(ctx context.Context, item buffer.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if item.Entity != buffer.EntityProduct {
		return fmt.Errorf("%w: unsupported entity %s", domain.ErrInvalidPayload, item.Entity)
	}

	var product domain.Product
	if err := json.Unmarshal(item.Data, &product); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	switch item.Operation {
	case buffer.OperationCreate:
		_, err := bp.products.Create(ctx, &product)
		return err
	case buffer.OperationUpdate:
		return bp.products.Update(ctx, &product)
	case buffer.OperationDelete:
		return bp.products.Delete(ctx, product.ID)
	default:
		return fmt.Errorf("%w: unsupported operation %s", domain.ErrInvalidPayload, item.Operation)
	}
}

// isFinal reports whether retrying err can never succeed.
func isFinal(err error) bool {
	var dErr *domain.Error
	return errors.As(err, &dErr)
}
