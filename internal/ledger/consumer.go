package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/hearth/internal/store"
)

const consumerBatchSize = 50

// Consumer polls the task change feed and drives the trigger. Delivery is
// at-least-once; the trigger's idempotency guard makes awards exactly-once.
type Consumer struct {
	mu       sync.RWMutex
	trigger  *Trigger
	outbox   *store.OutboxStore
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewConsumer creates a change-feed consumer polling at the given interval.
func NewConsumer(trigger *Trigger, outbox *store.OutboxStore, interval time.Duration, logger *slog.Logger) *Consumer {
	return &Consumer{
		trigger:  trigger,
		outbox:   outbox,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the polling loop.
func (c *Consumer) Start(ctx context.Context) {
	c.mu.Lock()
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Drain(ctx)
			}
		}
	}()
}

// Stop gracefully stops the consumer.
func (c *Consumer) Stop() {
	c.mu.RLock()
	cancel := c.cancel
	done := c.done
	c.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Drain processes every pending change once. A change whose handling fails
// stays unprocessed and is retried on the next poll.
func (c *Consumer) Drain(ctx context.Context) {
	for {
		changes, err := c.outbox.ListPending(consumerBatchSize)
		if err != nil {
			c.logger.Error("list pending changes", "error", err)
			return
		}
		if len(changes) == 0 {
			return
		}

		var processed int
		for i := range changes {
			change := &changes[i]
			if err := c.trigger.HandleChange(ctx, change); err != nil {
				c.logger.Error("handle task change",
					"change_id", change.ID, "task_id", change.TaskID, "error", err)
				continue
			}
			if err := c.outbox.MarkProcessed(change.ID); err != nil {
				c.logger.Error("mark change processed", "change_id", change.ID, "error", err)
				continue
			}
			processed++
		}

		// Stuck changes wait for the next poll rather than spinning here.
		if processed == 0 || len(changes) < consumerBatchSize {
			return
		}
	}
}
