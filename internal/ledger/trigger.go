// Package ledger converts validated task completions into exactly-once
// point awards. The trigger consumes committed task mutations from the
// transactional outbox and, when a change crosses the award condition,
// runs the single atomic award transaction.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/hearth/internal/model"
	"github.com/dukerupert/hearth/internal/store"
)

// AwardEligible is the award condition: completed, and photo approved when
// one is required.
func AwardEligible(t *model.Task) bool {
	if t == nil || t.Status != model.TaskCompleted {
		return false
	}
	if t.RequiresPhoto {
		return t.PhotoValidationStatus != nil && *t.PhotoValidationStatus == model.PhotoApproved
	}
	return true
}

// AwardCallback is invoked after a successful award commit.
type AwardCallback func(familyID, taskID, userID string, points int)

type Trigger struct {
	ledgers *store.LedgerStore
	onAward AwardCallback
	logger  *slog.Logger
}

// NewTrigger creates the award trigger. onAward may be nil.
func NewTrigger(ledgers *store.LedgerStore, onAward AwardCallback, logger *slog.Logger) *Trigger {
	return &Trigger{ledgers: ledgers, onAward: onAward, logger: logger}
}

// HandleChange inspects one committed mutation and returns after either a
// no-op or a committed award. Duplicate deliveries are absorbed by the
// pointsAwarded guard inside the transaction; conflicts retry a bounded
// number of times before surfacing store.ErrUnavailable, leaving the task
// unawarded for the next poll.
//
// A rejection arriving after an award is a ledger no-op: prior awards are
// not reversed.
func (t *Trigger) HandleChange(ctx context.Context, c *model.TaskChange) error {
	if c.After == nil || !AwardEligible(c.After) {
		return nil
	}

	var applied bool
	err := store.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		applied, err = t.ledgers.Award(ctx, c.FamilyID, c.TaskID)
		return err
	})
	if err != nil {
		return fmt.Errorf("award task %s: %w", c.TaskID, err)
	}

	if !applied {
		t.logger.Info("award already applied",
			"family_id", c.FamilyID, "task_id", c.TaskID)
		return nil
	}

	t.logger.Info("points awarded",
		"family_id", c.FamilyID, "task_id", c.TaskID,
		"user_id", c.After.AssignedTo, "points", c.After.RewardPoints)

	if t.onAward != nil {
		t.onAward(c.FamilyID, c.TaskID, c.After.AssignedTo, c.After.RewardPoints)
	}
	return nil
}
