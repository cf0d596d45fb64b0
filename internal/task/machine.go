// Package task defines the legal status and photo-validation transitions
// for a task. Validation runs in the write path, before a mutation reaches
// storage; anything off the table is rejected deterministically.
package task

import (
	"errors"
	"fmt"

	"github.com/dukerupert/hearth/internal/model"
)

// ErrInvalidTransition marks a state change that is not in the transition
// table. Deterministic, never retried.
var ErrInvalidTransition = errors.New("invalid task transition")

// Actor is the principal driving a transition. Validator is true for a
// parent in the task's family.
type Actor struct {
	UID       string
	Validator bool
}

var statusNext = map[model.TaskStatus]map[model.TaskStatus]bool{
	model.TaskCreated: {
		model.TaskInProgress: true,
		model.TaskRejected:   true,
	},
	model.TaskInProgress: {
		model.TaskCompleted: true,
		model.TaskRejected:  true,
	},
}

// Validate checks one before/after mutation against the transition table
// and its ownership rules.
func Validate(before, after *model.Task, actor Actor) error {
	if before.Status != after.Status {
		if err := validateStatus(before, after, actor); err != nil {
			return err
		}
	}
	if photoChanged(before, after) {
		if err := validatePhoto(before, after, actor); err != nil {
			return err
		}
	}
	if !eq(before.PhotoValidatedBy, after.PhotoValidatedBy) && !photoResolved(before, after) {
		return fmt.Errorf("%w: photoValidatedBy is set only with a validation verdict", ErrInvalidTransition)
	}
	return nil
}

func validateStatus(before, after *model.Task, actor Actor) error {
	if !statusNext[before.Status][after.Status] {
		return fmt.Errorf("%w: status %s -> %s", ErrInvalidTransition, before.Status, after.Status)
	}
	// The assignee drives created -> in_progress -> completed; only a
	// validator rejects.
	if after.Status == model.TaskRejected {
		if !actor.Validator {
			return fmt.Errorf("%w: only a validator may reject", ErrInvalidTransition)
		}
		return nil
	}
	if actor.UID != before.AssignedTo {
		return fmt.Errorf("%w: only the assignee may progress the task", ErrInvalidTransition)
	}
	return nil
}

func validatePhoto(before, after *model.Task, actor Actor) error {
	if !before.RequiresPhoto {
		return fmt.Errorf("%w: task does not require a photo", ErrInvalidTransition)
	}
	from := model.PhotoStatus("")
	if before.PhotoValidationStatus != nil {
		from = *before.PhotoValidationStatus
	}
	if after.PhotoValidationStatus == nil {
		return fmt.Errorf("%w: photo status cannot be cleared", ErrInvalidTransition)
	}
	to := *after.PhotoValidationStatus

	switch {
	case from == "" && to == model.PhotoPending:
		// Submission for review belongs to the assignee.
		if actor.UID != before.AssignedTo {
			return fmt.Errorf("%w: only the assignee may submit for review", ErrInvalidTransition)
		}
	case from == model.PhotoPending && (to == model.PhotoApproved || to == model.PhotoRejected):
		if !actor.Validator {
			return fmt.Errorf("%w: only a validator may resolve a photo review", ErrInvalidTransition)
		}
		if after.PhotoValidatedBy == nil || *after.PhotoValidatedBy != actor.UID {
			return fmt.Errorf("%w: photoValidatedBy must record the validator", ErrInvalidTransition)
		}
	default:
		return fmt.Errorf("%w: photo status %s -> %s", ErrInvalidTransition, orNone(from), to)
	}
	return nil
}

func photoChanged(before, after *model.Task) bool {
	b, a := before.PhotoValidationStatus, after.PhotoValidationStatus
	if b == nil && a == nil {
		return false
	}
	if b == nil || a == nil {
		return true
	}
	return *b != *a
}

// photoResolved reports whether this mutation carries a validation verdict,
// the only time photoValidatedBy may change.
func photoResolved(before, after *model.Task) bool {
	if after.PhotoValidationStatus == nil {
		return false
	}
	to := *after.PhotoValidationStatus
	return photoChanged(before, after) && (to == model.PhotoApproved || to == model.PhotoRejected)
}

func eq(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

func orNone(s model.PhotoStatus) string {
	if s == "" {
		return "none"
	}
	return string(s)
}
