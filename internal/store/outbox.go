package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/hearth/internal/model"
)

// OutboxStore reads the task change feed: one row per committed task
// mutation, written in the same transaction as the mutation itself.
type OutboxStore struct {
	db *sql.DB
}

func NewOutboxStore(db *sql.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

// insertTaskChange appends a before/after pair to the outbox inside the
// caller's transaction. A nil before is a create; a nil after a delete.
func insertTaskChange(tx *sql.Tx, before, after *model.Task) error {
	var familyID, taskID string
	switch {
	case after != nil:
		familyID, taskID = after.FamilyID, after.ID
	case before != nil:
		familyID, taskID = before.FamilyID, before.ID
	default:
		return fmt.Errorf("task change with no snapshots")
	}

	beforeJSON, err := marshalSnapshot(before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalSnapshot(after)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO task_changes (family_id, task_id, before_json, after_json) VALUES (?, ?, ?, ?)`,
		familyID, taskID, beforeJSON, afterJSON,
	)
	if err != nil {
		return fmt.Errorf("insert task change: %w", err)
	}
	return nil
}

func marshalSnapshot(t *model.Task) (any, error) {
	if t == nil {
		return nil, nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal task snapshot: %w", err)
	}
	return string(data), nil
}

// ListPending returns up to limit unprocessed changes in commit order.
func (s *OutboxStore) ListPending(limit int) ([]model.TaskChange, error) {
	rows, err := s.db.Query(
		`SELECT id, family_id, task_id, before_json, after_json, created_at
		 FROM task_changes WHERE processed_at IS NULL ORDER BY id ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending changes: %w", err)
	}
	defer rows.Close()

	var changes []model.TaskChange
	for rows.Next() {
		var c model.TaskChange
		var beforeJSON, afterJSON sql.NullString
		if err := rows.Scan(&c.ID, &c.FamilyID, &c.TaskID, &beforeJSON, &afterJSON, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task change: %w", err)
		}
		if c.Before, err = unmarshalSnapshot(beforeJSON); err != nil {
			return nil, err
		}
		if c.After, err = unmarshalSnapshot(afterJSON); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func unmarshalSnapshot(s sql.NullString) (*model.Task, error) {
	if !s.Valid {
		return nil, nil
	}
	var t model.Task
	if err := json.Unmarshal([]byte(s.String), &t); err != nil {
		return nil, fmt.Errorf("unmarshal task snapshot: %w", err)
	}
	return &t, nil
}

// MarkProcessed stamps a change as consumed.
func (s *OutboxStore) MarkProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE task_changes SET processed_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark change processed: %w", err)
	}
	return nil
}
