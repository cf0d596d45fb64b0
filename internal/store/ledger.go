package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/hearth/internal/model"
)

// LedgerStore owns the member_ledgers table and the award transaction.
// No other writer mutates ledger fields.
type LedgerStore struct {
	db *sql.DB
}

func NewLedgerStore(db *sql.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

const ledgerCols = `family_id, user_id, points, total_points_earned, tasks_completed, version, updated_at`

func scanLedger(scanner interface{ Scan(...any) error }) (*model.MemberLedger, error) {
	var l model.MemberLedger
	err := scanner.Scan(&l.FamilyID, &l.UserID, &l.Points, &l.TotalPointsEarned,
		&l.TasksCompleted, &l.Version, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Get returns the member's ledger, or nil if no award has created it yet.
func (s *LedgerStore) Get(familyID, userID string) (*model.MemberLedger, error) {
	row := s.db.QueryRow(
		`SELECT `+ledgerCols+` FROM member_ledgers WHERE family_id = ? AND user_id = ?`,
		familyID, userID,
	)
	l, err := scanLedger(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	return l, nil
}

// ListByFamily returns the family's ledgers ordered by points descending.
func (s *LedgerStore) ListByFamily(familyID string) ([]model.MemberLedger, error) {
	rows, err := s.db.Query(
		`SELECT `+ledgerCols+` FROM member_ledgers WHERE family_id = ? ORDER BY points DESC, user_id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()

	var ledgers []model.MemberLedger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		ledgers = append(ledgers, *l)
	}
	return ledgers, rows.Err()
}

// Award credits a completed task in one atomic transaction: it stamps
// task.pointsAwarded, adds the reward to the assignee's ledger, and updates
// the family counters. All six writes commit together or not at all.
//
// The pointsAwarded stamp doubles as the idempotency guard: if it is
// already set the transaction is a no-op and Award returns applied=false,
// so duplicate trigger deliveries never double-credit. A stale read of any
// shared document fails the transaction with ErrConflict for the caller
// to retry.
func (s *LedgerStore) Award(ctx context.Context, familyID, taskID string) (applied bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin award tx: %w", err)
	}
	defer tx.Rollback()

	t, err := getTaskTx(tx, familyID, taskID)
	if err != nil {
		return false, err
	}
	if t.Awarded() {
		return false, nil
	}

	// task.pointsAwarded = task.rewardPoints, guarded by the task version.
	res, err := tx.Exec(
		`UPDATE tasks SET points_awarded = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE family_id = ? AND id = ? AND version = ? AND points_awarded IS NULL`,
		t.RewardPoints, familyID, taskID, t.Version,
	)
	if err != nil {
		return false, fmt.Errorf("stamp points awarded: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, fmt.Errorf("award task %s: %w", taskID, ErrConflict)
	}

	if err := creditLedger(tx, familyID, t.AssignedTo, t.RewardPoints); err != nil {
		return false, err
	}

	res, err = tx.Exec(
		`UPDATE families SET
		 completed_tasks = completed_tasks + 1,
		 pending_tasks = MAX(0, pending_tasks - 1),
		 total_points_awarded = total_points_awarded + ?,
		 version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		t.RewardPoints, familyID,
	)
	if err != nil {
		return false, fmt.Errorf("update family counters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, fmt.Errorf("award family %s: %w", familyID, ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit award: %w", err)
	}
	return true, nil
}

// creditLedger lazily creates the member's ledger row on first award, then
// applies the credit under a version check.
func creditLedger(tx *sql.Tx, familyID, userID string, points int) error {
	var version int64
	err := tx.QueryRow(
		`SELECT version FROM member_ledgers WHERE family_id = ? AND user_id = ?`,
		familyID, userID,
	).Scan(&version)
	if err == sql.ErrNoRows {
		_, err = tx.Exec(
			`INSERT INTO member_ledgers (family_id, user_id, points, total_points_earned, tasks_completed)
			 VALUES (?, ?, ?, ?, 1)`,
			familyID, userID, points, points,
		)
		if err != nil {
			return fmt.Errorf("create ledger: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read ledger version: %w", err)
	}

	res, err := tx.Exec(
		`UPDATE member_ledgers SET
		 points = points + ?,
		 total_points_earned = total_points_earned + ?,
		 tasks_completed = tasks_completed + 1,
		 version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE family_id = ? AND user_id = ? AND version = ?`,
		points, points, familyID, userID, version,
	)
	if err != nil {
		return fmt.Errorf("credit ledger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("credit ledger %s/%s: %w", familyID, userID, ErrConflict)
	}
	return nil
}
