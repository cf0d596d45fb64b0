package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dukerupert/hearth/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `id, family_id, title, assigned_to, assigned_by, status, requires_photo,
	photo_validation_status, photo_validated_by, photo_ref, reward_points, points_awarded,
	version, created_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var requiresPhoto int
	var photoStatus, validatedBy, photoRef sql.NullString
	var awarded sql.NullInt64

	err := scanner.Scan(&t.ID, &t.FamilyID, &t.Title, &t.AssignedTo, &t.AssignedBy,
		&t.Status, &requiresPhoto, &photoStatus, &validatedBy, &photoRef,
		&t.RewardPoints, &awarded, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.RequiresPhoto = requiresPhoto != 0
	if photoStatus.Valid {
		ps := model.PhotoStatus(photoStatus.String)
		t.PhotoValidationStatus = &ps
	}
	if validatedBy.Valid {
		t.PhotoValidatedBy = &validatedBy.String
	}
	if photoRef.Valid {
		t.PhotoRef = &photoRef.String
	}
	if awarded.Valid {
		n := int(awarded.Int64)
		t.PointsAwarded = &n
	}
	return &t, nil
}

// Create inserts the task, bumps the family's pendingTasks counter, and
// records the outbox row, all in one transaction.
func (s *TaskStore) Create(t *model.Task) (*model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = model.TaskCreated
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO tasks (id, family_id, title, assigned_to, assigned_by, status, requires_photo, reward_points)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.FamilyID, t.Title, t.AssignedTo, t.AssignedBy, t.Status,
		boolToInt(t.RequiresPhoto), t.RewardPoints,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE families SET pending_tasks = pending_tasks + 1, version = version + 1,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		t.FamilyID,
	)
	if err != nil {
		return nil, fmt.Errorf("bump pending tasks: %w", err)
	}

	created, err := getTaskTx(tx, t.FamilyID, t.ID)
	if err != nil {
		return nil, err
	}
	if err := insertTaskChange(tx, nil, created); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit task create: %w", err)
	}
	return created, nil
}

func (s *TaskStore) GetByID(familyID, id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE family_id = ? AND id = ?`, familyID, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func getTaskTx(tx *sql.Tx, familyID, id string) (*model.Task, error) {
	row := tx.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE family_id = ? AND id = ?`, familyID, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("get task in tx: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByFamily(familyID string) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE family_id = ? ORDER BY created_at DESC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update writes the mutated task guarded by its version, recording the
// before/after pair in the outbox within the same transaction. A stale
// version fails with ErrConflict.
func (s *TaskStore) Update(before, after *model.Task) (*model.Task, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE tasks SET title = ?, assigned_to = ?, status = ?, requires_photo = ?,
		 photo_validation_status = ?, photo_validated_by = ?, photo_ref = ?, reward_points = ?,
		 version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE family_id = ? AND id = ? AND version = ?`,
		after.Title, after.AssignedTo, after.Status, boolToInt(after.RequiresPhoto),
		nullStr((*string)(after.PhotoValidationStatus)), nullStr(after.PhotoValidatedBy),
		nullStr(after.PhotoRef), after.RewardPoints,
		before.FamilyID, before.ID, before.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update task %s: %w", before.ID, ErrConflict)
	}

	updated, err := getTaskTx(tx, before.FamilyID, before.ID)
	if err != nil {
		return nil, err
	}
	if err := insertTaskChange(tx, before, updated); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit task update: %w", err)
	}
	return updated, nil
}

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
