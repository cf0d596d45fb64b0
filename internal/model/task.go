package model

import "time"

type TaskStatus string

const (
	TaskCreated    TaskStatus = "created"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskRejected   TaskStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskRejected
}

type PhotoStatus string

const (
	PhotoPending  PhotoStatus = "pending"
	PhotoApproved PhotoStatus = "approved"
	PhotoRejected PhotoStatus = "rejected"
)

type Task struct {
	ID                    string       `json:"id"`
	FamilyID              string       `json:"family_id"`
	Title                 string       `json:"title"`
	AssignedTo            string       `json:"assigned_to"`
	AssignedBy            string       `json:"assigned_by"`
	Status                TaskStatus   `json:"status"`
	RequiresPhoto         bool         `json:"requires_photo"`
	PhotoValidationStatus *PhotoStatus `json:"photo_validation_status,omitempty"`
	PhotoValidatedBy      *string      `json:"photo_validated_by,omitempty"`
	PhotoRef              *string      `json:"photo_ref,omitempty"`
	RewardPoints          int          `json:"reward_points"`
	PointsAwarded         *int         `json:"points_awarded,omitempty"`
	Version               int64        `json:"-"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// Awarded reports whether the task has already had its points credited.
func (t *Task) Awarded() bool {
	return t.PointsAwarded != nil
}

// TaskChange is one committed before/after mutation of a task, recorded in
// the transactional outbox and consumed by the reward ledger trigger.
type TaskChange struct {
	ID          int64      `json:"id"`
	FamilyID    string     `json:"family_id"`
	TaskID      string     `json:"task_id"`
	Before      *Task      `json:"before,omitempty"`
	After       *Task      `json:"after,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}
