package model

import "time"

// MemberLedger holds a user's running reward totals within one family.
// Rows are created lazily on first award and are written only by the
// reward ledger transaction; every field is monotonically non-decreasing.
type MemberLedger struct {
	FamilyID          string    `json:"family_id"`
	UserID            string    `json:"user_id"`
	Points            int       `json:"points"`
	TotalPointsEarned int       `json:"total_points_earned"`
	TasksCompleted    int       `json:"tasks_completed"`
	Version           int64     `json:"-"`
	UpdatedAt         time.Time `json:"updated_at"`
}
