package model

import "time"

// Counters are the per-family aggregates maintained exclusively by the
// reward ledger transaction. totalPointsAwarded equals the sum of every
// pointsAwarded ever set on a task in this family.
type Counters struct {
	PendingTasks       int `json:"pending_tasks"`
	CompletedTasks     int `json:"completed_tasks"`
	TotalPointsAwarded int `json:"total_points_awarded"`
}

type Family struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsPremium bool      `json:"is_premium"`
	Counters  Counters  `json:"counters"`
	ParentIDs []string  `json:"parent_ids"`
	MemberIDs []string  `json:"member_ids"`
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasMember reports whether the user belongs to the family.
func (f *Family) HasMember(userID string) bool {
	for _, id := range f.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// HasParent reports whether the user is one of the family's parents.
func (f *Family) HasParent(userID string) bool {
	for _, id := range f.ParentIDs {
		if id == userID {
			return true
		}
	}
	return false
}
