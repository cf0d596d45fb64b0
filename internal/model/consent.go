package model

import "time"

type ConsentStatus string

const (
	// ConsentNone is the zero state: no record exists for the pair.
	ConsentNone     ConsentStatus = "none"
	ConsentPending  ConsentStatus = "pending"
	ConsentApproved ConsentStatus = "approved"
	ConsentDenied   ConsentStatus = "denied"
)

// Terminal reports whether the status admits no further transitions.
func (s ConsentStatus) Terminal() bool {
	return s == ConsentApproved || s == ConsentDenied
}

// ChildData identifies the minor a consent record covers.
type ChildData struct {
	UserID string `json:"user_id"`
}

// ParentalConsent records a guardian's approval for a minor's data
// operations. Keyed by "{parentId}_{childId}"; only the named parent may
// create or resolve it.
type ParentalConsent struct {
	ID        string        `json:"id"`
	ParentID  string        `json:"parent_id"`
	ChildData ChildData     `json:"child_data"`
	Status    ConsentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ConsentKey builds the document key for a parent/child pair.
func ConsentKey(parentID, childID string) string {
	return parentID + "_" + childID
}
