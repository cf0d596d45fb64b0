package model

import "time"

// Role is the closed set of family roles.
type Role string

const (
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleParent || r == RoleChild
}

// CanValidatePhotos reports whether the role may approve or reject a task's
// photo submission.
func (r Role) CanValidatePhotos() bool {
	return r == RoleParent
}

// CanManageFamily reports whether the role may edit family-level settings.
func (r Role) CanManageFamily() bool {
	return r == RoleParent
}

type User struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"family_id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	IsUnder13 bool      `json:"is_under_13"`
	Email     string    `json:"email"`
	Timezone  string    `json:"timezone"`
	HasPIN    bool      `json:"has_pin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
