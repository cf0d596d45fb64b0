// Package blob stores task photo binaries under
// families/{familyId}/tasks/{taskId}/... and enforces the coarse
// family-membership upload policy. The finer check (assignee or validator)
// belongs to the document-level task policy, which gates accepting the
// blob reference into the task.
package blob

import (
	"fmt"
	"strings"

	"github.com/dukerupert/hearth/internal/policy"
)

// ObjectPath is a parsed blob key.
type ObjectPath struct {
	FamilyID string
	TaskID   string
	Name     string
}

func (p ObjectPath) String() string {
	return fmt.Sprintf("families/%s/tasks/%s/%s", p.FamilyID, p.TaskID, p.Name)
}

// ParsePath splits a blob key of the form families/{fid}/tasks/{tid}/{name}.
func ParsePath(key string) (ObjectPath, error) {
	parts := strings.SplitN(key, "/", 5)
	if len(parts) != 5 || parts[0] != "families" || parts[2] != "tasks" ||
		parts[1] == "" || parts[3] == "" || parts[4] == "" {
		return ObjectPath{}, fmt.Errorf("malformed blob path %q", key)
	}
	return ObjectPath{FamilyID: parts[1], TaskID: parts[3], Name: parts[4]}, nil
}

// Authorize permits the upload iff the principal belongs to the path's
// family. Intentionally coarser than the task policy: the blob store
// cannot evaluate per-document predicates.
func Authorize(p policy.Principal, path ObjectPath, snap policy.Snapshot) error {
	if p.System {
		return nil
	}
	f := snap.Family(path.FamilyID)
	if f == nil || !f.HasMember(p.UID) {
		return fmt.Errorf("%w: not a member of family %s", policy.ErrDenied, path.FamilyID)
	}
	return nil
}
