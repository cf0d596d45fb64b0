package guard

import (
	"github.com/dukerupert/hearth/internal/model"
	"github.com/dukerupert/hearth/internal/policy"
)

// storeSnapshot adapts the stores to the policy engine's read-only view.
// Lookup failures read as missing documents, so evaluation fails closed.
type storeSnapshot struct {
	g *Guard
}

func (g *Guard) Snapshot() policy.Snapshot {
	return storeSnapshot{g: g}
}

func (s storeSnapshot) Family(id string) *model.Family {
	f, err := s.g.families.GetByID(id)
	if err != nil {
		s.g.logger.Error("snapshot family read", "family_id", id, "error", err)
		return nil
	}
	return f
}

func (s storeSnapshot) User(id string) *model.User {
	u, err := s.g.users.GetByID(id)
	if err != nil {
		s.g.logger.Error("snapshot user read", "user_id", id, "error", err)
		return nil
	}
	return u
}

func (s storeSnapshot) Task(familyID, taskID string) *model.Task {
	t, err := s.g.tasks.GetByID(familyID, taskID)
	if err != nil {
		s.g.logger.Error("snapshot task read", "task_id", taskID, "error", err)
		return nil
	}
	return t
}

func (s storeSnapshot) ConsentStatus(parentID, childID string) model.ConsentStatus {
	c, err := s.g.consents.Get(parentID, childID)
	if err != nil {
		s.g.logger.Error("snapshot consent read", "parent_id", parentID, "child_id", childID, "error", err)
		return model.ConsentNone
	}
	if c == nil {
		return model.ConsentNone
	}
	return c.Status
}
