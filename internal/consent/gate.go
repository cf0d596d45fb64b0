// Package consent manages the lifecycle of guardian approval records for
// minors: none -> pending -> {approved, denied}, terminal thereafter. Only
// the parent named in a record may create or resolve it.
package consent

import (
	"errors"
	"fmt"

	"github.com/dukerupert/hearth/internal/model"
	"github.com/dukerupert/hearth/internal/policy"
	"github.com/dukerupert/hearth/internal/store"
)

// ErrInvalidTransition marks a lifecycle step outside the state machine.
var ErrInvalidTransition = errors.New("invalid consent transition")

type Gate struct {
	consents *store.ConsentStore
}

func NewGate(consents *store.ConsentStore) *Gate {
	return &Gate{consents: consents}
}

// Request creates the pending record for principal -> childID. Denied for
// every principal other than the parent the record names, the child
// included.
func (g *Gate) Request(p policy.Principal, childID string) (*model.ParentalConsent, error) {
	if p.UID == "" || p.Role != model.RoleParent {
		return nil, fmt.Errorf("%w: only a parent may request consent", policy.ErrDenied)
	}

	existing, err := g.consents.Get(p.UID, childID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: consent already %s", ErrInvalidTransition, existing.Status)
	}
	return g.consents.Create(p.UID, childID)
}

// Resolve moves a pending record to approved or denied. The transition is
// one-way: a terminal record never changes again.
func (g *Gate) Resolve(p policy.Principal, childID string, status model.ConsentStatus) (*model.ParentalConsent, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("%w: cannot resolve to %s", ErrInvalidTransition, status)
	}

	existing, err := g.consents.Get(p.UID, childID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: no consent record for this pair", ErrInvalidTransition)
	}
	if existing.ParentID != p.UID {
		return nil, fmt.Errorf("%w: only the named parent may resolve consent", policy.ErrDenied)
	}
	if existing.Status != model.ConsentPending {
		return nil, fmt.Errorf("%w: consent already %s", ErrInvalidTransition, existing.Status)
	}
	return g.consents.UpdateStatus(p.UID, childID, status)
}

// CheckStatus is the read-only gate consumed by the policy engine and by
// product logic upstream. A missing record reads as ConsentNone.
func (g *Gate) CheckStatus(parentID, childID string) (model.ConsentStatus, error) {
	c, err := g.consents.Get(parentID, childID)
	if err != nil {
		return model.ConsentNone, err
	}
	if c == nil {
		return model.ConsentNone, nil
	}
	return c.Status, nil
}
