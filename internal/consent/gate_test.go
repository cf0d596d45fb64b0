package consent

import (
	"errors"
	"testing"

	"github.com/dukerupert/hearth/internal/database"
	"github.com/dukerupert/hearth/internal/model"
	"github.com/dukerupert/hearth/internal/policy"
	"github.com/dukerupert/hearth/internal/store"
)

func newGate(t *testing.T) *Gate {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewGate(store.NewConsentStore(db))
}

func parent(uid string) policy.Principal {
	return policy.Principal{UID: uid, FamilyID: "f1", Role: model.RoleParent}
}

func child(uid string) policy.Principal {
	return policy.Principal{UID: uid, FamilyID: "f1", Role: model.RoleChild, IsUnder13: true}
}

func TestRequestCreatesPending(t *testing.T) {
	g := newGate(t)

	c, err := g.Request(parent("p1"), "c1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if c.Status != model.ConsentPending {
		t.Fatalf("expected pending, got %s", c.Status)
	}
	if c.ID != model.ConsentKey("p1", "c1") {
		t.Fatalf("unexpected record id %s", c.ID)
	}

	st, err := g.CheckStatus("p1", "c1")
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if st != model.ConsentPending {
		t.Fatalf("expected pending, got %s", st)
	}
}

func TestRequestByChildDenied(t *testing.T) {
	g := newGate(t)

	if _, err := g.Request(child("c1"), "c1"); !errors.Is(err, policy.ErrDenied) {
		t.Fatalf("child request should be denied, got %v", err)
	}
}

func TestRequestTwice(t *testing.T) {
	g := newGate(t)

	if _, err := g.Request(parent("p1"), "c1"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := g.Request(parent("p1"), "c1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("duplicate request should fail, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	g := newGate(t)

	if _, err := g.Request(parent("p1"), "c1"); err != nil {
		t.Fatalf("request: %v", err)
	}
	c, err := g.Resolve(parent("p1"), "c1", model.ConsentApproved)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c.Status != model.ConsentApproved {
		t.Fatalf("expected approved, got %s", c.Status)
	}
}

func TestResolveIsTerminal(t *testing.T) {
	g := newGate(t)

	if _, err := g.Request(parent("p1"), "c1"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := g.Resolve(parent("p1"), "c1", model.ConsentDenied); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// A resolved record never changes again.
	if _, err := g.Resolve(parent("p1"), "c1", model.ConsentApproved); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("re-resolving should fail, got %v", err)
	}

	st, err := g.CheckStatus("p1", "c1")
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if st != model.ConsentDenied {
		t.Fatalf("status should stay denied, got %s", st)
	}
}

func TestResolveToPending(t *testing.T) {
	g := newGate(t)

	if _, err := g.Request(parent("p1"), "c1"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := g.Resolve(parent("p1"), "c1", model.ConsentPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("resolving to pending should fail, got %v", err)
	}
}

func TestResolveMissingRecord(t *testing.T) {
	g := newGate(t)

	if _, err := g.Resolve(parent("p1"), "c1", model.ConsentApproved); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("resolving a missing record should fail, got %v", err)
	}
}

func TestResolveByOtherParent(t *testing.T) {
	g := newGate(t)

	if _, err := g.Request(parent("p1"), "c1"); err != nil {
		t.Fatalf("request: %v", err)
	}
	// p2 has no record keyed to them, so the gate sees nothing to resolve.
	if _, err := g.Resolve(parent("p2"), "c1", model.ConsentApproved); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("other parent resolve should fail, got %v", err)
	}
}

func TestCheckStatusMissing(t *testing.T) {
	g := newGate(t)

	st, err := g.CheckStatus("p1", "c1")
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if st != model.ConsentNone {
		t.Fatalf("missing record should read as none, got %s", st)
	}
}
