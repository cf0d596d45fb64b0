package policy

import (
	"errors"
	"testing"

	"github.com/dukerupert/hearth/internal/model"
)

func allow(Request) Decision        { return Allow() }
func deny(Request) Decision         { return Deny("nope") }
func needsConsent(Request) Decision { return ConsentRequired("ask a guardian") }

func TestAllOf(t *testing.T) {
	if d := AllOf(allow, allow)(Request{}); !d.Allowed {
		t.Fatalf("all-allow should allow, got %+v", d)
	}
	if d := AllOf(allow, deny)(Request{}); d.Allowed {
		t.Fatal("one deny should deny")
	}
	d := AllOf(allow, needsConsent, deny)(Request{})
	if d.Allowed || !d.NeedsConsent {
		t.Fatalf("consent verdict should propagate through AllOf, got %+v", d)
	}
}

func TestAnyOf(t *testing.T) {
	if d := AnyOf(deny, allow)(Request{}); !d.Allowed {
		t.Fatalf("one allow should allow, got %+v", d)
	}
	if d := AnyOf(deny, deny)(Request{}); d.Allowed {
		t.Fatal("all-deny should deny")
	}
	// A consent-required branch outranks a plain denial so the caller sees
	// the path that would lift the block.
	d := AnyOf(deny, needsConsent)(Request{})
	if d.Allowed || !d.NeedsConsent {
		t.Fatalf("expected consent verdict, got %+v", d)
	}
	d = AnyOf(needsConsent, deny)(Request{})
	if !d.NeedsConsent {
		t.Fatalf("expected consent verdict regardless of order, got %+v", d)
	}
}

func TestAnyOfEmpty(t *testing.T) {
	if d := AnyOf()(Request{}); d.Allowed {
		t.Fatal("empty AnyOf should deny")
	}
}

func TestFieldWhitelist(t *testing.T) {
	rule := FieldWhitelist("name", "timezone")

	if d := rule(Request{Diff: Diff{"name": "x"}}); !d.Allowed {
		t.Fatalf("whitelisted field should pass, got %+v", d)
	}
	if d := rule(Request{Diff: nil}); !d.Allowed {
		t.Fatalf("empty diff should pass, got %+v", d)
	}
	d := rule(Request{Diff: Diff{"name": "x", "role": "parent"}})
	if d.Allowed {
		t.Fatal("off-whitelist field should deny")
	}
}

func TestDecisionErr(t *testing.T) {
	if err := Allow().Err(); err != nil {
		t.Fatalf("allow maps to nil, got %v", err)
	}
	if err := Deny("x").Err(); !errors.Is(err, ErrDenied) {
		t.Fatalf("deny maps to ErrDenied, got %v", err)
	}
	if err := ConsentRequired("x").Err(); !errors.Is(err, ErrConsentRequired) {
		t.Fatalf("consent maps to ErrConsentRequired, got %v", err)
	}
	if err := ConsentRequired("x").Err(); errors.Is(err, ErrDenied) {
		t.Fatal("consent must not satisfy ErrDenied")
	}
}

func TestDiffAny(t *testing.T) {
	d := Diff{"status": "completed"}
	if !d.Any("title", "status") {
		t.Fatal("Any should match status")
	}
	if d.Any("title", "rewardPoints") {
		t.Fatal("Any should not match absent fields")
	}
}

// fakeSnap is a static in-memory snapshot for engine-level tests.
type fakeSnap struct {
	families map[string]*model.Family
	users    map[string]*model.User
	tasks    map[string]*model.Task
	consents map[string]model.ConsentStatus
}

func (s *fakeSnap) Family(id string) *model.Family { return s.families[id] }
func (s *fakeSnap) User(id string) *model.User     { return s.users[id] }
func (s *fakeSnap) Task(familyID, taskID string) *model.Task {
	return s.tasks[familyID+"/"+taskID]
}
func (s *fakeSnap) ConsentStatus(parentID, childID string) model.ConsentStatus {
	if st, ok := s.consents[model.ConsentKey(parentID, childID)]; ok {
		return st
	}
	return model.ConsentNone
}

func testSnap() *fakeSnap {
	return &fakeSnap{
		families: map[string]*model.Family{
			"f1": {
				ID:        "f1",
				ParentIDs: []string{"p1"},
				MemberIDs: []string{"p1", "c1"},
			},
		},
		users: map[string]*model.User{
			"p1": {ID: "p1", FamilyID: "f1", Role: model.RoleParent},
			"c1": {ID: "c1", FamilyID: "f1", Role: model.RoleChild, IsUnder13: true},
		},
		tasks: map[string]*model.Task{
			"f1/t1": {
				ID:            "t1",
				FamilyID:      "f1",
				AssignedTo:    "c1",
				AssignedBy:    "p1",
				Status:        model.TaskInProgress,
				RequiresPhoto: true,
			},
		},
		consents: map[string]model.ConsentStatus{},
	}
}

func principal(id string, snap *fakeSnap) Principal {
	u := snap.users[id]
	return Principal{UID: u.ID, FamilyID: u.FamilyID, Role: u.Role, IsUnder13: u.IsUnder13}
}

func TestEngineDefaultDeny(t *testing.T) {
	e := NewEngine()
	snap := testSnap()
	p := principal("p1", snap)

	// No delete rule is installed anywhere.
	d := e.Evaluate(p, OpDelete, TaskPath("f1", "t1"), nil, snap)
	if d.Allowed {
		t.Fatal("unruled operation should be denied")
	}
	// Unknown collection.
	d = e.Evaluate(p, OpRead, Path{Kind: Kind("widget")}, nil, snap)
	if d.Allowed {
		t.Fatal("unknown collection should be denied")
	}
}

func TestEngineSystemBypass(t *testing.T) {
	e := NewEngine()
	snap := testSnap()

	d := e.Evaluate(SystemPrincipal(), OpUpdate, LedgerPath("f1", "c1"), Diff{"points": 5}, snap)
	if !d.Allowed {
		t.Fatalf("system principal should bypass rules, got %+v", d)
	}
}

func TestEngineAnonymousDenied(t *testing.T) {
	e := NewEngine()
	snap := testSnap()

	d := e.Evaluate(Principal{}, OpRead, FamilyPath("f1"), nil, snap)
	if d.Allowed {
		t.Fatal("anonymous principal should be denied")
	}
}

func TestFamilyReadMembership(t *testing.T) {
	e := NewEngine()
	snap := testSnap()

	if d := e.Evaluate(principal("c1", snap), OpRead, FamilyPath("f1"), nil, snap); !d.Allowed {
		t.Fatalf("member read should pass, got %+v", d)
	}
	stranger := Principal{UID: "x9", FamilyID: "f9", Role: model.RoleParent}
	if d := e.Evaluate(stranger, OpRead, FamilyPath("f1"), nil, snap); d.Allowed {
		t.Fatal("non-member read should be denied")
	}
}

func TestLedgerWriteDeniedForEveryone(t *testing.T) {
	e := NewEngine()
	snap := testSnap()
	diff := Diff{"points": 100}

	for _, uid := range []string{"p1", "c1"} {
		d := e.Evaluate(principal(uid, snap), OpUpdate, LedgerPath("f1", "c1"), diff, snap)
		if d.Allowed {
			t.Fatalf("%s should not write the ledger", uid)
		}
	}
	if d := e.Evaluate(principal("c1", snap), OpRead, LedgerPath("f1", "c1"), nil, snap); !d.Allowed {
		t.Fatalf("member ledger read should pass, got %+v", d)
	}
}

func TestTaskUpdateByAssignee(t *testing.T) {
	e := NewEngine()
	snap := testSnap()

	d := e.Evaluate(principal("c1", snap), OpUpdate, TaskPath("f1", "t1"),
		Diff{FieldStatus: "completed"}, snap)
	if !d.Allowed {
		t.Fatalf("assignee status update should pass, got %+v", d)
	}

	d = e.Evaluate(principal("c1", snap), OpUpdate, TaskPath("f1", "t1"),
		Diff{FieldRewardPoints: 9999}, snap)
	if d.Allowed {
		t.Fatal("assignee must not write rewardPoints")
	}
}

func TestTaskRewardPointsCreatorOnly(t *testing.T) {
	e := NewEngine()
	snap := testSnap()
	snap.families["f1"].ParentIDs = append(snap.families["f1"].ParentIDs, "p2")
	snap.families["f1"].MemberIDs = append(snap.families["f1"].MemberIDs, "p2")
	snap.users["p2"] = &model.User{ID: "p2", FamilyID: "f1", Role: model.RoleParent}

	diff := Diff{FieldRewardPoints: 10}
	if d := e.Evaluate(principal("p1", snap), OpUpdate, TaskPath("f1", "t1"), diff, snap); !d.Allowed {
		t.Fatalf("creator should retune rewardPoints, got %+v", d)
	}
	if d := e.Evaluate(principal("p2", snap), OpUpdate, TaskPath("f1", "t1"), diff, snap); d.Allowed {
		t.Fatal("a parent who did not create the task must not write rewardPoints")
	}
	// The non-creator parent still validates photos.
	verdict := Diff{FieldPhotoValidation: "approved", FieldPhotoValidatedBy: "p2"}
	if d := e.Evaluate(principal("p2", snap), OpUpdate, TaskPath("f1", "t1"), verdict, snap); !d.Allowed {
		t.Fatalf("any parent should validate photos, got %+v", d)
	}
}

func TestTaskCreateRules(t *testing.T) {
	e := NewEngine()
	snap := testSnap()

	parentDiff := Diff{"assignedBy": "p1", FieldAssignedTo: "c1", FieldTitle: "dishes"}
	if d := e.Evaluate(principal("p1", snap), OpCreate, TaskPath("f1", ""), parentDiff, snap); !d.Allowed {
		t.Fatalf("parent create should pass, got %+v", d)
	}

	selfDiff := Diff{"assignedBy": "c1", FieldAssignedTo: "c1", FieldTitle: "homework"}
	if d := e.Evaluate(principal("c1", snap), OpCreate, TaskPath("f1", ""), selfDiff, snap); !d.Allowed {
		t.Fatalf("child self-assigned create should pass, got %+v", d)
	}

	otherDiff := Diff{"assignedBy": "c1", FieldAssignedTo: "p1", FieldTitle: "chores"}
	if d := e.Evaluate(principal("c1", snap), OpCreate, TaskPath("f1", ""), otherDiff, snap); d.Allowed {
		t.Fatal("child must not assign tasks to others")
	}

	spoofed := Diff{"assignedBy": "p1", FieldAssignedTo: "c1", FieldTitle: "x"}
	if d := e.Evaluate(principal("c1", snap), OpCreate, TaskPath("f1", ""), spoofed, snap); d.Allowed {
		t.Fatal("assignedBy must name the caller")
	}
}

func TestMinorContactFieldsLocked(t *testing.T) {
	e := NewEngine()
	snap := testSnap()

	d := e.Evaluate(principal("c1", snap), OpUpdate, UserPath("c1"),
		Diff{FieldEmail: "kid@example.com"}, snap)
	if d.Allowed {
		t.Fatal("under-13 email write should be denied")
	}
	d = e.Evaluate(principal("c1", snap), OpUpdate, UserPath("c1"),
		Diff{FieldTimezone: "America/New_York"}, snap)
	if !d.Allowed {
		t.Fatalf("under-13 timezone write should pass, got %+v", d)
	}
	// An adult edits their own contact fields freely.
	d = e.Evaluate(principal("p1", snap), OpUpdate, UserPath("p1"),
		Diff{FieldEmail: "p@example.com"}, snap)
	if !d.Allowed {
		t.Fatalf("adult email self-edit should pass, got %+v", d)
	}
	// Nobody edits someone else's document.
	d = e.Evaluate(principal("p1", snap), OpUpdate, UserPath("c1"),
		Diff{FieldName: "Kid"}, snap)
	if d.Allowed {
		t.Fatal("editing another user's document should be denied")
	}
}

func TestPhotoConsentGate(t *testing.T) {
	e := NewEngine()
	snap := testSnap()
	submit := Diff{FieldPhotoValidation: "pending", FieldPhotoRef: "families/f1/tasks/t1/p.jpg"}

	d := e.Evaluate(principal("c1", snap), OpUpdate, TaskPath("f1", "t1"), submit, snap)
	if d.Allowed || !d.NeedsConsent {
		t.Fatalf("under-13 photo submission without consent should need consent, got %+v", d)
	}

	// Plain status writes stay open while consent is missing.
	d = e.Evaluate(principal("c1", snap), OpUpdate, TaskPath("f1", "t1"), Diff{FieldStatus: "completed"}, snap)
	if !d.Allowed {
		t.Fatalf("non-photo write should not be consent-gated, got %+v", d)
	}

	// Pending consent does not unlock; approval does.
	snap.consents[model.ConsentKey("p1", "c1")] = model.ConsentPending
	d = e.Evaluate(principal("c1", snap), OpUpdate, TaskPath("f1", "t1"), submit, snap)
	if !d.NeedsConsent {
		t.Fatalf("pending consent should still gate, got %+v", d)
	}

	snap.consents[model.ConsentKey("p1", "c1")] = model.ConsentApproved
	d = e.Evaluate(principal("c1", snap), OpUpdate, TaskPath("f1", "t1"), submit, snap)
	if !d.Allowed {
		t.Fatalf("approved consent should unlock photo writes, got %+v", d)
	}
}

func TestConsentRules(t *testing.T) {
	e := NewEngine()
	snap := testSnap()
	create := Diff{FieldStatus: string(model.ConsentPending)}

	if d := e.Evaluate(principal("p1", snap), OpCreate, ConsentPath("p1", "c1"), create, snap); !d.Allowed {
		t.Fatalf("named parent create should pass, got %+v", d)
	}
	if d := e.Evaluate(principal("c1", snap), OpCreate, ConsentPath("p1", "c1"), create, snap); d.Allowed {
		t.Fatal("child must not create a consent record")
	}
	stranger := Principal{UID: "x9", Role: model.RoleParent}
	if d := e.Evaluate(stranger, OpCreate, ConsentPath("p1", "c1"), create, snap); d.Allowed {
		t.Fatal("only the named parent may create the record")
	}
	// Both parties read; outsiders do not.
	if d := e.Evaluate(principal("c1", snap), OpRead, ConsentPath("p1", "c1"), nil, snap); !d.Allowed {
		t.Fatalf("child read of own consent should pass, got %+v", d)
	}
	if d := e.Evaluate(stranger, OpRead, ConsentPath("p1", "c1"), nil, snap); d.Allowed {
		t.Fatal("outsider consent read should be denied")
	}
}
