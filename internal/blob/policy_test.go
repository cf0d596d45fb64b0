package blob

import (
	"errors"
	"testing"

	"github.com/dukerupert/hearth/internal/model"
	"github.com/dukerupert/hearth/internal/policy"
)

func TestParsePath(t *testing.T) {
	p, err := ParsePath("families/f1/tasks/t1/photo.jpg")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.FamilyID != "f1" || p.TaskID != "t1" || p.Name != "photo.jpg" {
		t.Fatalf("unexpected path %+v", p)
	}
	if p.String() != "families/f1/tasks/t1/photo.jpg" {
		t.Fatalf("round trip broke: %s", p.String())
	}

	bad := []string{
		"",
		"photo.jpg",
		"families/f1/photo.jpg",
		"families/f1/tasks/t1",
		"families//tasks/t1/photo.jpg",
		"families/f1/tasks//photo.jpg",
		"users/u1/tasks/t1/photo.jpg",
	}
	for _, key := range bad {
		if _, err := ParsePath(key); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}

type memberSnap struct {
	family *model.Family
}

func (s memberSnap) Family(id string) *model.Family {
	if s.family != nil && s.family.ID == id {
		return s.family
	}
	return nil
}
func (s memberSnap) User(string) *model.User           { return nil }
func (s memberSnap) Task(string, string) *model.Task   { return nil }
func (s memberSnap) ConsentStatus(string, string) model.ConsentStatus {
	return model.ConsentNone
}

func TestAuthorize(t *testing.T) {
	snap := memberSnap{family: &model.Family{
		ID:        "f1",
		ParentIDs: []string{"p1"},
		MemberIDs: []string{"p1", "c1"},
	}}
	path := ObjectPath{FamilyID: "f1", TaskID: "t1", Name: "photo.jpg"}

	member := policy.Principal{UID: "c1", FamilyID: "f1", Role: model.RoleChild}
	if err := Authorize(member, path, snap); err != nil {
		t.Fatalf("member should upload: %v", err)
	}

	outsider := policy.Principal{UID: "x9", FamilyID: "f9", Role: model.RoleParent}
	if err := Authorize(outsider, path, snap); !errors.Is(err, policy.ErrDenied) {
		t.Fatalf("outsider should be denied, got %v", err)
	}

	missing := ObjectPath{FamilyID: "f9", TaskID: "t1", Name: "photo.jpg"}
	if err := Authorize(member, missing, snap); !errors.Is(err, policy.ErrDenied) {
		t.Fatalf("unknown family should be denied, got %v", err)
	}

	if err := Authorize(policy.SystemPrincipal(), path, snap); err != nil {
		t.Fatalf("system should bypass: %v", err)
	}
}
