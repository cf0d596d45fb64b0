// Package storetest is the emulated-store harness the rule and trigger
// tests run against: a real in-memory store with act-as-principal identity
// switching and assert-succeeds/assert-fails helpers.
package storetest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dukerupert/hearth/internal/blob"
	"github.com/dukerupert/hearth/internal/consent"
	"github.com/dukerupert/hearth/internal/database"
	"github.com/dukerupert/hearth/internal/guard"
	"github.com/dukerupert/hearth/internal/ledger"
	"github.com/dukerupert/hearth/internal/model"
	"github.com/dukerupert/hearth/internal/policy"
	"github.com/dukerupert/hearth/internal/store"
)

// Harness wires the full core against an in-memory database.
type Harness struct {
	Guard    *guard.Guard
	Gate     *consent.Gate
	Trigger  *ledger.Trigger
	Outbox   *store.OutboxStore
	Families *store.FamilyStore
	Users    *store.UserStore
	Tasks    *store.TaskStore
	Ledgers  *store.LedgerStore
	Consents *store.ConsentStore
}

// New builds a harness on a fresh :memory: database.
func New(t testing.TB) *Harness {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	families := store.NewFamilyStore(db)
	users := store.NewUserStore(db)
	tasks := store.NewTaskStore(db)
	ledgers := store.NewLedgerStore(db)
	consents := store.NewConsentStore(db)
	outbox := store.NewOutboxStore(db)

	g := guard.New(policy.NewEngine(), families, users, tasks, ledgers, consents, logger)

	return &Harness{
		Guard:    g,
		Gate:     consent.NewGate(consents),
		Trigger:  ledger.NewTrigger(ledgers, nil, logger),
		Outbox:   outbox,
		Families: families,
		Users:    users,
		Tasks:    tasks,
		Ledgers:  ledgers,
		Consents: consents,
	}
}

// SeedFamily creates a family with one parent and one child and returns all
// three.
func (h *Harness) SeedFamily(t testing.TB, name string) (*model.Family, *model.User, *model.User) {
	t.Helper()

	f, err := h.Families.Create(name)
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	parent, err := h.Users.Create(f.ID, "Parent", model.RoleParent, false, "parent@example.com", "UTC")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := h.Users.Create(f.ID, "Child", model.RoleChild, true, "", "UTC")
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	f, err = h.Families.GetByID(f.ID)
	if err != nil {
		t.Fatalf("reload family: %v", err)
	}
	return f, parent, child
}

// DrainFeed runs the ledger trigger over every pending change, marking the
// handled ones processed.
func (h *Harness) DrainFeed(t testing.TB) {
	t.Helper()

	changes, err := h.Outbox.ListPending(100)
	if err != nil {
		t.Fatalf("list pending changes: %v", err)
	}
	for i := range changes {
		if err := h.Trigger.HandleChange(context.Background(), &changes[i]); err != nil {
			t.Fatalf("handle change %d: %v", changes[i].ID, err)
		}
		if err := h.Outbox.MarkProcessed(changes[i].ID); err != nil {
			t.Fatalf("mark processed: %v", err)
		}
	}
}

// As returns a client acting as the given user.
func (h *Harness) As(u *model.User) *Client {
	return &Client{h: h, p: policy.Principal{
		UID:       u.ID,
		FamilyID:  u.FamilyID,
		Role:      u.Role,
		IsUnder13: u.IsUnder13,
	}}
}

// AsSystem returns a client acting as the internal system principal.
func (h *Harness) AsSystem() *Client {
	return &Client{h: h, p: policy.SystemPrincipal()}
}

// AsStranger returns a client for a principal outside every family.
func (h *Harness) AsStranger(uid string) *Client {
	return &Client{h: h, p: policy.Principal{UID: uid, Role: model.RoleParent}}
}

// Client issues reads and writes as one fixed principal.
type Client struct {
	h *Harness
	p policy.Principal
}

func (c *Client) Principal() policy.Principal { return c.p }

func (c *Client) ReadFamily(id string) (*model.Family, error) {
	return c.h.Guard.Family(c.p, id)
}

func (c *Client) ReadUser(id string) (*model.User, error) {
	return c.h.Guard.User(c.p, id)
}

func (c *Client) UpdateUser(id string, diff policy.Diff) (*model.User, error) {
	return c.h.Guard.UpdateUser(c.p, id, diff)
}

func (c *Client) CreateTask(task *model.Task) (*model.Task, error) {
	return c.h.Guard.CreateTask(c.p, task)
}

func (c *Client) UpdateTask(familyID, taskID string, diff policy.Diff) (*model.Task, error) {
	return c.h.Guard.UpdateTask(context.Background(), c.p, familyID, taskID, diff)
}

func (c *Client) ReadLedger(familyID, userID string) (*model.MemberLedger, error) {
	return c.h.Guard.Ledger(c.p, familyID, userID)
}

// WriteLedger attempts a direct ledger mutation, which only the system
// principal's rule evaluation permits.
func (c *Client) WriteLedger(familyID, userID string, diff policy.Diff) error {
	return c.h.Guard.Evaluate(c.p, policy.OpUpdate, policy.LedgerPath(familyID, userID), diff)
}

func (c *Client) RequestConsent(childID string) (*model.ParentalConsent, error) {
	return c.h.Gate.Request(c.p, childID)
}

func (c *Client) ResolveConsent(childID string, status model.ConsentStatus) (*model.ParentalConsent, error) {
	return c.h.Gate.Resolve(c.p, childID, status)
}

// CreateConsentAs attempts the raw policy evaluation for creating a consent
// record keyed to parentID, regardless of who the client is.
func (c *Client) CreateConsentAs(parentID, childID string) error {
	return c.h.Guard.Evaluate(c.p, policy.OpCreate, policy.ConsentPath(parentID, childID),
		policy.Diff{"status": string(model.ConsentPending)})
}

// Upload attempts the blob-store policy check for the given object key.
func (c *Client) Upload(key string) error {
	path, err := blob.ParsePath(key)
	if err != nil {
		return err
	}
	return blob.Authorize(c.p, path, c.h.Guard.Snapshot())
}

// AssertSucceeds fails the test when err is non-nil.
func AssertSucceeds(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

// AssertFails fails the test when err is nil.
func AssertFails(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected failure, got success")
	}
}

// AssertDenied fails the test unless err is a policy denial.
func AssertDenied(t testing.TB, err error) {
	t.Helper()
	if !errors.Is(err, policy.ErrDenied) {
		t.Fatalf("expected policy denial, got %v", err)
	}
}

// AssertConsentRequired fails the test unless err is the consent gate.
func AssertConsentRequired(t testing.TB, err error) {
	t.Helper()
	if !errors.Is(err, policy.ErrConsentRequired) {
		t.Fatalf("expected consent required, got %v", err)
	}
}
