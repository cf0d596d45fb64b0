// Package policy decides, per field, who may read or write what in the
// shared document store. Evaluation is a pure function over the principal,
// the operation, the resource path, the field diff, and a snapshot of the
// store; denials are returned as values, never raised.
package policy

import (
	"errors"
	"fmt"

	"github.com/dukerupert/hearth/internal/model"
)

var (
	// ErrDenied is the deterministic permission failure. Never retried.
	ErrDenied = errors.New("permission denied")
	// ErrConsentRequired blocks an operation until a guardian approves.
	// Surfaced distinctly from ErrDenied so callers can route the user
	// to a consent flow.
	ErrConsentRequired = errors.New("parental consent required")
)

type Operation string

const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Principal identifies the actor a request runs as. The zero value is an
// anonymous principal that matches no rule.
type Principal struct {
	UID       string
	FamilyID  string
	Role      model.Role
	IsUnder13 bool
	System    bool
}

// SystemPrincipal is the internal identity the reward ledger trigger runs
// as. It bypasses rule evaluation entirely; no end-user request may carry it.
func SystemPrincipal() Principal {
	return Principal{UID: "system", System: true}
}

// Kind names a document collection.
type Kind string

const (
	KindFamily  Kind = "family"
	KindUser    Kind = "user"
	KindTask    Kind = "task"
	KindLedger  Kind = "ledger"
	KindConsent Kind = "consent"
)

// Path addresses one document in the store.
type Path struct {
	Kind     Kind
	FamilyID string
	UserID   string
	TaskID   string
	ParentID string
	ChildID  string
}

func FamilyPath(familyID string) Path {
	return Path{Kind: KindFamily, FamilyID: familyID}
}

func UserPath(userID string) Path {
	return Path{Kind: KindUser, UserID: userID}
}

func TaskPath(familyID, taskID string) Path {
	return Path{Kind: KindTask, FamilyID: familyID, TaskID: taskID}
}

func LedgerPath(familyID, userID string) Path {
	return Path{Kind: KindLedger, FamilyID: familyID, UserID: userID}
}

func ConsentPath(parentID, childID string) Path {
	return Path{Kind: KindConsent, ParentID: parentID, ChildID: childID}
}

// Diff is the set of fields a write changes, keyed by document field name
// with the incoming values. Reads carry a nil Diff.
type Diff map[string]any

func (d Diff) Has(field string) bool {
	_, ok := d[field]
	return ok
}

// Any reports whether the diff touches at least one of the given fields.
func (d Diff) Any(fields ...string) bool {
	for _, f := range fields {
		if d.Has(f) {
			return true
		}
	}
	return false
}

// Snapshot is the read-only view of the store rules evaluate against.
// Lookups return nil for missing documents.
type Snapshot interface {
	Family(id string) *model.Family
	User(id string) *model.User
	Task(familyID, taskID string) *model.Task
	ConsentStatus(parentID, childID string) model.ConsentStatus
}

// Decision is an allow/deny verdict. NeedsConsent marks denials that a
// guardian approval would lift.
type Decision struct {
	Allowed      bool
	NeedsConsent bool
	Reason       string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

func ConsentRequired(reason string) Decision {
	return Decision{NeedsConsent: true, Reason: reason}
}

// Err translates the decision into the error taxonomy: nil for allow,
// ErrConsentRequired or ErrDenied otherwise, wrapped with the rule reason.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.NeedsConsent {
		return fmt.Errorf("%w: %s", ErrConsentRequired, d.Reason)
	}
	return fmt.Errorf("%w: %s", ErrDenied, d.Reason)
}

// Request bundles the inputs to one rule evaluation.
type Request struct {
	Principal Principal
	Op        Operation
	Path      Path
	Diff      Diff
	Snap      Snapshot
}

// Rule is a composable access predicate.
type Rule func(Request) Decision

// AllOf allows only when every rule allows; the first non-allow verdict
// wins, so consent-required denials propagate.
func AllOf(rules ...Rule) Rule {
	return func(req Request) Decision {
		for _, r := range rules {
			if d := r(req); !d.Allowed {
				return d
			}
		}
		return Allow()
	}
}

// AnyOf allows when at least one rule allows. A consent-required verdict
// takes precedence over plain denials so callers see the lifting path.
func AnyOf(rules ...Rule) Rule {
	return func(req Request) Decision {
		var denied Decision
		for _, r := range rules {
			d := r(req)
			if d.Allowed {
				return d
			}
			if d.NeedsConsent || denied.Reason == "" {
				denied = d
			}
			if d.NeedsConsent {
				break
			}
		}
		if denied.Reason == "" {
			denied = Deny("no matching rule")
		}
		return denied
	}
}

// FieldWhitelist denies writes that touch any field outside the list.
func FieldWhitelist(fields ...string) Rule {
	allowed := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		allowed[f] = struct{}{}
	}
	return func(req Request) Decision {
		for f := range req.Diff {
			if _, ok := allowed[f]; !ok {
				return Deny("field not writable: " + f)
			}
		}
		return Allow()
	}
}

// Engine evaluates the installed rule table. Stateless and safe for
// concurrent use.
type Engine struct {
	rules map[Kind]map[Operation]Rule
}

// NewEngine builds an engine carrying the application rule table.
func NewEngine() *Engine {
	return &Engine{rules: defaultRules()}
}

// Evaluate returns the verdict for one operation. The system principal
// bypasses the table; everything without an installed rule is denied.
func (e *Engine) Evaluate(p Principal, op Operation, path Path, diff Diff, snap Snapshot) Decision {
	if p.System {
		return Allow()
	}
	ops, ok := e.rules[path.Kind]
	if !ok {
		return Deny("unknown collection")
	}
	rule, ok := ops[op]
	if !ok {
		return Deny(fmt.Sprintf("%s not permitted on %s", op, path.Kind))
	}
	return rule(Request{Principal: p, Op: op, Path: path, Diff: diff, Snap: snap})
}
