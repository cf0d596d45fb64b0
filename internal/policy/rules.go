package policy

import "github.com/dukerupert/hearth/internal/model"

// Document field names as they appear in client diffs.
const (
	FieldStatus           = "status"
	FieldPhotoValidation  = "photoValidationStatus"
	FieldPhotoValidatedBy = "photoValidatedBy"
	FieldPhotoRef         = "photoRef"
	FieldRewardPoints     = "rewardPoints"
	FieldTitle            = "title"
	FieldRequiresPhoto    = "requiresPhoto"
	FieldAssignedTo       = "assignedTo"
	FieldName             = "name"
	FieldEmail            = "email"
	FieldPhone            = "phone"
	FieldTimezone         = "timezone"
)

// Contact fields an under-13 principal may never write, even on their own
// document.
var sensitiveUserFields = []string{FieldEmail, FieldPhone}

// Photo fields whose writes by an under-13 assignee are gated on guardian
// consent.
var photoFields = []string{FieldPhotoValidation, FieldPhotoRef}

func defaultRules() map[Kind]map[Operation]Rule {
	return map[Kind]map[Operation]Rule{
		KindFamily: {
			OpRead:   familyMember,
			OpUpdate: AllOf(familyParent, FieldWhitelist(FieldName)),
		},
		KindUser: {
			OpRead: sameFamily,
			OpUpdate: AllOf(
				self,
				FieldWhitelist(FieldName, FieldTimezone, FieldEmail),
				minorContactGuard,
			),
		},
		KindTask: {
			OpRead: familyMember,
			OpCreate: AnyOf(
				AllOf(familyParent, createdByPrincipal),
				AllOf(familyMember, createdByPrincipal, selfAssigned),
			),
			OpUpdate: AnyOf(
				// The assignee drives progress and photo submission.
				AllOf(
					assignee,
					FieldWhitelist(FieldStatus, FieldPhotoValidation, FieldPhotoRef),
					photoConsent,
				),
				// The creator may retune the task, reward included.
				AllOf(
					familyParent,
					taskCreator,
					FieldWhitelist(FieldTitle, FieldRewardPoints, FieldRequiresPhoto,
						FieldAssignedTo, FieldStatus, FieldPhotoValidation, FieldPhotoValidatedBy),
				),
				// Any parent in the family validates photos and rejects tasks,
				// but never touches rewardPoints on a task they did not create.
				AllOf(
					familyParent,
					FieldWhitelist(FieldStatus, FieldPhotoValidation, FieldPhotoValidatedBy),
				),
			),
		},
		// Ledger fields are derived, never authored: no write rule exists,
		// so only the system principal reaches them.
		KindLedger: {
			OpRead: familyMember,
		},
		KindConsent: {
			OpRead:   consentParty,
			OpCreate: consentParent,
			OpUpdate: AllOf(consentParent, FieldWhitelist(FieldStatus)),
		},
	}
}

func familyMember(req Request) Decision {
	f := req.Snap.Family(req.Path.FamilyID)
	if f == nil {
		return Deny("family not found")
	}
	if !f.HasMember(req.Principal.UID) {
		return Deny("not a family member")
	}
	return Allow()
}

func familyParent(req Request) Decision {
	f := req.Snap.Family(req.Path.FamilyID)
	if f == nil {
		return Deny("family not found")
	}
	if !f.HasParent(req.Principal.UID) || !req.Principal.Role.CanManageFamily() {
		return Deny("not a family parent")
	}
	return Allow()
}

func sameFamily(req Request) Decision {
	u := req.Snap.User(req.Path.UserID)
	if u == nil {
		return Deny("user not found")
	}
	if u.FamilyID != req.Principal.FamilyID {
		return Deny("not in the same family")
	}
	return Allow()
}

func self(req Request) Decision {
	if req.Path.UserID != req.Principal.UID {
		return Deny("not your document")
	}
	return Allow()
}

// minorContactGuard denies contact-field writes by under-13 principals.
// Enforced in addition to the ordinary self-edit whitelist.
func minorContactGuard(req Request) Decision {
	if req.Principal.IsUnder13 && req.Diff.Any(sensitiveUserFields...) {
		return Deny("contact fields locked for minors")
	}
	return Allow()
}

func assignee(req Request) Decision {
	t := req.Snap.Task(req.Path.FamilyID, req.Path.TaskID)
	if t == nil {
		return Deny("task not found")
	}
	if t.AssignedTo != req.Principal.UID {
		return Deny("not the assignee")
	}
	return Allow()
}

func taskCreator(req Request) Decision {
	t := req.Snap.Task(req.Path.FamilyID, req.Path.TaskID)
	if t == nil {
		return Deny("task not found")
	}
	if t.AssignedBy != req.Principal.UID {
		return Deny("not the task creator")
	}
	return Allow()
}

func createdByPrincipal(req Request) Decision {
	if by, _ := req.Diff["assignedBy"].(string); by != req.Principal.UID {
		return Deny("assignedBy must be the caller")
	}
	return Allow()
}

func selfAssigned(req Request) Decision {
	if to, _ := req.Diff[FieldAssignedTo].(string); to != req.Principal.UID {
		return Deny("children may only assign tasks to themselves")
	}
	return Allow()
}

// photoConsent gates an under-13 assignee's photo writes on an approved
// consent record from any parent in the family.
func photoConsent(req Request) Decision {
	if !req.Principal.IsUnder13 || !req.Diff.Any(photoFields...) {
		return Allow()
	}
	f := req.Snap.Family(req.Path.FamilyID)
	if f == nil {
		return Deny("family not found")
	}
	for _, parentID := range f.ParentIDs {
		if req.Snap.ConsentStatus(parentID, req.Principal.UID) == model.ConsentApproved {
			return Allow()
		}
	}
	return ConsentRequired("photo submission requires guardian approval")
}

func consentParent(req Request) Decision {
	if req.Path.ParentID != req.Principal.UID {
		return Deny("only the named parent may manage this consent")
	}
	return Allow()
}

func consentParty(req Request) Decision {
	if req.Path.ParentID == req.Principal.UID || req.Path.ChildID == req.Principal.UID {
		return Allow()
	}
	return Deny("not a party to this consent")
}
