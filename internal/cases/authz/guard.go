// Package authz centralizes every permission rule of the case lifecycle in
// one table-driven predicate. Guards are pure: no I/O, no side effects, so
// the whole rule set is testable in isolation from transport and storage.
package authz

import (
	"casefile/internal/cases/models"
	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
)

// Operation enumerates the guarded lifecycle operations.
type Operation string

const (
	OpCreate        Operation = "create"
	OpView          Operation = "view"
	OpAssign        Operation = "assign"
	OpAddNote       Operation = "add_note"
	OpRequestClose  Operation = "request_close"
	OpResolveClose  Operation = "resolve_close"
	OpDirectClose   Operation = "direct_close"
	OpReject        Operation = "reject"
	OpUpdateDetails Operation = "update_details"
	OpDelete        Operation = "delete"
)

// Reason is the structured denial reason. Callers render a precise message
// from it; a bare "forbidden" is never returned.
type Reason string

const (
	ReasonNotOwner         Reason = "NotOwner"
	ReasonWrongRole        Reason = "WrongRole"
	ReasonNotAssigned      Reason = "NotAssigned"
	ReasonAlreadyRequester Reason = "AlreadyRequester"
)

// Decision is the outcome of a guard evaluation.
type Decision struct {
	Allowed bool
	Reason  Reason
	Detail  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason Reason, detail string) Decision {
	return Decision{Reason: reason, Detail: detail}
}

// Err converts a denial into the coded error the engine returns. Allowed
// decisions yield nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return dErrors.Newf(dErrors.CodeNotAuthorized, "%s: %s", d.Reason, d.Detail)
}

type rule func(p id.Principal, rec *models.CaseRecord) Decision

// rules maps each operation to its permission predicate. This table is the
// single authoritative statement of who may do what.
var rules = map[Operation]rule{
	// Anyone may file a complaint, including anonymous callers.
	OpCreate: func(id.Principal, *models.CaseRecord) Decision {
		return allow()
	},

	// Staff see every record; citizens only their own.
	OpView: func(p id.Principal, rec *models.CaseRecord) Decision {
		if p.Role == id.RoleFieldOfficer || p.Role.Supervisory() {
			return allow()
		}
		if rec.IsCreator(p.ID) {
			return allow()
		}
		return deny(ReasonNotOwner, "only the record owner may view this case")
	},

	OpAssign: func(p id.Principal, rec *models.CaseRecord) Decision {
		if p.Role.Supervisory() {
			return allow()
		}
		return deny(ReasonWrongRole, "only a case officer or administrator may assign officers")
	},

	OpAddNote: func(p id.Principal, rec *models.CaseRecord) Decision {
		if p.Role.Supervisory() {
			return allow()
		}
		if rec.IsAssignedTo(p.ID.Officer()) {
			return allow()
		}
		if p.Role == id.RoleFieldOfficer {
			return deny(ReasonNotAssigned, "only the assigned officer may add notes")
		}
		return deny(ReasonWrongRole, "citizens may not add investigation notes")
	},

	// Closure may only be proposed by the officer working the case; even
	// supervisors go through assign-to-self first.
	OpRequestClose: func(p id.Principal, rec *models.CaseRecord) Decision {
		if rec.IsAssignedTo(p.ID.Officer()) {
			return allow()
		}
		return deny(ReasonNotAssigned, "only the assigned officer may request closure")
	},

	// Approval/decline is the counterparty's act: a supervising role that
	// did not make the request.
	OpResolveClose: func(p id.Principal, rec *models.CaseRecord) Decision {
		if !p.Role.Supervisory() {
			return deny(ReasonWrongRole, "only a case officer or administrator may resolve a close request")
		}
		if cr := rec.CurrentCloseRequest(); cr != nil && !cr.Resolved() && cr.RequestedBy.Principal() == p.ID {
			return deny(ReasonAlreadyRequester, "the requester may not resolve their own close request")
		}
		return allow()
	},

	OpDirectClose: func(p id.Principal, rec *models.CaseRecord) Decision {
		if p.Role.Supervisory() || rec.IsAssignedTo(p.ID.Officer()) {
			return allow()
		}
		if p.Role == id.RoleFieldOfficer {
			return deny(ReasonNotAssigned, "only the assigned officer may close this case")
		}
		return deny(ReasonWrongRole, "only staff may close a case")
	},

	// Intake rejection is a triage decision.
	OpReject: func(p id.Principal, rec *models.CaseRecord) Decision {
		if p.Role.Supervisory() {
			return allow()
		}
		return deny(ReasonWrongRole, "only a case officer or administrator may reject a case")
	},

	// The owner may amend their complaint until intake is processed;
	// after that only staff touch the payload.
	OpUpdateDetails: func(p id.Principal, rec *models.CaseRecord) Decision {
		if p.Role.Supervisory() {
			return allow()
		}
		if rec.IsCreator(p.ID) {
			if rec.Status == models.StatusNew {
				return allow()
			}
			return deny(ReasonWrongRole, "the record owner may only edit a case before intake is processed")
		}
		return deny(ReasonNotOwner, "only the record owner or staff may edit this case")
	},

	OpDelete: func(p id.Principal, rec *models.CaseRecord) Decision {
		if p.Role.Supervisory() {
			return allow()
		}
		if rec.IsCreator(p.ID) {
			return allow()
		}
		return deny(ReasonNotOwner, "only the creator, a case officer, or an administrator may delete this case")
	},
}

// CanPerform evaluates whether the principal may perform the operation on
// the record. Pure; the engine is responsible for terminal-status checks
// before consulting the guard.
func CanPerform(op Operation, p id.Principal, rec *models.CaseRecord) Decision {
	r, ok := rules[op]
	if !ok {
		return deny(ReasonWrongRole, "unknown operation")
	}
	return r(p, rec)
}
