package models

import (
	"strings"
	"time"

	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
	stringsutil "casefile/pkg/platform/strings"
)

// DefaultCloseReason is recorded when an officer requests closure without
// stating a reason.
const DefaultCloseReason = "officer requested closure"

// Note is one entry in the append-only investigation trail. Entries are
// never edited or removed; insertion order is chronological.
type Note struct {
	Author    id.PrincipalID `json:"author"`
	Text      string         `json:"note"`
	CreatedAt time.Time      `json:"created_at"`
}

// CloseRequest is one closure-negotiation cycle. A record accumulates one
// entry per cycle; resolved cycles are retained as history and only the
// latest entry is authoritative.
type CloseRequest struct {
	RequestedBy   id.OfficerID    `json:"requested_by"`
	RequestedAt   time.Time       `json:"requested_at"`
	Reason        string          `json:"reason"`
	ApprovedBy    *id.PrincipalID `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	DeclinedBy    *id.PrincipalID `json:"declined_by,omitempty"`
	DeclinedAt    *time.Time      `json:"declined_at,omitempty"`
	DeclineReason string          `json:"decline_reason,omitempty"`
}

// Resolved reports whether this cycle has been approved or declined.
func (cr *CloseRequest) Resolved() bool {
	return cr.ApprovedAt != nil || cr.DeclinedAt != nil
}

// CaseRecord is the aggregate root for one complaint/case.
//
// Invariants:
//   - Status = NEW ⇔ AssignedOfficer is nil
//   - Status ∈ {ASSIGNED, IN_PROGRESS, PENDING_CLOSE} ⇒ AssignedOfficer set
//   - Status = PENDING_CLOSE ⇒ latest CloseHistory entry is unresolved
//   - Status = CLOSED via negotiation ⇒ latest entry has ApprovedAt set
//   - Notes and CloseHistory only grow; entries are never edited or removed
//   - Terminal status (CLOSED, DECLINED) freezes the record entirely
//
// The descriptive payload (Complainant, Details, Attachments, Priority) is
// opaque to the lifecycle: no transition ever inspects it.
type CaseRecord struct {
	ID              id.CaseID       `json:"id"`
	Status          Status          `json:"status"`
	Complainant     string          `json:"complainant"`
	Details         string          `json:"complaint_details"`
	Attachments     []string        `json:"attachments,omitempty"`
	Priority        string          `json:"priority,omitempty"`
	AssignedOfficer *id.OfficerID   `json:"assigned_officer,omitempty"`
	Notes           []Note          `json:"investigation_notes"`
	CloseHistory    []CloseRequest  `json:"close_history,omitempty"`
	CreatedBy       *id.PrincipalID `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Version counts persisted mutations; the store layer uses it for
	// optimistic concurrency checks.
	Version int64 `json:"-"`
}

// Intake carries the descriptive payload supplied at creation.
type Intake struct {
	Complainant string
	Details     string
	Attachments []string
	Priority    string
}

// NewCase constructs a record in the NEW state. createdBy is nil for
// anonymously filed complaints.
func NewCase(caseID id.CaseID, intake Intake, createdBy *id.PrincipalID, now time.Time) (*CaseRecord, error) {
	details := strings.TrimSpace(intake.Details)
	if details == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "complaint details are required")
	}
	return &CaseRecord{
		ID:          caseID,
		Status:      StatusNew,
		Complainant: strings.TrimSpace(intake.Complainant),
		Details:     details,
		Attachments: stringsutil.DedupeAndTrim(intake.Attachments),
		Priority:    strings.TrimSpace(intake.Priority),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Clone returns a deep copy so stores can hand out records without aliasing
// their internal state.
func (c *CaseRecord) Clone() *CaseRecord {
	dup := *c
	if c.AssignedOfficer != nil {
		officer := *c.AssignedOfficer
		dup.AssignedOfficer = &officer
	}
	if c.CreatedBy != nil {
		creator := *c.CreatedBy
		dup.CreatedBy = &creator
	}
	dup.Attachments = append([]string(nil), c.Attachments...)
	dup.Notes = append([]Note(nil), c.Notes...)
	dup.CloseHistory = make([]CloseRequest, len(c.CloseHistory))
	for i := range c.CloseHistory {
		dup.CloseHistory[i] = *c.CloseHistory[i].clone()
	}
	return &dup
}

func (cr *CloseRequest) clone() *CloseRequest {
	dup := *cr
	if cr.ApprovedBy != nil {
		v := *cr.ApprovedBy
		dup.ApprovedBy = &v
	}
	if cr.ApprovedAt != nil {
		v := *cr.ApprovedAt
		dup.ApprovedAt = &v
	}
	if cr.DeclinedBy != nil {
		v := *cr.DeclinedBy
		dup.DeclinedBy = &v
	}
	if cr.DeclinedAt != nil {
		v := *cr.DeclinedAt
		dup.DeclinedAt = &v
	}
	return &dup
}

// CurrentCloseRequest returns the latest negotiation cycle, or nil if none
// was ever opened.
func (c *CaseRecord) CurrentCloseRequest() *CloseRequest {
	if len(c.CloseHistory) == 0 {
		return nil
	}
	return &c.CloseHistory[len(c.CloseHistory)-1]
}

// IsAssignedTo reports whether the given officer is the current assignee.
func (c *CaseRecord) IsAssignedTo(officer id.OfficerID) bool {
	return c.AssignedOfficer != nil && *c.AssignedOfficer == officer
}

// IsCreator reports whether the given principal originated the record.
// Anonymous records have no creator.
func (c *CaseRecord) IsCreator(p id.PrincipalID) bool {
	return c.CreatedBy != nil && *c.CreatedBy == p
}

// CanAssign checks whether an officer can be assigned or reassigned.
// Reassignment is legal from every open state.
func (c *CaseRecord) CanAssign() error {
	if !c.Status.CanTransitionTo(StatusAssigned) {
		return dErrors.New(dErrors.CodeCaseClosed, "case is closed")
	}
	return nil
}

// ApplyAssign sets the assignee and moves the record to ASSIGNED
// unconditionally. Existing notes and close-request history survive.
func (c *CaseRecord) ApplyAssign(officer id.OfficerID, now time.Time) {
	c.AssignedOfficer = &officer
	c.Status = StatusAssigned
	c.UpdatedAt = now
}

// CanAddNote validates the note text.
func (c *CaseRecord) CanAddNote(text string) error {
	if strings.TrimSpace(text) == "" {
		return dErrors.New(dErrors.CodeEmptyNote, "note text must not be blank")
	}
	return nil
}

// ApplyAddNote appends to the investigation trail. Writing the first note
// on an ASSIGNED case is treated as evidence that work has begun and
// auto-advances the record to IN_PROGRESS; no other status is affected.
func (c *CaseRecord) ApplyAddNote(author id.PrincipalID, text string, now time.Time) {
	c.Notes = append(c.Notes, Note{
		Author:    author,
		Text:      strings.TrimSpace(text),
		CreatedAt: now,
	})
	if c.Status == StatusAssigned {
		c.Status = StatusInProgress
	}
	c.UpdatedAt = now
}

// CanRequestClose checks the closure-request preconditions for the given
// requester.
func (c *CaseRecord) CanRequestClose(requester id.OfficerID) error {
	if c.AssignedOfficer == nil {
		return dErrors.New(dErrors.CodeNoActiveAssignment, "no officer is assigned to this case")
	}
	if !c.IsAssignedTo(requester) {
		return dErrors.New(dErrors.CodeNotAssignedOfficer, "only the assigned officer may request closure")
	}
	if c.Status == StatusPendingClose {
		return dErrors.New(dErrors.CodeConflict, "a close request is already pending")
	}
	if c.Status != StatusAssigned && c.Status != StatusInProgress {
		return dErrors.Newf(dErrors.CodeConflict, "cannot request closure from status %s", c.Status)
	}
	return nil
}

// ApplyRequestClose opens a new negotiation cycle. Prior resolved cycles
// are retained as history; only the appended entry is authoritative.
func (c *CaseRecord) ApplyRequestClose(requester id.OfficerID, reason string, now time.Time) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCloseReason
	}
	c.CloseHistory = append(c.CloseHistory, CloseRequest{
		RequestedBy: requester,
		RequestedAt: now,
		Reason:      reason,
	})
	c.Status = StatusPendingClose
	c.UpdatedAt = now
}

// CanResolveClose checks that an unresolved close request is pending.
func (c *CaseRecord) CanResolveClose() error {
	if c.Status != StatusPendingClose {
		return dErrors.New(dErrors.CodeNoPendingRequest, "no close request is pending")
	}
	if cr := c.CurrentCloseRequest(); cr == nil || cr.Resolved() {
		return dErrors.New(dErrors.CodeNoPendingRequest, "no unresolved close request")
	}
	return nil
}

// ApplyApproveClose resolves the pending cycle as approved and closes the
// case terminally.
func (c *CaseRecord) ApplyApproveClose(approver id.PrincipalID, now time.Time) {
	cr := c.CurrentCloseRequest()
	cr.ApprovedBy = &approver
	approvedAt := now
	cr.ApprovedAt = &approvedAt
	c.Status = StatusClosed
	c.UpdatedAt = now
}

// CanDeclineClose checks the pending request and the mandatory reason.
func (c *CaseRecord) CanDeclineClose(reason string) error {
	if err := c.CanResolveClose(); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeReasonRequired, "a reason is required to decline closure")
	}
	return nil
}

// ApplyDeclineClose resolves the pending cycle as declined. The record
// reverts to IN_PROGRESS, never ASSIGNED: requesting closure is itself
// evidence of progress.
func (c *CaseRecord) ApplyDeclineClose(decliner id.PrincipalID, reason string, now time.Time) {
	cr := c.CurrentCloseRequest()
	cr.DeclinedBy = &decliner
	declinedAt := now
	cr.DeclinedAt = &declinedAt
	cr.DeclineReason = strings.TrimSpace(reason)
	c.Status = StatusInProgress
	c.UpdatedAt = now
}

// CanClose checks the administrative direct-close preconditions. A NEW
// case has nothing investigated and cannot be closed directly; reject it
// at intake instead.
func (c *CaseRecord) CanClose() error {
	if c.Status == StatusNew {
		return dErrors.New(dErrors.CodeConflict, "an unassigned case cannot be closed; reject it instead")
	}
	if !c.Status.CanTransitionTo(StatusClosed) {
		return dErrors.New(dErrors.CodeCaseClosed, "case is closed")
	}
	return nil
}

// ApplyClose closes the record directly, without a negotiation cycle. No
// approval fields are recorded.
func (c *CaseRecord) ApplyClose(now time.Time) {
	c.Status = StatusClosed
	c.UpdatedAt = now
}

// CanReject checks the intake-rejection precondition.
func (c *CaseRecord) CanReject() error {
	if c.Status != StatusNew {
		return dErrors.Newf(dErrors.CodeConflict, "only new cases can be rejected, status is %s", c.Status)
	}
	return nil
}

// ApplyReject declines the case at intake, terminally.
func (c *CaseRecord) ApplyReject(now time.Time) {
	c.Status = StatusDeclined
	c.UpdatedAt = now
}

// DetailsPatch carries the descriptive fields the update-content operation
// may change. Nil fields are left untouched.
type DetailsPatch struct {
	Complainant *string
	Details     *string
	Attachments *[]string
	Priority    *string
}

// CanUpdateDetails validates the patch payload.
func (c *CaseRecord) CanUpdateDetails(patch DetailsPatch) error {
	if patch.Details != nil && strings.TrimSpace(*patch.Details) == "" {
		return dErrors.New(dErrors.CodeValidation, "complaint details must not be blank")
	}
	return nil
}

// ApplyUpdateDetails mutates the descriptive payload only; status,
// assignment, notes, and close history are untouched.
func (c *CaseRecord) ApplyUpdateDetails(patch DetailsPatch, now time.Time) {
	if patch.Complainant != nil {
		c.Complainant = strings.TrimSpace(*patch.Complainant)
	}
	if patch.Details != nil {
		c.Details = strings.TrimSpace(*patch.Details)
	}
	if patch.Attachments != nil {
		c.Attachments = stringsutil.DedupeAndTrim(*patch.Attachments)
	}
	if patch.Priority != nil {
		c.Priority = strings.TrimSpace(*patch.Priority)
	}
	c.UpdatedAt = now
}
