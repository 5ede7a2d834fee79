package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestCase(t *testing.T) *CaseRecord {
	t.Helper()
	creator := id.NewPrincipalID()
	rec, err := NewCase(id.NewCaseID(), Intake{
		Complainant: "A. Resident",
		Details:     "stolen bicycle outside the library",
	}, &creator, testTime)
	require.NoError(t, err)
	return rec
}

func assignedCase(t *testing.T, officer id.OfficerID) *CaseRecord {
	t.Helper()
	rec := newTestCase(t)
	rec.ApplyAssign(officer, testTime)
	return rec
}

func TestNewCaseStartsUnassigned(t *testing.T) {
	rec := newTestCase(t)
	assert.Equal(t, StatusNew, rec.Status)
	assert.Nil(t, rec.AssignedOfficer)
	assert.Empty(t, rec.Notes)
	assert.Nil(t, rec.CurrentCloseRequest())
}

func TestNewCaseRequiresDetails(t *testing.T) {
	_, err := NewCase(id.NewCaseID(), Intake{Details: "   "}, nil, testTime)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestTransitionRelation(t *testing.T) {
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusNew, StatusAssigned, true},
		{StatusNew, StatusDeclined, true},
		{StatusNew, StatusClosed, false},
		{StatusNew, StatusInProgress, false},
		{StatusAssigned, StatusAssigned, true},
		{StatusAssigned, StatusInProgress, true},
		{StatusAssigned, StatusPendingClose, true},
		{StatusAssigned, StatusClosed, true},
		{StatusInProgress, StatusAssigned, true},
		{StatusInProgress, StatusPendingClose, true},
		{StatusPendingClose, StatusInProgress, true},
		{StatusPendingClose, StatusClosed, true},
		{StatusPendingClose, StatusNew, false},
		{StatusClosed, StatusAssigned, false},
		{StatusClosed, StatusInProgress, false},
		{StatusDeclined, StatusAssigned, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusClosed.Terminal())
	assert.True(t, StatusDeclined.Terminal())
	assert.False(t, StatusNew.Terminal())
	assert.False(t, StatusPendingClose.Terminal())
}

func TestAssignMovesToAssigned(t *testing.T) {
	officer := id.NewOfficerID()
	rec := newTestCase(t)
	require.NoError(t, rec.CanAssign())

	later := testTime.Add(time.Minute)
	rec.ApplyAssign(officer, later)
	assert.Equal(t, StatusAssigned, rec.Status)
	require.NotNil(t, rec.AssignedOfficer)
	assert.Equal(t, officer, *rec.AssignedOfficer)
	assert.Equal(t, later, rec.UpdatedAt)
}

func TestReassignKeepsNotesAndHistory(t *testing.T) {
	o1 := id.NewOfficerID()
	o2 := id.NewOfficerID()
	rec := assignedCase(t, o1)
	rec.ApplyAddNote(o1.Principal(), "first pass done", testTime)
	rec.ApplyRequestClose(o1, "resolved", testTime)

	require.NoError(t, rec.CanAssign())
	rec.ApplyAssign(o2, testTime.Add(time.Hour))

	assert.Equal(t, StatusAssigned, rec.Status)
	assert.True(t, rec.IsAssignedTo(o2))
	assert.Len(t, rec.Notes, 1)
	assert.Len(t, rec.CloseHistory, 1)
}

func TestFirstNoteAdvancesAssignedOnly(t *testing.T) {
	officer := id.NewOfficerID()
	rec := assignedCase(t, officer)

	require.NoError(t, rec.CanAddNote("started review"))
	rec.ApplyAddNote(officer.Principal(), "  started review  ", testTime)
	assert.Equal(t, StatusInProgress, rec.Status)
	require.Len(t, rec.Notes, 1)
	assert.Equal(t, "started review", rec.Notes[0].Text)

	// A second note must not change status again.
	rec.ApplyAddNote(officer.Principal(), "interviewed witness", testTime)
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Len(t, rec.Notes, 2)
}

func TestBlankNoteRejected(t *testing.T) {
	rec := assignedCase(t, id.NewOfficerID())
	err := rec.CanAddNote("   \t ")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEmptyNote))
}

func TestRequestClosePreconditions(t *testing.T) {
	officer := id.NewOfficerID()
	other := id.NewOfficerID()

	rec := newTestCase(t)
	err := rec.CanRequestClose(officer)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoActiveAssignment))

	rec = assignedCase(t, officer)
	err = rec.CanRequestClose(other)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAssignedOfficer))

	require.NoError(t, rec.CanRequestClose(officer))
	rec.ApplyRequestClose(officer, "resolved", testTime)
	err = rec.CanRequestClose(officer)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestRequestCloseDefaultsReason(t *testing.T) {
	officer := id.NewOfficerID()
	rec := assignedCase(t, officer)
	rec.ApplyRequestClose(officer, "   ", testTime)

	cr := rec.CurrentCloseRequest()
	require.NotNil(t, cr)
	assert.Equal(t, DefaultCloseReason, cr.Reason)
	assert.Equal(t, StatusPendingClose, rec.Status)
}

func TestApproveCloseResolvesCycle(t *testing.T) {
	officer := id.NewOfficerID()
	approver := id.NewPrincipalID()
	rec := assignedCase(t, officer)
	rec.ApplyRequestClose(officer, "resolved", testTime)

	require.NoError(t, rec.CanResolveClose())
	rec.ApplyApproveClose(approver, testTime.Add(time.Minute))

	assert.Equal(t, StatusClosed, rec.Status)
	cr := rec.CurrentCloseRequest()
	require.NotNil(t, cr.ApprovedBy)
	assert.Equal(t, approver, *cr.ApprovedBy)
	assert.NotNil(t, cr.ApprovedAt)
	assert.Nil(t, cr.DeclinedBy)
}

func TestDeclineCloseRevertsToInProgress(t *testing.T) {
	officer := id.NewOfficerID()
	decliner := id.NewPrincipalID()
	// Decline from a request made while still ASSIGNED must land on
	// IN_PROGRESS, never back on ASSIGNED.
	rec := assignedCase(t, officer)
	rec.ApplyRequestClose(officer, "resolved", testTime)

	require.NoError(t, rec.CanDeclineClose("insufficient evidence"))
	rec.ApplyDeclineClose(decliner, "insufficient evidence", testTime.Add(time.Minute))

	assert.Equal(t, StatusInProgress, rec.Status)
	cr := rec.CurrentCloseRequest()
	require.NotNil(t, cr.DeclinedBy)
	assert.Equal(t, decliner, *cr.DeclinedBy)
	assert.Equal(t, "insufficient evidence", cr.DeclineReason)
	assert.Nil(t, cr.ApprovedBy)
}

func TestDeclineRequiresReason(t *testing.T) {
	officer := id.NewOfficerID()
	rec := assignedCase(t, officer)
	rec.ApplyRequestClose(officer, "resolved", testTime)

	err := rec.CanDeclineClose("  ")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeReasonRequired))
}

func TestResolveWithoutPendingRequest(t *testing.T) {
	rec := assignedCase(t, id.NewOfficerID())
	err := rec.CanResolveClose()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoPendingRequest))
}

func TestSecondCyclePreservesHistory(t *testing.T) {
	officer := id.NewOfficerID()
	supervisor := id.NewPrincipalID()
	rec := assignedCase(t, officer)

	rec.ApplyRequestClose(officer, "resolved", testTime)
	rec.ApplyDeclineClose(supervisor, "insufficient evidence", testTime)
	rec.ApplyRequestClose(officer, "new evidence attached", testTime.Add(time.Hour))

	require.Len(t, rec.CloseHistory, 2)
	first, second := rec.CloseHistory[0], rec.CloseHistory[1]
	assert.NotNil(t, first.DeclinedBy)
	assert.Equal(t, "insufficient evidence", first.DeclineReason)
	assert.Nil(t, second.DeclinedBy)
	assert.Equal(t, "new evidence attached", second.Reason)
	assert.Same(t, &rec.CloseHistory[1], rec.CurrentCloseRequest())

	rec.ApplyApproveClose(supervisor, testTime.Add(2*time.Hour))
	assert.Equal(t, StatusClosed, rec.Status)
	// The declined first cycle is untouched by the approval.
	assert.Nil(t, rec.CloseHistory[0].ApprovedBy)
}

func TestDirectCloseFromNewRejected(t *testing.T) {
	rec := newTestCase(t)
	err := rec.CanClose()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestDirectCloseFromPendingClose(t *testing.T) {
	officer := id.NewOfficerID()
	rec := assignedCase(t, officer)
	rec.ApplyRequestClose(officer, "resolved", testTime)

	require.NoError(t, rec.CanClose())
	rec.ApplyClose(testTime.Add(time.Minute))
	assert.Equal(t, StatusClosed, rec.Status)
	// Direct close records no approval on the pending cycle.
	assert.Nil(t, rec.CurrentCloseRequest().ApprovedBy)
}

func TestRejectOnlyFromNew(t *testing.T) {
	rec := newTestCase(t)
	require.NoError(t, rec.CanReject())
	rec.ApplyReject(testTime)
	assert.Equal(t, StatusDeclined, rec.Status)

	assigned := assignedCase(t, id.NewOfficerID())
	err := assigned.CanReject()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestUpdateDetailsLeavesLifecycleAlone(t *testing.T) {
	officer := id.NewOfficerID()
	rec := assignedCase(t, officer)
	rec.ApplyAddNote(officer.Principal(), "note", testTime)

	details := "updated description"
	priority := "HIGH"
	require.NoError(t, rec.CanUpdateDetails(DetailsPatch{Details: &details}))
	rec.ApplyUpdateDetails(DetailsPatch{Details: &details, Priority: &priority}, testTime.Add(time.Minute))

	assert.Equal(t, "updated description", rec.Details)
	assert.Equal(t, "HIGH", rec.Priority)
	assert.Equal(t, StatusInProgress, rec.Status)
	assert.Len(t, rec.Notes, 1)
}

func TestCloneIsDeep(t *testing.T) {
	officer := id.NewOfficerID()
	rec := assignedCase(t, officer)
	rec.ApplyAddNote(officer.Principal(), "note", testTime)
	rec.ApplyRequestClose(officer, "resolved", testTime)

	dup := rec.Clone()
	dup.ApplyDeclineClose(id.NewPrincipalID(), "nope", testTime)
	dup.Notes[0].Text = "tampered"

	assert.Equal(t, StatusPendingClose, rec.Status)
	assert.Nil(t, rec.CurrentCloseRequest().DeclinedBy)
	assert.Equal(t, "note", rec.Notes[0].Text)
}
