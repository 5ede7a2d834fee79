package authz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casefile/internal/cases/models"
	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type actors struct {
	citizen  id.Principal
	officer  id.Principal // field officer, assigned
	stranger id.Principal // field officer, not assigned
	analyst  id.Principal // case officer
	admin    id.Principal
}

func newActors() actors {
	return actors{
		citizen:  id.Principal{ID: id.NewPrincipalID(), Role: id.RoleCitizen},
		officer:  id.Principal{ID: id.NewPrincipalID(), Role: id.RoleFieldOfficer},
		stranger: id.Principal{ID: id.NewPrincipalID(), Role: id.RoleFieldOfficer},
		analyst:  id.Principal{ID: id.NewPrincipalID(), Role: id.RoleCaseOfficer},
		admin:    id.Principal{ID: id.NewPrincipalID(), Role: id.RoleAdministrator},
	}
}

func caseOwnedBy(t *testing.T, creator id.Principal) *models.CaseRecord {
	t.Helper()
	createdBy := creator.ID
	rec, err := models.NewCase(id.NewCaseID(), models.Intake{Details: "test complaint"}, &createdBy, now)
	require.NoError(t, err)
	return rec
}

func TestCreateAllowsAnyone(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)
	assert.True(t, CanPerform(OpCreate, id.Principal{}, rec).Allowed, "anonymous")
	assert.True(t, CanPerform(OpCreate, a.citizen, rec).Allowed)
	assert.True(t, CanPerform(OpCreate, a.admin, rec).Allowed)
}

func TestAssignRequiresSupervisoryRole(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)

	assert.True(t, CanPerform(OpAssign, a.analyst, rec).Allowed)
	assert.True(t, CanPerform(OpAssign, a.admin, rec).Allowed)

	for _, p := range []id.Principal{a.citizen, a.officer} {
		d := CanPerform(OpAssign, p, rec)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonWrongRole, d.Reason)
	}
}

func TestAddNoteRules(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)
	rec.ApplyAssign(a.officer.ID.Officer(), now)

	assert.True(t, CanPerform(OpAddNote, a.officer, rec).Allowed, "assigned officer")
	assert.True(t, CanPerform(OpAddNote, a.analyst, rec).Allowed)
	assert.True(t, CanPerform(OpAddNote, a.admin, rec).Allowed)

	d := CanPerform(OpAddNote, a.stranger, rec)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotAssigned, d.Reason)

	d = CanPerform(OpAddNote, a.citizen, rec)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonWrongRole, d.Reason)
}

func TestRequestCloseOnlyAssignedOfficer(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)
	rec.ApplyAssign(a.officer.ID.Officer(), now)

	assert.True(t, CanPerform(OpRequestClose, a.officer, rec).Allowed)

	// Even supervisors cannot request closure of a case they do not work.
	for _, p := range []id.Principal{a.stranger, a.analyst, a.admin, a.citizen} {
		d := CanPerform(OpRequestClose, p, rec)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonNotAssigned, d.Reason)
	}
}

func TestResolveCloseRules(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)
	rec.ApplyAssign(a.officer.ID.Officer(), now)
	rec.ApplyRequestClose(a.officer.ID.Officer(), "resolved", now)

	assert.True(t, CanPerform(OpResolveClose, a.analyst, rec).Allowed)
	assert.True(t, CanPerform(OpResolveClose, a.admin, rec).Allowed)

	d := CanPerform(OpResolveClose, a.officer, rec)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonWrongRole, d.Reason)

	d = CanPerform(OpResolveClose, a.citizen, rec)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonWrongRole, d.Reason)
}

func TestResolveCloseNeverTheRequester(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)
	// An analyst assigned themselves the case and requested closure; they
	// must not approve their own request.
	rec.ApplyAssign(a.analyst.ID.Officer(), now)
	rec.ApplyRequestClose(a.analyst.ID.Officer(), "resolved", now)

	d := CanPerform(OpResolveClose, a.analyst, rec)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonAlreadyRequester, d.Reason)

	assert.True(t, CanPerform(OpResolveClose, a.admin, rec).Allowed)
}

func TestResolveCloseRequesterOfResolvedCycleMayResolveNext(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)
	rec.ApplyAssign(a.analyst.ID.Officer(), now)
	rec.ApplyRequestClose(a.analyst.ID.Officer(), "resolved", now)
	rec.ApplyDeclineClose(a.admin.ID, "not yet", now)

	// Case reassigned; a different officer opens a new cycle.
	rec.ApplyAssign(a.officer.ID.Officer(), now)
	rec.ApplyRequestClose(a.officer.ID.Officer(), "done now", now)

	assert.True(t, CanPerform(OpResolveClose, a.analyst, rec).Allowed)
}

func TestDirectCloseRules(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)
	rec.ApplyAssign(a.officer.ID.Officer(), now)

	assert.True(t, CanPerform(OpDirectClose, a.officer, rec).Allowed)
	assert.True(t, CanPerform(OpDirectClose, a.analyst, rec).Allowed)
	assert.True(t, CanPerform(OpDirectClose, a.admin, rec).Allowed)

	d := CanPerform(OpDirectClose, a.stranger, rec)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotAssigned, d.Reason)

	d = CanPerform(OpDirectClose, a.citizen, rec)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonWrongRole, d.Reason)
}

func TestRejectRequiresSupervisoryRole(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)

	assert.True(t, CanPerform(OpReject, a.analyst, rec).Allowed)
	assert.True(t, CanPerform(OpReject, a.admin, rec).Allowed)

	for _, p := range []id.Principal{a.citizen, a.officer} {
		d := CanPerform(OpReject, p, rec)
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonWrongRole, d.Reason)
	}
}

func TestUpdateDetailsOwnerOnlyWhileNew(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)

	assert.True(t, CanPerform(OpUpdateDetails, a.citizen, rec).Allowed, "owner while NEW")
	assert.True(t, CanPerform(OpUpdateDetails, a.analyst, rec).Allowed)

	rec.ApplyAssign(a.officer.ID.Officer(), now)
	d := CanPerform(OpUpdateDetails, a.citizen, rec)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonWrongRole, d.Reason)

	// Staff may still edit at any status.
	assert.True(t, CanPerform(OpUpdateDetails, a.admin, rec).Allowed)

	d = CanPerform(OpUpdateDetails, a.stranger, rec)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotOwner, d.Reason)
}

func TestDeleteRules(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)

	assert.True(t, CanPerform(OpDelete, a.citizen, rec).Allowed, "creator")
	assert.True(t, CanPerform(OpDelete, a.analyst, rec).Allowed)
	assert.True(t, CanPerform(OpDelete, a.admin, rec).Allowed)

	d := CanPerform(OpDelete, a.stranger, rec)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotOwner, d.Reason)
}

func TestViewRules(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)

	assert.True(t, CanPerform(OpView, a.citizen, rec).Allowed, "owner")
	assert.True(t, CanPerform(OpView, a.officer, rec).Allowed, "any field officer")
	assert.True(t, CanPerform(OpView, a.analyst, rec).Allowed)

	other := id.Principal{ID: id.NewPrincipalID(), Role: id.RoleCitizen}
	d := CanPerform(OpView, other, rec)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotOwner, d.Reason)
}

func TestDenialErrCarriesCodeAndReason(t *testing.T) {
	a := newActors()
	rec := caseOwnedBy(t, a.citizen)
	rec.ApplyAssign(a.officer.ID.Officer(), now)

	err := CanPerform(OpRequestClose, a.stranger, rec).Err()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	assert.Contains(t, err.Error(), "NotAssigned")

	assert.NoError(t, CanPerform(OpRequestClose, a.officer, rec).Err())
}
