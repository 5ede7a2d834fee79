package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"casefile/internal/audit"
	"casefile/internal/cases/authz"
	"casefile/internal/cases/models"
	"casefile/internal/cases/store"
	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
	"casefile/pkg/platform/sentinel"
	"casefile/pkg/requestcontext"
)

// Create files a new complaint in the NEW state. Anonymous callers are
// accepted; authenticated callers become the record owner.
func (e *Engine) Create(ctx context.Context, intake models.Intake) (*models.CaseRecord, error) {
	ctx, span := e.tracer.Start(ctx, "create")
	defer span.End()

	p := requestcontext.Principal(ctx)
	if err := e.guard(authz.OpCreate, p, nil); err != nil {
		return nil, err
	}

	var createdBy *id.PrincipalID
	if !p.ID.IsNil() {
		creator := p.ID
		createdBy = &creator
	}

	rec, err := models.NewCase(id.NewCaseID(), intake, createdBy, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("case.id", rec.ID.String()))

	if err := e.cases.Create(ctx, rec); err != nil {
		return nil, wrapStoreErr(err)
	}

	e.metrics.IncrementCasesCreated()
	e.emitAudit(ctx, audit.ActionCaseCreated, rec.ID, "complaint filed")
	e.logger.InfoContext(ctx, "case created",
		slog.String("case_id", rec.ID.String()),
		slog.Bool("anonymous", createdBy == nil))
	return rec, nil
}

// Get returns one record, applying the viewer rules.
func (e *Engine) Get(ctx context.Context, caseID id.CaseID) (*models.CaseRecord, error) {
	ctx, span := e.tracer.Start(ctx, "get",
		trace.WithAttributes(attribute.String("case.id", caseID.String())))
	defer span.End()

	rec, err := e.cases.FindByID(ctx, caseID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if err := e.guard(authz.OpView, requestcontext.Principal(ctx), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns records matching the filter. Citizens are constrained to
// their own records regardless of the filter they pass.
func (e *Engine) List(ctx context.Context, filter store.Filter) ([]*models.CaseRecord, error) {
	ctx, span := e.tracer.Start(ctx, "list")
	defer span.End()

	p := requestcontext.Principal(ctx)
	if p.Role == id.RoleCitizen {
		self := p.ID
		filter.CreatedBy = &self
	}

	out, err := e.cases.List(ctx, filter)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return out, nil
}

// AssignOfficer designates (or re-designates) the working officer. The
// officer must exist in the roster and be active. Reassignment preserves
// notes and close-request history.
func (e *Engine) AssignOfficer(ctx context.Context, caseID id.CaseID, officerID id.OfficerID) (*models.CaseRecord, error) {
	officer, err := e.officers.FindByID(ctx, officerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeOfficerNotFound, "officer %s not found", officerID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "officer lookup failed")
	}
	if err := officer.CanBeAssigned(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	detail := fmt.Sprintf("assigned to officer %s (badge %s)", officerID, officer.Badge)
	return e.mutate(ctx, caseID, authz.OpAssign, audit.ActionCaseAssigned, detail,
		func(c *models.CaseRecord) error { return c.CanAssign() },
		func(c *models.CaseRecord) { c.ApplyAssign(officerID, now) },
	)
}

// AddNote appends to the investigation trail. The first note on an ASSIGNED
// case advances it to IN_PROGRESS.
func (e *Engine) AddNote(ctx context.Context, caseID id.CaseID, text string) (*models.CaseRecord, error) {
	p := requestcontext.Principal(ctx)
	now := requestcontext.Now(ctx)
	return e.mutate(ctx, caseID, authz.OpAddNote, audit.ActionNoteAdded, "investigation note added",
		func(c *models.CaseRecord) error { return c.CanAddNote(text) },
		func(c *models.CaseRecord) { c.ApplyAddNote(p.ID, text, now) },
	)
}

// RequestClose opens a closure-negotiation cycle on behalf of the assigned
// officer. A blank reason records the default.
func (e *Engine) RequestClose(ctx context.Context, caseID id.CaseID, reason string) (*models.CaseRecord, error) {
	p := requestcontext.Principal(ctx)
	now := requestcontext.Now(ctx)
	officerID := p.ID.Officer()
	return e.mutate(ctx, caseID, authz.OpRequestClose, audit.ActionCloseRequested, "closure requested",
		func(c *models.CaseRecord) error { return c.CanRequestClose(officerID) },
		func(c *models.CaseRecord) { c.ApplyRequestClose(officerID, reason, now) },
	)
}

// ApproveClose resolves the pending cycle as approved; the case closes
// terminally.
func (e *Engine) ApproveClose(ctx context.Context, caseID id.CaseID) (*models.CaseRecord, error) {
	p := requestcontext.Principal(ctx)
	now := requestcontext.Now(ctx)
	return e.mutate(ctx, caseID, authz.OpResolveClose, audit.ActionCloseApproved, "close request approved",
		func(c *models.CaseRecord) error { return c.CanResolveClose() },
		func(c *models.CaseRecord) { c.ApplyApproveClose(p.ID, now) },
	)
}

// DeclineClose resolves the pending cycle as declined with a mandatory
// reason; the case reverts to IN_PROGRESS.
func (e *Engine) DeclineClose(ctx context.Context, caseID id.CaseID, reason string) (*models.CaseRecord, error) {
	p := requestcontext.Principal(ctx)
	now := requestcontext.Now(ctx)
	detail := fmt.Sprintf("close request declined: %s", reason)
	return e.mutate(ctx, caseID, authz.OpResolveClose, audit.ActionCloseDeclined, detail,
		func(c *models.CaseRecord) error { return c.CanDeclineClose(reason) },
		func(c *models.CaseRecord) { c.ApplyDeclineClose(p.ID, reason, now) },
	)
}

// Close closes the record directly, bypassing negotiation. Illegal from NEW.
func (e *Engine) Close(ctx context.Context, caseID id.CaseID) (*models.CaseRecord, error) {
	now := requestcontext.Now(ctx)
	return e.mutate(ctx, caseID, authz.OpDirectClose, audit.ActionCaseClosed, "case closed directly",
		func(c *models.CaseRecord) error { return c.CanClose() },
		func(c *models.CaseRecord) { c.ApplyClose(now) },
	)
}

// Reject declines a case at intake, terminally. Only legal from NEW.
func (e *Engine) Reject(ctx context.Context, caseID id.CaseID, reason string) (*models.CaseRecord, error) {
	now := requestcontext.Now(ctx)
	detail := "case rejected at intake"
	if reason != "" {
		detail = fmt.Sprintf("case rejected at intake: %s", reason)
	}
	return e.mutate(ctx, caseID, authz.OpReject, audit.ActionCaseRejected, detail,
		func(c *models.CaseRecord) error { return c.CanReject() },
		func(c *models.CaseRecord) { c.ApplyReject(now) },
	)
}

// UpdateDetails amends the descriptive payload without touching the
// lifecycle.
func (e *Engine) UpdateDetails(ctx context.Context, caseID id.CaseID, patch models.DetailsPatch) (*models.CaseRecord, error) {
	now := requestcontext.Now(ctx)
	return e.mutate(ctx, caseID, authz.OpUpdateDetails, audit.ActionCaseUpdated, "case details updated",
		func(c *models.CaseRecord) error { return c.CanUpdateDetails(patch) },
		func(c *models.CaseRecord) { c.ApplyUpdateDetails(patch, now) },
	)
}

// Delete removes a record entirely.
func (e *Engine) Delete(ctx context.Context, caseID id.CaseID) error {
	ctx, span := e.tracer.Start(ctx, "delete",
		trace.WithAttributes(attribute.String("case.id", caseID.String())))
	defer span.End()

	rec, err := e.cases.FindByID(ctx, caseID)
	if err != nil {
		return wrapStoreErr(err)
	}
	if err := e.guard(authz.OpDelete, requestcontext.Principal(ctx), rec); err != nil {
		return err
	}

	if err := e.cases.Delete(ctx, caseID); err != nil {
		return wrapStoreErr(err)
	}

	e.metrics.IncrementTransition(string(authz.OpDelete))
	e.emitAudit(ctx, audit.ActionCaseDeleted, caseID, "case deleted")
	return nil
}
