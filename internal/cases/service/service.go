// Package service is the case lifecycle engine: the single entry point for
// every lifecycle operation. Each mutation follows the same shape — guard,
// domain validation, and mutation all run inside the store's Execute lock,
// then the engine emits an audit event and counts the transition.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"casefile/internal/audit"
	"casefile/internal/cases/authz"
	"casefile/internal/cases/models"
	"casefile/internal/cases/store"
	officermodels "casefile/internal/officers/models"
	"casefile/internal/platform/metrics"
	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
	"casefile/pkg/platform/sentinel"
	"casefile/pkg/requestcontext"
)

// OfficerDirectory resolves officer identities before assignment.
type OfficerDirectory interface {
	FindByID(ctx context.Context, officerID id.OfficerID) (*officermodels.Officer, error)
}

// AuditPublisher records the audit trail of successful operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Engine orchestrates the case lifecycle.
type Engine struct {
	cases    store.Store
	officers OfficerDirectory
	logger   *slog.Logger
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithAuditPublisher attaches the audit pipeline.
func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(e *Engine) { e.auditor = publisher }
}

// WithMetrics attaches operation counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New constructs the lifecycle engine.
func New(cases store.Store, officers OfficerDirectory, opts ...Option) *Engine {
	e := &Engine{
		cases:    cases,
		officers: officers,
		logger:   slog.Default(),
		tracer:   otel.Tracer("casefile/cases"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// guard evaluates the permission table and counts denials.
func (e *Engine) guard(op authz.Operation, p id.Principal, rec *models.CaseRecord) error {
	decision := authz.CanPerform(op, p, rec)
	if !decision.Allowed {
		e.metrics.IncrementAuthzDenial(string(decision.Reason))
	}
	return decision.Err()
}

// mutate is the common write path: Execute under the record lock with a
// terminal-status short-circuit, the guard, and the operation's own
// validation, then audit and count.
func (e *Engine) mutate(
	ctx context.Context,
	caseID id.CaseID,
	op authz.Operation,
	action audit.Action,
	detail string,
	validate func(*models.CaseRecord) error,
	apply func(*models.CaseRecord),
) (*models.CaseRecord, error) {
	ctx, span := e.tracer.Start(ctx, string(op),
		trace.WithAttributes(attribute.String("case.id", caseID.String())))
	defer span.End()

	p := requestcontext.Principal(ctx)
	rec, err := e.cases.Execute(ctx, caseID,
		func(c *models.CaseRecord) error {
			if c.Status.Terminal() {
				return dErrors.Newf(dErrors.CodeCaseClosed, "case is %s and cannot be modified", c.Status)
			}
			if err := e.guard(op, p, c); err != nil {
				return err
			}
			return validate(c)
		},
		apply,
	)
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	e.metrics.IncrementTransition(string(op))
	e.emitAudit(ctx, action, rec.ID, detail)
	e.logger.InfoContext(ctx, "case operation applied",
		slog.String("operation", string(op)),
		slog.String("case_id", rec.ID.String()),
		slog.String("status", string(rec.Status)))
	return rec, nil
}

func (e *Engine) emitAudit(ctx context.Context, action audit.Action, caseID id.CaseID, detail string) {
	if e.auditor == nil {
		return
	}
	p := requestcontext.Principal(ctx)
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    action,
		CaseID:    caseID,
		ActorID:   p.ID,
		ActorRole: p.Role,
		RequestID: requestcontext.RequestID(ctx),
		Detail:    detail,
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	}
	if err := e.auditor.Emit(ctx, event); err != nil {
		// The transition already committed; losing a trail entry is
		// log-worthy but must not fail the request.
		e.logger.ErrorContext(ctx, "audit emit failed",
			slog.String("action", string(action)),
			slog.String("case_id", caseID.String()),
			slog.String("error", err.Error()))
	}
}

// wrapStoreErr translates store sentinels into coded domain errors. Coded
// errors from guards and Can methods pass through untouched.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "case not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "case was modified concurrently")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "case store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "case store failure")
	}
}
