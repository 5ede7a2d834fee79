// Package handler exposes the case lifecycle over HTTP. Handlers stay thin:
// decode, delegate to the engine, translate the result. All permission and
// workflow decisions live below the transport.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"casefile/internal/cases/models"
	"casefile/internal/cases/store"
	id "casefile/pkg/domain"
	dErrors "casefile/pkg/domain-errors"
	"casefile/pkg/platform/httputil"
)

// Service is the lifecycle engine surface the handler depends on.
type Service interface {
	Create(ctx context.Context, intake models.Intake) (*models.CaseRecord, error)
	Get(ctx context.Context, caseID id.CaseID) (*models.CaseRecord, error)
	List(ctx context.Context, filter store.Filter) ([]*models.CaseRecord, error)
	AssignOfficer(ctx context.Context, caseID id.CaseID, officerID id.OfficerID) (*models.CaseRecord, error)
	AddNote(ctx context.Context, caseID id.CaseID, text string) (*models.CaseRecord, error)
	RequestClose(ctx context.Context, caseID id.CaseID, reason string) (*models.CaseRecord, error)
	ApproveClose(ctx context.Context, caseID id.CaseID) (*models.CaseRecord, error)
	DeclineClose(ctx context.Context, caseID id.CaseID, reason string) (*models.CaseRecord, error)
	Close(ctx context.Context, caseID id.CaseID) (*models.CaseRecord, error)
	Reject(ctx context.Context, caseID id.CaseID, reason string) (*models.CaseRecord, error)
	UpdateDetails(ctx context.Context, caseID id.CaseID, patch models.DetailsPatch) (*models.CaseRecord, error)
	Delete(ctx context.Context, caseID id.CaseID) error
}

// Handler wires case endpoints to the lifecycle engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a case handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the endpoints that accept unauthenticated callers.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/cases", h.HandleCreate)
}

// Register mounts the authenticated case endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/cases", h.HandleList)
	r.Get("/cases/{id}", h.HandleGet)
	r.Post("/cases/{id}/assign", h.HandleAssign)
	r.Post("/cases/{id}/notes", h.HandleAddNote)
	r.Post("/cases/{id}/request-close", h.HandleRequestClose)
	r.Post("/cases/{id}/approve-close", h.HandleApproveClose)
	r.Post("/cases/{id}/decline-close", h.HandleDeclineClose)
	r.Post("/cases/{id}/close", h.HandleClose)
	r.Post("/cases/{id}/reject", h.HandleReject)
	r.Patch("/cases/{id}", h.HandleUpdate)
	r.Delete("/cases/{id}", h.HandleDelete)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.Create(r.Context(), req.Intake())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(rec))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Get(r.Context(), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recs, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecords(recs))
}

func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var req AssignRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	officerID, err := id.ParseOfficerID(strings.TrimSpace(req.OfficerID))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "officer_id must be a valid UUID"))
		return
	}

	rec, err := h.service.AssignOfficer(r.Context(), caseID, officerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var req AddNoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.AddNote(r.Context(), caseID, req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) HandleRequestClose(w http.ResponseWriter, r *http.Request) {
	h.reasonOp(w, r, h.service.RequestClose)
}

func (h *Handler) HandleApproveClose(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.ApproveClose(r.Context(), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) HandleDeclineClose(w http.ResponseWriter, r *http.Request) {
	h.reasonOp(w, r, h.service.DeclineClose)
}

func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Close(r.Context(), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.reasonOp(w, r, h.service.Reject)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var req UpdateCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.UpdateDetails(r.Context(), caseID, req.Patch())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), caseID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// reasonOp is the shared shape of the endpoints that carry only a reason.
// An empty body is legal; whether a blank reason is rests with the engine.
func (h *Handler) reasonOp(w http.ResponseWriter, r *http.Request, op func(context.Context, id.CaseID, string) (*models.CaseRecord, error)) {
	caseID, ok := h.caseID(w, r)
	if !ok {
		return
	}
	var req ReasonRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	rec, err := op(r.Context(), caseID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

func (h *Handler) caseID(w http.ResponseWriter, r *http.Request) (id.CaseID, bool) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "case id must be a valid UUID"))
		return id.CaseID{}, false
	}
	return caseID, true
}

func listFilter(r *http.Request) (store.Filter, error) {
	var filter store.Filter
	q := r.URL.Query()

	if raw := q.Get("status"); raw != "" {
		status := models.Status(strings.ToUpper(raw))
		if !status.Valid() {
			return filter, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", raw)
		}
		filter.Status = &status
	}
	if raw := q.Get("assigned_officer"); raw != "" {
		officerID, err := id.ParseOfficerID(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "assigned_officer must be a valid UUID")
		}
		filter.AssignedOfficer = &officerID
	}
	return filter, nil
}
