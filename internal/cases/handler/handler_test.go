package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"casefile/internal/audit"
	"casefile/internal/cases/service"
	casestore "casefile/internal/cases/store"
	officermodels "casefile/internal/officers/models"
	officerstore "casefile/internal/officers/store"
	id "casefile/pkg/domain"
	"casefile/pkg/requestcontext"
)

// HandlerSuite runs the case endpoints through a real chi router backed by
// in-memory stores. Handler tests validate HTTP concerns only; workflow and
// permission rules are covered in the service package.
type HandlerSuite struct {
	suite.Suite

	router    http.Handler
	officerID id.OfficerID

	citizen id.Principal
	officer id.Principal
	head    id.Principal
}

func (s *HandlerSuite) SetupTest() {
	cases := casestore.NewMemory()
	roster := officerstore.NewMemory()

	s.officerID = id.NewOfficerID()
	officer, err := officermodels.NewOfficer(s.officerID, "R. Deckard", "B-100", "Detective", time.Now())
	require.NoError(s.T(), err)
	require.NoError(s.T(), roster.Create(s.T().Context(), officer))

	s.citizen = id.Principal{ID: id.NewPrincipalID(), Role: id.RoleCitizen}
	s.officer = id.Principal{ID: s.officerID.Principal(), Role: id.RoleFieldOfficer}
	s.head = id.Principal{ID: id.NewPrincipalID(), Role: id.RoleCaseOfficer}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := service.New(cases, roster,
		service.WithLogger(logger),
		service.WithAuditPublisher(audit.NewPublisher(audit.NewMemory())),
	)

	h := New(engine, logger)
	r := chi.NewRouter()
	r.Use(principalFromHeader)
	h.RegisterPublic(r)
	h.Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

// principalFromHeader is a test stand-in for the JWT middleware: it reads the
// principal from request headers so each test can act as any caller.
func principalFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get("X-Test-Principal"); raw != "" {
			pid, err := id.ParsePrincipalID(raw)
			if err == nil {
				p := id.Principal{ID: pid, Role: id.Role(r.Header.Get("X-Test-Role"))}
				r = r.WithContext(requestcontext.WithPrincipal(r.Context(), p))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HandlerSuite) do(p id.Principal, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if !p.ID.IsNil() {
		req.Header.Set("X-Test-Principal", p.ID.String())
		req.Header.Set("X-Test-Role", string(p.Role))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decodeCase(rec *httptest.ResponseRecorder) CaseResponse {
	var resp CaseResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func (s *HandlerSuite) decodeError(rec *httptest.ResponseRecorder) map[string]string {
	var resp map[string]string
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// createCase files a complaint as the citizen and returns its ID.
func (s *HandlerSuite) createCase() string {
	rec := s.do(s.citizen, http.MethodPost, "/cases", CreateCaseRequest{
		Complainant: "A. Resident",
		Details:     "Bicycle stolen from the station rack overnight.",
	})
	require.Equal(s.T(), http.StatusCreated, rec.Code)
	return s.decodeCase(rec).ID
}

// assignedCase files a complaint and assigns the roster officer to it.
func (s *HandlerSuite) assignedCase() string {
	caseID := s.createCase()
	rec := s.do(s.head, http.MethodPost, "/cases/"+caseID+"/assign",
		AssignRequest{OfficerID: s.officerID.String()})
	require.Equal(s.T(), http.StatusOK, rec.Code)
	return caseID
}

func (s *HandlerSuite) TestCreate_ReturnsCreatedCase() {
	rec := s.do(s.citizen, http.MethodPost, "/cases", CreateCaseRequest{
		Complainant: "A. Resident",
		Details:     "Noise complaint on Elm Street.",
		Attachments: []string{"photo-1.jpg"},
		Priority:    "low",
	})

	require.Equal(s.T(), http.StatusCreated, rec.Code)
	resp := s.decodeCase(rec)
	assert.Equal(s.T(), "NEW", resp.Status)
	assert.Equal(s.T(), "Noise complaint on Elm Street.", resp.Details)
	assert.Equal(s.T(), []string{"photo-1.jpg"}, resp.Attachments)
	assert.Equal(s.T(), s.citizen.ID.String(), resp.CreatedBy)
	assert.NotEmpty(s.T(), resp.ID)
	assert.Empty(s.T(), resp.AssignedOfficer)
}

func (s *HandlerSuite) TestCreate_AnonymousCallerAccepted() {
	rec := s.do(id.Principal{}, http.MethodPost, "/cases", CreateCaseRequest{
		Details: "Graffiti on the underpass.",
	})

	require.Equal(s.T(), http.StatusCreated, rec.Code)
	resp := s.decodeCase(rec)
	assert.Empty(s.T(), resp.CreatedBy)
}

func (s *HandlerSuite) TestCreate_MissingDetailsRejected() {
	rec := s.do(s.citizen, http.MethodPost, "/cases", CreateCaseRequest{
		Complainant: "A. Resident",
	})

	require.Equal(s.T(), http.StatusBadRequest, rec.Code)
	body := s.decodeError(rec)
	assert.Equal(s.T(), "validation", body["kind"])
	assert.Contains(s.T(), body["message"], "complaint_details")
}

func (s *HandlerSuite) TestCreate_MalformedJSONRejected() {
	req := httptest.NewRequest(http.MethodPost, "/cases", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(s.T(), "bad_request", s.decodeError(rec)["kind"])
}

func (s *HandlerSuite) TestGet_ReturnsCase() {
	caseID := s.createCase()

	rec := s.do(s.head, http.MethodGet, "/cases/"+caseID, nil)

	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), caseID, s.decodeCase(rec).ID)
}

func (s *HandlerSuite) TestGet_InvalidIDIsBadRequest() {
	rec := s.do(s.head, http.MethodGet, "/cases/not-a-uuid", nil)

	require.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(s.T(), "bad_request", s.decodeError(rec)["kind"])
}

func (s *HandlerSuite) TestGet_UnknownCaseIsNotFound() {
	rec := s.do(s.head, http.MethodGet, "/cases/"+id.NewCaseID().String(), nil)

	require.Equal(s.T(), http.StatusNotFound, rec.Code)
	assert.Equal(s.T(), "not_found", s.decodeError(rec)["kind"])
}

func (s *HandlerSuite) TestList_FiltersByStatus() {
	s.createCase()
	s.assignedCase()

	rec := s.do(s.head, http.MethodGet, "/cases?status=assigned", nil)

	require.Equal(s.T(), http.StatusOK, rec.Code)
	var resp ListResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(s.T(), resp.Cases, 1)
	assert.Equal(s.T(), "ASSIGNED", resp.Cases[0].Status)
}

func (s *HandlerSuite) TestList_UnknownStatusRejected() {
	rec := s.do(s.head, http.MethodGet, "/cases?status=pending", nil)

	require.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(s.T(), "validation", s.decodeError(rec)["kind"])
}

func (s *HandlerSuite) TestAssign_MovesCaseToAssigned() {
	caseID := s.createCase()

	rec := s.do(s.head, http.MethodPost, "/cases/"+caseID+"/assign",
		AssignRequest{OfficerID: s.officerID.String()})

	require.Equal(s.T(), http.StatusOK, rec.Code)
	resp := s.decodeCase(rec)
	assert.Equal(s.T(), "ASSIGNED", resp.Status)
	assert.Equal(s.T(), s.officerID.String(), resp.AssignedOfficer)
}

func (s *HandlerSuite) TestAssign_UnknownOfficerIsNotFound() {
	caseID := s.createCase()

	rec := s.do(s.head, http.MethodPost, "/cases/"+caseID+"/assign",
		AssignRequest{OfficerID: id.NewOfficerID().String()})

	require.Equal(s.T(), http.StatusNotFound, rec.Code)
	assert.Equal(s.T(), "officer_not_found", s.decodeError(rec)["kind"])
}

func (s *HandlerSuite) TestAssign_NonSupervisorIsForbidden() {
	caseID := s.createCase()

	rec := s.do(s.officer, http.MethodPost, "/cases/"+caseID+"/assign",
		AssignRequest{OfficerID: s.officerID.String()})

	require.Equal(s.T(), http.StatusForbidden, rec.Code)
	assert.Equal(s.T(), "not_authorized", s.decodeError(rec)["kind"])
}

func (s *HandlerSuite) TestAssign_MalformedOfficerIDRejected() {
	caseID := s.createCase()

	rec := s.do(s.head, http.MethodPost, "/cases/"+caseID+"/assign",
		AssignRequest{OfficerID: "badge-only"})

	require.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(s.T(), "validation", s.decodeError(rec)["kind"])
}

func (s *HandlerSuite) TestAddNote_AppendsAndAdvances() {
	caseID := s.assignedCase()

	rec := s.do(s.officer, http.MethodPost, "/cases/"+caseID+"/notes",
		AddNoteRequest{Note: "Canvassed the block; two witnesses identified."})

	require.Equal(s.T(), http.StatusOK, rec.Code)
	resp := s.decodeCase(rec)
	assert.Equal(s.T(), "IN_PROGRESS", resp.Status)
	require.Len(s.T(), resp.Notes, 1)
	assert.Equal(s.T(), s.officerID.String(), resp.Notes[0].Author)
}

func (s *HandlerSuite) TestAddNote_BlankNoteRejected() {
	caseID := s.assignedCase()

	rec := s.do(s.officer, http.MethodPost, "/cases/"+caseID+"/notes",
		AddNoteRequest{Note: "   "})

	require.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(s.T(), "empty_note", s.decodeError(rec)["kind"])
}

func (s *HandlerSuite) TestCloseWorkflow_RequestApprove() {
	caseID := s.assignedCase()
	s.do(s.officer, http.MethodPost, "/cases/"+caseID+"/notes",
		AddNoteRequest{Note: "Stolen property recovered."})

	rec := s.do(s.officer, http.MethodPost, "/cases/"+caseID+"/request-close",
		ReasonRequest{Reason: "Property returned to owner."})
	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), "PENDING_CLOSE", s.decodeCase(rec).Status)

	rec = s.do(s.head, http.MethodPost, "/cases/"+caseID+"/approve-close", nil)
	require.Equal(s.T(), http.StatusOK, rec.Code)
	resp := s.decodeCase(rec)
	assert.Equal(s.T(), "CLOSED", resp.Status)
	require.Len(s.T(), resp.CloseHistory, 1)
	assert.Equal(s.T(), s.head.ID.String(), resp.CloseHistory[0].ApprovedBy)
}

func (s *HandlerSuite) TestCloseWorkflow_DeclineNeedsReason() {
	caseID := s.assignedCase()
	s.do(s.officer, http.MethodPost, "/cases/"+caseID+"/notes",
		AddNoteRequest{Note: "Initial findings logged."})
	s.do(s.officer, http.MethodPost, "/cases/"+caseID+"/request-close",
		ReasonRequest{Reason: "No further leads."})

	rec := s.do(s.head, http.MethodPost, "/cases/"+caseID+"/decline-close", nil)
	require.Equal(s.T(), http.StatusBadRequest, rec.Code)
	assert.Equal(s.T(), "reason_required", s.decodeError(rec)["kind"])

	rec = s.do(s.head, http.MethodPost, "/cases/"+caseID+"/decline-close",
		ReasonRequest{Reason: "Interview the second witness first."})
	require.Equal(s.T(), http.StatusOK, rec.Code)
	resp := s.decodeCase(rec)
	assert.Equal(s.T(), "IN_PROGRESS", resp.Status)
	require.Len(s.T(), resp.CloseHistory, 1)
	assert.Equal(s.T(), "Interview the second witness first.", resp.CloseHistory[0].DeclineReason)
}

func (s *HandlerSuite) TestApproveClose_WithoutPendingRequestConflicts() {
	caseID := s.assignedCase()

	rec := s.do(s.head, http.MethodPost, "/cases/"+caseID+"/approve-close", nil)

	require.Equal(s.T(), http.StatusConflict, rec.Code)
	assert.Equal(s.T(), "no_pending_request", s.decodeError(rec)["kind"])
}

func (s *HandlerSuite) TestReject_DeclinesNewCase() {
	caseID := s.createCase()

	rec := s.do(s.head, http.MethodPost, "/cases/"+caseID+"/reject",
		ReasonRequest{Reason: "Duplicate of an existing case."})

	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), "DECLINED", s.decodeCase(rec).Status)
}

func (s *HandlerSuite) TestMutation_OnClosedCaseConflicts() {
	caseID := s.createCase()
	rec := s.do(s.head, http.MethodPost, "/cases/"+caseID+"/reject",
		ReasonRequest{Reason: "Unfounded."})
	require.Equal(s.T(), http.StatusOK, rec.Code)

	rec = s.do(s.head, http.MethodPost, "/cases/"+caseID+"/assign",
		AssignRequest{OfficerID: s.officerID.String()})

	require.Equal(s.T(), http.StatusConflict, rec.Code)
	assert.Equal(s.T(), "case_closed", s.decodeError(rec)["kind"])
}

func (s *HandlerSuite) TestUpdate_PatchesOnlyProvidedFields() {
	caseID := s.createCase()
	details := "Bicycle stolen; serial number now known."

	rec := s.do(s.citizen, http.MethodPatch, "/cases/"+caseID,
		UpdateCaseRequest{Details: &details})

	require.Equal(s.T(), http.StatusOK, rec.Code)
	resp := s.decodeCase(rec)
	assert.Equal(s.T(), details, resp.Details)
	assert.Equal(s.T(), "A. Resident", resp.Complainant)
}

func (s *HandlerSuite) TestDelete_StrangerForbiddenSupervisorAllowed() {
	caseID := s.createCase()

	rec := s.do(s.officer, http.MethodDelete, "/cases/"+caseID, nil)
	require.Equal(s.T(), http.StatusForbidden, rec.Code)

	rec = s.do(s.head, http.MethodDelete, "/cases/"+caseID, nil)
	require.Equal(s.T(), http.StatusNoContent, rec.Code)

	rec = s.do(s.head, http.MethodGet, "/cases/"+caseID, nil)
	require.Equal(s.T(), http.StatusNotFound, rec.Code)
}
