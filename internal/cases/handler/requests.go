package handler

import (
	"strings"

	"casefile/internal/cases/models"
	dErrors "casefile/pkg/domain-errors"
)

// CreateCaseRequest is the HTTP request body for POST /cases.
type CreateCaseRequest struct {
	Complainant string   `json:"complainant"`
	Details     string   `json:"complaint_details"`
	Attachments []string `json:"attachments"`
	Priority    string   `json:"priority"`
}

func (r *CreateCaseRequest) Validate() error {
	if strings.TrimSpace(r.Details) == "" {
		return dErrors.New(dErrors.CodeValidation, "complaint_details is required")
	}
	return nil
}

// Intake converts the request to the domain intake payload.
func (r *CreateCaseRequest) Intake() models.Intake {
	return models.Intake{
		Complainant: r.Complainant,
		Details:     r.Details,
		Attachments: r.Attachments,
		Priority:    r.Priority,
	}
}

// AssignRequest is the HTTP request body for POST /cases/{id}/assign.
type AssignRequest struct {
	OfficerID string `json:"officer_id"`
}

func (r *AssignRequest) Validate() error {
	if strings.TrimSpace(r.OfficerID) == "" {
		return dErrors.New(dErrors.CodeValidation, "officer_id is required")
	}
	return nil
}

// AddNoteRequest is the HTTP request body for POST /cases/{id}/notes.
type AddNoteRequest struct {
	Note string `json:"note"`
}

// ReasonRequest carries the optional-or-mandatory reason used by the
// request-close, decline-close, and reject endpoints. Whether a blank
// reason is legal is the engine's call, not the transport's.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// UpdateCaseRequest is the HTTP request body for PATCH /cases/{id}. Absent
// fields are left untouched.
type UpdateCaseRequest struct {
	Complainant *string   `json:"complainant"`
	Details     *string   `json:"complaint_details"`
	Attachments *[]string `json:"attachments"`
	Priority    *string   `json:"priority"`
}

// Patch converts the request to the domain patch.
func (r *UpdateCaseRequest) Patch() models.DetailsPatch {
	return models.DetailsPatch{
		Complainant: r.Complainant,
		Details:     r.Details,
		Attachments: r.Attachments,
		Priority:    r.Priority,
	}
}
