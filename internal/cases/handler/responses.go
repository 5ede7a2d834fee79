package handler

import (
	"time"

	"casefile/internal/cases/models"
)

// CaseResponse is the HTTP shape of one case record.
type CaseResponse struct {
	ID              string                 `json:"id"`
	Status          string                 `json:"status"`
	Complainant     string                 `json:"complainant,omitempty"`
	Details         string                 `json:"complaint_details"`
	Attachments     []string               `json:"attachments,omitempty"`
	Priority        string                 `json:"priority,omitempty"`
	AssignedOfficer string                 `json:"assigned_officer,omitempty"`
	Notes           []NoteResponse         `json:"investigation_notes"`
	CloseHistory    []CloseRequestResponse `json:"close_history,omitempty"`
	CreatedBy       string                 `json:"created_by,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// NoteResponse is one investigation-trail entry.
type NoteResponse struct {
	Author    string    `json:"author"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// CloseRequestResponse is one closure-negotiation cycle.
type CloseRequestResponse struct {
	RequestedBy   string     `json:"requested_by"`
	RequestedAt   time.Time  `json:"requested_at"`
	Reason        string     `json:"reason"`
	ApprovedBy    string     `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	DeclinedBy    string     `json:"declined_by,omitempty"`
	DeclinedAt    *time.Time `json:"declined_at,omitempty"`
	DeclineReason string     `json:"decline_reason,omitempty"`
}

// ListResponse wraps a collection of case records.
type ListResponse struct {
	Cases []*CaseResponse `json:"cases"`
}

// FromRecord converts a domain record to its HTTP shape.
func FromRecord(rec *models.CaseRecord) *CaseResponse {
	resp := &CaseResponse{
		ID:          rec.ID.String(),
		Status:      string(rec.Status),
		Complainant: rec.Complainant,
		Details:     rec.Details,
		Attachments: rec.Attachments,
		Priority:    rec.Priority,
		Notes:       make([]NoteResponse, 0, len(rec.Notes)),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	if rec.AssignedOfficer != nil {
		resp.AssignedOfficer = rec.AssignedOfficer.String()
	}
	if rec.CreatedBy != nil {
		resp.CreatedBy = rec.CreatedBy.String()
	}
	for _, n := range rec.Notes {
		resp.Notes = append(resp.Notes, NoteResponse{
			Author:    n.Author.String(),
			Note:      n.Text,
			CreatedAt: n.CreatedAt,
		})
	}
	for _, cr := range rec.CloseHistory {
		out := CloseRequestResponse{
			RequestedBy:   cr.RequestedBy.String(),
			RequestedAt:   cr.RequestedAt,
			Reason:        cr.Reason,
			ApprovedAt:    cr.ApprovedAt,
			DeclinedAt:    cr.DeclinedAt,
			DeclineReason: cr.DeclineReason,
		}
		if cr.ApprovedBy != nil {
			out.ApprovedBy = cr.ApprovedBy.String()
		}
		if cr.DeclinedBy != nil {
			out.DeclinedBy = cr.DeclinedBy.String()
		}
		resp.CloseHistory = append(resp.CloseHistory, out)
	}
	return resp
}

// FromRecords converts a slice of records.
func FromRecords(recs []*models.CaseRecord) *ListResponse {
	out := &ListResponse{Cases: make([]*CaseResponse, 0, len(recs))}
	for _, rec := range recs {
		out.Cases = append(out.Cases, FromRecord(rec))
	}
	return out
}
