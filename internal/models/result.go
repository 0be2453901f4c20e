package models

import (
	"time"

	"alfredoptarigan/cv-editor/internal/resume"
)

// Bodies exchanged with the external CV backend.

const (
	ProcessStatusInProgress = "in_progress"
	ProcessStatusReady      = "ready_to_retrieve"
)

type BackendUploadResponse struct {
	UploadID string `json:"uploadId"`
	Message  string `json:"message,omitempty"`
}

type CreateCVRequest struct {
	UploadID   string       `json:"upload_id"`
	Language   string       `json:"language"`
	Anonymize  bool         `json:"anonymize"`
	ResumeData *resume.Node `json:"resume_data"`
}

// StatusResult is a decoded checkStatus response. Document is set only when
// Status is ProcessStatusReady.
type StatusResult struct {
	Status   string
	Document *resume.Node
}

// Bodies of this service's own JSON API.

type UploadResponse struct {
	WorkspaceID string   `json:"workspace_id"`
	Files       []string `json:"files"`
	Status      string   `json:"status"`
	Message     string   `json:"message"`
}

type StatusResponse struct {
	WorkspaceID  string    `json:"workspace_id"`
	Phase        string    `json:"phase"`
	Message      string    `json:"message"`
	Busy         bool      `json:"busy"`
	UploadID     string    `json:"upload_id,omitempty"`
	HasDocument  bool      `json:"has_document"`
	DownloadLink string    `json:"download_link,omitempty"`
	Language     string    `json:"language"`
	Anonymize    bool      `json:"anonymize"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewStatusResponse(ws *Workspace) StatusResponse {
	return StatusResponse{
		WorkspaceID:  ws.ID.String(),
		Phase:        string(ws.Phase),
		Message:      ws.Message,
		Busy:         ws.Busy,
		UploadID:     ws.UploadID,
		HasDocument:  ws.HasDocument(),
		DownloadLink: ws.DownloadLink,
		Language:     ws.Language,
		Anonymize:    ws.Anonymize,
		UpdatedAt:    ws.UpdatedAt,
	}
}

type FieldEditRequest struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

type AppendEntryRequest struct {
	Path string `json:"path"`
}

type OptionsRequest struct {
	Language  *string `json:"language"`
	Anonymize *bool   `json:"anonymize"`
}

type CreateCVResponse struct {
	Resume  string `json:"resume"`
	Message string `json:"message"`
}
