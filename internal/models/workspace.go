package models

import (
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/cv-editor/internal/resume"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseUploading Phase = "uploading"
	PhasePolling   Phase = "polling"
	PhaseEditing   Phase = "editing"
	PhaseCreating  Phase = "creating"
	PhaseDone      Phase = "done"
	PhaseFailed    Phase = "failed"
)

// Messages shown to the user. They never carry error details.
const (
	MessageIdle            = "Drag and drop PDF files here or click to select"
	MessageUploading       = "Your CV is being uploaded..."
	MessageChecking        = "Checking CV processing status..."
	MessageProcessing      = "Your CV is still being processed..."
	MessageRetrieved       = "Generating Download link..."
	MessageUploadError     = "Upload error. Please try again."
	MessageProcessingError = "Processing failed. Please try again."
	MessageStatusError     = "Status check failed. Please try again."
	MessageTimedOut        = "Processing timed out. Please try again."
	MessageCreating        = "Your CV is being created..."
	MessageCreateError     = "Error creating CV. Please try again."
	MessageCVReady         = "Your CV is ready to download."
)

// Workspace is the per-visitor state of the upload/edit/create flow. It
// lives in memory only.
//
// Document values are never mutated in place; edits replace the pointer, so
// a snapshot may share it safely.
type Workspace struct {
	ID           uuid.UUID    `json:"id"`
	Credential   Credential   `json:"-"`
	Language     string       `json:"language"`
	Anonymize    bool         `json:"anonymize"`
	Phase        Phase        `json:"phase"`
	Message      string       `json:"message"`
	Busy         bool         `json:"busy"`
	UploadID     string       `json:"upload_id,omitempty"`
	Document     *resume.Node `json:"-"`
	DownloadLink string       `json:"download_link,omitempty"`
	LastError    string       `json:"-"`
	// Generation increments with every upload run; outcomes of older runs
	// are discarded.
	Generation int       `json:"-"`
	Pending    int       `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewWorkspace(now time.Time) *Workspace {
	return &Workspace{
		ID:        uuid.New(),
		Language:  DefaultLanguage,
		Phase:     PhaseIdle,
		Message:   MessageIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (w *Workspace) HasDocument() bool {
	return w.Document != nil
}

// Language is a target language offered for CV creation.
type Language struct {
	Code string
	Name string
}

const DefaultLanguage = "en"

var Languages = []Language{
	{Code: "en", Name: "English"},
	{Code: "de", Name: "German"},
	{Code: "fr", Name: "French"},
}

func IsSupportedLanguage(code string) bool {
	for _, l := range Languages {
		if l.Code == code {
			return true
		}
	}
	return false
}
