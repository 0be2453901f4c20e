package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"alfredoptarigan/cv-editor/internal/logger"
	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/repositories"
	"alfredoptarigan/cv-editor/internal/resume"
)

// Options are the creation settings chosen by the user. Nil fields are left
// unchanged.
type Options struct {
	Language  *string
	Anonymize *bool
}

var ErrUnsupportedLanguage = errors.New("unsupported language")

// EditorService applies edits to a workspace's working copy. Every edit
// replaces the document with a new value.
type EditorService interface {
	Document(wsID uuid.UUID) (*resume.Node, error)
	SetField(wsID uuid.UUID, path, value string) (*resume.Node, error)
	AppendEntry(wsID uuid.UUID, path string) (*resume.Node, error)
	ApplyForm(wsID uuid.UUID, values map[string]string) (*resume.Node, error)
	// ReplaceDocument swaps in a whole edited document.
	ReplaceDocument(wsID uuid.UUID, doc *resume.Node) (*resume.Node, error)
	SetOptions(wsID uuid.UUID, opts Options) (*models.Workspace, error)
	Catalog() *resume.Catalog
}

type editorService struct {
	wsRepo  repositories.WorkspaceRepository
	catalog *resume.Catalog
}

func NewEditorService(wsRepo repositories.WorkspaceRepository, catalog *resume.Catalog) EditorService {
	if catalog == nil {
		catalog = resume.DefaultCatalog()
	}
	return &editorService{
		wsRepo:  wsRepo,
		catalog: catalog,
	}
}

func (s *editorService) Catalog() *resume.Catalog {
	return s.catalog
}

func (s *editorService) Document(wsID uuid.UUID) (*resume.Node, error) {
	ws, err := s.wsRepo.FindByID(wsID)
	if err != nil {
		return nil, err
	}
	if !ws.HasDocument() {
		return nil, ErrNoDocument
	}
	return ws.Document, nil
}

func (s *editorService) SetField(wsID uuid.UUID, path, value string) (*resume.Node, error) {
	p, err := resume.ParsePath(path)
	if err != nil {
		return nil, err
	}
	return s.edit(wsID, func(doc *resume.Node) (*resume.Node, error) {
		return resume.SetField(doc, p, value)
	})
}

func (s *editorService) AppendEntry(wsID uuid.UUID, path string) (*resume.Node, error) {
	p, err := resume.ParsePath(path)
	if err != nil {
		return nil, err
	}
	return s.edit(wsID, func(doc *resume.Node) (*resume.Node, error) {
		return resume.Append(doc, p, s.catalog)
	})
}

func (s *editorService) ApplyForm(wsID uuid.UUID, values map[string]string) (*resume.Node, error) {
	return s.edit(wsID, func(doc *resume.Node) (*resume.Node, error) {
		return resume.ApplyForm(doc, values)
	})
}

func (s *editorService) ReplaceDocument(wsID uuid.UUID, doc *resume.Node) (*resume.Node, error) {
	if doc == nil || doc.Kind() != resume.KindRecord {
		return nil, resume.ErrNotRecord
	}
	for _, issue := range s.catalog.Check(doc) {
		logger.Warn().Str("workspace_id", wsID.String()).Str("issue", issue).Msg("⚠️  Replacement document does not match the template catalog")
	}
	return s.edit(wsID, func(*resume.Node) (*resume.Node, error) {
		return doc.Clone(), nil
	})
}

func (s *editorService) edit(wsID uuid.UUID, fn func(doc *resume.Node) (*resume.Node, error)) (*resume.Node, error) {
	ws, err := s.wsRepo.Update(wsID, func(ws *models.Workspace) error {
		if ws.Busy {
			return ErrWorkspaceBusy
		}
		if !ws.HasDocument() {
			return ErrNoDocument
		}
		next, err := fn(ws.Document)
		if err != nil {
			return err
		}
		ws.Document = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ws.Document, nil
}

func (s *editorService) SetOptions(wsID uuid.UUID, opts Options) (*models.Workspace, error) {
	if opts.Language != nil && !models.IsSupportedLanguage(*opts.Language) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, *opts.Language)
	}

	return s.wsRepo.Update(wsID, func(ws *models.Workspace) error {
		if ws.Busy && ws.Phase == models.PhaseCreating {
			return ErrWorkspaceBusy
		}
		if opts.Language != nil {
			ws.Language = *opts.Language
		}
		if opts.Anonymize != nil {
			ws.Anonymize = *opts.Anonymize
		}
		return nil
	})
}
