package repositories

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/cv-editor/internal/models"
)

var ErrWorkspaceNotFound = errors.New("workspace not found")

type WorkspaceRepository interface {
	Create(ws *models.Workspace) error
	FindByID(id uuid.UUID) (*models.Workspace, error)
	Update(id uuid.UUID, fn func(ws *models.Workspace) error) (*models.Workspace, error)
	Delete(id uuid.UUID) error
	DeleteExpired(now time.Time) []uuid.UUID
	Count() int
}

type workspaceRepository struct {
	mu         sync.RWMutex
	workspaces map[uuid.UUID]*models.Workspace
	ttl        time.Duration
	now        func() time.Time
}

// NewWorkspaceRepository keeps workspaces in memory. Workspaces idle for
// longer than ttl are removed by DeleteExpired; ttl <= 0 keeps them forever.
func NewWorkspaceRepository(ttl time.Duration) WorkspaceRepository {
	return &workspaceRepository{
		workspaces: make(map[uuid.UUID]*models.Workspace),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *workspaceRepository) Create(ws *models.Workspace) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workspaces[ws.ID]; exists {
		return fmt.Errorf("failed to create workspace: %s already exists", ws.ID)
	}
	cp := *ws
	r.workspaces[ws.ID] = &cp
	return nil
}

// FindByID returns a copy; changes go through Update.
func (r *workspaceRepository) FindByID(id uuid.UUID) (*models.Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ws, ok := r.workspaces[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}
	cp := *ws
	return &cp, nil
}

// Update applies fn to the stored workspace under the repository lock. When
// fn fails nothing is changed.
func (r *workspaceRepository) Update(id uuid.UUID, fn func(ws *models.Workspace) error) (*models.Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}

	draft := *ws
	if err := fn(&draft); err != nil {
		return nil, err
	}
	draft.UpdatedAt = r.now()
	*ws = draft

	cp := draft
	return &cp, nil
}

func (r *workspaceRepository) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workspaces[id]; !ok {
		return fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}
	delete(r.workspaces, id)
	return nil
}

// DeleteExpired removes idle workspaces that are not busy and returns their ids.
func (r *workspaceRepository) DeleteExpired(now time.Time) []uuid.UUID {
	if r.ttl <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []uuid.UUID
	for id, ws := range r.workspaces {
		if ws.Busy || now.Sub(ws.UpdatedAt) < r.ttl {
			continue
		}
		delete(r.workspaces, id)
		removed = append(removed, id)
	}
	return removed
}

func (r *workspaceRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}
