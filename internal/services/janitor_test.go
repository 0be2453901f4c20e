package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/repositories"
)

func TestJanitorRemovesExpiredWorkspaces(t *testing.T) {
	repo := repositories.NewWorkspaceRepository(time.Millisecond)
	stale := models.NewWorkspace(time.Now().Add(-time.Hour))
	busy := models.NewWorkspace(time.Now().Add(-time.Hour))
	busy.Busy = true
	require.NoError(t, repo.Create(stale))
	require.NoError(t, repo.Create(busy))

	janitor := NewJanitor(repo, 10*time.Millisecond)
	janitor.Start(context.Background())
	defer janitor.Stop()

	assert.Eventually(t, func() bool {
		return repo.Count() == 1
	}, time.Second, 10*time.Millisecond)

	_, err := repo.FindByID(busy.ID)
	assert.NoError(t, err)
	_, err = repo.FindByID(stale.ID)
	assert.ErrorIs(t, err, repositories.ErrWorkspaceNotFound)
}

func TestJanitorStopIsIdempotent(t *testing.T) {
	janitor := NewJanitor(repositories.NewWorkspaceRepository(time.Minute), time.Hour)
	janitor.Start(context.Background())
	janitor.Stop()
	assert.NotPanics(t, janitor.Stop)
}
