package services

import (
	"context"
	"sync"
	"time"

	"alfredoptarigan/cv-editor/internal/logger"
	"alfredoptarigan/cv-editor/internal/repositories"
)

// Janitor periodically removes idle workspaces.
type Janitor interface {
	Start(ctx context.Context)
	Stop()
}

type janitor struct {
	wsRepo   repositories.WorkspaceRepository
	interval time.Duration
	wg       sync.WaitGroup
	once     sync.Once
	stopChan chan struct{}
}

func NewJanitor(wsRepo repositories.WorkspaceRepository, interval time.Duration) Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &janitor{
		wsRepo:   wsRepo,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start implements Janitor.
func (j *janitor) Start(ctx context.Context) {
	j.wg.Add(1)
	go j.sweep(ctx)
	logger.Info().Dur("interval", j.interval).Msg("🧹 Workspace janitor started")
}

// Stop implements Janitor.
func (j *janitor) Stop() {
	j.once.Do(func() {
		close(j.stopChan)
	})
	j.wg.Wait()
	logger.Info().Msg("✅ Workspace janitor stopped")
}

func (j *janitor) sweep(ctx context.Context) {
	defer j.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := j.wsRepo.DeleteExpired(now)
			if len(removed) > 0 {
				logger.Info().Int("removed", len(removed)).Int("remaining", j.wsRepo.Count()).Msg("🧹 Expired workspaces removed")
			}
		}
	}
}
