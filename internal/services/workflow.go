package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"alfredoptarigan/cv-editor/internal/logger"
	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/repositories"
	"alfredoptarigan/cv-editor/internal/resume"
)

var (
	ErrWorkspaceBusy = errors.New("workspace is busy")
	ErrNoDocument    = errors.New("no document to edit")
	ErrNoFiles       = errors.New("no files uploaded")
)

// WorkflowService runs the upload, status polling and CV creation steps of a
// workspace.
type WorkflowService interface {
	// StartUpload validates the request, marks the workspace busy and runs
	// uploads and polling in the background.
	StartUpload(wsID uuid.UUID, cred models.Credential, files []*UploadFile) error
	// CreateCV sends the working copy for creation and returns the download link.
	CreateCV(ctx context.Context, wsID uuid.UUID) (string, error)
	// Shutdown stops every background run and waits for it to finish.
	Shutdown(ctx context.Context) error
}

type workflowService struct {
	wsRepo      repositories.WorkspaceRepository
	api         CVAPIService
	catalog     *resume.Catalog
	pollCfg     PollConfig
	concurrency int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	runs map[uuid.UUID]uploadRun
}

type uploadRun struct {
	gen    int
	cancel context.CancelFunc
}

func NewWorkflowService(
	wsRepo repositories.WorkspaceRepository,
	api CVAPIService,
	catalog *resume.Catalog,
	pollCfg PollConfig,
	concurrency int,
) WorkflowService {
	if concurrency <= 0 {
		concurrency = 1
	}
	if catalog == nil {
		catalog = resume.DefaultCatalog()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &workflowService{
		wsRepo:      wsRepo,
		api:         api,
		catalog:     catalog,
		pollCfg:     pollCfg,
		concurrency: concurrency,
		ctx:         ctx,
		cancel:      cancel,
		runs:        make(map[uuid.UUID]uploadRun),
	}
}

// StartUpload implements WorkflowService.
func (s *workflowService) StartUpload(wsID uuid.UUID, cred models.Credential, files []*UploadFile) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	if err := s.ctx.Err(); err != nil {
		return fmt.Errorf("failed to start upload: %w", err)
	}

	ws, err := s.wsRepo.Update(wsID, func(ws *models.Workspace) error {
		if ws.Busy {
			return ErrWorkspaceBusy
		}
		if !cred.IsEmpty() {
			ws.Credential = cred
		}
		if ws.Credential.IsEmpty() {
			return ErrMissingCredential
		}
		ws.Generation++
		ws.Pending = len(files)
		ws.Busy = true
		ws.Phase = models.PhaseUploading
		ws.Message = models.MessageUploading
		ws.UploadID = ""
		ws.Document = nil
		ws.DownloadLink = ""
		ws.LastError = ""
		return nil
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	if prev, ok := s.runs[wsID]; ok {
		prev.cancel()
	}
	s.runs[wsID] = uploadRun{gen: ws.Generation, cancel: cancel}
	s.mu.Unlock()

	logger.Info().
		Str("workspace_id", wsID.String()).
		Int("files", len(files)).
		Int("generation", ws.Generation).
		Msg("📤 Upload started")

	s.wg.Add(1)
	go s.run(runCtx, wsID, ws.Generation, ws.Credential, files)

	return nil
}

func (s *workflowService) run(ctx context.Context, wsID uuid.UUID, gen int, cred models.Credential, files []*UploadFile) {
	defer s.wg.Done()
	defer s.finishRun(wsID, gen)

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, file := range files {
		file := file
		g.Go(func() error {
			s.process(ctx, wsID, gen, cred, file)
			return nil
		})
	}

	_ = g.Wait()
}

// process uploads one file and polls its status until a terminal state.
func (s *workflowService) process(ctx context.Context, wsID uuid.UUID, gen int, cred models.Credential, file *UploadFile) {
	log := logger.Logger.With().
		Str("workspace_id", wsID.String()).
		Str("file", file.Name).
		Logger()

	uploadID, err := s.api.Upload(ctx, cred, file)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("❌ Upload failed")
		s.fail(wsID, gen, models.MessageUploadError, err)
		return
	}
	log.Info().Str("upload_id", uploadID).Msg("✅ File uploaded")

	s.update(wsID, gen, func(ws *models.Workspace) {
		if ws.HasDocument() {
			return
		}
		ws.Phase = models.PhasePolling
		ws.Message = models.MessageChecking
	})

	check := func(ctx context.Context) (*models.StatusResult, error) {
		return s.api.CheckStatus(ctx, cred, uploadID)
	}
	progress := func(attempt int) {
		s.update(wsID, gen, func(ws *models.Workspace) {
			if ws.HasDocument() {
				return
			}
			ws.Message = models.MessageProcessing
		})
	}

	poller := NewPoller(uploadID, s.pollCfg, check, progress)
	poller.Start(ctx)
	doc, err := poller.Wait()

	switch {
	case errors.Is(err, ErrPollStopped):
		return
	case err != nil:
		s.fail(wsID, gen, pollFailureMessage(err), err)
	default:
		s.handOff(wsID, gen, uploadID, doc)
	}
}

func pollFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrPollExhausted):
		return models.MessageTimedOut
	case errors.Is(err, ErrProcessingFailed):
		return models.MessageProcessingError
	default:
		return models.MessageStatusError
	}
}

// handOff gives the first retrieved document of a run to the editor and
// stops the rest of the run.
func (s *workflowService) handOff(wsID uuid.UUID, gen int, uploadID string, doc *resume.Node) {
	won := false
	s.update(wsID, gen, func(ws *models.Workspace) {
		ws.Pending--
		if ws.HasDocument() {
			return
		}
		won = true
		ws.Document = doc
		ws.UploadID = uploadID
		ws.Phase = models.PhaseEditing
		ws.Message = models.MessageRetrieved
		ws.Busy = false
		ws.LastError = ""
	})
	if !won {
		return
	}

	if issues := s.catalog.Check(doc); len(issues) > 0 {
		logger.Warn().Str("workspace_id", wsID.String()).Strs("issues", issues).Msg("⚠️  Document does not match the template catalog")
	}
	logger.Info().Str("workspace_id", wsID.String()).Str("upload_id", uploadID).Msg("📄 Document handed to the editor")

	s.cancelRun(wsID, gen)
}

// fail records a failed upload. The workspace stops being busy once no
// upload of the run is left.
func (s *workflowService) fail(wsID uuid.UUID, gen int, message string, cause error) {
	s.update(wsID, gen, func(ws *models.Workspace) {
		ws.Pending--
		if ws.HasDocument() {
			return
		}
		ws.Message = message
		ws.LastError = cause.Error()
		if ws.Pending <= 0 {
			ws.Busy = false
			ws.Phase = models.PhaseFailed
		}
	})
}

// update applies fn only while gen is still the workspace's current run.
func (s *workflowService) update(wsID uuid.UUID, gen int, fn func(ws *models.Workspace)) {
	_, err := s.wsRepo.Update(wsID, func(ws *models.Workspace) error {
		if ws.Generation != gen {
			return errStaleRun
		}
		fn(ws)
		return nil
	})
	if err != nil && !errors.Is(err, errStaleRun) {
		logger.Warn().Err(err).Str("workspace_id", wsID.String()).Msg("⚠️  Failed to update workspace")
	}
}

var errStaleRun = errors.New("stale run")

func (s *workflowService) cancelRun(wsID uuid.UUID, gen int) {
	s.mu.Lock()
	run, ok := s.runs[wsID]
	s.mu.Unlock()
	if ok && run.gen == gen {
		run.cancel()
	}
}

// finishRun clears a run that ended. A cancelled run may leave the workspace
// busy with uploads nobody will report, so that is settled here too.
func (s *workflowService) finishRun(wsID uuid.UUID, gen int) {
	s.update(wsID, gen, func(ws *models.Workspace) {
		if ws.Busy && !ws.HasDocument() {
			ws.Busy = false
			ws.Phase = models.PhaseIdle
			ws.Message = models.MessageIdle
		}
		ws.Pending = 0
	})

	s.mu.Lock()
	if run, ok := s.runs[wsID]; ok && run.gen == gen {
		run.cancel()
		delete(s.runs, wsID)
	}
	s.mu.Unlock()
}

// CreateCV implements WorkflowService.
func (s *workflowService) CreateCV(ctx context.Context, wsID uuid.UUID) (string, error) {
	ws, err := s.wsRepo.Update(wsID, func(ws *models.Workspace) error {
		if ws.Busy {
			return ErrWorkspaceBusy
		}
		if !ws.HasDocument() {
			return ErrNoDocument
		}
		if ws.Credential.IsEmpty() {
			return ErrMissingCredential
		}
		ws.Busy = true
		ws.Phase = models.PhaseCreating
		ws.Message = models.MessageCreating
		ws.DownloadLink = ""
		return nil
	})
	if err != nil {
		return "", err
	}

	log := logger.Logger.With().
		Str("workspace_id", wsID.String()).
		Str("upload_id", ws.UploadID).
		Str("language", ws.Language).
		Bool("anonymize", ws.Anonymize).
		Logger()
	log.Info().Msg("🧾 Creating CV")

	link, err := s.api.CreateCV(ctx, ws.Credential, models.CreateCVRequest{
		UploadID:   ws.UploadID,
		Language:   ws.Language,
		Anonymize:  ws.Anonymize,
		ResumeData: ws.Document,
	})
	if err != nil {
		log.Error().Err(err).Msg("❌ CV creation failed")
		_, uerr := s.wsRepo.Update(wsID, func(ws *models.Workspace) error {
			ws.Busy = false
			ws.Phase = models.PhaseEditing
			ws.Message = models.MessageCreateError
			ws.LastError = err.Error()
			return nil
		})
		if uerr != nil {
			log.Warn().Err(uerr).Msg("⚠️  Failed to update workspace")
		}
		return "", err
	}

	_, err = s.wsRepo.Update(wsID, func(ws *models.Workspace) error {
		ws.Busy = false
		ws.Phase = models.PhaseDone
		ws.Message = models.MessageCVReady
		ws.DownloadLink = link
		ws.Document = nil
		ws.LastError = ""
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to store download link: %w", err)
	}

	log.Info().Msg("✅ CV ready")
	return link, nil
}

// Shutdown implements WorkflowService.
func (s *workflowService) Shutdown(ctx context.Context) error {
	logger.Info().Msg("🛑 Stopping upload runs...")
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("✅ Upload runs stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to stop upload runs: %w", ctx.Err())
	}
}
