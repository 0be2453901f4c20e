package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/repositories"
	"alfredoptarigan/cv-editor/internal/resume"
)

type fakeCVAPI struct {
	mu        sync.Mutex
	uploadErr map[string]error
	statuses  map[string]*scriptedChecker
	createFn  func(req models.CreateCVRequest) (string, error)
	created   []models.CreateCVRequest
	keys      []string
}

func newFakeCVAPI() *fakeCVAPI {
	return &fakeCVAPI{
		uploadErr: make(map[string]error),
		statuses:  make(map[string]*scriptedChecker),
	}
}

func (f *fakeCVAPI) Upload(ctx context.Context, cred models.Credential, file *UploadFile) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, cred.Reveal())
	if err := f.uploadErr[file.Name]; err != nil {
		return "", err
	}
	return "id-" + file.Name, nil
}

func (f *fakeCVAPI) CheckStatus(ctx context.Context, cred models.Credential, uploadID string) (*models.StatusResult, error) {
	f.mu.Lock()
	checker, ok := f.statuses[uploadID]
	f.mu.Unlock()
	if !ok {
		return &models.StatusResult{Status: models.ProcessStatusInProgress}, nil
	}
	return checker.check(ctx)
}

func (f *fakeCVAPI) CreateCV(ctx context.Context, cred models.Credential, req models.CreateCVRequest) (string, error) {
	f.mu.Lock()
	f.created = append(f.created, req)
	fn := f.createFn
	f.mu.Unlock()
	return fn(req)
}

func (f *fakeCVAPI) script(uploadID string, answers ...checkAnswer) *scriptedChecker {
	c := &scriptedChecker{answers: answers}
	f.mu.Lock()
	f.statuses[uploadID] = c
	f.mu.Unlock()
	return c
}

type workflowFixture struct {
	repo     repositories.WorkspaceRepository
	api      *fakeCVAPI
	workflow WorkflowService
	wsID     uuid.UUID
}

func newWorkflowFixture(t *testing.T, poll PollConfig) *workflowFixture {
	t.Helper()
	repo := repositories.NewWorkspaceRepository(time.Hour)
	ws := models.NewWorkspace(time.Now())
	require.NoError(t, repo.Create(ws))

	api := newFakeCVAPI()
	wf := NewWorkflowService(repo, api, nil, poll, 2)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = wf.Shutdown(ctx)
	})

	return &workflowFixture{repo: repo, api: api, workflow: wf, wsID: ws.ID}
}

func (f *workflowFixture) workspace(t *testing.T) *models.Workspace {
	t.Helper()
	ws, err := f.repo.FindByID(f.wsID)
	require.NoError(t, err)
	return ws
}

func (f *workflowFixture) waitIdle(t *testing.T) *models.Workspace {
	t.Helper()
	require.Eventually(t, func() bool {
		return !f.workspace(t).Busy
	}, 2*time.Second, 5*time.Millisecond)
	return f.workspace(t)
}

func pdfFile(name string) *UploadFile {
	return &UploadFile{Name: name, Content: []byte("%PDF-1.4")}
}

func TestUploadHandsDocumentToEditor(t *testing.T) {
	f := newWorkflowFixture(t, fastPoll)
	doc := resume.Record(resume.KV("Professional Summary", resume.String("Engineer")))
	checker := f.api.script("id-cv.pdf", inProgress(), inProgress(), ready(doc))

	require.NoError(t, f.workflow.StartUpload(f.wsID, models.NewCredential(testKey), []*UploadFile{pdfFile("cv.pdf")}))

	ws := f.waitIdle(t)
	assert.Equal(t, models.PhaseEditing, ws.Phase)
	assert.Equal(t, models.MessageRetrieved, ws.Message)
	assert.Equal(t, "id-cv.pdf", ws.UploadID)
	assert.True(t, doc.Equal(ws.Document))
	assert.Equal(t, 3, checker.Calls())
	assert.Equal(t, []string{testKey}, f.api.keys)
}

func TestUploadFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(api *fakeCVAPI)
		poll    PollConfig
		message string
	}{
		{
			name: "upload transport error",
			setup: func(api *fakeCVAPI) {
				api.uploadErr["cv.pdf"] = ErrTransport
			},
			poll:    fastPoll,
			message: models.MessageUploadError,
		},
		{
			name: "processing failed",
			setup: func(api *fakeCVAPI) {
				api.script("id-cv.pdf", inProgress(), checkAnswer{result: &models.StatusResult{Status: "failed"}})
			},
			poll:    fastPoll,
			message: models.MessageProcessingError,
		},
		{
			name: "status check transport error",
			setup: func(api *fakeCVAPI) {
				api.script("id-cv.pdf", checkAnswer{err: ErrTransport})
			},
			poll:    fastPoll,
			message: models.MessageStatusError,
		},
		{
			name:    "never finishes",
			setup:   func(api *fakeCVAPI) {},
			poll:    PollConfig{Interval: 2 * time.Millisecond, MaxAttempts: 3},
			message: models.MessageTimedOut,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkflowFixture(t, tt.poll)
			tt.setup(f.api)

			require.NoError(t, f.workflow.StartUpload(f.wsID, models.NewCredential(testKey), []*UploadFile{pdfFile("cv.pdf")}))

			ws := f.waitIdle(t)
			assert.Equal(t, models.PhaseFailed, ws.Phase)
			assert.Equal(t, tt.message, ws.Message)
			assert.False(t, ws.HasDocument())
			assert.NotEmpty(t, ws.LastError)
		})
	}
}

func TestUploadFirstReadyWins(t *testing.T) {
	f := newWorkflowFixture(t, fastPoll)
	f.api.uploadErr["broken.pdf"] = ErrTransport
	doc := resume.Record(resume.KV("Hobbies", resume.List(resume.String("chess"))))
	f.api.script("id-b.pdf", ready(doc))
	slow := f.api.script("id-a.pdf", inProgress())

	files := []*UploadFile{pdfFile("a.pdf"), pdfFile("b.pdf"), pdfFile("broken.pdf")}
	require.NoError(t, f.workflow.StartUpload(f.wsID, models.NewCredential(testKey), files))

	ws := f.waitIdle(t)
	assert.Equal(t, models.PhaseEditing, ws.Phase)
	assert.Equal(t, "id-b.pdf", ws.UploadID)
	assert.True(t, doc.Equal(ws.Document))

	// the remaining poller is stopped once a document arrived
	calls := slow.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, slow.Calls(), calls+1)
}

func TestStartUploadRejections(t *testing.T) {
	f := newWorkflowFixture(t, PollConfig{Interval: time.Hour, MaxAttempts: 1})

	err := f.workflow.StartUpload(f.wsID, models.NewCredential(testKey), nil)
	assert.ErrorIs(t, err, ErrNoFiles)

	err = f.workflow.StartUpload(f.wsID, models.Credential{}, []*UploadFile{pdfFile("cv.pdf")})
	assert.ErrorIs(t, err, ErrMissingCredential)

	err = f.workflow.StartUpload(uuid.New(), models.NewCredential(testKey), []*UploadFile{pdfFile("cv.pdf")})
	assert.ErrorIs(t, err, repositories.ErrWorkspaceNotFound)

	require.NoError(t, f.workflow.StartUpload(f.wsID, models.NewCredential(testKey), []*UploadFile{pdfFile("cv.pdf")}))
	err = f.workflow.StartUpload(f.wsID, models.NewCredential(testKey), []*UploadFile{pdfFile("cv.pdf")})
	assert.ErrorIs(t, err, ErrWorkspaceBusy)
}

func TestShutdownSettlesBusyWorkspace(t *testing.T) {
	f := newWorkflowFixture(t, PollConfig{Interval: time.Hour})
	require.NoError(t, f.workflow.StartUpload(f.wsID, models.NewCredential(testKey), []*UploadFile{pdfFile("cv.pdf")}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.workflow.Shutdown(ctx))

	ws := f.workspace(t)
	assert.False(t, ws.Busy)
	assert.Equal(t, models.PhaseIdle, ws.Phase)

	err := f.workflow.StartUpload(f.wsID, models.NewCredential(testKey), []*UploadFile{pdfFile("cv.pdf")})
	assert.Error(t, err)
}

func withDocument(t *testing.T, f *workflowFixture, doc *resume.Node) {
	t.Helper()
	_, err := f.repo.Update(f.wsID, func(ws *models.Workspace) error {
		ws.Credential = models.NewCredential(testKey)
		ws.Document = doc
		ws.UploadID = "up-1"
		ws.Language = "fr"
		ws.Anonymize = true
		ws.Phase = models.PhaseEditing
		return nil
	})
	require.NoError(t, err)
}

func TestWorkflowCreateCV(t *testing.T) {
	f := newWorkflowFixture(t, fastPoll)
	doc := resume.Record(resume.KV("Professional Summary", resume.String("Engineer")))
	withDocument(t, f, doc)
	f.api.createFn = func(req models.CreateCVRequest) (string, error) {
		return "https://files.example/cv.docx", nil
	}

	link, err := f.workflow.CreateCV(context.Background(), f.wsID)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/cv.docx", link)

	require.Len(t, f.api.created, 1)
	req := f.api.created[0]
	assert.Equal(t, "up-1", req.UploadID)
	assert.Equal(t, "fr", req.Language)
	assert.True(t, req.Anonymize)
	assert.True(t, doc.Equal(req.ResumeData))

	ws := f.workspace(t)
	assert.Equal(t, models.PhaseDone, ws.Phase)
	assert.Equal(t, models.MessageCVReady, ws.Message)
	assert.Equal(t, link, ws.DownloadLink)
	assert.False(t, ws.HasDocument())
	assert.False(t, ws.Busy)
}

func TestCreateCVFailureKeepsDocument(t *testing.T) {
	f := newWorkflowFixture(t, fastPoll)
	doc := resume.Record(resume.KV("Professional Summary", resume.String("Engineer")))
	withDocument(t, f, doc)
	f.api.createFn = func(req models.CreateCVRequest) (string, error) {
		return "", errors.Join(ErrMalformedResponse, errors.New("no resume link"))
	}

	link, err := f.workflow.CreateCV(context.Background(), f.wsID)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Empty(t, link)

	ws := f.workspace(t)
	assert.Equal(t, models.PhaseEditing, ws.Phase)
	assert.Equal(t, models.MessageCreateError, ws.Message)
	assert.Empty(t, ws.DownloadLink)
	assert.True(t, doc.Equal(ws.Document))
	assert.False(t, ws.Busy)
}

func TestCreateCVRequiresDocument(t *testing.T) {
	f := newWorkflowFixture(t, fastPoll)
	_, err := f.workflow.CreateCV(context.Background(), f.wsID)
	assert.ErrorIs(t, err, ErrNoDocument)
}
