package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/cv-editor/internal/models"
	"alfredoptarigan/cv-editor/internal/resume"
)

const (
	HeaderAPIKey    = "x-api-key"
	HeaderDebugMode = "debug_mode"

	uploadPath   = "/default/uploadCV"
	statusPath   = "/default/checkStatus"
	creationPath = "/default/cv_creation"
)

var (
	// ErrTransport covers network failures, timeouts and non-2xx answers.
	ErrTransport = errors.New("transport failure")
	// ErrProcessingFailed is a terminal non-success processing status.
	ErrProcessingFailed = errors.New("processing failed")
	// ErrMalformedResponse is a response missing the expected fields.
	ErrMalformedResponse = errors.New("malformed response")
	ErrMissingCredential = errors.New("missing API key")
)

// CVAPIService talks to the external CV backend.
type CVAPIService interface {
	Upload(ctx context.Context, cred models.Credential, file *UploadFile) (string, error)
	CheckStatus(ctx context.Context, cred models.Credential, uploadID string) (*models.StatusResult, error)
	CreateCV(ctx context.Context, cred models.Credential, req models.CreateCVRequest) (string, error)
}

type cvAPIService struct {
	baseURL   string
	timeout   time.Duration
	debugMode string
}

func NewCVAPIService(baseURL string, timeout time.Duration, debugMode string) CVAPIService {
	if debugMode == "" {
		debugMode = "false"
	}
	return &cvAPIService{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   timeout,
		debugMode: debugMode,
	}
}

// Upload implements CVAPIService.
func (s *cvAPIService) Upload(ctx context.Context, cred models.Credential, file *UploadFile) (string, error) {
	timeout, err := s.prepare(ctx, cred)
	if err != nil {
		return "", err
	}

	agent := fiber.Post(s.baseURL + uploadPath)
	agent.Set(HeaderAPIKey, cred.Reveal())
	agent.Set(HeaderDebugMode, s.debugMode)
	agent.FileData(&fiber.FormFile{
		Fieldname: "file",
		Name:      file.Name,
		Content:   file.Content,
	})
	agent.MultipartForm(nil)
	agent.Timeout(timeout)

	var resp models.BackendUploadResponse
	if err := send(agent, &resp); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}
	if resp.UploadID == "" {
		return "", fmt.Errorf("failed to upload %s: %w: no uploadId", file.Name, ErrMalformedResponse)
	}

	return resp.UploadID, nil
}

type statusBody struct {
	ProcessStatus string          `json:"process_status"`
	Data          json.RawMessage `json:"data"`
}

// CheckStatus implements CVAPIService.
func (s *cvAPIService) CheckStatus(ctx context.Context, cred models.Credential, uploadID string) (*models.StatusResult, error) {
	timeout, err := s.prepare(ctx, cred)
	if err != nil {
		return nil, err
	}

	agent := fiber.Get(s.baseURL + statusPath + "?upload_id=" + url.QueryEscape(uploadID))
	agent.Set(HeaderAPIKey, cred.Reveal())
	agent.Timeout(timeout)

	var body statusBody
	if err := send(agent, &body); err != nil {
		return nil, fmt.Errorf("failed to check status: %w", err)
	}
	if body.ProcessStatus == "" {
		return nil, fmt.Errorf("failed to check status: %w: no process_status", ErrMalformedResponse)
	}

	result := &models.StatusResult{Status: body.ProcessStatus}
	if body.ProcessStatus == models.ProcessStatusReady {
		doc, err := resume.Decode(body.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to read processed CV: %w: %v", ErrMalformedResponse, err)
		}
		result.Document = doc
	}

	return result, nil
}

type creationEnvelope struct {
	Body json.RawMessage `json:"body"`
}

type creationBody struct {
	Resume string `json:"resume"`
}

// CreateCV implements CVAPIService. The answer wraps a JSON document in a
// string field: {"body": "{\"resume\": \"<url>\"}"}.
func (s *cvAPIService) CreateCV(ctx context.Context, cred models.Credential, req models.CreateCVRequest) (string, error) {
	timeout, err := s.prepare(ctx, cred)
	if err != nil {
		return "", err
	}

	agent := fiber.Post(s.baseURL + creationPath)
	agent.Set(HeaderAPIKey, cred.Reveal())
	agent.JSON(req)
	agent.Timeout(timeout)

	var envelope creationEnvelope
	if err := send(agent, &envelope); err != nil {
		return "", fmt.Errorf("failed to create CV: %w", err)
	}

	link, err := parseCreationBody(envelope.Body)
	if err != nil {
		return "", fmt.Errorf("failed to create CV: %w", err)
	}
	return link, nil
}

func parseCreationBody(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: no body", ErrMalformedResponse)
	}

	// the body is normally a JSON string holding the document; accept a
	// plain object as well
	inner := []byte(raw)
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		inner = []byte(encoded)
	}

	var body creationBody
	if err := json.Unmarshal(inner, &body); err != nil {
		return "", fmt.Errorf("%w: body is not JSON: %v", ErrMalformedResponse, err)
	}
	if body.Resume == "" {
		return "", fmt.Errorf("%w: no resume link", ErrMalformedResponse)
	}
	return body.Resume, nil
}

// prepare rejects requests without a credential or a live context and
// returns the timeout for the next request.
func (s *cvAPIService) prepare(ctx context.Context, cred models.Credential) (time.Duration, error) {
	if cred.IsEmpty() {
		return 0, ErrMissingCredential
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout, nil
}

func send(agent *fiber.Agent, out interface{}) error {
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrTransport, errors.Join(errs...))
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return fmt.Errorf("%w: unexpected status %d", ErrTransport, code)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
