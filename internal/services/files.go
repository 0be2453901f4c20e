package services

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const PDFMimeType = "application/pdf"

var ErrInvalidFile = errors.New("invalid file")

// UploadFile is a validated PDF held in memory until it is sent upstream.
type UploadFile struct {
	Name    string
	Content []byte
	Info    *PDFInfo
}

type FileService interface {
	ReadUpload(file *multipart.FileHeader) (*UploadFile, error)
	ReadFile(path string) (*UploadFile, error)
}

type fileService struct {
	maxFileSize int64
	inspector   PDFInspector
}

func NewFileService(maxFileSize int64, inspector PDFInspector) FileService {
	return &fileService{
		maxFileSize: maxFileSize,
		inspector:   inspector,
	}
}

func (s *fileService) ReadUpload(file *multipart.FileHeader) (*UploadFile, error) {
	if file.Size > s.maxFileSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrInvalidFile, file.Filename, s.maxFileSize)
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	return s.read(file.Filename, src)
}

func (s *fileService) ReadFile(path string) (*UploadFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return s.read(filepath.Base(path), f)
}

func (s *fileService) read(name string, src io.Reader) (*UploadFile, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".pdf" {
		return nil, fmt.Errorf("%w: invalid file extension %q", ErrInvalidFile, ext)
	}

	content, err := io.ReadAll(io.LimitReader(src, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if int64(len(content)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", ErrInvalidFile, name, s.maxFileSize)
	}

	if mimeType := http.DetectContentType(content); mimeType != PDFMimeType {
		return nil, fmt.Errorf("%w: %s is %s, not %s", ErrInvalidFile, name, mimeType, PDFMimeType)
	}

	info, err := s.inspector.Inspect(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFile, name, err)
	}

	return &UploadFile{
		Name:    name,
		Content: content,
		Info:    info,
	}, nil
}
