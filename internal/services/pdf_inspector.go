package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFInspector checks that an upload is a readable PDF before it is sent to
// the backend.
type PDFInspector interface {
	Inspect(content []byte) (*PDFInfo, error)
}

type PDFInfo struct {
	PageCount int
	// HasText is false for scanned documents without a text layer.
	HasText bool
}

type pdfInspector struct {
	textPages int
}

// NewPDFInspector samples the text of at most the first textPages pages.
func NewPDFInspector(textPages int) PDFInspector {
	if textPages <= 0 {
		textPages = 2
	}
	return &pdfInspector{textPages: textPages}
}

func (p *pdfInspector) Inspect(content []byte) (info *PDFInfo, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			info, err = nil, fmt.Errorf("failed to open PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	totalPage := r.NumPage()
	if totalPage == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	info = &PDFInfo{PageCount: totalPage}
	for pageIndex := 1; pageIndex <= totalPage && pageIndex <= p.textPages; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			info.HasText = true
			break
		}
	}

	return info, nil
}
