package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmptyDocument = errors.New("no text content found in PDF")

type PDFParserService interface {
	Extract(filePath string) (*PDFContent, error)
}

type PDFContent struct {
	Text      string
	PageCount int
	FilePath  string
}

type pdfParserService struct{}

func NewPDFParserService() PDFParserService {
	return &pdfParserService{}
}

// Extract returns the plain text of every readable page. Pages are separated
// by blank lines so the chunker treats them as paragraph boundaries.
func (p *pdfParserService) Extract(filePath string) (*PDFContent, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", filePath)
	}

	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var pages []string
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("⚠️  Skipping unreadable page %d of %s: %v", pageIndex, filePath, err)
			continue
		}

		if cleaned := CleanText(text); cleaned != "" {
			pages = append(pages, cleaned)
		}
	}

	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}

	return &PDFContent{
		Text:      strings.Join(pages, "\n\n"),
		PageCount: totalPage,
		FilePath:  filePath,
	}, nil
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleaned := lines[:0]

	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
