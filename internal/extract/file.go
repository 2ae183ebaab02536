package extract

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	docx "github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
)

// FileType identifies a supported downloadable document format.
type FileType string

const (
	FilePDF  FileType = "pdf"
	FileDOCX FileType = "docx"
	FileTXT  FileType = "txt"
)

var ErrUnsupportedType = errors.New("unsupported file type")

// ResolveFileType maps a resource URL onto a supported file type by its
// extension. URLs without a recognized document extension are not files
// (the caller treats them as web pages).
func ResolveFileType(rawURL string) (FileType, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".pdf":
		return FilePDF, true
	case ".docx":
		return FileDOCX, true
	case ".txt":
		return FileTXT, true
	default:
		return "", false
	}
}

// FileText extracts plain text from downloaded file bytes.
func FileText(kind FileType, data []byte) (string, error) {
	switch kind {
	case FilePDF:
		return PDFText(data)
	case FileDOCX:
		return DocxText(data)
	case FileTXT:
		return TxtText(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, kind)
	}
}

// PDFText extracts the plain text stream of a PDF document.
func PDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}
	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// DocxText extracts paragraph and table text from a DOCX document.
func DocxText(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse docx: %w", err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			sb.WriteString(it.String())
			sb.WriteByte('\n')
		case *docx.Table:
			sb.WriteString(it.String())
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// TxtText decodes plain-text file bytes.
func TxtText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text file is not valid utf-8")
	}
	return string(data), nil
}
