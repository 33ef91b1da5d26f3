// Package resumetext pulls plain text out of uploaded resume files.
package resumetext

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MimeText = "text/plain"
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Extract returns the text of data, interpreted according to mime.
func Extract(mime string, data []byte) (string, error) {
	switch mime {
	case MimeText:
		return string(data), nil

	case MimePDF:
		return extractPDF(bytes.NewReader(data))

	case MimeDOCX:
		return extractDocx(bytes.NewReader(data))

	default:
		return "", fmt.Errorf("unsupported file type: %s", mime)
	}
}

// MimeFromFilename guesses the mime type the uploader would have recorded.
// Anything that is not .pdf or .docx is read as plain text.
func MimeFromFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return MimePDF
	case ".docx":
		return MimeDOCX
	default:
		return MimeText
	}
}

func extractPDF(reader *bytes.Reader) (string, error) {
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}
	return joinPages(pdfReader.NumPage(), func(i int) (string, bool, error) {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			return "", false, nil
		}
		text, err := page.GetPlainText(nil)
		return text, true, err
	})
}

// joinPages concatenates pages 1..numPages. pageText reports false for pages
// with no content. Pages that fail are skipped unless every page with
// content fails.
func joinPages(numPages int, pageText func(i int) (string, bool, error)) (string, error) {
	var (
		textBuilder strings.Builder
		attempted   int
		errs        []error
	)
	for i := 1; i <= numPages; i++ {
		text, ok, err := pageText(i)
		if !ok {
			continue
		}
		attempted++
		if err != nil {
			errs = append(errs, fmt.Errorf("page %d: %w", i, err))
			continue
		}
		textBuilder.WriteString(text)
	}
	if attempted > 0 && len(errs) == attempted {
		return "", fmt.Errorf("failed to extract text from pdf: %w", errors.Join(errs...))
	}
	return textBuilder.String(), nil
}

func extractDocx(reader *bytes.Reader) (string, error) {
	doc, err := docx.ReadDocxFromMemory(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return doc.Editable().GetContent(), nil
}
