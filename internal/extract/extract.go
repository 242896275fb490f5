// Package extract pulls plain text out of uploaded qualification files.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/spigell/matchning/internal/matching"
)

// ErrUnsupportedType is returned for files whose extension is not known.
var ErrUnsupportedType = errors.New("unsupported file type")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	docxBreak = regexp.MustCompile(`</w:p>|<w:br/>|<w:cr/>`)
	docxTab   = regexp.MustCompile(`<w:tab/>`)
	xmlTag    = regexp.MustCompile(`<[^>]*>`)
)

// Text returns the text content of a file, picking the parser by extension.
func Text(name string, data []byte) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case "", ".txt", ".csv", ".text":
		return string(bytes.TrimPrefix(data, utf8BOM)), nil

	case ".pdf":
		return pdfText(bytes.NewReader(data), int64(len(data)))

	case ".docx":
		return docxText(bytes.NewReader(data), int64(len(data)))

	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}

// Normalize turns one-qualification-per-line text into the comma separated form used for matching.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Trim(strings.TrimSpace(line), ",")
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}

	return matching.JoinQualifications(parts...)
}

func pdfText(reader io.ReaderAt, size int64) (string, error) {
	pdfReader, err := pdf.NewReader(reader, size)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var textBuilder strings.Builder
	for i := 1; i <= pdfReader.NumPage(); i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	return textBuilder.String(), nil
}

func docxText(reader io.ReaderAt, size int64) (string, error) {
	doc, err := docx.ReadDocxFromMemory(reader, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	return stripDocumentXML(doc.Editable().GetContent()), nil
}

// stripDocumentXML keeps the text runs of word/document.xml, one paragraph per line.
func stripDocumentXML(content string) string {
	content = docxBreak.ReplaceAllString(content, "\n")
	content = docxTab.ReplaceAllString(content, "\t")
	content = xmlTag.ReplaceAllString(content, "")

	return strings.TrimSpace(html.UnescapeString(content))
}
