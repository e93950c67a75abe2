package extractorsvc

import (
	"bytes"
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/document"
)

var supportedTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"text/markdown":   true,
}

// TextExtractor pulls plain text out of uploaded study materials. PDFs go
// through UniPDF; text types pass through as-is.
type TextExtractor struct {
	logger core.Logger
}

var _ document.Extractor = (*TextExtractor)(nil)

func NewTextExtractor(conf *core.Config, logger core.Logger) *TextExtractor {
	if conf.UnidocLicenseKey != "" {
		if err := license.SetMeteredKey(conf.UnidocLicenseKey); err != nil {
			logger.Warn("setting unidoc license key failed, PDF extraction will fail", err)
		}
	}
	return &TextExtractor{logger: logger}
}

func (e *TextExtractor) Supports(contentType string) bool {
	return supportedTypes[normalizeContentType(contentType)]
}

func (e *TextExtractor) Extract(ctx context.Context, data []byte, contentType string) (string, error) {
	switch normalizeContentType(contentType) {
	case "application/pdf":
		return extractPDF(data)
	case "text/plain", "text/markdown":
		return string(data), nil
	default:
		return "", errors.Errorf("unsupported content type: %s", contentType)
	}
}

func extractPDF(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "reading pdf")
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", errors.Wrap(err, "counting pdf pages")
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", errors.Wrapf(err, "getting pdf page %d", i)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", errors.Wrapf(err, "extracting pdf page %d", i)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", errors.Wrapf(err, "extracting pdf page %d", i)
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

// normalizeContentType drops any media type parameters (e.g. "; charset=utf-8").
func normalizeContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
