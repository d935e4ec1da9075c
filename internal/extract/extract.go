package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"readiness-backend/internal/shared/storage/object"
)

const (
	mimePDF = "application/pdf"

	// MaxPDFSize is the largest accepted upload.
	MaxPDFSize int64 = 5 * 1024 * 1024
)

// Validation messages returned to the user.
const (
	MsgNoFile   = "No file provided"
	MsgNotPDF   = "File must be a PDF"
	MsgTooLarge = "File size must be less than 5MB"
)

// ValidationError rejects an upload before any extraction is attempted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ParseError reports a document that could not be turned into text.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	reason := "Unknown error"
	if e.Err != nil {
		reason = e.Err.Error()
	}
	return fmt.Sprintf("Failed to parse PDF: %s. Please ensure the file is not password protected and is a valid PDF.", reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errNoText = errors.New("no extractable text")

// Validate checks the declared MIME type and then the size.
// An empty content type with zero size means no file was supplied.
func Validate(contentType string, size int64) error {
	if strings.TrimSpace(contentType) == "" && size <= 0 {
		return &ValidationError{Message: MsgNoFile}
	}
	if normalizeMimeType(contentType) != mimePDF {
		return &ValidationError{Message: MsgNotPDF}
	}
	if size > MaxPDFSize {
		return &ValidationError{Message: MsgTooLarge}
	}
	return nil
}

// ExtractText reads a stored PDF and persists the extracted text next to it.
func ExtractText(ctx context.Context, store object.Store, fileKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, err := store.Open(ctx, fileKey)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", fileKey, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: read: %w", fileKey, err)
	}

	text, err := ExtractPDF(ctx, raw)
	if err != nil {
		return "", err
	}

	if _, err := store.Put(ctx, object.ExtractedKey(fileKey), "text/plain; charset=utf-8", strings.NewReader(text)); err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", fileKey, err)
	}
	return text, nil
}

// ExtractPDF returns the text of every page in order, separated by a blank line.
func ExtractPDF(ctx context.Context, data []byte) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", &ParseError{Err: fmt.Errorf("%v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ParseError{Err: err}
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", &ParseError{Err: fmt.Errorf("page %d: %w", i, err)}
		}
		buf.WriteString(pageText)
		buf.WriteString("\n\n")
	}

	out := strings.TrimSpace(buf.String())
	if out == "" {
		return "", &ParseError{Err: errNoText}
	}
	return out, nil
}

func normalizeMimeType(mimeType string) string {
	return strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
}
