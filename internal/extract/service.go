// Package extract turns staged file bytes into text and a user-match decision.
//
// Two extraction methods are chained: a fast image OCR pass using the Cloud
// Vision API, and a full document extraction pass using Document AI. Images
// try the fast path first and stop early on a match; everything else, and any
// image that did not match, goes through document extraction.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT: Google Cloud project ID
//   - DOCUMENT_AI_PROCESSOR_ID: Document AI OCR processor ID
//
// API Limitations:
//   - Maximum file size: 20MB for synchronous processing on both services
//   - Document AI supports PDF, TIFF, GIF, JPEG, PNG, BMP, WEBP
package extract

import (
	"context"

	"driveocr/internal/match"
	"driveocr/internal/registry"
)

// Method identifies which extraction technique produced the text.
type Method string

const (
	// MethodVision is the fast image OCR path.
	MethodVision Method = "vision"

	// MethodDocumentExtractor is the full document extraction path.
	MethodDocumentExtractor Method = "document_extractor"
)

// MaxContentBytes is the maximum file size for synchronous processing (20MB).
const MaxContentBytes = 20 * 1024 * 1024

// TextExtractor extracts text from raw file bytes.
type TextExtractor interface {
	// ExtractText returns the extracted text. An empty string means the
	// engine found no text, which is a valid outcome, not an error.
	ExtractText(ctx context.Context, content []byte, mimeType string) (string, error)
}

// Outcome is the result of running the extraction chain on one file.
type Outcome struct {
	// Text is the extracted text used for matching.
	Text string `json:"text"`

	// Method is the extraction technique that produced Text.
	Method Method `json:"method"`

	// Match is the user-match decision for Text.
	Match match.Result `json:"match"`
}

// UserSource supplies the ordered candidate users for matching.
type UserSource interface {
	ActiveUsers(ctx context.Context) ([]registry.User, error)
}
