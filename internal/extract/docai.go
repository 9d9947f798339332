package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// DocAIConfig holds configuration for the Document AI extraction path.
type DocAIConfig struct {
	// ProjectID is the Google Cloud project ID where Document AI is enabled.
	ProjectID string

	// Location is the processing location (e.g., "us", "eu").
	// Should match where the processor is created.
	Location string

	// ProcessorID is the Document AI OCR processor ID.
	ProcessorID string

	// ProcessorVersion pins a particular processor version. If empty, the
	// default version is used.
	ProcessorVersion string

	// Timeout is the maximum time to wait for processing. Default: 60s.
	Timeout time.Duration
}

// DocAIExtractor implements TextExtractor using Google Document AI. This is
// the fallback path for PDFs and multi-page documents.
type DocAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config DocAIConfig
}

// NewDocAIExtractor creates an extractor with credentials from environment.
// Requires ProjectID and ProcessorID in config; Location defaults to "us".
func NewDocAIExtractor(ctx context.Context, config DocAIConfig) (*DocAIExtractor, error) {
	const op = "NewDocAIExtractor"

	if config.ProjectID == "" {
		return nil, WrapExtractionError(op, ErrInvalidConfiguration, "project ID is required")
	}
	if config.ProcessorID == "" {
		return nil, WrapExtractionError(op, ErrInvalidConfiguration, "processor ID is required")
	}
	if config.Location == "" {
		config.Location = "us"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	var clientOptions []option.ClientOption

	// Regional endpoint for non-us locations
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractionError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	return &DocAIExtractor{client: client, config: config}, nil
}

// NewDocAIExtractorWithClient creates an extractor with an explicit client (for testing).
func NewDocAIExtractorWithClient(config DocAIConfig, client *documentai.DocumentProcessorClient) *DocAIExtractor {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &DocAIExtractor{client: client, config: config}
}

// ExtractText runs the Document AI OCR processor on the raw document bytes.
func (d *DocAIExtractor) ExtractText(ctx context.Context, content []byte, mimeType string) (string, error) {
	const op = "ExtractText"

	if len(content) == 0 {
		return "", WrapExtractionError(op, ErrEmptyContent, "")
	}
	if len(content) > MaxContentBytes {
		return "", WrapExtractionError(op, ErrContentTooLarge, fmt.Sprintf("file size: %d bytes", len(content)))
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	processCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: d.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
	}

	resp, err := d.client.ProcessDocument(processCtx, req)
	if err != nil {
		return "", d.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return "", WrapExtractionError(op, ErrEngineFailed, "no document in response")
	}

	return resp.Document.Text, nil
}

// processorName constructs the full processor resource name.
func (d *DocAIExtractor) processorName() string {
	if d.config.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			d.config.ProjectID, d.config.Location, d.config.ProcessorID, d.config.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.config.ProjectID, d.config.Location, d.config.ProcessorID)
}

// handleProcessingError converts Document AI errors into extraction errors.
func (d *DocAIExtractor) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return WrapExtractionError(op, ErrEngineFailed, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "NOT_FOUND"):
		return WrapExtractionError(op, ErrInvalidConfiguration, fmt.Sprintf("processor not found: %s", d.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapExtractionError(op, ErrEngineFailed, "document format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded") || strings.Contains(errStr, "context deadline exceeded"):
		return WrapExtractionError(op, context.DeadlineExceeded, "processing timeout")
	default:
		return WrapExtractionError(op, ErrEngineFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (d *DocAIExtractor) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
