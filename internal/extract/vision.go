package extract

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// VisionExtractor implements TextExtractor using the Cloud Vision API's
// text detection. This is the fast path for image receipts and forms.
type VisionExtractor struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionExtractor creates an extractor with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS
// JSON in env.
func NewVisionExtractor(ctx context.Context) (*VisionExtractor, error) {
	const op = "NewVisionExtractor"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapExtractionError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapExtractionError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &VisionExtractor{client: client}, nil
}

// NewVisionExtractorWithClient creates an extractor with an explicit client (for testing).
func NewVisionExtractorWithClient(client *vision.ImageAnnotatorClient) *VisionExtractor {
	return &VisionExtractor{client: client}
}

// ExtractText runs text detection on image bytes. Empty annotations yield an
// empty string, not an error.
func (v *VisionExtractor) ExtractText(ctx context.Context, content []byte, mimeType string) (string, error) {
	const op = "ExtractText"

	if len(content) == 0 {
		return "", WrapExtractionError(op, ErrEmptyContent, "")
	}
	if len(content) > MaxContentBytes {
		return "", WrapExtractionError(op, ErrContentTooLarge, fmt.Sprintf("file size: %d bytes", len(content)))
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: content},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", WrapExtractionError(op, ErrEngineFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}

	if len(resp.Responses) == 0 {
		return "", WrapExtractionError(op, ErrEngineFailed, "no response from Vision API")
	}
	imageResp := resp.Responses[0]
	if imageResp.Error != nil {
		return "", WrapExtractionError(op, ErrEngineFailed, fmt.Sprintf("Vision API error: %s", imageResp.Error.Message))
	}

	// The first annotation aggregates the full detected text; the rest are
	// per-word boxes.
	if len(imageResp.TextAnnotations) == 0 {
		return "", nil
	}
	return imageResp.TextAnnotations[0].Description, nil
}

// Close closes the underlying Vision client.
func (v *VisionExtractor) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}
