package extract

import (
	"context"
	"strings"

	"driveocr/internal/match"
	"driveocr/internal/registry"
)

// Chain runs the two-step extraction flow: fast image OCR first, full
// document extraction as the fallback.
type Chain struct {
	vision   TextExtractor
	document TextExtractor
	matcher  *match.Engine
}

// NewChain wires the two extractors and the matcher together.
func NewChain(vision, document TextExtractor, matcher *match.Engine) *Chain {
	return &Chain{vision: vision, document: document, matcher: matcher}
}

// Run extracts text from content and matches it against users.
//
// Images try the Vision path first; a match there returns immediately with
// MethodVision on the assumption that image receipts and forms match quickly.
// Everything else, and images that produced no match, go through the document
// extractor, whose result is returned with MethodDocumentExtractor whether or
// not it matched. Empty extracted text skips the matcher entirely.
func (c *Chain) Run(ctx context.Context, content []byte, contentType string, users []registry.User) (*Outcome, error) {
	const op = "Run"

	if strings.HasPrefix(contentType, "image/") {
		text, err := c.vision.ExtractText(ctx, content, contentType)
		if err != nil {
			return nil, WrapExtractionError(op, err, "vision path failed")
		}
		if text != "" {
			if result := c.matcher.Match(text, users); result.Matched {
				return &Outcome{Text: text, Method: MethodVision, Match: result}, nil
			}
		}
	}

	text, err := c.document.ExtractText(ctx, content, contentType)
	if err != nil {
		return nil, WrapExtractionError(op, err, "document path failed")
	}

	result := match.NoMatch()
	if text != "" {
		result = c.matcher.Match(text, users)
	}
	return &Outcome{Text: text, Method: MethodDocumentExtractor, Match: result}, nil
}
