// Package processor applies Drive change events to the warehouse.
//
// Delivery from the bus is at-least-once and unordered, so every step here is
// idempotent: replaying an event converges on the same warehouse row, and a
// stale metadata event can never overwrite newer state or resurrect a deleted
// file.
package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"driveocr/internal/drive"
	"driveocr/internal/event"
	"driveocr/internal/extract"
	"driveocr/internal/registry"
	"driveocr/internal/retry"
	"driveocr/internal/warehouse"
)

// ChangeStore is the warehouse surface the processor writes to.
type ChangeStore interface {
	Upsert(ctx context.Context, fileID string, base warehouse.BaseFields, ocr *warehouse.OCRFields) error
	MarkDeleted(ctx context.Context, fileID string) error
}

// Extractor runs the extraction chain on staged content.
type Extractor interface {
	Run(ctx context.Context, content []byte, contentType string, users []registry.User) (*extract.Outcome, error)
}

// Processor turns one change event into warehouse writes.
type Processor struct {
	metadata drive.MetadataFetcher
	content  drive.ContentStore
	chain    Extractor
	users    extract.UserSource
	store    ChangeStore
	policy   retry.Policy
	log      zerolog.Logger
}

// New wires a processor from its dependencies. All remote calls are retried
// under policy before the event is given up on.
func New(metadata drive.MetadataFetcher, content drive.ContentStore, chain Extractor, users extract.UserSource, store ChangeStore, policy retry.Policy, log zerolog.Logger) *Processor {
	return &Processor{
		metadata: metadata,
		content:  content,
		chain:    chain,
		users:    users,
		store:    store,
		policy:   policy,
		log:      log,
	}
}

// Process applies one change event.
//
// Trash events, and any event whose current metadata reports the file as
// trashed, soft-delete the warehouse row and stop. Files with unsupported
// MIME types are logged and skipped without a write. Update events run the
// extraction chain over the staged content; other event types write metadata
// only.
func (p *Processor) Process(ctx context.Context, ev event.ChangeEvent) error {
	log := p.log.With().Str("file_id", ev.FileID).Str("change_type", string(ev.ChangeType)).Logger()
	log.Info().Msg("Processing change event")

	if ev.ChangeType == event.ChangeTypeTrash {
		return p.markDeleted(ctx, ev.FileID, log)
	}

	var meta *drive.FileMetadata
	err := p.policy.Do(ctx, func() error {
		var err error
		meta, err = p.metadata.FetchMetadata(ctx, ev.FileID)
		return err
	})
	if err != nil {
		return wrapProcessError("FetchMetadata", ev.FileID, err)
	}

	if meta.Trashed {
		return p.markDeleted(ctx, ev.FileID, log)
	}

	if !supportedMimeType(meta.MimeType) {
		log.Info().Str("mime_type", meta.MimeType).Msg("Skipping unsupported file type")
		return nil
	}

	base := warehouse.BaseFields{
		FileName:       meta.Name,
		FileURL:        fileURL(ev.FileID),
		ParentFolderID: meta.ParentFolderID(),
		MimeType:       meta.MimeType,
		ModifiedTime:   meta.ModifiedTime,
	}

	if ev.ChangeType != event.ChangeTypeUpdate {
		return p.upsert(ctx, ev.FileID, base, nil, log)
	}

	content, err := p.fetchContent(ctx, ev.FileID)
	if err != nil {
		if errors.Is(err, drive.ErrContentNotStaged) {
			// The sync job has not staged bytes for this revision yet; keep
			// the metadata current and let the next event carry the OCR.
			log.Warn().Msg("No staged content, writing metadata only")
			return p.upsert(ctx, ev.FileID, base, nil, log)
		}
		return wrapProcessError("FetchContent", ev.FileID, err)
	}

	var users []registry.User
	err = p.policy.Do(ctx, func() error {
		var err error
		users, err = p.users.ActiveUsers(ctx)
		return err
	})
	if err != nil {
		return wrapProcessError("ActiveUsers", ev.FileID, err)
	}

	var outcome *extract.Outcome
	err = p.policy.Do(ctx, func() error {
		var err error
		outcome, err = p.chain.Run(ctx, content, meta.MimeType, users)
		// Oversized or empty content fails the same way on every attempt.
		if errors.Is(err, extract.ErrContentTooLarge) || errors.Is(err, extract.ErrEmptyContent) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return wrapProcessError("ExtractText", ev.FileID, err)
	}

	ocr := &warehouse.OCRFields{
		OCRText:        outcome.Text,
		MatchedUserIDs: []string{},
		MatchedNames:   outcome.Match.MatchedNames,
	}
	if outcome.Match.Matched {
		ocr.MatchedUserIDs = []string{outcome.Match.User.ID}
		log.Info().
			Str("matched_user_id", outcome.Match.User.ID).
			Str("method", string(outcome.Method)).
			Msg("Matched document to user")
	} else {
		log.Info().Str("method", string(outcome.Method)).Msg("No user matched")
	}

	if err := p.upsert(ctx, ev.FileID, base, ocr, log); err != nil {
		return err
	}

	// Cleanup is best-effort: a leftover staged object is re-deleted on the
	// next replay.
	if err := p.content.RemoveContent(ctx, ev.FileID); err != nil {
		log.Warn().Err(err).Msg("Failed to remove staged content")
	}
	return nil
}

func (p *Processor) markDeleted(ctx context.Context, fileID string, log zerolog.Logger) error {
	err := p.policy.Do(ctx, func() error {
		return p.store.MarkDeleted(ctx, fileID)
	})
	if err != nil {
		return wrapProcessError("MarkDeleted", fileID, err)
	}
	log.Info().Msg("Marked file deleted")
	return nil
}

func (p *Processor) upsert(ctx context.Context, fileID string, base warehouse.BaseFields, ocr *warehouse.OCRFields, log zerolog.Logger) error {
	err := p.policy.Do(ctx, func() error {
		return p.store.Upsert(ctx, fileID, base, ocr)
	})
	if err != nil {
		return wrapProcessError("Upsert", fileID, err)
	}
	log.Info().Bool("with_ocr", ocr != nil).Msg("Upserted file metadata")
	return nil
}

func (p *Processor) fetchContent(ctx context.Context, fileID string) ([]byte, error) {
	var content []byte
	err := p.policy.Do(ctx, func() error {
		var err error
		content, err = p.content.FetchContent(ctx, fileID)
		if errors.Is(err, drive.ErrContentNotStaged) {
			return retry.Permanent(err)
		}
		return err
	})
	return content, err
}

// supportedMimeType reports whether the pipeline can extract text from files
// of this type.
func supportedMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

func fileURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", fileID)
}
