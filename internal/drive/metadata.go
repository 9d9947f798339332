// Package drive wraps the Drive metadata API and the temporary Cloud Storage
// bucket that stages file content for OCR.
package drive

import (
	"context"
	"os"
	"time"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// metadataFields is the field mask requested for every metadata fetch.
const metadataFields = "id, name, mimeType, parents, modifiedTime, trashed"

// FileMetadata is the subset of Drive file metadata the pipeline uses.
type FileMetadata struct {
	ID           string
	Name         string
	MimeType     string
	Parents      []string
	ModifiedTime time.Time
	Trashed      bool
}

// ParentFolderID returns the first parent, or empty when the file is orphaned.
func (m FileMetadata) ParentFolderID() string {
	if len(m.Parents) == 0 {
		return ""
	}
	return m.Parents[0]
}

// MetadataFetcher fetches current metadata for a Drive file.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, fileID string) (*FileMetadata, error)
}

// APIMetadataFetcher implements MetadataFetcher on the Drive v3 API.
type APIMetadataFetcher struct {
	svc *drivev3.Service
}

// NewAPIMetadataFetcher creates a fetcher with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS
// JSON in env, falling back to application default credentials.
func NewAPIMetadataFetcher(ctx context.Context) (*APIMetadataFetcher, error) {
	const op = "NewAPIMetadataFetcher"

	opts := []option.ClientOption{option.WithScopes(drivev3.DriveReadonlyScope)}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	svc, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, wrapDriveError(op, err, "failed to create Drive service")
	}
	return &APIMetadataFetcher{svc: svc}, nil
}

// NewAPIMetadataFetcherWithService creates a fetcher with an explicit service (for testing).
func NewAPIMetadataFetcherWithService(svc *drivev3.Service) *APIMetadataFetcher {
	return &APIMetadataFetcher{svc: svc}
}

// FetchMetadata returns the current metadata for fileID.
func (f *APIMetadataFetcher) FetchMetadata(ctx context.Context, fileID string) (*FileMetadata, error) {
	const op = "FetchMetadata"

	file, err := f.svc.Files.Get(fileID).
		Fields(metadataFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapDriveError(op, err, "Drive API call failed for "+fileID)
	}

	var modified time.Time
	if file.ModifiedTime != "" {
		modified, err = time.Parse(time.RFC3339, file.ModifiedTime)
		if err != nil {
			return nil, wrapDriveError(op, err, "unparseable modifiedTime "+file.ModifiedTime)
		}
	}

	return &FileMetadata{
		ID:           file.Id,
		Name:         file.Name,
		MimeType:     file.MimeType,
		Parents:      file.Parents,
		ModifiedTime: modified,
		Trashed:      file.Trashed,
	}, nil
}
