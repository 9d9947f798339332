package drive

import (
	"context"
	"errors"
	"io"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// tempPrefix is where the sync job stages Drive file content for OCR.
const tempPrefix = "temp"

// ContentStore reads and cleans up staged file content.
type ContentStore interface {
	// FetchContent returns the staged bytes for a Drive file.
	FetchContent(ctx context.Context, fileID string) ([]byte, error)

	// RemoveContent deletes the staged object after processing. Removing an
	// already-removed object is not an error.
	RemoveContent(ctx context.Context, fileID string) error
}

// GCSContentStore implements ContentStore on the temp Cloud Storage bucket.
type GCSContentStore struct {
	bucket *storage.BucketHandle
}

// NewGCSContentStore creates a content store with credentials from environment.
func NewGCSContentStore(ctx context.Context, bucketName string) (*GCSContentStore, func() error, error) {
	const op = "NewGCSContentStore"

	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, wrapDriveError(op, err, "failed to create storage client")
	}
	return &GCSContentStore{bucket: client.Bucket(bucketName)}, client.Close, nil
}

// NewGCSContentStoreWithBucket creates a content store with an explicit bucket (for testing).
func NewGCSContentStoreWithBucket(bucket *storage.BucketHandle) *GCSContentStore {
	return &GCSContentStore{bucket: bucket}
}

// FetchContent downloads the staged object for fileID.
func (s *GCSContentStore) FetchContent(ctx context.Context, fileID string) ([]byte, error) {
	const op = "FetchContent"

	r, err := s.bucket.Object(objectName(fileID)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, wrapDriveError(op, ErrContentNotStaged, fileID)
		}
		return nil, wrapDriveError(op, err, "failed to open staged object for "+fileID)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapDriveError(op, err, "failed to read staged object for "+fileID)
	}
	return data, nil
}

// RemoveContent deletes the staged object for fileID.
func (s *GCSContentStore) RemoveContent(ctx context.Context, fileID string) error {
	const op = "RemoveContent"

	err := s.bucket.Object(objectName(fileID)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return wrapDriveError(op, err, "failed to delete staged object for "+fileID)
	}
	return nil
}

func objectName(fileID string) string {
	return path.Join(tempPrefix, fileID)
}
