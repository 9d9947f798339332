package warehouse

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"driveocr/internal/registry"
)

// rowIterator abstracts bigquery.RowIterator for testing.
type rowIterator interface {
	Next(dst interface{}) error
}

// queryRunner executes parameterized queries. The production implementation
// wraps a bigquery.Client; tests substitute a fake that captures SQL and
// parameters.
type queryRunner interface {
	Exec(ctx context.Context, query string, params []bigquery.QueryParameter) error
	Read(ctx context.Context, query string, params []bigquery.QueryParameter) (rowIterator, error)
}

// bigqueryRunner is the production queryRunner.
type bigqueryRunner struct {
	client *bigquery.Client
}

func (r *bigqueryRunner) Exec(ctx context.Context, query string, params []bigquery.QueryParameter) error {
	q := r.client.Query(query)
	q.Parameters = params
	job, err := q.Run(ctx)
	if err != nil {
		return err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return err
	}
	return status.Err()
}

func (r *bigqueryRunner) Read(ctx context.Context, query string, params []bigquery.QueryParameter) (rowIterator, error) {
	q := r.client.Query(query)
	q.Parameters = params
	return q.Read(ctx)
}

// Store is the file metadata upsert store.
type Store struct {
	runner     queryRunner
	fileTable  string
	usersTable string
}

// NewStore creates a store with credentials from environment. Table
// identifiers are fully qualified (`project.dataset.table`) and come from
// deployment configuration, never from request data.
func NewStore(ctx context.Context, projectID, fileTable, usersTable string) (*Store, func() error, error) {
	const op = "NewStore"

	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, nil, wrapUpsertError(op, err, "failed to create BigQuery client")
	}

	return &Store{
		runner:     &bigqueryRunner{client: client},
		fileTable:  fileTable,
		usersTable: usersTable,
	}, client.Close, nil
}

// newStoreWithRunner creates a store with an explicit runner (for testing).
func newStoreWithRunner(runner queryRunner, fileTable, usersTable string) *Store {
	return &Store{runner: runner, fileTable: fileTable, usersTable: usersTable}
}

// Upsert merges base metadata, and optionally OCR results, into the row for
// fileID. Applying the same event twice produces the same logical row; the
// merge is the transaction boundary. A matched row is only updated when the
// incoming modified_time is not older than the stored one, so late metadata
// events cannot clobber newer state.
func (s *Store) Upsert(ctx context.Context, fileID string, base BaseFields, ocr *OCRFields) error {
	const op = "Upsert"

	now := time.Now().UTC()

	modified := bigquery.NullTimestamp{}
	if !base.ModifiedTime.IsZero() {
		modified = bigquery.NullTimestamp{Timestamp: base.ModifiedTime.UTC(), Valid: true}
	}

	params := []bigquery.QueryParameter{
		{Name: "file_id", Value: fileID},
		{Name: "file_name", Value: base.FileName},
		{Name: "file_url", Value: base.FileURL},
		{Name: "parent_folder_id", Value: base.ParentFolderID},
		{Name: "mime_type", Value: base.MimeType},
		{Name: "modified_time", Value: modified},
		{Name: "updated_at", Value: now},
	}

	setCols := []string{"file_name", "file_url", "parent_folder_id", "mime_type", "modified_time", "updated_at"}
	if ocr != nil {
		setCols = append(setCols, "ocr_text", "matched_user_ids", "matched_names")
		params = append(params,
			bigquery.QueryParameter{Name: "ocr_text", Value: ocr.OCRText},
			bigquery.QueryParameter{Name: "matched_user_ids", Value: emptyIfNil(ocr.MatchedUserIDs)},
			bigquery.QueryParameter{Name: "matched_names", Value: emptyIfNil(ocr.MatchedNames)},
		)
	}

	assignments := make([]string, len(setCols))
	for i, col := range setCols {
		assignments[i] = fmt.Sprintf("%s = @%s", col, col)
	}

	insertCols := append([]string{"file_id"}, setCols...)
	insertCols = append(insertCols, "is_deleted", "created_at")
	insertVals := make([]string, 0, len(insertCols))
	for _, col := range insertCols {
		switch col {
		case "is_deleted":
			insertVals = append(insertVals, "FALSE")
		case "created_at":
			insertVals = append(insertVals, "@updated_at")
		default:
			insertVals = append(insertVals, "@"+col)
		}
	}

	// is_deleted is deliberately absent from the UPDATE list: an upsert can
	// never resurrect a soft-deleted row.
	query := fmt.Sprintf(`MERGE `+"`%s`"+` T
USING (SELECT @file_id AS file_id) S
ON T.file_id = S.file_id
WHEN MATCHED AND (@modified_time IS NULL OR T.modified_time IS NULL OR T.modified_time <= @modified_time) THEN
  UPDATE SET %s
WHEN NOT MATCHED THEN
  INSERT (%s)
  VALUES (%s)`,
		s.fileTable,
		strings.Join(assignments, ", "),
		strings.Join(insertCols, ", "),
		strings.Join(insertVals, ", "))

	if err := s.runner.Exec(ctx, query, params); err != nil {
		return wrapUpsertError(op, ErrUpsertFailed, fmt.Sprintf("merge for %s: %v", fileID, err))
	}
	return nil
}

// MarkDeleted soft-deletes the row for fileID, leaving every other field
// untouched. Reapplying it keeps the original deleted_at, so the operation
// is idempotent.
func (s *Store) MarkDeleted(ctx context.Context, fileID string) error {
	const op = "MarkDeleted"

	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE `+"`%s`"+`
SET is_deleted = TRUE,
    deleted_at = COALESCE(deleted_at, @deleted_at),
    updated_at = @updated_at
WHERE file_id = @file_id`, s.fileTable)

	params := []bigquery.QueryParameter{
		{Name: "file_id", Value: fileID},
		{Name: "deleted_at", Value: now},
		{Name: "updated_at", Value: now},
	}

	if err := s.runner.Exec(ctx, query, params); err != nil {
		return wrapUpsertError(op, ErrUpsertFailed, fmt.Sprintf("mark deleted for %s: %v", fileID, err))
	}
	return nil
}

// Search returns one page of file records matching the query plus the
// unpaged total count.
func (s *Store) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	const op = "Search"

	var conditions []string
	var params []bigquery.QueryParameter

	if q.QueryText != "" {
		conditions = append(conditions, "CONTAINS_SUBSTR(ocr_text, @query_text)")
		params = append(params, bigquery.QueryParameter{Name: "query_text", Value: q.QueryText})
	}
	if q.UserID != "" {
		conditions = append(conditions, "@user_id IN UNNEST(matched_user_ids)")
		params = append(params, bigquery.QueryParameter{Name: "user_id", Value: q.UserID})
	}
	if q.FileType != "" {
		conditions = append(conditions, "mime_type = @file_type")
		params = append(params, bigquery.QueryParameter{Name: "file_type", Value: q.FileType})
	}
	if q.DateFrom != nil {
		conditions = append(conditions, "created_at >= @date_from")
		params = append(params, bigquery.QueryParameter{Name: "date_from", Value: q.DateFrom.UTC()})
	}
	if q.DateTo != nil {
		conditions = append(conditions, "created_at <= @date_to")
		params = append(params, bigquery.QueryParameter{Name: "date_to", Value: q.DateTo.UTC()})
	}
	if !q.IncludeDeleted {
		conditions = append(conditions, "is_deleted = FALSE")
	}

	whereClause := "TRUE"
	if len(conditions) > 0 {
		whereClause = strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) AS total FROM `%s` WHERE %s", s.fileTable, whereClause)
	it, err := s.runner.Read(ctx, countQuery, params)
	if err != nil {
		return nil, wrapUpsertError(op, ErrQueryFailed, fmt.Sprintf("count query: %v", err))
	}
	var count struct {
		Total int64 `bigquery:"total"`
	}
	if err := it.Next(&count); err != nil && err != iterator.Done {
		return nil, wrapUpsertError(op, ErrQueryFailed, fmt.Sprintf("count row: %v", err))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pageQuery := fmt.Sprintf(`SELECT file_id, file_name, file_url, parent_folder_id, mime_type, modified_time,
       ocr_text, matched_user_ids, matched_names, is_deleted, deleted_at, created_at, updated_at
FROM `+"`%s`"+`
WHERE %s
ORDER BY created_at DESC
LIMIT @limit OFFSET @offset`, s.fileTable, whereClause)

	pageParams := append(append([]bigquery.QueryParameter{}, params...),
		bigquery.QueryParameter{Name: "limit", Value: limit},
		bigquery.QueryParameter{Name: "offset", Value: offset},
	)

	rows, err := s.runner.Read(ctx, pageQuery, pageParams)
	if err != nil {
		return nil, wrapUpsertError(op, ErrQueryFailed, fmt.Sprintf("page query: %v", err))
	}

	items := []FileRecord{}
	for {
		var row fileRow
		err := rows.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, wrapUpsertError(op, ErrQueryFailed, fmt.Sprintf("page row: %v", err))
		}
		items = append(items, row.toRecord())
	}

	return &SearchResult{TotalCount: count.Total, Items: items}, nil
}

// SyncUser mirrors a registry user into the warehouse users table. The
// previous active row is soft-deleted and a fresh row inserted, keeping a
// full change history for analytical joins.
func (s *Store) SyncUser(ctx context.Context, u registry.User) error {
	const op = "SyncUser"

	retire := fmt.Sprintf(`UPDATE `+"`%s`"+`
SET is_deleted = TRUE, deleted_at = @now
WHERE user_id = @user_id AND is_deleted = FALSE`, s.usersTable)

	now := time.Now().UTC()
	if err := s.runner.Exec(ctx, retire, []bigquery.QueryParameter{
		{Name: "user_id", Value: u.ID},
		{Name: "now", Value: now},
	}); err != nil {
		return wrapUpsertError(op, ErrUpsertFailed, fmt.Sprintf("retire rows for %s: %v", u.ID, err))
	}

	deletedAt := bigquery.NullTimestamp{}
	if u.DeletedAt != nil {
		deletedAt = bigquery.NullTimestamp{Timestamp: u.DeletedAt.UTC(), Valid: true}
	}

	insert := fmt.Sprintf(`INSERT `+"`%s`"+` (user_id, email, name, alternate_names, role, organization, is_deleted, deleted_at, created_at, updated_at)
VALUES (@user_id, @email, @name, @alternate_names, @role, @organization, @is_deleted, @deleted_at, @created_at, @updated_at)`, s.usersTable)

	params := []bigquery.QueryParameter{
		{Name: "user_id", Value: u.ID},
		{Name: "email", Value: u.Email},
		{Name: "name", Value: u.Name},
		{Name: "alternate_names", Value: emptyIfNil(u.AlternateNames)},
		{Name: "role", Value: u.Role},
		{Name: "organization", Value: u.Organization},
		{Name: "is_deleted", Value: u.IsDeleted},
		{Name: "deleted_at", Value: deletedAt},
		{Name: "created_at", Value: u.CreatedAt.UTC()},
		{Name: "updated_at", Value: u.UpdatedAt.UTC()},
	}

	if err := s.runner.Exec(ctx, insert, params); err != nil {
		return wrapUpsertError(op, ErrUpsertFailed, fmt.Sprintf("insert row for %s: %v", u.ID, err))
	}
	return nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
