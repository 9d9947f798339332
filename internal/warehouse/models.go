// Package warehouse persists file metadata and match results in BigQuery.
//
// One logical row exists per file_id, maintained by a MERGE keyed on file_id.
// Deletes are soft: is_deleted and deleted_at are set, the row stays. All
// query values travel as query parameters; only the table identifier, which
// comes from deployment configuration, is interpolated into SQL text.
package warehouse

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// FileRecord is the warehouse row for one Drive file.
type FileRecord struct {
	FileID         string     `json:"file_id"`
	FileName       string     `json:"file_name"`
	FileURL        string     `json:"file_url"`
	ParentFolderID string     `json:"parent_folder_id"`
	MimeType       string     `json:"mime_type"`
	ModifiedTime   *time.Time `json:"modified_time,omitempty"`
	OCRText        string     `json:"ocr_text"`
	MatchedUserIDs []string   `json:"matched_user_ids"`
	MatchedNames   []string   `json:"matched_names"`
	IsDeleted      bool       `json:"is_deleted"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// fileRow is the BigQuery read shape for FileRecord.
type fileRow struct {
	FileID         string                 `bigquery:"file_id"`
	FileName       bigquery.NullString    `bigquery:"file_name"`
	FileURL        bigquery.NullString    `bigquery:"file_url"`
	ParentFolderID bigquery.NullString    `bigquery:"parent_folder_id"`
	MimeType       bigquery.NullString    `bigquery:"mime_type"`
	ModifiedTime   bigquery.NullTimestamp `bigquery:"modified_time"`
	OCRText        bigquery.NullString    `bigquery:"ocr_text"`
	MatchedUserIDs []string               `bigquery:"matched_user_ids"`
	MatchedNames   []string               `bigquery:"matched_names"`
	IsDeleted      bigquery.NullBool      `bigquery:"is_deleted"`
	DeletedAt      bigquery.NullTimestamp `bigquery:"deleted_at"`
	CreatedAt      bigquery.NullTimestamp `bigquery:"created_at"`
	UpdatedAt      bigquery.NullTimestamp `bigquery:"updated_at"`
}

func (r fileRow) toRecord() FileRecord {
	rec := FileRecord{
		FileID:         r.FileID,
		FileName:       r.FileName.StringVal,
		FileURL:        r.FileURL.StringVal,
		ParentFolderID: r.ParentFolderID.StringVal,
		MimeType:       r.MimeType.StringVal,
		OCRText:        r.OCRText.StringVal,
		MatchedUserIDs: r.MatchedUserIDs,
		MatchedNames:   r.MatchedNames,
		IsDeleted:      r.IsDeleted.Bool,
	}
	if r.ModifiedTime.Valid {
		t := r.ModifiedTime.Timestamp
		rec.ModifiedTime = &t
	}
	if r.DeletedAt.Valid {
		t := r.DeletedAt.Timestamp
		rec.DeletedAt = &t
	}
	if r.CreatedAt.Valid {
		rec.CreatedAt = r.CreatedAt.Timestamp
	}
	if r.UpdatedAt.Valid {
		rec.UpdatedAt = r.UpdatedAt.Timestamp
	}
	return rec
}

// BaseFields are the metadata columns written on every upsert.
type BaseFields struct {
	FileName       string
	FileURL        string
	ParentFolderID string
	MimeType       string
	ModifiedTime   time.Time // zero means unknown; the staleness guard is skipped
}

// OCRFields are the extraction columns, written only after a reprocessing run.
type OCRFields struct {
	OCRText        string
	MatchedUserIDs []string
	MatchedNames   []string
}

// SearchQuery filters the file metadata table.
type SearchQuery struct {
	QueryText      string     `json:"query_text,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	FileType       string     `json:"file_type,omitempty"`
	DateFrom       *time.Time `json:"date_from,omitempty"`
	DateTo         *time.Time `json:"date_to,omitempty"`
	IncludeDeleted bool       `json:"include_deleted"`
	Limit          int64      `json:"limit"`
	Offset         int64      `json:"offset"`
}

// DefaultSearchLimit applies when a query does not set a page size.
const DefaultSearchLimit = 50

// SearchResult is one page of matching file records plus the unpaged total.
type SearchResult struct {
	TotalCount int64        `json:"total_count"`
	Items      []FileRecord `json:"items"`
}
