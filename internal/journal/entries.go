package journal

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Entry statuses
const (
	StatusConverted = "converted"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// NullTime handles both string and time.Time values coming back from SQLite
type NullTime struct {
	Time  time.Time
	Valid bool
}

// storedTimeFormat has fixed width so stored timestamps sort lexically
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

var timeFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999 -0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Scan implements sql.Scanner for NullTime
func (nt *NullTime) Scan(value interface{}) error {
	if value == nil {
		nt.Time, nt.Valid = time.Time{}, false
		return nil
	}

	switch v := value.(type) {
	case time.Time:
		nt.Time, nt.Valid = v, true
		return nil
	case string:
		var err error
		for _, format := range timeFormats {
			var t time.Time
			if t, err = time.Parse(format, v); err == nil {
				nt.Time, nt.Valid = t, true
				return nil
			}
		}
		return fmt.Errorf("failed to parse time string %q: %w", v, err)
	default:
		return fmt.Errorf("unsupported Scan type for NullTime: %T", value)
	}
}

// Value implements driver.Valuer for NullTime
func (nt NullTime) Value() (driver.Value, error) {
	if !nt.Valid {
		return nil, nil
	}
	return nt.Time, nil
}

// Entry is one journaled conversion
type Entry struct {
	ID              int64
	RunID           string
	FilePath        string
	Digest          string
	Subject         string
	PartCount       int
	AttachmentCount int
	FileSize        int64
	Status          string
	Error           string
	ConvertedAt     NullTime
}

const entryColumns = `id, run_id, file_path, digest, subject, part_count,
	attachment_count, file_size, status, error, converted_at`

// Record inserts an entry tagged with the journal's run ID and returns its ID
func (j *Journal) Record(e *Entry) (int64, error) {
	if e.RunID == "" {
		e.RunID = j.runID
	}

	query := `
		INSERT INTO conversions (
			run_id, file_path, digest, subject, part_count,
			attachment_count, file_size, status, error, converted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	result, err := j.Exec(query,
		e.RunID, e.FilePath, e.Digest, e.Subject, e.PartCount,
		e.AttachmentCount, e.FileSize, e.Status, e.Error, now.Format(storedTimeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record conversion: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	e.ID = id
	e.ConvertedAt = NullTime{Time: now, Valid: true}
	return id, nil
}

// Converted reports whether filePath was already converted with the same digest
func (j *Journal) Converted(filePath, digest string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(
		SELECT 1 FROM conversions WHERE file_path = ? AND digest = ? AND status = ?
	)`

	err := j.QueryRow(query, filePath, digest, StatusConverted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check conversion: %w", err)
	}

	return exists, nil
}

// List returns entries newest first
func (j *Journal) List(limit, offset int) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM conversions
		ORDER BY converted_at DESC, id DESC
		LIMIT ? OFFSET ?`

	rows, err := j.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Count returns the number of journaled entries
func (j *Journal) Count() (int, error) {
	var count int
	err := j.QueryRow("SELECT COUNT(*) FROM conversions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count conversions: %w", err)
	}
	return count, nil
}

// Search finds entries whose subject or path matches query, using prefix
// matching for each term: weekly rep -> "weekly"* "rep"*
func (j *Journal) Search(query string, limit int) ([]*Entry, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return j.List(limit, 0)
	}

	fuzzyTerms := make([]string, len(terms))
	for i, term := range terms {
		// Quote each term so FTS5 operators inside it are taken literally
		fuzzyTerms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"*`
	}

	sqlQuery := `SELECT c.id, c.run_id, c.file_path, c.digest, c.subject, c.part_count,
			c.attachment_count, c.file_size, c.status, c.error, c.converted_at
		FROM conversions c
		JOIN conversions_fts ON c.id = conversions_fts.rowid
		WHERE conversions_fts MATCH ?
		ORDER BY rank
		LIMIT ?`

	rows, err := j.Query(sqlQuery, strings.Join(fuzzyTerms, " "), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search conversions: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var digest, subject, errText sql.NullString
		var size sql.NullInt64
		err := rows.Scan(
			&e.ID, &e.RunID, &e.FilePath, &digest, &subject, &e.PartCount,
			&e.AttachmentCount, &size, &e.Status, &errText, &e.ConvertedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion: %w", err)
		}
		e.Digest, e.Subject, e.Error = digest.String, subject.String, errText.String
		e.FileSize = size.Int64
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversions: %w", err)
	}

	return entries, nil
}
