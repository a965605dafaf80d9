package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"resumeup/internal/config"
	"resumeup/internal/services"
)

const schema = `
CREATE TABLE IF NOT EXISTS resumes (
    id                TEXT PRIMARY KEY,
    original_filename TEXT NOT NULL,
    original_text     TEXT,
    improved_text     TEXT,
    date_processed    TEXT NOT NULL,
    status            TEXT NOT NULL,
    download_url      TEXT,
    error_message     TEXT,
    created_at        TEXT NOT NULL,
    updated_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_resumes_status ON resumes(status);
`

// ErrTerminalState is returned when an update would move a completed or
// errored entity back to processing.
var ErrTerminalState = errors.New("terminal status cannot regress to processing")

// Registry manages resume persistence plus the in-memory single-flight
// pointer. The pointer, not the collection, enforces single-flight: only the
// orchestrator sets it, and BeginPlaceholder refuses to claim it twice.
type Registry struct {
	db   *sql.DB
	path string

	mu                  sync.Mutex
	currentProcessingID string
}

// Open initializes or connects to the registry database under the state dir.
func Open(cfg *config.Config) (*Registry, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "registry.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open registry db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply registry schema: %w", err)
	}

	return &Registry{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (r *Registry) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CurrentProcessingID returns the identifier of the in-flight placeholder, or
// the empty string when no flow is active.
func (r *Registry) CurrentProcessingID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentProcessingID
}

// BeginPlaceholder inserts an optimistic placeholder with status processing
// and claims the single-flight pointer. It fails with ErrProcessingActive,
// without touching the collection, while another flow holds the pointer.
func (r *Registry) BeginPlaceholder(ctx context.Context, tempID, filename string) (*Resume, error) {
	if tempID == "" {
		return nil, errors.New("placeholder id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentProcessingID != "" {
		return nil, services.Wrap(services.ErrProcessingActive, "registry", "begin", r.currentProcessingID, nil)
	}

	now := time.Now().UTC()
	placeholder := &Resume{
		ID:               tempID,
		OriginalFilename: filename,
		DateProcessed:    now,
		Status:           StatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := r.insert(ctx, placeholder); err != nil {
		return nil, err
	}

	r.currentProcessingID = tempID
	return placeholder, nil
}

// Commit resolves a placeholder: the temporary row is removed, the
// server-issued entity is inserted with status completed, and the pointer is
// cleared. DateProcessed and the filename carry over from the placeholder
// when the final entity leaves them unset.
func (r *Registry) Commit(ctx context.Context, tempID string, final *Resume) error {
	if final == nil {
		return errors.New("final resume is nil")
	}
	if final.ID == "" {
		return errors.New("final resume id is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	placeholder, err := r.getByID(ctx, tempID)
	if err != nil {
		return err
	}
	if placeholder == nil {
		return services.Wrap(services.ErrNotFound, "registry", "commit", tempID, nil)
	}

	if final.OriginalFilename == "" {
		final.OriginalFilename = placeholder.OriginalFilename
	}
	if final.DateProcessed.IsZero() {
		final.DateProcessed = placeholder.DateProcessed
	}
	final.Status = StatusCompleted
	final.ErrorMessage = ""
	now := time.Now().UTC()
	final.CreatedAt = now
	final.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM resumes WHERE id = ?`, tempID); err != nil {
		return fmt.Errorf("remove placeholder: %w", err)
	}
	if err := insertTx(ctx, tx, final); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolution: %w", err)
	}

	// Resolution is persisted; only now does the pointer clear.
	if r.currentProcessingID == tempID {
		r.currentProcessingID = ""
	}
	return nil
}

// Abort resolves a placeholder as failed. The entity is kept, marked with
// status error and the failure reason, so history shows the attempt. The
// pointer clears after the row is updated.
func (r *Registry) Abort(ctx context.Context, tempID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := StatusError
	if err := r.update(ctx, tempID, Fields{Status: &status, ErrorMessage: &reason}); err != nil {
		return err
	}

	if r.currentProcessingID == tempID {
		r.currentProcessingID = ""
	}
	return nil
}

// Add inserts an entity at the head of the display order (entities list
// most-recent-first).
func (r *Registry) Add(ctx context.Context, resume *Resume) error {
	if resume == nil {
		return errors.New("resume is nil")
	}
	if resume.ID == "" {
		return errors.New("resume id is empty")
	}
	now := time.Now().UTC()
	if resume.DateProcessed.IsZero() {
		resume.DateProcessed = now
	}
	if resume.CreatedAt.IsZero() {
		resume.CreatedAt = now
	}
	resume.UpdatedAt = now
	return r.insert(ctx, resume)
}

// Update merges non-nil fields into the matching entity. It is a no-op when
// the entity is absent and fails with ErrTerminalState when the merge would
// move a terminal entity back to processing.
func (r *Registry) Update(ctx context.Context, id string, fields Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.update(ctx, id, fields)
}

func (r *Registry) update(ctx context.Context, id string, fields Fields) error {
	existing, err := r.getByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	if fields.Status != nil {
		if existing.Status.Terminal() && *fields.Status == StatusProcessing {
			return fmt.Errorf("update %s: %w", id, ErrTerminalState)
		}
		existing.Status = *fields.Status
	}
	if fields.OriginalText != nil {
		existing.OriginalText = *fields.OriginalText
	}
	if fields.ImprovedText != nil {
		existing.ImprovedText = *fields.ImprovedText
	}
	if fields.DownloadURL != nil {
		existing.DownloadURL = *fields.DownloadURL
	}
	if fields.ErrorMessage != nil {
		existing.ErrorMessage = *fields.ErrorMessage
	}
	existing.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(
		ctx,
		`UPDATE resumes
         SET original_text = ?, improved_text = ?, status = ?, download_url = ?,
             error_message = ?, updated_at = ?
         WHERE id = ?`,
		nullableString(existing.OriginalText),
		nullableString(existing.ImprovedText),
		existing.Status,
		nullableString(existing.DownloadURL),
		nullableString(existing.ErrorMessage),
		existing.UpdatedAt.Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update resume: %w", err)
	}
	return nil
}

// GetByID fetches a resume by identifier; nil when absent.
func (r *Registry) GetByID(ctx context.Context, id string) (*Resume, error) {
	return r.getByID(ctx, id)
}

func (r *Registry) getByID(ctx context.Context, id string) (*Resume, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE id = ?`, id)
	resume, err := scanResume(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get resume: %w", err)
	}
	return resume, nil
}

// List returns resumes most-recent-first, optionally filtered by status.
func (r *Registry) List(ctx context.Context, statuses ...Status) ([]*Resume, error) {
	baseQuery := `SELECT ` + resumeColumns + ` FROM resumes`
	orderClause := ` ORDER BY created_at DESC, id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = r.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = r.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	var resumes []*Resume
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		resumes = append(resumes, resume)
	}
	return resumes, rows.Err()
}

// Remove deletes an entity by identifier.
func (r *Registry) Remove(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resumes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete resume: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all entities.
func (r *Registry) Clear(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resumes`)
	if err != nil {
		return 0, fmt.Errorf("clear resumes: %w", err)
	}
	return res.RowsAffected()
}

// ClearErrored removes only errored entities.
func (r *Registry) ClearErrored(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resumes WHERE status = ?`, StatusError)
	if err != nil {
		return 0, fmt.Errorf("clear errored resumes: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of entities grouped by status.
func (r *Registry) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM resumes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("registry stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (r *Registry) insert(ctx context.Context, resume *Resume) error {
	_, err := r.db.ExecContext(ctx, insertQuery, insertArgs(resume)...)
	if err != nil {
		return fmt.Errorf("insert resume: %w", err)
	}
	return nil
}

func insertTx(ctx context.Context, tx *sql.Tx, resume *Resume) error {
	_, err := tx.ExecContext(ctx, insertQuery, insertArgs(resume)...)
	if err != nil {
		return fmt.Errorf("insert resume: %w", err)
	}
	return nil
}

const insertQuery = `INSERT INTO resumes (
    id, original_filename, original_text, improved_text, date_processed,
    status, download_url, error_message, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertArgs(resume *Resume) []any {
	return []any{
		resume.ID,
		resume.OriginalFilename,
		nullableString(resume.OriginalText),
		nullableString(resume.ImprovedText),
		resume.DateProcessed.UTC().Format(time.RFC3339Nano),
		resume.Status,
		nullableString(resume.DownloadURL),
		nullableString(resume.ErrorMessage),
		resume.CreatedAt.UTC().Format(time.RFC3339Nano),
		resume.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

const resumeColumns = "id, original_filename, original_text, improved_text, date_processed, status, download_url, error_message, created_at, updated_at"

func scanResume(scanner interface{ Scan(dest ...any) error }) (*Resume, error) {
	var (
		id           string
		filename     string
		originalText sql.NullString
		improvedText sql.NullString
		processedRaw string
		statusStr    string
		downloadURL  sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&filename,
		&originalText,
		&improvedText,
		&processedRaw,
		&statusStr,
		&downloadURL,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	resume := &Resume{
		ID:               id,
		OriginalFilename: filename,
		OriginalText:     originalText.String,
		ImprovedText:     improvedText.String,
		Status:           Status(statusStr),
		DownloadURL:      downloadURL.String,
		ErrorMessage:     errorMessage.String,
	}
	if processed, err := parseTimeString(processedRaw); err == nil {
		resume.DateProcessed = processed
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		resume.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		resume.UpdatedAt = updated
	}
	return resume, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
