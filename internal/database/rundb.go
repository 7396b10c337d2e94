package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/wordcrawl/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "wordcrawl.db"

// timeLayout is the fixed-width UTC layout used for stored timestamps.
// Fixed width keeps lexical and chronological order identical.
const timeLayout = "2006-01-02 15:04:05.000000000"

// RunDB provides SQLite-based storage for finished crawl runs.
//
// Design decision: We keep words in their own table instead of a JSON blob
// so that the history view can compare ranks across runs with plain SQL.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- Runs store one finished crawl each
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT '',
		deadline TEXT NOT NULL DEFAULT '',
		config_hash TEXT NOT NULL,
		start_pages TEXT NOT NULL,
		urls_visited INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_hash ON runs(config_hash);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Run words store the ranked popular words of a run
	CREATE TABLE IF NOT EXISTS run_words (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		rank INTEGER NOT NULL,
		word TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_words_word ON run_words(word);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores run and its popular words in one transaction and sets
// run.ID to the new row id.
func (rdb *RunDB) SaveRun(ctx context.Context, run *model.Run) (err error) {
	pagesJSON, err := json.Marshal(run.StartPages)
	if err != nil {
		return fmt.Errorf("failed to serialize start pages: %w", err)
	}

	urlsVisited := 0
	var words model.WordCounts
	if run.Result != nil {
		urlsVisited = run.Result.URLsVisited
		words = run.Result.WordCounts
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (started_at, finished_at, deadline, config_hash, start_pages, urls_visited, error)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		formatTimestamp(run.Deadline),
		run.ConfigHash,
		string(pagesJSON),
		urlsVisited,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read run id: %w", err)
	}

	for i, wc := range words {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_words (run_id, rank, word, count) VALUES (?, ?, ?, ?)`,
			id, i+1, wc.Word, wc.Count,
		); err != nil {
			return fmt.Errorf("failed to insert word %q: %w", wc.Word, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	return nil
}

// GetRun retrieves a run by its database ID.
// Returns nil without error if no such run exists.
func (rdb *RunDB) GetRun(ctx context.Context, id int64) (*model.Run, error) {
	row := rdb.db.QueryRowContext(ctx, `
	SELECT id, started_at, finished_at, deadline, config_hash, start_pages, urls_visited, error
	FROM runs
	WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := rdb.loadWords(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first, without their words.
// A non-positive limit returns every run.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	query := `
	SELECT id, started_at, finished_at, deadline, config_hash, start_pages, urls_visited, error
	FROM runs
	ORDER BY started_at DESC, id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return rdb.queryRuns(ctx, query, args...)
}

// LatestRuns returns the n newest runs with the given configuration hash,
// newest first, with their words loaded.
func (rdb *RunDB) LatestRuns(ctx context.Context, configHash string, n int) ([]*model.Run, error) {
	if n <= 0 {
		return []*model.Run{}, nil
	}

	runs, err := rdb.queryRuns(ctx, `
	SELECT id, started_at, finished_at, deadline, config_hash, start_pages, urls_visited, error
	FROM runs
	WHERE config_hash = ?
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`, configHash, n)
	if err != nil {
		return nil, err
	}

	for _, run := range runs {
		if err := rdb.loadWords(ctx, run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// WordHistory returns the count of word in each run with the given
// configuration hash, oldest first. Runs in which the word did not rank
// are omitted.
func (rdb *RunDB) WordHistory(ctx context.Context, configHash, word string) ([]WordPoint, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT r.id, r.started_at, w.rank, w.count
	FROM run_words w
	JOIN runs r ON r.id = w.run_id
	WHERE r.config_hash = ? AND w.word = ?
	ORDER BY r.started_at ASC, r.id ASC
	`, configHash, word)
	if err != nil {
		return nil, fmt.Errorf("failed to query word history: %w", err)
	}
	defer rows.Close()

	points := make([]WordPoint, 0)
	for rows.Next() {
		var (
			p         WordPoint
			startedAt string
		)
		if err := rows.Scan(&p.RunID, &startedAt, &p.Rank, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan word history: %w", err)
		}
		p.StartedAt = parseTimestamp(startedAt)
		points = append(points, p)
	}
	return points, rows.Err()
}

// WordPoint is one observation of a word in the run history.
type WordPoint struct {
	// RunID is the run the observation belongs to.
	RunID int64

	// StartedAt is when that run started.
	StartedAt time.Time

	// Rank is the 1-based position of the word in the run's result.
	Rank int

	// Count is the aggregate count of the word in that run.
	Count int
}

func (rdb *RunDB) queryRuns(ctx context.Context, query string, args ...any) ([]*model.Run, error) {
	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*model.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// loadWords fills run.Result.WordCounts from run_words in rank order.
func (rdb *RunDB) loadWords(ctx context.Context, run *model.Run) error {
	rows, err := rdb.db.QueryContext(ctx,
		`SELECT word, count FROM run_words WHERE run_id = ? ORDER BY rank`, run.ID)
	if err != nil {
		return fmt.Errorf("failed to query words: %w", err)
	}
	defer rows.Close()

	words := make(model.WordCounts, 0)
	for rows.Next() {
		var wc model.WordCount
		if err := rows.Scan(&wc.Word, &wc.Count); err != nil {
			return fmt.Errorf("failed to scan word: %w", err)
		}
		words = append(words, wc)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	run.Result.WordCounts = words
	return nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var (
		run                             model.Run
		startedAt, finishedAt, deadline string
		pagesJSON                       string
		urlsVisited                     int
	)
	if err := row.Scan(
		&run.ID,
		&startedAt,
		&finishedAt,
		&deadline,
		&run.ConfigHash,
		&pagesJSON,
		&urlsVisited,
		&run.ErrorMessage,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(pagesJSON), &run.StartPages); err != nil {
		return nil, fmt.Errorf("failed to parse start pages: %w", err)
	}
	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	run.Deadline = parseTimestamp(deadline)
	run.Result = model.NewCrawlResult(nil, urlsVisited)
	if run.ErrorMessage != "" {
		run.Error = errors.New(run.ErrorMessage)
	}
	return &run, nil
}

// formatTimestamp renders t in timeLayout, or "" for the zero time.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
