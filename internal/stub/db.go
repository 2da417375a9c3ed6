// internal/stub/db.go
package stub

import (
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// ErrJobNotFound is returned by GetJob for unknown IDs
var ErrJobNotFound = errors.New("job not found")

// timeLayout is fixed width so created_at sorts as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// JobRecord is one processed command as stored in SQLite
type JobRecord struct {
	JobID     string
	Command   string
	Intent    string
	Status    string
	Result    string // JSON text of the full response
	CreatedAt time.Time
}

// FileRecord is one uploaded file
type FileRecord struct {
	Filename   string
	FilePath   string
	FileType   string
	UploadedAt time.Time
}

// DB wraps SQLite connection
type DB struct {
	db *sql.DB
}

// NewDB opens or creates the SQLite database
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		command TEXT NOT NULL,
		intent TEXT,
		status TEXT NOT NULL,
		result TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);

	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_type TEXT NOT NULL,
		uploaded_at TEXT NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db: db}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the connection
func (d *DB) Ping() error {
	return d.db.Ping()
}

// InsertJob stores a processed command
func (d *DB) InsertJob(j *JobRecord) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	_, err := d.db.Exec(`
		INSERT INTO jobs (job_id, command, intent, status, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, j.JobID, j.Command, j.Intent, j.Status, j.Result, j.CreatedAt.UTC().Format(timeLayout))

	return err
}

// GetJob returns one job by its public ID
func (d *DB) GetJob(jobID string) (*JobRecord, error) {
	rows, err := d.db.Query(`
		SELECT job_id, command, intent, status, result, created_at
		FROM jobs
		WHERE job_id = ?
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, ErrJobNotFound
	}
	return &jobs[0], nil
}

// RecentJobs returns the newest jobs first
func (d *DB) RecentJobs(limit int) ([]JobRecord, error) {
	rows, err := d.db.Query(`
		SELECT job_id, command, intent, status, result, created_at
		FROM jobs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]JobRecord, error) {
	var jobs []JobRecord
	for rows.Next() {
		var j JobRecord
		var intent, result sql.NullString
		var createdStr string

		if err := rows.Scan(&j.JobID, &j.Command, &intent, &j.Status, &result, &createdStr); err != nil {
			return nil, err
		}

		j.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		if intent.Valid {
			j.Intent = intent.String
		}
		if result.Valid {
			j.Result = result.String
		}

		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// InsertFile records an upload
func (d *DB) InsertFile(f *FileRecord) error {
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	_, err := d.db.Exec(`
		INSERT INTO files (filename, file_path, file_type, uploaded_at)
		VALUES (?, ?, ?, ?)
	`, f.Filename, f.FilePath, f.FileType, f.UploadedAt.UTC().Format(timeLayout))

	return err
}

// Files returns every upload, oldest first
func (d *DB) Files() ([]FileRecord, error) {
	rows, err := d.db.Query(`
		SELECT filename, file_path, file_type, uploaded_at
		FROM files
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		var uploadedStr string
		if err := rows.Scan(&f.Filename, &f.FilePath, &f.FileType, &uploadedStr); err != nil {
			return nil, err
		}
		f.UploadedAt, _ = time.Parse(timeLayout, uploadedStr)
		files = append(files, f)
	}
	return files, rows.Err()
}
