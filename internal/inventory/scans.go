package inventory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/models"
)

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// ScanRecord is the persisted summary of a scan run.
type ScanRecord struct {
	ID         uuid.UUID          `json:"id"`
	LibraryID  uuid.UUID          `json:"library_id"`
	Status     models.ScanStatus  `json:"status"`
	TotalFiles int                `json:"total_files"`
	TotalDirs  int                `json:"total_directories"`
	NewFiles   int                `json:"new_files"`
	Duplicates int                `json:"duplicates"`
	Errors     []models.ScanError `json:"errors"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

func (r *ScanRepository) Create(scanID, libraryID uuid.UUID) error {
	_, err := r.db.Exec(`
		INSERT INTO scans (id, library_id, status) VALUES ($1,$2,'queued')`,
		scanID.String(), libraryID)
	return err
}

func (r *ScanRepository) MarkScanning(scanID uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE scans SET status='scanning' WHERE id=$1`, scanID.String())
	return err
}

// Finish stores the terminal state of a scan.
func (r *ScanRepository) Finish(result *models.ScanResult, duplicates int) error {
	errBytes, err := json.Marshal(result.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode scan errors: %w", err)
	}
	if result.Errors == nil {
		errBytes = []byte("[]")
	}
	_, err = r.db.Exec(`
		UPDATE scans SET status=$2, total_files=$3, total_dirs=$4, new_files=$5,
		       duplicates=$6, errors=$7, finished_at=$8
		WHERE id=$1`,
		result.ScanID.String(), result.Status, result.TotalFiles, result.TotalDirs,
		result.NewFiles, duplicates, errBytes, result.EndTime)
	return err
}

func (r *ScanRepository) GetByID(scanID uuid.UUID) (*ScanRecord, error) {
	row := r.db.QueryRow(`
		SELECT id, library_id, status, total_files, total_dirs, new_files, duplicates,
		       errors, started_at, finished_at
		FROM scans WHERE id=$1`, scanID.String())
	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("scan not found: %w", err)
	}
	return rec, nil
}

func (r *ScanRepository) ListByLibrary(libraryID uuid.UUID, limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`
		SELECT id, library_id, status, total_files, total_dirs, new_files, duplicates,
		       errors, started_at, finished_at
		FROM scans WHERE library_id=$1 ORDER BY started_at DESC LIMIT $2`, libraryID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// DeleteOlderThan drops finished scan rows past the retention window.
func (r *ScanRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`
		DELETE FROM scans WHERE finished_at IS NOT NULL AND finished_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRecord(row rowScanner) (*ScanRecord, error) {
	rec := &ScanRecord{}
	var id string
	var errBytes []byte
	err := row.Scan(&id, &rec.LibraryID, &rec.Status, &rec.TotalFiles, &rec.TotalDirs,
		&rec.NewFiles, &rec.Duplicates, &errBytes, &rec.StartedAt, &rec.FinishedAt)
	if err != nil {
		return nil, err
	}
	rec.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("bad scan id %q: %w", id, err)
	}
	if len(errBytes) > 0 {
		if err := json.Unmarshal(errBytes, &rec.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode scan errors: %w", err)
		}
	}
	return rec, nil
}
