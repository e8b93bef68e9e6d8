// Package inventory persists libraries, scanned entries, media records
// and scan history in Postgres.
package inventory

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/models"
)

type LibraryRepository struct {
	db *sql.DB
}

func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

func (r *LibraryRepository) Create(lib *models.LibraryPath) error {
	return r.db.QueryRow(`
		INSERT INTO libraries (name, root_path, media_type, is_active, watch_folder, scan_interval)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at`,
		lib.Name, lib.RootPath, lib.MediaType, lib.IsActive, lib.WatchFolder, lib.ScanInterval,
	).Scan(&lib.ID, &lib.CreatedAt)
}

func (r *LibraryRepository) GetByID(id uuid.UUID) (*models.LibraryPath, error) {
	lib := &models.LibraryPath{}
	err := r.db.QueryRow(`
		SELECT id, name, root_path, media_type, is_active, watch_folder, scan_interval,
		       created_at, last_scanned
		FROM libraries WHERE id=$1`, id,
	).Scan(&lib.ID, &lib.Name, &lib.RootPath, &lib.MediaType, &lib.IsActive,
		&lib.WatchFolder, &lib.ScanInterval, &lib.CreatedAt, &lib.LastScanned)
	if err != nil {
		return nil, fmt.Errorf("library not found: %w", err)
	}
	return lib, nil
}

func (r *LibraryRepository) List() ([]models.LibraryPath, error) {
	return r.list(`
		SELECT id, name, root_path, media_type, is_active, watch_folder, scan_interval,
		       created_at, last_scanned
		FROM libraries ORDER BY name`)
}

// ListActive returns libraries eligible for scanning.
func (r *LibraryRepository) ListActive() ([]models.LibraryPath, error) {
	return r.list(`
		SELECT id, name, root_path, media_type, is_active, watch_folder, scan_interval,
		       created_at, last_scanned
		FROM libraries WHERE is_active ORDER BY name`)
}

// ListWatched returns active libraries with folder watching enabled.
func (r *LibraryRepository) ListWatched() ([]models.LibraryPath, error) {
	return r.list(`
		SELECT id, name, root_path, media_type, is_active, watch_folder, scan_interval,
		       created_at, last_scanned
		FROM libraries WHERE is_active AND watch_folder ORDER BY name`)
}

func (r *LibraryRepository) list(query string) ([]models.LibraryPath, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LibraryPath
	for rows.Next() {
		var lib models.LibraryPath
		if err := rows.Scan(&lib.ID, &lib.Name, &lib.RootPath, &lib.MediaType, &lib.IsActive,
			&lib.WatchFolder, &lib.ScanInterval, &lib.CreatedAt, &lib.LastScanned); err != nil {
			return nil, err
		}
		out = append(out, lib)
	}
	return out, rows.Err()
}

func (r *LibraryRepository) Update(lib *models.LibraryPath) error {
	_, err := r.db.Exec(`
		UPDATE libraries SET name=$2, root_path=$3, media_type=$4, is_active=$5,
		       watch_folder=$6, scan_interval=$7
		WHERE id=$1`,
		lib.ID, lib.Name, lib.RootPath, lib.MediaType, lib.IsActive, lib.WatchFolder, lib.ScanInterval)
	return err
}

func (r *LibraryRepository) Delete(id uuid.UUID) error {
	_, err := r.db.Exec("DELETE FROM libraries WHERE id=$1", id)
	return err
}

// TouchLastScanned records a completed scan time.
func (r *LibraryRepository) TouchLastScanned(id uuid.UUID) error {
	_, err := r.db.Exec("UPDATE libraries SET last_scanned=NOW() WHERE id=$1", id)
	return err
}
