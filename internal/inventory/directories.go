package inventory

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/models"
)

type DirectoryRepository struct {
	db *sql.DB
}

func NewDirectoryRepository(db *sql.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// UpsertBatch persists a scan's directories in one transaction.
func (r *DirectoryRepository) UpsertBatch(dirs []models.ScannedDirectory) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range dirs {
		d := &dirs[i]
		err := tx.QueryRow(`
			INSERT INTO scanned_directories (library_id, scan_id, path, name, modified_time, discovered_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (library_id, path) DO UPDATE SET
			       scan_id=$2, name=$4, modified_time=$5
			RETURNING id`,
			d.LibraryID, d.ScanID, d.Path, d.Name, nullTime(d.Metadata.ModifiedTime), d.DiscoveredAt,
		).Scan(&d.ID)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *DirectoryRepository) ListByLibrary(libraryID uuid.UUID) ([]models.ScannedDirectory, error) {
	rows, err := r.db.Query(`
		SELECT id, library_id, scan_id, path, name, modified_time, discovered_at
		FROM scanned_directories WHERE library_id=$1 ORDER BY path`, libraryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScannedDirectory
	for rows.Next() {
		var d models.ScannedDirectory
		var modified sql.NullTime
		if err := rows.Scan(&d.ID, &d.LibraryID, &d.ScanID, &d.Path, &d.Name, &modified, &d.DiscoveredAt); err != nil {
			return nil, err
		}
		if modified.Valid {
			d.Metadata.ModifiedTime = modified.Time
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DirectoryRepository) Delete(id uuid.UUID) error {
	_, err := r.db.Exec("DELETE FROM scanned_directories WHERE id=$1", id)
	return err
}
