package inventory

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/models"
)

type MediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

const mediaColumns = `id, external_id, source, title, year, media_type, poster_url, total_seasons`

// FindOrCreate returns the stored record for an external hit, creating
// it on first sight. Records keyed by (source, external_id).
func (r *MediaRepository) FindOrCreate(rec *models.MediaRecord) error {
	if rec.ExternalID != "" {
		err := r.db.QueryRow(`
			SELECT id FROM media_records WHERE source=$1 AND external_id=$2`,
			rec.Source, rec.ExternalID).Scan(&rec.ID)
		if err == nil {
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}
	}
	return r.db.QueryRow(`
		INSERT INTO media_records (external_id, source, title, year, media_type, poster_url, total_seasons)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`,
		rec.ExternalID, rec.Source, rec.Title, rec.Year, rec.Type, rec.PosterURL, rec.TotalSeasons,
	).Scan(&rec.ID)
}

func (r *MediaRepository) GetByID(id uuid.UUID) (*models.MediaRecord, error) {
	row := r.db.QueryRow(`SELECT `+mediaColumns+` FROM media_records WHERE id=$1`, id)
	rec, err := scanMedia(row)
	if err != nil {
		return nil, fmt.Errorf("media record not found: %w", err)
	}
	return rec, nil
}

// ListByType returns the local catalogue subset the matcher scores
// against.
func (r *MediaRepository) ListByType(mediaType models.MediaType) ([]models.MediaRecord, error) {
	rows, err := r.db.Query(`
		SELECT `+mediaColumns+` FROM media_records WHERE media_type=$1 ORDER BY title`, mediaType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MediaRecord
	for rows.Next() {
		rec, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *MediaRepository) List() ([]models.MediaRecord, error) {
	rows, err := r.db.Query(`SELECT ` + mediaColumns + ` FROM media_records ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MediaRecord
	for rows.Next() {
		rec, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanMedia(row rowScanner) (*models.MediaRecord, error) {
	rec := &models.MediaRecord{}
	var id uuid.UUID
	var year, seasons sql.NullInt64
	err := row.Scan(&id, &rec.ExternalID, &rec.Source, &rec.Title, &year, &rec.Type,
		&rec.PosterURL, &seasons)
	if err != nil {
		return nil, err
	}
	rec.ID = id.String()
	rec.Year = nullableInt(year)
	rec.TotalSeasons = nullableInt(seasons)
	return rec, nil
}
