package inventory

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mediashelf/mediashelf/internal/models"
)

type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `
	id, library_id, scan_id, path, name, extension, media_type,
	size, modified_time, created_time, checksum,
	parsed_title, parsed_year, parsed_season, parsed_episode,
	assignment_status, match_status, match_confidence, media_id,
	season_number, episode_number, discovered_at`

// Upsert inserts a scanned file or refreshes the stored metadata when
// the (library, path) pair is already known.
func (r *FileRepository) Upsert(f *models.ScannedFile) error {
	var title string
	var year, season, episode *int
	if f.ParsedInfo != nil {
		title = f.ParsedInfo.Title
		year = f.ParsedInfo.Year
		season = f.ParsedInfo.Season
		episode = f.ParsedInfo.Episode
	}
	return r.db.QueryRow(`
		INSERT INTO scanned_files (library_id, scan_id, path, name, extension, media_type,
		       size, modified_time, created_time, checksum,
		       parsed_title, parsed_year, parsed_season, parsed_episode, discovered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (library_id, path) DO UPDATE SET
		       scan_id=$2, name=$4, extension=$5, media_type=$6,
		       size=$7, modified_time=$8, created_time=$9, checksum=$10,
		       parsed_title=$11, parsed_year=$12, parsed_season=$13, parsed_episode=$14
		RETURNING id`,
		f.LibraryID, f.ScanID, f.Path, f.Name, f.Extension, f.MediaType,
		f.Metadata.Size, nullTime(f.Metadata.ModifiedTime), nullTime(f.Metadata.CreatedTime),
		f.Metadata.Checksum, title, year, season, episode, f.DiscoveredAt,
	).Scan(&f.ID)
}

// UpsertBatch persists a scan's files in one transaction.
func (r *FileRepository) UpsertBatch(files []models.ScannedFile) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range files {
		f := &files[i]
		var title string
		var year, season, episode *int
		if f.ParsedInfo != nil {
			title = f.ParsedInfo.Title
			year = f.ParsedInfo.Year
			season = f.ParsedInfo.Season
			episode = f.ParsedInfo.Episode
		}
		err := tx.QueryRow(`
			INSERT INTO scanned_files (library_id, scan_id, path, name, extension, media_type,
			       size, modified_time, created_time, checksum,
			       parsed_title, parsed_year, parsed_season, parsed_episode, discovered_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (library_id, path) DO UPDATE SET
			       scan_id=$2, name=$4, extension=$5, media_type=$6,
			       size=$7, modified_time=$8, created_time=$9, checksum=$10,
			       parsed_title=$11, parsed_year=$12, parsed_season=$13, parsed_episode=$14
			RETURNING id`,
			f.LibraryID, f.ScanID, f.Path, f.Name, f.Extension, f.MediaType,
			f.Metadata.Size, nullTime(f.Metadata.ModifiedTime), nullTime(f.Metadata.CreatedTime),
			f.Metadata.Checksum, title, year, season, episode, f.DiscoveredAt,
		).Scan(&f.ID)
		if err != nil {
			return fmt.Errorf("failed to upsert %s: %w", f.Path, err)
		}
	}
	return tx.Commit()
}

// GetAssignment loads a file together with its match state and linked
// media record, ready for the organizer.
func (r *FileRepository) GetAssignment(fileID uuid.UUID) (*models.FileAssignment, error) {
	row := r.db.QueryRow(`
		SELECT f.id, f.library_id, f.scan_id, f.path, f.name, f.extension, f.media_type,
		       f.size, f.modified_time, f.created_time, f.checksum,
		       f.parsed_title, f.parsed_year, f.parsed_season, f.parsed_episode,
		       f.assignment_status, f.match_status, f.match_confidence, f.media_id,
		       f.season_number, f.episode_number, f.discovered_at,
		       m.id, m.external_id, m.source, m.title, m.year, m.media_type, m.poster_url, m.total_seasons
		FROM scanned_files f
		LEFT JOIN media_records m ON m.id = f.media_id
		WHERE f.id=$1`, fileID)

	f := &models.ScannedFile{}
	a := &models.FileAssignment{}
	var title sql.NullString
	var year, season, episode sql.NullInt64
	var modified, created sql.NullTime
	var checksum string
	var mediaID *uuid.UUID
	var seasonNum, episodeNum sql.NullInt64
	var mID, mExternal, mSource, mTitle, mType, mPoster sql.NullString
	var mYear, mSeasons sql.NullInt64

	err := row.Scan(&f.ID, &f.LibraryID, &f.ScanID, &f.Path, &f.Name, &f.Extension, &f.MediaType,
		&f.Metadata.Size, &modified, &created, &checksum,
		&title, &year, &season, &episode,
		&a.Status, &a.MatchStatus, &a.Confidence, &mediaID,
		&seasonNum, &episodeNum, &f.DiscoveredAt,
		&mID, &mExternal, &mSource, &mTitle, &mYear, &mType, &mPoster, &mSeasons)
	if err != nil {
		return nil, fmt.Errorf("assignment not found: %w", err)
	}
	if modified.Valid {
		f.Metadata.ModifiedTime = modified.Time
	}
	if created.Valid {
		f.Metadata.CreatedTime = created.Time
	}
	f.Metadata.Checksum = checksum
	if title.Valid && title.String != "" {
		f.ParsedInfo = &models.ParsedInfo{
			Title:   title.String,
			Year:    nullableInt(year),
			Season:  nullableInt(season),
			Episode: nullableInt(episode),
			Type:    f.MediaType,
		}
	}
	a.File = *f
	a.SeasonNumber = nullableInt(seasonNum)
	a.EpisodeNumber = nullableInt(episodeNum)
	if mID.Valid {
		rec := &models.MediaRecord{
			ID:           mID.String,
			ExternalID:   mExternal.String,
			Source:       mSource.String,
			Title:        mTitle.String,
			Year:         nullableInt(mYear),
			Type:         models.MediaType(mType.String),
			PosterURL:    mPoster.String,
			TotalSeasons: nullableInt(mSeasons),
		}
		a.MediaData = rec
		a.AssignmentType = rec.Type
		if f.MediaType == models.MediaTypeEpisode {
			a.SeriesData = rec
			a.AssignmentType = models.MediaTypeEpisode
		}
	}
	return a, nil
}

func (r *FileRepository) GetByID(id uuid.UUID) (*models.ScannedFile, error) {
	row := r.db.QueryRow(`SELECT `+fileColumns+` FROM scanned_files WHERE id=$1`, id)
	f, err := scanFile(row)
	if err != nil {
		return nil, fmt.Errorf("file not found: %w", err)
	}
	return f, nil
}

func (r *FileRepository) ListByLibrary(libraryID uuid.UUID) ([]models.ScannedFile, error) {
	rows, err := r.db.Query(`SELECT `+fileColumns+` FROM scanned_files WHERE library_id=$1 ORDER BY path`, libraryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScannedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// ListByMatchStatus returns files awaiting matching or review.
// ListUnmatched returns a library's files still awaiting an automatic match.
func (r *FileRepository) ListUnmatched(libraryID uuid.UUID) ([]models.ScannedFile, error) {
	rows, err := r.db.Query(`SELECT `+fileColumns+` FROM scanned_files
		WHERE library_id=$1 AND match_status=$2 ORDER BY path`, libraryID, models.MatchStatusUnmatched)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.ScannedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

func (r *FileRepository) ListByMatchStatus(status models.MatchStatus) ([]models.ScannedFile, error) {
	rows, err := r.db.Query(`SELECT `+fileColumns+` FROM scanned_files WHERE match_status=$1 ORDER BY discovered_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScannedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// UpdateMatch stores a match outcome for a file.
func (r *FileRepository) UpdateMatch(fileID uuid.UUID, status models.MatchStatus, confidence float64, mediaID *uuid.UUID, season, episode *int) error {
	_, err := r.db.Exec(`
		UPDATE scanned_files SET match_status=$2, match_confidence=$3, media_id=$4,
		       season_number=$5, episode_number=$6,
		       assignment_status=CASE WHEN $2='matched' THEN 'matched' ELSE assignment_status END
		WHERE id=$1`,
		fileID, status, confidence, mediaID, season, episode)
	return err
}

// UpdateLocation records the post-organize path and name and advances
// the assignment status.
func (r *FileRepository) UpdateLocation(fileID uuid.UUID, newPath, newName string, status models.AssignmentStatus) error {
	_, err := r.db.Exec(`
		UPDATE scanned_files SET path=$2, name=$3, assignment_status=$4 WHERE id=$1`,
		fileID, newPath, newName, status)
	return err
}

func (r *FileRepository) Delete(id uuid.UUID) error {
	_, err := r.db.Exec("DELETE FROM scanned_files WHERE id=$1", id)
	return err
}

// DeleteMissing removes entries of a library whose path was not seen by
// the given scan. Used after a completed full scan.
func (r *FileRepository) DeleteMissing(libraryID, scanID uuid.UUID) (int64, error) {
	res, err := r.db.Exec(`
		DELETE FROM scanned_files WHERE library_id=$1 AND scan_id <> $2`, libraryID, scanID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row rowScanner) (*models.ScannedFile, error) {
	f := &models.ScannedFile{}
	var title sql.NullString
	var year, season, episode sql.NullInt64
	var modified, created sql.NullTime
	var checksum string
	var assignStatus, matchStatus string
	var confidence float64
	var mediaID *uuid.UUID
	var seasonNum, episodeNum sql.NullInt64

	err := row.Scan(&f.ID, &f.LibraryID, &f.ScanID, &f.Path, &f.Name, &f.Extension, &f.MediaType,
		&f.Metadata.Size, &modified, &created, &checksum,
		&title, &year, &season, &episode,
		&assignStatus, &matchStatus, &confidence, &mediaID,
		&seasonNum, &episodeNum, &f.DiscoveredAt)
	if err != nil {
		return nil, err
	}
	if modified.Valid {
		f.Metadata.ModifiedTime = modified.Time
	}
	if created.Valid {
		f.Metadata.CreatedTime = created.Time
	}
	f.Metadata.Checksum = checksum
	if title.Valid && title.String != "" {
		f.ParsedInfo = &models.ParsedInfo{
			Title:   title.String,
			Year:    nullableInt(year),
			Season:  nullableInt(season),
			Episode: nullableInt(episode),
			Type:    f.MediaType,
		}
	}
	return f, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
