package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type MediaType string

const (
	MediaTypeMixed   MediaType = "mixed"
	MediaTypeMovies  MediaType = "movies"
	MediaTypeSeries  MediaType = "series"
	MediaTypeMovie   MediaType = "movie"
	MediaTypeEpisode MediaType = "episode"
	MediaTypeSeason  MediaType = "season"
	MediaTypeUnknown MediaType = "unknown"
)

func (t MediaType) Valid() bool {
	switch t {
	case MediaTypeMixed, MediaTypeMovies, MediaTypeSeries:
		return true
	}
	return false
}

type ScanStatus string

const (
	ScanStatusQueued    ScanStatus = "queued"
	ScanStatusScanning  ScanStatus = "scanning"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusError     ScanStatus = "error"
	ScanStatusCancelled ScanStatus = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s ScanStatus) Terminal() bool {
	switch s {
	case ScanStatusCompleted, ScanStatusError, ScanStatusCancelled:
		return true
	}
	return false
}

type AssignmentStatus string

const (
	AssignmentUnassigned AssignmentStatus = "unassigned"
	AssignmentSearching  AssignmentStatus = "searching"
	AssignmentMatched    AssignmentStatus = "matched"
	AssignmentAssigned   AssignmentStatus = "assigned"
	AssignmentRenamed    AssignmentStatus = "renamed"
	AssignmentMoved      AssignmentStatus = "moved"
	AssignmentCompleted  AssignmentStatus = "completed"
)

type MatchStatus string

const (
	MatchStatusMatched      MatchStatus = "matched"
	MatchStatusManualReview MatchStatus = "manual_review"
	MatchStatusUnmatched    MatchStatus = "unmatched"
)

// ──────────────────── Errors ────────────────────

// ErrorKind classifies a recorded failure so callers can react per-kind
// instead of string-matching messages.
type ErrorKind string

const (
	ErrFileAccess         ErrorKind = "file_access"
	ErrParse              ErrorKind = "parse_error"
	ErrMetadataExtraction ErrorKind = "metadata_extraction"
	ErrDatabase           ErrorKind = "database_error"
	ErrLookup             ErrorKind = "lookup_error"
	ErrValidation         ErrorKind = "validation_error"
	ErrOperation          ErrorKind = "operation_error"
)

// ScanError is one recorded failure from a scan or batch operation.
type ScanError struct {
	Type      ErrorKind `json:"type"`
	Message   string    `json:"message"`
	Path      string    `json:"path,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ──────────────────── Library ────────────────────

type LibraryPath struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	RootPath    string    `json:"root_path"`
	MediaType   MediaType `json:"media_type"`
	IsActive    bool      `json:"is_active"`
	WatchFolder bool      `json:"watch_folder"`
	// ScanInterval is minutes between scheduled scans; 0 disables scheduling.
	ScanInterval int        `json:"scan_interval"`
	CreatedAt    time.Time  `json:"created_at"`
	LastScanned  *time.Time `json:"last_scanned,omitempty"`
}

// ──────────────────── Scan Results ────────────────────

// ParsedInfo is the filename parser's output attached to a scanned file.
type ParsedInfo struct {
	Title   string    `json:"title"`
	Year    *int      `json:"year,omitempty"`
	Season  *int      `json:"season,omitempty"`
	Episode *int      `json:"episode,omitempty"`
	Type    MediaType `json:"type"`
}

// FileMetadata is the filesystem-level metadata for a scanned entry.
type FileMetadata struct {
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modified_time"`
	CreatedTime  time.Time `json:"created_time,omitempty"`
	Checksum     string    `json:"checksum,omitempty"`
}

// ScannedFile is one media file discovered during a scan.
type ScannedFile struct {
	ID           uuid.UUID    `json:"id"`
	LibraryID    uuid.UUID    `json:"library_id"`
	LibraryPath  string       `json:"library_path"`
	ScanID       uuid.UUID    `json:"scan_id"`
	Path         string       `json:"path"`
	Name         string       `json:"name"`
	Extension    string       `json:"extension"`
	MediaType    MediaType    `json:"media_type"`
	Metadata     FileMetadata `json:"metadata"`
	ParsedInfo   *ParsedInfo  `json:"parsed_info,omitempty"`
	DiscoveredAt time.Time    `json:"discovered_at"`
}

// ScannedDirectory is one directory discovered during a scan.
type ScannedDirectory struct {
	ID           uuid.UUID    `json:"id"`
	LibraryID    uuid.UUID    `json:"library_id"`
	LibraryPath  string       `json:"library_path"`
	ScanID       uuid.UUID    `json:"scan_id"`
	Path         string       `json:"path"`
	Name         string       `json:"name"`
	MediaType    MediaType    `json:"media_type"`
	Metadata     FileMetadata `json:"metadata"`
	DiscoveredAt time.Time    `json:"discovered_at"`
}

// ScanProgress is a point-in-time snapshot of a running scan.
type ScanProgress struct {
	CurrentPath      string  `json:"current_path"`
	FoldersProcessed int     `json:"folders_processed"`
	FoldersTotal     int     `json:"folders_total"`
	FilesProcessed   int     `json:"files_processed"`
	FilesTotal       int     `json:"files_total"`
	Percentage       float64 `json:"percentage"`
}

// ScanResult is the terminal outcome of one scan job.
type ScanResult struct {
	ScanID      uuid.UUID          `json:"scan_id"`
	LibraryID   uuid.UUID          `json:"library_id"`
	LibraryPath string             `json:"library_path"`
	Status      ScanStatus         `json:"status"`
	Files       []ScannedFile      `json:"files"`
	Directories []ScannedDirectory `json:"directories"`
	TotalFiles  int                `json:"total_files"`
	TotalDirs   int                `json:"total_directories"`
	NewFiles    int                `json:"new_files"`
	Errors      []ScanError        `json:"errors"`
	Duplicates  *DuplicateReport   `json:"duplicate_report,omitempty"`
	StartTime   time.Time          `json:"start_time"`
	EndTime     *time.Time         `json:"end_time,omitempty"`
}

// ──────────────────── Duplicate Report ────────────────────

// FieldDiff records one field whose value changed between an existing
// inventory entry and a freshly scanned one.
type FieldDiff struct {
	Field        string `json:"field"`
	CurrentValue string `json:"currentValue"`
	NewValue     string `json:"newValue"`
}

// DuplicateEntry is one previously known path seen again by a scan.
// An empty Differences list means the entry is byte-for-byte unchanged;
// it is still reported so callers can show that nothing changed.
type DuplicateEntry struct {
	Path        string      `json:"path"`
	Type        string      `json:"type"` // "file" or "directory"
	Differences []FieldDiff `json:"differences"`
}

type DuplicateReport struct {
	TotalScanned int              `json:"totalScanned"`
	NewFiles     int              `json:"newFiles"`
	Duplicates   []DuplicateEntry `json:"duplicates"`
}

// ──────────────────── Matching ────────────────────

// MediaRecord is a catalog entry (local or external) a file can match against.
// Search results carry the identity fields only; FetchByID fills the rest.
type MediaRecord struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"external_id,omitempty"`
	Source       string    `json:"source,omitempty"` // "local" or the provider name
	Title        string    `json:"title"`
	Year         *int      `json:"year,omitempty"`
	Type         MediaType `json:"type"`
	PosterURL    string    `json:"poster_url,omitempty"`
	TotalSeasons *int      `json:"total_seasons,omitempty"`

	Rated     string   `json:"rated,omitempty"`
	Released  string   `json:"released,omitempty"`
	Runtime   string   `json:"runtime,omitempty"`
	Genres    []string `json:"genres,omitempty"`
	Directors []string `json:"directors,omitempty"`
	Writers   []string `json:"writers,omitempty"`
	Actors    []string `json:"actors,omitempty"`
	Plot      string   `json:"plot,omitempty"`
	Language  string   `json:"language,omitempty"`
	Country   string   `json:"country,omitempty"`
	Ratings   []Rating `json:"ratings,omitempty"`
}

// Rating is a single critic score attached to a media record.
type Rating struct {
	Source string `json:"source"`
	Value  string `json:"value"`
}

// MatchSuggestion is one scored candidate for a scanned file.
type MatchSuggestion struct {
	Source      string      `json:"source"` // "local" or "lookup"
	Data        MediaRecord `json:"data"`
	Confidence  float64     `json:"confidence"`
	MatchReason string      `json:"match_reason"`
}

// FileAssignment binds a scanned file to an identified media record plus a
// proposed destination name and path.
type FileAssignment struct {
	File           ScannedFile       `json:"file"`
	Status         AssignmentStatus  `json:"status"`
	MatchStatus    MatchStatus       `json:"match_status,omitempty"`
	AssignmentType MediaType         `json:"assignment_type,omitempty"`
	Confidence     float64           `json:"confidence"`
	Suggestions    []MatchSuggestion `json:"suggestions,omitempty"`
	MediaData      *MediaRecord      `json:"media_data,omitempty"`
	SeriesData     *MediaRecord      `json:"series_data,omitempty"`
	SeasonNumber   *int              `json:"season_number,omitempty"`
	EpisodeNumber  *int              `json:"episode_number,omitempty"`
	ProposedName   string            `json:"proposed_name,omitempty"`
	ProposedPath   string            `json:"proposed_path,omitempty"`
	Error          string            `json:"error,omitempty"`
}
