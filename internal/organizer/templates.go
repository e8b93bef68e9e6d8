package organizer

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/mediashelf/mediashelf/internal/fsops"
	"github.com/mediashelf/mediashelf/internal/models"
)

// CaseStyle controls how text placeholders are cased in generated names.
type CaseStyle string

const (
	CaseOriginal CaseStyle = "original"
	CaseTitle    CaseStyle = "title"
	CaseUpper    CaseStyle = "upper"
	CaseLower    CaseStyle = "lower"
)

// NamingFormat is the per-media-type file naming template set.
// Placeholders: {title} {year} {series} {season} {episode}.
type NamingFormat struct {
	Movie      string    `json:"movie"`
	Episode    string    `json:"episode"`
	Series     string    `json:"series"`
	Case       CaseStyle `json:"case"`
	SeasonPad  int       `json:"season_pad"`
	EpisodePad int       `json:"episode_pad"`
}

// FolderTemplate is the per-media-type folder layout under a library root.
type FolderTemplate struct {
	Movie   string `json:"movie"`
	Episode string `json:"episode"`
	Series  string `json:"series"`
}

// DefaultNamingFormat produces Jellyfin-recognizable file names.
func DefaultNamingFormat() NamingFormat {
	return NamingFormat{
		Movie:      "{title} ({year})",
		Episode:    "{series} S{season}E{episode} - {title}",
		Series:     "{title} ({year})",
		Case:       CaseOriginal,
		SeasonPad:  2,
		EpisodePad: 2,
	}
}

// DefaultFolderTemplate lays libraries out as Movies/ and TV Shows/ trees.
func DefaultFolderTemplate() FolderTemplate {
	return FolderTemplate{
		Movie:   "Movies/{title} ({year})",
		Episode: "TV Shows/{series} ({year})/Season {season}",
		Series:  "TV Shows/{title} ({year})",
	}
}

// GenerateFilename renders the assignment's canonical file name,
// including the original extension. The assignment must carry media
// data; episodes also need series data plus season and episode numbers.
func GenerateFilename(a models.FileAssignment, format NamingFormat) (string, error) {
	if err := requireMediaData(a); err != nil {
		return "", err
	}

	var name string
	switch a.AssignmentType {
	case models.MediaTypeEpisode:
		if a.SeasonNumber == nil || a.EpisodeNumber == nil {
			return "", fmt.Errorf("episode assignment missing season or episode number")
		}
		if a.SeriesData == nil {
			return "", fmt.Errorf("episode assignment missing series data")
		}
		series := a.SeriesData
		name = format.Episode
		name = strings.ReplaceAll(name, "{series}", applyCase(series.Title, format.Case))
		name = strings.ReplaceAll(name, "{season}", pad(*a.SeasonNumber, format.SeasonPad))
		name = strings.ReplaceAll(name, "{episode}", pad(*a.EpisodeNumber, format.EpisodePad))
		name = strings.ReplaceAll(name, "{title}", applyCase(episodeTitle(a), format.Case))
		name = strings.ReplaceAll(name, "{year}", yearString(series.Year))
	case models.MediaTypeSeries:
		name = fill(format.Series, a.MediaData, format.Case)
	default:
		name = fill(format.Movie, a.MediaData, format.Case)
	}

	// Sanitize up front so titles with reserved characters still produce
	// a usable name; ValidateName remains the final gate.
	name = fsops.SanitizeName(tidyName(name))
	if name == "" {
		return "", fmt.Errorf("template produced an empty name")
	}
	return name + strings.ToLower(filepath.Ext(a.File.Name)), nil
}

// GenerateFolderPath renders the destination folder for an assignment
// under libraryRoot. Separators are normalized to forward slashes.
func GenerateFolderPath(a models.FileAssignment, libraryRoot string, tmpl FolderTemplate) (string, error) {
	if err := requireMediaData(a); err != nil {
		return "", err
	}

	var rel string
	switch a.AssignmentType {
	case models.MediaTypeEpisode:
		if a.SeasonNumber == nil {
			return "", fmt.Errorf("episode assignment missing season number")
		}
		if a.SeriesData == nil {
			return "", fmt.Errorf("episode assignment missing series data")
		}
		series := a.SeriesData
		rel = tmpl.Episode
		rel = strings.ReplaceAll(rel, "{series}", fsops.SanitizeName(series.Title))
		rel = strings.ReplaceAll(rel, "{season}", fmt.Sprintf("%d", *a.SeasonNumber))
		rel = strings.ReplaceAll(rel, "{year}", yearString(series.Year))
	case models.MediaTypeSeries:
		rel = fillFolder(tmpl.Series, a.MediaData)
	default:
		rel = fillFolder(tmpl.Movie, a.MediaData)
	}

	joined := path.Join(filepath.ToSlash(libraryRoot), cleanSegments(rel))
	return joined, nil
}

func requireMediaData(a models.FileAssignment) error {
	if a.MediaData == nil {
		return fmt.Errorf("assignment for %s has no media data", a.File.Name)
	}
	if a.MediaData.Title == "" {
		return fmt.Errorf("assignment for %s has no title", a.File.Name)
	}
	return nil
}

func fill(tmpl string, rec *models.MediaRecord, cs CaseStyle) string {
	out := strings.ReplaceAll(tmpl, "{title}", applyCase(rec.Title, cs))
	out = strings.ReplaceAll(out, "{year}", yearString(rec.Year))
	return out
}

func fillFolder(tmpl string, rec *models.MediaRecord) string {
	out := strings.ReplaceAll(tmpl, "{title}", fsops.SanitizeName(rec.Title))
	out = strings.ReplaceAll(out, "{year}", yearString(rec.Year))
	return out
}

// episodeTitle is the per-episode title when known, else the parsed one.
func episodeTitle(a models.FileAssignment) string {
	if a.File.ParsedInfo != nil && a.File.ParsedInfo.Title != "" {
		return a.File.ParsedInfo.Title
	}
	return a.MediaData.Title
}

func applyCase(s string, cs CaseStyle) string {
	switch cs {
	case CaseUpper:
		return strings.ToUpper(s)
	case CaseLower:
		return strings.ToLower(s)
	case CaseTitle:
		return titleCase(s)
	default:
		return s
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func pad(n, width int) string {
	if width <= 0 {
		width = 2
	}
	return fmt.Sprintf("%0*d", width, n)
}

func yearString(y *int) string {
	if y == nil {
		return ""
	}
	return fmt.Sprintf("%d", *y)
}

// tidyName collapses whitespace and drops artifacts of empty
// placeholders such as trailing "()".
func tidyName(s string) string {
	s = strings.ReplaceAll(s, "()", "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(strings.TrimSpace(s), "-. ")
}

func cleanSegments(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	var out []string
	for _, p := range parts {
		p = tidyName(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}
