package scanner

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/mediashelf/mediashelf/internal/models"
)

// ──────────────────── Compiled Regex (init once) ────────────────────

// Year extraction: requires delimiters to avoid false matches on episode
// numbers. Matches (2020) [2020] .2020. -2020- _2020_
var yearRx = regexp.MustCompile(`(?:[\(\[\.\-_,\s])([12]\d{3})(?:[\)\]\.\-_,+\s]|$)`)
var yearInParensRx = regexp.MustCompile(`[\(\[]([12]\d{3})[\)\]]`)

// Strict pattern for well-named episode files: "Name - SxxExx"
var strictEpisodePattern = regexp.MustCompile(`(?i)^(.+?)\s+-\s+S(\d{1,3})E(\d{1,3})\s*$`)

// Fallback episode patterns, most specific first.
var sxxExxPattern = regexp.MustCompile(`(?i)(?:^|[/\\._ -])S(\d{1,4})\s*E(\d{1,4})`)
var nxMPattern = regexp.MustCompile(`(?i)(?:^|[/\\._ -])(\d{1,2})[xX](\d{1,3})`)
var verboseEpisodePattern = regexp.MustCompile(`(?i)[Ss](?:eason)?\s*(\d{1,4})\s*[Ee](?:pisode)?\s*(\d{1,4})`)

var spacesRx = regexp.MustCompile(`\s+`)
var trailingYearRx = regexp.MustCompile(`\s*[\(\[]\d{4}[\)\]]\s*$`)

// garbageTokens are release-name junk stripped from fallback titles.
var garbageTokens = buildTokenSet(
	[]string{"x264", "x265", "h264", "h265", "hevc", "avc", "divx", "xvid", "10bit", "8bit"},
	[]string{"aac", "ac3", "dts", "truehd", "atmos", "flac", "eac3", "dd5.1", "5.1", "7.1"},
	[]string{"480p", "576p", "720p", "1080p", "1080i", "2160p", "4k", "uhd", "hd", "sd"},
	[]string{"bluray", "blu-ray", "bdrip", "brrip", "bdremux", "hdrip", "dvd", "dvdrip",
		"webrip", "web-dl", "webdl", "web", "hdtv", "pdtv", "cam", "remux"},
	[]string{"proper", "repack", "internal", "limited", "extended", "unrated", "remastered",
		"multi", "subbed", "dubbed", "subs"},
	[]string{"mkv", "mp4", "avi"},
)

// ──────────────────── Parser ────────────────────

// ParseFilename extracts a title and, where present, year, season and
// episode from a media filename. Episode markers are checked before years
// so "Show S01E05 (2019)" classifies as an episode. The function is pure;
// identical input always yields identical output.
func ParseFilename(filename string) models.ParsedInfo {
	ext := filepath.Ext(filename)
	baseName := strings.TrimSpace(strings.TrimSuffix(filepath.Base(filename), ext))

	result := models.ParsedInfo{Type: models.MediaTypeUnknown}
	if baseName == "" {
		return result
	}

	// Strict episode form first.
	if m := strictEpisodePattern.FindStringSubmatch(baseName); len(m) >= 4 {
		season, _ := strconv.Atoi(m[2])
		episode, _ := strconv.Atoi(m[3])
		result.Title = cleanTitle(m[1])
		result.Season = &season
		result.Episode = &episode
		result.Type = models.MediaTypeEpisode
		result.Year = yearBefore(baseName, -1)
		return result
	}

	// Fallback episode patterns on a delimiter-normalized copy.
	normalized := strings.ReplaceAll(baseName, "_", " ")
	if season, episode, pos, ok := extractEpisodeInfo(normalized); ok {
		result.Season = &season
		result.Episode = &episode
		result.Type = models.MediaTypeEpisode
		if pos > 0 {
			result.Title = cleanTitle(normalized[:pos])
		}
		if result.Title == "" {
			result.Title = cleanTitle(normalized)
		}
		result.Year = yearBefore(normalized, pos)
		return result
	}

	// Year present means movie; everything before the year is the title.
	if m := yearInParensRx.FindStringSubmatchIndex(baseName); m != nil {
		if y := parseYear(baseName[m[2]:m[3]]); y != nil {
			result.Year = y
			result.Title = cleanTitle(baseName[:m[0]])
			result.Type = models.MediaTypeMovie
			if result.Title == "" {
				result.Title = cleanTitle(baseName)
			}
			return result
		}
	}
	if m := yearRx.FindStringSubmatchIndex(baseName); m != nil {
		if y := parseYear(baseName[m[2]:m[3]]); y != nil {
			result.Year = y
			result.Title = cleanTitle(baseName[:m[2]])
			result.Type = models.MediaTypeMovie
			if result.Title == "" {
				result.Title = cleanTitle(baseName)
			}
			return result
		}
	}

	// No structure recognized; the whole cleaned base name is the title
	// and the type defaults to movie.
	result.Title = cleanTitle(baseName)
	result.Type = models.MediaTypeMovie
	return result
}

// extractEpisodeInfo tries the episode patterns in order and reports the
// byte offset where the match starts, for title extraction.
func extractEpisodeInfo(name string) (season, episode, matchPos int, ok bool) {
	for _, rx := range []*regexp.Regexp{sxxExxPattern, nxMPattern, verboseEpisodePattern} {
		if m := rx.FindStringSubmatchIndex(name); m != nil {
			season, _ = strconv.Atoi(name[m[2]:m[3]])
			episode, _ = strconv.Atoi(name[m[4]:m[5]])
			return season, episode, m[0], true
		}
	}
	return 0, 0, -1, false
}

// yearBefore extracts a year near an episode marker: first from the text
// before pos, then anywhere in the name. Episode files may carry the
// series year on either side of the marker.
func yearBefore(name string, pos int) *int {
	if pos > 0 {
		if m := yearInParensRx.FindStringSubmatch(name[:pos]); len(m) >= 2 {
			if y := parseYear(m[1]); y != nil {
				return y
			}
		}
	}
	if m := yearInParensRx.FindStringSubmatch(name); len(m) >= 2 {
		return parseYear(m[1])
	}
	return nil
}

func parseYear(s string) *int {
	y, err := strconv.Atoi(s)
	if err != nil || y < 1900 || y > 2100 {
		return nil
	}
	return &y
}

// cleanTitle normalizes separators to spaces, strips release junk tokens
// and trailing year markers, and collapses whitespace.
func cleanTitle(s string) string {
	s = trailingYearRx.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ".", " ")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	var kept []string
	for _, tok := range strings.Fields(s) {
		t := strings.Trim(tok, "-–()[]{}+,;")
		if t == "" {
			continue
		}
		if garbageTokens[strings.ToLower(t)] && len(kept) > 0 {
			break
		}
		kept = append(kept, t)
	}
	out := strings.Join(kept, " ")
	out = strings.TrimRight(out, " -–")
	return spacesRx.ReplaceAllString(strings.TrimSpace(out), " ")
}

func buildTokenSet(slices ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, sl := range slices {
		for _, s := range sl {
			set[strings.ToLower(s)] = true
		}
	}
	return set
}
