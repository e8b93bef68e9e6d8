// Package matcher scores scanned files against catalogue records and
// produces confidence-ranked assignment suggestions.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/mediashelf/mediashelf/internal/metadata"
	"github.com/mediashelf/mediashelf/internal/models"
)

const (
	titleWeight = 70

	movieYearExactBonus = 30
	movieYearCloseBonus = 15

	seriesYearExactBonus = 20
	seriesYearCloseBonus = 10
	seriesSeasonBonus    = 10

	// Lookup candidates missing a year (or matched against a parse
	// without one) still earn a flat partial-year bonus.
	lookupYearPartialBonus = 10

	maxSuggestions = 5
)

const (
	sourceLocal  = "local"
	sourceLookup = "lookup"
)

// Options configures a Matcher.
type Options struct {
	// Threshold is the minimum confidence (0-100) for an automatic match.
	Threshold float64
	// ReviewFloor is the confidence at or above which the best candidate
	// is held for manual review instead of being discarded.
	ReviewFloor float64
	// Concurrency bounds MatchBatch workers.
	Concurrency int
}

// Matcher scores files against local records first and falls back to the
// external lookup when the local catalogue has no confident candidate.
// A nil lookup disables the fallback.
type Matcher struct {
	lookup metadata.Lookup
	opts   Options
}

func New(lookup metadata.Lookup, opts Options) *Matcher {
	if opts.Threshold <= 0 {
		opts.Threshold = 80
	}
	if opts.ReviewFloor <= 0 {
		opts.ReviewFloor = opts.Threshold * 0.6
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Matcher{lookup: lookup, opts: opts}
}

// ScoreMovie scores a movie candidate against parsed file info. The
// result is bounded to [0, 100].
func ScoreMovie(parsed models.ParsedInfo, candidate models.MediaRecord) float64 {
	score := titleWeight * Similarity(parsed.Title, candidate.Title)
	score += yearBonus(parsed.Year, candidate.Year, movieYearExactBonus, movieYearCloseBonus, 1)
	return clamp(score)
}

// ScoreSeries scores a series candidate against parsed episode info.
func ScoreSeries(parsed models.ParsedInfo, candidate models.MediaRecord) float64 {
	score := titleWeight * Similarity(parsed.Title, candidate.Title)
	score += yearBonus(parsed.Year, candidate.Year, seriesYearExactBonus, seriesYearCloseBonus, 2)
	if parsed.Season != nil && candidate.TotalSeasons != nil && *parsed.Season <= *candidate.TotalSeasons {
		score += seriesSeasonBonus
	}
	return clamp(score)
}

// Match scores one file against the local candidates, falling back to
// the external lookup when no local candidate reaches the threshold.
// Lookup failures degrade the match to local-only and are recorded on
// the assignment rather than failing it.
func (m *Matcher) Match(ctx context.Context, file models.ScannedFile, local []models.MediaRecord) models.FileAssignment {
	assignment := models.FileAssignment{
		File:        file,
		Status:      models.AssignmentUnassigned,
		MatchStatus: models.MatchStatusUnmatched,
	}

	parsed := models.ParsedInfo{}
	if file.ParsedInfo != nil {
		parsed = *file.ParsedInfo
	}
	if parsed.Title == "" {
		assignment.Error = "no title parsed from filename"
		return assignment
	}
	isSeries := parsed.Type == models.MediaTypeEpisode

	suggestions := m.scoreAll(parsed, isSeries, sourceLocal, local)

	needLookup := m.lookup != nil
	if len(suggestions) > 0 && suggestions[0].Confidence >= m.opts.Threshold {
		needLookup = false
	}
	if needLookup {
		lookupType := models.MediaTypeMovie
		if isSeries {
			lookupType = models.MediaTypeSeries
		}
		records, err := m.lookup.Search(ctx, parsed.Title, parsed.Year, lookupType)
		switch {
		case errors.Is(err, metadata.ErrNoResults):
			// An empty catalogue answer is not a lookup failure.
		case err != nil:
			log.Printf("Auto-match: lookup failed for %q: %v", parsed.Title, err)
			assignment.Error = fmt.Sprintf("lookup failed: %v", err)
		default:
			suggestions = append(suggestions, m.scoreAll(parsed, isSeries, sourceLookup, records)...)
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	assignment.Suggestions = suggestions

	if len(suggestions) == 0 {
		return assignment
	}

	best := suggestions[0]
	assignment.Confidence = best.Confidence
	switch {
	case best.Confidence >= m.opts.Threshold:
		assignment.MatchStatus = models.MatchStatusMatched
		assignment.Status = models.AssignmentMatched
		assignment.MediaData = recordPtr(best.Data)
		assignment.AssignmentType = best.Data.Type
		if isSeries {
			assignment.SeriesData = recordPtr(best.Data)
			assignment.SeasonNumber = parsed.Season
			assignment.EpisodeNumber = parsed.Episode
			assignment.AssignmentType = models.MediaTypeEpisode
		}
	case best.Confidence >= m.opts.ReviewFloor:
		assignment.MatchStatus = models.MatchStatusManualReview
	}
	return assignment
}

// ConfirmManual applies a user-chosen record to a file at full confidence.
func (m *Matcher) ConfirmManual(file models.ScannedFile, record models.MediaRecord) models.FileAssignment {
	assignment := models.FileAssignment{
		File:           file,
		Status:         models.AssignmentMatched,
		MatchStatus:    models.MatchStatusMatched,
		AssignmentType: record.Type,
		Confidence:     100,
		MediaData:      recordPtr(record),
	}
	if file.ParsedInfo != nil && file.ParsedInfo.Type == models.MediaTypeEpisode {
		assignment.SeriesData = recordPtr(record)
		assignment.SeasonNumber = file.ParsedInfo.Season
		assignment.EpisodeNumber = file.ParsedInfo.Episode
		assignment.AssignmentType = models.MediaTypeEpisode
	}
	return assignment
}

// MatchBatch matches files with bounded concurrency, preserving input
// order in the result.
func (m *Matcher) MatchBatch(ctx context.Context, files []models.ScannedFile, local []models.MediaRecord) []models.FileAssignment {
	out := make([]models.FileAssignment, len(files))
	sem := make(chan struct{}, m.opts.Concurrency)
	var wg sync.WaitGroup
	for i := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = m.Match(ctx, files[i], local)
		}(i)
	}
	wg.Wait()
	return out
}

func (m *Matcher) scoreAll(parsed models.ParsedInfo, isSeries bool, source string, records []models.MediaRecord) []models.MatchSuggestion {
	var out []models.MatchSuggestion
	for _, rec := range records {
		var score float64
		if isSeries {
			if rec.Type == models.MediaTypeMovie {
				continue
			}
			score = ScoreSeries(parsed, rec)
		} else {
			if rec.Type == models.MediaTypeSeries {
				continue
			}
			score = ScoreMovie(parsed, rec)
		}
		if source == sourceLookup && oneSidedYear(parsed.Year, rec.Year) {
			score = clamp(score + lookupYearPartialBonus)
		}
		if score <= 0 {
			continue
		}
		out = append(out, models.MatchSuggestion{
			Source:      source,
			Data:        rec,
			Confidence:  score,
			MatchReason: matchReason(parsed, rec),
		})
	}
	return out
}

// oneSidedYear reports whether exactly one of the two years is known.
func oneSidedYear(a, b *int) bool {
	return (a == nil) != (b == nil)
}

func yearBonus(parsed, candidate *int, exact, close float64, window int) float64 {
	if parsed == nil || candidate == nil {
		return 0
	}
	diff := *parsed - *candidate
	if diff < 0 {
		diff = -diff
	}
	if diff == 0 {
		return exact
	}
	if diff <= window {
		return close
	}
	return 0
}

func matchReason(parsed models.ParsedInfo, rec models.MediaRecord) string {
	if parsed.Year != nil && rec.Year != nil && *parsed.Year == *rec.Year {
		return "title and year"
	}
	return "title"
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func recordPtr(r models.MediaRecord) *models.MediaRecord { return &r }
