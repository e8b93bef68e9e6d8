// Package reconcile compares freshly scanned entries against the known
// inventory and separates genuinely new entries from duplicates, with a
// field-level diff for every path seen before.
package reconcile

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mediashelf/mediashelf/internal/models"
)

// Key identifies an entry across scans. Two files are the same entry
// when they share both the library root and the path inside it.
func Key(libraryPath, path string) string {
	return libraryPath + ":" + path
}

// Files partitions scanned files into new ones and duplicates of the
// existing inventory. Every known path is reported as a duplicate even
// when nothing changed; an unchanged entry simply carries no diffs.
// The comparison is pure and idempotent.
func Files(scanned []models.ScannedFile, existing []models.ScannedFile) ([]models.ScannedFile, []models.DuplicateEntry) {
	known := make(map[string]models.ScannedFile, len(existing))
	for _, f := range existing {
		known[Key(f.LibraryPath, f.Path)] = f
	}

	var fresh []models.ScannedFile
	var dupes []models.DuplicateEntry
	for _, f := range scanned {
		prev, ok := known[Key(f.LibraryPath, f.Path)]
		if !ok {
			fresh = append(fresh, f)
			continue
		}
		dupes = append(dupes, models.DuplicateEntry{
			Path:        f.Path,
			Type:        "file",
			Differences: diffFiles(prev, f),
		})
	}
	return fresh, dupes
}

// Directories partitions scanned directories the same way Files does.
func Directories(scanned []models.ScannedDirectory, existing []models.ScannedDirectory) ([]models.ScannedDirectory, []models.DuplicateEntry) {
	known := make(map[string]models.ScannedDirectory, len(existing))
	for _, d := range existing {
		known[Key(d.LibraryPath, d.Path)] = d
	}

	var fresh []models.ScannedDirectory
	var dupes []models.DuplicateEntry
	for _, d := range scanned {
		prev, ok := known[Key(d.LibraryPath, d.Path)]
		if !ok {
			fresh = append(fresh, d)
			continue
		}
		var diffs []models.FieldDiff
		diffs = appendTimeDiff(diffs, "modified_time", prev.Metadata.ModifiedTime, d.Metadata.ModifiedTime)
		dupes = append(dupes, models.DuplicateEntry{
			Path:        d.Path,
			Type:        "directory",
			Differences: diffs,
		})
	}
	return fresh, dupes
}

// Report builds the duplicate report for a finished scan.
func Report(totalScanned int, fresh int, dupes []models.DuplicateEntry) *models.DuplicateReport {
	return &models.DuplicateReport{
		TotalScanned: totalScanned,
		NewFiles:     fresh,
		Duplicates:   dupes,
	}
}

func diffFiles(prev, next models.ScannedFile) []models.FieldDiff {
	var diffs []models.FieldDiff
	if prev.Metadata.Size != next.Metadata.Size {
		diffs = append(diffs, models.FieldDiff{
			Field:        "size",
			CurrentValue: strconv.FormatInt(prev.Metadata.Size, 10),
			NewValue:     strconv.FormatInt(next.Metadata.Size, 10),
		})
	}
	diffs = appendTimeDiff(diffs, "modified_time", prev.Metadata.ModifiedTime, next.Metadata.ModifiedTime)
	if prev.MediaType != next.MediaType {
		diffs = append(diffs, models.FieldDiff{
			Field:        "media_type",
			CurrentValue: string(prev.MediaType),
			NewValue:     string(next.MediaType),
		})
	}
	diffs = appendParsedDiffs(diffs, prev.ParsedInfo, next.ParsedInfo)
	return diffs
}

func appendParsedDiffs(diffs []models.FieldDiff, prev, next *models.ParsedInfo) []models.FieldDiff {
	var p, n models.ParsedInfo
	if prev != nil {
		p = *prev
	}
	if next != nil {
		n = *next
	}
	if p.Title != n.Title {
		diffs = append(diffs, models.FieldDiff{Field: "parsed_title", CurrentValue: p.Title, NewValue: n.Title})
	}
	if !intPtrEqual(p.Year, n.Year) {
		diffs = append(diffs, models.FieldDiff{Field: "parsed_year", CurrentValue: fmtIntPtr(p.Year), NewValue: fmtIntPtr(n.Year)})
	}
	if !intPtrEqual(p.Season, n.Season) {
		diffs = append(diffs, models.FieldDiff{Field: "parsed_season", CurrentValue: fmtIntPtr(p.Season), NewValue: fmtIntPtr(n.Season)})
	}
	if !intPtrEqual(p.Episode, n.Episode) {
		diffs = append(diffs, models.FieldDiff{Field: "parsed_episode", CurrentValue: fmtIntPtr(p.Episode), NewValue: fmtIntPtr(n.Episode)})
	}
	return diffs
}

func appendTimeDiff(diffs []models.FieldDiff, field string, prev, next time.Time) []models.FieldDiff {
	if prev.Equal(next) {
		return diffs
	}
	return append(diffs, models.FieldDiff{
		Field:        field,
		CurrentValue: prev.UTC().Format(time.RFC3339),
		NewValue:     next.UTC().Format(time.RFC3339),
	})
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fmtIntPtr(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d", *p)
}
