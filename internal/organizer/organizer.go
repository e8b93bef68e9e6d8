// Package organizer turns matched assignments into canonical names and
// destinations and executes batched rename/move operations through the
// filesystem gateway.
package organizer

import (
	"context"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mediashelf/mediashelf/internal/fsops"
	"github.com/mediashelf/mediashelf/internal/models"
)

// Operation selects what a batch does with each assignment.
type Operation string

const (
	OpRename   Operation = "rename"
	OpMove     Operation = "move"
	OpAssign   Operation = "assign"   // rename then move
	OpComplete Operation = "complete" // assign and mark completed
)

// batchConcurrency bounds parallel item execution when continueOnError
// permits parallelism.
const batchConcurrency = 4

// BatchOperation is one user-triggered batch over a set of assignments.
type BatchOperation struct {
	Files           []models.FileAssignment `json:"files"`
	Operation       Operation               `json:"operation"`
	LibraryRoot     string                  `json:"library_root"`
	DryRun          bool                    `json:"dry_run"`
	ContinueOnError bool                    `json:"continue_on_error"`
	CreateFolders   bool                    `json:"create_folders"`

	Results []ItemResult  `json:"results,omitempty"`
	Summary *BatchSummary `json:"summary,omitempty"`
}

// ItemResult records the outcome for a single assignment.
type ItemResult struct {
	Path    string `json:"path"`
	NewPath string `json:"new_path,omitempty"`
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchSummary aggregates a finished batch.
type BatchSummary struct {
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Errors     []string  `json:"errors,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	DurationMS int64     `json:"duration_ms"`
}

// Organizer executes assignment batches. Filesystem access goes solely
// through the gateway so dry runs and tests never touch disk.
type Organizer struct {
	fs      fsops.Gateway
	naming  NamingFormat
	folders FolderTemplate
}

func New(fs fsops.Gateway, naming NamingFormat, folders FolderTemplate) *Organizer {
	return &Organizer{fs: fs, naming: naming, folders: folders}
}

// Prepare fills ProposedName and ProposedPath on an assignment without
// touching the filesystem.
func (o *Organizer) Prepare(a models.FileAssignment, libraryRoot string) (models.FileAssignment, error) {
	name, err := GenerateFilename(a, o.naming)
	if err != nil {
		return a, err
	}
	folder, err := GenerateFolderPath(a, libraryRoot, o.folders)
	if err != nil {
		return a, err
	}
	a.ProposedName = name
	a.ProposedPath = path.Join(folder, name)
	return a, nil
}

// ValidateAssignment checks that an assignment can be executed: media
// data present, the episode triple complete, proposed name
// filesystem-safe.
func (o *Organizer) ValidateAssignment(a models.FileAssignment) error {
	if a.MediaData == nil {
		return fmt.Errorf("assignment for %s has no media data", a.File.Name)
	}
	if a.AssignmentType == models.MediaTypeEpisode {
		if a.SeasonNumber == nil || a.EpisodeNumber == nil {
			return fmt.Errorf("episode assignment for %s missing season or episode number", a.File.Name)
		}
		if a.SeriesData == nil {
			return fmt.Errorf("episode assignment for %s missing series data", a.File.Name)
		}
	}
	if a.ProposedName == "" {
		return fmt.Errorf("assignment for %s has no proposed name", a.File.Name)
	}
	if err := fsops.ValidateName(a.ProposedName); err != nil {
		return fmt.Errorf("invalid proposed name %q: %w", a.ProposedName, err)
	}
	return nil
}

// ExecuteBatch runs the batch and returns it with per-item results and a
// summary. With ContinueOnError unset, execution is sequential and stops
// at the first failure, marking the rest skipped. With it set, items run
// in parallel; folder creation is idempotent so concurrent items may
// share a new destination folder.
func (o *Organizer) ExecuteBatch(ctx context.Context, op BatchOperation) BatchOperation {
	start := time.Now().UTC()
	op.Results = make([]ItemResult, len(op.Files))

	if op.ContinueOnError {
		var wg sync.WaitGroup
		sem := make(chan struct{}, batchConcurrency)
		for i := range op.Files {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				op.Results[i] = o.executeItem(ctx, op, op.Files[i])
			}(i)
		}
		wg.Wait()
	} else {
		failed := false
		for i := range op.Files {
			if failed {
				op.Results[i] = ItemResult{Path: op.Files[i].File.Path, Skipped: true}
				continue
			}
			op.Results[i] = o.executeItem(ctx, op, op.Files[i])
			if !op.Results[i].Success && !op.Results[i].Skipped {
				failed = true
			}
		}
	}

	end := time.Now().UTC()
	summary := &BatchSummary{
		Total:      len(op.Files),
		StartTime:  start,
		EndTime:    end,
		DurationMS: end.Sub(start).Milliseconds(),
	}
	for _, r := range op.Results {
		switch {
		case r.Skipped:
			summary.Skipped++
		case r.Success:
			summary.Successful++
		default:
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", r.Path, r.Error))
		}
	}
	op.Summary = summary
	log.Printf("Organize: batch %s done, %d ok, %d failed, %d skipped (%dms)",
		op.Operation, summary.Successful, summary.Failed, summary.Skipped, summary.DurationMS)
	return op
}

func (o *Organizer) executeItem(ctx context.Context, op BatchOperation, a models.FileAssignment) ItemResult {
	res := ItemResult{Path: a.File.Path}

	prepared, err := o.Prepare(a, op.LibraryRoot)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if err := o.ValidateAssignment(prepared); err != nil {
		res.Error = err.Error()
		return res
	}
	res.NewPath = prepared.ProposedPath

	if op.DryRun {
		res.Success = true
		return res
	}

	current := prepared.File.Path
	if op.Operation != OpMove {
		renamed, err := o.fs.Rename(ctx, current, strings.TrimSuffix(prepared.ProposedName, filepath.Ext(prepared.ProposedName)))
		if err != nil {
			res.Error = fmt.Sprintf("rename failed: %v", err)
			return res
		}
		current = renamed
	}

	if op.Operation == OpRename {
		res.NewPath = current
		res.Success = true
		return res
	}

	folder := path.Dir(prepared.ProposedPath)
	if op.CreateFolders {
		if err := o.fs.CreateFolder(ctx, folder); err != nil {
			res.Error = fmt.Sprintf("folder creation failed: %v", err)
			return res
		}
	}
	// Item moves target a fresh file path; merging is never wanted here.
	if err := o.fs.Move(ctx, current, prepared.ProposedPath, false); err != nil {
		res.Error = fmt.Sprintf("move failed: %v", err)
		return res
	}
	res.NewPath = prepared.ProposedPath
	res.Success = true
	return res
}
