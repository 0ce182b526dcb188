// Package importer merges workout exports into the stored collection.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/store"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	WorkoutsRead       int
	WorkoutsInserted   int
	WorkoutsDuplicated int
	WorkoutsRejected   int
}

// Importer reads export files and appends their workouts to a stored
// collection.
type Importer struct {
	dest   *storage.Workouts
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer.
func New(dest *storage.Workouts, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{dest: dest, log: log, dryRun: dryRun}
}

// Import reads every path, expanding directories to their *.json and
// *.json.gz files, and merges the workouts into the destination. Existing
// workouts keep their position; new ones are appended in file order.
// Workouts whose id is already present are counted as duplicates.
func (imp *Importer) Import(ctx context.Context, paths ...string) (*Stats, error) {
	existing, err := imp.dest.Load(ctx)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading destination: %w", err)
	}
	merged := store.New()
	for _, w := range existing {
		if err := merged.Add(w); err != nil {
			imp.log.Warn("skipping duplicate stored workout", "id", w.ID())
		}
	}

	files, err := imp.expand(paths)
	if err != nil {
		return &imp.stats, err
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		imp.importFile(path, merged)
	}

	if imp.dryRun || imp.stats.WorkoutsInserted == 0 {
		return &imp.stats, nil
	}
	if err := imp.dest.Save(ctx, merged.All()); err != nil {
		return &imp.stats, fmt.Errorf("saving merged workouts: %w", err)
	}
	return &imp.stats, nil
}

func (imp *Importer) importFile(path string, merged *store.Store) {
	data, err := ReadFile(path)
	if err != nil {
		imp.log.Warn("failed to read file", "file", path, "error", err)
		imp.stats.FilesErrored++
		return
	}
	workouts, rejected, err := ParseExport(data)
	if err != nil {
		imp.log.Warn("failed to parse file", "file", path, "error", err)
		imp.stats.FilesErrored++
		return
	}
	imp.stats.FilesProcessed++

	for _, r := range rejected {
		imp.log.Warn("rejected workout", "file", path, "index", r.Index, "error", r.Err)
	}
	imp.stats.WorkoutsRejected += len(rejected)
	imp.stats.WorkoutsRead += len(workouts) + len(rejected)

	for _, w := range workouts {
		if err := merged.Add(w); err != nil {
			if errors.Is(err, store.ErrDuplicateID) {
				imp.stats.WorkoutsDuplicated++
				continue
			}
			imp.log.Warn("failed to add workout", "file", path, "id", w.ID(), "error", err)
			imp.stats.WorkoutsRejected++
			continue
		}
		imp.stats.WorkoutsInserted++
		imp.log.Debug("imported workout", "id", w.ID(), "type", w.Kind(), "label", w.Label())
	}
}

// expand resolves paths to files. Each directory contributes its export
// files in name order.
func (imp *Importer) expand(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		dirFiles, err := imp.expandDir(p)
		if err != nil {
			return nil, err
		}
		files = append(files, dirFiles...)
	}
	return files, nil
}

// expandDir lists the export files in dir. Other entries are counted as
// skipped.
func (imp *Importer) expandDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !IsExportFile(e.Name()) {
			imp.stats.FilesSkipped++
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// IsExportFile reports whether name looks like a workout export.
func IsExportFile(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")
}
