package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/claude/mapty/internal/importer"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	WorkoutsSent       int
	WorkoutsInserted   int
	WorkoutsDuplicated int
	WorkoutsRejected   int
}

// Uploader walks export files, checks them locally and POSTs each one
// that changed since the last run to the tracker.
type Uploader struct {
	client *Client
	state  *StateDB
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. state may be nil to send every file.
func New(client *Client, state *StateDB, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		dryRun: dryRun,
		log:    log,
	}
}

// Run uploads every export under paths. Directories contribute their
// *.json and *.json.gz files in name order.
func (u *Uploader) Run(ctx context.Context, paths ...string) (*Stats, error) {
	files, err := exportFiles(paths)
	if err != nil {
		return &u.stats, err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		u.stats.FilesTotal++
		if err := u.uploadFile(ctx, f); err != nil {
			u.log.Warn("upload failed", "file", f, "error", err)
			u.stats.FilesErrored++
		}
	}
	return &u.stats, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}
	if u.state != nil {
		sent, err := u.state.IsSent(abs, hash)
		if err != nil {
			return err
		}
		if sent {
			u.log.Debug("unchanged since last upload", "file", path)
			u.stats.FilesSkipped++
			return nil
		}
	}

	data, err := importer.ReadFile(path)
	if err != nil {
		return err
	}
	workouts, rejected, err := importer.ParseExport(data)
	if err != nil {
		return err
	}

	if u.dryRun {
		u.log.Info("dry run: would upload", "file", path, "workouts", len(workouts), "rejected", len(rejected))
		u.stats.WorkoutsSent += len(workouts)
		u.stats.WorkoutsRejected += len(rejected)
		return nil
	}

	res, err := u.client.SendExport(ctx, data)
	if err != nil {
		return err
	}
	u.stats.FilesUploaded++
	u.stats.WorkoutsSent += len(workouts) + len(rejected)
	u.stats.WorkoutsInserted += res.Inserted
	u.stats.WorkoutsDuplicated += res.Duplicated
	u.stats.WorkoutsRejected += res.Rejected
	u.log.Info("uploaded export", "file", path, "inserted", res.Inserted, "duplicated", res.Duplicated, "rejected", res.Rejected)

	if u.state != nil {
		if err := u.state.MarkSent(abs, hash); err != nil {
			u.log.Warn("failed to record upload", "file", path, "error", err)
		}
	}
	return nil
}

func exportFiles(paths []string) ([]string, error) {
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
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		var dirFiles []string
		for _, e := range entries {
			if !e.IsDir() && importer.IsExportFile(e.Name()) {
				dirFiles = append(dirFiles, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(dirFiles)
		files = append(files, dirFiles...)
	}
	return files, nil
}
