package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumilio/scanner/internal/catalog"
	"github.com/lumilio/scanner/internal/utils/file"
)

// Item is one unit of work the planner hands to the executor.
type Item struct {
	Path string
	Info os.FileInfo
}

// Plan is the triple the planner produces: paths to add, paths to update,
// and paths to delete from the catalog.
type Plan struct {
	ToAdd    []Item
	ToUpdate []Item
	ToDelete []string

	// UseGenerationDelete is true when the catalog is large enough that
	// the adapter chose generation-based orphan detection over the set
	// difference below; ToDelete is left empty in that case and the
	// executor's delete phase calls DeleteStaleGeneration instead.
	UseGenerationDelete bool
}

// Planner walks a root directory and classifies every matching file
// against the catalog adapter's current snapshot.
type Planner struct {
	validator *file.Validator
	adapter   *catalog.Adapter
	reporter  *Reporter
}

func NewPlanner(adapter *catalog.Adapter, reporter *Reporter) *Planner {
	return &Planner{
		validator: file.NewValidator(),
		adapter:   adapter,
		reporter:  reporter,
	}
}

// Plan performs the collecting and counting phases described in the
// executor's state machine, returning the add/update/delete sets.
func (p *Planner) Plan(ctx context.Context, root string) (*Plan, error) {
	items, err := p.collect(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("collecting: %w", err)
	}

	plan, err := p.count(ctx, items)
	if err != nil {
		return nil, fmt.Errorf("counting: %w", err)
	}
	return plan, nil
}

// collect performs phase `collecting`: a breadth-first-equivalent walk of
// root yielding every regular whitelisted file. Symlinked directories are
// never followed (cycle protection); symlinked files are resolved once.
func (p *Planner) collect(ctx context.Context, root string) ([]Item, error) {
	var items []Item
	seenCanonical := make(map[string]bool)
	dirModTimes := make(map[string]time.Time)
	dirFileCounts := make(map[string]int)

	phase := PhaseCollecting
	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil // a single unreadable entry does not abort the walk
		}

		if info.IsDir() {
			if path != root && shouldIgnoreDir(filepath.Base(path)) {
				return filepath.SkipDir
			}
			dirModTimes[path] = info.ModTime()
			msg := path
			p.reporter.Update(Patch{Phase: &phase, PhaseMessage: &msg})
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				return nil
			}
			if seenCanonical[resolved] {
				return nil
			}
			seenCanonical[resolved] = true
			realInfo, err := os.Stat(resolved)
			if err != nil {
				return nil
			}
			path, info = resolved, realInfo
		}

		if shouldIgnoreFile(filepath.Base(path)) {
			return nil
		}
		if !p.validator.IsSupported(path) {
			return nil
		}

		dirFileCounts[filepath.Dir(path)]++
		items = append(items, Item{Path: path, Info: info})
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	p.touchDirectories(ctx, dirModTimes, dirFileCounts)
	return items, nil
}

// touchDirectories lazily refreshes the per-folder index for every
// directory visited during the walk. Best-effort: failures here never
// fail the scan, since Directory is cached state, not a correctness
// source.
func (p *Planner) touchDirectories(ctx context.Context, modTimes map[string]time.Time, fileCounts map[string]int) {
	for dir, modTime := range modTimes {
		p.adapter.TouchDirectory(ctx, dir, fileCounts[dir], modTime)
	}
}

// count performs phase `counting`: classify every collected item against
// the catalog adapter and compute the delete set as a set difference.
func (p *Planner) count(ctx context.Context, items []Item) (*Plan, error) {
	plan := &Plan{}
	onDisk := make(map[string]bool, len(items))

	for _, it := range items {
		onDisk[it.Path] = true

		existing, found, err := p.adapter.Lookup(ctx, it.Path)
		if err != nil {
			return nil, err
		}
		if !found {
			plan.ToAdd = append(plan.ToAdd, it)
			continue
		}
		if existing.SameContent(it.Info.Size(), it.Info.ModTime()) {
			continue // fast-path skip: not added to either set
		}
		plan.ToUpdate = append(plan.ToUpdate, it)
	}

	plan.UseGenerationDelete = p.adapter.UseGenerationDelete()
	if !plan.UseGenerationDelete {
		for _, path := range p.adapter.KnownPaths() {
			if !onDisk[path] {
				plan.ToDelete = append(plan.ToDelete, path)
			}
		}
	}

	totalFiles := len(plan.ToAdd) + len(plan.ToUpdate)
	// filesToDelete is unknown ahead of time under generation mode: the
	// count only becomes available once DeleteStaleGeneration runs.
	toAdd, toUpdate, toDelete := len(plan.ToAdd), len(plan.ToUpdate), len(plan.ToDelete)
	countingPhase := PhaseCounting
	p.reporter.Update(Patch{
		Phase:         &countingPhase,
		TotalFiles:    &totalFiles,
		FilesToAdd:    &toAdd,
		FilesToUpdate: &toUpdate,
		FilesToDelete: &toDelete,
	})

	return plan, nil
}

// shouldIgnoreDir skips hidden and well-known non-media directories
// during the tree walk.
func shouldIgnoreDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "$RECYCLE.BIN", "System Volume Information", "node_modules":
		return true
	}
	return false
}

// shouldIgnoreFile skips hidden, temporary, and system files the tree
// walk would otherwise classify and stage for extraction.
func shouldIgnoreFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	if strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, ".bak") || strings.HasSuffix(name, ".swp") {
		return true
	}
	switch name {
	case ".DS_Store", "Thumbs.db", "desktop.ini":
		return true
	}
	return false
}
