package lsdups

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Walker traverses a directory tree and streams the eligible regular files.
// Paths are visited in lexicographic order of their absolute path, so every
// run over an unmodified tree yields the same sequence. Directory symlinks are
// never followed; file symlinks are followed when their target resolves.
type Walker struct {
	root    string
	filter  *PathFilter
	log     *zap.Logger
	visited int
}

// NewWalker creates a walker for root. root should already be absolute and clean.
func NewWalker(root string, filter *PathFilter, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{root: root, filter: filter, log: logger}
}

// Visited returns the number of entries examined by the last Walk
func (w *Walker) Visited() int {
	return w.visited
}

// Walk scans the tree, sending accepted candidates on resultChan and passing
// every skipped entry to report. resultChan is closed when Walk returns. The
// only error returned is the context's when the walk is cancelled.
func (w *Walker) Walk(ctx context.Context, resultChan chan<- FileCandidate, report func(Diagnostic)) error {
	defer close(resultChan)
	w.visited = 0

	// The lexicographically smallest pending path is always next
	queue := &pathQueue{w.root}

	for queue.Len() > 0 {
		select {
		case <-ctx.Done():
			w.log.Debug("walk interrupted", zap.Int("pending", queue.Len()))
			return ctx.Err()
		default:
		}

		currentPath := heap.Pop(queue).(string)
		w.visited++

		var info os.FileInfo
		var err error
		if currentPath == w.root {
			// the root was validated with Stat, so a symlinked root is traversed
			info, err = os.Stat(currentPath)
		} else {
			info, err = os.Lstat(currentPath)
		}
		if err != nil {
			w.skip(report, currentPath, describeEntryError(err))
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Stat(currentPath)
			if err != nil {
				w.log.Warn("skipping unresolvable symlink", zap.String("path", currentPath), zap.Error(err))
				w.skip(report, currentPath, "broken symlink: "+describeEntryError(err))
				continue
			}
			if target.IsDir() {
				w.skip(report, currentPath, "symlink to directory not followed")
				continue
			}
			// Candidates for file symlinks use the target's size and contents
			info = target
		}

		switch {
		case info.IsDir():
			children, err := w.readDir(currentPath)
			if err != nil {
				w.skip(report, currentPath, "cannot read directory: "+describeEntryError(err))
			}
			for _, child := range children {
				heap.Push(queue, child)
			}

		case info.Mode().IsRegular():
			size := uint64(info.Size())
			if reason := w.filter.rejection(currentPath, size); reason != "" {
				w.log.Debug("filtered", zap.String("path", currentPath), zap.String("reason", reason))
				continue
			}

			w.log.Debug("candidate", zap.String("path", currentPath), zap.Uint64("size", size))
			select {
			case resultChan <- FileCandidate{Path: currentPath, Size: size}:
			case <-ctx.Done():
				return ctx.Err()
			}

		default:
			w.skip(report, currentPath, fmt.Sprintf("not a regular file (%s)", info.Mode().Type()))
		}
	}

	return nil
}

// readDir lists dir and returns the full paths of its entries. Entries read
// before a failure are still returned alongside the error.
func (w *Walker) readDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, err
}

func (w *Walker) skip(report func(Diagnostic), path, reason string) {
	w.log.Debug("skipped", zap.String("path", path), zap.String("reason", reason))
	if report != nil {
		report(Diagnostic{Path: path, Reason: reason, Kind: KindTraversal})
	}
}

// describeEntryError turns common traversal errors into short reasons
func describeEntryError(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return "permission denied"
	case errors.Is(err, fs.ErrNotExist):
		return "vanished during scan"
	default:
		return err.Error()
	}
}

// pathQueue is a min-heap of pending paths
type pathQueue []string

func (q pathQueue) Len() int           { return len(q) }
func (q pathQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q pathQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *pathQueue) Push(x any) {
	*q = append(*q, x.(string))
}

func (q *pathQueue) Pop() any {
	old := *q
	n := len(old)
	path := old[n-1]
	*q = old[:n-1]
	return path
}
