package lsdups

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"syscall"
	"testing"
)

// walkAll runs w to completion and returns what it produced
func walkAll(t *testing.T, ctx context.Context, w *Walker) ([]FileCandidate, []Diagnostic, error) {
	t.Helper()
	resultChan := make(chan FileCandidate)
	var diags []Diagnostic
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Walk(ctx, resultChan, func(d Diagnostic) { diags = append(diags, d) })
	}()

	var candidates []FileCandidate
	for c := range resultChan {
		candidates = append(candidates, c)
	}
	return candidates, diags, <-errChan
}

func newTestWalker(t *testing.T, root string, cfg ScanConfig) *Walker {
	t.Helper()
	filter, err := NewPathFilter(cfg)
	if err != nil {
		t.Fatalf("NewPathFilter failed: %v", err)
	}
	return NewWalker(root, filter, nil)
}

func candidatePaths(candidates []FileCandidate) []string {
	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.Path
	}
	return paths
}

func TestWalkerLexicographicOrder(t *testing.T) {
	root := testRoot(t)
	writeTestFile(t, root, "z.txt", "z")
	writeTestFile(t, root, "a/b.txt", "ab")
	writeTestFile(t, root, "a/a/deep.txt", "deep")
	writeTestFile(t, root, "a-c.txt", "dash")
	writeTestFile(t, root, "m/n/o/p.txt", "p")

	candidates, diags, err := walkAll(t, context.Background(), newTestWalker(t, root, ScanConfig{}))
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("Unexpected diagnostics: %v", diags)
	}

	expected := []string{
		filepath.Join(root, "a-c.txt"),
		filepath.Join(root, "a/a/deep.txt"),
		filepath.Join(root, "a/b.txt"),
		filepath.Join(root, "m/n/o/p.txt"),
		filepath.Join(root, "z.txt"),
	}
	if got := candidatePaths(candidates); !reflect.DeepEqual(got, expected) {
		t.Errorf("Walk order = %v, expected %v", got, expected)
	}

	// Identical input yields an identical sequence
	again, _, _ := walkAll(t, context.Background(), newTestWalker(t, root, ScanConfig{}))
	if !reflect.DeepEqual(candidates, again) {
		t.Error("Two walks over the same tree produced different sequences")
	}
}

func TestWalkerAppliesFilter(t *testing.T) {
	root := testRoot(t)
	writeTestFile(t, root, "keep.log", "0123456789")
	writeTestFile(t, root, "tiny.log", "01")
	writeTestFile(t, root, "debug.log", "0123456789")
	writeTestFile(t, root, "notes.txt", "0123456789")
	writeTestFile(t, root, "sub/nested.log", "0123456789")

	w := newTestWalker(t, root, ScanConfig{IncludePattern: "*.log", SkipPattern: "debug*", MinSize: 10})
	candidates, diags, err := walkAll(t, context.Background(), w)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	expected := []string{filepath.Join(root, "keep.log"), filepath.Join(root, "sub/nested.log")}
	if got := candidatePaths(candidates); !reflect.DeepEqual(got, expected) {
		t.Errorf("Filtered walk = %v, expected %v", got, expected)
	}
	if len(diags) != 0 {
		t.Errorf("Filter rejections should not be diagnostics: %v", diags)
	}
	for _, c := range candidates {
		if c.Size != 10 {
			t.Errorf("Candidate %s has size %d, expected 10", c.Path, c.Size)
		}
	}
	// root, 5 files and sub/
	if w.Visited() != 7 {
		t.Errorf("Visited() = %d, expected 7", w.Visited())
	}
}

func TestWalkerSymlinks(t *testing.T) {
	root := testRoot(t)
	target := writeTestFile(t, root, "real/target.txt", "target content")
	outside := t.TempDir()
	writeTestFile(t, outside, "elsewhere.txt", "outside")

	if err := os.Symlink(target, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("Symlinks not supported: %v", err)
	}
	os.Symlink(outside, filepath.Join(root, "dirlink"))
	os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "broken"))
	// A cycle back to the root must not be followed
	os.Symlink(root, filepath.Join(root, "real/loop"))

	candidates, diags, err := walkAll(t, context.Background(), newTestWalker(t, root, ScanConfig{}))
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	expected := []FileCandidate{
		{Path: filepath.Join(root, "link.txt"), Size: 14},
		{Path: target, Size: 14},
	}
	if !reflect.DeepEqual(candidates, expected) {
		t.Errorf("Walk = %v, expected %v", candidates, expected)
	}

	reasons := map[string]string{}
	for _, d := range diags {
		if d.Kind != KindTraversal {
			t.Errorf("Diagnostic %v should be a traversal diagnostic", d)
		}
		reasons[filepath.Base(d.Path)] = d.Reason
	}
	if !strings.Contains(reasons["dirlink"], "symlink to directory") {
		t.Errorf("Expected directory symlink diagnostic, got %q", reasons["dirlink"])
	}
	if !strings.Contains(reasons["loop"], "symlink to directory") {
		t.Errorf("Expected loop symlink diagnostic, got %q", reasons["loop"])
	}
	if !strings.Contains(reasons["broken"], "broken symlink") {
		t.Errorf("Expected broken symlink diagnostic, got %q", reasons["broken"])
	}
}

func TestWalkerNonRegularFiles(t *testing.T) {
	root := testRoot(t)
	writeTestFile(t, root, "file.txt", "x")
	if err := syscall.Mkfifo(filepath.Join(root, "pipe"), 0644); err != nil {
		t.Skipf("Cannot create fifo: %v", err)
	}

	candidates, diags, err := walkAll(t, context.Background(), newTestWalker(t, root, ScanConfig{}))
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("Expected only the regular file, got %v", candidates)
	}
	if len(diags) != 1 || !strings.Contains(diags[0].Reason, "not a regular file") {
		t.Errorf("Expected one non-regular diagnostic, got %v", diags)
	}
}

func TestWalkerUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("Permission checks do not apply to root")
	}
	root := testRoot(t)
	writeTestFile(t, root, "open/file.txt", "visible")
	writeTestFile(t, root, "locked/hidden.txt", "hidden")
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0); err != nil {
		t.Fatalf("Failed to chmod: %v", err)
	}
	defer os.Chmod(locked, 0755)

	candidates, diags, err := walkAll(t, context.Background(), newTestWalker(t, root, ScanConfig{}))
	if err != nil {
		t.Fatalf("Walk should not fail on unreadable entries: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Path != filepath.Join(root, "open/file.txt") {
		t.Errorf("Expected only the readable file, got %v", candidates)
	}
	if len(diags) != 1 || diags[0].Path != locked || !strings.Contains(diags[0].Reason, "permission denied") {
		t.Errorf("Expected permission diagnostic for %s, got %v", locked, diags)
	}
}

func TestWalkerCancelled(t *testing.T) {
	root := testRoot(t)
	for i := 0; i < 5; i++ {
		writeTestFile(t, root, filepath.Join("d", string(rune('a'+i))), "x")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	candidates, _, err := walkAll(t, ctx, newTestWalker(t, root, ScanConfig{}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("Cancelled walk produced %d candidates", len(candidates))
	}
}

func TestPathQueuePopsInOrder(t *testing.T) {
	queue := &pathQueue{"/m"}
	for _, path := range []string{"/z", "/a/b", "/a-c", "/a", "/zz"} {
		heap.Push(queue, path)
	}
	// Pushing after a pop keeps the ordering
	got := []string{heap.Pop(queue).(string)}
	heap.Push(queue, "/b")
	for queue.Len() > 0 {
		got = append(got, heap.Pop(queue).(string))
	}

	expected := []string{"/a", "/a-c", "/a/b", "/b", "/m", "/z", "/zz"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Pop order = %v, expected %v", got, expected)
	}
}

func TestWalkerWideTreeOrder(t *testing.T) {
	root := testRoot(t)
	var expected []string
	for i := 0; i < 20; i++ {
		dir := fmt.Sprintf("d%02d", i)
		for j := 0; j < 50; j++ {
			name := fmt.Sprintf("%s/f%03d", dir, j)
			writeTestFile(t, root, name, "x")
			expected = append(expected, filepath.Join(root, name))
		}
	}
	sort.Strings(expected)

	candidates, _, err := walkAll(t, context.Background(), newTestWalker(t, root, ScanConfig{}))
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if got := candidatePaths(candidates); !reflect.DeepEqual(got, expected) {
		t.Errorf("Wide tree walked out of order: got %d paths, first %v", len(got), got[:min(3, len(got))])
	}
}
