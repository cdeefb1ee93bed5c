package lsdups

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stats summarises the work done by one scan
type Stats struct {
	ScanID           string        `json:"scan_id" yaml:"scan_id"`
	EntriesVisited   int           `json:"entries_visited" yaml:"entries_visited"`
	Candidates       int           `json:"candidates" yaml:"candidates"`
	CandidateBytes   uint64        `json:"candidate_bytes" yaml:"candidate_bytes"`
	SizeBuckets      int           `json:"size_buckets" yaml:"size_buckets"`
	Digest           DigestStats   `json:"digest" yaml:"digest"`
	Groups           int           `json:"groups" yaml:"groups"`
	DuplicateFiles   int           `json:"duplicate_files" yaml:"duplicate_files"`
	DuplicateBytes   uint64        `json:"duplicate_bytes" yaml:"duplicate_bytes"`
	ReclaimableBytes uint64        `json:"reclaimable_bytes" yaml:"reclaimable_bytes"`
	Elapsed          time.Duration `json:"elapsed_ns" yaml:"elapsed_ns"`
}

// Result is the outcome of a completed scan
type Result struct {
	Root        string           `json:"root" yaml:"root"`
	Groups      []DuplicateGroup `json:"groups" yaml:"groups"`
	Diagnostics []Diagnostic     `json:"diagnostics" yaml:"diagnostics"`
	Stats       Stats            `json:"stats" yaml:"stats"`
}

// Engine runs duplicate scans with a fixed tuning configuration. An Engine
// holds no state between scans and may run several scans concurrently.
type Engine struct {
	config  *Config
	log     *zap.Logger
	debug   DebugFlags
	workers int
	verify  string
}

// NewEngine validates cfg and creates an engine. A nil cfg uses the defaults.
func NewEngine(cfg *Config, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ScanError{Kind: KindConfig, Path: cfg.Path(), Err: err}
	}

	return &Engine{
		config:  cfg,
		log:     logger,
		debug:   ParseDebugFlags(cfg.GetVerboseConfig().Debug),
		workers: cfg.GetPerformanceConfig().HashWorkers,
		verify:  strings.ToLower(cfg.GetDigestConfig().Verify),
	}, nil
}

// Config returns the engine's tuning configuration
func (e *Engine) Config() *Config {
	return e.config
}

// Scan finds every group of byte-identical files under sc.Root. Invalid
// input returns a config error before anything is read. Cancelling ctx
// aborts the scan and returns the context's error with no result.
func (e *Engine) Scan(ctx context.Context, sc ScanConfig) (*Result, error) {
	start := time.Now()
	scanID := uuid.New().String()
	log := e.log.With(zap.String("scan_id", scanID))

	root, err := resolveRoot(sc.Root)
	if err != nil {
		return nil, err
	}
	sc.Root = root

	filter, err := NewPathFilter(sc)
	if err != nil {
		return nil, err
	}

	// A fresh digester per scan keeps the I/O counters scoped to this scan
	digester, err := NewDigesterFromConfig(e.config)
	if err != nil {
		return nil, &ScanError{Kind: KindConfig, Path: e.config.Path(), Err: err}
	}
	digester.SetLogger(componentLogger(log, e.debug, DebugDigest))

	log.Info("scan started",
		zap.String("root", root),
		zap.String("include", sc.IncludePattern),
		zap.String("skip", sc.SkipPattern),
		zap.Uint64("min_size", sc.MinSize),
		zap.String("algorithm", digester.Algorithm().Name),
		zap.Int("workers", e.workers))

	collector := newDiagnosticCollector()

	// Step 1: walk and bucket concurrently; the bucketer is fed from this goroutine only
	walker := NewWalker(root, filter, componentLogger(log, e.debug, DebugScan))
	candidateChan := make(chan FileCandidate, 256)
	walkErr := make(chan error, 1)
	go func() {
		walkErr <- walker.Walk(ctx, candidateChan, collector.Report)
	}()

	bucketLog := componentLogger(log, e.debug, DebugBucket)
	bucketer := NewSizeBucketer()
	var candidateBytes uint64
	for c := range candidateChan {
		bucketer.Insert(c)
		candidateBytes += c.Size
	}
	if err := <-walkErr; err != nil {
		log.Info("scan cancelled during walk", zap.Error(err))
		return nil, err
	}
	candidates := bucketer.Len()

	// Step 2: only sizes shared by two or more candidates can hold duplicates
	buckets := bucketer.DrainMultiMemberBuckets()
	bucketLog.Debug("size buckets",
		zap.Int("candidates", candidates),
		zap.Int("multi_member_buckets", len(buckets)))

	// Step 3: partial digest, full digest and optional verification
	resolver := NewDuplicateResolver(digester, e.workers, e.verify, componentLogger(log, e.debug, DebugResolve))
	groups, err := resolver.Resolve(ctx, buckets, collector.Report)
	if err != nil {
		if IsCanceled(err) {
			log.Info("scan cancelled during resolution", zap.Error(err))
		}
		return nil, err
	}

	result := &Result{
		Root:        root,
		Groups:      groups,
		Diagnostics: collector.Diagnostics(),
	}
	result.Stats = Stats{
		ScanID:         scanID,
		EntriesVisited: walker.Visited(),
		Candidates:     candidates,
		CandidateBytes: candidateBytes,
		SizeBuckets:    len(buckets),
		Digest:         digester.Stats(),
		Groups:         len(groups),
	}
	for _, g := range groups {
		result.Stats.DuplicateFiles += g.Count()
		result.Stats.DuplicateBytes += g.Size * uint64(g.Count())
		result.Stats.ReclaimableBytes += g.ReclaimableBytes()
	}
	result.Stats.Elapsed = time.Since(start)

	log.Info("scan complete",
		zap.Int("groups", result.Stats.Groups),
		zap.Int("duplicate_files", result.Stats.DuplicateFiles),
		zap.Uint64("reclaimable_bytes", result.Stats.ReclaimableBytes),
		zap.Int("diagnostics", len(result.Diagnostics)),
		zap.Duration("elapsed", result.Stats.Elapsed))

	return result, nil
}

// resolveRoot returns the absolute, clean form of root after checking it is a directory
func resolveRoot(root string) (string, error) {
	if root == "" {
		return "", newConfigError(root, "root directory not specified")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", newConfigError(root, "cannot resolve root: %v", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", newConfigError(abs, "root does not exist")
		}
		return "", newConfigError(abs, "cannot stat root: %v", err)
	}
	if !info.IsDir() {
		return "", newConfigError(abs, "root is not a directory")
	}
	return abs, nil
}

// diagnosticCollector accumulates diagnostics from the walker and the digest workers
type diagnosticCollector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func newDiagnosticCollector() *diagnosticCollector {
	return &diagnosticCollector{}
}

// Report records d; it is safe for concurrent use
func (dc *diagnosticCollector) Report(d Diagnostic) {
	dc.mu.Lock()
	dc.diags = append(dc.diags, d)
	dc.mu.Unlock()
}

// Diagnostics returns the recorded diagnostics ordered by path
func (dc *diagnosticCollector) Diagnostics() []Diagnostic {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	out := make([]Diagnostic, len(dc.diags))
	copy(out, dc.diags)
	sortDiagnostics(out)
	return out
}

func (r *Result) String() string {
	return fmt.Sprintf("%d duplicate groups, %d diagnostics", len(r.Groups), len(r.Diagnostics))
}
