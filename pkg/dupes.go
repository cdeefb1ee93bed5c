package lsdups

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/opencontainers/go-digest"
	"go.uber.org/zap"
)

// DuplicateGroup represents a set of at least two byte-identical files
type DuplicateGroup struct {
	Size      uint64   `json:"size_bytes" yaml:"size_bytes"`
	Digest    string   `json:"content_digest" yaml:"content_digest"`
	Algorithm string   `json:"algorithm" yaml:"algorithm"`
	Paths     []string `json:"paths" yaml:"paths"`
}

// Count returns the number of files in the group
func (g DuplicateGroup) Count() int {
	return len(g.Paths)
}

// Representative returns the lexicographically first path
func (g DuplicateGroup) Representative() string {
	if len(g.Paths) == 0 {
		return ""
	}
	return g.Paths[0]
}

// ReclaimableBytes is the space held by every copy but one
func (g DuplicateGroup) ReclaimableBytes() uint64 {
	if len(g.Paths) < 2 {
		return 0
	}
	return g.Size * uint64(len(g.Paths)-1)
}

// sortGroups orders groups by member count descending, then representative path ascending
func sortGroups(groups []DuplicateGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count() != groups[j].Count() {
			return groups[i].Count() > groups[j].Count()
		}
		return groups[i].Representative() < groups[j].Representative()
	})
}

// DuplicateResolver refines size buckets into verified duplicate groups:
// partial digest, then full digest, then (optionally) byte comparison
type DuplicateResolver struct {
	digester *Digester
	workers  int
	verify   string
	log      *zap.Logger
}

// NewDuplicateResolver creates a resolver running digests on workers goroutines
func NewDuplicateResolver(digester *Digester, workers int, verify string, logger *zap.Logger) *DuplicateResolver {
	if workers < 1 {
		workers = 1
	}
	if verify == "" {
		verify = VerifyNone
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuplicateResolver{digester: digester, workers: workers, verify: verify, log: logger}
}

// class is a set of same-size candidates sharing every signature computed so far
type class struct {
	size    uint64
	members []FileCandidate
	digest  digest.Digest // full digest once known
}

// Resolve turns size buckets into duplicate groups ordered by sortGroups.
// Candidates that fail to digest are dropped and passed to report. On
// cancellation the context's error is returned and no groups are.
func (r *DuplicateResolver) Resolve(ctx context.Context, buckets []SizeBucket, report func(Diagnostic)) ([]DuplicateGroup, error) {
	var final []class
	var partialPending []class

	for _, bucket := range buckets {
		if len(bucket.Members) < 2 {
			continue
		}
		if bucket.Size == 0 {
			// Empty files are identical by definition and never read
			final = append(final, class{size: 0, members: bucket.Members, digest: r.digester.EmptyDigest()})
			continue
		}
		partialPending = append(partialPending, class{size: bucket.Size, members: bucket.Members})
	}

	partialClasses, err := r.refine(ctx, "partial", partialPending, r.digester.PartialDigest, report)
	if err != nil {
		return nil, err
	}

	var fullPending []class
	for _, pc := range partialClasses {
		if r.digester.PartialCoversWhole(pc.size) {
			// The partial digest already hashed every byte
			final = append(final, pc)
			continue
		}
		fullPending = append(fullPending, pc)
	}

	fullClasses, err := r.refine(ctx, "full", fullPending, r.digester.FullDigest, report)
	if err != nil {
		return nil, err
	}
	final = append(final, fullClasses...)

	if r.verify == VerifyMmap {
		if final, err = r.verifyClasses(ctx, final, report); err != nil {
			return nil, err
		}
	}

	return r.emit(final)
}

// refine digests every member of classes with fn and splits each class by
// digest value. Singleton sub-classes are unique and dropped.
func (r *DuplicateResolver) refine(
	ctx context.Context,
	stage string,
	classes []class,
	fn func(context.Context, FileCandidate) (digest.Digest, error),
	report func(Diagnostic),
) ([]class, error) {
	var jobs []FileCandidate
	for _, cl := range classes {
		jobs = append(jobs, cl.members...)
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	r.log.Debug("digest stage", zap.String("stage", stage), zap.Int("classes", len(classes)), zap.Int("files", len(jobs)))

	results, err := runPool(ctx, r.workers, jobs, func(ctx context.Context, c FileCandidate) digestOutcome {
		dg, err := fn(ctx, c)
		return digestOutcome{digest: dg, err: err}
	})
	if err != nil {
		return nil, err
	}

	// Partitioning is single-threaded over the collected results
	var refined []class
	offset := 0
	for _, cl := range classes {
		byDigest := make(map[digest.Digest][]FileCandidate)
		var order []digest.Digest
		for i, member := range cl.members {
			res := results[offset+i]
			if res.err != nil {
				r.log.Warn("dropping candidate", zap.String("stage", stage), zap.String("path", member.Path), zap.Error(res.err))
				reportFailure(report, member.Path, res.err)
				continue
			}
			if _, seen := byDigest[res.digest]; !seen {
				order = append(order, res.digest)
			}
			byDigest[res.digest] = append(byDigest[res.digest], member)
		}
		offset += len(cl.members)

		for _, dg := range order {
			members := byDigest[dg]
			if len(members) < 2 {
				continue
			}
			refined = append(refined, class{size: cl.size, members: members, digest: dg})
		}
	}

	r.log.Debug("digest stage complete", zap.String("stage", stage), zap.Int("classes", len(refined)))
	return refined, nil
}

// verifyClasses compares every member of each class byte-for-byte with the
// class representative. Members that differ form a new class that is
// verified again against its own representative.
func (r *DuplicateResolver) verifyClasses(ctx context.Context, classes []class, report func(Diagnostic)) ([]class, error) {
	var verified []class
	pending := classes

	for len(pending) > 0 {
		type pair struct{ rep, member FileCandidate }
		var jobs []pair
		reps := make([]FileCandidate, len(pending))
		for i := range pending {
			pending[i].members = sortCandidates(pending[i].members, FullContext)
			reps[i] = pending[i].members[0]
			for _, m := range pending[i].members[1:] {
				jobs = append(jobs, pair{rep: reps[i], member: m})
			}
		}

		results, err := runPool(ctx, r.workers, jobs, func(ctx context.Context, p pair) verifyOutcome {
			equal, err := compareMapped(ctx, p.rep, p.member)
			return verifyOutcome{equal: equal, err: err}
		})
		if err != nil {
			return nil, err
		}

		var next []class
		offset := 0
		for i, cl := range pending {
			matched := []FileCandidate{reps[i]}
			var mismatched []FileCandidate
			var repErr error
			for j, m := range cl.members[1:] {
				res := results[offset+j]
				switch {
				case res.err != nil:
					var se *ScanError
					if errors.As(res.err, &se) && se.Path == reps[i].Path {
						repErr = res.err
						mismatched = append(mismatched, m)
						continue
					}
					reportFailure(report, m.Path, res.err)
				case res.equal:
					matched = append(matched, m)
				default:
					r.log.Warn("digest collision split by byte comparison",
						zap.String("representative", reps[i].Path), zap.String("path", m.Path))
					mismatched = append(mismatched, m)
				}
			}
			offset += len(cl.members) - 1

			if repErr != nil {
				// The remaining members are verified against a new representative
				reportFailure(report, reps[i].Path, repErr)
				mismatched = append(matched[1:], mismatched...)
				matched = nil
			}
			if len(matched) >= 2 {
				verified = append(verified, class{size: cl.size, members: matched, digest: cl.digest})
			}
			if len(mismatched) >= 2 {
				next = append(next, class{size: cl.size, members: mismatched, digest: cl.digest})
			}
		}
		pending = next
	}

	return verified, nil
}

// emit converts verified classes into ordered, disjoint groups
func (r *DuplicateResolver) emit(classes []class) ([]DuplicateGroup, error) {
	claimed := newCandidateSet()
	groups := make([]DuplicateGroup, 0, len(classes))

	for _, cl := range classes {
		members := newCandidateSet()
		for _, m := range cl.members {
			members.Insert(m, GroupContext)
		}
		if members.Len() < 2 {
			continue
		}

		var paths []string
		var conflict error
		members.ForEach(func(c FileCandidate, _ string) bool {
			if owner, taken := claimed.Context(c.Path); taken {
				conflict = &ScanError{Kind: KindInternal, Path: c.Path,
					Err: fmt.Errorf("path assigned to duplicate groups %s and %s", owner, cl.digest)}
				return false
			}
			claimed.Insert(c, cl.digest.String())
			paths = append(paths, c.Path)
			return true
		})
		if conflict != nil {
			return nil, conflict
		}

		groups = append(groups, DuplicateGroup{
			Size:      cl.size,
			Digest:    cl.digest.Encoded(),
			Algorithm: cl.digest.Algorithm().String(),
			Paths:     paths,
		})
	}

	sortGroups(groups)
	r.log.Debug("resolved duplicate groups", zap.Int("groups", len(groups)), zap.Int("files", claimed.Len()))
	return groups, nil
}

type digestOutcome struct {
	digest digest.Digest
	err    error
}

type verifyOutcome struct {
	equal bool
	err   error
}

// runPool applies fn to every job on up to workers goroutines. Results are
// collected by the calling goroutine and returned in job order. When ctx is
// cancelled the pool drains and the context's error is returned.
func runPool[J any, R any](ctx context.Context, workers int, jobs []J, fn func(context.Context, J) R) ([]R, error) {
	type indexed struct {
		index  int
		result R
	}

	if workers > len(jobs) {
		workers = len(jobs)
	}
	jobChan := make(chan int)
	resultChan := make(chan indexed, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobChan {
				res := fn(ctx, jobs[i])
				select {
				case resultChan <- indexed{index: i, result: res}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobChan)
		for i := range jobs {
			select {
			case jobChan <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	out := make([]R, len(jobs))
	for res := range resultChan {
		out[res.index] = res.result
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// reportFailure records a dropped candidate using the innermost cause as the reason
func reportFailure(report func(Diagnostic), path string, err error) {
	if report == nil {
		return
	}
	cause := err
	var se *ScanError
	if errors.As(err, &se) {
		cause = se.Err
	}
	report(diagnosticFromError(KindDigest, path, cause))
}
