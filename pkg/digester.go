package lsdups

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
	"go.uber.org/zap"
)

// Digester computes partial and full content digests for candidates
type Digester struct {
	alg         *HashAlgorithm
	partialSize uint64
	bufferSize  int
	empty       digest.Digest
	log         *zap.Logger

	filesOpened    atomic.Int64
	bytesRead      atomic.Int64
	partialDigests atomic.Int64
	fullDigests    atomic.Int64
}

// DigestStats counts the I/O performed by a Digester
type DigestStats struct {
	FilesOpened    int64 `json:"files_opened" yaml:"files_opened"`
	BytesRead      int64 `json:"bytes_read" yaml:"bytes_read"`
	PartialDigests int64 `json:"partial_digests" yaml:"partial_digests"`
	FullDigests    int64 `json:"full_digests" yaml:"full_digests"`
}

// NewDigester creates a digester hashing the first partialSize bytes for the
// partial digest and reading through a buffer of bufferSize bytes
func NewDigester(alg *HashAlgorithm, partialSize uint64, bufferSize int) *Digester {
	if partialSize == 0 {
		partialSize = 4 << 10
	}
	if bufferSize <= 0 {
		bufferSize = 2 << 20
	}
	return &Digester{
		alg:         alg,
		partialSize: partialSize,
		bufferSize:  bufferSize,
		empty:       alg.Digest(alg.New().Sum(nil)),
		log:         zap.NewNop(),
	}
}

// SetLogger routes the digester's per-file debug output to logger
func (d *Digester) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d.log = logger
}

// NewDigesterFromConfig builds a digester from the [filehash], [digest] and [performance] settings
func NewDigesterFromConfig(cfg *Config) (*Digester, error) {
	alg, err := GetHashAlgorithm(cfg.GetHashConfig().Default)
	if err != nil {
		return nil, err
	}

	partialSize, err := ParseHumanSize(cfg.GetDigestConfig().PartialSize)
	if err != nil {
		return nil, fmt.Errorf("invalid partial_size: %w", err)
	}

	bufferSize, err := ParseHumanSize(cfg.GetPerformanceConfig().HashBuffer)
	if err != nil {
		return nil, fmt.Errorf("invalid hash_buffer: %w", err)
	}
	if bufferSize > 1<<30 {
		return nil, fmt.Errorf("hash_buffer too large: %s", cfg.GetPerformanceConfig().HashBuffer)
	}

	return NewDigester(alg, partialSize, int(bufferSize)), nil
}

// Algorithm returns the hash algorithm in use
func (d *Digester) Algorithm() *HashAlgorithm {
	return d.alg
}

// EmptyDigest returns the digest of zero bytes
func (d *Digester) EmptyDigest() digest.Digest {
	return d.empty
}

// PartialSize returns the number of leading bytes covered by a partial digest
func (d *Digester) PartialSize() uint64 {
	return d.partialSize
}

// PartialCoversWhole reports whether a partial digest of a file of size covers all of it
func (d *Digester) PartialCoversWhole(size uint64) bool {
	return size <= d.partialSize
}

// Stats returns a snapshot of the I/O counters
func (d *Digester) Stats() DigestStats {
	return DigestStats{
		FilesOpened:    d.filesOpened.Load(),
		BytesRead:      d.bytesRead.Load(),
		PartialDigests: d.partialDigests.Load(),
		FullDigests:    d.fullDigests.Load(),
	}
}

// PartialDigest hashes the first PartialSize bytes of c, or all of it when shorter
func (d *Digester) PartialDigest(ctx context.Context, c FileCandidate) (digest.Digest, error) {
	limit := c.Size
	if limit > d.partialSize {
		limit = d.partialSize
	}
	dg, err := d.digest(ctx, c, limit)
	if err == nil {
		d.partialDigests.Add(1)
	}
	return dg, err
}

// FullDigest hashes the entire content of c in bounded chunks
func (d *Digester) FullDigest(ctx context.Context, c FileCandidate) (digest.Digest, error) {
	dg, err := d.digest(ctx, c, c.Size)
	if err == nil {
		d.fullDigests.Add(1)
	}
	return dg, err
}

// digest hashes the first limit bytes of c. Empty files are never opened.
func (d *Digester) digest(ctx context.Context, c FileCandidate, limit uint64) (digest.Digest, error) {
	if c.IsEmpty() {
		return d.empty, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	file, err := os.Open(c.Path)
	if err != nil {
		return "", &ScanError{Kind: KindDigest, Path: c.Path, Err: fmt.Errorf("failed to open file: %w", err)}
	}
	defer file.Close()
	d.filesOpened.Add(1)
	d.log.Debug("hashing file", zap.String("path", c.Path), zap.Uint64("size", c.Size), zap.Uint64("limit", limit))

	info, err := file.Stat()
	if err != nil {
		return "", &ScanError{Kind: KindDigest, Path: c.Path, Err: fmt.Errorf("failed to stat file: %w", err)}
	}
	if uint64(info.Size()) != c.Size {
		d.log.Debug("size changed since walk", zap.String("path", c.Path),
			zap.Uint64("walked", c.Size), zap.Int64("now", info.Size()))
		return "", &ScanError{Kind: KindDigest, Path: c.Path,
			Err: fmt.Errorf("%w: size %d, now %d", ErrFileChanged, c.Size, info.Size())}
	}

	bufLen := d.bufferSize
	if uint64(bufLen) > limit {
		bufLen = int(limit)
	}

	hasher := d.alg.New()
	n, err := hashInterruptible(file, hasher, make([]byte, bufLen), int64(limit), ctx.Done())
	d.bytesRead.Add(n)
	if errors.Is(err, errInterrupted) {
		return "", ctx.Err()
	}
	if err != nil {
		return "", &ScanError{Kind: KindDigest, Path: c.Path, Err: fmt.Errorf("failed to read file: %w", err)}
	}
	if uint64(n) != limit {
		d.log.Debug("file truncated while reading", zap.String("path", c.Path),
			zap.Int64("read", n), zap.Uint64("expected", limit))
		return "", &ScanError{Kind: KindDigest, Path: c.Path,
			Err: fmt.Errorf("%w: truncated to %d bytes while reading", ErrFileChanged, n)}
	}

	return d.alg.Digest(hasher.Sum(nil)), nil
}
