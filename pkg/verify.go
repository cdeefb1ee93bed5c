package lsdups

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"unsafe"

	"golang.org/x/sys/unix"
)

// verifyChunk is the stride between cancellation checks while comparing mappings
const verifyChunk = 1 << 20

// mappedFile is a read-only memory mapping of a whole file
type mappedFile struct {
	file *os.File
	data []byte
}

// mapFile maps c read-only after checking its size still matches
func mapFile(c FileCandidate) (*mappedFile, error) {
	file, err := os.Open(c.Path)
	if err != nil {
		return nil, &ScanError{Kind: KindDigest, Path: c.Path, Err: fmt.Errorf("failed to open file: %w", err)}
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, &ScanError{Kind: KindDigest, Path: c.Path, Err: fmt.Errorf("failed to stat file: %w", err)}
	}
	if uint64(info.Size()) != c.Size {
		file.Close()
		return nil, &ScanError{Kind: KindDigest, Path: c.Path,
			Err: fmt.Errorf("%w: size %d, now %d", ErrFileChanged, c.Size, info.Size())}
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(c.Size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, &ScanError{Kind: KindDigest, Path: c.Path, Err: fmt.Errorf("failed to mmap file: %w", err)}
	}
	// Advisory only; a failure here does not affect the comparison
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return &mappedFile{file: file, data: data}, nil
}

// contains reports whether addr falls inside the mapping
func (m *mappedFile) contains(addr uintptr) bool {
	if len(m.data) == 0 {
		return false
	}
	start := uintptr(unsafe.Pointer(&m.data[0]))
	return addr >= start && addr < start+uintptr(len(m.data))
}

func (m *mappedFile) Close() error {
	err := unix.Munmap(m.data)
	if cerr := m.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// compareMapped reports whether a and b have byte-identical content. Both
// candidates must have the same size. Empty files are equal without being opened.
func compareMapped(ctx context.Context, a, b FileCandidate) (bool, error) {
	if a.Size != b.Size {
		return false, nil
	}
	if a.IsEmpty() {
		return true, nil
	}

	ma, err := mapFile(a)
	if err != nil {
		return false, err
	}
	defer ma.Close()

	mb, err := mapFile(b)
	if err != nil {
		return false, err
	}
	defer mb.Close()

	return compareMappings(ctx, a, b, ma, mb)
}

// compareMappings compares two mappings of equal length chunk by chunk. A
// file truncated after it was mapped faults on access; the fault is turned
// into ErrFileChanged for whichever file it hit.
func compareMappings(ctx context.Context, a, b FileCandidate, ma, mb *mappedFile) (equal bool, err error) {
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		fault, ok := r.(interface{ Addr() uintptr })
		if !ok {
			panic(r)
		}
		path := a.Path
		if mb.contains(fault.Addr()) {
			path = b.Path
		}
		equal = false
		err = &ScanError{Kind: KindDigest, Path: path,
			Err: fmt.Errorf("%w: mapping faulted during comparison", ErrFileChanged)}
	}()

	for offset := 0; offset < len(ma.data); offset += verifyChunk {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		end := offset + verifyChunk
		if end > len(ma.data) {
			end = len(ma.data)
		}
		if !bytes.Equal(ma.data[offset:end], mb.data[offset:end]) {
			return false, nil
		}
	}

	return true, nil
}
