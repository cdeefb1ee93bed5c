package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/google/vectorio"
)

// maxIovecs bounds each writev call; Linux IOV_MAX is 1024
const maxIovecs = 1024

// vectorWriter collects report segments and writes them to a file with writev
type vectorWriter struct {
	file     *os.File
	segments [][]byte
	pending  int
}

func newVectorWriter(file *os.File) *vectorWriter {
	return &vectorWriter{file: file}
}

// Write queues a copy of p; nothing reaches the file until Flush
func (vw *vectorWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	segment := make([]byte, len(p))
	copy(segment, p)
	vw.segments = append(vw.segments, segment)
	vw.pending += len(p)
	return len(p), nil
}

// Flush writes every queued segment in IOV_MAX sized batches
func (vw *vectorWriter) Flush() error {
	defer func() {
		vw.segments = vw.segments[:0]
		vw.pending = 0
	}()

	for offset := 0; offset < len(vw.segments); offset += maxIovecs {
		end := offset + maxIovecs
		if end > len(vw.segments) {
			end = len(vw.segments)
		}
		if err := vw.writeBatch(vw.segments[offset:end]); err != nil {
			return err
		}
	}
	return nil
}

func (vw *vectorWriter) writeBatch(batch [][]byte) error {
	iovecs := make([]syscall.Iovec, len(batch))
	expected := 0
	for i, segment := range batch {
		iovecs[i].Base = &segment[0]
		iovecs[i].SetLen(len(segment))
		expected += len(segment)
	}

	nw, err := vectorio.WritevRaw(uintptr(vw.file.Fd()), iovecs)
	if err != nil {
		return fmt.Errorf("failed to write report with vectorio: %w", err)
	}
	if nw == expected {
		return nil
	}

	// Pipes and terminals may accept a short write; finish the batch sequentially
	for _, segment := range batch {
		if nw >= len(segment) {
			nw -= len(segment)
			continue
		}
		if _, err := vw.file.Write(segment[nw:]); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		nw = 0
	}
	return nil
}
