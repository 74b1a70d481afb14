package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// StreamSource reads S16LE mono PCM from an io.Reader in fixed-size chunks.
// EOF ends the session; a StreamSource never signals a discontinuity on its
// own.
type StreamSource struct {
	r            io.Reader
	closer       io.Closer
	chunkSamples int
}

// NewStreamSource wraps r. If r is also an io.Closer it is closed by Close.
// chunkSamples <= 0 selects DefaultChunkSamples.
func NewStreamSource(r io.Reader, chunkSamples int) *StreamSource {
	if chunkSamples <= 0 {
		chunkSamples = DefaultChunkSamples
	}
	s := &StreamSource{r: r, chunkSamples: chunkSamples}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// ReadChunk reads the next chunk. A short final read yields a short chunk;
// the following call returns io.EOF.
func (s *StreamSource) ReadChunk() (Chunk, error) {
	buf := make([]byte, s.chunkSamples*2)
	n, err := io.ReadFull(s.r, buf)
	if n == 0 {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return Chunk{}, err
	}
	// Drop a trailing odd byte; S16 samples are two bytes.
	n -= n % 2

	samples := make([]int16, n/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return Chunk{Samples: samples}, nil
}

// Close closes the underlying reader when it supports closing.
func (s *StreamSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// PipeSource reads S16LE mono PCM from a named pipe and survives writer
// turnover: when the current writer disconnects (EOF), the pipe is reopened
// and the first chunk from the next writer carries the discontinuity flag.
// Close may be called from another goroutine while ReadChunk is blocked.
type PipeSource struct {
	path         string
	chunkSamples int

	mu      sync.Mutex
	f       *os.File
	discont bool
	closed  bool
}

// NewPipeSource opens the named pipe at path, blocking until a writer
// connects.
func NewPipeSource(path string, chunkSamples int) (*PipeSource, error) {
	if chunkSamples <= 0 {
		chunkSamples = DefaultChunkSamples
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio pipe: %w", err)
	}
	return &PipeSource{path: path, chunkSamples: chunkSamples, f: f}, nil
}

// ReadChunk reads the next chunk, reopening the pipe across writer EOFs.
// After Close it returns io.EOF.
func (p *PipeSource) ReadChunk() (Chunk, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return Chunk{}, io.EOF
		}
		f := p.f
		p.mu.Unlock()

		src := NewStreamSource(f, p.chunkSamples)
		chunk, err := src.ReadChunk()
		if err == nil {
			p.mu.Lock()
			chunk.Discont = p.discont
			p.discont = false
			p.mu.Unlock()
			return chunk, nil
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			// Close interrupted the read; a closed-file error here is
			// part of normal teardown.
			return Chunk{}, io.EOF
		}
		p.f.Close()
		p.mu.Unlock()

		if err != io.EOF && err != io.ErrUnexpectedEOF {
			return Chunk{}, err
		}

		// Writer went away. Reopen and flag the break. Open blocks until
		// the next writer, outside the lock so Close stays responsive.
		log.Printf("audio: pipe writer disconnected, reopening %s", p.path)
		f, openErr := os.Open(p.path)
		if openErr != nil {
			return Chunk{}, fmt.Errorf("reopen audio pipe: %w", openErr)
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			f.Close()
			return Chunk{}, io.EOF
		}
		p.f = f
		p.discont = true
		p.mu.Unlock()
	}
}

// Close closes the pipe. A ReadChunk blocked on the pipe returns io.EOF
// once the read is interrupted or the writer side next disconnects.
func (p *PipeSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.f.Close()
}
