package audio

import "io"

// FakeSource is a test double that delivers scripted chunks.
type FakeSource struct {
	// Chunks contains the scripted deliveries. Each call to ReadChunk
	// consumes the next one; once exhausted, ReadChunk returns io.EOF.
	Chunks []Chunk

	index int

	// ReadError, if set, will be returned by ReadChunk.
	ReadError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSource creates a FakeSource with the given chunks.
func NewFakeSource(chunks ...Chunk) *FakeSource {
	return &FakeSource{Chunks: chunks}
}

// ReadChunk returns the next scripted chunk.
func (f *FakeSource) ReadChunk() (Chunk, error) {
	if f.ReadError != nil {
		return Chunk{}, f.ReadError
	}
	if f.index >= len(f.Chunks) {
		return Chunk{}, io.EOF
	}
	c := f.Chunks[f.index]
	f.index++
	return c, nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}
