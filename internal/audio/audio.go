// Package audio provides the streaming-host side of the daemon: delivery of
// raw sample chunks and discontinuity signaling. The real implementations
// read S16LE mono PCM from a stream or a named pipe; the fake scripts
// chunks for tests.
package audio

// DefaultChunkSamples is the per-chunk sample count: 20ms at 8kHz.
const DefaultChunkSamples = 160

// Chunk is one delivery from the streaming host. Discont marks a break in
// stream continuity; the consumer must reset entry state and reinitialize
// the tone detector before processing Samples.
type Chunk struct {
	Samples []int16
	Discont bool
}

// Source delivers audio chunks. ReadChunk returns io.EOF when the stream
// ends, which tears down the session.
type Source interface {
	ReadChunk() (Chunk, error)
	Close() error
}
