package audio

// Source produces chunks of bytes for the sender pump. Implementations are
// a PCM file, a live capture device, or an in-memory buffer in tests.
type Source interface {
	// ReadChunk fills up to len(buf) bytes and returns the count read.
	// io.EOF signals the source is exhausted; live sources never return it.
	ReadChunk(buf []byte) (int, error)

	// Realtime reports whether reads already pace themselves to the wall
	// clock (live capture). The sender pump sleeps between chunks of a
	// non-realtime source to hold the stream at playback rate.
	Realtime() bool

	Close() error
}

// Sink consumes chunks from the receiver pump.
type Sink interface {
	// WriteChunk consumes exactly p.
	WriteChunk(p []byte) error

	Close() error
}

// CaptureDevice is a live audio input, supplied by the embedder.
// ReadChunk blocks at the device's capture rate; Stop unblocks a pending
// read and must be safe to call more than once.
type CaptureDevice interface {
	Source
	Start() error
	Stop() error
}

// PlaybackDevice is a live audio output, supplied by the embedder.
type PlaybackDevice interface {
	Sink
	Start() error
	Stop() error
}
