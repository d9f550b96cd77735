package audio

import (
	"bytes"
	"errors"
	"sync"
)

// BufferSource serves chunks from an in-memory byte slice. Used in tests
// and as a stand-in capture endpoint.
type BufferSource struct {
	mu     sync.Mutex
	r      *bytes.Reader
	closed bool
}

func NewBufferSource(data []byte) *BufferSource {
	return &BufferSource{r: bytes.NewReader(data)}
}

func (s *BufferSource) ReadChunk(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.New("audio: buffer source closed")
	}
	return s.r.Read(buf)
}

func (s *BufferSource) Realtime() bool { return false }

func (s *BufferSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// BufferSink collects written chunks in memory.
type BufferSink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes []int
	failAt int // write index to start failing at; <0 disables
	closed bool
}

func NewBufferSink() *BufferSink {
	return &BufferSink{failAt: -1}
}

// FailAfter makes the sink error on the n-th WriteChunk and later ones.
func (s *BufferSink) FailAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAt = n
}

func (s *BufferSink) WriteChunk(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("audio: buffer sink closed")
	}
	if s.failAt >= 0 && len(s.writes) >= s.failAt {
		return errors.New("audio: buffer sink write failure")
	}
	s.writes = append(s.writes, len(p))
	s.buf.Write(p)
	return nil
}

func (s *BufferSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Bytes returns a copy of everything written so far.
func (s *BufferSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())
	return out
}

// Writes returns the sizes of the chunks written so far.
func (s *BufferSink) Writes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.writes))
	copy(out, s.writes)
	return out
}
