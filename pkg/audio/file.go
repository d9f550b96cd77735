package audio

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// FileSource reads chunks sequentially from a PCM file.
type FileSource struct {
	f *os.File
	r *bufio.Reader
}

// OpenFileSource opens path for reading. bufSize sizes the read-ahead
// buffer; values below bufio's minimum fall back to the default.
func OpenFileSource(path string, bufSize int) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open source %s: %w", path, err)
	}
	return &FileSource{f: f, r: bufio.NewReaderSize(f, bufSize)}, nil
}

func (s *FileSource) ReadChunk(buf []byte) (int, error) {
	return s.r.Read(buf)
}

func (s *FileSource) Realtime() bool { return false }

func (s *FileSource) Close() error { return s.f.Close() }

// FileSink appends chunks to a PCM file through a buffered writer.
type FileSink struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

// CreateFileSink creates (or truncates) path for writing. bufSize sizes
// the write buffer the same way OpenFileSource sizes its read buffer.
func CreateFileSink(path string, bufSize int) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create sink %s: %w", path, err)
	}
	return &FileSink{f: f, w: bufio.NewWriterSize(f, bufSize)}, nil
}

func (s *FileSink) WriteChunk(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(p); err != nil {
		return fmt.Errorf("audio: file sink write: %w", err)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ferr := s.w.Flush()
	cerr := s.f.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}
