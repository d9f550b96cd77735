// Package audio defines the PCM format arithmetic and the chunk-oriented
// source/sink endpoints the pumps move bytes between.
package audio

import (
	"fmt"
	"time"
)

// Format describes raw PCM audio.
type Format struct {
	// SampleRate in Hz
	SampleRate int
	// Channels: 1 or 2
	Channels int
	// SampleWidth in bytes per sample
	SampleWidth int
}

// BytesPerSecond returns the byte rate of the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.SampleWidth
}

// ChunkDuration returns the playback time n bytes represent, at
// millisecond granularity. A sender pacing a non-realtime source sleeps
// this long per chunk.
func (f Format) ChunkDuration(n int) time.Duration {
	bytesPerMilli := f.SampleRate / 1000 * f.SampleWidth * f.Channels
	if bytesPerMilli <= 0 {
		return 0
	}
	return time.Duration(n/bytesPerMilli) * time.Millisecond
}

// periodMillis is the device period the chunk sizing derives from:
// 768 bytes at 48 kHz mono 16-bit is 8 ms of audio.
const periodMillis = 8

// MinBufferSize returns the smallest usable endpoint buffer for the
// format, one device period of bytes.
func (f Format) MinBufferSize() int {
	return f.SampleRate / 1000 * f.SampleWidth * f.Channels * periodMillis
}

// DeviceBufferSize returns the device-internal buffer size for a chunk
// size and multiple, matching how capture/playback devices are opened
// with several chunks of headroom.
func DeviceBufferSize(chunkSize, multiple int) int {
	if multiple <= 0 {
		multiple = 4
	}
	return chunkSize * multiple
}

// EndpointBuffer returns DeviceBufferSize floored at the format's
// minimum; endpoints size their internal buffering with it.
func (f Format) EndpointBuffer(chunkSize, multiple int) int {
	n := DeviceBufferSize(chunkSize, multiple)
	if min := f.MinBufferSize(); n < min {
		return min
	}
	return n
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%dbit", f.SampleRate, f.Channels, f.SampleWidth*8)
}
