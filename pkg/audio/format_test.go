package audio

import (
	"testing"
	"time"
)

func TestBytesPerSecond(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 1, SampleWidth: 2}
	if got := f.BytesPerSecond(); got != 96000 {
		t.Fatalf("BytesPerSecond = %d, want 96000", got)
	}
	stereo := Format{SampleRate: 44100, Channels: 2, SampleWidth: 2}
	if got := stereo.BytesPerSecond(); got != 176400 {
		t.Fatalf("BytesPerSecond = %d, want 176400", got)
	}
}

func TestChunkDuration(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 1, SampleWidth: 2}
	// 96 bytes per millisecond
	if got := f.ChunkDuration(768); got != 8*time.Millisecond {
		t.Fatalf("ChunkDuration(768) = %v, want 8ms", got)
	}
	if got := f.ChunkDuration(96000); got != time.Second {
		t.Fatalf("ChunkDuration(96000) = %v, want 1s", got)
	}
	if got := f.ChunkDuration(0); got != 0 {
		t.Fatalf("ChunkDuration(0) = %v, want 0", got)
	}
}

func TestMinBufferSize(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 1, SampleWidth: 2}
	if got := f.MinBufferSize(); got != 768 {
		t.Fatalf("MinBufferSize = %d, want 768", got)
	}
	stereo := Format{SampleRate: 44100, Channels: 2, SampleWidth: 2}
	if got := stereo.MinBufferSize(); got != 44*2*2*8 {
		t.Fatalf("MinBufferSize stereo = %d, want %d", got, 44*2*2*8)
	}
}

func TestDeviceBufferSize(t *testing.T) {
	if got := DeviceBufferSize(768, 4); got != 3072 {
		t.Fatalf("DeviceBufferSize = %d, want 3072", got)
	}
	// zero multiple falls back to 4
	if got := DeviceBufferSize(768, 0); got != 3072 {
		t.Fatalf("DeviceBufferSize default = %d, want 3072", got)
	}
}

func TestEndpointBuffer(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 1, SampleWidth: 2}
	if got := f.EndpointBuffer(768, 4); got != 3072 {
		t.Fatalf("EndpointBuffer = %d, want 3072", got)
	}
	// tiny chunks are floored at the format minimum
	if got := f.EndpointBuffer(64, 1); got != f.MinBufferSize() {
		t.Fatalf("EndpointBuffer floor = %d, want %d", got, f.MinBufferSize())
	}
}

func TestFormatString(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 1, SampleWidth: 2}
	if got := f.String(); got != "48000Hz/1ch/16bit" {
		t.Fatalf("String = %q", got)
	}
}
