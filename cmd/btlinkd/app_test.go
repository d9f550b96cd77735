package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"btlink/pkg/config"
	"btlink/pkg/transport"
)

func TestBuildTransportKinds(t *testing.T) {
	cfg := config.Default()

	cfg.Link.Transport = "tcp"
	tr, err := buildTransport(cfg)
	if err != nil {
		t.Fatalf("tcp: %v", err)
	}
	if tr.Kind() != transport.KindTCP {
		t.Fatalf("tcp kind = %v", tr.Kind())
	}
	if _, ok := tr.(io.Closer); ok {
		t.Fatal("tcp transport unexpectedly holds closable resources")
	}

	cfg.Link.Transport = "mem"
	tr, err = buildTransport(cfg)
	if err != nil {
		t.Fatalf("mem: %v", err)
	}
	if tr.Kind() != transport.KindMem {
		t.Fatalf("mem kind = %v", tr.Kind())
	}

	cfg.Link.Transport = "carrier-pigeon"
	if _, err := buildTransport(cfg); err == nil {
		t.Fatal("unknown transport accepted")
	}
}

func TestBuildLinkConfigWiresFileEndpoints(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pcm")
	if err := os.WriteFile(in, make([]byte, 128), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	cfg := config.Default()
	cfg.Audio.Source = "file"
	cfg.Audio.InputFile = in
	cfg.Audio.ToFile = true
	cfg.Audio.OutputFile = filepath.Join(dir, "out.pcm")

	lc := buildLinkConfig(cfg, zap.NewNop())
	if lc.ChunkSize != 768 {
		t.Fatalf("chunk size = %d", lc.ChunkSize)
	}
	if lc.Format.BytesPerSecond() != 96000 {
		t.Fatalf("byte rate = %d", lc.Format.BytesPerSecond())
	}

	if lc.NewSource == nil {
		t.Fatal("file source not wired")
	}
	src, err := lc.NewSource()
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	src.Close()

	if lc.NewFileSink == nil {
		t.Fatal("file sink not wired")
	}
	sink, err := lc.NewFileSink()
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	sink.Close()

	// no playback backend ships with the daemon
	if lc.NewPlayback != nil {
		t.Fatal("playback factory wired without a backend")
	}
}

func TestBuildLinkConfigCaptureUnavailable(t *testing.T) {
	cfg := config.Default()
	lc := buildLinkConfig(cfg, zap.NewNop())
	if lc.NewSource != nil {
		t.Fatal("capture source wired without a backend")
	}
}
