package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"btlink/pkg/audio"
	"btlink/pkg/config"
	"btlink/pkg/control"
	"btlink/pkg/link"
	"btlink/pkg/observability"
	"btlink/pkg/transport"
	"btlink/pkg/transport/l2cap"
	"btlink/pkg/transport/mem"
	"btlink/pkg/transport/tcp"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		return 1
	}
	defer func() { _ = logger.Sync() }()

	zap.L().Info("btlinkd started", zap.String("app", cfg.AppName))
	zap.L().Info("effective configuration", zap.Any("config", cfg))

	tr, err := buildTransport(cfg)
	if err != nil {
		zap.L().Error("failed to init transport", zap.Error(err))
		return 1
	}
	if closer, ok := tr.(io.Closer); ok {
		// the l2cap transport holds a D-Bus connection
		defer closer.Close()
	}
	if cfg.Link.Transport == "mem" {
		zap.L().Warn("mem transport is confined to this process; only self-dials by app name resolve")
	}

	lnk := link.New(tr, buildLinkConfig(cfg, logger), logger)
	defer lnk.Close()

	var ctl *control.Server
	if cfg.Control.Enabled {
		ctl = control.New(cfg.Control, lnk, logger)
		if err := ctl.Start(); err != nil {
			zap.L().Error("failed to start control api", zap.Error(err))
			return 1
		}
	}

	lnk.Start()
	if opts.Peer != "" {
		lnk.Connect(opts.Peer, opts.Sender)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	zap.L().Info("shutting down", zap.String("signal", sig.String()))

	if ctl != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ctl.Shutdown(ctx); err != nil {
			zap.L().Warn("control api shutdown failed", zap.Error(err))
		}
	}
	return 0
}

func buildTransport(cfg *config.Config) (transport.Transport, error) {
	switch cfg.Link.Transport {
	case "l2cap":
		return l2cap.New(l2cap.Config{
			PSM:     cfg.Link.PSM,
			Adapter: cfg.Link.Adapter,
		})
	case "tcp":
		return tcp.New(cfg.Link.ListenAddr), nil
	case "mem":
		// single-process smoke runs only
		return mem.NewNetwork().Transport(cfg.AppName), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Link.Transport)
	}
}

// buildLinkConfig wires the configured audio endpoints into the link.
// Live capture and playback devices are embedder-supplied; this daemon
// ships with file endpoints only, so device-backed settings degrade to a
// startup warning.
func buildLinkConfig(cfg *config.Config, log *zap.Logger) link.Config {
	lc := link.Config{
		Format: audio.Format{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			SampleWidth: cfg.Audio.SampleWidth,
		},
		ChunkSize: cfg.Audio.BufferSize,
		Loopback:  cfg.Audio.Loopback,
	}

	bufSize := lc.Format.EndpointBuffer(cfg.Audio.BufferSize, cfg.Audio.DeviceBufferMultiple)

	switch cfg.Audio.Source {
	case "file":
		path := cfg.Audio.InputFile
		lc.NewSource = func() (audio.Source, error) {
			return audio.OpenFileSource(path, bufSize)
		}
	case "capture":
		log.Warn("no capture device backend built in; sending disabled, set audio.source to file")
	}

	if cfg.Audio.ToFile {
		path := cfg.Audio.OutputFile
		lc.NewFileSink = func() (audio.Sink, error) {
			return audio.CreateFileSink(path, bufSize)
		}
	}
	if cfg.Audio.Playback {
		log.Warn("no playback device backend built in; received audio is discarded unless audio.to_file is set")
	}
	return lc
}
