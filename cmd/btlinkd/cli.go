package main

import "flag"

// Options holds CLI options for the daemon.
type Options struct {
	ConfigPath string

	// Peer is an address to dial immediately after startup. Empty means
	// stay in listening mode until the control API says otherwise.
	Peer string

	// Sender marks this side as the audio sender for the initial dial.
	Sender bool
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string) Options {
	fs := flag.NewFlagSet("btlinkd", flag.ExitOnError)
	var opts Options
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
	fs.StringVar(&opts.Peer, "connect", "", "Peer address to dial on startup (BD address for l2cap)")
	fs.BoolVar(&opts.Sender, "sender", false, "Act as the audio sender for the startup dial")
	_ = fs.Parse(args)
	return opts
}
