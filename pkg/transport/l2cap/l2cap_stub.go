//go:build !linux

package l2cap

import (
	"context"
	"fmt"

	"btlink/pkg/transport"
)

// Transport is unavailable off Linux; BlueZ and AF_BLUETOOTH sockets are
// Linux-only. The tcp and mem transports remain usable everywhere.
type Transport struct{}

func New(Config) (*Transport, error) {
	return nil, fmt.Errorf("l2cap: unsupported on this platform: %w", transport.ErrAdapterUnavailable)
}

func (t *Transport) Kind() transport.Kind { return transport.KindL2CAP }
func (t *Transport) Adapter() string      { return "" }
func (t *Transport) Close() error         { return nil }

func (t *Transport) Listen(context.Context) (transport.Listener, error) {
	return nil, fmt.Errorf("l2cap: unsupported on this platform: %w", transport.ErrAdapterUnavailable)
}

func (t *Transport) Dial(context.Context, string) (transport.Socket, error) {
	return nil, fmt.Errorf("l2cap: unsupported on this platform: %w", transport.ErrAdapterUnavailable)
}
