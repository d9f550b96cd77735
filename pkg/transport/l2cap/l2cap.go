// Package l2cap implements the transport over Bluetooth L2CAP
// connection-oriented channels, using BlueZ for adapter housekeeping.
package l2cap

import (
	"fmt"
	"strconv"
	"strings"
)

// Config selects the channel and the local adapter.
type Config struct {
	// PSM is the protocol/service multiplexer the channel binds and dials.
	// Only the low 16 bits reach the socket layer.
	PSM uint32

	// Adapter optionally names the local adapter (e.g. "hci0");
	// empty selects the first powered one.
	Adapter string
}

// parseBDAddr converts "AA:BB:CC:DD:EE:FF" to the byte order the socket
// layer expects (bdaddr_t is little-endian, so the string is reversed).
func parseBDAddr(s string) ([6]byte, error) {
	var out [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return out, fmt.Errorf("l2cap: invalid device address %q", s)
	}
	for i, p := range parts {
		b, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return out, fmt.Errorf("l2cap: invalid device address %q", s)
		}
		out[5-i] = byte(b)
	}
	return out, nil
}

func formatBDAddr(b [6]byte) string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", b[5], b[4], b[3], b[2], b[1], b[0])
}
