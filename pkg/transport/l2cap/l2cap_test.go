package l2cap

import "testing"

func TestParseBDAddr(t *testing.T) {
	got, err := parseBDAddr("00:1A:7D:DA:71:13")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// bdaddr_t is little-endian: string bytes land reversed
	want := [6]byte{0x13, 0x71, 0xDA, 0x7D, 0x1A, 0x00}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseBDAddrRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "00:11:22:33:44", "xx:11:22:33:44:55", "001122334455"} {
		if _, err := parseBDAddr(s); err == nil {
			t.Errorf("parseBDAddr(%q) accepted", s)
		}
	}
}

func TestFormatBDAddrRoundTrip(t *testing.T) {
	const addr = "98:D3:31:F5:B2:A1"
	b, err := parseBDAddr(addr)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := formatBDAddr(b); got != addr {
		t.Fatalf("got %q, want %q", got, addr)
	}
}
