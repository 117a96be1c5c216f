package types

import "testing"

func TestParseAddressRoundTrip(t *testing.T) {
	addr, err := ParseAddress(" 0x00000000000000000000000000000000000000aa ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addr[19] != 0xaa || IsZeroAddress(addr) {
		t.Fatalf("unexpected address %x", addr)
	}
	again, err := ParseAddress(HexAddress(addr))
	if err != nil || again != addr {
		t.Fatalf("round trip mismatch: %x %v", again, err)
	}
	if _, err := ParseAddress("0x1234"); err == nil {
		t.Fatalf("expected error for short address")
	}
	if !IsZeroAddress([20]byte{}) {
		t.Fatalf("zero address not detected")
	}
}
