package membership

import (
	"errors"
	"testing"

	"launchpad/core/state"
	"launchpad/native/roles"
	"launchpad/storage"
)

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestMintGatesOnAdmins(t *testing.T) {
	mgr := state.NewManager(storage.NewMemDB())
	reg := roles.NewRegistry(mgr)
	super := newTestAddress(0x01)
	if err := reg.Bootstrap(super); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	tok := New(mgr, reg)
	user := newTestAddress(0x05)

	if _, err := tok.Mint(user, user, "ipfs://x"); !errors.Is(err, roles.ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if tok.Has(user) {
		t.Fatalf("unexpected membership")
	}
	id, err := tok.Mint(super, user, "ipfs://x")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if id != 1 || !tok.Has(user) {
		t.Fatalf("mint id=%d has=%v", id, tok.Has(user))
	}
	if _, err := tok.Mint(super, user, ""); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
	if _, err := tok.Mint(super, [20]byte{}, ""); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
	badge, ok, err := tok.Badge(user)
	if err != nil || !ok || badge.URI != "ipfs://x" {
		t.Fatalf("badge = %+v ok=%v err=%v", badge, ok, err)
	}
}
