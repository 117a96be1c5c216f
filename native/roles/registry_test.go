package roles

import (
	"errors"
	"testing"

	"launchpad/core/state"
	"launchpad/storage"
)

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(state.NewManager(storage.NewMemDB()))
	if err := reg.Bootstrap(newTestAddress(0x01)); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return reg
}

func TestBootstrapIsIdempotent(t *testing.T) {
	reg := newTestRegistry(t)
	if err := reg.Bootstrap(newTestAddress(0x02)); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
	got, err := reg.SuperAdmin()
	if err != nil || got != newTestAddress(0x01) {
		t.Fatalf("super admin = %x, %v", got, err)
	}
	if err := NewRegistry(state.NewManager(storage.NewMemDB())).Bootstrap([20]byte{}); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected invalid account, got %v", err)
	}
}

func TestAdminGrantRequiresSuperAdmin(t *testing.T) {
	reg := newTestRegistry(t)
	super, admin, outsider := newTestAddress(0x01), newTestAddress(0x02), newTestAddress(0x03)

	if err := reg.SetAdmin(outsider, admin, true); !errors.Is(err, ErrNotSuperAdmin) {
		t.Fatalf("expected ErrNotSuperAdmin, got %v", err)
	}
	if err := reg.SetAdmin(super, [20]byte{}, true); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
	if err := reg.SetAdmin(super, admin, true); err != nil {
		t.Fatalf("grant admin: %v", err)
	}
	if err := reg.RequireAdmin(admin); err != nil {
		t.Fatalf("admin check: %v", err)
	}
	if err := reg.RequireAdmin(super); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("super admin is not an admin, got %v", err)
	}
	if err := reg.RequireAdminOrSuperAdmin(super); err != nil {
		t.Fatalf("either role: %v", err)
	}
	if err := reg.RequireAdminOrSuperAdmin(outsider); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := reg.SetAdmin(super, admin, false); err != nil {
		t.Fatalf("revoke admin: %v", err)
	}
	if reg.IsAdmin(admin) {
		t.Fatalf("admin not revoked")
	}
}

func TestControllerAndTransfer(t *testing.T) {
	reg := newTestRegistry(t)
	super, next := newTestAddress(0x01), newTestAddress(0x04)
	if err := reg.SetController(super, next, true); err != nil {
		t.Fatalf("grant controller: %v", err)
	}
	if err := reg.RequireController(next); err != nil {
		t.Fatalf("controller check: %v", err)
	}
	if err := reg.RequireController(super); !errors.Is(err, ErrNotController) {
		t.Fatalf("expected ErrNotController, got %v", err)
	}
	if err := reg.TransferSuperAdmin(super, next); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if reg.IsSuperAdmin(super) || !reg.IsSuperAdmin(next) {
		t.Fatalf("super admin not transferred")
	}
}
