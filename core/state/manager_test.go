package state

import (
	"errors"
	"math/big"
	"testing"

	"launchpad/storage"
)

type record struct {
	ID     uint64
	Owner  [20]byte
	Amount *big.Int
	Closed bool
}

func newTestManager(t *testing.T) (*Manager, *storage.MemDB) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db), db
}

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

func TestKVRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)
	in := record{ID: 7, Owner: addr(0x01), Amount: big.NewInt(42), Closed: true}
	if err := mgr.KVPut([]byte("rec/7"), in); err != nil {
		t.Fatalf("put: %v", err)
	}
	var out record
	ok, err := mgr.KVGet([]byte("rec/7"), &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.ID != 7 || out.Owner != in.Owner || out.Amount.Cmp(in.Amount) != 0 || !out.Closed {
		t.Fatalf("unexpected record: %+v", out)
	}
	if err := mgr.KVDelete([]byte("rec/7")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = mgr.KVGet([]byte("rec/7"), &out)
	if err != nil || ok {
		t.Fatalf("expected missing record, ok=%v err=%v", ok, err)
	}
}

func TestKVListAppendRemove(t *testing.T) {
	mgr, _ := newTestManager(t)
	key := []byte("list")
	for _, v := range [][]byte{{1}, {2}, {1}, {3}} {
		if err := mgr.KVAppend(key, v); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	var list [][]byte
	if err := mgr.KVGetList(key, &list); err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected deduplicated list of 3, got %d", len(list))
	}
	removed, err := mgr.KVRemove(key, []byte{2})
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	removed, err = mgr.KVRemove(key, []byte{9})
	if err != nil || removed {
		t.Fatalf("remove missing: removed=%v err=%v", removed, err)
	}
	if err := mgr.KVGetList(key, &list); err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0][0] != 1 || list[1][0] != 3 {
		t.Fatalf("unexpected list after removal: %v", list)
	}

	var empty [][]byte
	if err := mgr.KVGetList([]byte("absent"), &empty); err != nil {
		t.Fatalf("list absent: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice")
	}
}

func TestAtomicCommitsOnSuccess(t *testing.T) {
	mgr, db := newTestManager(t)
	err := mgr.Atomic(func() error {
		if err := mgr.Credit(addr(0x01), big.NewInt(10)); err != nil {
			return err
		}
		bal, err := mgr.Balance(addr(0x01))
		if err != nil {
			return err
		}
		if bal.Cmp(big.NewInt(10)) != 0 {
			t.Fatalf("buffered read returned %s", bal)
		}
		if db.Len() != 0 {
			t.Fatalf("write reached backend before commit")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
	bal, err := mgr.Balance(addr(0x01))
	if err != nil || bal.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("balance after commit = %v, %v", bal, err)
	}
}

func TestAtomicDiscardsOnError(t *testing.T) {
	mgr, _ := newTestManager(t)
	if err := mgr.Credit(addr(0x01), big.NewInt(5)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	boom := errors.New("boom")
	err := mgr.Atomic(func() error {
		if err := mgr.Transfer(addr(0x01), addr(0x02), big.NewInt(5)); err != nil {
			return err
		}
		return mgr.Atomic(func() error { return boom })
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	from, _ := mgr.Balance(addr(0x01))
	to, _ := mgr.Balance(addr(0x02))
	if from.Cmp(big.NewInt(5)) != 0 || to.Sign() != 0 {
		t.Fatalf("transfer leaked: from=%s to=%s", from, to)
	}
}

func TestTransferInsufficient(t *testing.T) {
	mgr, _ := newTestManager(t)
	err := mgr.Transfer(addr(0x01), addr(0x02), big.NewInt(1))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestRoles(t *testing.T) {
	mgr, _ := newTestManager(t)
	if err := mgr.SetRole("admin", addr(0x02)); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if err := mgr.SetRole("admin", addr(0x01)); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if err := mgr.SetRole("admin", addr(0x01)); err != nil {
		t.Fatalf("set role twice: %v", err)
	}
	members, err := mgr.RoleMembers("admin")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 2 || members[0] != addr(0x01) {
		t.Fatalf("unexpected members: %x", members)
	}
	if !mgr.HasRole("admin", addr(0x02)) || mgr.HasRole("admin", addr(0x03)) {
		t.Fatalf("unexpected HasRole result")
	}
	if err := mgr.RemoveRole("admin", addr(0x02)); err != nil {
		t.Fatalf("remove role: %v", err)
	}
	if mgr.HasRole("admin", addr(0x02)) {
		t.Fatalf("role not removed")
	}
}
