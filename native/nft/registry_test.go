package nft

import (
	"errors"
	"math/big"
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
	reg := NewRegistry()
	reg.SetState(state.NewManager(storage.NewMemDB()))
	for _, col := range []*Collection{
		{Address: newTestAddress(0xA1), Owner: newTestAddress(0x01), Kind: KindSingle, RoyaltyReceiver: newTestAddress(0x09), RoyaltyFee: 1000},
		{Address: newTestAddress(0xA2), Owner: newTestAddress(0x01), Kind: KindMulti},
	} {
		if err := reg.Deploy(col); err != nil {
			t.Fatalf("deploy: %v", err)
		}
	}
	return reg
}

func TestDeployAndKind(t *testing.T) {
	reg := newTestRegistry(t)
	if reg.Kind(newTestAddress(0xA1)) != KindSingle || reg.Kind(newTestAddress(0xA2)) != KindMulti {
		t.Fatalf("unexpected kinds")
	}
	if reg.Kind(newTestAddress(0xFF)) != KindUnknown {
		t.Fatalf("undeployed address must be unknown")
	}
	err := reg.Deploy(&Collection{Address: newTestAddress(0xA1), Owner: newTestAddress(0x01), Kind: KindSingle})
	if !errors.Is(err, ErrCollectionExists) {
		t.Fatalf("expected ErrCollectionExists, got %v", err)
	}
	if err := reg.Deploy(&Collection{Address: newTestAddress(0xA3), Owner: newTestAddress(0x01)}); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestMintTransferSingle(t *testing.T) {
	reg := newTestRegistry(t)
	owner, minter, buyer := newTestAddress(0x01), newTestAddress(0x02), newTestAddress(0x03)
	col := newTestAddress(0xA1)

	if _, err := reg.Mint(minter, col, buyer, 1, "ipfs://1"); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("expected ErrNotMinter, got %v", err)
	}
	if err := reg.AddMinter(owner, col, minter); err != nil {
		t.Fatalf("add minter: %v", err)
	}
	if _, err := reg.Mint(minter, col, minter, 2, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("single collections mint one unit, got %v", err)
	}
	id, err := reg.Mint(minter, col, minter, 1, "ipfs://1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if id != 1 {
		t.Fatalf("first token id = %d", id)
	}
	if err := reg.Transfer(buyer, col, minter, buyer, id, 1); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}
	if err := reg.Transfer(minter, col, minter, buyer, id, 1); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	holder, err := reg.OwnerOf(col, id)
	if err != nil || holder != buyer {
		t.Fatalf("owner = %x, %v", holder, err)
	}
	if err := reg.Transfer(minter, col, minter, buyer, id, 1); !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected ErrInsufficient, got %v", err)
	}
}

func TestMultiBalancesAndApproval(t *testing.T) {
	reg := newTestRegistry(t)
	owner, operator, buyer := newTestAddress(0x01), newTestAddress(0x05), newTestAddress(0x03)
	col := newTestAddress(0xA2)
	id, err := reg.Mint(owner, col, owner, 50, "")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := reg.SetApprovalForAll(owner, operator, true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := reg.Transfer(operator, col, owner, buyer, id, 20); err != nil {
		t.Fatalf("operator transfer: %v", err)
	}
	left, _ := reg.BalanceOf(col, owner, id)
	got, _ := reg.BalanceOf(col, buyer, id)
	if left != 30 || got != 20 {
		t.Fatalf("balances owner=%d buyer=%d", left, got)
	}
	if err := reg.SetApprovalForAll(owner, operator, false); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if reg.IsApprovedForAll(owner, operator) {
		t.Fatalf("approval not revoked")
	}
	if _, err := reg.OwnerOf(col, id); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("OwnerOf on multi collection should fail, got %v", err)
	}
}

func TestRoyaltyInfoPrecedence(t *testing.T) {
	reg := newTestRegistry(t)
	owner := newTestAddress(0x01)
	col := newTestAddress(0xA1)
	plain, err := reg.Mint(owner, col, owner, 1, "")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	special, err := reg.MintWithRoyalty(owner, col, owner, 1, "", newTestAddress(0x07), 0)
	if err != nil {
		t.Fatalf("mint with royalty: %v", err)
	}
	price := big.NewInt(10_000)

	receiver, amount, err := reg.RoyaltyInfo(col, plain, price)
	if err != nil || receiver != newTestAddress(0x09) || amount.Int64() != 1000 {
		t.Fatalf("default royalty = %x %v %v", receiver, amount, err)
	}
	receiver, amount, err = reg.RoyaltyInfo(col, special, price)
	if err != nil || receiver != newTestAddress(0x07) || amount.Sign() != 0 {
		t.Fatalf("token royalty = %x %v %v", receiver, amount, err)
	}
	receiver, amount, err = reg.RoyaltyInfo(newTestAddress(0xA2), 1, price)
	if err != nil || receiver != ([20]byte{}) || amount.Sign() != 0 {
		t.Fatalf("no royalty = %x %v %v", receiver, amount, err)
	}
	if err := reg.SetDefaultRoyalty(newTestAddress(0x02), col, owner, 10); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestSetTokenRoyalty(t *testing.T) {
	reg := newTestRegistry(t)
	owner := newTestAddress(0x01)
	col := newTestAddress(0xA1)
	id, err := reg.Mint(owner, col, owner, 1, "")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := reg.SetTokenRoyalty(owner, col, id, newTestAddress(0x08), 500); err != nil {
		t.Fatalf("set token royalty: %v", err)
	}
	receiver, amount, err := reg.RoyaltyInfo(col, id, big.NewInt(10_000))
	if err != nil || receiver != newTestAddress(0x08) || amount.Int64() != 500 {
		t.Fatalf("token royalty = %x %v %v", receiver, amount, err)
	}
	if err := reg.SetTokenRoyalty(owner, col, 99, owner, 1); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected ErrUnknownToken, got %v", err)
	}
	if err := reg.SetTokenRoyalty(owner, col, id, owner, 10_001); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
