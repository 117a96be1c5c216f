package gift

import (
	"testing"

	"github.com/stretchr/testify/require"

	"launchpad/core/events"
	"launchpad/core/state"
	"launchpad/native/nft"
	"launchpad/storage"
)

type recordingEmitter struct{ types []string }

func (r *recordingEmitter) Emit(evt events.Event) { r.types = append(r.types, evt.EventType()) }

func addr(fill byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = fill
	}
	return a
}

var (
	owner  = addr(0x01)
	single = addr(0xA1)
	multi  = addr(0xA2)
	office = addr(0xEE)
)

func newTestGift(t *testing.T) (*Engine, *nft.Registry, *recordingEmitter) {
	t.Helper()
	reg := nft.NewRegistry()
	reg.SetState(state.NewManager(storage.NewMemDB()))
	require.NoError(t, reg.Deploy(&nft.Collection{Address: single, Owner: owner, Kind: nft.KindSingle}))
	require.NoError(t, reg.Deploy(&nft.Collection{Address: multi, Owner: owner, Kind: nft.KindMulti}))
	engine, err := New(office, reg)
	require.NoError(t, err)
	rec := &recordingEmitter{}
	engine.SetEmitter(rec)
	return engine, reg, rec
}

func TestNewRequiresAssetLedger(t *testing.T) {
	_, err := New(office, nil)
	require.ErrorIs(t, err, ErrInvalidNFTChecker)
}

func TestGiftingSingleTokens(t *testing.T) {
	engine, reg, rec := newTestGift(t)
	first, err := reg.Mint(owner, single, owner, 1, "ipfs://1")
	require.NoError(t, err)
	second, err := reg.Mint(owner, single, owner, 1, "ipfs://2")
	require.NoError(t, err)
	require.NoError(t, reg.SetApprovalForAll(owner, office, true))

	alice, bob := addr(0x03), addr(0x04)
	require.NoError(t, engine.Gifting(owner, single, []uint64{first, second}, [][20]byte{alice, bob}))

	held, err := reg.BalanceOf(single, alice, first)
	require.NoError(t, err)
	require.Equal(t, uint64(1), held)
	held, err = reg.BalanceOf(single, bob, second)
	require.NoError(t, err)
	require.Equal(t, uint64(1), held)
	held, err = reg.BalanceOf(single, owner, first)
	require.NoError(t, err)
	require.Zero(t, held)
	require.Equal(t, []string{EventTypeGiftSent, EventTypeGiftSent}, rec.types)
}

func TestGiftingMultiSendsOneUnitEach(t *testing.T) {
	engine, reg, _ := newTestGift(t)
	id, err := reg.Mint(owner, multi, owner, 10, "ipfs://m")
	require.NoError(t, err)
	require.NoError(t, reg.SetApprovalForAll(owner, office, true))

	alice, bob := addr(0x03), addr(0x04)
	require.NoError(t, engine.Gifting(owner, multi, []uint64{id, id, id}, [][20]byte{alice, bob, alice}))

	held, _ := reg.BalanceOf(multi, alice, id)
	require.Equal(t, uint64(2), held)
	held, _ = reg.BalanceOf(multi, bob, id)
	require.Equal(t, uint64(1), held)
	held, _ = reg.BalanceOf(multi, owner, id)
	require.Equal(t, uint64(7), held)
}

func TestGiftingRejectsInvalidToken(t *testing.T) {
	engine, _, _ := newTestGift(t)
	ids, accounts := []uint64{1}, [][20]byte{addr(0x03)}
	require.ErrorIs(t, engine.Gifting(owner, [20]byte{}, ids, accounts), ErrInvalidToken)
	require.ErrorIs(t, engine.Gifting(owner, office, ids, accounts), ErrInvalidToken)
	require.ErrorIs(t, engine.Gifting(owner, addr(0x03), ids, accounts), ErrInvalidToken)
}

func TestGiftingRejectsLengthMismatch(t *testing.T) {
	engine, _, rec := newTestGift(t)
	err := engine.Gifting(owner, single, []uint64{1, 2}, [][20]byte{addr(0x03)})
	require.ErrorIs(t, err, ErrLengthMismatch)
	require.NoError(t, engine.Gifting(owner, single, nil, nil))
	require.Empty(t, rec.types)
}

func TestGiftingRequiresApproval(t *testing.T) {
	engine, reg, rec := newTestGift(t)
	id, err := reg.Mint(owner, single, owner, 1, "ipfs://1")
	require.NoError(t, err)
	err = engine.Gifting(owner, single, []uint64{id}, [][20]byte{addr(0x03)})
	require.ErrorIs(t, err, nft.ErrNotApproved)
	require.Empty(t, rec.types)

	// The owner's approval does not let a stranger gift the owner's tokens.
	require.NoError(t, reg.SetApprovalForAll(owner, office, true))
	err = engine.Gifting(addr(0x05), single, []uint64{id}, [][20]byte{addr(0x03)})
	require.ErrorIs(t, err, nft.ErrNotApproved)
	held, _ := reg.BalanceOf(single, owner, id)
	require.Equal(t, uint64(1), held)
}
