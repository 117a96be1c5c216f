// Package membership issues the non-transferable token that lets non-admin
// managers publish campaigns.
package membership

import (
	"errors"
	"strconv"

	"launchpad/core/events"
	"launchpad/core/types"
)

const EventTypeMinted = "membership.minted"

var (
	ErrAlreadyMember  = errors.New("membership: account already holds a token")
	ErrInvalidAccount = errors.New("Invalid account")
)

var (
	memberPrefix = []byte("membership/holder/")
	supplyKey    = []byte("membership/supply")
)

type kvState interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
}

type permissions interface {
	RequireAdminOrSuperAdmin(caller [20]byte) error
}

// Badge is the token held by one member.
type Badge struct {
	ID  uint64
	URI string
}

// Token tracks one badge per account.
type Token struct {
	state   kvState
	roles   permissions
	emitter events.Emitter
}

// New binds the membership token to state and the role registry.
func New(state kvState, roles permissions) *Token {
	return &Token{state: state, roles: roles, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (t *Token) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		t.emitter = events.NoopEmitter{}
		return
	}
	t.emitter = emitter
}

func memberKey(addr [20]byte) []byte {
	return append(append([]byte(nil), memberPrefix...), addr[:]...)
}

// Mint issues a badge to account. Admins only.
func (t *Token) Mint(caller, account [20]byte, uri string) (uint64, error) {
	if err := t.roles.RequireAdminOrSuperAdmin(caller); err != nil {
		return 0, err
	}
	if types.IsZeroAddress(account) {
		return 0, ErrInvalidAccount
	}
	if t.Has(account) {
		return 0, ErrAlreadyMember
	}
	var supply uint64
	if _, err := t.state.KVGet(supplyKey, &supply); err != nil {
		return 0, err
	}
	supply++
	if err := t.state.KVPut(supplyKey, supply); err != nil {
		return 0, err
	}
	if err := t.state.KVPut(memberKey(account), &Badge{ID: supply, URI: uri}); err != nil {
		return 0, err
	}
	t.emitter.Emit(events.Wrap(&types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"account": types.HexAddress(account),
			"tokenId": strconv.FormatUint(supply, 10),
		},
	}))
	return supply, nil
}

// Has reports whether account holds a badge.
func (t *Token) Has(account [20]byte) bool {
	ok, err := t.state.KVGet(memberKey(account), nil)
	return err == nil && ok
}

// Badge returns the badge held by account.
func (t *Token) Badge(account [20]byte) (*Badge, bool, error) {
	badge := new(Badge)
	ok, err := t.state.KVGet(memberKey(account), badge)
	if err != nil || !ok {
		return nil, false, err
	}
	return badge, true, nil
}
