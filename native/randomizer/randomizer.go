// Package randomizer provides admin gated pseudo-random draws. Each draw
// advances a keccak hash chain seeded at genesis, so results are reproducible
// from the ledger history.
package randomizer

import (
	"encoding/binary"
	"errors"
	"math/big"
	"strconv"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"launchpad/core/events"
	"launchpad/core/types"
)

const EventTypeDrawn = "randomizer.drawn"

var ErrInvalidRange = errors.New("randomizer: range must be positive")

var seedKey = []byte("randomizer/seed")

type kvState interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
}

type permissions interface {
	RequireAdminOrSuperAdmin(caller [20]byte) error
}

// Source is the hash chain state.
type Source struct {
	address [20]byte
	state   kvState
	roles   permissions
	emitter events.Emitter
	nowFn   func() int64
}

// New creates a random source identified by address.
func New(address [20]byte, state kvState, roles permissions, now func() int64) *Source {
	return &Source{address: address, state: state, roles: roles, emitter: events.NoopEmitter{}, nowFn: now}
}

// Address returns the source address.
func (s *Source) Address() [20]byte { return s.address }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (s *Source) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// Seed installs the initial chain value when none is stored.
func (s *Source) Seed(seed [32]byte) error {
	var current [32]byte
	ok, err := s.state.KVGet(seedKey, &current)
	if err != nil || ok {
		return err
	}
	return s.state.KVPut(seedKey, seed)
}

// Draw returns a value in [0, n) and advances the chain. Admins only.
func (s *Source) Draw(caller [20]byte, n uint64) (uint64, error) {
	if err := s.roles.RequireAdminOrSuperAdmin(caller); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrInvalidRange
	}
	var current [32]byte
	if _, err := s.state.KVGet(seedKey, &current); err != nil {
		return 0, err
	}
	var stamp []byte
	if s.nowFn != nil {
		stamp = binary.BigEndian.AppendUint64(nil, uint64(s.nowFn()))
	}
	var next [32]byte
	copy(next[:], ethcrypto.Keccak256(current[:], caller[:], stamp))
	if err := s.state.KVPut(seedKey, next); err != nil {
		return 0, err
	}
	value := new(big.Int).SetBytes(next[:])
	value.Mod(value, new(big.Int).SetUint64(n))
	result := value.Uint64()
	s.emitter.Emit(events.Wrap(&types.Event{
		Type: EventTypeDrawn,
		Attributes: map[string]string{
			"caller": types.HexAddress(caller),
			"range":  strconv.FormatUint(n, 10),
			"value":  strconv.FormatUint(result, 10),
		},
	}))
	return result, nil
}
