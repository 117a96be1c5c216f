// Package gift hands out tokens in bulk. The caller keeps custody until the
// call: the engine moves one unit of each listed token id to the matching
// account, acting as an operator the caller has approved on the collection.
package gift

import (
	"errors"
	"strconv"

	"launchpad/core/events"
	"launchpad/core/types"
	"launchpad/native/nft"
)

const EventTypeGiftSent = "gift.sent"

var (
	ErrInvalidNFTChecker = errors.New("Invalid nftChecker")
	ErrInvalidToken      = errors.New("Invalid token")
	ErrLengthMismatch    = errors.New("tokenIds and accounts length mismatch")
)

type assetLedger interface {
	Kind(collection [20]byte) nft.Kind
	Transfer(caller, collection, from, to [20]byte, id, amount uint64) error
}

// Engine is the gifting operator account.
type Engine struct {
	address [20]byte
	assets  assetLedger
	emitter events.Emitter
}

// New binds the gifting operator at address to the asset ledger.
func New(address [20]byte, assets assetLedger) (*Engine, error) {
	if assets == nil {
		return nil, ErrInvalidNFTChecker
	}
	return &Engine{address: address, assets: assets, emitter: events.NoopEmitter{}}, nil
}

// Address returns the operator account holders approve.
func (e *Engine) Address() [20]byte { return e.address }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Gifting sends tokenIDs[i] to accounts[i], one unit each, out of caller's
// holdings in token.
func (e *Engine) Gifting(caller, token [20]byte, tokenIDs []uint64, accounts [][20]byte) error {
	if types.IsZeroAddress(token) || !e.assets.Kind(token).Valid() {
		return ErrInvalidToken
	}
	if len(tokenIDs) != len(accounts) {
		return ErrLengthMismatch
	}
	for i, id := range tokenIDs {
		if err := e.assets.Transfer(e.address, token, caller, accounts[i], id, 1); err != nil {
			return err
		}
		e.emitter.Emit(events.Wrap(&types.Event{
			Type: EventTypeGiftSent,
			Attributes: map[string]string{
				"token":   types.HexAddress(token),
				"tokenId": strconv.FormatUint(id, 10),
				"from":    types.HexAddress(caller),
				"to":      types.HexAddress(accounts[i]),
			},
		}))
	}
	return nil
}
