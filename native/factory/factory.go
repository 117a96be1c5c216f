// Package factory deploys new asset collections on demand.
package factory

import (
	"encoding/binary"
	"errors"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"launchpad/core/events"
	"launchpad/core/types"
	"launchpad/native/nft"
)

const EventTypeCollectionCreated = "factory.collection_created"

var (
	ErrNotController = errors.New("Caller is not the controller")
	ErrInvalidOwner  = errors.New("factory: invalid owner")
)

var nonceKey = []byte("factory/nonce")

type kvState interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
}

type collectionDeployer interface {
	Deploy(col *nft.Collection) error
}

type permissions interface {
	IsController(addr [20]byte) bool
}

// Request describes a collection to deploy.
type Request struct {
	Owner           [20]byte
	Single          bool
	Name            string
	Symbol          string
	URI             string
	RoyaltyReceiver [20]byte
	RoyaltyFee      uint64
	Minters         [][20]byte
}

// Factory derives collection addresses from its own address and a nonce.
type Factory struct {
	address [20]byte
	state   kvState
	assets  collectionDeployer
	roles   permissions
	emitter events.Emitter
}

// New creates a factory identified by address.
func New(address [20]byte, state kvState, assets collectionDeployer, roles permissions) *Factory {
	return &Factory{address: address, state: state, assets: assets, roles: roles, emitter: events.NoopEmitter{}}
}

// Address returns the factory address.
func (f *Factory) Address() [20]byte { return f.address }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (f *Factory) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		f.emitter = events.NoopEmitter{}
		return
	}
	f.emitter = emitter
}

// CreateCollection deploys a collection for req. Only controllers may call it.
func (f *Factory) CreateCollection(caller [20]byte, req Request) ([20]byte, error) {
	if f.roles == nil || !f.roles.IsController(caller) {
		return [20]byte{}, ErrNotController
	}
	if types.IsZeroAddress(req.Owner) {
		return [20]byte{}, ErrInvalidOwner
	}
	var nonce uint64
	if _, err := f.state.KVGet(nonceKey, &nonce); err != nil {
		return [20]byte{}, err
	}
	addr := deriveAddress(f.address, nonce)
	kind := nft.KindMulti
	if req.Single {
		kind = nft.KindSingle
	}
	col := &nft.Collection{
		Address:         addr,
		Owner:           req.Owner,
		Kind:            kind,
		Name:            strings.TrimSpace(req.Name),
		Symbol:          strings.TrimSpace(req.Symbol),
		URI:             strings.TrimSpace(req.URI),
		RoyaltyReceiver: req.RoyaltyReceiver,
		RoyaltyFee:      req.RoyaltyFee,
		Minters:         append([][20]byte(nil), req.Minters...),
	}
	if err := f.assets.Deploy(col); err != nil {
		return [20]byte{}, err
	}
	if err := f.state.KVPut(nonceKey, nonce+1); err != nil {
		return [20]byte{}, err
	}
	f.emitter.Emit(events.Wrap(&types.Event{
		Type: EventTypeCollectionCreated,
		Attributes: map[string]string{
			"collection": types.HexAddress(addr),
			"owner":      types.HexAddress(req.Owner),
			"kind":       kind.String(),
		},
	}))
	return addr, nil
}

func deriveAddress(factory [20]byte, nonce uint64) [20]byte {
	var addr [20]byte
	digest := ethcrypto.Keccak256(factory[:], binary.BigEndian.AppendUint64(nil, nonce))
	copy(addr[:], digest[12:])
	return addr
}
