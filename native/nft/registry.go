package nft

import (
	"encoding/binary"
	"errors"
	"math/big"
	"strconv"

	"launchpad/core/events"
	"launchpad/core/types"
	"launchpad/native/fees"
)

var (
	ErrUnknownCollection = errors.New("nft: unknown collection")
	ErrCollectionExists  = errors.New("nft: collection already deployed")
	ErrInvalidKind       = errors.New("nft: invalid collection kind")
	ErrNotMinter         = errors.New("nft: caller is not a minter")
	ErrNotOwner          = errors.New("nft: caller is not the collection owner")
	ErrNotApproved       = errors.New("nft: caller is not owner nor approved")
	ErrInsufficient      = errors.New("nft: insufficient balance")
	ErrUnknownToken      = errors.New("nft: unknown token")
	ErrInvalidAmount     = errors.New("nft: invalid amount")
	ErrInvalidReceiver   = errors.New("nft: invalid receiver")
)

const (
	EventTypeMinted      = "nft.minted"
	EventTypeTransferred = "nft.transferred"
)

var (
	collectionPrefix = []byte("nft/collection/")
	tokenPrefix      = []byte("nft/token/")
	balancePrefix    = []byte("nft/balance/")
	approvalPrefix   = []byte("nft/approval/")
)

type kvState interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVDelete(key []byte) error
}

// Registry is the ledger of every deployed collection, token and balance.
type Registry struct {
	state   kvState
	emitter events.Emitter
}

// NewRegistry creates a registry with a no-op emitter.
func NewRegistry() *Registry {
	return &Registry{
		emitter: events.NoopEmitter{},
	}
}

// SetState configures the state backend used by the registry.
func (r *Registry) SetState(state kvState) { r.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) emit(evt *types.Event) {
	if r == nil || r.emitter == nil || evt == nil {
		return
	}
	r.emitter.Emit(events.Wrap(evt))
}

func collectionKey(addr [20]byte) []byte {
	return append(append([]byte(nil), collectionPrefix...), addr[:]...)
}

func tokenKey(addr [20]byte, id uint64) []byte {
	key := append(append([]byte(nil), tokenPrefix...), addr[:]...)
	return binary.BigEndian.AppendUint64(key, id)
}

func balanceKey(addr [20]byte, id uint64, owner [20]byte) []byte {
	key := append(append([]byte(nil), balancePrefix...), addr[:]...)
	key = binary.BigEndian.AppendUint64(key, id)
	return append(key, owner[:]...)
}

func approvalKey(owner, operator [20]byte) []byte {
	key := append(append([]byte(nil), approvalPrefix...), owner[:]...)
	return append(key, operator[:]...)
}

// Deploy registers a new collection. The address is chosen by the caller,
// usually the collection factory.
func (r *Registry) Deploy(col *Collection) error {
	if col == nil || !col.Kind.Valid() {
		return ErrInvalidKind
	}
	if types.IsZeroAddress(col.Address) || types.IsZeroAddress(col.Owner) {
		return ErrInvalidReceiver
	}
	if col.RoyaltyFee > fees.RoyaltyDenominator {
		return ErrInvalidAmount
	}
	if _, ok, err := r.Collection(col.Address); err != nil {
		return err
	} else if ok {
		return ErrCollectionExists
	}
	stored := col.Clone()
	if stored.NextTokenID == 0 {
		stored.NextTokenID = 1
	}
	return r.state.KVPut(collectionKey(stored.Address), stored)
}

// Collection loads a deployed collection.
func (r *Registry) Collection(addr [20]byte) (*Collection, bool, error) {
	col := new(Collection)
	ok, err := r.state.KVGet(collectionKey(addr), col)
	if err != nil || !ok {
		return nil, false, err
	}
	return col, true, nil
}

// Kind reports the standard implemented by addr, or KindUnknown when addr
// is not a deployed collection.
func (r *Registry) Kind(addr [20]byte) Kind {
	col, ok, err := r.Collection(addr)
	if err != nil || !ok {
		return KindUnknown
	}
	return col.Kind
}

// AddMinter lets the collection owner authorise another minter.
func (r *Registry) AddMinter(caller, collection, minter [20]byte) error {
	col, err := r.mustCollection(collection)
	if err != nil {
		return err
	}
	if col.Owner != caller {
		return ErrNotOwner
	}
	if col.IsMinter(minter) {
		return nil
	}
	col.Minters = append(col.Minters, minter)
	return r.state.KVPut(collectionKey(collection), col)
}

// SetDefaultRoyalty updates the collection-wide royalty declaration.
func (r *Registry) SetDefaultRoyalty(caller, collection, receiver [20]byte, fee uint64) error {
	col, err := r.mustCollection(collection)
	if err != nil {
		return err
	}
	if col.Owner != caller {
		return ErrNotOwner
	}
	if fee > fees.RoyaltyDenominator {
		return ErrInvalidAmount
	}
	col.RoyaltyReceiver = receiver
	col.RoyaltyFee = fee
	return r.state.KVPut(collectionKey(collection), col)
}

// SetTokenRoyalty pins a royalty on one token, overriding the collection
// default for it.
func (r *Registry) SetTokenRoyalty(caller, collection [20]byte, id uint64, receiver [20]byte, fee uint64) error {
	col, err := r.mustCollection(collection)
	if err != nil {
		return err
	}
	if col.Owner != caller {
		return ErrNotOwner
	}
	if fee > fees.RoyaltyDenominator {
		return ErrInvalidAmount
	}
	token, err := r.token(collection, id)
	if err != nil {
		return err
	}
	token.HasRoyalty = true
	token.RoyaltyReceiver = receiver
	token.RoyaltyFee = fee
	return r.state.KVPut(tokenKey(collection, id), token)
}

// Mint creates a new token id holding amount units for to.
func (r *Registry) Mint(caller, collection, to [20]byte, amount uint64, uri string) (uint64, error) {
	return r.mint(caller, collection, to, amount, uri, nil)
}

// MintWithRoyalty mints like Mint and records a per-token royalty.
func (r *Registry) MintWithRoyalty(caller, collection, to [20]byte, amount uint64, uri string, receiver [20]byte, fee uint64) (uint64, error) {
	if fee > fees.RoyaltyDenominator {
		return 0, ErrInvalidAmount
	}
	return r.mint(caller, collection, to, amount, uri, &Token{HasRoyalty: true, RoyaltyReceiver: receiver, RoyaltyFee: fee})
}

func (r *Registry) mint(caller, collection, to [20]byte, amount uint64, uri string, royalty *Token) (uint64, error) {
	col, err := r.mustCollection(collection)
	if err != nil {
		return 0, err
	}
	if !col.IsMinter(caller) {
		return 0, ErrNotMinter
	}
	if types.IsZeroAddress(to) {
		return 0, ErrInvalidReceiver
	}
	if amount == 0 || (col.Kind == KindSingle && amount != 1) {
		return 0, ErrInvalidAmount
	}
	token := &Token{ID: col.NextTokenID, URI: uri, Supply: amount}
	if col.Kind == KindSingle {
		token.Owner = to
	}
	if royalty != nil {
		token.HasRoyalty = true
		token.RoyaltyReceiver = royalty.RoyaltyReceiver
		token.RoyaltyFee = royalty.RoyaltyFee
	}
	col.NextTokenID++
	if err := r.state.KVPut(collectionKey(collection), col); err != nil {
		return 0, err
	}
	if err := r.state.KVPut(tokenKey(collection, token.ID), token); err != nil {
		return 0, err
	}
	if err := r.setBalance(collection, token.ID, to, amount); err != nil {
		return 0, err
	}
	r.emit(newTokenEvent(EventTypeMinted, collection, token.ID, [20]byte{}, to, amount))
	return token.ID, nil
}

// SetApprovalForAll lets operator move every token held by owner.
func (r *Registry) SetApprovalForAll(owner, operator [20]byte, approved bool) error {
	if approved {
		return r.state.KVPut(approvalKey(owner, operator), true)
	}
	return r.state.KVDelete(approvalKey(owner, operator))
}

// IsApprovedForAll reports whether operator may move tokens held by owner.
func (r *Registry) IsApprovedForAll(owner, operator [20]byte) bool {
	ok, err := r.state.KVGet(approvalKey(owner, operator), nil)
	return err == nil && ok
}

// Transfer moves amount units of token id from one holder to another.
func (r *Registry) Transfer(caller, collection, from, to [20]byte, id, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if caller != from && !r.IsApprovedForAll(from, caller) {
		return ErrNotApproved
	}
	if types.IsZeroAddress(to) {
		return ErrInvalidReceiver
	}
	col, err := r.mustCollection(collection)
	if err != nil {
		return err
	}
	token, err := r.token(collection, id)
	if err != nil {
		return err
	}
	held, err := r.BalanceOf(collection, from, id)
	if err != nil {
		return err
	}
	if held < amount {
		return ErrInsufficient
	}
	toHeld, err := r.BalanceOf(collection, to, id)
	if err != nil {
		return err
	}
	if err := r.setBalance(collection, id, from, held-amount); err != nil {
		return err
	}
	if err := r.setBalance(collection, id, to, toHeld+amount); err != nil {
		return err
	}
	if col.Kind == KindSingle {
		token.Owner = to
		if err := r.state.KVPut(tokenKey(collection, id), token); err != nil {
			return err
		}
	}
	r.emit(newTokenEvent(EventTypeTransferred, collection, id, from, to, amount))
	return nil
}

// BalanceOf returns the amount of token id held by owner.
func (r *Registry) BalanceOf(collection, owner [20]byte, id uint64) (uint64, error) {
	var held uint64
	if _, err := r.state.KVGet(balanceKey(collection, id, owner), &held); err != nil {
		return 0, err
	}
	return held, nil
}

// OwnerOf returns the holder of a single-edition token.
func (r *Registry) OwnerOf(collection [20]byte, id uint64) ([20]byte, error) {
	col, err := r.mustCollection(collection)
	if err != nil {
		return [20]byte{}, err
	}
	if col.Kind != KindSingle {
		return [20]byte{}, ErrInvalidKind
	}
	token, err := r.token(collection, id)
	if err != nil {
		return [20]byte{}, err
	}
	return token.Owner, nil
}

// Token loads the metadata of token id.
func (r *Registry) Token(collection [20]byte, id uint64) (*Token, error) {
	return r.token(collection, id)
}

// RoyaltyInfo returns the receiver and amount owed on a sale at price. The
// token's own royalty wins over the collection default.
func (r *Registry) RoyaltyInfo(collection [20]byte, id uint64, price *big.Int) ([20]byte, *big.Int, error) {
	col, err := r.mustCollection(collection)
	if err != nil {
		return [20]byte{}, nil, err
	}
	receiver, fee := col.RoyaltyReceiver, col.RoyaltyFee
	token := new(Token)
	ok, err := r.state.KVGet(tokenKey(collection, id), token)
	if err != nil {
		return [20]byte{}, nil, err
	}
	if ok && token.HasRoyalty {
		receiver, fee = token.RoyaltyReceiver, token.RoyaltyFee
	}
	if types.IsZeroAddress(receiver) {
		return [20]byte{}, big.NewInt(0), nil
	}
	amount, err := fees.Royalty(price, fee)
	if err != nil {
		return [20]byte{}, nil, err
	}
	return receiver, amount, nil
}

func (r *Registry) mustCollection(addr [20]byte) (*Collection, error) {
	col, ok, err := r.Collection(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownCollection
	}
	return col, nil
}

func (r *Registry) token(collection [20]byte, id uint64) (*Token, error) {
	token := new(Token)
	ok, err := r.state.KVGet(tokenKey(collection, id), token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownToken
	}
	return token, nil
}

func (r *Registry) setBalance(collection [20]byte, id uint64, owner [20]byte, amount uint64) error {
	if amount == 0 {
		return r.state.KVDelete(balanceKey(collection, id, owner))
	}
	return r.state.KVPut(balanceKey(collection, id, owner), amount)
}

func newTokenEvent(eventType string, collection [20]byte, id uint64, from, to [20]byte, amount uint64) *types.Event {
	attrs := map[string]string{
		"collection": types.HexAddress(collection),
		"tokenId":    strconv.FormatUint(id, 10),
		"to":         types.HexAddress(to),
		"amount":     strconv.FormatUint(amount, 10),
	}
	if !types.IsZeroAddress(from) {
		attrs["from"] = types.HexAddress(from)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
