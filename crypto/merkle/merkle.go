// Package merkle builds and verifies allowlist trees over account addresses.
// Interior nodes hash the lexicographically sorted pair of their children, so
// proofs carry no position bits.
package merkle

import (
	"bytes"
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ErrEmptyTree is returned when a tree is built without leaves.
var ErrEmptyTree = errors.New("merkle: no leaves")

// Leaf hashes a 20 byte address into a tree leaf.
func Leaf(addr [20]byte) [32]byte {
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(addr[:]))
	return out
}

func hashPair(a, b [32]byte) [32]byte {
	var out [32]byte
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	copy(out[:], ethcrypto.Keccak256(a[:], b[:]))
	return out
}

// Verify reports whether proof links the leaf of addr to root.
func Verify(root [32]byte, addr [20]byte, proof [][32]byte) bool {
	computed := Leaf(addr)
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

// Tree keeps every layer so proofs can be produced for any leaf.
type Tree struct {
	layers [][][32]byte
	index  map[[20]byte]int
}

// NewTree builds a tree over addrs in the given order. An odd node at the end
// of a layer is carried up unchanged.
func NewTree(addrs [][20]byte) (*Tree, error) {
	if len(addrs) == 0 {
		return nil, ErrEmptyTree
	}
	leaves := make([][32]byte, len(addrs))
	index := make(map[[20]byte]int, len(addrs))
	for i, addr := range addrs {
		leaves[i] = Leaf(addr)
		if _, seen := index[addr]; !seen {
			index[addr] = i
		}
	}
	layers := [][][32]byte{leaves}
	for current := leaves; len(current) > 1; {
		next := make([][32]byte, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 == len(current) {
				next = append(next, current[i])
				continue
			}
			next = append(next, hashPair(current[i], current[i+1]))
		}
		layers = append(layers, next)
		current = next
	}
	return &Tree{layers: layers, index: index}, nil
}

// Root returns the tree root.
func (t *Tree) Root() [32]byte {
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// Proof returns the sibling path for addr, or false when addr is not a leaf.
func (t *Tree) Proof(addr [20]byte) ([][32]byte, bool) {
	idx, ok := t.index[addr]
	if !ok {
		return nil, false
	}
	proof := make([][32]byte, 0, len(t.layers))
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := idx ^ 1
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		idx /= 2
	}
	return proof, true
}
