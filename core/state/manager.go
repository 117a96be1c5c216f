package state

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"launchpad/storage"
)

// Manager provides keyed, RLP encoded access to ledger state on top of a
// storage backend. Writes issued inside Atomic are buffered and only reach
// the backend once the enclosing function succeeds.
type Manager struct {
	db storage.Database

	mu      sync.Mutex
	depth   int
	journal map[string][]byte
	deleted map[string]struct{}
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// Atomic runs fn with write buffering enabled. All writes performed by fn are
// committed in a single backend batch when fn returns nil and discarded
// otherwise. Nested calls join the outermost buffer.
func (m *Manager) Atomic(fn func() error) error {
	if m == nil {
		return fmt.Errorf("state: manager unavailable")
	}
	m.mu.Lock()
	if m.depth == 0 {
		m.journal = make(map[string][]byte)
		m.deleted = make(map[string]struct{})
	}
	m.depth++
	m.mu.Unlock()

	err := fn()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.depth--
	if m.depth > 0 {
		return err
	}
	journal, deleted := m.journal, m.deleted
	m.journal, m.deleted = nil, nil
	if err != nil {
		return err
	}
	return m.commit(journal, deleted)
}

func (m *Manager) commit(journal map[string][]byte, deleted map[string]struct{}) error {
	if len(journal) == 0 && len(deleted) == 0 {
		return nil
	}
	if batcher, ok := m.db.(storage.Batcher); ok {
		batch := batcher.NewBatch()
		for key := range deleted {
			batch.Delete([]byte(key))
		}
		for key, value := range journal {
			batch.Put([]byte(key), value)
		}
		if err := batch.Write(); err != nil {
			return fmt.Errorf("state: commit batch: %w", err)
		}
		return nil
	}
	for key := range deleted {
		if err := m.db.Delete([]byte(key)); err != nil {
			return fmt.Errorf("state: commit delete: %w", err)
		}
	}
	for key, value := range journal {
		if err := m.db.Put([]byte(key), value); err != nil {
			return fmt.Errorf("state: commit put: %w", err)
		}
	}
	return nil
}

func (m *Manager) rawGet(hashed []byte) ([]byte, error) {
	m.mu.Lock()
	if m.depth > 0 {
		if value, ok := m.journal[string(hashed)]; ok {
			m.mu.Unlock()
			return value, nil
		}
		if _, ok := m.deleted[string(hashed)]; ok {
			m.mu.Unlock()
			return nil, nil
		}
	}
	m.mu.Unlock()
	value, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

func (m *Manager) rawPut(hashed []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth > 0 {
		delete(m.deleted, string(hashed))
		m.journal[string(hashed)] = append([]byte(nil), value...)
		return nil
	}
	return m.db.Put(hashed, value)
}

func (m *Manager) rawDelete(hashed []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth > 0 {
		delete(m.journal, string(hashed))
		m.deleted[string(hashed)] = struct{}{}
		return nil
	}
	return m.db.Delete(hashed)
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the backend.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.rawPut(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.rawGet(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the value stored under key.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.rawDelete(kvKey(key))
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep the index
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	list, err := m.loadList(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return m.KVPut(key, list)
}

// KVRemove drops value from the list stored under key and reports whether it
// was present.
func (m *Manager) KVRemove(key []byte, value []byte) (bool, error) {
	list, err := m.loadList(key)
	if err != nil {
		return false, err
	}
	for i, existing := range list {
		if !bytes.Equal(existing, value) {
			continue
		}
		list = append(list[:i], list[i+1:]...)
		if len(list) == 0 {
			return true, m.KVDelete(key)
		}
		return true, m.KVPut(key, list)
	}
	return false, nil
}

func (m *Manager) loadList(key []byte) ([][]byte, error) {
	var list [][]byte
	if _, err := m.KVGet(key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. When no value is
// present the destination is initialised with an empty slice.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.rawGet(kvKey(key))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}
