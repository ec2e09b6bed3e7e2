// Package state holds the kernel's persistent state: a key/value database and
// the per-invocation transactions that give every entry point all-or-nothing
// semantics.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	dbm "github.com/cosmos/cosmos-db"
)

// KVStore is the view of state an entry point reads and writes.
type KVStore interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	// Iterate visits keys with prefix in ascending order until fn returns
	// stop or an error.
	Iterate(prefix []byte, fn func(key, value []byte) (stop bool, err error)) error
}

var errTxClosed = errors.New("transaction already committed or discarded")

// Store is the durable side of kernel state.
type Store struct {
	db dbm.DB
}

func NewStore(db dbm.DB) *Store {
	return &Store{db: db}
}

// NewMemStore returns a store backed by an in-memory database.
func NewMemStore() *Store {
	return NewStore(dbm.NewMemDB())
}

// Open opens a named database with the given backend (memdb, goleveldb, ...).
func Open(name, backend, dir string) (*Store, error) {
	db, err := dbm.NewDB(name, dbm.BackendType(backend), dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database in %s: %w", backend, dir, err)
	}
	return NewStore(db), nil
}

// Begin starts a transaction. Writes stay buffered until Commit.
func (s *Store) Begin() *Tx {
	return &Tx{db: s.db, writes: make(map[string]write)}
}

func (s *Store) Close() error {
	return s.db.Close()
}

type write struct {
	value   []byte
	deleted bool
}

// Tx buffers writes on top of the committed state.
type Tx struct {
	db     dbm.DB
	writes map[string]write
	closed bool
}

var _ KVStore = (*Tx)(nil)

func (t *Tx) Get(key []byte) ([]byte, error) {
	if t.closed {
		return nil, errTxClosed
	}
	if w, ok := t.writes[string(key)]; ok {
		if w.deleted {
			return nil, nil
		}
		return w.value, nil
	}
	return t.db.Get(key)
}

func (t *Tx) Has(key []byte) (bool, error) {
	v, err := t.Get(key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

func (t *Tx) Set(key, value []byte) error {
	if t.closed {
		return errTxClosed
	}
	if len(key) == 0 {
		return errors.New("empty key")
	}
	if value == nil {
		value = []byte{}
	}
	t.writes[string(key)] = write{value: append([]byte(nil), value...)}
	return nil
}

func (t *Tx) Delete(key []byte) error {
	if t.closed {
		return errTxClosed
	}
	t.writes[string(key)] = write{deleted: true}
	return nil
}

func (t *Tx) Iterate(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	if t.closed {
		return errTxClosed
	}

	start := prefix
	if len(start) == 0 {
		start = nil
	}
	merged := make(map[string][]byte)
	it, err := t.db.Iterator(start, prefixEnd(prefix))
	if err != nil {
		return err
	}
	for ; it.Valid(); it.Next() {
		merged[string(it.Key())] = append([]byte(nil), it.Value()...)
	}
	if err := it.Error(); err != nil {
		it.Close()
		return err
	}
	if err := it.Close(); err != nil {
		return err
	}

	for k, w := range t.writes {
		if !hasPrefix(k, prefix) {
			continue
		}
		if w.deleted {
			delete(merged, k)
			continue
		}
		merged[k] = w.value
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		stop, err := fn([]byte(k), merged[k])
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

// Commit writes every buffered change in one batch.
func (t *Tx) Commit() error {
	if t.closed {
		return errTxClosed
	}
	t.closed = true

	if len(t.writes) == 0 {
		return nil
	}

	batch := t.db.NewBatch()
	defer batch.Close()

	for k, w := range t.writes {
		var err error
		if w.deleted {
			err = batch.Delete([]byte(k))
		} else {
			err = batch.Set([]byte(k), w.value)
		}
		if err != nil {
			return fmt.Errorf("failed to stage %q: %w", k, err)
		}
	}
	return batch.WriteSync()
}

// Discard drops every buffered change.
func (t *Tx) Discard() {
	t.closed = true
	t.writes = nil
}

// GetJSON decodes the value at key into v. found is false when the key is
// absent.
func GetJSON(kv KVStore, key []byte, v interface{}) (bool, error) {
	bz, err := kv.Get(key)
	if err != nil {
		return false, err
	}
	if bz == nil {
		return false, nil
	}
	if err := json.Unmarshal(bz, v); err != nil {
		return false, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return true, nil
}

func SetJSON(kv KVStore, key []byte, v interface{}) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return kv.Set(key, bz)
}

func hasPrefix(k string, prefix []byte) bool {
	return len(k) >= len(prefix) && k[:len(prefix)] == string(prefix)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
