package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/elys-network/autofarm/internal/logger"
)

var (
	ErrTxnClosed = errors.New("transaction already committed or discarded")
	ErrCorrupted = errors.New("stored value is corrupted")
)

var storeLogger = logger.GetForComponent("engine_store")

// Store is the persistent key-value state owned by the engine address.
// Transactions are serialized: Begin blocks until the previous one is closed.
type Store struct {
	mu sync.Mutex
	db *leveldb.DB
}

// Open creates or opens a LevelDB database at the specified path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}
	storeLogger.Info().Str("path", path).Msg("Opened engine store")
	return &Store{db: db}, nil
}

// NewMemStore returns a store kept entirely in memory.
func NewMemStore() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin starts a write-buffered transaction. Nothing reaches the database until Commit.
func (s *Store) Begin() *Txn {
	s.mu.Lock()
	return &Txn{
		store:   s,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// Txn buffers writes on top of the committed state.
type Txn struct {
	store   *Store
	writes  map[string][]byte
	deletes map[string]struct{}
	closed  bool
}

// Get returns the value of key as seen by this transaction.
func (t *Txn) Get(key []byte) ([]byte, bool, error) {
	if t.closed {
		return nil, false, ErrTxnClosed
	}
	k := string(key)
	if v, ok := t.writes[k]; ok {
		return v, true, nil
	}
	if _, ok := t.deletes[k]; ok {
		return nil, false, nil
	}
	v, err := t.store.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set buffers a write.
func (t *Txn) Set(key, value []byte) {
	k := string(key)
	delete(t.deletes, k)
	v := make([]byte, len(value))
	copy(v, value)
	t.writes[k] = v
}

// Delete buffers a removal.
func (t *Txn) Delete(key []byte) {
	k := string(key)
	delete(t.writes, k)
	t.deletes[k] = struct{}{}
}

// Pending returns the number of buffered mutations.
func (t *Txn) Pending() int {
	return len(t.writes) + len(t.deletes)
}

// Commit writes every buffered mutation in a single atomic batch and releases the store.
func (t *Txn) Commit() error {
	if t.closed {
		return ErrTxnClosed
	}
	defer t.release()

	if t.Pending() == 0 {
		return nil
	}
	batch := new(leveldb.Batch)
	for k := range t.deletes {
		batch.Delete([]byte(k))
	}
	for k, v := range t.writes {
		batch.Put([]byte(k), v)
	}
	if err := t.store.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to commit %d mutations: %w", t.Pending(), err)
	}
	return nil
}

// Discard drops every buffered mutation and releases the store. Safe after Commit.
func (t *Txn) Discard() {
	if t.closed {
		return
	}
	t.release()
}

func (t *Txn) release() {
	t.closed = true
	t.writes = nil
	t.deletes = nil
	t.store.mu.Unlock()
}
