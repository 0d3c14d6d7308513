package session

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// storageKey is the fixed key the signed-in user is stored under
const storageKey = "currentUser"

// Persister stores the current session between runs
type Persister interface {
	// Load returns nil, nil when nothing is stored
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// BadgerPersister keeps the session in a local BadgerDB.
type BadgerPersister struct {
	db     *badger.DB
	ownsDB bool
}

// OpenBadgerPersister opens (or creates) a BadgerDB at path.
func OpenBadgerPersister(path string) (*BadgerPersister, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for session: %w", err)
	}
	return &BadgerPersister{db: db, ownsDB: true}, nil
}

// NewBadgerPersister wraps an already opened database. Close leaves it open.
func NewBadgerPersister(db *badger.DB) *BadgerPersister {
	return &BadgerPersister{db: db}
}

// Load reads the stored session.
func (p *BadgerPersister) Load() (*Session, error) {
	var s Session
	found := false

	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(storageKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}

		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		})
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &s, nil
}

// Save replaces the stored session.
func (p *BadgerPersister) Save(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return p.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(storageKey), data); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		return nil
	})
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (p *BadgerPersister) Clear() error {
	return p.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(storageKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete session: %w", err)
		}
		return nil
	})
}

// Close closes the database if this persister opened it.
func (p *BadgerPersister) Close() error {
	if p.ownsDB && p.db != nil {
		return p.db.Close()
	}
	return nil
}

// MemoryPersister keeps the session in process memory.
type MemoryPersister struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryPersister returns an empty in-memory persister
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// Load returns a copy of the stored session
func (p *MemoryPersister) Load() (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data == nil {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal(p.data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

// Save stores a copy of s
func (p *MemoryPersister) Save(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = data
	return nil
}

// Clear drops the stored session
func (p *MemoryPersister) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = nil
	return nil
}
