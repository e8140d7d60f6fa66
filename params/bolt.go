package params

import (
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jbohren-forks/conditional"
)

var paramsBucket = []byte("params")

// BoltStore persists parameters to a bbolt database file.
type BoltStore struct {
	db     *bolt.DB
	mu     sync.RWMutex
	closed bool
}

// NewBoltStore opens or creates a bbolt parameter store at path. It waits up
// to a second for another process to release the file.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(paramsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Set implements Store.
func (s *BoltStore) Set(name string, v conditional.Value) error {
	if err := checkSet(name, v); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(paramsBucket).Put([]byte(name), []byte(encode(v)))
	})
	if err != nil {
		return fmt.Errorf("set param: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *BoltStore) Get(name string) (conditional.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var text string
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(paramsBucket).Get([]byte(name))
		if b != nil {
			// Bytes from Get are only valid for the transaction.
			text, found = string(b), true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get param: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return decode(text)
}

// Delete implements Store.
func (s *BoltStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(paramsBucket).Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("delete param: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *BoltStore) Load() (conditional.Params, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	p := make(conditional.Params)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(paramsBucket).ForEach(func(k, b []byte) error {
			v, err := decode(string(b))
			if err != nil {
				return fmt.Errorf("param %s: %w", k, err)
			}
			p[string(k)] = v
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load params: %w", err)
	}
	return p, nil
}

// Close implements Store.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
