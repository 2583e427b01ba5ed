package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var defaultBucket = []byte("cryoconsole")

// BoltStore is a bbolt-backed store for values that must survive process
// restarts. It is only used for credentials the user chose to remember.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
	mu     sync.RWMutex
	closed bool
}

type boltEnvelope struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BoltStoreOption configures BoltStore behavior.
type BoltStoreOption func(*BoltStore)

// WithBucket sets the bucket name. Default: "cryoconsole".
func WithBucket(name string) BoltStoreOption {
	return func(s *BoltStore) {
		s.bucket = []byte(name)
	}
}

// NewBoltStore opens (or creates) the bbolt database at path.
func NewBoltStore(path string, opts ...BoltStoreOption) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s := &BoltStore{db: db, bucket: defaultBucket}
	for _, opt := range opts {
		opt(s)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return s, nil
}

// Save stores data with an expiration time.
func (s *BoltStore) Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed{}
	}

	raw, err := json.Marshal(boltEnvelope{Data: data, ExpiresAt: expiresAt})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), raw)
	})
}

// Load retrieves data if it exists and hasn't expired. Expired entries are
// removed lazily.
func (s *BoltStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed{}
	}

	var env *boltEnvelope
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		env = &boltEnvelope{}
		return json.Unmarshal(raw, env)
	})
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, nil
	}
	if expired(env.ExpiresAt, time.Now()) {
		_ = s.db.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket(s.bucket).Delete([]byte(key))
		})
		return nil, nil
	}
	return env.Data, nil
}

// Delete removes a key from the store.
func (s *BoltStore) Delete(ctx context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed{}
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
