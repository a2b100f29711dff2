package localstore

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("local_store")

// ErrStoreClosed is returned after Close.
var ErrStoreClosed = errors.New("local store is closed")

// BoltStore is the durable string key-value store of this device, one bbolt bucket on disk.
// It keeps working while the remote database is unreachable.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// Open opens or creates the store at path, creating its directory when needed.
func Open(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create local store directory for %s", path)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open local store %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "create bucket in local store %s", path)
	}
	return &BoltStore{db: db, path: path}, nil
}

func (s *BoltStore) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v == nil {
			return nil
		}
		// v is only valid inside the transaction
		value, found = string(v), true
		return nil
	})
	if err != nil {
		return "", false, s.wrap(err, "read %q", key)
	}
	return value, found, nil
}

func (s *BoltStore) Set(key, value string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return s.wrap(err, "write %q", key)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *BoltStore) Delete(key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
	if err != nil {
		return s.wrap(err, "delete %q", key)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return errors.Wrapf(s.db.Close(), "close local store %s", s.path)
}

func (s *BoltStore) wrap(err error, format string, args ...interface{}) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		err = ErrStoreClosed
	}
	return errors.Wrapf(err, "local store: "+format, args...)
}
