package suppress

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var _ Store = (*BoltStore)(nil)

var bucketSuppression = []byte("suppression")

// openTimeout bounds how long Open waits for the bbolt file lock when
// another process already holds the database.
const openTimeout = 2 * time.Second

// BoltStore keeps suppression windows in a bbolt file so cooldowns survive
// restarts. Each record maps an inspector|dataset key to its expiry, stored
// as eight big-endian bytes of unix time. Safe for concurrent use.
type BoltStore struct {
	db     *bolt.DB
	window time.Duration
}

// Open creates or opens the database at path. window is the quiet period
// every Record starts.
func Open(path string, window time.Duration) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("suppress: open %s: %w", path, err)
	}
	if err := ensureBucket(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("suppress: init bucket: %w", err)
	}
	return &BoltStore{db: db, window: window}, nil
}

func ensureBucket(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSuppression)
		return err
	})
}

// Allow reports whether key is outside any recorded window. Values too short
// to decode count as expired; Prune removes them.
func (s *BoltStore) Allow(key string) bool {
	allow := true
	_ = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSuppression).Get([]byte(key))
		allow = expiredValue(v, time.Now().Unix())
		return nil
	})
	return allow
}

// Record starts (or restarts) the suppression window for key.
func (s *BoltStore) Record(key string) error {
	v := encodeExpiry(time.Now().Add(s.window))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSuppression).Put([]byte(key), v)
	})
}

// Prune deletes every record whose window has passed, plus any value that
// cannot be decoded.
func (s *BoltStore) Prune() error {
	now := time.Now().Unix()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSuppression)
		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if expiredValue(v, now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Path returns the filesystem path of the database file.
func (s *BoltStore) Path() string { return s.db.Path() }

// Close releases the database and its file lock.
func (s *BoltStore) Close() error { return s.db.Close() }

// encodeExpiry renders an expiry time as the stored 8-byte value.
func encodeExpiry(t time.Time) []byte {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, uint64(t.Unix()))
	return v
}

// expiredValue reports whether a stored value no longer suppresses at now.
// Missing and truncated values never suppress.
func expiredValue(v []byte, now int64) bool {
	if len(v) < 8 {
		return true
	}
	return now >= int64(binary.BigEndian.Uint64(v))
}
