package receipt

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const scopesBucket = "scopes"

// DedupIndex answers "has fingerprint F been finalized before, within scope
// S?". Scope is an opaque grouping (e.g. a company) the index never
// interprets.
type DedupIndex interface {
	// Lookup returns the prior record for the fingerprint within the scope,
	// or nil when the fingerprint has not been finalized there.
	Lookup(scope string, fingerprint string) (*Record, error)

	// Add registers a finalized record under its scope and fingerprint.
	Add(record *Record) error

	// Close closes the index.
	Close() error
}

// BoltIndex implements DedupIndex using BoltDB, one nested bucket per scope.
type BoltIndex struct {
	db *bbolt.DB
}

// NewBoltIndex opens (or creates) the index database at path.
func NewBoltIndex(path string) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(scopesBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltIndex{db: db}, nil
}

// Lookup returns the prior record for the fingerprint within the scope.
func (b *BoltIndex) Lookup(scope string, fingerprint string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scopesBucket)).Bucket([]byte(scope))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(fingerprint))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, fmt.Errorf("looking up fingerprint: %w", err)
	}
	return record, nil
}

// Add registers a finalized record under its scope and fingerprint.
func (b *BoltIndex) Add(record *Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.Bucket([]byte(scopesBucket)).CreateBucketIfNotExists([]byte(record.Scope))
		if err != nil {
			return fmt.Errorf("creating scope bucket: %w", err)
		}
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(record.Fingerprint), data)
	})
}

// Close closes the database.
func (b *BoltIndex) Close() error {
	return b.db.Close()
}
