package buffer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const defaultBucket = "order_events"

// Journal persists order events in BoltDB while the primary store is unreachable.
type Journal struct {
	db     *bolt.DB
	bucket []byte
}

// Open creates the BoltDB file and bucket when missing.
func Open(path, bucket string) (*Journal, error) {
	if bucket == "" {
		bucket = defaultBucket
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Journal{db: db, bucket: []byte(bucket)}, nil
}

// Append stores an entry. Appending the same event twice keeps one copy.
func (j *Journal) Append(entry Entry) error {
	if j == nil || j.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if entry.Event.ID == "" {
		return errors.New("journal entry has no event id")
	}
	entry.normalize(time.Now())
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(j.bucket)
		if err := deleteEvent(b, entry.Event.ID); err != nil {
			return err
		}
		return b.Put(entryKey(entry), payload)
	})
}

// Peek returns up to limit entries in drain order without removing them.
func (j *Journal) Peek(limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}
	var entries []Entry
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(j.bucket).Cursor()
		for k, v := c.First(); k != nil && len(entries) < limit; k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			entry.key = append([]byte(nil), k...)
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Remove deletes an entry returned by Peek.
func (j *Journal) Remove(entry Entry) error {
	if j == nil || j.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(j.bucket)
		if len(entry.key) > 0 {
			return b.Delete(entry.key)
		}
		return deleteEvent(b, entry.Event.ID)
	})
}

// Retry moves an entry to the back of its priority band with one more attempt.
func (j *Journal) Retry(entry Entry) error {
	entry.Attempts++
	entry.QueuedAt = time.Now()
	entry.key = nil
	return j.Append(entry)
}

func (j *Journal) Size() (int, error) {
	if j == nil || j.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var n int
	err := j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(j.bucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Prune drops entries queued before cutoff and reports how many were removed.
func (j *Journal) Prune(cutoff time.Time) (int, error) {
	if j == nil || j.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	removed := 0
	err := j.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(j.bucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return nil
			}
			if entry.QueuedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func deleteEvent(b *bolt.Bucket, eventID string) error {
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var entry Entry
		if err := json.Unmarshal(v, &entry); err != nil {
			continue
		}
		if entry.Event.ID == eventID {
			return c.Delete()
		}
	}
	return nil
}

func entryKey(entry Entry) []byte {
	return []byte(fmt.Sprintf("%d_%020d_%s", entry.Priority, entry.QueuedAt.UnixNano(), entry.Event.ID))
}
