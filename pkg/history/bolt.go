package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var sessionsBucket = []byte("sessions")

// BoltStore keeps records in a bbolt file: one nested bucket per session,
// keyed by an increasing sequence number.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (creating if needed) the bolt file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(sessionsBucket)
		return e
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Append(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		sb, err := tx.Bucket(sessionsBucket).CreateBucketIfNotExists([]byte(rec.SessionID))
		if err != nil {
			return err
		}
		seq, err := sb.NextSequence()
		if err != nil {
			return err
		}
		return sb.Put(seqKey(seq), data)
	})
}

func (b *BoltStore) List(ctx context.Context, sessionID string, limit int) ([]Record, error) {
	var recs []Record
	err := b.db.View(func(tx *bolt.Tx) error {
		sb := tx.Bucket(sessionsBucket).Bucket([]byte(sessionID))
		if sb == nil {
			return nil
		}
		return sb.ForEach(func(k, v []byte) error {
			var rec Record
			if e := json.Unmarshal(v, &rec); e != nil {
				// Skip malformed
				return nil
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortRecords(recs)
	return head(recs, limit), nil
}

func (b *BoltStore) Delete(ctx context.Context, sessionID string) (int, error) {
	n := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(sessionsBucket)
		sb := root.Bucket([]byte(sessionID))
		if sb == nil {
			return nil
		}
		n = sb.Stats().KeyN
		return root.DeleteBucket([]byte(sessionID))
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (b *BoltStore) Prune(ctx context.Context, before time.Time) (int, error) {
	removed := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(sessionsBucket)

		var sessions [][]byte
		if err := root.ForEachBucket(func(k []byte) error {
			sessions = append(sessions, append([]byte(nil), k...))
			return nil
		}); err != nil {
			return err
		}

		for _, name := range sessions {
			sb := root.Bucket(name)
			var stale [][]byte
			kept := 0
			if err := sb.ForEach(func(k, v []byte) error {
				var rec Record
				if e := json.Unmarshal(v, &rec); e != nil || rec.Timestamp.Before(before) {
					stale = append(stale, append([]byte(nil), k...))
					return nil
				}
				kept++
				return nil
			}); err != nil {
				return err
			}
			for _, k := range stale {
				if err := sb.Delete(k); err != nil {
					return err
				}
			}
			removed += len(stale)
			if kept == 0 {
				if err := root.DeleteBucket(name); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

var _ Store = (*BoltStore)(nil)
