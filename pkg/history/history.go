// Package history persists chat messages per session for the reference
// service. Backends share the Store interface and return records oldest first.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"lawchat/pkg/chat"
	"lawchat/pkg/config"

	"github.com/google/uuid"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("history: unknown backend")

// Record is one stored message.
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      chat.Role `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord stamps a message with a fresh id.
func NewRecord(sessionID string, role chat.Role, text string, now time.Time) Record {
	return Record{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Message:   text,
		Timestamp: now.UTC(),
	}
}

// Wire converts r to the JSON shape the client reads.
func (r Record) Wire() chat.WireMessage {
	return chat.WireMessage{
		ID:        r.ID,
		SessionID: r.SessionID,
		Role:      string(r.Role),
		Message:   r.Message,
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// ToMessage converts r to a chat message.
func (r Record) ToMessage() chat.Message {
	return chat.Message{Role: r.Role, Text: r.Message, Timestamp: r.Timestamp}
}

// Store persists chat records.
type Store interface {
	// Append stores rec.
	Append(ctx context.Context, rec Record) error
	// List returns at most limit records for the session, oldest first.
	List(ctx context.Context, sessionID string, limit int) ([]Record, error)
	// Delete removes every record of the session and reports how many.
	Delete(ctx context.Context, sessionID string) (int, error)
	// Prune removes records older than before across all sessions.
	Prune(ctx context.Context, before time.Time) (int, error)
	Close() error
}

// Open creates the backend selected by cfg.HistoryBackend.
func Open(ctx context.Context, cfg config.ServerConfig) (Store, error) {
	switch cfg.HistoryBackend {
	case config.BackendSQLite, "":
		return OpenSQLite(cfg.SQLitePath)
	case config.BackendBolt:
		return OpenBolt(cfg.BoltPath)
	case config.BackendRedis:
		return OpenRedis(ctx, cfg.RedisURL, cfg.HistoryRetention)
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.HistoryBackend)
	}
}

// sortRecords orders records by timestamp, keeping insertion order for ties.
func sortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})
}

func head(recs []Record, limit int) []Record {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
