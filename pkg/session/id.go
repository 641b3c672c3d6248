// Package session produces the opaque identifier a client uses for its conversation.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	idPrefix     = "session"
	suffixLength = 9
)

// NewID returns a fresh identifier of the form session_<unix-millis>_<random>.
func NewID() string {
	return newID(time.Now(), uuid.NewString)
}

func newID(now time.Time, random func() string) string {
	suffix := strings.ReplaceAll(random(), "-", "")
	if len(suffix) > suffixLength {
		suffix = suffix[:suffixLength]
	}
	return fmt.Sprintf("%s_%d_%s", idPrefix, now.UnixMilli(), suffix)
}

// Provider hands out one identifier for its whole lifetime.
type Provider struct {
	once sync.Once
	id   string
	gen  func() string
}

// NewProvider creates a provider that generates its identifier lazily.
func NewProvider() *Provider {
	return &Provider{gen: NewID}
}

// Fixed creates a provider pinned to id, e.g. to resume an existing conversation.
// A blank id falls back to generation.
func Fixed(id string) *Provider {
	id = strings.TrimSpace(id)
	if id == "" {
		return NewProvider()
	}
	return &Provider{gen: func() string { return id }}
}

// ID returns the memoized identifier.
func (p *Provider) ID() string {
	p.once.Do(func() {
		p.id = p.gen()
	})
	return p.id
}
