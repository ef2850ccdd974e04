// Package staticresponses implements the id-keyed body cache for
// StaticResponseFilter objects: a filter's body is stored on the CRD as
// either inline text or base64url-encoded binary, and this cache decodes it
// lazily on first request and keeps the decoded bytes until the next
// Reset with a new filter collection.
package staticresponses

import (
	"encoding/base64"
	"sync"

	"github.com/whitefamily/kubera-controlplane/api/v1alpha1"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
)

// Body is a decoded static-response payload.
type Body struct {
	ContentType string
	Bytes       []byte
}

// Cache decodes and memoizes StaticResponseFilter bodies keyed by the
// filter's unique id. Filter collection changes invalidate the entire
// cache rather than tracking per-entry staleness, since the source
// collection is already cheap to re-snapshot.
type Cache struct {
	mu      sync.RWMutex
	entries map[objects.UniqueID]Body
	source  objects.Collection[*v1alpha1.StaticResponseFilter]
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: map[objects.UniqueID]Body{}}
}

// Reset replaces the filter collection this cache consults on miss and
// drops every previously decoded entry, since a filter's body may have
// changed along with everything else in the new snapshot.
func (c *Cache) Reset(filters objects.Collection[*v1alpha1.StaticResponseFilter]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = filters
	c.entries = map[objects.UniqueID]Body{}
}

// Get returns the decoded body for id, decoding and caching it on first
// request. ok is false if the filter is unknown, carries no body, or its
// body fails to decode -- in every case nothing is cached, so a later
// request (after the author fixes the spec, or once the filter shows up)
// can still succeed.
func (c *Cache) Get(id objects.UniqueID) (Body, bool) {
	c.mu.RLock()
	if b, ok := c.entries[id]; ok {
		c.mu.RUnlock()
		return b, true
	}
	source := c.source
	c.mu.RUnlock()

	ref, state, ok := source.GetByUniqueID(id)
	_ = ref
	if !ok || state.IsDeleted() {
		return Body{}, false
	}
	filter := state.Get()
	body, ok := decode(filter.Spec.Body)
	if !ok {
		return Body{}, false
	}

	// Concurrent misses for the same id may each decode independently; the
	// last writer's insert wins, which is fine because decoding is
	// deterministic -- every concurrent decode of the same spec produces an
	// identical Body.
	c.mu.Lock()
	c.entries[id] = body
	c.mu.Unlock()
	return body, true
}

func decode(b *v1alpha1.StaticResponseBody) (Body, bool) {
	if b == nil {
		return Body{}, false
	}
	switch b.Format {
	case v1alpha1.StaticResponseBodyFormatText:
		if b.Text == nil {
			return Body{}, false
		}
		return Body{ContentType: b.ContentType, Bytes: []byte(*b.Text)}, true
	case v1alpha1.StaticResponseBodyFormatBinary:
		if b.Binary == nil {
			return Body{}, false
		}
		raw, err := base64.RawURLEncoding.DecodeString(*b.Binary)
		if err != nil {
			return Body{}, false
		}
		return Body{ContentType: b.ContentType, Bytes: raw}, true
	default:
		return Body{}, false
	}
}
