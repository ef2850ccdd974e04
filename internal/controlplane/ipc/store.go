package ipc

import (
	"sync"

	"github.com/whitefamily/kubera-controlplane/internal/controlplane/config"
	"github.com/whitefamily/kubera-controlplane/internal/controlplane/objects"
)

// entry is one stored Gateway's rendered document plus the hash it was
// rendered from, so Store can tell a real change from a coalesced-equal
// recomputation.
type entry struct {
	yaml string
	hash uint64
}

// Store is the concurrent map of Gateway ref -> rendered configuration
// document. Reader and Manager are thin facades over the same underlying
// map, splitting the IPC endpoints (read-only) from the publishing side
// (insert/remove).
type Store struct {
	mu      sync.RWMutex
	entries map[objects.Ref]entry
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{entries: map[objects.Ref]entry{}}
}

// Reader is the read-only facade IPC endpoints use.
type Reader struct{ s *Store }

// Manager is the read-write facade Publisher uses to publish
// documents and retract them on Gateway deletion.
type Manager struct{ s *Store }

// Reader returns the read-only facade over this Store.
func (s *Store) Reader() Reader { return Reader{s: s} }

// Manager returns the read-write facade over this Store.
func (s *Store) Manager() Manager { return Manager{s: s} }

// Exists reports whether ref has a stored document.
func (r Reader) Exists(ref objects.Ref) bool {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.entries[ref]
	return ok
}

// GetConfiguration returns the stored YAML document for ref, if any.
func (r Reader) GetConfiguration(ref objects.Ref) (string, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.entries[ref]
	if !ok {
		return "", false
	}
	return e.yaml, true
}

// Insert serializes doc to YAML and stores it under ref, returning whether
// the document's hash actually changed relative to what was stored before
// -- the gate consulted before a ConfigurationUpdate event is published,
// so a coalesced-equal recomputation doesn't cause an event storm.
func (m Manager) Insert(ref objects.Ref, doc config.Document) (changed bool, err error) {
	hash, err := config.Hash(doc)
	if err != nil {
		return false, err
	}

	m.s.mu.RLock()
	prior, existed := m.s.entries[ref]
	m.s.mu.RUnlock()
	if existed && prior.hash == hash {
		return false, nil
	}

	rendered, err := doc.Render()
	if err != nil {
		return false, err
	}

	m.s.mu.Lock()
	m.s.entries[ref] = entry{yaml: string(rendered), hash: hash}
	m.s.mu.Unlock()
	return true, nil
}

// Remove drops ref's stored document, returning whether it had one.
func (m Manager) Remove(ref objects.Ref) bool {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	_, ok := m.s.entries[ref]
	delete(m.s.entries, ref)
	return ok
}
