// Package store holds the process-lifetime usage counters for rate-limited tiers.
//
// Counters live in memory only. They reset on restart and are never evicted.
package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/plainly/plainly/internal/core"
)

// UnknownClient is the shared bucket for callers without a resolvable address.
const UnknownClient = "unknown"

// UsageStore maps client identifiers to usage records.
//
// Each client key owns its own lock so that the read-evaluate-write sequence in
// Update is atomic per client without serializing unrelated clients.
type UsageStore struct {
	mu      sync.RWMutex
	entries map[string]*usageEntry

	// OnInsert, if set, is called with the new client count after a key is created.
	OnInsert func(clients int)
}

type usageEntry struct {
	mu     sync.Mutex
	record *core.UsageRecord
}

// UsageEntry is a point-in-time copy of one client's record.
type UsageEntry struct {
	ClientID string           `json:"client_id"`
	Record   core.UsageRecord `json:"record"`
}

// NewUsageStore returns an empty store.
func NewUsageStore() *UsageStore {
	return &UsageStore{entries: make(map[string]*usageEntry)}
}

// Update runs fn with exclusive access to the client's record. The record is nil
// when the client has never been seen. Whatever fn returns replaces the stored
// record; returning the input unchanged leaves state untouched.
func (s *UsageStore) Update(clientID string, fn func(current *core.UsageRecord) *core.UsageRecord) {
	entry := s.entry(normalizeClientID(clientID))

	entry.mu.Lock()
	defer entry.mu.Unlock()

	var current *core.UsageRecord
	if entry.record != nil {
		copied := *entry.record
		current = &copied
	}
	next := fn(current)
	if next == nil {
		return
	}
	copied := *next
	entry.record = &copied
}

// Get returns a copy of the client's record.
func (s *UsageStore) Get(clientID string) (core.UsageRecord, bool) {
	s.mu.RLock()
	entry, ok := s.entries[normalizeClientID(clientID)]
	s.mu.RUnlock()
	if !ok {
		return core.UsageRecord{}, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.record == nil {
		return core.UsageRecord{}, false
	}
	return *entry.record, true
}

// Len returns the number of tracked clients.
func (s *UsageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns copies of every populated record sorted by client id.
func (s *UsageStore) Snapshot() []UsageEntry {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	entries := make(map[string]*usageEntry, len(s.entries))
	for key, entry := range s.entries {
		keys = append(keys, key)
		entries[key] = entry
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	result := make([]UsageEntry, 0, len(keys))
	for _, key := range keys {
		entry := entries[key]
		entry.mu.Lock()
		if entry.record != nil {
			result = append(result, UsageEntry{ClientID: key, Record: *entry.record})
		}
		entry.mu.Unlock()
	}
	return result
}

// entry returns the per-client slot, creating it on first use.
func (s *UsageStore) entry(clientID string) *usageEntry {
	s.mu.RLock()
	entry, ok := s.entries[clientID]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	if entry, ok = s.entries[clientID]; ok {
		s.mu.Unlock()
		return entry
	}
	entry = &usageEntry{}
	s.entries[clientID] = entry
	clients := len(s.entries)
	s.mu.Unlock()

	if s.OnInsert != nil {
		s.OnInsert(clients)
	}
	return entry
}

func normalizeClientID(clientID string) string {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return UnknownClient
	}
	return clientID
}
