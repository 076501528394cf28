// Package store persists the gateway state that must survive a restart:
// the provider-id counter, API-key map, key-admin allowlist, URL
// override, demo-mode flag, subnet-node-count override, and log-filter
// configuration. One JSON file, loaded on startup and rewritten on every
// mutation.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// state is the on-disk shape.
type state struct {
	NextProviderID  uint64            `json:"next_provider_id"`
	APIKeys         map[uint64]string `json:"api_keys"`
	KeyAdmins       []string          `json:"key_admins"`
	URLOverride     string            `json:"url_override,omitempty"`
	DemoMode        bool              `json:"demo_mode"`
	SubnetNodeCount uint32            `json:"subnet_node_count"`
	LogFilter       string            `json:"log_filter,omitempty"`
}

// Store is the mutex-guarded, file-backed handle every mutation and read
// goes through. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	path string
	s    state
}

// Open loads path if it exists, or initializes a fresh Store with the
// given defaults otherwise (first run). defaultSubnetNodes should match
// the subnet size the cost estimator prices against.
func Open(path string, defaultSubnetNodes uint32) (*Store, error) {
	st := &Store{
		path: path,
		s: state{
			NextProviderID:  1,
			APIKeys:         make(map[uint64]string),
			SubnetNodeCount: defaultSubnetNodes,
		},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := st.persistLocked(); err != nil {
			return nil, err
		}
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &st.s); err != nil {
		return nil, fmt.Errorf("store: parsing %s: %w", path, err)
	}
	if st.s.APIKeys == nil {
		st.s.APIKeys = make(map[uint64]string)
	}
	return st, nil
}

// persistLocked writes the current state to disk. Callers must hold mu
// (read or write) — a write lock for mutations, a read lock is also
// sufficient since os.WriteFile only reads s.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.s, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshaling state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("store: creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("store: writing %s: %w", s.path, err)
	}
	return nil
}

// APIKey returns the configured key for providerID, if any.
func (s *Store) APIKey(providerID uint64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.s.APIKeys[providerID]
	return key, ok
}

// UpdateAPIKeys applies a batch of (provider_id, optional key) updates.
// A nil key deletes the entry, reverting that provider to its public
// fallback if one exists.
func (s *Store) UpdateAPIKeys(updates map[uint64]*string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, key := range updates {
		if key == nil {
			delete(s.s.APIKeys, id)
			continue
		}
		s.s.APIKeys[id] = *key
	}
	return s.persistLocked()
}

// IsKeyAdmin reports whether principal is allowed to call UpdateAPIKeys.
func (s *Store) IsKeyAdmin(principal string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.s.KeyAdmins {
		if p == principal {
			return true
		}
	}
	return false
}

// SetKeyAdmins replaces the key-admin allowlist.
func (s *Store) SetKeyAdmins(admins []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.KeyAdmins = append([]string(nil), admins...)
	return s.persistLocked()
}

// NextProviderID allocates and persists the next provider id, for
// registering a provider added after startup.
func (s *Store) NextProviderID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.s.NextProviderID
	s.s.NextProviderID++
	return id, s.persistLocked()
}

// URLOverride returns the configured override pattern, or "" if none.
func (s *Store) URLOverride() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.s.URLOverride
}

// SetURLOverride updates the URL override pattern.
func (s *Store) SetURLOverride(pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.URLOverride = pattern
	return s.persistLocked()
}

// DemoMode reports whether cost charging is disabled.
func (s *Store) DemoMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.s.DemoMode
}

// SetDemoMode toggles demo mode.
func (s *Store) SetDemoMode(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.DemoMode = enabled
	return s.persistLocked()
}

// SubnetNodeCount returns the node count calls are priced against,
// backing the get_nodes_in_subnet admin query.
func (s *Store) SubnetNodeCount() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.s.SubnetNodeCount
}

// SetSubnetNodeCount updates the configured subnet size.
func (s *Store) SetSubnetNodeCount(n uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.SubnetNodeCount = n
	return s.persistLocked()
}

// LogFilter returns the configured log-level filter string.
func (s *Store) LogFilter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.s.LogFilter
}

// SetLogFilter updates the configured log-level filter string.
func (s *Store) SetLogFilter(filter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.s.LogFilter = filter
	return s.persistLocked()
}
