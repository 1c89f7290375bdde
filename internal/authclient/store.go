package authclient

import "sync"

// TokenStore holds the current access/refresh pair for a client. The zero
// value of MemoryStore is ready to use; file- or keyring-backed stores can
// implement the same interface.
type TokenStore interface {
	Tokens() (access, refresh string)
	SetTokens(access, refresh string)
	Clear()
}

// MemoryStore keeps the pair in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Tokens() (string, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access, m.refresh
}

func (m *MemoryStore) SetTokens(access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = access, refresh
}

func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = "", ""
}
