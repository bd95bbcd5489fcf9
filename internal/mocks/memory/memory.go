// Package memory contains simple hand-written test doubles for console ports.
// These are lightweight and suitable for unit tests without codegen.
package memory

import (
	"context"
	"sync"

	"github.com/target/mmk-admin-console/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.BlobStore = (*BlobStore)(nil)
	_ ports.Navigator = (*Navigator)(nil)
	_ ports.Notifier  = (*Notifier)(nil)
)

// BlobStore is an in-memory BlobStore for unit tests.
type BlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

func (m *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *BlobStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), value...)
	return nil
}

func (m *BlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

// Has reports whether key holds a value.
func (m *BlobStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok
}

// Navigator records every navigation target in order.
type Navigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *Navigator) NavigateTo(_ context.Context, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
	return nil
}

// Paths returns the recorded targets.
func (n *Navigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// Last returns the most recent target or "".
func (n *Navigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return ""
	}
	return n.paths[len(n.paths)-1]
}

// Notifier records every notice in order.
type Notifier struct {
	mu      sync.Mutex
	notices []ports.Notice
}

func (n *Notifier) Notify(_ context.Context, notice ports.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

// Notices returns the recorded notices.
func (n *Notifier) Notices() []ports.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ports.Notice(nil), n.notices...)
}
