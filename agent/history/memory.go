package history

import (
	"context"
	"sync"
)

// memoryDriver keeps entries in process memory. Used in tests and for
// single-instance deployments without external storage.
type memoryDriver struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

var _ Driver = (*memoryDriver)(nil)

func newMemoryDriver() *memoryDriver {
	return &memoryDriver{entries: make(map[string]*Entry)}
}

func (d *memoryDriver) Load(ctx context.Context, userID string) (*Entry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.entries[userID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return entry.clone(), nil
}

func (d *memoryDriver) Save(ctx context.Context, entry *Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries[entry.UserID] = entry.clone()
	return nil
}

func (d *memoryDriver) Delete(ctx context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.entries, userID)
	return nil
}

func (d *memoryDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = nil
	return nil
}
