package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// Manager coordinates the memory and disk levels. Reads promote disk hits
// into memory and concurrent loads of one key share a single call.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache
	config Config

	group singleflight.Group

	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup
	closeOnce   sync.Once

	mu    sync.Mutex
	stats ManagerStats
}

// ManagerStats aggregates both levels.
type ManagerStats struct {
	Memory     Stats
	Disk       Stats
	Loads      int64
	Promotions int64
	LastPrune  time.Time
}

// NewManager creates a manager. A zero capacity disables that level.
func NewManager(config Config) (*Manager, error) {
	m := &Manager{
		config:      config,
		cleanupStop: make(chan struct{}),
	}
	if config.MemoryCapacity > 0 {
		m.memory = NewMemoryCache(config.MemoryCapacity)
	}
	if config.DiskCapacity > 0 && config.DiskPath != "" {
		disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		m.disk = disk
	}

	if m.disk != nil && config.TTL > 0 {
		m.Prune()
		if config.CleanupInterval > 0 {
			m.cleanupWg.Add(1)
			go m.cleanupLoop()
		}
	}
	return m, nil
}

// Get looks up key in memory, then on disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if m.memory != nil {
		if data, ok := m.memory.Get(key); ok {
			return data, true
		}
	}
	if m.disk != nil {
		if data, ok := m.disk.Get(key); ok {
			if m.memory != nil && m.memory.Put(key, data) == nil {
				m.mu.Lock()
				m.stats.Promotions++
				m.mu.Unlock()
			}
			return data, true
		}
	}
	return nil, false
}

// Put stores value on every level that can hold it.
func (m *Manager) Put(key string, value []byte) error {
	if m.memory != nil {
		if err := m.memory.Put(key, value); err != nil && err != ErrItemTooLarge {
			return fmt.Errorf("memory cache: %w", err)
		}
	}
	if m.disk != nil {
		if err := m.disk.Put(key, value); err != nil && err != ErrItemTooLarge {
			return fmt.Errorf("disk cache: %w", err)
		}
	}
	return nil
}

// Load returns the cached value of key or calls load and caches its result.
// Concurrent loads of the same key wait for the first one.
func (m *Manager) Load(key string, load func() ([]byte, error)) ([]byte, error) {
	if data, ok := m.Get(key); ok {
		return data, nil
	}
	v, err, _ := m.group.Do(key, func() (any, error) {
		if data, ok := m.Get(key); ok {
			return data, nil
		}
		data, err := load()
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.stats.Loads++
		m.mu.Unlock()
		if err := m.Put(key, data); err != nil {
			log.Warn("cache put failed", "err", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Contains reports whether any level holds key.
func (m *Manager) Contains(key string) bool {
	return (m.memory != nil && m.memory.Contains(key)) || (m.disk != nil && m.disk.Contains(key))
}

// Delete removes key from every level.
func (m *Manager) Delete(key string) error {
	if m.memory != nil {
		_ = m.memory.Delete(key)
	}
	if m.disk != nil {
		return m.disk.Delete(key)
	}
	return nil
}

// Clear empties every level.
func (m *Manager) Clear() error {
	if m.memory != nil {
		_ = m.memory.Clear()
	}
	if m.disk != nil {
		return m.disk.Clear()
	}
	return nil
}

// Prune removes disk entries older than the TTL.
func (m *Manager) Prune() int {
	if m.disk == nil || m.config.TTL <= 0 {
		return 0
	}
	n := m.disk.RemoveOlderThan(time.Now().Add(-m.config.TTL))
	m.mu.Lock()
	m.stats.LastPrune = time.Now()
	m.mu.Unlock()
	if n > 0 {
		log.Debug("pruned audio cache", "entries", n)
	}
	return n
}

// Stats returns statistics of both levels.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	s := m.stats
	m.mu.Unlock()
	if m.memory != nil {
		s.Memory = m.memory.Stats()
	}
	if m.disk != nil {
		s.Disk = m.disk.Stats()
	}
	return s
}

// Close stops the cleanup loop and saves the disk index.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.cleanupStop)
		m.cleanupWg.Wait()
		if m.disk != nil {
			err = m.disk.Close()
		}
	})
	return err
}

func (m *Manager) cleanupLoop() {
	defer m.cleanupWg.Done()
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Prune()
		case <-m.cleanupStop:
			return
		}
	}
}
