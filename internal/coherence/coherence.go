// Package coherence keeps RecordStore and VectorIndex consistent across
// processes sharing the same store directory: an advisory file lock
// serializes write groups, and a lightweight epoch sentinel file lets
// readers detect that another process committed a write group so they know
// to reload whatever client state they cached (e.g. a memory-mapped
// VectorIndex connection).
package coherence

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/hughpyle/keep/internal/logging"
)

const (
	lockFileName  = ".keep.lock"
	epochFileName = ".keep.epoch"
)

// Coherence coordinates a single store directory's cross-process lock and
// epoch sentinel. One Coherence per process per store directory; safe for
// concurrent use by multiple goroutines within that process.
type Coherence struct {
	mu        sync.Mutex
	// lockMu serializes this process's goroutines around the file lock,
	// since one flock handle does not exclude callers that share it.
	lockMu    sync.RWMutex
	storeDir  string
	lock      *flock.Flock
	epochPath string
	lastEpoch time.Time
}

// Open prepares the coherence layer for storeDir, creating the epoch
// sentinel file if it does not already exist.
func Open(storeDir string) (*Coherence, error) {
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", storeDir, err)
	}
	epochPath := filepath.Join(storeDir, epochFileName)
	if _, err := os.Stat(epochPath); os.IsNotExist(err) {
		if err := touchEpoch(epochPath); err != nil {
			return nil, err
		}
	}
	epoch, err := epochModTime(epochPath)
	if err != nil {
		return nil, err
	}

	c := &Coherence{
		storeDir:  storeDir,
		lock:      flock.New(filepath.Join(storeDir, lockFileName)),
		epochPath: epochPath,
		lastEpoch: epoch,
	}
	return c, nil
}

// WithWriteLock runs fn while holding the cross-process exclusive lock,
// then bumps the epoch sentinel on success so other processes' readers
// notice the write group on their next CheckEpoch.
func (c *Coherence) WithWriteLock(fn func() error) error {
	c.lockMu.Lock()
	defer c.lockMu.Unlock()
	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	defer func() {
		if err := c.lock.Unlock(); err != nil {
			logging.Get(logging.CategoryCoherence).Warn("release write lock failed: %v", err)
		}
	}()

	if err := fn(); err != nil {
		return err
	}
	return c.bumpEpochLocked()
}

// WithReadLock runs fn while holding the cross-process shared lock. Shared
// locks block a concurrent writer but not other readers.
func (c *Coherence) WithReadLock(fn func() error) error {
	c.lockMu.RLock()
	defer c.lockMu.RUnlock()
	if err := c.lock.RLock(); err != nil {
		return fmt.Errorf("acquire read lock: %w", err)
	}
	defer func() {
		if err := c.lock.Unlock(); err != nil {
			logging.Get(logging.CategoryCoherence).Warn("release read lock failed: %v", err)
		}
	}()
	return fn()
}

func (c *Coherence) bumpEpochLocked() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := touchEpoch(c.epochPath); err != nil {
		return fmt.Errorf("bump epoch: %w", err)
	}
	epoch, err := epochModTime(c.epochPath)
	if err != nil {
		return err
	}
	c.lastEpoch = epoch
	logging.CoherenceDebug("epoch bumped to %s", epoch.Format(time.RFC3339Nano))
	return nil
}

// CheckEpoch reports whether the epoch sentinel's mtime has advanced past
// what this Coherence last observed — i.e. whether another process (or
// another Coherence instance in this process) committed a write group since
// the caller last reloaded. It updates its own bookkeeping regardless of
// the outcome, so calling it twice in a row without an intervening write
// reports changed=false the second time.
func (c *Coherence) CheckEpoch() (changed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	epoch, err := epochModTime(c.epochPath)
	if err != nil {
		return false, fmt.Errorf("stat epoch sentinel: %w", err)
	}
	changed = epoch.After(c.lastEpoch)
	c.lastEpoch = epoch
	return changed, nil
}

// Close releases the lock handle. The epoch sentinel file is left in place
// for the next process to open.
func (c *Coherence) Close() error {
	return c.lock.Close()
}

func touchEpoch(path string) error {
	now := time.Now()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open epoch sentinel %s: %w", path, err)
	}
	f.Close()
	if err := os.Chtimes(path, now, now); err != nil {
		return fmt.Errorf("update epoch sentinel mtime %s: %w", path, err)
	}
	return nil
}

func epochModTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
