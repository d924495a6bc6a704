// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache implements the global, lock-protected package cache: it
// fetches and unpacks package archives and local checkouts into a canonical
// layout, deduplicates concurrent requests per (name, version), computes
// and memoizes diffstats per (name, delta), and persists three ancillary
// documents across runs.
package cache

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	vetcore "github.com/koyeung/cargo-vet"
)

const (
	lockFileName       = ".vet-lock"
	emptyPackageDir    = "empty"
	registrySrcDir     = "src"
	registryCacheDir   = "cache"
	diffCacheFileName  = "diff-cache.toml"
	historyFileName    = "command-history.json"
	publisherFileName  = "publisher-cache.json"
	cargoOkFileName    = ".cargo-ok"
	cargoOkBody        = "ok"
	maxConcurrentDiffs = 40
)

// allowedRootFiles is every entry gc's root pass leaves untouched.
var allowedRootFiles = map[string]bool{
	lockFileName:      true,
	emptyPackageDir:   true,
	registrySrcDir:    true,
	registryCacheDir:  true,
	diffCacheFileName: true,
	historyFileName:   true,
	publisherFileName: true,
}

// Cache is the global, lock-protected package cache. All filesystem access
// under root must go through a Cache to avoid races, mirroring the
// teacher's own SourceMgr: one process-wide owner of a lock-protected
// directory tree.
//
// A zero-root Cache (constructed via Mock) never touches disk and is used
// in tests, mirroring the original tool's own mock-cache test mode.
type Cache struct {
	lock *vetcore.Handle
	root string // empty in mock mode

	registryIdx RegistryIndex

	diffSem chan struct{}

	mu            sync.Mutex
	diffCache     DiffCache
	commandHist   CommandHistory
	publisherDocs PublisherCache
	fetching      map[fetchKey]*fetchFuture
	diffing       map[diffKey]*diffFuture
}

type fetchKey struct {
	pkg     vetcore.PackageName
	version string
}

type diffKey struct {
	pkg   vetcore.PackageName
	delta string
}

// Acquire locks root (creating it and its fixed subdirectories if
// necessary) and loads the three ancillary documents.
func Acquire(root string) (*Cache, error) {
	lock, err := vetcore.OpenRW(root, lockFileName, "cache")
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{emptyPackageDir, registrySrcDir, registryCacheDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0777); err != nil {
			lock.Close()
			return nil, errors.Wrapf(err, "creating cache subdirectory %s", dir)
		}
	}

	c := &Cache{
		lock:     lock,
		root:     root,
		diffSem:  make(chan struct{}, maxConcurrentDiffs),
		fetching: make(map[fetchKey]*fetchFuture),
		diffing:  make(map[diffKey]*diffFuture),
	}

	diffCache, err := loadDiffCache(filepath.Join(root, diffCacheFileName))
	if err != nil {
		lock.Close()
		return nil, err
	}
	c.diffCache = diffCache
	c.commandHist = loadCommandHistory(filepath.Join(root, historyFileName))
	c.publisherDocs = loadPublisherCache(filepath.Join(root, publisherFileName))

	return c, nil
}

// Mock returns a Cache that keeps everything in memory and never touches
// disk, for use in tests -- the Go analog of the original tool's
// mock_cache config flag.
func Mock() *Cache {
	return &Cache{
		diffSem:       make(chan struct{}, maxConcurrentDiffs),
		fetching:      make(map[fetchKey]*fetchFuture),
		diffing:       make(map[diffKey]*diffFuture),
		diffCache:     newDiffCache(),
		publisherDocs: newPublisherCache(),
	}
}

// Release flushes the three ancillary documents back to disk (logging and
// swallowing any error, since this data is advisory) and releases the
// cache lock. Safe to call on a mock Cache (a no-op).
func (c *Cache) Release() {
	if c.root == "" {
		return
	}

	c.mu.Lock()
	diffCache, hist, pub := c.diffCache, c.commandHist, c.publisherDocs
	c.mu.Unlock()

	if err := storeDiffCache(filepath.Join(c.root, diffCacheFileName), diffCache); err != nil {
		log.Printf("cache: writing back diff-cache: %v", err)
	}
	if err := storeCommandHistory(filepath.Join(c.root, historyFileName), hist); err != nil {
		log.Printf("cache: writing back command-history: %v", err)
	}
	if err := storePublisherCache(filepath.Join(c.root, publisherFileName), pub); err != nil {
		log.Printf("cache: writing back publisher-cache: %v", err)
	}

	if c.lock != nil {
		c.lock.Close()
	}
}

// Clean deletes every file in the cache directory other than the lock, and
// clears the in-memory ancillary documents so Release doesn't resurrect
// them.
func (c *Cache) Clean() error {
	if c.root == "" {
		return errors.New("cannot clean a mock cache")
	}

	c.mu.Lock()
	c.diffCache = newDiffCache()
	c.commandHist = CommandHistory{}
	c.publisherDocs = newPublisherCache()
	c.mu.Unlock()

	entries, err := os.ReadDir(c.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == lockFileName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// LastFetch returns the command history's recorded last fetch, if any.
func (c *Cache) LastFetch() (FetchCommand, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.commandHist.LastFetch == nil {
		return FetchCommand{}, false
	}
	return *c.commandHist.LastFetch, true
}

// SetLastFetch records the most recent fetch command for future magic
// suggestions.
func (c *Cache) SetLastFetch(fc FetchCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commandHist.LastFetch = &fc
}
