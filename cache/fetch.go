// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/vcs"

	vetcore "github.com/koyeung/cargo-vet"
)

// FetchError reports why FetchPackage could not produce an unpacked
// package directory.
type FetchError struct {
	Package vetcore.PackageName
	Version vetcore.VetVersion
	Reason  string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetching %s %s: %s: %v", e.Package, e.Version, e.Reason, e.Cause)
	}
	return fmt.Sprintf("fetching %s %s: %s", e.Package, e.Version, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// FetchPackage returns the canonical unpacked directory for (pkg, version),
// fetching or repacking it if necessary. Concurrent calls for the same key
// fold together via coordinateFetch. checkoutPath is the local working
// copy to repack from when version carries a git revision (the git-rev
// path never touches the network); it is ignored for registry versions.
func (c *Cache) FetchPackage(ctx context.Context, d vetcore.Downloader, pkg vetcore.PackageName, version vetcore.VetVersion, checkoutPath string) (string, error) {
	key := fetchKey{pkg: pkg, version: version.CacheKey(pkg)}

	return c.coordinateFetch(key, func() (string, error) {
		if version.GitRev != "" {
			return c.fetchGitRevPackage(pkg, version, checkoutPath)
		}
		return c.fetchRegistryPackage(ctx, d, pkg, version)
	})
}

func (c *Cache) fetchGitRevPackage(pkg vetcore.PackageName, version vetcore.VetVersion, checkoutPath string) (string, error) {
	if c.root == "" {
		return "", &FetchError{Package: pkg, Version: version, Reason: "cannot fetch from a mock cache"}
	}

	repacked := filepath.Join(c.root, registrySrcDir, fmt.Sprintf("%s-%s.git.%s", pkg, version.Semver, version.GitRev))
	if fetchIsOK(repacked) {
		return repacked, nil
	}

	if checkoutPath == "" {
		return "", &FetchError{Package: pkg, Version: version, Reason: "unknown git revision: no local checkout found"}
	}

	repo, err := vcs.NewGitRepo("", checkoutPath)
	if err != nil || !repo.CheckLocal() {
		return "", &FetchError{Package: pkg, Version: version, Reason: "not a git checkout", Cause: err}
	}

	if err := unpackCheckout(checkoutPath, repacked); err != nil {
		return "", &FetchError{Package: pkg, Version: version, Reason: "repacking checkout", Cause: err}
	}
	return repacked, nil
}

func (c *Cache) fetchRegistryPackage(ctx context.Context, d vetcore.Downloader, pkg vetcore.PackageName, version vetcore.VetVersion) (string, error) {
	if c.root == "" {
		return "", &FetchError{Package: pkg, Version: version, Reason: "cannot fetch from a mock cache"}
	}

	dirName := fmt.Sprintf("%s-%s", pkg, version.Semver)
	fetchedSrc := filepath.Join(c.root, registrySrcDir, dirName)
	if fetchIsOK(fetchedSrc) {
		return fetchedSrc, nil
	}

	fetchedCrate := filepath.Join(c.root, registryCacheDir, dirName+".crate")
	if _, err := os.Stat(fetchedCrate); err != nil {
		if d == nil {
			return "", &FetchError{Package: pkg, Version: version, Reason: "frozen: network disallowed and cache miss"}
		}
		if err := c.downloadCrate(ctx, d, pkg, version, fetchedCrate); err != nil {
			return "", err
		}
	} else {
		touchFile(fetchedCrate)
	}

	f, err := os.Open(fetchedCrate)
	if err != nil {
		return "", &FetchError{Package: pkg, Version: version, Reason: "opening cached archive", Cause: err}
	}
	defer f.Close()

	if err := unpackPackage(f, fetchedSrc); err != nil {
		return "", &FetchError{Package: pkg, Version: version, Reason: "unpacking archive", Cause: err}
	}
	return fetchedSrc, nil
}

func (c *Cache) downloadCrate(ctx context.Context, d vetcore.Downloader, pkg vetcore.PackageName, version vetcore.VetVersion, dest string) error {
	url := fmt.Sprintf("https://crates.io/api/v1/crates/%s/%s/download", pkg, version.Semver)
	rc, err := d.Get(ctx, url)
	if err != nil {
		return &FetchError{Package: pkg, Version: version, Reason: "downloading", Cause: err}
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0777); err != nil {
		return &FetchError{Package: pkg, Version: version, Reason: "creating cache dir", Cause: err}
	}

	out, err := os.Create(dest)
	if err != nil {
		return &FetchError{Package: pkg, Version: version, Reason: "creating cached archive", Cause: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return &FetchError{Package: pkg, Version: version, Reason: "writing cached archive", Cause: err}
	}
	return nil
}

// touchFile refreshes a crate's access/modification time so the GC pass
// doesn't reap a package that's still in active use.
func touchFile(path string) {
	now := time.Now()
	os.Chtimes(path, now, now)
}
