// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"time"

	vetcore "github.com/koyeung/cargo-vet"
)

// nonindexVersionPublisherRefreshDays bounds how long a crate's cached
// publisher lookup is trusted to stand in for a network fetch when some
// requested version is still missing from it: a crate marked
// audit-as-crates-io that never actually published the version in
// question would otherwise force a network round-trip on every run.
const nonindexVersionPublisherRefreshDays = 1

// WithRegistryIndex attaches a RegistryIndex the cache will consult on a
// miss, mirroring has_registry/query_package_from_index in the original
// tool's storage layer.
func (c *Cache) WithRegistryIndex(idx RegistryIndex) *Cache {
	c.registryIdx = idx
	return c
}

// HasRegistry reports whether a registry index has been configured.
func (c *Cache) HasRegistry() bool {
	return c.registryIdx != nil && c.registryIdx.HasIndex()
}

// EnsureIndexUpToDate refreshes the local registry index, returning
// whether it changed. A no-op if no registry index is configured.
func (c *Cache) EnsureIndexUpToDate(ctx context.Context) (bool, error) {
	if !c.HasRegistry() {
		return false, nil
	}
	return c.registryIdx.EnsureIndexUpToDate(ctx)
}

// QueryPackageFromIndex reports the version numbers the registry index
// knows about for name, as answered by the configured RegistryIndex;
// HTTPRegistryIndex answers with a registry API request on every call. ok
// is false if no registry index is configured, the query fails, or the
// index has no entry for name at all.
func (c *Cache) QueryPackageFromIndex(ctx context.Context, name vetcore.PackageName) (versions map[string]bool, ok bool) {
	if !c.HasRegistry() {
		return nil, false
	}
	versions, ok, err := c.registryIdx.QueryPackage(ctx, name)
	if err != nil {
		return nil, false
	}
	return versions, ok
}

// PublisherRecords implements vetcore.PublisherSource. It follows the
// original tool's three-step lookup:
//
//  1. If every requested version is already in the cached entry for pkg,
//     return the cache as-is -- no network access.
//  2. Otherwise, if the cached entry was fetched less than
//     nonindexVersionPublisherRefreshDays ago, and none of the still-missing
//     versions appear in the registry index, the cache is presumed
//     complete (those versions are simply unpublished) and is returned
//     as-is.
//  3. Otherwise, fetch the crate's full publisher record from the
//     registry, persist it (with a fresh last-fetched timestamp) and
//     return it.
func (c *Cache) PublisherRecords(ctx context.Context, pkg vetcore.PackageName, versions []vetcore.VetVersion) (map[string]vetcore.RegistryPublisher, error) {
	c.mu.Lock()
	entry, hasEntry := c.publisherDocs.Crates[string(pkg)]
	c.mu.Unlock()

	var missing []vetcore.VetVersion
	if hasEntry {
		for _, v := range versions {
			if _, ok := entry.Versions[v.Semver.String()]; !ok {
				missing = append(missing, v)
			}
		}
		if len(missing) == 0 {
			return publisherRecordsFromEntry(pkg, versions, entry), nil
		}

		if recentlyFetched(entry.LastFetched) {
			if indexVersions, ok := c.QueryPackageFromIndex(ctx, pkg); ok {
				if noneIndexed(missing, indexVersions) {
					return publisherRecordsFromEntry(pkg, versions, entry), nil
				}
			}
		}
	} else {
		missing = versions
	}

	if c.registryIdx == nil {
		return publisherRecordsFromEntry(pkg, versions, entry), nil
	}

	fetched, err := c.registryIdx.FetchPublishers(ctx, pkg)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	newEntry := PublisherCacheEntry{
		LastFetched: now.Format(time.RFC3339),
		Versions:    make(map[string]PublisherCacheVersion, len(fetched)),
	}

	c.mu.Lock()
	for num, ev := range fetched {
		newEntry.Versions[num] = PublisherCacheVersion{
			UserID: int64(ev.UserID),
			When:   ev.When.Format(time.RFC3339),
		}
		if ev.UserID != 0 && ev.Login != "" {
			c.publisherDocs.Users[userIDKey(ev.UserID)] = PublisherCacheUser{Login: ev.Login, Name: ev.Name}
		}
	}
	if c.publisherDocs.Crates == nil {
		c.publisherDocs.Crates = make(map[string]PublisherCacheEntry)
	}
	c.publisherDocs.Crates[string(pkg)] = newEntry
	c.mu.Unlock()

	return publisherRecordsFromEntry(pkg, versions, newEntry), nil
}

// publisherRecordsFromEntry projects entry down to the versions actually
// requested, in vetcore.RegistryPublisher form.
func publisherRecordsFromEntry(pkg vetcore.PackageName, versions []vetcore.VetVersion, entry PublisherCacheEntry) map[string]vetcore.RegistryPublisher {
	out := make(map[string]vetcore.RegistryPublisher)
	for _, v := range versions {
		rec, ok := entry.Versions[v.Semver.String()]
		if !ok || rec.UserID == 0 {
			continue
		}
		when, _ := time.Parse(time.RFC3339, rec.When)
		out[v.CacheKey(pkg)] = vetcore.RegistryPublisher{UserID: vetcore.UserID(rec.UserID), When: when}
	}
	return out
}

// recentlyFetched reports whether lastFetched (an RFC3339 timestamp, or
// empty for "never") is within the refresh window.
func recentlyFetched(lastFetched string) bool {
	if lastFetched == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, lastFetched)
	if err != nil {
		return false
	}
	return time.Since(t) < nonindexVersionPublisherRefreshDays*24*time.Hour
}

// noneIndexed reports whether none of the missing versions appear in the
// registry index's known version set.
func noneIndexed(missing []vetcore.VetVersion, indexVersions map[string]bool) bool {
	for _, v := range missing {
		if indexVersions[v.Semver.String()] {
			return false
		}
	}
	return true
}

// UserInfo implements vetcore.PublisherSource: it returns the cached
// login/name for id, populated as a side effect of a prior PublisherRecords
// fetch. There is no standalone per-user endpoint to fall back to -- the
// registry only ever reports user info embedded in a crate's publisher
// list -- so a cache miss here is simply unknown.
func (c *Cache) UserInfo(ctx context.Context, id vetcore.UserID) (vetcore.UserInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.publisherDocs.Users[userIDKey(id)]
	if !ok {
		return vetcore.UserInfo{}, false
	}
	return vetcore.UserInfo{Login: u.Login, Name: u.Name}, true
}
