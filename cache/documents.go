// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	vetcore "github.com/koyeung/cargo-vet"
)

// DiffCache is diff-cache.toml's in-memory shape: a V2 format tag ("2")
// (reserved for a future schema bump, per the teacher's own versioned
// lock-file convention) wrapping per-package, per-delta memoized diffstats.
type DiffCache struct {
	Version string                                 `toml:"version"`
	Diffs   map[string]map[string]vetcore.DiffStat `toml:"diffs"`
}

const diffCacheVersion = "2"

func newDiffCache() DiffCache {
	return DiffCache{Version: diffCacheVersion, Diffs: make(map[string]map[string]vetcore.DiffStat)}
}

// loadDiffCache loads diff-cache.toml from path. A missing file is not an
// error -- it means no diff cache exists yet, and a fresh one is returned.
// Anything else -- a file that exists but fails to parse, or unmarshals to
// a version tag other than diffCacheVersion -- is surfaced as an error: a
// corrupt or future-versioned diff cache must never be silently treated as
// "absent".
func loadDiffCache(path string) (DiffCache, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newDiffCache(), nil
		}
		return DiffCache{}, errors.Wrapf(err, "reading %s", path)
	}
	tree, err := toml.LoadBytes(raw)
	if err != nil {
		return DiffCache{}, errors.Wrapf(err, "parsing %s", path)
	}
	var dc DiffCache
	if err := tree.Unmarshal(&dc); err != nil {
		return DiffCache{}, errors.Wrapf(err, "unmarshaling %s", path)
	}
	if dc.Version != diffCacheVersion {
		return DiffCache{}, errors.Errorf("%s: unrecognized diff-cache version %q", path, dc.Version)
	}
	if dc.Diffs == nil {
		dc.Diffs = make(map[string]map[string]vetcore.DiffStat)
	}
	return dc, nil
}

func storeDiffCache(path string, dc DiffCache) error {
	if dc.Version == "" {
		dc.Version = diffCacheVersion
	}
	raw, err := toml.Marshal(dc)
	if err != nil {
		return errors.Wrap(err, "marshaling diff-cache.toml")
	}
	return os.WriteFile(path, raw, 0666)
}

// get returns a memoized diffstat for pkg/deltaKey, if one exists.
func (dc DiffCache) get(pkg, deltaKey string) (vetcore.DiffStat, bool) {
	byDelta, ok := dc.Diffs[pkg]
	if !ok {
		return vetcore.DiffStat{}, false
	}
	ds, ok := byDelta[deltaKey]
	return ds, ok
}

func (dc *DiffCache) put(pkg, deltaKey string, ds vetcore.DiffStat) {
	if dc.Diffs == nil {
		dc.Diffs = make(map[string]map[string]vetcore.DiffStat)
	}
	if dc.Diffs[pkg] == nil {
		dc.Diffs[pkg] = make(map[string]vetcore.DiffStat)
	}
	dc.Diffs[pkg][deltaKey] = ds
}

// FetchCommand is opaque to this package -- it's round-tripped as-is so a
// higher-level command layer can record "magic" suggestions about the last
// fetch that was run.
type FetchCommand struct {
	Package  string   `json:"package,omitempty"`
	Version  string   `json:"version,omitempty"`
	Criteria []string `json:"criteria,omitempty"`
}

// CommandHistory is command-history.json's in-memory shape.
type CommandHistory struct {
	LastFetch *FetchCommand `json:"last_fetch,omitempty"`
}

func loadCommandHistory(path string) CommandHistory {
	raw, err := os.ReadFile(path)
	if err != nil {
		return CommandHistory{}
	}
	var h CommandHistory
	if err := json.Unmarshal(raw, &h); err != nil {
		return CommandHistory{}
	}
	return h
}

func storeCommandHistory(path string, h CommandHistory) error {
	return writeJSON(path, h)
}

// PublisherCacheUser is the cached login/name for one registry user id.
type PublisherCacheUser struct {
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
}

// PublisherCacheVersion is the cached publish record for one package
// version: the user who published it (zero if the registry reported none,
// e.g. a version yanked or published before crates.io tracked this) and
// when.
type PublisherCacheVersion struct {
	UserID int64  `json:"user_id,omitempty"`
	When   string `json:"when,omitempty"`
}

// PublisherCacheEntry is the cached publisher lookup for one crate: every
// version the registry reported the last time we fetched it, and when that
// fetch happened -- the timestamp that drives the refresh-window check in
// Cache.PublisherRecords.
type PublisherCacheEntry struct {
	LastFetched string                           `json:"last_fetched"`
	Versions    map[string]PublisherCacheVersion `json:"versions"`
}

// PublisherCache is publisher-cache.json's in-memory shape: user-id ->
// user-info, and crate name -> cached publisher lookup.
type PublisherCache struct {
	Users  map[string]PublisherCacheUser  `json:"users"`
	Crates map[string]PublisherCacheEntry `json:"crates"`
}

func newPublisherCache() PublisherCache {
	return PublisherCache{
		Users:  make(map[string]PublisherCacheUser),
		Crates: make(map[string]PublisherCacheEntry),
	}
}

func loadPublisherCache(path string) PublisherCache {
	raw, err := os.ReadFile(path)
	if err != nil {
		return newPublisherCache()
	}
	var pc PublisherCache
	if err := json.Unmarshal(raw, &pc); err != nil {
		return newPublisherCache()
	}
	if pc.Users == nil {
		pc.Users = make(map[string]PublisherCacheUser)
	}
	if pc.Crates == nil {
		pc.Crates = make(map[string]PublisherCacheEntry)
	}
	return pc
}

func storePublisherCache(path string, pc PublisherCache) error {
	return writeJSON(path, pc)
}

func writeJSON(path string, val interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(val); err != nil {
		return errors.Wrapf(err, "marshaling %s", path)
	}
	return os.WriteFile(path, buf.Bytes(), 0666)
}
