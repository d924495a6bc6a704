// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	vetcore "github.com/koyeung/cargo-vet"
)

// RegistryIndex is the subset of the crates.io index/API the cache needs:
// whether a local mirror of the index is available at all, an
// up-to-date-or-not check, and querying actual publish events over HTTP.
// A real implementation wraps the registry's index client the way the
// original tool wraps `crates_index::Index`; EnsureIndexUpToDate is the
// equivalent of its own index.update() call.
type RegistryIndex interface {
	HasIndex() bool
	EnsureIndexUpToDate(ctx context.Context) (changed bool, err error)
	// QueryPackage reports the set of version numbers the registry index
	// knows about for pkg, and whether pkg has an entry in the index at
	// all.
	QueryPackage(ctx context.Context, pkg vetcore.PackageName) (versions map[string]bool, ok bool, err error)
	// FetchPublishers fetches the complete crate record for pkg from the
	// registry and returns every version's publish event, keyed by
	// version number. A version the registry has no publisher on record
	// for is still present in the result, with a zero RegistryPublishEvent.
	FetchPublishers(ctx context.Context, pkg vetcore.PackageName) (map[string]RegistryPublishEvent, error)
}

// RegistryPublishEvent is one version's raw publish record as reported by
// the crates.io API's `versions[].published_by` field, embedded directly
// in the crate response -- no separate per-user lookup is ever made.
type RegistryPublishEvent struct {
	UserID vetcore.UserID
	Login  string
	Name   string
	When   time.Time
}

// HTTPRegistryIndex is the default RegistryIndex, backed by crates.io's
// public API via a vetcore.Downloader.
type HTTPRegistryIndex struct {
	Downloader vetcore.Downloader
	BaseURL    string // defaults to "https://crates.io/api/v1"
	upToDate   bool
}

func NewHTTPRegistryIndex(d vetcore.Downloader) *HTTPRegistryIndex {
	return &HTTPRegistryIndex{Downloader: d, BaseURL: "https://crates.io/api/v1"}
}

func (r *HTTPRegistryIndex) HasIndex() bool { return r.Downloader != nil }

func (r *HTTPRegistryIndex) EnsureIndexUpToDate(ctx context.Context) (bool, error) {
	if r.upToDate {
		return false, nil
	}
	r.upToDate = true
	return true, nil
}

// crateResponse is the shape of `GET /crates/{name}`: a list of versions,
// each optionally carrying the user who published it.
type crateResponse struct {
	Versions []struct {
		Num         string `json:"num"`
		CreatedAt   string `json:"created_at"`
		PublishedBy *struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
			Name  string `json:"name"`
		} `json:"published_by"`
	} `json:"versions"`
}

func (r *HTTPRegistryIndex) fetchCrate(ctx context.Context, pkg vetcore.PackageName) (crateResponse, error) {
	if strings.Contains(string(pkg), "/") {
		return crateResponse{}, errors.Errorf("invalid crate name %q", pkg)
	}
	url := fmt.Sprintf("%s/crates/%s", r.BaseURL, pkg)
	raw, err := getAllBody(ctx, r.Downloader, url)
	if err != nil {
		return crateResponse{}, err
	}
	var resp crateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return crateResponse{}, err
	}
	return resp, nil
}

func (r *HTTPRegistryIndex) QueryPackage(ctx context.Context, pkg vetcore.PackageName) (map[string]bool, bool, error) {
	resp, err := r.fetchCrate(ctx, pkg)
	if err != nil {
		return nil, false, nil
	}
	versions := make(map[string]bool, len(resp.Versions))
	for _, ver := range resp.Versions {
		versions[ver.Num] = true
	}
	return versions, true, nil
}

// FetchPublishers fetches `GET /crates/{pkg}` and returns every version's
// publish event, keyed by version number -- the single call crates.io
// documents for this lookup, carrying `published_by: {id, login, name?}`
// embedded in each version entry rather than requiring a separate
// per-user-id request.
func (r *HTTPRegistryIndex) FetchPublishers(ctx context.Context, pkg vetcore.PackageName) (map[string]RegistryPublishEvent, error) {
	resp, err := r.fetchCrate(ctx, pkg)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching publisher info for %s", pkg)
	}

	out := make(map[string]RegistryPublishEvent, len(resp.Versions))
	for _, ver := range resp.Versions {
		var ev RegistryPublishEvent
		ev.When, _ = time.Parse(time.RFC3339, ver.CreatedAt)
		if ver.PublishedBy != nil {
			ev.UserID = vetcore.UserID(ver.PublishedBy.ID)
			ev.Login = ver.PublishedBy.Login
			ev.Name = ver.PublishedBy.Name
		}
		out[ver.Num] = ev
	}
	return out, nil
}

func getAllBody(ctx context.Context, d vetcore.Downloader, url string) ([]byte, error) {
	rc, err := d.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func userIDKey(id vetcore.UserID) string { return strconv.FormatInt(int64(id), 10) }
