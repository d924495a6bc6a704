// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// Downloader performs byte-level HTTP GETs. It exists so callers can swap in
// a test double; the default implementation is backed by net/http, mirroring
// the way the teacher's own source.go/maybe_source.go inject a fetch-capable
// collaborator rather than calling the network inline everywhere.
type Downloader interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPDownloader is the default Downloader, backed by net/http.
type HTTPDownloader struct {
	Client *http.Client
}

// NewHTTPDownloader returns a Downloader using http.DefaultClient if client
// is nil.
func NewHTTPDownloader(client *http.Client) *HTTPDownloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPDownloader{Client: client}
}

func (d *HTTPDownloader) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s", url)
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %s", url)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, errors.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}

// getAll is a convenience wrapper for callers that want the whole body in
// memory (every caller in this package does -- documents here are small).
func getAll(ctx context.Context, d Downloader, url string) ([]byte, error) {
	rc, err := d.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading body of %s", url)
	}
	return body, nil
}
