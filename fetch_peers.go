// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
)

// FetchPeerAudits downloads and leniently parses each configured peer's
// audits.toml, returning one FetchedAudits per peer in the same order as
// cfg.Imports is iterated. A peer whose document fails to download or parse
// at the TOML level is a hard error (unlike per-entry lenience inside the
// document, which parseForeignAudits handles); a network failure for one
// peer does not stop the others from being attempted.
func FetchPeerAudits(ctx context.Context, d Downloader, cfg *ConfigFile) ([]FetchedAudits, error) {
	var (
		out  []FetchedAudits
		errs []error
	)

	for peerName, importCfg := range cfg.Imports {
		audits, err := fetchOnePeer(ctx, d, peerName, importCfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, FetchedAudits{PeerName: peerName, Audits: audits})
	}

	if len(errs) > 0 {
		return nil, asMultiError(errs)
	}
	return out, nil
}

func fetchOnePeer(ctx context.Context, d Downloader, peerName string, cfg ImportConfig) (*AuditsFile, error) {
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, errors.Wrapf(err, "import %q: invalid url %q", peerName, cfg.URL)
	}

	raw, err := getAll(ctx, d, cfg.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "import %q", peerName)
	}

	_, doc, err := loadTOML[AuditsFile](peerName+"/audits.toml", raw)
	if err != nil {
		return nil, errors.Wrapf(err, "import %q", peerName)
	}

	res := parseForeignAudits(&doc)
	if err := fetchCriteriaDescriptions(ctx, d, peerName, res.doc); err != nil {
		return nil, err
	}
	return res.doc, nil
}

// fetchCriteriaDescriptions resolves every surviving criterion's
// description_url, per spec §6's "missing criterion description" network
// error: a criterion with a description_url that fails to fetch, or one
// with neither a description nor a description_url, fails the whole peer.
func fetchCriteriaDescriptions(ctx context.Context, d Downloader, peerName string, doc *AuditsFile) error {
	for name, entry := range doc.Criteria {
		if entry.Description != "" {
			continue
		}
		if entry.DescriptionURL == "" {
			return errors.Errorf("import %q: criterion %q has no description or description_url", peerName, name)
		}
		if _, err := url.ParseRequestURI(entry.DescriptionURL); err != nil {
			return errors.Wrapf(err, "import %q: criterion %q has invalid description_url", peerName, name)
		}
		body, err := getAll(ctx, d, entry.DescriptionURL)
		if err != nil {
			return errors.Wrapf(err, "import %q: fetching description for criterion %q", peerName, name)
		}
		entry.Description = string(body)
		doc.Criteria[name] = entry
	}
	return nil
}
