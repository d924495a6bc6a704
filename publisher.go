// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

import (
	"context"
	"time"
)

// RegistryPublisher is one version's publish event, as reported by the
// registry index/API: who published it and when.
type RegistryPublisher struct {
	UserID UserID
	When   time.Time
}

// UserInfo is the cached login/display-name pair for a registry user id.
type UserInfo struct {
	Login string
	Name  string
}

// PublisherSource is the subset of the package cache (§4.7) the Publisher
// resolver needs. It's declared here, not in the cache package, so this
// file has no dependency on vetcore/cache -- the cache package depends on
// vetcore for its document types, not the other way around; cache.Cache
// satisfies this interface.
type PublisherSource interface {
	// PublisherRecords returns the publish events the cache has (or can
	// fetch) for the given versions of pkg, keyed by VetVersion.CacheKey(pkg).
	PublisherRecords(ctx context.Context, pkg PackageName, versions []VetVersion) (map[string]RegistryPublisher, error)
	// UserInfo looks up a cached user-id -> login/name mapping. ok is
	// false if the cache has no info for that user.
	UserInfo(ctx context.Context, id UserID) (info UserInfo, ok bool)
}

// ResolvePublishers recomputes live_imports.publisher for every relevant
// package, per spec §4.5, and returns the new publisher map in its
// entirety (callers replace live_imports.publisher wholesale).
func ResolvePublishers(ctx context.Context, src PublisherSource, localAudits *AuditsFile, liveImports *AuditsFile, cfg *ConfigFile, graph []GraphPackage, prevLock *ImportsLock) (map[PackageName][]CratesPublisher, error) {
	relevant := relevantPackages(localAudits, liveImports, prevLock)

	out := make(map[PackageName][]CratesPublisher, len(relevant))
	for pkg := range relevant {
		versions := relevantVersions(pkg, cfg, graph, localAudits, liveImports, prevLock)
		if len(versions) == 0 {
			continue
		}

		records, err := src.PublisherRecords(ctx, pkg, versions)
		if err != nil {
			return nil, err
		}

		prevVersions := make(map[string]bool)
		if prevLock != nil {
			for _, p := range prevLock.Publisher[pkg] {
				prevVersions[p.Version.CacheKey(pkg)] = true
			}
		}

		var emitted []CratesPublisher
		for _, v := range versions {
			rec, ok := records[v.CacheKey(pkg)]
			if !ok {
				continue
			}
			info, ok := src.UserInfo(ctx, rec.UserID)
			if !ok {
				continue
			}
			emitted = append(emitted, CratesPublisher{
				Version:       v,
				UserID:        rec.UserID,
				UserLogin:     info.Login,
				UserName:      info.Name,
				When:          rec.When,
				IsFreshImport: !prevVersions[v.CacheKey(pkg)],
			})
		}
		if len(emitted) > 0 {
			out[pkg] = emitted
		}
	}
	return out, nil
}

// relevantPackages gathers every package with a local wildcard audit, a
// live-imported wildcard audit, or an existing cached publisher block.
func relevantPackages(localAudits, liveImports *AuditsFile, prevLock *ImportsLock) map[PackageName]bool {
	set := make(map[PackageName]bool)
	for pkg := range localAudits.WildcardAudits {
		set[pkg] = true
	}
	if liveImports != nil {
		for pkg := range liveImports.WildcardAudits {
			set[pkg] = true
		}
	}
	if prevLock != nil {
		for pkg := range prevLock.Publisher {
			set[pkg] = true
		}
	}
	return set
}

// relevantVersions computes the relevant-versions set for one package, per
// spec §4.5: in-graph third-party versions, delta-audit "from" sides,
// exemption versions, and versions already in the prior publisher block.
func relevantVersions(pkg PackageName, cfg *ConfigFile, graph []GraphPackage, localAudits, liveImports *AuditsFile, prevLock *ImportsLock) []VetVersion {
	seen := make(map[string]bool)
	var out []VetVersion
	add := func(v VetVersion) {
		key := v.CacheKey(pkg)
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}

	for _, gp := range graph {
		if gp.Name == pkg && gp.IsThirdParty {
			add(gp.Version)
		}
	}

	addDeltaFroms := func(audits *AuditsFile) {
		if audits == nil {
			return
		}
		for _, e := range audits.Audits[pkg] {
			if e.Kind == AuditKindDelta && e.DeltaFrom != nil {
				add(*e.DeltaFrom)
			}
		}
	}
	addDeltaFroms(localAudits)
	addDeltaFroms(liveImports)

	for _, ex := range cfg.Exemptions[pkg] {
		add(ex.Version)
	}

	if prevLock != nil {
		for _, p := range prevLock.Publisher[pkg] {
			add(p.Version)
		}
	}

	return out
}
