// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

import "sort"

// FetchedAudits is one peer's freshly fetched document, paired with its
// name as declared in config.toml's [imports].
type FetchedAudits struct {
	PeerName string
	Audits   *AuditsFile
}

// Reconcile merges a batch of freshly fetched peer audit documents against
// the previous imports-lock, producing a new imports-lock (the publisher
// map is left untouched here -- that's the Publisher resolver's job).
//
// If allowCriteriaChanges is false and any peer's criteria descriptions
// drifted from what's recorded in prevLock, Reconcile accumulates every
// such drift and returns the *CriteriaChangeError values instead of a new
// lock: a single one as-is, several wrapped in a *MultiError.
func Reconcile(fetched []FetchedAudits, localAudits *AuditsFile, cfg *ConfigFile, prevLock *ImportsLock, allowCriteriaChanges bool) (*ImportsLock, error) {
	newLock := newImportsLock()
	if prevLock != nil {
		newLock.Publisher = prevLock.Publisher
	}

	localMapper := NewCriteriaMapper(localAudits.Criteria)
	var criteriaErrs []error

	for _, f := range fetched {
		importCfg := cfg.Imports[f.PeerName]

		filtered := dropExcluded(f.Audits, importCfg)

		rewritten := rewriteAuditsFile(filtered, importCfg, localMapper)

		retained := retainMappedCriteria(filtered, importCfg)
		rewritten.Criteria = retained

		if prevLock != nil {
			if prev, ok := prevLock.Audits[f.PeerName]; ok {
				if !allowCriteriaChanges {
					criteriaErrs = append(criteriaErrs, compareCriteriaDescriptions(f.PeerName, prev.Criteria, retained)...)
				}
				carryForwardFreshness(&prev, rewritten)
			}
		}

		newLock.Audits[f.PeerName] = *rewritten
	}

	if len(criteriaErrs) > 0 {
		return nil, asMultiError(criteriaErrs)
	}
	return newLock, nil
}

// dropExcluded removes every package listed in cfg.Exclude from a fetched
// document, per reconciliation step 1.
func dropExcluded(doc *AuditsFile, cfg ImportConfig) *AuditsFile {
	out := newAuditsFile()
	out.Criteria = doc.Criteria
	for pkg, entries := range doc.Audits {
		if cfg.excludes(pkg) {
			continue
		}
		out.Audits[pkg] = entries
	}
	for pkg, entries := range doc.WildcardAudits {
		if cfg.excludes(pkg) {
			continue
		}
		out.WildcardAudits[pkg] = entries
	}
	return out
}

// rewriteAuditsFile rewrites every audit and wildcard-audit entry's criteria
// list into the local namespace (step 2), defaulting IsFreshImport to true
// on every entry (carryForwardFreshness will clear it where appropriate).
func rewriteAuditsFile(doc *AuditsFile, cfg ImportConfig, local *CriteriaMapper) *AuditsFile {
	out := newAuditsFile()

	for pkg, entries := range doc.Audits {
		rewritten := make([]AuditEntry, len(entries))
		for i, e := range entries {
			e.Criteria = rewriteCriteria(local, cfg, e.Criteria)
			e.IsFreshImport = true
			rewritten[i] = e
		}
		sortAuditEntries(rewritten)
		out.Audits[pkg] = rewritten
	}

	for pkg, entries := range doc.WildcardAudits {
		rewritten := make([]WildcardAuditEntry, len(entries))
		for i, e := range entries {
			e.Criteria = rewriteCriteria(local, cfg, e.Criteria)
			e.IsFreshImport = true
			rewritten[i] = e
		}
		out.WildcardAudits[pkg] = rewritten
	}

	return out
}

func sortAuditEntries(entries []AuditEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return auditSortKey(entries[i]) < auditSortKey(entries[j])
	})
}

func auditSortKey(e AuditEntry) string {
	switch e.Kind {
	case AuditKindFull:
		return string(e.Kind) + ":" + e.Version.String()
	case AuditKindDelta:
		from := ""
		if e.DeltaFrom != nil {
			from = e.DeltaFrom.String()
		}
		return string(e.Kind) + ":" + from + ".." + e.DeltaTo.String()
	default:
		return string(e.Kind) + ":" + e.VersionReq
	}
}

// retainMappedCriteria keeps only the foreign criteria definitions whose
// names appear in cfg's criteria_map, clearing DescriptionURL and Implies
// since the peer's own criteria semantics aren't locally authoritative
// (step 3).
func retainMappedCriteria(doc *AuditsFile, cfg ImportConfig) map[CriteriaName]CriteriaEntry {
	out := make(map[CriteriaName]CriteriaEntry)
	for name, entry := range doc.Criteria {
		if _, ok := cfg.CriteriaMap[name]; !ok {
			continue
		}
		entry.DescriptionURL = ""
		entry.Implies = nil
		out[name] = entry
	}
	return out
}

// compareCriteriaDescriptions diffs the retained criteria descriptions
// against what was recorded for this peer in the previous lock run,
// returning one *CriteriaChangeError per mismatch (step 4, first bullet).
func compareCriteriaDescriptions(peer string, prev map[CriteriaName]CriteriaEntry, curr map[CriteriaName]CriteriaEntry) []error {
	var errs []error
	for name, currEntry := range curr {
		prevEntry, ok := prev[name]
		if !ok {
			continue
		}
		if prevEntry.Description != currEntry.Description {
			errs = append(errs, &CriteriaChangeError{
				Peer:     peer,
				Criteria: name,
				Diff:     descriptionDiff("previous", "current", prevEntry.Description, currEntry.Description),
			})
		}
	}
	return errs
}

// carryForwardFreshness clears IsFreshImport on every audit/wildcard-audit
// entry in newDoc that has a structurally-equivalent match in the prior
// lock's entry for this peer (step 4, second bullet).
func carryForwardFreshness(prev *AuditsFile, newDoc *AuditsFile) {
	for pkg, newEntries := range newDoc.Audits {
		prevEntries := prev.Audits[pkg]
		for i := range newEntries {
			for _, pe := range prevEntries {
				if newEntries[i].sameAuditAs(pe) {
					newEntries[i].IsFreshImport = false
					break
				}
			}
		}
	}

	for pkg, newEntries := range newDoc.WildcardAudits {
		prevEntries := prev.WildcardAudits[pkg]
		for i := range newEntries {
			for _, pe := range prevEntries {
				if newEntries[i].sameAuditAs(pe) {
					newEntries[i].IsFreshImport = false
					break
				}
			}
		}
	}
}
