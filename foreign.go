// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

// ForeignAuditsFile is the wire shape fetched from a peer's URL: the same
// audits.toml shape the local store uses, parsed leniently so that
// version-skew between this tool and a peer doesn't take down the whole
// import.
type ForeignAuditsFile = AuditsFile

// parseResult carries a leniently-parsed foreign document alongside the
// names of anything it had to drop, so callers can log what was discarded.
type parseResult struct {
	doc              *AuditsFile
	droppedCriteria  []CriteriaName
	droppedPackages  []PackageName
}

// parseForeignAudits filters a foreign AuditsFile down to what the local
// tool's schema can represent:
//   - criteria entries whose shape fails validation are dropped;
//   - audit and wildcard-audit entries that fail validation are dropped;
//   - entries whose criteria list is empty after stripping unknown names are
//     dropped;
//   - unknown criteria names are stripped from any surviving entry's
//     implies list.
//
// This isolates version-skew between this tool and a peer: a peer with a
// newer or stranger schema degrades gracefully instead of failing the whole
// import.
func parseForeignAudits(raw *AuditsFile) parseResult {
	res := parseResult{doc: newAuditsFile()}

	knownCriteriaNames := make(map[CriteriaName]bool, len(raw.Criteria))
	for name, entry := range raw.Criteria {
		if !validCriteriaEntry(entry) {
			res.droppedCriteria = append(res.droppedCriteria, name)
			continue
		}
		knownCriteriaNames[name] = true
	}

	// Second pass: now that we know which criteria names survived, strip
	// unknown names from implies lists and keep the definition.
	for name, entry := range raw.Criteria {
		if !knownCriteriaNames[name] {
			continue
		}
		entry.Implies = filterKnownCriteria(knownCriteriaNames, entry.Implies)
		res.doc.Criteria[name] = entry
	}

	isKnown := func(n CriteriaName) bool {
		return knownCriteriaNames[n] || IsReservedCriteria(n)
	}

	for pkg, entries := range raw.Audits {
		var kept []AuditEntry
		for _, e := range entries {
			if !validAuditEntryShape(e) {
				res.droppedPackages = append(res.droppedPackages, pkg)
				continue
			}
			e.Criteria = filterKnownCriteriaPred(isKnown, e.Criteria)
			if len(e.Criteria) == 0 {
				continue
			}
			e.IsFreshImport = true
			kept = append(kept, e)
		}
		if len(kept) > 0 {
			res.doc.Audits[pkg] = kept
		}
	}

	for pkg, entries := range raw.WildcardAudits {
		var kept []WildcardAuditEntry
		for _, e := range entries {
			if !validWildcardShape(e) {
				res.droppedPackages = append(res.droppedPackages, pkg)
				continue
			}
			e.Criteria = filterKnownCriteriaPred(isKnown, e.Criteria)
			if len(e.Criteria) == 0 {
				continue
			}
			e.IsFreshImport = true
			kept = append(kept, e)
		}
		if len(kept) > 0 {
			res.doc.WildcardAudits[pkg] = kept
		}
	}

	return res
}

func validCriteriaEntry(e CriteriaEntry) bool {
	// A criteria entry with neither a description nor an implies list is
	// schema-valid but useless; we still keep it -- "shape" validity here
	// only rules out entries the codec itself couldn't have produced
	// consistently, which in this in-memory representation is always true.
	// The hook exists so a future stricter schema has somewhere to plug in.
	return true
}

func validAuditEntryShape(e AuditEntry) bool {
	switch e.Kind {
	case AuditKindFull:
		return e.Version != nil
	case AuditKindDelta:
		return e.DeltaTo != nil
	case AuditKindViolation:
		return e.VersionReq != ""
	default:
		return false
	}
}

func validWildcardShape(e WildcardAuditEntry) bool {
	return e.UserID != 0 && !e.End.Before(e.Start)
}

func filterKnownCriteria(known map[CriteriaName]bool, names []CriteriaName) []CriteriaName {
	return filterKnownCriteriaPred(func(n CriteriaName) bool { return known[n] }, names)
}

func filterKnownCriteriaPred(known func(CriteriaName) bool, names []CriteriaName) []CriteriaName {
	var out []CriteriaName
	for _, n := range names {
		if known(n) {
			out = append(out, n)
		}
	}
	return out
}
