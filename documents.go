// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

import "time"

// ConfigFile is the in-memory shape of config.toml.
type ConfigFile struct {
	DefaultCriteria []CriteriaName                `toml:"default-criteria,omitempty"`
	Imports         map[string]ImportConfig        `toml:"imports,omitempty"`
	Policy          map[PackageName]PolicyRule     `toml:"policy,omitempty"`
	Exemptions      map[PackageName][]Exemption    `toml:"exemptions,omitempty"`
}

func newConfigFile() *ConfigFile {
	return &ConfigFile{
		Imports:    make(map[string]ImportConfig),
		Policy:     make(map[PackageName]PolicyRule),
		Exemptions: make(map[PackageName][]Exemption),
	}
}

// AuditsFile is the in-memory shape of audits.toml, and of each peer's
// projection stored under imports.lock.
type AuditsFile struct {
	Criteria        map[CriteriaName]CriteriaEntry           `toml:"criteria,omitempty"`
	Audits          map[PackageName][]AuditEntry             `toml:"audits,omitempty"`
	WildcardAudits  map[PackageName][]WildcardAuditEntry      `toml:"wildcard-audits,omitempty"`
}

func newAuditsFile() *AuditsFile {
	return &AuditsFile{
		Criteria:       make(map[CriteriaName]CriteriaEntry),
		Audits:         make(map[PackageName][]AuditEntry),
		WildcardAudits: make(map[PackageName][]WildcardAuditEntry),
	}
}

// ImportsLock is the in-memory shape of imports.lock: the last reconciled
// snapshot of every peer's audits, plus cached publisher records.
type ImportsLock struct {
	Publisher map[PackageName][]CratesPublisher `toml:"publisher,omitempty"`
	Audits    map[string]AuditsFile             `toml:"audits,omitempty"`
}

func newImportsLock() *ImportsLock {
	return &ImportsLock{
		Publisher: make(map[PackageName][]CratesPublisher),
		Audits:    make(map[string]AuditsFile),
	}
}

// clone returns a deep-enough copy of ImportsLock for use as a baseline a
// reconciliation run can compare against without aliasing the live
// documents.
func (l *ImportsLock) clone() *ImportsLock {
	if l == nil {
		return newImportsLock()
	}
	out := newImportsLock()
	for pkg, pubs := range l.Publisher {
		cp := make([]CratesPublisher, len(pubs))
		copy(cp, pubs)
		out.Publisher[pkg] = cp
	}
	for peer, af := range l.Audits {
		out.Audits[peer] = af
	}
	return out
}

// referencedCriteria returns every criteria name referenced anywhere in cfg
// and audits (exemptions, policy, dependency-criteria overrides, implies
// lists, audits, wildcard audits) -- the set validate() must check against
// the vocabulary.
func referencedCriteria(cfg *ConfigFile, audits *AuditsFile) []CriteriaName {
	var out []CriteriaName
	seen := make(map[CriteriaName]bool)
	add := func(names []CriteriaName) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}

	for _, exs := range cfg.Exemptions {
		for _, ex := range exs {
			add(ex.Criteria)
		}
	}
	for _, rule := range cfg.Policy {
		add(rule.Criteria)
		for _, dc := range rule.DependencyCriteria {
			add(dc)
		}
	}
	for _, ce := range audits.Criteria {
		add(ce.Implies)
	}
	for _, entries := range audits.Audits {
		for _, e := range entries {
			add(e.Criteria)
		}
	}
	for _, entries := range audits.WildcardAudits {
		for _, e := range entries {
			add(e.Criteria)
		}
	}
	return out
}

// knownCriteria reports whether name is either reserved or a member of the
// vocabulary described by vocab.
func knownCriteria(vocab map[CriteriaName]CriteriaEntry, name CriteriaName) bool {
	if IsReservedCriteria(name) {
		return true
	}
	_, ok := vocab[name]
	return ok
}

// validateCriteriaReferences accumulates InvalidCriteria errors for every
// name in refs not present in vocab (and not reserved).
func validateCriteriaReferences(vocab map[CriteriaName]CriteriaEntry, refs []CriteriaName) []error {
	var errs []error
	var validNames []CriteriaName
	for n := range vocab {
		validNames = append(validNames, n)
	}
	validNames = append(validNames, ReservedCriteria...)

	for _, r := range refs {
		if !knownCriteria(vocab, r) {
			errs = append(errs, &InvalidCriteriaError{Name: r, ValidNames: validNames})
		}
	}
	return errs
}

// validateWildcardDates accumulates BadWildcardEndDate errors for any
// wildcard audit entry whose End exceeds today + 12 months.
func validateWildcardDates(today time.Time, audits *AuditsFile) []error {
	var errs []error
	max := MaxWildcardEnd(today)
	for pkg, entries := range audits.WildcardAudits {
		for _, e := range entries {
			if e.End.After(max) {
				errs = append(errs, &BadWildcardEndDateError{
					Package: pkg,
					End:     e.End,
					Max:     max,
				})
			}
		}
	}
	return errs
}
