// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vetcore implements the store-and-cache core of a supply-chain
// auditing tool for a crates.io-shaped package ecosystem: a local audit
// store (config, audits, imports-lock), reconciliation of imported peer
// audits against a local criteria vocabulary, and publisher-identity
// resolution against the registry API.
package vetcore

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver"
)

// CriteriaName is the name of an audit criterion, e.g. "safe-to-run".
type CriteriaName string

// PackageName is the name of a package in the ecosystem, e.g. a crate name.
type PackageName string

// UserID is a registry user id, used to scope wildcard audits and publisher
// records to a specific identity rather than a login name (which can be
// renamed).
type UserID uint64

// Reserved criteria names that are always members of every vocabulary,
// regardless of what the local audits.toml defines.
const (
	CriteriaSafeToRun    CriteriaName = "safe-to-run"
	CriteriaSafeToDeploy CriteriaName = "safe-to-deploy"
)

// ReservedCriteria lists the two reserved criteria, in a stable order.
var ReservedCriteria = []CriteriaName{CriteriaSafeToRun, CriteriaSafeToDeploy}

// IsReservedCriteria reports whether name is one of the two built-in
// criteria that every vocabulary carries implicitly.
func IsReservedCriteria(name CriteriaName) bool {
	return name == CriteriaSafeToRun || name == CriteriaSafeToDeploy
}

// VetVersion is a package version: a semver, plus an optional git revision
// for packages that are not fetched from the registry (vendored checkouts,
// path dependencies pinned to a revision).
type VetVersion struct {
	Semver *semver.Version
	GitRev string
}

// String renders the version the way it appears in documents: the bare
// semver, or "semver@rev" when a git revision is attached.
func (v VetVersion) String() string {
	if v.GitRev == "" {
		return v.Semver.String()
	}
	return fmt.Sprintf("%s@%s", v.Semver.String(), v.GitRev)
}

// CacheKey returns the string used to key the package cache's source
// directory name for this version: "pkg-semver" for registry versions, or
// "pkg-semver.git.rev" for git-revisioned ones.
func (v VetVersion) CacheKey(pkg PackageName) string {
	if v.GitRev == "" {
		return fmt.Sprintf("%s-%s", pkg, v.Semver.String())
	}
	return fmt.Sprintf("%s-%s.git.%s", pkg, v.Semver.String(), v.GitRev)
}

// Less reports whether v sorts before o, first by semver then by git
// revision (lexical, for determinism -- two versions sharing a semver but
// differing git revisions are rare but must still sort consistently).
func (v VetVersion) Less(o VetVersion) bool {
	c := v.Semver.Compare(o.Semver)
	if c != 0 {
		return c < 0
	}
	return v.GitRev < o.GitRev
}

// Equal reports whether v and o denote the same version.
func (v VetVersion) Equal(o VetVersion) bool {
	return v.Semver.Equal(o.Semver) && v.GitRev == o.GitRev
}

// ParseVetVersion parses a version string of the form "1.2.3" or
// "1.2.3@deadbeef".
func ParseVetVersion(s string) (VetVersion, error) {
	gitRev := ""
	verStr := s
	if i := lastIndexByte(s, '@'); i >= 0 {
		verStr, gitRev = s[:i], s[i+1:]
	}
	sv, err := semver.NewVersion(verStr)
	if err != nil {
		return VetVersion{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return VetVersion{Semver: sv, GitRev: gitRev}, nil
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// MarshalText renders a VetVersion the same way String does, so that both
// go-toml and encoding/json serialize it as a plain scalar string ("1.2.3"
// or "1.2.3@deadbeef") rather than as a nested table/object.
func (v VetVersion) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses a VetVersion from the scalar string form, the
// counterpart to MarshalText.
func (v *VetVersion) UnmarshalText(text []byte) error {
	parsed, err := ParseVetVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// AuditKind distinguishes the three shapes an AuditEntry can take.
type AuditKind string

const (
	// AuditKindFull attests that the named criteria hold for a specific
	// version, in isolation.
	AuditKindFull AuditKind = "full-audit"
	// AuditKindDelta attests that the named criteria hold for the delta
	// between two versions, assuming they already held for From.
	AuditKindDelta AuditKind = "delta-audit"
	// AuditKindViolation records that a version range violates the named
	// criteria (an exemption-style negative statement).
	AuditKindViolation AuditKind = "violation"
)

// AuditEntry is one statement in an audits.toml (or a peer's equivalent),
// tagged by Kind.
type AuditEntry struct {
	Kind AuditKind `toml:"kind" json:"kind"`

	// Version is set for AuditKindFull.
	Version *VetVersion `toml:"version,omitempty" json:"version,omitempty"`
	// DeltaFrom/DeltaTo are set for AuditKindDelta.
	DeltaFrom *VetVersion `toml:"delta_from,omitempty" json:"delta_from,omitempty"`
	DeltaTo   *VetVersion `toml:"delta_to,omitempty" json:"delta_to,omitempty"`
	// VersionReq is set for AuditKindViolation: a semver constraint string
	// naming the offending version range.
	VersionReq string `toml:"violation,omitempty" json:"violation,omitempty"`

	Criteria []CriteriaName `toml:"criteria" json:"criteria"`
	Who      []string       `toml:"who,omitempty" json:"who,omitempty"`
	Notes    string         `toml:"notes,omitempty" json:"notes,omitempty"`

	// IsFreshImport is set only on entries produced by an import
	// reconciliation; it is never persisted to the local audits.toml.
	IsFreshImport bool `toml:"-" json:"-"`
}

// sameAuditAs reports structural equivalence ignoring IsFreshImport, used by
// the reconciler to carry the freshness flag forward across runs.
func (a AuditEntry) sameAuditAs(b AuditEntry) bool {
	if a.Kind != b.Kind || a.VersionReq != b.VersionReq || a.Notes != b.Notes {
		return false
	}
	if !versionPtrEqual(a.Version, b.Version) || !versionPtrEqual(a.DeltaFrom, b.DeltaFrom) || !versionPtrEqual(a.DeltaTo, b.DeltaTo) {
		return false
	}
	if !stringSliceEqual(a.Who, b.Who) {
		return false
	}
	return criteriaSliceEqual(a.Criteria, b.Criteria)
}

func versionPtrEqual(a, b *VetVersion) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func criteriaSliceEqual(a, b []CriteriaName) bool {
	if len(a) != len(b) {
		return false
	}
	am := make(map[CriteriaName]bool, len(a))
	for _, c := range a {
		am[c] = true
	}
	for _, c := range b {
		if !am[c] {
			return false
		}
	}
	return true
}

// WildcardAuditEntry authorizes all versions of a package published by a
// given user between Start and End.
type WildcardAuditEntry struct {
	UserID    UserID         `toml:"user-id" json:"user_id"`
	UserLogin string         `toml:"user-login,omitempty" json:"user_login,omitempty"`
	Criteria  []CriteriaName `toml:"criteria" json:"criteria"`
	Start     time.Time      `toml:"start" json:"start"`
	End       time.Time      `toml:"end" json:"end"`
	Notes     string         `toml:"notes,omitempty" json:"notes,omitempty"`

	IsFreshImport bool `toml:"-" json:"-"`
}

func (w WildcardAuditEntry) sameAuditAs(o WildcardAuditEntry) bool {
	return w.UserID == o.UserID && w.UserLogin == o.UserLogin &&
		w.Start.Equal(o.Start) && w.End.Equal(o.End) && w.Notes == o.Notes &&
		criteriaSliceEqual(w.Criteria, o.Criteria)
}

// MaxWildcardEnd returns the latest permissible wildcard End date relative
// to today: today + 12 months.
func MaxWildcardEnd(today time.Time) time.Time {
	return today.AddDate(0, 12, 0)
}

// CriteriaEntry describes one criterion in a vocabulary.
type CriteriaEntry struct {
	Description    string         `toml:"description,omitempty" json:"description,omitempty"`
	DescriptionURL string         `toml:"description-url,omitempty" json:"description_url,omitempty"`
	Implies        []CriteriaName `toml:"implies,omitempty" json:"implies,omitempty"`
}

// ImportConfig is one peer's configuration: where to fetch its audits from,
// which packages to ignore, and how to translate its criteria vocabulary
// into the local one.
type ImportConfig struct {
	URL         string                           `toml:"url" json:"url"`
	Exclude     []PackageName                    `toml:"exclude,omitempty" json:"exclude,omitempty"`
	CriteriaMap map[CriteriaName][]CriteriaName  `toml:"criteria-map,omitempty" json:"criteria_map,omitempty"`
}

func (c ImportConfig) excludes(pkg PackageName) bool {
	for _, e := range c.Exclude {
		if e == pkg {
			return true
		}
	}
	return false
}

// Exemption is a locally authorized unaudited-version bypass.
type Exemption struct {
	Version  VetVersion     `toml:"version" json:"version"`
	Criteria []CriteriaName `toml:"criteria" json:"criteria"`
	Suggest  *bool          `toml:"suggest,omitempty" json:"suggest,omitempty"`
	Notes    string         `toml:"notes,omitempty" json:"notes,omitempty"`
}

// suggested reports whether this exemption is eligible for "suggest"
// treatment: Suggest is either unset (defaults to true) or explicitly true.
func (e Exemption) suggested() bool {
	return e.Suggest == nil || *e.Suggest
}

// PolicyRule overrides default criteria requirements for a specific
// dependency edge.
type PolicyRule struct {
	Criteria           []CriteriaName                  `toml:"criteria,omitempty" json:"criteria,omitempty"`
	DependencyCriteria map[PackageName][]CriteriaName  `toml:"dependency-criteria,omitempty" json:"dependency_criteria,omitempty"`
	Notes              string                          `toml:"notes,omitempty" json:"notes,omitempty"`
}

// CratesPublisher records who published a given version of a package, per
// the registry API, along with whether this record is new since the last
// committed imports-lock.
type CratesPublisher struct {
	Version       VetVersion `toml:"version" json:"version"`
	UserID        UserID     `toml:"user-id" json:"user_id"`
	UserLogin     string     `toml:"user-login" json:"user_login"`
	UserName      string     `toml:"user-name,omitempty" json:"user_name,omitempty"`
	When          time.Time  `toml:"when" json:"when"`
	IsFreshImport bool       `toml:"-" json:"-"`
}

// Delta identifies a diff between two versions; From is nil to denote a
// diff against the sentinel empty directory.
type Delta struct {
	From *VetVersion
	To   VetVersion
}

// Key returns a stable string key for Delta, suitable for use as a map key
// in the diff-cache and the in-flight coalescing map.
func (d Delta) Key() string {
	from := "-"
	if d.From != nil {
		from = d.From.String()
	}
	return from + ".." + d.To.String()
}

// DiffStat summarizes a textual diff between two package trees.
type DiffStat struct {
	FilesChanged uint64 `toml:"files-changed" json:"files_changed"`
	Insertions   uint64 `toml:"insertions" json:"insertions"`
	Deletions    uint64 `toml:"deletions" json:"deletions"`
}

// GraphPackage is the read-only build-graph metadata this core consumes:
// one entry per package known to the resolver's dependency graph.
type GraphPackage struct {
	Name         PackageName
	Version      VetVersion
	ManifestPath string
	IsThirdParty bool
	// CheckoutPath is the local working-copy directory for packages pinned
	// to a GitRev (path/git dependencies); empty for ordinary registry
	// dependencies.
	CheckoutPath string
}
