// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const (
	configFileName      = "config.toml"
	auditsFileName      = "audits.toml"
	importsLockFileName = "imports.lock"
)

// Store owns the three persistent documents (config.toml, audits.toml,
// imports.lock) under an exclusive lock, plus the in-memory "live imports"
// produced by an unlocked reconciliation run.
//
// Mirrors the teacher's own SourceMgr: a held lock, the documents it
// protects, and an explicit commit/release lifecycle rather than
// write-as-you-go.
type Store struct {
	lock *Handle

	Config      *ConfigFile
	Audits      *AuditsFile
	ImportsLock *ImportsLock

	// liveAudits and livePublisher hold the unlocked-reconciliation view;
	// nil until Acquire is given a Downloader/Cache (the "network?"
	// parameter in spec §4.6), at which point ImportedAudits/Publishers
	// prefer them over the committed imports.lock.
	liveAudits    map[string]AuditsFile
	livePublisher map[PackageName][]CratesPublisher

	root         string
	canCommit    bool
	formatSource map[string]SourceFile
}

// Create initializes a brand-new store at root: it acquires the lock and
// starts with three empty in-memory documents. Nothing is written to disk
// until Commit.
func Create(root string) (*Store, error) {
	lock, err := OpenRW(root, ".vetlock", "store")
	if err != nil {
		return nil, err
	}
	return &Store{
		lock:        lock,
		Config:      newConfigFile(),
		Audits:      newAuditsFile(),
		ImportsLock: newImportsLock(),
		root:        root,
		canCommit:   true,
	}, nil
}

// AcquireOptions configures Acquire's optional network phase.
type AcquireOptions struct {
	// Downloader and PublisherSrc, if both non-nil, enable the unlocked
	// reconciliation + publisher-resolution phase ("network?" in spec
	// §4.6). Leave both nil for a --locked run.
	Downloader   Downloader
	PublisherSrc PublisherSource
	Graph        []GraphPackage

	AllowCriteriaChanges bool
	CheckFormat          bool
	Today                time.Time
}

// Acquire locks root, loads and parses all three documents, optionally runs
// the Import reconciler and Publisher resolver, and validates the result.
func Acquire(root string, opts AcquireOptions) (*Store, error) {
	lock, err := OpenRW(root, ".vetlock", "store")
	if err != nil {
		return nil, err
	}

	s := &Store{
		lock:         lock,
		root:         root,
		canCommit:    true,
		formatSource: make(map[string]SourceFile),
	}

	if err := s.load(); err != nil {
		lock.Close()
		return nil, err
	}

	if opts.Downloader != nil && opts.PublisherSrc != nil {
		if err := s.runNetworkPhase(context.Background(), opts); err != nil {
			lock.Close()
			return nil, err
		}
	}

	if err := s.Validate(opts.Today, opts.CheckFormat); err != nil {
		lock.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) load() error {
	cfgRaw, err := os.ReadFile(filepath.Join(s.root, configFileName))
	if err != nil {
		return errors.Wrap(err, "reading config.toml")
	}
	cfgSrc, cfg, err := loadTOML[ConfigFile](configFileName, cfgRaw)
	if err != nil {
		return err
	}

	auditsRaw, err := os.ReadFile(filepath.Join(s.root, auditsFileName))
	if err != nil {
		return errors.Wrap(err, "reading audits.toml")
	}
	auditsSrc, audits, err := loadTOML[AuditsFile](auditsFileName, auditsRaw)
	if err != nil {
		return err
	}

	lockRaw, err := os.ReadFile(filepath.Join(s.root, importsLockFileName))
	var importsLock ImportsLock
	if err == nil {
		_, importsLock, err = loadTOML[ImportsLock](importsLockFileName, lockRaw)
		if err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, "reading imports.lock")
	}

	s.Config = &cfg
	s.Audits = &audits
	s.ImportsLock = importsLock.clone()
	s.formatSource[configFileName] = cfgSrc
	s.formatSource[auditsFileName] = auditsSrc
	return nil
}

func (s *Store) runNetworkPhase(ctx context.Context, opts AcquireOptions) error {
	fetched, err := FetchPeerAudits(ctx, opts.Downloader, s.Config)
	if err != nil {
		return err
	}

	newLock, err := Reconcile(fetched, s.Audits, s.Config, s.ImportsLock, opts.AllowCriteriaChanges)
	if err != nil {
		return err
	}
	s.liveAudits = newLock.Audits

	liveAuditsFile := &AuditsFile{WildcardAudits: make(map[PackageName][]WildcardAuditEntry)}
	for _, af := range newLock.Audits {
		for pkg, entries := range af.WildcardAudits {
			liveAuditsFile.WildcardAudits[pkg] = append(liveAuditsFile.WildcardAudits[pkg], entries...)
		}
	}

	publishers, err := ResolvePublishers(ctx, opts.PublisherSrc, s.Audits, liveAuditsFile, s.Config, opts.Graph, s.ImportsLock)
	if err != nil {
		return err
	}
	s.livePublisher = publishers
	return nil
}

// CloneForSuggest returns a copy of the store with every exemption whose
// Suggest is explicitly false removed. The exemption lists, the default
// criteria and the imports lock are copied; Audits, the config's Imports and
// Policy tables, and the live imports and publisher views are shared with s,
// not copied, so a change to them through the clone is seen by s. The clone
// does not hold the lock and Commit on it always fails.
func (s *Store) CloneForSuggest() *Store {
	cfg := &ConfigFile{
		DefaultCriteria: append([]CriteriaName(nil), s.Config.DefaultCriteria...),
		Imports:         s.Config.Imports,
		Policy:          s.Config.Policy,
		Exemptions:      make(map[PackageName][]Exemption, len(s.Config.Exemptions)),
	}
	for pkg, exs := range s.Config.Exemptions {
		var kept []Exemption
		for _, ex := range exs {
			if !ex.suggested() {
				continue
			}
			kept = append(kept, ex)
		}
		if len(kept) > 0 {
			cfg.Exemptions[pkg] = kept
		}
	}

	return &Store{
		Config:        cfg,
		Audits:        s.Audits,
		ImportsLock:   s.ImportsLock.clone(),
		liveAudits:    s.liveAudits,
		livePublisher: s.livePublisher,
		root:          s.root,
		canCommit:     false,
	}
}

// Commit writes all three documents through the held lock: truncate then
// write whole, never rename-based (matching the teacher's own txn_writer.go
// choice to write the final state directly rather than stage-and-rename,
// since the lock already provides the exclusion rename would give).
func (s *Store) Commit() error {
	if !s.canCommit {
		return errors.New("store does not hold a lock and cannot be committed (clone_for_suggest?)")
	}

	cfgText, err := storeTOML("cargo-vet config file", s.Config)
	if err != nil {
		return err
	}
	auditsText, err := storeTOML("cargo-vet audits file", s.Audits)
	if err != nil {
		return err
	}

	lockToWrite := s.ImportsLock
	if s.liveAudits != nil {
		lockToWrite = &ImportsLock{Audits: s.liveAudits, Publisher: s.livePublisher}
	}
	lockText, err := storeTOML("cargo-vet imports lock", lockToWrite)
	if err != nil {
		return err
	}

	for name, text := range map[string]string{
		configFileName:      cfgText,
		auditsFileName:      auditsText,
		importsLockFileName: lockText,
	} {
		if err := writeFileTruncate(filepath.Join(s.root, name), text); err != nil {
			return errors.Wrapf(err, "writing %s", name)
		}
	}

	s.ImportsLock = lockToWrite
	return nil
}

func writeFileTruncate(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

// Close releases the store's lock without committing.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Close()
}

// ImportedAudits returns the live reconciliation view if one was produced
// by Acquire, else the last-committed imports-lock's audits.
func (s *Store) ImportedAudits() map[string]AuditsFile {
	if s.liveAudits != nil {
		return s.liveAudits
	}
	return s.ImportsLock.Audits
}

// Publishers returns the live publisher view if one was produced by
// Acquire, else the last-committed imports-lock's publisher blocks.
func (s *Store) Publishers() map[PackageName][]CratesPublisher {
	if s.livePublisher != nil {
		return s.livePublisher
	}
	return s.ImportsLock.Publisher
}

// EnsurePublisherVersions idempotently reruns the Publisher resolver scoped
// to a single package and returns its current publisher list, updating the
// live view in place.
func (s *Store) EnsurePublisherVersions(ctx context.Context, src PublisherSource, pkg PackageName, graph []GraphPackage) ([]CratesPublisher, error) {
	liveAuditsFile := &AuditsFile{WildcardAudits: make(map[PackageName][]WildcardAuditEntry)}
	for _, af := range s.ImportedAudits() {
		if entries, ok := af.WildcardAudits[pkg]; ok {
			liveAuditsFile.WildcardAudits[pkg] = entries
		}
	}

	versions := relevantVersions(pkg, s.Config, graph, s.Audits, liveAuditsFile, s.ImportsLock)
	if len(versions) == 0 {
		return nil, nil
	}

	all, err := ResolvePublishers(ctx, src, s.Audits, liveAuditsFile, s.Config, graph, s.ImportsLock)
	if err != nil {
		return nil, err
	}

	if s.livePublisher == nil {
		s.livePublisher = make(map[PackageName][]CratesPublisher)
	}
	s.livePublisher[pkg] = all[pkg]
	return all[pkg], nil
}

// Validate accumulates every invariant violation across config.toml,
// audits.toml, and the current imports view: nil if none, the error itself
// if there is one, a MultiError if there are several. checkFormat
// additionally requires config.toml's and audits.toml's on-disk text to
// match their canonical re-serialization; imports.lock is not format-checked.
func (s *Store) Validate(today time.Time, checkFormat bool) error {
	var errs []error

	vocab := s.Audits.Criteria
	refs := referencedCriteria(s.Config, s.Audits)
	errs = append(errs, validateCriteriaReferences(vocab, refs)...)
	errs = append(errs, validateWildcardDates(today, s.Audits)...)

	for peer, af := range s.ImportedAudits() {
		errs = append(errs, validateWildcardDates(today, &af)...)
		if _, ok := s.Config.Imports[peer]; !ok {
			errs = append(errs, &ImportsLockOutdatedError{Reason: "imports.lock has an entry for peer \"" + peer + "\" no longer present in config.toml"})
		}
	}
	for peer := range s.Config.Imports {
		if _, ok := s.ImportedAudits()[peer]; !ok && s.liveAudits == nil {
			errs = append(errs, &ImportsLockOutdatedError{Reason: "config.toml imports peer \"" + peer + "\" not present in imports.lock"})
		}
	}
	if s.liveAudits == nil {
		for peer, imp := range s.Config.Imports {
			af, ok := s.ImportsLock.Audits[peer]
			if !ok {
				continue
			}
			for _, excluded := range imp.Exclude {
				if _, present := af.Audits[excluded]; present {
					errs = append(errs, &ImportsLockOutdatedError{Reason: "config.toml excludes \"" + string(excluded) + "\" from peer \"" + peer + "\" but imports.lock still carries it"})
				}
			}
		}
	}

	if checkFormat {
		if src, ok := s.formatSource[configFileName]; ok {
			if err := formatDiffTOML(configFileName, "cargo-vet config file", src.Text, s.Config); err != nil {
				errs = append(errs, err)
			}
		}
		if src, ok := s.formatSource[auditsFileName]; ok {
			if err := formatDiffTOML(auditsFileName, "cargo-vet audits file", src.Text, s.Audits); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return asMultiError(errs)
}
