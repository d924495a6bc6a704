// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

import (
	"fmt"
	"strings"
	"time"
)

// InvalidCriteriaError reports a reference to a criteria name that is not a
// member of the local vocabulary (and not one of the two reserved names).
type InvalidCriteriaError struct {
	Name       CriteriaName
	ValidNames []CriteriaName
}

func (e *InvalidCriteriaError) Error() string {
	return fmt.Sprintf("unknown criteria %q (valid names: %s)", e.Name, joinCriteria(e.ValidNames))
}

func joinCriteria(names []CriteriaName) string {
	strs := make([]string, len(names))
	for i, n := range names {
		strs[i] = string(n)
	}
	return strings.Join(strs, ", ")
}

// BadWildcardEndDateError reports a wildcard audit whose End exceeds the
// maximum permitted (today + 12 months).
type BadWildcardEndDateError struct {
	Package PackageName
	End     time.Time
	Max     time.Time
}

func (e *BadWildcardEndDateError) Error() string {
	return fmt.Sprintf("wildcard audit for %s has end date %s, which is after the maximum of %s",
		e.Package, e.End.Format("2006-01-02"), e.Max.Format("2006-01-02"))
}

// CriteriaChangeError reports that a previously imported criterion's
// description changed under a peer that did not also bump its own vocabulary
// in a way allow_criteria_changes would paper over.
type CriteriaChangeError struct {
	Peer     string
	Criteria CriteriaName
	Diff     string
}

func (e *CriteriaChangeError) Error() string {
	return fmt.Sprintf("peer %q changed the description of criteria %q:\n%s", e.Peer, e.Criteria, e.Diff)
}

// ImportsLockOutdatedError reports that the committed imports.lock no longer
// matches what config.toml's [imports] describe (key-set drift, or an
// excluded package still present in the lock).
type ImportsLockOutdatedError struct {
	Reason string
}

func (e *ImportsLockOutdatedError) Error() string {
	return fmt.Sprintf("imports.lock is outdated: %s", e.Reason)
}

// BadFormatError reports that a document's canonical re-serialization does
// not match its on-disk source, when format-checking was requested.
type BadFormatError struct {
	Document string
	Diff     string
}

func (e *BadFormatError) Error() string {
	return fmt.Sprintf("%s is not in canonical format:\n%s", e.Document, e.Diff)
}

// MultiError aggregates independent errors accumulated during validation or
// reconciliation, rather than failing fast on the first one.
type MultiError struct {
	Errs []error
}

func (e *MultiError) Error() string {
	if len(e.Errs) == 1 {
		return e.Errs[0].Error()
	}
	parts := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred:\n\t%s", len(e.Errs), strings.Join(parts, "\n\t"))
}

// Unwrap exposes the individual causes for errors.Is/errors.As traversal.
func (e *MultiError) Unwrap() []error {
	return e.Errs
}

// asMultiError returns nil if errs is empty, the lone error if there is
// exactly one, or a *MultiError wrapping all of them otherwise -- the
// standard way every accumulate-then-report call site in this package
// produces its final return value.
func asMultiError(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &MultiError{Errs: errs}
	}
}

// Span locates a parse error within a document's source text, for
// diagnostic display.
type Span struct {
	Line   int
	Column int
}

// ParseError wraps an underlying codec error with the document name and
// source span it occurred at.
type ParseError struct {
	Document string
	Span     Span
	Cause    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Document, e.Span.Line, e.Span.Column, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }
