// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// SourceFile retains a document's original text and name, so that
// diagnostics (format checks, parse errors) can refer back to the exact
// bytes the user has on disk.
type SourceFile struct {
	Name string
	Text string
}

// tomlPosRe extracts go-toml's "(line, column):" position prefix from a
// parse error's message.
var tomlPosRe = regexp.MustCompile(`\((\d+), (\d+)\)`)

func spanFromTomlError(err error) Span {
	m := tomlPosRe.FindStringSubmatch(err.Error())
	if m == nil {
		return Span{}
	}
	line, _ := strconv.Atoi(m[1])
	col, _ := strconv.Atoi(m[2])
	return Span{Line: line, Column: col}
}

// loadTOML parses raw TOML bytes into a value of type T, returning the
// retained SourceFile alongside it. Parse errors are wrapped in a
// *ParseError carrying the document name and a best-effort source span.
func loadTOML[T any](name string, raw []byte) (SourceFile, T, error) {
	var zero T
	sf := SourceFile{Name: name, Text: string(raw)}

	tree, err := toml.LoadBytes(raw)
	if err != nil {
		return sf, zero, &ParseError{Document: name, Span: spanFromTomlError(err), Cause: err}
	}

	var val T
	if err := tree.Unmarshal(&val); err != nil {
		return sf, zero, &ParseError{Document: name, Span: spanFromTomlError(err), Cause: err}
	}
	return sf, val, nil
}

// storeTOML serializes val as TOML, prefixed with heading as a comment
// block -- every document this store owns begins with a fixed heading, per
// the serialization policy.
func storeTOML(heading string, val interface{}) (string, error) {
	raw, err := toml.Marshal(val)
	if err != nil {
		return "", errors.Wrap(err, "marshaling TOML document")
	}

	var buf bytes.Buffer
	for _, line := range strings.Split(strings.TrimRight(heading, "\n"), "\n") {
		fmt.Fprintf(&buf, "# %s\n", line)
	}
	buf.WriteByte('\n')
	buf.Write(raw)
	return buf.String(), nil
}

// trimTrailingWhitespace normalizes trailing whitespace per-line and at
// end-of-file, the modulo formatting invariant #4 requires when comparing a
// source file against its canonical re-serialization.
func trimTrailingWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// formatDiffTOML compares source against the canonical re-serialization of val
// under the given heading; it returns nil when they match modulo
// trailing whitespace, or a *BadFormatError otherwise.
func formatDiffTOML(document, heading string, source string, val interface{}) error {
	canonical, err := storeTOML(heading, val)
	if err != nil {
		return err
	}
	if trimTrailingWhitespace(source) == trimTrailingWhitespace(canonical) {
		return nil
	}
	return &BadFormatError{
		Document: document,
		Diff:     unifiedDiff(document+" (on disk)", document+" (canonical)", source, canonical),
	}
}
