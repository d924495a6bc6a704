// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// loadJSON parses raw JSON bytes into a value of type T, mirroring the way
// the teacher's own manifest.go hand-rolls encoding/json decoding rather
// than reaching for a third-party codec for its one JSON-shaped document.
func loadJSON[T any](name string, raw []byte) (T, error) {
	var val T
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&val); err != nil {
		span := Span{}
		if se, ok := err.(*json.SyntaxError); ok {
			span = lineColFromOffset(raw, se.Offset)
		}
		return val, &ParseError{Document: name, Span: span, Cause: err}
	}
	return val, nil
}

// storeJSON serializes val as indented JSON, matching the teacher's own
// manifest.go MarshalJSON (SetIndent, SetEscapeHTML(false)).
func storeJSON(val interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(val); err != nil {
		return "", errors.Wrap(err, "marshaling JSON document")
	}
	return buf.String(), nil
}

func lineColFromOffset(raw []byte, offset int64) Span {
	if offset < 0 || int(offset) > len(raw) {
		return Span{}
	}
	prefix := raw[:offset]
	line := strings.Count(string(prefix), "\n") + 1
	lastNL := bytes.LastIndexByte(prefix, '\n')
	col := int(offset) - lastNL
	return Span{Line: line, Column: col}
}
