// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

import (
	"fmt"
	"strings"
)

// StringDiff is a single-field before/after pair, rendered the way the
// store's diagnostics present small changes: "- old", "+ new", or
// "old -> new" when both sides are non-empty and differ.
type StringDiff struct {
	Previous string
	Current  string
}

func (d StringDiff) String() string {
	if d.Previous == "" && d.Current != "" {
		return fmt.Sprintf("+ %s", d.Current)
	}
	if d.Previous != "" && d.Current == "" {
		return fmt.Sprintf("- %s", d.Previous)
	}
	if d.Previous != d.Current {
		return fmt.Sprintf("%s -> %s", d.Previous, d.Current)
	}
	return d.Current
}

// descriptionDiff renders a criteria-description change: a compact
// StringDiff line for the common case of single-line descriptions, or a
// full unified diff when either side spans multiple lines.
func descriptionDiff(fromLabel, toLabel, from, to string) string {
	if !strings.Contains(from, "\n") && !strings.Contains(to, "\n") {
		return StringDiff{Previous: from, Current: to}.String()
	}
	return unifiedDiff(fromLabel, toLabel, from, to)
}

// unifiedDiff renders a minimal line-based unified diff between two
// multi-line strings, for use in BadFormat and CriteriaChange diagnostics.
// It does not attempt a minimal-edit-script LCS diff -- like the store's
// formatting checks, it only needs to show a human where two texts
// disagree, not to be a general-purpose diff tool.
func unifiedDiff(fromLabel, toLabel, from, to string) string {
	fromLines := strings.Split(from, "\n")
	toLines := strings.Split(to, "\n")

	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", fromLabel, toLabel)

	max := len(fromLines)
	if len(toLines) > max {
		max = len(toLines)
	}
	for i := 0; i < max; i++ {
		var f, t string
		hasFrom := i < len(fromLines)
		hasTo := i < len(toLines)
		if hasFrom {
			f = fromLines[i]
		}
		if hasTo {
			t = toLines[i]
		}
		if hasFrom && hasTo && f == t {
			fmt.Fprintf(&b, " %s\n", f)
			continue
		}
		if hasFrom {
			fmt.Fprintf(&b, "-%s\n", f)
		}
		if hasTo {
			fmt.Fprintf(&b, "+%s\n", t)
		}
	}
	return b.String()
}
