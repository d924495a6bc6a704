// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

// CargoManifestFile is the manifest file name every package directory (and
// repacked checkout) is keyed off of.
const CargoManifestFile = "Cargo.toml"

// diffSkipPaths are the paths ignored on both sides of a diffstat and
// excluded when re-packaging a checkout, since they're either
// registry-generated metadata or not meaningfully reviewable.
var diffSkipPaths = map[string]bool{
	"Cargo.lock":           true,
	".cargo_vcs_info.json": true,
	".cargo-ok":            true,
}

// IsDiffSkipPath reports whether path is one of the fixed set of paths
// excluded from diffstats and checkout repackaging.
func IsDiffSkipPath(path string) bool {
	return diffSkipPaths[path]
}
