// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	shutil "github.com/termie/go-shutil"

	vetcore "github.com/koyeung/cargo-vet"
)

// UnpackError reports a tarball that couldn't be safely or successfully
// unpacked.
type UnpackError struct {
	Src       string
	EntryPath string
	Cause     error
}

func (e *UnpackError) Error() string {
	if e.EntryPath != "" {
		return "unpacking " + e.Src + ": entry " + e.EntryPath + ": " + e.Cause.Error()
	}
	return "unpacking " + e.Src + ": " + e.Cause.Error()
}

func (e *UnpackError) Unwrap() error { return e.Cause }

// unpackPackage extracts a gzipped tarball (a fetched .crate archive) into
// unpackDir; an existing unpackDir is removed first. Every entry's
// path is required to be rooted at unpackDir's own basename -- crates.io
// itself should never produce a tarball that violates this, but a
// compromised mirror or adversarial upload might, so this check stays even
// though it duplicates a registry-side guarantee.
func unpackPackage(tarball *os.File, unpackDir string) error {
	if _, err := os.Stat(unpackDir); err == nil {
		if err := os.RemoveAll(unpackDir); err != nil {
			return &UnpackError{Src: tarball.Name(), Cause: err}
		}
	}
	if err := os.MkdirAll(unpackDir, 0777); err != nil {
		return &UnpackError{Src: tarball.Name(), Cause: err}
	}

	if _, err := tarball.Seek(0, io.SeekStart); err != nil {
		return &UnpackError{Src: tarball.Name(), Cause: err}
	}

	gz, err := gzip.NewReader(tarball)
	if err != nil {
		return &UnpackError{Src: tarball.Name(), Cause: err}
	}
	defer gz.Close()

	prefix := filepath.Base(unpackDir)
	parent := filepath.Dir(unpackDir)

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &UnpackError{Src: tarball.Name(), Cause: err}
		}

		entryPath := filepath.Clean(hdr.Name)
		if !(entryPath == prefix || strings.HasPrefix(entryPath, prefix+string(filepath.Separator))) {
			return &UnpackError{Src: tarball.Name(), EntryPath: hdr.Name, Cause: errors.New("entry path escapes package directory")}
		}

		target := filepath.Join(parent, entryPath)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return &UnpackError{Src: tarball.Name(), EntryPath: hdr.Name, Cause: err}
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0777); err != nil {
				return &UnpackError{Src: tarball.Name(), EntryPath: hdr.Name, Cause: err}
			}
			if err := extractFile(tr, target, os.FileMode(hdr.Mode)); err != nil {
				return &UnpackError{Src: tarball.Name(), EntryPath: hdr.Name, Cause: err}
			}
		default:
			// symlinks and other special types are skipped, same as the
			// original unpacker's reliance on tar-rs's unpack_in defaults
			// for anything that isn't a plain file or directory.
		}
	}

	return writeCargoOk(unpackDir)
}

func extractFile(r io.Reader, target string, mode os.FileMode) error {
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

// writeCargoOk writes the .cargo-ok marker after unpacking is already
// complete, overwriting any same-named file that may have been part of the
// archive itself.
func writeCargoOk(unpackDir string) error {
	return os.WriteFile(filepath.Join(unpackDir, cargoOkFileName), []byte(cargoOkBody), 0666)
}

func fetchIsOK(dir string) bool {
	body, err := os.ReadFile(filepath.Join(dir, cargoOkFileName))
	return err == nil && string(body) == cargoOkBody
}

// unpackCheckout re-packages a local VCS checkout into the same canonical
// layout a .crate archive would unpack to, using `cargo package --list` to
// discover which files belong in the package (skipping generated or
// gitignored files) and go-shutil to copy them across, mirroring the
// original tool's unpack_checkout.
func unpackCheckout(checkoutPath, unpackPath string) error {
	cargoPath := "cargo"
	if p, ok := os.LookupEnv("CARGO"); ok && p != "" {
		cargoPath = p
	}

	out, err := exec.Command(cargoPath, "package", "--list", "--allow-dirty",
		"--manifest-path", filepath.Join(checkoutPath, vetcore.CargoManifestFile)).Output()
	if err != nil {
		return errors.Wrapf(err, "running cargo package --list in %s", checkoutPath)
	}

	if err := os.MkdirAll(unpackPath, 0777); err != nil {
		return errors.Wrapf(err, "creating %s", unpackPath)
	}

	for _, target := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if target == "" || vetcore.IsDiffSkipPath(target) {
			continue
		}

		from := filepath.Join(checkoutPath, target)
		if target == "Cargo.toml.orig" {
			from = filepath.Join(checkoutPath, vetcore.CargoManifestFile)
		}
		to := filepath.Join(unpackPath, target)

		if err := os.MkdirAll(filepath.Dir(to), 0777); err != nil {
			return errors.Wrapf(err, "creating directory for %s", to)
		}

		if err := shutil.CopyFile(from, to, false); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrapf(err, "copying %s", target)
		}
	}

	return writeCargoOk(unpackPath)
}
