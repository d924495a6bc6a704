// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vetcore

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/theckman/go-flock"
)

// Handle is a held exclusive advisory lock on a named file within a
// directory. Its release is scoped to its lifetime: closing the handle
// releases the lock. There is no separate "Release" step to remember.
type Handle struct {
	dir    string
	path   string
	fl     *flock.Flock
	closed bool
}

// Dir returns the directory the locked file lives in.
func (h *Handle) Dir() string { return h.dir }

// Path returns the path of the locked file: the directory it was opened
// under joined with its file name.
func (h *Handle) Path() string { return h.path }

// Close releases the lock. Safe to call more than once.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.fl.Unlock()
}

// OpenRW acquires an exclusive advisory lock on filename within dir,
// creating dir and the file if necessary, and blocks until the lock is
// available. purpose is used only in error messages, to make failures
// legible about which lock (store vs. cache) could not be acquired.
//
// Acquisition is blocking with no built-in timeout; a caller that wants
// non-blocking behavior should wrap this call with its own deadline.
func OpenRW(dir, filename, purpose string) (*Handle, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, errors.Wrapf(err, "creating directory for %s", purpose)
	}

	path := filepath.Join(dir, filename)
	fl := flock.NewFlock(path)
	if err := fl.Lock(); err != nil {
		return nil, errors.Wrapf(err, "acquiring exclusive lock on %s (%s)", path, purpose)
	}

	return &Handle{dir: dir, path: path, fl: fl}, nil
}
