// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cache

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	vetcore "github.com/koyeung/cargo-vet"
)

// DiffError reports a git-diff invocation that failed or produced output
// this package couldn't parse.
type DiffError struct {
	Reason string
	Cause  error
}

func (e *DiffError) Error() string {
	if e.Cause != nil {
		return "diffstat: " + e.Reason + ": " + e.Cause.Error()
	}
	return "diffstat: " + e.Reason
}

func (e *DiffError) Unwrap() error { return e.Cause }

type diffResult struct {
	stat vetcore.DiffStat
}

// DiffstatPackage runs `git diff --no-index --numstat` between two
// unpacked package directories, bounded by a semaphore capping concurrent
// diffs at maxConcurrentDiffs -- the same limit and tool the original
// storage layer uses, translated from a tokio Semaphore to a buffered Go
// channel.
func (c *Cache) DiffstatPackage(ctx context.Context, fromDir, toDir string, hasGitRev bool) (vetcore.DiffStat, error) {
	c.diffSem <- struct{}{}
	defer func() { <-c.diffSem }()

	cmd := exec.CommandContext(ctx, "git", "diff",
		"--ignore-cr-at-eol", "--no-index", "--numstat", "-z", fromDir, toDir)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		return vetcore.DiffStat{}, &DiffError{Reason: "running git diff", Cause: err}
	}
	// 0 = no differences, 1 = some differences; anything else is a failure.
	if exitCode != 0 && exitCode != 1 {
		return vetcore.DiffStat{}, &DiffError{Reason: fmt.Sprintf("git diff exited %d: %s", exitCode, stderr.String())}
	}

	return parseNumstat(stdout.String(), fromDir, toDir, hasGitRev)
}

func parseNumstat(output, fromDir, toDir string, hasGitRev bool) (vetcore.DiffStat, error) {
	var stat vetcore.DiffStat

	chunks := strings.Split(output, "\x00")
	for i := 0; i+2 < len(chunks); {
		changes, from, to := chunks[i], chunks[i+1], chunks[i+2]
		i += 3
		if changes == "" && from == "" && to == "" {
			continue
		}

		var relPath string
		if to != "/dev/null" {
			rel, err := filepath.Rel(toDir, to)
			if err != nil {
				return stat, &DiffError{Reason: "unexpected path " + to, Cause: err}
			}
			relPath = rel
		} else {
			rel, err := filepath.Rel(fromDir, from)
			if err != nil {
				return stat, &DiffError{Reason: "unexpected path " + from, Cause: err}
			}
			relPath = rel
		}

		if vetcore.IsDiffSkipPath(relPath) || (hasGitRev && relPath == vetcore.CargoManifestFile) {
			continue
		}

		stat.FilesChanged++

		fields := strings.SplitN(strings.TrimSpace(changes), "\t", 2)
		if len(fields) != 2 {
			return stat, &DiffError{Reason: "unparseable numstat line " + changes}
		}
		if fields[0] == "-" && fields[1] == "-" {
			continue // binary diff
		}
		ins, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return stat, &DiffError{Reason: "invalid insertion count", Cause: err}
		}
		del, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return stat, &DiffError{Reason: "invalid deletion count", Cause: err}
		}
		stat.Insertions += ins
		stat.Deletions += del
	}

	return stat, nil
}

// FetchAndDiffstatPackage fetches both sides of delta (the empty sentinel
// directory when delta.From is nil) and computes their diffstat, memoizing
// the result in the diff cache and folding together concurrent callers for
// the same (pkg, delta) key.
func (c *Cache) FetchAndDiffstatPackage(ctx context.Context, d vetcore.Downloader, pkg vetcore.PackageName, delta vetcore.Delta, checkoutPath string) (vetcore.DiffStat, error) {
	deltaKey := delta.Key()

	c.mu.Lock()
	if cached, ok := c.diffCache.get(string(pkg), deltaKey); ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	key := diffKey{pkg: pkg, delta: deltaKey}
	result, err := c.coordinateDiff(key, func() (diffResult, error) {
		from := c.emptyPackageDir()
		if delta.From != nil {
			path, err := c.FetchPackage(ctx, d, pkg, *delta.From, checkoutPath)
			if err != nil {
				return diffResult{}, err
			}
			from = path
		}

		to, err := c.FetchPackage(ctx, d, pkg, delta.To, checkoutPath)
		if err != nil {
			return diffResult{}, err
		}

		stat, err := c.DiffstatPackage(ctx, from, to, delta.To.GitRev != "")
		if err != nil {
			return diffResult{}, err
		}

		c.mu.Lock()
		c.diffCache.put(string(pkg), deltaKey, stat)
		c.mu.Unlock()

		return diffResult{stat: stat}, nil
	})
	if err != nil {
		return vetcore.DiffStat{}, err
	}
	return result.stat, nil
}

func (c *Cache) emptyPackageDir() string {
	if c.root == "" {
		return ""
	}
	return filepath.Join(c.root, emptyPackageDir)
}
