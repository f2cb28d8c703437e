// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package fetch loads a registry document from a file, a repository
// checkout, a git remote or an HTTP(S) URL.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/albertocavalcante/cabind/internal/model"
)

// DocumentPath is the default location of the registry document inside a
// repository.
const DocumentPath = "registry.json"

// maxDocumentSize bounds documents downloaded over HTTP.
const maxDocumentSize = 64 << 20

// Options configures where the registry document comes from.
// The first non-empty source wins: LocalPath, RepoDir, URL, GitURL.
type Options struct {
	// LocalPath is a path to a registry document.
	LocalPath string

	// RepoDir is a checkout containing the document at Path.
	RepoDir string

	// URL is an HTTP(S) location of the document.
	URL string

	// GitURL is a remote cloned shallowly at Ref.
	GitURL string

	// Ref is the git reference (tag or branch) for GitURL, recorded in the
	// result for RepoDir.
	Ref string

	// Path is the document path inside RepoDir or GitURL.
	// If empty, DocumentPath is used.
	Path string

	// Timeout for network operations.
	Timeout time.Duration

	// Client performs URL requests. If nil, http.DefaultClient is used.
	Client *http.Client
}

// Result contains the fetched document and metadata.
type Result struct {
	// Document is the parsed registry document.
	Document *model.Document

	// Ref is the git reference that was used.
	Ref string

	// CommitHash is the git commit hash (if read from a repository).
	CommitHash string

	// Source describes where the document was loaded from.
	Source string
}

// Fetch retrieves and parses a registry document.
func Fetch(ctx context.Context, opts Options) (*Result, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Path == "" {
		opts.Path = DocumentPath
	}

	switch {
	case opts.LocalPath != "":
		return fetchFromFile(opts.LocalPath)
	case opts.RepoDir != "":
		return fetchFromRepo(opts.RepoDir, opts.Path, opts.Ref)
	case opts.URL != "":
		return fetchFromURL(ctx, opts)
	case opts.GitURL != "":
		return fetchFromGit(ctx, opts)
	}
	return nil, fmt.Errorf("no registry source given")
}

// fetchFromFile reads the document from a local file.
func fetchFromFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &Result{
		Document: doc,
		Source:   fmt.Sprintf("file://%s", path),
	}, nil
}

// fetchFromRepo reads the document from an existing checkout.
func fetchFromRepo(repoDir, path, ref string) (*Result, error) {
	data, err := os.ReadFile(filepath.Join(repoDir, path))
	if err != nil {
		return nil, fmt.Errorf("read from repo: %w", err)
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &Result{
		Document:   doc,
		Ref:        ref,
		CommitHash: getGitHash(repoDir),
		Source:     fmt.Sprintf("repo://%s", repoDir),
	}, nil
}

// fetchFromURL downloads the document.
func fetchFromURL(ctx context.Context, opts Options) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: HTTP %d: %s", opts.URL, resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", opts.URL, err)
	}

	return &Result{
		Document: doc,
		Ref:      opts.Ref,
		Source:   opts.URL,
	}, nil
}

// fetchFromGit clones the remote and reads the document.
func fetchFromGit(ctx context.Context, opts Options) (*Result, error) {
	tmpDir, err := os.MkdirTemp("", "cabind-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	cloneCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	args := []string{"clone", "--quiet", "--depth=1", "--single-branch"}
	if opts.Ref != "" {
		args = append(args, "--branch="+opts.Ref)
	}
	args = append(args, opts.GitURL, tmpDir)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(cloneCtx, "git", args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git clone: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	res, err := fetchFromRepo(tmpDir, opts.Path, opts.Ref)
	if err != nil {
		return nil, err
	}
	res.Source = opts.GitURL
	if opts.Ref != "" {
		res.Source += "@" + opts.Ref
	}
	return res, nil
}

// parseDocument parses a registry document with line number injection for
// diagnostics.
func parseDocument(data []byte) (*model.Document, error) {
	return model.Parse(injectLineNumbers(data))
}

// injectLineNumbers adds a "line" field to each JSON object that starts a
// line of its own. Empty objects are left alone.
func injectLineNumbers(data []byte) []byte {
	var result []byte
	lineNum := 1

	for i := 0; i < len(data); i++ {
		result = append(result, data[i])
		switch data[i] {
		case '{':
			if i+1 < len(data) && data[i+1] == '\n' && !closesNext(data[i+1:]) {
				result = append(result, fmt.Sprintf(`"line":%d,`, lineNum)...)
			}
		case '\n':
			lineNum++
		}
	}
	return result
}

// closesNext reports whether the first non-space byte of data is '}'.
func closesNext(data []byte) bool {
	rest := bytes.TrimLeft(data, " \t\r\n")
	return len(rest) > 0 && rest[0] == '}'
}

// getGitHash returns the current commit hash for a repository.
func getGitHash(repoDir string) string {
	data, err := os.ReadFile(filepath.Join(repoDir, ".git", "HEAD"))
	if err != nil {
		return ""
	}

	content := strings.TrimSpace(string(data))

	// Detached HEAD
	if len(content) == 40 && isHex(content) {
		return content
	}

	if ref, ok := strings.CutPrefix(content, "ref: "); ok {
		data, err := os.ReadFile(filepath.Join(repoDir, ".git", ref))
		if err != nil {
			return packedRef(repoDir, ref)
		}
		hash := strings.TrimSpace(string(data))
		if len(hash) >= 40 && isHex(hash[:40]) {
			return hash[:40]
		}
	}

	return ""
}

// packedRef looks ref up in .git/packed-refs, where fresh clones keep
// their branch heads.
func packedRef(repoDir, ref string) string {
	data, err := os.ReadFile(filepath.Join(repoDir, ".git", "packed-refs"))
	if err != nil {
		return ""
	}
	for line := range strings.SplitSeq(string(data), "\n") {
		hash, name, ok := strings.Cut(strings.TrimSpace(line), " ")
		if ok && name == ref && len(hash) == 40 && isHex(hash) {
			return hash
		}
	}
	return ""
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
