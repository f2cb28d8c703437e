// SPDX-License-Identifier: MIT

// Package testutil provides golden-archive helpers for cabind tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/tools/txtar"
)

// Mode selects how expected files are compared with generated ones.
type Mode int

const (
	// Exact requires the same set of files with the same content.
	Exact Mode = iota

	// Contains requires every "..."-separated block of an expected file to
	// appear in the generated file, in order. Extra generated files are
	// allowed.
	Contains
)

// blockSeparator splits expected content into blocks in Contains mode.
const blockSeparator = "\n...\n"

// Case represents a parsed test case from a txtar archive.
type Case struct {
	// Name is the test case name (typically the filename without extension).
	Name string

	// Path is the archive file the case was loaded from, if any.
	Path string

	// Description is the first comment block before any files.
	Description string

	// Flags contains any flags parsed from "Flags: ..." line in the description.
	Flags []string

	// Mode is parsed from a "Mode: exact|contains" line. Default is Exact.
	Mode Mode

	// Input is the contents of "input.json".
	Input []byte

	// Overrides is the contents of "overrides.yaml" (optional).
	Overrides []byte

	// Want maps relative paths (e.g., "Enums/VkResult.cs") to expected content.
	Want map[string][]byte

	archive *txtar.Archive
}

// ParseCase parses a txtar archive into a test Case.
// The archive should contain:
//   - A description comment (text before first file)
//   - An "input.json" file with the registry document
//   - An optional "overrides.yaml" file
//   - One or more "want/<filename>" files with expected output
//
// The description may contain a "Flags: flag1, flag2" line to pass flags
// to the generator and a "Mode: contains" line to select partial matching.
func ParseCase(name string, ar *txtar.Archive) (*Case, error) {
	c := &Case{
		Name:        name,
		Description: string(ar.Comment),
		Want:        make(map[string][]byte),
		archive:     ar,
	}

	if err := c.parseDescription(); err != nil {
		return nil, err
	}

	for _, f := range ar.Files {
		switch {
		case f.Name == "input.json":
			c.Input = f.Data
		case f.Name == "overrides.yaml":
			c.Overrides = f.Data
		case strings.HasPrefix(f.Name, "want/"):
			c.Want[strings.TrimPrefix(f.Name, "want/")] = f.Data
		default:
			return nil, fmt.Errorf("unexpected file in archive: %q (expected input.json, overrides.yaml or want/*)", f.Name)
		}
	}

	if c.Input == nil {
		return nil, fmt.Errorf("missing input.json in archive")
	}

	if len(c.Want) == 0 {
		return nil, fmt.Errorf("missing want/* files in archive")
	}

	return c, nil
}

// parseDescription extracts the Flags and Mode lines.
func (c *Case) parseDescription() error {
	for line := range strings.SplitSeq(c.Description, "\n") {
		line = strings.TrimSpace(line)
		if flagStr, ok := strings.CutPrefix(line, "Flags:"); ok {
			for f := range strings.SplitSeq(flagStr, ",") {
				if f = strings.TrimSpace(f); f != "" {
					c.Flags = append(c.Flags, f)
				}
			}
		}
		if mode, ok := strings.CutPrefix(line, "Mode:"); ok {
			switch strings.TrimSpace(mode) {
			case "exact":
				c.Mode = Exact
			case "contains":
				c.Mode = Contains
			default:
				return fmt.Errorf("unknown mode %q", strings.TrimSpace(mode))
			}
		}
	}
	return nil
}

// Args splits the flags into command-line arguments, so "-t VkFence"
// becomes two arguments.
func (c *Case) Args() []string {
	var args []string
	for _, f := range c.Flags {
		args = append(args, strings.Fields(f)...)
	}
	return args
}

// GenerateFunc generates output for a case. It returns a map of filename
// to content.
type GenerateFunc func(c *Case) (map[string][]byte, error)

// Run executes the test case using the provided generate function.
// It compares generated output against expected output and reports differences.
func (c *Case) Run(t *testing.T, generate GenerateFunc) {
	t.Helper()

	got, err := generate(c)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	for wantFile := range c.Want {
		if _, ok := got[wantFile]; !ok {
			t.Errorf("missing output file: %q", wantFile)
		}
	}

	if c.Mode == Exact {
		for gotFile := range got {
			if _, ok := c.Want[gotFile]; !ok {
				t.Errorf("unexpected output file: %q", gotFile)
			}
		}
	}

	for wantFile, wantContent := range c.Want {
		gotContent, ok := got[wantFile]
		if !ok {
			continue // Already reported as missing
		}

		wantNorm := normalizeContent(wantContent)
		gotNorm := normalizeContent(gotContent)

		if c.Mode == Contains {
			if block, ok := containsInOrder(gotNorm, wantNorm); !ok {
				t.Errorf("file %q does not contain (in order):\n%s\n\ngot:\n%s", wantFile, block, gotNorm)
			}
			continue
		}

		if diff := cmp.Diff(wantNorm, gotNorm); diff != "" {
			t.Errorf("file %q mismatch (-want +got):\n%s", wantFile, diff)
		}
	}
}

// containsInOrder reports whether every block of want occurs in got after
// the previous one. On failure it returns the first missing block.
func containsInOrder(got, want string) (string, bool) {
	rest := got
	for _, block := range strings.Split(want, blockSeparator) {
		block = strings.Trim(block, "\n")
		if block == "" {
			continue
		}
		i := strings.Index(rest, block)
		if i < 0 {
			return block, false
		}
		rest = rest[i+len(block):]
	}
	return "", true
}

// normalizeContent normalizes content for comparison:
// - Trims trailing whitespace from each line
// - Ensures consistent line endings
// - Trims trailing newlines
func normalizeContent(content []byte) string {
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	result := strings.Join(lines, "\n")
	return strings.TrimRight(result, "\n")
}

// UpdateArchive updates a txtar archive with new generated content.
// Used for golden file updates with -update flag. In Contains mode only
// the files already listed are rewritten.
func UpdateArchive(ar *txtar.Archive, c *Case, got map[string][]byte) *txtar.Archive {
	result := &txtar.Archive{
		Comment: ar.Comment,
	}

	for _, f := range ar.Files {
		if f.Name == "input.json" || f.Name == "overrides.yaml" {
			result.Files = append(result.Files, f)
		}
	}

	var wantFiles []string
	for name := range got {
		if _, listed := c.Want[name]; c.Mode == Contains && !listed {
			continue
		}
		wantFiles = append(wantFiles, name)
	}
	sort.Strings(wantFiles)

	for _, name := range wantFiles {
		content := got[name]
		if len(content) > 0 && content[len(content)-1] != '\n' {
			content = append(content, '\n')
		}
		result.Files = append(result.Files, txtar.File{
			Name: "want/" + name,
			Data: content,
		})
	}

	return result
}

// Update regenerates the case and rewrites its archive in place.
func (c *Case) Update(generate GenerateFunc) error {
	if c.Path == "" || c.archive == nil {
		return fmt.Errorf("case %s was not loaded from a file", c.Name)
	}
	got, err := generate(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.Path, txtar.Format(UpdateArchive(c.archive, c, got)), 0o644)
}

// LoadTestCases loads all txtar test cases from a directory.
func LoadTestCases(t *testing.T, dir string) []*Case {
	t.Helper()

	pattern := filepath.Join(dir, "*.txtar")
	files, err := filepath.Glob(pattern)
	if err != nil {
		t.Fatalf("glob %q: %v", pattern, err)
	}

	if len(files) == 0 {
		t.Fatalf("no txtar files found in %q", dir)
	}

	var cases []*Case
	for _, file := range files {
		ar, err := txtar.ParseFile(file)
		if err != nil {
			t.Fatalf("parse %q: %v", file, err)
		}

		name := strings.TrimSuffix(filepath.Base(file), ".txtar")
		c, err := ParseCase(name, ar)
		if err != nil {
			t.Fatalf("parse case %q: %v", name, err)
		}
		c.Path = file

		cases = append(cases, c)
	}

	sort.Slice(cases, func(i, j int) bool {
		return cases[i].Name < cases[j].Name
	})

	return cases
}

// runInfo are the header lines that depend on where and when the input
// was fetched.
var runInfo = []string{"// Source: ", "// Ref: ", "// Commit: ", "// Version: "}

// StripRunInfo drops the run-specific lines of a generated header so
// golden files do not depend on the input location.
func StripRunInfo(content []byte) []byte {
	lines := strings.SplitAfter(string(content), "\n")
	var b strings.Builder
	for _, line := range lines {
		if !slices.ContainsFunc(runInfo, func(p string) bool { return strings.HasPrefix(line, p) }) {
			b.WriteString(line)
		}
	}
	return []byte(b.String())
}
