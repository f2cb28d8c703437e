// SPDX-License-Identifier: MIT

// Package e2e provides end-to-end tests for the cabind CLI.
package e2e

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/albertocavalcante/cabind/internal/testutil"
)

var (
	binary string                                              // path to built cabind binary
	update = flag.Bool("update", false, "update golden files")
)

func TestMain(m *testing.M) {
	flag.Parse()

	tmpDir, err := os.MkdirTemp("", "cabind-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	binary = filepath.Join(tmpDir, "cabind")
	if err := buildBinary(binary); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build binary: %v\n", err)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// buildBinary builds the default cabind binary.
func buildBinary(outputPath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	moduleRoot, err := findModuleRoot()
	if err != nil {
		return fmt.Errorf("find module root: %w", err)
	}

	cmd := exec.CommandContext(ctx, "go", "build", "-o", outputPath, "./cmd/cabind")
	cmd.Dir = moduleRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w: %s", err, stderr.String())
	}
	return nil
}

// findModuleRoot walks up from the working directory to go.mod.
func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}

// TestE2E runs each archive in testdata through "cabind generate
// --dry-run". Flags lines list CLI arguments separated by commas.
func TestE2E(t *testing.T) {
	for _, tc := range testutil.LoadTestCases(t, "testdata") {
		t.Run(tc.Name, func(t *testing.T) {
			if *update {
				if err := tc.Update(runCLI); err != nil {
					t.Fatalf("update: %v", err)
				}
				t.Logf("updated %s", tc.Path)
				return
			}
			tc.Run(t, runCLI)
		})
	}
}

// runCLI writes the case inputs to disk and runs the binary on them.
func runCLI(c *testutil.Case) (map[string][]byte, error) {
	tmpDir, err := os.MkdirTemp("", "cabind-case-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	inputPath := filepath.Join(tmpDir, "input.json")
	if err := os.WriteFile(inputPath, c.Input, 0o644); err != nil {
		return nil, err
	}

	args := []string{"generate", "--spec", inputPath, "--dry-run"}
	if c.Overrides != nil {
		overridesPath := filepath.Join(tmpDir, "overrides.yaml")
		if err := os.WriteFile(overridesPath, c.Overrides, 0o644); err != nil {
			return nil, err
		}
		args = append(args, "--overrides", overridesPath)
	}
	args = append(args, c.Args()...)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("cabind %s: %w\n%s", strings.Join(args, " "), err, stderr.String())
	}
	return splitDryRun(stdout.Bytes())
}

// fileMarker opens each file of the dry-run output.
var fileMarker = regexp.MustCompile(`(?m)^// ==> (.+) <==\n`)

// splitDryRun cuts the dry-run output back into files, without the
// run-specific header lines.
func splitDryRun(out []byte) (map[string][]byte, error) {
	locs := fileMarker.FindAllSubmatchIndex(out, -1)
	if len(locs) == 0 {
		return nil, fmt.Errorf("no file markers in output")
	}
	files := make(map[string][]byte, len(locs))
	for i, loc := range locs {
		end := len(out)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		files[string(out[loc[2]:loc[3]])] = testutil.StripRunInfo(out[loc[1]:end])
	}
	return files, nil
}
