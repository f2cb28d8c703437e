// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Command cabind generates C# bindings from a C API registry document.
//
// Usage:
//
//	cabind generate [flags]
//	cabind generators
//	cabind env
//	cabind version
//
// Generate flags:
//
//	--spec           Path to a local registry document
//	--repo           Path to a checkout containing the document
//	--url            HTTP(S) location of the document
//	--git            Git remote to clone at --ref
//	--overrides      YAML file with hand-curated corrections
//	--config         YAML file with synthesis settings
//	-t, --types      Comma-separated entities to generate (default: all)
//	-g, --generator  Backend to run (default: csharp)
//	-o, --output     Output directory (default: stdout)
//	--dry-run        Print to stdout without writing files
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/cabind/generator"
	"github.com/albertocavalcante/cabind/internal/codegen"
	"github.com/albertocavalcante/cabind/internal/envconfig"
	"github.com/albertocavalcante/cabind/internal/fetch"
	"github.com/albertocavalcante/cabind/internal/logutil"
	"github.com/albertocavalcante/cabind/internal/patch"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cabind",
		Short: "C API binding generator",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
		},
	}

	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(
		newGenerateCmd(),
		newGeneratorsCmd(),
		newEnvCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// generateFlags holds the flags of the generate command.
type generateFlags struct {
	spec, repo, url, git, ref, path string

	overrides string
	config    string

	types       string
	resolveDeps bool
	generator   string
	options     []string

	output  string
	dryRun  bool
	verbose bool
}

func newGenerateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate bindings from a registry document",
		Example: `  # Generate C# bindings into ./Generated
  cabind generate --spec vk.json --overrides overrides.yaml -o ./Generated

  # Generate a few entities and everything they refer to
  cabind generate --spec vk.json -t VkInstanceCreateInfo,vkCreateInstance --resolve-deps

  # Use a registry from a git remote at a tag
  cabind generate --git https://example.com/registry.git --ref v1.3.280 -o ./Generated`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.spec, "spec", "", "Path to a local registry document")
	flags.StringVar(&f.repo, "repo", "", "Path to a checkout containing the registry document")
	flags.StringVar(&f.url, "url", "", "HTTP(S) location of the registry document")
	flags.StringVar(&f.git, "git", "", "Git remote to clone")
	flags.StringVar(&f.ref, "ref", "", "Git reference (tag or branch)")
	flags.StringVar(&f.path, "path", fetch.DocumentPath, "Document path inside --repo or --git")
	flags.StringVar(&f.overrides, "overrides", "", "YAML file with hand-curated corrections")
	flags.StringVar(&f.config, "config", "", "YAML file with synthesis settings")
	flags.StringVarP(&f.types, "types", "t", "", "Comma-separated entities to generate (default: all)")
	flags.BoolVar(&f.resolveDeps, "resolve-deps", false, "Include transitive dependencies of --types")
	flags.StringVarP(&f.generator, "generator", "g", "csharp", "Backend to run")
	flags.StringArrayVar(&f.options, "option", nil, "Backend option as key=value (repeatable)")
	flags.StringVarP(&f.output, "output", "o", "", "Output directory (default: stdout)")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Print to stdout without writing files")
	flags.BoolVar(&f.verbose, "verbose", false, "Verbose output")
	cmd.MarkFlagsMutuallyExclusive("spec", "repo", "url", "git")
	return cmd
}

func runGenerate(ctx context.Context, stdout, stderr io.Writer, f generateFlags) error {
	level := envconfig.LogLevel()
	if f.verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	slog.SetDefault(logutil.NewLogger(stderr, level))

	gen, err := generator.Lookup(f.generator)
	if err != nil {
		return err
	}

	options, err := parseOptions(f.options)
	if err != nil {
		return err
	}
	if err := gen.Metadata().CheckOptions(options); err != nil {
		return err
	}

	syn := codegen.DefaultConfig()
	if f.config != "" {
		if syn, err = codegen.LoadConfig(f.config); err != nil {
			return err
		}
	}
	if syn.Parallel == 0 {
		syn.Parallel = envconfig.Parallel
	}

	// Fetch the registry document
	slog.Debug("fetching registry document")
	result, err := fetch.Fetch(ctx, fetch.Options{
		LocalPath: f.spec,
		RepoDir:   f.repo,
		URL:       f.url,
		GitURL:    f.git,
		Ref:       f.ref,
		Path:      f.path,
		Timeout:   envconfig.Timeout,
	})
	if err != nil {
		return fmt.Errorf("fetch registry: %w", err)
	}

	reg, err := result.Document.Build()
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	slog.Debug("loaded registry", "source", result.Source, "version", result.Document.Version,
		"entities", reg.Len(), "commit", result.CommitHash)

	var ov *patch.Overrides
	if f.overrides != "" {
		if ov, err = patch.Load(f.overrides); err != nil {
			return err
		}
	}
	report, err := patch.Apply(reg, ov)
	if err != nil {
		return fmt.Errorf("apply overrides: %w", err)
	}
	slog.Debug("applied overrides", "bitmasks", len(report.Bitmasks), "parents", report.Parents,
		"nullable", report.Nullable, "comments", report.Comments)
	for _, name := range report.Unknown {
		slog.Warn("override names no declaration", "name", name)
	}

	cfg := generator.Config{
		OutputDir:   f.output,
		Types:       splitList(f.types),
		ResolveDeps: f.resolveDeps,
		Synthesis:   &syn,
		Source:      result.Source,
		Ref:         result.Ref,
		CommitHash:  result.CommitHash,
		Version:     result.Document.Version,
		Options:     options,
	}
	out, err := gen.Generate(ctx, reg, cfg)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if f.dryRun || f.output == "" {
		for _, name := range out.Names() {
			fmt.Fprintf(stdout, "// ==> %s <==\n%s\n", name, out.Files[name])
		}
		return nil
	}

	if err := out.Commit(f.output); err != nil {
		return err
	}
	slog.Info("wrote bindings", "dir", f.output, "files", len(out.Files), "generator", gen.Metadata().Name)
	return nil
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseOptions(kvs []string) (map[string]string, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	opts := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --option %q, want key=value", kv)
		}
		opts[k] = v
	}
	return opts, nil
}

func newGeneratorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generators",
		Short: "List the available backends and their options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var backends, options [][]string
			for _, g := range generator.All() {
				meta := g.Metadata()
				backends = append(backends, []string{meta.Name, meta.Version, strings.Join(meta.FileExtensions, " "), meta.Description})
				for _, o := range meta.Options {
					options = append(options, []string{meta.Name, o.Key, o.Default, o.Usage})
				}
			}

			w := cmd.OutOrStdout()
			renderTable(w, []string{"NAME", "VERSION", "FILES", "DESCRIPTION"}, backends)
			if len(options) > 0 {
				fmt.Fprintln(w)
				renderTable(w, []string{"GENERATOR", "OPTION", "DEFAULT", "USAGE"}, options)
			}
			return nil
		},
	}
}

func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show the environment settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			vars := envconfig.AsMap()
			values := envconfig.Values()
			var data [][]string
			for _, name := range []string{"CABIND_DEBUG", "CABIND_PARALLEL", "CABIND_TIMEOUT"} {
				data = append(data, []string{name, values[name], vars[name].Description})
			}
			renderTable(cmd.OutOrStdout(), []string{"NAME", "VALUE", "DESCRIPTION"}, data)
			return nil
		},
	}
}

// renderTable prints rows as a borderless, left-aligned table.
func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(rows)
	table.Render()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cabind %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
