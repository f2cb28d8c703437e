// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls code generation behavior.
type Config struct {
	// Namespace wraps every generated declaration.
	Namespace string `yaml:"namespace"`

	// Library is the native library name passed to DllImport.
	Library string `yaml:"library"`

	// ResultType names the result/status enum. Commands returning it throw
	// on negative values.
	ResultType string `yaml:"resultType"`

	// ExceptionBase is the generic exception class.
	ExceptionBase string `yaml:"exceptionBase"`

	// CommandClass is the static class holding entry points.
	CommandClass string `yaml:"commandClass"`

	// ProxyPrefix marks public entry points and is stripped from proxy names.
	ProxyPrefix string `yaml:"proxyPrefix"`

	// RecordingPrefix is the longer prefix of per-recording-context commands.
	RecordingPrefix string `yaml:"recordingPrefix"`

	// CreationVerbs start the proxy names whose trailing out-parameter is
	// returned instead.
	CreationVerbs []string `yaml:"creationVerbs"`

	// ConstantPrefix is trimmed from free-standing constant names.
	ConstantPrefix string `yaml:"constantPrefix"`

	// DigitMarker prefixes names that would start with a digit.
	DigitMarker string `yaml:"digitMarker"`

	// InlineFixedBuffers emits "fixed" arrays for primitive element types
	// instead of helper structs.
	InlineFixedBuffers bool `yaml:"inlineFixedBuffers"`

	// Parallel bounds the number of entities emitted concurrently.
	// Zero uses GOMAXPROCS.
	Parallel int `yaml:"parallel"`

	// Primitives maps C scalar names to C# types. Entries are merged over
	// the built-in table.
	Primitives map[string]string `yaml:"primitives"`

	// Types limits emission to specific entity names.
	// If empty, all entities are emitted.
	Types []string `yaml:"-"`

	// Source describes where the registry came from (for header comment).
	Source string `yaml:"-"`

	// Ref is the git reference used (for header comment).
	Ref string `yaml:"-"`

	// CommitHash is the git commit (for header comment).
	CommitHash string `yaml:"-"`

	// Version is the API version of the registry (for header comment).
	Version string `yaml:"-"`
}

// DefaultConfig returns Vulkan-style defaults.
func DefaultConfig() Config {
	return Config{
		Namespace:          "Vulkan",
		Library:            "vulkan-1",
		ResultType:         "VkResult",
		ExceptionBase:      "VulkanException",
		CommandClass:       "Vk",
		ProxyPrefix:        "vk",
		RecordingPrefix:    "vkCmd",
		CreationVerbs:      []string{"Create", "Allocate"},
		ConstantPrefix:     "VK_",
		DigitMarker:        "_",
		InlineFixedBuffers: true,
		Primitives:         maps.Clone(defaultPrimitives),
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes a YAML document over DefaultConfig. Keys that are
// absent keep their default; primitives are merged into the built-in table.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Parallel < 0 {
		return Config{}, fmt.Errorf("parallel must not be negative, got %d", cfg.Parallel)
	}
	return cfg, nil
}
