// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package codegen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Run("empty keeps defaults", func(t *testing.T) {
		cfg, err := ParseConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`
namespace: OpenXR
library: openxr_loader
resultType: XrResult
exceptionBase: OpenXRException
commandClass: Xr
proxyPrefix: xr
recordingPrefix: ""
creationVerbs: [Create]
constantPrefix: XR_
inlineFixedBuffers: false
parallel: 4
primitives:
  size_t: ulong
`))
		require.NoError(t, err)
		assert.Equal(t, "OpenXR", cfg.Namespace)
		assert.Equal(t, "openxr_loader", cfg.Library)
		assert.Equal(t, "XrResult", cfg.ResultType)
		assert.Equal(t, "OpenXRException", cfg.ExceptionBase)
		assert.Equal(t, "Xr", cfg.CommandClass)
		assert.Equal(t, "xr", cfg.ProxyPrefix)
		assert.Empty(t, cfg.RecordingPrefix)
		assert.Equal(t, []string{"Create"}, cfg.CreationVerbs)
		assert.Equal(t, "XR_", cfg.ConstantPrefix)
		assert.Equal(t, "_", cfg.DigitMarker, "absent keys keep their default")
		assert.False(t, cfg.InlineFixedBuffers)
		assert.Equal(t, 4, cfg.Parallel)
		assert.Equal(t, "ulong", cfg.Primitives["size_t"])
		assert.Equal(t, "uint", cfg.Primitives["uint32_t"], "primitives merge into the built-in table")
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := ParseConfig([]byte("namepsace: Typo\n"))
		assert.Error(t, err)
	})

	t.Run("negative parallel", func(t *testing.T) {
		_, err := ParseConfig([]byte("parallel: -1\n"))
		assert.ErrorContains(t, err, "parallel")
	})
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cabind.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespace: Demo\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Demo", cfg.Namespace)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultConfigIsolated(t *testing.T) {
	a := DefaultConfig()
	a.Primitives["uint32_t"] = "changed"
	b := DefaultConfig()
	assert.Equal(t, "uint", b.Primitives["uint32_t"])
	assert.Equal(t, "uint", defaultPrimitives["uint32_t"])
}
