// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package envconfig

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/albertocavalcante/cabind/internal/logutil"
)

func TestConfig(t *testing.T) {
	t.Setenv("CABIND_DEBUG", "")
	t.Setenv("CABIND_PARALLEL", "")
	t.Setenv("CABIND_TIMEOUT", "")
	LoadConfig()
	assert.Equal(t, 0, Debug)
	assert.Equal(t, 0, Parallel)
	assert.Equal(t, 60*time.Second, Timeout)
	assert.Equal(t, slog.LevelInfo, LogLevel())

	t.Setenv("CABIND_DEBUG", "true")
	LoadConfig()
	assert.Equal(t, slog.LevelDebug, LogLevel())

	t.Setenv("CABIND_DEBUG", "2")
	t.Setenv("CABIND_PARALLEL", "4")
	t.Setenv("CABIND_TIMEOUT", "5s")
	LoadConfig()
	assert.Equal(t, logutil.LevelTrace, LogLevel())
	assert.Equal(t, 4, Parallel)
	assert.Equal(t, 5*time.Second, Timeout)

	t.Setenv("CABIND_PARALLEL", "-1")
	t.Setenv("CABIND_TIMEOUT", "soon")
	LoadConfig()
	assert.Equal(t, 0, Parallel)
	assert.Equal(t, 60*time.Second, Timeout)

	assert.Equal(t, "2", Values()["CABIND_DEBUG"])
	assert.Len(t, AsMap(), 3)
}
