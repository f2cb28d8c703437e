// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package envconfig reads the CABIND_* environment variables.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/albertocavalcante/cabind/internal/logutil"
)

var (
	// Set via CABIND_DEBUG in the environment. 1 enables debug, 2 trace.
	Debug int
	// Set via CABIND_PARALLEL in the environment. 0 uses GOMAXPROCS.
	Parallel int
	// Set via CABIND_TIMEOUT in the environment
	Timeout time.Duration
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"CABIND_DEBUG":    {"CABIND_DEBUG", Debug, "Show additional debug information (1 debug, 2 trace)"},
		"CABIND_PARALLEL": {"CABIND_PARALLEL", Parallel, "Maximum number of entities emitted concurrently (default GOMAXPROCS)"},
		"CABIND_TIMEOUT":  {"CABIND_TIMEOUT", Timeout, "Timeout for fetching a registry document (default 60s)"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// LogLevel maps Debug onto a slog level.
func LogLevel() slog.Level {
	switch {
	case Debug >= 2:
		return logutil.LevelTrace
	case Debug == 1:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

// LoadConfig reads the environment again. Invalid values are logged and
// the default is kept.
func LoadConfig() {
	Debug = 0
	Parallel = 0
	Timeout = 60 * time.Second

	if debug := clean("CABIND_DEBUG"); debug != "" {
		if n, err := strconv.Atoi(debug); err == nil {
			Debug = n
		} else if b, err := strconv.ParseBool(debug); err == nil {
			if b {
				Debug = 1
			}
		} else {
			Debug = 1
		}
	}

	if p := clean("CABIND_PARALLEL"); p != "" {
		val, err := strconv.Atoi(p)
		if err != nil || val < 0 {
			slog.Error("invalid setting must be zero or greater", "CABIND_PARALLEL", p, "error", err)
		} else {
			Parallel = val
		}
	}

	if t := clean("CABIND_TIMEOUT"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil || d <= 0 {
			slog.Error("invalid setting", "CABIND_TIMEOUT", t, "error", err)
		} else {
			Timeout = d
		}
	}
}
