// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

//go:build cabind_full

package main

import (
	"github.com/albertocavalcante/cabind/generator"
	"github.com/albertocavalcante/cabind/generators/csharp"
	"github.com/albertocavalcante/cabind/generators/manifest"
)

func init() {
	// Full build: every backend embedded
	generator.Register(csharp.NewGenerator())
	generator.Register(manifest.NewGenerator())
}
