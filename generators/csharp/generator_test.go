// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package csharp

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/albertocavalcante/cabind/generator"
	"github.com/albertocavalcante/cabind/internal/model"
	"github.com/albertocavalcante/cabind/internal/patch"
	"github.com/albertocavalcante/cabind/internal/registry"
)

const sample = `{
  "types": [
    {"kind": "primitive", "name": "uint32_t"},
    {"kind": "enum", "name": "VkResult", "values": [
      {"name": "VK_SUCCESS", "value": 0},
      {"name": "VK_ERROR_DEVICE_LOST", "value": -4}
    ]},
    {"kind": "handle", "name": "VkInstance", "dispatchable": true},
    {"kind": "handle", "name": "VkDevice", "dispatchable": true, "parents": ["VkInstance"]},
    {"kind": "handle", "name": "VkFence", "parents": ["VkDevice"]},
    {"kind": "struct", "name": "VkExtent2D", "members": [
      {"name": "width", "type": "uint32_t"},
      {"name": "height", "type": "uint32_t"}
    ]}
  ],
  "commands": [
    {"name": "vkDeviceWaitIdle", "return": {"type": "VkResult"}, "args": [
      {"name": "device", "type": "VkDevice"}
    ]}
  ]
}`

func load(t *testing.T) *registry.Registry {
	t.Helper()
	doc, err := model.Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	reg, err := doc.Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := patch.Apply(reg, nil); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestGenerate(t *testing.T) {
	out, err := NewGenerator().Generate(context.Background(), load(t), generator.Config{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []string{
		"Commands/Global.cs",
		"Commands/VkDevice.cs",
		"Enums/VkResult.cs",
		"Exceptions.cs",
		"Handles/VkDevice.cs",
		"Handles/VkFence.cs",
		"Handles/VkInstance.cs",
		"Structs/VkExtent2D.cs",
	}
	if diff := cmp.Diff(want, out.Names()); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(out.Files["Commands/VkDevice.cs"]), "public static void DeviceWaitIdle(VkDevice device)") {
		t.Errorf("missing proxy:\n%s", out.Files["Commands/VkDevice.cs"])
	}
}

func TestGenerateOptions(t *testing.T) {
	cfg := generator.Config{
		Types:       []string{"VkFence"},
		ResolveDeps: true,
		Source:      "vk.json",
		Options:     map[string]string{"namespace": "Demo.Interop", "library": "vulkan"},
	}
	out, err := NewGenerator().Generate(context.Background(), load(t), cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	want := []string{
		"Commands/Global.cs",
		"Handles/VkDevice.cs",
		"Handles/VkFence.cs",
		"Handles/VkInstance.cs",
	}
	if diff := cmp.Diff(want, out.Names()); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	global := string(out.Files["Commands/Global.cs"])
	for _, s := range []string{"// Source: vk.json", "namespace Demo.Interop", `LibraryName = "vulkan";`} {
		if !strings.Contains(global, s) {
			t.Errorf("Global.cs does not contain %q:\n%s", s, global)
		}
	}
}

func TestGenerateBadOption(t *testing.T) {
	cfg := generator.Config{Options: map[string]string{"inline": "sometimes"}}
	if _, err := NewGenerator().Generate(context.Background(), load(t), cfg); err == nil {
		t.Fatal("expected error for a non-boolean inline option")
	}
}

func TestMetadata(t *testing.T) {
	meta := NewGenerator().Metadata()
	if meta.Name != "csharp" {
		t.Errorf("got name %q, want csharp", meta.Name)
	}
	if diff := cmp.Diff([]string{".cs"}, meta.FileExtensions); diff != "" {
		t.Errorf("extensions mismatch (-want +got):\n%s", diff)
	}
}
