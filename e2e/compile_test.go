// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

//go:build e2e

// Package e2e provides end-to-end compile verification tests.
// These tests verify that generated code is valid and compilable.
//
// Run with: go test -tags e2e ./e2e/... -v
package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// Tool installation instructions
var installInstructions = map[string]string{
	"go":     "Go is required. Install from https://go.dev/dl/",
	"dotnet": "The .NET SDK is required. Install from https://dotnet.microsoft.com/download",
}

// requireTool fails the test if the tool is not available.
func requireTool(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		instruction := installInstructions[name]
		if instruction == "" {
			instruction = fmt.Sprintf("Install %s and ensure it's in PATH", name)
		}
		t.Fatalf("%s not found in PATH.\n%s", name, instruction)
	}
}

// compileDoc exercises every emitter: bitmasks, results with exceptions,
// fixed arrays, unions, delegates and each proxy parameter kind.
const compileDoc = `{
  "version": "1.3.280",
  "types": [
    {"kind": "primitive", "name": "void"},
    {"kind": "primitive", "name": "char"},
    {"kind": "primitive", "name": "float"},
    {"kind": "primitive", "name": "uint32_t"},
    {"kind": "primitive", "name": "uint64_t"},
    {"kind": "primitive", "name": "size_t"},
    {"kind": "alias", "name": "VkFlags", "target": "uint32_t"},
    {"kind": "alias", "name": "VkDeviceSize", "target": "uint64_t"},
    {"kind": "enum", "name": "VkResult", "values": [
      {"name": "VK_SUCCESS", "value": 0},
      {"name": "VK_INCOMPLETE", "value": 5},
      {"name": "VK_ERROR_OUT_OF_HOST_MEMORY", "value": -1},
      {"name": "VK_ERROR_DEVICE_LOST", "value": -4}
    ]},
    {"kind": "enum", "name": "VkStructureType", "values": [
      {"name": "VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO", "value": 1}
    ]},
    {"kind": "enum", "name": "VkCullModeFlagBits", "values": [
      {"name": "VK_CULL_MODE_NONE", "value": 0},
      {"name": "VK_CULL_MODE_FRONT_BIT", "bitpos": 0}
    ]},
    {"kind": "alias", "name": "VkCullModeFlags", "target": "VkFlags"},
    {"kind": "handle", "name": "VkInstance", "dispatchable": true},
    {"kind": "handle", "name": "VkPhysicalDevice", "dispatchable": true, "parents": ["VkInstance"]},
    {"kind": "handle", "name": "VkDevice", "dispatchable": true, "parents": ["VkPhysicalDevice"]},
    {"kind": "handle", "name": "VkCommandBuffer", "dispatchable": true, "parents": ["VkDevice"]},
    {"kind": "handle", "name": "VkBuffer", "parents": ["VkDevice"]},
    {"kind": "funcpointer", "name": "PFN_vkAllocationFunction",
     "prototype": "typedef void* (VKAPI_PTR *PFN_vkAllocationFunction)(void* pUserData, size_t size, size_t alignment);"},
    {"kind": "funcpointer", "name": "PFN_vkVoidFunction",
     "prototype": "typedef void (VKAPI_PTR *PFN_vkVoidFunction)(void);"},
    {"kind": "struct", "name": "VkAllocationCallbacks", "members": [
      {"name": "pUserData", "type": "void", "pointers": 1},
      {"name": "pfnAllocation", "type": "PFN_vkAllocationFunction"}
    ]},
    {"kind": "struct", "name": "VkInstanceCreateInfo", "members": [
      {"name": "sType", "type": "VkStructureType", "values": ["VK_STRUCTURE_TYPE_INSTANCE_CREATE_INFO"]},
      {"name": "pNext", "type": "void", "pointers": 1, "const": true, "optional": true},
      {"name": "enabledLayerCount", "type": "uint32_t"},
      {"name": "ppEnabledLayerNames", "type": "char", "pointers": 2, "const": true, "len": ["enabledLayerCount", "null-terminated"]}
    ]},
    {"kind": "struct", "name": "VkPhysicalDeviceProperties", "members": [
      {"name": "apiVersion", "type": "uint32_t"},
      {"name": "deviceName", "type": "char", "fixedSize": "VK_MAX_PHYSICAL_DEVICE_NAME_SIZE"},
      {"name": "pipelineCacheUUID", "type": "VkBuffer", "fixedSize": 2}
    ]},
    {"kind": "union", "name": "VkClearColorValue", "members": [
      {"name": "float32", "type": "float", "fixedSize": 4},
      {"name": "uint32", "type": "uint32_t", "fixedSize": 4}
    ]},
    {"kind": "struct", "name": "VkRasterizationState", "members": [
      {"name": "cullMode", "type": "VkCullModeFlags"}
    ]}
  ],
  "commands": [
    {"name": "vkCreateInstance", "return": {"type": "VkResult"},
     "errorCodes": ["VK_ERROR_OUT_OF_HOST_MEMORY"], "args": [
      {"name": "pCreateInfo", "type": "VkInstanceCreateInfo", "pointers": 1, "const": true},
      {"name": "pAllocator", "type": "VkAllocationCallbacks", "pointers": 1, "const": true, "optional": true},
      {"name": "pInstance", "type": "VkInstance", "pointers": 1}
    ]},
    {"name": "vkEnumeratePhysicalDevices", "return": {"type": "VkResult"}, "args": [
      {"name": "instance", "type": "VkInstance"},
      {"name": "pPhysicalDeviceCount", "type": "uint32_t", "pointers": 1},
      {"name": "pPhysicalDevices", "type": "VkPhysicalDevice", "pointers": 1, "optional": true, "len": ["pPhysicalDeviceCount"]}
    ]},
    {"name": "vkGetInstanceProcAddr", "return": {"type": "PFN_vkVoidFunction"}, "args": [
      {"name": "instance", "type": "VkInstance"},
      {"name": "pName", "type": "char", "pointers": 1, "const": true, "len": ["null-terminated"]}
    ]},
    {"name": "vkCmdBindVertexBuffers", "args": [
      {"name": "commandBuffer", "type": "VkCommandBuffer"},
      {"name": "firstBinding", "type": "uint32_t"},
      {"name": "bindingCount", "type": "uint32_t"},
      {"name": "pBuffers", "type": "VkBuffer", "pointers": 1, "const": true, "len": ["bindingCount"]},
      {"name": "pOffsets", "type": "VkDeviceSize", "pointers": 1, "const": true, "len": ["bindingCount"]}
    ]},
    {"name": "vkCmdSetBlendConstants", "args": [
      {"name": "commandBuffer", "type": "VkCommandBuffer"},
      {"name": "blendConstants", "type": "float", "fixedSize": 4, "const": true}
    ]},
    {"name": "vkSetLayerNames", "args": [
      {"name": "device", "type": "VkDevice"},
      {"name": "nameCount", "type": "uint32_t"},
      {"name": "ppNames", "type": "char", "pointers": 2, "const": true, "len": ["nameCount", "null-terminated"]}
    ]}
  ],
  "constants": [
    {"name": "VK_MAX_PHYSICAL_DEVICE_NAME_SIZE", "value": "256U"},
    {"name": "VK_LOD_CLAMP_NONE", "value": "1000.0F"},
    {"name": "VK_WHOLE_SIZE", "value": "(~0ULL)"}
  ]
}`

const csproj = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <OutputType>Library</OutputType>
    <AllowUnsafeBlocks>true</AllowUnsafeBlocks>
    <Nullable>disable</Nullable>
    <ImplicitUsings>disable</ImplicitUsings>
    <TreatWarningsAsErrors>false</TreatWarningsAsErrors>
  </PropertyGroup>
</Project>
`

// TestCSharpOutputCompiles verifies that generated C# builds as a library.
func TestCSharpOutputCompiles(t *testing.T) {
	requireTool(t, "go")
	requireTool(t, "dotnet")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	moduleRoot, err := findModuleRoot()
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}

	tmpDir := t.TempDir()
	binaryPath := filepath.Join(tmpDir, "cabind")
	if err := buildBinaryFull(ctx, moduleRoot, binaryPath); err != nil {
		t.Fatalf("build binary: %v", err)
	}

	specPath := filepath.Join(tmpDir, "vk.json")
	if err := os.WriteFile(specPath, []byte(compileDoc), 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}

	projectDir := filepath.Join(tmpDir, "bindings")
	cmd := exec.CommandContext(ctx, binaryPath, "generate", "--spec", specPath, "-o", filepath.Join(projectDir, "Generated"))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("cabind generate: %v\n%s", err, stderr.String())
	}
	if err := os.WriteFile(filepath.Join(projectDir, "Bindings.csproj"), []byte(csproj), 0o644); err != nil {
		t.Fatalf("write csproj: %v", err)
	}

	t.Run("dotnet_build", func(t *testing.T) {
		start := time.Now()
		var out bytes.Buffer
		cmd := exec.CommandContext(ctx, "dotnet", "build", "--nologo", "-v", "quiet")
		cmd.Dir = projectDir
		cmd.Stdout = &out
		cmd.Stderr = &out
		cmd.Env = append(os.Environ(), "DOTNET_CLI_TELEMETRY_OPTOUT=1", "DOTNET_NOLOGO=1")
		if err := cmd.Run(); err != nil {
			t.Fatalf("dotnet build failed: %v\n%s", err, out.String())
		}
		t.Logf("dotnet build: %v", time.Since(start))
	})
}

// TestManifestOutputValid verifies that the manifest backend produces YAML
// that describes every command.
func TestManifestOutputValid(t *testing.T) {
	requireTool(t, "go")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	moduleRoot, err := findModuleRoot()
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}

	tmpDir := t.TempDir()
	binaryPath := filepath.Join(tmpDir, "cabind")
	if err := buildBinaryFull(ctx, moduleRoot, binaryPath); err != nil {
		t.Fatalf("build binary: %v", err)
	}

	specPath := filepath.Join(tmpDir, "vk.json")
	if err := os.WriteFile(specPath, []byte(compileDoc), 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}

	outDir := filepath.Join(tmpDir, "manifest")
	cmd := exec.CommandContext(ctx, binaryPath, "generate", "--spec", specPath, "-g", "manifest", "-o", outDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("cabind generate: %v\n%s", err, stderr.String())
	}

	data, err := os.ReadFile(filepath.Join(outDir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	var m struct {
		Units    []string `yaml:"units"`
		Entities []struct {
			Name     string `yaml:"name"`
			Category string `yaml:"category"`
			Proxy    *struct {
				Proxy string `yaml:"proxy"`
			} `yaml:"proxy"`
		} `yaml:"entities"`
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatalf("manifest is not valid YAML: %v", err)
	}

	proxies := 0
	for _, e := range m.Entities {
		if e.Category == "command" {
			if e.Proxy == nil {
				t.Errorf("command %s has no proxy", e.Name)
				continue
			}
			proxies++
		}
	}
	if proxies != 6 {
		t.Errorf("got %d command proxies, want 6", proxies)
	}
	if len(m.Units) == 0 {
		t.Error("manifest lists no units")
	}
}

// buildBinaryFull builds cabind with the cabind_full tag.
func buildBinaryFull(ctx context.Context, moduleRoot, outputPath string) error {
	cmd := exec.CommandContext(ctx, "go", "build",
		"-tags", "cabind_full",
		"-o", outputPath,
		"./cmd/cabind",
	)
	cmd.Dir = moduleRoot
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w: %s", err, stderr.String())
	}
	return nil
}
