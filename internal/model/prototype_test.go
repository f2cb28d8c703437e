// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/albertocavalcante/cabind/internal/registry"
)

func TestParsePrototype(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantName string
		want     *registry.Signature
	}{
		{
			name:     "allocation function",
			text:     "typedef void* (VKAPI_PTR *PFN_vkAllocationFunction)(void* pUserData, size_t size, size_t alignment, VkSystemAllocationScope allocationScope);",
			wantName: "PFN_vkAllocationFunction",
			want: &registry.Signature{
				Return: &registry.Member{Type: "void", Pointers: 1},
				Args: []*registry.Member{
					{Name: "pUserData", Type: "void", Pointers: 1},
					{Name: "size", Type: "size_t"},
					{Name: "alignment", Type: "size_t"},
					{Name: "allocationScope", Type: "VkSystemAllocationScope"},
				},
			},
		},
		{
			name:     "no arguments",
			text:     "typedef void (VKAPI_PTR *PFN_vkVoidFunction)(void);",
			wantName: "PFN_vkVoidFunction",
			want: &registry.Signature{
				Return: &registry.Member{Type: "void"},
			},
		},
		{
			name:     "const pointers and struct keyword",
			text:     "typedef VkBool32 (VKAPI_PTR *PFN_vkDebugUtilsMessengerCallbackEXT)(VkDebugUtilsMessageSeverityFlagBitsEXT messageSeverity, const struct VkDebugUtilsMessengerCallbackDataEXT* pCallbackData, void* pUserData);",
			wantName: "PFN_vkDebugUtilsMessengerCallbackEXT",
			want: &registry.Signature{
				Return: &registry.Member{Type: "VkBool32"},
				Args: []*registry.Member{
					{Name: "messageSeverity", Type: "VkDebugUtilsMessageSeverityFlagBitsEXT"},
					{Name: "pCallbackData", Type: "VkDebugUtilsMessengerCallbackDataEXT", Pointers: 1, Const: true},
					{Name: "pUserData", Type: "void", Pointers: 1},
				},
			},
		},
		{
			name:     "array argument",
			text:     "typedef void (*PFN_blend)(const float constants[4]);",
			wantName: "PFN_blend",
			want: &registry.Signature{
				Return: &registry.Member{Type: "void"},
				Args: []*registry.Member{
					{Name: "constants", Type: "float", FixedSize: "4", Const: true},
				},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			name, sig, err := ParsePrototype(tc.text)
			if err != nil {
				t.Fatalf("ParsePrototype: %v", err)
			}
			if name != tc.wantName {
				t.Errorf("got name %q, want %q", name, tc.wantName)
			}
			if diff := cmp.Diff(tc.want, sig); diff != "" {
				t.Errorf("signature mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParsePrototypeMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "unbalanced arguments", text: "typedef void (*PFN_x)(int a;"},
		{name: "unbalanced name group", text: "typedef void *PFN_x)(int a);"},
		{name: "no star in name group", text: "typedef void (PFN_x)(int a);"},
		{name: "missing type token", text: "typedef void (*PFN_x)(a);"},
		{name: "empty argument", text: "typedef void (*PFN_x)(int a, );"},
		{name: "two return types", text: "typedef unsigned long (*PFN_x)(void);"},
		{name: "bad token", text: "typedef void (*PFN_x)(int a+b);"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParsePrototype(tc.text)
			var mal *MalformedInputError
			if !errors.As(err, &mal) {
				t.Fatalf("got %v, want *MalformedInputError", err)
			}
		})
	}
}
