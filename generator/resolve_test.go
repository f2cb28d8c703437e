// SPDX-License-Identifier: MIT

package generator

import (
	"sort"
	"testing"

	"github.com/albertocavalcante/cabind/internal/registry"
)

func decl(name string) registry.Decl { return registry.Decl{Name: name} }

func newRegistry(t *testing.T, entities ...registry.Entity) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, e := range entities {
		if err := reg.Insert(e); err != nil {
			t.Fatalf("insert %s: %v", e.Info().Name, err)
		}
	}
	reg.Freeze()
	return reg
}

func TestResolveDeps(t *testing.T) {
	tests := []struct {
		name     string
		entities []registry.Entity
		filter   map[string]bool
		want     []string // expected names after resolution, nil means nil
	}{
		{
			name:     "nil filter returns nil",
			entities: []registry.Entity{&registry.Struct{Decl: decl("VkExtent2D")}},
			filter:   nil,
			want:     nil,
		},
		{
			name: "struct referencing struct",
			entities: []registry.Entity{
				&registry.Primitive{Decl: decl("uint32_t")},
				&registry.Struct{Decl: decl("VkExtent2D"), Members: []*registry.Member{
					{Name: "width", Type: "uint32_t"},
					{Name: "height", Type: "uint32_t"},
				}},
				&registry.Struct{Decl: decl("VkRect2D"), Members: []*registry.Member{
					{Name: "extent", Type: "VkExtent2D"},
				}},
			},
			filter: map[string]bool{"VkRect2D": true},
			want:   []string{"VkExtent2D", "VkRect2D", "uint32_t"},
		},
		{
			name: "chain A->B->C",
			entities: []registry.Entity{
				&registry.Struct{Decl: decl("A"), Members: []*registry.Member{{Name: "b", Type: "B", Pointers: 1}}},
				&registry.Struct{Decl: decl("B"), Members: []*registry.Member{{Name: "c", Type: "C"}}},
				&registry.Struct{Decl: decl("C")},
			},
			filter: map[string]bool{"A": true},
			want:   []string{"A", "B", "C"},
		},
		{
			name: "cycle A->B->A",
			entities: []registry.Entity{
				&registry.Struct{Decl: decl("A"), Members: []*registry.Member{{Name: "b", Type: "B", Pointers: 1}}},
				&registry.Struct{Decl: decl("B"), Members: []*registry.Member{{Name: "a", Type: "A", Pointers: 1}}},
			},
			filter: map[string]bool{"A": true},
			want:   []string{"A", "B"},
		},
		{
			name: "alias target and enum backing",
			entities: []registry.Entity{
				&registry.Primitive{Decl: decl("uint32_t")},
				&registry.Alias{Decl: decl("VkFlags"), Target: "uint32_t"},
				&registry.Enum{Decl: decl("VkCullModeFlagBits"), Bitmask: true, Backing: "VkFlags"},
				&registry.Alias{Decl: decl("VkCullModeFlags"), Target: "VkCullModeFlagBits"},
			},
			filter: map[string]bool{"VkCullModeFlags": true},
			want:   []string{"VkCullModeFlagBits", "VkCullModeFlags", "VkFlags", "uint32_t"},
		},
		{
			name: "handle parents",
			entities: []registry.Entity{
				&registry.Handle{Decl: decl("VkInstance"), Dispatchable: true},
				&registry.Handle{Decl: decl("VkDevice"), Dispatchable: true, Parents: []string{"VkInstance"}},
				&registry.Handle{Decl: decl("VkFence"), Parents: []string{"VkDevice"}},
			},
			filter: map[string]bool{"VkFence": true},
			want:   []string{"VkDevice", "VkFence", "VkInstance"},
		},
		{
			name: "command arguments and return",
			entities: []registry.Entity{
				&registry.Primitive{Decl: decl("void")},
				&registry.Enum{Decl: decl("VkResult")},
				&registry.Handle{Decl: decl("VkDevice"), Dispatchable: true},
				&registry.Handle{Decl: decl("VkFence")},
				&registry.Command{Decl: decl("vkWaitForFences"), Signature: registry.Signature{
					Return: &registry.Member{Type: "VkResult"},
					Args: []*registry.Member{
						{Name: "device", Type: "VkDevice"},
						{Name: "pFences", Type: "VkFence", Pointers: 1, Const: true},
					},
				}},
			},
			filter: map[string]bool{"vkWaitForFences": true},
			want:   []string{"VkDevice", "VkFence", "VkResult", "vkWaitForFences"},
		},
		{
			name: "function pointer signature",
			entities: []registry.Entity{
				&registry.Primitive{Decl: decl("void")},
				&registry.Primitive{Decl: decl("size_t")},
				&registry.FuncPointer{Decl: decl("PFN_vkAllocationFunction"), Signature: registry.Signature{
					Return: &registry.Member{Type: "void", Pointers: 1},
					Args:   []*registry.Member{{Name: "size", Type: "size_t"}},
				}},
				&registry.Struct{Decl: decl("VkAllocationCallbacks"), Members: []*registry.Member{
					{Name: "pfnAllocation", Type: "PFN_vkAllocationFunction"},
				}},
			},
			filter: map[string]bool{"VkAllocationCallbacks": true},
			want:   []string{"PFN_vkAllocationFunction", "VkAllocationCallbacks", "size_t", "void"},
		},
		{
			name: "unknown names are kept",
			entities: []registry.Entity{
				&registry.Struct{Decl: decl("VkXlibSurfaceCreateInfoKHR"), Members: []*registry.Member{
					{Name: "dpy", Type: "Display", Pointers: 1},
				}},
			},
			filter: map[string]bool{"VkXlibSurfaceCreateInfoKHR": true, "Missing": true},
			want:   []string{"Display", "Missing", "VkXlibSurfaceCreateInfoKHR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newRegistry(t, tt.entities...)
			got := ResolveDeps(reg, tt.filter)

			// Extract result
			var gotSlice []string
			if got == nil {
				gotSlice = nil
			} else {
				for name := range got {
					gotSlice = append(gotSlice, name)
				}
				sort.Strings(gotSlice)
			}

			// Sort want for comparison
			var want []string
			if tt.want != nil {
				want = make([]string, len(tt.want))
				copy(want, tt.want)
				sort.Strings(want)
			}

			if len(gotSlice) != len(want) {
				t.Errorf("got %d types, want %d types\ngot:  %v\nwant: %v", len(gotSlice), len(want), gotSlice, want)
				return
			}

			for i := range gotSlice {
				if gotSlice[i] != want[i] {
					t.Errorf("type mismatch at index %d\ngot:  %v\nwant: %v", i, gotSlice, want)
					return
				}
			}
		})
	}
}
