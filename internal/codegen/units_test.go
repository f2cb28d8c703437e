// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

package codegen

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnitClose(t *testing.T) {
	us := newUnitSet("// header\n\n")
	u := us.open("A.cs", []string{"System"}, "namespace N", "public static partial class C")

	if err := u.add("b", "int B;\n"); err != nil {
		t.Fatal(err)
	}
	if err := u.add("a", "void A()\n{\n    Run();\n}\n"); err != nil {
		t.Fatal(err)
	}

	want := `// header

using System;

namespace N
{
    public static partial class C
    {
        void A()
        {
            Run();
        }

        int B;
    }
}
`
	if diff := cmp.Diff(want, string(u.close())); diff != "" {
		t.Errorf("close mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, string(u.close())); diff != "" {
		t.Errorf("second close mismatch (-want +got):\n%s", diff)
	}
}

func TestUnitAddErrors(t *testing.T) {
	us := newUnitSet("")
	u := us.open("A.cs", nil)
	if err := u.add("x", "x"); err != nil {
		t.Fatal(err)
	}
	if err := u.add("x", "again"); err == nil {
		t.Error("duplicate key: expected error")
	}
	u.close()
	if err := u.add("y", "late"); err == nil {
		t.Error("add after close: expected error")
	}
}

func TestUnitSetOpenReuses(t *testing.T) {
	us := newUnitSet("")

	var wg sync.WaitGroup
	units := make([]*unit, 16)
	for i := range units {
		wg.Add(1)
		go func() {
			defer wg.Done()
			units[i] = us.open("Shared.cs", nil, "namespace N")
		}()
	}
	wg.Wait()

	for _, u := range units[1:] {
		if u != units[0] {
			t.Fatal("open returned distinct units for one name")
		}
	}
	if diff := cmp.Diff([]string{"Shared.cs"}, us.names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestWriter(t *testing.T) {
	var w writer
	w.doc("Compares a < b & c")
	w.provided("VK_EXT_demo")
	w.open("if (%s)", "x")
	w.line("y();")
	w.close()
	w.open("")
	w.close()

	want := `/// <summary>
/// Compares a &lt; b &amp; c
/// </summary>
// Provided by VK_EXT_demo
if (x)
{
    y();
}
{
}
`
	if diff := cmp.Diff(want, w.String()); diff != "" {
		t.Errorf("writer mismatch (-want +got):\n%s", diff)
	}
}
