// SPDX-License-Identifier: MIT
//
// Copyright 2026 Alberto Cavalcante. All rights reserved.
// Use of this source code is governed by a MIT-style license
// that can be found in the LICENSE file.

// Package naming converts C registry identifiers into binding identifiers.
// Generated output depends on these rules byte for byte, so they change
// only together with the golden tests.
package naming

import (
	"strings"
	"unicode"

	"github.com/golang-cz/textcase"
)

// CamelCase converts an underscore-delimited SCREAMING_SNAKE identifier to
// CamelCase. Each word keeps its first character uppercased and lowers the
// rest, except letters that directly follow a digit ("R8G8B8" stays as is,
// "2D" stays as is, "UNORM" becomes "Unorm").
func CamelCase(name string) string {
	return strings.Join(words(name), "")
}

func words(name string) []string {
	var out []string
	for word := range strings.SplitSeq(name, "_") {
		if word == "" {
			continue
		}
		var b strings.Builder
		var prev rune
		for i, r := range word {
			switch {
			case i == 0:
				b.WriteRune(unicode.ToUpper(r))
			case unicode.IsDigit(prev):
				b.WriteRune(r)
			default:
				b.WriteRune(unicode.ToLower(r))
			}
			prev = r
		}
		out = append(out, b.String())
	}
	return out
}

// StripCommonPrefix camel cases constant and removes the longest run of
// leading words that is also a prefix of owner. The cut always falls on a
// word boundary, so VK_BLEND_OPERATION in VkBlendOp keeps "Operation".
// When every word would be removed the full camel-cased name is returned.
func StripCommonPrefix(constant, owner string) string {
	ws := words(constant)
	prefix := ""
	cut := 0
	for i, w := range ws {
		if !strings.HasPrefix(owner, prefix+w) {
			break
		}
		prefix += w
		cut = i + 1
	}
	if cut == len(ws) {
		return strings.Join(ws, "")
	}
	return strings.Join(ws[cut:], "")
}

// EscapeDigit prefixes name with marker when it starts with a digit.
func EscapeDigit(name, marker string) string {
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		return marker + name
	}
	return name
}

// EnumMember returns the member name of constant inside enum.
// For example VK_FORMAT_R8G8B8_UNORM in VkFormat becomes R8G8B8Unorm.
func EnumMember(constant, enum, marker string) string {
	return EscapeDigit(StripCommonPrefix(constant, enum), marker)
}

// ConstantName returns the name of a free-standing constant: prefix is
// trimmed before camel casing, so VK_MAX_EXTENSION_NAME_SIZE with prefix
// VK_ becomes MaxExtensionNameSize.
func ConstantName(constant, prefix, marker string) string {
	return EscapeDigit(CamelCase(strings.TrimPrefix(constant, prefix)), marker)
}

// IsPublic reports whether raw follows the public entry point convention:
// prefix followed by an uppercase letter.
func IsPublic(raw, prefix string) bool {
	if prefix == "" || len(raw) <= len(prefix) || !strings.HasPrefix(raw, prefix) {
		return false
	}
	c := raw[len(prefix)]
	return c >= 'A' && c <= 'Z'
}

// ProxyName strips the fixed-length prefix from a raw entry point name.
// Names that also carry the recording-context prefix lose that longer
// prefix instead: vkCreateInstance -> CreateInstance, vkCmdDraw -> Draw.
func ProxyName(raw, prefix, recordingPrefix string) string {
	if IsPublic(raw, recordingPrefix) {
		return raw[len(recordingPrefix):]
	}
	if strings.HasPrefix(raw, prefix) {
		return raw[len(prefix):]
	}
	return raw
}

// ParamName returns the proxy parameter name for a C parameter. A leading
// run of 'p' no longer than pointers and followed by an uppercase letter is
// treated as a pointer marker and dropped: pCreateInfo -> createInfo,
// ppData -> data, pfnCallback stays as is.
func ParamName(name string, pointers int) string {
	k := 0
	for k < len(name) && k < pointers && name[k] == 'p' {
		k++
	}
	if k > 0 && k < len(name) && name[k] >= 'A' && name[k] <= 'Z' {
		name = name[k:]
	}
	return EscapeKeyword(textcase.CamelCase(name))
}

// TypeSegment turns a rendered type into an identifier fragment:
// float -> Float, byte* -> BytePtr.
func TypeSegment(rendered string) string {
	base := strings.TrimRight(rendered, "*")
	stars := len(rendered) - len(base)
	return textcase.PascalCase(base) + strings.Repeat("Ptr", stars)
}

// EscapeKeyword prefixes C# keywords with '@'.
func EscapeKeyword(name string) string {
	if csharpKeywords[name] {
		return "@" + name
	}
	return name
}

var csharpKeywords = map[string]bool{
	"abstract": true, "as": true, "base": true, "bool": true, "break": true,
	"byte": true, "case": true, "catch": true, "char": true, "checked": true,
	"class": true, "const": true, "continue": true, "decimal": true, "default": true,
	"delegate": true, "do": true, "double": true, "else": true, "enum": true,
	"event": true, "explicit": true, "extern": true, "false": true, "finally": true,
	"fixed": true, "float": true, "for": true, "foreach": true, "goto": true,
	"if": true, "implicit": true, "in": true, "int": true, "interface": true,
	"internal": true, "is": true, "lock": true, "long": true, "namespace": true,
	"new": true, "null": true, "object": true, "operator": true, "out": true,
	"override": true, "params": true, "private": true, "protected": true, "public": true,
	"readonly": true, "ref": true, "return": true, "sbyte": true, "sealed": true,
	"short": true, "sizeof": true, "stackalloc": true, "static": true, "string": true,
	"struct": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "uint": true, "ulong": true, "unchecked": true,
	"unsafe": true, "ushort": true, "using": true, "virtual": true, "void": true,
	"volatile": true, "while": true,
}
