package export

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Unnamed groups meshes registered without a name when splitting by name.
const Unnamed = "unnamed"

// GroupName is the NFC form of name, or Unnamed.
func GroupName(name string) string {
	name = strings.TrimSpace(norm.NFC.String(name))
	if name == "" {
		return Unnamed
	}
	return name
}

// meshLabel names a mesh inside a multi-object file.
func meshLabel(i int, name, material string) string {
	if name = norm.NFC.String(name); name != "" {
		return name
	}
	if material = norm.NFC.String(material); material != "" {
		return material
	}
	return "mesh" + strconv.Itoa(i)
}

// fileSafe keeps letters, digits, '-', '_' and '.', replacing the rest.
func fileSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return Unnamed
	}
	return out
}
