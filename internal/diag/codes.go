package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Script
	ScriptSyntax    Code = 1001
	ScriptExecution Code = 1002
	ScriptRead      Code = 1003

	// Geometry
	GeoInvalidArguments Code = 2001
	GeoTypeMismatch     Code = 2002

	// Kernel
	KernelFailure   Code = 3001
	KernelCancelled Code = 3002
	MeshFinish      Code = 3003
	MeshEmpty       Code = 3004

	// Scene
	SceneEmpty Code = 4001

	// Output
	ExportFailure Code = 5001
	CacheFailure  Code = 5002
)

var codeDescription = map[Code]string{
	UnknownCode:         "Unknown error",
	ScriptSyntax:        "Malformed script statement",
	ScriptExecution:     "Script execution failed",
	ScriptRead:          "Script could not be read",
	GeoInvalidArguments: "Invalid geometry arguments",
	GeoTypeMismatch:     "Geometry type mismatch",
	KernelFailure:       "Geometry kernel failure",
	KernelCancelled:     "Meshing cancelled",
	MeshFinish:          "Mesh finishing failed",
	MeshEmpty:           "Object produced no triangles",
	SceneEmpty:          "Scene registered no objects",
	ExportFailure:       "Export failed",
	CacheFailure:        "Mesh cache unavailable",
}

// ID is the stable string form, e.g. "GEO2001".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("SCR%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("GEO%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("KRN%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("SCN%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("OUT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// MarshalText writes the ID so reports stay readable.
func (c Code) MarshalText() ([]byte, error) { return []byte(c.ID()), nil }
