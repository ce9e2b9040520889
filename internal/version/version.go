package version

import "github.com/fatih/color"

// Version information for the boxy CLI.
// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with each numeric part in its own color. Versions
// that are not "major.minor.patch[-suffix]" come back unchanged.
func Colored() string {
	core, suffix := Version, ""
	for i, r := range Version {
		if r == '-' || r == '+' {
			core, suffix = Version[:i], Version[i:]
			break
		}
	}
	var parts [3]string
	n, start := 0, 0
	for i := 0; i <= len(core); i++ {
		if i == len(core) || core[i] == '.' {
			if n == 3 {
				return Version
			}
			parts[n] = core[start:i]
			n++
			start = i + 1
		}
	}
	if n != 3 {
		return Version
	}
	return majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2]) + suffix
}
