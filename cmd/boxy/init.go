package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"boxy/internal/project"
)

const sceneFile = "scene.boxy"

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path|name]",
		Short: "Create a boxy project",
		Long: `Create a project manifest (boxy.toml) and a sample scene script.
Without an argument the current directory is initialized; a name that does not
exist yet becomes a new directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	target, err := initTarget(args)
	if err != nil {
		return err
	}
	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err = os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "boxy-project"
	}

	manifestPath := filepath.Join(target, project.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}
	if err := os.WriteFile(manifestPath, []byte(defaultManifest(name)), 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	scenePath := filepath.Join(target, sceneFile)
	createdScene := false
	if _, err := os.Stat(scenePath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(scenePath, []byte(defaultScene), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", sceneFile, err)
		}
		createdScene = true
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized boxy project in %s\n", relToWD(target))
	fmt.Fprintf(out, "  - %s\n", project.ManifestName)
	if createdScene {
		fmt.Fprintf(out, "  - %s\n", sceneFile)
	} else {
		fmt.Fprintf(out, "  - %s (existing)\n", sceneFile)
	}
	return nil
}

func initTarget(args []string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if len(args) == 0 || args[0] == "." {
		return wd, nil
	}
	if filepath.IsAbs(args[0]) {
		return args[0], nil
	}
	return filepath.Join(wd, args[0]), nil
}

func relToWD(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil {
		return path
	}
	return rel
}

func defaultManifest(name string) string {
	return fmt.Sprintf(`# boxy project manifest
[project]
name = %q

[build]
script = %q
output = "%s.glb"
segments = 32

[materials.wood]
color = "#8b5a2b"
roughness = 0.9

[materials.glass]
color = "#a0d8ef80"
roughness = 0.1
`, name, sceneFile, name)
}

const defaultScene = `# A small lamp: a wooden base with a glass shade.
base = Cylinder(0.3, 1.2)
stem = Cylinder(2, 0.15) | translate(0, 0, 1.15)

@add("wood", "base")
stand = union(base, stem)

shade = subtract(Sphere(1), Sphere(0.8))
register(shade | translate(0, 0, 2.6), "glass", "shade")
`
