package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"boxy/internal/cache"
	"boxy/internal/pipeline"
	"boxy/internal/project"
)

const noManifestMessage = "no boxy.toml found\nplease name the script explicitly, e.g.:\n  boxy build path/to/scene.boxy"

// settings is the effective configuration of one build or serve: the
// manifest's [build] defaults with command-line flags layered on top.
type settings struct {
	Manifest   *project.Manifest
	Script     string
	Output     string
	Segments   int
	Resolution int
	Jobs       int
	Cache      bool
	Materials  map[string]project.Material
	Addr       string
}

func addCompileFlags(cmd *cobra.Command) {
	cmd.Flags().Int("segments", 0, "default tessellation segments (0 uses the manifest or built-in default)")
	cmd.Flags().Int("resolution", 0, "kernel grid resolution along the longest axis")
	cmd.Flags().Int("jobs", 0, "objects meshed in parallel (0=auto)")
	cmd.Flags().Bool("no-cache", false, "skip the mesh cache")
}

// resolveSettings finds the script and manifest for args and applies flag
// overrides. With no argument the manifest in the working directory (or a
// parent) names the script.
func resolveSettings(cmd *cobra.Command, args []string) (*settings, error) {
	s := &settings{Cache: true}

	var startDir string
	if len(args) > 0 && args[0] != "" {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %q: %w", args[0], err)
		}
		if info.IsDir() {
			startDir = abs
		} else {
			s.Script = abs
			startDir = filepath.Dir(abs)
		}
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		startDir = wd
	}

	manifest, ok, err := project.LoadManifest(startDir)
	if err != nil {
		return nil, err
	}
	if ok {
		s.Manifest = manifest
		cfg := manifest.Config
		s.Segments = cfg.Build.Segments
		s.Resolution = cfg.Build.Resolution
		s.Jobs = cfg.Build.Jobs
		s.Cache = manifest.CacheEnabled()
		s.Materials = cfg.Materials
		s.Addr = cfg.Serve.Addr
		if s.Script == "" {
			if s.Script, err = manifest.ScriptPath(); err != nil {
				return nil, err
			}
		}
		// a manifest output only applies to the manifest's own script
		if main, err := manifest.ScriptPath(); err == nil && main == s.Script {
			s.Output = manifest.OutputPath()
		}
	}
	if s.Script == "" {
		return nil, errors.New(noManifestMessage)
	}

	flags := cmd.Flags()
	if err := overrideInt(flags.Changed("segments"), func() (int, error) { return flags.GetInt("segments") }, &s.Segments); err != nil {
		return nil, err
	}
	if err := overrideInt(flags.Changed("resolution"), func() (int, error) { return flags.GetInt("resolution") }, &s.Resolution); err != nil {
		return nil, err
	}
	if err := overrideInt(flags.Changed("jobs"), func() (int, error) { return flags.GetInt("jobs") }, &s.Jobs); err != nil {
		return nil, err
	}
	if noCache, _ := flags.GetBool("no-cache"); noCache {
		s.Cache = false
	}
	if flags.Lookup("output") != nil && flags.Changed("output") {
		out, err := flags.GetString("output")
		if err != nil {
			return nil, err
		}
		s.Output = out
	}
	if flags.Lookup("addr") != nil && flags.Changed("addr") {
		addr, err := flags.GetString("addr")
		if err != nil {
			return nil, err
		}
		s.Addr = addr
	}
	if s.Output == "" {
		s.Output = defaultOutput(s.Script)
	}
	return s, nil
}

func overrideInt(changed bool, get func() (int, error), dst *int) error {
	if !changed {
		return nil
	}
	v, err := get()
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("value must not be negative, got %d", v)
	}
	*dst = v
	return nil
}

// defaultOutput places "<stem>.glb" next to the script.
func defaultOutput(script string) string {
	stem := strings.TrimSuffix(filepath.Base(script), filepath.Ext(script))
	return filepath.Join(filepath.Dir(script), stem+".glb")
}

// request turns the settings into a compile request. The cache is opened
// only when enabled; a cache that cannot be opened is reported and skipped.
func (s *settings) request(cmd *cobra.Command) *pipeline.Request {
	maxDiag, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	req := &pipeline.Request{
		Path:           s.Script,
		Resolution:     s.Resolution,
		Segments:       s.Segments,
		Jobs:           s.Jobs,
		MaxDiagnostics: maxDiag,
	}
	if s.Cache {
		c, err := cache.OpenDefault("boxy")
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", err)
		} else {
			req.Cache = c
		}
	}
	return req
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
