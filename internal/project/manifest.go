package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	// ErrProjectSectionMissing indicates that [project] or its name is missing.
	ErrProjectSectionMissing = errors.New("missing [project].name")
	// ErrScriptMissing indicates that [build].script is missing.
	ErrScriptMissing = errors.New("missing [build].script")
)

// Manifest is a parsed boxy.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

type Config struct {
	Project   ProjectSection      `toml:"project"`
	Build     BuildSection        `toml:"build"`
	Serve     ServeSection        `toml:"serve"`
	Materials map[string]Material `toml:"materials"`
}

type ProjectSection struct {
	Name string `toml:"name"`
}

// BuildSection holds compile defaults. Zero values mean "not set".
type BuildSection struct {
	Script     string `toml:"script"`
	Output     string `toml:"output"`
	Segments   int    `toml:"segments"`
	Resolution int    `toml:"resolution"`
	Jobs       int    `toml:"jobs"`
	Cache      *bool  `toml:"cache"`
}

type ServeSection struct {
	Addr string `toml:"addr"`
}

// Material describes how a material name renders in exports.
type Material struct {
	Color     string   `toml:"color"` // "#rrggbb" or "#rrggbbaa"
	Metallic  *float64 `toml:"metallic"`
	Roughness *float64 `toml:"roughness"`
}

// RGBA parses Color into linear 0..1 components. An empty color is opaque white.
func (m Material) RGBA() ([4]float64, error) {
	out := [4]float64{1, 1, 1, 1}
	c := strings.TrimPrefix(strings.TrimSpace(m.Color), "#")
	if c == "" {
		return out, nil
	}
	if len(c) != 6 && len(c) != 8 {
		return out, fmt.Errorf("color %q: want #rrggbb or #rrggbbaa", m.Color)
	}
	for i := 0; i < len(c)/2; i++ {
		v, err := strconv.ParseUint(c[2*i:2*i+2], 16, 8)
		if err != nil {
			return out, fmt.Errorf("color %q: %w", m.Color, err)
		}
		out[i] = float64(v) / 255
	}
	return out, nil
}

// LoadManifest finds boxy.toml from startDir and parses it. ok is false
// when there is no manifest.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// LoadConfig parses and validates one manifest file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("project", "name") || strings.TrimSpace(cfg.Project.Name) == "" {
		return Config{}, fmt.Errorf("%s: %w", path, ErrProjectSectionMissing)
	}
	if !meta.IsDefined("build", "script") || strings.TrimSpace(cfg.Build.Script) == "" {
		return Config{}, fmt.Errorf("%s: %w", path, ErrScriptMissing)
	}
	if cfg.Build.Segments < 0 || cfg.Build.Resolution < 0 || cfg.Build.Jobs < 0 {
		return Config{}, fmt.Errorf("%s: [build] numbers must not be negative", path)
	}
	for name, m := range cfg.Materials {
		if _, err := m.RGBA(); err != nil {
			return Config{}, fmt.Errorf("%s: [materials.%s]: %w", path, name, err)
		}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// ScriptPath resolves [build].script against the manifest root. The script
// must stay inside the project and be a regular file.
func (m *Manifest) ScriptPath() (string, error) {
	return m.resolveFile(m.Config.Build.Script, "[build].script")
}

func (m *Manifest) resolveFile(rel, key string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", fmt.Errorf("%s: %s is empty", m.Path, key)
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%s: invalid %s %q: must be relative", m.Path, key, rel)
	}
	p := filepath.Join(m.Root, filepath.Clean(filepath.FromSlash(rel)))
	if !pathWithin(m.Root, p) {
		return "", fmt.Errorf("%s: invalid %s %q: escapes project root", m.Path, key, rel)
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("%s: invalid %s %q: %w", m.Path, key, rel, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s: invalid %s %q: is a directory", m.Path, key, rel)
	}
	return p, nil
}

// OutputPath resolves [build].output against the root; "" when unset.
func (m *Manifest) OutputPath() string {
	out := strings.TrimSpace(m.Config.Build.Output)
	if out == "" || filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(m.Root, filepath.FromSlash(out))
}

// CacheEnabled defaults to true.
func (m *Manifest) CacheEnabled() bool {
	return m == nil || m.Config.Build.Cache == nil || *m.Config.Build.Cache
}
