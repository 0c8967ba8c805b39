package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
)

// Emit kinds accepted by [build].emit.
const (
	EmitLLVM = "llvm"
	EmitMIR  = "mir"
	EmitBoth = "both"
)

var (
	// ErrPackageSectionMissing indicates that [package] is missing.
	ErrPackageSectionMissing = errors.New("missing [package]")
	// ErrToolchainMismatch is returned when the running toolchain does not
	// satisfy [toolchain].version.
	ErrToolchainMismatch = errors.New("toolchain version mismatch")
)

type Package struct {
	Name    string   `toml:"name"`
	Sources []string `toml:"sources"`
}

type Build struct {
	EntryPoint  string `toml:"entry_point"`
	AddMain     bool   `toml:"add_main"`
	SimplifyCFG bool   `toml:"simplify_cfg"`
	Emit        string `toml:"emit"`
	OutDir      string `toml:"out_dir"`
}

type Toolchain struct {
	Version string `toml:"version"`
}

// Manifest is a decoded qlower.toml.
type Manifest struct {
	Package   Package   `toml:"package"`
	Build     Build     `toml:"build"`
	Toolchain Toolchain `toml:"toolchain"`

	// Root is the directory holding the manifest; not part of the file.
	Root string `toml:"-"`
}

// LoadManifest parses and validates the manifest at path, filling defaults.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("package") {
		return nil, fmt.Errorf("%s: %w", path, ErrPackageSectionMissing)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	m.Root = filepath.Dir(path)
	if err := m.normalize(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// LoadProject finds and loads the manifest above startDir.
func LoadProject(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadManifest(path)
	return m, true, err
}

func (m *Manifest) normalize() error {
	m.Package.Name = strings.TrimSpace(m.Package.Name)
	if !IsValidIdent(m.Package.Name) {
		return fmt.Errorf("invalid [package].name %q", m.Package.Name)
	}
	if len(m.Package.Sources) == 0 {
		m.Package.Sources = []string{"."}
	}
	for _, src := range m.Package.Sources {
		if filepath.IsAbs(src) {
			return fmt.Errorf("invalid source %q: must be relative", src)
		}
		if !pathWithin(m.Root, filepath.Join(m.Root, filepath.FromSlash(src))) {
			return fmt.Errorf("invalid source %q: escapes project root", src)
		}
	}
	if m.Build.EntryPoint != "" && !IsValidIdent(m.Build.EntryPoint) {
		return fmt.Errorf("invalid [build].entry_point %q", m.Build.EntryPoint)
	}
	switch m.Build.Emit {
	case "":
		m.Build.Emit = EmitLLVM
	case EmitLLVM, EmitMIR, EmitBoth:
	default:
		return fmt.Errorf("invalid [build].emit %q: want llvm, mir or both", m.Build.Emit)
	}
	if m.Build.OutDir == "" {
		m.Build.OutDir = "build"
	}
	if m.Toolchain.Version != "" {
		if _, err := semver.NewConstraint(m.Toolchain.Version); err != nil {
			return fmt.Errorf("invalid [toolchain].version %q: %w", m.Toolchain.Version, err)
		}
	}
	return nil
}

// SourceDirs returns the absolute source paths of the project.
func (m *Manifest) SourceDirs() []string {
	out := make([]string, 0, len(m.Package.Sources))
	for _, src := range m.Package.Sources {
		out = append(out, filepath.Join(m.Root, filepath.FromSlash(src)))
	}
	return out
}

// OutPath returns the absolute output directory.
func (m *Manifest) OutPath() string {
	if filepath.IsAbs(m.Build.OutDir) {
		return m.Build.OutDir
	}
	return filepath.Join(m.Root, m.Build.OutDir)
}

// CheckToolchain reports whether version satisfies [toolchain].version.
// An empty constraint accepts every version. Prerelease versions are
// compared on their core so development builds satisfy release ranges.
func (m *Manifest) CheckToolchain(version string) error {
	expr := strings.TrimSpace(m.Toolchain.Version)
	if expr == "" {
		return nil
	}
	con, err := semver.NewConstraint(expr)
	if err != nil {
		return fmt.Errorf("invalid [toolchain].version %q: %w", expr, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid toolchain version %q: %w", version, err)
	}
	if v.Prerelease() != "" {
		core, err := v.SetPrerelease("")
		if err == nil {
			v = &core
		}
	}
	if !con.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrToolchainMismatch, version, expr)
	}
	return nil
}

// Encode renders m as TOML.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Init writes a fresh qlower.toml into dir. It refuses to overwrite an
// existing manifest.
func Init(dir, name, toolchain string) (string, error) {
	if !IsValidIdent(name) {
		return "", fmt.Errorf("invalid project name %q", name)
	}
	path := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	m := Manifest{
		Package: Package{Name: name, Sources: []string{"."}},
		Build:   Build{EntryPoint: name, AddMain: true, Emit: EmitLLVM, OutDir: "build"},
	}
	if v, err := semver.NewVersion(toolchain); err == nil {
		m.Toolchain.Version = fmt.Sprintf(">=%d.%d.0", v.Major(), v.Minor())
	}
	data, err := m.Encode()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// IsValidIdent reports whether name is an ASCII identifier usable as a
// project or function name.
func IsValidIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
