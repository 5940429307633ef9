// Package manifest reads the project manifest (rowscript.yaml): the
// import roots the resolver consults for qualified names, and the entry
// modules of the compilation.
package manifest

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SchemaVersion is the current manifest schema version
const SchemaVersion = "rowscript.manifest/v1"

// Manifest describes one project.
type Manifest struct {
	Schema string `yaml:"schema"`

	// Std maps standard package names (`stdpkg::mod`) to surface-file
	// directories.
	Std map[string]string `yaml:"std,omitempty"`

	// Vendor maps vendor package names (`@org/pkg`) to directories.
	Vendor map[string]string `yaml:"vendor,omitempty"`

	// Root is the project root directory for `::mod` paths.
	Root string `yaml:"root"`

	// Entry lists the modules elaborated by `rowscript check` when no
	// file argument is given.
	Entry []string `yaml:"entry,omitempty"`
}

// Default returns a manifest for a bare project rooted at dir.
func Default(dir string) *Manifest {
	return &Manifest{Schema: SchemaVersion, Root: dir}
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks schema version and root presence.
func (m *Manifest) Validate() error {
	if m.Schema != SchemaVersion {
		return fmt.Errorf("unsupported manifest schema %q (want %s)", m.Schema, SchemaVersion)
	}
	if m.Root == "" {
		return fmt.Errorf("manifest missing root directory")
	}
	for name := range m.Vendor {
		if len(name) == 0 || name[0] != '@' {
			return fmt.Errorf("vendor package %q must start with @", name)
		}
	}
	return nil
}

// StdPackages returns the declared std package names, sorted.
func (m *Manifest) StdPackages() []string {
	names := make([]string, 0, len(m.Std))
	for name := range m.Std {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the manifest back to disk.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
