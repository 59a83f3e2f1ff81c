package manifest

import (
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// MaxManifestSize is the maximum manifest file size accepted by the
// loader. Manifests are small by nature; anything larger is almost
// certainly a mistake.
const MaxManifestSize = 1 << 20 // 1 MiB

// Load reads, parses, and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{FilePath: path, Message: "file not found", Cause: err}
		}
		if os.IsPermission(err) {
			return nil, &LoadError{FilePath: path, Message: "permission denied", Cause: err}
		}
		return nil, &LoadError{FilePath: path, Message: "failed to access file", Cause: err}
	}

	if !info.Mode().IsRegular() {
		return nil, &LoadError{FilePath: path, Message: "not a regular file"}
	}

	if info.Size() > MaxManifestSize {
		return nil, &LoadError{
			FilePath: path,
			Message:  fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), MaxManifestSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Message: "failed to read file", Cause: err}
	}

	if !utf8.Valid(data) {
		return nil, &LoadError{FilePath: path, Message: "file contains invalid UTF-8 encoding"}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{FilePath: path, Cause: err}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks the manifest for semantic problems: empty or duplicate
// policy names and specs without a resource file.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Policies))

	for _, spec := range m.Policies {
		if spec.Name == "" {
			return &ValidationError{Field: "name", Message: "policy name must not be empty"}
		}
		if seen[spec.Name] {
			return &ValidationError{PolicyName: spec.Name, Field: "name", Message: "duplicate policy name"}
		}
		seen[spec.Name] = true

		if spec.ResourceFile == "" {
			return &ValidationError{PolicyName: spec.Name, Field: "resource_file", Message: "resource file must not be empty"}
		}
	}

	return nil
}
