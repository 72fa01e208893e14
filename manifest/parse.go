package manifest

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/flappy-build/flappy/internal/ferrors"
)

// Options controls how a manifest is resolved for one invocation.
type Options struct {
	// Profile is the optional custom-profile name requested on the
	// command line (e.g. "embedded" for a [build.embedded] table). Empty
	// means no custom profile is in play.
	Profile string
	// Mode selects Debug or Release.
	Mode Profile
	// Platform overrides the detected host platform; empty means
	// autodetect via internal/env.Platform.
	Platform string
}

// Load reads and resolves the manifest at path.
func Load(path string, opts Options) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ferrors.ManifestError{File: path, Err: err}
	}
	return Parse(data, path, opts)
}

// Parse resolves manifest data already read from disk (or synthesized in
// tests). file is used only for error messages.
func Parse(data []byte, file string, opts Options) (*Manifest, error) {
	var root map[string]any
	if err := toml.Unmarshal(data, &root); err != nil {
		return nil, &ferrors.ManifestError{File: file, Err: err}
	}

	m := &Manifest{}

	if err := parsePackage(root, m); err != nil {
		return nil, &ferrors.ManifestError{File: file, Err: err}
	}

	buildTable, _ := asTable(root["build"])
	build, defined, err := resolveBuild(buildTable, opts)
	if err != nil {
		return nil, &ferrors.ManifestError{File: file, Err: err}
	}
	m.Build = build
	m.Build.IsProfileDefined = defined

	if testTable, ok := asTable(root["test"]); ok {
		m.Test = parseTestConfig(testTable)
	}

	depsTable, _ := asTable(root["dependencies"])
	deps, err := resolveDependencies(depsTable, opts)
	if err != nil {
		return nil, &ferrors.ManifestError{File: file, Err: err}
	}
	m.Dependencies = deps

	return m, nil
}

func parsePackage(root map[string]any, m *Manifest) error {
	table, ok := asTable(root["package"])
	if !ok {
		return nil
	}
	m.Package = Package{
		Name:    toString(table["name"]),
		Version: toString(table["version"]),
		Authors: toStringSlice(table["authors"]),
	}
	return nil
}

func parseTestConfig(table map[string]any) *TestConfig {
	return &TestConfig{
		Sources: toStringSlice(table["sources"]),
		Output:  toString(table["output"]),
		Defines: toStringSlice(table["defines"]),
		Flags:   toStringSlice(table["flags"]),
	}
}

// asTable type-asserts v as a TOML table decoded by go-toml/v2, which
// produces map[string]interface{} for nested tables.
func asTable(v any) (map[string]any, bool) {
	t, ok := v.(map[string]any)
	return t, ok
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func errf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
