package manifest

import (
	"sort"

	"github.com/flappy-build/flappy/internal/env"
	"github.com/flappy-build/flappy/internal/ferrors"
)

func resolveBuild(table map[string]any, opts Options) (Build, bool, error) {
	var b Build
	platform := opts.Platform
	if platform == "" {
		platform = env.Platform()
	}
	mode := string(opts.Mode)
	if mode == "" {
		mode = string(Debug)
	}

	layers := buildLayerPaths(opts.Profile, mode, platform)

	defined := false
	for _, layer := range layers {
		sub, ok := lookupTable(table, layer.path)
		if !ok {
			continue
		}
		applyBuildLayer(&b, sub)
		if layer.countsAsProfile {
			defined = true
		}
	}

	if b.Language == "" {
		b.Language = LangCPP
	}
	if b.Type != "" {
		b.Type = normalizeOutputType(string(b.Type))
	}

	if opts.Profile != "" && !profileKeyExists(table, opts.Profile) {
		return b, defined, &ferrors.ConfigError{Profile: opts.Profile, Err: errf("no such profile")}
	}

	return b, defined, nil
}

type buildLayer struct {
	path            []string
	countsAsProfile bool
}

// buildLayerPaths returns the layer key-paths in override order, per
// spec §4.1 steps 1-6.
func buildLayerPaths(profile, mode, platform string) []buildLayer {
	layers := []buildLayer{
		{path: nil},               // 1. [build] base
		{path: []string{mode}},    // 2. [build.<mode>]
	}
	if profile != "" {
		layers = append(layers,
			buildLayer{path: []string{profile}, countsAsProfile: true},       // 3.
			buildLayer{path: []string{profile, mode}, countsAsProfile: true}, // 4.
			buildLayer{path: []string{profile, platform}, countsAsProfile: true},       // 5.
			buildLayer{path: []string{profile, platform, mode}, countsAsProfile: true}, // 6.
		)
	} else {
		layers = append(layers,
			buildLayer{path: []string{platform}, countsAsProfile: true},       // 5.
			buildLayer{path: []string{platform, mode}, countsAsProfile: true}, // 6.
		)
	}
	return layers
}

func lookupTable(table map[string]any, path []string) (map[string]any, bool) {
	if table == nil {
		return nil, false
	}
	if len(path) == 0 {
		return table, true
	}
	cur := table
	for i, key := range path {
		next, ok := asTable(cur[key])
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return next, true
		}
		cur = next
	}
	return nil, false
}

// profileKeyExists reports whether profile is a table key directly under
// table (a [build.<profile>] table), used to distinguish "no [build.<profile>] table"
// from a profile that is simply identical to defaults.
func profileKeyExists(table map[string]any, profile string) bool {
	_, ok := asTable(table[profile])
	return ok
}

// applyBuildLayer overwrites compiler/language/standard/output/arch/type
// with whatever layer sets, and appends to defines/flags (spec §4.1).
func applyBuildLayer(b *Build, layer map[string]any) {
	if v, ok := layer["compiler"]; ok {
		b.Compiler = toString(v)
	}
	if v, ok := layer["language"]; ok {
		b.Language = Language(toString(v))
	}
	if v, ok := layer["standard"]; ok {
		b.Standard = toString(v)
	}
	if v, ok := layer["output"]; ok {
		b.Output = toString(v)
	}
	if v, ok := layer["arch"]; ok {
		b.Arch = toString(v)
	}
	if v, ok := layer["type"]; ok {
		b.Type = OutputType(toString(v))
	}
	if v, ok := layer["defines"]; ok {
		b.Defines = append(b.Defines, toStringSlice(v)...)
	}
	if v, ok := layer["flags"]; ok {
		b.Flags = append(b.Flags, toStringSlice(v)...)
	}
}

// resolveDependencies resolves every [dependencies.<name>] entry with the
// same mode/platform/profile override chain used for [build], minus the
// scalar-vs-list split (source fields and build_cmd/include_dirs/lib_dirs/
// libs overwrite; defines and extra_dependencies append, per spec §4.1).
func resolveDependencies(table map[string]any, opts Options) ([]Dependency, error) {
	if table == nil {
		return nil, nil
	}

	platform := opts.Platform
	if platform == "" {
		platform = env.Platform()
	}
	mode := string(opts.Mode)
	if mode == "" {
		mode = string(Debug)
	}

	// Dependencies are returned in lexical name order, not in manifest
	// declaration order: go-toml/v2 decodes the [dependencies] table into
	// a map, which keeps no order, so sorting the names is what makes the
	// result deterministic (see DESIGN.md).
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make([]Dependency, 0, len(names))
	for _, name := range names {
		depTable, ok := asTable(table[name])
		if !ok {
			continue
		}
		dep, err := resolveDependency(name, depTable, opts.Profile, mode, platform)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func resolveDependency(name string, table map[string]any, profile, mode, platform string) (Dependency, error) {
	dep := Dependency{Name: name}

	layers := buildLayerPaths(profile, mode, platform)
	for _, layer := range layers {
		sub, ok := lookupTable(table, layer.path)
		if !ok {
			continue
		}
		applyDependencyLayer(&dep, sub)
	}

	src, err := dependencySource(table, layers)
	if err != nil {
		return Dependency{}, errf("dependency %q: %w", name, err)
	}
	dep.Source = src

	return dep, nil
}

func applyDependencyLayer(d *Dependency, layer map[string]any) {
	if v, ok := layer["build_cmd"]; ok {
		d.BuildCmd = toString(v)
	}
	if v, ok := layer["include_dirs"]; ok {
		d.IncludeDirs = toStringSlice(v)
	}
	if v, ok := layer["lib_dirs"]; ok {
		d.LibDirs = toStringSlice(v)
	}
	if v, ok := layer["libs"]; ok {
		d.Libs = toStringSlice(v)
	}
	if v, ok := layer["defines"]; ok {
		d.Defines = append(d.Defines, toStringSlice(v)...)
	}
	if v, ok := layer["extra_dependencies"]; ok {
		d.ExtraDependencies = append(d.ExtraDependencies, toStringSlice(v)...)
	}
}

// dependencySource determines the tagged source variant from whichever
// layer most recently set git/url/path, validating that exactly one of
// the three is present in the fully-merged view (spec §4.1 last
// paragraph: "a dependency entry specifying zero sources").
func dependencySource(table map[string]any, layers []buildLayer) (Source, error) {
	var src Source
	haveSrc := false

	// The source is treated as one atomic field: whichever layer most
	// recently declares any of git/url/path replaces the whole variant,
	// rather than merging git from one layer with a path from another.
	for _, layer := range layers {
		sub, ok := lookupTable(table, layer.path)
		if !ok {
			continue
		}
		count := 0
		var next Source
		if v, ok := sub["git"]; ok {
			next = Source{Kind: SourceGit, URL: toString(v)}
			if t, ok := sub["tag"]; ok {
				next.Tag = toString(t)
			}
			count++
		}
		if v, ok := sub["url"]; ok {
			next = Source{Kind: SourceHTTP, URL: toString(v)}
			count++
		}
		if v, ok := sub["path"]; ok {
			next = Source{Kind: SourceLocal, Path: toString(v)}
			count++
		}
		if count > 1 {
			return Source{}, errf("exactly one of git/url/path is required, found %d", count)
		}
		if count == 1 {
			src = next
			haveSrc = true
		}
	}

	if !haveSrc {
		return Source{}, errf("exactly one of git/url/path is required, found none")
	}
	return src, nil
}
