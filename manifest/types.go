// Package manifest parses flappy.toml and resolves the hierarchical
// base/mode/profile/platform override chain into one effective
// configuration for the current invocation (spec §4.1).
package manifest

// Profile is the two-valued build mode tag. It is distinct from a "target
// profile" (a user-named sub-configuration under [build.<name>]); see the
// GLOSSARY.
type Profile string

const (
	Debug   Profile = "debug"
	Release Profile = "release"
)

// Language is the source language a Build compiles.
type Language string

const (
	LangC   Language = "c"
	LangCPP Language = "c++"
)

// OutputType selects the kind of artifact the Main Build Orchestrator
// links or archives.
type OutputType string

const (
	OutputExe    OutputType = "exe"
	OutputStatic OutputType = "static"
	OutputShared OutputType = "shared"
)

// normalizeOutputType maps the manifest's accepted synonyms (lib/static,
// dll/shared/dynamic) onto the three canonical kinds.
func normalizeOutputType(s string) OutputType {
	switch s {
	case "exe":
		return OutputExe
	case "lib", "static":
		return OutputStatic
	case "dll", "shared", "dynamic":
		return OutputShared
	default:
		return OutputType(s)
	}
}

// Manifest is the parsed, resolved project descriptor.
type Manifest struct {
	Package      Package
	Build        Build
	Test         *TestConfig
	Dependencies []Dependency
}

// Package carries pure identity; it plays no role in the build itself.
type Package struct {
	Name    string
	Version string
	Authors []string
}

// Build is the effective build configuration after override resolution.
type Build struct {
	Compiler string
	Language Language
	Standard string
	Output   string
	Arch     string
	Type     OutputType
	Defines  []string
	Flags    []string

	// IsProfileDefined records whether at least one platform or profile
	// layer explicitly matched during resolution. The CLI (external
	// collaborator) uses this to decide whether to prompt for first-time
	// configuration.
	IsProfileDefined bool
}

// TestConfig is the optional [test] table.
type TestConfig struct {
	Sources []string
	Output  string
	Defines []string
	Flags   []string
}

// SourceKind tags the Dependency.Source variant.
type SourceKind int

const (
	SourceLocal SourceKind = iota
	SourceGit
	SourceHTTP
)

// Source is the tagged Git/Http/Local source variant (spec §3, design note
// §9: "tagged variants for heterogeneous sources").
type Source struct {
	Kind SourceKind
	URL  string // Git remote or Http URL
	Tag  string // Git only; empty means track the default branch/HEAD
	Path string // Local only; manifest-relative or absolute
}

// String renders a Source for error messages (ConflictError needs a
// human-readable form of both sides of a conflict).
func (s Source) String() string {
	switch s.Kind {
	case SourceGit:
		if s.Tag != "" {
			return "git=" + s.URL + "@" + s.Tag
		}
		return "git=" + s.URL
	case SourceHTTP:
		return "http=" + s.URL
	default:
		return "local=" + s.Path
	}
}

// Equal reports whether two sources are identical under the strict
// source-equality conflict policy (spec §3 invariants).
func (s Source) Equal(o Source) bool {
	return s == o
}

// Dependency is one entry of the manifest's [dependencies] table, after
// its own mode/platform override resolution.
type Dependency struct {
	Name    string
	Source  Source
	Defines []string

	// BuildCmd, when non-empty, selects the Dependency Builder's custom
	// build-command strategy (spec §4.4 priority 1).
	BuildCmd string

	// IncludeDirs/LibDirs/Libs are explicit overrides; an absent or
	// empty slice means "autodetect" per spec §4.4.
	IncludeDirs []string
	LibDirs     []string
	Libs        []string

	// ExtraDependencies names sibling dependencies this one needs
	// injected into its build environment — the bridging mechanism
	// (spec §4.3, GLOSSARY).
	ExtraDependencies []string
}

// LockEntry is the shape a flappy.lock writer (external collaborator, out
// of core scope) would serialize one resolved dependency as. The core
// does not write this file; depbuild.Metadata.Resolved already carries
// the same "resolved" identifier a lock entry would record.
type LockEntry struct {
	Name     string
	Source   Source
	Resolved string
}
