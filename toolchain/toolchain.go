// Package toolchain classifies a configured compiler into a family
// (MSVC, GCC, Clang) and assembles the family-specific command line for
// compiling, archiving, and linking (spec §4.7).
package toolchain

import (
	"strings"
)

// Family is a compiler's flag dialect.
type Family int

const (
	Unknown Family = iota
	GCC
	Clang
	MSVC
)

func (f Family) String() string {
	switch f {
	case GCC:
		return "gcc"
	case Clang:
		return "clang"
	case MSVC:
		return "msvc"
	default:
		return "unknown"
	}
}

// Classify determines a compiler's Family from its configured name or
// path. Names are matched case-insensitively and without regard to a
// leading directory or trailing ".exe", so "g++", "/usr/bin/g++", and
// "G++.EXE" all classify the same way.
func Classify(compiler string) Family {
	// Split on both separators so a Windows path is reduced to its file
	// name on any host, not only where filepath uses a backslash.
	base := compiler
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.ToLower(base)
	base = strings.TrimSuffix(base, ".exe")

	switch {
	case base == "cl" || base == "clang-cl":
		return MSVC
	case strings.Contains(base, "clang"):
		return Clang
	case base == "gcc", base == "g++", base == "cc", base == "c++",
		strings.HasSuffix(base, "-gcc"), strings.HasSuffix(base, "-g++"):
		return GCC
	default:
		return Unknown
	}
}

// Toolchain bundles the compiler and its classified Family for flag
// assembly.
type Toolchain struct {
	Compiler string
	Family   Family
}

// New classifies compiler and returns its Toolchain.
func New(compiler string) Toolchain {
	return Toolchain{Compiler: compiler, Family: Classify(compiler)}
}

// CompileArgs assembles the argument list to compile one translation
// unit into an object file, given the resolved standard, build profile,
// target arch, defines, extra flags, and include directories (spec
// §4.7's per-family flag table; the Debug/Release presets and
// GCC-family arch flags come from §4.5 step 2).
func (t Toolchain) CompileArgs(src, obj, standard, profile, arch string, defines, flags, includeDirs []string) []string {
	switch t.Family {
	case MSVC:
		args := []string{"/nologo", "/c", src, "/Fo" + obj}
		args = append(args, msvcProfileFlags(profile)...)
		if standard != "" {
			args = append(args, "/std:"+standard)
		}
		for _, d := range defines {
			args = append(args, "/D"+d)
		}
		for _, i := range includeDirs {
			args = append(args, "/I"+i)
		}
		return append(args, flags...)
	default: // GCC, Clang, Unknown fall back to the GCC-compatible dialect.
		args := []string{"-c", src, "-o", obj}
		args = append(args, gccProfileFlags(profile)...)
		args = append(args, gccArchFlags(arch)...)
		if standard != "" {
			args = append(args, "-std="+standard)
		}
		for _, d := range defines {
			args = append(args, "-D"+d)
		}
		for _, i := range includeDirs {
			args = append(args, "-I"+i)
		}
		return append(args, flags...)
	}
}

// gccProfileFlags is the Debug/Release preset for the GCC-compatible
// dialect (gcc, g++, clang, clang++).
func gccProfileFlags(profile string) []string {
	if profile == "release" {
		return []string{"-O3", "-DNDEBUG"}
	}
	return []string{"-g", "-O0"}
}

// msvcProfileFlags is the Debug/Release preset for cl.exe.
func msvcProfileFlags(profile string) []string {
	if profile == "release" {
		return []string{"/O2", "/DNDEBUG", "/MD"}
	}
	return []string{"/Zi", "/Od", "/MDd"}
}

// gccArchFlags forces a 32- or 64-bit target on the GCC-compatible
// dialect; arm64 and anything else is whatever the compiler defaults to
// (there's no "-m32"/"-m64"-equivalent arm64 flag, and MSVC never takes
// one either — lib.exe/cl.exe are already arch-specific binaries).
func gccArchFlags(arch string) []string {
	switch arch {
	case "x86":
		return []string{"-m32"}
	case "x64":
		return []string{"-m64"}
	default:
		return nil
	}
}

// LinkArgs assembles the argument list to link objs into output,
// either an executable or a shared library depending on shared.
func (t Toolchain) LinkArgs(objs []string, output string, shared bool, libDirs, libs, flags []string) []string {
	switch t.Family {
	case MSVC:
		args := append([]string{"/nologo"}, objs...)
		args = append(args, "/Fe"+output)
		if shared {
			args = append(args, "/LD")
		}
		for _, d := range libDirs {
			args = append(args, "/LIBPATH:"+d)
		}
		for _, l := range libs {
			args = append(args, l+".lib")
		}
		return append(args, flags...)
	default:
		args := append([]string{}, objs...)
		args = append(args, "-o", output)
		if shared {
			args = append(args, "-shared")
		}
		for _, d := range libDirs {
			args = append(args, "-L"+d)
		}
		for _, l := range libs {
			args = append(args, "-l"+l)
		}
		return append(args, flags...)
	}
}

// ArchiveArgs assembles the command and argument list for a static
// library archiver. Unlike Compile/Link, the MSVC archiver (lib.exe)
// is a different executable than the compiler, so ArchiveArgs returns
// the program name alongside its arguments.
func (t Toolchain) ArchiveArgs(objs []string, output string) (prog string, args []string) {
	if t.Family == MSVC {
		args = append([]string{"/nologo", "/OUT:" + output}, objs...)
		return "lib", args
	}
	args = append([]string{"rcs", output}, objs...)
	return "ar", args
}

// ObjectSuffix is the object-file extension this family's compiler
// emits by convention.
func (t Toolchain) ObjectSuffix() string {
	if t.Family == MSVC {
		return ".obj"
	}
	return ".o"
}
