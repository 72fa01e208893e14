package toolchain

import "strings"

// ScrubBanner removes cl.exe's two banner lines ("Microsoft (R)
// C/C++ Optimizing Compiler..." and "Copyright (C) Microsoft
// Corporation..."). Every other line is kept, including blank lines and
// the source-file-name echo cl.exe prints. GCC and Clang print no such
// banner, so this is a no-op for them; callers run it unconditionally
// since a blank match is harmless.
func ScrubBanner(output string) string {
	lines := strings.Split(output, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Microsoft (R)") ||
			strings.HasPrefix(trimmed, "Copyright (C) Microsoft Corporation") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
