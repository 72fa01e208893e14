package compiledb

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/flappy-build/flappy/internal/ferrors"
)

// Job is the minimal shape compiledb needs from a buildexec.CompileJob,
// so compiledb does not import buildexec; cmd/flappy's compiledb
// command copies each CompileJob into a Job.
type Job struct {
	Source string
	Object string
	Args   []string // full compiler invocation, compiler name included at index 0
}

// Collect builds one Entry per job, rooted at dir (the project root,
// matching clang tooling's expectation that "directory" is where the
// relative/absolute paths in "command" resolve from).
func Collect(dir string, jobs []Job) []Entry {
	entries := make([]Entry, 0, len(jobs))
	for _, j := range jobs {
		entries = append(entries, Entry{
			Directory: dir,
			Command:   strings.Join(j.Args, " "),
			File:      j.Source,
		})
	}
	return entries
}

// WriteFile renders entries to path as a complete compile_commands.json.
func WriteFile(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &ferrors.IoError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}

	f, err := os.Create(path)
	if err != nil {
		return &ferrors.IoError{Op: "create", Path: path, Err: err}
	}
	defer f.Close()

	w := New(f)
	if err := w.Open(); err != nil {
		return &ferrors.IoError{Op: "write", Path: path, Err: err}
	}
	for _, e := range entries {
		if err := w.Write(e); err != nil {
			return &ferrors.IoError{Op: "write", Path: path, Err: err}
		}
	}
	return w.Close()
}
