// Package patchsafety parses unified-diff text to enumerate every path a
// patch would touch and applies confinement rules before the Gate signs off
// on an APPLY_PATCH action. Parsing is grounded on
// github.com/sourcegraph/go-diff/diff, the same library
// services/code_buddy/validate/patch.go uses for the same job, rather than a
// hand-rolled regex parser.
package patchsafety

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// #region errors

// ErrorKind is the closed set of Patch Safety parse/confinement failures.
type ErrorKind string

const (
	ErrUnterminatedHeader ErrorKind = "unterminated_header"
	ErrMissingPrefix      ErrorKind = "missing_prefix"
	ErrBinaryPatch        ErrorKind = "binary_patch"
	ErrPathEscape         ErrorKind = "path_escape"
	ErrBadMode            ErrorKind = "bad_mode"
	ErrBudgetExceeded     ErrorKind = "budget_exceeded"
	ErrNoFiles            ErrorKind = "no_files"
)

// Error is a typed parse/confinement failure the Gate maps to a Decision
// reason.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Msg) }

func fail(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// #endregion errors

// #region touched-file

// TouchedFile is one file a unified diff reads or writes.
type TouchedFile struct {
	OldPath     string // "" if this is a new file
	NewPath     string // "" if this is a deleted file
	NewFileMode string // e.g. "100644", "100755"; empty if not a new file
	AddedBytes  int64
	IsBinary    bool
}

// #endregion touched-file

const devNull = "/dev/null"

// #region parse

// Parse extracts every touched file from unified-diff text using
// sourcegraph/go-diff. Binary patches are rejected outright; a missing a/b
// prefix on a non-/dev/null path is rejected.
func Parse(patchText string) ([]TouchedFile, error) {
	if strings.Contains(patchText, "GIT binary patch") || strings.Contains(patchText, "Binary files ") {
		return nil, fail(ErrBinaryPatch, "binary patch content present")
	}

	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(patchText)).ReadAllFiles()
	if err != nil {
		return nil, fail(ErrUnterminatedHeader, "%v", err)
	}
	if len(fileDiffs) == 0 {
		return nil, fail(ErrNoFiles, "patch contains no file headers")
	}

	out := make([]TouchedFile, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		tf, err := touchedFileFrom(fd)
		if err != nil {
			return nil, err
		}
		out = append(out, tf)
	}
	return out, nil
}

func touchedFileFrom(fd *diff.FileDiff) (TouchedFile, error) {
	oldPath, err := normalizePath(fd.OrigName)
	if err != nil {
		return TouchedFile{}, err
	}
	newPath, err := normalizePath(fd.NewName)
	if err != nil {
		return TouchedFile{}, err
	}

	tf := TouchedFile{OldPath: oldPath, NewPath: newPath}

	var added int64
	for _, hunk := range fd.Hunks {
		for _, line := range strings.Split(string(hunk.Body), "\n") {
			if strings.HasPrefix(line, "+") {
				added += int64(len(line))
			}
		}
	}
	tf.AddedBytes = added

	for _, ex := range fd.Extended {
		if strings.HasPrefix(ex, "new file mode ") {
			mode := strings.TrimSpace(strings.TrimPrefix(ex, "new file mode "))
			if mode != "100644" && mode != "100755" {
				return TouchedFile{}, fail(ErrBadMode, "unsupported new file mode %q", mode)
			}
			if mode == "100755" {
				return TouchedFile{}, fail(ErrBadMode, "executable bit introduced on new file %s", tf.NewPath)
			}
			tf.NewFileMode = mode
		}
		if strings.HasPrefix(ex, "old mode ") || strings.HasPrefix(ex, "new mode ") {
			mode := strings.TrimSpace(strings.Fields(ex)[2])
			if mode != "100644" && mode != "100755" {
				return TouchedFile{}, fail(ErrBadMode, "unsupported mode %q", mode)
			}
		}
	}

	return tf, nil
}

// normalizePath strips the a/ or b/ prefix go-diff leaves in place, rejects
// a missing prefix on any path that isn't /dev/null, and rejects absolute
// paths or traversal.
func normalizePath(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if p == "" || p == devNull {
		return "", nil
	}
	if !strings.HasPrefix(p, "a/") && !strings.HasPrefix(p, "b/") {
		return "", fail(ErrMissingPrefix, "path %q missing a/ or b/ prefix", p)
	}
	rel := p[2:]
	if filepath.IsAbs(rel) {
		return "", fail(ErrPathEscape, "absolute path in patch: %s", rel)
	}
	clean := filepath.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fail(ErrPathEscape, "path traversal in patch: %s", rel)
	}
	return clean, nil
}

// #endregion parse

// #region confine

// Confine resolves every touched path against workspaceRoot and requires it
// to land strictly inside. It does not touch the filesystem for symlink
// resolution itself (the caller is expected to have already verified
// workspaceRoot is real); it only checks the lexical/joined result, mirroring
// the Gate's own path confinement for READ_FILE/WRITE_FILE.
func Confine(workspaceRoot string, files []TouchedFile, maxTotalBytes int64) error {
	var total int64
	for _, f := range files {
		for _, rel := range []string{f.OldPath, f.NewPath} {
			if rel == "" {
				continue
			}
			if strings.Contains(rel, "\x00") {
				return fail(ErrPathEscape, "NUL byte in path %q", rel)
			}
			joined := filepath.Join(workspaceRoot, rel)
			if !within(workspaceRoot, joined) {
				return fail(ErrPathEscape, "patch path escapes workspace: %s", rel)
			}
		}
		total += f.AddedBytes
	}
	if total > maxTotalBytes {
		return fail(ErrBudgetExceeded, "patch adds %d bytes, budget is %d", total, maxTotalBytes)
	}
	return nil
}

func within(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

// #endregion confine
