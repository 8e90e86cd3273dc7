// Package security guards the files the CLIs write: output paths must stay
// inside an allowed directory and derived file names are sanitised.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideAllowedDirs is returned when an output path resolves outside
	// every allowed directory.
	ErrOutsideAllowedDirs = errors.New("path outside allowed directories")
	// ErrExists is returned by CheckOverwrite for an existing file.
	ErrExists = errors.New("output already exists")
)

// canonical returns the absolute, symlink-free form of p. When p does not
// exist yet, the nearest existing ancestor is resolved instead and the rest
// of the path is appended, so a symlinked parent cannot redirect a new file.
func canonical(p string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, err := filepath.Rel(dir, abs)
			if err != nil {
				return "", err
			}
			return filepath.Join(resolved, rest), nil
		}
		if dir == filepath.Dir(dir) {
			return abs, nil
		}
	}
}

// within reports whether path p lies in dir. Both must be canonical.
func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// ValidateOutputPath checks that path resolves inside one of allowedDirs.
// With no allowedDirs the temp directory and the working directory are
// allowed.
func ValidateOutputPath(path string, allowedDirs ...string) error {
	if len(allowedDirs) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		allowedDirs = []string{os.TempDir(), cwd}
	}

	target, err := canonical(path)
	if err != nil {
		return err
	}
	for _, dir := range allowedDirs {
		cdir, err := canonical(dir)
		if err != nil {
			continue
		}
		if within(target, cdir) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not in %v", ErrOutsideAllowedDirs, path, allowedDirs)
}

// CheckOverwrite returns ErrExists when path exists and overwrite is false.
func CheckOverwrite(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}

// DerivedPath names an output in dir after inputPath: the input's base name
// without extension, sanitised, followed by suffix.
//
//	DerivedPath("out", "/data/IOCAM1B_2019.h5", "_ground.asc") == "out/IOCAM1B_2019_ground.asc"
func DerivedPath(dir, inputPath, suffix string) string {
	base := filepath.Base(inputPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, SanitizeFilename(base)+suffix)
}

// SanitizeFilename replaces every run of characters other than ASCII
// letters, digits, dot, underscore and dash with a single underscore, caps
// the length at 128 and trims leading and trailing dots and underscores.
// An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
