package lintflow

import (
	"path/filepath"
	"strings"
)

// NormalizePath converts a path to use forward slashes consistently
// regardless of the operating system and cleans the path.
// It removes redundant separators, dot-segments, and normalizes separators to forward slashes.
// Empty paths remain empty.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}

	cleaned := filepath.Clean(path)
	return strings.ReplaceAll(cleaned, "\\", "/")
}

// JoinPaths joins path elements and normalizes the result.
func JoinPaths(elem ...string) string {
	return NormalizePath(filepath.Join(elem...))
}

// RelPath returns path relative to root, normalized to forward slashes.
// If path is not below root, the normalized path is returned unchanged.
func RelPath(root, path string) string {
	normalizedRoot := NormalizePath(root)
	normalizedPath := NormalizePath(path)

	if normalizedRoot == "" || normalizedRoot == "." {
		return normalizedPath
	}

	rel, err := filepath.Rel(normalizedRoot, normalizedPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return normalizedPath
	}
	return NormalizePath(rel)
}

// IsSubPath checks if childPath is equal to or below parentPath.
// Both paths are normalized before comparison.
func IsSubPath(parentPath, childPath string) bool {
	normalizedParent := NormalizePath(parentPath)
	normalizedChild := NormalizePath(childPath)

	if normalizedParent == "" || normalizedParent == "." {
		return true // Empty parent means any path is a subpath
	}

	if normalizedParent == normalizedChild {
		return true
	}

	if !strings.HasSuffix(normalizedParent, "/") {
		normalizedParent += "/"
	}

	return strings.HasPrefix(normalizedChild, normalizedParent)
}

// AbsPath returns the absolute path for a given path.
// If an error occurs, it returns the original path.
func AbsPath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return NormalizePath(absPath)
}

// DirPath returns the directory portion of a path
func DirPath(path string) string {
	return NormalizePath(filepath.Dir(NormalizePath(path)))
}
