package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePath validates a file path within a project for safety.
// It prevents path traversal and keeps paths at a reasonable length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// projectIDRegex matches project identifiers used as cache namespaces.
var projectIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateProjectID validates a project identifier.
//
// Project IDs scope position snapshots and cached artifacts, so they end up
// in cache keys and URL paths. They must be 1-128 characters of letters,
// digits, dot, dash, or underscore, starting with a letter or digit.
func ValidateProjectID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidProject, "project id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidProject, "project id too long (max 128 characters)")
	}
	if !projectIDRegex.MatchString(id) {
		return New(ErrCodeInvalidProject, "invalid project id: %q", id)
	}
	return nil
}

// ValidateTreeDepth rejects input trees deeper than max.
// A max of zero or less disables the check.
func ValidateTreeDepth(depth, max int) error {
	if max > 0 && depth > max {
		return New(ErrCodeInvalidInput, "tree too deep (%d levels, max %d)", depth, max)
	}
	return nil
}
