package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name for safety and correctness.
// It rejects names that could be used for path traversal or injection attacks,
// since resolved names end up as directory names and shell arguments.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// pythonPackageNameRegex matches valid Python package names (PEP 508).
var pythonPackageNameRegex = regexp.MustCompile(`^([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9])$`)

// ValidatePythonPackageName validates a Python package name per PEP 508.
func ValidatePythonPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}

	if !pythonPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid Python package name: %q", name)
	}

	return nil
}

// ValidateReference validates a root reference given on the command line.
// A reference is either a Python package name, a git+ URL, or a file:// URL.
func ValidateReference(ref string) error {
	switch {
	case strings.HasPrefix(ref, "git+"):
		if !strings.Contains(ref, "://") {
			return New(ErrCodeInvalidInput, "malformed VCS reference: %q", ref)
		}
		return nil
	case strings.HasPrefix(ref, "file://"):
		if len(ref) == len("file://") {
			return New(ErrCodeInvalidInput, "file reference without a path")
		}
		return nil
	case strings.Contains(ref, "://"):
		return New(ErrCodeInvalidInput, "unsupported URL scheme in %q (use git+ or file://)", ref)
	default:
		return ValidatePythonPackageName(ref)
	}
}

// ValidateFragmentFilename validates the name of a per-package manifest
// fragment file. It must be a plain basename.
func ValidateFragmentFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidPath, "fragment filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidPath, "fragment filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidPath, "fragment filename cannot be a hidden file")
	}

	return nil
}
