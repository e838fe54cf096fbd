package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateName validates a site or measurement name.
//
// Names become parts of cache keys and result file names
// ("<results>/<site>-<name>.csv"), so the rules are conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
//   - Letters, digits, '.', '_' and '-' only
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "%s cannot be empty", kind)
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidName, "%s too long (max 128 characters)", kind)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "%s contains invalid control characters", kind)
		}
	}

	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidName, "%s cannot contain path components: %q", kind, name)
	}

	if !nameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid %s: %q", kind, name)
	}

	return nil
}

var nameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateURL validates a connection URL for one of the given schemes.
func ValidateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "URL cannot be empty")
	}

	for _, s := range schemes {
		if strings.HasPrefix(rawURL, s+"://") {
			return nil
		}
	}
	return New(ErrCodeInvalidConfig, "URL must use one of the schemes %v", schemes)
}
