package errors

import (
	"strings"
	"unicode"
)

// ValidateURL validates a service base URL.
// It ensures the URL has a safe scheme (http or https) and no trailing slash,
// since request paths are appended verbatim.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeConfiguration, "base URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeConfiguration, "base URL must use http or https scheme: %q", rawURL)
	}

	if strings.HasSuffix(rawURL, "/") {
		return New(ErrCodeConfiguration, "base URL must not end with a slash: %q", rawURL)
	}

	return nil
}

// ValidateModelID validates a model identifier before it is sent to the service.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No whitespace or control characters
//   - Maximum length of 128 characters
func ValidateModelID(id string) error {
	if id == "" {
		return New(ErrCodeConfiguration, "model identifier cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeConfiguration, "model identifier too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeConfiguration, "model identifier contains invalid characters: %q", id)
		}
	}

	return nil
}

// ValidateExecutable validates a rendering engine executable reference.
// It accepts bare command names (resolved through PATH) and paths, but
// rejects values that carry arguments or control characters.
func ValidateExecutable(path string) error {
	if strings.TrimSpace(path) == "" {
		return New(ErrCodeConfiguration, "engine path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeConfiguration, "engine path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "-") {
		return New(ErrCodeConfiguration, "engine path cannot start with '-': %q", path)
	}

	return nil
}
