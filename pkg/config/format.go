package config

import "fmt"

// Output formats understood by the layout engine.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJPG  = "jpg"
	FormatGIF  = "gif"
	FormatWEBP = "webp"
)

// DefaultFormat is the engine output format used when none is configured.
const DefaultFormat = FormatSVG

// mimeTypes maps each supported output format to the MIME type used in data URIs.
var mimeTypes = map[string]string{
	FormatSVG:  "image/svg+xml",
	FormatPNG:  "image/png",
	FormatJPG:  "image/jpeg",
	FormatGIF:  "image/gif",
	FormatWEBP: "image/webp",
}

// ValidateFormat checks that a format is supported.
func ValidateFormat(format string) error {
	if _, ok := mimeTypes[format]; !ok {
		return fmt.Errorf("invalid format: %q (must be one of: svg, png, jpg, gif, webp)", format)
	}
	return nil
}

// MIMEType returns the MIME type for format, or "application/octet-stream"
// for unknown formats.
func MIMEType(format string) string {
	if m, ok := mimeTypes[format]; ok {
		return m
	}
	return "application/octet-stream"
}

// IsVector reports whether the engine output for format is markup that can
// be inlined rather than referenced as an image.
func IsVector(format string) bool {
	return format == FormatSVG
}
