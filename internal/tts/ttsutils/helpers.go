// Package ttsutils provides file and path helpers for saving speech output.
package ttsutils

import (
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Common path constants.
const (
	defaultDirPermissions  = 0o750
	invalidCharReplacement = "_"
	filenameSeparator      = "_"
	audioExtension         = ".mp3"
	maxFilenameTextRunes   = 100
	fallbackFilenameText   = "speech"
)

// Data size constants.
const (
	byteUnit = 1
	kilobyte = byteUnit * 1024
	megabyte = kilobyte * 1024
	gigabyte = megabyte * 1024
)

// Size formatting constants.
const (
	formatGB    = "%.1f GB"
	formatMB    = "%.1f MB"
	formatKB    = "%.1f KB"
	formatBytes = "%d B"
)

const errFmtFailedToCreateDir = "failed to create directory %s: %w"

// filenameReplacer maps characters that are invalid in most filesystems.
var filenameReplacer = strings.NewReplacer(
	"<", invalidCharReplacement,
	">", invalidCharReplacement,
	":", invalidCharReplacement,
	"\"", invalidCharReplacement,
	"/", invalidCharReplacement,
	"\\", invalidCharReplacement,
	"|", invalidCharReplacement,
	"?", invalidCharReplacement,
	"*", invalidCharReplacement,
)

// EnsureDir ensures a directory exists at the given path, creating it if it doesn't.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf(errFmtFailedToCreateDir, path, mkdirErr)
		}
	}

	return nil
}

// FormatFileSize formats a file size in a human-readable string (e.g., "1.2 GB", "500.5
// MB").
func FormatFileSize(bytes int64) string {
	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf(formatGB, float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf(formatMB, float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf(formatKB, float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf(formatBytes, bytes)
	}
}

// SanitizeFilename replaces filesystem-invalid characters, whitespace and
// control characters with underscores.
func SanitizeFilename(filename string) string {
	replaced := filenameReplacer.Replace(filename)

	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return '_'
		}

		return r
	}, replaced)
}

// DownloadFilename derives "<language>_<sanitized text>.mp3" for a download.
// Long text is cut to a fixed number of runes.
func DownloadFilename(language, text string) string {
	sanitized := SanitizeFilename(strings.TrimSpace(text))

	runes := []rune(sanitized)
	if len(runes) > maxFilenameTextRunes {
		sanitized = string(runes[:maxFilenameTextRunes])
	}

	if sanitized == "" {
		sanitized = fallbackFilenameText
	}

	return SanitizeFilename(language) + filenameSeparator + sanitized + audioExtension
}
