package resolver

import (
	"strings"

	"github.com/viant/maphist/mapping"
)

// licenseMaxLines caps the license excerpt embedded into tree metadata.
const licenseMaxLines = 12

// FormatLicense reduces license text to an embeddable excerpt: at most
// licenseMaxLines lines, tab characters replaced with four spaces, lines
// joined with a literal `\n` escape marker.
func FormatLicense(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) > licenseMaxLines {
		lines = lines[:licenseMaxLines]
	}
	for i, line := range lines {
		lines[i] = strings.TrimRight(strings.ReplaceAll(line, "\t", "    "), " ")
	}
	return strings.Join(lines, `\n`)
}

// CaptureLicense stores a namespace's license excerpt and its origin URL as
// tree metadata through the visitor.
func CaptureLicense(v mapping.Visitor, ns, content, sourceURL string) error {
	if err := v.Metadata(mapping.LicenseKey(ns), FormatLicense(content)); err != nil {
		return err
	}
	return v.Metadata(mapping.LicenseSourceKey(ns), sourceURL)
}
