package mretry

import "regexp"

const maxSanitizedLength = 500

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	ipPattern    = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
)

// SanitizeErrorMessage redacts common PII patterns from an error message
// before it is persisted or surfaced to a client. A result longer than
// maxSanitizedLength bytes is cut to that length and "...[truncated]" is
// appended.
func SanitizeErrorMessage(msg string) string {
	msg = emailPattern.ReplaceAllString(msg, "[REDACTED]")
	msg = phonePattern.ReplaceAllString(msg, "[REDACTED]")
	msg = ipPattern.ReplaceAllString(msg, "[REDACTED]")

	if len(msg) > maxSanitizedLength {
		msg = msg[:maxSanitizedLength] + "...[truncated]"
	}

	return msg
}
