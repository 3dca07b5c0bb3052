package replacement

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// Legacy order metadata keys, still produced for host-side tooling.
const (
	MetaKeySubmitted = "_replacement_request_submitted"
	MetaKeyMessage   = "_replacement_request_message"
	MetaKeyQuantity  = "_replacement_request_quantity"
)

// Refund request back-reference keys.
const (
	MetaKeyRefundOrderID = "_order_id"
	MetaKeyRefundItemID  = "_item_id"
)

// MetaKeys returns the submitted, message and quantity keys for a scope.
func MetaKeys(scope Scope) (submitted, message, quantity string) {
	suffix := "_" + scope.String()
	return MetaKeySubmitted + suffix, MetaKeyMessage + suffix, MetaKeyQuantity + suffix
}

// MaxMessageLength is the longest accepted message, in characters.
const MaxMessageLength = 5000

var (
	tagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
	spacesPattern = regexp.MustCompile(`[ \t]+`)
)

// SanitizeMessage strips markup and control characters from free text while
// keeping line breaks.
func SanitizeMessage(raw string) string {
	s := strings.ToValidUTF8(raw, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spacesPattern.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// MessageHTML escapes a stored message for display and converts newlines to <br>.
func MessageHTML(message string) string {
	return strings.ReplaceAll(html.EscapeString(message), "\n", "<br>\n")
}
