// Package redact strips secret values from log-bound strings. Redaction
// happens at error/log construction time so credential and token values never
// reach a sink.
package redact

import "strings"

// bearer runs first so "Authorization: Bearer xyz" redacts the token value
// before the authorization pass sees it.
var secretMarkers = []string{"bearer", "password", "token", "authorization"}

const placeholder = "<redacted>"

// Sensitive replaces the value following each secret marker with a
// placeholder. Markers match case-insensitively; a marker needs a value
// separator ("=" or ":", or a space after "bearer") before anything is cut,
// so prose like "token expired" passes through, and text after the value is
// preserved.
func Sensitive(input string) string {
	redacted := input
	for _, marker := range secretMarkers {
		redacted = redactValues(redacted, marker)
	}
	return redacted
}

func redactValues(input, marker string) string {
	lower := strings.ToLower(input)
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(lower[i:], marker)
		if idx < 0 {
			b.WriteString(input[i:])
			return b.String()
		}
		markerEnd := idx + i + len(marker)
		b.WriteString(input[i:markerEnd])

		valueStart, ok := valueOffset(input, markerEnd, marker)
		if !ok {
			i = markerEnd
			continue
		}
		valueEnd := valueStart
		for valueEnd < len(input) && !isValueEnd(input[valueEnd]) {
			valueEnd++
		}
		if valueEnd == valueStart {
			i = markerEnd
			continue
		}

		b.WriteString(input[markerEnd:valueStart])
		b.WriteString(placeholder)
		i = valueEnd
	}
}

// valueOffset finds where the secret value begins after a marker: past an
// "="/":" separator with optional spaces, or past a single space for the
// "Bearer <token>" convention.
func valueOffset(input string, markerEnd int, marker string) (int, bool) {
	j := markerEnd
	for j < len(input) && input[j] == ' ' {
		j++
	}
	if j < len(input) && (input[j] == '=' || input[j] == ':') {
		j++
		for j < len(input) && input[j] == ' ' {
			j++
		}
		return j, j < len(input)
	}
	if marker == "bearer" && j > markerEnd && j < len(input) {
		return j, true
	}
	return 0, false
}

func isValueEnd(c byte) bool {
	switch c {
	case ' ', ',', ';', '&', ')', ']', '"', '\'':
		return true
	}
	return false
}
