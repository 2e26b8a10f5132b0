package obs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const redacted = "[REDACTED]"

// IsSensitiveLogField reports whether a header or JSON key likely holds a credential.
// ServiceAuthorization (S2S) and event_token (CCD) are covered.
func IsSensitiveLogField(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.NewReplacer("-", "", "_", "").Replace(normalized)

	for _, marker := range []string{"authorization", "token", "secret", "password", "cookie", "otp"} {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return normalized == "username"
}

// FormatHeadersForLog returns stable, redacted header text for logs.
func FormatHeadersForLog(headers http.Header) string {
	if len(headers) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		value := strings.Join(headers.Values(k), ", ")
		if IsSensitiveLogField(k) {
			value = redacted
		}
		parts = append(parts, fmt.Sprintf("%s=%q", strings.ToLower(k), value))
	}
	return strings.Join(parts, "; ")
}

// FormatBodyForLog truncates a body and redacts sensitive JSON fields and form values.
func FormatBodyForLog(contentType string, body []byte, maxBytes int) string {
	if len(body) == 0 {
		return ""
	}
	truncated := false
	if maxBytes > 0 && len(body) > maxBytes {
		body = body[:maxBytes]
		truncated = true
	}

	ct := strings.ToLower(contentType)
	var text string
	switch {
	case strings.Contains(ct, "json") && !truncated:
		text = redactJSON(body)
	case strings.Contains(ct, "x-www-form-urlencoded"):
		text = redactForm(string(body))
	case strings.Contains(ct, "json"):
		// A cut JSON document cannot be parsed; drop it rather than leak a token.
		text = "<json body truncated>"
	default:
		text = string(body)
	}
	if truncated {
		return text + " [truncated]"
	}
	return text
}

func redactJSON(body []byte) string {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return string(body)
	}

	var walk func(v any)
	walk = func(v any) {
		switch typed := v.(type) {
		case map[string]any:
			for k, child := range typed {
				if IsSensitiveLogField(k) {
					typed[k] = redacted
					continue
				}
				walk(child)
			}
		case []any:
			for _, child := range typed {
				walk(child)
			}
		}
	}
	walk(payload)

	out, err := json.Marshal(payload)
	if err != nil {
		return string(body)
	}
	return string(out)
}

func redactForm(body string) string {
	pairs := strings.Split(body, "&")
	for i, pair := range pairs {
		key, _, found := strings.Cut(pair, "=")
		if found && IsSensitiveLogField(key) {
			pairs[i] = key + "=" + redacted
		}
	}
	return strings.Join(pairs, "&")
}

// TruncateForLog returns a single-line truncated preview for unstructured values.
func TruncateForLog(value string, maxChars int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	normalized := strings.ReplaceAll(trimmed, "\n", "\\n")
	if maxChars <= 0 || len(normalized) <= maxChars {
		return normalized
	}
	return normalized[:maxChars] + "... [truncated]"
}
