package logging

import (
	"log/slog"
	"strings"
)

// sensitiveKeyPatterns are attribute-key substrings that mark a value as
// sensitive regardless of the command that produced it.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"auth",
}

const redactedValue = "***REDACTED***"

// redactSensitive masks the value of any attribute whose key suggests
// sensitive content. Nested groups are walked recursively.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		keyLower := strings.ToLower(a.Key)
		for _, pattern := range sensitiveKeyPatterns {
			if strings.Contains(keyLower, pattern) && a.Value.String() != "" {
				return slog.String(a.Key, redactedValue)
			}
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	return a
}
