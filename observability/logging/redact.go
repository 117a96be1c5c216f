package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces credentials in log output.
const RedactedValue = "[REDACTED]"

// sensitiveKeys are lower case. A key matches when it equals an entry or ends
// with "_"+entry, so "index_dsn" is caught alongside "dsn".
var sensitiveKeys = []string{
	"authorization",
	"token",
	"secret",
	"hmac_secret",
	"password",
	"dsn",
	"cookie",
}

// IsSensitive reports whether values logged under key must be masked.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	for _, candidate := range sensitiveKeys {
		if normalized == candidate || strings.HasSuffix(normalized, "_"+candidate) {
			return true
		}
	}
	return false
}

// MaskField builds a string attribute, masking non-empty sensitive values.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) != "" && IsSensitive(key) {
		return slog.String(key, RedactedValue)
	}
	return slog.String(key, value)
}

func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindString && IsSensitive(attr.Key) {
		return MaskField(attr.Key, attr.Value.String())
	}
	return attr
}
