// Package redact masks credentials and wallet secrets before request or
// response data reaches a log line.
package redact

import (
	"encoding/json"
	"net/http"
	"strings"
)

const Mask = "[FILTERED]"

// sensitiveFields are matched as lower-case substrings of header and JSON
// key names.
var sensitiveFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"privatekey",
	"private_key",
	"passphrase",
	"api_key",
	"session",
	"credential",
	"cookie",
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// Headers flattens h into a map with sensitive values masked.
func Headers(h http.Header) map[string]string {
	filtered := make(map[string]string, len(h))
	for name, values := range h {
		if isSensitive(name) {
			filtered[name] = Mask
			continue
		}
		filtered[name] = strings.Join(values, ", ")
	}
	return filtered
}

// Body returns a loggable form of a request or response body. JSON bodies
// keep their shape with sensitive values masked; other bodies are dropped
// when they look like they carry a secret.
func Body(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		str := string(body)
		lower := strings.ToLower(str)
		for _, field := range sensitiveFields {
			if strings.Contains(lower, field) {
				return "[FILTERED - Contains sensitive data]"
			}
		}
		return str
	}

	out, err := json.Marshal(JSON(data))
	if err != nil {
		return "[ERROR - Failed to marshal filtered JSON]"
	}
	return string(out)
}

// JSON walks decoded JSON and masks values under sensitive keys.
func JSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		filtered := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				filtered[key] = Mask
			} else {
				filtered[key] = JSON(value)
			}
		}
		return filtered
	case []interface{}:
		filtered := make([]interface{}, len(v))
		for i, item := range v {
			filtered[i] = JSON(item)
		}
		return filtered
	default:
		return v
	}
}
