package gateway

import (
	"strings"

	"github.com/tidwall/gjson"
)

// messagePaths are tried in order. FastAPI puts a string in detail, or a
// list of validation errors each carrying msg.
var messagePaths = []string{"detail", "detail.0.msg", "message", "error"}

// ErrorMessage extracts the human-readable message of an error payload, or
// "" when the body carries none.
func ErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range messagePaths {
		r := gjson.GetBytes(body, path)
		if r.Type == gjson.String {
			if msg := strings.TrimSpace(r.Str); msg != "" {
				return msg
			}
		}
	}
	return ""
}
