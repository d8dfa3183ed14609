package client

import (
	"bytes"
	"encoding/json"
)

// User-facing copy for failures the server did not describe
const (
	DefaultErrorMessage    = "Terjadi kesalahan"
	MalformedResponseError = "Gagal memproses respons dari server"
	ConnectionErrorMessage = "Gagal terhubung ke server"
	statusSuccess          = "success"
	statusError            = "error"
)

// Envelope is a response coerced into a single shape regardless of how the
// server wrapped it.
type Envelope struct {
	Status  int
	Success bool
	// Data is the "data" member when present and non-null, otherwise the whole body.
	Data  json.RawMessage
	Error string
	// Fields holds the top-level members when the body is a JSON object.
	Fields map[string]json.RawMessage
}

// Normalize coerces a raw HTTP response into an Envelope. Any error indicator
// (status "error", success false, a code, an error member, or a non-2xx status
// not overridden by status "success") produces a failed envelope.
func Normalize(status int, body []byte) Envelope {
	env := Envelope{Status: status}
	ok := status >= 200 && status < 300

	var decoded interface{}
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &decoded) != nil {
		if ok {
			env.Success = true
			return env
		}
		env.Error = MalformedResponseError
		return env
	}

	obj, _ := decoded.(map[string]interface{})
	if obj != nil {
		_ = json.Unmarshal(body, &env.Fields)
	}

	if hasErrorIndicator(status, obj) {
		env.Error = extractErrorMessage(decoded, DefaultErrorMessage)
		return env
	}

	env.Success = true
	env.Data = json.RawMessage(body)
	if raw, present := env.Fields["data"]; present && !isNull(raw) {
		env.Data = raw
	}
	return env
}

// HasField reports whether the top-level member is present and truthy
func (e Envelope) HasField(name string) bool {
	raw, ok := e.Fields[name]
	if !ok {
		return false
	}
	var v interface{}
	if json.Unmarshal(raw, &v) != nil {
		return false
	}
	return truthy(v)
}

func hasErrorIndicator(status int, obj map[string]interface{}) bool {
	if obj != nil {
		if s, _ := obj["status"].(string); s == statusError {
			return true
		}
		if b, isBool := obj["success"].(bool); isBool && !b {
			return true
		}
		if code, present := obj["code"]; present && code != nil {
			return true
		}
		if truthy(obj["error"]) {
			return true
		}
		if s, _ := obj["status"].(string); s == statusSuccess {
			return false
		}
	}
	return status < 200 || status >= 300
}

// ExtractErrorMessage pulls a human-readable message out of an error body
func ExtractErrorMessage(fields map[string]interface{}, defaultMsg string) string {
	if fields == nil {
		return defaultMsg
	}
	return extractErrorMessage(fields, defaultMsg)
}

func extractErrorMessage(data interface{}, defaultMsg string) string {
	switch v := data.(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]interface{}:
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		// nested {code, message} objects
		for _, key := range []string{"message", "error"} {
			if nested, ok := v[key].(map[string]interface{}); ok {
				if s, ok := nested["message"].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return defaultMsg
}

// Truthy reports whether a decoded JSON value counts as present: not null,
// false, zero or the empty string.
func Truthy(v interface{}) bool {
	return truthy(v)
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeItems decodes a JSON array, keeping only elements accepted by keep
// that also decode into T.
func decodeItems[T any](raw json.RawMessage, keep func(map[string]interface{}) bool) []T {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return []T{}
	}

	items := make([]T, 0, len(elems))
	for _, elem := range elems {
		var obj map[string]interface{}
		if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
			continue
		}
		if keep != nil && !keep(obj) {
			continue
		}
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}

// decodeObject decodes a JSON object into T when keep accepts it
func decodeObject[T any](raw json.RawMessage, keep func(map[string]interface{}) bool) (*T, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	if keep != nil && !keep(obj) {
		return nil, false
	}
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, false
	}
	return &item, true
}

// Item filters mirroring what the server is trusted to send

func isCourse(obj map[string]interface{}) bool {
	return !truthy(obj["code"]) && truthy(obj["id"]) && truthy(obj["title"])
}

func isModule(obj map[string]interface{}) bool {
	return !truthy(obj["code"]) && truthy(obj["id"])
}

func isEnrollment(obj map[string]interface{}) bool {
	return !truthy(obj["code"]) && (truthy(obj["id"]) || truthy(obj["enrollment_id"]))
}
