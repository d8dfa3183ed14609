package common

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// StorageKey names an entry in the session store
type StorageKey string

const (
	// UserKey holds the JSON-serialized session record
	UserKey StorageKey = "sibeo-user"
	// CookiesKey holds the backend cookies for the API origin
	CookiesKey StorageKey = "sibeo-cookies"
)

// Path returns the object path the key is stored under
func (k StorageKey) Path() string {
	return string(k) + ".json"
}

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// NewRequestID returns a fresh correlation id
func NewRequestID() string {
	return uuid.NewString()
}

// ParseID parses a positive numeric record id from a path or CLI argument
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// Constants for client limits
const (
	DefaultTimeout       = 30 * time.Second
	LogoutTimeout        = 5 * time.Second
	MinPasswordLength    = 6
	DefaultSessionDir    = ".sibeo"
	DefaultAPIBaseURL    = "https://uas-paw-kelompok9-sibeo.onrender.com"
	DefaultWebListenAddr = "127.0.0.1:3000"
)
