package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"sibeo/internal/api/client"
	"sibeo/internal/common"
	"sibeo/internal/models"
)

// User-facing outcomes of login and registration
const (
	MsgInvalidCredentials = "Email atau password salah. Silakan coba lagi."
	MsgAccountNotFound    = "Akun tidak ditemukan. Silakan daftar terlebih dahulu."
	MsgLoginFailed        = "Login gagal. Silakan coba lagi."
	MsgEmailTaken         = "Email sudah terdaftar. Silakan gunakan email lain atau login."
	MsgMissingFields      = "Mohon lengkapi semua data yang diperlukan."
	MsgRegisterFailed     = "Registrasi gagal. Silakan coba lagi."
	MsgConnectionFailed   = "Gagal terhubung ke server. Periksa koneksi internet Anda."

	// used when the server rejects without saying why
	msgLoginRejected    = "Login gagal"
	msgRegisterRejected = "Registrasi gagal"
)

// API is the slice of the remote API the session manager talks to
type API interface {
	PostLogin(ctx context.Context, req *client.LoginRequest) (*client.RawResponse, error)
	PostRegister(ctx context.Context, req *client.RegisterRequest) (*client.RawResponse, error)
	PostLogout(ctx context.Context) error
}

// SessionStore persists the signed-in user between runs
type SessionStore interface {
	Get(ctx context.Context, key common.StorageKey) ([]byte, bool, error)
	Set(ctx context.Context, key common.StorageKey, value []byte) error
	Remove(ctx context.Context, key common.StorageKey) error
}

// CookieClearer drops backend session cookies
type CookieClearer interface {
	Clear(ctx context.Context) error
}

// Outcome is the result of a login or registration attempt
type Outcome struct {
	Success bool
	Error   string
}

// Manager owns the current session: the signed-in user, its persisted copy,
// and the backend cookies that authenticate API calls.
type Manager struct {
	mu      sync.RWMutex
	user    *models.User
	api     API
	store   SessionStore
	cookies CookieClearer
	logger  *zap.Logger
}

// NewManager creates a session manager with no signed-in user; call Restore
// to pick up a persisted session.
func NewManager(api API, store SessionStore, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		api:    api,
		store:  store,
		logger: logger,
	}
}

// WithCookies registers the jar cleared on logout
func (m *Manager) WithCookies(cookies CookieClearer) *Manager {
	m.cookies = cookies
	return m
}

// Restore loads the persisted user. A corrupt record is removed and leaves
// the manager signed out.
func (m *Manager) Restore(ctx context.Context) error {
	raw, ok, err := m.store.Get(ctx, common.UserKey)
	if err != nil {
		return common.ErrStorageError("failed to read session", err)
	}
	if !ok {
		return nil
	}

	var user *models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		m.logger.Warn("Discarding corrupt session record", zap.Error(err))
		if err := m.store.Remove(ctx, common.UserKey); err != nil {
			m.logger.Warn("Failed to remove corrupt session record", zap.Error(err))
		}
		return nil
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return nil
}

// User returns a copy of the signed-in user, or nil
func (m *Manager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated reports whether a user is signed in
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

// Login authenticates against the API and persists the resulting user
func (m *Manager) Login(ctx context.Context, email, password string) Outcome {
	resp, err := m.api.PostLogin(ctx, &client.LoginRequest{Email: email, Password: password})
	if err != nil || resp.Fields == nil {
		m.logger.Error("Login error", zap.Error(err))
		return Outcome{Error: MsgConnectionFailed}
	}

	fields := resp.Fields
	if isSuccessStatus(fields) || (resp.OK() && client.Truthy(fields["data"])) {
		user := deriveUser(fields)
		user.Email = common.FirstNonEmpty(user.Email, email)
		if user.Role == "" {
			user.Role = models.RoleStudent
		}
		if err := m.setUser(ctx, user); err != nil {
			return Outcome{Error: common.UserMessage(err, MsgLoginFailed)}
		}
		m.logger.Info("Signed in", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
		return Outcome{Success: true}
	}

	msg := client.ExtractErrorMessage(fields, msgLoginRejected)
	lower := strings.ToLower(msg)
	switch {
	case resp.Status == http.StatusUnauthorized || common.ContainsAny(lower, "invalid", "incorrect", "wrong"):
		return Outcome{Error: MsgInvalidCredentials}
	case resp.Status == http.StatusNotFound || common.ContainsAny(lower, "not found", "tidak ditemukan"):
		return Outcome{Error: MsgAccountNotFound}
	}
	return Outcome{Error: common.FirstNonEmpty(msg, MsgLoginFailed)}
}

// Register creates an account and signs it in
func (m *Manager) Register(ctx context.Context, name, email, password string, role models.Role) Outcome {
	resp, err := m.api.PostRegister(ctx, &client.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     string(role),
	})
	if err != nil || resp.Fields == nil {
		m.logger.Error("Register error", zap.Error(err))
		return Outcome{Error: MsgConnectionFailed}
	}

	fields := resp.Fields
	accepted := isSuccessStatus(fields) ||
		(resp.OK() && !client.Truthy(fields["error"]) && resp.Status != http.StatusConflict)
	if accepted && client.Truthy(fields["data"]) {
		user := deriveUser(fields)
		user.Name = common.FirstNonEmpty(user.Name, name)
		user.Email = common.FirstNonEmpty(user.Email, email)
		if user.Role == "" {
			user.Role = role
		}
		if err := m.setUser(ctx, user); err != nil {
			return Outcome{Error: common.UserMessage(err, MsgRegisterFailed)}
		}
		m.logger.Info("Registered", zap.Int64("user_id", user.ID), zap.String("role", string(user.Role)))
		return Outcome{Success: true}
	}

	msg := client.ExtractErrorMessage(fields, msgRegisterRejected)
	lower := strings.ToLower(msg)
	switch {
	case resp.Status == http.StatusConflict ||
		common.ContainsAny(lower, "email already", "already registered", "already exists", "sudah terdaftar", "duplicate"):
		return Outcome{Error: MsgEmailTaken}
	case common.ContainsAny(lower, "required", "wajib", "missing"):
		return Outcome{Error: MsgMissingFields}
	}
	return Outcome{Error: common.FirstNonEmpty(msg, MsgRegisterFailed)}
}

// Logout clears the local session before telling the server. The server
// call is best effort and its failure is ignored.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()

	if err := m.store.Remove(ctx, common.UserKey); err != nil {
		m.logger.Warn("Failed to clear session record", zap.Error(err))
	}

	logoutCtx, cancel := context.WithTimeout(ctx, common.LogoutTimeout)
	defer cancel()
	if err := m.api.PostLogout(logoutCtx); err != nil {
		m.logger.Debug("Logout request failed", zap.Error(err))
	}

	if m.cookies != nil {
		if err := m.cookies.Clear(ctx); err != nil {
			m.logger.Warn("Failed to clear session cookies", zap.Error(err))
		}
	}
	m.logger.Info("Signed out")
}

// setUser persists the user, then publishes it in memory
func (m *Manager) setUser(ctx context.Context, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return common.NewErrorWithCause(common.ErrInternal, "failed to encode session", err)
	}
	if err := m.store.Set(ctx, common.UserKey, raw); err != nil {
		m.logger.Error("Failed to persist session", zap.Error(err))
		return common.ErrStorageError("Gagal menyimpan sesi", err)
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()
	return nil
}

func isSuccessStatus(fields map[string]interface{}) bool {
	if s, _ := fields["status"].(string); s == "success" {
		return true
	}
	b, _ := fields["success"].(bool)
	return b
}

// deriveUser reads the user from data.*, then user.*, then top-level members
func deriveUser(fields map[string]interface{}) models.User {
	sources := []map[string]interface{}{nested(fields, "data"), nested(fields, "user"), fields}
	pick := func(key string) interface{} {
		for _, src := range sources {
			if v := src[key]; client.Truthy(v) {
				return v
			}
		}
		return nil
	}

	return models.User{
		ID:    toInt64(pick("id")),
		Name:  toString(pick("name")),
		Email: toString(pick("email")),
		Role:  models.Role(toString(pick("role"))),
	}
}

func nested(fields map[string]interface{}, key string) map[string]interface{} {
	obj, _ := fields[key].(map[string]interface{})
	return obj
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
