package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"sibeo/internal/api/client"
	"sibeo/internal/common"
	"sibeo/internal/config"
	"sibeo/internal/models"
	"sibeo/internal/session"
)

type fakeAPI struct {
	loginResp    *client.RawResponse
	registerResp *client.RawResponse
	err          error
	logoutErr    error

	lastLogin    *client.LoginRequest
	lastRegister *client.RegisterRequest
	logoutCalls  int
	onLogout     func()
}

func (f *fakeAPI) PostLogin(ctx context.Context, req *client.LoginRequest) (*client.RawResponse, error) {
	f.lastLogin = req
	return f.loginResp, f.err
}

func (f *fakeAPI) PostRegister(ctx context.Context, req *client.RegisterRequest) (*client.RawResponse, error) {
	f.lastRegister = req
	return f.registerResp, f.err
}

func (f *fakeAPI) PostLogout(ctx context.Context) error {
	f.logoutCalls++
	if f.onLogout != nil {
		f.onLogout()
	}
	return f.logoutErr
}

type fakeJar struct {
	cleared int
}

func (f *fakeJar) Clear(ctx context.Context) error {
	f.cleared++
	return nil
}

func raw(status int, fields map[string]interface{}) *client.RawResponse {
	return &client.RawResponse{Status: status, Fields: fields}
}

type ManagerSuite struct {
	suite.Suite
	ctx   context.Context
	dir   string
	store *session.Store
	api   *fakeAPI
	jar   *fakeJar
	mgr   *Manager
}

func (s *ManagerSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()
	s.store = s.openStore()
	s.api = &fakeAPI{}
	s.jar = &fakeJar{}
	s.mgr = NewManager(s.api, s.store, zap.NewNop()).WithCookies(s.jar)
}

func (s *ManagerSuite) openStore() *session.Store {
	store, err := session.Open(s.ctx, config.SessionConfig{Backend: "local", Dir: s.dir}, zap.NewNop())
	s.Require().NoError(err)
	return store
}

func (s *ManagerSuite) storedUser() ([]byte, bool) {
	value, ok, err := s.store.Get(s.ctx, common.UserKey)
	s.Require().NoError(err)
	return value, ok
}

func (s *ManagerSuite) TestLogin_PersistsAndRestoresVerbatim() {
	s.api.loginResp = raw(200, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"id": float64(7), "name": "Siti", "email": "siti@example.com", "role": "instructor"},
	})

	outcome := s.mgr.Login(s.ctx, "siti@example.com", "secret")
	s.Require().True(outcome.Success)
	s.Empty(outcome.Error)

	want := &models.User{ID: 7, Name: "Siti", Email: "siti@example.com", Role: models.RoleInstructor}
	s.Equal(want, s.mgr.User())
	s.True(s.mgr.IsAuthenticated())

	// a fresh manager over the same storage restores the same record
	restored := NewManager(s.api, s.openStore(), zap.NewNop())
	s.Require().NoError(restored.Restore(s.ctx))
	s.Equal(want, restored.User())
}

func (s *ManagerSuite) TestLogin_DerivesUserFromFallbacks() {
	s.api.loginResp = raw(200, map[string]interface{}{
		"success": true,
		"user":    map[string]interface{}{"id": float64(3), "name": "Budi"},
	})

	outcome := s.mgr.Login(s.ctx, "budi@example.com", "secret")

	s.Require().True(outcome.Success)
	user := s.mgr.User()
	s.Equal(int64(3), user.ID)
	s.Equal("Budi", user.Name)
	s.Equal("budi@example.com", user.Email)
	s.Equal(models.RoleStudent, user.Role)
	s.Equal("secret", s.api.lastLogin.Password)
}

func (s *ManagerSuite) TestLogin_TopLevelFields() {
	s.api.loginResp = raw(200, map[string]interface{}{
		"data": "ok", "id": float64(9), "name": "Top", "role": "instructor",
	})

	s.Require().True(s.mgr.Login(s.ctx, "top@example.com", "secret").Success)
	s.Equal(int64(9), s.mgr.User().ID)
	s.True(s.mgr.User().IsInstructor())
}

func (s *ManagerSuite) TestLogin_FailureMessages() {
	tests := []struct {
		name string
		resp *client.RawResponse
		want string
	}{
		{"unauthorized", raw(401, map[string]interface{}{"message": "nope"}), MsgInvalidCredentials},
		{"invalid wording", raw(400, map[string]interface{}{"error": "Invalid password"}), MsgInvalidCredentials},
		{"not found status", raw(404, map[string]interface{}{}), MsgAccountNotFound},
		{"tidak ditemukan", raw(400, map[string]interface{}{"detail": "User tidak ditemukan"}), MsgAccountNotFound},
		{"nested message", raw(400, map[string]interface{}{"message": map[string]interface{}{"code": "E1", "message": "Server sibuk"}}), "Server sibuk"},
		{"no message", raw(500, map[string]interface{}{"status": "error"}), msgLoginRejected},
		{"ok without data", raw(200, map[string]interface{}{"message": "Akun diblokir"}), "Akun diblokir"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.api.loginResp = tt.resp
			outcome := s.mgr.Login(s.ctx, "a@b.c", "x")
			s.False(outcome.Success)
			s.Equal(tt.want, outcome.Error)
			s.False(s.mgr.IsAuthenticated())
		})
	}
}

func (s *ManagerSuite) TestLogin_TransportFailure() {
	s.api.err = errors.New("dial tcp: connection refused")

	outcome := s.mgr.Login(s.ctx, "a@b.c", "x")

	s.False(outcome.Success)
	s.Equal(MsgConnectionFailed, outcome.Error)
	_, ok := s.storedUser()
	s.False(ok)
}

func (s *ManagerSuite) TestRegister_Success() {
	s.api.registerResp = raw(201, map[string]interface{}{
		"data": map[string]interface{}{"id": float64(12)},
	})

	outcome := s.mgr.Register(s.ctx, "Ani", "ani@example.com", "secret1", models.RoleInstructor)

	s.Require().True(outcome.Success)
	s.Equal(&models.User{ID: 12, Name: "Ani", Email: "ani@example.com", Role: models.RoleInstructor}, s.mgr.User())
	s.Equal("instructor", s.api.lastRegister.Role)
	_, ok := s.storedUser()
	s.True(ok)
}

func (s *ManagerSuite) TestRegister_RequiresData() {
	s.api.registerResp = raw(200, map[string]interface{}{"status": "success"})

	outcome := s.mgr.Register(s.ctx, "Ani", "ani@example.com", "secret1", models.RoleStudent)

	s.False(outcome.Success)
	s.Equal(msgRegisterRejected, outcome.Error)
}

func (s *ManagerSuite) TestRegister_FailureMessages() {
	tests := []struct {
		name string
		resp *client.RawResponse
		want string
	}{
		{"conflict with data", raw(409, map[string]interface{}{"data": map[string]interface{}{"id": float64(1)}}), MsgEmailTaken},
		{"duplicate wording", raw(400, map[string]interface{}{"error": "Duplicate entry"}), MsgEmailTaken},
		{"sudah terdaftar", raw(400, map[string]interface{}{"message": "Email sudah terdaftar"}), MsgEmailTaken},
		{"missing fields", raw(422, map[string]interface{}{"message": "name is required"}), MsgMissingFields},
		{"other", raw(500, map[string]interface{}{"message": "Database timeout"}), "Database timeout"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.api.registerResp = tt.resp
			outcome := s.mgr.Register(s.ctx, "Ani", "ani@example.com", "secret1", models.RoleStudent)
			s.False(outcome.Success)
			s.Equal(tt.want, outcome.Error)
		})
	}
}

func (s *ManagerSuite) TestRegister_UndecodableResponse() {
	s.api.registerResp = raw(502, nil)

	outcome := s.mgr.Register(s.ctx, "Ani", "ani@example.com", "secret1", models.RoleStudent)

	s.Equal(MsgConnectionFailed, outcome.Error)
}

func (s *ManagerSuite) TestLogout_ClearsLocalStateWhenNetworkFails() {
	s.api.loginResp = raw(200, map[string]interface{}{"status": "success", "data": map[string]interface{}{"id": float64(1)}})
	s.Require().True(s.mgr.Login(s.ctx, "a@b.c", "x").Success)

	s.api.logoutErr = errors.New("network unreachable")
	s.api.onLogout = func() {
		// local state is already gone when the server is contacted
		s.False(s.mgr.IsAuthenticated())
		_, ok := s.storedUser()
		s.False(ok)
	}

	s.mgr.Logout(s.ctx)

	s.Equal(1, s.api.logoutCalls)
	s.Equal(1, s.jar.cleared)
	s.Nil(s.mgr.User())

	restored := NewManager(s.api, s.openStore(), zap.NewNop())
	s.Require().NoError(restored.Restore(s.ctx))
	s.False(restored.IsAuthenticated())
}

func (s *ManagerSuite) TestRestore_CorruptRecordIsRemoved() {
	s.Require().NoError(s.store.Set(s.ctx, common.UserKey, []byte(`{not json`)))

	s.Require().NoError(s.mgr.Restore(s.ctx))

	s.False(s.mgr.IsAuthenticated())
	_, ok := s.storedUser()
	s.False(ok)
}

func (s *ManagerSuite) TestUser_ReturnsCopy() {
	s.Require().NoError(s.store.Set(s.ctx, common.UserKey, []byte(`{"id":1,"name":"A","email":"a@b.c","role":"student"}`)))
	s.Require().NoError(s.mgr.Restore(s.ctx))

	u := s.mgr.User()
	u.Name = "changed"

	s.Equal("A", s.mgr.User().Name)
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func TestDeriveUser_StringID(t *testing.T) {
	user := deriveUser(map[string]interface{}{"data": map[string]interface{}{"id": "42", "name": "Str"}})

	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "Str", user.Name)
}

func TestNewManager_NilLogger(t *testing.T) {
	mgr := NewManager(&fakeAPI{}, nil, nil)
	require.NotNil(t, mgr)
	assert.False(t, mgr.IsAuthenticated())
}
