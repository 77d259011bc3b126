package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/rentd/internal/domain/model"
	mockauth "github.com/dealerops/rentd/internal/mocks/auth"
	"github.com/dealerops/rentd/internal/service"
)

// stubDumper is an in-memory TableDumper for backup endpoint tests.
type stubDumper struct {
	replaced map[string][]map[string]any
}

func (d *stubDumper) DumpTable(_ context.Context, table string) ([]map[string]any, error) {
	return []map[string]any{{"id": table + "-1"}}, nil
}

func (d *stubDumper) ReplaceTableRows(_ context.Context, _ string, _ []map[string]any) error {
	return nil
}

func (d *stubDumper) ReplaceAllTables(_ context.Context, _ []string, data map[string][]map[string]any) error {
	d.replaced = data
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *mockauth.MemorySessionStore) {
	t.Helper()

	store := mockauth.NewMemorySessionStore()
	authSvc := service.NewAuthService(service.AuthServiceOptions{
		Provider: mockauth.NewMockAuthProvider(),
		Sessions: store,
		Roles:    mockauth.StaticRoleMapper{AdminGroup: "admins", AgentGroup: "rental-agents"},
	})

	backupSvc := service.NewBackupService(service.BackupServiceOptions{
		Dumper: &stubDumper{},
		Guard: func(ctx context.Context, _ []string, fn func(context.Context) error) error {
			return fn(ctx)
		},
	})

	router := NewRouter(RouterServices{
		Backup: backupSvc,
		Auth:   authSvc,
	})
	return router, store
}

func sessionCookieFor(t *testing.T, store *mockauth.MemorySessionStore, groups []string) *http.Cookie {
	t.Helper()

	provider := mockauth.NewMockAuthProvider()
	provider.DefaultStaff.Groups = groups
	svc := service.NewAuthService(service.AuthServiceOptions{
		Provider: provider,
		Sessions: store,
		Roles:    mockauth.StaticRoleMapper{AdminGroup: "admins", AgentGroup: "rental-agents"},
	})
	result, err := svc.CompleteLogin(context.Background(), service.CompleteLoginInput{
		Code: "dev", State: "s", Nonce: "n",
	})
	require.NoError(t, err)
	return &http.Cookie{Name: sessionCookieName, Value: result.Session.ID}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAdminRoutesRequireSession(t *testing.T) {
	router, _ := newTestRouter(t)

	r := httptest.NewRequest(http.MethodGet, "/api/cars", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginCallbackAndMe(t *testing.T) {
	router, _ := newTestRouter(t)

	// Begin login.
	r := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusFound, w.Code)

	cookies := w.Result().Cookies()
	var state, nonce *http.Cookie
	for _, c := range cookies {
		switch c.Name {
		case "oauth_state":
			state = c
		case "oauth_nonce":
			nonce = c
		}
	}
	require.NotNil(t, state)
	require.NotNil(t, nonce)

	// Complete the callback with the state the login handed out.
	r = httptest.NewRequest(http.MethodGet, "/auth/callback?code=dev&state="+state.Value, nil)
	r.AddCookie(state)
	r.AddCookie(nonce)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusFound, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			session = c
		}
	}
	require.NotNil(t, session)

	// The session authenticates /auth/me.
	r = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.AddCookie(session)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	var me struct {
		Authenticated bool `json:"authenticated"`
		User          struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	decodeBody(t, w, &me)
	assert.True(t, me.Authenticated)
	assert.Equal(t, "agent", me.User.Role)
}

func TestBackupExportForbiddenForAgents(t *testing.T) {
	router, store := newTestRouter(t)
	cookie := sessionCookieFor(t, store, []string{"rental-agents"})

	r := httptest.NewRequest(http.MethodGet, "/api/backup/export", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBackupExportAsAdmin(t *testing.T) {
	router, store := newTestRouter(t)
	cookie := sessionCookieFor(t, store, []string{"admins"})

	r := httptest.NewRequest(http.MethodGet, "/api/backup/export", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "rentd-backup-")

	var file model.BackupFile
	decodeBody(t, w, &file)
	assert.Equal(t, model.BackupVersion, file.Version)
	assert.Len(t, file.Tables, len(model.SyncedTables()))
}
