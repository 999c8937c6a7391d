package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nascon-platform/internal/config"
	"nascon-platform/internal/model"
	"nascon-platform/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestRouter builds the full router without a service. Every request used
// in these tests is rejected before a handler reaches the service.
func newTestRouter(t *testing.T, ratePerMinute int) (*gin.Engine, *TokenIssuer) {
	t.Helper()
	tokens := NewTokenIssuer(testSecret, time.Hour)
	reg := telemetry.NewRegistry()
	r := NewRouter(Deps{
		Tokens:   tokens,
		Log:      zerolog.Nop(),
		Metrics:  telemetry.NewMetrics(reg),
		Registry: reg,
		Server: config.ServerConfig{
			CORSOrigins:       []string{"*"},
			AuthRatePerMinute: ratePerMinute,
			RequestTimeout:    time.Second,
		},
	})
	return r, tokens
}

func tokenFor(t *testing.T, tokens *TokenIssuer, id int, role model.Role) string {
	t.Helper()
	tok, err := tokens.Issue(model.User{ID: id, Email: "u@nascon.test", Role: role})
	require.NoError(t, err)
	return tok
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func perform(t *testing.T, r http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, errorBody) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var eb errorBody
	if w.Code >= 400 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &eb))
	}
	return w, eb
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t, 100)
	w, _ := perform(t, r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))

	down := NewRouter(Deps{
		Tokens: NewTokenIssuer(testSecret, time.Hour),
		Log:    zerolog.Nop(),
		Ping:   func(context.Context) error { return errors.New("db down") },
	})
	w, _ = perform(t, down, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, 100)
	perform(t, r, http.MethodGet, "/healthz", "", "")

	w, _ := perform(t, r, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nascon_http_requests_total")
}

func TestRequestIDPropagated(t *testing.T) {
	r, _ := newTestRouter(t, 100)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(headerRequestID))
}

func TestAuthGuards(t *testing.T) {
	r, tokens := newTestRouter(t, 100)

	expiredIssuer := NewTokenIssuer(testSecret, time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired := tokenFor(t, expiredIssuer, 1, model.RoleAdmin)

	participant := tokenFor(t, tokens, 4, model.RoleParticipant)
	organizer := tokenFor(t, tokens, 5, model.RoleOrganizer)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantError  string
	}{
		{"missing token", http.MethodGet, "/api/users/profile", "", http.StatusUnauthorized, "Access token required"},
		{"expired token", http.MethodGet, "/api/users/profile", expired, http.StatusUnauthorized, "Token expired"},
		{"invalid token", http.MethodGet, "/api/users/profile", "abc.def.ghi", http.StatusForbidden, "Invalid token"},
		{"admin route as participant", http.MethodGet, "/api/users", participant, http.StatusForbidden, "Insufficient permissions"},
		{"venue create as organizer", http.MethodPost, "/api/venues", organizer, http.StatusForbidden, "Insufficient permissions"},
		{"event create as participant", http.MethodPost, "/api/events", participant, http.StatusForbidden, "Insufficient permissions"},
		{"rounds without token", http.MethodPost, "/api/events/1/rounds", "", http.StatusUnauthorized, "Access token required"},
		{"rounds as participant", http.MethodPost, "/api/events/1/rounds", participant, http.StatusForbidden, "Insufficient permissions"},
		{"score as participant", http.MethodPost, "/api/judging", participant, http.StatusForbidden, "Insufficient permissions"},
		{"payments as organizer", http.MethodGet, "/api/payments", organizer, http.StatusForbidden, "Insufficient permissions"},
		{"other user's events", http.MethodGet, "/api/users/9/events", participant, http.StatusForbidden, "Cannot act on behalf of another user"},
		{"other user's bookings", http.MethodGet, "/api/accommodations/user/9", participant, http.StatusForbidden, "Cannot act on behalf of another user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, eb := perform(t, r, tt.method, tt.path, "", tt.token)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, eb.Error)
		})
	}
}

func TestRefreshTokenRejections(t *testing.T) {
	r, tokens := newTestRouter(t, 100)
	access := tokenFor(t, tokens, 4, model.RoleParticipant)

	stale := NewTokenIssuer(testSecret, time.Minute).WithRefreshTTL(time.Minute)
	stale.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := stale.IssueRefresh(model.User{ID: 4, Role: model.RoleParticipant})
	require.NoError(t, err)

	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"no body", "", "Refresh token required"},
		{"empty token", `{"refresh_token":""}`, "Refresh token required"},
		{"garbage", `{"refresh_token":"abc.def.ghi"}`, "Invalid refresh token"},
		{"access token", `{"refresh_token":"` + access + `"}`, "Invalid refresh token"},
		{"expired", `{"refresh_token":"` + expired + `"}`, "Invalid refresh token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, eb := perform(t, r, http.MethodPost, "/api/users/refresh-token", tt.body, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.wantError, eb.Error)
			assert.Equal(t, "UNAUTHORIZED", eb.Code)
		})
	}
}

func TestRefreshTokenNotAcceptedAsAccess(t *testing.T) {
	r, tokens := newTestRouter(t, 100)
	refresh, err := tokens.IssueRefresh(model.User{ID: 1, Role: model.RoleAdmin})
	require.NoError(t, err)

	w, eb := perform(t, r, http.MethodGet, "/api/users", "", refresh)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Invalid token", eb.Error)
}

func TestAuthCookieFallback(t *testing.T) {
	r, tokens := newTestRouter(t, 100)
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: tokenFor(t, tokens, 4, model.RoleParticipant)})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	// authenticated through the cookie, then rejected by the role guard
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Insufficient permissions")
}

func TestOnBehalfRejected(t *testing.T) {
	r, tokens := newTestRouter(t, 100)
	participant := tokenFor(t, tokens, 4, model.RoleParticipant)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/accommodations/1/book"},
		{http.MethodDelete, "/api/accommodations/1/book"},
		{http.MethodPost, "/api/events/1/register"},
	} {
		w, eb := perform(t, r, tc.method, tc.path, `{"user_id": 7}`, participant)
		assert.Equal(t, http.StatusForbidden, w.Code, tc.path)
		assert.Equal(t, "FORBIDDEN", eb.Code, tc.path)
	}
}

func TestRequestValidation(t *testing.T) {
	r, tokens := newTestRouter(t, 100)
	organizer := tokenFor(t, tokens, 5, model.RoleOrganizer)
	judge := tokenFor(t, tokens, 6, model.RoleJudge)
	admin := tokenFor(t, tokens, 1, model.RoleAdmin)

	tests := []struct {
		name      string
		method    string
		path      string
		body      string
		token     string
		wantError string
	}{
		{
			"bad json", http.MethodPost, "/api/events", `{"event_name":`, organizer,
			"Invalid JSON body",
		},
		{
			"unknown category", http.MethodPost, "/api/events",
			`{"event_name":"Hackathon","category":"Cooking","event_date":"2026-03-01","venue_id":1,"max_participants":10}`,
			organizer, "Invalid event category: category",
		},
		{
			"bad date", http.MethodPut, "/api/events/3",
			`{"event_name":"Hackathon","category":"Tech Events","event_date":"01/03/2026","venue_id":1,"max_participants":10}`,
			organizer, "Invalid format: event_date",
		},
		{
			"zero capacity", http.MethodPost, "/api/events",
			`{"event_name":"Hackathon","category":"Tech Events","event_date":"2026-03-01","venue_id":1,"max_participants":0}`,
			organizer, "Field is required: max_participants",
		},
		{
			"round date missing", http.MethodPost, "/api/events/3/rounds",
			`{"prelims_date":"2026-03-01","semifinals_date":"2026-03-02"}`, organizer,
			"Field is required: finals_date",
		},
		{
			"bad round date", http.MethodPost, "/api/events/3/rounds",
			`{"prelims_date":"2026-03-01","semifinals_date":"March 2","finals_date":"2026-03-03"}`, organizer,
			"Invalid format: semifinals_date",
		},
		{
			"score above range", http.MethodPost, "/api/judging",
			`{"event_id":1,"participant_id":2,"score":150}`, judge,
			"Field exceeds maximum value: score",
		},
		{
			"score below range", http.MethodPost, "/api/judging",
			`{"event_id":1,"participant_id":2,"score":-1}`, judge,
			"Field is below minimum value: score",
		},
		{
			"score missing", http.MethodPost, "/api/judging",
			`{"event_id":1,"participant_id":2}`, judge,
			"Field is required: score",
		},
		{
			"bad package", http.MethodPost, "/api/sponsorships",
			`{"sponsor_id":1,"event_id":1,"package":"Bronze","amount":100}`, admin,
			"Value must be one of Title Gold Silver: package",
		},
		{
			"bad user role", http.MethodPost, "/api/users",
			`{"name":"A","email":"a@nascon.test","password":"longenough","role":"king"}`, admin,
			"Invalid role: role",
		},
		{
			"short password", http.MethodPost, "/api/users/register",
			`{"name":"A","email":"a@nascon.test","password":"short"}`, "",
			"Field is below minimum length: password",
		},
		{
			"bad email", http.MethodPost, "/api/users/login",
			`{"email":"nope","password":"whatever"}`, "",
			"Invalid format: email",
		},
		{
			"bad path id", http.MethodGet, "/api/events/abc", "", "",
			"Invalid id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, eb := perform(t, r, tt.method, tt.path, tt.body, tt.token)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantError, eb.Error)
			assert.Equal(t, "INVALID_INPUT", eb.Code)
		})
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	r, _ := newTestRouter(t, 100)
	w, eb := perform(t, r, http.MethodPost, "/api/users/register",
		`{"name":"Mallory","email":"m@nascon.test","password":"longenough","role":"admin"}`, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Role cannot be self-assigned", eb.Error)
}

func TestAuthRateLimit(t *testing.T) {
	r, _ := newTestRouter(t, 2)
	body := `{"email":"nope","password":"x"}`

	for i := 0; i < 2; i++ {
		w, _ := perform(t, r, http.MethodPost, "/api/users/login", body, "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	}
	w, eb := perform(t, r, http.MethodPost, "/api/users/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", eb.Code)

	// the limit only covers the auth endpoints
	w, _ = perform(t, r, http.MethodGet, "/api/events/categories", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCategories(t *testing.T) {
	r, _ := newTestRouter(t, 100)
	w, _ := perform(t, r, http.MethodGet, "/api/events/categories", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []model.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, len(model.Categories()))
}

func TestCORSConfig(t *testing.T) {
	all := corsConfig([]string{"*"})
	assert.True(t, all.AllowAllOrigins)
	assert.Empty(t, all.AllowOrigins)
	assert.False(t, all.AllowCredentials)

	some := corsConfig([]string{"https://nascon.example"})
	assert.False(t, some.AllowAllOrigins)
	assert.Equal(t, []string{"https://nascon.example"}, some.AllowOrigins)
	assert.True(t, some.AllowCredentials)
}
