package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/fundswap/internal/metrics"
	"github.com/hitoshi/fundswap/internal/middleware"
	"github.com/hitoshi/fundswap/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

// mockRouterAuthenticator はトークンからユーザーを解決するテスト用Authenticator。
type mockRouterAuthenticator struct {
	users map[string]*model.User
}

func (m *mockRouterAuthenticator) Authenticate(_ context.Context, sessionID string) (*model.Session, *model.User, error) {
	u, ok := m.users[sessionID]
	if !ok {
		return nil, nil, model.NewUnauthorizedError()
	}
	return &model.Session{ID: sessionID, UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}, u, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate: 100, GeneralBurst: 100,
		SwipeRate: 0.01, SwipeBurst: 1,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	return NewRouter(&RouterDeps{
		Logger: slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)),
		Authenticator: &mockRouterAuthenticator{users: map[string]*model.User{
			"member-token": {ID: "u1", Name: "alice", WorkspaceID: "ws-1"},
			"loner-token":  {ID: "u2", Name: "bob"},
		}},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		RequestObserver:   collector,
		HealthChecker:     &mockHealthChecker{},
		DatasetStats:      &mockDatasetStats{},
		MetricsGatherer:   reg,
		AuthService:       &mockAuthService{},
		WorkspaceService:  &mockWorkspaceService{},
		FeedService:       &mockFeedService{},
		ProgressService:   &mockProgressService{},
		SwipeService:      &mockSwipeService{},
		ReflectionService: &mockReflectionService{},
		MatchService:      &mockMatchService{},
	})
}

func doRequest(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Access(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", "", http.StatusOK},
		{"users are public", http.MethodGet, "/api/auth/users", "", "", http.StatusOK},
		{"me requires session", http.MethodGet, "/api/auth/me", "", "", http.StatusUnauthorized},
		{"me with session", http.MethodGet, "/api/auth/me", "loner-token", "", http.StatusOK},
		{"current without workspace", http.MethodGet, "/api/workspaces/current", "loner-token", "", http.StatusOK},
		{"feed requires workspace", http.MethodGet, "/api/feed/archive", "loner-token", "", http.StatusForbidden},
		{"feed for member", http.MethodGet, "/api/feed/archive", "member-token", "", http.StatusOK},
		{"feed invalid mode", http.MethodGet, "/api/feed/weekly", "member-token", "", http.StatusBadRequest},
		{"progress put", http.MethodPut, "/api/progress/recent", "member-token", `{"cursor":3}`, http.StatusOK},
		{"matches list", http.MethodGet, "/api/matches", "member-token", "", http.StatusOK},
		{"match detail not found", http.MethodGet, "/api/matches/nope", "member-token", "", http.StatusNotFound},
		{"unknown token", http.MethodGet, "/api/matches", "bad-token", "", http.StatusUnauthorized},
		{"preflight", http.MethodOptions, "/api/swipes/archive", "", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.method, tt.path, tt.token, tt.body)
			if w.Code != tt.want {
				t.Errorf("%s %s: status = %d, want %d (body: %s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRouter_SwipeRateLimit(t *testing.T) {
	router := newTestRouter(t)
	body := `{"fundraiseId":"f-1","decision":"like"}`

	if w := doRequest(router, http.MethodPost, "/api/swipes/archive", "member-token", body); w.Code != http.StatusOK {
		t.Fatalf("first swipe status = %d, want %d", w.Code, http.StatusOK)
	}
	w := doRequest(router, http.MethodPost, "/api/swipes/archive", "member-token", body)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second swipe status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// 一般のレート制限には影響しない
	if w := doRequest(router, http.MethodGet, "/api/matches", "member-token", ""); w.Code != http.StatusOK {
		t.Errorf("matches status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRouter_MetricsRecordsRequests(t *testing.T) {
	router := newTestRouter(t)

	doRequest(router, http.MethodGet, "/health", "", "")
	w := doRequest(router, http.MethodGet, "/metrics", "", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `fundswap_http_status_total{status_code="200"}`) {
		t.Errorf("metrics output missing http status counter:\n%s", w.Body.String())
	}
}
