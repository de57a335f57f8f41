package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fundswap/internal/dataset"
	"github.com/hitoshi/fundswap/internal/match"
	"github.com/hitoshi/fundswap/internal/middleware"
	"github.com/hitoshi/fundswap/internal/model"
	"github.com/hitoshi/fundswap/internal/swipe"
)

// --- モック定義 ---

type mockAuthService struct {
	listUsersFn      func(ctx context.Context) ([]*model.User, error)
	loginFn          func(ctx context.Context, name string) (*model.Session, *model.User, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) ListUsers(ctx context.Context) ([]*model.User, error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(ctx)
	}
	return []*model.User{}, nil
}

func (m *mockAuthService) Login(ctx context.Context, name string) (*model.Session, *model.User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, name)
	}
	return nil, nil, model.NewUserNotFoundError(name)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, userID)
	}
	return &model.User{ID: userID, Name: "alice", DisplayName: "Alice"}, nil
}

type mockWorkspaceService struct {
	getFn     func(ctx context.Context, workspaceID string) (*model.Workspace, error)
	createFn  func(ctx context.Context, userID, name string) (*model.Workspace, error)
	joinFn    func(ctx context.Context, userID, inviteCode string) (*model.Workspace, error)
	currentFn func(ctx context.Context, userID string) (*model.Workspace, []*model.User, error)
}

func (m *mockWorkspaceService) Get(ctx context.Context, workspaceID string) (*model.Workspace, error) {
	if m.getFn != nil {
		return m.getFn(ctx, workspaceID)
	}
	return &model.Workspace{ID: workspaceID, Name: "Team", Seed: "seed-1", InviteCode: "ABC234"}, nil
}

func (m *mockWorkspaceService) Create(ctx context.Context, userID, name string) (*model.Workspace, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, name)
	}
	return nil, nil
}

func (m *mockWorkspaceService) Join(ctx context.Context, userID, inviteCode string) (*model.Workspace, error) {
	if m.joinFn != nil {
		return m.joinFn(ctx, userID, inviteCode)
	}
	return nil, nil
}

func (m *mockWorkspaceService) Current(ctx context.Context, userID string) (*model.Workspace, []*model.User, error) {
	if m.currentFn != nil {
		return m.currentFn(ctx, userID)
	}
	return nil, []*model.User{}, nil
}

type mockFeedService struct {
	getFeedFn func(ctx context.Context, mode model.Mode, seed string) ([]model.Fundraise, error)
}

func (m *mockFeedService) GetFeed(ctx context.Context, mode model.Mode, seed string) ([]model.Fundraise, error) {
	if m.getFeedFn != nil {
		return m.getFeedFn(ctx, mode, seed)
	}
	return []model.Fundraise{}, nil
}

type mockProgressService struct {
	getCursorFn    func(ctx context.Context, userID string, mode model.Mode) (*model.ProgressCursor, error)
	setCursorFn    func(ctx context.Context, userID string, mode model.Mode, requested int) (*model.ProgressCursor, error)
	clampForFeedFn func(ctx context.Context, userID string, mode model.Mode, feedLength int) (int, error)
}

func (m *mockProgressService) GetCursor(ctx context.Context, userID string, mode model.Mode) (*model.ProgressCursor, error) {
	if m.getCursorFn != nil {
		return m.getCursorFn(ctx, userID, mode)
	}
	return &model.ProgressCursor{UserID: userID, Mode: mode}, nil
}

func (m *mockProgressService) SetCursor(ctx context.Context, userID string, mode model.Mode, requested int) (*model.ProgressCursor, error) {
	if m.setCursorFn != nil {
		return m.setCursorFn(ctx, userID, mode, requested)
	}
	return &model.ProgressCursor{UserID: userID, Mode: mode, CursorIndex: requested}, nil
}

func (m *mockProgressService) ClampForFeed(ctx context.Context, userID string, mode model.Mode, feedLength int) (int, error) {
	if m.clampForFeedFn != nil {
		return m.clampForFeedFn(ctx, userID, mode, feedLength)
	}
	return 0, nil
}

type mockSwipeService struct {
	recordSwipeFn func(ctx context.Context, userID, workspaceID, fundraiseID string, mode model.Mode, decision model.Decision) (*swipe.Result, error)
}

func (m *mockSwipeService) RecordSwipe(ctx context.Context, userID, workspaceID, fundraiseID string, mode model.Mode, decision model.Decision) (*swipe.Result, error) {
	if m.recordSwipeFn != nil {
		return m.recordSwipeFn(ctx, userID, workspaceID, fundraiseID, mode, decision)
	}
	return &swipe.Result{SwipeID: "swipe-1", Decision: decision}, nil
}

type mockReflectionService struct {
	saveFn func(ctx context.Context, userID, swipeID string, chips []string, note string) (*model.Reflection, error)
}

func (m *mockReflectionService) Save(ctx context.Context, userID, swipeID string, chips []string, note string) (*model.Reflection, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, userID, swipeID, chips, note)
	}
	return &model.Reflection{ID: "ref-1", SwipeID: swipeID, UserID: userID, Chips: chips}, nil
}

type mockMatchService struct {
	listFn func(ctx context.Context, workspaceID string) ([]*match.Summary, error)
	getFn  func(ctx context.Context, workspaceID, matchID string) (*match.Summary, error)
}

func (m *mockMatchService) List(ctx context.Context, workspaceID string) ([]*match.Summary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, workspaceID)
	}
	return []*match.Summary{}, nil
}

func (m *mockMatchService) Get(ctx context.Context, workspaceID, matchID string) (*match.Summary, error) {
	if m.getFn != nil {
		return m.getFn(ctx, workspaceID, matchID)
	}
	return nil, model.NewMatchNotFoundError(matchID)
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(context.Context) error { return m.err }

type mockDatasetStats struct {
	stats dataset.Stats
	err   error
}

func (m *mockDatasetStats) Stats(context.Context) (dataset.Stats, error) { return m.stats, m.err }

// --- ヘルパー ---

// newMemberRequest はワークスペース参加済みユーザーのコンテキスト付きリクエストを生成する。
func newMemberRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.ContextWithUserID(req.Context(), "user-1")
	ctx = middleware.ContextWithSessionID(ctx, "session-1")
	ctx = middleware.ContextWithWorkspaceID(ctx, "ws-1")
	return req.WithContext(ctx)
}

// withURLParam はchiのURLパラメータをリクエストに設定する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
	return v
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Errorf("status = %d, want %d (body: %s)", w.Code, status, w.Body.String())
	}
	body := decodeBody[middleware.ErrorResponseBody](t, w)
	if body.Code != code {
		t.Errorf("code = %q, want %q", body.Code, code)
	}
}
