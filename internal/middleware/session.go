// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/fundswap/internal/model"
)

// SessionCookieName はセッションIDを保持するCookie名。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey      = contextKey("user_id")
	sessionIDContextKey   = contextKey("session_id")
	workspaceIDContextKey = contextKey("workspace_id")
)

// Authenticator はセッションIDからセッションとユーザーを解決する。
// auth.Serviceが実装する。
type Authenticator interface {
	Authenticate(ctx context.Context, sessionID string) (*model.Session, *model.User, error)
}

// NewSessionMiddleware はAuthorizationヘッダーのBearerトークン、
// またはsession_id Cookieからセッションを読み取り検証するミドルウェアを返す。
// 認証済みのユーザーID、セッションID、所属ワークスペースIDをコンテキストに注入する。
// 未認証リクエストには401を返す。
func NewSessionMiddleware(authenticator Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := SessionIDFromRequest(r)
			if sessionID == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			session, user, err := authenticator.Authenticate(r.Context(), sessionID)
			if err != nil {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) {
					slog.Error("failed to authenticate session",
						slog.String("error", err.Error()),
					)
				}
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			setLoggedUserID(r.Context(), user.ID)
			ctx := context.WithValue(r.Context(), userIDContextKey, user.ID)
			ctx = context.WithValue(ctx, sessionIDContextKey, session.ID)
			if user.InWorkspace() {
				ctx = context.WithValue(ctx, workspaceIDContextKey, user.WorkspaceID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRequireWorkspaceMiddleware はワークスペース未参加のユーザーを403で拒否する。
// セッションミドルウェアの後に配置する。
func NewRequireWorkspaceMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := WorkspaceIDFromContext(r.Context()); err != nil {
				WriteErrorResponse(w, http.StatusForbidden, model.NewWorkspaceRequiredError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionIDFromRequest はBearerトークンを優先し、なければCookieからセッションIDを返す。
func SessionIDFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
func SessionIDFromContext(ctx context.Context) (string, error) {
	sessionID, ok := ctx.Value(sessionIDContextKey).(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("session ID not found in context")
	}
	return sessionID, nil
}

// WorkspaceIDFromContext はリクエストコンテキストから所属ワークスペースIDを取得する。
func WorkspaceIDFromContext(ctx context.Context) (string, error) {
	workspaceID, ok := ctx.Value(workspaceIDContextKey).(string)
	if !ok || workspaceID == "" {
		return "", fmt.Errorf("workspace ID not found in context")
	}
	return workspaceID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// ContextWithSessionID はコンテキストにセッションIDを注入する。
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// ContextWithWorkspaceID はコンテキストにワークスペースIDを注入する。
func ContextWithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, workspaceIDContextKey, workspaceID)
}
