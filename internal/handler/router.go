package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fundswap/internal/metrics"
	"github.com/hitoshi/fundswap/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	RequestObserver   middleware.RequestObserver

	// 運用
	HealthChecker   HealthChecker
	DatasetStats    DatasetStatter
	MetricsGatherer prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ワークスペース
	WorkspaceService WorkspaceServiceInterface

	// フィードと進捗
	FeedService     FeedServiceInterface
	ProgressService ProgressServiceInterface

	// スワイプ、リフレクション、マッチ
	SwipeService      SwipeServiceInterface
	ReflectionService ReflectionServiceInterface
	MatchService      MatchServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → Logging → Session → RateLimit(General) → RequireWorkspace
//
// /health、/metrics、ユーザー一覧、ログインは認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.RequestObserver))

	healthHandler := NewHealthHandler(deps.HealthChecker, deps.DatasetStats)
	authHandler := NewAuthHandler(deps.AuthService, deps.WorkspaceService, deps.AuthConfig)
	workspaceHandler := NewWorkspaceHandler(deps.WorkspaceService)
	feedHandler := NewFeedHandler(deps.FeedService, deps.ProgressService, deps.WorkspaceService)
	swipeHandler := NewSwipeHandler(deps.SwipeService, deps.ReflectionService)
	matchHandler := NewMatchHandler(deps.MatchService)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Health)
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}
	r.Get("/api/auth/users", authHandler.ListUsers)
	r.Post("/api/auth/login", authHandler.Login)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Authenticator))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Post("/api/auth/logout", authHandler.Logout)
		r.Get("/api/auth/me", authHandler.Me)

		r.Route("/api/workspaces", func(r chi.Router) {
			r.Post("/", workspaceHandler.Create)
			r.Post("/join", workspaceHandler.Join)
			r.Get("/current", workspaceHandler.Current)
		})

		// --- ワークスペース参加が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireWorkspaceMiddleware())

			r.Get("/api/feed/{mode}", feedHandler.GetFeed)
			r.Get("/api/progress/{mode}", feedHandler.GetProgress)
			r.Put("/api/progress/{mode}", feedHandler.UpdateProgress)

			// スワイプは専用のレート制限を追加
			r.With(deps.RateLimiter.SwipeMiddleware()).Post("/api/swipes/{mode}", swipeHandler.RecordSwipe)
			r.Post("/api/reflections", swipeHandler.SaveReflection)

			r.Get("/api/matches", matchHandler.ListMatches)
			r.Get("/api/matches/{id}", matchHandler.GetMatch)
		})
	})

	return r
}
