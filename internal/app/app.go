package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/fundswap/internal/auth"
	"github.com/hitoshi/fundswap/internal/config"
	"github.com/hitoshi/fundswap/internal/database"
	"github.com/hitoshi/fundswap/internal/dataset"
	"github.com/hitoshi/fundswap/internal/feed"
	"github.com/hitoshi/fundswap/internal/handler"
	"github.com/hitoshi/fundswap/internal/logger"
	"github.com/hitoshi/fundswap/internal/match"
	"github.com/hitoshi/fundswap/internal/metrics"
	"github.com/hitoshi/fundswap/internal/middleware"
	"github.com/hitoshi/fundswap/internal/progress"
	"github.com/hitoshi/fundswap/internal/reflection"
	"github.com/hitoshi/fundswap/internal/repository"
	"github.com/hitoshi/fundswap/internal/security"
	"github.com/hitoshi/fundswap/internal/swipe"
	"github.com/hitoshi/fundswap/internal/user"
	"github.com/hitoshi/fundswap/internal/workspace"
	"github.com/hitoshi/fundswap/internal/worker/cleanup"
)

const dbPingTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにし、読み込み後にレベルを反映する
	logger.SetupDefault(w, "info")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.LogLevel)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg, seedFileArg(args))
	default:
		return runServe(cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// server はAPIサーバーの構成要素をまとめたもの。
type server struct {
	router      http.Handler
	store       *dataset.Store
	rateLimiter *middleware.RateLimiter
}

// newRecentSource は直近モードのデータソースを返す。
// RecentFeedURLが設定されていればRSS/Atomから、なければCSVファイルから読み込む。
func newRecentSource(cfg *config.Config, log *slog.Logger) dataset.Source {
	if cfg.RecentFeedURL != "" {
		return dataset.NewFeedSource(
			cfg.RecentFeedURL, security.NewURLGuard(),
			cfg.DatasetFetchTimeout, cfg.DatasetMaxSize, log,
		)
	}
	return dataset.NewCSVFileSource(cfg.RecentDatasetPath, log)
}

// buildServer はDB接続とレジストリから全依存関係をワイヤリングする。
func buildServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry, log *slog.Logger) *server {
	collector := metrics.NewCollector(reg)

	// リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	workspaceRepo := repository.NewPostgresWorkspaceRepo(db)
	swipeRepo := repository.NewPostgresSwipeRepo(db)
	matchRepo := repository.NewPostgresMatchRepo(db)
	progressRepo := repository.NewPostgresProgressRepo(db)
	reflectionRepo := repository.NewPostgresReflectionRepo(db)

	// データセット
	sanitizer := security.NewTextSanitizer()
	store := dataset.NewStore(
		dataset.NewCSVFileSource(cfg.ArchiveDatasetPath, log),
		newRecentSource(cfg, log),
		dataset.NewLoader(sanitizer, log),
		collector, log,
	)

	// ドメインサービス
	assembler := feed.NewAssembler(store, collector)
	authService := auth.NewService(userRepo, sessionRepo,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge}, log)
	workspaceService := workspace.NewService(workspaceRepo, userRepo, log)
	progressService := progress.NewService(progressRepo, assembler)
	swipeService := swipe.NewService(swipeRepo, matchRepo, userRepo, workspaceRepo, assembler, collector, log)
	matchService := match.NewService(matchRepo, swipeRepo, userRepo, reflectionRepo, assembler)
	reflectionService := reflection.NewService(swipeRepo, reflectionRepo, sanitizer)

	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitSwipe),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		Authenticator:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		RequestObserver:   collector,

		HealthChecker:   db,
		DatasetStats:    assembler,
		MetricsGatherer: reg,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		WorkspaceService:  workspaceService,
		FeedService:       assembler,
		ProgressService:   progressService,
		SwipeService:      swipeService,
		ReflectionService: reflectionService,
		MatchService:      matchService,
	})

	return &server{router: router, store: store, rateLimiter: rateLimiter}
}

// newRegistry はプロセスとGoランタイムのメトリクスを含むレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	srv := buildServer(cfg, db, newRegistry(), slog.Default())
	defer srv.rateLimiter.Stop()

	// 最初のリクエストを待たずにデータセットを読み込んでおく。
	// 失敗しても次のリクエストで再試行される。
	go func() {
		if err := srv.store.Ensure(context.Background()); err != nil {
			slog.Warn("dataset warmup failed", slog.String("error", err.Error()))
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", httpServer.Addr),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除を起動時とSessionCleanupIntervalごとに行う。
func runWorker(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	cleanupJob := cleanup.NewCleanupJob(repository.NewPostgresSessionRepo(db), slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
	)

	cleanupJob.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
	return nil
}

// runSeed はYAMLファイルのユーザーを登録する。
// pathが空の場合はSEED_USERS_FILEを使う。
func runSeed(cfg *config.Config, path string) error {
	if path == "" {
		path = cfg.SeedUsersFile
	}
	if path == "" {
		return fmt.Errorf("seed file is required (argument or SEED_USERS_FILE)")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	seeder := user.NewSeeder(repository.NewPostgresUserRepo(db), slog.Default())
	n, err := seeder.SeedFromFile(context.Background(), path)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("seed completed",
		slog.String("file", path),
		slog.Int("users", n),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
