// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/storefront/internal/browser"
	"github.com/hitoshi/storefront/internal/config"
	"github.com/hitoshi/storefront/internal/database"
	"github.com/hitoshi/storefront/internal/guard"
	"github.com/hitoshi/storefront/internal/handler"
	"github.com/hitoshi/storefront/internal/identity"
	"github.com/hitoshi/storefront/internal/logger"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/repository"
	"github.com/hitoshi/storefront/internal/security"
	"github.com/hitoshi/storefront/internal/session"
	"github.com/hitoshi/storefront/internal/upstream"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
		slog.String("identity_base_url", cfg.IdentityBaseURL),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はBFFサーバーモードで起動する。
// 上流クライアント・ブラウザセッション管理・全ハンドラーをワイヤリングし、
// HTTPサーバーを起動する。SIGINTまたはSIGTERMシグナルを受信すると
// グレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. 上流ベースURLの検証
	if err := security.ValidateBaseURL(cfg.IdentityBaseURL); err != nil {
		return fmt.Errorf("invalid IDENTITY_BASE_URL: %w", err)
	}
	if err := security.ValidateBaseURL(cfg.APIBaseURL); err != nil {
		return fmt.Errorf("invalid API_BASE_URL: %w", err)
	}

	// 2. 上流呼び出し用HTTPクライアント
	httpClient := newOutboundClient(cfg)

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. クレデンシャルストア
	// DATABASE_URLが設定されている場合はPostgresに永続化し、
	// プロセス再起動後もログイン状態を維持する。未設定時はインメモリ。
	var credentials session.CredentialStore
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := database.Verify(context.Background(), db, 5*time.Second); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		slog.Info("database connection established")
		credentials = repository.NewPostgresCredentialRepo(db)
	} else {
		slog.Info("DATABASE_URL not set, using in-memory credential store")
		credentials = repository.NewMemoryCredentialRepo()
	}

	// 5. 上流クライアント
	identityClient := identity.NewClient(
		httpClient, slog.Default(),
		cfg.TokenEndpoint(), cfg.OAuthClientID, cfg.OAuthClientSecret,
	)
	upstreamClient := upstream.NewClient(httpClient, slog.Default(), collector, cfg.APIBaseURL)

	// 6. ブラウザセッション状態の管理
	manager := browser.NewManager(browser.Deps{
		Credentials:  credentials,
		Exchanger:    identityClient,
		Upstream:     upstreamClient,
		Collector:    collector,
		NoticeWindow: cfg.OrderNoticeWindow,
	}, cfg.BrowserSessionTTL)
	defer manager.Stop()

	// 7. レートリミッター
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigFromPerMinute(cfg.RateLimitGeneral, cfg.RateLimitLogin),
	)
	defer rateLimiter.Stop()

	// 8. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		States: manager,
		SessionConfig: middleware.BrowserSessionConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			MaxAge:       cfg.SessionMaxAge,
		},
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		Sanitizer: security.NewProductSanitizer(),
		Guard:     guard.NewRegistry(guard.DefaultViews()...),
		Collector: collector,

		Gatherer: registry,
	})

	// 9. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("BFF server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down BFF server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("BFF server stopped gracefully")
	return nil
}

// newOutboundClient は上流呼び出し用のHTTPクライアントを生成する。
// 本番ではSSRF防止付きクライアントを使用し、設定済みベースURLの
// 明示ポートのみ追加で許可する。ALLOW_PRIVATE_UPSTREAM=trueの
// ローカル開発環境ではプレーンなクライアントにフォールバックする。
func newOutboundClient(cfg *config.Config) *http.Client {
	if cfg.AllowPrivateUpstream {
		slog.Warn("SSRF protection disabled for outbound requests (ALLOW_PRIVATE_UPSTREAM=true)")
		return security.NewPlainClient(cfg.UpstreamTimeout)
	}

	var extraPorts []int
	for _, rawURL := range []string{cfg.IdentityBaseURL, cfg.APIBaseURL} {
		if port := security.ExplicitPort(rawURL); port != 0 {
			extraPorts = append(extraPorts, port)
		}
	}
	return security.NewSafeClient(cfg.UpstreamTimeout, extraPorts...)
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
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
