package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/storefront/internal/guard"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	States            middleware.StateAcquirer
	SessionConfig     middleware.BrowserSessionConfig
	CSRFConfig        middleware.CSRFConfig
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// ドメイン依存
	Sanitizer security.ProductSanitizer
	Guard     *guard.Registry
	Collector metrics.MetricsCollector

	// メトリクス公開用。nilの場合は/metricsを公開しない
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → CSRF → BrowserSession → RateLimit(General)
//
// /metricsと/healthzはブラウザセッションを必要としないため、チェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	authHandler := NewAuthHandler(deps.Collector)
	productHandler := NewProductHandler(deps.Sanitizer)
	cartHandler := NewCartHandler()
	orderHandler := NewOrderHandler()
	navHandler := NewNavigationHandler(deps.Guard)

	// --- ブラウザセッション不要のルート ---

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.SetupMetricsRoute(deps.Gatherer))
	}

	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- ブラウザセッションに紐づくルート ---
	// ミドルウェアスタック: CSRF → BrowserSession → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(middleware.NewBrowserSessionMiddleware(deps.States, deps.SessionConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証
		r.Route("/auth", func(r chi.Router) {
			// ログインは総当たり対策の専用レート制限を追加
			r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		// ナビゲーション判定
		r.Get("/api/navigation", navHandler.Decide)

		// 商品カタログ
		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Post("/", productHandler.CreateProduct)
			r.Get("/search", productHandler.SearchProducts)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", productHandler.GetProduct)
				r.Put("/", productHandler.UpdateProduct)
				r.Delete("/", productHandler.DeleteProduct)
			})
		})

		// カート
		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)

			r.Post("/items", cartHandler.AddItem)
			r.Route("/items/{id}", func(r chi.Router) {
				r.Patch("/", cartHandler.ChangeQuantity)
				r.Delete("/", cartHandler.RemoveItem)
			})
		})

		// 注文
		r.Route("/api/orders", func(r chi.Router) {
			r.Post("/", orderHandler.Submit)
			r.Get("/", orderHandler.ListOrders)
			r.Get("/my-orders", orderHandler.MyOrders)
			r.Get("/submission", orderHandler.SubmissionStatus)
			r.Post("/submission/dismiss", orderHandler.DismissSubmission)
			r.Get("/{id}", orderHandler.GetOrder)
		})
	})

	return r
}
