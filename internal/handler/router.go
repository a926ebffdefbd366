package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/feedmatters/internal/metrics"
	"github.com/hitoshi/feedmatters/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder middleware.SessionFinder
	Logger        *slog.Logger
	CSRFConfig    middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// フォームフロー
	Flows interface {
		FlowSource
		FlowRemover
	}

	// お知らせ（nil可）
	Events AnnouncementSource

	// アバタープロキシ
	AvatarClient  *http.Client
	AvatarGuard   URLValidator
	AvatarMaxSize int64

	// メトリクス
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer
}

// NewRouter は全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeaders → Logging → Recovery → Session → CSRF
//
// OAuthコールバックはIdPからのリダイレクトで届くため、
// 認証ルート（/auth/*）はSession・CSRFの外に配置する。
func NewRouter(deps *RouterDeps) (http.Handler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize templates: %w", err)
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Flows, deps.Metrics, deps.AuthConfig)
	pageHandler := NewPageHandler(templates, deps.Flows, deps.Events)
	feedbackHandler := NewFeedbackHandler(templates, deps.Flows, deps.Metrics)
	avatarHandler := NewAvatarHandler(deps.AvatarClient, deps.AvatarGuard, deps.AvatarMaxSize)

	r := chi.NewRouter()
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(middleware.NewRecoveryMiddleware())

	// --- 運用エンドポイント ---
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	// --- 認証ルート（OAuthフロー） ---
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
	})

	// --- ページと送信 ---
	// Sessionは常にIdentityを注入するだけで、未認証の遮断はページごとの
	// Gateに委ねる。フォームPOSTはCSRFトークン必須。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/", pageHandler.Landing)
		r.Get("/signup", pageHandler.SignUp)
		r.Get("/feedback", pageHandler.Feedback)
		r.Post("/feedback", feedbackHandler.Submit)
		r.Post("/feedback/reset", feedbackHandler.Reset)

		r.With(middleware.RequireAuth).Get("/api/avatar", avatarHandler.Get)
	})

	return r, nil
}
