package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/soo/honeyboard/internal/metrics"
	"github.com/soo/honeyboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ヘルスチェック
	HealthChecker HealthChecker

	// ドメインサービス
	AuthService       AuthServiceInterface
	BoardService      BoardServiceInterface
	UserService       UserServiceInterface
	EngagementService EngagementServiceInterface

	// メトリクス（nilの場合は記録・公開なし）
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → SecurityHeaders → Metrics → Auth → RateLimit(General)
//
// 認証ルート（/auth/*）、/health、/metricsはAuth以降のチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewMetricsMiddleware(statusRecorderOrNil(deps.Metrics)))

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics)
	boardHandler := NewBoardHandler(deps.BoardService, deps.Metrics)
	userHandler := NewUserHandler(deps.UserService, deps.EngagementService, deps.Metrics)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Health)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/kakao/login-url", authHandler.LoginURL)
		r.Post("/login", authHandler.Login)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 掲示板
		r.Route("/api/boards", func(r chi.Router) {
			// POST /api/boards - 投稿作成（書き込み専用レート制限を追加）
			r.With(deps.RateLimiter.WriteMiddleware()).Post("/", boardHandler.CreatePost)
			r.Get("/", boardHandler.ListPosts)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", boardHandler.GetPost)
				r.Put("/", boardHandler.UpdatePost)
				r.Delete("/", boardHandler.DeletePost)

				r.Post("/images", boardHandler.AttachImages)
				r.Get("/comments", boardHandler.ListComments)
			})
		})

		// ユーザー
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/me", userHandler.Me)
			r.Put("/me/nickname", userHandler.EditNickname)
			r.Put("/me/image", userHandler.EditAvatar)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/posts", userHandler.GetUserPosts)
				r.Get("/likes", userHandler.ListLikedPosts)
			})
		})
	})

	return r
}

// statusRecorderOrNil はメトリクス未設定時にnilを返すためのヘルパー。
// 非nilインターフェースにnil実装が入るのを避ける。
func statusRecorderOrNil(collector metrics.MetricsCollector) middleware.StatusMetricsRecorder {
	if collector == nil {
		return nil
	}
	return collector
}
