package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authHandler "github.com/zhouzirui/companionbot/backend/internal/handler/auth"
	"github.com/zhouzirui/companionbot/backend/internal/handler/chat"
	"github.com/zhouzirui/companionbot/backend/internal/handler/wellness"
	"github.com/zhouzirui/companionbot/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/companionbot/backend/internal/middleware"
	wellnessModel "github.com/zhouzirui/companionbot/backend/internal/model/wellness"
	authService "github.com/zhouzirui/companionbot/backend/internal/service/auth"
	chatService "github.com/zhouzirui/companionbot/backend/internal/service/chat"
	"github.com/zhouzirui/companionbot/backend/pkg/utils"
)

// Status 返回当前启用的后端，供健康检查使用。
type Status func() map[string]string

// Dependencies 聚合路由所需的服务。
type Dependencies struct {
	Chat            *chatService.Service
	Auth            *authService.Service
	Activities      wellnessModel.Store
	Limiter         *middlewarePkg.RateLimiter
	CORSOrigins     []string
	HistoryMaxLimit int
	Status          Status
}

// NewRouter 将 HTTP 路由绑定到核心服务。
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.CORSOrigins))

	// Create handlers
	chatHandler := chat.New(deps.Chat, deps.Limiter, chat.Config{HistoryMaxLimit: deps.HistoryMaxLimit})
	wsHandler := ws.New(chatHandler)
	activityHandler := wellness.New(deps.Activities)
	requireAuth := middlewarePkg.Auth(deps.Auth)

	r.Route("/api", func(api chi.Router) {
		api.Get("/", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "CompanionBot API - Mental Health Support"})
		})

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			body := map[string]string{"status": "ok"}
			if deps.Status != nil {
				for k, v := range deps.Status() {
					body[k] = v
				}
			}
			utils.RespondJSON(w, http.StatusOK, body)
		})

		api.Route("/auth", authHandler.New(deps.Auth).RegisterRoutes)

		api.Route("/chat", func(c chi.Router) {
			c.Use(requireAuth)
			chatHandler.RegisterRoutes(c)
			wsHandler.RegisterRoutes(c)
		})

		api.Route("/wellness", activityHandler.RegisterRoutes)
	})

	return r
}
