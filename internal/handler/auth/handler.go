package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	authService "github.com/zhouzirui/companionbot/backend/internal/service/auth"
	"github.com/zhouzirui/companionbot/backend/pkg/utils"
)

// Handler 注册与登录的HTTP处理器
type Handler struct {
	authSvc *authService.Service
}

// New 创建鉴权处理器
func New(authSvc *authService.Service) *Handler {
	return &Handler{authSvc: authSvc}
}

// RegisterRoutes 注册鉴权相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload credentials
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.authSvc.Register(r.Context(), payload.Username, payload.Password)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, session)
	case errors.Is(err, authService.ErrCredentialsRequired):
		utils.RespondError(w, http.StatusBadRequest, "Username and password required")
	case errors.Is(err, authService.ErrUsernameTaken):
		utils.RespondError(w, http.StatusBadRequest, "Username already exists")
	default:
		log.Printf("[auth] register error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Registration failed")
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload credentials
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.authSvc.Login(r.Context(), payload.Username, payload.Password)
	switch {
	case err == nil:
		utils.RespondJSON(w, http.StatusOK, session)
	case errors.Is(err, authService.ErrCredentialsRequired):
		utils.RespondError(w, http.StatusBadRequest, "Username and password required")
	case errors.Is(err, authService.ErrInvalidCredentials):
		utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		log.Printf("[auth] login error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "Login failed")
	}
}
