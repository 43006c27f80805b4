package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/companionbot/backend/internal/middleware"
	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
	chatService "github.com/zhouzirui/companionbot/backend/internal/service/chat"
	"github.com/zhouzirui/companionbot/backend/pkg/utils"
)

// Config 历史记录查询的上限配置
type Config struct {
	HistoryMaxLimit int
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc  *chatService.Service
	limiter  *middleware.RateLimiter
	maxLimit int
}

// New 创建聊天处理器。limiter 可以为 nil，此时不做限流。
func New(chatSvc *chatService.Service, limiter *middleware.RateLimiter, cfg Config) *Handler {
	maxLimit := cfg.HistoryMaxLimit
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &Handler{
		chatSvc:  chatSvc,
		limiter:  limiter,
		maxLimit: maxLimit,
	}
}

// RegisterRoutes 注册聊天相关的路由，调用方负责挂载鉴权中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/message", h.handleSendMessage)
	r.Get("/history", h.handleHistory)
	r.Delete("/clear", h.handleClear)
}

// TurnError 被拒绝的对话轮次，携带状态码和返回给客户端的提示
type TurnError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *TurnError) Error() string { return e.Message }

// Submit 为用户执行一次对话轮次，HTTP 与 WebSocket 共用同一套限流。
// 返回的错误总是 *TurnError。
func (h *Handler) Submit(ctx context.Context, username, message string) (chat.Turn, error) {
	if h.limiter == nil {
		turn, err := h.chatSvc.Submit(ctx, username, message)
		if err != nil {
			return chat.Turn{}, submitError(err)
		}
		return turn, nil
	}

	if !h.limiter.Allow(username) {
		return chat.Turn{}, &TurnError{Status: http.StatusTooManyRequests, Message: "Too many requests", RetryAfter: h.limiter.RetryAfter()}
	}
	if !h.limiter.AllowMessage(username, message) {
		return chat.Turn{}, &TurnError{Status: http.StatusTooManyRequests, Message: "Duplicate message, please wait before resending"}
	}
	release, err := h.limiter.Acquire(ctx, username)
	if err != nil {
		h.limiter.ForgetMessage(username, message)
		return chat.Turn{}, &TurnError{Status: http.StatusTooManyRequests, Message: "Too many requests"}
	}
	defer release()

	turn, err := h.chatSvc.Submit(ctx, username, message)
	if err != nil {
		// 失败的轮次不计入重复消息检查，用户可以立即重试
		h.limiter.ForgetMessage(username, message)
		return chat.Turn{}, submitError(err)
	}
	return turn, nil
}

// handleSendMessage 处理一次完整的对话轮次
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.Submit(r.Context(), middleware.UsernameFrom(r.Context()), payload.Message)
	if err != nil {
		var turnErr *TurnError
		if errors.As(err, &turnErr) {
			if turnErr.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(turnErr.RetryAfter.Seconds())))
			}
			utils.RespondError(w, turnErr.Status, turnErr.Message)
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "Failed to process message")
		return
	}
	utils.RespondJSON(w, http.StatusOK, turn)
}

// handleHistory 返回最近的对话记录，按时间正序
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	username := middleware.UsernameFrom(r.Context())
	turns, err := h.chatSvc.History(r.Context(), username, limit)
	if err != nil {
		if errors.Is(err, chatService.ErrIdentityRequired) {
			utils.RespondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		log.Printf("[chat] history error for user=%s: %v", username, err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch chat history")
		return
	}
	utils.RespondJSON(w, http.StatusOK, turns)
}

// handleClear 清空当前用户的全部对话
func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFrom(r.Context())
	n, err := h.chatSvc.Clear(r.Context(), username)
	if err != nil {
		if errors.Is(err, chatService.ErrIdentityRequired) {
			utils.RespondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		log.Printf("[chat] clear error for user=%s: %v", username, err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to clear chat history")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"deleted_count": n,
		"message":       fmt.Sprintf("Cleared %d messages", n),
	})
}

func submitError(err error) *TurnError {
	switch {
	case errors.Is(err, chatService.ErrIdentityRequired):
		return &TurnError{Status: http.StatusUnauthorized, Message: "Invalid token"}
	case errors.Is(err, chatService.ErrMessageRequired):
		return &TurnError{Status: http.StatusBadRequest, Message: "Message is required"}
	case errors.Is(err, chatService.ErrMessageTooLong):
		return &TurnError{Status: http.StatusBadRequest, Message: "Message is too long"}
	default:
		log.Printf("[chat] turn failed: %v", err)
		return &TurnError{Status: http.StatusInternalServerError, Message: "Failed to process message"}
	}
}
