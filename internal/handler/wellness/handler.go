package wellness

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/companionbot/backend/internal/model/wellness"
	"github.com/zhouzirui/companionbot/backend/pkg/utils"
)

// Handler 减压活动目录的HTTP处理器
type Handler struct {
	activities wellness.Store
}

// New 创建减压活动处理器
func New(activities wellness.Store) *Handler {
	return &Handler{activities: activities}
}

// RegisterRoutes 注册减压活动相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/activities", h.handleListActivities)
	r.Get("/activities/{activityID}", h.handleGetActivity)
}

func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.activities.List())
}

func (h *Handler) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	activity, ok := h.activities.FindByID(chi.URLParam(r, "activityID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "activity not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, activity)
}
