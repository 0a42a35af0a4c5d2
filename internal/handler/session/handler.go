package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/handler/apierr"
	"github.com/zhouzirui/empathai/backend/internal/model/companion"
	companionService "github.com/zhouzirui/empathai/backend/internal/service/companion"
	"github.com/zhouzirui/empathai/backend/pkg/utils"
)

// Handler 会话服务的HTTP处理器
type Handler struct {
	companionSvc *companionService.Service
}

// New 创建会话处理器
func New(companionSvc *companionService.Service) *Handler {
	return &Handler{companionSvc: companionSvc}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.handleGetSession)
		r.Delete("/", h.handleDeleteSession)
		r.Post("/vision", h.handlePublishVision)
		r.Post("/camera/start", h.handleStartCamera)
		r.Post("/camera/stop", h.handleStopCamera)
		r.Post("/submit", h.handleSubmit)
		r.Get("/history", h.handleHistory)
	})
}

// handleCreateSession 创建匿名会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.companionSvc.CreateSession(r.Context())
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, snapshot)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.companionSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

// handleDeleteSession 结束会话，释放摄像头并丢弃历史
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.companionSvc.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		apierr.Respond(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePublishVision 接收浏览器端视觉分类结果
func (h *Handler) handlePublishVision(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Emotion    string  `json:"emotion"`
		Confidence float64 `json:"confidence"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	label, err := emotion.ParseLabel(payload.Emotion)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	sample, err := h.companionSvc.PublishVision(r.Context(), chi.URLParam(r, "sessionID"), companion.EmotionSample{
		Label:      label,
		Confidence: payload.Confidence,
	})
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusAccepted, sample)
}

func (h *Handler) handleStartCamera(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.companionSvc.StartCamera(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleStopCamera(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.companionSvc.StopCamera(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, snapshot)
}

// handleSubmit 同步执行一次提交，返回完整的对话轮次
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.companionSvc.Submit(r.Context(), chi.URLParam(r, "sessionID"), payload.Text, nil)
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turn)
}

// handleHistory 返回情绪历史及频次统计
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	view, err := h.companionSvc.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, view)
}
