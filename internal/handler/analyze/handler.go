package analyze

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/handler/apierr"
	"github.com/zhouzirui/empathai/backend/internal/service/companion"
	"github.com/zhouzirui/empathai/backend/pkg/utils"
)

// Handler 无状态情绪分析接口
type Handler struct {
	companionSvc *companion.Service
}

// New 创建分析处理器
func New(companionSvc *companion.Service) *Handler {
	return &Handler{companionSvc: companionSvc}
}

// RegisterRoutes 注册分析相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze-emotion", h.handleAnalyze)
	r.Get("/emotions", h.handleListEmotions)
}

type analyzeRequest struct {
	Text          string `json:"text"`
	VisionEmotion string `json:"visionEmotion"`
}

// handleAnalyze 对文本分类、与视觉情绪融合并生成共情回复
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var payload analyzeRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	visionLabel, err := emotion.ParseOptionalLabel(payload.VisionEmotion)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	result, err := h.companionSvc.Analyze(r.Context(), payload.Text, visionLabel)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, result)
}

type emotionInfo struct {
	Emotion  emotion.Label `json:"emotion"`
	Label    string        `json:"label"`
	Emoji    string        `json:"emoji"`
	Color    string        `json:"color"`
	Negative bool          `json:"negative"`
}

// handleListEmotions 列出情绪标签及展示提示
func (h *Handler) handleListEmotions(w http.ResponseWriter, _ *http.Request) {
	labels := emotion.Labels()
	out := make([]emotionInfo, 0, len(labels))
	for _, l := range labels {
		out = append(out, emotionInfo{
			Emotion:  l,
			Label:    l.Title(),
			Emoji:    emotion.Emoji(l),
			Color:    emotion.Color(l),
			Negative: emotion.IsNegative(l),
		})
	}
	utils.RespondJSON(w, http.StatusOK, out)
}
