package stream

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/handler/apierr"
	"github.com/zhouzirui/empathai/backend/internal/model/companion"
	companionService "github.com/zhouzirui/empathai/backend/internal/service/companion"
	"github.com/zhouzirui/empathai/backend/pkg/utils"
)

// Handler streams a submission's progress via Server-Sent Events.
type Handler struct {
	companionSvc *companionService.Service
}

// New creates a new stream handler
func New(companionSvc *companionService.Service) *Handler {
	return &Handler{companionSvc: companionSvc}
}

// RegisterRoutes 注册流式提交路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/stream", h.handleStream)
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	SessionID    string                    `json:"sessionId"`
	State        companion.SubmissionState `json:"state,omitempty"`
	TextEmotion  emotion.Label             `json:"textEmotion,omitempty"`
	FinalEmotion emotion.Label             `json:"finalEmotion,omitempty"`
	Content      string                    `json:"content,omitempty"`
	Turn         *companion.Turn           `json:"turn,omitempty"`
	Finished     bool                      `json:"finished,omitempty"`
	Error        string                    `json:"error,omitempty"`
	Status       int                       `json:"status,omitempty"`
}

// handleStream runs one submission. Errors raised before the first event are
// plain JSON responses; later errors arrive as an "error" event.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	text := strings.TrimSpace(r.URL.Query().Get("text"))

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	if _, err := h.companionSvc.GetSession(r.Context(), sessionID); err != nil {
		apierr.Respond(w, err)
		return
	}
	if text == "" {
		apierr.Respond(w, companionService.ErrEmptyText)
		return
	}

	started := false
	send := func(event string, payload StreamResponse) {
		if !started {
			utils.SetupSSEHeaders(w)
			w.WriteHeader(http.StatusOK)
			started = true
		}
		payload.SessionID = sessionID
		utils.SendSSEEvent(w, flusher, event, payload)
	}

	obs := &companionService.Observer{
		OnState: func(state companion.SubmissionState) {
			send("state", StreamResponse{State: state})
		},
		OnEmotion: func(text, final emotion.Label) {
			send("emotion", StreamResponse{TextEmotion: text, FinalEmotion: final})
		},
		OnDelta: func(delta string) {
			send("delta", StreamResponse{Content: delta})
		},
	}

	turn, err := h.companionSvc.Submit(r.Context(), sessionID, text, obs)
	if err != nil {
		if !started {
			apierr.Respond(w, err)
			return
		}
		status, message := apierr.Status(err)
		log.Printf("[stream] submission failed session=%s: %v", sessionID, err)
		send("error", StreamResponse{Error: message, Status: status})
		return
	}

	send("message", StreamResponse{Content: turn.Response, Turn: &turn})
	send("end", StreamResponse{Finished: true})
	log.Printf("[stream] completed response for session=%s emotion=%s", sessionID, turn.FinalEmotion)
}
