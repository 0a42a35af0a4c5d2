package live

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/handler/apierr"
	"github.com/zhouzirui/empathai/backend/internal/model/companion"
	companionService "github.com/zhouzirui/empathai/backend/internal/service/companion"
	"github.com/zhouzirui/empathai/backend/internal/service/vision"
)

const (
	readTimeout   = 60 * time.Second
	pingInterval  = 54 * time.Second
	visionPolling = 200 * time.Millisecond
)

// WebSocketHandler 实时会话处理器：推送视觉情绪变化、提交状态与回复
type WebSocketHandler struct {
	companionSvc *companionService.Service
	upgrader     websocket.Upgrader
	pollInterval time.Duration
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(companionSvc *companionService.Service) *WebSocketHandler {
	return &WebSocketHandler{
		companionSvc: companionSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pollInterval: visionPolling,
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// VisionMessage 浏览器端视觉分类结果
type VisionMessage struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// TextMessage 文本提交
type TextMessage struct {
	Text string `json:"text"`
}

// CameraMessage 摄像头开关
type CameraMessage struct {
	Active bool `json:"active"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// connection serializes writes; gorilla allows one concurrent writer.
type connection struct {
	conn      *websocket.Conn
	sessionID string
	writeMu   sync.Mutex
	inflight  sync.WaitGroup
}

func (c *connection) write(msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", msg.Type, err)
	}
}

func (c *connection) sendInfo(data map[string]any) {
	c.write(outgoingMessage{Type: "result", SessionID: c.sessionID, Data: data})
}

func (c *connection) sendError(err error) {
	status, message := apierr.Status(err)
	c.write(outgoingMessage{
		Type:      "error",
		SessionID: c.sessionID,
		Data:      map[string]any{"message": message, "status": status},
	})
}

func (c *connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snapshot, err := h.companionSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		apierr.Respond(w, err)
		return
	}
	feed, err := h.companionSvc.VisionFeed(sessionID)
	if err != nil {
		apierr.Respond(w, err)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	c := &connection{conn: ws, sessionID: sessionID}
	defer func() {
		cancel()
		c.inflight.Wait()
	}()

	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, c)
	go h.watchVision(ctx, c, feed)

	c.sendInfo(map[string]any{"type": "connected", "session": snapshot})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		ws.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.write(outgoingMessage{Type: "error", Data: map[string]any{"message": "session mismatch", "status": http.StatusBadRequest}})
			continue
		}

		h.handleMessage(ctx, c, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, c *connection, msg *inboundMessage) {
	switch msg.Type {
	case "vision":
		h.handleVisionMessage(ctx, c, msg.Data)
	case "text":
		h.handleTextMessage(ctx, c, msg.Data)
	case "camera":
		h.handleCameraMessage(ctx, c, msg.Data)
	default:
		c.write(outgoingMessage{Type: "error", SessionID: c.sessionID, Data: map[string]any{
			"message": "unsupported message type: " + msg.Type,
			"status":  http.StatusBadRequest,
		}})
	}
}

func (h *WebSocketHandler) handleVisionMessage(ctx context.Context, c *connection, raw json.RawMessage) {
	var payload VisionMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(vision.ErrInvalidSample)
		return
	}
	label, err := emotion.ParseLabel(payload.Emotion)
	if err != nil {
		c.sendError(err)
		return
	}
	// The watcher reports the stored sample, so no echo here.
	if _, err := h.companionSvc.PublishVision(ctx, c.sessionID, companion.EmotionSample{
		Label:      label,
		Confidence: payload.Confidence,
	}); err != nil {
		c.sendError(err)
	}
}

// handleTextMessage 在后台执行提交，读取循环与视觉推送保持活跃
func (h *WebSocketHandler) handleTextMessage(ctx context.Context, c *connection, raw json.RawMessage) {
	var payload TextMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError(companionService.ErrEmptyText)
		return
	}

	obs := &companionService.Observer{
		OnState: func(state companion.SubmissionState) {
			c.sendInfo(map[string]any{"type": "state", "state": state})
		},
		OnEmotion: func(text, final emotion.Label) {
			c.sendInfo(map[string]any{"type": "emotion", "textEmotion": text, "finalEmotion": final})
		},
		OnDelta: func(delta string) {
			c.sendInfo(map[string]any{"type": "delta", "text": delta})
		},
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		turn, err := h.companionSvc.Submit(ctx, c.sessionID, payload.Text, obs)
		if err != nil {
			c.sendError(err)
			return
		}
		c.sendInfo(map[string]any{"type": "turn", "turn": turn})
	}()
}

func (h *WebSocketHandler) handleCameraMessage(ctx context.Context, c *connection, raw json.RawMessage) {
	var payload CameraMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.write(outgoingMessage{Type: "error", SessionID: c.sessionID, Data: map[string]any{
			"message": "invalid camera payload",
			"status":  http.StatusBadRequest,
		}})
		return
	}

	var (
		snapshot companion.Snapshot
		err      error
	)
	if payload.Active {
		snapshot, err = h.companionSvc.StartCamera(ctx, c.sessionID)
	} else {
		snapshot, err = h.companionSvc.StopCamera(ctx, c.sessionID)
	}
	if err != nil {
		c.sendError(err)
		return
	}
	c.sendInfo(map[string]any{"type": "camera", "active": snapshot.CameraActive})
}

// watchVision 推送最新视觉情绪；摄像头关闭时推送 null 以重置显示
func (h *WebSocketHandler) watchVision(ctx context.Context, c *connection, feed *vision.Feed) {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	seen := feed.Version()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			version := feed.Version()
			if version == seen {
				continue
			}
			seen = version

			data := map[string]any{"type": "vision", "sample": nil}
			if sample, ok := feed.LatestSample(); ok {
				data["sample"] = sample
				data["emoji"] = emotion.Emoji(sample.Label)
			}
			c.sendInfo(data)
		}
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, c *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
