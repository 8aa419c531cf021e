package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	evaluationHandler "github.com/zhouzirui/convo-eval/internal/handler/evaluation"
	"github.com/zhouzirui/convo-eval/internal/model/transcript"
	"github.com/zhouzirui/convo-eval/internal/observability"
	conversationService "github.com/zhouzirui/convo-eval/internal/service/conversation"
	evaluationService "github.com/zhouzirui/convo-eval/internal/service/evaluation"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler 通过WebSocket实时接收对话消息，并按需返回评估结果。
type Handler struct {
	convSvc  *conversationService.Service
	evalSvc  *evaluationService.Service
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(convSvc *conversationService.Service, evalSvc *evaluationService.Service) *Handler {
	return &Handler{
		convSvc: convSvc,
		evalSvc: evalSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{conversationID}", h.handleWebSocket)
}

// Frame is the envelope of every websocket message in both directions.
//
// Inbound types: "message" (Data is one transcript turn) and "evaluate"
// (Data may name a single metric). Outbound types: "connected", "ack",
// "metrics" and "error".
type Frame struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversationId,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
}

type outgoingFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId,omitempty"`
	Data           any    `json:"data,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

type evaluateRequest struct {
	Metric string `json:"metric"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.convSvc.GetConversation(r.Context(), conversationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	logger := observability.FromContext(r.Context(), "websocket").WithField("conversation_id", conversationID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("upgrade failed")
		return
	}
	defer conn.Close()
	defer observability.TrackStream("websocket")()

	logger.Info("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go pingLoop(ctx, conn)

	send(conn, logger, outgoingFrame{Type: "connected", ConversationID: conversationID, Data: conv})

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warn("read failed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if frame.ConversationID != "" && frame.ConversationID != conversationID {
			sendError(conn, logger, "conversation mismatch")
			continue
		}

		h.handleFrame(ctx, conn, logger, conversationID, frame)
	}
}

func (h *Handler) handleFrame(ctx context.Context, conn *websocket.Conn, logger *logrus.Entry, conversationID string, frame Frame) {
	switch frame.Type {
	case "message":
		var rec transcript.Record
		if err := json.Unmarshal(frame.Data, &rec); err != nil {
			sendError(conn, logger, "invalid message payload")
			return
		}
		msg, err := rec.ToMessage()
		if err != nil {
			sendError(conn, logger, err.Error())
			return
		}
		conv, err := h.convSvc.AppendMessage(ctx, conversationID, msg)
		if err != nil {
			sendError(conn, logger, err.Error())
			return
		}
		send(conn, logger, outgoingFrame{
			Type:           "ack",
			ConversationID: conversationID,
			Data:           map[string]int{"messageCount": conv.MessageCount},
		})

	case "evaluate":
		var req evaluateRequest
		if len(frame.Data) > 0 {
			if err := json.Unmarshal(frame.Data, &req); err != nil {
				sendError(conn, logger, "invalid evaluate payload")
				return
			}
		}
		t, err := h.convSvc.LoadTranscript(ctx, conversationID)
		if err != nil {
			sendError(conn, logger, err.Error())
			return
		}
		summary, err := evaluationHandler.Run(ctx, h.evalSvc, t, req.Metric)
		if err != nil {
			sendError(conn, logger, err.Error())
			return
		}
		send(conn, logger, outgoingFrame{Type: "metrics", ConversationID: conversationID, Data: summary})

	default:
		sendError(conn, logger, "unsupported message type: "+frame.Type)
	}
}

func send(conn *websocket.Conn, logger *logrus.Entry, frame outgoingFrame) {
	frame.Timestamp = time.Now().UnixMilli()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		logger.WithError(err).Warnf("write %s frame failed", frame.Type)
	}
}

func sendError(conn *websocket.Conn, logger *logrus.Entry, message string) {
	send(conn, logger, outgoingFrame{Type: "error", Data: map[string]string{"message": message}})
}

// pingLoop 定期发送ping消息。WriteControl 可与其他写操作并发调用。
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
