package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatHandler "github.com/zhouzirui/companionbot/backend/internal/handler/chat"
	"github.com/zhouzirui/companionbot/backend/internal/middleware"
	"github.com/zhouzirui/companionbot/backend/internal/model/chat"
	"github.com/zhouzirui/companionbot/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// TurnSubmitter 代表用户执行一次对话轮次
type TurnSubmitter interface {
	Submit(ctx context.Context, username, message string) (chat.Turn, error)
}

// Handler WebSocket对话处理器：每条入站消息执行一次完整的对话轮次
type Handler struct {
	turns    TurnSubmitter
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(turns TurnSubmitter) *Handler {
	return &Handler{
		turns: turns,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由，调用方负责挂载鉴权中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	username := middleware.UsernameFrom(r.Context())
	if username == "" {
		utils.RespondError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] new connection for user=%s", username)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go pingLoop(ctx, conn)

	send(conn, outgoingMessage{Type: "connected", Data: map[string]string{"username": username}})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error for user=%s: %v", username, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "message":
			h.handleTurn(ctx, conn, username, msg.Message)
		case "ping":
			send(conn, outgoingMessage{Type: "pong"})
		default:
			send(conn, outgoingMessage{Type: "error", Error: "unsupported message type: " + msg.Type})
		}
	}
}

func (h *Handler) handleTurn(ctx context.Context, conn *websocket.Conn, username, message string) {
	turn, err := h.turns.Submit(ctx, username, message)
	if err != nil {
		text := "Failed to process message"
		var turnErr *chatHandler.TurnError
		if errors.As(err, &turnErr) {
			text = turnErr.Message
		}
		send(conn, outgoingMessage{Type: "error", Error: text})
		return
	}
	send(conn, outgoingMessage{Type: "turn", Data: turn})
}

func send(conn *websocket.Conn, msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[ws] write %s failed: %v", msg.Type, err)
	}
}

// pingLoop 定期发送ping消息。WriteControl 可与 WriteJSON 并发调用。
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
