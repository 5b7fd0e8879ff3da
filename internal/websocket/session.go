package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rajivgeraev/polimarket-api/internal/auth"
	"github.com/rajivgeraev/polimarket-api/internal/middleware"
	"github.com/rajivgeraev/polimarket-api/internal/models"
)

// ChatStore операции хранилища, нужные сессии чата
type ChatStore interface {
	GetChat(ctx context.Context, chatID int64) (*models.Chat, error)
	AppendMessage(ctx context.Context, chatID, authorID int64, text string) (*models.Message, error)
}

// UserLookup находит автора по ID для подписи сообщений
type UserLookup interface {
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
}

const storeTimeout = 5 * time.Second

// SessionHandler обслуживает WebSocket сессии чатов
type SessionHandler struct {
	registry *Registry
	chats    ChatStore
	users    UserLookup
	tokens   middleware.TokenVerifier
	upgrader websocket.Upgrader
}

// NewSessionHandler создает обработчик сессий. Пустой allowedOrigins разрешает любой Origin.
func NewSessionHandler(registry *Registry, chats ChatStore, users UserLookup, tokens middleware.TokenVerifier, allowedOrigins []string) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		chats:    chats,
		users:    users,
		tokens:   tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// session состояние одного открытого соединения
type session struct {
	chatID     int64
	userID     int64
	authorName string
	client     *Client
}

// ServeHTTP обрабатывает GET /ws/chats/{chat_id}
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту HTTP ошибкой
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s, reason := h.admit(r)
	if s == nil {
		writeClose(conn, websocket.ClosePolicyViolation, reason)
		conn.Close()
		return
	}

	s.client = NewClient(s.userID, conn)
	h.registry.Register(s.chatID, s.client)
	defer func() {
		h.registry.Unregister(s.chatID, s.client)
		s.client.Close()
	}()

	h.receive(s, conn)
}

// admit проверяет токен и участие в чате. При отказе возвращает причину для кадра закрытия.
func (h *SessionHandler) admit(r *http.Request) (*session, string) {
	chatID, err := strconv.ParseInt(mux.Vars(r)["chat_id"], 10, 64)
	if err != nil || chatID <= 0 {
		return nil, "invalid chat id"
	}

	token := requestToken(r)
	if token == "" {
		return nil, "missing token"
	}
	userID, err := h.tokens.ExtractUserID(token)
	if err != nil {
		return nil, "invalid token"
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	user, err := h.users.GetUserByID(ctx, userID)
	if err != nil {
		log.Printf("WebSocket auth: user %d lookup failed: %v", userID, err)
		return nil, "unknown user"
	}

	chat, err := h.chats.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "chat not found"
		}
		log.Printf("WebSocket auth: chat %d lookup failed: %v", chatID, err)
		return nil, "chat unavailable"
	}
	if err := auth.AuthorizeOrFail(chat, userID); err != nil {
		return nil, "not a participant of this chat"
	}

	return &session{chatID: chatID, userID: userID, authorName: user.Name}, ""
}

func requestToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if token, ok := middleware.BearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	return ""
}

// receive читает кадры до разрыва соединения или фатальной ошибки
func (h *SessionHandler) receive(s *session, conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("Unexpected close error: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			s.client.CloseWithCode(websocket.CloseUnsupportedData, "text frames only")
			return
		}

		text, err := parseInbound(data)
		if err != nil {
			log.Printf("Client %s in chat %d: %v", s.client.ID(), s.chatID, err)
			s.client.CloseWithCode(websocket.CloseInvalidFramePayloadData, "malformed payload")
			return
		}

		if err := h.publish(s, text); err != nil {
			log.Printf("Error persisting message in chat %d: %v", s.chatID, err)
			s.client.CloseWithCode(websocket.CloseInternalServerErr, "message not saved")
			return
		}
	}
}

// publish сохраняет сообщение и рассылает его комнате в порядке сохранения
func (h *SessionHandler) publish(s *session, text string) error {
	var err error
	h.registry.Sequence(s.chatID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		var msg *models.Message
		msg, err = h.chats.AppendMessage(ctx, s.chatID, s.userID, text)
		if err != nil {
			return
		}

		var frame []byte
		frame, err = json.Marshal(newOutboundFrame(msg, s.authorName))
		if err != nil {
			return
		}

		delivery := h.registry.Broadcast(s.chatID, frame)
		if len(delivery.Failed) > 0 {
			log.Printf("Chat %d: message %d delivered to %d, dropped %d connections",
				s.chatID, msg.ID, delivery.Delivered, len(delivery.Failed))
		}
	})
	return err
}
