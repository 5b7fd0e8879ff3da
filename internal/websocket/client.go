package websocket

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Максимальное время ожидания для pong от клиента
	pongWait = 60 * time.Second

	// Отправлять ping-сообщения клиенту с этим интервалом
	pingPeriod = (pongWait * 9) / 10

	// Таймаут записи одного кадра
	writeWait = 10 * time.Second

	// Максимальный размер сообщения от клиента
	maxMessageSize = 64 * 1024 // 64KB

	// Размер буфера для отправляемых сообщений
	writeBufferSize = 256
)

var (
	ErrClientClosed   = errors.New("websocket client closed")
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// Client представляет собой отдельное WebSocket соединение
type Client struct {
	id        uuid.UUID
	UserID    int64
	conn      *websocket.Conn
	send      chan []byte // Буферизованный канал исходящих сообщений
	closeChan chan struct{}
	closeOnce sync.Once

	// mu связывает постановку в очередь с закрытием
	mu     sync.RWMutex
	closed bool
}

// NewClient создает новый экземпляр Client и запускает горутину записи
func NewClient(userID int64, conn *websocket.Conn) *Client {
	c := &Client{
		id:        uuid.New(),
		UserID:    userID,
		conn:      conn,
		send:      make(chan []byte, writeBufferSize),
		closeChan: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// ID возвращает идентификатор соединения
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Send ставит кадр в очередь отправки, не блокируясь
func (c *Client) Send(frame []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.send <- frame:
		return nil
	default:
		// Клиент слишком медленный
		return ErrSendBufferFull
	}
}

// Close закрывает соединение. Повторные вызовы безопасны.
func (c *Client) Close() error {
	return c.CloseWithCode(websocket.CloseNormalClosure, "")
}

// CloseWithCode отправляет кадр закрытия с кодом и причиной и закрывает соединение
func (c *Client) CloseWithCode(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		close(c.closeChan)
		writeClose(c.conn, code, reason)
		err = c.conn.Close()
	})
	return err
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Error writing message to client %s: %v", c.id, err)
				c.Close()
				return
			}
		case <-ticker.C:
			// Отправляем ping для поддержания соединения
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
		case <-c.closeChan:
			return
		}
	}
}

// writeClose отправляет кадр закрытия; ошибки игнорируются, соединение все равно закрывается
func writeClose(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
