package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rajivgeraev/polimarket-api/internal/models"
)

// inboundFrame входящий кадр клиента
type inboundFrame struct {
	Text *string `json:"text"`
}

// OutboundFrame кадр, рассылаемый участникам комнаты
type OutboundFrame struct {
	AuthorID   int64  `json:"author_id"`
	AuthorName string `json:"author_name"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

// parseInbound извлекает текст сообщения. Отсутствующий, нестроковый или пустой текст
// возвращает ErrMalformedPayload.
func parseInbound(data []byte) (string, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrMalformedPayload, err)
	}
	if frame.Text == nil {
		return "", fmt.Errorf("%w: text is required", models.ErrMalformedPayload)
	}
	if strings.TrimSpace(*frame.Text) == "" {
		return "", fmt.Errorf("%w: text is empty", models.ErrMalformedPayload)
	}
	return *frame.Text, nil
}

func newOutboundFrame(msg *models.Message, authorName string) OutboundFrame {
	return OutboundFrame{
		AuthorID:   msg.AuthorID,
		AuthorName: authorName,
		Text:       msg.Text,
		CreatedAt:  msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
