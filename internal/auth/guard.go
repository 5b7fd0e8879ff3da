package auth

import (
	"fmt"

	"github.com/rajivgeraev/polimarket-api/internal/models"
)

// IsParticipant сообщает, является ли пользователь покупателем или продавцом в чате
func IsParticipant(chat *models.Chat, userID int64) bool {
	if chat == nil || userID <= 0 {
		return false
	}
	return userID == chat.BuyerID || userID == chat.SellerID
}

// AuthorizeOrFail возвращает ErrForbidden, если пользователь не участник чата
func AuthorizeOrFail(chat *models.Chat, userID int64) error {
	if !IsParticipant(chat, userID) {
		var chatID int64
		if chat != nil {
			chatID = chat.ID
		}
		return fmt.Errorf("%w: user %d, chat %d", models.ErrForbidden, userID, chatID)
	}
	return nil
}
