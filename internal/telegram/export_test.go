package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"strangerchat/backend/internal/models"
)

func (c *Client) RenderForTest(ev models.Outbound) tgbotapi.Chattable {
	return c.render(ev)
}

func (s *BotService) ClientForTest(chatID int64) *Client {
	return s.clients[chatID]
}
