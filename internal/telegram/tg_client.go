package telegram

import (
	"sync"
	"sync/atomic"

	"strangerchat/backend/internal/chathub"
	"strangerchat/backend/internal/localization"
	"strangerchat/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI the adapter talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client implements chathub.Client for one Telegram chat. Inbound traffic is
// read centrally by BotService; the client only renders outbound events.
type Client struct {
	ChatID    int64
	Lang      string
	Ident     chathub.Identity
	Send      chan models.Outbound
	Bot       Sender
	Localizer *localization.Localizer

	// roomID mirrors the room joined through /room; owned by BotService.
	roomID string

	closeOnce sync.Once
	closed    atomic.Bool
}

func NewClient(chatID int64, lang string, ident chathub.Identity, bot Sender, l *localization.Localizer, buffer int) *Client {
	return &Client{
		ChatID:    chatID,
		Lang:      lang,
		Ident:     ident,
		Send:      make(chan models.Outbound, buffer),
		Bot:       bot,
		Localizer: l,
	}
}

func (c *Client) GetParticipantID() string               { return c.Ident.ParticipantID }
func (c *Client) GetIdentity() chathub.Identity          { return c.Ident }
func (c *Client) GetSendChannel() chan<- models.Outbound { return c.Send }

// Heartbeats is false: a bot chat has no connection to ping, so a reader
// who never types must not be swept as stale.
func (c *Client) Heartbeats() bool { return false }

// Run starts the write pump.
func (c *Client) Run() {
	go c.writePump()
}

// Close is called by the hub when the participant is dropped.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.Send)
	})
}

// IsClosed reports whether the hub has released this client.
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

func (c *Client) writePump() {
	defer zap.L().Debug("telegram write pump stopped", zap.Int64("chat_id", c.ChatID))

	for ev := range c.Send {
		msg := c.render(ev)
		if msg == nil {
			continue
		}
		if _, err := c.Bot.Send(msg); err != nil {
			zap.L().Warn("telegram send failed",
				zap.Int64("chat_id", c.ChatID),
				zap.String("event", ev.Event),
				zap.Error(err))
		}
	}
}

func (c *Client) text(key string, args ...any) tgbotapi.Chattable {
	return tgbotapi.NewMessage(c.ChatID, c.Localizer.Format(c.Lang, key, args...))
}

// render turns a hub event into a Telegram message, or nil when the event
// has no chat representation.
func (c *Client) render(ev models.Outbound) tgbotapi.Chattable {
	switch ev.Event {
	case models.EventSearching, models.EventSearchCancelled, models.EventPartnerLeft,
		models.EventFilterUnavailable, models.EventMessageFailed:
		return c.text(ev.Event)

	case models.EventPartnerFound:
		p, _ := ev.Data.(models.PartnerFoundPayload)
		return c.text(models.EventPartnerFound, p.DisplayName)

	case models.EventMessage:
		p, ok := ev.Data.(models.RelayedMessagePayload)
		if !ok {
			return nil
		}
		return tgbotapi.NewMessage(c.ChatID, p.Content)

	case models.EventPartnerTyping:
		return tgbotapi.NewChatAction(c.ChatID, tgbotapi.ChatTyping)

	case models.EventRoomJoined:
		p, _ := ev.Data.(models.RoomJoinedPayload)
		return c.text(models.EventRoomJoined, p.RoomID, len(p.Participants))

	case models.EventParticipantJoined, models.EventParticipantLeft:
		p, _ := ev.Data.(models.RoomMember)
		return c.text(ev.Event, p.DisplayName)

	case models.EventRoomMessage:
		p, ok := ev.Data.(models.RoomMessageOutPayload)
		if !ok {
			return nil
		}
		return c.text(models.EventRoomMessage, p.RoomID, p.Content)

	case models.EventError:
		p, _ := ev.Data.(models.ErrorPayload)
		return c.text(models.EventError, p.Code)
	}
	return nil
}
