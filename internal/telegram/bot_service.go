// Package telegram handles the integration with the Telegram Bot API.
// It is responsible for receiving updates from Telegram, processing them,
// and communicating with the central chat hub.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"strangerchat/backend/internal/chathub"
	"strangerchat/backend/internal/localization"
	"strangerchat/backend/internal/models"
	"strangerchat/backend/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const callbackGenderPrefix = "set_gender_"

var genderChoices = []string{
	string(models.AttributeMale),
	string(models.AttributeFemale),
	string(models.AttributeUndisclosed),
}

// Profiles is the part of the profile store the bot needs.
type Profiles interface {
	SaveUserIfNotExists(telegramID int64) (*models.User, error)
	UpdateProfile(id, displayName, gender string) error
	IsFilterEnabled(accountID string) (bool, error)
}

type Options struct {
	// GuestFilterEnabled applies when no profile store is configured.
	GuestFilterEnabled bool
	SendBuffer         int
}

// BotService is responsible for receiving Telegram updates and routing them to the hub.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Sender    Sender
	Hub       *chathub.ManagerService
	Profiles  Profiles
	Localizer *localization.Localizer

	opts    Options
	clients map[int64]*Client
}

// NewBotService authorizes against the Bot API and returns a service ready to Run.
func NewBotService(token string, hub *chathub.ManagerService, profiles Profiles, l *localization.Localizer, opts Options) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	bot.Debug = false
	zap.L().Info("telegram bot authorized", zap.String("username", bot.Self.UserName))

	s := NewBotServiceWithSender(bot, hub, profiles, l, opts)
	s.BotAPI = bot
	return s, nil
}

// NewBotServiceWithSender builds a service that sends through sender. It can
// handle updates but cannot poll for them.
func NewBotServiceWithSender(sender Sender, hub *chathub.ManagerService, profiles Profiles, l *localization.Localizer, opts Options) *BotService {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	return &BotService{
		Sender:    sender,
		Hub:       hub,
		Profiles:  profiles,
		Localizer: l,
		opts:      opts,
		clients:   make(map[int64]*Client),
	}
}

// Run long-polls for updates until ctx is cancelled.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(update)
		}
	}
}

// HandleUpdate processes one update. Updates must be handled from a single
// goroutine.
func (s *BotService) HandleUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		s.handleMessage(update.Message)
	case update.CallbackQuery != nil:
		s.handleCallbackQuery(update.CallbackQuery)
	}
}

// extractMessageContent uniformly extracts text or a caption from a message.
func extractMessageContent(msg *tgbotapi.Message) string {
	if msg == nil {
		return ""
	}
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func languageOf(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.LanguageCode
}

// getOrCreateClient returns the live client for a chat, registering a new
// one when the chat is new or the hub has dropped the previous one.
func (s *BotService) getOrCreateClient(chatID int64, lang string) *Client {
	if c, ok := s.clients[chatID]; ok && !c.IsClosed() {
		return c
	}

	c := NewClient(chatID, s.Localizer.Normalize(lang), s.identity(chatID), s.Sender, s.Localizer, s.opts.SendBuffer)
	s.clients[chatID] = c
	s.Hub.RegisterCh <- c
	c.Run()
	s.dispatch(c, models.EventJoin, nil)
	return c
}

// identity resolves the profile behind a chat. The participant id is always
// fresh so partners never learn a stable handle.
func (s *BotService) identity(chatID int64) chathub.Identity {
	ident := chathub.Identity{
		ParticipantID: uuid.New().String(),
		Attribute:     models.AttributeUndisclosed,
		FilterEnabled: s.opts.GuestFilterEnabled,
	}

	user, err := s.Profiles.SaveUserIfNotExists(chatID)
	if err != nil {
		if !errors.Is(err, storage.ErrUnavailable) {
			zap.L().Warn("telegram profile lookup failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return ident
	}

	ident.AccountID = user.ID
	ident.DisplayName = user.DisplayName
	ident.Attribute = user.Attribute()
	enabled, err := s.Profiles.IsFilterEnabled(user.ID)
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		// no entitlement store: accounts get what guests get
	case err != nil:
		zap.L().Warn("entitlement lookup failed", zap.String("account_id", user.ID), zap.Error(err))
		ident.FilterEnabled = false
	default:
		ident.FilterEnabled = enabled
	}
	return ident
}

// dispatch queues an inbound event for the hub, behind the client's registration.
func (s *BotService) dispatch(c *Client, event string, payload any) {
	in := models.Inbound{
		ParticipantID: c.GetParticipantID(),
		Envelope:      models.Envelope{Event: event},
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			zap.L().Error("encode inbound payload", zap.String("event", event), zap.Error(err))
			return
		}
		in.Data = data
	}
	s.Hub.IncomingCh <- in
}

func (s *BotService) reply(c *Client, msg tgbotapi.Chattable) {
	if _, err := s.Sender.Send(msg); err != nil {
		zap.L().Warn("telegram reply failed", zap.Int64("chat_id", c.ChatID), zap.Error(err))
	}
}

func (s *BotService) replyText(c *Client, key string, args ...any) {
	s.reply(c, c.text(key, args...))
}

func (s *BotService) handleMessage(msg *tgbotapi.Message) {
	c := s.getOrCreateClient(msg.Chat.ID, languageOf(msg.From))

	if msg.IsCommand() {
		s.handleCommand(c, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
		return
	}

	content := extractMessageContent(msg)
	if content == "" {
		s.replyText(c, "unsupported_message_type")
		return
	}
	if c.roomID != "" {
		s.dispatch(c, models.EventRoomMessage, models.RoomMessagePayload{RoomID: c.roomID, Content: content})
		return
	}
	s.dispatch(c, models.EventMessage, models.MessagePayload{Content: content})
}

func (s *BotService) handleCommand(c *Client, command, args string) {
	switch command {
	case "start":
		s.replyText(c, "welcome")
	case "help":
		s.replyText(c, "help")
	case "search":
		c.roomID = ""
		s.dispatch(c, models.EventFindPartner, models.FindPartnerPayload{Filter: args})
	case "next":
		c.roomID = ""
		s.dispatch(c, models.EventNextPartner, nil)
	case "stop":
		s.dispatch(c, models.EventLeaveChat, nil)
	case "gender":
		if args == "" {
			s.askGender(c)
			return
		}
		s.applyGender(c, args)
	case "room":
		if args == "" {
			s.replyText(c, "room_usage")
			return
		}
		c.roomID = args
		s.dispatch(c, models.EventJoinRoom, models.JoinRoomPayload{RoomID: args})
	case "leave":
		c.roomID = ""
		s.dispatch(c, models.EventLeaveRoom, nil)
	default:
		s.replyText(c, "unknown_command")
	}
}

func (s *BotService) askGender(c *Client) {
	msg := tgbotapi.NewMessage(c.ChatID, s.Localizer.GetString(c.Lang, "gender_usage"))
	buttons := lo.Map(genderChoices, func(g string, _ int) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(g, callbackGenderPrefix+g)
	})
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	s.reply(c, msg)
}

// applyGender stores the declared gender on the profile, if any, and
// refreshes the live participant with it.
func (s *BotService) applyGender(c *Client, raw string) {
	gender := strings.ToLower(strings.TrimSpace(raw))
	if !lo.Contains(genderChoices, gender) {
		s.replyText(c, "gender_usage")
		return
	}

	if c.Ident.AccountID != "" {
		if err := s.Profiles.UpdateProfile(c.Ident.AccountID, "", gender); err != nil {
			zap.L().Warn("update profile gender failed", zap.String("account_id", c.Ident.AccountID), zap.Error(err))
		}
	}
	s.dispatch(c, models.EventJoin, models.JoinPayload{Attribute: gender})
	s.replyText(c, "gender_set", gender)
}

func (s *BotService) handleCallbackQuery(cq *tgbotapi.CallbackQuery) {
	if _, err := s.Sender.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		zap.L().Warn("failed to answer callback", zap.Error(err))
	}
	if !strings.HasPrefix(cq.Data, callbackGenderPrefix) {
		return
	}

	c := s.getOrCreateClient(cq.Message.Chat.ID, languageOf(cq.From))
	s.applyGender(c, strings.TrimPrefix(cq.Data, callbackGenderPrefix))
}
