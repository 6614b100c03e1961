// Package telegram дублирует изменения сессий участникам в Telegram
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/consult_sessions/internal/model"
	"github.com/Freeeeeet/consult_sessions/internal/realtime"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Sender отправка сообщений, *bot.Bot подходит как есть
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type SessionLookup interface {
	GetByID(ctx context.Context, id string) (*model.Session, error)
}

type UserLinker interface {
	LinkTelegramByCode(ctx context.Context, code string, telegramID int64, displayName string) (*model.User, error)
	TelegramIDs(ctx context.Context, sess model.Session) ([]int64, error)
}

type BotController struct {
	bot      *bot.Bot
	sender   Sender
	sessions SessionLookup
	users    UserLinker
	hub      *realtime.Hub
	dedupe   *realtime.Deduper
	format   *Formatter
	logger   *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	sessions SessionLookup,
	users UserLinker,
	hub *realtime.Hub,
	format *Formatter,
	logger *zap.Logger,
) *BotController {
	c := &BotController{
		bot:      botInstance,
		sessions: sessions,
		users:    users,
		hub:      hub,
		dedupe:   realtime.NewDeduper(),
		format:   format,
		logger:   logger,
	}
	if botInstance != nil {
		c.sender = botInstance
	}
	return c
}

// RegisterHandlers регистрирует команды и меню бота
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handleHelp)

	return c.setCommands(ctx)
}

func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🔗 Привязать аккаунт: /start <код>"},
		{Command: "help", Description: "❓ Справка"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return fmt.Errorf("set bot commands: %w", err)
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start слушает хаб и Telegram до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	sub := c.hub.Subscribe("")
	defer c.hub.Unsubscribe(sub)

	go c.notifyLoop(ctx, sub)

	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}

// handleStart привязывает чат к пользователю платформы по одноразовому коду: /start <code>
func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message

	code, ok := parseStartArg(msg.Text)
	if !ok {
		c.reply(ctx, msg.Chat.ID, "👋 Получите код привязки на платформе и отправьте /start <код>, чтобы получать уведомления о консультациях.")
		return
	}

	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	user, err := c.users.LinkTelegramByCode(ctx, code, msg.From.ID, name)
	if errors.Is(err, model.ErrLinkCodeInvalid) {
		c.logger.Warn("Rejected link code", zap.Int64("telegram_id", msg.From.ID))
		c.reply(ctx, msg.Chat.ID, "❌ Код не найден или истёк. Получите новый код на платформе.")
		return
	}
	if err != nil {
		c.logger.Error("Failed to link telegram",
			zap.Int64("telegram_id", msg.From.ID),
			zap.Error(err),
		)
		c.reply(ctx, msg.Chat.ID, "❌ Не удалось привязать аккаунт. Попробуйте позже.")
		return
	}

	c.logger.Info("Chat linked", zap.Int64("user_id", user.ID), zap.Int64("chat_id", msg.Chat.ID))
	c.reply(ctx, msg.Chat.ID, "✅ Аккаунт привязан. Уведомления о консультациях будут приходить сюда.")
}

func (c *BotController) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	c.reply(ctx, update.Message.Chat.ID,
		"Бот присылает уведомления о консультациях.\n\n"+
			"/start <код> - привязать аккаунт платформы\n"+
			"/help - справка")
}

func (c *BotController) reply(ctx context.Context, chatID int64, text string) {
	if _, err := c.sender.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		c.logger.Warn("Failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func parseStartArg(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return "", false
	}
	return fields[1], true
}
