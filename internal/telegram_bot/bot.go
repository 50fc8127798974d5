package telegram_bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"cybershield/internal/config"
	"cybershield/internal/models"
)

// Bot pushes block notifications to a configured guardian chat. It only
// sends; it does not consume updates.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewBot creates a new Telegram bot instance. It returns (nil, nil) when
// notifications are disabled.
func NewBot(cfg *config.Config, logger *zap.Logger) (*Bot, error) {
	if !cfg.Notifications.Enabled || cfg.Notifications.TelegramBotToken == "" {
		logger.Info("Telegram notifications are disabled (notifications.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Notifications.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Bot{
		api:    botAPI,
		chatID: cfg.Notifications.TelegramChatID,
		logger: logger,
	}, nil
}

// NotifyBlock sends a formatted alert about an automatic block action.
// Failures are logged; notifications are best-effort.
func (b *Bot) NotifyBlock(sender, receiver *models.User, evidencePath string) {
	if b == nil {
		return
	}

	text := fmt.Sprintf(
		"CyberShield: user %s (id %d) was automatically blocked after repeated abusive messages to %s (id %d).",
		sender.Username, sender.ID, receiver.Username, receiver.ID,
	)
	if evidencePath != "" {
		text += fmt.Sprintf("\nEvidence archive: %s", evidencePath)
	}

	msg := tgbotapi.NewMessage(b.chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send block notification",
			zap.Int64("sender_id", sender.ID),
			zap.Int64("receiver_id", receiver.ID),
			zap.Error(err))
	}
}
