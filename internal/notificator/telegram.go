package notificator

import (
	"context"

	"github.com/go-telegram/bot"

	"github.com/curavia/custodia/pkg/logger"
)

// TelegramNotificator pushes alerts into the operations chat.
type TelegramNotificator struct {
	logger *logger.Logger
	bot    *bot.Bot

	opsChatID string
}

func NewTelegramNotificator(logger *logger.Logger, token, opsChatID string) (*TelegramNotificator, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, err
	}

	return &TelegramNotificator{
		logger:    logger,
		bot:       b,
		opsChatID: opsChatID,
	}, nil
}

func (t *TelegramNotificator) SendAlert(message string) {
	params := &bot.SendMessageParams{
		ChatID: t.opsChatID,
		Text:   message,
	}
	_, err := t.bot.SendMessage(context.Background(), params)
	if err != nil {
		t.logger.Error("Failed to send telegram alert: ", err)
	}
}
