package telegram

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// BotSender delivers operator notifications through the bot API.
type BotSender struct {
	bot *tele.Bot
}

// NewBotSender wraps a running bot for the notifier.
func NewBotSender(bot *tele.Bot) *BotSender {
	return &BotSender{bot: bot}
}

func (s *BotSender) Send(_ context.Context, operatorID int64, text string) error {
	_, err := s.bot.Send(&tele.User{ID: operatorID}, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}
