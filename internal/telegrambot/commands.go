package telegrambot

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/antihype/morpheus-gateway/internal/messages"
	"github.com/antihype/morpheus-gateway/types"
)

func (bh *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update, user *types.User) {
	if update == nil || update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	fields := strings.Fields(strings.TrimSpace(update.Message.Text))
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	if strings.Contains(cmd, "@") {
		cmd = strings.SplitN(cmd, "@", 2)[0]
	}

	switch cmd {
	case "/start":
		bh.sendMainMenu(ctx, b, chatID, user)
	case "/history":
		bh.sendHistoryPage(ctx, b, chatID, 0, user, 1)
	case "/profile":
		bh.sendProfile(ctx, b, chatID, user)
	case "/help":
		bh.sendMainMenu(ctx, b, chatID, user)
	default:
		bh.sendText(ctx, b, chatID, messages.ErrorDefault)
	}
}

func (bh *Handlers) sendMainMenu(ctx context.Context, b *bot.Bot, chatID int64, user *types.User) {
	pad := func(s string) string { return "   " + s + "   " }
	rows := [][]models.InlineKeyboardButton{
		{{Text: pad(messages.BtnStartDialog), CallbackData: "new_dream"}},
		{{Text: pad(messages.BtnHistory), CallbackData: "history_page_1"}},
		{{Text: pad(messages.BtnProfile), CallbackData: "profile"}},
		{{Text: pad(messages.BtnOpenApp), WebApp: &models.WebAppInfo{URL: bh.cfg.WebAppURL}}},
	}
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.WelcomeBack(user.Info().Name),
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

func (bh *Handlers) sendProfile(ctx context.Context, b *bot.Bot, chatID int64, user *types.User) {
	premium := user.SubscriptionStatus == types.StatusPremium
	text := messages.Profile(user.Info().Name, premium, user.RemainingInterpretations)
	rows := [][]models.InlineKeyboardButton{
		{{Text: messages.BtnBack, CallbackData: "menu"}},
	}
	if !premium {
		rows = [][]models.InlineKeyboardButton{
			{{Text: messages.BtnSubscribe, CallbackData: "pay_stars"}},
			{{Text: messages.BtnBack, CallbackData: "menu"}},
		}
	}
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}
