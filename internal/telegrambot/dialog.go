package telegrambot

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/antihype/morpheus-gateway/internal/messages"
	"github.com/antihype/morpheus-gateway/types"
)

// HandleDreamText routes a plain text message into the chat orchestrator.
// With an active dialogue the text is a follow-up in that session, otherwise
// it opens a new one. A stale session reference (deleted from another
// channel) is cleared and the text starts a fresh dialogue.
func (bh *Handlers) HandleDreamText(ctx context.Context, b *bot.Bot, update *models.Update, user *types.User) {
	if update == nil || update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	telegramID := update.Message.From.ID
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	sessionID := bh.dialogs.GetActiveSession(ctx, telegramID)

	var (
		result *types.ChatResult
		err    error
	)
	if sessionID != "" {
		result, err = bh.chat.AddMessageToChat(ctx, sessionID, user.ID, text, types.ChannelTelegram)
		if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrForbidden) {
			_ = bh.dialogs.ClearActiveSession(ctx, telegramID)
			sessionID = ""
		}
	}
	if sessionID == "" {
		result, err = bh.chat.CreateNewChat(ctx, user.ID, text, types.ChannelTelegram)
	}
	if err != nil {
		log.Printf("Error processing dream text for user %s: %v", user.ID, err)
		if sessionID == "" {
			bh.sendText(ctx, b, chatID, messages.CouldNotStart)
		} else {
			bh.sendText(ctx, b, chatID, messages.CouldNotFollowUp)
		}
		return
	}

	if result.Session != nil {
		if err := bh.dialogs.SetActiveSession(ctx, telegramID, result.Session.ID); err != nil {
			log.Printf("Error saving active dialog for %d: %v", telegramID, err)
		}
	}

	bh.sendChatResult(ctx, b, chatID, result)
}

func (bh *Handlers) sendChatResult(ctx context.Context, b *bot.Bot, chatID int64, result *types.ChatResult) {
	if result.Action == types.ActionSubscribe {
		bh.sendSubscriptionOffer(ctx, b, chatID)
		return
	}
	if result.ErrorText != "" {
		bh.sendText(ctx, b, chatID, result.ErrorText)
		return
	}

	rows := [][]models.InlineKeyboardButton{
		{{Text: messages.BtnEndDialog, CallbackData: "end_dialog"}},
	}
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        result.Interpretation,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}
