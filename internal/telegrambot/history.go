package telegrambot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/antihype/morpheus-gateway/internal/contextkeys"
	"github.com/antihype/morpheus-gateway/internal/messages"
	"github.com/antihype/morpheus-gateway/types"
)

// historyPageLimit matches the smaller of the cached page sizes, so bot
// pagination is served from the same cache entries as the web list.
const historyPageLimit = 5

// transcriptLimit keeps session transcripts under the Telegram message cap.
const transcriptLimit = 3500

func (bh *Handlers) HandleClickButton(ctx context.Context, b *bot.Bot, update *models.Update, user *types.User) {
	if update == nil || update.CallbackQuery == nil {
		return
	}

	data, _ := contextkeys.GetCallbackData(ctx)
	if data == "" {
		data = update.CallbackQuery.Data
	}
	data = strings.TrimSpace(data)

	chatID := bh.getChatIDFromUpdate(update)
	messageID := 0
	if update.CallbackQuery.Message.Message != nil {
		messageID = update.CallbackQuery.Message.Message.ID
	}

	_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")

	switch {
	case data == "menu":
		bh.sendMainMenu(ctx, b, chatID, user)
	case data == "profile":
		bh.sendProfile(ctx, b, chatID, user)
	case data == "new_dream":
		_ = bh.dialogs.ClearActiveSession(ctx, update.CallbackQuery.From.ID)
		bh.sendText(ctx, b, chatID, messages.DialogStart)
	case data == "end_dialog":
		_ = bh.dialogs.ClearActiveSession(ctx, update.CallbackQuery.From.ID)
		bh.sendText(ctx, b, chatID, messages.DialogEnd)
	case data == "pay_stars":
		bh.sendInvoiceStars(ctx, b, chatID)
	case strings.HasPrefix(data, "history_page_"):
		page, err := strconv.Atoi(strings.TrimPrefix(data, "history_page_"))
		if err != nil || page < 1 {
			page = 1
		}
		bh.sendHistoryPage(ctx, b, chatID, messageID, user, page)
	case strings.HasPrefix(data, "session_"):
		bh.sendSessionDetail(ctx, b, chatID, messageID, user, strings.TrimPrefix(data, "session_"))
	case strings.HasPrefix(data, "continue_"):
		sessionID := strings.TrimPrefix(data, "continue_")
		if err := bh.dialogs.SetActiveSession(ctx, update.CallbackQuery.From.ID, sessionID); err != nil {
			log.Printf("Error saving active dialog for %d: %v", update.CallbackQuery.From.ID, err)
			bh.sendText(ctx, b, chatID, messages.ErrorDefault)
			return
		}
		bh.sendText(ctx, b, chatID, messages.DialogStart)
	case strings.HasPrefix(data, "confirm_delete_"):
		bh.sendDeleteConfirm(ctx, b, chatID, messageID, strings.TrimPrefix(data, "confirm_delete_"))
	case strings.HasPrefix(data, "delete_"):
		bh.deleteSession(ctx, b, chatID, messageID, update.CallbackQuery.From.ID, user, strings.TrimPrefix(data, "delete_"))
	}
}

// sendHistoryPage renders one page of the dream history. When messageID is
// set the existing message is edited in place, which keeps pagination from
// flooding the chat.
func (bh *Handlers) sendHistoryPage(ctx context.Context, b *bot.Bot, chatID int64, messageID int, user *types.User, page int) {
	result, err := bh.chat.GetSessionsByUser(ctx, user.ID, page, historyPageLimit)
	if err != nil {
		log.Printf("Error loading history for user %s: %v", user.ID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault)
		return
	}

	if result.Total == 0 {
		bh.editOrSend(ctx, b, chatID, messageID, messages.HistoryEmpty, nil)
		return
	}

	rows := make([][]models.InlineKeyboardButton, 0, len(result.Sessions)+2)
	for _, s := range result.Sessions {
		title := s.Title
		if title == "" {
			title = s.CreatedAt.Format("02.01.2006")
		}
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: title, CallbackData: "session_" + s.ID},
		})
	}

	nav := make([]models.InlineKeyboardButton, 0, 2)
	if page > 1 {
		nav = append(nav, models.InlineKeyboardButton{
			Text: messages.BtnPrevPage, CallbackData: fmt.Sprintf("history_page_%d", page-1),
		})
	}
	if page < result.TotalPages {
		nav = append(nav, models.InlineKeyboardButton{
			Text: messages.BtnNextPage, CallbackData: fmt.Sprintf("history_page_%d", page+1),
		})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: messages.BtnBack, CallbackData: "menu"},
	})

	text := messages.HistoryIntro + "\n\n" + messages.HistoryPageFooter(result.Page, result.TotalPages)
	bh.editOrSend(ctx, b, chatID, messageID, text, &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (bh *Handlers) sendSessionDetail(ctx context.Context, b *bot.Bot, chatID int64, messageID int, user *types.User, sessionID string) {
	detail, err := bh.chat.GetSessionDetail(ctx, sessionID)
	if err != nil {
		log.Printf("Error loading session %s: %v", sessionID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault)
		return
	}
	if detail.Session.UserID != user.ID {
		bh.sendText(ctx, b, chatID, messages.ErrorDefault)
		return
	}

	var sb strings.Builder
	sb.WriteString(detail.Session.Title)
	sb.WriteString("\n")
	for _, m := range detail.Messages {
		sb.WriteString("\n")
		if m.Role == types.RoleUser {
			sb.WriteString("💬 ")
		} else {
			sb.WriteString("🔮 ")
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	text := sb.String()
	if runes := []rune(text); len(runes) > transcriptLimit {
		text = string(runes[:transcriptLimit]) + "…"
	}

	rows := [][]models.InlineKeyboardButton{
		{{Text: messages.BtnContinue, CallbackData: "continue_" + sessionID}},
		{{Text: messages.BtnDelete, CallbackData: "confirm_delete_" + sessionID}},
		{{Text: messages.BtnBack, CallbackData: "history_page_1"}},
	}
	bh.editOrSend(ctx, b, chatID, messageID, text, &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (bh *Handlers) sendDeleteConfirm(ctx context.Context, b *bot.Bot, chatID int64, messageID int, sessionID string) {
	rows := [][]models.InlineKeyboardButton{
		{{Text: messages.BtnConfirmDelete, CallbackData: "delete_" + sessionID}},
		{{Text: messages.BtnBack, CallbackData: "session_" + sessionID}},
	}
	bh.editOrSend(ctx, b, chatID, messageID, messages.DeleteConfirm, &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (bh *Handlers) deleteSession(ctx context.Context, b *bot.Bot, chatID int64, messageID int, telegramID int64, user *types.User, sessionID string) {
	if err := bh.chat.DeleteSession(ctx, sessionID, user.ID); err != nil {
		log.Printf("Error deleting session %s: %v", sessionID, err)
		bh.sendText(ctx, b, chatID, messages.DeleteFailed)
		return
	}
	if bh.dialogs.GetActiveSession(ctx, telegramID) == sessionID {
		_ = bh.dialogs.ClearActiveSession(ctx, telegramID)
	}
	bh.sendText(ctx, b, chatID, messages.DeleteDone)
	bh.sendHistoryPage(ctx, b, chatID, messageID, user, 1)
}

func (bh *Handlers) editOrSend(ctx context.Context, b *bot.Bot, chatID int64, messageID int, text string, keyboard *models.InlineKeyboardMarkup) {
	if messageID != 0 {
		params := &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      text,
		}
		if keyboard != nil {
			params.ReplyMarkup = keyboard
		}
		if _, err := b.EditMessageText(ctx, params); err == nil {
			return
		}
	}
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	_, _ = b.SendMessage(ctx, params)
}
