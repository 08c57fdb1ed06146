package telegrambot

import (
	"context"
	"errors"
	"log"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/antihype/morpheus-gateway/internal/contextkeys"
	"github.com/antihype/morpheus-gateway/internal/messages"
	"github.com/antihype/morpheus-gateway/store"
	"github.com/antihype/morpheus-gateway/types"
)

// ChatService is the slice of the chat orchestrator the bot needs.
type ChatService interface {
	CreateNewChat(ctx context.Context, userID, text string, channel types.Channel) (*types.ChatResult, error)
	AddMessageToChat(ctx context.Context, sessionID, userID, text string, channel types.Channel) (*types.ChatResult, error)
	GetSessionsByUser(ctx context.Context, userID string, page, limit int) (*types.SessionPage, error)
	GetSessionDetail(ctx context.Context, sessionID string) (*types.SessionDetail, error)
	DeleteSession(ctx context.Context, sessionID, userID string) error
}

// QuotaService upgrades a user after a successful Stars payment.
type QuotaService interface {
	UpgradeTier(ctx context.Context, userID string) (*types.User, error)
}

// IdentityService resolves a Telegram id to a gateway account. Resolution
// goes through the identity layer so the user projection cache is warmed on
// every inbound update.
type IdentityService interface {
	ResolveTelegram(ctx context.Context, telegramID int64) (*types.User, error)
}

type Config struct {
	WebAppURL        string
	PremiumPriceXTR  int
	SubscribePayload string
}

type Handlers struct {
	users   types.UserStore
	ids     IdentityService
	chat    ChatService
	quota   QuotaService
	dialogs *store.DialogStore
	cfg     Config
}

func NewHandlers(users types.UserStore, ids IdentityService, chat ChatService, quota QuotaService, dialogs *store.DialogStore, cfg Config) *Handlers {
	return &Handlers{
		users:   users,
		ids:     ids,
		chat:    chat,
		quota:   quota,
		dialogs: dialogs,
		cfg:     cfg,
	}
}

// MainHandler resolves the Telegram identity to a gateway account and
// dispatches by message type. Users without a linked account only ever see
// the onboarding prompt; pre-checkout is answered before resolution so a
// payment is never silently dropped.
func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	messageType, ok := contextkeys.GetMessageType(ctx)
	if !ok {
		return
	}

	if messageType == contextkeys.MessageTypePreCheckout {
		bh.HandlePreCheckout(ctx, b, update)
		return
	}

	chatID := bh.getChatIDFromUpdate(update)
	telegramID := bh.getTelegramIDFromUpdate(update)
	if chatID == 0 || telegramID == 0 {
		return
	}

	user, err := bh.ids.ResolveTelegram(ctx, telegramID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			bh.sendOnboarding(ctx, b, chatID)
			return
		}
		log.Printf("Error resolving telegram user %d: %v", telegramID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault)
		return
	}

	switch messageType {
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, b, update, user)
	case contextkeys.MessageTypeText:
		bh.HandleDreamText(ctx, b, update, user)
	case contextkeys.MessageTypeClickButton:
		bh.HandleClickButton(ctx, b, update, user)
	case contextkeys.MessageTypePayment:
		bh.HandleSuccessfulPayment(ctx, b, update, user)
	default:
		bh.sendText(ctx, b, chatID, messages.ErrorDefault)
	}
}

func (bh *Handlers) sendOnboarding(ctx context.Context, b *bot.Bot, chatID int64) {
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   messages.Onboarding,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: messages.BtnOpenApp, WebApp: &models.WebAppInfo{URL: bh.cfg.WebAppURL}}},
			},
		},
	})
}

func (bh *Handlers) sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
}

func (bh *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string) error {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	return err
}

func (bh *Handlers) getChatIDFromUpdate(update *models.Update) int64 {
	if update == nil {
		return 0
	}
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message.Message != nil {
			return update.CallbackQuery.Message.Message.Chat.ID
		}
		if update.CallbackQuery.Message.InaccessibleMessage != nil {
			return update.CallbackQuery.Message.InaccessibleMessage.Chat.ID
		}
	}
	return 0
}

func (bh *Handlers) getTelegramIDFromUpdate(update *models.Update) int64 {
	if update == nil {
		return 0
	}
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// SendText is the plain sender the HTTP layer uses for out-of-band messages,
// like the link confirmation after a WebApp auth.
func SendText(ctx context.Context, b *bot.Bot, chatID int64, text string) error {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	return err
}
