package telegrambot

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/antihype/morpheus-gateway/internal/messages"
	"github.com/antihype/morpheus-gateway/types"
)

func (bh *Handlers) sendSubscriptionOffer(ctx context.Context, b *bot.Bot, chatID int64) {
	rows := [][]models.InlineKeyboardButton{
		{{Text: messages.BtnSubscribe, CallbackData: "pay_stars"}},
	}
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.SubscribeHint,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
}

// sendInvoiceStars issues a Telegram Stars invoice. Stars invoices carry an
// empty provider token, the currency alone selects the rail.
func (bh *Handlers) sendInvoiceStars(ctx context.Context, b *bot.Bot, chatID int64) {
	_, err := b.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:      chatID,
		Title:       "Premium-подписка",
		Description: "Расширенный лимит толкований снов",
		Payload:     bh.cfg.SubscribePayload,
		Currency:    "XTR",
		Prices: []models.LabeledPrice{
			{Label: "Premium", Amount: bh.cfg.PremiumPriceXTR},
		},
		StartParameter: "premium",
		ProviderToken:  "",
	})
	if err != nil {
		log.Printf("Error sending invoice to chat %d: %v", chatID, err)
		bh.sendText(ctx, b, chatID, messages.ErrorDefault)
	}
}

func (bh *Handlers) HandlePreCheckout(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.PreCheckoutQuery == nil {
		return
	}
	ok := strings.TrimSpace(update.PreCheckoutQuery.InvoicePayload) == bh.cfg.SubscribePayload
	errMsg := ""
	if !ok {
		errMsg = messages.PaymentInvalid
	}
	_, _ = b.AnswerPreCheckoutQuery(ctx, &bot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: update.PreCheckoutQuery.ID,
		OK:                 ok,
		ErrorMessage:       errMsg,
	})
}

// HandleSuccessfulPayment records the charge and upgrades the account, then
// answers in chat with the outcome.
func (bh *Handlers) HandleSuccessfulPayment(ctx context.Context, b *bot.Bot, update *models.Update, user *types.User) {
	if update == nil || update.Message == nil || update.Message.SuccessfulPayment == nil {
		return
	}
	p := update.Message.SuccessfulPayment
	if strings.TrimSpace(p.InvoicePayload) != bh.cfg.SubscribePayload {
		return
	}
	bh.sendText(ctx, b, update.Message.Chat.ID, bh.applyPayment(ctx, user, p))
}

// applyPayment records the charge and upgrades the account. The charge id is
// unique in storage, so a replayed update answers "already processed" instead
// of granting a second upgrade.
func (bh *Handlers) applyPayment(ctx context.Context, user *types.User, p *models.SuccessfulPayment) string {
	inserted, err := bh.users.RecordPayment(ctx, types.Payment{
		UserID:                user.ID,
		Provider:              "stars",
		Currency:              strings.TrimSpace(p.Currency),
		TotalAmount:           int64(p.TotalAmount),
		InvoicePayload:        strings.TrimSpace(p.InvoicePayload),
		TelegramPaymentCharge: strings.TrimSpace(p.TelegramPaymentChargeID),
		ProviderPaymentCharge: strings.TrimSpace(p.ProviderPaymentChargeID),
		CreatedAt:             time.Now().UTC(),
	})
	if err != nil {
		log.Printf("Error recording payment for user %s: %v", user.ID, err)
		return messages.ErrorDefault
	}
	if !inserted {
		return messages.PaymentAlreadyProcessed
	}

	if _, err := bh.quota.UpgradeTier(ctx, user.ID); err != nil {
		log.Printf("Error upgrading user %s after payment: %v", user.ID, err)
		return messages.ErrorDefault
	}
	return messages.PaymentSucceeded
}
