package middleware

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/antihype/morpheus-gateway/internal/contextkeys"
)

// AnalyzeMessageMiddleware classifies the incoming update and puts the
// message type (and callback data, if any) into the context, so the main
// handler can dispatch without re-inspecting the update.
func AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var newCtx context.Context

		switch {
		case update.CallbackQuery != nil && update.CallbackQuery.Data != "":
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeClickButton)
			newCtx = contextkeys.WithCallbackData(newCtx, update.CallbackQuery.Data)
		case update.PreCheckoutQuery != nil:
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypePreCheckout)
		case update.Message != nil && update.Message.SuccessfulPayment != nil:
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypePayment)
		case update.Message != nil && strings.HasPrefix(strings.TrimSpace(update.Message.Text), "/"):
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCommand)
		case update.Message != nil && update.Message.Text != "":
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeText)
		default:
			newCtx = ctx
		}

		next(newCtx, b, update)
	}
}
