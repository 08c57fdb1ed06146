package middleware

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/antihype/morpheus-gateway/internal/contextkeys"
)

func classify(t *testing.T, update *models.Update) (contextkeys.MessageType, string) {
	t.Helper()
	var gotType contextkeys.MessageType
	var gotData string
	handler := AnalyzeMessageMiddleware(func(ctx context.Context, b *bot.Bot, u *models.Update) {
		gotType, _ = contextkeys.GetMessageType(ctx)
		gotData, _ = contextkeys.GetCallbackData(ctx)
	})
	handler(context.Background(), nil, update)
	return gotType, gotData
}

func TestAnalyzeMessage(t *testing.T) {
	cases := []struct {
		name   string
		update *models.Update
		want   contextkeys.MessageType
	}{
		{
			name:   "command",
			update: &models.Update{Message: &models.Message{Text: "/start"}},
			want:   contextkeys.MessageTypeCommand,
		},
		{
			name:   "command with whitespace",
			update: &models.Update{Message: &models.Message{Text: "  /history"}},
			want:   contextkeys.MessageTypeCommand,
		},
		{
			name:   "dream text",
			update: &models.Update{Message: &models.Message{Text: "Я видел сон про полёт"}},
			want:   contextkeys.MessageTypeText,
		},
		{
			name:   "pre checkout",
			update: &models.Update{PreCheckoutQuery: &models.PreCheckoutQuery{ID: "q1"}},
			want:   contextkeys.MessageTypePreCheckout,
		},
		{
			name: "successful payment",
			update: &models.Update{Message: &models.Message{
				SuccessfulPayment: &models.SuccessfulPayment{InvoicePayload: "sub_premium"},
			}},
			want: contextkeys.MessageTypePayment,
		},
	}

	for _, tc := range cases {
		got, _ := classify(t, tc.update)
		if got != tc.want {
			t.Errorf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestAnalyzeCallback(t *testing.T) {
	update := &models.Update{CallbackQuery: &models.CallbackQuery{Data: "history_page_2"}}
	gotType, gotData := classify(t, update)
	if gotType != contextkeys.MessageTypeClickButton {
		t.Errorf("got %q want click_button", gotType)
	}
	if gotData != "history_page_2" {
		t.Errorf("wrong callback data: %q", gotData)
	}
}
