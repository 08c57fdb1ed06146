package contextkeys

import "context"

type MessageType string

const (
	MessageTypeCommand     MessageType = "command"
	MessageTypeText        MessageType = "text"
	MessageTypeClickButton MessageType = "click_button"
	MessageTypePreCheckout MessageType = "pre_checkout"
	MessageTypePayment     MessageType = "payment"
)

type userIDKey struct{}
type messageTypeKey struct{}
type callbackDataKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey{})
	if v == nil {
		return "", false
	}
	return v.(string), true
}

func WithMessageType(ctx context.Context, t MessageType) context.Context {
	return context.WithValue(ctx, messageTypeKey{}, t)
}

func GetMessageType(ctx context.Context) (MessageType, bool) {
	v := ctx.Value(messageTypeKey{})
	if v == nil {
		return "", false
	}
	return v.(MessageType), true
}

func WithCallbackData(ctx context.Context, data string) context.Context {
	return context.WithValue(ctx, callbackDataKey{}, data)
}

func GetCallbackData(ctx context.Context) (string, bool) {
	v := ctx.Value(callbackDataKey{})
	if v == nil {
		return "", false
	}
	return v.(string), true
}
