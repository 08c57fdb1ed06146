package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/antihype/morpheus-gateway/internal/messages"
	"github.com/antihype/morpheus-gateway/types"
)

// Client talks to the interpretation engine. It never retries on its own:
// by the time it is called the user's message is already persisted, and the
// caller decides whether re-issuing the request is worth it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type userInfoPayload struct {
	Name      string `json:"name"`
	BirthDate string `json:"birthDate,omitempty"`
}

type messagePayload struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type interpretRequest struct {
	UserInfo       userInfoPayload  `json:"user_info"`
	NewMessageText string           `json:"new_message_text"`
	History        []messagePayload `json:"history"`
	PreviousDreams []string         `json:"previous_dreams"`
}

type interpretResponse struct {
	Interpretation string `json:"interpretation"`
}

type validationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Msg     string `json:"msg"`
}

type validationResponse struct {
	Detail []validationDetail `json:"detail"`
}

func (c *Client) Interpret(ctx context.Context, user types.UserInfo, text string, history []types.Message, previousDreams []string) (string, error) {
	info := userInfoPayload{Name: user.Name}
	if user.BirthDate != nil {
		info.BirthDate = user.BirthDate.Format("2006-01-02")
	}

	sanitized := make([]messagePayload, 0, len(history))
	for _, m := range history {
		sanitized = append(sanitized, messagePayload{Role: string(m.Role), Content: m.Content})
	}
	if previousDreams == nil {
		previousDreams = []string{}
	}

	reqBody := interpretRequest{
		UserInfo:       info,
		NewMessageText: text,
		History:        sanitized,
		PreviousDreams: previousDreams,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/interpret", bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("ai: request failed: %v", err)
		return "", types.ErrInterpreterUnavailable
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("ai: reading response failed: %v", err)
		return "", types.ErrInterpreterUnavailable
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var parsed interpretResponse
		if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Interpretation == "" {
			log.Printf("ai: malformed success response: %s", string(raw))
			return "", types.ErrInterpreterUnavailable
		}
		return parsed.Interpretation, nil

	case resp.StatusCode == http.StatusUnprocessableEntity:
		return "", mapValidation(raw)

	default:
		// Detail is logged only, the caller gets one generic outcome.
		log.Printf("ai: engine returned status %d: %s", resp.StatusCode, string(raw))
		return "", types.ErrInterpreterUnavailable
	}
}

func mapValidation(raw []byte) error {
	var parsed validationResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Detail) == 0 {
		log.Printf("ai: malformed 422 response: %s", string(raw))
		return types.ErrInterpreterUnavailable
	}

	first := parsed.Detail[0]
	if first.Type == "string_too_short" || first.Type == "string_too_long" ||
		first.Field == "new_message_text" {
		return &types.InterpretationRejectedError{Message: messages.DreamTextLength}
	}

	detail := first.Message
	if detail == "" {
		detail = first.Msg
	}
	return &types.InterpretationRejectedError{Message: messages.DataError(detail)}
}
