package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Button is one inline keyboard action attached to a message.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// DeliveryError wraps a per-recipient send failure so the dispatcher can log
// and continue with the remaining recipients.
type DeliveryError struct {
	ChatID string
	Err    error
}

func (e DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.ChatID, e.Err)
}

func (e DeliveryError) Unwrap() error {
	return e.Err
}

// TooManyRequestsError represents a rate limiting signal from the Bot API.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// Client exposes the messaging primitives the core depends on.
type Client interface {
	SendMessage(ctx context.Context, chatID, text string, buttons [][]Button) (int64, error)
	SendPhoto(ctx context.Context, chatID, photo, caption string, buttons [][]Button) (int64, error)
	EditMessage(ctx context.Context, chatID string, messageID int64, text string, buttons [][]Button) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}

// HTTPClient implements Client against the Telegram Bot API.
type HTTPClient struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a Bot API client with default timeout. baseURL is
// normally https://api.telegram.org but is injectable for tests and proxies.
func NewHTTPClient(baseURL, token string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse bot api url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("bot api url must be absolute")
	}
	if token == "" {
		return nil, fmt.Errorf("bot token must be provided")
	}
	return &HTTPClient{
		baseURL: parsed,
		token:   token,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

func (c *HTTPClient) call(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := *c.baseURL
	endpoint.Path = fmt.Sprintf("/bot%s/%s", c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("decode bot api response: %w", err)
	}
	if !parsed.OK {
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := 5 * time.Second
			if parsed.Parameters != nil && parsed.Parameters.RetryAfter > 0 {
				retryAfter = time.Duration(parsed.Parameters.RetryAfter) * time.Second
			}
			return TooManyRequestsError{RetryAfter: retryAfter}
		}
		c.logger.Error("bot api request failed",
			slog.String("method", method),
			slog.Int("status", resp.StatusCode),
			slog.String("description", parsed.Description))
		return fmt.Errorf("bot api %s: %s", method, parsed.Description)
	}
	if result != nil {
		if err := json.Unmarshal(parsed.Result, result); err != nil {
			return fmt.Errorf("decode bot api result: %w", err)
		}
	}
	return nil
}

func markup(buttons [][]Button) map[string]any {
	if len(buttons) == 0 {
		return nil
	}
	return map[string]any{"inline_keyboard": buttons}
}

// SendMessage delivers a text message and returns its message id.
func (c *HTTPClient) SendMessage(ctx context.Context, chatID, text string, buttons [][]Button) (int64, error) {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if m := markup(buttons); m != nil {
		payload["reply_markup"] = m
	}
	var sent sentMessage
	if err := c.call(ctx, "sendMessage", payload, &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// SendPhoto delivers a photo by URL or file id with an optional caption.
func (c *HTTPClient) SendPhoto(ctx context.Context, chatID, photo, caption string, buttons [][]Button) (int64, error) {
	payload := map[string]any{
		"chat_id": chatID,
		"photo":   photo,
		"caption": caption,
	}
	if m := markup(buttons); m != nil {
		payload["reply_markup"] = m
	}
	var sent sentMessage
	if err := c.call(ctx, "sendPhoto", payload, &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessage rewrites a previously sent message in place.
func (c *HTTPClient) EditMessage(ctx context.Context, chatID string, messageID int64, text string, buttons [][]Button) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if m := markup(buttons); m != nil {
		payload["reply_markup"] = m
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

// AnswerCallback acknowledges a callback query, optionally with an alert.
func (c *HTTPClient) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	payload := map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
		"show_alert":        alert,
	}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}
