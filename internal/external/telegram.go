package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"velobrief/internal/bot"
	"velobrief/internal/types"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramConfig holds the settings for TelegramClient.
type TelegramConfig struct {
	Token   types.SecretString
	BaseURL string // defaults to telegramAPIBase
	Logger  *slog.Logger
}

// TelegramClient delivers replies through the Bot API sendMessage method.
type TelegramClient struct {
	base    *BaseClient
	token   types.SecretString
	baseURL string
	logger  *slog.Logger
}

var _ bot.Sender = (*TelegramClient)(nil)

// NewTelegramClient creates a client on top of a configured BaseClient.
func NewTelegramClient(base *BaseClient, cfg TelegramConfig) *TelegramClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = telegramAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramClient{
		base:    base,
		token:   cfg.Token,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

type sendMessageRequest struct {
	ChatID      int64          `json:"chat_id"`
	Text        string         `json:"text"`
	ReplyMarkup *replyKeyboard `json:"reply_markup,omitempty"`
}

type replyKeyboard struct {
	Keyboard       [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

type keyboardButton struct {
	Text            string `json:"text"`
	RequestLocation bool   `json:"request_location,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send posts one message with the menu rendered as a reply keyboard.
func (c *TelegramClient) Send(ctx context.Context, chatID int64, text string, menu *bot.Menu) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: keyboardFor(menu),
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to serialize message", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token.Unmask())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build sendMessage request",
			redactError(err, c.token.Unmask()))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamChatDelivery, "message delivery failed",
			redactError(err, c.token.Unmask()))
	}
	defer resp.Body.Close()

	var result apiResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode/100 != 2 || decodeErr != nil || !result.OK {
		c.logger.WarnContext(ctx, "chat platform rejected message",
			"chat_id", chatID,
			"status", resp.StatusCode,
			"description", result.Description,
		)
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamChatDelivery,
			fmt.Sprintf("sendMessage returned %d", resp.StatusCode), decodeErr,
			map[string]any{"description": result.Description})
	}
	return nil
}

func keyboardFor(menu *bot.Menu) *replyKeyboard {
	if menu == nil || len(menu.Rows) == 0 {
		return nil
	}
	kb := &replyKeyboard{
		Keyboard:       make([][]keyboardButton, 0, len(menu.Rows)),
		ResizeKeyboard: true,
	}
	for _, row := range menu.Rows {
		buttons := make([]keyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, keyboardButton{Text: b.Label, RequestLocation: b.RequestLocation})
		}
		kb.Keyboard = append(kb.Keyboard, buttons)
	}
	return kb
}
