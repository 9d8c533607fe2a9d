// Package handlers contains the HTTP handlers of the bot.
//
// The Telegram webhook is called directly by the chat platform. It is
// authenticated by the shared secret the platform echoes in the
// X-Telegram-Bot-Api-Secret-Token header.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"

	"velobrief/internal/bot"
	"velobrief/internal/core"
	"velobrief/internal/types"
)

// EventHandler runs one inbound chat event through the conversation engine.
type EventHandler interface {
	Handle(ctx context.Context, ev bot.Event) (bot.Outcome, error)
}

// telegramUpdate is the subset of the Bot API Update object the bot reads.
type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message" validate:"omitempty"`
}

type telegramMessage struct {
	MessageID int64             `json:"message_id"`
	Chat      telegramChat      `json:"chat"`
	Text      string            `json:"text"`
	Location  *telegramLocation `json:"location" validate:"omitempty"`
}

type telegramChat struct {
	ID int64 `json:"id" validate:"required"`
}

type telegramLocation struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

func (m *telegramMessage) toEvent() bot.Event {
	ev := bot.Event{ChatID: m.Chat.ID, Text: m.Text}
	if m.Location != nil {
		ev.Location = &bot.Coordinates{Latitude: m.Location.Latitude, Longitude: m.Location.Longitude}
	}
	return ev
}

// TelegramWebhookHandler turns webhook updates into conversation events.
type TelegramWebhookHandler struct {
	events    EventHandler
	validator *core.Validator
	secret    types.SecretString
	logger    *slog.Logger
}

// NewTelegramWebhookHandler creates the handler. An empty secret disables
// the header check.
func NewTelegramWebhookHandler(
	events EventHandler,
	validator *core.Validator,
	secret types.SecretString,
	logger *slog.Logger,
) *TelegramWebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = core.NewValidator()
	}
	return &TelegramWebhookHandler{
		events:    events,
		validator: validator,
		secret:    secret,
		logger:    logger,
	}
}

// RegisterRoutes mounts the webhook endpoint.
func (h *TelegramWebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/telegram/webhook", h.Handle)
}

// Handle processes one update.
//
//  1. Rejects requests whose secret header does not match (403).
//  2. Decodes and validates the update; unusable updates are acknowledged
//     and dropped so the platform does not redeliver them. The update and
//     chat ids are added to the request log line.
//  3. Runs the event through the conversation engine to completion.
//  4. Acknowledges with 200. Provider and delivery failures were already
//     turned into replies, and a panic in the engine is logged and
//     acknowledged, so none of them trigger a platform redelivery.
func (h *TelegramWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.secret.IsSet() && !h.secret.Matches(r.Header.Get(core.SecretTokenHeader)) {
		h.logger.WarnContext(ctx, "webhook secret mismatch", "remote_addr", r.RemoteAddr)
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthWebhookSecret, "invalid webhook secret token", nil))
		return
	}

	var update telegramUpdate
	if err := core.DecodeJSON(w, r, &update); err != nil {
		h.logger.WarnContext(ctx, "dropping undecodable update", "error", err.Error())
		w.WriteHeader(http.StatusOK)
		return
	}
	core.Annotate(ctx, slog.Int64("update_id", update.UpdateID))
	if update.Message == nil {
		// Edited messages, callbacks and membership changes are not routed.
		h.logger.DebugContext(ctx, "ignoring update without message", "update_id", update.UpdateID)
		w.WriteHeader(http.StatusOK)
		return
	}
	core.Annotate(ctx, slog.Int64("chat_id", update.Message.Chat.ID))
	if err := h.validator.ValidateStruct(update); err != nil {
		h.logger.WarnContext(ctx, "dropping invalid update",
			"update_id", update.UpdateID,
			"error", err.Error(),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	out, err := h.dispatch(ctx, update.Message.toEvent())
	switch {
	case types.IsMalformedEvent(err):
		h.logger.DebugContext(ctx, "dropping malformed event", "update_id", update.UpdateID, "error", err.Error())
	case err != nil:
		h.logger.ErrorContext(ctx, "event processing failed", "update_id", update.UpdateID, "error", err.Error())
	default:
		core.Annotate(ctx, slog.String("state", out.To.String()), slog.String("result", string(out.Result)))
		h.logger.InfoContext(ctx, "update processed",
			"update_id", update.UpdateID,
			"chat_id", out.ChatID,
			"state", out.To.String(),
			"result", string(out.Result),
			"delivered", out.DeliveryErr == nil,
		)
	}
	w.WriteHeader(http.StatusOK)
}

// dispatch runs the engine and converts a panic into an error.
func (h *TelegramWebhookHandler) dispatch(ctx context.Context, ev bot.Event) (out bot.Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.ErrorContext(ctx, "panic while handling event",
				"chat_id", ev.ChatID,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			err = types.NewAppError(types.ErrCodeInternalUnexpected, "event handling panicked", nil)
		}
	}()
	return h.events.Handle(ctx, ev)
}
