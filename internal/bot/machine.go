// Package bot implements the per-chat conversation engine: it routes each
// inbound event through the state machine, performs at most one forecast
// lookup and emits exactly one reply.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"velobrief/internal/forecast"
	"velobrief/internal/metrics"
	"velobrief/internal/types"
)

// Forecaster resolves forecasts. Implementations return an AppError with
// ErrCodeNotFoundLocation for unknown places and an upstream_ code when the
// provider is unreachable.
type Forecaster interface {
	ByCoordinates(ctx context.Context, lat, lon float64) (forecast.Forecast, error)
	ByPlace(ctx context.Context, name string) (forecast.Forecast, error)
}

// Sender delivers one reply with the menu attached.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, menu *Menu) error
}

// Default deadlines. Together they stay under the webhook request timeout.
const (
	DefaultLookupTimeout = 15 * time.Second
	DefaultReplyTimeout  = 10 * time.Second
)

// Outcome describes what one event did to its conversation.
type Outcome struct {
	ChatID   int64
	From, To State
	Result   metrics.Result
	// DeliveryErr is set when the reply could not be delivered. The
	// transition is kept regardless.
	DeliveryErr error

	lookup *lookupRecord
}

// lookupRecord is a forecast lookup waiting to be reported once the chat
// lock is released.
type lookupRecord struct {
	query   string
	result  metrics.Result
	latency time.Duration
}

// Briefed reports whether the reply was a briefing.
func (o Outcome) Briefed() bool { return o.Result == metrics.ResultBriefing }

// Machine is safe for concurrent use.
type Machine struct {
	store      *Store
	forecaster Forecaster
	sender     Sender
	composer   *forecast.Composer
	metrics    metrics.Recorder
	clock      types.Clock
	logger     *slog.Logger

	lookupTimeout time.Duration
	replyTimeout  time.Duration
}

// MachineOption configures optional collaborators.
type MachineOption func(*Machine)

// WithMetrics sets the metrics recorder. Defaults to metrics.Noop.
func WithMetrics(r metrics.Recorder) MachineOption {
	return func(m *Machine) { m.metrics = r }
}

// WithClock overrides the clock used for window selection.
func WithClock(c types.Clock) MachineOption {
	return func(m *Machine) { m.clock = c }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) MachineOption {
	return func(m *Machine) { m.logger = l }
}

// WithLookupTimeout bounds one forecast lookup, retries included.
func WithLookupTimeout(d time.Duration) MachineOption {
	return func(m *Machine) {
		if d > 0 {
			m.lookupTimeout = d
		}
	}
}

// WithReplyTimeout bounds one reply delivery. The reply is sent even when
// the inbound request has already been canceled.
func WithReplyTimeout(d time.Duration) MachineOption {
	return func(m *Machine) {
		if d > 0 {
			m.replyTimeout = d
		}
	}
}

// NewMachine wires the engine.
func NewMachine(store *Store, f Forecaster, s Sender, c *forecast.Composer, opts ...MachineOption) *Machine {
	m := &Machine{
		store:      store,
		forecaster: f,
		sender:     s,
		composer:   c,
		metrics:    metrics.Noop{},
		clock:      types.RealClock{},
		logger:     slog.Default(),

		lookupTimeout: DefaultLookupTimeout,
		replyTimeout:  DefaultReplyTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store exposes the session store for health reporting and the janitor.
func (m *Machine) Store() *Store { return m.store }

// Handle processes one event to completion. It returns an error only for a
// malformed event, which callers drop silently. Provider and delivery
// failures are degraded into replies and recorded on the Outcome.
func (m *Machine) Handle(ctx context.Context, ev Event) (Outcome, error) {
	if err := ev.Validate(); err != nil {
		return Outcome{}, err
	}
	ctx = types.WithChatID(ctx, ev.ChatID)

	var out Outcome
	m.store.With(ev.ChatID, func(sess *Session) {
		out = m.step(ctx, sess, ev)
	})

	// Metrics may call out to the network, so they wait for the lock to go.
	if l := out.lookup; l != nil {
		m.metrics.RecordForecastLookup(ctx, l.query, l.result, l.latency)
	}
	if out.DeliveryErr != nil {
		m.metrics.RecordDeliveryFailure(ctx)
	}
	m.metrics.RecordEvent(ctx, ev.EventKind(), out.Result)
	m.logger.DebugContext(ctx, "conversation transition",
		"chat_id", ev.ChatID,
		"event", ev.EventKind(),
		"from", out.From.String(),
		"to", out.To.String(),
		"result", string(out.Result),
	)
	return out, nil
}

// step applies the transition table to sess. It runs under the chat's lock.
func (m *Machine) step(ctx context.Context, sess *Session, ev Event) Outcome {
	out := Outcome{ChatID: ev.ChatID, From: sess.State, Result: metrics.ResultReply}

	var (
		reply string
		next  = sess.State
	)
	switch {
	case ev.Location != nil:
		reply, out.Result, out.lookup = m.briefByCoordinates(ctx, *ev.Location)
		next = StateDone

	case ParseAction(ev.Text) == ActionStart:
		reply, next = msgWelcome, StateAwaitingChoice

	default:
		reply, next, out.Result, out.lookup = m.onText(ctx, sess.State, ev.Text)
	}

	sess.State = next
	sess.PendingCity = next == StateAwaitingCity
	out.To = next

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.replyTimeout)
	defer cancel()
	if err := m.sender.Send(sendCtx, ev.ChatID, reply, MenuFor(next)); err != nil {
		out.DeliveryErr = err
		m.logger.WarnContext(ctx, "reply delivery failed",
			"chat_id", ev.ChatID,
			"error", err.Error(),
			"code", string(types.CodeOf(err)),
		)
	}
	return out
}

// onText handles a non-restart text in the given state.
func (m *Machine) onText(ctx context.Context, state State, text string) (string, State, metrics.Result, *lookupRecord) {
	switch state {
	case StateNew:
		// First contact without /start still opens the menu.
		return msgWelcome, StateAwaitingChoice, metrics.ResultReply, nil

	case StateAwaitingChoice:
		switch ParseAction(text) {
		case ActionEnterCity:
			return msgCityPrompt, StateAwaitingCity, metrics.ResultReply, nil
		case ActionFinish:
			return msgPaused, StatePaused, metrics.ResultReply, nil
		case ActionRefresh:
			return msgRefresh, StateAwaitingChoice, metrics.ResultReply, nil
		default:
			return msgClarify, StateAwaitingChoice, metrics.ResultReply, nil
		}

	case StateAwaitingCity:
		place := strings.TrimSpace(text)
		reply, result, lookup := m.briefByPlace(ctx, place)
		if result == metrics.ResultBriefing {
			return reply, StateDone, result, lookup
		}
		return reply, StateAwaitingCity, result, lookup

	default:
		return msgReminder, state, metrics.ResultReply, nil
	}
}

func (m *Machine) briefByCoordinates(ctx context.Context, c Coordinates) (string, metrics.Result, *lookupRecord) {
	lctx, cancel := context.WithTimeout(ctx, m.lookupTimeout)
	defer cancel()

	start := time.Now()
	f, err := m.forecaster.ByCoordinates(lctx, c.Latitude, c.Longitude)
	lookup := &lookupRecord{query: "coordinates", result: lookupResult(err), latency: time.Since(start)}
	if err != nil {
		m.logLookupFailure(ctx, "coordinates", err)
		return msgUnavailable, metrics.ResultUnavailable, lookup
	}
	label := f.Place
	if label == "" {
		label = "Your location"
	}
	return m.composer.Brief(f, label, m.clock.Now()).Render(), metrics.ResultBriefing, lookup
}

func (m *Machine) briefByPlace(ctx context.Context, place string) (string, metrics.Result, *lookupRecord) {
	lctx, cancel := context.WithTimeout(ctx, m.lookupTimeout)
	defer cancel()

	start := time.Now()
	f, err := m.forecaster.ByPlace(lctx, place)
	lookup := &lookupRecord{query: "place", result: lookupResult(err), latency: time.Since(start)}
	switch {
	case err == nil:
		label := f.Place
		if label == "" {
			label = place
		}
		return m.composer.Brief(f, label, m.clock.Now()).Render(), metrics.ResultBriefing, lookup
	case types.IsLocationNotFound(err):
		return msgNotFound(place), metrics.ResultNotFound, lookup
	default:
		m.logLookupFailure(ctx, "place", err)
		return msgUnavailable, metrics.ResultUnavailable, lookup
	}
}

func (m *Machine) logLookupFailure(ctx context.Context, query string, err error) {
	level := slog.LevelWarn
	if !types.IsUpstream(err) && !types.IsLocationNotFound(err) && !errors.Is(err, context.DeadlineExceeded) {
		level = slog.LevelError
	}
	m.logger.Log(ctx, level, "forecast lookup failed",
		"query", query,
		"error", err.Error(),
		"code", string(types.CodeOf(err)),
	)
}

func lookupResult(err error) metrics.Result {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case types.IsLocationNotFound(err):
		return metrics.ResultNotFound
	default:
		return metrics.ResultFailed
	}
}
