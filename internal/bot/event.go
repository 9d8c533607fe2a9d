package bot

import (
	"strings"
	"unicode"

	"velobrief/internal/types"
)

// Coordinates is a shared location.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Event is one inbound chat event. Exactly one of Text or Location is
// meaningful; a Location always wins.
type Event struct {
	ChatID   int64
	Text     string
	Location *Coordinates
}

// EventKind labels an event for logs and metrics.
func (e Event) EventKind() string {
	if e.Location != nil {
		return "location"
	}
	if isStartCommand(e.Text) {
		return "start"
	}
	return "text"
}

// Validate rejects events that cannot be routed to a chat or carry nothing.
func (e Event) Validate() error {
	if e.ChatID == 0 {
		return types.NewAppError(types.ErrCodeValidationMalformedEvent, "event has no chat identifier", nil)
	}
	if e.Location == nil && strings.TrimSpace(e.Text) == "" {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMalformedEvent,
			"event has neither text nor location", nil, map[string]any{"chat_id": e.ChatID})
	}
	return nil
}

// Action is a menu choice recognized in free text.
type Action uint8

const (
	ActionNone Action = iota
	ActionStart
	ActionEnterCity
	ActionFinish
	ActionRefresh
)

// actionWords maps normalized button labels and their typed synonyms.
var actionWords = map[string]Action{
	"enter a city": ActionEnterCity,
	"city":         ActionEnterCity,
	"/city":        ActionEnterCity,
	"finish":       ActionFinish,
	"stop":         ActionFinish,
	"/stop":        ActionFinish,
	"refresh":      ActionRefresh,
	"menu":         ActionStart,
	"/menu":        ActionStart,
}

// ParseAction classifies text typed or tapped by the user.
func ParseAction(text string) Action {
	if isStartCommand(text) {
		return ActionStart
	}
	if a, ok := actionWords[normalizeLabel(text)]; ok {
		return a
	}
	return ActionNone
}

// isStartCommand accepts "/start", "/start@botname" and deep-link payloads.
func isStartCommand(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	cmd := strings.Fields(t)[0]
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.EqualFold(cmd, "/start")
}

// normalizeLabel lowercases and strips the leading emoji of button labels.
func normalizeLabel(text string) string {
	t := strings.TrimLeftFunc(strings.TrimSpace(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/'
	})
	return strings.ToLower(strings.TrimSpace(t))
}
