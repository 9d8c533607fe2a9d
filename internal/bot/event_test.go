package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"velobrief/internal/types"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		text string
		want Action
	}{
		{"/start", ActionStart},
		{"  /start  ", ActionStart},
		{"/start@VeloBriefBot", ActionStart},
		{"/start promo", ActionStart},
		{"/START", ActionStart},
		{"/started", ActionNone},
		{LabelEnterCity, ActionEnterCity},
		{"enter a city", ActionEnterCity},
		{"City", ActionEnterCity},
		{LabelFinish, ActionFinish},
		{"stop", ActionFinish},
		{LabelRefresh, ActionRefresh},
		{"Paris", ActionNone},
		{"", ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAction(tt.text))
		})
	}
}

func TestEvent_Validate(t *testing.T) {
	assert.NoError(t, Event{ChatID: 1, Text: "hi"}.Validate())
	assert.NoError(t, Event{ChatID: 1, Location: &Coordinates{}}.Validate())

	err := Event{Text: "hi"}.Validate()
	assert.True(t, types.IsMalformedEvent(err))

	err = Event{ChatID: 1, Text: "   "}.Validate()
	assert.True(t, types.IsMalformedEvent(err))
}

func TestEvent_EventKind(t *testing.T) {
	assert.Equal(t, "location", Event{Text: "/start", Location: &Coordinates{}}.EventKind())
	assert.Equal(t, "start", Event{Text: "/start"}.EventKind())
	assert.Equal(t, "text", Event{Text: "Lyon"}.EventKind())
}

func menuLabels(m *Menu) []string {
	var labels []string
	for _, row := range m.Rows {
		for _, b := range row {
			labels = append(labels, b.Label)
		}
	}
	return labels
}

func TestMenus_CarryOneLocationButton(t *testing.T) {
	for _, state := range []State{StateNew, StateAwaitingChoice, StateAwaitingCity, StateDone, StatePaused} {
		var requestsLocation int
		for _, row := range MenuFor(state).Rows {
			for _, b := range row {
				if b.RequestLocation {
					requestsLocation++
					assert.Equal(t, LabelSendLocation, b.Label)
				}
			}
		}
		assert.Equal(t, 1, requestsLocation, state.String())
	}
}

func TestMenuFor_DoneAndPausedOfferOnlyStateChangingActions(t *testing.T) {
	for _, state := range []State{StateDone, StatePaused} {
		labels := menuLabels(MenuFor(state))
		assert.ElementsMatch(t, []string{LabelSendLocation, LabelMenu}, labels, state.String())
		assert.Equal(t, ActionStart, ParseAction(LabelMenu))
	}
	assert.Contains(t, menuLabels(MenuFor(StateAwaitingChoice)), LabelRefresh)
}
