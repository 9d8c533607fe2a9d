package bot

// Button labels of the main menu.
const (
	LabelSendLocation = "📍 Send location"
	LabelEnterCity    = "🏙 Enter a city"
	LabelRefresh      = "🔄 Refresh"
	LabelFinish       = "✅ Finish"
	LabelMenu         = "🏠 Menu"
)

// Button is one quick-reply action.
type Button struct {
	Label string
	// RequestLocation asks the chat client to share the user's position
	// when the button is tapped.
	RequestLocation bool
}

// Menu is a small grid of quick-reply actions. Its wire shape belongs to
// the delivery collaborator.
type Menu struct {
	Rows [][]Button
}

// MainMenu is attached to replies while the user is choosing what to do.
func MainMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: LabelSendLocation, RequestLocation: true}},
		{{Label: LabelEnterCity}, {Label: LabelRefresh}},
		{{Label: LabelFinish}},
	}}
}

// ResumeMenu follows a briefing or a pause. Only a new location or a
// return to the main menu change the state from there.
func ResumeMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: LabelSendLocation, RequestLocation: true}},
		{{Label: LabelMenu}},
	}}
}

// MenuFor picks the keyboard for a reply that leaves the chat in state.
// Every keyboard carries the location button.
func MenuFor(state State) *Menu {
	if state == StateDone || state == StatePaused {
		return ResumeMenu()
	}
	return MainMenu()
}
