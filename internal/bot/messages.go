package bot

import "fmt"

const (
	msgWelcome      = "🚴 Welcome! Share your location or tap \"Enter a city\" to get a ride briefing for the next hours."
	msgCityPrompt   = "🏙 Which city are you riding in? Send its name."
	msgPaused       = "👋 See you on the next ride! Share a location or send /start whenever you need a briefing."
	msgClarify      = "🤔 I didn't get that. Share your location, tap \"Enter a city\", or tap \"Finish\"."
	msgRefresh      = "🔄 Refreshing... share your location again."
	msgReminder     = "ℹ️ Share your location for a new briefing, or tap Menu to start over."
	msgUnavailable  = "⚠️ The forecast is unavailable right now. Please try again in a few minutes."
	notFoundPattern = "❌ I couldn't find %q. Check the spelling and send the city name again."
)

func msgNotFound(place string) string {
	return fmt.Sprintf(notFoundPattern, place)
}
