package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricEventHandled    = "EventHandled"
	MetricBriefingSent    = "BriefingSent"
	MetricForecastLookup  = "ForecastLookup"
	MetricForecastLatency = "ForecastLookupLatency"
	MetricDeliveryFailed  = "DeliveryFailed"
	MetricSessionsActive  = "SessionsActive"

	// Dimension Keys
	DimEventType = "EventType"
	DimOutcome   = "Outcome"
	DimProvider  = "Provider"
	DimQuery     = "QueryKind"

	// Metric Namespace
	MetricNamespace = "VeloBrief"
)
