package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricInterpretationsProcessed = "InterpretationsProcessed"
	MetricInterpretationsRejected  = "InterpretationsRejected"
	MetricClassificationCount      = "ClassificationCount"
	MetricResultPublishFailed      = "ResultPublishFailed"
	MetricAPILatency               = "APILatency"

	// Dimension Keys
	DimIndicator = "Indicator"
	DimStatus    = "Status"
	DimEndpoint  = "Endpoint"

	// Metric Namespace
	MetricNamespace = "GrowthWatch"
)
