// Error code classification: internal (server-side defect) vs client-caused
package oteltrpc

// CodeUnexpected is the synthetic error code reported on the count metric
// when a handler fails through the error channel instead of returning an
// Outcome.
const CodeUnexpected = "UNEXPECTED_ERROR"

// internalCodes is the closed set of handled-failure codes that indicate a
// server-side defect. Everything outside the set is a client or validation
// failure and stays out of error-level logging.
var internalCodes = map[string]struct{}{
	"INTERNAL_SERVER_ERROR": {},
	"NOT_IMPLEMENTED":       {},
	"BAD_GATEWAY":           {},
	"SERVICE_UNAVAILABLE":   {},
	"GATEWAY_TIMEOUT":       {},
}

// InternalCode reports whether a handled-failure code indicates a
// server-side defect rather than a client mistake.
func InternalCode(code string) bool {
	_, ok := internalCodes[code]
	return ok
}
