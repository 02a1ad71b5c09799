// Procedure identity and handler outcome types
// A handler either returns an Outcome or fails through the error channel
package oteltrpc

// ProcedureType distinguishes the three kinds of tRPC procedures.
type ProcedureType string

const (
	TypeQuery        ProcedureType = "query"
	TypeMutation     ProcedureType = "mutation"
	TypeSubscription ProcedureType = "subscription"
)

// Procedure identifies the procedure a single call invokes.
// Built once at call start and reused for every metric and log emission.
type Procedure struct {
	Path string
	Type ProcedureType
}

// Outcome is the result a handler reports when it completes on its own.
// OK true means success; OK false means the handler recognised and reported
// a failure under ErrorCode. A handler that fails without producing an
// Outcome returns a non-nil error from Next instead.
type Outcome struct {
	OK        bool
	ErrorCode string
}

// Success returns the successful outcome.
func Success() Outcome {
	return Outcome{OK: true}
}

// Failure returns a handled-failure outcome carrying the given error code.
func Failure(code string) Outcome {
	return Outcome{ErrorCode: code}
}
