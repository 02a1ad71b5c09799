// gRPC unary server adapter for the oteltrpc interceptor
// Maps full method names to procedure paths and status errors to handled
// failures; non-status errors take the unexpected path
package grpcbridge

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/andrewh/oteltrpc/pkg/oteltrpc"
)

// TypeClassifier maps a full gRPC method name (e.g. "/user.v1.UserService/GetUser")
// to a procedure type. The default classifier treats every method as a
// mutation; services with read-only methods supply their own.
type TypeClassifier func(fullMethod string) oteltrpc.ProcedureType

// Option configures the adapter.
type Option func(*options)

type options struct {
	classify TypeClassifier
}

// WithClassifier sets the procedure type classifier.
func WithClassifier(classify TypeClassifier) Option {
	return func(o *options) { o.classify = classify }
}

// UnaryServerInterceptor instruments every unary call through the given
// interceptor. The handler's response and error reach the gRPC caller
// unchanged.
func UnaryServerInterceptor(ic *oteltrpc.Interceptor, opts ...Option) grpc.UnaryServerInterceptor {
	o := options{classify: func(string) oteltrpc.ProcedureType { return oteltrpc.TypeMutation }}
	for _, opt := range opts {
		opt(&o)
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		proc := oteltrpc.Procedure{
			Path: PathFromMethod(info.FullMethod),
			Type: o.classify(info.FullMethod),
		}

		var (
			resp       any
			handlerErr error
		)
		_, callErr := ic.Call(ctx, proc, func(ctx context.Context) (oteltrpc.Outcome, error) {
			resp, handlerErr = handler(ctx, req)
			if handlerErr == nil {
				return oteltrpc.Success(), nil
			}
			st, ok := status.FromError(handlerErr)
			if !ok {
				return oteltrpc.Outcome{}, handlerErr
			}
			return oteltrpc.Failure(ErrorCode(st.Code())), nil
		})
		if callErr != nil {
			return nil, callErr
		}
		return resp, handlerErr
	}
}

// PathFromMethod converts a full gRPC method name to a dotted procedure
// path: "/user.v1.UserService/GetUser" becomes "user.v1.UserService.GetUser".
func PathFromMethod(fullMethod string) string {
	return strings.ReplaceAll(strings.TrimPrefix(fullMethod, "/"), "/", ".")
}

// grpcErrorCodes maps gRPC status codes to the error code vocabulary used on
// the count metric and in internal/client classification.
var grpcErrorCodes = map[codes.Code]string{
	codes.Canceled:           "CLIENT_CLOSED_REQUEST",
	codes.Unknown:            "INTERNAL_SERVER_ERROR",
	codes.InvalidArgument:    "BAD_REQUEST",
	codes.DeadlineExceeded:   "TIMEOUT",
	codes.NotFound:           "NOT_FOUND",
	codes.AlreadyExists:      "CONFLICT",
	codes.PermissionDenied:   "FORBIDDEN",
	codes.ResourceExhausted:  "TOO_MANY_REQUESTS",
	codes.FailedPrecondition: "PRECONDITION_FAILED",
	codes.Aborted:            "CONFLICT",
	codes.OutOfRange:         "BAD_REQUEST",
	codes.Unimplemented:      "NOT_IMPLEMENTED",
	codes.Internal:           "INTERNAL_SERVER_ERROR",
	codes.Unavailable:        "SERVICE_UNAVAILABLE",
	codes.DataLoss:           "INTERNAL_SERVER_ERROR",
	codes.Unauthenticated:    "UNAUTHORIZED",
}

// ErrorCode translates a gRPC status code. Unlisted codes fall back to
// INTERNAL_SERVER_ERROR so unknown failures alert rather than disappear.
func ErrorCode(code codes.Code) string {
	if mapped, ok := grpcErrorCodes[code]; ok {
		return mapped
	}
	return "INTERNAL_SERVER_ERROR"
}
