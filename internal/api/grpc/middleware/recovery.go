package middleware

import (
	"context"
	"runtime/debug"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/chatdata-server/internal/logger"
)

// NewRecoveryHandler returns a recovery handler that logs the panic and
// answers with codes.Internal.
func NewRecoveryHandler(logger *logger.Logger) func(ctx context.Context, p any) error {
	return func(_ context.Context, p any) error {
		logger.Error("gRPC handler panicked",
			"panic", p,
			"stack", string(debug.Stack()))
		return status.Error(codes.Internal, "internal server error")
	}
}
