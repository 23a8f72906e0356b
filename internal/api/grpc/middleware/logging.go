package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/chatdata-server/internal/logger"
)

// Logging logs gRPC calls with their status and duration.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	l.log(info.FullMethod, start, err)
	return resp, err
}

// HandleStream logs method name, duration and status for each stream.
func (l *Logging) HandleStream(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	err := handler(srv, ss)
	l.log(info.FullMethod, start, err)
	return err
}

func (l *Logging) log(method string, start time.Time, err error) {
	code := codeOf(err)
	args := []any{
		"method", method,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", code.String(),
	}

	switch code {
	case codes.OK:
		l.logger.Info("gRPC request completed", args...)
	case codes.Internal, codes.Unknown, codes.Unavailable, codes.DataLoss:
		l.logger.Error("gRPC request failed", append(args, "error", err.Error())...)
	default:
		l.logger.Warn("gRPC request rejected", append(args, "error", err.Error())...)
	}
}

func codeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	return codes.Internal
}
