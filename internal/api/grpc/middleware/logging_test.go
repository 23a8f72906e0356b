package middleware

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/testutil"
)

func TestLogging_HandleGRPC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		handler   grpc.UnaryHandler
		wantCode  codes.Code
		wantLevel string
	}{
		{
			name: "success path",
			handler: func(ctx context.Context, req any) (any, error) {
				time.Sleep(10 * time.Millisecond)
				return "ok", nil
			},
			wantCode:  codes.OK,
			wantLevel: "level=INFO",
		},
		{
			name: "grpc error propagates",
			handler: func(ctx context.Context, req any) (any, error) {
				return nil, status.Error(codes.InvalidArgument, "bad input")
			},
			wantCode:  codes.InvalidArgument,
			wantLevel: "level=WARN",
		},
		{
			name: "non-grpc error becomes Internal",
			handler: func(ctx context.Context, req any) (any, error) {
				return nil, errors.New("boom")
			},
			wantCode:  codes.Internal,
			wantLevel: "level=ERROR",
		},
	}

	for _, tt := range tests {

		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			lg := NewLogging(logger.NewWithWriter(&buf, 0))

			info := &grpc.UnaryServerInfo{FullMethod: "/svc/Method"}
			resp, err := lg.HandleGRPC(context.Background(), struct{}{}, info, tt.handler)

			assert.Contains(t, buf.String(), tt.wantLevel)
			assert.Contains(t, buf.String(), "/svc/Method")

			if tt.wantCode == codes.OK {
				assert.NoError(t, err)
				assert.Equal(t, "ok", resp)
				return
			}
			assert.Equal(t, tt.wantCode, codeOf(err))
		})
	}
}

func TestLogging_HandleStream(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lg := NewLogging(logger.NewWithWriter(&buf, 0))

	info := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch"}
	err := lg.HandleStream(nil, nil, info, func(srv any, stream grpc.ServerStream) error {
		return status.Error(codes.Canceled, "client went away")
	})

	assert.Equal(t, codes.Canceled, status.Code(err))
	assert.Contains(t, buf.String(), "Health/Watch")
	assert.Contains(t, buf.String(), "status=Canceled")
}

func TestRecoveryHandler(t *testing.T) {
	t.Parallel()

	err := NewRecoveryHandler(testutil.MakeNoopLogger())(context.Background(), "nil map write")
	assert.Equal(t, codes.Internal, status.Code(err))
}
