package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/chatdata-server/internal/model"
)

func handleError(err error) error {
	var merr *model.Error
	if !errors.As(err, &merr) {
		return status.Error(codes.Internal, "internal server error")
	}

	switch merr.Kind {
	case model.ErrValidation:
		return status.Error(codes.InvalidArgument, merr.Message)
	case model.ErrNotFound:
		return status.Error(codes.NotFound, merr.Message)
	case model.ErrConflict:
		return status.Error(codes.AlreadyExists, merr.Message)
	case model.ErrUnauthorized:
		return status.Error(codes.Unauthenticated, merr.Message)
	default:
		return status.Error(codes.Internal, merr.Message)
	}
}

var errMissingUser = errors.New("missing authenticated user")
