package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

var _ LedgerServer = (*Ledger)(nil)

// ProfileService defines profile reads exposed over gRPC.
type ProfileService interface {
	List(ctx context.Context) ([]model.Profile, error)
	Get(ctx context.Context, id string) (model.Profile, error)
}

// LedgerService defines dual-log message appends.
type LedgerService interface {
	AppendMessage(ctx context.Context, params model.AppendMessageParams) (model.AppendResult, error)
	Reconcile(ctx context.Context, id string, messageID string) (model.Reconciliation, error)
}

// ReceiptService defines read-receipt updates.
type ReceiptService interface {
	MarkSeen(ctx context.Context, id string, nickname string) (model.Profile, error)
	MarkSingleSeen(ctx context.Context, id string, messageID string) (model.Profile, error)
}

type profileRequest struct {
	ProfileID string `json:"profileId"`
}

type appendRequest struct {
	ProfileID string    `json:"profileId"`
	User      string    `json:"user"`
	Content   string    `json:"content"`
	ToUser    string    `json:"toUser"`
	ID        string    `json:"_id"`
	Timestamp time.Time `json:"timestamp"`
}

type messageRequest struct {
	ProfileID string `json:"profileId"`
	MessageID string `json:"messageId"`
}

type seenRequest struct {
	ProfileID string `json:"profileId"`
	User      string `json:"user"`
}

// Ledger handles the chatdata.v1.Ledger gRPC service.
type Ledger struct {
	profileService ProfileService
	ledgerService  LedgerService
	receiptService ReceiptService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewLedger creates a new Ledger handler.
func NewLedger(
	profileService ProfileService,
	ledgerService LedgerService,
	receiptService ReceiptService,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Ledger {
	return &Ledger{
		profileService: profileService,
		ledgerService:  ledgerService,
		receiptService: receiptService,
		contextManager: contextManager,
		logger:         logger,
	}
}

func (h *Ledger) ListProfiles(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.extractUserIDFromContext(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	profiles, err := h.profileService.List(ctx)
	if err != nil {
		h.logger.Error("Ledger handler: list profiles failed",
			"user_id", userID,
			"error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(map[string]any{"profiles": profiles})
}

func (h *Ledger) GetProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.extractUserIDFromContext(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	var in profileRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, handleError(err)
	}

	profile, err := h.profileService.Get(ctx, in.ProfileID)
	if err != nil {
		h.logger.Debug("Ledger handler: get profile failed",
			"user_id", userID,
			"profile_id", in.ProfileID,
			"error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(profile)
}

// AppendMessage takes the same fields as the HTTP append body plus profileId.
func (h *Ledger) AppendMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := h.extractUserIDFromContext(ctx)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	var in appendRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, handleError(err)
	}

	h.logger.Debug("Ledger handler: processing append request",
		"user_id", userID,
		"profile_id", in.ProfileID,
		"message_id", in.ID)

	result, err := h.ledgerService.AppendMessage(ctx, model.AppendMessageParams{
		ProfileID: in.ProfileID,
		ID:        in.ID,
		From:      in.User,
		To:        in.ToUser,
		Content:   in.Content,
		Timestamp: in.Timestamp,
	})
	if err != nil {
		h.logger.Error("Ledger handler: append failed",
			"user_id", userID,
			"message_id", in.ID,
			"error", err.Error())
		return nil, handleError(err)
	}

	return h.respond(result)
}

func (h *Ledger) Reconcile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := h.extractUserIDFromContext(ctx); err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	var in messageRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, handleError(err)
	}

	rec, err := h.ledgerService.Reconcile(ctx, in.ProfileID, in.MessageID)
	if err != nil {
		return nil, handleError(err)
	}

	return h.respond(rec)
}

func (h *Ledger) MarkSeen(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := h.extractUserIDFromContext(ctx); err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	var in seenRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, handleError(err)
	}

	profile, err := h.receiptService.MarkSeen(ctx, in.ProfileID, in.User)
	if err != nil {
		return nil, handleError(err)
	}

	return h.respond(profile)
}

func (h *Ledger) MarkMessageSeen(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := h.extractUserIDFromContext(ctx); err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	var in messageRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, handleError(err)
	}

	profile, err := h.receiptService.MarkSingleSeen(ctx, in.ProfileID, in.MessageID)
	if err != nil {
		return nil, handleError(err)
	}

	return h.respond(profile)
}

func (h *Ledger) respond(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		h.logger.Error("Ledger handler: failed to encode response",
			"error", err.Error())
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

func (h *Ledger) extractUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := h.contextManager.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, errMissingUser
	}
	return userID, nil
}
