package service

import (
	"context"
	"errors"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

// Receipts maintains read receipts on a single profile log. The other copy of
// a message is never touched.
type Receipts struct {
	store  model.ProfileStore
	bus    model.Broadcaster
	logger *logger.Logger
}

func NewReceipts(store model.ProfileStore, bus model.Broadcaster, logger *logger.Logger) *Receipts {
	return &Receipts{store: store, bus: bus, logger: logger}
}

// MarkSeen flags every message in the log of id exchanged with nickname.
func (r *Receipts) MarkSeen(ctx context.Context, id string, nickname string) (model.Profile, error) {
	profileID, err := parseProfileID(id)
	if err != nil {
		return model.Profile{}, err
	}
	nickname = normalizeNickname(nickname)
	if nickname == "" {
		return model.Profile{}, model.NewValidationError("User is missing", nil)
	}

	profile, err := r.store.MarkSeenWith(ctx, profileID, nickname)
	if err != nil {
		return model.Profile{}, r.storeFailure(profileID.String(), err)
	}

	r.broadcast(model.SeenEvent{
		ProfileID: profile.ID.String(),
		Nickname:  profile.Nickname,
		With:      nickname,
	})

	return profile, nil
}

// MarkSingleSeen flags one message in the log of id.
func (r *Receipts) MarkSingleSeen(ctx context.Context, id string, messageID string) (model.Profile, error) {
	profileID, err := parseProfileID(id)
	if err != nil {
		return model.Profile{}, err
	}
	if messageID == "" {
		return model.Profile{}, model.NewValidationError("Message ID is missing", nil)
	}

	profile, err := r.store.MarkMessageSeen(ctx, profileID, messageID)
	if err != nil {
		return model.Profile{}, r.storeFailure(profileID.String(), err)
	}

	r.broadcast(model.SeenEvent{
		ProfileID: profile.ID.String(),
		Nickname:  profile.Nickname,
		MessageID: messageID,
	})

	return profile, nil
}

func (r *Receipts) broadcast(event model.SeenEvent) {
	if err := r.bus.Broadcast(model.EventMessageSeen, event); err != nil {
		r.logger.Warn("Receipt service: failed to broadcast receipt",
			"profile_id", event.ProfileID,
			"error", err.Error())
	}
}

func (r *Receipts) storeFailure(profileID string, err error) error {
	if !errors.Is(err, model.ErrNotFound) {
		r.logger.Error("Receipt service: store failure",
			"profile_id", profileID,
			"error", err.Error())
	}
	return storeError("Data not found", err)
}
