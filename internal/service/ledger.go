package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

// Ledger writes a message into both logs it belongs to.
//
// An append is a two-step saga without a cross-document transaction:
//
//	A. append to the addressed profile's log,
//	B. append the same message to the counterpart's log, if that profile exists.
//
// Each step is idempotent on the message ID, so a client that saw a failure
// between A and B completes the saga by repeating the identical request.
// Reconcile lets it check which of the two copies exist.
type Ledger struct {
	store  model.ProfileStore
	bus    model.Broadcaster
	logger *logger.Logger
}

func NewLedger(store model.ProfileStore, bus model.Broadcaster, logger *logger.Logger) *Ledger {
	return &Ledger{store: store, bus: bus, logger: logger}
}

// AppendMessage runs both saga steps and broadcasts EventMessageNew once they
// succeed. Counterpart in the result is nil when the other party has no profile.
func (l *Ledger) AppendMessage(ctx context.Context, params model.AppendMessageParams) (model.AppendResult, error) {
	params.From = normalizeNickname(params.From)
	params.To = normalizeNickname(params.To)

	profileID, err := parseProfileID(params.ProfileID)
	if err != nil {
		return model.AppendResult{}, err
	}
	if err := validate.Struct(params); err != nil {
		return model.AppendResult{}, invalid("Invalid message data", err)
	}
	if len(params.Content) > model.MaxContentBytes {
		return model.AppendResult{}, model.NewValidationError(
			fmt.Sprintf("Message content exceeds %d bytes", model.MaxContentBytes), nil)
	}

	addressed, err := l.store.GetByID(ctx, profileID)
	if err != nil {
		return model.AppendResult{}, l.storeFailure("load addressed profile", params.ID, err)
	}

	counterpartNick, ok := counterpartOf(params.From, params.To, addressed.Nickname)
	if !ok {
		return model.AppendResult{}, model.NewValidationError("Message does not involve this profile",
			fmt.Errorf("profile %q is neither %q nor %q", addressed.Nickname, params.From, params.To))
	}

	msg := params.Message()

	// Step A.
	addressed, appended, err := l.store.AppendMessage(ctx, profileID, msg)
	if err != nil {
		return model.AppendResult{}, l.storeFailure("append to addressed log", msg.ID, err)
	}
	if !appended {
		l.logger.Debug("Ledger service: message already in addressed log",
			"profile_id", profileID,
			"message_id", msg.ID)
	}

	result := model.AppendResult{Addressed: addressed}

	// Step B.
	if counterpartNick == addressed.Nickname {
		self := addressed
		result.Counterpart = &self
	} else {
		counterpart, err := l.appendCounterpart(ctx, counterpartNick, msg)
		if err != nil {
			return model.AppendResult{}, err
		}
		result.Counterpart = counterpart
	}

	if err := l.bus.Broadcast(model.EventMessageNew, result); err != nil {
		l.logger.Warn("Ledger service: failed to broadcast message",
			"message_id", msg.ID,
			"error", err.Error())
	}

	l.logger.Info("Ledger service: message appended",
		"message_id", msg.ID,
		"addressed", addressed.Nickname,
		"counterpart", counterpartNick,
		"counterpart_resolved", result.Counterpart != nil)

	return result, nil
}

// Reconcile reports which logs currently hold messageID, as seen from the
// addressed profile.
func (l *Ledger) Reconcile(ctx context.Context, id string, messageID string) (model.Reconciliation, error) {
	profileID, err := parseProfileID(id)
	if err != nil {
		return model.Reconciliation{}, err
	}
	if messageID == "" {
		return model.Reconciliation{}, model.NewValidationError("Message ID is missing", nil)
	}

	addressed, err := l.store.GetByID(ctx, profileID)
	if err != nil {
		return model.Reconciliation{}, l.storeFailure("load addressed profile", messageID, err)
	}

	rec := model.Reconciliation{
		MessageID: messageID,
		Addressed: addressed.Nickname,
	}

	msg, ok := addressed.FindMessage(messageID)
	if !ok {
		return rec, nil
	}
	rec.InAddressed = true

	counterpartNick, ok := counterpartOf(msg.From, msg.To, addressed.Nickname)
	if !ok {
		return model.Reconciliation{}, model.NewStorageError("Message log is inconsistent",
			fmt.Errorf("message %q in log of %q involves neither party", messageID, addressed.Nickname))
	}
	rec.Counterpart = counterpartNick

	if counterpartNick == addressed.Nickname {
		rec.InCounterpart = true
		rec.Complete = true
		return rec, nil
	}

	counterpart, err := l.store.GetByNickname(ctx, counterpartNick)
	switch {
	case errors.Is(err, model.ErrNotFound):
		rec.Complete = true
	case err != nil:
		return model.Reconciliation{}, l.storeFailure("load counterpart profile", messageID, err)
	default:
		_, rec.InCounterpart = counterpart.FindMessage(messageID)
		rec.Complete = rec.InCounterpart
	}

	return rec, nil
}

// appendCounterpart performs step B. A counterpart without a profile, including
// one deleted between lookup and append, yields a nil profile.
func (l *Ledger) appendCounterpart(ctx context.Context, nickname string, msg model.Message) (*model.Profile, error) {
	counterpart, err := l.store.GetByNickname(ctx, nickname)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, l.storeFailure("load counterpart profile", msg.ID, err)
	}

	counterpart, _, err = l.store.AppendMessage(ctx, counterpart.ID, msg)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			l.logger.Info("Ledger service: counterpart vanished before append",
				"nickname", nickname,
				"message_id", msg.ID)
			return nil, nil
		}
		return nil, l.storeFailure("append to counterpart log", msg.ID, err)
	}
	return &counterpart, nil
}

func (l *Ledger) storeFailure(step, messageID string, err error) error {
	if !errors.Is(err, model.ErrNotFound) {
		l.logger.Error("Ledger service: store failure",
			"step", step,
			"message_id", messageID,
			"error", err.Error())
	}
	return storeError("Data not found", err)
}

// counterpartOf returns the party of a from/to pair that is not self.
func counterpartOf(from, to, self string) (string, bool) {
	switch self {
	case to:
		return from, true
	case from:
		return to, true
	default:
		return "", false
	}
}
