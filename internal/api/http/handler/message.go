package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

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

type appendMessageRequest struct {
	User      string    `json:"user"`
	Content   string    `json:"content"`
	ToUser    string    `json:"toUser"`
	ID        string    `json:"_id"`
	Timestamp time.Time `json:"timestamp"`
}

type markSeenRequest struct {
	User string `json:"user"`
}

type markSingleSeenRequest struct {
	MessageID string `json:"messageId"`
}

// Message handles the message log endpoints of a profile.
type Message struct {
	ledgerService  LedgerService
	receiptService ReceiptService
	logger         *logger.Logger
}

// NewMessage creates a new Message handler.
func NewMessage(ledgerService LedgerService, receiptService ReceiptService, logger *logger.Logger) *Message {
	return &Message{
		ledgerService:  ledgerService,
		receiptService: receiptService,
		logger:         logger,
	}
}

// Append writes a message into the addressed log and the counterpart's log.
func (h *Message) Append(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req appendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("Message handler: processing append request",
		"profile_id", id,
		"message_id", req.ID)

	result, err := h.ledgerService.AppendMessage(r.Context(), model.AppendMessageParams{
		ProfileID: id,
		ID:        req.ID,
		From:      req.User,
		To:        req.ToUser,
		Content:   req.Content,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		logFailure(h.logger, "Message handler: append failed", err,
			"profile_id", id,
			"message_id", req.ID)
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Reconcile reports which logs hold a message.
func (h *Message) Reconcile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	rec, err := h.ledgerService.Reconcile(r.Context(), vars["id"], vars["messageId"])
	if err != nil {
		logFailure(h.logger, "Message handler: reconcile failed", err,
			"profile_id", vars["id"],
			"message_id", vars["messageId"])
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *Message) MarkSeen(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req markSeenRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	profile, err := h.receiptService.MarkSeen(r.Context(), id, req.User)
	if err != nil {
		logFailure(h.logger, "Message handler: mark seen failed", err, "profile_id", id)
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *Message) MarkSingleSeen(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req markSingleSeenRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	profile, err := h.receiptService.MarkSingleSeen(r.Context(), id, req.MessageID)
	if err != nil {
		logFailure(h.logger, "Message handler: mark message seen failed", err,
			"profile_id", id,
			"message_id", req.MessageID)
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
