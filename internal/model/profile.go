package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProfileStore persists profile documents together with their message logs.
//
// Implementations guarantee that every mutating call is atomic for the single
// profile it touches, that nicknames are unique (ErrConflict), and that a
// missing profile is reported as ErrNotFound.
type ProfileStore interface {
	Create(ctx context.Context, profile Profile) (Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (Profile, error)
	GetByNickname(ctx context.Context, nickname string) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	// UpdateImage replaces the image reference and returns the previous one.
	UpdateImage(ctx context.Context, id uuid.UUID, image string) (string, error)
	// Delete removes the profile and returns it as it was before deletion.
	Delete(ctx context.Context, id uuid.UUID) (Profile, error)
	// AppendMessage adds msg to the profile log unless a message with the same ID
	// is already there. The returned bool reports whether a new copy was written.
	AppendMessage(ctx context.Context, profileID uuid.UUID, msg Message) (Profile, bool, error)
	// MarkSeenWith flags every message exchanged with nickname (sent to it or
	// received from it) as seen.
	MarkSeenWith(ctx context.Context, profileID uuid.UUID, nickname string) (Profile, error)
	// MarkMessageSeen flags a single message as seen, ErrMessageNotFound if absent.
	MarkMessageSeen(ctx context.Context, profileID uuid.UUID, messageID string) (Profile, error)
	Ping(ctx context.Context) error
}

// Profile is the per-user document: identity, avatar and the ordered message log.
type Profile struct {
	ID        uuid.UUID `json:"_id"`
	Nickname  string    `json:"nickname"`
	Email     string    `json:"email"`
	Image     string    `json:"image"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one entry of a profile log. The same ID is stored in the sender's
// and the recipient's log.
type Message struct {
	ID        string    `json:"_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Seen      bool      `json:"seen"`
}

// Involves reports whether nickname is the sender or the recipient of m.
func (m Message) Involves(nickname string) bool {
	return m.From == nickname || m.To == nickname
}

// FindMessage returns the message with the given ID from the profile log.
func (p Profile) FindMessage(id string) (Message, bool) {
	for _, m := range p.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// CreateProfileParams contains parameters to create a profile.
type CreateProfileParams struct {
	Nickname string `json:"nickname" validate:"required,max=64"`
	Image    string `json:"image" validate:"required,max=2048"`
	Email    string `json:"email" validate:"required,email"`
}

// MaxContentBytes bounds the size of a message body.
const MaxContentBytes = 4096

// AppendMessageParams describes one append request against the log of ProfileID.
type AppendMessageParams struct {
	ProfileID string    `validate:"required"`
	ID        string    `validate:"required,max=128"`
	From      string    `validate:"required,max=64"`
	To        string    `validate:"required,max=64"`
	Content   string    `validate:"required"`
	Timestamp time.Time `validate:"required"`
}

// Message builds the log entry written into both logs.
func (p AppendMessageParams) Message() Message {
	return Message{
		ID:        p.ID,
		From:      p.From,
		To:        p.To,
		Content:   p.Content,
		Timestamp: p.Timestamp.UTC(),
	}
}

// AppendResult is the outcome of a dual-log append. Counterpart is nil when the
// other party of the message has no profile.
type AppendResult struct {
	Addressed   Profile  `json:"friendData"`
	Counterpart *Profile `json:"userData"`
}

// Reconciliation reports where copies of a message currently exist.
type Reconciliation struct {
	MessageID     string `json:"messageId"`
	Addressed     string `json:"addressed"`
	Counterpart   string `json:"counterpart,omitempty"`
	InAddressed   bool   `json:"inAddressed"`
	InCounterpart bool   `json:"inCounterpart"`
	// Complete is true when every log that should hold the message holds it.
	Complete bool `json:"complete"`
}
