package model

// Names of events published to realtime subscribers.
const (
	EventMessageNew  = "message:new"
	EventMessageSeen = "message:seen"
)

// Broadcaster fans events out to every connected realtime session.
type Broadcaster interface {
	Broadcast(event string, payload any) error
}

// SeenEvent is the payload of EventMessageSeen. Nickname owns the log that was
// updated; With is set for a bulk receipt and MessageID for a single one.
type SeenEvent struct {
	ProfileID string `json:"profileId"`
	Nickname  string `json:"nickname"`
	With      string `json:"with,omitempty"`
	MessageID string `json:"messageId,omitempty"`
}
