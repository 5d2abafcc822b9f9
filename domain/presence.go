package domain

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// PresenceKey identifies the runtime presence entry of one participant
// within one conversation. Entries are never persisted.
type PresenceKey struct {
	ConversationID ConversationID
	ParticipantID  string
}
