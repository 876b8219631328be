package model

// SessionID uniquely identifies a connected session
type SessionID string

const (
	// DisplayNameMaxLength is the longest accepted display name after sanitization
	DisplayNameMaxLength = 24
)

// Member is the identity of a session as seen by lobbies and games
type Member struct {
	ID          SessionID
	DisplayName string
}
