package model

import "time"

// EventType identifies the type of game event
type EventType string

const (
	EventSelecting    EventType = "selecting"
	EventPainting     EventType = "painting"
	EventWordHint     EventType = "word_hint"
	EventCorrectGuess EventType = "correct_guess"
	EventIntermission EventType = "intermission"
	EventEnded        EventType = "ended"
)

// GameEvent is emitted by a game on every state change.
// Users is the game's membership at emission time, which may differ from the lobby's.
type GameEvent struct {
	Type      EventType
	Timestamp time.Time
	Round     int
	Painter   *Member  // nil once the game has ended
	Guessers  []Member // Users minus the painter
	Users     []Member
	Payload   any // Type-specific data
}

// SelectingPayload contains data for selecting events
type SelectingPayload struct {
	WordChoices   []string // Only ever delivered to the painter
	TimeRemaining time.Duration
}

// PaintingPayload contains data for painting events
type PaintingPayload struct {
	Word          string // Only ever delivered to the painter
	WordHint      string
	TimeRemaining time.Duration
}

// WordHintPayload contains data for hint reveal events
type WordHintPayload struct {
	WordHint string
}

// CorrectGuessPayload contains data for correct guess events
type CorrectGuessPayload struct {
	Guesser      Member
	Awarded      int
	PainterBonus int
	Points       Points
}

// IntermissionPayload contains data for intermission events
type IntermissionPayload struct {
	Word          string // Empty if the turn ended before a word was committed
	Points        Points
	TimeRemaining time.Duration
}

// EndedPayload contains data for game ended events
type EndedPayload struct {
	Points Points // Empty when the game ended because everyone left
}
