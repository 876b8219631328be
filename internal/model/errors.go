package model

import "errors"

// Common errors used across the application
var (
	// Session errors
	ErrDisplayNameRequired     = errors.New("display name not sent")
	ErrDisplayNameUnmodifiable = errors.New("display name already set")
	ErrDisplayNameInvalid      = errors.New("display name is invalid")
	ErrDisplayNameUnavailable  = errors.New("display name is taken")
	ErrHandshakeTimeout        = errors.New("display name not sent in time")

	// Protocol errors
	ErrMalformedMessage   = errors.New("malformed message")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrRateLimited        = errors.New("too many messages")

	// Lobby errors
	ErrLobbyNotFound    = errors.New("lobby not found")
	ErrAlreadyInLobby   = errors.New("already in a lobby")
	ErrNotInLobby       = errors.New("not in a lobby")
	ErrNotOwner         = errors.New("only the lobby owner can do that")
	ErrNotPainter       = errors.New("only the painter can do that")
	ErrGameInProgress   = errors.New("game is in progress")
	ErrInvalidStroke    = errors.New("invalid stroke settings")
	ErrLobbyClosed      = errors.New("lobby is closed")
	ErrNoGameInProgress = errors.New("no game in progress")
	ErrNoUsers          = errors.New("no users provided")

	// Game errors
	ErrNotGuesser     = errors.New("only a guesser can guess the word")
	ErrNotInGame      = errors.New("user not in game")
	ErrNotSelecting   = errors.New("not in selection phase")
	ErrNotPainting    = errors.New("not in painting phase")
	ErrNotAWordChoice = errors.New("not an available word")
	ErrNoWordChoices  = errors.New("no words generated")
	ErrAlreadyGuessed = errors.New("already guessed word")
	ErrNoWord         = errors.New("no word selected for painting")
	ErrWordGeneration = errors.New("error getting word selection")
	ErrGameEnded      = errors.New("game ended")

	// Dictionary errors
	ErrWordPoolEmpty = errors.New("word pool is empty")
)
