package protocol

import (
	"errors"

	"github.com/mcoot/paintergame/internal/model"
)

// Symbolic failure reasons sent in fail messages and close frames
const (
	ReasonDisplayNameRequired     = "DisplayName.Required"
	ReasonDisplayNameUnmodifiable = "DisplayName.Unmodifiable"
	ReasonDisplayNameInvalid      = "DisplayName.Invalid"
	ReasonDisplayNameUnavailable  = "DisplayName.Unavailable"
	ReasonDisplayNameTimeout      = "DisplayName.Timeout"

	ReasonMalformed   = "Message.Malformed"
	ReasonUnknownType = "Message.UnknownType"
	ReasonRateLimited = "Message.RateLimited"

	ReasonLobbyNotFound       = "Lobby.NotFound"
	ReasonLobbyAlreadyIn      = "Lobby.AlreadyIn"
	ReasonLobbyNotIn          = "Lobby.NotIn"
	ReasonLobbyNotOwner       = "Lobby.NotOwner"
	ReasonLobbyNotPainter     = "Lobby.NotPainter"
	ReasonLobbyGameInProgress = "Lobby.GameInProgress"
	ReasonLobbyInvalidStroke  = "Lobby.InvalidStroke"

	ReasonGameNotActive      = "Game.NotActive"
	ReasonGameNotGuesser     = "Game.NotGuesser"
	ReasonGameNotInGame      = "Game.NotInGame"
	ReasonGameNotSelecting   = "Game.NotSelecting"
	ReasonGameNotPainting    = "Game.NotPainting"
	ReasonGameNotWord        = "Game.NotWord"
	ReasonGameNoWords        = "Game.NoWords"
	ReasonGameAlreadyGuessed = "Game.AlreadyGuessed"
	ReasonGameNoWord         = "Game.NoWord"
	ReasonGameWordGeneration = "Game.WordGeneration"
	ReasonGameEnded          = "Game.Ended"

	ReasonServerShutdown = "Server.Shutdown"
	ReasonUnspecified    = "Unspecified"
)

var reasons = []struct {
	err    error
	reason string
}{
	{model.ErrDisplayNameRequired, ReasonDisplayNameRequired},
	{model.ErrDisplayNameUnmodifiable, ReasonDisplayNameUnmodifiable},
	{model.ErrDisplayNameInvalid, ReasonDisplayNameInvalid},
	{model.ErrDisplayNameUnavailable, ReasonDisplayNameUnavailable},
	{model.ErrHandshakeTimeout, ReasonDisplayNameTimeout},

	{model.ErrMalformedMessage, ReasonMalformed},
	{model.ErrUnknownMessageType, ReasonUnknownType},
	{model.ErrRateLimited, ReasonRateLimited},

	{model.ErrLobbyNotFound, ReasonLobbyNotFound},
	{model.ErrLobbyClosed, ReasonLobbyNotFound},
	{model.ErrAlreadyInLobby, ReasonLobbyAlreadyIn},
	{model.ErrNotInLobby, ReasonLobbyNotIn},
	{model.ErrNotOwner, ReasonLobbyNotOwner},
	{model.ErrNotPainter, ReasonLobbyNotPainter},
	{model.ErrGameInProgress, ReasonLobbyGameInProgress},
	{model.ErrInvalidStroke, ReasonLobbyInvalidStroke},

	{model.ErrNoGameInProgress, ReasonGameNotActive},
	{model.ErrNotGuesser, ReasonGameNotGuesser},
	{model.ErrNotInGame, ReasonGameNotInGame},
	{model.ErrNotSelecting, ReasonGameNotSelecting},
	{model.ErrNotPainting, ReasonGameNotPainting},
	{model.ErrNotAWordChoice, ReasonGameNotWord},
	{model.ErrNoWordChoices, ReasonGameNoWords},
	{model.ErrAlreadyGuessed, ReasonGameAlreadyGuessed},
	{model.ErrNoWord, ReasonGameNoWord},
	{model.ErrWordGeneration, ReasonGameWordGeneration},
	{model.ErrWordPoolEmpty, ReasonGameWordGeneration},
	{model.ErrGameEnded, ReasonGameEnded},
}

// ReasonFor maps an error to its symbolic reason
func ReasonFor(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonUnspecified
}

// IsFatal reports whether err must terminate the connection.
// Only identity handshake violations are fatal; everything else is reported and the connection stays open.
func IsFatal(err error) bool {
	return errors.Is(err, model.ErrDisplayNameInvalid) ||
		errors.Is(err, model.ErrDisplayNameUnavailable) ||
		errors.Is(err, model.ErrHandshakeTimeout)
}
