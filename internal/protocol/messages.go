package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/mcoot/paintergame/internal/model"
)

// Inbound message types (client to server)
const (
	TypeDisplayName    = "display_name"
	TypeLobbyCreate    = "lobby_create"
	TypeLobbyJoin      = "lobby_join"
	TypeLobbyExit      = "lobby_exit"
	TypeGameSettings   = "game_settings"
	TypeGameStart      = "game_start"
	TypeSelectWord     = "select_word"
	TypeGuessWord      = "guess_word"
	TypeStroke         = "stroke"
	TypeStrokeEnd      = "stroke_end"
	TypeStrokeClear    = "stroke_clear"
	TypeStrokeSettings = "stroke_settings"
	TypePing           = "ping"
)

// Outbound message types (server to client). The stroke family is relayed with its inbound type.
const (
	TypeConnected    = "connected"
	TypeFail         = "fail"
	TypeLobbyJoined  = "lobby_joined"
	TypeLobbyExited  = "lobby_exited"
	TypeGameStarted  = "game_started"
	TypeSelecting    = "selecting"
	TypePainting     = "painting"
	TypeWordHint     = "word_hint"
	TypeCorrectGuess = "correct_guess"
	TypeGuessClose   = "guess_close"
	TypeIntermission = "intermission"
	TypeEnded        = "ended"
)

var inbound = map[string]bool{
	TypeDisplayName:    true,
	TypeLobbyCreate:    true,
	TypeLobbyJoin:      true,
	TypeLobbyExit:      true,
	TypeGameSettings:   true,
	TypeGameStart:      true,
	TypeSelectWord:     true,
	TypeGuessWord:      true,
	TypeStroke:         true,
	TypeStrokeEnd:      true,
	TypeStrokeClear:    true,
	TypeStrokeSettings: true,
	TypePing:           true,
}

var outbound = map[string]bool{
	TypeConnected:      true,
	TypeFail:           true,
	TypeLobbyJoined:    true,
	TypeLobbyExited:    true,
	TypeGameStarted:    true,
	TypeSelecting:      true,
	TypePainting:       true,
	TypeWordHint:       true,
	TypeCorrectGuess:   true,
	TypeGuessClose:     true,
	TypeIntermission:   true,
	TypeEnded:          true,
	TypeStroke:         true,
	TypeStrokeEnd:      true,
	TypeStrokeClear:    true,
	TypeStrokeSettings: true,
}

// IsInbound reports whether clients may send messages of type t
func IsInbound(t string) bool {
	return inbound[t]
}

// IsOutbound reports whether the server may send messages of type t
func IsOutbound(t string) bool {
	return outbound[t]
}

// IsStroke reports whether t belongs to the painter-authored stroke family
func IsStroke(t string) bool {
	switch t {
	case TypeStroke, TypeStrokeEnd, TypeStrokeClear, TypeStrokeSettings:
		return true
	}
	return false
}

// Envelope is the wire frame of every message
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode parses a raw frame into an envelope
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", model.ErrMalformedMessage, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", model.ErrMalformedMessage)
	}
	return env, nil
}

// DecodeData unmarshals the envelope payload into v. An absent payload leaves v untouched.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformedMessage, err)
	}
	return nil
}

// Encode builds an outbound frame. data may be nil.
func Encode(msgType string, data any) ([]byte, error) {
	if !IsOutbound(msgType) {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownMessageType, msgType)
	}
	env := Envelope{Type: msgType}
	if raw, ok := data.(json.RawMessage); ok {
		env.Data = raw
	} else if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = b
	}
	return json.Marshal(env)
}
