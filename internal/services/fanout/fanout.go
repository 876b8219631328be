package fanout

import (
	"encoding/json"

	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/protocol"
)

// Delivery is one outbound message and the members who should receive it
type Delivery struct {
	Recipients []model.Member
	Type       string
	Data       any
}

// Encode renders the delivery as a wire frame
func (d Delivery) Encode() ([]byte, error) {
	return protocol.Encode(d.Type, d.Data)
}

// GameEvent splits a game event into role-specific deliveries over the event's own membership.
// The painter alone sees word candidates and the literal word; guessers only ever see the hint.
func GameEvent(e model.GameEvent) []Delivery {
	painter, guessers := split(e)

	switch e.Type {
	case model.EventSelecting:
		p := e.Payload.(model.SelectingPayload)
		public := protocol.SelectingPayload{
			Painter:       painterName(e),
			Round:         e.Round,
			TimeRemaining: p.TimeRemaining.Milliseconds(),
		}
		private := public
		private.WordChoices = append([]string(nil), p.WordChoices...)
		return roleSplit(protocol.TypeSelecting, painter, private, guessers, public)

	case model.EventPainting:
		p := e.Payload.(model.PaintingPayload)
		public := protocol.PaintingPayload{
			Painter:       painterName(e),
			Round:         e.Round,
			WordHint:      p.WordHint,
			TimeRemaining: p.TimeRemaining.Milliseconds(),
		}
		private := public
		private.Word = p.Word
		return roleSplit(protocol.TypePainting, painter, private, guessers, public)

	case model.EventWordHint:
		p := e.Payload.(model.WordHintPayload)
		return everyone(e, protocol.TypeWordHint, protocol.WordHintPayload{WordHint: p.WordHint})

	case model.EventCorrectGuess:
		p := e.Payload.(model.CorrectGuessPayload)
		return everyone(e, protocol.TypeCorrectGuess, protocol.CorrectGuessPayload{
			Guesser:    p.Guesser.DisplayName,
			UserPoints: p.Points,
		})

	case model.EventIntermission:
		p := e.Payload.(model.IntermissionPayload)
		return everyone(e, protocol.TypeIntermission, protocol.IntermissionPayload{
			Word:          p.Word,
			UserPoints:    p.Points,
			TimeRemaining: p.TimeRemaining.Milliseconds(),
		})

	case model.EventEnded:
		p := e.Payload.(model.EndedPayload)
		return everyone(e, protocol.TypeEnded, protocol.EndedPayload{
			UserPoints: p.Points,
			Standings:  model.Standings(p.Points),
		})
	}
	return nil
}

// LobbyInfo delivers a roster snapshot to every current member
func LobbyInfo(info model.LobbyInfo) Delivery {
	return Delivery{
		Recipients: append([]model.Member(nil), info.Members...),
		Type:       protocol.TypeLobbyJoined,
		Data:       protocol.LobbyInfoFromModel(info),
	}
}

// GameStarted announces a game to the members it was started with
func GameStarted(users []model.Member, settings model.GameSettings) Delivery {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.DisplayName
	}
	return Delivery{
		Recipients: append([]model.Member(nil), users...),
		Type:       protocol.TypeGameStarted,
		Data: protocol.GameStartedPayload{
			Users:    names,
			Settings: protocol.SettingsFromModel(settings),
		},
	}
}

// Stroke relays painter-authored drawing data verbatim to every member except the painter
func Stroke(members []model.Member, painter model.SessionID, msgType string, data json.RawMessage) Delivery {
	recipients := make([]model.Member, 0, len(members))
	for _, m := range members {
		if m.ID != painter {
			recipients = append(recipients, m)
		}
	}
	d := Delivery{Recipients: recipients, Type: msgType}
	if len(data) > 0 {
		d.Data = data
	}
	return d
}

func split(e model.GameEvent) ([]model.Member, []model.Member) {
	if e.Painter == nil {
		return nil, append([]model.Member(nil), e.Users...)
	}
	return []model.Member{*e.Painter}, append([]model.Member(nil), e.Guessers...)
}

func painterName(e model.GameEvent) string {
	if e.Painter == nil {
		return ""
	}
	return e.Painter.DisplayName
}

func roleSplit(msgType string, painter []model.Member, private any, guessers []model.Member, public any) []Delivery {
	var out []Delivery
	if len(painter) > 0 {
		out = append(out, Delivery{Recipients: painter, Type: msgType, Data: private})
	}
	if len(guessers) > 0 {
		out = append(out, Delivery{Recipients: guessers, Type: msgType, Data: public})
	}
	return out
}

func everyone(e model.GameEvent, msgType string, data any) []Delivery {
	return []Delivery{{
		Recipients: append([]model.Member(nil), e.Users...),
		Type:       msgType,
		Data:       data,
	}}
}
