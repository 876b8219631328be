package protocol

import (
	"time"

	"github.com/mcoot/paintergame/internal/model"
)

// Inbound payloads

// DisplayNameRequest is the handshake payload. A non-string name fails to decode.
type DisplayNameRequest struct {
	DisplayName *string `json:"displayName"`
}

// LobbyJoinRequest is the payload of lobby_join
type LobbyJoinRequest struct {
	ID string `json:"id"`
}

// SettingsPatch carries a partial settings update; timer is in milliseconds
type SettingsPatch struct {
	Rounds          *int   `json:"rounds,omitempty"`
	Timer           *int64 `json:"timer,omitempty"`
	WordChoiceCount *int   `json:"wordChoiceCount,omitempty"`
	HintCount       *int   `json:"hintCount,omitempty"`
}

// GameSettingsRequest is the payload of game_settings
type GameSettingsRequest struct {
	Settings SettingsPatch `json:"settings"`
}

// ToUpdate converts the wire patch into a model update
func (p SettingsPatch) ToUpdate() model.GameSettingsUpdate {
	u := model.GameSettingsUpdate{
		Rounds:          p.Rounds,
		WordChoiceCount: p.WordChoiceCount,
		HintCount:       p.HintCount,
	}
	if p.Timer != nil {
		// clamped in milliseconds first so huge values cannot overflow
		ms := min(max(*p.Timer, model.MinTimer.Milliseconds()), model.MaxTimer.Milliseconds())
		d := time.Duration(ms) * time.Millisecond
		u.Timer = &d
	}
	return u
}

// WordRequest is the payload of select_word and guess_word
type WordRequest struct {
	Word string `json:"word"`
}

// StrokeSettingsPayload is relayed both ways
type StrokeSettingsPayload struct {
	Size  int    `json:"size"`
	Color string `json:"color"`
}

// Outbound payloads

// ConnectedPayload acknowledges the handshake
type ConnectedPayload struct {
	DisplayName string `json:"displayName"`
}

// FailPayload reports a rejected message
type FailPayload struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SettingsPayload is the wire form of model.GameSettings
type SettingsPayload struct {
	Rounds          int   `json:"rounds"`
	Timer           int64 `json:"timer"`
	WordChoiceCount int   `json:"wordChoiceCount"`
	HintCount       int   `json:"hintCount"`
}

// SettingsFromModel converts model.GameSettings
func SettingsFromModel(s model.GameSettings) SettingsPayload {
	return SettingsPayload{
		Rounds:          s.Rounds,
		Timer:           s.Timer.Milliseconds(),
		WordChoiceCount: s.WordChoiceCount,
		HintCount:       s.HintCount,
	}
}

// LobbyInfoPayload is the roster snapshot sent with lobby_joined
type LobbyInfoPayload struct {
	ID             string                `json:"id"`
	Users          []string              `json:"users"`
	Owner          string                `json:"owner"`
	Painter        string                `json:"painter,omitempty"`
	Settings       SettingsPayload       `json:"settings"`
	StrokeSettings StrokeSettingsPayload `json:"strokeSettings"`
	InGame         bool                  `json:"inGame"`
	Game           *GameStatusPayload    `json:"game,omitempty"`
}

// GameStatusPayload is the progress of a running game; timeRemaining is in milliseconds
type GameStatusPayload struct {
	Phase         string `json:"phase"`
	Round         int    `json:"round"`
	TimeRemaining int64  `json:"timeRemaining"`
}

// LobbyInfoFromModel converts model.LobbyInfo
func LobbyInfoFromModel(info model.LobbyInfo) LobbyInfoPayload {
	p := LobbyInfoPayload{
		ID:       string(info.ID),
		Users:    info.MemberNames(),
		Owner:    info.Owner.DisplayName,
		Settings: SettingsFromModel(info.Settings),
		StrokeSettings: StrokeSettingsPayload{
			Size:  info.StrokeSettings.Size,
			Color: info.StrokeSettings.Color,
		},
		InGame: info.InGame,
	}
	if info.Painter != nil {
		p.Painter = info.Painter.DisplayName
	}
	if info.Game != nil {
		p.Game = &GameStatusPayload{
			Phase:         string(info.Game.Phase),
			Round:         info.Game.Round,
			TimeRemaining: info.Game.TimeRemaining.Milliseconds(),
		}
	}
	return p
}

// GameStartedPayload announces a new game to its members
type GameStartedPayload struct {
	Users    []string        `json:"users"`
	Settings SettingsPayload `json:"settings"`
}

// SelectingPayload is sent when a painter starts choosing
type SelectingPayload struct {
	Painter       string   `json:"painter"`
	Round         int      `json:"round"`
	WordChoices   []string `json:"wordChoices,omitempty"`
	TimeRemaining int64    `json:"timeRemaining"`
}

// PaintingPayload is sent when painting starts
type PaintingPayload struct {
	Painter       string `json:"painter"`
	Round         int    `json:"round"`
	Word          string `json:"word,omitempty"`
	WordHint      string `json:"wordHint"`
	TimeRemaining int64  `json:"timeRemaining"`
}

// WordHintPayload is sent on every hint reveal
type WordHintPayload struct {
	WordHint string `json:"wordHint"`
}

// CorrectGuessPayload is sent when a guesser finds the word
type CorrectGuessPayload struct {
	Guesser    string         `json:"guesser"`
	UserPoints map[string]int `json:"userPoints"`
}

// GuessClosePayload tells a guesser their guess was nearly right
type GuessClosePayload struct {
	Word string `json:"word"`
}

// IntermissionPayload is sent between turns
type IntermissionPayload struct {
	Word          string         `json:"word,omitempty"`
	UserPoints    map[string]int `json:"userPoints"`
	TimeRemaining int64          `json:"timeRemaining"`
}

// EndedPayload carries the final standings
type EndedPayload struct {
	UserPoints map[string]int   `json:"userPoints"`
	Standings  []model.Standing `json:"standings"`
}
