package response

import (
	"time"

	"github.com/mcoot/paintergame/internal/model"
)

// Health is the response of the health endpoint
type Health struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Lobbies  int    `json:"lobbies"`
	Words    int    `json:"words"`
}

// Settings represents game settings; the timer is in milliseconds like on the wire
type Settings struct {
	Rounds          int   `json:"rounds"`
	Timer           int64 `json:"timer"`
	WordChoiceCount int   `json:"word_choice_count"`
	HintCount       int   `json:"hint_count"`
}

// SettingsFromModel converts model.GameSettings
func SettingsFromModel(s model.GameSettings) Settings {
	return Settings{
		Rounds:          s.Rounds,
		Timer:           s.Timer.Milliseconds(),
		WordChoiceCount: s.WordChoiceCount,
		HintCount:       s.HintCount,
	}
}

// Lobby represents a lobby directory entry in API responses
type Lobby struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Members   []string  `json:"members"`
	Settings  Settings  `json:"settings"`
	InGame    bool      `json:"in_game"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LobbyFromModel converts model.LobbySummary
func LobbyFromModel(l *model.LobbySummary) Lobby {
	members := l.Members
	if members == nil {
		members = []string{}
	}
	return Lobby{
		ID:        string(l.ID),
		Owner:     l.Owner,
		Members:   members,
		Settings:  SettingsFromModel(l.Settings),
		InGame:    l.InGame,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

// LobbyList wraps the lobby directory
type LobbyList struct {
	Lobbies []Lobby `json:"lobbies"`
}

// LobbyListFromModel converts a slice of summaries
func LobbyListFromModel(summaries []*model.LobbySummary) LobbyList {
	out := LobbyList{Lobbies: make([]Lobby, len(summaries))}
	for i, s := range summaries {
		out.Lobbies[i] = LobbyFromModel(s)
	}
	return out
}

// Standing is one line of a final scoreboard
type Standing struct {
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
}

// GameResult represents a finished game
type GameResult struct {
	Rounds    int        `json:"rounds"`
	Standings []Standing `json:"standings"`
	Winner    *string    `json:"winner"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at"`
}

// GameResultFromModel converts model.GameResult
func GameResultFromModel(r *model.GameResult) GameResult {
	standings := make([]Standing, len(r.Standings))
	for i, s := range r.Standings {
		standings[i] = Standing{DisplayName: s.DisplayName, Points: s.Points}
	}
	var winner *string
	if len(standings) > 0 {
		w := standings[0].DisplayName
		winner = &w
	}
	return GameResult{
		Rounds:    r.Rounds,
		Standings: standings,
		Winner:    winner,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
	}
}

// GameResults lists the finished games of a lobby, oldest first
type GameResults struct {
	LobbyID string       `json:"lobby_id"`
	Results []GameResult `json:"results"`
}
