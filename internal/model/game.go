package model

import (
	"sort"
	"time"
)

// Phase is the current step of a game's turn loop
type Phase string

const (
	PhaseStarting     Phase = "starting"     // Short delay before the first turn
	PhaseSelecting    Phase = "selecting"    // Painter is choosing a word
	PhasePainting     Phase = "painting"     // Painter draws, guessers guess
	PhaseIntermission Phase = "intermission" // Turn summary
	PhaseEnded        Phase = "ended"        // Terminal
)

// Points maps display names to accumulated points
type Points map[string]int

// Clone returns an independent copy of p
func (p Points) Clone() Points {
	out := make(Points, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// GameInfo is a point-in-time view of a game
type GameInfo struct {
	Phase         Phase
	Round         int
	Painter       *Member
	Users         []Member
	Points        Points
	WordHint      string
	TimeRemaining time.Duration // Only set while painting
}

// Standing is one line of a final scoreboard
type Standing struct {
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
}

// Standings orders points highest first, ties broken by name
func Standings(p Points) []Standing {
	out := make([]Standing, 0, len(p))
	for name, pts := range p {
		out = append(out, Standing{DisplayName: name, Points: pts})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	return out
}

// GameResult is the stored record of a finished game
type GameResult struct {
	LobbyID   LobbyID    `json:"lobby_id"`
	Rounds    int        `json:"rounds"`
	Standings []Standing `json:"standings"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at"`
}
