package model

import "time"

// LobbyID is a short human-readable identifier for joining lobbies
type LobbyID string

// Game settings bounds
const (
	MinRounds          = 1
	MaxRounds          = 10
	MinTimer           = 5 * time.Second
	MaxTimer           = 10 * time.Minute
	MinWordChoiceCount = 1
	MinHintCount       = 0

	MinStrokeSize = 1
	MaxStrokeSize = 64
)

// GameSettings holds the per-lobby configuration of the next game
type GameSettings struct {
	Rounds          int           `json:"rounds"`
	Timer           time.Duration `json:"timer"` // Painting phase duration
	WordChoiceCount int           `json:"word_choice_count"`
	HintCount       int           `json:"hint_count"`
}

// DefaultGameSettings returns the settings a new lobby starts with
func DefaultGameSettings() GameSettings {
	return GameSettings{
		Rounds:          3,
		Timer:           60 * time.Second,
		WordChoiceCount: 3,
		HintCount:       2,
	}
}

// GameSettingsUpdate is a partial update; nil fields are left unchanged
type GameSettingsUpdate struct {
	Rounds          *int
	Timer           *time.Duration
	WordChoiceCount *int
	HintCount       *int
}

// Apply returns s with every provided field of u clamped into its allowed range
func (s GameSettings) Apply(u GameSettingsUpdate) GameSettings {
	if u.Rounds != nil {
		s.Rounds = clamp(*u.Rounds, MinRounds, MaxRounds)
	}
	if u.Timer != nil {
		s.Timer = min(max(*u.Timer, MinTimer), MaxTimer)
	}
	if u.WordChoiceCount != nil {
		s.WordChoiceCount = max(*u.WordChoiceCount, MinWordChoiceCount)
	}
	if u.HintCount != nil {
		s.HintCount = max(*u.HintCount, MinHintCount)
	}
	return s
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// StrokeSettings is the painter's current brush
type StrokeSettings struct {
	Color string `json:"color"`
	Size  int    `json:"size"`
}

// DefaultStrokeSettings returns the brush a new lobby starts with
func DefaultStrokeSettings() StrokeSettings {
	return StrokeSettings{Color: "black", Size: 4}
}

// Valid reports whether the brush can be applied
func (s StrokeSettings) Valid() bool {
	return s.Color != "" && s.Size >= MinStrokeSize && s.Size <= MaxStrokeSize
}

// LobbyInfo is a point-in-time view of a lobby
type LobbyInfo struct {
	ID             LobbyID
	Members        []Member
	Owner          Member
	Painter        *Member // nil when nobody may paint
	Settings       GameSettings
	StrokeSettings StrokeSettings
	InGame         bool
	Game           *GameInfo // nil between games
}

// MemberNames returns the display names of all members in join order
func (l LobbyInfo) MemberNames() []string {
	names := make([]string, len(l.Members))
	for i, m := range l.Members {
		names[i] = m.DisplayName
	}
	return names
}

// LobbySummary is the directory record of a lobby kept in storage
type LobbySummary struct {
	ID        LobbyID      `json:"id"`
	Owner     string       `json:"owner"`
	Members   []string     `json:"members"`
	Settings  GameSettings `json:"settings"`
	InGame    bool         `json:"in_game"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
