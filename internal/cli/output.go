package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string

	mu sync.Mutex
	w  io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

// PrintEvent outputs one game message; JSON output is one object per line
func (o *Output) PrintEvent(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.format == "json" {
		data, _ := json.Marshal(e)
		fmt.Fprintln(o.w, string(data))
		return
	}

	display := string(e.Data)
	if len(display) > 120 {
		display = display[:120] + "..."
	}
	display = strings.ReplaceAll(display, "\n", " ")
	if display == "" {
		fmt.Fprintf(o.w, "[%s] %s\n", e.Time.Format("15:04:05"), e.Type)
		return
	}
	fmt.Fprintf(o.w, "[%s] %s: %s\n", e.Time.Format("15:04:05"), e.Type, display)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Lobby:
		o.printLobby(v)
	case LobbyList:
		o.printLobbyList(v)
	case GameResults:
		o.printGameResults(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Event is a game message received over the WebSocket
type Event struct {
	Time time.Time       `json:"time"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Settings response type
type Settings struct {
	Rounds          int   `json:"rounds"`
	Timer           int64 `json:"timer"`
	WordChoiceCount int   `json:"word_choice_count"`
	HintCount       int   `json:"hint_count"`
}

// Lobby response type
type Lobby struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Members   []string  `json:"members"`
	Settings  Settings  `json:"settings"`
	InGame    bool      `json:"in_game"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LobbyList response type
type LobbyList struct {
	Lobbies []Lobby `json:"lobbies"`
}

// Standing response type
type Standing struct {
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
}

// GameResult response type
type GameResult struct {
	Rounds    int        `json:"rounds"`
	Standings []Standing `json:"standings"`
	Winner    *string    `json:"winner"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at"`
}

// GameResults response type
type GameResults struct {
	LobbyID string       `json:"lobby_id"`
	Results []GameResult `json:"results"`
}

// HealthResult response type
type HealthResult struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Lobbies  int    `json:"lobbies"`
	Words    int    `json:"words"`
}

func (o *Output) printLobby(l Lobby) {
	state := "waiting"
	if l.InGame {
		state = "in game"
	}
	fmt.Fprintf(o.w, "Lobby: %s\n", l.ID)
	fmt.Fprintf(o.w, "State: %s\n", state)
	fmt.Fprintf(o.w, "Settings: %d rounds, %s per turn, %d word choices, %d hints\n",
		l.Settings.Rounds,
		time.Duration(l.Settings.Timer)*time.Millisecond,
		l.Settings.WordChoiceCount,
		l.Settings.HintCount,
	)
	fmt.Fprintf(o.w, "Members (%d):\n", len(l.Members))
	for _, m := range l.Members {
		ownerStr := ""
		if m == l.Owner {
			ownerStr = " [owner]"
		}
		fmt.Fprintf(o.w, "  - %s%s\n", m, ownerStr)
	}
}

func (o *Output) printLobbyList(list LobbyList) {
	if len(list.Lobbies) == 0 {
		fmt.Fprintln(o.w, "No open lobbies")
		return
	}
	for _, l := range list.Lobbies {
		state := ""
		if l.InGame {
			state = " (in game)"
		}
		fmt.Fprintf(o.w, "%s  owner=%s  members=%d%s\n", l.ID, l.Owner, len(l.Members), state)
	}
}

func (o *Output) printGameResults(r GameResults) {
	if len(r.Results) == 0 {
		fmt.Fprintf(o.w, "No finished games for lobby %s\n", r.LobbyID)
		return
	}
	for i, res := range r.Results {
		fmt.Fprintf(o.w, "Game %d (%d rounds, ended %s):\n", i+1, res.Rounds, res.EndedAt.Format(time.RFC3339))
		for _, s := range res.Standings {
			fmt.Fprintf(o.w, "  %s: %d points\n", s.DisplayName, s.Points)
		}
		if res.Winner != nil {
			fmt.Fprintf(o.w, "  Winner: %s\n", *res.Winner)
		}
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Sessions: %d\n", h.Sessions)
	fmt.Fprintf(o.w, "Lobbies: %d\n", h.Lobbies)
	fmt.Fprintf(o.w, "Words: %d\n", h.Words)
}
