package game

import (
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/paintergame/internal/dependencies/clock"
	"github.com/mcoot/paintergame/internal/dependencies/random"
	"github.com/mcoot/paintergame/internal/model"
)

// Fixed phase durations and scoring bounds
const (
	StartDelay           = 3 * time.Second
	SelectingDuration    = 5 * time.Second
	IntermissionDuration = 3 * time.Second

	MinPoints = 20
	MaxPoints = 300

	// DefaultMaxSampleAttempts bounds collision probing per candidate word
	DefaultMaxSampleAttempts = 1000

	// CloseGuessMinLength is the shortest word for which near misses are reported
	CloseGuessMinLength = 4
)

// Config holds everything a game needs at construction
type Config struct {
	Users             []model.Member
	Settings          model.GameSettings
	Words             []string
	MaxSampleAttempts int

	Clock  clock.Clock
	Random random.Random
	Logger *slog.Logger

	// Emit receives every event the game produces
	Emit func(model.GameEvent)

	// Exec runs timer callbacks. Lobbies post them into their mailbox; nil runs them in place.
	Exec func(func())
}

// GuessResult reports the outcome of a well-formed guess
type GuessResult struct {
	Correct bool
	Close   bool
	Awarded int
}

// Game is the turn-loop state machine of one game.
// It is not safe for concurrent use; its owner serializes every call and timer firing.
type Game struct {
	settings    model.GameSettings
	words       []string
	maxAttempts int

	clock  clock.Clock
	random random.Random
	logger *slog.Logger
	emitFn func(model.GameEvent)
	exec   func(func())

	phase      model.Phase
	round      int
	users      []model.Member
	painter    *model.Member
	painterIdx int // Snapshot index of the latest painter turn, -1 before the first

	choices    []string
	word       string
	hint       []rune
	hintsGiven int
	correct    map[model.SessionID]bool
	points     model.Points

	paintingStart time.Time
	hintInterval  time.Duration

	advanceTimer clock.Timer
	hintTimer    clock.Timer
	epoch        uint64
	started      bool
}

// New creates a game in the Starting phase. Call Start to begin the countdown.
func New(cfg Config) (*Game, error) {
	if len(cfg.Users) == 0 {
		return nil, model.ErrNoUsers
	}
	if len(cfg.Words) == 0 {
		return nil, model.ErrWordPoolEmpty
	}

	maxAttempts := cfg.MaxSampleAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxSampleAttempts
	}
	exec := cfg.Exec
	if exec == nil {
		exec = func(f func()) { f() }
	}
	emit := cfg.Emit
	if emit == nil {
		emit = func(model.GameEvent) {}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	users := make([]model.Member, len(cfg.Users))
	copy(users, cfg.Users)
	points := make(model.Points, len(users))
	for _, u := range users {
		points[u.DisplayName] = 0
	}

	return &Game{
		settings:    cfg.Settings,
		words:       append([]string(nil), cfg.Words...),
		maxAttempts: maxAttempts,
		clock:       cfg.Clock,
		random:      cfg.Random,
		logger:      logger.With(slog.String("component", "game")),
		emitFn:      emit,
		exec:        exec,
		phase:       model.PhaseStarting,
		round:       1,
		users:       users,
		painterIdx:  -1,
		correct:     make(map[model.SessionID]bool),
		points:      points,
	}, nil
}

// Start schedules the first turn after the start delay
func (g *Game) Start() {
	if g.started || g.phase != model.PhaseStarting {
		return
	}
	g.started = true
	g.advanceTimer = g.schedule(StartDelay, g.onAdvanceTimer)

	g.logger.Info("game starting",
		slog.Int("user_count", len(g.users)),
		slog.Int("rounds", g.settings.Rounds),
	)
}

// Stop cancels every pending timer without emitting anything
func (g *Game) Stop() {
	g.cancelTimers()
	g.phase = model.PhaseEnded
	g.painter = nil
}

// SelectWord commits the painter's choice and starts painting immediately
func (g *Game) SelectWord(user model.SessionID, word string) error {
	if !g.isPainter(user) {
		return model.ErrNotPainter
	}
	if g.phase != model.PhaseSelecting {
		return model.ErrNotSelecting
	}
	if len(g.choices) == 0 {
		return model.ErrNoWordChoices
	}

	want := normalizeWord(word)
	for _, c := range g.choices {
		if normalizeWord(c) == want {
			g.word = want
			return g.enterPainting()
		}
	}
	return model.ErrNotAWordChoice
}

// Guess checks a guesser's answer against the committed word
func (g *Game) Guess(user model.SessionID, word string) (GuessResult, error) {
	guesser, ok := g.member(user)
	if !ok {
		return GuessResult{}, model.ErrNotInGame
	}
	if g.isPainter(user) {
		return GuessResult{}, model.ErrNotGuesser
	}
	if g.phase != model.PhasePainting {
		return GuessResult{}, model.ErrNotPainting
	}
	if g.correct[user] {
		return GuessResult{}, model.ErrAlreadyGuessed
	}
	if g.word == "" {
		return GuessResult{}, model.ErrNoWord
	}

	guess := normalizeWord(word)
	if guess != g.word {
		return GuessResult{Close: isCloseGuess(guess, g.word)}, nil
	}

	awarded := g.award()
	g.points[guesser.DisplayName] += awarded

	bonus := 0
	guessers := g.guessers()
	if len(guessers) > 1 {
		bonus = awarded / len(guessers)
		g.points[g.painter.DisplayName] += bonus
	}
	g.correct[user] = true

	g.logger.Debug("correct guess",
		slog.String("session_id", string(user)),
		slog.Int("awarded", awarded),
		slog.Int("painter_bonus", bonus),
	)

	g.emit(model.EventCorrectGuess, model.CorrectGuessPayload{
		Guesser:      guesser,
		Awarded:      awarded,
		PainterBonus: bonus,
		Points:       g.points.Clone(),
	})

	if g.allGuessed() {
		g.enterIntermission()
	}
	return GuessResult{Correct: true, Awarded: awarded}, nil
}

// RemoveUser takes a departed user out of the game
func (g *Game) RemoveUser(user model.SessionID) {
	if g.phase == model.PhaseEnded {
		return
	}
	idx := g.indexOf(user)
	if idx < 0 {
		return
	}

	if len(g.users) == 1 {
		g.end(model.Points{})
		return
	}

	wasPainter := g.isPainter(user)
	if wasPainter && (g.phase == model.PhaseSelecting || g.phase == model.PhasePainting) {
		g.logger.Info("painter left mid-turn", slog.String("session_id", string(user)))
		g.enterIntermission()
	}

	name := g.users[idx].DisplayName
	g.users = append(g.users[:idx:idx], g.users[idx+1:]...)
	delete(g.points, name)
	delete(g.correct, user)
	if wasPainter {
		g.painter = nil
	}
	// Keep the rotation pointing at the turn before the next painter
	if idx <= g.painterIdx {
		g.painterIdx--
	}

	if g.phase == model.PhasePainting && g.allGuessed() {
		g.enterIntermission()
	}
}

// Info returns a point-in-time view of the game
func (g *Game) Info() model.GameInfo {
	info := model.GameInfo{
		Phase:    g.phase,
		Round:    g.round,
		Painter:  g.painterCopy(),
		Users:    append([]model.Member(nil), g.users...),
		Points:   g.points.Clone(),
		WordHint: string(g.hint),
	}
	if g.phase == model.PhasePainting {
		info.TimeRemaining = g.remaining()
	}
	return info
}

// Phase returns the current phase
func (g *Game) Phase() model.Phase {
	return g.phase
}

// Painter returns the current painter, or nil when nobody is painting
func (g *Game) Painter() *model.Member {
	return g.painterCopy()
}

func (g *Game) member(user model.SessionID) (model.Member, bool) {
	idx := g.indexOf(user)
	if idx < 0 {
		return model.Member{}, false
	}
	return g.users[idx], true
}

func (g *Game) indexOf(user model.SessionID) int {
	for i, u := range g.users {
		if u.ID == user {
			return i
		}
	}
	return -1
}

func (g *Game) isPainter(user model.SessionID) bool {
	return g.painter != nil && g.painter.ID == user
}

func (g *Game) painterCopy() *model.Member {
	if g.painter == nil {
		return nil
	}
	p := *g.painter
	return &p
}

// guessers returns the snapshot minus the painter, in snapshot order
func (g *Game) guessers() []model.Member {
	out := make([]model.Member, 0, len(g.users))
	for _, u := range g.users {
		if !g.isPainter(u.ID) {
			out = append(out, u)
		}
	}
	return out
}

func (g *Game) allGuessed() bool {
	for _, u := range g.guessers() {
		if !g.correct[u.ID] {
			return false
		}
	}
	return true
}

// remaining returns the painting time left, never negative
func (g *Game) remaining() time.Duration {
	left := g.settings.Timer - g.clock.Now().Sub(g.paintingStart)
	return min(max(left, 0), g.settings.Timer)
}

// award computes the time-decayed points of a correct guess
func (g *Game) award() int {
	total := int64(g.settings.Timer)
	if total <= 0 {
		return MinPoints
	}
	return MinPoints + int(int64(MaxPoints-MinPoints)*int64(g.remaining())/total)
}

func (g *Game) emit(t model.EventType, payload any) {
	g.emitFn(model.GameEvent{
		Type:      t,
		Timestamp: g.clock.Now(),
		Round:     g.round,
		Painter:   g.painterCopy(),
		Guessers:  g.guessers(),
		Users:     append([]model.Member(nil), g.users...),
		Payload:   payload,
	})
}

func normalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
