package game

import (
	"log/slog"
	"time"

	"github.com/mcoot/paintergame/internal/dependencies/clock"
	"github.com/mcoot/paintergame/internal/model"
)

// advance moves the machine to its next phase
func (g *Game) advance() error {
	switch g.phase {
	case model.PhaseStarting:
		return g.enterSelecting()
	case model.PhaseSelecting:
		return g.enterPainting()
	case model.PhasePainting:
		g.enterIntermission()
		return nil
	case model.PhaseIntermission:
		if g.isFinalTurn() {
			g.end(g.points.Clone())
			return nil
		}
		return g.enterSelecting()
	default:
		return model.ErrGameEnded
	}
}

// onAdvanceTimer is the phase timer callback
func (g *Game) onAdvanceTimer() {
	if err := g.advance(); err != nil {
		g.logger.Error("failed to advance game",
			slog.String("phase", string(g.phase)),
			slog.String("error", err.Error()),
		)
		// an unrecoverable turn ends the game
		g.end(g.points.Clone())
	}
}

func (g *Game) isFinalTurn() bool {
	return g.round >= g.settings.Rounds && g.painterIdx == len(g.users)-1
}

func (g *Game) enterSelecting() error {
	choices, err := g.sampleWords()
	if err != nil {
		return err
	}

	g.cancelTimers()
	g.nextPainter()
	g.phase = model.PhaseSelecting
	g.choices = choices
	g.word = ""
	g.hint = nil
	g.hintsGiven = 0

	g.logger.Debug("selecting",
		slog.Int("round", g.round),
		slog.String("painter", g.painter.DisplayName),
	)

	g.emit(model.EventSelecting, model.SelectingPayload{
		WordChoices:   append([]string(nil), choices...),
		TimeRemaining: SelectingDuration,
	})
	g.advanceTimer = g.schedule(SelectingDuration, g.onAdvanceTimer)
	return nil
}

func (g *Game) enterPainting() error {
	if len(g.choices) == 0 {
		return model.ErrNoWordChoices
	}

	g.cancelTimers()
	if g.word == "" {
		g.word = normalizeWord(g.choices[g.random.Intn(len(g.choices))])
	}
	g.choices = nil
	g.paintingStart = g.clock.Now()
	g.hint = maskWord(g.word)
	g.hintsGiven = 0
	g.phase = model.PhasePainting

	g.emit(model.EventPainting, model.PaintingPayload{
		Word:          g.word,
		WordHint:      string(g.hint),
		TimeRemaining: g.settings.Timer,
	})
	g.advanceTimer = g.schedule(g.settings.Timer, g.onAdvanceTimer)
	if g.settings.HintCount > 0 {
		g.hintInterval = g.settings.Timer / time.Duration(g.settings.HintCount+1)
		g.hintTimer = g.schedule(g.hintInterval, g.revealHint)
	}
	return nil
}

func (g *Game) enterIntermission() {
	g.cancelTimers()
	g.correct = make(map[model.SessionID]bool)
	g.paintingStart = time.Time{}
	g.choices = nil
	g.phase = model.PhaseIntermission

	g.emit(model.EventIntermission, model.IntermissionPayload{
		Word:          g.word,
		Points:        g.points.Clone(),
		TimeRemaining: IntermissionDuration,
	})
	g.advanceTimer = g.schedule(IntermissionDuration, g.onAdvanceTimer)
}

func (g *Game) end(points model.Points) {
	g.cancelTimers()
	g.phase = model.PhaseEnded
	g.painter = nil
	g.choices = nil

	g.logger.Info("game ended",
		slog.Int("round", g.round),
		slog.Int("user_count", len(g.users)),
	)

	g.emit(model.EventEnded, model.EndedPayload{Points: points})
}

// nextPainter advances the round-robin; wrapping to the first user starts a new round
func (g *Game) nextPainter() {
	if g.painterIdx < 0 {
		g.painterIdx = 0
	} else {
		g.painterIdx = (g.painterIdx + 1) % len(g.users)
		if g.painterIdx == 0 {
			g.round++
		}
	}
	p := g.users[g.painterIdx]
	g.painter = &p
}

// revealHint is the hint timer callback
func (g *Game) revealHint() {
	g.hintTimer = nil
	g.hintsGiven++

	masked := maskedPositions(g.hint)
	if len(masked) <= 1 {
		return
	}
	pos := masked[g.random.Intn(len(masked))]
	g.hint[pos] = []rune(g.word)[pos]

	g.emit(model.EventWordHint, model.WordHintPayload{WordHint: string(g.hint)})

	if g.hintsGiven < g.settings.HintCount {
		g.hintTimer = g.schedule(g.hintInterval, g.revealHint)
	}
}

// schedule arms a timer bound to the current epoch; firings after the next transition are ignored
func (g *Game) schedule(d time.Duration, fn func()) clock.Timer {
	epoch := g.epoch
	return g.clock.AfterFunc(d, func() {
		g.exec(func() {
			if g.epoch != epoch {
				return
			}
			fn()
		})
	})
}

func (g *Game) cancelTimers() {
	if g.advanceTimer != nil {
		g.advanceTimer.Stop()
		g.advanceTimer = nil
	}
	if g.hintTimer != nil {
		g.hintTimer.Stop()
		g.hintTimer = nil
	}
	g.epoch++
}
