package lobby

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mcoot/paintergame/internal/dependencies/clock"
	"github.com/mcoot/paintergame/internal/dependencies/random"
	"github.com/mcoot/paintergame/internal/model"
	"github.com/mcoot/paintergame/internal/protocol"
	"github.com/mcoot/paintergame/internal/services/fanout"
	"github.com/mcoot/paintergame/internal/services/game"
	"github.com/mcoot/paintergame/internal/services/session"
	"github.com/mcoot/paintergame/internal/storage"
)

const inboxSize = 64

// Msg is a command processed by a lobby's loop
type Msg interface{ isLobbyMsg() }

type joinMsg struct {
	sess  *session.Session
	reply chan error
}

type exitMsg struct {
	user  model.SessionID
	reply chan error
}

type settingsMsg struct {
	user   model.SessionID
	update model.GameSettingsUpdate
	reply  chan error
}

type startMsg struct {
	user  model.SessionID
	reply chan error
}

type selectWordMsg struct {
	user  model.SessionID
	word  string
	reply chan error
}

type guessReply struct {
	result game.GuessResult
	err    error
}

type guessMsg struct {
	user  model.SessionID
	word  string
	reply chan guessReply
}

type strokeMsg struct {
	user    model.SessionID
	msgType string
	data    json.RawMessage
	reply   chan error
}

type infoMsg struct {
	reply chan model.LobbyInfo
}

// timerMsg carries a game timer callback into the loop
type timerMsg struct {
	fn func()
}

type shutdownMsg struct{}

func (joinMsg) isLobbyMsg()       {}
func (exitMsg) isLobbyMsg()       {}
func (settingsMsg) isLobbyMsg()   {}
func (startMsg) isLobbyMsg()      {}
func (selectWordMsg) isLobbyMsg() {}
func (guessMsg) isLobbyMsg()      {}
func (strokeMsg) isLobbyMsg()     {}
func (infoMsg) isLobbyMsg()       {}
func (timerMsg) isLobbyMsg()      {}
func (shutdownMsg) isLobbyMsg()   {}

// deps are the collaborators a lobby borrows from its controller
type deps struct {
	storage           storage.Storage
	clock             clock.Clock
	random            random.Random
	logger            *slog.Logger
	words             func() []string
	maxSampleAttempts int
	onEmpty           func(model.LobbyID)
}

// Lobby is one room of players. All state is owned by a single goroutine;
// callers and game timers talk to it through its inbox.
type Lobby struct {
	id        model.LobbyID
	createdAt time.Time
	deps      deps
	logger    *slog.Logger

	inbox  chan Msg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Owned by loop
	members        []*session.Session
	owner          model.SessionID
	settings       model.GameSettings
	strokeSettings model.StrokeSettings
	game           *game.Game
	gameStartedAt  time.Time
	closed         bool
}

// newLobby creates a lobby with owner as its only member and starts its loop
func newLobby(parent context.Context, id model.LobbyID, owner *session.Session, d deps) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	l := &Lobby{
		id:             id,
		createdAt:      d.clock.Now(),
		deps:           d,
		logger:         d.logger.With(slog.String("lobby_id", string(id))),
		inbox:          make(chan Msg, inboxSize),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		members:        []*session.Session{owner},
		owner:          owner.ID,
		settings:       model.DefaultGameSettings(),
		strokeSettings: model.DefaultStrokeSettings(),
	}

	// The loop is not running yet, so the lobby can be set up in place
	owner.SetLobby(id)
	l.broadcastInfo()
	l.saveSummary()

	go l.loop()
	return l
}

// ID returns the lobby code
func (l *Lobby) ID() model.LobbyID {
	return l.id
}

// Done is closed once the lobby has stopped
func (l *Lobby) Done() <-chan struct{} {
	return l.done
}

// Join adds a session to the lobby
func (l *Lobby) Join(ctx context.Context, sess *session.Session) error {
	reply := make(chan error, 1)
	return l.callErr(ctx, joinMsg{sess: sess, reply: reply}, reply)
}

// Exit removes a member from the lobby
func (l *Lobby) Exit(ctx context.Context, user model.SessionID) error {
	reply := make(chan error, 1)
	return l.callErr(ctx, exitMsg{user: user, reply: reply}, reply)
}

// UpdateSettings applies a partial settings update from the owner
func (l *Lobby) UpdateSettings(ctx context.Context, user model.SessionID, update model.GameSettingsUpdate) error {
	reply := make(chan error, 1)
	return l.callErr(ctx, settingsMsg{user: user, update: update, reply: reply}, reply)
}

// StartGame starts a game over the current members
func (l *Lobby) StartGame(ctx context.Context, user model.SessionID) error {
	reply := make(chan error, 1)
	return l.callErr(ctx, startMsg{user: user, reply: reply}, reply)
}

// SelectWord forwards the painter's word choice to the game
func (l *Lobby) SelectWord(ctx context.Context, user model.SessionID, word string) error {
	reply := make(chan error, 1)
	return l.callErr(ctx, selectWordMsg{user: user, word: word, reply: reply}, reply)
}

// Guess forwards a guess to the game
func (l *Lobby) Guess(ctx context.Context, user model.SessionID, word string) (game.GuessResult, error) {
	reply := make(chan guessReply, 1)
	r, err := call(ctx, l, guessMsg{user: user, word: word, reply: reply}, reply)
	if err != nil {
		return game.GuessResult{}, err
	}
	return r.result, r.err
}

// Stroke relays drawing data from the current painter
func (l *Lobby) Stroke(ctx context.Context, user model.SessionID, msgType string, data json.RawMessage) error {
	reply := make(chan error, 1)
	return l.callErr(ctx, strokeMsg{user: user, msgType: msgType, data: data, reply: reply}, reply)
}

// Info returns a snapshot of the lobby
func (l *Lobby) Info(ctx context.Context) (model.LobbyInfo, error) {
	reply := make(chan model.LobbyInfo, 1)
	return call(ctx, l, infoMsg{reply: reply}, reply)
}

// Shutdown stops the lobby without notifying members
func (l *Lobby) Shutdown() {
	select {
	case l.inbox <- shutdownMsg{}:
	case <-l.done:
	}
	<-l.done
}

// post runs fn on the loop. Game timers fire through here.
func (l *Lobby) post(fn func()) {
	select {
	case l.inbox <- timerMsg{fn: fn}:
	case <-l.done:
	}
}

func (l *Lobby) callErr(ctx context.Context, msg Msg, reply chan error) error {
	err, callErr := call(ctx, l, msg, reply)
	if callErr != nil {
		return callErr
	}
	return err
}

// call sends msg and waits for its reply. A reply written before the loop stopped still wins.
func call[T any](ctx context.Context, l *Lobby, msg Msg, reply chan T) (T, error) {
	var zero T
	select {
	case l.inbox <- msg:
	case <-l.done:
		return zero, model.ErrLobbyClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, model.ErrLobbyClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (l *Lobby) loop() {
	defer close(l.done)
	defer l.cancel()

	for {
		select {
		case <-l.ctx.Done():
			l.teardown()
			return
		case msg := <-l.inbox:
			l.handle(msg)
			if l.closed {
				return
			}
		}
	}
}

func (l *Lobby) handle(msg Msg) {
	switch m := msg.(type) {
	case joinMsg:
		m.reply <- l.join(m.sess)
	case exitMsg:
		m.reply <- l.exit(m.user)
	case settingsMsg:
		m.reply <- l.updateSettings(m.user, m.update)
	case startMsg:
		m.reply <- l.startGame(m.user)
	case selectWordMsg:
		m.reply <- l.selectWord(m.user, m.word)
	case guessMsg:
		res, err := l.guess(m.user, m.word)
		m.reply <- guessReply{result: res, err: err}
	case strokeMsg:
		m.reply <- l.stroke(m.user, m.msgType, m.data)
	case infoMsg:
		m.reply <- l.info()
	case timerMsg:
		m.fn()
	case shutdownMsg:
		l.teardown()
	}
}

func (l *Lobby) join(sess *session.Session) error {
	if l.game != nil {
		return model.ErrGameInProgress
	}
	if l.member(sess.ID) != nil {
		return model.ErrAlreadyInLobby
	}

	l.members = append(l.members, sess)
	sess.SetLobby(l.id)

	l.logger.Info("member joined",
		slog.String("session_id", string(sess.ID)),
		slog.Int("member_count", len(l.members)),
	)

	l.broadcastInfo()
	l.saveSummary()
	return nil
}

func (l *Lobby) exit(user model.SessionID) error {
	idx := l.indexOf(user)
	if idx < 0 {
		return model.ErrNotInLobby
	}

	leaver := l.members[idx]
	l.members = append(l.members[:idx:idx], l.members[idx+1:]...)
	leaver.ClearLobby(l.id)
	leaver.Send(protocol.TypeLobbyExited, nil)

	l.logger.Info("member left",
		slog.String("session_id", string(user)),
		slog.Int("member_count", len(l.members)),
	)

	// Lobby membership changes first so game events no longer reach the leaver
	if l.game != nil {
		l.game.RemoveUser(user)
	}

	if len(l.members) == 0 {
		l.destroy()
		return nil
	}

	if l.owner == user {
		l.owner = l.members[0].ID
		l.logger.Info("ownership transferred", slog.String("owner", string(l.owner)))
	}

	l.broadcastInfo()
	l.saveSummary()
	return nil
}

func (l *Lobby) updateSettings(user model.SessionID, update model.GameSettingsUpdate) error {
	if l.member(user) == nil {
		return model.ErrNotInLobby
	}
	if user != l.owner {
		return model.ErrNotOwner
	}
	if l.game != nil {
		return model.ErrGameInProgress
	}

	l.settings = l.settings.Apply(update)

	l.broadcastInfo()
	l.saveSummary()
	return nil
}

func (l *Lobby) startGame(user model.SessionID) error {
	if l.member(user) == nil {
		return model.ErrNotInLobby
	}
	if user != l.owner {
		return model.ErrNotOwner
	}
	if l.game != nil {
		return model.ErrGameInProgress
	}

	users := l.memberSnapshot()
	g, err := game.New(game.Config{
		Users:             users,
		Settings:          l.settings,
		Words:             l.deps.words(),
		MaxSampleAttempts: l.deps.maxSampleAttempts,
		Clock:             l.deps.clock,
		Random:            l.deps.random,
		Logger:            l.logger,
		Emit:              l.onGameEvent,
		Exec:              l.post,
	})
	if err != nil {
		return err
	}

	l.game = g
	l.gameStartedAt = l.deps.clock.Now()
	g.Start()

	l.deliver(fanout.GameStarted(users, l.settings))
	l.broadcastInfo()
	l.saveSummary()
	return nil
}

func (l *Lobby) selectWord(user model.SessionID, word string) error {
	if l.member(user) == nil {
		return model.ErrNotInLobby
	}
	if l.game == nil {
		return model.ErrNoGameInProgress
	}
	return l.game.SelectWord(user, word)
}

func (l *Lobby) guess(user model.SessionID, word string) (game.GuessResult, error) {
	sess := l.member(user)
	if sess == nil {
		return game.GuessResult{}, model.ErrNotInLobby
	}
	if l.game == nil {
		return game.GuessResult{}, model.ErrNoGameInProgress
	}

	res, err := l.game.Guess(user, word)
	if err != nil {
		return res, err
	}
	if res.Close {
		sess.Send(protocol.TypeGuessClose, protocol.GuessClosePayload{Word: word})
	}
	return res, nil
}

func (l *Lobby) stroke(user model.SessionID, msgType string, data json.RawMessage) error {
	if !protocol.IsStroke(msgType) {
		return model.ErrUnknownMessageType
	}
	if l.member(user) == nil {
		return model.ErrNotInLobby
	}
	if !l.canPaint(user) {
		return model.ErrNotPainter
	}

	if msgType == protocol.TypeStrokeSettings {
		var p protocol.StrokeSettingsPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return model.ErrInvalidStroke
		}
		settings := model.StrokeSettings{Color: p.Color, Size: p.Size}
		if !settings.Valid() {
			return model.ErrInvalidStroke
		}
		l.strokeSettings = settings
	}

	l.deliver(fanout.Stroke(l.memberSnapshot(), user, msgType, data))
	return nil
}

// canPaint reports whether user currently holds the brush
func (l *Lobby) canPaint(user model.SessionID) bool {
	if l.game != nil {
		p := l.game.Painter()
		return p != nil && p.ID == user
	}
	return user == l.owner
}

func (l *Lobby) info() model.LobbyInfo {
	info := model.LobbyInfo{
		ID:             l.id,
		Members:        l.memberSnapshot(),
		Settings:       l.settings,
		StrokeSettings: l.strokeSettings,
		InGame:         l.game != nil,
	}
	if owner := l.member(l.owner); owner != nil {
		info.Owner = owner.Member()
	}
	if l.game != nil {
		info.Painter = l.game.Painter()
		gameInfo := l.game.Info()
		info.Game = &gameInfo
	} else if len(l.members) > 0 {
		p := info.Owner
		info.Painter = &p
	}
	return info
}

// onGameEvent routes game events to members; it runs on the loop
func (l *Lobby) onGameEvent(e model.GameEvent) {
	for _, d := range fanout.GameEvent(e) {
		l.deliver(d)
	}
	if e.Type != model.EventEnded {
		return
	}

	p := e.Payload.(model.EndedPayload)
	l.game = nil
	l.saveResult(p.Points, e.Timestamp)
	if l.closed || len(l.members) == 0 {
		return
	}
	l.broadcastInfo()
	l.saveSummary()
}

func (l *Lobby) saveResult(points model.Points, endedAt time.Time) {
	if len(points) == 0 {
		return
	}
	result := &model.GameResult{
		LobbyID:   l.id,
		Rounds:    l.settings.Rounds,
		Standings: model.Standings(points),
		StartedAt: l.gameStartedAt,
		EndedAt:   endedAt,
	}
	if err := l.deps.storage.AppendGameResult(l.ctx, result); err != nil {
		l.logger.Error("failed to save game result", slog.String("error", err.Error()))
	}
}

// destroy tears the lobby down once its last member has left
func (l *Lobby) destroy() {
	l.teardown()
	if err := l.deps.storage.DeleteLobbySummary(l.ctx, l.id); err != nil {
		l.logger.Error("failed to delete lobby summary", slog.String("error", err.Error()))
	}
	if l.deps.onEmpty != nil {
		l.deps.onEmpty(l.id)
	}
	l.logger.Info("lobby destroyed")
}

func (l *Lobby) teardown() {
	if l.game != nil {
		l.game.Stop()
		l.game = nil
	}
	l.closed = true
}

func (l *Lobby) broadcastInfo() {
	l.deliver(fanout.LobbyInfo(l.info()))
}

// deliver sends d to every recipient that is still a member
func (l *Lobby) deliver(d fanout.Delivery) {
	if len(d.Recipients) == 0 {
		return
	}
	raw, err := d.Encode()
	if err != nil {
		l.logger.Error("failed to encode delivery",
			slog.String("type", d.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, r := range d.Recipients {
		if sess := l.member(r.ID); sess != nil {
			sess.SendRaw(raw)
		}
	}
}

func (l *Lobby) saveSummary() {
	summary := &model.LobbySummary{
		ID:        l.id,
		Members:   make([]string, len(l.members)),
		Settings:  l.settings,
		InGame:    l.game != nil,
		CreatedAt: l.createdAt,
		UpdatedAt: l.deps.clock.Now(),
	}
	for i, m := range l.members {
		summary.Members[i] = m.DisplayName()
		if m.ID == l.owner {
			summary.Owner = m.DisplayName()
		}
	}
	if err := l.deps.storage.SaveLobbySummary(l.ctx, summary); err != nil {
		l.logger.Error("failed to save lobby summary", slog.String("error", err.Error()))
	}
}

func (l *Lobby) memberSnapshot() []model.Member {
	out := make([]model.Member, len(l.members))
	for i, m := range l.members {
		out[i] = m.Member()
	}
	return out
}

func (l *Lobby) member(id model.SessionID) *session.Session {
	if idx := l.indexOf(id); idx >= 0 {
		return l.members[idx]
	}
	return nil
}

func (l *Lobby) indexOf(id model.SessionID) int {
	for i, m := range l.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}
