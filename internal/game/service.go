// Package game drives rooms in real time: round timers, disconnect grace,
// the play-again ballot and the request operations clients call.
package game

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ThakurMayank5/Telestrations-Server/internal/clock"
	"github.com/ThakurMayank5/Telestrations-Server/internal/directory"
	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
	"github.com/ThakurMayank5/Telestrations-Server/internal/room"
)

// Settings are the timings and thresholds of a game. They can change at
// runtime; a change applies from the next timer armed. Unset fields take
// the defaults, except Grace and Settle which may legitimately be zero.
type Settings struct {
	DrawTime          time.Duration
	GuessTime         time.Duration
	Grace             time.Duration
	Settle            time.Duration
	DisconnectTimeout time.Duration
	ReconnectWindow   time.Duration
	VoteTimeout       time.Duration
	Quorum            int
	// StrictDeadline also fills the seats of connected players that have not
	// submitted when the round deadline passes.
	StrictDeadline bool
}

func DefaultSettings() Settings {
	return Settings{
		DrawTime:          60 * time.Second,
		GuessTime:         45 * time.Second,
		Grace:             time.Second,
		Settle:            2 * time.Second,
		DisconnectTimeout: 15 * time.Second,
		ReconnectWindow:   60 * time.Second,
		VoteTimeout:       30 * time.Second,
		Quorum:            3,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.DrawTime <= 0 {
		s.DrawTime = d.DrawTime
	}
	if s.GuessTime <= 0 {
		s.GuessTime = d.GuessTime
	}
	if s.Grace < 0 {
		s.Grace = d.Grace
	}
	if s.Settle < 0 {
		s.Settle = d.Settle
	}
	if s.DisconnectTimeout <= 0 {
		s.DisconnectTimeout = d.DisconnectTimeout
	}
	if s.ReconnectWindow <= 0 {
		s.ReconnectWindow = d.ReconnectWindow
	}
	if s.VoteTimeout <= 0 {
		s.VoteTimeout = d.VoteTimeout
	}
	if s.Quorum <= 0 {
		s.Quorum = d.Quorum
	}
	return s
}

type Service struct {
	store  *room.Store
	dir    *directory.Directory
	clock  clock.Clock
	notify Notifier
	logger *zap.Logger

	settingsMu sync.RWMutex
	settings   Settings

	sched      *scheduler
	reconnects *reconnects
	ballots    *ballots
}

func NewService(store *room.Store, dir *directory.Directory, clk clock.Clock, notify Notifier, settings Settings, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.Real()
	}
	s := &Service{
		store:    store,
		dir:      dir,
		clock:    clk,
		notify:   notify,
		logger:   logger,
		settings: settings.withDefaults(),
	}
	s.sched = newScheduler(s, logger.Named("scheduler"))
	s.reconnects = newReconnects(s, logger.Named("reconnect"))
	s.ballots = newBallots(s, logger.Named("playagain"))

	store.OnRemove(s.roomRemoved)
	return s
}

func (s *Service) Settings() Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

func (s *Service) SetSettings(st Settings) {
	st = st.withDefaults()
	s.settingsMu.Lock()
	s.settings = st
	s.settingsMu.Unlock()
	s.logger.Info("game settings updated",
		zap.Duration("draw", st.DrawTime),
		zap.Duration("guess", st.GuessTime),
		zap.Int("quorum", st.Quorum))
}

// roomRemoved runs under the lock of the room being removed.
func (s *Service) roomRemoved(code string) {
	s.sched.Stop(code)
	s.reconnects.dropRoom(code)
	s.ballots.Cancel(code)
	s.dir.DropRoom(code)
}

// forget releases the seat of a player that lost its place in the room.
func (s *Service) forget(code, name string) {
	s.dir.Drop(code, name)
	s.reconnects.take(code, name)
}

// binding resolves conn to the room it is playing in.
func (s *Service) binding(conn string) (directory.Binding, error) {
	b, ok := s.dir.Lookup(conn)
	if !ok {
		return directory.Binding{}, apperrors.New(apperrors.ErrNotInRoom)
	}
	return b, nil
}

// leaveCurrent takes conn out of whatever room it is in before it enters
// another one.
func (s *Service) leaveCurrent(conn string) {
	if _, ok := s.dir.Lookup(conn); ok {
		s.Disconnect(conn)
	}
}

func (s *Service) CreateRoom(conn, name string, opts room.Options) (room.Snapshot, error) {
	name, err := room.ValidateName(name)
	if err != nil {
		return room.Snapshot{}, err
	}
	s.leaveCurrent(conn)

	snap := s.store.CreateRoom(conn, name, opts)
	s.dir.Bind(snap.Code, name, conn)
	return snap, nil
}

func (s *Service) JoinRoom(conn, code, name string) (room.Snapshot, error) {
	code, err := room.NormalizeCode(code)
	if err != nil {
		return room.Snapshot{}, err
	}
	name, err = room.ValidateName(name)
	if err != nil {
		return room.Snapshot{}, err
	}
	if !s.store.Exists(code) {
		return room.Snapshot{}, apperrors.New(apperrors.ErrRoomNotFound)
	}
	s.leaveCurrent(conn)

	var snap room.Snapshot
	err = s.store.Do(code, func(r *room.Room) error {
		if err := r.Join(conn, name); err != nil {
			return err
		}
		s.dir.Bind(code, name, conn)
		snap = r.Snapshot()
		s.broadcast(r, EventPlayerJoined, snap)

		s.logger.Info("player joined",
			zap.String("room", code),
			zap.String("player", name),
			zap.String("conn", conn))
		return nil
	})
	return snap, err
}

func (s *Service) PublicLobbies() []room.LobbySummary {
	return s.store.PublicLobbies()
}

// RoomExists reports whether code names a live room. Code case is ignored.
func (s *Service) RoomExists(code string) bool {
	code, err := room.NormalizeCode(code)
	if err != nil {
		return false
	}
	return s.store.Exists(code)
}

// StartGame starts the first round. Host only.
func (s *Service) StartGame(conn string) error {
	b, err := s.binding(conn)
	if err != nil {
		return err
	}
	return s.store.Do(b.Room, func(r *room.Room) error {
		if !r.IsHost(conn) {
			return apperrors.New(apperrors.ErrNotHost)
		}
		if err := s.store.Start(r); err != nil {
			return err
		}
		s.logger.Info("game started",
			zap.String("room", r.Code),
			zap.Int("players", len(r.Players)))
		s.sched.startRound(r)
		return nil
	})
}

// Submit records a drawing or a guess for the current round.
func (s *Service) Submit(conn, content string) error {
	b, err := s.binding(conn)
	if err != nil {
		return err
	}
	return s.store.Do(b.Room, func(r *room.Room) error {
		if r.Status == room.StatusPlaying && !r.RoundOpen() {
			return apperrors.New(apperrors.ErrRoundNotStarted)
		}
		all, err := r.Submit(conn, content)
		if err != nil {
			return err
		}
		s.logger.Debug("submission received",
			zap.String("room", r.Code),
			zap.String("player", b.Name),
			zap.Int("round", r.CurrentRound))
		s.submissionUpdate(r)
		if all {
			s.sched.completed(r)
		}
		return nil
	})
}

// Results returns every chain once the game is over.
func (s *Service) Results(conn string) ([]room.ChainResult, error) {
	b, err := s.binding(conn)
	if err != nil {
		return nil, err
	}
	var out []room.ChainResult
	err = s.store.Do(b.Room, func(r *room.Room) error {
		if r.Status != room.StatusResults {
			return apperrors.New(apperrors.ErrResultsUnavailable)
		}
		out = r.Results()
		return nil
	})
	return out, err
}

// ReturnToLobby ends the game or results screen. Host only. Players that
// are not connected lose their seat.
func (s *Service) ReturnToLobby(conn string) error {
	b, err := s.binding(conn)
	if err != nil {
		return err
	}
	return s.store.Do(b.Room, func(r *room.Room) error {
		if !r.IsHost(conn) {
			return apperrors.New(apperrors.ErrNotHost)
		}
		if r.Status == room.StatusLobby {
			return nil
		}
		s.sched.Stop(r.Code)
		s.ballots.Cancel(r.Code)
		for _, p := range r.ResetToLobby() {
			s.forget(r.Code, p.Name)
		}
		s.logger.Info("room returned to lobby", zap.String("room", r.Code))
		s.broadcast(r, EventReturnedToLobby, r.Snapshot())
		return nil
	})
}

func (s *Service) SendChat(conn, text string) (room.ChatMessage, error) {
	b, err := s.binding(conn)
	if err != nil {
		return room.ChatMessage{}, err
	}
	var msg room.ChatMessage
	err = s.store.Do(b.Room, func(r *room.Room) error {
		m, err := r.AddChat(conn, text, s.clock.Now())
		if err != nil {
			return err
		}
		msg = m
		s.broadcast(r, EventChatMessage, m)
		return nil
	})
	return msg, err
}

func (s *Service) ChatHistory(conn string) ([]room.ChatMessage, error) {
	b, err := s.binding(conn)
	if err != nil {
		return nil, err
	}
	var out []room.ChatMessage
	err = s.store.Do(b.Room, func(r *room.Room) error {
		out = r.ChatHistory()
		return nil
	})
	return out, err
}
