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

// graceEntry holds the seat of a player that dropped out of a running game
// or its results screen.
type graceEntry struct {
	id             directory.Identity
	epoch          int
	disconnectedAt time.Time
	timeout        clock.Timer
	window         clock.Timer
}

func (e *graceEntry) stop() {
	if e.timeout != nil {
		e.timeout.Stop()
	}
	if e.window != nil {
		e.window.Stop()
	}
}

type reconnects struct {
	svc     *Service
	mu      sync.Mutex
	entries map[directory.Identity]*graceEntry
	logger  *zap.Logger
}

func newReconnects(svc *Service, logger *zap.Logger) *reconnects {
	return &reconnects{
		svc:     svc,
		entries: make(map[directory.Identity]*graceEntry),
		logger:  logger,
	}
}

// hold records a grace entry for a player that just dropped. The caller
// holds the room.
func (rc *reconnects) hold(r *room.Room, name string) {
	st := rc.svc.Settings()
	e := &graceEntry{
		id:             directory.NewIdentity(r.Code, name),
		epoch:          r.Epoch,
		disconnectedAt: rc.svc.clock.Now(),
	}
	if r.Status == room.StatusPlaying {
		e.timeout = rc.svc.clock.AfterFunc(st.DisconnectTimeout, func() { rc.onTimeout(e) })
	}
	e.window = rc.svc.clock.AfterFunc(st.ReconnectWindow, func() { rc.onWindowClosed(e) })

	rc.mu.Lock()
	if old := rc.entries[e.id]; old != nil {
		old.stop()
	}
	rc.entries[e.id] = e
	rc.mu.Unlock()
}

// take removes and returns the entry, cancelling its timers.
func (rc *reconnects) take(code, name string) *graceEntry {
	id := directory.NewIdentity(code, name)
	rc.mu.Lock()
	defer rc.mu.Unlock()
	e := rc.entries[id]
	if e == nil {
		return nil
	}
	e.stop()
	delete(rc.entries, id)
	return e
}

// remove deletes e only if it is still the current entry of its seat.
func (rc *reconnects) remove(e *graceEntry) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.entries[e.id] != e {
		return false
	}
	delete(rc.entries, e.id)
	return true
}

func (rc *reconnects) dropRoom(code string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for id, e := range rc.entries {
		if id.Room == code {
			e.stop()
			delete(rc.entries, id)
		}
	}
}

// pending counts the open grace entries of a room.
func (rc *reconnects) pending(code string) int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	n := 0
	for id := range rc.entries {
		if id.Room == code {
			n++
		}
	}
	return n
}

func (rc *reconnects) count() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.entries)
}

// onTimeout fills the seat of a player still missing from the current
// round and lets the round complete without them. Between rounds it does
// nothing; advancing fills the seat at the end of the next round.
func (rc *reconnects) onTimeout(e *graceEntry) {
	_ = rc.svc.store.Do(e.id.Room, func(r *room.Room) error {
		if !r.RoundOpen() || r.Epoch != e.epoch {
			return nil
		}
		p := r.PlayerByName(e.id.Name)
		if p == nil || p.Connected {
			return nil
		}

		content := DisconnectedGuess
		if r.RoundType == room.RoundDraw {
			content = ""
		}
		if r.SubmitPlaceholder(p.Name, content) {
			rc.logger.Info("placeholder submitted for disconnected player",
				zap.String("room", r.Code),
				zap.String("player", p.Name),
				zap.Int("round", r.CurrentRound))
			rc.svc.submissionUpdate(r)
		}
		if r.AllSubmitted() {
			rc.svc.sched.completed(r)
		}
		return nil
	})
}

// onWindowClosed gives the seat up for good. The room is deleted once
// nobody is connected and no other seat is still waiting for its player.
func (rc *reconnects) onWindowClosed(e *graceEntry) {
	if !rc.remove(e) {
		return
	}
	rc.logger.Info("reconnect window expired",
		zap.String("room", e.id.Room),
		zap.String("player", e.id.Name),
		zap.Duration("away", rc.svc.clock.Now().Sub(e.disconnectedAt)))
	rc.svc.store.DeleteIfAbandoned(e.id.Room, func() bool {
		return rc.pending(e.id.Room) > 0
	})
}

// Disconnect handles a closed connection. A close of a connection that was
// already replaced by a rejoin is ignored.
func (s *Service) Disconnect(conn string) {
	b, ok := s.dir.Unbind(conn)
	if !ok {
		return
	}
	_ = s.store.Do(b.Room, func(r *room.Room) error {
		s.leaveLocked(r, conn)
		return nil
	})
}

// leaveLocked removes conn from r. The caller holds the room and has
// already unbound conn.
func (s *Service) leaveLocked(r *room.Room, conn string) {
	res, ok := r.Remove(conn)
	if !ok {
		return
	}
	s.logger.Info("player left",
		zap.String("room", r.Code),
		zap.String("player", res.Player.Name),
		zap.String("conn", conn),
		zap.String("status", string(r.Status)))

	if !res.Spliced {
		s.reconnects.hold(r, res.Player.Name)
	}
	if r.Status == room.StatusResults {
		s.ballots.withdraw(r, res.Player.Key())
	}
	s.broadcast(r, EventPlayerLeft, r.Snapshot())
}

// Rejoin rebinds a seat to conn. Within the reconnect window a dropped
// player gets its seat back; a connected player is moved to the new
// connection.
func (s *Service) Rejoin(conn, code, name string) (RejoinResult, error) {
	code, err := room.NormalizeCode(code)
	if err != nil {
		return RejoinResult{}, err
	}
	name, err = room.ValidateName(name)
	if err != nil {
		return RejoinResult{}, err
	}
	if !s.store.Exists(code) {
		return RejoinResult{}, apperrors.New(apperrors.ErrRoomNotFound)
	}
	if b, ok := s.dir.Lookup(conn); ok && (b.Room != code || room.NameKey(b.Name) != room.NameKey(name)) {
		s.Disconnect(conn)
	}

	var out RejoinResult
	err = s.store.Do(code, func(r *room.Room) error {
		p := r.PlayerByName(name)
		if p == nil {
			return apperrors.New(apperrors.ErrPlayerNotFound)
		}
		if !p.Connected && s.reconnects.take(code, name) == nil {
			return apperrors.New(apperrors.ErrReconnectWindowExpired)
		}

		if _, err := r.Reconnect(name, conn); err != nil {
			return err
		}
		s.dir.Bind(code, p.Name, conn)

		out = RejoinResult{
			Room:           r.Snapshot(),
			GameInProgress: r.Status == room.StatusPlaying,
			HasSubmitted:   r.HasSubmitted(p.Name),
		}
		if out.GameInProgress {
			task := r.TaskAt(r.IndexOfName(p.Name))
			remaining := r.RemainingTime(s.clock.Now()).Milliseconds()
			out.Task = &task
			out.RemainingTime = &remaining
		}

		s.logger.Info("player rejoined",
			zap.String("room", code),
			zap.String("player", p.Name),
			zap.String("conn", conn))
		s.broadcast(r, EventPlayerRejoined, out.Room)
		return nil
	})
	return out, err
}
