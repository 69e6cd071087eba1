package game

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ThakurMayank5/Telestrations-Server/internal/clock"
	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
	"github.com/ThakurMayank5/Telestrations-Server/internal/room"
)

// ballot collects play-again votes keyed by player identity.
type ballot struct {
	seq   uint64
	epoch int
	votes map[string]bool
	timer clock.Timer
}

func (b *ballot) yes() map[string]bool {
	out := make(map[string]bool, len(b.votes))
	for key, v := range b.votes {
		if v {
			out[key] = true
		}
	}
	return out
}

type ballots struct {
	svc    *Service
	mu     sync.Mutex
	seq    uint64
	open   map[string]*ballot
	logger *zap.Logger
}

func newBallots(svc *Service, logger *zap.Logger) *ballots {
	return &ballots{
		svc:    svc,
		open:   make(map[string]*ballot),
		logger: logger,
	}
}

func (bs *ballots) get(code string) *ballot {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.open[code]
}

// take closes the room's ballot and returns it.
func (bs *ballots) take(code string) *ballot {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	b := bs.open[code]
	if b == nil {
		return nil
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	delete(bs.open, code)
	return b
}

// Cancel drops the room's ballot without resolving it.
func (bs *ballots) Cancel(code string) {
	bs.take(code)
}

// offer opens a fresh ballot for r, replacing any open one. The caller holds
// the room.
func (bs *ballots) offer(r *room.Room) {
	st := bs.svc.Settings()
	code := r.Code

	bs.mu.Lock()
	defer bs.mu.Unlock()
	if old := bs.open[code]; old != nil && old.timer != nil {
		old.timer.Stop()
	}
	bs.seq++
	seq := bs.seq
	bs.open[code] = &ballot{
		seq:   seq,
		epoch: r.Epoch,
		votes: map[string]bool{},
		timer: bs.svc.clock.AfterFunc(st.VoteTimeout, func() { bs.onTimeout(code, seq) }),
	}
}

func (bs *ballots) onTimeout(code string, seq uint64) {
	_ = bs.svc.store.Do(code, func(r *room.Room) error {
		b := bs.get(code)
		if b == nil || b.seq != seq || r.Status != room.StatusResults {
			return nil
		}
		bs.logger.Info("play-again vote timed out",
			zap.String("room", code),
			zap.Int("votes", len(b.votes)))
		bs.resolve(r)
		return nil
	})
}

// vote records key's answer and reports whether everyone connected has
// answered.
func (bs *ballots) vote(r *room.Room, key string, yes bool) (PlayAgainUpdate, bool, error) {
	bs.mu.Lock()
	b := bs.open[r.Code]
	if b == nil || b.epoch != r.Epoch {
		bs.mu.Unlock()
		return PlayAgainUpdate{}, false, apperrors.New(apperrors.ErrNoBallot)
	}
	b.votes[key] = yes
	upd := PlayAgainUpdate{YesCount: len(b.yes()), Responses: len(b.votes), Total: r.ConnectedCount()}
	bs.mu.Unlock()

	return upd, upd.Responses >= upd.Total, nil
}

// withdraw forgets the vote of a player that left and resolves the ballot
// when the remaining players have all answered.
func (bs *ballots) withdraw(r *room.Room, key string) {
	bs.mu.Lock()
	b := bs.open[r.Code]
	if b == nil {
		bs.mu.Unlock()
		return
	}
	delete(b.votes, key)
	responses := len(b.votes)
	bs.mu.Unlock()

	if connected := r.ConnectedCount(); connected > 0 && responses >= connected {
		bs.resolve(r)
	}
}

// resolve closes the ballot. With enough yes votes the room keeps exactly
// the players that said yes and a new game starts right away; otherwise
// nothing changes and the host may offer again.
func (bs *ballots) resolve(r *room.Room) {
	b := bs.take(r.Code)
	if b == nil {
		return
	}
	s := bs.svc
	required := s.Settings().Quorum
	yes := b.yes()

	if len(yes) < required {
		bs.logger.Info("play-again failed",
			zap.String("room", r.Code),
			zap.Int("yes", len(yes)),
			zap.Int("required", required))
		s.broadcast(r, EventPlayAgainFailed, PlayAgainFailed{YesCount: len(yes), Required: required})
		return
	}

	// Everyone connected hears the outcome, including players left out.
	audience := make(map[string]string)
	for _, p := range r.Players {
		if conn, ok := s.dir.ConnFor(r.Code, p.Name); ok && p.Connected {
			audience[p.Key()] = conn
		}
	}

	for _, p := range r.Retain(yes) {
		s.forget(r.Code, p.Name)
	}
	for _, p := range r.ResetToLobby() {
		s.forget(r.Code, p.Name)
	}
	if err := s.store.Start(r); err != nil {
		bs.logger.Warn("play-again restart failed", zap.String("room", r.Code), zap.Error(err))
		s.broadcast(r, EventReturnedToLobby, r.Snapshot())
		return
	}

	names := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		names = append(names, p.Name)
	}
	success := PlayAgainSuccess{Players: names, Room: r.Snapshot()}
	for _, conn := range audience {
		s.notify.Send(conn, EventPlayAgainSuccess, success)
	}
	bs.logger.Info("play-again succeeded",
		zap.String("room", r.Code),
		zap.Strings("players", names))

	s.sched.startRound(r)
}

// OfferPlayAgain opens a timed play-again ballot. Host only, from results.
func (s *Service) OfferPlayAgain(conn string) error {
	b, ok := s.dir.Lookup(conn)
	if !ok {
		return apperrors.New(apperrors.ErrNotInRoom)
	}
	return s.store.Do(b.Room, func(r *room.Room) error {
		if !r.IsHost(conn) {
			return apperrors.New(apperrors.ErrNotHost)
		}
		if r.Status != room.StatusResults {
			return apperrors.New(apperrors.ErrNotInResults)
		}
		s.ballots.offer(r)

		host := ""
		if h := r.Host(); h != nil {
			host = h.Name
		}
		s.broadcast(r, EventPlayAgainPrompt, PlayAgainPrompt{
			Timeout: s.Settings().VoteTimeout.Milliseconds(),
			Host:    host,
		})
		s.logger.Info("play-again offered", zap.String("room", r.Code))
		return nil
	})
}

// RespondPlayAgain records the vote of conn's player. The ballot resolves as
// soon as every connected player has answered.
func (s *Service) RespondPlayAgain(conn string, yes bool) error {
	b, ok := s.dir.Lookup(conn)
	if !ok {
		return apperrors.New(apperrors.ErrNotInRoom)
	}
	return s.store.Do(b.Room, func(r *room.Room) error {
		if r.Status != room.StatusResults {
			return apperrors.New(apperrors.ErrNotInResults)
		}
		p := r.PlayerByConn(conn)
		if p == nil {
			return apperrors.New(apperrors.ErrPlayerNotFound)
		}
		upd, everyone, err := s.ballots.vote(r, p.Key(), yes)
		if err != nil {
			return err
		}
		s.broadcast(r, EventPlayAgainUpdate, upd)
		if everyone {
			s.ballots.resolve(r)
		}
		return nil
	})
}
