package game

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ThakurMayank5/Telestrations-Server/internal/clock"
	"github.com/ThakurMayank5/Telestrations-Server/internal/room"
)

const (
	// NoGuess fills a guess nobody made before the deadline.
	NoGuess = "(no guess)"
	// DisconnectedGuess fills the guess of a player that dropped mid-round.
	DisconnectedGuess = "(disconnected)"
)

// roundToken identifies the round a timer was armed for. A callback whose
// token no longer matches the room does nothing.
type roundToken struct {
	code  string
	epoch int
	round int
}

func tokenOf(r *room.Room) roundToken {
	return roundToken{code: r.Code, epoch: r.Epoch, round: r.CurrentRound}
}

func (t roundToken) matches(r *room.Room) bool {
	return r.Status == room.StatusPlaying && r.Epoch == t.epoch && r.CurrentRound == t.round
}

// scheduler owns the single round timer of every playing room: the deadline
// while a round runs and the settle delay between rounds.
type scheduler struct {
	svc    *Service
	mu     sync.Mutex
	timers map[string]clock.Timer
	logger *zap.Logger
}

func newScheduler(svc *Service, logger *zap.Logger) *scheduler {
	return &scheduler{
		svc:    svc,
		timers: make(map[string]clock.Timer),
		logger: logger,
	}
}

func (sc *scheduler) arm(code string, d time.Duration, fn func()) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if t := sc.timers[code]; t != nil {
		t.Stop()
	}
	sc.timers[code] = sc.svc.clock.AfterFunc(d, fn)
}

// Stop cancels whatever is armed for the room.
func (sc *scheduler) Stop(code string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if t := sc.timers[code]; t != nil {
		t.Stop()
		delete(sc.timers, code)
	}
}

func (sc *scheduler) duration(rt room.RoundType) time.Duration {
	st := sc.svc.Settings()
	if rt == room.RoundDraw {
		return st.DrawTime
	}
	return st.GuessTime
}

// startRound anchors the round in time, hands every connected player its
// task and arms the deadline. The caller holds the room.
func (sc *scheduler) startRound(r *room.Room) {
	if r.Status != room.StatusPlaying {
		return
	}
	d := sc.duration(r.RoundType)
	r.SetRoundTimer(sc.svc.clock.Now(), d)

	snap := r.Snapshot()
	for i, p := range r.Players {
		if !p.Connected {
			continue
		}
		sc.svc.sendTo(r, p, EventRoundStart, RoundStart{
			Task:     r.TaskAt(i),
			Duration: d.Milliseconds(),
			Room:     snap,
		})
	}

	tok := tokenOf(r)
	sc.arm(r.Code, d+sc.svc.Settings().Grace, func() { sc.onDeadline(tok) })

	sc.logger.Debug("round started",
		zap.String("room", r.Code),
		zap.Int("round", r.CurrentRound),
		zap.String("type", string(r.RoundType)),
		zap.Duration("duration", d))
}

func (sc *scheduler) onDeadline(tok roundToken) {
	_ = sc.svc.store.Do(tok.code, func(r *room.Room) error {
		if !tok.matches(r) || r.RoundStartTime.IsZero() {
			return nil
		}
		sc.logger.Info("round deadline reached",
			zap.String("room", r.Code),
			zap.Int("round", r.CurrentRound),
			zap.Int("submitted", r.SubmittedCount()))
		sc.forceAdvance(r)
		return nil
	})
}

// forceAdvance fills the seats of disconnected players that never submitted
// and moves on. Connected players are expected to have submitted on their
// own near the deadline unless the strict deadline is enabled.
func (sc *scheduler) forceAdvance(r *room.Room) {
	content := NoGuess
	if r.RoundType == room.RoundDraw {
		content = ""
	}
	if sc.svc.Settings().StrictDeadline {
		for _, p := range r.Players {
			r.SubmitPlaceholder(p.Name, content)
		}
	}
	sc.advance(r)
}

// completed is called once every connected player has submitted.
func (sc *scheduler) completed(r *room.Room) {
	sc.Stop(r.Code)
	sc.advance(r)
}

// advance closes the current round. Seats of disconnected players are filled
// first so that every chain grows by exactly one item per round.
func (sc *scheduler) advance(r *room.Room) {
	if r.Status != room.StatusPlaying {
		return
	}
	if filled := r.FillDisconnected("", NoGuess); len(filled) > 0 {
		sc.logger.Debug("filled disconnected seats",
			zap.String("room", r.Code),
			zap.Strings("players", filled))
	}

	if over := r.NextRound(); over {
		sc.Stop(r.Code)
		sc.svc.broadcast(r, EventGameOver, GameOver{Message: "Game complete! View the results."})
		sc.logger.Info("game over", zap.String("room", r.Code), zap.Int("rounds", r.TotalRounds))
		return
	}

	tok := tokenOf(r)
	sc.arm(r.Code, sc.svc.Settings().Settle, func() { sc.onSettled(tok) })
}

func (sc *scheduler) onSettled(tok roundToken) {
	_ = sc.svc.store.Do(tok.code, func(r *room.Room) error {
		if !tok.matches(r) || !r.RoundStartTime.IsZero() {
			return nil
		}
		sc.startRound(r)
		return nil
	})
}
