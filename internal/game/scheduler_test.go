package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
	"github.com/ThakurMayank5/Telestrations-Server/internal/room"
)

func TestRoundStartIsPersonal(t *testing.T) {
	f := newFixture(t)
	f.game(t, "A", "B", "C")

	for i, n := range []string{"A", "B", "C"} {
		starts := f.rec.to(conn(n), EventRoundStart)
		require.Len(t, starts, 1)
		rs := starts[0].(RoundStart)
		assert.Equal(t, room.RoundDraw, rs.RoundType)
		assert.Equal(t, 1, rs.RoundNumber)
		assert.Equal(t, 3, rs.TotalRounds)
		assert.Equal(t, n, rs.ChainOwner, "the first round draws the own word")
		assert.Equal(t, fixedWords{}.Draw(3)[i], rs.Prompt.Content)
		assert.Equal(t, int64(60000), rs.Duration)
		assert.Equal(t, room.StatusPlaying, rs.Room.Status)
	}
	assert.Equal(t, 1, f.clk.Pending(), "one deadline per room")
}

func TestAllSubmittedAdvancesAfterSettle(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")

	for _, n := range []string{"A", "B", "C"} {
		require.NoError(t, f.svc.Submit(conn(n), "drawing of "+n))
	}
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 1, r.CurrentRound)
		assert.Equal(t, room.RoundGuess, r.RoundType)
		assert.True(t, r.RoundStartTime.IsZero(), "next round waits for the settle delay")
	})
	assert.Equal(t, 1, f.clk.Pending(), "deadline replaced by the settle timer")

	f.clk.Advance(time.Second)
	assert.Len(t, f.rec.to(conn("A"), EventRoundStart), 1)

	f.clk.Advance(time.Second)
	starts := f.rec.to(conn("A"), EventRoundStart)
	require.Len(t, starts, 2)
	rs := starts[1].(RoundStart)
	assert.Equal(t, room.RoundGuess, rs.RoundType)
	assert.Equal(t, "C", rs.ChainOwner)
	assert.Equal(t, "drawing of C", rs.Prompt.Content)
	assert.Equal(t, int64(45000), rs.Duration)
}

func TestSubmitBetweenRoundsIsRejected(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	f.svc.Disconnect(conn("B"))
	f.svc.Disconnect(conn("C"))

	require.NoError(t, f.svc.Submit(conn("A"), "a"))
	f.inspect(t, code, func(r *room.Room) { assert.Equal(t, 1, r.CurrentRound) })

	// A retried submit lands in the settle delay.
	err := f.svc.Submit(conn("A"), "a")
	assert.True(t, apperrors.Is(err, apperrors.ErrRoundNotStarted))
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 1, r.CurrentRound)
		assert.False(t, r.HasSubmitted("A"))
	})

	f.clk.Advance(f.svc.Settings().Settle)
	starts := f.rec.to(conn("A"), EventRoundStart)
	require.Len(t, starts, 2)
	assert.Equal(t, room.RoundGuess, starts[1].(RoundStart).RoundType)

	require.NoError(t, f.svc.Submit(conn("A"), "a guess"))
	f.inspect(t, code, func(r *room.Room) { assert.Equal(t, 2, r.CurrentRound) })
}

func TestDeadlineTrustsConnectedPlayers(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	require.NoError(t, f.svc.Submit(conn("A"), "a"))
	require.NoError(t, f.svc.Submit(conn("B"), "b"))

	f.clk.Advance(60 * time.Second)
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 0, r.CurrentRound, "grace second not over yet")
	})

	f.clk.Advance(time.Second)
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 1, r.CurrentRound)
		assert.Len(t, r.Chains["c"], 1, "connected non-submitter is not filled")
		assert.Len(t, r.Chains["a"], 2)
	})
}

func TestStrictDeadlineFillsEveryone(t *testing.T) {
	f := newFixture(t)
	st := f.svc.Settings()
	st.StrictDeadline = true
	f.svc.SetSettings(st)

	code := f.game(t, "A", "B", "C")
	f.playRound(t, "A", "B", "C")
	require.NoError(t, f.svc.Submit(conn("A"), "a guess"))

	f.clk.Advance(46 * time.Second)
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 2, r.CurrentRound)
		for _, key := range []string{"a", "b", "c"} {
			assert.Len(t, r.Chains[key], 3)
		}
		// B acted on A's chain in the guess round.
		assert.Equal(t, NoGuess, r.Chains["a"][2].Content)
	})
}

func TestDeadlineFillsDisconnectedSeats(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	f.svc.Disconnect(conn("C"))

	// Nobody submits; the disconnect timeout fills C but A and B are still due.
	f.clk.Advance(61 * time.Second)
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 1, r.CurrentRound)
		require.Len(t, r.Chains["c"], 2)
		assert.Equal(t, "", r.Chains["c"][1].Content)
		assert.Equal(t, "c", r.Chains["c"][1].Author)
	})
}

func TestStaleTimersAreIgnored(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")

	var old roundToken
	f.inspect(t, code, func(r *room.Room) { old = tokenOf(r) })
	f.playRound(t, "A", "B", "C")

	f.svc.sched.onDeadline(old)
	f.svc.sched.onSettled(old)
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 1, r.CurrentRound)
		assert.Len(t, r.Chains["a"], 2)
	})

	// A token from an earlier game is stale even when the round matches.
	require.NoError(t, f.svc.ReturnToLobby(conn("A")))
	require.NoError(t, f.svc.StartGame(conn("A")))
	f.svc.sched.onDeadline(roundToken{code: code, epoch: old.epoch, round: 0})
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 0, r.CurrentRound)
		assert.Equal(t, old.epoch+1, r.Epoch)
	})
}

func TestDeadlineOnRemovedRoomIsNoop(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	var tok roundToken
	f.inspect(t, code, func(r *room.Room) { tok = tokenOf(r) })

	for _, n := range []string{"A", "B", "C"} {
		f.svc.Disconnect(conn(n))
	}
	f.clk.Advance(60 * time.Second)
	require.False(t, f.store.Exists(code))
	assert.Zero(t, f.clk.Pending())

	assert.NotPanics(t, func() { f.svc.sched.onDeadline(tok) })
}
