package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
	"github.com/ThakurMayank5/Telestrations-Server/internal/room"
)

var four = []string{"A", "B", "C", "D"}

// finished plays a whole game so the room sits on the results screen.
func (f *fixture) finished(t *testing.T, names ...string) string {
	t.Helper()
	code := f.game(t, names...)
	for range names {
		f.playRound(t, names...)
	}
	snap, err := f.store.Snapshot(code)
	require.NoError(t, err)
	require.Equal(t, room.StatusResults, snap.Status)
	return code
}

func TestOfferPlayAgainRequiresResultsAndHost(t *testing.T) {
	f := newFixture(t)
	f.game(t, "A", "B", "C")

	err := f.svc.OfferPlayAgain(conn("A"))
	assert.True(t, apperrors.Is(err, apperrors.ErrNotInResults))

	for i := 0; i < 3; i++ {
		f.playRound(t, "A", "B", "C")
	}
	err = f.svc.OfferPlayAgain(conn("B"))
	assert.True(t, apperrors.Is(err, apperrors.ErrNotHost))

	err = f.svc.RespondPlayAgain(conn("B"), true)
	assert.True(t, apperrors.Is(err, apperrors.ErrNoBallot))

	err = f.svc.OfferPlayAgain("stranger")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotInRoom))
}

func TestPlayAgainFailsBelowQuorum(t *testing.T) {
	f := newFixture(t)
	code := f.finished(t, four...)

	require.NoError(t, f.svc.OfferPlayAgain(conn("A")))
	prompt := f.rec.to(conn("D"), EventPlayAgainPrompt)
	require.Len(t, prompt, 1)
	assert.Equal(t, PlayAgainPrompt{Timeout: 30000, Host: "A"}, prompt[0])

	require.NoError(t, f.svc.RespondPlayAgain(conn("A"), true))
	require.NoError(t, f.svc.RespondPlayAgain(conn("B"), true))
	updates := f.rec.to(conn("C"), EventPlayAgainUpdate)
	require.Len(t, updates, 2)
	assert.Equal(t, PlayAgainUpdate{YesCount: 2, Responses: 2, Total: 4}, updates[1])

	f.clk.Advance(29 * time.Second)
	assert.Zero(t, f.rec.count(EventPlayAgainFailed))

	f.clk.Advance(time.Second)
	for _, n := range four {
		failed := f.rec.to(conn(n), EventPlayAgainFailed)
		require.Len(t, failed, 1)
		assert.Equal(t, PlayAgainFailed{YesCount: 2, Required: 3}, failed[0])
	}

	snap, err := f.store.Snapshot(code)
	require.NoError(t, err)
	assert.Equal(t, room.StatusResults, snap.Status)
	assert.Len(t, snap.Players, 4)

	err = f.svc.RespondPlayAgain(conn("C"), true)
	assert.True(t, apperrors.Is(err, apperrors.ErrNoBallot))
	require.NoError(t, f.svc.OfferPlayAgain(conn("A")), "host may offer again")
}

func TestPlayAgainPrunesToYesVoters(t *testing.T) {
	f := newFixture(t)
	code := f.finished(t, four...)
	f.rec.reset()

	require.NoError(t, f.svc.OfferPlayAgain(conn("A")))
	require.NoError(t, f.svc.RespondPlayAgain(conn("D"), true))
	require.NoError(t, f.svc.RespondPlayAgain(conn("B"), false))
	require.NoError(t, f.svc.RespondPlayAgain(conn("A"), true))
	// A changes nothing by voting twice.
	require.NoError(t, f.svc.RespondPlayAgain(conn("A"), true))
	require.NoError(t, f.svc.RespondPlayAgain(conn("C"), true))

	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, room.StatusPlaying, r.Status)
		assert.Equal(t, 2, r.Epoch)
		assert.Equal(t, 3, r.TotalRounds)
		names := make([]string, 0, len(r.Players))
		for _, p := range r.Players {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"A", "C", "D"}, names)
	})

	for _, n := range four {
		require.Len(t, f.rec.to(conn(n), EventPlayAgainSuccess), 1, n)
	}
	success := f.rec.to(conn("B"), EventPlayAgainSuccess)[0].(PlayAgainSuccess)
	assert.Equal(t, []string{"A", "C", "D"}, success.Players)

	assert.Empty(t, f.rec.to(conn("B"), EventRoundStart))
	for _, n := range []string{"A", "C", "D"} {
		assert.Len(t, f.rec.to(conn(n), EventRoundStart), 1)
	}
	_, ok := f.dir.Lookup(conn("B"))
	assert.False(t, ok, "B no longer belongs to the room")
	assert.Equal(t, 1, f.clk.Pending(), "vote timer cancelled, only the round deadline left")
}

func TestPlayAgainWithdrawOnDisconnect(t *testing.T) {
	f := newFixture(t)
	code := f.finished(t, four...)

	require.NoError(t, f.svc.OfferPlayAgain(conn("A")))
	require.NoError(t, f.svc.RespondPlayAgain(conn("D"), true))
	require.NoError(t, f.svc.RespondPlayAgain(conn("A"), true))
	require.NoError(t, f.svc.RespondPlayAgain(conn("B"), true))

	// D leaves: its vote goes and the three remaining voters decide.
	f.svc.Disconnect(conn("D"))
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, room.StatusResults, r.Status, "C has not answered")
	})

	require.NoError(t, f.svc.RespondPlayAgain(conn("C"), true))
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, room.StatusPlaying, r.Status)
		require.Len(t, r.Players, 3)
		assert.Equal(t, "C", r.Players[2].Name)
	})
	assert.Zero(t, f.svc.reconnects.count(), "D's seat is gone with the new game")
}

func TestPlayAgainResolvesWhenLastPendingVoterLeaves(t *testing.T) {
	f := newFixture(t)
	code := f.finished(t, four...)

	require.NoError(t, f.svc.OfferPlayAgain(conn("A")))
	for _, n := range []string{"A", "B", "C"} {
		require.NoError(t, f.svc.RespondPlayAgain(conn(n), true))
	}
	f.svc.Disconnect(conn("D"))

	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, room.StatusPlaying, r.Status)
		assert.Len(t, r.Players, 3)
	})
}

func TestPlayAgainCancelledByReturnToLobby(t *testing.T) {
	f := newFixture(t)
	f.finished(t, "A", "B", "C")

	require.NoError(t, f.svc.OfferPlayAgain(conn("A")))
	require.NoError(t, f.svc.ReturnToLobby(conn("A")))
	assert.Zero(t, f.clk.Pending())

	err := f.svc.RespondPlayAgain(conn("B"), true)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotInResults))
}
