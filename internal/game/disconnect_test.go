package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
	"github.com/ThakurMayank5/Telestrations-Server/internal/room"
)

func TestLobbyDisconnectRemovesPlayer(t *testing.T) {
	f := newFixture(t)
	code := f.lobby(t, "A", "B", "C")

	f.svc.Disconnect(conn("B"))
	snap, err := f.store.Snapshot(code)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 2)
	assert.Zero(t, f.svc.reconnects.count())
	assert.Len(t, f.rec.to(conn("A"), EventPlayerLeft), 1)

	_, err = f.svc.Rejoin(conn("B"), code, "B")
	assert.True(t, apperrors.Is(err, apperrors.ErrPlayerNotFound))
}

func TestHostLeavingLobbyHandsOver(t *testing.T) {
	f := newFixture(t)
	code := f.lobby(t, "A", "B")

	f.svc.Disconnect(conn("A"))
	snap, err := f.store.Snapshot(code)
	require.NoError(t, err)
	assert.Equal(t, conn("B"), snap.Host)

	f.svc.Disconnect(conn("B"))
	assert.False(t, f.store.Exists(code))
	assert.Zero(t, f.dir.Len())
}

func TestDisconnectTimeoutCompletesRound(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	require.NoError(t, f.svc.Submit(conn("A"), "a"))
	require.NoError(t, f.svc.Submit(conn("B"), "b"))

	f.svc.Disconnect(conn("C"))
	left := f.rec.to(conn("A"), EventPlayerLeft)
	require.Len(t, left, 1)
	assert.False(t, left[0].(room.Snapshot).Players[2].Connected)

	f.clk.Advance(14 * time.Second)
	f.inspect(t, code, func(r *room.Room) { assert.Equal(t, 0, r.CurrentRound) })

	f.clk.Advance(time.Second)
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 1, r.CurrentRound, "advanced without waiting for the deadline")
		require.Len(t, r.Chains["c"], 2)
		assert.Equal(t, room.ItemDrawing, r.Chains["c"][1].Type)
		assert.Equal(t, "", r.Chains["c"][1].Content)
	})
	assert.NotEmpty(t, f.rec.to(conn("A"), EventSubmissionUpdate))
}

func TestSubmissionUpdateCountsConnectedPlayers(t *testing.T) {
	f := newFixture(t)
	f.game(t, "A", "B", "C", "D")
	f.svc.Disconnect(conn("D"))

	f.clk.Advance(15 * time.Second)
	require.NoError(t, f.svc.Submit(conn("A"), "a"))
	require.NoError(t, f.svc.Submit(conn("B"), "b"))

	updates := f.rec.to(conn("A"), EventSubmissionUpdate)
	require.Len(t, updates, 3)
	assert.Equal(t, SubmissionUpdate{Submitted: 0, Total: 3}, updates[0], "D's placeholder is not counted")
	assert.Equal(t, SubmissionUpdate{Submitted: 1, Total: 3}, updates[1])
	assert.Equal(t, SubmissionUpdate{Submitted: 2, Total: 3}, updates[2])
}

func TestDisconnectTimeoutInGuessRound(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	f.playRound(t, "A", "B", "C")
	require.NoError(t, f.svc.Submit(conn("A"), "a"))
	require.NoError(t, f.svc.Submit(conn("B"), "b"))

	f.svc.Disconnect(conn("C"))
	f.clk.Advance(15 * time.Second)
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 2, r.CurrentRound)
		// C acts on B's chain in round two.
		require.Len(t, r.Chains["b"], 3)
		assert.Equal(t, DisconnectedGuess, r.Chains["b"][2].Content)
	})
}

func TestDisconnectTimeoutSkipsPlayersWhoSubmitted(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	require.NoError(t, f.svc.Submit(conn("C"), "mine"))
	f.svc.Disconnect(conn("C"))

	f.clk.Advance(15 * time.Second)
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 0, r.CurrentRound)
		require.Len(t, r.Chains["c"], 2)
		assert.Equal(t, "mine", r.Chains["c"][1].Content)
	})
}

func TestRejoinWithinWindow(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")

	f.clk.Advance(10 * time.Second)
	f.svc.Disconnect(conn("C"))

	res, err := f.svc.Rejoin("conn-C2", code, "c")
	require.NoError(t, err)
	assert.True(t, res.GameInProgress)
	assert.False(t, res.HasSubmitted)
	require.NotNil(t, res.Task)
	assert.Equal(t, "C", res.Task.ChainOwner)
	require.NotNil(t, res.RemainingTime)
	assert.Equal(t, int64(50000), *res.RemainingTime)
	assert.Equal(t, "conn-C2", res.Room.Players[2].ID)
	assert.True(t, res.Room.Players[2].Connected)
	assert.Zero(t, f.svc.reconnects.count())

	assert.Len(t, f.rec.to(conn("A"), EventPlayerRejoined), 1)

	// The timeout was cancelled: C is not filled.
	f.clk.Advance(15 * time.Second)
	f.inspect(t, code, func(r *room.Room) { assert.Len(t, r.Chains["c"], 1) })

	require.NoError(t, f.svc.Submit("conn-C2", "back"))
	f.inspect(t, code, func(r *room.Room) { assert.True(t, r.HasSubmitted("C")) })
}

func TestRejoinRemainingTimeNeverNegative(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	f.clk.Advance(30 * time.Second)
	f.svc.Disconnect(conn("C"))

	// Past the round duration but inside the grace second.
	f.clk.Advance(30*time.Second + 500*time.Millisecond)
	res, err := f.svc.Rejoin("conn-C2", code, "C")
	require.NoError(t, err)
	require.NotNil(t, res.RemainingTime)
	assert.Zero(t, *res.RemainingTime)
	assert.True(t, res.HasSubmitted, "the disconnect timeout already filled the seat")
}

func TestRejoinAfterWindowExpired(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	f.svc.Disconnect(conn("C"))

	f.clk.Advance(60 * time.Second)
	assert.True(t, f.store.Exists(code), "A and B are still connected")

	_, err := f.svc.Rejoin("conn-C2", code, "C")
	assert.True(t, apperrors.Is(err, apperrors.ErrReconnectWindowExpired))

	_, err = f.svc.Rejoin("conn-X", code, "Xavier")
	assert.True(t, apperrors.Is(err, apperrors.ErrPlayerNotFound))

	_, err = f.svc.Rejoin("conn-X", "QQQQ", "Xavier")
	if code != "QQQQ" {
		assert.True(t, apperrors.Is(err, apperrors.ErrRoomNotFound))
	}
}

func TestAbandonedRoomDeletedWhenWindowCloses(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	for _, n := range []string{"A", "B", "C"} {
		f.svc.Disconnect(conn(n))
	}

	f.clk.Advance(59 * time.Second)
	assert.True(t, f.store.Exists(code))
	assert.Equal(t, 3, f.svc.reconnects.count())

	f.clk.Advance(time.Second)
	assert.False(t, f.store.Exists(code))
	assert.Zero(t, f.svc.reconnects.count())
	assert.Zero(t, f.clk.Pending())
}

func TestRoomOutlivesEarlierReconnectWindows(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")

	f.svc.Disconnect(conn("A"))
	f.clk.Advance(10 * time.Second)
	f.svc.Disconnect(conn("B"))
	f.clk.Advance(10 * time.Second)
	f.svc.Disconnect(conn("C"))

	// A's window closes at 60s while B's and C's are still open.
	f.clk.Advance(41 * time.Second)
	require.True(t, f.store.Exists(code))
	assert.Equal(t, 2, f.svc.reconnects.count())

	f.clk.Advance(9 * time.Second)
	require.True(t, f.store.Exists(code), "C can still come back")
	assert.Equal(t, 1, f.svc.reconnects.count())

	f.clk.Advance(10 * time.Second)
	assert.False(t, f.store.Exists(code))
	assert.Zero(t, f.svc.reconnects.count())
}

func TestRejoinAfterAnotherWindowClosed(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")

	f.svc.Disconnect(conn("A"))
	f.clk.Advance(10 * time.Second)
	f.svc.Disconnect(conn("B"))
	f.clk.Advance(10 * time.Second)
	f.svc.Disconnect(conn("C"))
	f.clk.Advance(41 * time.Second)

	res, err := f.svc.Rejoin("conn-C2", code, "C")
	require.NoError(t, err)
	assert.True(t, res.GameInProgress)
	assert.True(t, res.Room.Players[2].Connected)

	// B's window runs out with C connected: the room stays.
	f.clk.Advance(10 * time.Second)
	assert.True(t, f.store.Exists(code))
	assert.Zero(t, f.svc.reconnects.count())
}

func TestDisconnectTimeoutWaitsForNextRoundStart(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	f.svc.Disconnect(conn("C"))

	// A and B finish round one just before C's timeout; advancing fills C.
	f.clk.Advance(14 * time.Second)
	require.NoError(t, f.svc.Submit(conn("A"), "a"))
	require.NoError(t, f.svc.Submit(conn("B"), "b"))

	// The timeout fires while round two is not yet handed out.
	f.clk.Advance(time.Second + 500*time.Millisecond)
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 1, r.CurrentRound)
		assert.False(t, r.RoundOpen())
		assert.False(t, r.HasSubmitted("C"), "nothing submitted into a round that has not started")
	})

	f.clk.Advance(500 * time.Millisecond)
	require.NoError(t, f.svc.Submit(conn("A"), "a2"))
	require.NoError(t, f.svc.Submit(conn("B"), "b2"))
	f.inspect(t, code, func(r *room.Room) {
		assert.Equal(t, 2, r.CurrentRound)
		for _, key := range []string{"a", "b", "c"} {
			assert.Len(t, r.Chains[key], 3)
		}
	})
}

func TestRejoinMovesConnectedSeat(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")

	_, err := f.svc.Rejoin("conn-B2", code, "B")
	require.NoError(t, err)

	// The late close of the replaced socket changes nothing.
	f.svc.Disconnect(conn("B"))
	snap, err := f.store.Snapshot(code)
	require.NoError(t, err)
	assert.True(t, snap.Players[1].Connected)
	assert.Equal(t, "conn-B2", snap.Players[1].ID)
	assert.Zero(t, f.svc.reconnects.count())

	err = f.svc.Submit(conn("B"), "stale")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotInRoom))

	// Pushes follow the seat to its new connection.
	f.rec.reset()
	require.NoError(t, f.svc.Submit(conn("A"), "a"))
	assert.Empty(t, f.rec.to(conn("B"), EventSubmissionUpdate))
	assert.Len(t, f.rec.to("conn-B2", EventSubmissionUpdate), 1)
}

func TestRotatedHostStaysAfterRejoin(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")

	f.svc.Disconnect(conn("A"))
	snap, _ := f.store.Snapshot(code)
	assert.Equal(t, conn("B"), snap.Host)

	res, err := f.svc.Rejoin("conn-A2", code, "A")
	require.NoError(t, err)
	assert.Equal(t, conn("B"), res.Room.Host)
	assert.True(t, res.Room.Players[0].Connected)
}

func TestResultsDisconnectKeepsSeat(t *testing.T) {
	f := newFixture(t)
	code := f.game(t, "A", "B", "C")
	for i := 0; i < 3; i++ {
		f.playRound(t, "A", "B", "C")
	}

	f.svc.Disconnect(conn("B"))
	assert.Equal(t, 1, f.svc.reconnects.count())
	assert.Equal(t, 1, f.clk.Pending(), "only the reconnect window, no disconnect timeout")

	res, err := f.svc.Rejoin("conn-B2", code, "B")
	require.NoError(t, err)
	assert.False(t, res.GameInProgress)
	assert.Nil(t, res.Task)
	assert.Nil(t, res.RemainingTime)
	assert.Equal(t, room.StatusResults, res.Room.Status)
}
