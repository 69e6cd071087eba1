package room

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
)

// New creates a room in the lobby with the host as its only player.
func New(code, hostConn, hostName string, opts Options, limits Limits) *Room {
	name := strings.TrimSpace(opts.RoomName)
	if utf8.RuneCountInString(name) > MaxRoomNameLen {
		name = string([]rune(name)[:MaxRoomNameLen])
	}
	if name == "" {
		name = strings.TrimSpace(hostName) + "'s Room"
	}

	r := &Room{
		Code:        code,
		HostID:      hostConn,
		Status:      StatusLobby,
		IsPublic:    opts.IsPublic,
		Name:        name,
		Chains:      map[string][]ChainItem{},
		Submissions: map[string]bool{},
		limits:      limits.withDefaults(),
	}
	r.Players = append(r.Players, &Player{ID: hostConn, Name: strings.TrimSpace(hostName), Connected: true})
	return r
}

// ValidateName trims a display name and checks its length.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.New(apperrors.ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", apperrors.Newf(apperrors.ErrInvalidName, "name must be at most %d characters", MaxNameLength)
	}
	return name, nil
}

func (r *Room) MaxPlayers() int { return r.limits.MaxPlayers }
func (r *Room) MinPlayers() int { return r.limits.MinPlayers }

func (r *Room) IndexOfConn(conn string) int {
	for i, p := range r.Players {
		if p.ID == conn {
			return i
		}
	}
	return -1
}

func (r *Room) IndexOfName(name string) int {
	key := NameKey(name)
	for i, p := range r.Players {
		if p.Key() == key {
			return i
		}
	}
	return -1
}

func (r *Room) PlayerByConn(conn string) *Player {
	if i := r.IndexOfConn(conn); i >= 0 {
		return r.Players[i]
	}
	return nil
}

func (r *Room) PlayerByName(name string) *Player {
	if i := r.IndexOfName(name); i >= 0 {
		return r.Players[i]
	}
	return nil
}

func (r *Room) Host() *Player {
	return r.PlayerByConn(r.HostID)
}

func (r *Room) IsHost(conn string) bool {
	return conn != "" && r.HostID == conn
}

func (r *Room) ConnectedCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

// Connected returns the connected players in list order.
func (r *Room) Connected() []*Player {
	out := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Connected {
			out = append(out, p)
		}
	}
	return out
}

// Join appends a player to a lobby.
func (r *Room) Join(conn, name string) error {
	if r.Status != StatusLobby {
		return apperrors.New(apperrors.ErrGameInProgress)
	}
	if len(r.Players) >= r.limits.MaxPlayers {
		return apperrors.New(apperrors.ErrRoomFull)
	}
	if r.IndexOfName(name) >= 0 {
		return apperrors.New(apperrors.ErrNameTaken)
	}
	r.Players = append(r.Players, &Player{ID: conn, Name: strings.TrimSpace(name), Connected: true})
	return nil
}

// Remove takes the player bound to conn out of the room. In the lobby the
// seat is spliced out; once a game exists the seat stays, marked
// disconnected, because rotation depends on player count and order.
func (r *Room) Remove(conn string) (Removal, bool) {
	i := r.IndexOfConn(conn)
	if i < 0 || !r.Players[i].Connected {
		return Removal{}, false
	}

	res := Removal{Player: *r.Players[i], WasHost: r.HostID == conn}
	if r.Status == StatusLobby {
		r.Players = append(r.Players[:i], r.Players[i+1:]...)
		res.Spliced = true
	} else {
		r.Players[i].Connected = false
	}
	res.Player.Connected = false

	if res.WasHost {
		r.rotateHost()
	}
	res.NoneConnected = r.ConnectedCount() == 0
	return res, true
}

// rotateHost hands the host role to the first connected player. With nobody
// connected the pointer is left alone until someone reconnects.
func (r *Room) rotateHost() {
	for _, p := range r.Players {
		if p.Connected {
			r.HostID = p.ID
			return
		}
	}
}

// Reconnect rebinds the seat named name to conn.
func (r *Room) Reconnect(name, conn string) (*Player, error) {
	p := r.PlayerByName(name)
	if p == nil {
		return nil, apperrors.New(apperrors.ErrPlayerNotFound)
	}

	oldID := p.ID
	p.ID = conn
	p.Connected = true

	host := r.Host()
	if r.HostID == oldID || host == nil || !host.Connected {
		r.HostID = conn
	}
	return p, nil
}

// Start begins a game, seeding one chain per player with a prompt from draw.
func (r *Room) Start(draw func(n int) []string) error {
	if r.Status != StatusLobby {
		return apperrors.New(apperrors.ErrGameInProgress)
	}
	n := len(r.Players)
	if n < r.limits.MinPlayers {
		return apperrors.New(apperrors.ErrNotEnoughPlayers)
	}

	prompts := draw(n)
	if len(prompts) < n {
		return fmt.Errorf("word supply returned %d prompts for %d players", len(prompts), n)
	}

	r.Status = StatusPlaying
	r.CurrentRound = 0
	r.TotalRounds = n
	r.RoundType = RoundDraw
	r.Epoch++
	r.Chains = make(map[string][]ChainItem, n)
	for i, p := range r.Players {
		r.Chains[p.Key()] = []ChainItem{{Type: ItemWord, Content: prompts[i], Author: SystemAuthor}}
	}
	r.Submissions = map[string]bool{}
	r.RoundStartTime = time.Time{}
	r.RoundDuration = 0
	return nil
}

// OwnerIndex is the rotation: in round r the player at index i acts on the
// chain of the player at (i - r + N) mod N.
func OwnerIndex(i, round, n int) int {
	return ((i-round)%n + n) % n
}

func (r *Room) ownerOf(i int) *Player {
	return r.Players[OwnerIndex(i, r.CurrentRound, len(r.Players))]
}

// TaskAt computes the task of the player at index i.
func (r *Room) TaskAt(i int) Task {
	owner := r.ownerOf(i)
	chain := r.Chains[owner.Key()]

	var last ChainItem
	if len(chain) > 0 {
		last = chain[len(chain)-1]
	}
	return Task{
		RoundType:    r.RoundType,
		RoundNumber:  r.CurrentRound + 1,
		TotalRounds:  r.TotalRounds,
		ChainOwnerID: owner.ID,
		ChainOwner:   owner.Name,
		Prompt:       last,
	}
}

// TaskFor computes the task of the player bound to conn.
func (r *Room) TaskFor(conn string) (Task, error) {
	if r.Status != StatusPlaying {
		return Task{}, apperrors.New(apperrors.ErrGameNotInProgress)
	}
	i := r.IndexOfConn(conn)
	if i < 0 {
		return Task{}, apperrors.New(apperrors.ErrPlayerNotFound)
	}
	return r.TaskAt(i), nil
}

// Submit records conn's response for this round and reports whether every
// connected player has now submitted.
func (r *Room) Submit(conn, content string) (bool, error) {
	if r.Status != StatusPlaying {
		return false, apperrors.New(apperrors.ErrGameNotInProgress)
	}
	i := r.IndexOfConn(conn)
	if i < 0 {
		return false, apperrors.New(apperrors.ErrPlayerNotFound)
	}
	if r.Submissions[r.Players[i].Key()] {
		return false, apperrors.New(apperrors.ErrAlreadySubmitted)
	}
	r.submitAt(i, content)
	return r.AllSubmitted(), nil
}

// SubmitPlaceholder fills the seat named name on its behalf. It reports
// false when the player already submitted or no game is running.
func (r *Room) SubmitPlaceholder(name, content string) bool {
	if r.Status != StatusPlaying {
		return false
	}
	i := r.IndexOfName(name)
	if i < 0 || r.Submissions[r.Players[i].Key()] {
		return false
	}
	r.submitAt(i, content)
	return true
}

// FillDisconnected submits placeholders for every disconnected player that
// has not submitted this round and returns their names.
func (r *Room) FillDisconnected(drawContent, guessContent string) []string {
	if r.Status != StatusPlaying {
		return nil
	}
	content := guessContent
	if r.RoundType == RoundDraw {
		content = drawContent
	}

	var filled []string
	for i, p := range r.Players {
		if p.Connected || r.Submissions[p.Key()] {
			continue
		}
		r.submitAt(i, content)
		filled = append(filled, p.Name)
	}
	return filled
}

func (r *Room) submitAt(i int, content string) {
	p := r.Players[i]
	owner := r.ownerOf(i)

	itemType := ItemGuess
	if r.RoundType == RoundDraw {
		itemType = ItemDrawing
	}
	r.Chains[owner.Key()] = append(r.Chains[owner.Key()], ChainItem{
		Type:       itemType,
		Content:    content,
		Author:     p.Key(),
		AuthorName: p.Name,
	})
	r.Submissions[p.Key()] = true
}

func (r *Room) HasSubmitted(name string) bool {
	return r.Submissions[NameKey(name)]
}

// SubmittedCount counts connected players that have submitted this round.
// Placeholders for disconnected seats are left out so it never exceeds
// ConnectedCount.
func (r *Room) SubmittedCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Connected && r.Submissions[p.Key()] {
			n++
		}
	}
	return n
}

// AllSubmitted reports whether every connected player has submitted.
// Disconnected players do not block the round; a room with nobody connected
// is never complete and waits for its deadline.
func (r *Room) AllSubmitted() bool {
	connected := 0
	for _, p := range r.Players {
		if !p.Connected {
			continue
		}
		connected++
		if !r.Submissions[p.Key()] {
			return false
		}
	}
	return connected > 0
}

// NextRound advances the round counter and flips the round type. It reports
// true once every chain has travelled the whole table.
func (r *Room) NextRound() bool {
	r.CurrentRound++
	r.Submissions = map[string]bool{}
	r.RoundStartTime = time.Time{}
	if r.RoundType == RoundDraw {
		r.RoundType = RoundGuess
	} else {
		r.RoundType = RoundDraw
	}

	if r.CurrentRound >= r.TotalRounds {
		r.Status = StatusResults
		return true
	}
	return false
}

// RoundOpen reports whether the current round has been started and accepts
// submissions. Between rounds the counter has already moved on but nothing
// has been handed out yet.
func (r *Room) RoundOpen() bool {
	return r.Status == StatusPlaying && !r.RoundStartTime.IsZero()
}

// SetRoundTimer anchors the current round in wall time.
func (r *Room) SetRoundTimer(start time.Time, d time.Duration) {
	r.RoundStartTime = start
	r.RoundDuration = d
}

// RemainingTime is the time left in the round at now, clamped to
// [0, RoundDuration]. Zero before the round has been started.
func (r *Room) RemainingTime(now time.Time) time.Duration {
	if r.RoundStartTime.IsZero() {
		return 0
	}
	left := r.RoundDuration - now.Sub(r.RoundStartTime)
	if left < 0 {
		return 0
	}
	if left > r.RoundDuration {
		return r.RoundDuration
	}
	return left
}

// Results lists every chain, in player order, with display authors.
func (r *Room) Results() []ChainResult {
	out := make([]ChainResult, 0, len(r.Players))
	for _, p := range r.Players {
		chain := r.Chains[p.Key()]
		items := make([]ResultItem, 0, len(chain))
		for _, item := range chain {
			name := item.AuthorName
			if name == "" {
				if item.Author == SystemAuthor {
					name = StartingWordLabel
				} else {
					name = UnknownAuthor
				}
			}
			items = append(items, ResultItem{Type: item.Type, Content: item.Content, AuthorName: name})
		}
		out = append(out, ChainResult{OriginalPlayer: p.Name, OriginalPlayerID: p.ID, Items: items})
	}
	return out
}

// ResetToLobby clears all game state. Players that are not connected lose
// their seat and are returned.
func (r *Room) ResetToLobby() []Player {
	var dropped []Player
	kept := r.Players[:0]
	for _, p := range r.Players {
		if p.Connected {
			kept = append(kept, p)
		} else {
			dropped = append(dropped, *p)
		}
	}
	r.Players = kept
	if host := r.Host(); host == nil {
		r.rotateHost()
	}

	r.Status = StatusLobby
	r.CurrentRound = 0
	r.TotalRounds = 0
	r.RoundType = RoundNone
	r.Chains = map[string][]ChainItem{}
	r.Submissions = map[string]bool{}
	r.RoundStartTime = time.Time{}
	r.RoundDuration = 0
	return dropped
}

// Retain keeps only the players whose identity is in keys, preserving order,
// and returns the ones removed.
func (r *Room) Retain(keys map[string]bool) []Player {
	var dropped []Player
	kept := r.Players[:0]
	for _, p := range r.Players {
		if keys[p.Key()] {
			kept = append(kept, p)
		} else {
			dropped = append(dropped, *p)
		}
	}
	r.Players = kept
	if host := r.Host(); host == nil {
		r.rotateHost()
	}
	return dropped
}

// AddChat appends a chat line from conn, trimming history to the limit.
func (r *Room) AddChat(conn, text string, at time.Time) (ChatMessage, error) {
	p := r.PlayerByConn(conn)
	if p == nil {
		return ChatMessage{}, apperrors.New(apperrors.ErrPlayerNotFound)
	}
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > MaxChatLength {
		return ChatMessage{}, apperrors.Newf(apperrors.ErrInvalidInput, "chat message must be 1-%d characters", MaxChatLength)
	}

	msg := ChatMessage{PlayerID: p.ID, PlayerName: p.Name, Message: text, Timestamp: at.UnixMilli()}
	r.Chat = append(r.Chat, msg)
	if over := len(r.Chat) - r.limits.ChatHistory; over > 0 {
		r.Chat = append([]ChatMessage(nil), r.Chat[over:]...)
	}
	return msg, nil
}

func (r *Room) ChatHistory() []ChatMessage {
	return append([]ChatMessage(nil), r.Chat...)
}

func (r *Room) Snapshot() Snapshot {
	players := make([]Player, len(r.Players))
	for i, p := range r.Players {
		players[i] = *p
	}
	hostName := ""
	if host := r.Host(); host != nil {
		hostName = host.Name
	}
	return Snapshot{
		Code:         r.Code,
		Host:         r.HostID,
		HostName:     hostName,
		Players:      players,
		Status:       r.Status,
		CurrentRound: r.CurrentRound,
		TotalRounds:  r.TotalRounds,
		RoundType:    r.RoundType,
		IsPublic:     r.IsPublic,
		RoomName:     r.Name,
		MaxPlayers:   r.limits.MaxPlayers,
	}
}

func (r *Room) Summary() LobbySummary {
	hostName := ""
	if host := r.Host(); host != nil {
		hostName = host.Name
	}
	return LobbySummary{
		Code:        r.Code,
		HostName:    hostName,
		RoomName:    r.Name,
		PlayerCount: len(r.Players),
		MaxPlayers:  r.limits.MaxPlayers,
	}
}
