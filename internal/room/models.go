package room

import (
	"strings"
	"time"
)

type Status string

const (
	StatusLobby   Status = "lobby"
	StatusPlaying Status = "playing"
	StatusResults Status = "results"
)

type RoundType string

const (
	RoundNone  RoundType = ""
	RoundDraw  RoundType = "draw"
	RoundGuess RoundType = "guess"
)

type ItemType string

const (
	ItemWord    ItemType = "word"
	ItemDrawing ItemType = "drawing"
	ItemGuess   ItemType = "guess"
)

const (
	// SystemAuthor marks the seed word of a chain.
	SystemAuthor      = "system"
	StartingWordLabel = "Starting Word"
	UnknownAuthor     = "Unknown"

	CodeLength       = 4
	MaxNameLength    = 20
	MaxRoomNameLen   = 40
	MaxChatLength    = 200
	DefaultMaxPlayer = 8
	DefaultMinPlayer = 3
	DefaultChatLimit = 50
)

// Player is a seat in a room. ID is the live connection and changes on
// reconnect; Name is the identity.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// Key is the stable identity of the player within its room.
func (p *Player) Key() string {
	return NameKey(p.Name)
}

// NameKey normalizes a display name into the identity key used for
// uniqueness, chains and submissions.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type ChainItem struct {
	Type       ItemType `json:"type"`
	Content    string   `json:"content"`
	Author     string   `json:"author"`
	AuthorName string   `json:"authorName,omitempty"`
}

type ChatMessage struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
}

// Options are the lobby-browser settings chosen at creation.
type Options struct {
	IsPublic bool   `json:"isPublic"`
	RoomName string `json:"roomName"`
}

// Limits bound room size and history. Zero values take the defaults.
type Limits struct {
	MaxPlayers  int
	MinPlayers  int
	ChatHistory int
}

func (l Limits) withDefaults() Limits {
	if l.MaxPlayers <= 0 {
		l.MaxPlayers = DefaultMaxPlayer
	}
	if l.MinPlayers <= 0 {
		l.MinPlayers = DefaultMinPlayer
	}
	if l.ChatHistory <= 0 {
		l.ChatHistory = DefaultChatLimit
	}
	return l
}

// Room is a single game session. It is not safe for concurrent use; the
// Store serializes access per room.
type Room struct {
	Code     string
	HostID   string
	Players  []*Player
	Status   Status
	IsPublic bool
	Name     string

	CurrentRound int
	TotalRounds  int
	RoundType    RoundType

	// Chains and Submissions are keyed by Player.Key.
	Chains      map[string][]ChainItem
	Submissions map[string]bool

	RoundStartTime time.Time
	RoundDuration  time.Duration

	// Epoch increments with every game start so that timers armed for an
	// earlier game can recognise themselves as stale.
	Epoch int

	Chat []ChatMessage

	limits Limits
}

// Task is what one player must respond to in the current round.
type Task struct {
	RoundType    RoundType `json:"roundType"`
	RoundNumber  int       `json:"roundNumber"`
	TotalRounds  int       `json:"totalRounds"`
	ChainOwnerID string    `json:"chainOwnerId"`
	ChainOwner   string    `json:"chainOwner"`
	Prompt       ChainItem `json:"prompt"`
}

// Snapshot is the public view of a room. It never carries chain contents or
// who submitted what.
type Snapshot struct {
	Code         string    `json:"code"`
	Host         string    `json:"host"`
	HostName     string    `json:"hostName"`
	Players      []Player  `json:"players"`
	Status       Status    `json:"status"`
	CurrentRound int       `json:"currentRound"`
	TotalRounds  int       `json:"totalRounds"`
	RoundType    RoundType `json:"roundType"`
	IsPublic     bool      `json:"isPublic"`
	RoomName     string    `json:"roomName"`
	MaxPlayers   int       `json:"maxPlayers"`
}

type LobbySummary struct {
	Code        string `json:"code"`
	HostName    string `json:"hostName"`
	RoomName    string `json:"roomName"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
}

type ResultItem struct {
	Type       ItemType `json:"type"`
	Content    string   `json:"content"`
	AuthorName string   `json:"authorName"`
}

type ChainResult struct {
	OriginalPlayer   string       `json:"originalPlayer"`
	OriginalPlayerID string       `json:"originalPlayerId"`
	Items            []ResultItem `json:"items"`
}

// Removal describes what RemovePlayer did.
type Removal struct {
	Player        Player
	WasHost       bool
	Spliced       bool
	NoneConnected bool
}
