package game

import (
	"github.com/ThakurMayank5/Telestrations-Server/internal/room"
)

// Notifier delivers a server push to one connection. Implementations must
// not block: Send is called while a room is locked.
type Notifier interface {
	Send(conn string, event string, payload any)
}

// Server pushes.
const (
	EventPlayerJoined     = "player-joined"
	EventPlayerLeft       = "player-left"
	EventPlayerRejoined   = "player-rejoined"
	EventRoundStart       = "round-start"
	EventSubmissionUpdate = "submission-update"
	EventGameOver         = "game-over"
	EventReturnedToLobby  = "returned-to-lobby"
	EventPlayAgainPrompt  = "play-again-prompt"
	EventPlayAgainUpdate  = "play-again-update"
	EventPlayAgainSuccess = "play-again-success"
	EventPlayAgainFailed  = "play-again-failed"
	EventChatMessage      = "chat-message"
)

type RoundStart struct {
	room.Task
	Duration int64         `json:"duration"`
	Room     room.Snapshot `json:"roomInfo"`
}

type SubmissionUpdate struct {
	Submitted int `json:"submitted"`
	Total     int `json:"total"`
}

type GameOver struct {
	Message string `json:"message"`
}

type PlayAgainPrompt struct {
	Timeout int64  `json:"timeout"`
	Host    string `json:"host"`
}

type PlayAgainUpdate struct {
	YesCount  int `json:"yesCount"`
	Responses int `json:"responses"`
	Total     int `json:"total"`
}

type PlayAgainSuccess struct {
	Players []string      `json:"players"`
	Room    room.Snapshot `json:"room"`
}

type PlayAgainFailed struct {
	YesCount int `json:"yesCount"`
	Required int `json:"required"`
}

// RejoinResult is everything a returning player needs to resume.
type RejoinResult struct {
	Room           room.Snapshot `json:"room"`
	GameInProgress bool          `json:"gameInProgress"`
	Task           *room.Task    `json:"task,omitempty"`
	RemainingTime  *int64        `json:"remainingTime,omitempty"`
	HasSubmitted   bool          `json:"hasSubmitted"`
}

// broadcast sends to every connected player of r through the directory, so
// a rebound seat is always addressed at its live connection.
func (s *Service) broadcast(r *room.Room, event string, payload any) {
	for _, p := range r.Players {
		if !p.Connected {
			continue
		}
		if conn, ok := s.dir.ConnFor(r.Code, p.Name); ok {
			s.notify.Send(conn, event, payload)
		}
	}
}

func (s *Service) sendTo(r *room.Room, p *room.Player, event string, payload any) {
	if conn, ok := s.dir.ConnFor(r.Code, p.Name); ok {
		s.notify.Send(conn, event, payload)
	}
}

func (s *Service) submissionUpdate(r *room.Room) {
	s.broadcast(r, EventSubmissionUpdate, SubmissionUpdate{
		Submitted: r.SubmittedCount(),
		Total:     r.ConnectedCount(),
	})
}
