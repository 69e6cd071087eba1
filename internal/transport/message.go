package transport

import (
	"encoding/json"
	stderrors "errors"

	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
)

// Message is the envelope of every frame. Requests carry an ID that the
// matching ack echoes back.
type Message struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is a frame written to a client.
type Outbound struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Data any    `json:"data,omitempty"`
}

const (
	TypeAck       = "ack"
	TypeConnected = "connected"
)

// Requests.
const (
	TypeCreateRoom        = "create-room"
	TypeJoinRoom          = "join-room"
	TypeGetPublicLobbies  = "get-public-lobbies"
	TypeStartGame         = "start-game"
	TypeSubmitDrawing     = "submit-drawing"
	TypeSubmitGuess       = "submit-guess"
	TypeRequestResults    = "request-results"
	TypeReturnToLobby     = "return-to-lobby"
	TypeOfferPlayAgain    = "offer-play-again"
	TypePlayAgainResponse = "play-again-response"
	TypeRejoinRoom        = "rejoin-room"
	TypeSendChat          = "send-chat"
	TypeGetChatHistory    = "get-chat-history"
)

type CreateRoomRequest struct {
	PlayerName string `json:"playerName"`
	IsPublic   bool   `json:"isPublic"`
	RoomName   string `json:"roomName"`
}

// JoinRoomRequest is used by join-room and rejoin-room.
type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type SubmitDrawingRequest struct {
	Drawing string `json:"drawing"`
}

type SubmitGuessRequest struct {
	Guess string `json:"guess"`
}

type PlayAgainRequest struct {
	WantsToPlay bool `json:"wantsToPlay"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

// Ack is the reply to a request. Fields is merged into the JSON object next
// to success.
type Ack struct {
	Success bool
	Error   string
	Code    apperrors.ErrorCode
	Fields  map[string]any
}

func (a Ack) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Fields)+3)
	for k, v := range a.Fields {
		out[k] = v
	}
	out["success"] = a.Success
	if !a.Success {
		out["error"] = a.Error
		out["code"] = a.Code
	}
	return json.Marshal(out)
}

func okAck(fields map[string]any) Ack {
	return Ack{Success: true, Fields: fields}
}

func failure(err error) Ack {
	var appErr *apperrors.AppError
	if !stderrors.As(err, &appErr) {
		return Ack{Error: apperrors.Message(err), Code: apperrors.ErrUnknown}
	}
	text := appErr.Message
	if appErr.Details != "" {
		text += ": " + appErr.Details
	}
	return Ack{Error: text, Code: appErr.Code}
}
