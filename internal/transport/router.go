package transport

import (
	"encoding/json"

	"go.uber.org/zap"

	apperrors "github.com/ThakurMayank5/Telestrations-Server/internal/errors"
	"github.com/ThakurMayank5/Telestrations-Server/internal/game"
	"github.com/ThakurMayank5/Telestrations-Server/internal/room"
)

// GameService is what the router needs from the game.
type GameService interface {
	CreateRoom(conn, name string, opts room.Options) (room.Snapshot, error)
	JoinRoom(conn, code, name string) (room.Snapshot, error)
	PublicLobbies() []room.LobbySummary
	StartGame(conn string) error
	Submit(conn, content string) error
	Results(conn string) ([]room.ChainResult, error)
	ReturnToLobby(conn string) error
	OfferPlayAgain(conn string) error
	RespondPlayAgain(conn string, yes bool) error
	Rejoin(conn, code, name string) (game.RejoinResult, error)
	SendChat(conn, text string) (room.ChatMessage, error)
	ChatHistory(conn string) ([]room.ChatMessage, error)
	Disconnect(conn string)
}

type handlerFunc func(c *Client, data json.RawMessage) (map[string]any, error)

// Router maps request types to game operations and acks every request.
type Router struct {
	svc      GameService
	handlers map[string]handlerFunc
	logger   *zap.Logger
}

func NewRouter(svc GameService, logger *zap.Logger) *Router {
	rt := &Router{svc: svc, logger: logger}
	rt.handlers = map[string]handlerFunc{
		TypeCreateRoom:        rt.createRoom,
		TypeJoinRoom:          rt.joinRoom,
		TypeGetPublicLobbies:  rt.publicLobbies,
		TypeStartGame:         rt.startGame,
		TypeSubmitDrawing:     rt.submitDrawing,
		TypeSubmitGuess:       rt.submitGuess,
		TypeRequestResults:    rt.requestResults,
		TypeReturnToLobby:     rt.returnToLobby,
		TypeOfferPlayAgain:    rt.offerPlayAgain,
		TypePlayAgainResponse: rt.playAgainResponse,
		TypeRejoinRoom:        rt.rejoinRoom,
		TypeSendChat:          rt.sendChat,
		TypeGetChatHistory:    rt.chatHistory,
	}
	return rt
}

// Dispatch runs one request and queues its ack.
func (rt *Router) Dispatch(c *Client, msg Message) {
	h, ok := rt.handlers[msg.Type]
	if !ok {
		c.reply(msg.ID, failure(apperrors.Newf(apperrors.ErrUnknownType, "%q", msg.Type)))
		return
	}

	fields, err := h(c, msg.Data)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrUnknown {
			rt.logger.Error("request failed",
				zap.String("conn", c.ID),
				zap.String("type", msg.Type),
				zap.Error(err))
		} else {
			rt.logger.Debug("request rejected",
				zap.String("conn", c.ID),
				zap.String("type", msg.Type),
				zap.Error(err))
		}
		c.reply(msg.ID, failure(err))
		return
	}
	c.reply(msg.ID, okAck(fields))
}

// Disconnected tells the game that c is gone.
func (rt *Router) Disconnected(c *Client) {
	rt.svc.Disconnect(c.ID)
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return apperrors.New(apperrors.ErrInvalidInput, "missing data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInvalidInput)
	}
	return nil
}

func (rt *Router) createRoom(c *Client, data json.RawMessage) (map[string]any, error) {
	var req CreateRoomRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	snap, err := rt.svc.CreateRoom(c.ID, req.PlayerName, room.Options{IsPublic: req.IsPublic, RoomName: req.RoomName})
	if err != nil {
		return nil, err
	}
	return map[string]any{"roomCode": snap.Code, "room": snap, "playerId": c.ID}, nil
}

func (rt *Router) joinRoom(c *Client, data json.RawMessage) (map[string]any, error) {
	var req JoinRoomRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	snap, err := rt.svc.JoinRoom(c.ID, req.RoomCode, req.PlayerName)
	if err != nil {
		return nil, err
	}
	return map[string]any{"room": snap, "playerId": c.ID}, nil
}

func (rt *Router) publicLobbies(c *Client, _ json.RawMessage) (map[string]any, error) {
	return map[string]any{"lobbies": rt.svc.PublicLobbies()}, nil
}

func (rt *Router) startGame(c *Client, _ json.RawMessage) (map[string]any, error) {
	return nil, rt.svc.StartGame(c.ID)
}

func (rt *Router) submitDrawing(c *Client, data json.RawMessage) (map[string]any, error) {
	var req SubmitDrawingRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return nil, rt.svc.Submit(c.ID, req.Drawing)
}

func (rt *Router) submitGuess(c *Client, data json.RawMessage) (map[string]any, error) {
	var req SubmitGuessRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return nil, rt.svc.Submit(c.ID, req.Guess)
}

func (rt *Router) requestResults(c *Client, _ json.RawMessage) (map[string]any, error) {
	chains, err := rt.svc.Results(c.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"chains": chains}, nil
}

func (rt *Router) returnToLobby(c *Client, _ json.RawMessage) (map[string]any, error) {
	return nil, rt.svc.ReturnToLobby(c.ID)
}

func (rt *Router) offerPlayAgain(c *Client, _ json.RawMessage) (map[string]any, error) {
	return nil, rt.svc.OfferPlayAgain(c.ID)
}

func (rt *Router) playAgainResponse(c *Client, data json.RawMessage) (map[string]any, error) {
	var req PlayAgainRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return nil, rt.svc.RespondPlayAgain(c.ID, req.WantsToPlay)
}

func (rt *Router) rejoinRoom(c *Client, data json.RawMessage) (map[string]any, error) {
	var req JoinRoomRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	res, err := rt.svc.Rejoin(c.ID, req.RoomCode, req.PlayerName)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{
		"room":           res.Room,
		"gameInProgress": res.GameInProgress,
		"hasSubmitted":   res.HasSubmitted,
		"playerId":       c.ID,
	}
	if res.Task != nil {
		fields["task"] = res.Task
	}
	if res.RemainingTime != nil {
		fields["remainingTime"] = *res.RemainingTime
	}
	return fields, nil
}

func (rt *Router) sendChat(c *Client, data json.RawMessage) (map[string]any, error) {
	var req ChatRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if _, err := rt.svc.SendChat(c.ID, req.Message); err != nil {
		return nil, err
	}
	return nil, nil
}

func (rt *Router) chatHistory(c *Client, _ json.RawMessage) (map[string]any, error) {
	history, err := rt.svc.ChatHistory(c.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"messages": history}, nil
}
