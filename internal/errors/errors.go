package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is the stable, wire-visible name of an application error.
type ErrorCode string

// Kind groups codes by how callers should treat them.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindTransport
)

const (
	ErrUnknown ErrorCode = "Unknown"

	// validation
	ErrInvalidName    ErrorCode = "InvalidName"
	ErrInvalidCode    ErrorCode = "InvalidCode"
	ErrInvalidInput   ErrorCode = "InvalidInput"
	ErrInvalidMessage ErrorCode = "InvalidMessage"

	// state conflicts
	ErrRoomNotFound           ErrorCode = "RoomNotFound"
	ErrGameInProgress         ErrorCode = "GameInProgress"
	ErrRoomFull               ErrorCode = "RoomFull"
	ErrNameTaken              ErrorCode = "NameTaken"
	ErrNotEnoughPlayers       ErrorCode = "NotEnoughPlayers"
	ErrGameNotInProgress      ErrorCode = "GameNotInProgress"
	ErrAlreadySubmitted       ErrorCode = "AlreadySubmitted"
	ErrPlayerNotFound         ErrorCode = "PlayerNotFound"
	ErrNotHost                ErrorCode = "NotHost"
	ErrNotInRoom              ErrorCode = "NotInRoom"
	ErrReconnectWindowExpired ErrorCode = "ReconnectWindowExpired"
	ErrResultsUnavailable     ErrorCode = "ResultsUnavailable"
	ErrNotInResults           ErrorCode = "NotInResults"
	ErrNoBallot               ErrorCode = "NoBallot"
	ErrRoundNotStarted        ErrorCode = "RoundNotStarted"

	// transport
	ErrRateLimited ErrorCode = "RateLimited"
	ErrUnknownType ErrorCode = "UnknownType"
)

var errorMessages = map[ErrorCode]string{
	ErrUnknown: "Unknown error",

	ErrInvalidName:    "Please enter a name",
	ErrInvalidCode:    "Room code must be 4 characters",
	ErrInvalidInput:   "Invalid input",
	ErrInvalidMessage: "Malformed message",

	ErrRoomNotFound:           "Room not found",
	ErrGameInProgress:         "Game already in progress",
	ErrRoomFull:               "Room is full (max 8 players)",
	ErrNameTaken:              "Name already taken",
	ErrNotEnoughPlayers:       "Need at least 3 players to start",
	ErrGameNotInProgress:      "Game not in progress",
	ErrAlreadySubmitted:       "Already submitted",
	ErrPlayerNotFound:         "Player not found",
	ErrNotHost:                "Only the host can do that",
	ErrNotInRoom:              "Not in a room",
	ErrReconnectWindowExpired: "Reconnect window expired",
	ErrResultsUnavailable:     "Results not available",
	ErrNotInResults:           "Game has not finished yet",
	ErrNoBallot:               "No play-again vote is open",
	ErrRoundNotStarted:        "Next round has not started yet",

	ErrRateLimited: "Too many requests",
	ErrUnknownType: "Unknown message type",
}

var errorKinds = map[ErrorCode]Kind{
	ErrInvalidName:    KindValidation,
	ErrInvalidCode:    KindValidation,
	ErrInvalidInput:   KindValidation,
	ErrInvalidMessage: KindValidation,

	ErrRoomNotFound:           KindConflict,
	ErrGameInProgress:         KindConflict,
	ErrRoomFull:               KindConflict,
	ErrNameTaken:              KindConflict,
	ErrNotEnoughPlayers:       KindConflict,
	ErrGameNotInProgress:      KindConflict,
	ErrAlreadySubmitted:       KindConflict,
	ErrPlayerNotFound:         KindConflict,
	ErrNotHost:                KindConflict,
	ErrNotInRoom:              KindConflict,
	ErrReconnectWindowExpired: KindConflict,
	ErrResultsUnavailable:     KindConflict,
	ErrNotInResults:           KindConflict,
	ErrNoBallot:               KindConflict,
	ErrRoundNotStarted:        KindConflict,

	ErrRateLimited: KindTransport,
	ErrUnknownType: KindTransport,
}

// AppError carries a code, its human message and optional details.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so sentinel comparisons
// work with errors.Is regardless of details.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Kind reports the taxonomy bucket of the error.
func (e *AppError) Kind() Kind {
	return errorKinds[e.Code]
}

// New creates an AppError for code. Details are joined with "; ".
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}
	err := &AppError{Code: code, Message: message}
	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}
	return err
}

// Newf creates an AppError with formatted details.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code to err. An AppError already in the chain keeps its code.
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	wrapped := New(code, details...)
	wrapped.Cause = err
	if wrapped.Details == "" {
		wrapped.Details = err.Error()
	}
	return wrapped
}

// Is reports whether err carries code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// GetCode returns the code of err, ErrUnknown for foreign errors and "" for nil.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrUnknown
}

// Message returns the text shown to the player for err.
func Message(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return errorMessages[ErrUnknown]
}

// HTTPStatus maps the error to a status for the HTTP surface.
func (e *AppError) HTTPStatus() int {
	switch {
	case e.Code == ErrRoomNotFound || e.Code == ErrPlayerNotFound:
		return http.StatusNotFound
	case e.Code == ErrRateLimited:
		return http.StatusTooManyRequests
	case e.Code == ErrNotHost:
		return http.StatusForbidden
	case e.Kind() == KindValidation:
		return http.StatusBadRequest
	case e.Kind() == KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
