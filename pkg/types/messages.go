// Package types defines the wire-level request and response payloads for
// every client event. Payloads are explicit tagged structs, decoded and
// validated at the transport boundary before any game component sees them.
package types

import "encoding/json"

// Envelope is the framing for every websocket message in both directions.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// RawEnvelope defers payload decoding until the event type is known.
type RawEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Client -> server

type JoinRequest struct {
	Username string `json:"username"`
}

type MoveRequest struct {
	Position    Position `json:"position"`
	FacingRight bool     `json:"facingRight"`
}

type BattleStartRequest struct {
	WildID string `json:"wildId"`
}

type BattleActionRequest struct {
	MoveID string `json:"moveId"`
}

type CatchRequest struct {
	WildID string `json:"wildId"`
}

type CreateLobbyRequest struct {
	Name       string `json:"name"`
	Capacity   int    `json:"capacity"`
	LevelTag   string `json:"levelTag,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
}

type JoinLobbyRequest struct {
	LobbyID    string `json:"lobbyId"`
	PlayerName string `json:"playerName,omitempty"`
}

type UpdatePlayerInfoRequest struct {
	PlayerName string `json:"playerName,omitempty"`
	Cosmetic   string `json:"selectedCosmetic,omitempty"`
}

// Server -> client

// ErrorEvent answers requests that name an unknown, full, or started lobby,
// an unknown wild cigarette, or a host-only action from a non-host.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	CodeLobbyNotFound = "LOBBY_NOT_FOUND"
	CodeLobbyFull     = "LOBBY_FULL"
	CodeLobbyStarted  = "LOBBY_STARTED"
	CodeNotHost       = "NOT_HOST"
	CodeWildNotFound  = "WILD_NOT_FOUND"
	CodeBadEnvelope   = "BAD_ENVELOPE"
	CodeStorage       = "STORAGE"
)
