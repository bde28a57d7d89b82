package golf

import (
	"encoding/json"
	"errors"
	"fmt"
)

// WebSocket 消息类型（JSON 文本帧，按 type 字段区分）
const (
	// Client -> Server
	MsgPutt      = "putt"
	MsgMove      = "move"
	MsgStartGame = "start_game"

	// Server -> Client
	MsgConnectionSuccess = "connection_success"
	MsgPlayerMoved       = "player_moved"
	MsgPlayerLeft        = "player_left"
	MsgPlayerPutt        = "player_putt"
	MsgChat              = "chat"
	MsgGameStart         = "game_start"
)

var errEmptyType = errors.New("message has no type")

// Envelope 入站消息：已解析的类型 + 原始载荷，处理器按需再解码
type Envelope struct {
	Type string
	Raw  json.RawMessage
}

// PuttMessage 击球通知 {"type":"putt","angle":..,"power":..}
type PuttMessage struct {
	Type  string  `json:"type"`
	Angle float64 `json:"angle"`
	Power float64 `json:"power"`
}

// MoveMessage 位置广播 {"type":"move","x":..,"y":..}
type MoveMessage struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// StartGameMessage 告知服务端本连接所在的洞
type StartGameMessage struct {
	Type string `json:"type"`
	Hole int    `json:"hole"`
}

type ConnectionSuccess struct {
	Username string `json:"username"`
}

// PlayerMoved 坐标可能为 null（服务端原样转发），解码后需检查
type PlayerMoved struct {
	Username string   `json:"username"`
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
}

type PlayerLeft struct {
	Username string `json:"username"`
}

type PlayerPutt struct {
	Username string  `json:"username"`
	Angle    float64 `json:"angle"`
	Power    float64 `json:"power"`
}

type ChatMessage struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type GameStart struct {
	Hole int `json:"hole"`
}

// DecodeEnvelope 只解析 type 判别字段，保留原始字节
func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decode envelope: empty frame")
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if head.Type == "" {
		return Envelope{}, errEmptyType
	}
	return Envelope{Type: head.Type, Raw: json.RawMessage(b)}, nil
}

// DecodePayload 将信封解码为具体消息类型
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Raw) == 0 {
		return out, fmt.Errorf("empty payload for type %q", env.Type)
	}
	err := json.Unmarshal(env.Raw, &out)
	return out, err
}
