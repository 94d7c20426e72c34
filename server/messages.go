package server

import (
	"encoding/json"
	"fmt"
)

// 线上协议：JSON 信封 {"type":..., "payload":...}，入站与出站共用
// 示例：{"type":"join","payload":{"spaceId":"room1","token":"..."}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// 消息类型常量（与浏览器客户端约定一致）
const (
	MsgJoin = "join"
	MsgMove = "move"

	MsgSpaceJoined      = "space-joined"
	MsgUserJoined       = "user-joined"
	MsgMovement         = "movement"
	MsgMovementRejected = "movement-rejected"
	MsgUserLeft         = "user-left"
)

// JoinRequest 入站加入请求：token 交由 Authenticator 解析
type JoinRequest struct {
	SpaceID string `json:"spaceId"`
	Token   string `json:"token"`
}

// MoveRequest 入站移动请求
// 注意：payload 里的 userId 仅作校验用，服务端只信任连接绑定的身份
type MoveRequest struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	UserID string `json:"userId"`
}

// Point 栅格坐标
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SpaceJoined 仅发给新加入者：出生点 + 当前同空间的其他参与者
type SpaceJoined struct {
	Spawn  Point       `json:"spawn"`
	UserID string      `json:"userId"`
	Users  []UserState `json:"users"`
}

// UserLeft 发给剩余参与者
type UserLeft struct {
	UserID string `json:"userId"`
}

// encodeMessage 序列化一帧出站消息（信封 + 载荷）
func encodeMessage(typ string, payload any) ([]byte, error) {
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return json.Marshal(Envelope{Type: typ, Payload: pb})
}

// decodePayload 将信封载荷解析为具体类型
func decodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 {
		return out, fmt.Errorf("empty payload for type %q", env.Type)
	}
	err := json.Unmarshal(env.Payload, &out)
	return out, err
}
