package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 5 * time.Second
	pingInterval = 25 * time.Second
)

var errConnClosed = errors.New("connection closed")

// ClientConn 负责发送（写）数据到客户端的轻量包装
// 广播路径只往队列里压帧，真正的网络写由写协程完成
type ClientConn struct {
	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:     ws,
		send:   make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

// Send 将一帧压入发送队列：连接已关闭返回错误；
// 队列满则丢弃该帧（为了实时性，慢消费者不反压空间临界区）
func (c *ClientConn) Send(b []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	select {
	case c.send <- b:
	case <-c.closed:
		return errConnClosed
	default:
		metrics.framesDropped.Inc()
	}
	return nil
}

// Close 关闭底层连接并结束写协程，可重复调用
func (c *ClientConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.ws.Close()
}

// writePump 独立协程，从队列写出到 WS，并定期发 ping 维持连接
func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.ws.Close()
	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// WSHandler WebSocket 接入层：每条连接先 join 再 move 的小状态机
type WSHandler struct {
	Registry *SpaceRegistry
	Auth     *Authenticator
}

func (h *WSHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}
	client := NewClientConn(ws)
	go client.writePump()
	go h.readPump(client)
}

// readPump 读取入站消息并派发；读泵退出（含传输被动关闭）一律按 leave 处理
func (h *WSHandler) readPump(c *ClientConn) {
	var (
		sess  *Session
		space *Space
	)
	defer func() {
		_ = c.Close()
		if sess != nil {
			space.Leave(sess)
		}
	}()

	c.ws.SetReadLimit(1 << 20) // 1MB
	_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			// 畸形消息只丢弃，不断开连接
			Log.Debugf("drop malformed frame: %v", err)
			continue
		}

		switch env.Type {
		case MsgJoin:
			if sess != nil {
				Log.Debugf("duplicate join ignored: user=%s", sess.UserID)
				continue
			}
			req, err := decodePayload[JoinRequest](env)
			if err != nil {
				Log.Debugf("drop malformed join: %v", err)
				continue
			}
			sess, space, err = h.join(c, req)
			if err != nil {
				// 加入被拒：该连接再无可做之事，直接关闭
				Log.Infof("join rejected: space=%s err=%v", req.SpaceID, err)
				return
			}
		case MsgMove:
			if sess == nil {
				Log.Debugf("move before join dropped")
				continue
			}
			req, err := decodePayload[MoveRequest](env)
			if err != nil {
				Log.Debugf("drop malformed move: %v", err)
				continue
			}
			// 身份以连接绑定为准：载荷冒用他人 id 时按拒绝处理，打回原位
			if req.UserID != "" && req.UserID != string(sess.UserID) {
				Log.Warnf("move identity mismatch: bound=%s payload=%s", sess.UserID, req.UserID)
				space.RejectMove(sess)
				continue
			}
			space.RequestMove(sess, req.X, req.Y)
		default:
			Log.Debugf("unknown message type %q dropped", env.Type)
		}
	}
}

// join 完成一次加入：验令牌 → 解析空间 → 注册会话
// 空间恰在回收窗口内时重取注册表条目再试
func (h *WSHandler) join(c *ClientConn, req JoinRequest) (*Session, *Space, error) {
	if req.SpaceID == "" {
		metrics.joinsRejected.WithLabelValues(rejectReasonProtocol).Inc()
		return nil, nil, fmt.Errorf("join missing spaceId")
	}
	userID, err := h.Auth.Authenticate(req.Token)
	if err != nil {
		metrics.joinsRejected.WithLabelValues(rejectReasonAuth).Inc()
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for {
		space, err := h.Registry.GetOrCreate(ctx, req.SpaceID)
		if err != nil {
			reason := rejectReasonDirectory
			if errors.Is(err, ErrSpaceNotFound) {
				reason = rejectReasonNotFound
			}
			metrics.joinsRejected.WithLabelValues(reason).Inc()
			return nil, nil, err
		}
		if sess, ok := space.Join(c, userID, h.Registry.Spawn()); ok {
			return sess, space, nil
		}
	}
}
