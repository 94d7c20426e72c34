package server

// UserID 表示参与者的唯一标识（同一空间内不允许重复）
type UserID string

// Conn 是会话的出站传输抽象：广播路径只会调用 Send 与 Close
// 真实实现为 ClientConn（WebSocket 写协程），测试中可替换为假连接
type Conn interface {
	// Send 非阻塞投递一帧；底层已关闭时返回错误
	Send(b []byte) error
	Close() error
}

// Session 服务端权威的参与者记录：身份 + 当前位置 + 发送端
// 位置只允许在所属空间的临界区内被修改（见 space.go）
type Session struct {
	UserID  UserID
	SpaceID string

	// 当前已提交的栅格坐标（服务端为唯一事实来源）
	X int
	Y int

	Conn Conn

	// left 标记会话已经离开，保证 Leave 幂等（最多广播一次 user-left）
	left bool
}

// UserState 为广播给客户端的轻量状态
type UserState struct {
	UserID string `json:"userId"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

func (s *Session) state() UserState {
	return UserState{UserID: string(s.UserID), X: s.X, Y: s.Y}
}
