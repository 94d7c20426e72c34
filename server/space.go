package server

import (
	"sync"
)

// Space 空间世界：权威状态维护在内存，所有成员变更与移动校验
// 都在同一把空间锁内完成（校验-提交必须是空间级原子的）
// 不同空间各自持锁，互不阻塞
type Space struct {
	ID     string
	Width  int
	Height int

	// 静态可碰撞物件，空间生命周期内不可变，读取无需加锁
	Elements []Element

	mu       sync.Mutex
	sessions map[UserID]*Session
	closed   bool

	// onEmpty 最后一名参与者离开后回调（注册表用它回收条目）
	onEmpty func(spaceID string)
}

// SpaceSnapshot 管理接口用的只读快照
type SpaceSnapshot struct {
	SpaceID  string      `json:"spaceId"`
	Sessions int         `json:"sessions"`
	Users    []UserState `json:"users"`
}

func newSpace(id string, width, height int, elements []Element, onEmpty func(string)) *Space {
	return &Space{
		ID:       id,
		Width:    width,
		Height:   height,
		Elements: elements,
		sessions: make(map[UserID]*Session),
		onEmpty:  onEmpty,
	}
}

// Join 将参与者加入空间：注册会话、回发 space-joined（含同伴名册）、
// 向既有同伴发布 user-joined。同名会话视为接管：关闭旧连接、
// 位置延续，不向同伴发布任何事件（名册身份没有变化）
// 空间已被回收时返回 ok=false，调用方应重新向注册表取空间
func (s *Space) Join(conn Conn, userID UserID, spawn Point) (*Session, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, false
	}

	takeover := false
	if old, ok := s.sessions[userID]; ok {
		old.left = true
		_ = old.Conn.Close()
		// 接管延续旧位置，客户端以 spawn 字段为准重建本地状态
		spawn = Point{X: old.X, Y: old.Y}
		takeover = true
	}

	sess := &Session{UserID: userID, SpaceID: s.ID, X: spawn.X, Y: spawn.Y, Conn: conn}
	s.sessions[userID] = sess

	roster := make([]UserState, 0, len(s.sessions)-1)
	for id, peer := range s.sessions {
		if id != userID {
			roster = append(roster, peer.state())
		}
	}

	var dead []*Session
	if msg, err := encodeMessage(MsgSpaceJoined, SpaceJoined{
		Spawn:  spawn,
		UserID: string(userID),
		Users:  roster,
	}); err == nil {
		dead = append(dead, s.sendLocked(sess, msg)...)
	}
	if !takeover {
		if msg, err := encodeMessage(MsgUserJoined, sess.state()); err == nil {
			dead = append(dead, s.fanoutLocked(sess, false, msg)...)
		}
	}
	s.mu.Unlock()

	s.reapDead(dead)
	if !takeover {
		metrics.activeSessions.Inc()
	}
	metrics.joinsTotal.Inc()
	Log.Infof("session joined: space=%s user=%s spawn=(%d,%d) takeover=%v", s.ID, userID, spawn.X, spawn.Y, takeover)
	return sess, true
}

// Leave 将参与者移出空间并通知剩余同伴，幂等：
// 重复调用、或传输早已关闭后调用，都不报错也不重复广播
func (s *Space) Leave(sess *Session) {
	s.mu.Lock()
	if sess.left {
		s.mu.Unlock()
		return
	}
	sess.left = true
	delete(s.sessions, sess.UserID)
	_ = sess.Conn.Close()

	var dead []*Session
	if msg, err := encodeMessage(MsgUserLeft, UserLeft{UserID: string(sess.UserID)}); err == nil {
		dead = append(dead, s.fanoutLocked(sess, false, msg)...)
	}
	empty := len(s.sessions) == 0
	s.mu.Unlock()

	s.reapDead(dead)
	metrics.activeSessions.Dec()
	Log.Infof("session left: space=%s user=%s", s.ID, sess.UserID)
	if empty && s.onEmpty != nil {
		s.onEmpty(s.ID)
	}
}

// RequestMove 移动裁决：在空间锁内对 (x,y) 做几何校验，
// 通过则提交位置并向全员（含发起者）广播 movement；
// 否则保持原位置，仅回发 movement-rejected 让发起者回弹
// 入参不限单步移动，任意目标坐标一律按同一规则校验
func (s *Space) RequestMove(sess *Session, x, y int) bool {
	s.mu.Lock()
	if s.closed || sess.left {
		s.mu.Unlock()
		return false
	}

	if s.collides(x, y) {
		msg, err := encodeMessage(MsgMovementRejected, sess.state())
		var dead []*Session
		if err == nil {
			dead = s.sendLocked(sess, msg)
		}
		s.mu.Unlock()
		s.reapDead(dead)
		metrics.movesRejected.Inc()
		return false
	}

	sess.X, sess.Y = x, y
	msg, err := encodeMessage(MsgMovement, sess.state())
	var dead []*Session
	if err == nil {
		dead = s.fanoutLocked(sess, true, msg)
	}
	s.mu.Unlock()
	s.reapDead(dead)
	metrics.movesAccepted.Inc()
	return true
}

// RejectMove 不校验直接打回：用于 move 载荷身份与连接绑定不符的场景
func (s *Space) RejectMove(sess *Session) {
	s.mu.Lock()
	if sess.left {
		s.mu.Unlock()
		return
	}
	msg, err := encodeMessage(MsgMovementRejected, sess.state())
	var dead []*Session
	if err == nil {
		dead = s.sendLocked(sess, msg)
	}
	s.mu.Unlock()
	s.reapDead(dead)
	metrics.movesRejected.Inc()
}

// NumSessions 当前在线人数
func (s *Space) NumSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Snapshot 管理接口用：成员与位置的一致性快照
func (s *Space) Snapshot() SpaceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SpaceSnapshot{SpaceID: s.ID, Sessions: len(s.sessions)}
	snap.Users = make([]UserState, 0, len(s.sessions))
	for _, sess := range s.sessions {
		snap.Users = append(snap.Users, sess.state())
	}
	return snap
}

// tryClose 空间为空时标记关闭并返回 true；有人则拒绝关闭
// 关闭后迟到的 Join 会拿到 ok=false，转而向注册表重取条目
func (s *Space) tryClose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.sessions) > 0 {
		return false
	}
	s.closed = true
	return true
}
