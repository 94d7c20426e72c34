package server

// 广播扇出：所有入队动作都发生在空间锁内，保证同一空间的事件
// 按产生顺序进入每个连接的发送队列；真正的网络写由各连接的
// 写协程异步完成，慢或已断开的同伴不会拖慢触发请求

// sendLocked 只投递给单个会话；投递失败（传输已关闭）返回待清理列表
// 必须持有 s.mu 调用
func (s *Space) sendLocked(sess *Session, msg []byte) []*Session {
	if err := sess.Conn.Send(msg); err != nil {
		Log.Warnf("dead peer: space=%s user=%s err=%v", s.ID, sess.UserID, err)
		return []*Session{sess}
	}
	return nil
}

// fanoutLocked 向空间内全员投递，includeOrigin 控制是否包含发起者
// 返回投递失败的会话，由调用方在锁外安排移除
// 必须持有 s.mu 调用
func (s *Space) fanoutLocked(origin *Session, includeOrigin bool, msg []byte) []*Session {
	var dead []*Session
	for _, peer := range s.sessions {
		if !includeOrigin && peer == origin {
			continue
		}
		if err := peer.Conn.Send(msg); err != nil {
			Log.Warnf("dead peer: space=%s user=%s err=%v", s.ID, peer.UserID, err)
			dead = append(dead, peer)
		}
	}
	return dead
}

// reapDead 在锁外安排失效同伴走正常 Leave 流程（只记日志，绝不重试，
// 也绝不把失败回传给触发广播的那次请求）
func (s *Space) reapDead(dead []*Session) {
	for _, sess := range dead {
		metrics.peersReaped.Inc()
		go s.Leave(sess)
	}
}
