package server

// 所有参与者使用同一尺寸的化身包围盒（栅格单位）
const (
	AvatarWidth  = 2
	AvatarHeight = 2
)

// boxesOverlap AABB 重叠判定：两轴都严格重叠才算碰撞，边沿贴合不算
func boxesOverlap(ax, ay, aw, ah, bx, by, bw, bh int) bool {
	return ax < bx+bw && ax+aw > bx &&
		ay < by+bh && ay+ah > by
}

// collides 判断化身放在 (x,y) 是否非法
// 越界按撞上隐式边界处理，与撞物件同样走拒绝路径
// 注意：不做参与者之间的碰撞，化身允许互相重叠
func (s *Space) collides(x, y int) bool {
	if x < 0 || y < 0 || x+AvatarWidth > s.Width || y+AvatarHeight > s.Height {
		return true
	}
	// 每个空间的物件只有几十个，逐个全扫即可，不需要空间索引
	for i := range s.Elements {
		e := &s.Elements[i]
		if boxesOverlap(x, y, AvatarWidth, AvatarHeight, e.X, e.Y, e.Width, e.Height) {
			return true
		}
	}
	return false
}
