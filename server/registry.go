package server

import (
	"context"
	"sort"
	"sync"
)

// SpaceDefaults 目录响应缺省时使用的空间参数
type SpaceDefaults struct {
	Width  int
	Height int
	SpawnX int
	SpawnY int
}

// SpaceRegistry 管理空间的生命周期：按 id 懒创建、缓存目录布局、
// 空置时回收。注册表锁只保护条目映射本身，空间内部的成员变更
// 各自用空间锁，互不影响
type SpaceRegistry struct {
	mu       sync.Mutex
	entries  map[string]*spaceEntry
	dir      *DirectoryClient
	defaults SpaceDefaults
}

// spaceEntry 借 sync.Once 保证目录拉取每个空间只成功执行一次，
// 并发的首次加入只会触发一次 HTTP 请求
type spaceEntry struct {
	once  sync.Once
	space *Space
	err   error
}

func NewSpaceRegistry(dir *DirectoryClient, defaults SpaceDefaults) *SpaceRegistry {
	return &SpaceRegistry{
		entries:  make(map[string]*spaceEntry),
		dir:      dir,
		defaults: defaults,
	}
}

// Spawn 当前默认出生点（可经 /admin/config 热更新）
func (r *SpaceRegistry) Spawn() Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Point{X: r.defaults.SpawnX, Y: r.defaults.SpawnY}
}

func (r *SpaceRegistry) SetSpawn(p Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults.SpawnX, r.defaults.SpawnY = p.X, p.Y
}

// GetOrCreate 获取或创建空间：首次使用时向目录拉取布局并缓存
// 拉取失败只让当次加入失败，条目会被移除，后续加入可以重试
func (r *SpaceRegistry) GetOrCreate(ctx context.Context, spaceID string) (*Space, error) {
	r.mu.Lock()
	e, ok := r.entries[spaceID]
	if !ok {
		e = &spaceEntry{}
		r.entries[spaceID] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		layout, err := r.dir.FetchSpace(ctx, spaceID)
		if err != nil {
			e.err = err
			return
		}
		w, h := layout.Width, layout.Height
		if w <= 0 {
			w = r.defaults.Width
		}
		if h <= 0 {
			h = r.defaults.Height
		}
		e.space = newSpace(spaceID, w, h, layout.Elements, func(id string) { r.removeIfEmpty(id) })
		metrics.activeSpaces.Inc()
		Log.Infof("space created: id=%s grid=%dx%d elements=%d", spaceID, w, h, len(layout.Elements))
	})

	if e.err != nil {
		// 失败条目不留“毒”：移除后续次加入重走目录
		r.mu.Lock()
		if cur, ok := r.entries[spaceID]; ok && cur == e {
			delete(r.entries, spaceID)
		}
		r.mu.Unlock()
		return nil, e.err
	}
	return e.space, nil
}

// removeIfEmpty 空间空置时回收其条目；有人或已回收则不动
// 关闭动作在空间锁内打标记，避免与并发加入竞争
func (r *SpaceRegistry) removeIfEmpty(spaceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[spaceID]
	if !ok || e.space == nil {
		return false
	}
	if !e.space.tryClose() {
		return false
	}
	delete(r.entries, spaceID)
	metrics.activeSpaces.Dec()
	Log.Infof("space reclaimed: id=%s", spaceID)
	return true
}

// Sweep 清扫所有空置空间，返回回收数量（空置回收的兜底路径，
// 正常情况下最后一人离开时就会经 onEmpty 即时回收）
func (r *SpaceRegistry) Sweep() int {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id, e := range r.entries {
		if e.space != nil {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if r.removeIfEmpty(id) {
			removed++
		}
	}
	return removed
}

// Snapshots 管理接口用：所有空间的占用快照，按 id 排序
func (r *SpaceRegistry) Snapshots() []SpaceSnapshot {
	r.mu.Lock()
	spaces := make([]*Space, 0, len(r.entries))
	for _, e := range r.entries {
		if e.space != nil {
			spaces = append(spaces, e.space)
		}
	}
	r.mu.Unlock()

	out := make([]SpaceSnapshot, 0, len(spaces))
	for _, s := range spaces {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpaceID < out[j].SpaceID })
	return out
}
