package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// newTestDirectory 返回可控的目录服务：按空间 id 回静态布局并统计命中
func newTestDirectory(t *testing.T, fail *atomic.Bool) (*DirectoryClient, *atomic.Int64, func()) {
	t.Helper()
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail != nil && fail.Load() {
			http.Error(w, "directory down", http.StatusInternalServerError)
			return
		}
		if r.URL.Path == "/space/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"space":{"elements":[]}}`))
	}))
	return NewDirectoryClient(ts.URL), &hits, ts.Close
}

func testDefaults() SpaceDefaults {
	return SpaceDefaults{Width: 100, Height: 100}
}

func TestGetOrCreateCachesLayout(t *testing.T) {
	dir, hits, closeFn := newTestDirectory(t, nil)
	defer closeFn()
	reg := NewSpaceRegistry(dir, testDefaults())

	s1, err := reg.GetOrCreate(context.Background(), "room1")
	if err != nil {
		t.Fatalf("first GetOrCreate: %v", err)
	}
	s2, err := reg.GetOrCreate(context.Background(), "room1")
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("expected the same space instance")
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("directory hit %d times, want 1 (cached thereafter)", n)
	}
	// 目录没给边界：落到配置默认值
	if s1.Width != 100 || s1.Height != 100 {
		t.Fatalf("grid = %dx%d, want defaults 100x100", s1.Width, s1.Height)
	}
}

func TestGetOrCreateUnknownSpace(t *testing.T) {
	dir, _, closeFn := newTestDirectory(t, nil)
	defer closeFn()
	reg := NewSpaceRegistry(dir, testDefaults())

	_, err := reg.GetOrCreate(context.Background(), "missing")
	if !errors.Is(err, ErrSpaceNotFound) {
		t.Fatalf("err = %v, want ErrSpaceNotFound", err)
	}
}

func TestDirectoryFailureAllowsRetry(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	dir, hits, closeFn := newTestDirectory(t, &fail)
	defer closeFn()
	reg := NewSpaceRegistry(dir, testDefaults())

	if _, err := reg.GetOrCreate(context.Background(), "room1"); err == nil {
		t.Fatalf("expected error while directory is down")
	}
	// 失败不能把条目留成“毒”：恢复后同一空间可以再建
	fail.Store(false)
	if _, err := reg.GetOrCreate(context.Background(), "room1"); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("directory hit %d times, want 2", n)
	}
}

func TestEmptySpaceReclaimedOnLastLeave(t *testing.T) {
	dir, hits, closeFn := newTestDirectory(t, nil)
	defer closeFn()
	reg := NewSpaceRegistry(dir, testDefaults())

	space, err := reg.GetOrCreate(context.Background(), "room1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	conn := &fakeConn{}
	sess, ok := space.Join(conn, "alice", Point{})
	if !ok {
		t.Fatalf("join failed")
	}
	space.Leave(sess)

	// 最后一人离开即回收；再次加入重新走目录
	again, err := reg.GetOrCreate(context.Background(), "room1")
	if err != nil {
		t.Fatalf("GetOrCreate after reclaim: %v", err)
	}
	if again == space {
		t.Fatalf("expected a fresh space after reclaim")
	}
	if n := hits.Load(); n != 2 {
		t.Fatalf("directory hit %d times, want 2 (one per space lifetime)", n)
	}
}

func TestSweepKeepsOccupiedSpaces(t *testing.T) {
	dir, _, closeFn := newTestDirectory(t, nil)
	defer closeFn()
	reg := NewSpaceRegistry(dir, testDefaults())

	occupied, _ := reg.GetOrCreate(context.Background(), "busy")
	if _, ok := occupied.Join(&fakeConn{}, "alice", Point{}); !ok {
		t.Fatalf("join failed")
	}
	if _, err := reg.GetOrCreate(context.Background(), "idle"); err != nil {
		t.Fatalf("GetOrCreate idle: %v", err)
	}

	if n := reg.Sweep(); n != 1 {
		t.Fatalf("sweep reclaimed %d spaces, want 1", n)
	}
	// 有人的空间必须原样保留
	still, err := reg.GetOrCreate(context.Background(), "busy")
	if err != nil {
		t.Fatalf("GetOrCreate busy: %v", err)
	}
	if still != occupied {
		t.Fatalf("occupied space must survive the sweep")
	}
	if n := still.NumSessions(); n != 1 {
		t.Fatalf("sessions = %d, want 1", n)
	}
}

func TestClosedSpaceRefusesJoin(t *testing.T) {
	dir, _, closeFn := newTestDirectory(t, nil)
	defer closeFn()
	reg := NewSpaceRegistry(dir, testDefaults())

	space, _ := reg.GetOrCreate(context.Background(), "room1")
	if !reg.removeIfEmpty("room1") {
		t.Fatalf("empty space should be reclaimable")
	}
	// 回收窗口内迟到的加入必须拿到 ok=false 并重取注册表
	if _, ok := space.Join(&fakeConn{}, "alice", Point{}); ok {
		t.Fatalf("join on a closed space must be refused")
	}
	fresh, err := reg.GetOrCreate(context.Background(), "room1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if _, ok := fresh.Join(&fakeConn{}, "alice", Point{}); !ok {
		t.Fatalf("join on the fresh space should succeed")
	}
}
