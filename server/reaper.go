package server

import (
	"sync"
	"time"
)

// StartReaper 启动空置空间的周期清扫协程，返回停止函数
// 正常路径是最后一人离开时即时回收，这里只做兜底，
// 防止极端竞争下有空条目滞留导致内存缓慢增长
func StartReaper(reg *SpaceRegistry, interval time.Duration) (stop func()) {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := reg.Sweep(); n > 0 {
					Log.Infof("reaper: reclaimed %d empty spaces", n)
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
