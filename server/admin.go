package server

import (
	"encoding/json"
	"net/http"
)

// Admin 管理与监控接口：占用快照读取、运行参数热更新
type Admin struct {
	Registry *SpaceRegistry
	Auth     *Authenticator
}

// HandleSpaces 输出所有空间的占用快照
// GET /admin/spaces
func (a *Admin) HandleSpaces(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"spaces": a.Registry.Snapshots(),
	})
}

// HandleConfig 提供运行配置的读取与更新（热更新基本规则）
// GET  /admin/config           返回当前配置
// POST /admin/config           以 JSON 载荷更新部分字段
func (a *Admin) HandleConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		SpawnX         *int  `json:"spawnX,omitempty"`
		SpawnY         *int  `json:"spawnY,omitempty"`
		AllowAnonymous *bool `json:"allowAnonymous,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		spawn := a.Registry.Spawn()
		anon := a.Auth.AllowAnonymous()
		cur := cfg{SpawnX: &spawn.X, SpawnY: &spawn.Y, AllowAnonymous: &anon}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cur)
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		spawn := a.Registry.Spawn()
		if body.SpawnX != nil {
			spawn.X = *body.SpawnX
		}
		if body.SpawnY != nil {
			spawn.Y = *body.SpawnY
		}
		a.Registry.SetSpawn(spawn)
		if body.AllowAnonymous != nil {
			a.Auth.SetAllowAnonymous(*body.AllowAnonymous)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		Log.Infof("config updated: spawn=(%d,%d) allowAnonymous=%v",
			spawn.X, spawn.Y, a.Auth.AllowAnonymous())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
