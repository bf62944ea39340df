package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// HandleMetrics 输出运行指标与注册表概况
// GET /metrics
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"connections":     s.manager.ConnectionCount(),
		"max_connections": s.cfg.MaxConnectionCount,
		"worlds":          len(s.manager.Worlds()),
		"metrics":         s.metrics.Snapshot(),
	}
	writeJSON(w, http.StatusOK, payload)
}

// HandleAdminWorlds 世界管理
// GET    /admin/worlds          列出所有世界快照
// POST   /admin/worlds          {"name":"arena"} 创建世界
// DELETE /admin/worlds?id=1     移除世界
func (s *Server) HandleAdminWorlds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		worlds := s.manager.Worlds()
		out := make([]WorldSnapshot, 0, len(worlds))
		for _, wd := range worlds {
			out = append(out, wd.Snapshot())
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			http.Error(w, "missing name", http.StatusBadRequest)
			return
		}
		id := s.manager.AddWorld(NewWorld(name))
		s.log.Info("world created", zap.Uint64("world", uint64(id)), zap.String("name", name))
		writeJSON(w, http.StatusCreated, map[string]any{"id": id, "name": name})
	case http.MethodDelete:
		id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		if !s.manager.RemoveWorld(WorldID(id)) {
			http.Error(w, ErrWorldNotFound.Error(), http.StatusNotFound)
			return
		}
		s.log.Info("world removed", zap.Uint64("world", id))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
