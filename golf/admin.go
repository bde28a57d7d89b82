package golf

import (
	"encoding/json"
	"net/http"
)

// HandleMetrics 输出运行指标
// GET /metrics
func (g *Game) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	payload := map[string]any{
		"hole":    g.progression.Hole(),
		"metrics": g.metrics.Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// HandleState 输出流程状态与当前洞会话快照
// GET /state
func (g *Game) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	payload := map[string]any{
		"progress": g.progression.Snapshot(),
		"session":  g.View(),
	}
	if ms, ok := g.deps.Scene.(*MemScene); ok {
		payload["scene"] = ms.Nodes()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// AdminMux 管理与监控接口
func (g *Game) AdminMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", g.HandleMetrics)
	mux.HandleFunc("/state", g.HandleState)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
