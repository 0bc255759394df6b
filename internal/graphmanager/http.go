package graphmanager

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// Router builds the graph manager's small HTTP API: registration,
// change notification, a snapshot query, and a live SSE stream.
func (m *Manager) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ping", m.handlePing).Methods(http.MethodGet)
	r.HandleFunc("/register-node", m.handleRegisterNode).Methods(http.MethodPost)
	r.HandleFunc("/notify", m.handleNotify).Methods(http.MethodPost)
	r.HandleFunc("/network-graph", m.handleNetworkGraph).Methods(http.MethodGet)
	r.HandleFunc("/network-stream", m.handleNetworkStream).Methods(http.MethodGet)
	return r
}

func (m *Manager) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerNodeRequest struct {
	Host string `json:"host"`
	Port string `json:"port"`
}

func (m *Manager) handleRegisterNode(w http.ResponseWriter, r *http.Request) {
	var req registerNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Host == "" || req.Port == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing host or port"})
		return
	}
	m.RegisterNode(req.Host, req.Port)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (m *Manager) handleNotify(w http.ResponseWriter, r *http.Request) {
	m.Notify()
	writeJSON(w, http.StatusOK, map[string]string{"status": "notified"})
}

func (m *Manager) handleNetworkGraph(w http.ResponseWriter, r *http.Request) {
	graph := m.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, graph)
}

// handleNetworkStream serves a Server-Sent Events stream: one immediate
// snapshot, then one push per subsequent broadcast, until the client
// disconnects. A slow or absent Flusher degrades to buffered writes
// rather than failing the request.
func (m *Manager) handleNetworkStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)

	writeEvent := func(g Graph) bool {
		payload, err := json.Marshal(g)
		if err != nil {
			return false
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			return false
		}
		if _, err := w.Write(payload); err != nil {
			return false
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}

	if !writeEvent(m.Snapshot(r.Context())) {
		return
	}

	ch, unsubscribe := m.subscribe()
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case graph, ok := <-ch:
			if !ok {
				return
			}
			if !writeEvent(graph) {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
