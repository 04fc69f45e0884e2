package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Router wires the host server's HTTP surface: /ws/user, /ws/hub and
// /healthz, following the gorilla/mux route layout of GabinFqt-bombz's
// server in place of the teacher's bare http.HandleFunc mux.
type Router struct {
	mux      *mux.Router
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewRouter builds a Router. onUserConn and onHubConn are invoked with a
// live *Conn for each accepted websocket upgrade.
func NewRouter(enableCORS bool, logger *slog.Logger, onUserConn, onHubConn func(*Conn)) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux: mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger,
	}
	if enableCORS {
		r.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	r.mux.HandleFunc("/ws/user", r.handleUpgrade(onUserConn))
	r.mux.HandleFunc("/ws/hub", r.handleUpgrade(onHubConn))
	r.mux.HandleFunc("/healthz", r.handleHealth).Methods("GET")

	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) handleUpgrade(onConn func(*Conn)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ws, err := r.upgrader.Upgrade(w, req, nil)
		if err != nil {
			r.log.Warn("transport: websocket upgrade failed", "err", err)
			return
		}
		onConn(NewConn(ws, r.log))
	}
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
