package server

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// debugServer is the loopback-only inspector (§A.2, domain stack):
// GET /channels for a JSON snapshot, and a websocket tail endpoint for
// watching one channel's raw output live. Run refuses any address that
// is not loopback; enabled with `nexus serve --debug-addr`, not for
// remote access.
type debugServer struct {
	addr string
	srv  *Server
	http *http.Server
}

func newDebugServer(addr string, s *Server) *debugServer {
	r := chi.NewRouter()
	d := &debugServer{addr: addr, srv: s}

	r.Get("/channels", d.handleChannels)
	r.Get("/tail/{name}", d.handleTail)

	d.http = &http.Server{Addr: addr, Handler: r}
	return d
}

func (d *debugServer) Run() error {
	host, _, err := net.SplitHostPort(d.addr)
	if err != nil {
		return fmt.Errorf("server: debug addr %q: %w", d.addr, err)
	}
	if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return fmt.Errorf("server: debug addr %q is not a loopback address", d.addr)
	}
	return d.http.ListenAndServe()
}

func (d *debugServer) Close() error {
	return d.http.Close()
}

func (d *debugServer) handleChannels(w http.ResponseWriter, r *http.Request) {
	infos := d.srv.registry.List()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(infos)
}

var tailUpgrader = websocket.Upgrader{
	// Loopback only, so every origin is accepted; no origin check is
	// made.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleTail streams every Output chunk for one channel as a binary
// websocket frame, using the same subscription/bus machinery a real
// client session would.
func (d *debugServer) handleTail(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	conn, err := tailUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := d.srv.bus.Subscribe()
	defer sub.Close()
	sub.Subs().Add([]string{name})

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-sub.Wake():
			chunks, _ := sub.Drain()
			for _, c := range chunks {
				if c.Channel != name {
					continue
				}
				if err := conn.WriteMessage(websocket.BinaryMessage, c.Data); err != nil {
					return
				}
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
