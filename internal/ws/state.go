package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	diag "github.com/emberfield/pyre/internal/diagnostics"
	"github.com/emberfield/pyre/internal/engine"
	"github.com/emberfield/pyre/internal/fire"
	"github.com/emberfield/pyre/internal/selftest"
)

const writeTimeout = 200 * time.Millisecond

// State is the debug console: it streams rendered frames to websocket
// clients, pushes diagnostics, and applies control commands to the
// running loop.
type State struct {
	mu   sync.RWMutex
	loop *engine.Loop
	log  zerolog.Logger

	width    int
	height   int
	topology string
	count    int

	startTime   time.Time
	clients     map[*websocket.Conn]bool
	diagClients map[*websocket.Conn]bool
}

// NewState builds a console over a running loop.
func NewState(loop *engine.Loop, log zerolog.Logger) *State {
	s := &State{
		loop:        loop,
		log:         log,
		startTime:   time.Now(),
		clients:     map[*websocket.Conn]bool{},
		diagClients: map[*websocket.Conn]bool{},
	}
	loop.WithGenerator(func(g *fire.Generator) {
		if m := g.Mapping(); m != nil {
			s.width = m.Width()
			s.height = m.Height()
			s.topology = string(m.Topology())
			s.count = m.Count()
		}
	})
	return s
}

// Routes registers the console endpoints on mux.
func (s *State) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/frames", s.HandleFramesWS)
	mux.HandleFunc("/ws/diag", s.HandleDiagWS)
	mux.HandleFunc("/ws/control", s.HandleControlWS)
	mux.HandleFunc("/healthz", s.HandleHealth)
}

// OnFrame is installed as the loop's frame observer; it fans the frame
// out to all connected viewers.
func (s *State) OnFrame(frameID uint64, rgb []byte) {
	type frame struct {
		T       int64  `json:"t"`
		FrameID uint64 `json:"frame_id"`
		RGB     []byte `json:"rgb"`
	}
	b, _ := json.Marshal(frame{T: time.Now().UnixNano(), FrameID: frameID, RGB: rgb})

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			s.log.Debug().Err(err).Msg("write frame")
		}
	}
}

func (s *State) HandleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrade(w, r)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	s.sendTopology(conn)

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.clients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrade(w, r)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.diagClients[conn] = true
	s.mu.Unlock()
	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.diagClients, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *State) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrade(w, r)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.applyControl(msg)
		s.sendStatus(conn)
	}
}

func (s *State) HandleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.loop.Status()
	resp := map[string]any{
		"status":   st,
		"uptime_s": time.Since(s.startTime).Seconds(),
		"count":    s.count,
		"width":    s.width,
		"height":   s.height,
		"topology": s.topology,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *State) applyControl(msg map[string]any) {
	if _, ok := msg["clearHeat"]; ok {
		s.loop.WithGenerator(func(g *fire.Generator) { g.ClearHeat() })
		s.PushDiag(diag.Diagnostic{Severity: diag.Info, Code: "FIRE.CLEAR", Summary: "Heat field cleared"})
	}
	if _, ok := msg["restoreDefaults"]; ok {
		s.loop.WithGenerator(func(g *fire.Generator) { g.RestoreDefaults() })
		s.PushDiag(diag.Diagnostic{Severity: diag.Info, Code: "FIRE.DEFAULTS", Summary: "Tuning restored to defaults"})
	}
	if v, ok := msg["params"].(map[string]any); ok {
		s.applyParams(v)
	}
	if v, ok := msg["runTest"].(string); ok {
		kind := selftest.Kind(v)
		switch kind {
		case selftest.IndexSweep, selftest.RGBChannels, selftest.AllOn, selftest.PaletteRamp:
			s.loop.StartTest(selftest.Plan{Kind: kind})
			s.PushDiag(diag.Diagnostic{Severity: diag.Info, Code: "TEST.RUNNING", Summary: "Running self-test", Detail: v})
		default:
			s.PushDiag(diag.Diagnostic{
				Severity: diag.Warn, Code: "TEST.UNKNOWN", Summary: "Unknown self-test name",
				Evidence: map[string]any{"name": v},
			})
		}
	}
}

// applyParams overlays the supplied fields onto the current tuning set.
// Unnamed fields keep their running values; SetParams clamps the rest.
func (s *State) applyParams(fields map[string]any) {
	b, err := json.Marshal(fields)
	if err != nil {
		return
	}
	s.loop.WithGenerator(func(g *fire.Generator) {
		p := g.Params()
		if err := json.Unmarshal(b, &p); err != nil {
			s.PushDiag(diag.Diagnostic{
				Severity: diag.Warn, Code: "PARAMS.BAD", Summary: "Rejected tuning update",
				Detail: err.Error(),
			})
			return
		}
		g.SetParams(p)
	})
	s.PushDiag(diag.Diagnostic{Severity: diag.Info, Code: "PARAMS.SET", Summary: "Tuning updated"})
}

func (s *State) sendTopology(conn *websocket.Conn) {
	top := map[string]any{
		"width":    s.width,
		"height":   s.height,
		"topology": s.topology,
		"count":    s.count,
	}
	b, _ := json.Marshal(top)
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

func (s *State) sendStatus(conn *websocket.Conn) {
	b, _ := json.Marshal(s.loop.Status())
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = conn.WriteMessage(websocket.TextMessage, b)
}

// PushDiag fans a diagnostic event out to all diagnostic clients.
func (s *State) PushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.diagClients {
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}

func upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	up := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return up.Upgrade(w, r, nil)
}
