package wsbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quartzui/quartz/engine"
)

// ServerConfig configures the reference websocket server.
type ServerConfig struct {
	// Address is the listen address for ListenAndServe (default ":8420").
	Address string

	// ReadTimeout bounds how long a connection may stay silent before the
	// read loop gives up (default 60s).
	ReadTimeout time.Duration

	// WriteTimeout bounds each outgoing frame write (default 10s).
	WriteTimeout time.Duration

	// CheckOrigin overrides the websocket upgrader's origin policy
	// (default: same-origin only, the upgrader's own default).
	CheckOrigin func(r *http.Request) bool

	// Metrics, Tracer, and Reporter are handed to each session's Runtime.
	Metrics  engine.Metrics
	Tracer   engine.Tracer
	Reporter engine.PanicReporter

	// StormBudget bounds coroutine resumes per flush in each session.
	StormBudget *engine.StormBudgetConfig

	// Store is the optional shared template store (see S3TemplateStore).
	Store TemplateStore
}

// Server mounts one root component per websocket connection and streams
// committed DOM patches to the peer: the concrete deployment of the
// scheduler's commit transport. Alongside the upgrade endpoint
// it exposes /healthz and Prometheus /metrics on a chi mux.
type Server struct {
	root     engine.ComponentFunc
	cfg      ServerConfig
	mux      *chi.Mux
	upgrader websocket.Upgrader
	logger   *slog.Logger

	httpServer *http.Server
}

// clientEvent is one incoming event frame from the thin client.
type clientEvent struct {
	Type    string         `json:"type"`
	NodeID  string         `json:"nodeId"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
}

// patchFrame is one outgoing frame: every patch committed since the last
// flush, in commit order.
type patchFrame struct {
	Type    string  `json:"type"`
	Seq     uint64  `json:"seq"`
	Patches []Patch `json:"patches"`
}

// NewServer returns a Server rendering root for each connection.
func NewServer(root engine.ComponentFunc, cfg ServerConfig) *Server {
	if cfg.Address == "" {
		cfg.Address = ":8420"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	s := &Server{
		root:   root,
		cfg:    cfg,
		logger: slog.Default().With("component", "wsbackend"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWS)
	s.mux = r
	return s
}

// Handler returns the server's HTTP handler, for mounting under an outer
// router or an httptest server.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", "addr", s.cfg.Address)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		return
	}
	sess := s.newSession(conn, r.Context())
	sess.run()
}

// session is one connected client: a Document, a Loop, a Runtime, and the
// mounted root component, all driven from the connection's read loop so
// engine work stays single-threaded per session.
type session struct {
	server  *Server
	conn    *websocket.Conn
	doc     *Document
	loop    *Loop
	backend *Backend
	runtime *engine.Runtime
	logger  *slog.Logger
	seq     uint64
}

func (s *Server) newSession(conn *websocket.Conn, ctx context.Context) *session {
	doc := NewDocument()
	loop := NewLoop()
	backend := New(doc, loop, BackendConfig{Store: s.cfg.Store, Context: ctx})
	runtime := engine.NewRuntime(backend, engine.RuntimeConfig{
		StormBudget:   s.cfg.StormBudget,
		Metrics:       s.cfg.Metrics,
		Tracer:        s.cfg.Tracer,
		PanicReporter: s.cfg.Reporter,
	})
	return &session{
		server:  s,
		conn:    conn,
		doc:     doc,
		loop:    loop,
		backend: backend,
		runtime: runtime,
		logger:  s.logger.With("session", doc.Anchor.ID()),
	}
}

func (sess *session) run() {
	defer sess.conn.Close()

	engine.MountComponent(sess.server.root, sess.doc.MountPart(), sess.runtime)
	sess.loop.RunUntilIdle()
	sess.backend.SetLoaded()
	if err := sess.flushPatches(); err != nil {
		sess.logger.Error("initial flush failed", "error", err)
		return
	}

	for {
		sess.conn.SetReadDeadline(time.Now().Add(sess.server.cfg.ReadTimeout))
		_, msg, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				sess.logger.Error("read error", "error", err)
			}
			return
		}

		var ev clientEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			sess.logger.Error("event decode error", "error", err)
			continue
		}
		if ev.Type != "event" {
			sess.logger.Warn("unknown frame type", "type", ev.Type)
			continue
		}

		sess.dispatch(ev)
		if err := sess.flushPatches(); err != nil {
			sess.logger.Error("flush failed", "error", err)
			return
		}
	}
}

// dispatch routes one client event to the handler the event primitive
// registered on the target node, runs it under the ambient-event priority
// inference, and drains the loop so every update the handler
// scheduled commits before the reply flush.
func (sess *session) dispatch(ev clientEvent) {
	node, ok := sess.doc.ByID(ev.NodeID)
	if !ok {
		sess.logger.Warn("event for unknown node", "node", ev.NodeID, "event", ev.Event)
		return
	}
	handler, ok := node.Handler(ev.Event)
	if !ok {
		sess.logger.Warn("no handler registered", "node", ev.NodeID, "event", ev.Event)
		return
	}

	sess.backend.WithAmbientEvent(ev.Event, func() {
		invokeHandler(handler, ev.Payload)
		sess.loop.RunUntilIdle()
	})
}

// invokeHandler adapts the two supported handler shapes: a niladic
// callback and one taking the event payload.
func invokeHandler(handler any, payload map[string]any) {
	switch h := handler.(type) {
	case func():
		h()
	case func(map[string]any):
		h(payload)
	default:
		slog.Warn("unsupported handler type", "type", fmt.Sprintf("%T", handler))
	}
}

func (sess *session) flushPatches() error {
	patches := sess.doc.Drain()
	if len(patches) == 0 {
		return nil
	}
	sess.seq++
	frame := patchFrame{Type: "patches", Seq: sess.seq, Patches: patches}
	body, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	sess.conn.SetWriteDeadline(time.Now().Add(sess.server.cfg.WriteTimeout))
	return sess.conn.WriteMessage(websocket.TextMessage, body)
}
