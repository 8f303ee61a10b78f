package server

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tour360/editor/internal/dispatcher"
	"github.com/tour360/editor/internal/engine/websocket"
	"github.com/tour360/editor/internal/handlers"
	"github.com/tour360/editor/internal/viewer"
	"github.com/tour360/editor/pkg/streaming"
)

// viewerSession upgrades the request and runs one viewer session driven by
// the browser shell on the other end until either side goes away.
func (s *Server) viewerSession(c *gin.Context) {
	raw, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	s.sessions.Add(1)
	defer s.sessions.Done()

	id := uuid.NewString()
	log := s.deps.Logger.With("session", id)
	conn := websocket.NewConn(raw, log)
	defer conn.Close()
	remote := websocket.NewRemote(conn, log)

	opts := viewer.Options{
		Store:        s.deps.Store,
		Engines:      remote.New,
		Logger:       log,
		Engine:       s.engineConfig(),
		DragDeadZone: s.deps.Viewer.DragDeadZone,
	}
	if s.deps.Media != nil {
		opts.Images = s.deps.Media
	}
	session, err := viewer.NewSession(opts)
	if err != nil {
		log.Error("Failed to start viewer session", "error", err)
		return
	}
	defer session.Close()

	d, err := dispatcher.New(log)
	if err != nil {
		log.Error("Failed to create dispatcher", "error", err)
		return
	}
	defer d.Close()
	handlers.NewService(handlers.Dependencies{Session: session, Engine: remote, Logger: log}).Register(d)

	forward := handlers.Forward(session, conn, log)
	defer forward.Remove()
	for _, sink := range s.deps.EventSinks {
		h := session.Subscribe(sink)
		defer h.Remove()
	}

	log.Info("Viewer session started", "remote", c.Request.RemoteAddr)
	err = conn.Serve(s.ctx, func(env streaming.Envelope) {
		conn.Reply(handlers.Reply(d, env, id))
	})
	if err != nil {
		log.Warn("Viewer session ended with error", "error", err)
		return
	}
	log.Info("Viewer session ended")
}
