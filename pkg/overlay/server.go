// Package overlay streams tracked ball positions to overlay renderers over
// websocket and exposes a small HTTP API for status and runtime tuning.
package overlay

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-balltrack/pkg/hub"
	"github.com/teslashibe/go-balltrack/pkg/tracking"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8090"

// Server is the overlay server
type Server struct {
	app     *fiber.App
	addr    string
	tracker *tracking.Tracker
	logger  *slog.Logger

	// Hub for websocket broadcast of tracker state (thread-safe!)
	stateHub *hub.Hub

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewServer creates an overlay server for t.
func NewServer(addr string, t *tracking.Tracker, logger *slog.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "overlay")

	s := &Server{
		addr:     addr,
		tracker:  t,
		logger:   logger,
		stateHub: hub.New("positions", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Ball Tracker Overlay",
		DisableStartupMessage: true,
	})

	// CORS for renderers served from another origin
	app.Use(cors.New())

	s.registerRoutes(app)
	s.app = app
	return s
}

func (s *Server) registerRoutes(app *fiber.App) {
	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	api.Post("/backend/:name", s.handleSetBackend)
	api.Post("/reset", s.handleReset)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/positions", websocket.New(s.handlePositionsWS))
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hub and blocks serving HTTP until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	go s.stateHub.Run(ctx)

	s.logger.Info("overlay listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("overlay server error", "error", err)
		}
	}()
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	return s.stateHub.ClientCount()
}

// BroadcastState sends the current tracker state to every client.
func (s *Server) BroadcastState() {
	msg, err := stateMessage(s.tracker.Status())
	if err != nil {
		s.logger.Warn("encode state", "error", err)
		return
	}
	s.stateHub.Broadcast(msg)
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	return s.app.Shutdown()
}
