package overlay

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-balltrack/pkg/hub"
	"github.com/teslashibe/go-balltrack/pkg/protocol"
	"github.com/teslashibe/go-balltrack/pkg/tracking"
	"github.com/teslashibe/go-balltrack/pkg/tracking/detection"
)

// handleStatus returns the tracker status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.tracker.Status())
}

// handleGetTuning returns current tuning parameters
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(s.tracker.GetTuningParams())
}

// handleSetTuning applies the non-zero fields of the request body
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var params tracking.TuningParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid tuning body: " + err.Error(),
		})
	}

	if err := s.tracker.SetTuningParams(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.logger.Info("tuning updated", "params", params)
	s.BroadcastState()
	return c.JSON(s.tracker.GetTuningParams())
}

// handleSetBackend switches the active backend
func (s *Server) handleSetBackend(c *fiber.Ctx) error {
	b, err := tracking.ParseBackend(c.Params("name"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err := s.tracker.SetBackend(b); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.BroadcastState()
	st := s.tracker.Status()
	return c.JSON(fiber.Map{
		"backend":    b,
		"grid_error": st.GridError,
	})
}

// handleReset clears both backends
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.tracker.Reset()
	s.BroadcastState()
	return c.JSON(fiber.Map{"reset": true})
}

// subscription tracks what one websocket connection wants to receive.
type subscription struct {
	mu      sync.Mutex
	slot    int
	samples bool
	unsub   func()
}

// handlePositionsWS streams positions to one overlay renderer. Each
// connection is its own tracker consumer so it can follow its own slot.
// The initial slot and sample stream come from ?slot= and ?samples=, and a
// subscribe message changes them later.
func (s *Server) handlePositionsWS(conn *websocket.Conn) {
	client := hub.NewClient(s.stateHub, conn)
	logger := s.logger.With("client", client.ID)

	sub := &subscription{slot: tracking.DefaultSlot}
	if v := conn.Query("slot"); v != "" {
		if slot, err := strconv.Atoi(v); err == nil {
			sub.slot = slot
		}
	}
	sub.samples = conn.Query("samples") == "1" || conn.Query("samples") == "true"

	s.subscribe(client, sub)
	defer func() {
		sub.mu.Lock()
		sub.unsub()
		sub.mu.Unlock()
	}()

	// Send current state
	if msg, err := stateMessage(s.tracker.Status()); err == nil {
		client.Send(msg)
	}

	client.OnMessage = func(data []byte) {
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			logger.Debug("ignoring malformed message", "error", err)
			return
		}

		switch msg.Type {
		case protocol.TypeSubscribe:
			req, err := msg.GetSubscribeData()
			if err != nil {
				logger.Debug("invalid subscribe", "error", err)
				return
			}
			slot := tracking.DefaultSlot
			if req.Slot != nil {
				slot = *req.Slot
			}
			sub.mu.Lock()
			sub.slot = slot
			sub.samples = req.Samples
			sub.mu.Unlock()
			s.subscribe(client, sub)
			logger.Info("subscription changed", "slot", slot, "samples", req.Samples)

		case protocol.TypePing:
			ping, err := msg.GetPingData()
			if err != nil {
				return
			}
			pong, err := encode(protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli()))
			if err == nil {
				client.Send(pong)
			}
		}
	}

	client.Run() // Blocks until connection closes
}

// subscribe (re)registers the connection's consumer. The consumer name is
// the client id, so a later call replaces the earlier one.
func (s *Server) subscribe(client *hub.Client, sub *subscription) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	consumer := tracking.Consumer{
		Name: "ws-" + client.ID,
		Slot: sub.slot,
		OnPosition: func(p tracking.Position) {
			msg, err := positionMessage(p)
			if err != nil {
				s.logger.Warn("encode position", "error", err)
				return
			}
			client.Send(msg)
		},
	}
	if sub.samples {
		consumer.OnSamples = func(samples []detection.Sample) {
			if msg, err := samplesMessage(samples); err == nil {
				client.Send(msg)
			}
		}
	}
	sub.unsub = s.tracker.Subscribe(consumer)
}
