package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-balltrack/pkg/protocol"
)

const writeWait = 5 * time.Second

// Subscriber receives positions from an overlay server. Renderers written
// in Go use it instead of talking to the websocket directly.
type Subscriber struct {
	ws   *websocket.Conn
	wsMu sync.Mutex

	logger *slog.Logger
	done   chan struct{}
	err    error

	// Callbacks, set before Run
	OnPosition func(protocol.PositionData)
	OnSamples  func([]protocol.SampleData)
	OnState    func(protocol.StateData)
	OnPong     func(protocol.PongData)
}

// SubscribeOptions selects what the server streams to this subscriber.
type SubscribeOptions struct {
	// Slot is the preferred grid slot, or -1 for the tracker default.
	Slot int
	// Samples also streams every slot of each grid inference.
	Samples bool
}

// Dial connects to the positions websocket at baseURL, e.g.
// "ws://localhost:8090".
func Dial(ctx context.Context, baseURL string, opts SubscribeOptions, logger *slog.Logger) (*Subscriber, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid overlay url: %w", err)
	}
	u.Path = "/ws/positions"
	q := u.Query()
	if opts.Slot >= 0 {
		q.Set("slot", strconv.Itoa(opts.Slot))
	}
	if opts.Samples {
		q.Set("samples", "1")
	}
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to overlay: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		ws:     ws,
		logger: logger.With("component", "subscriber"),
		done:   make(chan struct{}),
	}, nil
}

// Run reads messages and dispatches them to the callbacks until the
// connection closes or ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	defer close(s.done)

	stop := context.AfterFunc(ctx, func() { s.ws.Close() })
	defer stop()

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				s.err = ctx.Err()
			} else if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.err = err
			}
			return s.err
		}
		s.dispatch(data)
	}
}

func (s *Subscriber) dispatch(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Debug("ignoring malformed message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypePosition:
		if p, err := msg.GetPositionData(); err == nil && s.OnPosition != nil {
			s.OnPosition(*p)
		}
	case protocol.TypeSamples:
		if d, err := msg.GetSamplesData(); err == nil && s.OnSamples != nil {
			s.OnSamples(d.Samples)
		}
	case protocol.TypeState:
		if st, err := msg.GetStateData(); err == nil && s.OnState != nil {
			s.OnState(*st)
		}
	case protocol.TypePong:
		if p, err := msg.GetPongData(); err == nil && s.OnPong != nil {
			s.OnPong(*p)
		}
	}
}

// Subscribe changes the slot and sample stream of a live connection.
func (s *Subscriber) Subscribe(opts SubscribeOptions) error {
	msg, err := protocol.NewSubscribeMessage(opts.Slot, opts.Samples)
	if err != nil {
		return err
	}
	return s.send(msg)
}

// Ping asks the server for a pong carrying the round-trip latency.
func (s *Subscriber) Ping(id string) error {
	msg, err := protocol.NewPingMessage(id)
	if err != nil {
		return err
	}
	return s.send(msg)
}

func (s *Subscriber) send(msg *protocol.Message) error {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()
	s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteJSON(msg)
}

// Close sends a close frame, best effort, and closes the connection.
func (s *Subscriber) Close() error {
	s.wsMu.Lock()
	s.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.wsMu.Unlock()
	return s.ws.Close()
}

// Done is closed when Run returns.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}
