package overlay

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-balltrack/internal/log"
	"github.com/teslashibe/go-balltrack/pkg/frame"
	"github.com/teslashibe/go-balltrack/pkg/protocol"
	"github.com/teslashibe/go-balltrack/pkg/tracking"
	"github.com/teslashibe/go-balltrack/pkg/tracking/detection"
)

func newTracker(t *testing.T, b tracking.Backend, load detection.ModelLoader) *tracking.Tracker {
	t.Helper()
	cfg := tracking.DefaultConfig()
	cfg.Backend = b
	cfg.Grid.Geometry.InputWidth = 48
	cfg.Grid.Geometry.InputHeight = 27
	cfg.Logger = log.Discard()
	tr := tracking.New(cfg, load)
	t.Cleanup(func() { tr.Close() })
	return tr
}

func ballInput(cx, cy, i int) tracking.Input {
	f := frame.New(100, 100, frame.BGRA)
	f.Timestamp = time.Duration(i) * 33 * time.Millisecond
	for y := cy - 1; y <= cy+1; y++ {
		for x := cx - 1; x <= cx+1; x++ {
			f.SetRGB(x, y, 190, 240, 40)
		}
	}
	return tracking.Input{Frame: f}
}

// startServer listens on a fixed local port, like a deployed overlay would.
func startServer(t *testing.T, tr *tracking.Tracker, port string) *Server {
	t.Helper()
	s := NewServer("127.0.0.1:"+port, tr, log.Discard())
	s.StartAsync(context.Background())
	t.Cleanup(func() { s.Shutdown() })

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("tcp", "127.0.0.1:"+port)
		if err == nil {
			conn.Close()
			return s
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server on port %s did not start", port)
	return nil
}

func doJSON(t *testing.T, s *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func TestAPIStatus(t *testing.T) {
	tr := newTracker(t, tracking.BackendColor, nil)
	s := NewServer("", tr, log.Discard())

	code, body := doJSON(t, s, "GET", "/api/status", "")
	if code != 200 {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["backend"] != "color" {
		t.Errorf("backend = %v, want color", body["backend"])
	}
	if body["session"] != tr.Session().String() {
		t.Errorf("session = %v, want %s", body["session"], tr.Session())
	}
	if body["grid_ready"] != false {
		t.Errorf("grid_ready = %v, want false without a model", body["grid_ready"])
	}
}

func TestAPITuning(t *testing.T) {
	tr := newTracker(t, tracking.BackendColor, nil)
	s := NewServer("", tr, log.Discard())

	code, body := doJSON(t, s, "GET", "/api/tuning", "")
	if code != 200 {
		t.Fatalf("GET status = %d", code)
	}
	if body["min_green"] != float64(150) {
		t.Errorf("min_green = %v, want 150", body["min_green"])
	}

	code, body = doJSON(t, s, "POST", "/api/tuning", `{"threshold":0.7,"min_green":160,"slot":2}`)
	if code != 200 {
		t.Fatalf("POST status = %d: %v", code, body)
	}
	if body["threshold"] != 0.7 || body["min_green"] != float64(160) || body["slot"] != float64(2) {
		t.Errorf("POST response = %v", body)
	}
	if got := tr.Status().Slot; got != 2 {
		t.Errorf("tracker slot = %d, want 2", got)
	}
}

func TestAPITuning_Errors(t *testing.T) {
	tr := newTracker(t, tracking.BackendColor, nil)
	s := NewServer("", tr, log.Discard())

	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"threshold":`},
		{"slot out of range", `{"slot":9}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doJSON(t, s, "POST", "/api/tuning", tt.body)
			if code != 400 {
				t.Errorf("status = %d, want 400", code)
			}
			if body["error"] == nil {
				t.Error("expected error field")
			}
		})
	}
}

func TestAPIBackend(t *testing.T) {
	tr := newTracker(t, tracking.BackendColor, nil)
	s := NewServer("", tr, log.Discard())

	tests := []struct {
		name     string
		backend  string
		wantCode int
		want     tracking.Backend
	}{
		{"switch to grid", "grid", 200, tracking.BackendGrid},
		{"neural alias", "neural", 200, tracking.BackendGrid},
		{"back to color", "color", 200, tracking.BackendColor},
		{"unknown", "sonar", 400, tracking.BackendColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doJSON(t, s, "POST", "/api/backend/"+tt.backend, "")
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %v", code, tt.wantCode, body)
			}
			if got := tr.Backend(); got != tt.want {
				t.Errorf("Backend() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAPIReset(t *testing.T) {
	tr := newTracker(t, tracking.BackendColor, nil)
	s := NewServer("", tr, log.Discard())

	tr.ProcessFrame(context.Background(), ballInput(60, 60, 0))
	if tr.State() != detection.Tracking {
		t.Fatalf("State() = %s before reset", tr.State())
	}

	code, _ := doJSON(t, s, "POST", "/api/reset", "")
	if code != 200 {
		t.Fatalf("status = %d", code)
	}
	if tr.State() != detection.NoFix {
		t.Errorf("State() = %s after reset, want no_fix", tr.State())
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	tr := newTracker(t, tracking.BackendColor, nil)
	s := NewServer("", tr, log.Discard())

	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/positions", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 426 {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}

func TestConvertPosition(t *testing.T) {
	p := tracking.Position{
		Point:      detection.Point{X: 0.25, Y: 0.75},
		Found:      true,
		Backend:    tracking.BackendGrid,
		State:      detection.Tracking,
		Timestamp:  1500 * time.Millisecond,
		Slot:       4,
		Confidence: 0.9,
	}
	got := PositionData(p)
	want := protocol.PositionData{X: 0.25, Y: 0.75, Found: true, Backend: "grid", State: "tracking", Slot: 4, FrameMs: 1500, Confidence: 0.9}
	if got != want {
		t.Errorf("PositionData() = %+v, want %+v", got, want)
	}
}

func TestConvertSamples(t *testing.T) {
	in := []detection.Sample{
		{Slot: 0, Timestamp: 0, Position: detection.Point{X: 0.9, Y: 0.9}, Found: false, Confidence: 0.2},
		{Slot: 1, Timestamp: 33 * time.Millisecond, Position: detection.Point{X: 0.5, Y: 0.4}, Found: true, Confidence: 0.8},
	}
	got := SampleData(in)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].X != 0 || got[0].Y != 0 {
		t.Errorf("sample without a fix carries a position: %+v", got[0])
	}
	if got[1].X != 0.5 || got[1].Y != 0.4 || got[1].FrameMs != 33 {
		t.Errorf("sample 1 = %+v", got[1])
	}
}
