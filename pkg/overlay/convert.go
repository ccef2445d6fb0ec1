package overlay

import (
	"time"

	"github.com/teslashibe/go-balltrack/pkg/hub"
	"github.com/teslashibe/go-balltrack/pkg/protocol"
	"github.com/teslashibe/go-balltrack/pkg/tracking"
	"github.com/teslashibe/go-balltrack/pkg/tracking/detection"
)

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// PositionData converts a tracker position to its wire form.
func PositionData(p tracking.Position) protocol.PositionData {
	return protocol.PositionData{
		X:          p.Point.X,
		Y:          p.Point.Y,
		Found:      p.Found,
		Backend:    string(p.Backend),
		State:      p.State.String(),
		Slot:       p.Slot,
		FrameMs:    millis(p.Timestamp),
		Confidence: p.Confidence,
	}
}

// SampleData converts grid samples to their wire form, oldest first.
func SampleData(samples []detection.Sample) []protocol.SampleData {
	out := make([]protocol.SampleData, len(samples))
	for i, s := range samples {
		out[i] = protocol.SampleData{
			Slot:       s.Slot,
			FrameMs:    millis(s.Timestamp),
			Found:      s.Found,
			Confidence: s.Confidence,
		}
		if s.Found {
			out[i].X = s.Position.X
			out[i].Y = s.Position.Y
		}
	}
	return out
}

// StateData converts a tracker status to its wire form.
func StateData(st tracking.Status) protocol.StateData {
	return protocol.StateData{
		Session:   st.Session,
		Backend:   string(st.Backend),
		State:     st.State,
		GridReady: st.GridReady,
		Slot:      st.Slot,
		Frames:    st.Frames,
	}
}

func encode(msg *protocol.Message, err error) (hub.Message, error) {
	if err != nil {
		return hub.Message{}, err
	}
	b, err := msg.Bytes()
	if err != nil {
		return hub.Message{}, err
	}
	return hub.NewMessage(string(msg.Type), b), nil
}

func positionMessage(p tracking.Position) (hub.Message, error) {
	return encode(protocol.NewPositionMessage(PositionData(p)))
}

func samplesMessage(s []detection.Sample) (hub.Message, error) {
	return encode(protocol.NewSamplesMessage(SampleData(s)))
}

func stateMessage(st tracking.Status) (hub.Message, error) {
	return encode(protocol.NewStateMessage(StateData(st)))
}
