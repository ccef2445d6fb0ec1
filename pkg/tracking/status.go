package tracking

import "github.com/teslashibe/go-balltrack/pkg/tracking/detection"

// Status is a point-in-time snapshot of the tracker.
type Status struct {
	Session   string   `json:"session"`
	Backend   Backend  `json:"backend"`
	State     string   `json:"state"`
	Consumers []string `json:"consumers"`

	Frames    int64 `json:"frames"`
	Published int64 `json:"published"`

	// Color backend
	Misses int `json:"misses"`

	// Grid backend
	GridReady    bool                `json:"grid_ready"`
	GridError    string              `json:"grid_error,omitempty"`
	GridBuffered int                 `json:"grid_buffered"`
	GridInFlight bool                `json:"grid_in_flight"`
	GridStats    detection.GridStats `json:"grid_stats"`
	Slot         int                 `json:"slot"`

	Last Position `json:"last"`
}

// Status returns a snapshot for dashboards and health checks.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	names := make([]string, len(t.consumers))
	for i, c := range t.consumers {
		names[i] = c.Name
	}
	active := t.active
	last := t.last
	t.mu.RUnlock()

	s := Status{
		Session:      t.session.String(),
		Backend:      active,
		State:        t.State().String(),
		Consumers:    names,
		Frames:       t.frames.Load(),
		Published:    t.published.Load(),
		Misses:       t.color.Misses(),
		GridReady:    t.grid.IsReady(),
		GridBuffered: t.grid.Buffered(),
		GridInFlight: t.grid.InFlight(),
		GridStats:    t.grid.Stats(),
		Slot:         t.grid.Config().Slot,
		Last:         last,
	}
	if err := t.grid.Err(); err != nil {
		s.GridError = err.Error()
	}
	return s
}
