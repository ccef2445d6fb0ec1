package tracking

import (
	"testing"
	"time"
)

func TestPresets(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		backend Backend
		slot    int
	}{
		{"Default", DefaultConfig(), BackendColor, 4},
		{"Live", LiveConfig(), BackendGrid, 4},
		{"Replay", ReplayConfig(), BackendGrid, 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.cfg.Backend != tc.backend {
				t.Errorf("Backend: got %s, want %s", tc.cfg.Backend, tc.backend)
			}
			if tc.cfg.Grid.Slot != tc.slot {
				t.Errorf("Slot: got %d, want %d", tc.cfg.Grid.Slot, tc.slot)
			}
			if err := tc.cfg.Validate(); err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestDefaultConfig_ColorDetector(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Color.MaxMisses != 3 {
		t.Errorf("Expected MaxMisses=3, got %d", cfg.Color.MaxMisses)
	}
	if cfg.Color.MinDt != time.Second/240 || cfg.Color.MaxDt != time.Second/15 {
		t.Errorf("Expected dt clamp [1/240s, 1/15s], got [%v, %v]", cfg.Color.MinDt, cfg.Color.MaxDt)
	}
	if cfg.Grid.Geometry.Threshold != 0.5 {
		t.Errorf("Expected Threshold=0.5, got %v", cfg.Grid.Geometry.Threshold)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Backend = "sonar" }},
		{"slot too large", func(c *Config) { c.Grid.Slot = 5 }},
		{"negative slot", func(c *Config) { c.Grid.Slot = -1 }},
		{"empty grid", func(c *Config) { c.Grid.Geometry.Grid.Rows = 0 }},
		{"empty input", func(c *Config) { c.Grid.Geometry.InputWidth = 0 }},
		{"inverted dt clamp", func(c *Config) { c.Color.MaxDt = time.Millisecond }},
		{"negative misses", func(c *Config) { c.Color.MaxMisses = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"color", BackendColor, false},
		{" Grid ", BackendGrid, false},
		{"neural", BackendGrid, false},
		{"yolo", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		got, err := ParseBackend(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseBackend(%q): err = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseBackend(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}
