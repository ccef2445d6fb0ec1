package main

import (
	"testing"
)

func TestCommandTree(t *testing.T) {
	root := NewCmd()
	for _, name := range []string{"serve", "decode", "status", "backend", "reset", "watch"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not found: %v", name, err)
		}
	}
}

func TestDecodeRequiresFiveFrames(t *testing.T) {
	root := NewCmd()
	root.SetArgs([]string{"decode", "a.png", "b.png"})
	if err := root.Execute(); err == nil {
		t.Error("decode with two frames should fail")
	}
}

func TestServerURL(t *testing.T) {
	tests := []struct {
		server string
		scheme string
		want   string
	}{
		{":8090", "http", "http://localhost:8090"},
		{"10.0.0.2:9000", "ws", "ws://10.0.0.2:9000"},
		{"http://tracker.local:8090", "http", "http://tracker.local:8090"},
	}
	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			cmd := newStatusCmd()
			cmd.Flags().String("config", "", "")
			cmd.Flags().String("log-level", "", "")
			cmd.Flags().Bool("debug", false, "")
			cmd.Flags().Bool("debug-tracking", false, "")
			if err := cmd.Flags().Set("server", tt.server); err != nil {
				t.Fatal(err)
			}
			got, err := serverURL(cmd, tt.scheme)
			if err != nil {
				t.Fatalf("serverURL: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
