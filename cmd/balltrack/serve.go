package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-balltrack/internal/log"
	"github.com/teslashibe/go-balltrack/pkg/gridnet"
	"github.com/teslashibe/go-balltrack/pkg/overlay"
	"github.com/teslashibe/go-balltrack/pkg/tracking"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [flags] <frames dir>",
		Short: "Replay a frame sequence and stream positions to overlays",
		Args:  cobra.ExactArgs(1),
		RunE:  doServe,
	}
	cmd.Flags().String("addr", "", "overlay listen `<addr>` (default from config)")
	cmd.Flags().String("backend", "", "backend: color or grid (default from config)")
	cmd.Flags().Float64("fps", 30, "playback frame rate")
	cmd.Flags().Bool("loop", false, "restart the sequence when it ends")
	cmd.Flags().Float64("shoulder-x", -1, "normalized shoulder x for the color gate, negative to disable")
	return cmd
}

func doServe(cmd *cobra.Command, args []string) error {
	f, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		f.Addr = v
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		f.Backend = v
	}
	fps, _ := cmd.Flags().GetFloat64("fps")
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %v", fps)
	}
	loop, _ := cmd.Flags().GetBool("loop")

	var shoulder *float64
	if v, _ := cmd.Flags().GetFloat64("shoulder-x"); v >= 0 {
		shoulder = &v
	}

	cfg, err := f.TrackingConfig()
	if err != nil {
		return err
	}
	cfg.Logger = log.L()
	modelCfg, err := f.ModelConfig()
	if err != nil {
		return err
	}

	paths, err := gridnet.ListImages(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images in %s", args[0])
	}

	tracker := tracking.New(cfg, gridnet.Loader(modelCfg))
	defer tracker.Close()

	ctx := cmd.Context()
	srv := overlay.NewServer(f.Addr, tracker, log.L())
	srv.StartAsync(ctx)
	defer srv.Shutdown()

	return replay(ctx, tracker, srv, paths, fps, loop, shoulder)
}

// replay feeds the frames at a fixed rate. Timestamps follow the playback
// clock so they keep increasing across loops.
func replay(ctx context.Context, tracker *tracking.Tracker, srv *overlay.Server, paths []string, fps float64, loop bool, shoulder *float64) error {
	interval := time.Duration(float64(time.Second) / fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := log.With("component", "replay")
	logger.Info("replay started", "frames", len(paths), "fps", fps, "loop", loop)

	var ts time.Duration
	for {
		for _, p := range paths {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			fr, err := gridnet.ReadFrame(p, ts)
			ts += interval
			if err != nil {
				logger.Warn("skipping frame", "path", p, "error", err)
				continue
			}
			tracker.ProcessFrame(ctx, tracking.Input{Frame: fr, ShoulderX: shoulder})
		}

		st := tracker.Status()
		logger.Info("sequence finished", "frames", st.Frames, "published", st.Published, "clients", srv.Clients())
		srv.BroadcastState()
		if !loop {
			tracker.Wait()
			return nil
		}
	}
}
