package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-balltrack/pkg/frame"
	"github.com/teslashibe/go-balltrack/pkg/gridnet"
	"github.com/teslashibe/go-balltrack/pkg/tracking/detection"
)

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [flags] <f1> <f2> <f3> <f4> <f5>",
		Short: "Run one neural grid inference on five frames and print every slot",
		Args:  cobra.ExactArgs(detection.DefaultGeometry().Grid.Temporal),
		RunE:  doDecode,
	}
	cmd.Flags().Float64("fps", 30, "frame rate used to stamp the samples")
	return cmd
}

func doDecode(cmd *cobra.Command, args []string) error {
	f, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg, err := f.TrackingConfig()
	if err != nil {
		return err
	}
	modelCfg, err := f.ModelConfig()
	if err != nil {
		return err
	}
	fps, _ := cmd.Flags().GetFloat64("fps")
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %v", fps)
	}
	interval := time.Duration(float64(time.Second) / fps)

	g := cfg.Grid.Geometry
	frames := make([]frame.Frame, len(args))
	for i, p := range args {
		fr, err := gridnet.ReadFrame(p, time.Duration(i)*interval)
		if err != nil {
			return err
		}
		if frames[i], err = cfg.Grid.Resizer.Resize(fr, g.InputWidth, g.InputHeight); err != nil {
			return err
		}
	}

	model, err := gridnet.Open(modelCfg)
	if err != nil {
		return fmt.Errorf("%w: %v", detection.ErrModelUnavailable, err)
	}
	defer model.Close()

	start := time.Now()
	triple, err := model.Infer(cmd.Context(), frames)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	samples, err := detection.DecodeAll(triple, g)
	if err != nil {
		return err
	}
	for i := range samples {
		samples[i].Timestamp = frames[i].Timestamp
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		ElapsedMs float64            `json:"elapsed_ms"`
		Shape     []int              `json:"conf_shape"`
		Samples   []detection.Sample `json:"samples"`
	}{
		ElapsedMs: float64(elapsed) / float64(time.Millisecond),
		Shape:     triple.Conf.Shape,
		Samples:   samples,
	})
}
