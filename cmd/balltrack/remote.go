package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-balltrack/internal/log"
	"github.com/teslashibe/go-balltrack/pkg/overlay"
	"github.com/teslashibe/go-balltrack/pkg/protocol"
	"github.com/teslashibe/go-balltrack/pkg/tracking"
)

// serverURL turns a listen address like ":8090" into a URL with scheme.
func serverURL(cmd *cobra.Command, scheme string) (string, error) {
	f, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	addr := f.Addr
	if v, _ := cmd.Flags().GetString("server"); v != "" {
		addr = v
	}
	if strings.Contains(addr, "://") {
		return addr, nil
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return scheme + "://" + addr, nil
}

func remoteCmd(use, short string, args cobra.PositionalArgs, run func(*cobra.Command, []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE:  run,
	}
	cmd.Flags().String("server", "", "overlay server `<addr>` (default from config)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return remoteCmd("status", "Print the status of a running tracker", cobra.NoArgs,
		func(cmd *cobra.Command, args []string) error {
			base, err := serverURL(cmd, "http")
			if err != nil {
				return err
			}
			st, err := overlay.NewClient(base).Status(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		})
}

func newBackendCmd() *cobra.Command {
	return remoteCmd("backend <color|grid>", "Switch the backend of a running tracker", cobra.ExactArgs(1),
		func(cmd *cobra.Command, args []string) error {
			b, err := tracking.ParseBackend(args[0])
			if err != nil {
				return err
			}
			base, err := serverURL(cmd, "http")
			if err != nil {
				return err
			}
			if err := overlay.NewClient(base).SetBackend(cmd.Context(), b); err != nil {
				return err
			}
			fmt.Printf("backend: %s\n", b)
			return nil
		})
}

func newResetCmd() *cobra.Command {
	return remoteCmd("reset", "Reset both backends of a running tracker", cobra.NoArgs,
		func(cmd *cobra.Command, args []string) error {
			base, err := serverURL(cmd, "http")
			if err != nil {
				return err
			}
			return overlay.NewClient(base).Reset(cmd.Context())
		})
}

func newWatchCmd() *cobra.Command {
	cmd := remoteCmd("watch", "Print positions streamed by a running tracker", cobra.NoArgs, doWatch)
	cmd.Flags().Int("slot", -1, "preferred grid slot, negative for the tracker default")
	cmd.Flags().Bool("samples", false, "also print every slot of each grid inference")
	return cmd
}

func doWatch(cmd *cobra.Command, args []string) error {
	base, err := serverURL(cmd, "ws")
	if err != nil {
		return err
	}
	slot, _ := cmd.Flags().GetInt("slot")
	samples, _ := cmd.Flags().GetBool("samples")

	ctx := cmd.Context()
	sub, err := overlay.Dial(ctx, base, overlay.SubscribeOptions{Slot: slot, Samples: samples}, log.L())
	if err != nil {
		return err
	}
	defer sub.Close()

	sub.OnState = func(s protocol.StateData) {
		fmt.Printf("state   backend=%s state=%s grid_ready=%v slot=%d frames=%d\n",
			s.Backend, s.State, s.GridReady, s.Slot, s.Frames)
	}
	sub.OnPosition = func(p protocol.PositionData) {
		if !p.Found {
			fmt.Printf("%8.1fms %-5s slot=%2d no ball (%.2f)\n", p.FrameMs, p.Backend, p.Slot, p.Confidence)
			return
		}
		fmt.Printf("%8.1fms %-5s slot=%2d x=%.3f y=%.3f %s\n", p.FrameMs, p.Backend, p.Slot, p.X, p.Y, p.State)
	}
	sub.OnSamples = func(s []protocol.SampleData) {
		for _, v := range s {
			fmt.Printf("          sample slot=%d found=%v x=%.3f y=%.3f conf=%.2f\n", v.Slot, v.Found, v.X, v.Y, v.Confidence)
		}
	}

	if err := sub.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
