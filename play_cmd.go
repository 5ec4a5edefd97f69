package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/audioplayers/audioplayers/internal/channel"
	"github.com/audioplayers/audioplayers/internal/player"
	"github.com/audioplayers/audioplayers/internal/plugin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	playVolume float64
	playRate   float64
	playLoop   bool
)

var playCmd = &cobra.Command{
	Use:     "play FILE",
	Short:   "Play a single file until interrupted",
	Long:    paragraph(fmt.Sprintf("\n%s a local audio file through the same method channel the host uses. Press Ctrl-C to stop.", keyword("Play"))),
	Example: paragraph("audioplayers play click.wav\naudioplayers play --loop --volume 0.5 music.ogg"),
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("unable to get absolute path: %w", err)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("unable to open file: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		em := &stderrEmitter{cancel: stop}
		p, err := plugin.Attach(plugin.Options{Config: cfg, Env: envCfg, Emitter: em})
		if err != nil {
			return err
		}
		defer func() { _ = p.Detach() }()

		id := uuid.NewString()
		calls := []channel.Call{
			{Method: channel.MethodSetVolume, Arguments: channel.Arguments{"playerId": id, "volume": playVolume}},
			{Method: channel.MethodSetPlaybackRate, Arguments: channel.Arguments{"playerId": id, "playbackRate": playRate}},
			{Method: channel.MethodSetReleaseMode, Arguments: channel.Arguments{"playerId": id, "releaseMode": releaseMode()}},
			{Method: channel.MethodPlay, Arguments: channel.Arguments{"playerId": id, "url": "file://" + path}},
		}
		for _, c := range calls {
			if err := check(p.Dispatcher.Dispatch(ctx, c)); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.ErrOrStderr(), paragraph(fmt.Sprintf("Playing %s with %s %s backend. Press Ctrl-C to stop.", keyword(filepath.Base(path)), p.Variant, p.Backend)))
		<-ctx.Done()

		return check(p.Dispatcher.Dispatch(context.Background(), channel.Call{
			Method:    channel.MethodRelease,
			Arguments: channel.Arguments{"playerId": id},
		}))
	},
}

func init() {
	playCmd.Flags().Float64Var(&playVolume, "volume", 1, "volume between 0 and 1")
	playCmd.Flags().Float64Var(&playRate, "rate", 1, "playback rate")
	playCmd.Flags().BoolVar(&playLoop, "loop", false, "loop until interrupted")
}

func releaseMode() string {
	if playLoop {
		return "ReleaseMode." + player.ReleaseModeLoop.String()
	}
	return "ReleaseMode." + player.ReleaseModeStop.String()
}

func check(res channel.Result) error {
	switch {
	case res.Err != nil:
		return res.Err
	case res.NotImplemented:
		return fmt.Errorf("method not implemented")
	default:
		return nil
	}
}

// stderrEmitter prints host events for interactive use and stops playback
// when the source fails to load.
type stderrEmitter struct {
	cancel context.CancelFunc
}

func (e *stderrEmitter) Emit(name string, args map[string]any) error {
	fmt.Fprintln(os.Stderr, warning(fmt.Sprintf("%s: %v", name, args["value"])))
	if name == channel.EventOnError {
		e.cancel()
	}
	return nil
}
