package channel

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/audioplayers/audioplayers/internal/player"
	"github.com/charmbracelet/log"
)

// Method names understood by the dispatcher.
const (
	MethodPlay            = "play"
	MethodResume          = "resume"
	MethodPause           = "pause"
	MethodStop            = "stop"
	MethodRelease         = "release"
	MethodSetURL          = "setUrl"
	MethodSetVolume       = "setVolume"
	MethodSetPlaybackRate = "setPlaybackRate"
	MethodSetReleaseMode  = "setReleaseMode"
)

// Success is the acknowledgement value of a successful call.
const Success = 1

// operation runs a validated call against a player.
type operation func(ctx context.Context, p player.Player) error

// binder validates the arguments of a call and binds them into an operation.
// Binders must not touch any player.
type binder func(args Arguments) (operation, error)

// Dispatcher routes calls to players in a registry.
type Dispatcher struct {
	registry *player.Registry
	methods  map[string]binder
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *player.Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		methods: map[string]binder{
			MethodPlay:            bindURL(player.Player.Play),
			MethodSetURL:          bindURL(player.Player.SetURL),
			MethodResume:          bindNoArgs(player.Player.Resume),
			MethodPause:           bindNoArgs(player.Player.Pause),
			MethodStop:            bindNoArgs(player.Player.Stop),
			MethodRelease:         bindNoArgs(player.Player.Release),
			MethodSetVolume:       bindSetVolume,
			MethodSetPlaybackRate: bindSetPlaybackRate,
			MethodSetReleaseMode:  bindSetReleaseMode,
		},
	}
}

// Methods lists the supported method names.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch handles one call. It never panics; unexpected failures become
// UnexpectedError results.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic in method call",
				"method", call.Method,
				"panic", r,
				"stack", string(debug.Stack()))
			res = Result{Err: &Error{Code: CodeUnexpectedError, Message: fmt.Sprint(r)}}
		}
	}()

	bind, ok := d.methods[call.Method]
	if !ok {
		log.Debug("Method not implemented", "method", call.Method)
		return Result{NotImplemented: true}
	}

	id, ok := call.Arguments.String("playerId")
	if !ok || id == "" {
		return Result{Err: invalidArgument("playerId is required")}
	}

	op, err := bind(call.Arguments)
	if err != nil {
		return Result{Err: NewError(CodeInvalidArgument, err)}
	}

	p, err := d.registry.GetOrCreate(id)
	if err != nil {
		return Result{Err: NewError(CodeUnexpectedError, err)}
	}

	log.Debug("Dispatching", "method", call.Method, "player", id)

	if err := op(ctx, p); err != nil {
		ce := classify(err)
		log.Debug("Method call failed", "method", call.Method, "player", id, "code", ce.Code, "error", err)
		return Result{Err: ce}
	}
	return Result{Value: Success}
}

func bindNoArgs(fn func(player.Player) error) binder {
	return func(Arguments) (operation, error) {
		return func(_ context.Context, p player.Player) error {
			return fn(p)
		}, nil
	}
}

func bindURL(fn func(player.Player, context.Context, string) error) binder {
	return func(args Arguments) (operation, error) {
		url, ok := args.String("url")
		if !ok || url == "" {
			return nil, fmt.Errorf("url is required")
		}
		return func(ctx context.Context, p player.Player) error {
			return fn(p, ctx, url)
		}, nil
	}
}

func bindSetVolume(args Arguments) (operation, error) {
	v, ok := args.Float("volume")
	if !ok {
		return nil, fmt.Errorf("volume is required")
	}
	if err := player.ValidateVolume(v); err != nil {
		return nil, err
	}
	return func(_ context.Context, p player.Player) error {
		return p.SetVolume(v)
	}, nil
}

func bindSetPlaybackRate(args Arguments) (operation, error) {
	r, ok := args.Float("playbackRate")
	if !ok {
		return nil, fmt.Errorf("playbackRate is required")
	}
	if err := player.ValidateRate(r); err != nil {
		return nil, err
	}
	return func(_ context.Context, p player.Player) error {
		return p.SetRate(r)
	}, nil
}

func bindSetReleaseMode(args Arguments) (operation, error) {
	s, ok := args.String("releaseMode")
	if !ok {
		return nil, fmt.Errorf("releaseMode is required")
	}
	mode, err := player.ParseReleaseMode(s)
	if err != nil {
		return nil, err
	}
	return func(_ context.Context, p player.Player) error {
		return p.SetReleaseMode(mode)
	}, nil
}
