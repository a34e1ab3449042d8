// Package actiondispatcher translates a parsed Action into DeviceIO calls
// and reports the result as an Outcome. It is a pure translation layer: no
// network or model calls originate here.
package actiondispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/kandev/androidctl/internal/appregistry"
	"github.com/kandev/androidctl/internal/collab"
	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/constants"
	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/deviceio"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
	"go.uber.org/zap"
)

// defaultSwipeDuration is used whenever the model omits a duration; the
// swipe's magnitude is not taken into account.
const defaultSwipeDuration = 300 * time.Millisecond

// Screen carries the current screenshot dimensions used to convert a
// RelPoint into device pixels.
type Screen struct {
	Width  int
	Height int
}

// Dispatcher routes a parsed Action to DeviceIO, gating sensitive taps and
// takeovers behind the configured callbacks.
type Dispatcher struct {
	io           *deviceio.DeviceIO
	apps         *appregistry.Registry
	confirmation collab.ConfirmationCallback
	takeover     collab.TakeoverCallback
	logger       *logger.Logger
}

// New builds a Dispatcher. confirmation and takeover may be null-object
// implementations from internal/collab for headless runs.
func New(io *deviceio.DeviceIO, apps *appregistry.Registry, confirmation collab.ConfirmationCallback, takeover collab.TakeoverCallback, log *logger.Logger) *Dispatcher {
	return &Dispatcher{io: io, apps: apps, confirmation: confirmation, takeover: takeover, logger: log}
}

// Execute performs action against deviceID's screen (dimensions in screen)
// and returns the resulting Outcome. It never returns an error for a
// well-formed action that the device rejects — device-layer failures are
// reported through Outcome.Success=false, not as a Go error — except for
// cancellation, which always propagates as apperrors.Cancelled.
func (disp *Dispatcher) Execute(ctx context.Context, deviceID string, action v1.Action, screen Screen) (v1.Outcome, error) {
	switch action.Verb {
	case v1.ActionLaunch:
		return disp.executeLaunch(ctx, deviceID, action)
	case v1.ActionTap:
		return disp.executeTap(ctx, deviceID, action, screen)
	case v1.ActionDoubleTap:
		return disp.executePoint(ctx, deviceID, action, screen, disp.io.DoubleTap)
	case v1.ActionLongPress:
		return disp.executeLongPress(ctx, deviceID, action, screen)
	case v1.ActionSwipe:
		return disp.executeSwipe(ctx, deviceID, action, screen)
	case v1.ActionType:
		return disp.executeType(ctx, deviceID, action)
	case v1.ActionBack:
		return disp.executeKey(ctx, deviceID, deviceio.KeyBack)
	case v1.ActionHome:
		return disp.executeKey(ctx, deviceID, deviceio.KeyHome)
	case v1.ActionWait:
		return disp.executeWait(ctx, action)
	case v1.ActionTakeOver:
		return disp.executeTakeOver(ctx, action)
	case v1.ActionFinish:
		return v1.Outcome{Success: true, ShouldFinish: true, UserMessage: action.Message}, nil
	default:
		return v1.Outcome{Success: false, ShouldFinish: false, UserMessage: fmt.Sprintf("unrecognized action %q", action.Verb)}, nil
	}
}

func (disp *Dispatcher) executeLaunch(ctx context.Context, deviceID string, action v1.Action) (v1.Outcome, error) {
	packageID, err := disp.apps.Resolve(action.App)
	if err != nil {
		return v1.Outcome{Success: false, ShouldFinish: false, UserMessage: "app not supported"}, nil
	}
	if err := disp.io.LaunchApp(ctx, deviceID, packageID); err != nil {
		if apperrors.Is(err, apperrors.Cancelled) {
			return v1.Outcome{}, err
		}
		return v1.Outcome{Success: false, ShouldFinish: false, UserMessage: err.Error()}, nil
	}
	return v1.Outcome{Success: true, ShouldFinish: false}, nil
}

func (disp *Dispatcher) executeTap(ctx context.Context, deviceID string, action v1.Action, screen Screen) (v1.Outcome, error) {
	if action.SensitiveMessage != "" {
		ok, err := disp.confirmation.Confirm(ctx, action.SensitiveMessage)
		if err != nil {
			if apperrors.Is(err, apperrors.Cancelled) {
				return v1.Outcome{}, err
			}
			return v1.Outcome{Success: false, ShouldFinish: false, UserMessage: err.Error()}, nil
		}
		if !ok {
			return v1.Outcome{Success: true, ShouldFinish: false, UserMessage: "user denied"}, nil
		}
	}
	return disp.executePoint(ctx, deviceID, action, screen, disp.io.Tap)
}

func (disp *Dispatcher) executePoint(ctx context.Context, deviceID string, action v1.Action, screen Screen, do func(context.Context, string, int, int) error) (v1.Outcome, error) {
	x, y := action.Point.ToPixel(screen.Width, screen.Height)
	if err := do(ctx, deviceID, x, y); err != nil {
		if apperrors.Is(err, apperrors.Cancelled) {
			return v1.Outcome{}, err
		}
		return v1.Outcome{Success: false, ShouldFinish: false, UserMessage: err.Error()}, nil
	}
	return v1.Outcome{Success: true, ShouldFinish: false}, nil
}

func (disp *Dispatcher) executeLongPress(ctx context.Context, deviceID string, action v1.Action, screen Screen) (v1.Outcome, error) {
	x, y := action.Point.ToPixel(screen.Width, screen.Height)
	durationMs := action.DurationMs
	if durationMs <= 0 {
		durationMs = int(constants.LongPressMinDuration / time.Millisecond)
	}
	if err := disp.io.LongPress(ctx, deviceID, x, y, durationMs); err != nil {
		if apperrors.Is(err, apperrors.Cancelled) {
			return v1.Outcome{}, err
		}
		return v1.Outcome{Success: false, ShouldFinish: false, UserMessage: err.Error()}, nil
	}
	return v1.Outcome{Success: true, ShouldFinish: false}, nil
}

func (disp *Dispatcher) executeSwipe(ctx context.Context, deviceID string, action v1.Action, screen Screen) (v1.Outcome, error) {
	x1, y1 := action.Start.ToPixel(screen.Width, screen.Height)
	x2, y2 := action.End.ToPixel(screen.Width, screen.Height)
	durationMs := action.DurationMs
	if durationMs <= 0 {
		durationMs = int(defaultSwipeDuration / time.Millisecond)
	}
	if err := disp.io.Swipe(ctx, deviceID, x1, y1, x2, y2, durationMs); err != nil {
		if apperrors.Is(err, apperrors.Cancelled) {
			return v1.Outcome{}, err
		}
		return v1.Outcome{Success: false, ShouldFinish: false, UserMessage: err.Error()}, nil
	}
	return v1.Outcome{Success: true, ShouldFinish: false}, nil
}

func (disp *Dispatcher) executeType(ctx context.Context, deviceID string, action v1.Action) (v1.Outcome, error) {
	if err := disp.io.TypeText(ctx, deviceID, action.Text); err != nil {
		if apperrors.Is(err, apperrors.Cancelled) {
			return v1.Outcome{}, err
		}
		return v1.Outcome{Success: false, ShouldFinish: false, UserMessage: err.Error()}, nil
	}
	return v1.Outcome{Success: true, ShouldFinish: false}, nil
}

func (disp *Dispatcher) executeKey(ctx context.Context, deviceID string, key deviceio.KeyEvent) (v1.Outcome, error) {
	if err := disp.io.KeyEvent(ctx, deviceID, key); err != nil {
		if apperrors.Is(err, apperrors.Cancelled) {
			return v1.Outcome{}, err
		}
		return v1.Outcome{Success: false, ShouldFinish: false, UserMessage: err.Error()}, nil
	}
	return v1.Outcome{Success: true, ShouldFinish: false}, nil
}

// executeWait sleeps for the parsed duration, clamped to
// [WaitActionMin, WaitActionMax], observing cancellation throughout.
func (disp *Dispatcher) executeWait(ctx context.Context, action v1.Action) (v1.Outcome, error) {
	d := time.Duration(action.DurationMs) * time.Millisecond
	clamped := d
	if clamped < constants.WaitActionMin {
		clamped = constants.WaitActionMin
	}
	if clamped > constants.WaitActionMax {
		clamped = constants.WaitActionMax
	}
	if clamped != d {
		disp.logger.Warn("wait duration clamped",
			zap.Int("requestedMs", action.DurationMs),
			zap.Int("clampedMs", int(clamped/time.Millisecond)))
	}

	timer := time.NewTimer(clamped)
	defer timer.Stop()
	select {
	case <-timer.C:
		return v1.Outcome{Success: true, ShouldFinish: false}, nil
	case <-ctx.Done():
		return v1.Outcome{}, apperrors.CancelledErr()
	}
}

func (disp *Dispatcher) executeTakeOver(ctx context.Context, action v1.Action) (v1.Outcome, error) {
	if err := disp.takeover.AwaitTakeover(ctx, action.Message); err != nil {
		if apperrors.Is(err, apperrors.Cancelled) {
			return v1.Outcome{}, err
		}
		return v1.Outcome{Success: false, ShouldFinish: false, UserMessage: err.Error()}, nil
	}
	return v1.Outcome{Success: true, ShouldFinish: false}, nil
}
