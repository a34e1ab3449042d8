// Package collab defines the capability interfaces the core depends on but
// does not implement: durable task/step storage, screenshot blob storage,
// and the human-in-the-loop confirmation/takeover hand-offs. Each interface
// ships a null-object implementation suitable for headless runs.
package collab

import (
	"context"
	"errors"

	"github.com/kandev/androidctl/internal/common/apperrors"
)

// ErrNoOperator is returned by AutoCancelTakeover: there is no human
// available to hand off to.
var ErrNoOperator = errors.New("takeover requested but no operator is configured")

// ConfirmationCallback gates a sensitive action (one the model flagged with
// a non-empty sensitiveMessage) behind human approval.
type ConfirmationCallback interface {
	// Confirm presents message to the human operator and returns whether
	// the action should proceed.
	Confirm(ctx context.Context, message string) (bool, error)
}

// TakeoverCallback hands control to a human operator (login, captcha, a
// screen the agent should not automate) and blocks until they signal
// completion or the context is cancelled.
type TakeoverCallback interface {
	// AwaitTakeover blocks until the human operator signals the takeover is
	// complete, or ctx is cancelled.
	AwaitTakeover(ctx context.Context, message string) error
}

// AutoApprove confirms every sensitive action without prompting. Suitable
// for headless/unattended runs where no human is available to gate taps.
type AutoApprove struct{}

func (AutoApprove) Confirm(ctx context.Context, message string) (bool, error) {
	return true, nil
}

// AutoDeny denies every sensitive action without prompting.
type AutoDeny struct{}

func (AutoDeny) Confirm(ctx context.Context, message string) (bool, error) {
	return false, nil
}

// AutoCancelTakeover immediately fails any takeover request. Suitable for
// headless runs where no human operator exists to hand off to.
type AutoCancelTakeover struct{}

func (AutoCancelTakeover) AwaitTakeover(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.CancelledErr()
	}
	return ErrNoOperator
}
