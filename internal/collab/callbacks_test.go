package collab

import (
	"context"
	"errors"
	"testing"

	"github.com/kandev/androidctl/internal/common/apperrors"
)

func TestAutoApproveConfirms(t *testing.T) {
	ok, err := AutoApprove{}.Confirm(context.Background(), "pay $5")
	if err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}
}

func TestAutoDenyDenies(t *testing.T) {
	ok, err := AutoDeny{}.Confirm(context.Background(), "pay $5")
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
}

func TestAutoCancelTakeoverFailsWithoutOperator(t *testing.T) {
	err := AutoCancelTakeover{}.AwaitTakeover(context.Background(), "login required")
	if !errors.Is(err, ErrNoOperator) {
		t.Fatalf("expected ErrNoOperator, got %v", err)
	}
}

func TestAutoCancelTakeoverHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := AutoCancelTakeover{}.AwaitTakeover(ctx, "login required")
	if !apperrors.Is(err, apperrors.Cancelled) {
		t.Fatalf("expected Cancelled on cancelled context, got %v", err)
	}
}
