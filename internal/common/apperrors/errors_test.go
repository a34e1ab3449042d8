package apperrors

import (
	"errors"
	"testing"
)

func TestWrapPreservesAppError(t *testing.T) {
	original := UnknownAppErr("微信")
	wrapped := Wrap(original, "ignored message")

	if wrapped.Code != UnknownApp {
		t.Errorf("expected code %s, got %s", UnknownApp, wrapped.Code)
	}
	if wrapped != original {
		t.Error("expected Wrap to return the same AppError instance")
	}
}

func TestWrapNonAppError(t *testing.T) {
	plain := errors.New("boom")
	wrapped := Wrap(plain, "store write failed")

	if wrapped.Code != StoreError {
		t.Errorf("expected code %s, got %s", StoreError, wrapped.Code)
	}
	if !errors.Is(wrapped.Unwrap(), plain) {
		t.Error("expected wrapped error to unwrap to the original")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("expected Wrap(nil, ...) to return nil")
	}
}

func TestIs(t *testing.T) {
	err := NoDeviceError("no device connected")
	if !Is(err, NoDevice) {
		t.Error("expected Is to match NoDevice code")
	}
	if Is(err, SessionBusy) {
		t.Error("expected Is to not match a different code")
	}
	if Is(errors.New("plain"), NoDevice) {
		t.Error("expected Is to return false for a non-AppError")
	}
}

func TestErrorString(t *testing.T) {
	wrapped := AdbIOErr("screenshot", errors.New("exit status 1"))
	got := wrapped.Error()
	want := "AdbIOError: adb screenshot failed: exit status 1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
