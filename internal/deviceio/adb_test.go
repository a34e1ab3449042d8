package deviceio

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/logger"
)

// fakeADB writes an executable shell script standing in for the real adb
// binary so DeviceIO's subprocess plumbing can be exercised without a
// connected device.
func fakeADB(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake adb script requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "adb")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake adb: %v", err)
	}
	return path
}

func newTestDeviceIO(t *testing.T, script string) *DeviceIO {
	return New(Config{BinaryPath: fakeADB(t, script)}, logger.Default())
}

func TestRunReturnsStdout(t *testing.T) {
	d := newTestDeviceIO(t, `echo -n "hello"`)
	out, err := d.run(context.Background(), "emulator-5554", "shell", "echo", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "hello" {
		t.Errorf("expected %q, got %q", "hello", out)
	}
}

func TestRunWrapsNonzeroExitAsAdbIOError(t *testing.T) {
	d := newTestDeviceIO(t, `echo "boom" >&2; exit 1`)
	_, err := d.run(context.Background(), "emulator-5554", "shell", "false")
	if !apperrors.Is(err, apperrors.AdbIOError) {
		t.Fatalf("expected AdbIOError, got %v", err)
	}
}

func TestRunObservesCancellation(t *testing.T) {
	d := newTestDeviceIO(t, `sleep 5`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := d.run(ctx, "emulator-5554", "shell", "sleep")
	if !apperrors.Is(err, apperrors.Cancelled) {
		t.Fatalf("expected Cancelled, got %v", err)
	}
}

func TestDeviceMuIsPerDevice(t *testing.T) {
	d := New(Config{}, logger.Default())
	a := d.deviceMu("device-a")
	b := d.deviceMu("device-b")
	if a == b {
		t.Fatal("expected distinct mutexes for distinct device ids")
	}
	again := d.deviceMu("device-a")
	if a != again {
		t.Fatal("expected the same mutex to be returned for the same device id")
	}
}
