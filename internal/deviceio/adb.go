// Package deviceio encapsulates every interaction with adb as a pure
// function of (device-id?, command) returning bytes or an error kind. No
// caller above this package shells out directly.
package deviceio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/logger"
)

// Config holds DeviceIO's own tunables. Per-operation timeouts live in
// internal/common/constants and are not configurable per instance.
type Config struct {
	// BinaryPath is the adb executable to invoke. Defaults to "adb" (PATH
	// lookup) when empty.
	BinaryPath string `mapstructure:"binaryPath"`
}

// DeviceIO serializes every adb invocation per device so that, e.g., a tap
// and a screenshot for the same device never race on the wire. Operations
// against different devices proceed concurrently.
type DeviceIO struct {
	binary string
	logger *logger.Logger
	// deviceMus is a map of device id -> *sync.Mutex, mirroring the
	// per-key locking pattern used for repository clone paths.
	deviceMus sync.Map
}

// New creates a DeviceIO using the given adb binary path (or "adb" from
// PATH when cfg.BinaryPath is empty).
func New(cfg Config, log *logger.Logger) *DeviceIO {
	bin := cfg.BinaryPath
	if bin == "" {
		bin = "adb"
	}
	return &DeviceIO{binary: bin, logger: log}
}

// deviceMu returns (or lazily creates) the mutex guarding adb calls against
// a single device. An empty deviceID (legal for "adb devices" etc.) gets
// its own mutex distinct from any real serial.
func (d *DeviceIO) deviceMu(deviceID string) *sync.Mutex {
	mu, _ := d.deviceMus.LoadOrStore(deviceID, &sync.Mutex{})
	return mu.(*sync.Mutex) //nolint:forcetypeassert // LoadOrStore always stores *sync.Mutex
}

// run serializes one adb invocation against deviceID and returns stdout.
func (d *DeviceIO) run(ctx context.Context, deviceID string, args ...string) ([]byte, error) {
	mu := d.deviceMu(deviceID)
	mu.Lock()
	defer mu.Unlock()
	return d.runUnlocked(ctx, deviceID, args...)
}

// runUnlocked invokes adb without acquiring the per-device mutex. Callers
// that already hold the mutex (e.g. a multi-step operation like launchApp)
// use this to avoid self-deadlock.
func (d *DeviceIO) runUnlocked(ctx context.Context, deviceID string, args ...string) ([]byte, error) {
	cmdArgs := args
	if deviceID != "" {
		cmdArgs = append([]string{"-s", deviceID}, args...)
	}

	cmd := exec.CommandContext(ctx, d.binary, cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	d.logger.Debug("adb exec", zap.String("device", deviceID), zap.Strings("args", cmdArgs))

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	op := strings.Join(cmdArgs, " ")
	if ctx.Err() != nil {
		return stdout.Bytes(), apperrors.CancelledErr()
	}

	detail := strings.TrimSpace(stderr.String())
	if detail == "" {
		detail = err.Error()
	}
	return stdout.Bytes(), apperrors.AdbIOErr(op, fmt.Errorf("%s", detail))
}
