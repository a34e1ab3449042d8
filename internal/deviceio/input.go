package deviceio

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/constants"
)

// KeyEvent names an Android keycode accepted by keyEvent.
type KeyEvent string

const (
	KeyBack KeyEvent = "KEYCODE_BACK"
	KeyHome KeyEvent = "KEYCODE_HOME"
)

// Tap issues `adb shell input tap x y` and waits out TapSettleDelay so the
// UI has a chance to react before the next screenshot.
func (d *DeviceIO) Tap(ctx context.Context, deviceID string, x, y int) error {
	if err := d.inputTap(ctx, deviceID, x, y); err != nil {
		return err
	}
	return sleep(ctx, constants.TapSettleDelay)
}

// DoubleTap issues two taps 80ms apart and waits out the settle delay once,
// after the second tap, matching how Android itself disambiguates a double
// tap from a single one via timing between down events.
func (d *DeviceIO) DoubleTap(ctx context.Context, deviceID string, x, y int) error {
	if err := d.inputTap(ctx, deviceID, x, y); err != nil {
		return err
	}
	if err := sleep(ctx, 80*time.Millisecond); err != nil {
		return err
	}
	return d.Tap(ctx, deviceID, x, y)
}

func (d *DeviceIO) inputTap(ctx context.Context, deviceID string, x, y int) error {
	ctx, cancel := context.WithTimeout(ctx, constants.InputTimeout)
	defer cancel()
	_, err := d.run(ctx, deviceID, "shell", "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// LongPress issues a zero-distance swipe held for durationMs, which is how
// `adb shell input` expresses a long press. durationMs below
// LongPressMinDuration is raised to the minimum.
func (d *DeviceIO) LongPress(ctx context.Context, deviceID string, x, y int, durationMs int) error {
	minMs := int(constants.LongPressMinDuration / time.Millisecond)
	if durationMs < minMs {
		durationMs = minMs
	}
	ctx, cancel := context.WithTimeout(ctx, constants.InputTimeout+time.Duration(durationMs)*time.Millisecond)
	defer cancel()
	_, err := d.run(ctx, deviceID, "shell", "input", "swipe",
		strconv.Itoa(x), strconv.Itoa(y), strconv.Itoa(x), strconv.Itoa(y), strconv.Itoa(durationMs))
	if err != nil {
		return err
	}
	return sleep(ctx, constants.TapSettleDelay)
}

// Swipe issues `adb shell input swipe x1 y1 x2 y2 durationMs` and waits a
// settle delay proportional to the swipe duration.
func (d *DeviceIO) Swipe(ctx context.Context, deviceID string, x1, y1, x2, y2, durationMs int) error {
	opCtx, cancel := context.WithTimeout(ctx, constants.InputTimeout+time.Duration(durationMs)*time.Millisecond)
	defer cancel()
	_, err := d.run(opCtx, deviceID, "shell", "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2), strconv.Itoa(durationMs))
	if err != nil {
		return err
	}
	return sleep(ctx, time.Duration(durationMs)*constants.SwipeSettleDelayPerMs)
}

// KeyEvent issues `adb shell input keyevent <code>`, e.g. Back or Home.
func (d *DeviceIO) KeyEvent(ctx context.Context, deviceID string, key KeyEvent) error {
	ctx, cancel := context.WithTimeout(ctx, constants.InputTimeout)
	defer cancel()
	_, err := d.run(ctx, deviceID, "shell", "input", "keyevent", string(key))
	if err != nil {
		return err
	}
	return sleep(ctx, constants.TapSettleDelay)
}

const androidctlIME = "com.androidctl.ime/.TextInputService"

// TypeText requires a previously-enabled IME-style broadcast receiver on
// the device. It activates that input method, broadcasts the base64-encoded
// text to survive shell quoting, then restores the prior IME.
func (d *DeviceIO) TypeText(ctx context.Context, deviceID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.InputTimeout)
	defer cancel()

	mu := d.deviceMu(deviceID)
	mu.Lock()
	defer mu.Unlock()

	priorIME, err := d.currentIMEUnlocked(ctx, deviceID)
	if err != nil {
		return err
	}

	if _, err := d.runUnlocked(ctx, deviceID, "shell", "ime", "set", androidctlIME); err != nil {
		return apperrors.InputMethodUnavailableErr(fmt.Sprintf("input method %s is not installed on device %s", androidctlIME, deviceID))
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	if _, err := d.runUnlocked(ctx, deviceID, "shell", "am", "broadcast",
		"-a", "ADB_INPUT_TEXT", "--es", "text", encoded); err != nil {
		return err
	}

	if priorIME != "" && priorIME != androidctlIME {
		_, _ = d.runUnlocked(ctx, deviceID, "shell", "ime", "set", priorIME)
	}
	return nil
}

func (d *DeviceIO) currentIMEUnlocked(ctx context.Context, deviceID string) (string, error) {
	out, err := d.runUnlocked(ctx, deviceID, "shell", "settings", "get", "secure", "default_input_method")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return apperrors.CancelledErr()
	}
}
