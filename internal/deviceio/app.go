package deviceio

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/constants"
)

// LaunchApp issues `adb shell monkey -p <pkg> -c android.intent.category.LAUNCHER 1`
// and succeeds only once currentApp reports packageId within
// CurrentAppPollWindow.
func (d *DeviceIO) LaunchApp(ctx context.Context, deviceID, packageID string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.LaunchAppTimeout)
	defer cancel()

	mu := d.deviceMu(deviceID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := d.runUnlocked(ctx, deviceID, "shell", "monkey", "-p", packageID,
		"-c", "android.intent.category.LAUNCHER", "1"); err != nil {
		return err
	}

	deadline := time.Now().Add(constants.CurrentAppPollWindow)
	for {
		current, err := d.currentAppUnlocked(ctx, deviceID)
		if err == nil && current == packageID {
			return nil
		}
		if time.Now().After(deadline) {
			return apperrors.UnknownAppErr(packageID)
		}
		if sleepErr := sleep(ctx, 250*time.Millisecond); sleepErr != nil {
			return sleepErr
		}
	}
}

// topActivityPattern matches the top-of-stack entry in `dumpsys activity
// activities` output, in either the "name=ActivityRecord{...}" or the
// "name: ActivityRecord{...}" form, e.g. "topResumedActivity=ActivityRecord{... u0 com.example.app/.MainActivity ...}".
var topActivityPattern = regexp.MustCompile(`(?:topResumedActivity|mResumedActivity|mFocusedActivity)(?:=|:\s*)ActivityRecord\{[^}]*\s([a-zA-Z0-9_.]+)/`)

// CurrentApp parses `adb shell dumpsys activity activities` for the
// top-of-stack package.
func (d *DeviceIO) CurrentApp(ctx context.Context, deviceID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DumpsysTimeout)
	defer cancel()

	mu := d.deviceMu(deviceID)
	mu.Lock()
	defer mu.Unlock()
	return d.currentAppUnlocked(ctx, deviceID)
}

func (d *DeviceIO) currentAppUnlocked(ctx context.Context, deviceID string) (string, error) {
	out, err := d.runUnlocked(ctx, deviceID, "shell", "dumpsys", "activity", "activities")
	if err != nil {
		return "", err
	}
	match := topActivityPattern.FindStringSubmatch(string(out))
	if match == nil {
		return "", apperrors.AdbIOErr("dumpsys activity activities", errNoTopActivity)
	}
	return match[1], nil
}

var errNoTopActivity = errString("no top-of-stack activity found in dumpsys output")

type errString string

func (e errString) Error() string { return string(e) }

// parseDeviceLine parses one line of `adb devices -l` output, e.g.:
//
//	emulator-5554   device product:sdk_gphone model:sdk_gphone
//	192.168.1.5:5555 offline
func parseDeviceLine(line string) (id, status string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "List of devices attached") {
		return "", "", false
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}
