package deviceio

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kandev/androidctl/internal/common/constants"
)

// Connect issues `adb connect <address>`.
func (d *DeviceIO) Connect(ctx context.Context, address string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.LaunchAppTimeout)
	defer cancel()
	out, err := d.run(ctx, "", "connect", address)
	if err != nil {
		return err
	}
	if strings.Contains(strings.ToLower(string(out)), "unable to connect") ||
		strings.Contains(strings.ToLower(string(out)), "failed to connect") {
		return fmt.Errorf("adb connect %s: %s", address, strings.TrimSpace(string(out)))
	}
	return nil
}

// Disconnect issues `adb disconnect [address]`. An empty address
// disconnects every TCP/IP-connected device.
func (d *DeviceIO) Disconnect(ctx context.Context, address string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.InputTimeout)
	defer cancel()
	args := []string{"disconnect"}
	if address != "" {
		args = append(args, address)
	}
	_, err := d.run(ctx, "", args...)
	return err
}

// TcpIP puts a USB-connected device into TCP/IP mode on the given port via
// `adb -s <id> tcpip <port>`.
func (d *DeviceIO) TcpIP(ctx context.Context, deviceID string, port int) error {
	ctx, cancel := context.WithTimeout(ctx, constants.InputTimeout)
	defer cancel()
	_, err := d.run(ctx, deviceID, "tcpip", strconv.Itoa(port))
	return err
}

// WlanIP returns the device's wlan0 IPv4 address, parsed from
// `adb shell ip route` (the "src <ip>" token on the wlan0 route line).
func (d *DeviceIO) WlanIP(ctx context.Context, deviceID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.InputTimeout)
	defer cancel()
	out, err := d.run(ctx, deviceID, "shell", "ip", "route")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "wlan0") {
			continue
		}
		fields := strings.Fields(line)
		for i, f := range fields {
			if f == "src" && i+1 < len(fields) {
				return fields[i+1], nil
			}
		}
	}
	return "", fmt.Errorf("no wlan0 route found for device %s", deviceID)
}
