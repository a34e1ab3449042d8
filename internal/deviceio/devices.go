package deviceio

import (
	"context"
	"regexp"
	"strings"

	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

var deviceModelPattern = regexp.MustCompile(`model:(\S+)`)

// ListDevices runs `adb devices -l` and parses one DeviceInfo per attached
// device. The connection type is inferred from the id shape: a "host:port"
// serial is TCP, anything else (emulator-XXXX, a USB serial) is USB.
func (d *DeviceIO) ListDevices(ctx context.Context) ([]v1.DeviceInfo, error) {
	out, err := d.run(ctx, "", "devices", "-l")
	if err != nil {
		return nil, err
	}

	var devices []v1.DeviceInfo
	for _, line := range strings.Split(string(out), "\n") {
		id, status, ok := parseDeviceLine(line)
		if !ok {
			continue
		}
		devices = append(devices, v1.DeviceInfo{
			ID:             id,
			ConnectionType: connectionTypeOf(id),
			Status:         deviceStatusOf(status),
			Model:          parseModel(line),
		})
	}
	return devices, nil
}

func connectionTypeOf(id string) v1.ConnectionType {
	if strings.Contains(id, ":") {
		return v1.ConnectionTCP
	}
	return v1.ConnectionUSB
}

func deviceStatusOf(status string) v1.DeviceStatus {
	switch status {
	case "device":
		return v1.DeviceStatusDevice
	case "unauthorized":
		return v1.DeviceStatusUnauthorized
	case "offline":
		return v1.DeviceStatusOffline
	default:
		return v1.DeviceStatusUnknown
	}
}

func parseModel(line string) string {
	match := deviceModelPattern.FindStringSubmatch(line)
	if match == nil {
		return ""
	}
	return strings.ReplaceAll(match[1], "_", " ")
}
