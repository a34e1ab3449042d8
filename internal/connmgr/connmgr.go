// Package connmgr exposes the device connect/disconnect/discovery surface
// layered on top of internal/deviceio's raw adb plumbing.
package connmgr

import (
	"fmt"
	"sync"

	"context"

	v1 "github.com/kandev/androidctl/pkg/api/v1"

	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/deviceio"
)

// State names a position in the per-address connection state machine:
// Unknown -> Connecting -> {Connected, Failed}; Connected -> Disconnected.
type State string

const (
	StateUnknown      State = "unknown"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
	StateDisconnected State = "disconnected"
)

// ConnectionManager tracks connection state per address and delegates the
// actual adb calls to DeviceIO.
type ConnectionManager struct {
	io     *deviceio.DeviceIO
	logger *logger.Logger
	lang   v1.Language

	mu     sync.Mutex
	states map[string]State
}

// New creates a ConnectionManager. lang selects the language of
// human-readable result messages returned from every method.
func New(io *deviceio.DeviceIO, lang v1.Language, log *logger.Logger) *ConnectionManager {
	if lang != v1.LanguageChinese {
		lang = v1.LanguageEnglish
	}
	return &ConnectionManager{io: io, logger: log, lang: lang, states: map[string]State{}}
}

func (c *ConnectionManager) setState(address string, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[address] = s
}

// State returns the last observed state for address (StateUnknown if never
// seen).
func (c *ConnectionManager) State(address string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[address]; ok {
		return s
	}
	return StateUnknown
}

// Connect issues `adb connect <address>` and transitions the address's
// state to Connected or Failed.
func (c *ConnectionManager) Connect(ctx context.Context, address string) (ok bool, humanMessage string) {
	c.setState(address, StateConnecting)

	if err := c.io.Connect(ctx, address); err != nil {
		c.setState(address, StateFailed)
		return false, c.msg(msgConnectFailed, address, err)
	}

	c.setState(address, StateConnected)
	return true, c.msg(msgConnected, address, nil)
}

// Disconnect issues `adb disconnect [address]`. An empty address
// disconnects every TCP/IP-connected device.
func (c *ConnectionManager) Disconnect(ctx context.Context, address string) (ok bool, humanMessage string) {
	if err := c.io.Disconnect(ctx, address); err != nil {
		return false, c.msg(msgDisconnectFailed, address, err)
	}
	if address != "" {
		c.setState(address, StateDisconnected)
	}
	return true, c.msg(msgDisconnected, address, nil)
}

// ListDevices delegates to DeviceIO and reconciles tracked state: any
// address previously Connected but now absent or offline moves to
// Disconnected/Failed.
func (c *ConnectionManager) ListDevices(ctx context.Context) ([]v1.DeviceInfo, error) {
	devices, err := c.io.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(devices))
	for _, dev := range devices {
		seen[dev.ID] = true
		if dev.Status == v1.DeviceStatusDevice {
			c.setState(dev.ID, StateConnected)
		} else {
			c.setState(dev.ID, StateFailed)
		}
	}

	c.mu.Lock()
	for addr, state := range c.states {
		if state == StateConnected && !seen[addr] {
			c.states[addr] = StateDisconnected
		}
	}
	c.mu.Unlock()

	return devices, nil
}

// EnableTcpip switches a USB-connected device into TCP/IP mode on the given
// port. It is only legal from a Connected USB device; it does not itself
// transition any state — a subsequent Connect("ip:port") is required.
func (c *ConnectionManager) EnableTcpip(ctx context.Context, deviceID string, port int) (ok bool, humanMessage string) {
	if port <= 0 {
		port = 5555
	}
	if err := c.io.TcpIP(ctx, deviceID, port); err != nil {
		return false, c.msg(msgTcpipFailed, deviceID, err)
	}
	return true, c.msg(msgTcpipEnabled, fmt.Sprintf("%s:%d", deviceID, port), nil)
}

// GetDeviceIp returns the device's wlan0 IP address, used to build the
// address for a subsequent Connect call.
func (c *ConnectionManager) GetDeviceIp(ctx context.Context, deviceID string) (string, error) {
	return c.io.WlanIP(ctx, deviceID)
}

type msgKind int

const (
	msgConnected msgKind = iota
	msgConnectFailed
	msgDisconnected
	msgDisconnectFailed
	msgTcpipEnabled
	msgTcpipFailed
)

// msg renders a human-readable result message localized per c.lang. English
// and Chinese templates are kept side by side rather than in a separate
// resource file since the message set is small and fixed.
func (c *ConnectionManager) msg(kind msgKind, subject string, err error) string {
	templates := enTemplates
	if c.lang == v1.LanguageChinese {
		templates = cnTemplates
	}
	tmpl := templates[kind]
	if err != nil {
		return fmt.Sprintf(tmpl.withErr, subject, err)
	}
	return fmt.Sprintf(tmpl.plain, subject)
}

type messageTemplate struct {
	plain   string
	withErr string
}

var enTemplates = map[msgKind]messageTemplate{
	msgConnected:        {plain: "connected to %s"},
	msgConnectFailed:    {withErr: "failed to connect to %s: %v"},
	msgDisconnected:     {plain: "disconnected %s"},
	msgDisconnectFailed: {withErr: "failed to disconnect %s: %v"},
	msgTcpipEnabled:     {plain: "tcpip mode enabled, connect to %s"},
	msgTcpipFailed:      {withErr: "failed to enable tcpip mode on %s: %v"},
}

var cnTemplates = map[msgKind]messageTemplate{
	msgConnected:        {plain: "已连接到 %s"},
	msgConnectFailed:    {withErr: "连接 %s 失败：%v"},
	msgDisconnected:     {plain: "已断开 %s"},
	msgDisconnectFailed: {withErr: "断开 %s 失败：%v"},
	msgTcpipEnabled:     {plain: "已启用 TCP/IP 模式，可连接 %s"},
	msgTcpipFailed:      {withErr: "在 %s 上启用 TCP/IP 模式失败：%v"},
}
