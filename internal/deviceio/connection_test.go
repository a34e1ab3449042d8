package deviceio

import (
	"context"
	"testing"
)

func TestConnectSurfacesUnableToConnect(t *testing.T) {
	d := newTestDeviceIO(t, `echo "failed to connect to 1.2.3.4:5555"`)
	err := d.Connect(context.Background(), "1.2.3.4:5555")
	if err == nil {
		t.Fatal("expected an error for a failed connect")
	}
}

func TestConnectSucceeds(t *testing.T) {
	d := newTestDeviceIO(t, `echo "connected to 1.2.3.4:5555"`)
	if err := d.Connect(context.Background(), "1.2.3.4:5555"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWlanIPParsesRouteOutput(t *testing.T) {
	d := newTestDeviceIO(t, `cat <<'EOF'
192.168.1.0/24 dev wlan0 proto kernel scope link src 192.168.1.42
EOF`)
	ip, err := d.WlanIP(context.Background(), "emulator-5554")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ip != "192.168.1.42" {
		t.Errorf("expected 192.168.1.42, got %q", ip)
	}
}

func TestWlanIPNoRoute(t *testing.T) {
	d := newTestDeviceIO(t, `echo "default via 10.0.0.1 dev rmnet0"`)
	if _, err := d.WlanIP(context.Background(), "emulator-5554"); err == nil {
		t.Fatal("expected an error when no wlan0 route is present")
	}
}
