package deviceio

import (
	"testing"

	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

func TestParseDeviceLine(t *testing.T) {
	cases := []struct {
		line       string
		wantID     string
		wantStatus string
		wantOK     bool
	}{
		{"List of devices attached", "", "", false},
		{"", "", "", false},
		{"emulator-5554          device product:sdk_gphone64_x86_64 model:sdk_gphone64_x86_64 device:emu64xa transport_id:1", "emulator-5554", "device", true},
		{"192.168.1.5:5555       offline", "192.168.1.5:5555", "offline", true},
		{"ABC123XYZ              unauthorized", "ABC123XYZ", "unauthorized", true},
	}
	for _, c := range cases {
		id, status, ok := parseDeviceLine(c.line)
		if ok != c.wantOK || id != c.wantID || status != c.wantStatus {
			t.Errorf("parseDeviceLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.line, id, status, ok, c.wantID, c.wantStatus, c.wantOK)
		}
	}
}

func TestConnectionTypeOf(t *testing.T) {
	if got := connectionTypeOf("emulator-5554"); got != v1.ConnectionUSB {
		t.Errorf("expected USB for emulator serial, got %s", got)
	}
	if got := connectionTypeOf("192.168.1.5:5555"); got != v1.ConnectionTCP {
		t.Errorf("expected TCP for host:port, got %s", got)
	}
}

func TestParseModel(t *testing.T) {
	line := "emulator-5554 device product:sdk_gphone64 model:Pixel_7_Pro device:emu64xa"
	if got := parseModel(line); got != "Pixel 7 Pro" {
		t.Errorf("expected 'Pixel 7 Pro', got %q", got)
	}
	if got := parseModel("no-model-field here"); got != "" {
		t.Errorf("expected empty model, got %q", got)
	}
}
