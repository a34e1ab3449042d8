package emulatorpool

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/config"
	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/connmgr"
	"github.com/kandev/androidctl/internal/deviceio"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

// fakeADB writes an executable shell script standing in for the real adb
// binary so ConnectionManager.Connect succeeds without a real device.
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

func newTestConnMgr(t *testing.T, script string) *connmgr.ConnectionManager {
	t.Helper()
	io := deviceio.New(deviceio.Config{BinaryPath: fakeADB(t, script)}, logger.Default())
	return connmgr.New(io, v1.LanguageEnglish, logger.Default())
}

// fakeDockerClient is an in-memory dockerClient substitute.
type fakeDockerClient struct {
	containerIP    string
	containerState string
	pulled         []string
	created        []ContainerConfig
	started        []string
	stopped        []string
	removed        []string
	listed         []ContainerInfo
	failCreate     bool
	failStart      bool
}

func (f *fakeDockerClient) PullImage(ctx context.Context, imageName string) error {
	f.pulled = append(f.pulled, imageName)
	return nil
}

func (f *fakeDockerClient) CreateContainer(ctx context.Context, cfg ContainerConfig) (string, error) {
	if f.failCreate {
		return "", context.DeadlineExceeded
	}
	f.created = append(f.created, cfg)
	return "container-1", nil
}

func (f *fakeDockerClient) StartContainer(ctx context.Context, containerID string) error {
	if f.failStart {
		return context.DeadlineExceeded
	}
	f.started = append(f.started, containerID)
	return nil
}

func (f *fakeDockerClient) StopContainer(ctx context.Context, containerID string, timeout time.Duration) error {
	f.stopped = append(f.stopped, containerID)
	return nil
}

func (f *fakeDockerClient) RemoveContainer(ctx context.Context, containerID string, force bool) error {
	f.removed = append(f.removed, containerID)
	return nil
}

func (f *fakeDockerClient) GetContainerInfo(ctx context.Context, containerID string) (*ContainerInfo, error) {
	state := f.containerState
	if state == "" {
		state = "running"
	}
	return &ContainerInfo{ID: containerID, State: state}, nil
}

func (f *fakeDockerClient) GetContainerIP(ctx context.Context, containerID string) (string, error) {
	ip := f.containerIP
	if ip == "" {
		ip = "172.17.0.2"
	}
	return ip, nil
}

func (f *fakeDockerClient) ListContainers(ctx context.Context, labels map[string]string) ([]ContainerInfo, error) {
	return f.listed, nil
}

func (f *fakeDockerClient) Ping(ctx context.Context) error { return nil }
func (f *fakeDockerClient) Close() error                  { return nil }

func testCfg() config.DockerConfig {
	return config.DockerConfig{Enabled: true, Image: "androidctl/emulator:latest", AdbPort: 5555}
}

func TestAcquireReturnsNoDeviceWhenDisabled(t *testing.T) {
	connMgr := newTestConnMgr(t, `echo "connected"`)
	pool := New(&fakeDockerClient{}, config.DockerConfig{Enabled: false}, connMgr, logger.Default())

	_, err := pool.Acquire(context.Background())
	if !apperrors.Is(err, apperrors.NoDevice) {
		t.Fatalf("expected NoDevice error, got %v", err)
	}
}

func TestAcquireProvisionsAndConnects(t *testing.T) {
	connMgr := newTestConnMgr(t, `echo "connected to 172.17.0.2:5555"`)
	client := &fakeDockerClient{containerIP: "172.17.0.2"}
	pool := New(client, testCfg(), connMgr, logger.Default())

	lease, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if lease.Address != "172.17.0.2:5555" {
		t.Fatalf("unexpected address: %s", lease.Address)
	}
	if len(client.pulled) != 1 || client.pulled[0] != testCfg().Image {
		t.Fatalf("expected image pulled once, got %v", client.pulled)
	}
	if len(client.started) != 1 {
		t.Fatalf("expected container started once, got %v", client.started)
	}
	if connMgr.State(lease.Address) != connmgr.StateConnected {
		t.Fatalf("expected connected state, got %s", connMgr.State(lease.Address))
	}

	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(client.stopped) != 1 || len(client.removed) != 1 {
		t.Fatalf("expected container stopped and removed, got stopped=%v removed=%v", client.stopped, client.removed)
	}
}

func TestAcquirePullsImageOnlyOnce(t *testing.T) {
	connMgr := newTestConnMgr(t, `echo "connected to 172.17.0.2:5555"`)
	client := &fakeDockerClient{containerIP: "172.17.0.2"}
	pool := New(client, testCfg(), connMgr, logger.Default())

	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if len(client.pulled) != 1 {
		t.Fatalf("expected image pulled exactly once across acquisitions, got %d", len(client.pulled))
	}
}

func TestAcquireReleasesContainerWhenConnectFails(t *testing.T) {
	connMgr := newTestConnMgr(t, `echo "failed to connect to 172.17.0.2:5555"`)
	client := &fakeDockerClient{containerIP: "172.17.0.2"}
	pool := New(client, testCfg(), connMgr, logger.Default())

	_, err := pool.Acquire(context.Background())
	if err == nil {
		t.Fatal("expected an error when adb connect fails")
	}
	if len(client.removed) != 1 {
		t.Fatalf("expected container cleaned up after connect failure, got %v", client.removed)
	}
}

func TestReapRemovesNonRunningContainers(t *testing.T) {
	client := &fakeDockerClient{}
	pool := New(client, testCfg(), newTestConnMgr(t, `echo ok`), logger.Default())
	client.containerState = "exited"
	client.listed = []ContainerInfo{
		{ID: "stale-1", State: "exited"},
		{ID: "live-1", State: "running"},
	}

	if err := pool.Reap(context.Background()); err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if len(client.removed) != 1 || client.removed[0] != "stale-1" {
		t.Fatalf("expected only the exited container removed, got %v", client.removed)
	}
}
