package emulatorpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kandev/androidctl/internal/common/apperrors"
	"github.com/kandev/androidctl/internal/common/config"
	"github.com/kandev/androidctl/internal/common/logger"
	"github.com/kandev/androidctl/internal/connmgr"
)

const (
	labelPool       = "androidctl.pool"
	labelPoolValue  = "emulator"
	containerPrefix = "androidctl-emulator-"
	stopTimeout     = 10 * time.Second
	bootPollEvery   = 2 * time.Second
)

// Lease is one acquired emulator: Address is the "host:port" a
// ConnectionManager.Connect call should dial; Release stops and removes the
// backing container.
type Lease struct {
	ContainerID string
	Address     string
	Release     func(ctx context.Context) error
}

// Pool provisions disposable Android emulator containers, each running the
// configured image and exposing an ADB endpoint on AdbPort.
type Pool struct {
	client  dockerClient
	cfg     config.DockerConfig
	connMgr *connmgr.ConnectionManager
	logger  *logger.Logger

	mu          sync.Mutex
	pulledImage bool
}

// New builds a Pool. connMgr is used to adb-connect to each provisioned
// container so it shows up through the same ConnectionManager/ListDevices
// surface a physical device would.
func New(client dockerClient, cfg config.DockerConfig, connMgr *connmgr.ConnectionManager, log *logger.Logger) *Pool {
	return &Pool{client: client, cfg: cfg, connMgr: connMgr, logger: log}
}

// Acquire provisions a fresh emulator container, waits for its ADB endpoint
// to come up, and connects to it. Returns apperrors.NoDevice if the pool is
// disabled via config.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	if !p.cfg.Enabled {
		return nil, apperrors.NoDeviceError("emulator pool is disabled")
	}

	if err := p.ensureImage(ctx); err != nil {
		return nil, apperrors.StoreErr("emulator image pull failed", err)
	}

	name := containerPrefix + uuid.NewString()[:8]
	adbPort := p.cfg.AdbPort
	if adbPort <= 0 {
		adbPort = 5555
	}
	containerPort := fmt.Sprintf("%d/tcp", adbPort)

	containerID, err := p.client.CreateContainer(ctx, ContainerConfig{
		Name:        name,
		Image:       p.cfg.Image,
		NetworkMode: p.cfg.DefaultNetwork,
		Labels:      map[string]string{labelPool: labelPoolValue},
		AutoRemove:  false,
		PortBindings: map[string]string{
			containerPort: "",
		},
	})
	if err != nil {
		return nil, apperrors.StoreErr("emulator container create failed", err)
	}

	release := func(ctx context.Context) error {
		return p.release(ctx, containerID)
	}

	if err := p.client.StartContainer(ctx, containerID); err != nil {
		_ = p.release(context.Background(), containerID)
		return nil, apperrors.StoreErr("emulator container start failed", err)
	}

	address, err := p.waitForADB(ctx, containerID, adbPort)
	if err != nil {
		_ = p.release(context.Background(), containerID)
		return nil, err
	}

	if ok, msg := p.connMgr.Connect(ctx, address); !ok {
		_ = p.release(context.Background(), containerID)
		return nil, apperrors.StoreErr("emulator adb connect failed", fmt.Errorf("%s", msg))
	}

	p.logger.Info("emulator acquired", zap.String("containerId", containerID), zap.String("address", address))
	return &Lease{ContainerID: containerID, Address: address, Release: release}, nil
}

// ensureImage pulls cfg.Image once per Pool lifetime; subsequent Acquire
// calls reuse the already-pulled image.
func (p *Pool) ensureImage(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pulledImage {
		return nil
	}
	if err := p.client.PullImage(ctx, p.cfg.Image); err != nil {
		return err
	}
	p.pulledImage = true
	return nil
}

// waitForADB polls the container's IP until ContainerInfo reports it
// running, then returns "ip:adbPort". Bounded by ctx's deadline.
func (p *Pool) waitForADB(ctx context.Context, containerID string, adbPort int) (string, error) {
	ticker := time.NewTicker(bootPollEvery)
	defer ticker.Stop()

	for {
		info, err := p.client.GetContainerInfo(ctx, containerID)
		if err == nil && info.State == "running" {
			ip, err := p.client.GetContainerIP(ctx, containerID)
			if err == nil && ip != "" {
				return fmt.Sprintf("%s:%d", ip, adbPort), nil
			}
		}

		select {
		case <-ctx.Done():
			return "", apperrors.TimeoutErr("waiting for emulator container to boot", timeoutStringer{ctx})
		case <-ticker.C:
		}
	}
}

// release stops and removes containerID; it does not disconnect the
// container's adb address. A stop failure is logged and removal still
// attempted; a remove failure is logged and returned, and the leaked
// container is left for a later Reap pass, not retried inline here.
func (p *Pool) release(ctx context.Context, containerID string) error {
	if err := p.client.StopContainer(ctx, containerID, stopTimeout); err != nil {
		p.logger.Warn("emulator stop failed", zap.String("containerId", containerID), zap.Error(err))
	}
	if err := p.client.RemoveContainer(ctx, containerID, true); err != nil {
		p.logger.Warn("emulator remove failed", zap.String("containerId", containerID), zap.Error(err))
		return err
	}
	return nil
}

// Reap removes every tracked emulator container not in running state,
// reconciling after a process crash that left containers behind. Removals
// run concurrently since each is an independent Docker API call; a failure
// on one container is logged and does not stop the others from reaping.
func (p *Pool) Reap(ctx context.Context) error {
	containers, err := p.client.ListContainers(ctx, map[string]string{labelPool: labelPoolValue})
	if err != nil {
		return apperrors.StoreErr("emulator pool list failed", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range containers {
		if c.State == "running" {
			continue
		}
		c := c
		g.Go(func() error {
			if err := p.client.RemoveContainer(gctx, c.ID, true); err != nil {
				p.logger.Warn("emulator reap failed", zap.String("containerId", c.ID), zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases the Docker client connection. A no-op when the pool was
// built disabled (client is nil).
func (p *Pool) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

type timeoutStringer struct{ ctx context.Context }

func (t timeoutStringer) String() string {
	if dl, ok := t.ctx.Deadline(); ok {
		return time.Until(dl).String()
	}
	return "unbounded"
}
