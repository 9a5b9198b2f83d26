package setup

//go:generate mockgen -destination=mock_setup.go -package=setup github.com/devicelab-dev/farm-runner/pkg/setup AppStore,DeviceInventory,TunnelStarter

import (
	"context"

	"github.com/devicelab-dev/farm-runner/pkg/farm"
	"github.com/devicelab-dev/farm-runner/pkg/tunnel"
)

// AppStore publishes app binaries to the device farm.
type AppStore interface {
	UploadApp(ctx context.Context, appPath, customID string) (string, error)
	RecentApp(ctx context.Context, appName string) (string, error)
}

// DeviceInventory lists the farm's devices.
type DeviceInventory interface {
	Devices(ctx context.Context) ([]farm.Device, error)
}

// TunnelStarter starts the run's secure tunnel.
type TunnelStarter interface {
	Start(ctx context.Context, key, identifier string) (*tunnel.Tunnel, error)
}
