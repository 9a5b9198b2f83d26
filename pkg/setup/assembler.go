// Package setup turns a loaded capability document into a farm-ready one:
// it publishes the app, starts the secure tunnel when local testing is on,
// selects devices from the farm inventory and saves the result.
package setup

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/farm-runner/pkg/caps"
	"github.com/devicelab-dev/farm-runner/pkg/config"
	"github.com/devicelab-dev/farm-runner/pkg/core"
	"github.com/devicelab-dev/farm-runner/pkg/farm"
	"github.com/devicelab-dev/farm-runner/pkg/logger"
	"github.com/devicelab-dev/farm-runner/pkg/tunnel"
)

// Capability keys written into the platform block.
const (
	CapUser            = "browserstack.user"
	CapKey             = "browserstack.key"
	CapLocal           = "browserstack.local"
	CapLocalIdentifier = "browserstack.localIdentifier"
	CapBuild           = "build"
	CapProject         = "project"
)

// Assembler prepares the capability file of one run.
type Assembler struct {
	Config    *config.Config
	Apps      AppStore
	Inventory DeviceInventory
	Tunnels   TunnelStarter

	// NewID generates the tunnel identifier. Defaults to RandomIdentifier.
	NewID func() string
	// InventorySnapshot, when set, receives the unfiltered inventory as JSON.
	InventorySnapshot string
}

// Result describes the saved capability document.
type Result struct {
	AppID          string
	Build          string
	Project        string
	Criteria       farm.Criteria
	Devices        []caps.DeviceEntry
	CapabilityFile string
	Document       *caps.Document
	// Tunnel is nil unless local testing is enabled. The caller owns it and
	// must pass it to Cleanup.
	Tunnel *tunnel.Tunnel
}

// Update runs the whole capability update. On error nothing is saved and a
// tunnel started along the way is stopped again.
func (a *Assembler) Update(ctx context.Context) (result *Result, err error) {
	cfg := a.Config
	platform := cfg.Platform

	appPath, err := filepath.Abs(cfg.AppPath)
	if err != nil {
		return nil, core.ErrInvalidConfig.WithMessagef("app path '%s' cannot be resolved", cfg.AppPath).WithCause(err)
	}

	doc, err := caps.Load(cfg.CapsFile)
	if err != nil {
		return nil, err
	}
	block, err := doc.Platform(platform)
	if err != nil {
		return nil, err
	}
	app, err := doc.App(platform)
	if err != nil {
		return nil, err
	}
	machineIP, err := doc.MachineIP()
	if err != nil {
		return nil, err
	}
	platformVersion, deviceName, err := doc.DeviceSelector(platform)
	if err != nil {
		return nil, err
	}
	logger.Debug("Remote host machine: %s", machineIP)

	appID, err := ResolveApp(ctx, cfg, a.Apps, appPath)
	if err != nil {
		return nil, err
	}

	app[caps.KeyAppLocal] = appPath
	app[caps.KeyAppCloud] = appID
	block[CapUser] = cfg.CloudUser
	block[CapKey] = cfg.CloudKey

	result = &Result{AppID: appID, CapabilityFile: cfg.CapsFile, Document: doc}

	if cfg.UseLocalTesting {
		identifier := a.newID()
		logger.Info("CLOUD_USE_LOCAL_TESTING=true. Setting up tunnel using identifier: '%s'", identifier)
		var t *tunnel.Tunnel
		t, err = a.Tunnels.Start(ctx, cfg.CloudKey, identifier)
		if err != nil {
			return nil, err
		}
		result.Tunnel = t
		defer func() {
			if err == nil {
				return
			}
			// The rollback must reach the daemon even when ctx was cancelled.
			if stopErr := t.Stop(context.WithoutCancel(ctx)); stopErr != nil {
				logger.Error("Stopping tunnel after failed update: %v", stopErr)
			}
		}()
		block[CapLocal] = "true"
		block[CapLocalIdentifier] = identifier
	}

	result.Build = BuildName(cfg.LaunchName, cfg.LogDir)
	result.Project = cfg.AppName
	block[CapBuild] = result.Build
	block[CapProject] = result.Project

	if err := doc.RemoveDeviceSelector(platform); err != nil {
		return nil, err
	}

	result.Criteria = farm.NewCriteria(farm.PlatformMobile, platform, deviceName, platformVersion)
	devices, err := a.selectDevices(ctx, result.Criteria)
	if err != nil {
		return nil, err
	}
	result.Devices = devices

	if err := doc.SetDevices(devices); err != nil {
		return nil, err
	}
	if err := doc.Save(cfg.CapsFile); err != nil {
		return nil, err
	}
	logger.Info("Updated capability file: %s", cfg.CapsFile)

	return result, nil
}

func (a *Assembler) selectDevices(ctx context.Context, criteria farm.Criteria) ([]caps.DeviceEntry, error) {
	logger.Info("Filtering device inventory with: %s", criteria)
	inventory, err := a.Inventory.Devices(ctx)
	if err != nil {
		return nil, err
	}
	if a.InventorySnapshot != "" {
		if err := farm.SaveInventory(a.InventorySnapshot, inventory); err != nil {
			logger.Warn("Could not save device inventory to %s: %v", a.InventorySnapshot, err)
		}
	}

	matched := farm.Filter(inventory, criteria)
	count := max(min(len(matched), a.Config.MaxDrivers), 0)
	logger.Info("Adding '%d' available devices for executing on the device farm (%d matched)", count, len(matched))

	entries := make([]caps.DeviceEntry, 0, count)
	for _, d := range matched[:count] {
		entries = append(entries, caps.DeviceEntry{
			OSVersion:  d.OSVersion,
			DeviceName: d.Device,
			Device:     d.Device,
		})
	}
	return entries, nil
}

func (a *Assembler) newID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return RandomIdentifier()
}

// BuildName is "<launchName>-<logDir>" with path separators removed from logDir.
func BuildName(launchName, logDir string) string {
	subset := strings.NewReplacer("/", "", "\\", "").Replace(logDir)
	return fmt.Sprintf("%s-%s", launchName, subset)
}

// Cleanup stops the tunnel when local testing is enabled for this run.
func Cleanup(ctx context.Context, cfg *config.Config, t *tunnel.Tunnel) error {
	logger.Info("stopTunnel: CLOUD_USE_LOCAL_TESTING=%t", cfg.UseLocalTesting)
	if !cfg.UseLocalTesting {
		return nil
	}
	if err := t.Stop(ctx); err != nil {
		logger.Error("Stopping tunnel: %v", err)
		return err
	}
	return nil
}
