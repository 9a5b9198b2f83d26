package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/devicelab-dev/farm-runner/pkg/config"
	"github.com/devicelab-dev/farm-runner/pkg/logger"
	"github.com/devicelab-dev/farm-runner/pkg/setup"
	"github.com/urfave/cli/v2"
)

var prepareCommand = &cli.Command{
	Name:  "prepare",
	Usage: "Publish the app, select devices and rewrite the capability file",
	Description: `Resolve the app on the device farm, filter the device inventory by the
platform block's device and platformVersion, and write the selected devices
into the capability file. A tunnel started for local testing is stopped
again before the command returns.

Examples:
  farm-runner -p android --caps caps/android.json --app theapp.apk prepare
  farm-runner -p android --upload-app --max-drivers 3 prepare`,
	Action: runPrepare,
}

func runPrepare(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logger.Close()

	out := c.App.Writer
	result, err := prepare(c.Context, out, cfg)
	if err != nil {
		return err
	}
	return cleanup(c.Context, out, cfg, result)
}

// prepare runs the capability update and prints its outcome.
func prepare(ctx context.Context, out io.Writer, cfg *config.Config) (*setup.Result, error) {
	client, err := newFarmClient(cfg)
	if err != nil {
		return nil, err
	}

	printHeader(out, "Setup")
	printStep(out, "Updating capabilities for %s in %s", cfg.Platform, cfg.CapsFile)
	if cfg.UseLocalTesting {
		printStep(out, "Starting secure tunnel")
	}

	result, err := newAssembler(cfg, client).Update(ctx)
	if err != nil {
		logger.Error("Capability update failed: %v", err)
		printFail(out, "Capability update failed: %v", err)
		return nil, err
	}

	printSuccess(out, "Capability file updated: %s", result.CapabilityFile)
	printField(out, "App", result.AppID)
	printField(out, "Build", result.Build)
	printField(out, "Project", result.Project)
	printField(out, "Filter", result.Criteria.String())
	if result.Tunnel != nil {
		printField(out, "Tunnel", fmt.Sprintf("%s (pid %d)", result.Tunnel.Identifier(), result.Tunnel.PID()))
	}

	if len(result.Devices) == 0 {
		printWarn(out, "No farm devices match the requested device and platformVersion")
	}
	for _, d := range result.Devices {
		printField(out, "Device", fmt.Sprintf("%s (%s)", d.DeviceName, d.OSVersion))
	}
	return result, nil
}

// cleanup stops the tunnel of a local-testing run.
func cleanup(ctx context.Context, out io.Writer, cfg *config.Config, result *setup.Result) error {
	if result == nil || result.Tunnel == nil {
		return setup.Cleanup(ctx, cfg, nil)
	}
	if err := setup.Cleanup(ctx, cfg, result.Tunnel); err != nil {
		printFail(out, "Stopping tunnel %s failed: %v", result.Tunnel.Identifier(), err)
		return err
	}
	printSuccess(out, "Tunnel %s stopped", result.Tunnel.Identifier())
	return nil
}
