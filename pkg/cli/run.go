package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/devicelab-dev/farm-runner/pkg/caps"
	"github.com/devicelab-dev/farm-runner/pkg/config"
	"github.com/devicelab-dev/farm-runner/pkg/core"
	"github.com/devicelab-dev/farm-runner/pkg/driver/appium"
	"github.com/devicelab-dev/farm-runner/pkg/executor"
	"github.com/devicelab-dev/farm-runner/pkg/logger"
	"github.com/urfave/cli/v2"
)

var _ executor.Session = (*appium.Client)(nil)

var runCommand = &cli.Command{
	Name:  "run",
	Usage: "Prepare the capability file and run the smoke journey on every selected device",
	Description: `Runs prepare, then opens one farm session per selected device and walks
the app's launch, clipboard, echo and login screens. Results go to
<log-dir>/report.json. The tunnel is stopped even when sessions fail.

Examples:
  farm-runner -p android --caps caps/android.json --app theapp.apk run
  farm-runner -p android --local-testing --max-drivers 2 run --stop-on-fail`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "stop-on-fail",
			Usage: "Skip remaining devices after the first failed session",
		},
		&cli.BoolFlag{
			Name:  "capture-on-success",
			Usage: "Also capture screenshot and page source for passed sessions",
		},
	},
	Action: runRun,
}

func runRun(c *cli.Context) (err error) {
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

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := c.App.Writer
	prepared, err := prepare(ctx, out, cfg)
	if err != nil {
		return err
	}
	defer func() {
		// Cleanup runs on a fresh context so an interrupt still stops the tunnel.
		if cleanupErr := cleanup(context.WithoutCancel(ctx), out, cfg, prepared); cleanupErr != nil {
			err = errors.Join(err, cleanupErr)
		}
	}()

	artifacts := core.DefaultArtifactConfig()
	artifacts.CaptureOnSuccess = c.Bool("capture-on-success")

	runner := executor.New(executor.RunnerConfig{
		OutputDir:  cfg.LogDir,
		Platform:   cfg.Platform,
		StopOnFail: c.Bool("stop-on-fail"),
		Artifacts:  artifacts,
		NewSession: hubSessionFactory(cfg),
		OnSessionStart: func(idx, total int, d caps.DeviceEntry) {
			printStep(out, "[%d/%d] %s (%s)", idx+1, total, d.DeviceName, d.OSVersion)
		},
		OnSessionEnd: func(_ int, d caps.DeviceEntry, status core.SessionStatus, durationMs int64, runErr error) {
			if status.IsSuccess() {
				printSuccess(out, "%s (%s) %s in %dms", d.DeviceName, d.OSVersion, status, durationMs)
				return
			}
			printFail(out, "%s (%s) %s: %v", d.DeviceName, d.OSVersion, status, runErr)
		},
	})

	printHeader(out, "Sessions")
	result, err := runner.Run(ctx, prepared)
	if err != nil {
		return err
	}
	printSummary(out, result)

	if !result.Status.IsSuccess() {
		return cli.Exit(fmt.Sprintf("run %s: %d passed, %d failed, %d errored", result.Status, result.Passed, result.Failed, result.Errored), 1)
	}
	return nil
}

// hubSessionFactory opens Appium clients against the farm hub.
func hubSessionFactory(cfg *config.Config) func() (executor.Session, error) {
	return func() (executor.Session, error) {
		client := appium.NewClient(cfg.HubURL)
		if proxy := cfg.ActiveProxyURL(); proxy != "" {
			if err := client.UseProxy(proxy); err != nil {
				return nil, err
			}
		}
		return client, nil
	}
}

func printSummary(w io.Writer, result *executor.RunResult) {
	printHeader(w, "Summary")
	printField(w, "Status", result.Status.String())
	printField(w, "Sessions", fmt.Sprintf("%d total, %d passed, %d failed, %d errored", result.Total, result.Passed, result.Failed, result.Errored))
	printField(w, "Duration", fmt.Sprintf("%dms", result.Duration))
	printField(w, "Report", result.ReportPath)
	if result.Total == 0 {
		printWarn(w, "No devices were selected; nothing ran")
	}
}
