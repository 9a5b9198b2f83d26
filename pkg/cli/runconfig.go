package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/devicelab-dev/farm-runner/pkg/config"
	"github.com/devicelab-dev/farm-runner/pkg/farm"
	"github.com/devicelab-dev/farm-runner/pkg/logger"
	"github.com/devicelab-dev/farm-runner/pkg/setup"
	"github.com/devicelab-dev/farm-runner/pkg/tunnel"
	"github.com/urfave/cli/v2"
)

const (
	logFileName       = "farm-runner.log"
	tunnelLogFileName = "tunnel.log"
	inventoryFileName = "device_inventory.json"
)

// loadConfig merges the config file with env-backed flags. Values set on the
// command line or in the environment win over the file.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	stringFlags := []struct {
		flag string
		dst  *string
	}{
		{"platform", &cfg.Platform},
		{"caps", &cfg.CapsFile},
		{"app", &cfg.AppPath},
		{"cloud-user", &cfg.CloudUser},
		{"cloud-key", &cfg.CloudKey},
		{"proxy-url", &cfg.ProxyURL},
		{"launch-name", &cfg.LaunchName},
		{"log-dir", &cfg.LogDir},
		{"app-name", &cfg.AppName},
		{"tunnel-binary", &cfg.TunnelBinary},
		{"farm-url", &cfg.FarmURL},
		{"hub-url", &cfg.HubURL},
	}
	for _, s := range stringFlags {
		if c.IsSet(s.flag) {
			*s.dst = c.String(s.flag)
		}
	}

	bools := []struct {
		flag string
		dst  *bool
	}{
		{"upload-app", &cfg.UploadApp},
		{"local-testing", &cfg.UseLocalTesting},
		{"use-proxy", &cfg.UseProxy},
		{"verbose", &cfg.Verbose},
	}
	for _, b := range bools {
		if c.IsSet(b.flag) {
			*b.dst = c.Bool(b.flag)
		}
	}

	if c.IsSet("max-drivers") {
		cfg.MaxDrivers = c.Int("max-drivers")
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

// initLogging opens <logDir>/farm-runner.log.
func initLogging(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}
	logger.SetDebug(cfg.Verbose)
	if err := logger.Init(filepath.Join(cfg.LogDir, logFileName)); err != nil {
		return err
	}
	logger.Info("=== farm-runner %s ===", Version)
	logger.Info("Config: %s", cfg)
	return nil
}

func newFarmClient(cfg *config.Config) (*farm.Client, error) {
	return farm.NewClient(farm.Options{
		BaseURL:  cfg.FarmURL,
		User:     cfg.CloudUser,
		Key:      cfg.CloudKey,
		ProxyURL: cfg.ActiveProxyURL(),
	})
}

func newAssembler(cfg *config.Config, client *farm.Client) *setup.Assembler {
	return &setup.Assembler{
		Config:            cfg,
		Apps:              client,
		Inventory:         client,
		Tunnels:           tunnel.NewManager(cfg.TunnelBinary, cfg.ActiveProxyURL(), filepath.Join(cfg.LogDir, tunnelLogFileName)),
		InventorySnapshot: filepath.Join(cfg.LogDir, inventoryFileName),
	}
}
