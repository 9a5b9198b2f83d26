package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/devicelab-dev/farm-runner/pkg/caps"
	"github.com/devicelab-dev/farm-runner/pkg/config"
	"github.com/devicelab-dev/farm-runner/pkg/core"
	"github.com/devicelab-dev/farm-runner/pkg/farm"
	"github.com/urfave/cli/v2"
)

var devicesCommand = &cli.Command{
	Name:  "devices",
	Usage: "List farm devices matching the capability file",
	Description: `Fetch the device farm inventory and print the devices matching the
device and platformVersion of the platform block. The capability file is
not modified.

Examples:
  farm-runner -p android --caps caps/android.json devices
  farm-runner devices --all --json`,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "all",
			Usage: "Print the whole inventory without filtering",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output as JSON",
		},
	},
	Action: runDevices,
}

func runDevices(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	required := []string{"cloudUser", "cloudKey"}
	if !c.Bool("all") {
		required = append(required, "platform", "caps")
	}
	if err := requireOptions(cfg, required...); err != nil {
		return err
	}

	client, err := newFarmClient(cfg)
	if err != nil {
		return err
	}

	var devices []farm.Device
	if c.Bool("all") {
		devices, err = client.Devices(c.Context)
	} else {
		doc, loadErr := caps.Load(cfg.CapsFile)
		if loadErr != nil {
			return loadErr
		}
		platformVersion, device, selErr := doc.DeviceSelector(cfg.Platform)
		if selErr != nil {
			return selErr
		}
		devices, err = client.FilteredDevices(c.Context, farm.NewCriteria(farm.PlatformMobile, cfg.Platform, device, platformVersion))
	}
	if err != nil {
		return err
	}

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(devices)
	}

	if len(devices) == 0 {
		printWarn(out, "No matching devices")
		return nil
	}
	fmt.Fprintln(out, renderDevices(devices))
	fmt.Fprintf(out, "%d device(s)\n", len(devices))
	return nil
}

func renderDevices(devices []farm.Device) string {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{d.OS, d.OSVersion, d.Device, d.Platform()})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("OS", "VERSION", "DEVICE", "PLATFORM").
		Rows(rows...).
		String()
}

// requireOptions checks the named options of cfg are non-empty.
func requireOptions(cfg *config.Config, names ...string) error {
	values := map[string]string{
		"platform":  cfg.Platform,
		"caps":      cfg.CapsFile,
		"cloudUser": cfg.CloudUser,
		"cloudKey":  cfg.CloudKey,
	}
	var missing []string
	for _, name := range names {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return core.ErrMissingRequired.WithMessagef("missing required option(s): %s", strings.Join(missing, ", "))
	}
	return nil
}
