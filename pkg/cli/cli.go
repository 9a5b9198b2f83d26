// Package cli provides the command-line interface for farm-runner.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/devicelab-dev/farm-runner/pkg/config"
	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

const defaultEnvFile = ".env"

// GlobalFlags returns the flags available to all commands. Environment
// variables override the config file; flags override both.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file (default: farm-runner.yaml in the working directory)",
			EnvVars: []string{"FARM_RUNNER_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Dotenv file loaded before flags are parsed",
			Value: defaultEnvFile,
		},
		&cli.StringFlag{
			Name:    "platform",
			Aliases: []string{"p"},
			Usage:   "Platform block of the capability file (android, iOS)",
			EnvVars: []string{"PLATFORM"},
		},
		&cli.StringFlag{
			Name:    "caps",
			Usage:   "Capability file, rewritten in place",
			EnvVars: []string{"CAPS"},
		},
		&cli.StringFlag{
			Name:    "app",
			Usage:   "App binary (.apk, .ipa) to publish",
			EnvVars: []string{"APP_PATH"},
		},
		&cli.StringFlag{
			Name:    "cloud-user",
			Usage:   "Device farm user name",
			EnvVars: []string{"CLOUD_USER"},
		},
		&cli.StringFlag{
			Name:    "cloud-key",
			Usage:   "Device farm access key",
			EnvVars: []string{"CLOUD_KEY"},
		},
		&cli.BoolFlag{
			Name:    "upload-app",
			Usage:   "Upload the app instead of reusing the latest upload with the same file name",
			EnvVars: []string{"CLOUD_UPLOAD_APP"},
		},
		&cli.BoolFlag{
			Name:    "local-testing",
			Usage:   "Start a secure tunnel so farm devices can reach this machine",
			EnvVars: []string{"CLOUD_USE_LOCAL_TESTING"},
		},
		&cli.BoolFlag{
			Name:    "use-proxy",
			Usage:   "Route farm and tunnel traffic through --proxy-url",
			EnvVars: []string{"CLOUD_USE_PROXY"},
		},
		&cli.StringFlag{
			Name:    "proxy-url",
			Usage:   "HTTP proxy URL",
			EnvVars: []string{"PROXY_URL"},
		},
		&cli.IntFlag{
			Name:    "max-drivers",
			Usage:   "Maximum number of devices to configure",
			EnvVars: []string{"MAX_NUMBER_OF_APPIUM_DRIVERS"},
		},
		&cli.StringFlag{
			Name:    "launch-name",
			Usage:   "Launch name, prefix of the build label",
			EnvVars: []string{"LAUNCH_NAME"},
		},
		&cli.StringFlag{
			Name:    "log-dir",
			Usage:   "Directory for logs and reports",
			EnvVars: []string{"LOG_DIR"},
		},
		&cli.StringFlag{
			Name:    "app-name",
			Usage:   "Project label",
			EnvVars: []string{"APP_NAME"},
		},
		&cli.StringFlag{
			Name:    "tunnel-binary",
			Usage:   "Path to the BrowserStackLocal binary",
			EnvVars: []string{"TUNNEL_BINARY"},
		},
		&cli.StringFlag{
			Name:    "farm-url",
			Usage:   "Device farm REST API base URL",
			EnvVars: []string{"FARM_URL"},
		},
		&cli.StringFlag{
			Name:    "hub-url",
			Usage:   "Device farm Appium hub URL",
			EnvVars: []string{"HUB_URL"},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Enable debug logging",
			EnvVars: []string{"FARM_RUNNER_VERBOSE"},
		},
	}
}

// NewApp builds the farm-runner application.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "farm-runner",
		Usage:   "Run mobile end-to-end tests on a cloud device farm",
		Version: Version,
		Description: `farm-runner prepares a capability file for the device farm (app upload,
device selection, secure tunnel) and runs the smoke journey on every
selected device.

Examples:
  farm-runner --platform android --caps caps/android.json --app theapp.apk prepare
  farm-runner -p android devices
  farm-runner -p android --local-testing run`,
		Flags: GlobalFlags(),
		Commands: []*cli.Command{
			prepareCommand,
			devicesCommand,
			runCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := config.LoadDotEnv(envFileFromArgs(os.Args[1:])); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := NewApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// envFileFromArgs finds --env-file ahead of flag parsing so that the dotenv
// values are visible to the env-backed flags.
func envFileFromArgs(args []string) string {
	for i, arg := range args {
		switch {
		case arg == "--":
			return defaultEnvFile
		case arg == "--env-file" || arg == "-env-file":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(arg, "--env-file="):
			return strings.TrimPrefix(arg, "--env-file=")
		case strings.HasPrefix(arg, "-env-file="):
			return strings.TrimPrefix(arg, "-env-file=")
		}
	}
	return defaultEnvFile
}
