// Package config handles the run configuration for farm-runner.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/farm-runner/pkg/core"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied to options left unset.
const (
	DefaultMaxDrivers = 1
	DefaultLogDir     = "target"
	DefaultFarmURL    = "https://api-cloud.browserstack.com"
	DefaultHubURL     = "https://hub-cloud.browserstack.com/wd/hub"
)

// Config represents one test run (farm-runner.yaml, env and flags merged).
type Config struct {
	// Target
	Platform string `yaml:"platform"` // Key of the platform block in the caps file
	CapsFile string `yaml:"caps"`     // Capability document, rewritten in place
	AppPath  string `yaml:"appPath"`  // Local app binary

	// Device farm
	CloudUser  string `yaml:"cloudUser"`
	CloudKey   string `yaml:"cloudKey"`
	UploadApp  bool   `yaml:"uploadApp"`  // false: look up a previous upload by file name
	MaxDrivers int    `yaml:"maxDrivers"` // Upper bound on configured devices
	FarmURL    string `yaml:"farmURL"`
	HubURL     string `yaml:"hubURL"`

	// Secure tunnel
	UseLocalTesting bool   `yaml:"useLocalTesting"`
	UseProxy        bool   `yaml:"useProxy"`
	ProxyURL        string `yaml:"proxyURL"`
	TunnelBinary    string `yaml:"tunnelBinary"`

	// Labels
	LaunchName string `yaml:"launchName"`
	LogDir     string `yaml:"logDir"`
	AppName    string `yaml:"appName"`

	Verbose bool `yaml:"verbose"`

	// CloudAppID is filled in after a successful upload so later steps reuse it.
	CloudAppID string `yaml:"-"`
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromDir looks for farm-runner.yaml or farm-runner.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, "farm-runner.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	configPath = filepath.Join(dir, "farm-runner.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return empty config
	return &Config{}, nil
}

// LoadDotEnv loads environment variables from path. Missing files are ignored.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyDefaults fills options that were left empty.
func (c *Config) ApplyDefaults() {
	if c.MaxDrivers == 0 {
		c.MaxDrivers = DefaultMaxDrivers
	}
	if c.LogDir == "" {
		c.LogDir = DefaultLogDir
	}
	if c.FarmURL == "" {
		c.FarmURL = DefaultFarmURL
	}
	if c.HubURL == "" {
		c.HubURL = DefaultHubURL
	}
	if c.TunnelBinary == "" {
		c.TunnelBinary = GetTunnelBinary()
	}
}

// Validate reports every missing or invalid option in one error.
func (c *Config) Validate() error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"platform", c.Platform},
		{"caps", c.CapsFile},
		{"appPath", c.AppPath},
		{"cloudUser", c.CloudUser},
		{"cloudKey", c.CloudKey},
		{"launchName", c.LaunchName},
		{"appName", c.AppName},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if c.UseProxy && c.ProxyURL == "" {
		missing = append(missing, "proxyURL")
	}
	if len(missing) > 0 {
		return core.ErrMissingRequired.
			WithMessagef("missing required option(s): %s", strings.Join(missing, ", ")).
			WithDetails(map[string]interface{}{"options": missing})
	}

	if c.MaxDrivers < 1 {
		return core.ErrInvalidConfig.WithMessagef("maxDrivers must be at least 1, got %d", c.MaxDrivers)
	}
	if c.UseProxy {
		u, err := url.Parse(c.ProxyURL)
		if err != nil || u.Host == "" {
			return core.ErrInvalidConfig.WithMessagef("invalid proxyURL '%s'", c.ProxyURL).WithCause(err)
		}
	}
	return nil
}

// Credentials returns the colon-joined user:key pair used by the farm API.
func (c *Config) Credentials() string {
	return c.CloudUser + ":" + c.CloudKey
}

// ActiveProxyURL returns the proxy URL when proxying is enabled, else "".
func (c *Config) ActiveProxyURL() string {
	if !c.UseProxy {
		return ""
	}
	return c.ProxyURL
}

// String renders the config for logs with the access key masked.
func (c *Config) String() string {
	key := ""
	if c.CloudKey != "" {
		key = "****"
	}
	return fmt.Sprintf("platform=%s caps=%s app=%s user=%s key=%s upload=%t local=%t proxy=%t maxDrivers=%d",
		c.Platform, c.CapsFile, c.AppPath, c.CloudUser, key, c.UploadApp, c.UseLocalTesting, c.UseProxy, c.MaxDrivers)
}
