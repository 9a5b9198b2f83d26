package setup

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/devicelab-dev/farm-runner/pkg/caps"
	"github.com/devicelab-dev/farm-runner/pkg/config"
	"github.com/devicelab-dev/farm-runner/pkg/core"
	"github.com/devicelab-dev/farm-runner/pkg/farm"
	"github.com/devicelab-dev/farm-runner/pkg/tunnel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const exampleDoc = `{"Android": {"app": {}, "device": "Pixel4", "platformVersion": "11"}, "hostMachines": [{"machineIP": "1.2.3.4"}]}`

var threeMatching = []farm.Device{
	{OS: "Android", OSVersion: "11", Device: "Pixel4", RealMobile: true},
	{OS: "Android", OSVersion: "12", Device: "Pixel4", RealMobile: true},
	{OS: "Android", OSVersion: "11", Device: "Pixel4", RealMobile: true},
	{OS: "ios", OSVersion: "11", Device: "Pixel4", RealMobile: true},
	{OS: "Android", OSVersion: "11", Device: "Pixel4", RealMobile: true},
}

type fixture struct {
	cfg       *config.Config
	apps      *MockAppStore
	inventory *MockDeviceInventory
	tunnels   *MockTunnelStarter
	assembler *Assembler
	appPath   string
}

func newFixture(t *testing.T, doc string) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	capsFile := filepath.Join(dir, "caps.json")
	require.NoError(t, os.WriteFile(capsFile, []byte(doc), 0644))
	appPath := filepath.Join(dir, "theapp.apk")
	require.NoError(t, os.WriteFile(appPath, []byte("apk"), 0644))

	cfg := &config.Config{
		Platform:   "Android",
		CapsFile:   capsFile,
		AppPath:    appPath,
		CloudUser:  "jane",
		CloudKey:   "s3cret",
		MaxDrivers: 2,
		LaunchName: "nightly",
		LogDir:     "target/2024-01-01_10-00",
		AppName:    "theapp",
	}
	f := &fixture{
		cfg:       cfg,
		apps:      NewMockAppStore(ctrl),
		inventory: NewMockDeviceInventory(ctrl),
		tunnels:   NewMockTunnelStarter(ctrl),
		appPath:   appPath,
	}
	f.assembler = &Assembler{
		Config:    cfg,
		Apps:      f.apps,
		Inventory: f.inventory,
		Tunnels:   f.tunnels,
		NewID:     func() string { return "abcdefghij" },
	}
	return f
}

func loadSaved(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestUpdate_CapsDevicesAtMaxDrivers(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.apps.EXPECT().RecentApp(gomock.Any(), "theapp.apk").Return("bs://recent", nil)
	f.inventory.EXPECT().Devices(gomock.Any()).Return(threeMatching, nil)

	result, err := f.assembler.Update(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Devices, 2)
	for _, d := range result.Devices {
		assert.Equal(t, caps.DeviceEntry{OSVersion: "11", DeviceName: "Pixel4", Device: "Pixel4"}, d)
	}
	assert.Nil(t, result.Tunnel)
	assert.Equal(t, "bs://recent", result.AppID)
	assert.Equal(t, "nightly-target2024-01-01_10-00", result.Build)
	assert.Equal(t, "theapp", result.Project)

	saved := loadSaved(t, f.cfg.CapsFile)
	block := saved["Android"].(map[string]interface{})
	assert.NotContains(t, block, "device")
	assert.Equal(t, "11", block["platformVersion"])
	assert.Equal(t, "jane", block[CapUser])
	assert.Equal(t, "s3cret", block[CapKey])
	assert.Equal(t, "nightly-target2024-01-01_10-00", block[CapBuild])
	assert.Equal(t, "theapp", block[CapProject])
	assert.NotContains(t, block, CapLocal)

	app := block["app"].(map[string]interface{})
	assert.Equal(t, f.appPath, app["local"])
	assert.Equal(t, "bs://recent", app["cloud"])

	host := saved["hostMachines"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "1.2.3.4", host["machineIP"])
	devices := host["devices"].([]interface{})
	require.Len(t, devices, 2)
	assert.Equal(t, map[string]interface{}{"osVersion": "11", "deviceName": "Pixel4", "device": "Pixel4"}, devices[0])
}

func TestUpdate_FewerMatchesThanMaxDrivers(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.cfg.MaxDrivers = 10
	f.apps.EXPECT().RecentApp(gomock.Any(), gomock.Any()).Return("bs://recent", nil)
	f.inventory.EXPECT().Devices(gomock.Any()).Return(threeMatching, nil)

	result, err := f.assembler.Update(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Devices, 3)
}

func TestUpdate_NoMatchingDevices(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.apps.EXPECT().RecentApp(gomock.Any(), gomock.Any()).Return("bs://recent", nil)
	f.inventory.EXPECT().Devices(gomock.Any()).Return([]farm.Device{{OS: "ios", OSVersion: "16", Device: "iPhone 14"}}, nil)

	result, err := f.assembler.Update(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Devices)

	host := loadSaved(t, f.cfg.CapsFile)["hostMachines"].([]interface{})[0].(map[string]interface{})
	assert.Empty(t, host["devices"])
}

func TestUpdate_UploadsAndCachesAppID(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.cfg.UploadApp = true
	f.apps.EXPECT().UploadApp(gomock.Any(), f.appPath, "theapp.apk").Return("bs://uploaded", nil).Times(1)
	f.inventory.EXPECT().Devices(gomock.Any()).Return(threeMatching, nil)

	result, err := f.assembler.Update(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bs://uploaded", result.AppID)
	assert.Equal(t, "bs://uploaded", f.cfg.CloudAppID)
}

func TestUpdate_AppNotFoundAborts(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.apps.EXPECT().RecentApp(gomock.Any(), "theapp.apk").
		Return("", core.ErrAppNotFound.WithMessage("App with id: 'theapp.apk' is not uploaded to the device farm"))

	_, err := f.assembler.Update(context.Background())
	require.ErrorIs(t, err, core.ErrAppNotFound)

	data, readErr := os.ReadFile(f.cfg.CapsFile)
	require.NoError(t, readErr)
	assert.JSONEq(t, exampleDoc, string(data), "capability file must be untouched")
}

func TestUpdate_MalformedDocument(t *testing.T) {
	tests := map[string]string{
		"no platform":      `{"iOS": {"app": {}, "device": "x", "platformVersion": "1"}, "hostMachines": [{"machineIP": "h"}]}`,
		"no app":           `{"Android": {"device": "x", "platformVersion": "1"}, "hostMachines": [{"machineIP": "h"}]}`,
		"no host machines": `{"Android": {"app": {}, "device": "x", "platformVersion": "1"}}`,
		"no device":        `{"Android": {"app": {}, "platformVersion": "1"}, "hostMachines": [{"machineIP": "h"}]}`,
		"no version":       `{"Android": {"app": {}, "device": "x"}, "hostMachines": [{"machineIP": "h"}]}`,
		"not json":         `{"Android": `,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, doc)
			_, err := f.assembler.Update(context.Background())
			require.ErrorIs(t, err, core.ErrMalformedCapabilities)
		})
	}
}

func TestUpdate_LocalTestingStartsTunnelBeforeFiltering(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.cfg.UseLocalTesting = true

	gomock.InOrder(
		f.apps.EXPECT().RecentApp(gomock.Any(), gomock.Any()).Return("bs://recent", nil),
		f.tunnels.EXPECT().Start(gomock.Any(), "s3cret", "abcdefghij").Return(nil, nil),
		f.inventory.EXPECT().Devices(gomock.Any()).Return(threeMatching, nil),
	)

	_, err := f.assembler.Update(context.Background())
	require.NoError(t, err)

	block := loadSaved(t, f.cfg.CapsFile)["Android"].(map[string]interface{})
	assert.Equal(t, "true", block[CapLocal])
	assert.Equal(t, "abcdefghij", block[CapLocalIdentifier])
}

func TestUpdate_TunnelStartFailure(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.cfg.UseLocalTesting = true
	f.apps.EXPECT().RecentApp(gomock.Any(), gomock.Any()).Return("bs://recent", nil)
	f.tunnels.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, core.ErrTunnelStart)

	_, err := f.assembler.Update(context.Background())
	require.ErrorIs(t, err, core.ErrTunnelStart)
}

// fakeDaemon stands in for the tunnel binary.
type fakeDaemon struct {
	verbs []string
	alive bool
}

// Run refuses cancelled contexts the way exec.CommandContext does.
func (d *fakeDaemon) Run(ctx context.Context, _ string, args []string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	verb := args[len(args)-1]
	d.verbs = append(d.verbs, verb)
	if verb == "start" {
		d.alive = true
		return []byte(`{"state":"connected","pid":99}`), nil
	}
	d.alive = false
	return []byte(`{"state":"disconnected"}`), nil
}

func (d *fakeDaemon) Alive(int) bool { return d.alive }

func newFakeTunnels(d *fakeDaemon) *tunnel.Manager {
	return &tunnel.Manager{
		Binary:       "BrowserStackLocal",
		Launcher:     d,
		Alive:        d.Alive,
		StopInterval: time.Millisecond,
		StopRetries:  3,
	}
}

func TestUpdate_StopsTunnelWhenLaterStepFails(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.cfg.UseLocalTesting = true
	daemon := &fakeDaemon{}
	f.assembler.Tunnels = newFakeTunnels(daemon)

	f.apps.EXPECT().RecentApp(gomock.Any(), gomock.Any()).Return("bs://recent", nil)
	f.inventory.EXPECT().Devices(gomock.Any()).Return(nil, core.ErrInventoryFetch.WithCause(errors.New("503")))

	_, err := f.assembler.Update(context.Background())
	require.ErrorIs(t, err, core.ErrInventoryFetch)
	assert.Equal(t, []string{"start", "stop"}, daemon.verbs)
	assert.False(t, daemon.alive)
}

func TestUpdate_StopsTunnelWhenInterrupted(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.cfg.UseLocalTesting = true
	daemon := &fakeDaemon{}
	f.assembler.Tunnels = newFakeTunnels(daemon)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.apps.EXPECT().RecentApp(gomock.Any(), gomock.Any()).Return("bs://recent", nil)
	f.inventory.EXPECT().Devices(gomock.Any()).DoAndReturn(func(context.Context) ([]farm.Device, error) {
		cancel()
		return nil, errors.New("interrupted")
	})

	_, err := f.assembler.Update(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{"start", "stop"}, daemon.verbs)
	assert.False(t, daemon.alive)
}

func TestUpdate_NegativeMaxDriversSelectsNothing(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.cfg.MaxDrivers = -1
	f.apps.EXPECT().RecentApp(gomock.Any(), gomock.Any()).Return("bs://recent", nil)
	f.inventory.EXPECT().Devices(gomock.Any()).Return(threeMatching, nil)

	result, err := f.assembler.Update(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Devices)
}

func TestUpdate_ReturnsOwnedTunnel(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.cfg.UseLocalTesting = true
	daemon := &fakeDaemon{}
	f.assembler.Tunnels = newFakeTunnels(daemon)

	f.apps.EXPECT().RecentApp(gomock.Any(), gomock.Any()).Return("bs://recent", nil)
	f.inventory.EXPECT().Devices(gomock.Any()).Return(threeMatching, nil)

	result, err := f.assembler.Update(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Tunnel)
	assert.True(t, result.Tunnel.IsRunning())
	assert.Equal(t, "abcdefghij", result.Tunnel.Identifier())

	require.NoError(t, Cleanup(context.Background(), f.cfg, result.Tunnel))
	assert.Equal(t, tunnel.Stopped, result.Tunnel.State())
	assert.Equal(t, []string{"start", "stop"}, daemon.verbs)
}

func TestUpdate_SameLabelsOnRerun(t *testing.T) {
	var builds, projects []string
	for i := 0; i < 2; i++ {
		f := newFixture(t, exampleDoc)
		f.apps.EXPECT().RecentApp(gomock.Any(), gomock.Any()).Return("bs://recent", nil)
		f.inventory.EXPECT().Devices(gomock.Any()).Return(threeMatching, nil)

		result, err := f.assembler.Update(context.Background())
		require.NoError(t, err)
		builds = append(builds, result.Build)
		projects = append(projects, result.Project)
	}
	assert.Equal(t, builds[0], builds[1])
	assert.Equal(t, projects[0], projects[1])
}

func TestUpdate_SavesInventorySnapshot(t *testing.T) {
	f := newFixture(t, exampleDoc)
	f.assembler.InventorySnapshot = filepath.Join(t.TempDir(), "device_inventory.json")
	f.apps.EXPECT().RecentApp(gomock.Any(), gomock.Any()).Return("bs://recent", nil)
	f.inventory.EXPECT().Devices(gomock.Any()).Return(threeMatching, nil)

	_, err := f.assembler.Update(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(f.assembler.InventorySnapshot)
	require.NoError(t, err)
	var saved []farm.Device
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Len(t, saved, len(threeMatching))
}

func TestBuildName(t *testing.T) {
	tests := []struct {
		launch, logDir, want string
	}{
		{"nightly", "target", "nightly-target"},
		{"nightly", "target/2024-01-01", "nightly-target2024-01-01"},
		{"smoke", `target\win\run`, "smoke-targetwinrun"},
		{"smoke", "", "smoke-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildName(tt.launch, tt.logDir))
	}
}

func TestCleanup_NoLocalTesting(t *testing.T) {
	cfg := &config.Config{UseLocalTesting: false}
	assert.NoError(t, Cleanup(context.Background(), cfg, nil))
}

func TestCleanup_LocalTestingWithoutTunnel(t *testing.T) {
	cfg := &config.Config{UseLocalTesting: true}
	assert.NoError(t, Cleanup(context.Background(), cfg, nil))
}
