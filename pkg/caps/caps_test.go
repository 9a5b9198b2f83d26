package caps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/devicelab-dev/farm-runner/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "android": {
    "app": {},
    "device": "Pixel4",
    "platformVersion": "11",
    "automationName": "UiAutomator2"
  },
  "hostMachines": [{"machineIP": "1.2.3.4"}]
}`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "caps.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Accessors(t *testing.T) {
	doc, err := Load(writeDoc(t, sampleDoc))
	require.NoError(t, err)

	block, err := doc.Platform("android")
	require.NoError(t, err)
	assert.Equal(t, "UiAutomator2", block["automationName"])

	app, err := doc.App("android")
	require.NoError(t, err)
	assert.Empty(t, app)

	ip, err := doc.MachineIP()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", ip)

	version, device, err := doc.DeviceSelector("android")
	require.NoError(t, err)
	assert.Equal(t, "11", version)
	assert.Equal(t, "Pixel4", device)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, core.ErrMissingRequired)
	assert.Contains(t, err.Error(), "nope.json")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("bad.json", []byte(`[1,2`))
	require.ErrorIs(t, err, core.ErrMalformedCapabilities)
	assert.Contains(t, err.Error(), "bad.json")
}

func TestPlatform_Missing(t *testing.T) {
	doc, err := Parse("caps.json", []byte(sampleDoc))
	require.NoError(t, err)

	_, err = doc.Platform("iOS")
	require.ErrorIs(t, err, core.ErrMalformedCapabilities)
	assert.Contains(t, err.Error(), "'iOS'")
}

func TestApp_Missing(t *testing.T) {
	doc, err := Parse("caps.json", []byte(`{"android": {"device": "x"}, "hostMachines": [{"machineIP": "h"}]}`))
	require.NoError(t, err)

	_, err = doc.App("android")
	require.ErrorIs(t, err, core.ErrMalformedCapabilities)
}

func TestHostMachine_Invariants(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"absent", `{"android": {}}`},
		{"empty", `{"android": {}, "hostMachines": []}`},
		{"not object", `{"android": {}, "hostMachines": ["1.2.3.4"]}`},
		{"no machineIP", `{"android": {}, "hostMachines": [{"name": "x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse("caps.json", []byte(tt.doc))
			require.NoError(t, err)
			_, err = doc.HostMachine()
			require.ErrorIs(t, err, core.ErrMalformedCapabilities)
		})
	}
}

func TestDeviceSelector_NumericVersion(t *testing.T) {
	doc, err := Parse("caps.json", []byte(`{"android": {"app": {}, "device": "Pixel 7", "platformVersion": 13}}`))
	require.NoError(t, err)

	version, device, err := doc.DeviceSelector("android")
	require.NoError(t, err)
	assert.Equal(t, "13", version)
	assert.Equal(t, "Pixel 7", device)
}

func TestDeviceSelector_Missing(t *testing.T) {
	doc, err := Parse("caps.json", []byte(`{"android": {"app": {}, "platformVersion": "11"}}`))
	require.NoError(t, err)

	_, _, err = doc.DeviceSelector("android")
	require.ErrorIs(t, err, core.ErrMalformedCapabilities)
	assert.Contains(t, err.Error(), "'device'")
}

func TestSetDevices_SaveRoundTrip(t *testing.T) {
	path := writeDoc(t, sampleDoc)
	doc, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, doc.RemoveDeviceSelector("android"))
	require.NoError(t, doc.SetDevices([]DeviceEntry{
		{OSVersion: "11", DeviceName: "Pixel4", Device: "Pixel4"},
		{OSVersion: "11", DeviceName: "Pixel4 XL", Device: "Pixel4 XL"},
	}))
	require.NoError(t, doc.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)

	block, err := reloaded.Platform("android")
	require.NoError(t, err)
	_, hasDevice := block["device"]
	assert.False(t, hasDevice, "raw device selector should be removed")

	entries, err := reloaded.Devices()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, DeviceEntry{OSVersion: "11", DeviceName: "Pixel4", Device: "Pixel4"}, entries[0])
	assert.Equal(t, "Pixel4 XL", entries[1].DeviceName)
}

func TestSetDevices_ReplacesPrevious(t *testing.T) {
	doc, err := Parse("caps.json", []byte(`{"android": {}, "hostMachines": [{"machineIP": "h", "devices": [{"device": "old"}]}]}`))
	require.NoError(t, err)

	require.NoError(t, doc.SetDevices(nil))
	entries, err := doc.Devices()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
