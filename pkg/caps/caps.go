// Package caps loads, edits and saves the per-platform capability document.
//
// The document is a JSON object keyed by platform name ("android", "iOS", ...)
// plus a top-level "hostMachines" list. Each platform block carries the session
// attributes sent to the device farm; the selected devices are written to
// hostMachines[0].devices.
package caps

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/devicelab-dev/farm-runner/pkg/core"
)

// Well-known keys.
const (
	KeyHostMachines    = "hostMachines"
	KeyMachineIP       = "machineIP"
	KeyDevices         = "devices"
	KeyApp             = "app"
	KeyAppLocal        = "local"
	KeyAppCloud        = "cloud"
	KeyDevice          = "device"
	KeyPlatformVersion = "platformVersion"
)

// DeviceEntry is one resolved device in the saved document.
type DeviceEntry struct {
	OSVersion  string `json:"osVersion"`
	DeviceName string `json:"deviceName"`
	Device     string `json:"device"`
}

// Document is a loaded capability file.
type Document struct {
	path string
	data map[string]interface{}
}

// Load reads and parses a capability file.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path) //#nosec G304 -- capability file from run config
	if err != nil {
		return nil, core.ErrMissingRequired.
			WithMessagef("capability file '%s' could not be read", path).
			WithCause(err)
	}
	return Parse(path, raw)
}

// Parse builds a Document from raw JSON; path is only used in error messages.
func Parse(path string, raw []byte) (*Document, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, malformed(path, "is not a JSON object").WithCause(err)
	}
	return &Document{path: path, data: data}, nil
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string {
	return d.path
}

// Raw exposes the underlying map. Callers own any mutation they make.
func (d *Document) Raw() map[string]interface{} {
	return d.data
}

// Platform returns the session attribute block for the platform.
func (d *Document) Platform(name string) (map[string]interface{}, error) {
	block, ok := d.data[name].(map[string]interface{})
	if !ok {
		return nil, malformed(d.path, fmt.Sprintf("has no '%s' platform block", name))
	}
	return block, nil
}

// App returns the "app" object of the platform block.
func (d *Document) App(platform string) (map[string]interface{}, error) {
	block, err := d.Platform(platform)
	if err != nil {
		return nil, err
	}
	app, ok := block[KeyApp].(map[string]interface{})
	if !ok {
		return nil, malformed(d.path, fmt.Sprintf("'%s' block has no '%s' object", platform, KeyApp))
	}
	return app, nil
}

// HostMachine returns the first hostMachines entry, which must carry machineIP.
func (d *Document) HostMachine() (map[string]interface{}, error) {
	list, ok := d.data[KeyHostMachines].([]interface{})
	if !ok || len(list) == 0 {
		return nil, malformed(d.path, fmt.Sprintf("needs a non-empty '%s' list", KeyHostMachines))
	}
	host, ok := list[0].(map[string]interface{})
	if !ok {
		return nil, malformed(d.path, fmt.Sprintf("first '%s' entry is not an object", KeyHostMachines))
	}
	if _, ok := host[KeyMachineIP]; !ok {
		return nil, malformed(d.path, fmt.Sprintf("first '%s' entry has no '%s'", KeyHostMachines, KeyMachineIP))
	}
	return host, nil
}

// MachineIP returns the remote host address of the first host machine.
func (d *Document) MachineIP() (string, error) {
	host, err := d.HostMachine()
	if err != nil {
		return "", err
	}
	return fmt.Sprint(host[KeyMachineIP]), nil
}

// DeviceSelector returns the platformVersion and device values of the platform
// block. Both must be present; numeric versions are rendered as written.
func (d *Document) DeviceSelector(platform string) (platformVersion, device string, err error) {
	block, err := d.Platform(platform)
	if err != nil {
		return "", "", err
	}
	pv, ok := block[KeyPlatformVersion]
	if !ok || pv == nil {
		return "", "", malformed(d.path, fmt.Sprintf("'%s' block has no '%s'", platform, KeyPlatformVersion))
	}
	dev, ok := block[KeyDevice]
	if !ok || dev == nil {
		return "", "", malformed(d.path, fmt.Sprintf("'%s' block has no '%s'", platform, KeyDevice))
	}
	return stringify(pv), stringify(dev), nil
}

// RemoveDeviceSelector drops the raw device field; resolved entries replace it.
func (d *Document) RemoveDeviceSelector(platform string) error {
	block, err := d.Platform(platform)
	if err != nil {
		return err
	}
	delete(block, KeyDevice)
	return nil
}

// SetDevices writes the resolved device list to hostMachines[0].devices.
func (d *Document) SetDevices(entries []DeviceEntry) error {
	host, err := d.HostMachine()
	if err != nil {
		return err
	}
	list := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		list = append(list, map[string]interface{}{
			"osVersion":  e.OSVersion,
			"deviceName": e.DeviceName,
			"device":     e.Device,
		})
	}
	host[KeyDevices] = list
	return nil
}

// Devices reads the resolved device list back from the document.
func (d *Document) Devices() ([]DeviceEntry, error) {
	host, err := d.HostMachine()
	if err != nil {
		return nil, err
	}
	raw, ok := host[KeyDevices]
	if !ok {
		return nil, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, malformed(d.path, "has an unreadable devices list").WithCause(err)
	}
	var entries []DeviceEntry
	if err := json.Unmarshal(encoded, &entries); err != nil {
		return nil, malformed(d.path, "has an unreadable devices list").WithCause(err)
	}
	return entries, nil
}

// Save writes the document as indented JSON, overwriting path.
func (d *Document) Save(path string) error {
	encoded, err := json.MarshalIndent(d.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode capability file: %w", err)
	}
	if err := os.WriteFile(path, append(encoded, '\n'), 0600); err != nil {
		return fmt.Errorf("write capability file '%s': %w", path, err)
	}
	d.path = path
	return nil
}

func malformed(path, what string) *core.ExecutionError {
	return core.ErrMalformedCapabilities.
		WithMessagef("capability file '%s' %s", path, what).
		WithDetails(map[string]interface{}{"path": path})
}

// stringify renders JSON scalars the way they were written: 11 stays "11",
// 11.0 (decoded as float64) becomes "11".
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}
