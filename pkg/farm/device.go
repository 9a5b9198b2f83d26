package farm

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Filter attribute names, in the order criteria are built.
const (
	AttrPlatform  = "Platform"
	AttrOS        = "Os"
	AttrDevice    = "Device"
	AttrOSVersion = "Os_version"
)

// Platform values.
const (
	PlatformMobile  = "mobile"
	PlatformDesktop = "desktop"
)

// Device is one entry of the farm's device inventory.
type Device struct {
	OS         string `json:"os"`
	OSVersion  string `json:"os_version"`
	Device     string `json:"device"`
	RealMobile bool   `json:"realMobile"`
}

// Platform is "mobile" for phones and tablets, "desktop" otherwise.
func (d Device) Platform() string {
	if d.Device != "" || d.RealMobile {
		return PlatformMobile
	}
	return PlatformDesktop
}

// Attribute returns the value of a filter attribute, "" for unknown names.
func (d Device) Attribute(name string) string {
	switch name {
	case AttrPlatform:
		return d.Platform()
	case AttrOS:
		return d.OS
	case AttrDevice:
		return d.Device
	case AttrOSVersion:
		return d.OSVersion
	default:
		return ""
	}
}

func (d Device) String() string {
	return fmt.Sprintf("%s %s (%s)", d.Device, d.OSVersion, d.OS)
}

// Criterion is one required attribute value.
type Criterion struct {
	Attribute string
	Value     string
}

// Criteria is an ordered list of required attribute values.
type Criteria []Criterion

// NewCriteria builds Platform, Os, Device, Os_version criteria in that order.
func NewCriteria(platform, os, device, osVersion string) Criteria {
	return Criteria{
		{Attribute: AttrPlatform, Value: platform},
		{Attribute: AttrOS, Value: os},
		{Attribute: AttrDevice, Value: device},
		{Attribute: AttrOSVersion, Value: osVersion},
	}
}

// Matches reports whether every non-empty criterion equals the device's
// attribute. Values are compared whole and untrimmed. Platform and Os ignore
// case ("Android" caps blocks select the farm's "android"); Device and
// Os_version must match exactly.
func (c Criteria) Matches(d Device) bool {
	for _, cr := range c {
		if cr.Value == "" {
			continue
		}
		if !attributeEqual(cr.Attribute, cr.Value, d.Attribute(cr.Attribute)) {
			return false
		}
	}
	return true
}

func attributeEqual(attribute, want, got string) bool {
	switch attribute {
	case AttrPlatform, AttrOS:
		return strings.EqualFold(want, got)
	default:
		return want == got
	}
}

func (c Criteria) String() string {
	parts := make([]string, 0, len(c))
	for _, cr := range c {
		parts = append(parts, cr.Attribute+"="+cr.Value)
	}
	return strings.Join(parts, ", ")
}

// Filter returns the devices matching criteria, in inventory order.
// An empty result is not an error.
func Filter(devices []Device, criteria Criteria) []Device {
	matched := make([]Device, 0, len(devices))
	for _, d := range devices {
		if criteria.Matches(d) {
			matched = append(matched, d)
		}
	}
	return matched
}

// SaveInventory writes devices as indented JSON, for post-run inspection.
func SaveInventory(path string, devices []Device) error {
	data, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
