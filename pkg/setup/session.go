package setup

import (
	"fmt"
	"strings"

	"github.com/devicelab-dev/farm-runner/pkg/caps"
)

// keys consumed by SessionCapabilities rather than passed through.
var reservedKeys = map[string]bool{
	caps.KeyApp:             true,
	caps.KeyDevice:          true,
	caps.KeyPlatformVersion: true,
	CapUser:                 true,
	CapKey:                  true,
	CapLocal:                true,
	CapLocalIdentifier:      true,
	CapBuild:                true,
	CapProject:              true,
}

// SessionCapabilities builds the W3C alwaysMatch capabilities for one device
// of an updated document. Farm settings go under "bstack:options"; other
// platform-block keys are passed through with the "appium:" prefix unless
// they already carry a vendor prefix.
func SessionCapabilities(doc *caps.Document, platform string, entry caps.DeviceEntry) (map[string]interface{}, error) {
	block, err := doc.Platform(platform)
	if err != nil {
		return nil, err
	}
	app, err := doc.App(platform)
	if err != nil {
		return nil, err
	}
	appID, _ := app[caps.KeyAppCloud].(string)
	if appID == "" {
		return nil, fmt.Errorf("capability file '%s' has no cloud app id for '%s'; run prepare first", doc.Path(), platform)
	}

	options := map[string]interface{}{
		"userName":    block[CapUser],
		"accessKey":   block[CapKey],
		"deviceName":  entry.DeviceName,
		"osVersion":   entry.OSVersion,
		"buildName":   block[CapBuild],
		"projectName": block[CapProject],
	}
	if local, _ := block[CapLocal].(string); local == "true" {
		options["local"] = true
		options["localIdentifier"] = block[CapLocalIdentifier]
	}

	w3c := map[string]interface{}{
		"platformName":   platform,
		"appium:app":     appID,
		"bstack:options": options,
	}
	for k, v := range block {
		if reservedKeys[k] || k == "platformName" {
			continue
		}
		if strings.Contains(k, ":") {
			w3c[k] = v
		} else {
			w3c["appium:"+k] = v
		}
	}
	return w3c, nil
}
