// Package screen holds the page objects for the sample app ("TheApp") and the
// smoke journey that runs on every farm device.
package screen

import (
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/farm-runner/pkg/driver/appium"
)

// DefaultWait bounds every wait for an element to become clickable.
const DefaultWait = 15 * time.Second

// Driver is the part of the automation session the screens use.
type Driver interface {
	FindElement(strategy, value string) (string, error)
	WaitForClickable(strategy, value string, timeout time.Duration) (string, error)
	ClickElement(elementID string) error
	ElementText(elementID string) (string, error)
	SendKeysToElement(elementID, text string) error
	Back() error
	GetClipboard() (string, error)
}

var _ Driver = (*appium.Client)(nil)

// AppLaunchScreen is the app's home screen listing the demos.
type AppLaunchScreen interface {
	SelectLogin() (*LoginScreen, error)
	GoBack() (AppLaunchScreen, error)
	SelectEcho() (*EchoScreen, error)
	GoToClipboardDemo() (*ClipboardDemoScreen, error)
}

// NewAppLaunchScreen returns the launch screen for the session's platform.
func NewAppLaunchScreen(platform string, d Driver) (AppLaunchScreen, error) {
	switch strings.ToLower(platform) {
	case "android":
		return &appLaunchAndroid{driver: d, wait: DefaultWait}, nil
	default:
		return nil, fmt.Errorf("no launch screen for platform '%s'", platform)
	}
}

// click finds the element and clicks it without waiting.
func click(d Driver, strategy, value string) error {
	id, err := d.FindElement(strategy, value)
	if err != nil {
		return err
	}
	return d.ClickElement(id)
}

// clickWhenReady waits until the element is clickable, then clicks it.
func clickWhenReady(d Driver, strategy, value string, wait time.Duration) error {
	id, err := d.WaitForClickable(strategy, value, wait)
	if err != nil {
		return err
	}
	return d.ClickElement(id)
}
