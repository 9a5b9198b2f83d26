package screen

import (
	"fmt"
	"time"

	"github.com/devicelab-dev/farm-runner/pkg/driver/appium"
	"github.com/devicelab-dev/farm-runner/pkg/logger"
)

const (
	clipboardDemoAccessibilityID = "Clipboard Demo"
	loginScreenAccessibilityID   = "Login Screen"
	goBackToHomeXPath            = `//android.widget.ImageButton[@content-desc="Navigate Up"]`
	echoBoxXPath                 = `//android.view.ViewGroup[@content-desc="Echo Box"]/android.view.ViewGroup`
)

type appLaunchAndroid struct {
	driver Driver
	wait   time.Duration
}

func (s *appLaunchAndroid) SelectLogin() (*LoginScreen, error) {
	if err := click(s.driver, appium.ByAccessibilityID, loginScreenAccessibilityID); err != nil {
		return nil, fmt.Errorf("select login: %w", err)
	}
	return &LoginScreen{driver: s.driver, wait: s.wait}, nil
}

func (s *appLaunchAndroid) GoBack() (AppLaunchScreen, error) {
	if err := clickWhenReady(s.driver, appium.ByXPath, goBackToHomeXPath, s.wait); err != nil {
		return nil, fmt.Errorf("go back: %w", err)
	}
	return s, nil
}

func (s *appLaunchAndroid) SelectEcho() (*EchoScreen, error) {
	if err := clickWhenReady(s.driver, appium.ByXPath, echoBoxXPath, s.wait); err != nil {
		return nil, fmt.Errorf("select echo: %w", err)
	}
	return &EchoScreen{driver: s.driver, wait: s.wait}, nil
}

func (s *appLaunchAndroid) GoToClipboardDemo() (*ClipboardDemoScreen, error) {
	logger.Debug("Clicking on Clipboard Demo")
	if err := click(s.driver, appium.ByAccessibilityID, clipboardDemoAccessibilityID); err != nil {
		return nil, fmt.Errorf("go to clipboard demo: %w", err)
	}
	return &ClipboardDemoScreen{driver: s.driver, wait: s.wait}, nil
}
