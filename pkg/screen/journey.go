package screen

import (
	"fmt"

	"github.com/devicelab-dev/farm-runner/pkg/logger"
)

// ClipboardProbe is the text copied during the smoke journey.
const ClipboardProbe = "farm-runner"

// SmokeJourney walks launch → clipboard demo → back → echo → back → login and
// checks that each screen loads. The clipboard round trip must return
// ClipboardProbe.
func SmokeJourney(platform string, d Driver) error {
	launch, err := NewAppLaunchScreen(platform, d)
	if err != nil {
		return err
	}

	logger.Info("Smoke journey: clipboard demo")
	clipboard, err := launch.GoToClipboardDemo()
	if err != nil {
		return err
	}
	if err := clipboard.WaitUntilLoaded(); err != nil {
		return err
	}
	copied, err := clipboard.CopyToClipboard(ClipboardProbe)
	if err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	if copied != ClipboardProbe {
		return fmt.Errorf("clipboard holds %q, expected %q", copied, ClipboardProbe)
	}
	if launch, err = launch.GoBack(); err != nil {
		return err
	}

	logger.Info("Smoke journey: echo box")
	echo, err := launch.SelectEcho()
	if err != nil {
		return err
	}
	if err := echo.WaitUntilLoaded(); err != nil {
		return err
	}
	if launch, err = launch.GoBack(); err != nil {
		return err
	}

	logger.Info("Smoke journey: login screen")
	login, err := launch.SelectLogin()
	if err != nil {
		return err
	}
	return login.WaitUntilLoaded()
}
