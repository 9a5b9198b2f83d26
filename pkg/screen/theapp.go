package screen

import (
	"fmt"
	"time"

	"github.com/devicelab-dev/farm-runner/pkg/driver/appium"
)

// Accessibility ids of the demo screens.
const (
	usernameAccessibilityID     = "username"
	passwordAccessibilityID     = "password"
	loginButtonAccessibilityID  = "loginBtn"
	messageInputAccessibilityID = "messageInput"
	saveMessageAccessibilityID  = "messageSaveBtn"
	setClipboardAccessibilityID = "setClipboardText"
)

// LoginScreen is the "Login Screen" demo.
type LoginScreen struct {
	driver Driver
	wait   time.Duration
}

// WaitUntilLoaded waits for the username field.
func (s *LoginScreen) WaitUntilLoaded() error {
	if _, err := s.driver.WaitForClickable(appium.ByAccessibilityID, usernameAccessibilityID, s.wait); err != nil {
		return fmt.Errorf("login screen not loaded: %w", err)
	}
	return nil
}

// Login fills in the credentials and submits.
func (s *LoginScreen) Login(username, password string) error {
	if err := typeInto(s.driver, usernameAccessibilityID, username, s.wait); err != nil {
		return err
	}
	if err := typeInto(s.driver, passwordAccessibilityID, password, s.wait); err != nil {
		return err
	}
	return clickWhenReady(s.driver, appium.ByAccessibilityID, loginButtonAccessibilityID, s.wait)
}

// EchoScreen is the "Echo Box" demo.
type EchoScreen struct {
	driver Driver
	wait   time.Duration
}

// WaitUntilLoaded waits for the message input.
func (s *EchoScreen) WaitUntilLoaded() error {
	if _, err := s.driver.WaitForClickable(appium.ByAccessibilityID, messageInputAccessibilityID, s.wait); err != nil {
		return fmt.Errorf("echo screen not loaded: %w", err)
	}
	return nil
}

// SaveMessage types a message and saves it.
func (s *EchoScreen) SaveMessage(message string) error {
	if err := typeInto(s.driver, messageInputAccessibilityID, message, s.wait); err != nil {
		return err
	}
	return clickWhenReady(s.driver, appium.ByAccessibilityID, saveMessageAccessibilityID, s.wait)
}

// ClipboardDemoScreen is the "Clipboard Demo" screen.
type ClipboardDemoScreen struct {
	driver Driver
	wait   time.Duration
}

// WaitUntilLoaded waits for the set-clipboard button.
func (s *ClipboardDemoScreen) WaitUntilLoaded() error {
	if _, err := s.driver.WaitForClickable(appium.ByAccessibilityID, setClipboardAccessibilityID, s.wait); err != nil {
		return fmt.Errorf("clipboard demo not loaded: %w", err)
	}
	return nil
}

// CopyToClipboard types text and copies it through the app, then reads the
// device clipboard back.
func (s *ClipboardDemoScreen) CopyToClipboard(text string) (string, error) {
	if err := typeInto(s.driver, messageInputAccessibilityID, text, s.wait); err != nil {
		return "", err
	}
	if err := clickWhenReady(s.driver, appium.ByAccessibilityID, setClipboardAccessibilityID, s.wait); err != nil {
		return "", err
	}
	return s.driver.GetClipboard()
}

func typeInto(d Driver, accessibilityID, text string, wait time.Duration) error {
	id, err := d.WaitForClickable(appium.ByAccessibilityID, accessibilityID, wait)
	if err != nil {
		return err
	}
	return d.SendKeysToElement(id, text)
}
