// Package appium is a W3C WebDriver client for the device farm's Appium hub.
package appium

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// W3C WebDriver element identifier key (standard constant)
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// Locator strategies used by the screens.
const (
	ByAccessibilityID = "accessibility id"
	ByXPath           = "xpath"
	ByID              = "id"
)

// ErrNoSuchElement is returned when a locator matches nothing.
var ErrNoSuchElement = errors.New("no such element")

const defaultPollInterval = 500 * time.Millisecond

// Client handles HTTP communication with the Appium hub.
type Client struct {
	serverURL string
	sessionID string
	client    *http.Client
	platform  string // ios, android

	// PollInterval is the delay between attempts in WaitForClickable.
	PollInterval time.Duration
}

// NewClient creates a new Appium client.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		client: &http.Client{
			Timeout: 5 * time.Minute, // session creation on a farm device includes app install
		},
		PollInterval: defaultPollInterval,
	}
}

// UseProxy routes hub traffic through an HTTP proxy.
func (c *Client) UseProxy(proxyURL string) error {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL '%s': %w", proxyURL, err)
	}
	c.client.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
	return nil
}

// Connect creates a new session with the given capabilities.
func (c *Client) Connect(capabilities map[string]interface{}) error {
	body := map[string]interface{}{
		"capabilities": map[string]interface{}{
			"alwaysMatch": capabilities,
		},
	}

	resp, err := c.post("/session", body)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	value, ok := resp["value"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("invalid session response")
	}

	c.sessionID, _ = value["sessionId"].(string)
	if c.sessionID == "" {
		return fmt.Errorf("no session ID in response")
	}

	c.platform = ""
	if caps, ok := value["capabilities"].(map[string]interface{}); ok {
		if platform, ok := caps["platformName"].(string); ok {
			c.platform = strings.ToLower(platform)
		}
	}
	if c.platform == "" {
		if platform, ok := capabilities["platformName"].(string); ok {
			c.platform = strings.ToLower(platform)
		}
	}
	return nil
}

// Disconnect closes the session.
func (c *Client) Disconnect() error {
	if c.sessionID == "" {
		return nil
	}
	_, err := c.delete(c.sessionPath())
	c.sessionID = ""
	return err
}

// SessionID returns the current session id, empty when disconnected.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Platform returns the platform (ios/android).
func (c *Client) Platform() string {
	return c.platform
}

// Element Operations

// FindElement finds a single element.
func (c *Client) FindElement(strategy, value string) (string, error) {
	body := map[string]interface{}{
		"using": strategy,
		"value": value,
	}

	resp, err := c.post(c.sessionPath()+"/element", body)
	if err != nil {
		if strings.HasPrefix(err.Error(), "no such element") {
			return "", fmt.Errorf("%w: %s=%s", ErrNoSuchElement, strategy, value)
		}
		return "", err
	}

	elemValue, ok := resp["value"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: %s=%s", ErrNoSuchElement, strategy, value)
	}

	id := extractElementID(elemValue)
	if id == "" {
		return "", fmt.Errorf("%w: %s=%s", ErrNoSuchElement, strategy, value)
	}
	return id, nil
}

// ClickElement clicks an element using WebDriver standard endpoint.
func (c *Client) ClickElement(elementID string) error {
	_, err := c.post(c.elementPath(elementID)+"/click", nil)
	return err
}

// ElementText returns an element's text.
func (c *Client) ElementText(elementID string) (string, error) {
	resp, err := c.get(c.elementPath(elementID) + "/text")
	if err != nil {
		return "", err
	}
	text, _ := resp["value"].(string)
	return text, nil
}

// SendKeysToElement types text into an element.
func (c *Client) SendKeysToElement(elementID, text string) error {
	_, err := c.post(c.elementPath(elementID)+"/value", map[string]interface{}{
		"text": text,
	})
	return err
}

// IsElementDisplayed checks if element is visible.
func (c *Client) IsElementDisplayed(elementID string) (bool, error) {
	resp, err := c.get(c.elementPath(elementID) + "/displayed")
	if err != nil {
		return false, err
	}
	displayed, _ := resp["value"].(bool)
	return displayed, nil
}

// IsElementEnabled checks if element is enabled.
func (c *Client) IsElementEnabled(elementID string) (bool, error) {
	resp, err := c.get(c.elementPath(elementID) + "/enabled")
	if err != nil {
		return false, err
	}
	enabled, _ := resp["value"].(bool)
	return enabled, nil
}

// WaitForClickable polls until the element is found, displayed and enabled,
// and returns its id. The last lookup error is reported on timeout.
func (c *Client) WaitForClickable(strategy, value string, timeout time.Duration) (string, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	deadline := time.Now().Add(timeout)

	var lastErr error
	for {
		id, err := c.clickable(strategy, value)
		if err == nil {
			return id, nil
		}
		lastErr = err
		if !time.Now().Add(interval).Before(deadline) {
			return "", fmt.Errorf("element %s=%s not clickable after %s: %w", strategy, value, timeout, lastErr)
		}
		time.Sleep(interval)
	}
}

func (c *Client) clickable(strategy, value string) (string, error) {
	id, err := c.FindElement(strategy, value)
	if err != nil {
		return "", err
	}
	displayed, err := c.IsElementDisplayed(id)
	if err != nil {
		return "", err
	}
	if !displayed {
		return "", fmt.Errorf("element %s=%s is not displayed", strategy, value)
	}
	enabled, err := c.IsElementEnabled(id)
	if err != nil {
		return "", err
	}
	if !enabled {
		return "", fmt.Errorf("element %s=%s is not enabled", strategy, value)
	}
	return id, nil
}

// Navigation

// Back navigates back (Android back button, iOS navigation back).
func (c *Client) Back() error {
	_, err := c.post(c.sessionPath()+"/back", nil)
	return err
}

// Screen Operations

// Screenshot returns a screenshot as PNG bytes.
func (c *Client) Screenshot() ([]byte, error) {
	resp, err := c.get(c.sessionPath() + "/screenshot")
	if err != nil {
		return nil, err
	}
	encoded, ok := resp["value"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid screenshot response")
	}
	return base64.StdEncoding.DecodeString(encoded)
}

// Source returns the page source XML.
func (c *Client) Source() (string, error) {
	resp, err := c.get(c.sessionPath() + "/source")
	if err != nil {
		return "", err
	}
	source, _ := resp["value"].(string)
	return source, nil
}

// Clipboard

// GetClipboard returns clipboard text.
func (c *Client) GetClipboard() (string, error) {
	resp, err := c.post(c.sessionPath()+"/appium/device/get_clipboard", map[string]interface{}{
		"contentType": "plaintext",
	})
	if err != nil {
		return "", err
	}
	encoded, _ := resp["value"].(string)
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid clipboard response: %w", err)
	}
	return string(decoded), nil
}

// SetClipboard sets clipboard text.
func (c *Client) SetClipboard(text string) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	_, err := c.post(c.sessionPath()+"/appium/device/set_clipboard", map[string]interface{}{
		"content":     encoded,
		"contentType": "plaintext",
	})
	return err
}

// HTTP Helpers

func (c *Client) sessionPath() string {
	return "/session/" + c.sessionID
}

func (c *Client) elementPath(elementID string) string {
	return c.sessionPath() + "/element/" + elementID
}

func (c *Client) get(path string) (map[string]interface{}, error) {
	return c.request("GET", path, nil)
}

func (c *Client) post(path string, body interface{}) (map[string]interface{}, error) {
	if body == nil {
		body = map[string]interface{}{}
	}
	return c.request("POST", path, body)
}

func (c *Client) delete(path string) (map[string]interface{}, error) {
	return c.request("DELETE", path, nil)
}

func (c *Client) request(method, path string, body interface{}) (map[string]interface{}, error) {
	url := c.serverURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("hub returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Check for WebDriver error
	if errValue, ok := result["value"].(map[string]interface{}); ok {
		if errMsg, ok := errValue["message"].(string); ok {
			if errType, ok := errValue["error"].(string); ok {
				return result, fmt.Errorf("%s: %s", errType, errMsg)
			}
		}
	}

	return result, nil
}

func extractElementID(value map[string]interface{}) string {
	// W3C format
	if id, ok := value[w3cElementKey].(string); ok {
		return id
	}
	// Legacy format
	if id, ok := value["ELEMENT"].(string); ok {
		return id
	}
	return ""
}
