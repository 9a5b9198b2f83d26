// Package farm talks to the device farm REST API (BrowserStack App Automate):
// app upload, recent-upload lookup and device inventory.
package farm

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devicelab-dev/farm-runner/pkg/core"
)

const (
	uploadPath     = "/app-automate/upload"
	recentAppsPath = "/app-automate/recent_apps/"
	devicesPath    = "/app-automate/devices.json"

	defaultTimeout = 10 * time.Minute // uploads of large binaries
)

// Options configures a Client.
type Options struct {
	BaseURL  string // e.g. https://api-cloud.browserstack.com
	User     string
	Key      string
	ProxyURL string // empty: direct connection
	// InsecureSkipVerify disables TLS verification, for intercepting corporate proxies.
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Client handles HTTP communication with the device farm.
type Client struct {
	baseURL string
	user    string
	key     string
	client  *http.Client
}

// NewClient creates a new farm client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, core.ErrMissingRequired.WithMessage("device farm base URL is required")
	}
	if base, err := url.Parse(opts.BaseURL); err != nil || base.Scheme == "" || base.Host == "" {
		return nil, core.ErrInvalidConfig.WithMessagef("invalid device farm URL '%s'", opts.BaseURL).WithCause(err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ProxyURL != "" {
		proxy, err := url.Parse(opts.ProxyURL)
		if err != nil || proxy.Host == "" {
			return nil, core.ErrInvalidConfig.WithMessagef("invalid proxy URL '%s'", opts.ProxyURL).WithCause(err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //#nosec G402 -- opt-in for intercepting proxies
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		user:    opts.User,
		key:     opts.Key,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// UploadApp uploads the binary at appPath and returns the farm's app_url.
func (c *Client) UploadApp(ctx context.Context, appPath, customID string) (string, error) {
	f, err := os.Open(appPath) //#nosec G304 -- app binary from run config
	if err != nil {
		return "", core.ErrMissingRequired.WithMessagef("app binary '%s' could not be opened", appPath).WithCause(err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		pw.CloseWithError(writeUploadForm(mw, f, filepath.Base(appPath), customID))
	}()
	// Unblock the form writer when the request never reads the body.
	defer func() {
		pr.Close()
		<-done
	}()

	body, err := c.request(ctx, http.MethodPost, uploadPath, pr, mw.FormDataContentType())
	if err != nil {
		return "", err
	}

	var resp struct {
		AppURL string `json:"app_url"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.AppURL == "" {
		return "", core.ErrInvalidAppUpload.
			WithMessagef("upload of '%s' returned no app_url: %s", appPath, truncate(body)).
			WithCause(err)
	}
	return resp.AppURL, nil
}

func writeUploadForm(mw *multipart.Writer, file io.Reader, fileName, customID string) error {
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if customID != "" {
		if err := mw.WriteField("custom_id", customID); err != nil {
			return err
		}
	}
	return mw.Close()
}

// RecentApp returns the app_url of the most recent upload named appName.
func (c *Client) RecentApp(ctx context.Context, appName string) (string, error) {
	notFound := func(cause error) error {
		return core.ErrAppNotFound.
			WithMessagef("App with id: '%s' is not uploaded to the device farm", appName).
			WithDetails(map[string]interface{}{"app": appName}).
			WithCause(cause)
	}

	body, err := c.request(ctx, http.MethodGet, recentAppsPath+url.PathEscape(appName), nil, "")
	if err != nil {
		// A reply with an error status still means the farm does not know the app;
		// only transport failures stay remote errors.
		if isStatusError(err) {
			return "", notFound(err)
		}
		return "", fmt.Errorf("look up recent app '%s': %w", appName, err)
	}

	var apps []struct {
		AppName string `json:"app_name"`
		AppURL  string `json:"app_url"`
	}
	if err := json.Unmarshal(body, &apps); err != nil {
		return "", notFound(fmt.Errorf("unexpected response %s: %w", truncate(body), err))
	}
	if len(apps) == 0 {
		return "", notFound(errors.New("no recent uploads"))
	}
	if apps[0].AppURL == "" {
		return "", notFound(errors.New("first recent upload has no app_url"))
	}
	return apps[0].AppURL, nil
}

// Devices fetches the farm's current device inventory. One request, no paging.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	body, err := c.request(ctx, http.MethodGet, devicesPath, nil, "")
	if err != nil {
		return nil, core.ErrInventoryFetch.WithCause(err)
	}

	var devices []Device
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, core.ErrInventoryFetch.
			WithMessagef("device inventory is malformed: %s", truncate(body)).
			WithCause(err)
	}
	return devices, nil
}

// FilteredDevices fetches the inventory and keeps the devices matching criteria.
func (c *Client) FilteredDevices(ctx context.Context, criteria Criteria) ([]Device, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(devices, criteria), nil
}

// HTTP Helpers

func (c *Client) request(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(c.user, c.key)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, core.ErrRemoteCall.WithMessagef("%s %s failed", method, path).WithCause(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.ErrRemoteCall.WithMessagef("%s %s: reading response", method, path).WithCause(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return respBody, core.ErrRemoteCall.
			WithMessagef("%s %s returned %d: %s", method, path, resp.StatusCode, truncate(respBody)).
			WithDetails(map[string]interface{}{"status": resp.StatusCode})
	}

	return respBody, nil
}

func isStatusError(err error) bool {
	var execErr *core.ExecutionError
	if !errors.As(err, &execErr) {
		return false
	}
	_, ok := execErr.Details["status"]
	return ok
}

func truncate(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
