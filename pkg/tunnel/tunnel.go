// Package tunnel manages the BrowserStackLocal secure tunnel that lets the
// device farm reach an app or backend served from this machine.
//
// The binary runs in daemon mode: "--daemon start" returns once the tunnel is
// connected and prints a JSON status line with the daemon's pid; "--daemon stop"
// with the same identifier tears it down.
package tunnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/devicelab-dev/farm-runner/pkg/core"
	"github.com/devicelab-dev/farm-runner/pkg/logger"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	defaultStopInterval = 500 * time.Millisecond
	defaultStopRetries  = 20
	stateConnected      = "connected"
)

// State is the lifecycle state of a tunnel.
type State int

const (
	NotStarted State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Launcher runs the tunnel binary to completion and returns its stdout.
type Launcher interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// ExecLauncher runs the binary with os/exec.
type ExecLauncher struct {
	Stderr io.Writer
}

// Run implements Launcher.
func (l ExecLauncher) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //#nosec G204 -- binary path from run config
	cmd.Stderr = l.Stderr
	return cmd.Output()
}

// AliveFunc reports whether the process with pid is still running.
type AliveFunc func(pid int) bool

// ProcessAlive checks the process table through gopsutil.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(pid)) //#nosec G115 -- pids fit in int32
	return err == nil && exists
}

// Manager starts the single tunnel of a run. It is not safe for concurrent use.
type Manager struct {
	Binary   string
	ProxyURL string // empty: no proxy
	LogFile  string // passed to the binary as --log-file when set
	Launcher Launcher
	Alive    AliveFunc

	StopInterval time.Duration
	StopRetries  uint64

	started bool
}

// NewManager returns a Manager that runs binary through os/exec.
func NewManager(binary, proxyURL, logFile string) *Manager {
	return &Manager{
		Binary:   binary,
		ProxyURL: proxyURL,
		LogFile:  logFile,
		Launcher: ExecLauncher{Stderr: logger.GetWriter()},
		Alive:    ProcessAlive,
	}
}

// Args builds the argument list shared by start and stop, without the daemon verb.
func Args(key, identifier, proxyURL, logFile string) ([]string, error) {
	args := []string{
		"--key", key,
		"--local-identifier", identifier,
		"--force-local",
		"--verbose", "3",
	}
	if logFile != "" {
		args = append(args, "--log-file", logFile)
	}
	if proxyURL != "" {
		host, port, err := ProxyHostPort(proxyURL)
		if err != nil {
			return nil, err
		}
		logger.Info("Using proxyHost: %s", host)
		logger.Info("Using proxyPort: %d", port)
		args = append(args, "--proxy-host", host, "--proxy-port", strconv.Itoa(port))
	}
	return args, nil
}

// ProxyHostPort splits a proxy URL; a missing port defaults by scheme.
func ProxyHostPort(proxyURL string) (string, int, error) {
	u, err := url.Parse(proxyURL)
	if err != nil {
		return "", 0, fmt.Errorf("parse proxy URL '%s': %w", proxyURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", 0, fmt.Errorf("proxy URL '%s' has no host", proxyURL)
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("proxy URL '%s' has invalid port: %w", proxyURL, err)
		}
		return host, port, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "":
		return host, 80, nil
	case "https":
		return host, 443, nil
	default:
		return "", 0, fmt.Errorf("proxy URL '%s' has no port and unknown scheme '%s'", proxyURL, u.Scheme)
	}
}

// Start launches the tunnel keyed by identifier. The returned Tunnel is owned
// by the caller, who must Stop it.
func (m *Manager) Start(ctx context.Context, key, identifier string) (*Tunnel, error) {
	logger.Info("Is tunnel running? - %t", m.started)
	if m.started {
		return nil, core.ErrTunnelStart.WithMessage("a tunnel was already started in this process")
	}

	args, err := Args(key, identifier, m.ProxyURL, m.LogFile)
	if err != nil {
		return nil, core.ErrTunnelStart.WithCause(err)
	}

	logger.Info("Start tunnel using: %s", strings.Join(maskKey(args), " "))
	out, err := m.Launcher.Run(ctx, m.Binary, append(args, "--daemon", "start"))
	if err != nil {
		return nil, core.ErrTunnelStart.
			WithMessagef("error starting tunnel '%s'", identifier).
			WithCause(withOutput(err, out))
	}

	status, err := parseStatus(out)
	if err != nil {
		return nil, core.ErrTunnelStart.WithCause(err)
	}
	if !strings.EqualFold(status.State, stateConnected) {
		startErr := core.ErrTunnelStart.WithMessagef("tunnel '%s' did not connect (state %q)", identifier, status.State)
		if status.Message != "" {
			startErr = startErr.WithCause(errors.New(status.Message))
		}
		return nil, startErr
	}

	m.started = true
	t := &Tunnel{
		identifier: identifier,
		pid:        status.PID,
		state:      Running,
		args:       args,
		manager:    m,
	}
	log := logger.WithComponent("tunnel")
	log.Info().Str("identifier", identifier).Int("pid", status.PID).Msg("tunnel connected")
	logger.Info("Is tunnel started? - %t", t.IsRunning())
	return t, nil
}

// Tunnel is a running tunnel session.
type Tunnel struct {
	identifier string
	pid        int
	state      State
	args       []string
	manager    *Manager
}

// Identifier returns the local identifier the tunnel was started with.
func (t *Tunnel) Identifier() string {
	if t == nil {
		return ""
	}
	return t.identifier
}

// PID returns the daemon's process id.
func (t *Tunnel) PID() int {
	if t == nil {
		return 0
	}
	return t.pid
}

// State returns the lifecycle state; a nil tunnel was never started.
func (t *Tunnel) State() State {
	if t == nil {
		return NotStarted
	}
	return t.state
}

// IsRunning reports whether the tunnel is running and its process alive.
func (t *Tunnel) IsRunning() bool {
	if t == nil || t.state != Running {
		return false
	}
	return t.manager.Alive(t.pid)
}

// Stop tears the tunnel down. Calling it on a nil or already stopped tunnel
// does nothing.
func (t *Tunnel) Stop(ctx context.Context) error {
	if t == nil || t.state != Running {
		return nil
	}

	running := t.IsRunning()
	logger.Info("Is tunnel running? - %t", running)
	if !running {
		t.state = Stopped
		return nil
	}

	logger.Info("Stopping tunnel '%s'", t.identifier)
	out, err := t.manager.Launcher.Run(ctx, t.manager.Binary, append(append([]string{}, t.args...), "--daemon", "stop"))
	if err != nil {
		return core.ErrTunnelStop.
			WithMessagef("exception in stopping tunnel '%s'", t.identifier).
			WithCause(withOutput(err, out))
	}

	if err := t.waitForExit(ctx); err != nil {
		return core.ErrTunnelStop.WithCause(err)
	}

	t.state = Stopped
	logger.Info("Is tunnel stopped? - %t", !t.manager.Alive(t.pid))
	return nil
}

func (t *Tunnel) waitForExit(ctx context.Context) error {
	interval := t.manager.StopInterval
	if interval == 0 {
		interval = defaultStopInterval
	}
	retries := t.manager.StopRetries
	if retries == 0 {
		retries = defaultStopRetries
	}

	var ctxErr error
	err := backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			return nil
		}
		if t.manager.Alive(t.pid) {
			return fmt.Errorf("tunnel process %d still running", t.pid)
		}
		return nil
	}, backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), retries))
	if ctxErr != nil {
		return ctxErr
	}
	return err
}

type daemonStatus struct {
	State   string
	PID     int
	Message string
}

// parseStatus reads the daemon's JSON reply. "message" is either a string or
// an object with its own "message" field.
func parseStatus(out []byte) (daemonStatus, error) {
	var raw struct {
		State   string          `json:"state"`
		PID     int             `json:"pid"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return daemonStatus{}, fmt.Errorf("unexpected tunnel output %q: %w", strings.TrimSpace(string(out)), err)
	}

	status := daemonStatus{State: raw.State, PID: raw.PID}
	if len(raw.Message) > 0 {
		var text string
		if err := json.Unmarshal(raw.Message, &text); err == nil {
			status.Message = text
		} else {
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(raw.Message, &nested); err == nil {
				status.Message = nested.Message
			}
		}
	}
	return status, nil
}

func withOutput(err error, out []byte) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		out = append(out, exitErr.Stderr...)
	}
	if s := strings.TrimSpace(string(out)); s != "" {
		return fmt.Errorf("%w: %s", err, s)
	}
	return err
}

func maskKey(args []string) []string {
	masked := append([]string{}, args...)
	for i := 0; i < len(masked)-1; i++ {
		if masked[i] == "--key" {
			masked[i+1] = "****"
		}
	}
	return masked
}
