// Package executor runs the smoke journey on every device selected for the
// run, one remote session at a time, and records the outcome in the report.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devicelab-dev/farm-runner/pkg/caps"
	"github.com/devicelab-dev/farm-runner/pkg/core"
	"github.com/devicelab-dev/farm-runner/pkg/logger"
	"github.com/devicelab-dev/farm-runner/pkg/report"
	"github.com/devicelab-dev/farm-runner/pkg/screen"
	"github.com/devicelab-dev/farm-runner/pkg/setup"
)

// Session is one remote automation session on a farm device.
type Session interface {
	screen.Driver
	core.ArtifactCollector
	Connect(capabilities map[string]interface{}) error
	Disconnect() error
	SessionID() string
}

// Journey is the test executed inside a session.
type Journey func(platform string, d screen.Driver) error

// RunnerConfig configures the test runner.
type RunnerConfig struct {
	OutputDir  string // Report output directory
	Platform   string
	StopOnFail bool // Skip remaining devices after the first failure
	Artifacts  core.ArtifactConfig

	// NewSession opens a client to the hub; one per device.
	NewSession func() (Session, error)
	// Journey defaults to screen.SmokeJourney.
	Journey Journey

	// Live progress callbacks
	OnSessionStart func(idx, total int, device caps.DeviceEntry)
	OnSessionEnd   func(idx int, device caps.DeviceEntry, status core.SessionStatus, durationMs int64, err error)
}

// RunResult contains the outcome of a test run.
type RunResult struct {
	Status     core.SessionStatus
	Total      int
	Passed     int
	Failed     int
	Errored    int
	Duration   int64 // Total duration in milliseconds
	ReportPath string
	Sessions   []SessionResult
}

// SessionResult contains the outcome of one device session.
type SessionResult struct {
	Device    caps.DeviceEntry
	SessionID string
	Status    core.SessionStatus
	Duration  int64
	Error     string
}

// Runner orchestrates device sessions.
type Runner struct {
	config RunnerConfig
}

// New creates a new Runner.
func New(cfg RunnerConfig) *Runner {
	if cfg.Journey == nil {
		cfg.Journey = screen.SmokeJourney
	}
	return &Runner{config: cfg}
}

// Run executes the journey on every device of the prepared document and
// writes report.json into the output directory.
func (r *Runner) Run(ctx context.Context, prepared *setup.Result) (*RunResult, error) {
	if r.config.NewSession == nil {
		return nil, fmt.Errorf("runner has no session factory")
	}

	run := report.Run{
		Platform: r.config.Platform,
		Build:    prepared.Build,
		Project:  prepared.Project,
		AppID:    prepared.AppID,
	}
	if prepared.Tunnel != nil {
		run.LocalTunnel = prepared.Tunnel.Identifier()
	}

	writer := report.NewWriter(r.config.OutputDir, run, prepared.Devices)
	r.flush(writer.Start())

	results := make([]SessionResult, len(prepared.Devices))
	stop := false
	for i, device := range prepared.Devices {
		if stop || ctx.Err() != nil {
			reason := "run cancelled"
			if stop {
				reason = "run stopped after failure"
			}
			results[i] = SessionResult{Device: device, Status: core.StatusErrored, Error: reason}
			r.flush(writer.FinishSession(i, core.StatusErrored, errors.New(reason), nil))
			continue
		}

		results[i] = r.runSession(ctx, prepared.Document, writer, i, device)
		if r.config.StopOnFail && !results[i].Status.IsSuccess() {
			stop = true
		}
	}

	r.flush(writer.End())
	result := buildRunResult(results)
	result.ReportPath = writer.Path()
	return result, nil
}

// runSession runs the journey on one device.
func (r *Runner) runSession(ctx context.Context, doc *caps.Document, writer *report.Writer, idx int, device caps.DeviceEntry) SessionResult {
	total := len(writer.Snapshot().Sessions)
	if r.config.OnSessionStart != nil {
		r.config.OnSessionStart(idx, total, device)
	}
	logger.Info("Session %d/%d on %s (%s)", idx+1, total, device.DeviceName, device.OSVersion)

	start := time.Now()
	result := SessionResult{Device: device}
	finish := func(status core.SessionStatus, err error, attachments []core.Attachment) SessionResult {
		result.Status = status
		result.Duration = time.Since(start).Milliseconds()
		if err != nil {
			result.Error = err.Error()
			logger.Error("Session %d on %s: %s: %v", idx+1, device.DeviceName, status, err)
		} else {
			logger.Info("Session %d on %s: %s", idx+1, device.DeviceName, status)
		}
		r.flush(writer.FinishSession(idx, status, err, attachments))
		if r.config.OnSessionEnd != nil {
			r.config.OnSessionEnd(idx, device, status, result.Duration, err)
		}
		return result
	}

	capabilities, err := setup.SessionCapabilities(doc, r.config.Platform, device)
	if err != nil {
		return finish(core.StatusErrored, err, nil)
	}

	session, err := r.config.NewSession()
	if err != nil {
		return finish(core.StatusErrored, core.ErrSessionFailed.WithCause(err), nil)
	}
	if err := session.Connect(capabilities); err != nil {
		return finish(core.StatusErrored, core.ErrSessionFailed.
			WithMessagef("could not start session on %s (%s)", device.DeviceName, device.OSVersion).
			WithCause(err), nil)
	}
	defer func() {
		if err := session.Disconnect(); err != nil {
			logger.Warn("Disconnect session %s: %v", result.SessionID, err)
		}
	}()

	result.SessionID = session.SessionID()
	r.flush(writer.StartSession(idx, result.SessionID))

	status := core.StatusPassed
	journeyErr := r.config.Journey(r.config.Platform, session)
	if journeyErr != nil {
		status = core.StatusFailed
	}

	var attachments []core.Attachment
	if r.config.Artifacts.ShouldCapture(status) {
		attachments = r.config.Artifacts.Collect(session, fmt.Sprintf("%s-%s", device.DeviceName, device.OSVersion))
	}
	return finish(status, journeyErr, attachments)
}

func (r *Runner) flush(err error) {
	if err != nil {
		logger.Warn("Writing report: %v", err)
	}
}

// buildRunResult aggregates session results into a run result.
func buildRunResult(sessions []SessionResult) *RunResult {
	result := &RunResult{
		Total:    len(sessions),
		Sessions: sessions,
		Status:   core.StatusPassed,
	}

	for _, s := range sessions {
		result.Duration += s.Duration
		switch s.Status {
		case core.StatusPassed:
			result.Passed++
		case core.StatusFailed:
			result.Failed++
		case core.StatusErrored:
			result.Errored++
		}
	}

	switch {
	case result.Errored > 0:
		result.Status = core.StatusErrored
	case result.Failed > 0:
		result.Status = core.StatusFailed
	}
	return result
}
