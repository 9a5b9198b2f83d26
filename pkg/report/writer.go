package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/devicelab-dev/farm-runner/pkg/caps"
	"github.com/devicelab-dev/farm-runner/pkg/core"
)

// FileName is the report file inside the report directory.
const FileName = "report.json"

// Writer provides thread-safe updates to the run report. Every update is
// flushed to disk immediately.
type Writer struct {
	mu        sync.Mutex
	outputDir string
	path      string
	report    *Report
}

// NewWriter creates the report for run with one pending session per device.
func NewWriter(outputDir string, run Run, devices []caps.DeviceEntry) *Writer {
	r := &Report{
		Version:  Version,
		Status:   core.StatusPending,
		Run:      run,
		Sessions: make([]Session, 0, len(devices)),
	}
	for i, d := range devices {
		r.Sessions = append(r.Sessions, Session{
			Index:     i,
			Device:    d.DeviceName,
			OSVersion: d.OSVersion,
			Status:    core.StatusPending,
		})
	}
	return &Writer{
		outputDir: outputDir,
		path:      filepath.Join(outputDir, FileName),
		report:    r,
	}
}

// Path returns the location of report.json.
func (w *Writer) Path() string {
	return w.path
}

// Start marks the run as started.
func (w *Writer) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.report.Status = core.StatusRunning
	w.report.StartTime = time.Now()
	return w.flushLocked()
}

// StartSession marks session i as running on the given remote session.
func (w *Writer) StartSession(i int, sessionID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, err := w.sessionLocked(i)
	if err != nil {
		return err
	}
	now := time.Now()
	s.Status = core.StatusRunning
	s.SessionID = sessionID
	s.StartTime = &now
	return w.flushLocked()
}

// FinishSession records the outcome of session i. Attachment bodies are
// written under assets/ and their paths made relative to the report.
func (w *Writer) FinishSession(i int, status core.SessionStatus, runErr error, attachments []core.Attachment) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, err := w.sessionLocked(i)
	if err != nil {
		return err
	}
	if !status.IsTerminal() {
		return fmt.Errorf("session %d: status %s is not terminal", i, status)
	}

	s.Status = status
	if s.StartTime != nil {
		ms := time.Since(*s.StartTime).Milliseconds()
		s.Duration = &ms
	}
	if runErr != nil {
		s.Error = runErr.Error()
	}

	for _, a := range attachments {
		rel := filepath.Join("assets", fmt.Sprintf("session-%03d-%s", i, sanitize(a.Path)))
		if err := os.MkdirAll(filepath.Join(w.outputDir, "assets"), 0o755); err != nil {
			return fmt.Errorf("create assets dir: %w", err)
		}
		if err := os.WriteFile(filepath.Join(w.outputDir, rel), a.Body, 0o644); err != nil {
			return fmt.Errorf("write attachment %s: %w", rel, err)
		}
		a.Path = filepath.ToSlash(rel)
		s.Attachments = append(s.Attachments, a)
	}
	return w.flushLocked()
}

// SetupFailed records an error that stopped the run before any session.
func (w *Writer) SetupFailed(err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.report.SetupError = err.Error()
	return w.flushLocked()
}

// End marks the run as complete and writes the final report.
func (w *Writer) End() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.report.EndTime = &now
	w.report.Status = w.computeRunStatus()
	return w.flushLocked()
}

// Snapshot returns a copy of the current report.
func (w *Writer) Snapshot() Report {
	w.mu.Lock()
	defer w.mu.Unlock()

	r := *w.report
	r.Sessions = append([]Session(nil), w.report.Sessions...)
	return r
}

func (w *Writer) sessionLocked(i int) (*Session, error) {
	if i < 0 || i >= len(w.report.Sessions) {
		return nil, fmt.Errorf("no session %d in report", i)
	}
	return &w.report.Sessions[i], nil
}

func (w *Writer) flushLocked() error {
	w.report.Summary = w.computeSummary()
	return atomicWriteJSON(w.path, w.report)
}

// computeSummary calculates summary from session statuses.
func (w *Writer) computeSummary() Summary {
	var s Summary
	for _, session := range w.report.Sessions {
		s.Total++
		switch session.Status {
		case core.StatusPassed:
			s.Passed++
		case core.StatusFailed:
			s.Failed++
		case core.StatusErrored:
			s.Errored++
		case core.StatusPending:
			s.Pending++
		}
	}
	return s
}

// computeRunStatus determines overall run status from sessions.
func (w *Writer) computeRunStatus() core.SessionStatus {
	if w.report.SetupError != "" {
		return core.StatusErrored
	}
	status := core.StatusPassed
	for _, s := range w.report.Sessions {
		switch {
		case !s.Status.IsTerminal():
			return core.StatusRunning
		case s.Status == core.StatusErrored:
			status = core.StatusErrored
		case s.Status == core.StatusFailed && status == core.StatusPassed:
			status = core.StatusFailed
		}
	}
	return status
}

// atomicWriteJSON writes v next to path and renames it into place.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitize(name string) string {
	return strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_")
}
