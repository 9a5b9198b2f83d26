// Package report writes the run report for one farm run.
//
// Layout under the report directory:
//   - report.json: run metadata plus one entry per device session, rewritten
//     atomically after every session
//   - assets/: screenshots and page sources captured from failed sessions
package report

import (
	"time"

	"github.com/devicelab-dev/farm-runner/pkg/core"
)

// Version is the report schema version.
const Version = "1.0.0"

// Report is the content of report.json.
type Report struct {
	Version    string             `json:"version"`
	Status     core.SessionStatus `json:"status"`
	StartTime  time.Time          `json:"startTime"`
	EndTime    *time.Time         `json:"endTime,omitempty"`
	Run        Run                `json:"run"`
	Summary    Summary            `json:"summary"`
	Sessions   []Session          `json:"sessions"`
	SetupError string             `json:"setupError,omitempty"`
}

// Run identifies the farm run.
type Run struct {
	Platform    string `json:"platform"`
	Build       string `json:"build"`
	Project     string `json:"project"`
	AppID       string `json:"appId"`
	LocalTunnel string `json:"localTunnel,omitempty"` // tunnel identifier when local testing
}

// Summary contains aggregated counts.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Pending int `json:"pending"`
}

// Session is one device session of the run.
type Session struct {
	Index       int                `json:"index"`
	Device      string             `json:"device"`
	OSVersion   string             `json:"osVersion"`
	SessionID   string             `json:"sessionId,omitempty"`
	Status      core.SessionStatus `json:"status"`
	StartTime   *time.Time         `json:"startTime,omitempty"`
	Duration    *int64             `json:"duration,omitempty"` // milliseconds
	Error       string             `json:"error,omitempty"`
	Attachments []core.Attachment  `json:"attachments,omitempty"`
}
