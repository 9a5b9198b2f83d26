package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/devicelab-dev/farm-runner/pkg/caps"
	"github.com/devicelab-dev/farm-runner/pkg/core"
)

func readReport(t *testing.T, path string) Report {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	return r
}

func twoDevices() []caps.DeviceEntry {
	return []caps.DeviceEntry{
		{OSVersion: "11", DeviceName: "Pixel 4", Device: "Pixel 4"},
		{OSVersion: "12", DeviceName: "Galaxy S22", Device: "Galaxy S22"},
	}
}

func TestWriter_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Run{Platform: "android", Build: "nightly-target", Project: "theapp", AppID: "bs://abc"}, twoDevices())

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r := readReport(t, w.Path())
	if r.Status != core.StatusRunning {
		t.Errorf("Status = %s, want running", r.Status)
	}
	if r.Summary.Pending != 2 {
		t.Errorf("Pending = %d, want 2", r.Summary.Pending)
	}

	if err := w.StartSession(0, "sess-1"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := w.FinishSession(0, core.StatusPassed, nil, nil); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}
	if err := w.StartSession(1, "sess-2"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := w.FinishSession(1, core.StatusFailed, errors.New("select echo: no such element"), nil); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}
	if err := w.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	r = readReport(t, filepath.Join(dir, FileName))
	if r.Version != Version {
		t.Errorf("Version = %s, want %s", r.Version, Version)
	}
	if r.Status != core.StatusFailed {
		t.Errorf("Status = %s, want failed", r.Status)
	}
	if r.EndTime == nil {
		t.Error("EndTime should be set")
	}
	if r.Run.Build != "nightly-target" || r.Run.AppID != "bs://abc" {
		t.Errorf("unexpected run info: %+v", r.Run)
	}
	if r.Summary.Total != 2 || r.Summary.Passed != 1 || r.Summary.Failed != 1 {
		t.Errorf("unexpected summary: %+v", r.Summary)
	}

	s := r.Sessions[1]
	if s.Device != "Galaxy S22" || s.OSVersion != "12" || s.SessionID != "sess-2" {
		t.Errorf("unexpected session: %+v", s)
	}
	if s.Error != "select echo: no such element" {
		t.Errorf("Error = %q", s.Error)
	}
	if s.Duration == nil {
		t.Error("Duration should be set")
	}
}

func TestWriter_AllPassed(t *testing.T) {
	w := NewWriter(t.TempDir(), Run{}, twoDevices())
	for i := range twoDevices() {
		if err := w.StartSession(i, ""); err != nil {
			t.Fatal(err)
		}
		if err := w.FinishSession(i, core.StatusPassed, nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.End(); err != nil {
		t.Fatal(err)
	}
	if got := w.Snapshot().Status; got != core.StatusPassed {
		t.Errorf("Status = %s, want passed", got)
	}
}

func TestWriter_ErroredWins(t *testing.T) {
	w := NewWriter(t.TempDir(), Run{}, twoDevices())
	if err := w.FinishSession(0, core.StatusErrored, errors.New("session not created"), nil); err != nil {
		t.Fatal(err)
	}
	if err := w.FinishSession(1, core.StatusFailed, errors.New("boom"), nil); err != nil {
		t.Fatal(err)
	}
	if err := w.End(); err != nil {
		t.Fatal(err)
	}
	if got := w.Snapshot().Status; got != core.StatusErrored {
		t.Errorf("Status = %s, want errored", got)
	}
}

func TestWriter_UnfinishedSessionKeepsRunRunning(t *testing.T) {
	w := NewWriter(t.TempDir(), Run{}, twoDevices())
	if err := w.FinishSession(0, core.StatusPassed, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.End(); err != nil {
		t.Fatal(err)
	}
	if got := w.Snapshot().Status; got != core.StatusRunning {
		t.Errorf("Status = %s, want running", got)
	}
}

func TestWriter_SetupFailed(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Run{Platform: "android"}, nil)
	if err := w.SetupFailed(core.ErrAppNotFound); err != nil {
		t.Fatal(err)
	}
	if err := w.End(); err != nil {
		t.Fatal(err)
	}

	r := readReport(t, w.Path())
	if r.Status != core.StatusErrored {
		t.Errorf("Status = %s, want errored", r.Status)
	}
	if r.SetupError == "" {
		t.Error("SetupError should be recorded")
	}
	if len(r.Sessions) != 0 {
		t.Errorf("Sessions = %d, want 0", len(r.Sessions))
	}
}

func TestWriter_Attachments(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, Run{}, twoDevices())

	attachments := []core.Attachment{
		core.NewScreenshotAttachment("Pixel 4/11-screenshot.png", []byte{0x89, 0x50}),
		core.NewSourceAttachment("Pixel 4/11-source.xml", []byte("<hierarchy/>")),
	}
	if err := w.FinishSession(0, core.StatusFailed, errors.New("boom"), attachments); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}

	s := readReport(t, w.Path()).Sessions[0]
	if len(s.Attachments) != 2 {
		t.Fatalf("Attachments = %d, want 2", len(s.Attachments))
	}
	want := "assets/session-000-Pixel_4_11-screenshot.png"
	if s.Attachments[0].Path != want {
		t.Errorf("Path = %s, want %s", s.Attachments[0].Path, want)
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(want)))
	if err != nil {
		t.Fatalf("attachment not written: %v", err)
	}
	if len(data) != 2 {
		t.Errorf("attachment size = %d, want 2", len(data))
	}
}

func TestWriter_Errors(t *testing.T) {
	w := NewWriter(t.TempDir(), Run{}, twoDevices())
	if err := w.StartSession(5, ""); err == nil {
		t.Error("StartSession(5) should fail")
	}
	if err := w.FinishSession(0, core.StatusRunning, nil, nil); err == nil {
		t.Error("FinishSession with running status should fail")
	}
}

func TestSanitize(t *testing.T) {
	tests := map[string]string{
		"Pixel 4/11-screenshot.png": "Pixel_4_11-screenshot.png",
		"../etc/passwd":             ".._etc_passwd",
		"plain.xml":                 "plain.xml",
	}
	for in, want := range tests {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}
