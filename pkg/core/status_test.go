package core

import "testing"

func TestSessionStatus_String(t *testing.T) {
	tests := []struct {
		status   SessionStatus
		expected string
	}{
		{StatusPending, "pending"},
		{StatusRunning, "running"},
		{StatusPassed, "passed"},
		{StatusFailed, "failed"},
		{StatusErrored, "errored"},
		{SessionStatus(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.expected {
			t.Errorf("SessionStatus(%d).String() = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestSessionStatus_IsTerminal(t *testing.T) {
	for _, s := range []SessionStatus{StatusPassed, StatusFailed, StatusErrored} {
		if !s.IsTerminal() {
			t.Errorf("SessionStatus(%s).IsTerminal() = false, want true", s)
		}
	}
	for _, s := range []SessionStatus{StatusPending, StatusRunning} {
		if s.IsTerminal() {
			t.Errorf("SessionStatus(%s).IsTerminal() = true, want false", s)
		}
	}
}

func TestSessionStatus_IsSuccess(t *testing.T) {
	if !StatusPassed.IsSuccess() {
		t.Error("passed should be success")
	}
	if StatusFailed.IsSuccess() || StatusErrored.IsSuccess() {
		t.Error("failed/errored should not be success")
	}
}

func TestErrorCategory_String(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{ErrCategoryNone, "none"},
		{ErrCategoryConfig, "config"},
		{ErrCategoryData, "data"},
		{ErrCategoryRemote, "remote"},
		{ErrCategoryProcess, "process"},
		{ErrorCategory(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.category.String(); got != tt.expected {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", tt.category, got, tt.expected)
		}
	}
}

func TestSessionStatus_TextRoundTrip(t *testing.T) {
	for _, s := range []SessionStatus{StatusPending, StatusRunning, StatusPassed, StatusFailed, StatusErrored} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%s) error: %v", s, err)
		}
		var got SessionStatus
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error: %v", text, err)
		}
		if got != s {
			t.Errorf("round trip of %s gave %s", s, got)
		}
	}

	var s SessionStatus
	if err := s.UnmarshalText([]byte("skipped")); err == nil {
		t.Error("UnmarshalText(skipped) should fail")
	}
}
