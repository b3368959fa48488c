package notify

import "testing"

// TestSeverity checks every EventType against the spec's literal
// ERROR/INFO table: event_type is "ERROR" for PULL_FAILED and "INFO"
// otherwise, with no exception for START_CONTAINER_FAILED.
func TestSeverity(t *testing.T) {
	cases := []struct {
		event EventType
		want  string
	}{
		{PullStart, "INFO"},
		{PullFailed, "ERROR"},
		{StartContainer, "INFO"},
		{StartContainerFailed, "INFO"},
		{StopContainer, "INFO"},
	}

	for _, c := range cases {
		if got := c.event.Severity(); got != c.want {
			t.Errorf("%s.Severity() = %q, want %q", c.event, got, c.want)
		}
	}
}

func TestNewSetsSeverityFromEventType(t *testing.T) {
	event := New(StartContainerFailed, "svc-1: create rejected")
	if event.EventType != "INFO" {
		t.Errorf("New(StartContainerFailed, ...).EventType = %q, want INFO", event.EventType)
	}

	event = New(PullFailed, "boom")
	if event.EventType != "ERROR" {
		t.Errorf("New(PullFailed, ...).EventType = %q, want ERROR", event.EventType)
	}
}
