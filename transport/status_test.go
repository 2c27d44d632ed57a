package transport

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "disconnected"},
		{StateRetrying, "retrying"},
		{StateConnected, "connected"},
		{StateDisabled, "disabled"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestReason_String(t *testing.T) {
	tests := []struct {
		reason Reason
		want   string
	}{
		{ReasonOK, "ok"},
		{ReasonBadCredential, "bad_credential"},
		{ReasonDeviceDisabled, "device_disabled"},
		{ReasonRetryExpired, "retry_expired"},
		{ReasonCommunicationError, "communication_error"},
		{ReasonClientClosed, "client_closed"},
		{Reason(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("Reason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

func TestState_ZeroValue(t *testing.T) {
	var s State
	if s != StateDisconnected {
		t.Errorf("zero State = %v, want StateDisconnected", s)
	}
}
