package transport

import (
	"testing"
)

func TestStateString(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{StateInitializing, "INITIALIZING"},
		{StateStarting, "STARTING"},
		{StateConnecting, "CONNECTING"},
		{StateConnected, "CONNECTED"},
		{StateReconnecting, "RECONNECTING"},
		{StateDisconnected, "DISCONNECTED"},
		{State(99), "UNKNOWN"},
	}
	for _, c := range cases {
		if got := c.state.String(); got != c.want {
			t.Errorf("State(%d).String() = %q, want %q", c.state, got, c.want)
		}
	}
}

func TestQueryEncode(t *testing.T) {
	q := Query{
		AuthToken:  "Bearer T1",
		ContextID:  "C1",
		AuthExpiry: 1000,
	}

	v := q.Encode()
	if got := v.Get("authorization"); got != "Bearer T1" {
		t.Errorf("authorization = %q", got)
	}
	if got := v.Get("context"); got != "C1" {
		t.Errorf("context = %q", got)
	}
	if got := v.Get("authexpiry"); got != "1000" {
		t.Errorf("authexpiry = %q", got)
	}
}

func TestQueryEncodeOmitsZeroExpiry(t *testing.T) {
	q := Query{AuthToken: "T", ContextID: "C"}
	if got := q.Encode().Get("authexpiry"); got != "" {
		t.Errorf("authexpiry = %q, want empty", got)
	}
}

func TestMergeOptionsOverridesWin(t *testing.T) {
	defaults := map[string]any{
		"waitForPageLoad": false,
		"transport":       []string{"webSockets"},
	}
	overrides := map[string]any{
		"transport": []string{"longPolling"},
		"timeout":   30,
	}

	merged := MergeOptions(defaults, overrides)

	if merged["waitForPageLoad"] != false {
		t.Error("default key missing from merge")
	}
	got, ok := merged["transport"].([]string)
	if !ok || len(got) != 1 || got[0] != "longPolling" {
		t.Errorf("transport = %v, want override value", merged["transport"])
	}
	if merged["timeout"] != 30 {
		t.Error("override-only key missing from merge")
	}

	// Inputs must stay untouched.
	if v := defaults["transport"].([]string); v[0] != "webSockets" {
		t.Error("defaults map was modified")
	}
}

func TestMergeOptionsNilInputs(t *testing.T) {
	if got := MergeOptions(nil, nil); len(got) != 0 {
		t.Errorf("MergeOptions(nil, nil) = %v, want empty", got)
	}
	if got := MergeOptions(nil, map[string]any{"k": 1}); got["k"] != 1 {
		t.Error("overrides ignored with nil defaults")
	}
}
