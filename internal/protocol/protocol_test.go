package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Major != 1 || v.Minor != 0 {
		t.Errorf("v = %+v", v)
	}
}

func TestParseVersionInvalid(t *testing.T) {
	for _, s := range []string{"1", "1.0.0", "abc"} {
		if _, err := ParseVersion(s); err == nil {
			t.Errorf("expected error parsing %q", s)
		}
	}
}

func TestIsCompatibleWith(t *testing.T) {
	v1_0 := Version{Major: 1, Minor: 0}
	v1_1 := Version{Major: 1, Minor: 1}
	v2_0 := Version{Major: 2, Minor: 0}

	if !v1_0.IsCompatibleWith(v1_1) {
		t.Error("expected 1.0 compatible with 1.1")
	}
	if !v1_1.IsCompatibleWith(v1_0) {
		t.Error("expected 1.1 compatible with 1.0")
	}
	if v1_0.IsCompatibleWith(v2_0) {
		t.Error("expected 1.0 incompatible with 2.0")
	}
}

func TestVersionString(t *testing.T) {
	v := Version{Major: 1, Minor: 2}
	if got := v.String(); got != "1.2" {
		t.Errorf("String() = %q, want 1.2", got)
	}
}

func TestClientMessageConnectRoundTrip(t *testing.T) {
	m := NewConnect("client-a")
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded ClientMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Type != ClientConnect || decoded.ClientID != "client-a" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestDaemonMessageSessionRemoved(t *testing.T) {
	m := SessionRemoved("sess-1")
	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["type"] != "session_removed" {
		t.Errorf("type = %v", decoded["type"])
	}
	if decoded["session_id"] != "sess-1" {
		t.Errorf("session_id = %v", decoded["session_id"])
	}
	if _, present := decoded["sessions"]; present {
		t.Error("expected sessions field omitted")
	}
}
