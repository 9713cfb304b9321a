package nats

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/saviobatista/ais-logger/internal/types"
)

func TestNew_Unit_URLs(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"invalid URL should fail", "invalid://url:12345"},
		{"malformed URL should fail", "not-a-url:99999"},
		{"unreachable server should fail", "nats://127.0.0.1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.url)
			if err == nil {
				client.Close()
				t.Fatal("Expected error, got none")
			}
			if client != nil {
				t.Error("Expected nil client on error")
			}
		})
	}
}

func TestClient_Close_Unit_NilSafety(t *testing.T) {
	client := &Client{conn: nil}
	client.Close()
}

func TestSubjects_Unit(t *testing.T) {
	if SubjectAISRaw != "ais.raw" {
		t.Errorf("Expected SubjectAISRaw to be 'ais.raw', got %s", SubjectAISRaw)
	}
	if got := StateSubject(367380120); got != "ais.states.367380120" {
		t.Errorf("StateSubject() = %s", got)
	}
}

func TestIsStreamExists_Unit(t *testing.T) {
	if !isStreamExists(errors.New("nats: stream name already in use")) {
		t.Error("Expected 'stream name already in use' to be ignored")
	}
	if isStreamExists(errors.New("some other stream error")) {
		t.Error("Expected other stream errors to remain as errors")
	}
}

func TestAISMessage_Unit_WireFormat(t *testing.T) {
	msg := &types.AISMessage{
		Raw:       `\s:2573135,c:1671620143*0B\!AIVDM,1,1,,B,15NG6V0P01G?cFhE` + "`" + `R2IU?wn28R>,0*05`,
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:    "udp://0.0.0.0:10110",
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"raw", "timestamp", "source"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing %q in %s", key, data)
		}
	}

	var decoded types.AISMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded.Raw != msg.Raw {
		t.Errorf("Raw = %q, want %q", decoded.Raw, msg.Raw)
	}
}

func TestVesselState_Unit_WireFormat(t *testing.T) {
	lat := 37.8
	state := &types.VesselState{MMSI: 367380120, MsgType: 1, Latitude: &lat, Timestamp: time.Now()}

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := fields["latitude"]; !ok {
		t.Error("expected latitude to be present")
	}
	// Unavailable values are omitted rather than sent as zero
	if _, ok := fields["longitude"]; ok {
		t.Error("expected longitude to be omitted")
	}
	if _, ok := fields["speed"]; ok {
		t.Error("expected speed to be omitted")
	}
}
