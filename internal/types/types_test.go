package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAISMessage_JSON(t *testing.T) {
	msg := AISMessage{
		Raw:       "!AIVDM,1,1,,B,15NG6V0P01G?cFhE`R2IU?wn28R>,0*05",
		Timestamp: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
		Source:    "test-source",
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal AISMessage: %v", err)
	}

	var unmarshaled AISMessage
	if err := json.Unmarshal(data, &unmarshaled); err != nil {
		t.Fatalf("Failed to unmarshal AISMessage: %v", err)
	}

	if msg.Raw != unmarshaled.Raw {
		t.Errorf("Raw mismatch: got %v, want %v", unmarshaled.Raw, msg.Raw)
	}
	if !msg.Timestamp.Equal(unmarshaled.Timestamp) {
		t.Errorf("Timestamp mismatch: got %v, want %v", unmarshaled.Timestamp, msg.Timestamp)
	}
	if msg.Source != unmarshaled.Source {
		t.Errorf("Source mismatch: got %v, want %v", unmarshaled.Source, msg.Source)
	}
}

func TestVesselState_OmitsUnavailableFields(t *testing.T) {
	state := VesselState{
		MMSI:      367380120,
		MsgType:   1,
		NavStatus: "under way using engine",
		Timestamp: time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Failed to marshal VesselState: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Failed to unmarshal VesselState: %v", err)
	}

	for _, key := range []string{"latitude", "longitude", "speed", "course", "heading"} {
		if _, ok := fields[key]; ok {
			t.Errorf("expected %s to be omitted, got %v", key, fields[key])
		}
	}
	if fields["mmsi"] != float64(367380120) {
		t.Errorf("mmsi mismatch: got %v", fields["mmsi"])
	}
}

func TestVesselState_HasPosition(t *testing.T) {
	lat, lon := 37.8, -122.4

	tests := []struct {
		name  string
		state VesselState
		want  bool
	}{
		{"both", VesselState{Latitude: &lat, Longitude: &lon}, true},
		{"latitude only", VesselState{Latitude: &lat}, false},
		{"longitude only", VesselState{Longitude: &lon}, false},
		{"none", VesselState{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.HasPosition(); got != tt.want {
				t.Errorf("HasPosition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVoyage_JSON(t *testing.T) {
	voyage := Voyage{
		SessionID:      "session-123",
		MMSI:           367380120,
		Name:           "EVER GIVEN",
		StartedAt:      time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
		EndedAt:        time.Date(2023, 1, 1, 14, 0, 0, 0, time.UTC),
		FirstLatitude:  37.8,
		FirstLongitude: -122.4,
		LastLatitude:   37.9,
		LastLongitude:  -122.5,
		MaxSpeed:       14.2,
	}

	data, err := json.Marshal(voyage)
	if err != nil {
		t.Fatalf("Failed to marshal Voyage: %v", err)
	}

	var unmarshaled Voyage
	if err := json.Unmarshal(data, &unmarshaled); err != nil {
		t.Fatalf("Failed to unmarshal Voyage: %v", err)
	}

	if unmarshaled != voyage {
		t.Errorf("Voyage mismatch: got %+v, want %+v", unmarshaled, voyage)
	}
}
