package types

import (
	"time"
)

// AISMessage represents one raw NMEA line as received from a source
type AISMessage struct {
	Raw       string    `json:"raw"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// VesselState represents the latest known state of a vessel.
// Pointer fields are nil when the transmitter reported "not available".
type VesselState struct {
	MMSI        uint32    `json:"mmsi"`
	MsgType     int       `json:"msg_type"`
	Name        string    `json:"name,omitempty"`
	Callsign    string    `json:"callsign,omitempty"`
	IMO         uint32    `json:"imo,omitempty"`
	ShipType    int       `json:"ship_type,omitempty"`
	Destination string    `json:"destination,omitempty"`
	NavStatus   string    `json:"nav_status,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Speed       *float64  `json:"speed,omitempty"`
	Course      *float64  `json:"course,omitempty"`
	Heading     *int      `json:"heading,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	SessionID   string    `json:"session_id"`
}

// HasPosition reports whether both coordinates are available
func (s *VesselState) HasPosition() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Voyage represents a tracking session for a single vessel
type Voyage struct {
	SessionID      string    `json:"session_id"`
	MMSI           uint32    `json:"mmsi"`
	Name           string    `json:"name"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	FirstLatitude  float64   `json:"first_latitude"`
	FirstLongitude float64   `json:"first_longitude"`
	LastLatitude   float64   `json:"last_latitude"`
	LastLongitude  float64   `json:"last_longitude"`
	MaxSpeed       float64   `json:"max_speed"`
}

// VesselInfo holds the static identity of a vessel collected from
// static and voyage related messages
type VesselInfo struct {
	MMSI        uint32    `json:"mmsi"`
	Name        string    `json:"name"`
	Callsign    string    `json:"callsign"`
	IMO         uint32    `json:"imo"`
	ShipType    int       `json:"ship_type"`
	Destination string    `json:"destination"`
	Length      int       `json:"length,omitempty"` // Metres, 0 if unknown
	Beam        int       `json:"beam,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
