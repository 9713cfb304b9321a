package ais

import "time"

// Header is common to every AIS message
type Header struct {
	MessageType uint8  `json:"message_type"`
	Repeat      uint8  `json:"repeat"`
	MMSI        uint32 `json:"mmsi"`
}

// Base returns the common header
func (h Header) Base() Header {
	return h
}

// Message is implemented by every decoded message variant
type Message interface {
	Base() Header
}

// NavigationStatus is the 4-bit navigational status of a Class A vessel
type NavigationStatus uint8

const (
	StatusUnderWayUsingEngine NavigationStatus = iota
	StatusAtAnchor
	StatusNotUnderCommand
	StatusRestrictedManoeuverability
	StatusConstrainedByDraught
	StatusMoored
	StatusAground
	StatusEngagedInFishing
	StatusUnderWaySailing
	StatusReservedHSC
	StatusReservedWIG
	StatusPowerDrivenTowingAstern
	StatusPowerDrivenPushingAhead
	StatusReserved13
	StatusAISSARTActive
	StatusNotDefined
)

var navigationStatusNames = [16]string{
	"under way using engine",
	"at anchor",
	"not under command",
	"restricted manoeuverability",
	"constrained by her draught",
	"moored",
	"aground",
	"engaged in fishing",
	"under way sailing",
	"reserved for HSC",
	"reserved for WIG",
	"power-driven vessel towing astern",
	"power-driven vessel pushing ahead or towing alongside",
	"reserved",
	"AIS-SART active",
	"not defined",
}

// NavigationStatusFromCode maps a raw code, falling back to StatusNotDefined
func NavigationStatusFromCode(code uint64) NavigationStatus {
	if code > uint64(StatusNotDefined) {
		return StatusNotDefined
	}
	return NavigationStatus(code)
}

func (s NavigationStatus) String() string {
	if int(s) < len(navigationStatusNames) {
		return navigationStatusNames[s]
	}
	return navigationStatusNames[StatusNotDefined]
}

// MarshalText encodes the status by name
func (s NavigationStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ManeuverIndicator reports a special manoeuvre in progress
type ManeuverIndicator uint8

const (
	ManeuverNotAvailable ManeuverIndicator = iota
	ManeuverNone
	ManeuverSpecial
)

func (m ManeuverIndicator) String() string {
	switch m {
	case ManeuverNone:
		return "no special maneuver"
	case ManeuverSpecial:
		return "special maneuver"
	}
	return "not available"
}

// TimestampStatus qualifies the second-of-minute field
type TimestampStatus uint8

const (
	TimestampAvailable TimestampStatus = iota
	TimestampNotAvailable
	TimestampManualInput
	TimestampDeadReckoning
	TimestampInoperative
)

func (t TimestampStatus) String() string {
	switch t {
	case TimestampAvailable:
		return "available"
	case TimestampManualInput:
		return "manual input"
	case TimestampDeadReckoning:
		return "dead reckoning"
	case TimestampInoperative:
		return "inoperative"
	}
	return "not available"
}

// TurnIndicator describes how the rate of turn field should be read
type TurnIndicator uint8

const (
	TurnNotAvailable TurnIndicator = iota
	TurnRate
	TurnRightNoIndicator
	TurnLeftNoIndicator
)

// EPFD is the type of electronic position fixing device
type EPFD uint8

var epfdNames = []string{
	"undefined",
	"GPS",
	"GLONASS",
	"combined GPS/GLONASS",
	"Loran-C",
	"Chayka",
	"integrated navigation system",
	"surveyed",
	"Galileo",
}

func (e EPFD) String() string {
	if int(e) < len(epfdNames) {
		return epfdNames[e]
	}
	if e == 15 {
		return "internal GNSS"
	}
	return "undefined"
}

// Dimensions are the distances from the reference point in metres
type Dimensions struct {
	ToBow       uint16 `json:"to_bow"`
	ToStern     uint16 `json:"to_stern"`
	ToPort      uint8  `json:"to_port"`
	ToStarboard uint8  `json:"to_starboard"`
}

// Length returns the overall length, 0 if unknown
func (d Dimensions) Length() int {
	return int(d.ToBow) + int(d.ToStern)
}

// Beam returns the overall width, 0 if unknown
func (d Dimensions) Beam() int {
	return int(d.ToPort) + int(d.ToStarboard)
}

// PositionReport is message types 1, 2 and 3 (Class A)
type PositionReport struct {
	Header
	NavStatus        NavigationStatus  `json:"nav_status"`
	Turn             TurnIndicator     `json:"turn"`
	RateOfTurn       *float64          `json:"rate_of_turn,omitempty"`
	Speed            *float64          `json:"speed,omitempty"`
	PositionAccuracy bool              `json:"position_accuracy"`
	Longitude        *float64          `json:"longitude,omitempty"`
	Latitude         *float64          `json:"latitude,omitempty"`
	Course           *float64          `json:"course,omitempty"`
	Heading          *uint16           `json:"heading,omitempty"`
	Second           *uint8            `json:"second,omitempty"`
	TimestampStatus  TimestampStatus   `json:"timestamp_status"`
	Maneuver         ManeuverIndicator `json:"maneuver"`
	RAIM             bool              `json:"raim"`
	RadioStatus      uint32            `json:"radio_status"`
}

// BaseStationReport is message type 4, or 11 as a UTC/date response
type BaseStationReport struct {
	Header
	Year             *uint16  `json:"year,omitempty"`
	Month            *uint8   `json:"month,omitempty"`
	Day              *uint8   `json:"day,omitempty"`
	Hour             *uint8   `json:"hour,omitempty"`
	Minute           *uint8   `json:"minute,omitempty"`
	Second           *uint8   `json:"second,omitempty"`
	PositionAccuracy bool     `json:"position_accuracy"`
	Longitude        *float64 `json:"longitude,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	EPFD             EPFD     `json:"epfd"`
	RAIM             bool     `json:"raim"`
	RadioStatus      uint32   `json:"radio_status"`
}

// UTC returns the reported time when every component is available
func (m *BaseStationReport) UTC() (time.Time, bool) {
	if m.Year == nil || m.Month == nil || m.Day == nil || m.Hour == nil || m.Minute == nil || m.Second == nil {
		return time.Time{}, false
	}
	return time.Date(int(*m.Year), time.Month(*m.Month), int(*m.Day),
		int(*m.Hour), int(*m.Minute), int(*m.Second), 0, time.UTC), true
}

// ETA is the estimated time of arrival; absent components are nil
type ETA struct {
	Month  *uint8 `json:"month,omitempty"`
	Day    *uint8 `json:"day,omitempty"`
	Hour   *uint8 `json:"hour,omitempty"`
	Minute *uint8 `json:"minute,omitempty"`
}

// StaticVoyageData is message type 5
type StaticVoyageData struct {
	Header
	AISVersion  uint8      `json:"ais_version"`
	IMO         *uint32    `json:"imo,omitempty"`
	Callsign    string     `json:"callsign"`
	ShipName    string     `json:"ship_name"`
	ShipType    uint8      `json:"ship_type"`
	Dimensions  Dimensions `json:"dimensions"`
	EPFD        EPFD       `json:"epfd"`
	ETA         ETA        `json:"eta"`
	Draught     *float64   `json:"draught,omitempty"`
	Destination string     `json:"destination"`
	DTEReady    bool       `json:"dte_ready"`
}

// SARAircraftReport is message type 9
type SARAircraftReport struct {
	Header
	Altitude         *uint16         `json:"altitude,omitempty"`
	Speed            *float64        `json:"speed,omitempty"`
	PositionAccuracy bool            `json:"position_accuracy"`
	Longitude        *float64        `json:"longitude,omitempty"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Course           *float64        `json:"course,omitempty"`
	Second           *uint8          `json:"second,omitempty"`
	TimestampStatus  TimestampStatus `json:"timestamp_status"`
	DTEReady         bool            `json:"dte_ready"`
	Assigned         bool            `json:"assigned"`
	RAIM             bool            `json:"raim"`
	RadioStatus      uint32          `json:"radio_status"`
}

// ClassBPositionReport is message type 18
type ClassBPositionReport struct {
	Header
	Speed            *float64        `json:"speed,omitempty"`
	PositionAccuracy bool            `json:"position_accuracy"`
	Longitude        *float64        `json:"longitude,omitempty"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Course           *float64        `json:"course,omitempty"`
	Heading          *uint16         `json:"heading,omitempty"`
	Second           *uint8          `json:"second,omitempty"`
	TimestampStatus  TimestampStatus `json:"timestamp_status"`
	CarrierSense     bool            `json:"carrier_sense"`
	Display          bool            `json:"display"`
	DSC              bool            `json:"dsc"`
	Band             bool            `json:"band"`
	Message22        bool            `json:"message_22"`
	Assigned         bool            `json:"assigned"`
	RAIM             bool            `json:"raim"`
	RadioStatus      uint32          `json:"radio_status"`
}

// ExtendedClassBReport is message type 19
type ExtendedClassBReport struct {
	Header
	Speed            *float64        `json:"speed,omitempty"`
	PositionAccuracy bool            `json:"position_accuracy"`
	Longitude        *float64        `json:"longitude,omitempty"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Course           *float64        `json:"course,omitempty"`
	Heading          *uint16         `json:"heading,omitempty"`
	Second           *uint8          `json:"second,omitempty"`
	TimestampStatus  TimestampStatus `json:"timestamp_status"`
	ShipName         string          `json:"ship_name"`
	ShipType         uint8           `json:"ship_type"`
	Dimensions       Dimensions      `json:"dimensions"`
	EPFD             EPFD            `json:"epfd"`
	RAIM             bool            `json:"raim"`
	DTEReady         bool            `json:"dte_ready"`
	Assigned         bool            `json:"assigned"`
}

// AidToNavigationReport is message type 21
type AidToNavigationReport struct {
	Header
	AidType          uint8           `json:"aid_type"`
	Name             string          `json:"name"`
	PositionAccuracy bool            `json:"position_accuracy"`
	Longitude        *float64        `json:"longitude,omitempty"`
	Latitude         *float64        `json:"latitude,omitempty"`
	Dimensions       Dimensions      `json:"dimensions"`
	EPFD             EPFD            `json:"epfd"`
	Second           *uint8          `json:"second,omitempty"`
	TimestampStatus  TimestampStatus `json:"timestamp_status"`
	OffPosition      bool            `json:"off_position"`
	RAIM             bool            `json:"raim"`
	VirtualAid       bool            `json:"virtual_aid"`
	Assigned         bool            `json:"assigned"`
}

// StaticDataReport is message type 24. Part A carries the name, part B
// the remaining static data.
type StaticDataReport struct {
	Header
	PartNumber     uint8       `json:"part_number"`
	ShipName       string      `json:"ship_name,omitempty"`
	ShipType       uint8       `json:"ship_type,omitempty"`
	VendorID       string      `json:"vendor_id,omitempty"`
	Model          uint8       `json:"model,omitempty"`
	Serial         uint32      `json:"serial,omitempty"`
	Callsign       string      `json:"callsign,omitempty"`
	Dimensions     *Dimensions `json:"dimensions,omitempty"`
	MothershipMMSI *uint32     `json:"mothership_mmsi,omitempty"`
}

// LongRangeBroadcast is message type 27
type LongRangeBroadcast struct {
	Header
	PositionAccuracy bool             `json:"position_accuracy"`
	RAIM             bool             `json:"raim"`
	NavStatus        NavigationStatus `json:"nav_status"`
	Longitude        *float64         `json:"longitude,omitempty"`
	Latitude         *float64         `json:"latitude,omitempty"`
	Speed            *float64         `json:"speed,omitempty"`
	Course           *float64         `json:"course,omitempty"`
	GNSS             bool             `json:"gnss"`
}
