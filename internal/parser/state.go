package parser

import (
	"time"

	"github.com/saviobatista/ais-logger/internal/ais"
	"github.com/saviobatista/ais-logger/internal/types"
)

// ParseMessage parses a raw line into a vessel state. It returns nil, nil
// while a multi-sentence message is incomplete and for messages that carry
// no vessel state (base stations, aids to navigation, undecoded types).
func (p *Parser) ParseMessage(raw string, timestamp time.Time) (*types.VesselState, error) {
	out, err := p.Parse([]byte(raw), p.opts.Strict)
	if err != nil {
		return nil, err
	}
	if out.Status == Incomplete || out.Message == nil {
		return nil, nil
	}
	return StateFromMessage(out.Message, timestamp), nil
}

// StateFromMessage flattens a decoded message into a vessel state
func StateFromMessage(msg ais.Message, timestamp time.Time) *types.VesselState {
	h := msg.Base()
	state := &types.VesselState{
		MMSI:      h.MMSI,
		MsgType:   int(h.MessageType),
		Timestamp: timestamp,
	}

	switch m := msg.(type) {
	case *ais.PositionReport:
		state.NavStatus = m.NavStatus.String()
		setPosition(state, m.Latitude, m.Longitude, m.Speed, m.Course)
		state.Heading = toInt(m.Heading)

	case *ais.ClassBPositionReport:
		setPosition(state, m.Latitude, m.Longitude, m.Speed, m.Course)
		state.Heading = toInt(m.Heading)

	case *ais.ExtendedClassBReport:
		setPosition(state, m.Latitude, m.Longitude, m.Speed, m.Course)
		state.Heading = toInt(m.Heading)
		state.Name = m.ShipName
		state.ShipType = int(m.ShipType)

	case *ais.SARAircraftReport:
		setPosition(state, m.Latitude, m.Longitude, m.Speed, m.Course)

	case *ais.LongRangeBroadcast:
		state.NavStatus = m.NavStatus.String()
		setPosition(state, m.Latitude, m.Longitude, m.Speed, m.Course)

	case *ais.StaticVoyageData:
		state.Name = m.ShipName
		state.Callsign = m.Callsign
		state.ShipType = int(m.ShipType)
		state.Destination = m.Destination
		if m.IMO != nil {
			state.IMO = *m.IMO
		}

	case *ais.StaticDataReport:
		state.Name = m.ShipName
		state.Callsign = m.Callsign
		state.ShipType = int(m.ShipType)

	default:
		return nil
	}

	return state
}

// InfoFromMessage extracts static vessel identity. It returns nil for
// messages without static data.
func InfoFromMessage(msg ais.Message, timestamp time.Time) *types.VesselInfo {
	info := &types.VesselInfo{MMSI: msg.Base().MMSI, UpdatedAt: timestamp}

	switch m := msg.(type) {
	case *ais.StaticVoyageData:
		info.Name = m.ShipName
		info.Callsign = m.Callsign
		info.ShipType = int(m.ShipType)
		info.Destination = m.Destination
		info.Length, info.Beam = m.Dimensions.Length(), m.Dimensions.Beam()
		if m.IMO != nil {
			info.IMO = *m.IMO
		}
	case *ais.ExtendedClassBReport:
		info.Name = m.ShipName
		info.ShipType = int(m.ShipType)
		info.Length, info.Beam = m.Dimensions.Length(), m.Dimensions.Beam()
	case *ais.StaticDataReport:
		info.Name = m.ShipName
		info.Callsign = m.Callsign
		info.ShipType = int(m.ShipType)
		if m.Dimensions != nil {
			info.Length, info.Beam = m.Dimensions.Length(), m.Dimensions.Beam()
		}
	default:
		return nil
	}

	return info
}

func setPosition(state *types.VesselState, lat, lon, speed, course *float64) {
	state.Latitude = lat
	state.Longitude = lon
	state.Speed = speed
	state.Course = course
}

func toInt(v *uint16) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}
