package ais

import (
	"math"

	"github.com/saviobatista/ais-logger/internal/types"
)

// MaxMessageType is the highest message type defined by ITU-R M.1371
const MaxMessageType = 27

type decoder struct {
	minBits int
	decode  func(r *reader, h Header) Message
}

var decoders = map[uint8]decoder{
	1:  {168, decodePositionReport},
	2:  {168, decodePositionReport},
	3:  {168, decodePositionReport},
	4:  {168, decodeBaseStationReport},
	5:  {420, decodeStaticVoyageData},
	9:  {168, decodeSARAircraftReport},
	11: {168, decodeBaseStationReport},
	18: {168, decodeClassBPositionReport},
	19: {312, decodeExtendedClassBReport},
	21: {272, decodeAidToNavigationReport},
	24: {160, decodeStaticDataReport},
	27: {96, decodeLongRangeBroadcast},
}

// Supported reports whether a decoder exists for the message type
func Supported(msgType uint8) bool {
	_, ok := decoders[msgType]
	return ok
}

// MessageType peeks at the type code of an expanded payload
func MessageType(b *Bits) (uint8, error) {
	v, err := b.Uint(0, 6)
	return uint8(v), err
}

// Decode dispatches on the message type. Types defined by the standard
// but without a decoder yield nil, nil.
func Decode(b *Bits) (Message, error) {
	msgType, err := MessageType(b)
	if err != nil {
		return nil, types.NewError(types.KindFormat, "payload", "", "payload too short for a message type")
	}
	if msgType == 0 || msgType > MaxMessageType {
		return nil, types.NewError(types.KindUnsupportedType, "message_type", "", "unknown message type %d", msgType)
	}

	d, ok := decoders[msgType]
	if !ok {
		return nil, nil
	}
	if b.Len() < d.minBits {
		return nil, types.NewError(types.KindFormat, "payload", "",
			"message type %d needs %d bits, got %d", msgType, d.minBits, b.Len())
	}

	r := &reader{bits: b}
	h := Header{
		MessageType: msgType,
		Repeat:      uint8(r.uint(6, 2)),
		MMSI:        uint32(r.uint(8, 30)),
	}
	msg := d.decode(r, h)
	if r.err != nil {
		return nil, r.err
	}
	return msg, nil
}

func decodePositionReport(r *reader, h Header) Message {
	m := &PositionReport{
		Header:           h,
		NavStatus:        NavigationStatusFromCode(r.uint(38, 4)),
		Speed:            speed(r.uint(50, 10), 1023, 10),
		PositionAccuracy: r.bool(60),
		Longitude:        longitude(r.int(61, 28), 600000),
		Latitude:         latitude(r.int(89, 27), 600000),
		Course:           course(r.uint(116, 12)),
		Heading:          heading(r.uint(128, 9)),
		Maneuver:         ManeuverIndicator(r.uint(143, 2)),
		RAIM:             r.bool(148),
		RadioStatus:      uint32(r.uint(149, 19)),
	}
	m.Turn, m.RateOfTurn = rateOfTurn(r.int(42, 8))
	m.Second, m.TimestampStatus = second(r.uint(137, 6))
	if m.Maneuver > ManeuverSpecial {
		m.Maneuver = ManeuverNotAvailable
	}
	return m
}

func decodeBaseStationReport(r *reader, h Header) Message {
	return &BaseStationReport{
		Header:           h,
		Year:             optional16(r.uint(38, 14), 1, 9999),
		Month:            optional8(r.uint(52, 4), 1, 12),
		Day:              optional8(r.uint(56, 5), 1, 31),
		Hour:             optional8(r.uint(61, 5), 0, 23),
		Minute:           optional8(r.uint(66, 6), 0, 59),
		Second:           optional8(r.uint(72, 6), 0, 59),
		PositionAccuracy: r.bool(78),
		Longitude:        longitude(r.int(79, 28), 600000),
		Latitude:         latitude(r.int(107, 27), 600000),
		EPFD:             EPFD(r.uint(134, 4)),
		RAIM:             r.bool(148),
		RadioStatus:      uint32(r.uint(149, 19)),
	}
}

func decodeStaticVoyageData(r *reader, h Header) Message {
	m := &StaticVoyageData{
		Header:      h,
		AISVersion:  uint8(r.uint(38, 2)),
		Callsign:    r.text(70, 42),
		ShipName:    r.text(112, 120),
		ShipType:    uint8(r.uint(232, 8)),
		Dimensions:  dimensions(r, 240),
		EPFD:        EPFD(r.uint(270, 4)),
		Destination: r.text(302, 120),
	}
	if imo := uint32(r.uint(40, 30)); imo != 0 {
		m.IMO = &imo
	}
	m.ETA = ETA{
		Month:  optional8(r.uint(274, 4), 1, 12),
		Day:    optional8(r.uint(278, 5), 1, 31),
		Hour:   optional8(r.uint(283, 5), 0, 23),
		Minute: optional8(r.uint(288, 6), 0, 59),
	}
	if d := r.uint(294, 8); d != 0 {
		v := float64(d) / 10
		m.Draught = &v
	}
	if r.bits.Len() > 422 {
		m.DTEReady = !r.bool(422)
	}
	return m
}

func decodeSARAircraftReport(r *reader, h Header) Message {
	m := &SARAircraftReport{
		Header:           h,
		Altitude:         optional16(r.uint(38, 12), 0, 4094),
		Speed:            speed(r.uint(50, 10), 1023, 1),
		PositionAccuracy: r.bool(60),
		Longitude:        longitude(r.int(61, 28), 600000),
		Latitude:         latitude(r.int(89, 27), 600000),
		Course:           course(r.uint(116, 12)),
		DTEReady:         !r.bool(142),
		Assigned:         r.bool(146),
		RAIM:             r.bool(147),
		RadioStatus:      uint32(r.uint(148, 20)),
	}
	m.Second, m.TimestampStatus = second(r.uint(128, 6))
	return m
}

func decodeClassBPositionReport(r *reader, h Header) Message {
	m := &ClassBPositionReport{
		Header:           h,
		Speed:            speed(r.uint(46, 10), 1023, 10),
		PositionAccuracy: r.bool(56),
		Longitude:        longitude(r.int(57, 28), 600000),
		Latitude:         latitude(r.int(85, 27), 600000),
		Course:           course(r.uint(112, 12)),
		Heading:          heading(r.uint(124, 9)),
		CarrierSense:     r.bool(141),
		Display:          r.bool(142),
		DSC:              r.bool(143),
		Band:             r.bool(144),
		Message22:        r.bool(145),
		Assigned:         r.bool(146),
		RAIM:             r.bool(147),
		RadioStatus:      uint32(r.uint(148, 20)),
	}
	m.Second, m.TimestampStatus = second(r.uint(133, 6))
	return m
}

func decodeExtendedClassBReport(r *reader, h Header) Message {
	m := &ExtendedClassBReport{
		Header:           h,
		Speed:            speed(r.uint(46, 10), 1023, 10),
		PositionAccuracy: r.bool(56),
		Longitude:        longitude(r.int(57, 28), 600000),
		Latitude:         latitude(r.int(85, 27), 600000),
		Course:           course(r.uint(112, 12)),
		Heading:          heading(r.uint(124, 9)),
		ShipName:         r.text(143, 120),
		ShipType:         uint8(r.uint(263, 8)),
		Dimensions:       dimensions(r, 271),
		EPFD:             EPFD(r.uint(301, 4)),
		RAIM:             r.bool(305),
		DTEReady:         !r.bool(306),
		Assigned:         r.bool(307),
	}
	m.Second, m.TimestampStatus = second(r.uint(133, 6))
	return m
}

func decodeAidToNavigationReport(r *reader, h Header) Message {
	m := &AidToNavigationReport{
		Header:           h,
		AidType:          uint8(r.uint(38, 5)),
		Name:             r.text(43, 120),
		PositionAccuracy: r.bool(163),
		Longitude:        longitude(r.int(164, 28), 600000),
		Latitude:         latitude(r.int(192, 27), 600000),
		Dimensions:       dimensions(r, 219),
		EPFD:             EPFD(r.uint(249, 4)),
		OffPosition:      r.bool(259),
		RAIM:             r.bool(268),
		VirtualAid:       r.bool(269),
		Assigned:         r.bool(270),
	}
	m.Second, m.TimestampStatus = second(r.uint(253, 6))
	if r.bits.Len() > 272 {
		m.Name += r.text(272, r.bits.Len()-272)
	}
	return m
}

func decodeStaticDataReport(r *reader, h Header) Message {
	m := &StaticDataReport{
		Header:     h,
		PartNumber: uint8(r.uint(38, 2)),
	}
	switch m.PartNumber {
	case 0:
		m.ShipName = r.text(40, 120)
	case 1:
		if r.bits.Len() < 168 {
			r.err = types.NewError(types.KindFormat, "payload", "",
				"message type 24 part B needs 168 bits, got %d", r.bits.Len())
			return nil
		}
		m.ShipType = uint8(r.uint(40, 8))
		m.VendorID = r.text(48, 18)
		m.Model = uint8(r.uint(66, 4))
		m.Serial = uint32(r.uint(70, 20))
		m.Callsign = r.text(90, 42)
		if h.MMSI/10000000 == 98 {
			mothership := uint32(r.uint(132, 30))
			m.MothershipMMSI = &mothership
		} else {
			d := dimensions(r, 132)
			m.Dimensions = &d
		}
	default:
		r.err = types.NewError(types.KindFormat, "part_number", "", "invalid message type 24 part %d", m.PartNumber)
		return nil
	}
	return m
}

func decodeLongRangeBroadcast(r *reader, h Header) Message {
	m := &LongRangeBroadcast{
		Header:           h,
		PositionAccuracy: r.bool(38),
		RAIM:             r.bool(39),
		NavStatus:        NavigationStatusFromCode(r.uint(40, 4)),
		Longitude:        longitude(r.int(44, 18), 600),
		Latitude:         latitude(r.int(62, 17), 600),
		Speed:            speed(r.uint(79, 6), 63, 1),
		Course:           optionalFloat(r.uint(85, 9), 0, 359, 1),
		GNSS:             !r.bool(94),
	}
	return m
}

func dimensions(r *reader, off int) Dimensions {
	return Dimensions{
		ToBow:       uint16(r.uint(off, 9)),
		ToStern:     uint16(r.uint(off+9, 9)),
		ToPort:      uint8(r.uint(off+18, 6)),
		ToStarboard: uint8(r.uint(off+24, 6)),
	}
}

// speed converts a raw speed to knots, nil for the unavailable code
func speed(raw, unavailable uint64, perKnot float64) *float64 {
	if raw == unavailable {
		return nil
	}
	v := float64(raw) / perKnot
	return &v
}

// longitude scales a signed fixed-point longitude. 181 degrees and anything
// outside +-180 are unavailable.
func longitude(raw int64, perDegree float64) *float64 {
	return coordinate(raw, perDegree, 180)
}

// latitude scales a signed fixed-point latitude. 91 degrees and anything
// outside +-90 are unavailable.
func latitude(raw int64, perDegree float64) *float64 {
	return coordinate(raw, perDegree, 90)
}

func coordinate(raw int64, perDegree, limit float64) *float64 {
	v := float64(raw) / perDegree
	if math.Abs(v) > limit {
		return nil
	}
	return &v
}

// course scales a tenth-of-degree course over ground; 3600 and above are unavailable
func course(raw uint64) *float64 {
	return optionalFloat(raw, 0, 3599, 10)
}

// heading returns the true heading in degrees; 511 is unavailable
func heading(raw uint64) *uint16 {
	if raw > 359 {
		return nil
	}
	v := uint16(raw)
	return &v
}

// second maps the 6-bit timestamp; 60 to 63 are status codes
func second(raw uint64) (*uint8, TimestampStatus) {
	switch raw {
	case 60:
		return nil, TimestampNotAvailable
	case 61:
		return nil, TimestampManualInput
	case 62:
		return nil, TimestampDeadReckoning
	case 63:
		return nil, TimestampInoperative
	}
	v := uint8(raw)
	return &v, TimestampAvailable
}

// rateOfTurn decodes ROT_AIS = 4.733 * sqrt(ROT) degrees per minute
func rateOfTurn(raw int64) (TurnIndicator, *float64) {
	switch raw {
	case -128:
		return TurnNotAvailable, nil
	case 127:
		return TurnRightNoIndicator, nil
	case -127:
		return TurnLeftNoIndicator, nil
	}
	v := math.Pow(float64(raw)/4.733, 2)
	if raw < 0 {
		v = -v
	}
	return TurnRate, &v
}

func optionalFloat(raw, lo, hi uint64, divisor float64) *float64 {
	if raw < lo || raw > hi {
		return nil
	}
	v := float64(raw) / divisor
	return &v
}

func optional8(raw, lo, hi uint64) *uint8 {
	if raw < lo || raw > hi {
		return nil
	}
	v := uint8(raw)
	return &v
}

func optional16(raw, lo, hi uint64) *uint16 {
	if raw < lo || raw > hi {
		return nil
	}
	v := uint16(raw)
	return &v
}
