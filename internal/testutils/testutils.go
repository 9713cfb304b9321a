package testutils

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/saviobatista/ais-logger/internal/types"
)

// PayloadWriter builds armored AIS payloads bit by bit
type PayloadWriter struct {
	bits []byte
}

// Uint appends the low width bits of v, most significant first
func (w *PayloadWriter) Uint(width int, v uint64) *PayloadWriter {
	for i := width - 1; i >= 0; i-- {
		w.bits = append(w.bits, byte(v>>uint(i)&1))
	}
	return w
}

// Int appends v as a width-bit two's complement value
func (w *PayloadWriter) Int(width int, v int64) *PayloadWriter {
	return w.Uint(width, uint64(v))
}

// Bool appends a single flag bit
func (w *PayloadWriter) Bool(v bool) *PayloadWriter {
	if v {
		return w.Uint(1, 1)
	}
	return w.Uint(1, 0)
}

// Text appends s as 6-bit ASCII padded with '@' to width bits
func (w *PayloadWriter) Text(width int, s string) *PayloadWriter {
	s = strings.ToUpper(s)
	for i := 0; i < width/6; i++ {
		c := byte('@')
		if i < len(s) {
			c = s[i]
		}
		if c >= 64 {
			c -= 64
		}
		w.Uint(6, uint64(c&0x3F))
	}
	return w
}

// Len returns the number of bits written
func (w *PayloadWriter) Len() int {
	return len(w.bits)
}

// Payload armors the bits, returning the payload and its fill bit count
func (w *PayloadWriter) Payload() (string, int) {
	fill := (6 - len(w.bits)%6) % 6
	bits := append(append([]byte{}, w.bits...), make([]byte, fill)...)

	var sb strings.Builder
	for i := 0; i < len(bits); i += 6 {
		var v byte
		for _, b := range bits[i : i+6] {
			v = v<<1 | b
		}
		if v < 40 {
			sb.WriteByte(v + '0')
		} else {
			sb.WriteByte(v - 40 + '`')
		}
	}
	return sb.String(), fill
}

// Sentence frames a payload as an !AIVDM sentence with a valid checksum
func Sentence(count, index int, seqID, channel, payload string, fill int) string {
	body := fmt.Sprintf("AIVDM,%d,%d,%s,%s,%s,%d", count, index, seqID, channel, payload, fill)
	return fmt.Sprintf("!%s*%02X", body, xor(body))
}

// OwnVessel rewrites an !AIVDM line from Sentence as the !AIVDO report of
// the receiving station
func OwnVessel(line string) string {
	body := strings.Replace(line[1:strings.LastIndexByte(line, '*')], "AIVDM", "AIVDO", 1)
	return fmt.Sprintf("!%s*%02X", body, xor(body))
}

// TagBlock builds a `\...*hh\` prefix with a valid checksum
func TagBlock(fields string) string {
	return fmt.Sprintf(`\%s*%02X\`, fields, xor(fields))
}

func xor(s string) byte {
	var sum byte
	for i := 0; i < len(s); i++ {
		sum ^= s[i]
	}
	return sum
}

// PositionReport builds a single-sentence type 1 report. Pass NaN for an
// unavailable coordinate or speed.
func PositionReport(mmsi uint32, lat, lon, speed float64) string {
	w := &PayloadWriter{}
	w.Uint(6, 1).Uint(2, 0).Uint(30, uint64(mmsi)).Uint(4, 0).Int(8, -128)
	if math.IsNaN(speed) {
		w.Uint(10, 1023)
	} else {
		w.Uint(10, uint64(math.Round(speed*10)))
	}
	w.Bool(false)
	if math.IsNaN(lon) {
		w.Int(28, 181*600000)
	} else {
		w.Int(28, int64(math.Round(lon*600000)))
	}
	if math.IsNaN(lat) {
		w.Int(27, 91*600000)
	} else {
		w.Int(27, int64(math.Round(lat*600000)))
	}
	w.Uint(12, 3600).Uint(9, 511).Uint(6, 60).Uint(2, 0).Uint(3, 0).Bool(false).Uint(19, 0)

	payload, fill := w.Payload()
	return Sentence(1, 1, "", "A", payload, fill)
}

// StaticVoyageData builds a two-sentence type 5 message
func StaticVoyageData(mmsi uint32, seqID, name, callsign, destination string) []string {
	w := &PayloadWriter{}
	w.Uint(6, 5).Uint(2, 0).Uint(30, uint64(mmsi)).Uint(2, 0).Uint(30, 0)
	w.Text(42, callsign).Text(120, name).Uint(8, 70)
	w.Uint(9, 0).Uint(9, 0).Uint(6, 0).Uint(6, 0).Uint(4, 1)
	w.Uint(4, 0).Uint(5, 0).Uint(5, 24).Uint(6, 60).Uint(8, 0)
	w.Text(120, destination).Bool(false).Bool(false)

	payload, fill := w.Payload()
	return []string{
		Sentence(2, 1, seqID, "A", payload[:60], 0),
		Sentence(2, 2, seqID, "A", payload[60:], fill),
	}
}

// MockAISMessage wraps a raw line the way the ingestor publishes it
func MockAISMessage(raw string) *types.AISMessage {
	return &types.AISMessage{
		Raw:       raw,
		Timestamp: time.Now().UTC(),
		Source:    "test-source",
	}
}

// MockVesselState returns a positioned state for mmsi
func MockVesselState(mmsi uint32) *types.VesselState {
	lat, lon, speed, course := 47.5847, -122.3387, 12.3, 101.5
	heading := 100
	return &types.VesselState{
		MMSI:      mmsi,
		MsgType:   1,
		Name:      "TEST VESSEL",
		NavStatus: "under way using engine",
		Latitude:  &lat,
		Longitude: &lon,
		Speed:     &speed,
		Course:    &course,
		Heading:   &heading,
		Timestamp: time.Now().UTC(),
		Source:    "test-source",
	}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for condition")
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// IsIntegrationTest reports whether container backed tests should run.
// Set SKIP_INTEGRATION to disable them.
func IsIntegrationTest() bool {
	return os.Getenv("SKIP_INTEGRATION") == ""
}
