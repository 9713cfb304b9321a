// Package nmea frames NMEA 0183 AIS sentences: tag blocks, the
// !AIVDM/!AIVDO sentence itself and multi-sentence reassembly.
package nmea

// Checksum returns the XOR of every byte in s
func Checksum(s string) byte {
	var sum byte
	for i := 0; i < len(s); i++ {
		sum ^= s[i]
	}
	return sum
}

// parseHexByte parses exactly two hex digits, either case
func parseHexByte(s string) (byte, bool) {
	if len(s) != 2 {
		return 0, false
	}
	hi, ok := hexValue(s[0])
	if !ok {
		return 0, false
	}
	lo, ok := hexValue(s[1])
	if !ok {
		return 0, false
	}
	return hi<<4 | lo, true
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
