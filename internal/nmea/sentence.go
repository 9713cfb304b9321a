package nmea

import (
	"strconv"
	"strings"

	"github.com/saviobatista/ais-logger/internal/types"
)

const (
	FormatterVDM = "AIVDM"
	FormatterVDO = "AIVDO"
)

// Sentence is one framed !AIVDM/!AIVDO line
type Sentence struct {
	Identifier    string    `json:"identifier"`
	FragmentCount int       `json:"fragment_count"`
	FragmentIndex int       `json:"fragment_index"`
	SequentialID  string    `json:"sequential_id,omitempty"`
	Channel       string    `json:"channel"`
	Payload       string    `json:"payload"`
	FillBits      int       `json:"fill_bits"`
	Checksum      byte      `json:"checksum"`
	ChecksumOK    bool      `json:"checksum_ok"`
	TagBlock      *TagBlock `json:"tag_block,omitempty"`
	Raw           string    `json:"raw"`
}

// Own reports whether the sentence describes the receiving station itself
func (s *Sentence) Own() bool {
	return s.Identifier == FormatterVDO
}

// ParseSentence frames a single line. In strict mode any checksum
// mismatch is an error; otherwise the sentence is returned with
// ChecksumOK (or TagBlock.ChecksumOK) cleared.
func ParseSentence(line []byte, strict bool) (*Sentence, error) {
	raw := strings.TrimRight(string(line), "\r\n \t")

	tagText, body, err := SplitTagBlock(raw)
	if err != nil {
		return nil, err
	}

	var tb *TagBlock
	if tagText != "" {
		if tb, err = parseTagBlock(tagText, strict); err != nil {
			return nil, err
		}
	}

	if body == "" {
		return nil, types.NewError(types.KindFormat, "sentence", raw, "empty sentence")
	}
	if body[0] != '!' && body[0] != '$' {
		return nil, types.NewError(types.KindFormat, "start", raw, "sentence must start with '!' or '$'")
	}

	star := strings.LastIndexByte(body, '*')
	if star < 0 {
		return nil, types.NewError(types.KindFormat, "checksum", raw, "missing checksum delimiter")
	}
	content, sumText := body[1:star], body[star+1:]

	declared, ok := parseHexByte(sumText)
	if !ok {
		return nil, types.NewError(types.KindFormat, "checksum", raw, "invalid checksum format %q", sumText)
	}

	fields := strings.Split(content, ",")
	if fields[0] != FormatterVDM && fields[0] != FormatterVDO {
		return nil, types.NewError(types.KindFraming, "identifier", raw, "unsupported sentence %q", fields[0])
	}
	if len(fields) != 7 {
		return nil, types.NewError(types.KindFormat, "sentence", raw, "expected 7 fields, got %d", len(fields))
	}

	s := &Sentence{
		Identifier:   fields[0],
		SequentialID: fields[3],
		Channel:      fields[4],
		Payload:      fields[5],
		Checksum:     declared,
		ChecksumOK:   true,
		TagBlock:     tb,
		Raw:          raw,
	}

	if calculated := Checksum(content); calculated != declared {
		if strict {
			return nil, types.NewChecksumError("sentence", raw, calculated, declared)
		}
		s.ChecksumOK = false
	}

	if s.FragmentCount, err = parseCounter(fields[1], "fragment_count", raw); err != nil {
		return nil, err
	}
	if s.FragmentIndex, err = parseCounter(fields[2], "fragment_index", raw); err != nil {
		return nil, err
	}
	if s.FragmentIndex > s.FragmentCount {
		return nil, types.NewError(types.KindFraming, "fragment_index", raw,
			"index %d exceeds fragment count %d", s.FragmentIndex, s.FragmentCount)
	}

	if s.SequentialID != "" {
		if _, err := strconv.ParseUint(s.SequentialID, 10, 32); err != nil {
			return nil, types.NewError(types.KindFormat, "sequential_id", raw, "invalid sequential id %q", s.SequentialID)
		}
	}

	fill, err := strconv.Atoi(fields[6])
	if err != nil || len(fields[6]) != 1 || fill > 5 {
		return nil, types.NewError(types.KindFormat, "fill_bits", raw, "invalid fill bits %q", fields[6])
	}
	s.FillBits = fill

	return s, nil
}

// parseCounter parses a fragment count or index, which must be at least 1
func parseCounter(s, field, raw string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, types.NewError(types.KindFormat, field, raw, "invalid number %q", s)
	}
	if v < 1 {
		return 0, types.NewError(types.KindFraming, field, raw, "must be at least 1, got %d", v)
	}
	return v, nil
}
