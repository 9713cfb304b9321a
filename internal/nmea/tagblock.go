package nmea

import (
	"strconv"
	"strings"

	"github.com/saviobatista/ais-logger/internal/types"
)

// Group links sentences of one multi-sentence message (tag "g")
type Group struct {
	Index uint32 `json:"index"`
	Total uint32 `json:"total"`
	ID    uint32 `json:"id"`
}

// TagBlock is the optional metadata prefix of a sentence.
// Absent tags are nil.
type TagBlock struct {
	ReceiverTimestamp *uint64 `json:"receiver_timestamp,omitempty"`
	Destination       *string `json:"destination,omitempty"`
	LineCount         *uint32 `json:"line_count,omitempty"`
	RelativeTime      *uint32 `json:"relative_time,omitempty"`
	Source            *string `json:"source,omitempty"`
	Text              *string `json:"text,omitempty"`
	Group             *Group  `json:"group,omitempty"`
	Checksum          byte    `json:"checksum"`
	ChecksumOK        bool    `json:"checksum_ok"`
}

// ParseTagBlock parses a tag block such as `\s:2573135,c:1671620143*0B\`.
// It returns nil, nil when the input holds no tag block.
func ParseTagBlock(input string) (*TagBlock, error) {
	return parseTagBlock(input, true)
}

func parseTagBlock(input string, strict bool) (*TagBlock, error) {
	body := strings.Trim(input, `\`)
	if body == "" {
		return nil, nil
	}

	parts := strings.Split(body, "*")
	if len(parts) != 2 {
		return nil, types.NewError(types.KindFormat, "tag_block", input, "invalid tag block format; missing checksum")
	}
	fields, sumText := parts[0], parts[1]

	declared, ok := parseHexByte(sumText)
	if !ok {
		return nil, types.NewError(types.KindFormat, "tag_block", input, "invalid checksum format %q", sumText)
	}

	tb := &TagBlock{Checksum: declared, ChecksumOK: true}
	if calculated := Checksum(fields); calculated != declared {
		if strict {
			return nil, types.NewChecksumError("tag_block", input, calculated, declared)
		}
		tb.ChecksumOK = false
	}

	for _, token := range strings.Split(fields, ",") {
		if len(token) < 3 {
			continue
		}
		key, value := token[:2], token[2:]
		switch key {
		case "c:":
			if v, err := strconv.ParseUint(value, 10, 64); err == nil {
				tb.ReceiverTimestamp = &v
			}
		case "d:":
			tb.Destination = &value
		case "n:":
			if v, ok := parseUint32(value); ok {
				tb.LineCount = &v
			}
		case "r:":
			if v, ok := parseUint32(value); ok {
				tb.RelativeTime = &v
			}
		case "s:":
			tb.Source = &value
		case "t:":
			tb.Text = &value
		case "g:":
			tb.Group = parseGroup(value)
		}
	}

	return tb, nil
}

// SplitTagBlock separates a leading `\...\` tag block from the sentence.
// tag is empty when the line carries none.
func SplitTagBlock(line string) (tag, sentence string, err error) {
	if !strings.HasPrefix(line, `\`) {
		return "", line, nil
	}
	end := strings.IndexByte(line[1:], '\\')
	if end < 0 {
		return "", "", types.NewError(types.KindFormat, "tag_block", line, "unterminated tag block")
	}
	return line[:end+2], line[end+2:], nil
}

func parseUint32(s string) (uint32, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

func parseGroup(s string) *Group {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return nil
	}
	var vals [3]uint32
	for i, p := range parts {
		v, ok := parseUint32(p)
		if !ok {
			return nil
		}
		vals[i] = v
	}
	return &Group{Index: vals[0], Total: vals[1], ID: vals[2]}
}
