// Package parser runs raw NMEA lines through the decoding pipeline:
// tag block, sentence framing, reassembly, expansion and decoding.
package parser

import (
	"fmt"
	"time"

	"github.com/saviobatista/ais-logger/internal/ais"
	"github.com/saviobatista/ais-logger/internal/nmea"
	"github.com/saviobatista/ais-logger/internal/types"
)

// Status of a parsed line
type Status int

const (
	// Incomplete means the line was buffered waiting for more fragments
	Incomplete Status = iota
	// Complete means a whole message was assembled
	Complete
)

func (s Status) String() string {
	if s == Complete {
		return "complete"
	}
	return "incomplete"
}

// Options configure a Parser
type Options struct {
	// Strict rejects lines whose checksums do not match
	Strict bool
	// MaxPending bounds the number of incomplete multi-sentence messages
	MaxPending int
	// MaxAge is how long an incomplete message is kept
	MaxAge time.Duration
}

// DefaultOptions returns strict parsing with the default reassembly bounds
func DefaultOptions() Options {
	return Options{
		Strict:     true,
		MaxPending: nmea.DefaultMaxPending,
		MaxAge:     nmea.DefaultMaxAge,
	}
}

// Outcome is the result of parsing one line. Message is nil when the
// outcome is Incomplete or the message type has no decoder.
type Outcome struct {
	Status    Status
	Message   ais.Message
	Sentence  *nmea.Sentence
	TagBlock  *nmea.TagBlock
	Assembled *nmea.Assembled
	Warnings  []string
}

// Parser decodes one stream of lines. It owns the reassembly state of that
// stream and must not be shared between goroutines.
type Parser struct {
	opts      Options
	assembler *nmea.Assembler
}

// New creates a parser
func New(opts Options) *Parser {
	return &Parser{
		opts:      opts,
		assembler: nmea.NewAssembler(opts.MaxPending, opts.MaxAge),
	}
}

// Parse runs one line through the pipeline
func (p *Parser) Parse(line []byte, strict bool) (*Outcome, error) {
	sentence, err := nmea.ParseSentence(line, strict)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Status:   Incomplete,
		Sentence: sentence,
		TagBlock: sentence.TagBlock,
	}
	if !sentence.ChecksumOK {
		out.Warnings = append(out.Warnings, fmt.Sprintf("sentence checksum mismatch: declared 0x%02X", sentence.Checksum))
	}
	if sentence.TagBlock != nil && !sentence.TagBlock.ChecksumOK {
		out.Warnings = append(out.Warnings, fmt.Sprintf("tag block checksum mismatch: declared 0x%02X", sentence.TagBlock.Checksum))
	}

	assembled, err := p.assembler.Add(sentence)
	if err != nil {
		return nil, err
	}
	if assembled == nil {
		return out, nil
	}

	out.Status = Complete
	out.Assembled = assembled
	if out.TagBlock == nil {
		out.TagBlock = assembled.TagBlock
	}

	bits, err := ais.Expand(assembled.Payload, assembled.FillBits)
	if err != nil {
		return nil, withInput(err, sentence.Raw)
	}
	msg, err := ais.Decode(bits)
	if err != nil {
		return nil, withInput(err, sentence.Raw)
	}
	out.Message = msg
	return out, nil
}

// Pending returns the number of incomplete multi-sentence messages
func (p *Parser) Pending() int {
	return p.assembler.Pending()
}

// Evicted returns how many incomplete messages were dropped
func (p *Parser) Evicted() uint64 {
	return p.assembler.Evicted()
}

// Reset forgets every incomplete message
func (p *Parser) Reset() {
	p.assembler.Reset()
}

// Decode decodes a line that holds a complete single-sentence message
func Decode(line []byte) (ais.Message, error) {
	out, err := New(DefaultOptions()).Parse(line, true)
	if err != nil {
		return nil, err
	}
	if out.Status == Incomplete {
		return nil, types.NewError(types.KindIncomplete, "sentence", out.Sentence.Raw,
			"fragment %d of %d does not complete a message", out.Sentence.FragmentIndex, out.Sentence.FragmentCount)
	}
	if out.Message == nil {
		msgType, _ := messageType(out.Assembled)
		return nil, types.NewError(types.KindUnsupportedType, "message_type", out.Sentence.Raw,
			"no decoder for message type %d", msgType)
	}
	return out.Message, nil
}

func messageType(a *nmea.Assembled) (uint8, error) {
	bits, err := ais.Expand(a.Payload, a.FillBits)
	if err != nil {
		return 0, err
	}
	return ais.MessageType(bits)
}

// withInput attaches the raw line to errors raised after framing
func withInput(err error, raw string) error {
	if de, ok := err.(*types.DecodeError); ok && de.Input == "" {
		cp := *de
		cp.Input = raw
		return &cp
	}
	return err
}
